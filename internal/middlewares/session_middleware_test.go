package middlewares

import (
	"net/http/httptest"
	"testing"

	"github.com/swasher/productus/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newSessionTestApp() (*fiber.App, *domain.Session) {
	var captured domain.Session

	app := fiber.New()
	app.Use(SessionMiddleware(testSecret))
	app.Get("/me", func(c fiber.Ctx) error {
		captured = SessionFromCtx(c)
		return c.SendStatus(fiber.StatusOK)
	})

	return app, &captured
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestSessionMiddlewareAcceptsValidToken(t *testing.T) {
	app, captured := newSessionTestApp()

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "u1",
		"email": "u1@example.com",
	})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "u1", captured.UserID)
	assert.Equal(t, "u1@example.com", captured.Email)
	assert.Equal(t, "User-u1", captured.UserRoot())
}

func TestSessionMiddlewareRejectsMissingToken(t *testing.T) {
	app, _ := newSessionTestApp()

	req := httptest.NewRequest("GET", "/me", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionMiddlewareRejectsBadSignature(t *testing.T) {
	app, _ := newSessionTestApp()

	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "u1"})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionMiddlewareRejectsTokenWithoutSubject(t *testing.T) {
	app, _ := newSessionTestApp()

	token := signToken(t, testSecret, jwt.MapClaims{"email": "u1@example.com"})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
