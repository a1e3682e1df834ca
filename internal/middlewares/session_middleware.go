package middlewares

import (
	"fmt"
	"strings"

	"github.com/swasher/productus/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const sessionLocal = "session"

// SessionMiddleware verifies the bearer token issued by the identity
// provider and stores the resulting session on the request. Every catalog
// route requires it: user-scoped operations have no meaning without a user.
func SessionMiddleware(secret string) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			log.Debug().Err(err).Str("path", c.Path()).Msg("Session token rejected")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid session token",
			})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid session token",
			})
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Session token has no subject",
			})
		}

		email, _ := claims["email"].(string)

		c.Locals(sessionLocal, domain.Session{
			UserID: subject,
			Email:  email,
		})

		return c.Next()
	}
}

// SessionFromCtx returns the session the middleware stored, or a zero
// session when none is present.
func SessionFromCtx(c fiber.Ctx) domain.Session {
	if sess, ok := c.Locals(sessionLocal).(domain.Session); ok {
		return sess
	}
	return domain.Session{}
}
