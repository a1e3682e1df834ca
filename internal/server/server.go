package server

import (
	"context"
	"time"

	"github.com/swasher/productus/internal/config"
	"github.com/swasher/productus/internal/controllers"
	"github.com/swasher/productus/internal/middlewares"
	"github.com/swasher/productus/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/rs/zerolog/log"
)

type HTTPServerDependencies struct {
	Config            *config.Config
	CatalogController *controllers.CatalogController
}

func NewHTTPServer(ctx context.Context, deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "productus",
	})

	// Add basic middleware
	router.Use(cors.New())
	router.Use(logger.New())

	// Health check endpoint (no authentication required)
	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "productus",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	if deps.CatalogController == nil {
		log.Fatal().Msg("Catalog controller is nil, set up the server with a catalog controller")
	}

	api := router.Group("/api/v1")
	api.Use(middlewares.SessionMiddleware(deps.Config.JWTSecret))

	api.Get("/folders", deps.CatalogController.GetFolders)
	api.Post("/folders", deps.CatalogController.CreateFolder)
	api.Patch("/folders/:folder", deps.CatalogController.RenameFolder)
	api.Delete("/folders/:folder", deps.CatalogController.DeleteFolder)
	api.Get("/folders/counts", deps.CatalogController.GetFolderCounts)

	api.Get("/folders/:folder/photos", deps.CatalogController.GetPhotos)
	api.Post("/folders/:folder/photos", deps.CatalogController.UploadPhoto)
	api.Patch("/folders/:folder/photos/:photoID", deps.CatalogController.UpdatePhoto)
	api.Delete("/folders/:folder/photos/:photoID", deps.CatalogController.DeletePhoto)

	api.Get("/search", deps.CatalogController.SearchPhotos)
	api.Get("/thumbnail", deps.CatalogController.GetThumbnailURL)
	api.Get("/stream", deps.CatalogController.StreamCatalog)
	api.Post("/sign-out", deps.CatalogController.SignOut)

	return router
}
