package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swasher/productus/internal/config"
	"github.com/swasher/productus/internal/initialization"
	"github.com/swasher/productus/internal/server"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the catalog service",
		Long:  `Start the catalog HTTP service. Configuration comes from productus_config.yaml and environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService()
		},
	}

	return cmd
}

func runService() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("Starting catalog service")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("mongo_database", cfg.MongoDatabase).
		Str("media_backend", cfg.MediaBackend).
		Str("http_address", cfg.HTTPAddress).
		Msg("Catalog configuration loaded")

	container := initialization.NewServiceContainer(cfg)

	deps, err := container.BuildServiceDependencies(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build service dependencies")
	}

	httpServer := server.NewHTTPServer(ctx, server.HTTPServerDependencies{
		Config:            cfg,
		CatalogController: deps.CatalogController,
	})

	if err := httpServer.Listen(cfg.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	container.Close(shutdownCtx)

	log.Info().Msg("Catalog service stopped")
	return nil
}
