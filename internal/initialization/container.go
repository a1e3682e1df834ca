package initialization

import (
	"context"
	"fmt"

	"github.com/swasher/productus/internal/catalog"
	"github.com/swasher/productus/internal/config"
	"github.com/swasher/productus/internal/controllers"
	"github.com/swasher/productus/internal/domain"
	"github.com/swasher/productus/internal/managers"
	"github.com/swasher/productus/internal/storage/cloudinary"
	"github.com/swasher/productus/internal/storage/mongodb"
	"github.com/swasher/productus/internal/storage/s3"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type ServiceDependencies struct {
	CatalogService    domain.CatalogService
	CatalogRegistry   *catalog.Registry
	CatalogController *controllers.CatalogController
}

type ServiceContainer struct {
	config *config.Config

	mongoClient *mongo.Client
	redisClient *redis.Client
	registry    *catalog.Registry
}

func NewServiceContainer(cfg *config.Config) *ServiceContainer {
	return &ServiceContainer{
		config: cfg,
	}
}

// BuildServiceDependencies connects the backing services and wires the
// catalog stack together. Call Close when done to release the connections.
func (c *ServiceContainer) BuildServiceDependencies(ctx context.Context) (*ServiceDependencies, error) {
	log.Info().Msg("Building catalog service dependencies")

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(c.config.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	c.mongoClient = mongoClient

	catalogStore := mongodb.New(mongoClient, c.config.MongoDatabase)

	mediaStore, err := c.buildMediaStore()
	if err != nil {
		return nil, err
	}

	if c.config.RedisAddr != "" {
		c.redisClient = redis.NewClient(&redis.Options{
			Addr:     c.config.RedisAddr,
			Password: c.config.RedisPassword,
		})

		if err := c.redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, folder-count caching disabled")
			c.redisClient = nil
		}
	}

	catalogService := managers.NewCatalogManager(managers.CatalogManagerDependencies{
		Store:     catalogStore,
		Media:     mediaStore,
		UploadDir: c.config.UploadDir,
		Counts:    c.redisClient,
	})

	registry := catalog.NewRegistry(ctx, catalogService)
	c.registry = registry

	catalogController := controllers.NewCatalogController(controllers.CatalogControllerDependencies{
		Registry: registry,
		Service:  catalogService,
	})

	return &ServiceDependencies{
		CatalogService:    catalogService,
		CatalogRegistry:   registry,
		CatalogController: catalogController,
	}, nil
}

func (c *ServiceContainer) buildMediaStore() (domain.MediaStore, error) {
	switch c.config.MediaBackend {
	case config.MediaBackendCloudinary:
		return cloudinary.NewClient(cloudinary.Config{
			CloudName: c.config.CloudinaryCloudName,
			APIKey:    c.config.CloudinaryAPIKey,
			APISecret: c.config.CloudinaryAPISecret,
			UploadDir: c.config.UploadDir,
		}), nil
	case config.MediaBackendS3:
		return s3.New(s3.Config{
			AccessKeyID:     c.config.S3AccessKeyID,
			SecretAccessKey: c.config.S3SecretAccessKey,
			Region:          c.config.S3Region,
			Bucket:          c.config.S3Bucket,
			UploadDir:       c.config.UploadDir,
		})
	default:
		return nil, fmt.Errorf("unknown media backend %q", c.config.MediaBackend)
	}
}

// Close releases every connection the container opened.
func (c *ServiceContainer) Close(ctx context.Context) {
	if c.registry != nil {
		c.registry.Close()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}

	if c.mongoClient != nil {
		if err := c.mongoClient.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to disconnect mongodb client")
		}
	}
}
