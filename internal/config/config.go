package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Media backend selectors for Config.MediaBackend.
const (
	MediaBackendCloudinary = "cloudinary"
	MediaBackendS3         = "s3"
)

// Config holds all catalog service configuration
type Config struct {
	// Basic server settings
	HTTPAddress string
	JWTSecret   string

	// Catalog database
	MongoURI      string
	MongoDatabase string

	// Media storage backend: "cloudinary" or "s3"
	MediaBackend string
	UploadDir    string

	// Cloudinary settings
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// S3 settings
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string

	// Optional folder-count cache. Empty address disables it.
	RedisAddr     string
	RedisPassword string
}

// LoadConfig loads configuration from files and environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Configure environment variables - do this BEFORE reading config
	v.AutomaticEnv()
	v.SetEnvPrefix("") // No prefix for env vars
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set up explicit mappings between struct fields and environment variables
	envMappings := map[string]string{
		"HTTPAddress":         "HTTP_ADDRESS",
		"JWTSecret":           "JWT_SECRET",
		"MongoURI":            "MONGO_URI",
		"MongoDatabase":       "MONGO_DATABASE",
		"MediaBackend":        "MEDIA_BACKEND",
		"UploadDir":           "MEDIA_UPLOAD_DIR",
		"CloudinaryCloudName": "CLOUDINARY_CLOUD_NAME",
		"CloudinaryAPIKey":    "CLOUDINARY_API_KEY",
		"CloudinaryAPISecret": "CLOUDINARY_API_SECRET",
		"S3AccessKeyID":       "S3_ACCESS_KEY_ID",
		"S3SecretAccessKey":   "S3_SECRET_ACCESS_KEY",
		"S3Region":            "S3_REGION",
		"S3Bucket":            "S3_BUCKET",
		"RedisAddr":           "REDIS_ADDR",
		"RedisPassword":       "REDIS_PASSWORD",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	// Configure the config file settings
	v.SetConfigName("productus_config") // Name of config file without extension
	v.SetConfigType("yaml")             // Type of config file
	// Add search paths for the config file
	v.AddConfigPath(".")                // Current working directory
	v.AddConfigPath("./config")         // Config subdirectory
	v.AddConfigPath("$HOME/.productus") // Home directory

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, will just use environment variables and defaults
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	// Unmarshal config into struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Validate required fields
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	log.Debug().Msgf("Config loaded: MongoDatabase=%s, MediaBackend=%s, UploadDir=%s",
		config.MongoDatabase, config.MediaBackend, config.UploadDir)

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server settings
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("MongoDatabase", "productus")
	v.SetDefault("MediaBackend", MediaBackendCloudinary)
	v.SetDefault("UploadDir", "productus")
}

// validateConfig validates the required configuration fields
func validateConfig(config *Config) error {
	var missingVars []string

	if config.JWTSecret == "" {
		missingVars = append(missingVars, "JWT_SECRET")
	}

	if config.MongoURI == "" {
		missingVars = append(missingVars, "MONGO_URI")
	}

	switch config.MediaBackend {
	case MediaBackendCloudinary:
		if config.CloudinaryCloudName == "" {
			missingVars = append(missingVars, "CLOUDINARY_CLOUD_NAME")
		}
		if config.CloudinaryAPIKey == "" {
			missingVars = append(missingVars, "CLOUDINARY_API_KEY")
		}
		if config.CloudinaryAPISecret == "" {
			missingVars = append(missingVars, "CLOUDINARY_API_SECRET")
		}
	case MediaBackendS3:
		if config.S3AccessKeyID == "" {
			missingVars = append(missingVars, "S3_ACCESS_KEY_ID")
		}
		if config.S3SecretAccessKey == "" {
			missingVars = append(missingVars, "S3_SECRET_ACCESS_KEY")
		}
		if config.S3Region == "" {
			missingVars = append(missingVars, "S3_REGION")
		}
		if config.S3Bucket == "" {
			missingVars = append(missingVars, "S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown media backend %q, expected %q or %q",
			config.MediaBackend, MediaBackendCloudinary, MediaBackendS3)
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	return nil
}
