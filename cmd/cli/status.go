package cli

import (
	"fmt"
	"os"

	"github.com/swasher/productus/internal/config"
	"github.com/swasher/productus/internal/version"

	"github.com/spf13/cobra"
)

func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current service configuration",
		Long:  `Display the resolved configuration the catalog service would start with, without connecting to anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	return cmd
}

func runStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Println("❌ Service is not configured")
		fmt.Printf("   %v\n", err)
		fmt.Printf("Set the missing variables and run '%s start'\n", os.Args[0])
		return nil
	}

	fmt.Println("✅ Service is configured")
	fmt.Printf("   Version: %s\n", version.GetShortVersion())
	fmt.Printf("   HTTP address: %s\n", cfg.HTTPAddress)
	fmt.Printf("   Mongo database: %s\n", cfg.MongoDatabase)
	fmt.Printf("   Media backend: %s (upload dir %q)\n", cfg.MediaBackend, cfg.UploadDir)
	if cfg.RedisAddr != "" {
		fmt.Printf("   Count cache: redis at %s\n", cfg.RedisAddr)
	} else {
		fmt.Println("   Count cache: disabled")
	}

	return nil
}
