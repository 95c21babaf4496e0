// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Corphon/EbookGen/internal/app"
	"github.com/Corphon/EbookGen/internal/config"
)

var (
	configPath string
	port       string
	dataDir    string
	backend    string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "ebookgen",
		Short:   "AI-assisted marketing e-book authoring server",
		Version: app.Version,
		RunE:    runServe,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file (default ebookgen.toml when present)")
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for persisted state")
	rootCmd.Flags().StringVar(&backend, "store", "", "store backend: file, sqlite or memory")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("store") {
		cfg.StoreBackend = backend
	}
	if flags.Changed("debug") {
		cfg.DebugMode = debug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	fmt.Printf("ebookgen listening on http://localhost:%s\n", cfg.Port)
	return application.Run(context.Background())
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out, err := cfg.Redacted()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}
