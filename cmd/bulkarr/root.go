package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bulkarr/bulkarr/internal/catalog"
	"github.com/bulkarr/bulkarr/internal/config"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "bulkarr",
	Short: "Batch importer for torrent catalogs",
	Long: `bulkarr - batch importer for torrent catalogs

Feed it a file of magnet links and .torrent URLs and it sweeps them
through the catalog's analyze and import endpoints one at a time,
classifying each as movie, series, or sports along the way.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("bulkarr {{.Version}}\n")
}

// loadConfig resolves and loads the config file.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		found, err := config.Discover()
		if err != nil {
			return nil, err
		}
		path = found
	}
	return config.Load(path)
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newCatalogClient(cfg *config.Config) *catalog.Client {
	return catalog.NewClient(cfg.Catalog.URL, cfg.Catalog.APIKey,
		catalog.WithRetries(uint64(cfg.Catalog.MaxRetries)))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode json: %v\n", err)
	}
}
