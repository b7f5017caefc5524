// Package main provides the sgc CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/scholargraph/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

// configPath holds the --config flag.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sgc",
	Short: "Co-authorship network crawler",
	Long: `sgc crawls an academic-profile site to reconstruct a co-authorship
network: it discovers authors by name search, walks their publication
lists, resolves duplicate author identities, and assembles a graph of
authors connected by shared publications.

Crawl results persist in SQLite; the export, report, and rebuild
commands read them back without touching the network.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.Version = Version
}

// loadConfig resolves configuration: the explicit path, a discovered
// file, or the built-in defaults.
func loadConfig() (*config.Config, error) {
	path := config.Find(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("config file %s not found", configPath)
		}
		return config.Default(), nil
	}
	return config.Load(path)
}
