// Package main is the entrypoint for the notevault CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/notevault/internal/config"
	"github.com/sgx-labs/notevault/internal/logging"
	mcpserver "github.com/sgx-labs/notevault/internal/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootFlags struct {
	vault   string
	index   string
	mode    string
	timeout int
	retries int
	verbose bool
}

func main() {
	root := &cobra.Command{
		Use:   "notevault",
		Short: "MCP tool server for a markdown note vault",
		Long:  "notevault — a local MCP server exposing create/search/organize tools over a markdown personal knowledge vault with a SQLite full-text index.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		// No subcommand starts the server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	root.AddCommand(serverCmd())
	root.AddCommand(versionCmd())
	root.AddCommand(healthcheckCmd())
	root.AddCommand(reindexCmd())
	root.AddCommand(watchCmd())

	pf := root.PersistentFlags()
	pf.StringVar(&rootFlags.vault, "vault", "", "Vault directory (default $VAULT_PATH or ~/notes)")
	pf.StringVar(&rootFlags.index, "index", "", "Index database path (default {vault}/.notevault/index.db)")
	pf.StringVar(&rootFlags.mode, "mode", "", "Run mode: dev or prod (default prod)")
	pf.IntVar(&rootFlags.timeout, "timeout", 0, "Tool deadline in ms (default 5000)")
	pf.IntVar(&rootFlags.retries, "retries", -1, "Tool retry count (default 2)")
	pf.BoolVar(&rootFlags.verbose, "verbose", false, "Debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves file and environment config, then applies CLI
// flag overrides on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if rootFlags.vault != "" {
		cfg.Vault.Path = rootFlags.vault
		if rootFlags.index == "" {
			cfg.Vault.IndexPath = filepath.Join(rootFlags.vault, ".notevault", "index.db")
		}
	}
	if rootFlags.index != "" {
		cfg.Vault.IndexPath = rootFlags.index
	}
	if rootFlags.mode != "" {
		cfg.Server.Mode = rootFlags.mode
	}
	if rootFlags.timeout > 0 {
		cfg.Server.TimeoutMs = rootFlags.timeout
	}
	if rootFlags.retries >= 0 {
		cfg.Server.Retries = rootFlags.retries
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.SetLevelName(cfg.LogLevel)
	if rootFlags.verbose || cfg.Server.Mode == "dev" {
		logging.SetLevelName("debug")
	}
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the notevault version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("notevault %s\n", Version)
			return nil
		},
	}
}

func serverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mcpserver.Version = Version
	ctx, stop := signalContext()
	defer stop()
	return mcpserver.Serve(ctx, cfg)
}
