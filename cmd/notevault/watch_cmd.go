package main

import (
	"github.com/spf13/cobra"

	"github.com/sgx-labs/notevault/internal/index"
	"github.com/sgx-labs/notevault/internal/note"
	"github.com/sgx-labs/notevault/internal/watcher"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the vault and keep the index in sync",
		Long:  "Run a catch-up reindex, then watch the vault for external edits and reindex changed notes until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			db, err := index.Open(cfg.Vault.IndexPath)
			if err != nil {
				return err
			}
			defer db.Close()

			store := note.NewStore(cfg.Vault.Path)
			if _, err := reindexVault(ctx, store, db, false); err != nil {
				return err
			}
			return watcher.Watch(ctx, store, db)
		},
	}
}
