package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/notevault/internal/index"
	"github.com/sgx-labs/notevault/internal/note"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func reindexCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the vault",
		Long:  "Scan every markdown note and bring the index in line with the files on disk. Incremental by default: unchanged notes (by content hash) are skipped.",
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
			stats, err := reindexVault(ctx, store, db, force)
			if err != nil {
				return err
			}

			fmt.Printf("Indexed %d notes (%d unchanged, %d removed) in %s\n",
				stats.indexed, stats.unchanged, stats.removed, stats.elapsed.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reindex all notes regardless of content hashes")
	return cmd
}

type reindexStats struct {
	indexed   int
	unchanged int
	removed   int
	elapsed   time.Duration
}

// reindexVault upserts every parseable note and drops index rows whose
// files no longer exist.
func reindexVault(ctx context.Context, store *note.Store, db *index.DB, force bool) (reindexStats, error) {
	start := time.Now()
	var stats reindexStats

	notes, err := store.LoadAll(ctx, note.LoadOptions{SkipInvalid: true})
	if err != nil {
		return stats, err
	}

	hashes := map[string]string{}
	if !force {
		if hashes, err = db.ContentHashes(); err != nil {
			return stats, err
		}
	}

	onDisk := make(map[string]bool, len(notes))
	var batch []*note.Note
	for _, n := range notes {
		uid := n.FrontMatter.ID
		onDisk[uid] = true
		if !force && hashes[uid] == index.ContentHash(n.Body) {
			stats.unchanged++
			continue
		}
		batch = append(batch, n)
	}
	if len(batch) > 0 {
		if err := db.BatchIndex(batch); err != nil {
			return stats, err
		}
	}
	stats.indexed = len(batch)

	rows, err := db.AllRows()
	if err != nil {
		return stats, err
	}
	for _, r := range rows {
		if !onDisk[r.UID] {
			if err := db.RemoveNote(r.UID); err != nil {
				return stats, err
			}
			stats.removed++
		}
	}

	stats.elapsed = time.Since(start)
	return stats, nil
}
