package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/notevault/internal/index"
)

func healthcheckCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Verify the vault and index are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			report := map[string]any{
				"config": cfg.String(),
				"ok":     true,
			}
			fail := func(key string, err error) {
				report[key] = err.Error()
				report["ok"] = false
			}

			if info, err := os.Stat(cfg.Vault.Path); err != nil || !info.IsDir() {
				fail("vault", fmt.Errorf("vault path %s is not a directory", cfg.Vault.Path))
			}

			db, err := index.Open(cfg.Vault.IndexPath)
			if err != nil {
				fail("index", err)
			} else {
				defer db.Close()
				if err := db.IntegrityCheck(); err != nil {
					fail("integrity", err)
				}
				if stats, err := db.Stats(); err != nil {
					fail("stats", err)
				} else {
					report["index"] = stats
				}
				report["fts"] = db.FTSAvailable()
			}

			if jsonOut {
				data, _ := json.MarshalIndent(report, "", "  ")
				fmt.Println(string(data))
			} else {
				if report["ok"] == true {
					fmt.Printf("OK  %s\n", cfg)
				} else {
					fmt.Printf("UNHEALTHY  %v\n", report)
				}
			}
			if report["ok"] != true {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
