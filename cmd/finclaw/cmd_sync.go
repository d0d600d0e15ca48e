package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/finclaw/internal/ingest"
)

func init() {
	rootCmd.AddCommand(syncCmd, backfillCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync provider data for all advisors once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		ctx := context.Background()
		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.close()

		owners, err := d.owners()
		if err != nil {
			return err
		}

		syncer := ingest.NewSyncer(d.store, d.sourcesFor, nil)
		for _, owner := range owners {
			if err := syncer.SyncOwner(ctx, owner); err != nil {
				fmt.Printf("sync %s: %v\n", owner, err)
				continue
			}
			fmt.Printf("synced %s\n", owner)
		}
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed synced records that are missing embeddings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		ctx := context.Background()
		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.close()

		n, err := d.backfiller.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Embedded %d records.\n", n)
		return nil
	},
}
