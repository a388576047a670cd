package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/internal/session"
	"github.com/bulkarr/bulkarr/internal/sweep"
)

var retryCmd = &cobra.Command{
	Use:   "retry <session-id> [item-id ...]",
	Short: "Re-run failed items of a stored session",
	Long: `Retries the given items, or every errored item when none are named.
Items in warning states are only retried with --warnings; those usually
need annotation (see 'bulkarr annotate') rather than a plain retry.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)
	retryCmd.Flags().Bool("warnings", false, "Also retry items in warning state")
}

func runRetry(cmd *cobra.Command, args []string) error {
	includeWarnings, _ := cmd.Flags().GetBool("warnings")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)

	sessions, err := session.Open(cfg.Sessions.Path)
	if err != nil {
		return fmt.Errorf("open session db: %w", err)
	}
	defer func() { _ = sessions.Close() }()

	sess, err := sessions.Load(args[0])
	if err != nil {
		return err
	}
	store := batch.NewStore()
	store.AddAll(sess.Items)

	var ids []int
	if len(args) > 1 {
		for _, raw := range args[1:] {
			id, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("bad item id %q", raw)
			}
			ids = append(ids, id)
		}
	} else {
		for _, it := range store.Items() {
			if it.Status == batch.StatusError || (includeWarnings && it.Status == batch.StatusWarning) {
				ids = append(ids, it.ID)
			}
		}
	}
	if len(ids) == 0 {
		fmt.Println("Nothing to retry.")
		return nil
	}

	sw := sweep.New(store, newCatalogClient(cfg), sweep.Config{
		AutoImport: sess.AutoImport,
		ItemDelay:  time.Duration(cfg.Sweep.ItemDelay),
	}, logger.With("component", "sweep"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := sw.Retry(ctx, id); err != nil {
			logger.Warn("retry skipped", "item_id", id, "error", err)
		}
	}

	sess.Items = store.Items()
	if err := sessions.Save(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	printItems(store.Items())
	printCounts(store.Counts())
	return nil
}
