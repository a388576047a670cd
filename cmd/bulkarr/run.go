package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/internal/session"
	"github.com/bulkarr/bulkarr/internal/sweep"
	"github.com/bulkarr/bulkarr/pkg/magnet"
)

var runCmd = &cobra.Command{
	Use:   "run [refs-file | ref ...]",
	Short: "Process a batch of torrent references through the catalog",
	Long: `Reads magnet links and .torrent URLs (one per line, optionally followed
by " | label") and runs each through catalog analyze and import.
References can also be given directly as arguments.

Progress is checkpointed to the session database, so an interrupted run
can be continued with --resume.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("resume", "", "Resume a stored session by id")
	runCmd.Flags().String("name", "", "Session name (default: refs file name)")
	runCmd.Flags().Bool("analyze-only", false, "Resolve matches but do not import")
	runCmd.Flags().Bool("import", false, "Import pending items even when auto-import is off in config")
	runCmd.Flags().Duration("delay", 0, "Pause between items (overrides config)")
	runCmd.Flags().String("meta-id", "", "Submit every item under this metadata id")
}

func runRun(cmd *cobra.Command, args []string) error {
	resumeID, _ := cmd.Flags().GetString("resume")
	name, _ := cmd.Flags().GetString("name")
	analyzeOnly, _ := cmd.Flags().GetBool("analyze-only")
	forceImport, _ := cmd.Flags().GetBool("import")
	delay, _ := cmd.Flags().GetDuration("delay")
	metaID, _ := cmd.Flags().GetString("meta-id")

	if resumeID == "" && len(args) == 0 {
		return fmt.Errorf("either a refs file or --resume is required")
	}

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

	autoImport := (*cfg.Sweep.AutoImport || forceImport) && !analyzeOnly
	store := batch.NewStore()
	var sess *session.Session

	if resumeID != "" {
		sess, err = sessions.Load(resumeID)
		if err != nil {
			return err
		}
		store.AddAll(sess.Items)
		// Auto-import comes from config and flags, never from the stored
		// session: an analyze-only pass must not pin the resumed run to
		// analyze-only, or the review flow could never finish.
		sess.AutoImport = autoImport
		fmt.Printf("Resuming session %q (%s), %d of %d items pending\n",
			sess.Name, sess.ID, store.Counts().Pending, store.Len())
	} else {
		var items []batch.Item
		var rejected []batch.RejectedRef

		if magnet.IsMagnet(args[0]) || strings.HasPrefix(args[0], "http") {
			// References given directly on the command line.
			items, rejected = batch.ParseRefs(args)
			if name == "" {
				name = "cli"
			}
		} else {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open refs file: %w", err)
			}
			items, rejected, err = batch.ReadRefs(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("read refs file: %w", err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
		}
		for _, r := range rejected {
			logger.Warn("skipping line", "line", r.Line, "error", r.Err)
		}
		if len(items) == 0 {
			return fmt.Errorf("no usable references given")
		}
		store.AddAll(items)

		sess = session.New(name, nil)
		sess.AutoImport = autoImport
	}

	if delay == 0 {
		delay = time.Duration(cfg.Sweep.ItemDelay)
	}

	// The sweep always starts from the top, even on resume. NextPending
	// skips finished items, and an interrupt may have returned an item
	// before the saved cursor to pending.
	sw := sweep.New(store, newCatalogClient(cfg), sweep.Config{
		AutoImport:     autoImport,
		ItemDelay:      delay,
		MetaIDOverride: metaID,
	}, logger.With("component", "sweep"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return sw.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				c := store.Counts()
				fmt.Fprintf(os.Stderr, "\r%d/%d processed (ok %d, warn %d, err %d)   ",
					c.Completed(), c.Total()-c.Skipped, c.Success, c.Warning, c.Error)
			}
		}
	})

	sweepErr := g.Wait()
	fmt.Fprintln(os.Stderr)
	interrupted := errors.Is(sweepErr, context.Canceled)
	if sweepErr != nil && !interrupted {
		return sweepErr
	}

	// Checkpoint whatever we got to.
	sess.Items = store.Items()
	sess.Cursor = sw.Cursor()
	if err := sessions.Save(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	printItems(store.Items())
	counts := store.Counts()
	printCounts(counts)

	switch {
	case interrupted:
		fmt.Printf("Interrupted. Continue with: bulkarr run --resume %s\n", sess.ID)
	case counts.Pending > 0:
		// analyze-only leaves matched items pending for review
		fmt.Printf("Review pending items, then: bulkarr run --resume %s\n", sess.ID)
	case counts.Warning == 0 && counts.Error == 0:
		if err := sessions.Delete(sess.ID); err != nil {
			logger.Warn("cleanup session", "error", err)
		}
		fmt.Println("Batch complete.")
	default:
		fmt.Printf("Batch finished with failures. Retry with: bulkarr retry %s\n", sess.ID)
	}
	return nil
}
