package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/internal/session"
	"github.com/bulkarr/bulkarr/internal/sweep"
	"github.com/bulkarr/bulkarr/pkg/annotate"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <session-id> <item-id>",
	Short: "Annotate a multi-file item and import it",
	Long: `Fetches the item's file list from the catalog, assigns season and
episode numbers, and re-imports with the annotations attached. This is
the follow-up for items the sweep left in warning with "per-file
annotation required".

Files are numbered in natural filename order. --season stamps one season
across the files; --start-episode numbers them sequentially, restarting
at 1 whenever the season changes.`,
	Args: cobra.ExactArgs(2),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().Int("season", 0, "Season number to stamp on the files")
	annotateCmd.Flags().Int("start-episode", 0, "First episode number to assign")
	annotateCmd.Flags().Int("start-index", 0, "Position in sorted order to start from")
	annotateCmd.Flags().IntSlice("exclude", nil, "File indexes to leave out of the import")
	annotateCmd.Flags().Bool("force", false, "Bypass remote title validation")
	annotateCmd.Flags().Bool("dry-run", false, "Show the annotated file list without importing")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	season, _ := cmd.Flags().GetInt("season")
	startEpisode, _ := cmd.Flags().GetInt("start-episode")
	startIndex, _ := cmd.Flags().GetInt("start-index")
	exclude, _ := cmd.Flags().GetIntSlice("exclude")
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	itemID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad item id %q", args[1])
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

	sess, err := sessions.Load(args[0])
	if err != nil {
		return err
	}
	store := batch.NewStore()
	store.AddAll(sess.Items)

	sw := sweep.New(store, newCatalogClient(cfg), sweep.Config{
		AutoImport: true,
	}, logger.With("component", "sweep"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := sw.FetchAnnotations(ctx, itemID)
	if err != nil {
		return err
	}
	files = annotate.SortByFilename(files)

	for i := range files {
		for _, idx := range exclude {
			if files[i].Index == idx {
				files[i].Included = false
			}
		}
	}
	if season > 0 {
		files = annotate.ApplySeasonFrom(files, startIndex, season)
	}
	if startEpisode > 0 {
		files = annotate.ApplyEpisodeNumberingFrom(files, startIndex, startEpisode)
	}

	printAnnotations(files)
	if dryRun {
		return nil
	}

	if err := sw.ImportAnnotated(ctx, itemID, files, force); err != nil {
		return err
	}

	sess.Items = store.Items()
	if err := sessions.Save(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	it, err := store.Get(itemID)
	if err != nil {
		return err
	}
	if it.ErrorMessage != "" {
		fmt.Printf("Item %d: %s (%s)\n", itemID, it.Status, it.ErrorMessage)
	} else {
		fmt.Printf("Item %d: %s\n", itemID, it.Status)
	}
	return nil
}

func printAnnotations(files []annotate.FileAnnotation) {
	rows := make([][]string, len(files))
	for i, f := range files {
		se := func(p *int) string {
			if p == nil {
				return "-"
			}
			return strconv.Itoa(*p)
		}
		included := "yes"
		if !f.Included {
			included = "no"
		}
		rows[i] = []string{
			strconv.Itoa(f.Index),
			f.Filename,
			formatSize(f.Size),
			se(f.Season),
			se(f.Episode),
			included,
		}
	}
	fmt.Println(renderTable(
		[]string{"IDX", "FILE", "SIZE", "S", "E", "INCLUDED"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}

func formatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
