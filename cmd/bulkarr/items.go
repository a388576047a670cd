package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/internal/session"
	"github.com/bulkarr/bulkarr/pkg/detect"
)

var skipCmd = &cobra.Command{
	Use:   "skip <session-id> [item-id ...]",
	Short: "Exclude items from processing (or restore them with --undo)",
	Long: `Marks pending items as skipped so the next run passes over them.
With item ids, toggles exactly those items; without, toggles every item
matching the filter flags.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSkip,
}

var setTypeCmd = &cobra.Command{
	Use:   "set-type <session-id> <item-id> <movie|series|sports>",
	Short: "Override an item's detected content type",
	Args:  cobra.ExactArgs(3),
	RunE:  runSetType,
}

func init() {
	rootCmd.AddCommand(skipCmd)
	skipCmd.Flags().Bool("undo", false, "Restore skipped items to pending")
	skipCmd.Flags().String("status", "", "Filter: status")
	skipCmd.Flags().String("type", "", "Filter: content type")
	skipCmd.Flags().String("search", "", "Filter: title substring")

	rootCmd.AddCommand(setTypeCmd)
	setTypeCmd.Flags().String("sport", "", "Sports category (required for sports)")
}

// withSession loads a session into a live store, applies fn, and saves the
// result back.
func withSession(id string, fn func(*session.Session, *batch.Store) error) error {
	sessions, err := openSessions()
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	sess, err := sessions.Load(id)
	if err != nil {
		return err
	}
	store := batch.NewStore()
	store.AddAll(sess.Items)

	if err := fn(sess, store); err != nil {
		return err
	}

	sess.Items = store.Items()
	return sessions.Save(sess)
}

func runSkip(cmd *cobra.Command, args []string) error {
	undo, _ := cmd.Flags().GetBool("undo")
	status, _ := cmd.Flags().GetString("status")
	contentType, _ := cmd.Flags().GetString("type")
	search, _ := cmd.Flags().GetString("search")

	return withSession(args[0], func(sess *session.Session, store *batch.Store) error {
		if len(args) > 1 {
			for _, raw := range args[1:] {
				id, err := strconv.Atoi(raw)
				if err != nil {
					return fmt.Errorf("bad item id %q", raw)
				}
				if err := store.SetSkipped(id, !undo); err != nil {
					return err
				}
			}
			fmt.Printf("Updated %d items\n", len(args)-1)
			return nil
		}

		changed := store.MarkVisible(batch.Filter{
			Status:      batch.Status(status),
			ContentType: detect.ContentType(contentType),
			Search:      search,
		}, !undo)
		fmt.Printf("Updated %d items\n", changed)
		return nil
	})
}

func runSetType(cmd *cobra.Command, args []string) error {
	sport, _ := cmd.Flags().GetString("sport")

	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad item id %q", args[1])
	}
	contentType := detect.ContentType(args[2])
	if !contentType.Valid() {
		return fmt.Errorf("unknown content type %q", args[2])
	}

	return withSession(args[0], func(sess *session.Session, store *batch.Store) error {
		if err := store.SetContentType(id, contentType, detect.SportsCategory(sport)); err != nil {
			return err
		}
		it, err := store.Get(id)
		if err != nil {
			return err
		}
		label := string(it.ContentType)
		if it.SportsCategory != "" {
			label += "/" + string(it.SportsCategory)
		}
		fmt.Printf("Item %d is now %s\n", id, label)
		return nil
	})
}
