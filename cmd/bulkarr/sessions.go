package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bulkarr/bulkarr/internal/batch"
	"github.com/bulkarr/bulkarr/internal/session"
	"github.com/bulkarr/bulkarr/pkg/detect"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored batch sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the items of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsShowCmd.Flags().String("status", "", "Only show items with this status")
	sessionsShowCmd.Flags().String("type", "", "Only show items of this content type")
	sessionsShowCmd.Flags().String("search", "", "Only show items whose title contains this text")
}

// openSessions opens the session database from config.
func openSessions() (*session.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := session.Open(cfg.Sessions.Path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return store, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	sessions, err := openSessions()
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	summaries, err := sessions.List()
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(summaries)
		return nil
	}
	if len(summaries) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}

	rows := make([][]string, len(summaries))
	for i, sm := range summaries {
		rows[i] = []string{
			sm.ID,
			sm.Name,
			fmt.Sprintf("%d/%d", sm.Completed, sm.Total),
			sm.UpdatedAt.Format("2006-01-02 15:04"),
		}
	}
	fmt.Println(renderTable(
		[]string{"ID", "NAME", "DONE", "UPDATED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	contentType, _ := cmd.Flags().GetString("type")
	search, _ := cmd.Flags().GetString("search")

	sessions, err := openSessions()
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	sess, err := sessions.Load(args[0])
	if err != nil {
		return err
	}

	store := batch.NewStore()
	store.AddAll(sess.Items)

	items := store.View(batch.Filter{
		Status:      batch.Status(status),
		ContentType: detect.ContentType(contentType),
		Search:      search,
	})
	printItems(items)
	if status == "" && contentType == "" && search == "" {
		printCounts(store.Counts())
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	sessions, err := openSessions()
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	if err := sessions.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}
