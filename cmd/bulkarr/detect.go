package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bulkarr/bulkarr/pkg/detect"
	"github.com/bulkarr/bulkarr/pkg/magnet"
)

var detectCmd = &cobra.Command{
	Use:   "detect <text or magnet>",
	Short: "Classify a release name locally (no server needed)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	title := text

	// Magnet links carry the display name we actually classify on.
	if magnet.IsMagnet(text) {
		m, err := magnet.Parse(text)
		if err != nil {
			return err
		}
		title = m.Title()
		text = title + " " + text
	}

	contentType := detect.DetectContentType(text)
	sport := detect.DetectSportsCategory(text)

	if jsonOutput {
		printJSON(map[string]string{
			"content_type":    string(contentType),
			"sports_category": string(sport),
			"clean_title":     detect.CleanTitle(title),
		})
		return nil
	}

	fmt.Printf("Type:   %s\n", contentType)
	if sport != "" {
		fmt.Printf("Sport:  %s\n", sport)
	}
	fmt.Printf("Title:  %s\n", detect.CleanTitle(title))
	return nil
}
