package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <yyyy-MM-dd>",
	Short: "Show the timeline of one day",
	Long: `Show every photo taken on the given day in capture order, with its place
label and detected objects.

Example:
  photo-story timeline 2024-05-01`,
	Args: cobra.ExactArgs(1),
	RunE: runTimeline,
}

func init() {
	rootCmd.AddCommand(timelineCmd)
	timelineCmd.Flags().Bool("json", false, "Output as JSON")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.timeline(nil).BuildTimeline(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to build timeline: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(items)
	}
	if len(items) == 0 {
		fmt.Printf("No photos taken on %s\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tLOCATION\tPATH\tDESCRIPTION")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			item.Timestamp.Format("15:04:05"), item.LocationLabel, item.FilePath, item.Description)
	}
	w.Flush()
	return nil
}
