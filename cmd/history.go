package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear recent text searches",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent searches, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all recent searches",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyClearCmd)
	historyListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.ledger().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load search history: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("No recent searches")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%s  %s\n", item.Timestamp.Local().Format("2006-01-02 15:04"), item.Query)
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ledger().Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	fmt.Println("Search history cleared")
	return nil
}
