package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect generated artifacts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one history entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyLimit int

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries (0 for all)")

	historyCmd.AddCommand(historyListCmd, historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

// historySummary is one line of history list output.
type historySummary struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	if historyLimit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	entries, err := a.studio.History(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	out := make([]historySummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, historySummary{
			ID:        e.ID.String(),
			Kind:      string(e.Kind),
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return writeJSON(cmd.OutOrStdout(), "", out)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid history id %q: %w", args[0], err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	entry, err := a.studio.HistoryEntry(ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), "", entry)
}
