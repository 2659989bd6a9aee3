package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/clinic-studio/internal/feed"
	"github.com/jonathan/clinic-studio/internal/observability"
)

var citationsCmd = &cobra.Command{
	Use:   "citations <term>",
	Short: "Search PubMed for supporting references",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCitations,
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "List posts from the practice blog",
	RunE:  runFeed,
}

var citationsPretty bool

var (
	feedSearch  string
	feedPage    int
	feedPerPage int
)

func init() {
	citationsCmd.Flags().BoolVar(&citationsPretty, "pretty", false, "Print a readable summary instead of JSON")
	feedCmd.Flags().StringVarP(&feedSearch, "search", "s", "", "Search term")
	feedCmd.Flags().IntVar(&feedPage, "page", 1, "Page number")
	feedCmd.Flags().IntVar(&feedPerPage, "per-page", 10, fmt.Sprintf("Posts per page (max %d)", feed.MaxPerPage))

	rootCmd.AddCommand(citationsCmd, feedCmd)
}

func runCitations(cmd *cobra.Command, args []string) error {
	term := strings.TrimSpace(strings.Join(args, " "))
	if term == "" {
		return errors.New("search term must not be blank")
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

	refs, err := a.citations.Search(ctx, term)
	if err != nil {
		return fmt.Errorf("citation search failed: %w", err)
	}
	if citationsPretty {
		observability.NewPrinter(cmd.OutOrStdout()).PrintCitations(refs)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), "", refs)
}

func runFeed(cmd *cobra.Command, _ []string) error {
	if feedPage < 1 || feedPerPage < 1 {
		return errors.New("page and per-page must be positive")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.WordPress.BaseURL == "" {
		return errors.New("blog is not configured (set wordpress.base_url)")
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	page, err := a.feed.Posts(ctx, feed.Query{Search: feedSearch, Page: feedPage, PerPage: feedPerPage})
	if err != nil {
		return fmt.Errorf("failed to read blog feed: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), "", page)
}
