package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/clinic-studio/internal/rendering"
)

var exportCmd = &cobra.Command{
	Use:   "export <history-id>",
	Short: "Render a history entry to HTML or PNG",
	Long: `Renders an infographic or clinical document from history as a standalone HTML page,
or as a PNG screenshot taken with headless Chrome (Chrome/Chromium must be installed).`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportFormat string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "html", "Output format: html or png")
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Path to output file (required)")

	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "html" && exportFormat != "png" {
		return fmt.Errorf("unsupported format %q (use html or png)", exportFormat)
	}
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
	page, err := rendering.RenderHTML(entry.Artifact, a.studio.Persona())
	if err != nil {
		return err
	}

	out := []byte(page)
	if exportFormat == "png" {
		if out, err = rendering.Screenshot(ctx, page, rendering.DefaultScreenshotOptions()); err != nil {
			return err
		}
	}
	if err := os.WriteFile(exportOutput, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", entry.Kind, exportOutput)
	return nil
}
