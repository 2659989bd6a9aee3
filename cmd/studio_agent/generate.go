package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/clinic-studio/internal/observability"
	"github.com/jonathan/clinic-studio/internal/pipeline"
	"github.com/jonathan/clinic-studio/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one artifact from a JSON request",
	Long: `Generate a post, article, infographic or clinical support document.

The input file holds the kind-specific request fields, for example
{"topic": "fascite plantar", "tone": "educational", "layout": "feed"} for --kind post.
Posts become the current draft; every kind is appended to history.`,
	RunE: runGenerate,
}

var (
	generateKind   string
	generateInput  string
	generateOutput string
	generateStream bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateKind, "kind", "k", "", "Artifact kind, e.g. post, article, infographic (required)")
	generateCmd.Flags().StringVarP(&generateInput, "in", "i", "", "Path to the request JSON file, or - for stdin (required)")
	generateCmd.Flags().StringVarP(&generateOutput, "out", "o", "", "Path to output artifact JSON file (default stdout)")
	generateCmd.Flags().BoolVar(&generateStream, "stream", false, "Print progress events and a draft summary to stderr")

	if err := generateCmd.MarkFlagRequired("kind"); err != nil {
		panic(fmt.Sprintf("failed to mark kind flag as required: %v", err))
	}
	if err := generateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(generateCmd)
}

// generateOutputDoc is the JSON written by the generate command.
type generateOutputDoc struct {
	Kind     types.Kind     `json:"kind"`
	Artifact types.Artifact `json:"artifact"`
}

// parseRequest builds a validated request of the given kind from JSON.
func parseRequest(kindName string, data []byte) (types.GenerationRequest, error) {
	kind, err := types.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	req, err := types.NewRequest(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("failed to parse %s request: %w", kind, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	data, err := readInput(generateInput)
	if err != nil {
		return err
	}
	req, err := parseRequest(generateKind, data)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{Backend: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	opts := pipeline.RunOptions{Request: req}
	if generateStream {
		opts.OnProgress = printProgress(cmd)
	}
	artifact, err := a.studio.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if post, ok := artifact.(*types.PostArtifact); ok && generateStream {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintPost(post)
	}
	return writeJSON(cmd.OutOrStdout(), generateOutput, generateOutputDoc{Kind: req.Kind(), Artifact: artifact})
}

// printProgress writes one line per progress event to stderr.
func printProgress(cmd *cobra.Command) pipeline.ProgressCallback {
	return func(event pipeline.ProgressEvent) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", event.Step, event.Message)
	}
}
