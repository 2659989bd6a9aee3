package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/clinic-studio/internal/observability"
	"github.com/jonathan/clinic-studio/internal/types"
	"github.com/jonathan/clinic-studio/internal/validation"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a caption against advertising rules",
	Long: `Classifies a text as safe, warning or danger under the health advertising rules and
lists the issues found with suggested rewrites.

With --offline the text is only checked against the built-in forbidden phrase list
and no API key is needed.`,
	RunE: runAudit,
}

var (
	auditText    string
	auditInput   string
	auditPretty  bool
	auditOffline bool
)

func init() {
	auditCmd.Flags().StringVarP(&auditText, "text", "t", "", "Text to audit")
	auditCmd.Flags().StringVarP(&auditInput, "in", "i", "", "Path to a text file to audit, or - for stdin")
	auditCmd.Flags().BoolVar(&auditOffline, "offline", false, "Check the forbidden phrase list only")
	auditCmd.Flags().BoolVar(&auditPretty, "pretty", false, "Print a readable summary instead of JSON")
	auditCmd.MarkFlagsOneRequired("text", "in")
	auditCmd.MarkFlagsMutuallyExclusive("text", "in")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	text := auditText
	if auditInput != "" {
		data, err := readInput(auditInput)
		if err != nil {
			return err
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to audit: text is empty")
	}

	var result *types.ComplianceAuditResult
	if auditOffline {
		result = validation.Audit(text, validation.DefaultRules())
	} else {
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

		if result, err = a.generator.Audit(ctx, text); err != nil {
			return fmt.Errorf("audit failed: %w", err)
		}
	}
	if auditPretty {
		observability.NewPrinter(cmd.OutOrStdout()).PrintAudit(result)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), "", result)
}
