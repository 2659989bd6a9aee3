// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/clinic-studio/internal/publish"
	"github.com/jonathan/clinic-studio/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	var lines []string
	var line []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		if len(line) > 0 && len(line)+1+len(w) > width {
			lines = append(lines, string(line))
			line = line[:0]
		}
		if len(line) > 0 {
			line = append(line, ' ')
		}
		line = append(line, w...)
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}

// PrintAudit outputs the risk level of a compliance audit with its issues.
func (p *Printer) PrintAudit(result *types.ComplianceAuditResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Risk: %s %s\n", riskMarker(result.RiskLevel), strings.ToUpper(string(result.RiskLevel))))

	if len(result.Issues) > 0 {
		sb.WriteString("\nIssues:\n")
		for _, issue := range result.Issues {
			for i, line := range wrap(issue, boxWidth-8) {
				if i == 0 {
					sb.WriteString(fmt.Sprintf("  ⚠ %s\n", line))
				} else {
					sb.WriteString(fmt.Sprintf("    %s\n", line))
				}
			}
		}
	}

	if len(result.Suggestions) > 0 {
		sb.WriteString("\nSuggestions:\n")
		for _, s := range result.Suggestions {
			for i, line := range wrap(s, boxWidth-8) {
				if i == 0 {
					sb.WriteString(fmt.Sprintf("  • %s\n", line))
				} else {
					sb.WriteString(fmt.Sprintf("    %s\n", line))
				}
			}
		}
	}

	p.printBox("COMPLIANCE AUDIT", strings.TrimSuffix(sb.String(), "\n"))
}

func riskMarker(level types.RiskLevel) string {
	switch level {
	case types.RiskSafe:
		return "✅"
	case types.RiskWarning:
		return "⚠"
	case types.RiskDanger:
		return "⛔"
	}
	return "?"
}

// PrintPost outputs the headline, caption and hashtags of a generated post.
func (p *Printer) PrintPost(post *types.PostArtifact) {
	if post == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(post.Post.Headline + "\n\n")
	for _, line := range wrap(post.Post.Caption, boxWidth-4) {
		sb.WriteString(line + "\n")
	}
	if len(post.Post.Hashtags) > 0 {
		sb.WriteString("\n")
		for _, line := range wrap(strings.Join(post.Post.Hashtags, " "), boxWidth-4) {
			sb.WriteString(line + "\n")
		}
	}

	image := "none"
	if post.Image != nil {
		image = post.Image.MIMEType
		if post.ImageUserSupplied {
			image += " (user supplied)"
		}
	}
	sb.WriteString(fmt.Sprintf("\nLayout: %s   Image: %s", post.Layout, image))

	p.printBox("DRAFT POST", sb.String())
}

// PrintCitations outputs the top references of an evidence search.
func (p *Printer) PrintCitations(citations []types.Citation) {
	if len(citations) == 0 {
		p.printBox("EVIDENCE", "No references found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d references:\n\n", len(citations)))

	count := min(len(citations), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := citations[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, truncate(c.Title, boxWidth-8)))
		sb.WriteString(fmt.Sprintf("    %s %s  PMID %s\n", c.Source, c.Year, c.PMID))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(citations) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more references", len(citations)-maxItemsToShow))
	}

	p.printBox("EVIDENCE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPublishResult outputs the outcome of a publish attempt.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintPublishResult(res publish.Result) {
	if res.Success {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate("✅ PUBLISHED  post "+res.PostID, boxWidth-4))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	if res.Phase != "" {
		sb.WriteString(fmt.Sprintf("Failed phase: %s\n", res.Phase))
	}
	for _, line := range wrap(res.Error, boxWidth-4) {
		sb.WriteString(line + "\n")
	}
	p.printBox("PUBLISH FAILED", strings.TrimSuffix(sb.String(), "\n"))
}
