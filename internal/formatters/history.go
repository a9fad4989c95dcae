package formatters

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"resumecvpro/internal/history"
	"resumecvpro/internal/prefs"
)

// historyText renders history as an aligned table.
func historyText(list HistoryList) (string, error) {
	if len(list) == 0 {
		return "No analyses yet.\n", nil
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDATE\tSCORE\tJOB")
	for _, r := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Date, r.Score, r.JobTitle)
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// historyMarkdown renders history as a markdown table.
func historyMarkdown(list HistoryList) (string, error) {
	var b strings.Builder
	b.WriteString("# History\n\n")
	if len(list) == 0 {
		b.WriteString("No analyses yet.\n")
		return b.String(), nil
	}
	b.WriteString("| ID | Date | Score | Job |\n|---|---|---|---|\n")
	for _, r := range list {
		fmt.Fprintf(&b, "| `%s` | %s | %d | %s |\n", r.ID, r.Date, r.Score, strings.ReplaceAll(r.JobTitle, "|", "\\|"))
	}
	return b.String(), nil
}

// recordText renders one history record.
func recordText(r history.Record) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:    %s\nDate:  %s\nJob:   %s\nScore: %d/100\n\n", r.ID, r.Date, r.JobTitle, r.Score)
	for _, factor := range r.Analysis.ScoreBreakdown {
		fmt.Fprintf(&b, "%-16s [%s] %2d/%d\n", factor.Category, scoreBar(factor.Percent()), factor.Score, factor.MaxScore)
	}
	b.WriteString("\n=== OPTIMIZED RESUME ===\n\n")
	b.WriteString(r.Analysis.OptimizedContent)
	b.WriteString("\n")
	return b.String(), nil
}

// recordMarkdown renders one history record as markdown.
func recordMarkdown(r history.Record) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.JobTitle)
	fmt.Fprintf(&b, "**Date:** %s  \n**Score:** %d/100\n\n", r.Date, r.Score)
	for _, factor := range r.Analysis.ScoreBreakdown {
		fmt.Fprintf(&b, "- **%s:** %d/%d\n", factor.Category, factor.Score, factor.MaxScore)
	}
	b.WriteString("\n## Optimized Resume\n\n")
	b.WriteString(r.Analysis.OptimizedContent)
	b.WriteString("\n")
	return b.String(), nil
}

// prefsText renders preferences as key=value lines.
func prefsText(s prefs.Settings) (string, error) {
	return fmt.Sprintf("%s=%s\n%s=%s\n", prefs.KeyTheme, s.Theme, prefs.KeyLanguage, s.Language), nil
}
