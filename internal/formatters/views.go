package formatters

import (
	"fmt"
	"strings"

	"resumecvpro/internal/diff"
	"resumecvpro/internal/viewmodel"
)

// summaryText renders the summary sub-view for a terminal.
func summaryText(v viewmodel.SummaryView) (string, error) {
	var output strings.Builder
	output.WriteString("=== ATS SCORE ===\n")
	fmt.Fprintf(&output, "Score: %d/100\n\n", v.Score)
	for _, bar := range v.Bars {
		fmt.Fprintf(&output, "%-16s [%s] %2d/%d\n", bar.Category, scoreBar(bar.Percent), bar.Score, bar.MaxScore)
	}
	output.WriteString("\n=== OPTIMIZED RESUME ===\n\n")
	output.WriteString(v.Preview)
	output.WriteString("\n")
	if v.LinkedIn {
		output.WriteString("\nLinkedIn optimization available (--view linkedin)\n")
	}
	return output.String(), nil
}

// summaryMarkdown renders the summary sub-view as markdown.
func summaryMarkdown(v viewmodel.SummaryView) (string, error) {
	var output strings.Builder
	output.WriteString("# ATS Score\n\n")
	fmt.Fprintf(&output, "**Score:** %d/100\n\n", v.Score)
	output.WriteString("| Category | Score | % |\n|---|---|---|\n")
	for _, bar := range v.Bars {
		fmt.Fprintf(&output, "| %s | %d/%d | %.0f%% |\n", bar.Category, bar.Score, bar.MaxScore, bar.Percent)
	}
	output.WriteString("\n## Optimized Resume\n\n")
	output.WriteString(v.Preview)
	output.WriteString("\n")
	return output.String(), nil
}

// detailsText renders the details sub-view for a terminal.
func detailsText(v viewmodel.DetailsView) (string, error) {
	var output strings.Builder
	fmt.Fprintf(&output, "=== SCORE BREAKDOWN (%d/100) ===\n\n", v.Score)
	for i, factor := range v.Breakdown {
		fmt.Fprintf(&output, "%d. %s: %d/%d\n", i+1, factor.Category, factor.Score, factor.MaxScore)
		output.WriteString("   " + factor.Details + "\n\n")
	}
	output.WriteString("=== STRENGTHS ===\n")
	writeList(&output, v.Strengths, "- ")
	output.WriteString("\n=== SUGGESTIONS ===\n")
	writeList(&output, v.Suggestions, "- ")
	output.WriteString("\n=== MISSING KEYWORDS ===\n")
	writeList(&output, v.MissingKeywords, "- ")
	return output.String(), nil
}

// detailsMarkdown renders the details sub-view as markdown.
func detailsMarkdown(v viewmodel.DetailsView) (string, error) {
	var output strings.Builder
	output.WriteString("# Score Breakdown\n\n")
	fmt.Fprintf(&output, "**Score:** %d/100\n\n", v.Score)
	for _, factor := range v.Breakdown {
		fmt.Fprintf(&output, "### %s (%d/%d)\n\n%s\n\n", factor.Category, factor.Score, factor.MaxScore, factor.Details)
	}
	output.WriteString("## Strengths\n\n")
	writeList(&output, v.Strengths, "- ")
	output.WriteString("\n## Suggestions\n\n")
	writeList(&output, v.Suggestions, "- ")
	output.WriteString("\n## Missing Keywords\n\n")
	writeList(&output, v.MissingKeywords, "- ")
	return output.String(), nil
}

// comparisonText renders both panes with [-removed-] and {+added+} markers.
func comparisonText(v viewmodel.ComparisonView) (string, error) {
	if !v.Changed {
		return "No changes.\n", nil
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== ORIGINAL (%d removals) ===\n\n", v.Removed)
	output.WriteString(renderSpans(v.Left, "[-", "-]", "{+", "+}"))
	fmt.Fprintf(&output, "\n\n=== OPTIMIZED (%d additions) ===\n\n", v.Added)
	output.WriteString(renderSpans(v.Right, "[-", "-]", "{+", "+}"))
	output.WriteString("\n")
	return output.String(), nil
}

// comparisonMarkdown renders removals struck through and additions in bold.
func comparisonMarkdown(v viewmodel.ComparisonView) (string, error) {
	var output strings.Builder
	output.WriteString("# Comparison\n\n")
	if !v.Changed {
		output.WriteString("No changes.\n")
		return output.String(), nil
	}
	output.WriteString("## Original\n\n")
	output.WriteString(renderSpans(v.Left, "~~", "~~", "**", "**"))
	output.WriteString("\n\n## Optimized\n\n")
	output.WriteString(renderSpans(v.Right, "~~", "~~", "**", "**"))
	output.WriteString("\n")
	return output.String(), nil
}

// linkedInText renders the LinkedIn sub-view for a terminal.
func linkedInText(v viewmodel.LinkedInView) (string, error) {
	return "=== LINKEDIN HEADLINE ===\n" + v.Headline + "\n\n=== LINKEDIN ABOUT ===\n" + v.About + "\n", nil
}

// linkedInMarkdown renders the LinkedIn sub-view as markdown.
func linkedInMarkdown(v viewmodel.LinkedInView) (string, error) {
	return "# LinkedIn\n\n## Headline\n\n" + v.Headline + "\n\n## About\n\n" + v.About + "\n", nil
}

// spansText renders a raw diff inline.
func spansText(s diff.Spans) (string, error) {
	return renderSpans(s, "[-", "-]", "{+", "+}") + "\n", nil
}

// spansMarkdown renders a raw diff inline as markdown.
func spansMarkdown(s diff.Spans) (string, error) {
	return renderSpans(s, "~~", "~~", "**", "**") + "\n", nil
}

// renderSpans wraps changed spans in markers. Surrounding whitespace stays
// outside the markers so markdown emphasis still parses.
func renderSpans(spans diff.Spans, delOpen, delClose, addOpen, addClose string) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case diff.Removed:
			b.WriteString(wrap(s.Text, delOpen, delClose))
		case diff.Added:
			b.WriteString(wrap(s.Text, addOpen, addClose))
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func wrap(text, openMark, closeMark string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	start := strings.Index(text, trimmed)
	return text[:start] + openMark + trimmed + closeMark + text[start+len(trimmed):]
}
