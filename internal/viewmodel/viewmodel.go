// Package viewmodel derives the result sub-views from one analysis result.
package viewmodel

import (
	"fmt"
	"strings"

	"resumecvpro/internal/diff"
	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"
)

// SubView selects one projection of a result.
type SubView string

const (
	SubViewSummary    SubView = "summary"
	SubViewDetails    SubView = "details"
	SubViewComparison SubView = "comparison"
	SubViewLinkedIn   SubView = "linkedin"
)

// SubViews lists every sub-view in display order.
var SubViews = []SubView{SubViewSummary, SubViewDetails, SubViewComparison, SubViewLinkedIn}

// ErrSubViewUnavailable is returned when projecting linkedin without an optimization.
var ErrSubViewUnavailable = errors.NewStateError(errors.ErrCodeSubViewUnavailable, "sub-view is not available for this result", nil)

// ParseSubView accepts a sub-view name, case-insensitively. Empty means summary.
func ParseSubView(s string) (SubView, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SubViewSummary, nil
	}
	for _, sv := range SubViews {
		if string(sv) == s {
			return sv, nil
		}
	}
	return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
		fmt.Sprintf("unknown view %q (want summary, details, comparison or linkedin)", s), nil)
}

// View is one projected sub-view.
type View interface {
	Kind() SubView
}

// Bar is one bar of the category chart.
type Bar struct {
	Category string  `json:"category"`
	Score    int     `json:"score"`
	MaxScore int     `json:"maxScore"`
	Percent  float64 `json:"percent"`
}

// SummaryView is the landing projection.
type SummaryView struct {
	Score           int                    `json:"score"`
	Bars            []Bar                  `json:"bars"`
	Preview         string                 `json:"preview"`
	CanShare        bool                   `json:"canShare"`
	DownloadFormats []types.DownloadFormat `json:"downloadFormats"`
	LinkedIn        bool                   `json:"linkedinAvailable"`
}

// DetailsView holds the full breakdown with rationale.
type DetailsView struct {
	Score           int                 `json:"score"`
	Breakdown       []types.ScoreFactor `json:"breakdown"`
	Strengths       []string            `json:"strengths"`
	Suggestions     []string            `json:"suggestions"`
	MissingKeywords []string            `json:"missingKeywords"`
}

// ComparisonView shows removals on the left and additions on the right.
type ComparisonView struct {
	Left    diff.Spans `json:"left"`
	Right   diff.Spans `json:"right"`
	Added   int        `json:"added"`
	Removed int        `json:"removed"`
	Changed bool       `json:"changed"`
}

// LinkedInView holds the rewritten profile fields.
type LinkedInView struct {
	Headline string `json:"headline"`
	About    string `json:"about"`
}

func (SummaryView) Kind() SubView    { return SubViewSummary }
func (DetailsView) Kind() SubView    { return SubViewDetails }
func (ComparisonView) Kind() SubView { return SubViewComparison }
func (LinkedInView) Kind() SubView   { return SubViewLinkedIn }

// Model is the canonical result a session displays.
type Model struct {
	Result   types.AnalysisResult `json:"result"`
	Original string               `json:"original,omitempty"`
}

// Available reports whether sv can be entered for this result.
func (m Model) Available(sv SubView) bool {
	switch sv {
	case SubViewSummary, SubViewDetails, SubViewComparison:
		return true
	case SubViewLinkedIn:
		return m.Result.LinkedInOptimization != nil
	default:
		return false
	}
}

// AvailableSubViews lists the sub-views that can be entered.
func (m Model) AvailableSubViews() []SubView {
	out := make([]SubView, 0, len(SubViews))
	for _, sv := range SubViews {
		if m.Available(sv) {
			out = append(out, sv)
		}
	}
	return out
}

// Project derives the requested sub-view.
func (m Model) Project(sv SubView) (View, error) {
	if !m.Available(sv) {
		if sv == SubViewLinkedIn {
			return nil, ErrSubViewUnavailable
		}
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf("unknown view %q", sv), nil)
	}

	r := m.Result
	switch sv {
	case SubViewDetails:
		return DetailsView{
			Score:           r.Score,
			Breakdown:       r.ScoreBreakdown,
			Strengths:       r.Strengths,
			Suggestions:     r.Suggestions,
			MissingKeywords: r.MissingKeywords,
		}, nil
	case SubViewComparison:
		spans := diff.Words(m.Original, r.OptimizedContent)
		return ComparisonView{
			Left:    spans.RemovalsOnly(),
			Right:   spans.AdditionsOnly(),
			Added:   spans.Count(diff.Added),
			Removed: spans.Count(diff.Removed),
			Changed: spans.Changed(),
		}, nil
	case SubViewLinkedIn:
		return LinkedInView{
			Headline: r.LinkedInOptimization.Headline,
			About:    r.LinkedInOptimization.About,
		}, nil
	default:
		bars := make([]Bar, 0, len(r.ScoreBreakdown))
		for _, f := range r.ScoreBreakdown {
			bars = append(bars, Bar{Category: f.Category, Score: f.Score, MaxScore: f.MaxScore, Percent: f.Percent()})
		}
		return SummaryView{
			Score:           r.Score,
			Bars:            bars,
			Preview:         r.OptimizedContent,
			CanShare:        true,
			DownloadFormats: []types.DownloadFormat{types.FormatPDF, types.FormatDOCX},
			LinkedIn:        r.LinkedInOptimization != nil,
		}, nil
	}
}
