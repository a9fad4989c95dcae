package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"
)

// AnalysisFailedMessage is the user-facing text of every analysis failure.
const AnalysisFailedMessage = "technical analysis failed, please resubmit"

// rawFactor mirrors a breakdown entry as sent by the oracle. Pointers let us
// tell a missing field apart from a zero value.
type rawFactor struct {
	Category *string  `json:"category"`
	Score    *float64 `json:"score"`
	MaxScore *float64 `json:"maxScore"`
	Details  *string  `json:"details"`
}

type rawLinkedIn struct {
	Headline string `json:"headline"`
	About    string `json:"about"`
}

type rawResult struct {
	Score                *float64     `json:"score"`
	ScoreBreakdown       *[]rawFactor `json:"scoreBreakdown"`
	Suggestions          *[]string    `json:"suggestions"`
	MissingKeywords      *[]string    `json:"missingKeywords"`
	Strengths            *[]string    `json:"strengths"`
	OptimizedContent     *string      `json:"optimizedContent"`
	LinkedInOptimization *rawLinkedIn `json:"linkedinOptimization"`
}

// NewAnalysisFailure wraps cause into the single analysis error contract.
func NewAnalysisFailure(cause error) *errors.AppError {
	return errors.NewAnalysisError(errors.ErrCodeAnalysisFailed, AnalysisFailedMessage, cause)
}

// Normalize validates an oracle payload and recomputes the score locally.
// The oracle's own score is never trusted.
func Normalize(raw []byte) (*types.AnalysisResult, error) {
	var in rawResult
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, NewAnalysisFailure(fmt.Errorf("decode oracle response: %w", err))
	}

	if missing := in.missingFields(); len(missing) > 0 {
		return nil, NewAnalysisFailure(fmt.Errorf("oracle response missing fields: %s", strings.Join(missing, ", ")))
	}

	entries := *in.ScoreBreakdown
	if len(entries) != types.BreakdownSize {
		return nil, NewAnalysisFailure(fmt.Errorf("score breakdown has %d entries, want %d", len(entries), types.BreakdownSize))
	}

	out := &types.AnalysisResult{
		ScoreBreakdown:   make([]types.ScoreFactor, 0, types.BreakdownSize),
		Suggestions:      cloneStrings(*in.Suggestions),
		MissingKeywords:  cloneStrings(*in.MissingKeywords),
		Strengths:        cloneStrings(*in.Strengths),
		OptimizedContent: *in.OptimizedContent,
	}

	sum := 0.0
	for i, e := range entries {
		if e.Category == nil || e.Score == nil || e.Details == nil {
			return nil, NewAnalysisFailure(fmt.Errorf("score breakdown entry %d is incomplete", i))
		}
		if math.IsNaN(*e.Score) || math.IsInf(*e.Score, 0) {
			return nil, NewAnalysisFailure(fmt.Errorf("score breakdown entry %d has a non-finite score", i))
		}
		raw := math.Min(math.Max(*e.Score, 0), types.MaxFactorScore)
		sum += raw
		score := clamp(int(math.Round(raw)), 0, types.MaxFactorScore)
		out.ScoreBreakdown = append(out.ScoreBreakdown, types.ScoreFactor{
			Category: *e.Category,
			Score:    score,
			MaxScore: types.MaxFactorScore,
			Details:  *e.Details,
		})
	}
	// entries are rounded for display only; the total rounds the exact sum
	out.Score = clamp(int(math.Round(sum)), 0, types.MaxTotalScore)

	if li := in.LinkedInOptimization; li != nil && (li.Headline != "" || li.About != "") {
		out.LinkedInOptimization = &types.LinkedInOptimization{Headline: li.Headline, About: li.About}
	}

	return out, nil
}

func (r rawResult) missingFields() []string {
	var missing []string
	if r.ScoreBreakdown == nil {
		missing = append(missing, "scoreBreakdown")
	}
	if r.Suggestions == nil {
		missing = append(missing, "suggestions")
	}
	if r.MissingKeywords == nil {
		missing = append(missing, "missingKeywords")
	}
	if r.Strengths == nil {
		missing = append(missing, "strengths")
	}
	if r.OptimizedContent == nil {
		missing = append(missing, "optimizedContent")
	}
	return missing
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
