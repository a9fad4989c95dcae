package ai

import (
	"encoding/json"
	"testing"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oraclePayload(t *testing.T, mutate func(m map[string]any)) []byte {
	t.Helper()
	m := map[string]any{
		"score":            99,
		"suggestions":      []string{"Quantifique resultados"},
		"missingKeywords":  []string{"Kubernetes"},
		"strengths":        []string{"Go"},
		"optimizedContent": "# Experienced backend engineer",
		"scoreBreakdown": []map[string]any{
			{"category": "Keywords", "score": 10, "maxScore": 25, "details": "a"},
			{"category": "Experience", "score": 20, "maxScore": 25, "details": "b"},
			{"category": "Education", "score": 15, "maxScore": 25, "details": "c"},
			{"category": "Formatting", "score": 25, "maxScore": 25, "details": "d"},
		},
		"linkedinOptimization": map[string]any{"headline": "Go Engineer", "about": "Builds things"},
	}
	if mutate != nil {
		mutate(m)
	}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return raw
}

func breakdown(scores ...any) []map[string]any {
	out := make([]map[string]any, 0, len(scores))
	for i, s := range scores {
		out = append(out, map[string]any{"category": BreakdownCategories[i%4], "score": s, "maxScore": 25, "details": "x"})
	}
	return out
}

func TestNormalizeRecomputesScore(t *testing.T) {
	result, err := Normalize(oraclePayload(t, nil))
	require.NoError(t, err)

	assert.Equal(t, 70, result.Score, "oracle score of 99 must be ignored")
	require.Len(t, result.ScoreBreakdown, 4)
	assert.Equal(t, types.ScoreFactor{Category: "Keywords", Score: 10, MaxScore: 25, Details: "a"}, result.ScoreBreakdown[0])
	assert.Equal(t, []string{"Kubernetes"}, result.MissingKeywords)
	require.NotNil(t, result.LinkedInOptimization)
	assert.Equal(t, "Go Engineer", result.LinkedInOptimization.Headline)
}

func TestNormalizeEntryScores(t *testing.T) {
	tests := []struct {
		name      string
		scores    []any
		wantScore int
		wantEntry []int
	}{
		{name: "all zero", scores: []any{0, 0, 0, 0}, wantScore: 0, wantEntry: []int{0, 0, 0, 0}},
		{name: "all max", scores: []any{25, 25, 25, 25}, wantScore: 100, wantEntry: []int{25, 25, 25, 25}},
		{name: "fractions round to nearest", scores: []any{10.4, 10.5, 0.49, 24.6}, wantScore: 46, wantEntry: []int{10, 11, 0, 25}},
		{name: "over ceiling is clamped per entry", scores: []any{40, 25, 25, 25}, wantScore: 100, wantEntry: []int{25, 25, 25, 25}},
		{name: "negative is clamped to zero", scores: []any{-5, 10, 10, 10}, wantScore: 30, wantEntry: []int{0, 10, 10, 10}},
		{name: "total rounds the exact sum", scores: []any{12.5, 12.5, 0, 0}, wantScore: 25, wantEntry: []int{13, 13, 0, 0}},
		{name: "halves below the ceiling", scores: []any{24.5, 24.5, 24.5, 24.5}, wantScore: 98, wantEntry: []int{25, 25, 25, 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := oraclePayload(t, func(m map[string]any) { m["scoreBreakdown"] = breakdown(tt.scores...) })
			result, err := Normalize(raw)
			require.NoError(t, err)

			assert.Equal(t, tt.wantScore, result.Score)
			for i, want := range tt.wantEntry {
				assert.Equal(t, want, result.ScoreBreakdown[i].Score)
				assert.Equal(t, types.MaxFactorScore, result.ScoreBreakdown[i].MaxScore)
			}
		})
	}
}

func TestNormalizeForcesMaxScore(t *testing.T) {
	raw := oraclePayload(t, func(m map[string]any) {
		entries := breakdown(5, 5, 5, 5)
		entries[2]["maxScore"] = 30
		delete(entries[3], "maxScore")
		m["scoreBreakdown"] = entries
	})
	result, err := Normalize(raw)
	require.NoError(t, err)
	for _, f := range result.ScoreBreakdown {
		assert.Equal(t, 25, f.MaxScore)
	}
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "not json", raw: []byte("Desculpe, não consegui analisar.")},
		{name: "empty object", raw: []byte("{}")},
		{name: "three entries", raw: oraclePayload(t, func(m map[string]any) { m["scoreBreakdown"] = breakdown(10, 20, 15) })},
		{name: "five entries", raw: oraclePayload(t, func(m map[string]any) { m["scoreBreakdown"] = breakdown(1, 2, 3, 4, 5) })},
		{name: "missing suggestions", raw: oraclePayload(t, func(m map[string]any) { delete(m, "suggestions") })},
		{name: "missing optimized content", raw: oraclePayload(t, func(m map[string]any) { delete(m, "optimizedContent") })},
		{name: "null breakdown", raw: oraclePayload(t, func(m map[string]any) { m["scoreBreakdown"] = nil })},
		{name: "entry without score", raw: oraclePayload(t, func(m map[string]any) {
			entries := breakdown(1, 2, 3, 4)
			delete(entries[1], "score")
			m["scoreBreakdown"] = entries
		})},
		{name: "score is a string", raw: oraclePayload(t, func(m map[string]any) { m["scoreBreakdown"] = breakdown("10", 2, 3, 4) })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(tt.raw)
			assert.Nil(t, result)
			require.Error(t, err)

			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeAnalysis, appErr.Type)
			assert.Equal(t, errors.ErrCodeAnalysisFailed, appErr.Code)
			assert.Equal(t, AnalysisFailedMessage, appErr.Message)
		})
	}
}

func TestNormalizeLinkedInOptional(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		result, err := Normalize(oraclePayload(t, func(m map[string]any) { delete(m, "linkedinOptimization") }))
		require.NoError(t, err)
		assert.Nil(t, result.LinkedInOptimization)
	})

	t.Run("empty object", func(t *testing.T) {
		result, err := Normalize(oraclePayload(t, func(m map[string]any) { m["linkedinOptimization"] = map[string]any{} }))
		require.NoError(t, err)
		assert.Nil(t, result.LinkedInOptimization)
	})
}

func TestNormalizeKeepsEmptyLists(t *testing.T) {
	result, err := Normalize(oraclePayload(t, func(m map[string]any) { m["missingKeywords"] = []string{} }))
	require.NoError(t, err)
	assert.NotNil(t, result.MissingKeywords)
	assert.Empty(t, result.MissingKeywords)
}
