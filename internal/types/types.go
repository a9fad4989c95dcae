package types

// MaxFactorScore is the ceiling of every breakdown category.
const MaxFactorScore = 25

// BreakdownSize is the number of scoring categories the oracle must return.
const BreakdownSize = 4

// MaxTotalScore is the ceiling of the overall ATS score.
const MaxTotalScore = 100

// ScoreFactor represents one of the four scoring categories
type ScoreFactor struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Details  string `json:"details"`
}

// Percent returns the factor as a share of its ceiling, in [0,100].
func (f ScoreFactor) Percent() float64 {
	if f.MaxScore <= 0 {
		return 0
	}
	return float64(f.Score) / float64(f.MaxScore) * 100
}

// LinkedInOptimization holds the rewritten LinkedIn profile fields
type LinkedInOptimization struct {
	Headline string `json:"headline"`
	About    string `json:"about"`
}

// AnalysisResult is the normalized outcome of one analysis.
// Score always equals the sum of ScoreBreakdown, clamped to [0,100].
type AnalysisResult struct {
	Score                int                   `json:"score"`
	ScoreBreakdown       []ScoreFactor         `json:"scoreBreakdown"`
	Suggestions          []string              `json:"suggestions"`
	MissingKeywords      []string              `json:"missingKeywords"`
	Strengths            []string              `json:"strengths"`
	OptimizedContent     string                `json:"optimizedContent"`
	LinkedInOptimization *LinkedInOptimization `json:"linkedinOptimization,omitempty"`
}

// AnalysisRequest represents the input for one analysis call
type AnalysisRequest struct {
	ResumeText     string       `json:"resumeText"`
	JobDescription string       `json:"jobDescription"`
	JobURL         string       `json:"jobUrl,omitempty"`
	TargetLanguage LanguageCode `json:"targetLanguage,omitempty"`
}

// ResumeDocument is the raw text of a submitted résumé
type ResumeDocument struct {
	Content string `json:"content"`
}

// JobTarget is the job the résumé is being optimized for
type JobTarget struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// Empty reports whether neither a description nor a URL was given.
func (j JobTarget) Empty() bool {
	return isBlank(j.Description) && isBlank(j.URL)
}

// TokenUsage represents AI token usage statistics
type TokenUsage struct {
	PromptTokens     int32 `json:"promptTokens"`
	CompletionTokens int32 `json:"completionTokens"`
	TotalTokens      int32 `json:"totalTokens"`
}

// ModelInfo describes the model behind the analyzer and whether it answered a readiness probe
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Provider    string `json:"provider"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// Theme is the persisted UI theme preference
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// DownloadFormat is the extension the user picked for the exported résumé
type DownloadFormat string

const (
	FormatPDF  DownloadFormat = "pdf"
	FormatDOCX DownloadFormat = "docx"
)

// Valid reports whether f is a known download format.
func (f DownloadFormat) Valid() bool {
	return f == FormatPDF || f == FormatDOCX
}
