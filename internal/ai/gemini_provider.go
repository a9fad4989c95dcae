package ai

import (
	"context"
	"fmt"
	"time"

	"resumecvpro/internal/config"
	appErrors "resumecvpro/internal/errors"
	"resumecvpro/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// generateFunc is the single oracle call; tests replace it.
type generateFunc func(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiProvider asks Gemini for a structured résumé analysis. Calls go
// through a circuit breaker and are retried on transient failures.
type GeminiProvider struct {
	client       *genai.Client
	generate     generateFunc
	config       *config.OperationAIConfig
	breaker      *Breaker[*genai.GenerateContentResponse]
	modelBreaker *Breaker[*genai.Model]
	fetcher      PostingFetcher
	logger       *appErrors.Logger
	sleep        sleeper
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider. fetcher may be nil.
func NewGeminiProvider(ctx context.Context, cfg *config.OperationAIConfig, fetcher PostingFetcher, logger *appErrors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey, "Gemini API key is not configured", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	g := newGeminiProvider(cfg, fetcher, logger)
	g.client = client
	g.generate = func(ctx context.Context, model, prompt string, genCfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, genai.Text(prompt), genCfg)
	}
	return g, nil
}

func newGeminiProvider(cfg *config.OperationAIConfig, fetcher PostingFetcher, logger *appErrors.Logger) *GeminiProvider {
	if logger == nil {
		logger = appErrors.NewNopLogger()
	}
	return &GeminiProvider{
		config:       cfg,
		breaker:      NewAnalysisBreaker(cfg, logger),
		modelBreaker: NewModelBreaker(cfg, logger),
		fetcher:      fetcher,
		logger:       logger,
		sleep:        sleepContext,
	}
}

// SelectModel picks the link model when the request carries a job URL.
func (g *GeminiProvider) SelectModel(req types.AnalysisRequest) string {
	if req.JobURL != "" && g.config.LinkModel != "" {
		return g.config.LinkModel
	}
	return g.config.Model
}

func (g *GeminiProvider) AnalyzeResume(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisResult, *types.TokenUsage, error) {
	model := g.SelectModel(req)

	if g.config.Timeout != nil && *g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *g.config.Timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer("resumecvpro.ai.gemini").Start(ctx, "gemini.analyze_resume")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.resume_length", len(req.ResumeText)),
		attribute.Int("input.job_length", len(req.JobDescription)),
		attribute.Bool("input.has_url", req.JobURL != ""),
		attribute.String("input.language", string(req.TargetLanguage)),
	)

	systemPrompt, userPrompt := g.buildPrompts(ctx, req)
	genCfg := g.buildAnalyzeSchema()
	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return retryCall(ctx, "analyze_resume", *g.config.MaxRetries, g.sleep, g.logger, func() (*genai.GenerateContentResponse, error) {
			return g.generate(ctx, model, userPrompt, genCfg)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, nil, NewAnalysisFailure(err).WithContext("model", model)
	}

	usage := extractTokenUsage(resp)
	if usage != nil {
		span.SetAttributes(
			attribute.Int("ai.tokens.input", int(usage.PromptTokens)),
			attribute.Int("ai.tokens.output", int(usage.CompletionTokens)),
			attribute.Int("ai.tokens.total", int(usage.TotalTokens)),
		)
	}

	result, err := Normalize([]byte(resp.Text()))
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.LogError(err, "Oracle returned an unusable analysis", "model", model)
		return nil, usage, err
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("ats.score", result.Score),
		attribute.Bool("output.has_linkedin", result.LinkedInOptimization != nil),
	)
	return result, usage, nil
}

// buildPrompts resolves configured prompts and fills in the request.
func (g *GeminiProvider) buildPrompts(ctx context.Context, req types.AnalysisRequest) (string, string) {
	posting := ""
	if req.JobURL != "" && g.fetcher != nil {
		text, err := g.fetcher.FetchText(ctx, req.JobURL)
		if err != nil {
			g.logger.Warn("Job posting fetch failed, sending bare URL", "url", req.JobURL, "error", err.Error())
		} else {
			posting = text
		}
	}

	data := promptData{
		Resume:   req.ResumeText,
		Job:      jobSection(req.JobDescription, req.JobURL, posting),
		Language: TargetLanguageName(req.TargetLanguage),
	}

	systemPrompt := resolvePrompt(g.config.CustomPrompts.SystemPrompt, DefaultSystemPrompt)
	userPrompt, err := renderPrompt(resolvePrompt(g.config.CustomPrompts.UserPrompt, DefaultUserPrompt), data)
	if err != nil {
		g.logger.Warn("Custom user prompt is invalid, using the default", "error", err.Error())
		userPrompt, _ = renderPrompt(DefaultUserPrompt, data)
	}
	if !*g.config.UseSystemPrompts {
		userPrompt = systemPrompt + "\n\n" + userPrompt
	}
	return systemPrompt, userPrompt
}

// buildAnalyzeSchema pins the response to the analysis JSON shape.
func (g *GeminiProvider) buildAnalyzeSchema() *genai.GenerateContentConfig {
	stringList := func(description string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: description,
		}
	}

	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score":           {Type: genai.TypeNumber, Description: "Soma das 4 categorias (0 a 100)"},
				"suggestions":     stringList("Lista de melhorias críticas"),
				"missingKeywords": stringList("Termos técnicos ausentes"),
				"strengths":       stringList("Pontos positivos encontrados"),
				"optimizedContent": {
					Type:        genai.TypeString,
					Description: "Conteúdo reescrito em Markdown",
				},
				"scoreBreakdown": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"category": {Type: genai.TypeString, Description: "Nome da categoria (Palavras-chave, Experiência, Educação, Formatação)"},
							"score":    {Type: genai.TypeNumber, Description: "Pontos (0-25)"},
							"maxScore": {Type: genai.TypeNumber, Description: "Sempre 25"},
							"details":  {Type: genai.TypeString, Description: "Justificativa da nota"},
						},
						Required: []string{"category", "score", "maxScore", "details"},
					},
				},
				"linkedinOptimization": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"headline": {Type: genai.TypeString},
						"about":    {Type: genai.TypeString},
					},
					Required: []string{"headline", "about"},
				},
			},
			Required: []string{"score", "suggestions", "missingKeywords", "strengths", "optimizedContent", "linkedinOptimization", "scoreBreakdown"},
		},
	}

	if *g.config.Temperature > 0 {
		genCfg.Temperature = g.config.Temperature
	}
	return genCfg
}

// GetModelInfo probes the default model for the health endpoint.
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *types.ModelInfo {
	info := &types.ModelInfo{Name: g.config.Model, Provider: "gemini"}
	if g.client == nil {
		info.Error = "Gemini client not initialized"
		return info
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed", "model", g.config.Model, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", info.DisplayName,
		"version", info.Version)
	return info
}

func (g *GeminiProvider) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.breaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
		"overall_healthy":  g.breaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

func (g *GeminiProvider) Close() error {
	return nil
}

func extractTokenUsage(result *genai.GenerateContentResponse) *types.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &types.TokenUsage{
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
	}
}
