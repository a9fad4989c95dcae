package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompt(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadPromptsFromFiles(t *testing.T) {
	dir := t.TempDir()
	systemFile := writePrompt(t, dir, "system.analyze.md", "  Você é um recrutador sênior.\n")
	userFile := writePrompt(t, dir, "user.analyze.md", "Currículo: {{.Resume}}")
	globalFile := writePrompt(t, dir, "system.global.md", "Global system prompt")

	config := &Config{
		AI: AIConfig{
			CustomPrompts: PromptConfig{SystemPromptFile: globalFile},
			Analyze: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPromptFile: systemFile,
					UserPromptFile:   userFile,
				},
			},
		},
	}

	require.NoError(t, config.loadPromptsFromFiles())

	assert.Equal(t, "Global system prompt", config.AI.CustomPrompts.SystemPrompt)
	assert.Equal(t, "Você é um recrutador sênior.", config.AI.Analyze.CustomPrompts.SystemPrompt)
	assert.Equal(t, "Currículo: {{.Resume}}", config.AI.Analyze.CustomPrompts.UserPrompt)
	assert.Equal(t, systemFile, config.AI.Analyze.CustomPrompts.SystemPromptFile, "file path should be preserved")
	assert.Equal(t, []string{globalFile, systemFile, userFile}, config.Sources.PromptFiles)
}

func TestLoadPromptFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	empty := writePrompt(t, dir, "empty.md", "   \n\t")
	config := &Config{}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.md"), wantErr: "not found"},
		{name: "whitespace only", path: empty, wantErr: "is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.loadPromptFromFile(tt.path, "system", "analyze")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidatePromptFiles(t *testing.T) {
	dir := t.TempDir()
	valid := writePrompt(t, dir, "valid.md", "Valid content")

	t.Run("existing files pass", func(t *testing.T) {
		config := &Config{AI: AIConfig{Analyze: OperationAIConfig{
			CustomPrompts: PromptConfig{SystemPromptFile: valid},
		}}}
		assert.NoError(t, config.validatePromptFiles())
	})

	t.Run("missing files are all reported", func(t *testing.T) {
		config := &Config{AI: AIConfig{
			CustomPrompts: PromptConfig{UserPromptFile: filepath.Join(dir, "a.md")},
			Analyze: OperationAIConfig{
				CustomPrompts: PromptConfig{SystemPromptFile: filepath.Join(dir, "b.md")},
			},
		}}
		err := config.validatePromptFiles()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "global user prompt file not found")
		assert.Contains(t, err.Error(), "analyze system prompt file not found")
	})
}

func TestGetAnalyzeConfig(t *testing.T) {
	timeout := 5 * time.Second
	config := &Config{AI: AIConfig{
		Provider:      "gemini",
		Model:         "gemini-3-flash-preview",
		LinkModel:     "gemini-3-pro-preview",
		Timeout:       90 * time.Second,
		APIKey:        "global",
		MaxRetries:    2,
		Temperature:   0.2,
		CustomPrompts: PromptConfig{SystemPrompt: "global system", UserPrompt: "global user"},
		Analyze: OperationAIConfig{
			Timeout:       &timeout,
			CustomPrompts: PromptConfig{UserPrompt: "analyze user"},
		},
	}}

	got := config.GetAnalyzeConfig()

	assert.Equal(t, "gemini", got.Provider)
	assert.Equal(t, "gemini-3-flash-preview", got.Model)
	assert.Equal(t, "gemini-3-pro-preview", got.LinkModel)
	assert.Equal(t, "global", got.APIKey)
	assert.Equal(t, timeout, *got.Timeout)
	assert.Equal(t, 2, *got.MaxRetries)
	assert.InDelta(t, 0.2, *got.Temperature, 0.0001)
	assert.Equal(t, "global system", got.CustomPrompts.SystemPrompt)
	assert.Equal(t, "analyze user", got.CustomPrompts.UserPrompt)
	assert.Empty(t, config.AI.Analyze.Model, "global config must not be mutated")
}

func TestGetAnalyzeConfigLinkModelFallsBackToModel(t *testing.T) {
	config := &Config{AI: AIConfig{Model: "only-model"}}
	assert.Equal(t, "only-model", config.GetAnalyzeConfig().LinkModel)
}
