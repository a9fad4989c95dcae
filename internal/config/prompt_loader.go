package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// promptSlot is one configurable prompt and the optional file that overrides it.
type promptSlot struct {
	scope, kind string
	file        string
	text        *string
}

func (c *Config) promptSlots() []promptSlot {
	global, analyze := &c.AI.CustomPrompts, &c.AI.Analyze.CustomPrompts
	return []promptSlot{
		{"global", "system", global.SystemPromptFile, &global.SystemPrompt},
		{"global", "user", global.UserPromptFile, &global.UserPrompt},
		{"analyze", "system", analyze.SystemPromptFile, &analyze.SystemPrompt},
		{"analyze", "user", analyze.UserPromptFile, &analyze.UserPrompt},
	}
}

// validatePromptFiles reports every configured prompt file that does not exist.
func (c *Config) validatePromptFiles() error {
	var errs []error
	for _, slot := range c.promptSlots() {
		if slot.file == "" {
			continue
		}
		path, err := filepath.Abs(slot.file)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid path for %s %s prompt: %s", slot.scope, slot.kind, slot.file))
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%s %s prompt file not found: %s", slot.scope, slot.kind, path))
		}
	}
	return errors.Join(errs...)
}

// loadPromptsFromFiles copies file contents over the inline prompts. The
// file paths stay set so the source can be reported later.
func (c *Config) loadPromptsFromFiles() error {
	for _, slot := range c.promptSlots() {
		if slot.file == "" {
			continue
		}
		text, err := c.loadPromptFromFile(slot.file, slot.kind, slot.scope)
		if err != nil {
			return err
		}
		*slot.text = text
		c.Sources.PromptFiles = append(c.Sources.PromptFiles, slot.file)
	}
	return nil
}

func (c *Config) loadPromptFromFile(filePath, kind, scope string) (string, error) {
	path, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("resolve %s %s prompt file %q: %w", scope, kind, filePath, err)
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("%s %s prompt file not found: %s", scope, kind, path)
	case err != nil:
		return "", fmt.Errorf("read %s %s prompt file %q: %w", scope, kind, path, err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", scope, kind, path)
	}
	return text, nil
}
