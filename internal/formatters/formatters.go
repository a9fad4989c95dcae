// Package formatters renders views, history and preferences as text,
// markdown or JSON.
package formatters

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"resumecvpro/internal/history"
)

type renderFunc func(data any) (string, error)

// FormatterRegistry maps an output format and a Go type to a renderer. A
// format may also carry a fallback used for any type without its own renderer.
type FormatterRegistry struct {
	renderers map[string]map[reflect.Type]renderFunc
	fallbacks map[string]renderFunc
}

// GlobalRegistry is shared by the CLI and the HTTP handlers.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry returns a registry with every built-in renderer.
func NewFormatterRegistry() *FormatterRegistry {
	fr := &FormatterRegistry{
		renderers: make(map[string]map[reflect.Type]renderFunc),
		fallbacks: make(map[string]renderFunc),
	}
	fr.fallbacks["json"] = renderJSON

	Register(fr, "text", summaryText)
	Register(fr, "markdown", summaryMarkdown)
	Register(fr, "text", detailsText)
	Register(fr, "markdown", detailsMarkdown)
	Register(fr, "text", comparisonText)
	Register(fr, "markdown", comparisonMarkdown)
	Register(fr, "text", linkedInText)
	Register(fr, "markdown", linkedInMarkdown)
	Register(fr, "text", historyText)
	Register(fr, "markdown", historyMarkdown)
	Register(fr, "text", recordText)
	Register(fr, "markdown", recordMarkdown)
	Register(fr, "text", spansText)
	Register(fr, "markdown", spansMarkdown)
	Register(fr, "text", prefsText)
	Register(fr, "markdown", prefsText)
	return fr
}

// Register adds the renderer for values of type T in format.
func Register[T any](fr *FormatterRegistry, format string, render func(T) (string, error)) {
	byType, ok := fr.renderers[format]
	if !ok {
		byType = make(map[reflect.Type]renderFunc)
		fr.renderers[format] = byType
	}
	byType[reflect.TypeFor[T]()] = func(data any) (string, error) {
		return render(data.(T))
	}
}

// Format renders data in format.
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	t := reflect.TypeOf(data)
	if render, ok := fr.renderers[format][t]; ok {
		return render(data)
	}
	if render, ok := fr.fallbacks[format]; ok {
		return render(data)
	}
	return "", fmt.Errorf("no formatter found for format '%s' and type '%v'", format, t)
}

// GetSupportedFormats lists every format with at least one renderer, sorted.
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := slices.Collect(maps.Keys(fr.renderers))
	for format := range fr.fallbacks {
		if !slices.Contains(formats, format) {
			formats = append(formats, format)
		}
	}
	slices.Sort(formats)
	return formats
}

// HistoryList is a list of past analyses, newest first.
type HistoryList []history.Record

func renderJSON(data any) (string, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

func writeList(b *strings.Builder, items []string, bullet string) {
	if len(items) == 0 {
		b.WriteString(bullet + "(none)\n")
		return
	}
	for _, item := range items {
		b.WriteString(bullet + item + "\n")
	}
}

func scoreBar(percent float64) string {
	const width = 20
	filled := int(percent/100*width + 0.5)
	filled = max(0, min(filled, width))
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}
