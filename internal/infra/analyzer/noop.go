package analyzer

import (
	"context"
	"encoding/json"
	"strings"

	"biaswatch/internal/usecase/analysis"
)

// NoOp is an analyzer that makes no external call. It returns a neutral,
// unverified analysis whose summary is the beginning of the article text.
// Useful for development and for running the pipeline without API keys.
type NoOp struct{}

// NewNoOp creates a NoOp analyzer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Name identifies the provider in token metrics.
func (n *NoOp) Name() string { return "noop" }

// Analyze returns a reply in the same JSON shape the AI providers are asked for.
func (n *NoOp) Analyze(_ context.Context, text string) (analysis.Response, error) {
	body, err := json.Marshal(map[string]any{
		"summary":          noopSummary(text),
		"biasScore":        0,
		"biasLeaning":      "center",
		"reliabilityScore": 0.5,
		"factCheck":        map[string]any{"verdict": "unverified", "notes": "análisis automático no disponible"},
	})
	if err != nil {
		return analysis.Response{}, err
	}
	return analysis.Response{Body: string(body)}, nil
}

// headerPrefixes are the metadata lines of the analysis input.
var headerPrefixes = []string{"Fuente:", "Categoría:", "Publicado:", "URL:", "Texto del artículo:"}

// noopSummary takes the title and the first body line, capped at 500 runes.
func noopSummary(text string) string {
	const maxLength = 500

	var parts []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isHeader(line) {
			continue
		}
		parts = append(parts, strings.TrimPrefix(line, "Título: "))
		if len(parts) == 2 {
			break
		}
	}

	summary := strings.Join(parts, ". ")
	if summary == "" {
		summary = "Sin resumen"
	}
	if r := []rune(summary); len(r) > maxLength {
		summary = string(r[:maxLength]) + "..."
	}
	return summary
}

func isHeader(line string) bool {
	for _, p := range headerPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
