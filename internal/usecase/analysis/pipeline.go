package analysis

import (
	"fmt"
	"strings"

	"biaswatch/internal/domain/entity"
)

// Pipeline turns a raw model reply into a validated analysis:
// Decode, then Normalize with the registry, then Validate.
type Pipeline struct {
	registry *Registry
}

// NewPipeline creates a Pipeline. A nil registry uses DefaultRegistry.
func NewPipeline(registry *Registry) *Pipeline {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Pipeline{registry: registry}
}

// Parse runs the three stages. Every failure wraps ErrMalformedResponse.
func (p *Pipeline) Parse(raw string) (entity.Analysis, error) {
	m, err := Decode(raw)
	if err != nil {
		return entity.Analysis{}, err
	}
	return Validate(p.registry.Normalize(m))
}

// Validate checks a normalized reply and converts it to the typed payload.
// It performs no rewriting: legacy values must be handled by the registry.
func Validate(m map[string]any) (entity.Analysis, error) {
	var a entity.Analysis

	summary, ok := m["summary"].(string)
	if !ok || strings.TrimSpace(summary) == "" {
		return a, invalid("summary", "is required")
	}
	a.Summary = strings.TrimSpace(summary)

	var err error
	if a.BiasScore, err = unitScore(m, "biasScore"); err != nil {
		return a, err
	}
	if a.ReliabilityScore, err = unitScore(m, "reliabilityScore"); err != nil {
		return a, err
	}

	leaning, _ := m["biasLeaning"].(string)
	a.BiasLeaning = entity.BiasLeaning(leaning)
	if !a.BiasLeaning.Valid() {
		return a, invalid("biasLeaning", fmt.Sprintf("unknown leaning %q", leaning))
	}

	fc, ok := m["factCheck"].(map[string]any)
	if !ok {
		return a, invalid("factCheck", "is required")
	}
	verdict, _ := fc["verdict"].(string)
	a.FactCheck.Verdict = entity.Verdict(verdict)
	if !a.FactCheck.Verdict.Valid() {
		return a, invalid("factCheck.verdict", fmt.Sprintf("unknown verdict %q", verdict))
	}
	if notes, ok := fc["notes"].(string); ok {
		a.FactCheck.Notes = notes
	}

	if a.Topics, err = stringList(m, "topics"); err != nil {
		return a, err
	}
	if a.Indicators, err = stringList(m, "indicators"); err != nil {
		return a, err
	}

	return a, nil
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %w", ErrMalformedResponse, &entity.ValidationError{Field: field, Message: msg})
}

func unitScore(m map[string]any, field string) (float64, error) {
	f, ok := m[field].(float64)
	if !ok {
		return 0, invalid(field, "must be a number")
	}
	if f < 0 || f > 1 {
		return 0, invalid(field, fmt.Sprintf("%v is outside [0,1]", f))
	}
	return f, nil
}

// stringList accepts a missing field or an array of strings.
func stringList(m map[string]any, field string) ([]string, error) {
	raw, ok := m[field]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, invalid(field, "must be an array of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, invalid(field, "must be an array of strings")
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
