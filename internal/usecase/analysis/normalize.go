package analysis

import (
	"math"
	"strconv"
	"strings"

	"biaswatch/internal/domain/entity"
)

// Registry holds the rewrites that bring older or sloppy replies into the
// current shape. Add new mappings here; Validate stays strict.
type Registry struct {
	aliases  []alias
	verdicts map[string]entity.Verdict
	leanings map[string]entity.BiasLeaning
	scores   []string
}

type alias struct {
	from string
	to   string // dotted path, e.g. "factCheck.verdict"
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		verdicts: make(map[string]entity.Verdict),
		leanings: make(map[string]entity.BiasLeaning),
	}
}

// DefaultRegistry returns the registry with every known legacy mapping.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// field aliases
	r.Alias("bias_score", "biasScore")
	r.Alias("score", "biasScore")
	r.Alias("leaning", "biasLeaning")
	r.Alias("bias_leaning", "biasLeaning")
	r.Alias("political_leaning", "biasLeaning")
	r.Alias("reliability", "reliabilityScore")
	r.Alias("reliability_score", "reliabilityScore")
	r.Alias("fact_check", "factCheck")
	r.Alias("factCheckVerdict", "factCheck.verdict")
	r.Alias("fact_check_verdict", "factCheck.verdict")
	r.Alias("verdict", "factCheck.verdict")
	r.Alias("resumen", "summary")
	r.Alias("tags", "topics")
	r.Alias("temas", "topics")
	r.Alias("bias_indicators", "indicators")
	r.Alias("biasIndicators", "indicators")

	// verdicts
	r.Verdict("true", entity.VerdictVerified)
	r.Verdict("correct", entity.VerdictVerified)
	r.Verdict("verificado", entity.VerdictVerified)
	r.Verdict("mostly-correct", entity.VerdictMostlyTrue)
	r.Verdict("partially-true", entity.VerdictMixed)
	r.Verdict("half-true", entity.VerdictMixed)
	r.Verdict("mixto", entity.VerdictMixed)
	r.Verdict("unverifiable", entity.VerdictUnverified)
	r.Verdict("unproven", entity.VerdictUnverified)
	r.Verdict("no-verificado", entity.VerdictUnverified)
	r.Verdict("enganoso", entity.VerdictMisleading)
	r.Verdict("engañoso", entity.VerdictMisleading)
	r.Verdict("falso", entity.VerdictFalse)

	// leanings
	r.Leaning("centre-left", entity.LeaningCenterLeft)
	r.Leaning("centre", entity.LeaningCenter)
	r.Leaning("neutral", entity.LeaningCenter)
	r.Leaning("centre-right", entity.LeaningCenterRight)
	r.Leaning("izquierda", entity.LeaningLeft)
	r.Leaning("centro-izquierda", entity.LeaningCenterLeft)
	r.Leaning("centro", entity.LeaningCenter)
	r.Leaning("centro-derecha", entity.LeaningCenterRight)
	r.Leaning("derecha", entity.LeaningRight)

	// 0..100 scores are rescaled to 0..1
	r.Score("biasScore")
	r.Score("reliabilityScore")

	return r
}

// Alias renames the top-level key from to the dotted path to.
// An existing value at to wins over the alias.
func (r *Registry) Alias(from, to string) {
	r.aliases = append(r.aliases, alias{from: from, to: to})
}

// Verdict maps a raw verdict (compared after canonicalKey) to a canonical verdict.
func (r *Registry) Verdict(raw string, v entity.Verdict) {
	r.verdicts[canonicalKey(raw)] = v
}

// Leaning maps a raw leaning (compared after canonicalKey) to a canonical leaning.
func (r *Registry) Leaning(raw string, l entity.BiasLeaning) {
	r.leanings[canonicalKey(raw)] = l
}

// Score marks a top-level numeric field whose legacy 0..100 form
// (whole numbers or percentages) is rescaled to 0..1.
func (r *Registry) Score(field string) {
	r.scores = append(r.scores, field)
}

// Normalize rewrites m in place and returns it.
// Values it does not recognise are left untouched for Validate to reject.
func (r *Registry) Normalize(m map[string]any) map[string]any {
	if m == nil {
		return m
	}

	promoteFactCheck(m)
	for _, a := range r.aliases {
		v, ok := m[a.from]
		if !ok {
			continue
		}
		delete(m, a.from)
		if _, exists := getPath(m, a.to); !exists {
			setPath(m, a.to, v)
		}
	}

	promoteFactCheck(m)

	if raw, ok := getPath(m, "factCheck.verdict"); ok {
		if s, ok := raw.(string); ok {
			setPath(m, "factCheck.verdict", r.rewriteVerdict(s))
		}
	}
	if s, ok := m["biasLeaning"].(string); ok {
		m["biasLeaning"] = r.rewriteLeaning(s)
	}

	for _, field := range r.scores {
		if v, ok := m[field]; ok {
			m[field] = rescale(v)
		}
	}

	return m
}

// promoteFactCheck turns "factCheck": "Verified" into {"verdict": "Verified"}.
func promoteFactCheck(m map[string]any) {
	if s, ok := m["factCheck"].(string); ok {
		m["factCheck"] = map[string]any{"verdict": s}
	}
}

func (r *Registry) rewriteVerdict(s string) string {
	key := canonicalKey(s)
	if entity.Verdict(key).Valid() {
		return key
	}
	if v, ok := r.verdicts[key]; ok {
		return string(v)
	}
	return s
}

func (r *Registry) rewriteLeaning(s string) string {
	key := canonicalKey(s)
	if entity.BiasLeaning(key).Valid() {
		return key
	}
	if l, ok := r.leanings[key]; ok {
		return string(l)
	}
	return s
}

// canonicalKey lowercases s and joins its words with hyphens:
// "Partially True" → "partially-true", "Centre_Left" → "centre-left".
func canonicalKey(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(s)), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	return strings.Join(fields, "-")
}

// rescale converts numeric strings to numbers. Percentages ("85%") and
// whole numbers in 2..100 are legacy 0..100 scores and become fractions.
// Anything else is returned as a number for Validate to judge.
func rescale(v any) any {
	var (
		f       float64
		percent bool
	)
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		s := strings.TrimSpace(n)
		s, percent = strings.CutSuffix(s, "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return v
		}
		f = parsed
	default:
		return v
	}
	switch {
	case percent && f >= 0 && f <= 100:
		return f / 100
	case f > 1 && f <= 100 && f == math.Trunc(f):
		return f / 100
	}
	return f
}

func getPath(m map[string]any, path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := m[head]
	if !ok || !nested {
		return v, ok
	}
	child, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return getPath(child, rest)
}

func setPath(m map[string]any, path string, v any) {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		m[head] = v
		return
	}
	child, ok := m[head].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[head] = child
	}
	setPath(child, rest, v)
}
