package analysis

import (
	"errors"
	"testing"

	"biaswatch/internal/domain/entity"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReply = `{
  "summary": "El Gobierno aprueba los presupuestos.",
  "biasScore": 0.35,
  "biasLeaning": "center-left",
  "reliabilityScore": 0.8,
  "factCheck": {"verdict": "mostly-true", "notes": "Cifras oficiales"},
  "topics": ["presupuestos", "economía"],
  "indicators": ["lenguaje emotivo"]
}`

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain object", `{"summary": "ok"}`},
		{"code fence", "Aquí está:\n```json\n{\"summary\": \"ok\"}\n```"},
		{"fence without language", "```\n{\"summary\": \"ok\"}\n```"},
		{"surrounding prose", `Claro. {"summary": "ok"} Espero que sirva.`},
		{"trailing comma", `{"summary": "ok",}`},
		{"line comment", "{\n  \"summary\": \"ok\" // resumen\n}"},
		{"url inside string", "{\n  \"summary\": \"ok\", \"source\": \"https://example.com\"\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, "ok", m["summary"])
		})
	}
}

func TestDecode_TrailingCommas(t *testing.T) {
	raw := "{\n  \"summary\": \"lista: [a, ], cierre\",\n  \"topics\": [\"paro\", \"vivienda\",\n  ],\n}"

	m, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "lista: [a, ], cierre", m["summary"])
	assert.Equal(t, []any{"paro", "vivienda"}, m["topics"])
}

func TestDecode_EscapedQuoteKeepsStringOpen(t *testing.T) {
	m, err := Decode(`{"summary": "dijo \"no, }\" ayer",}`)
	require.NoError(t, err)
	assert.Equal(t, `dijo "no, }" ayer`, m["summary"])
}

func TestDecode_Errors(t *testing.T) {
	for _, raw := range []string{"", "sin json", `{"summary": }`, "[1, 2]"} {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrMalformedResponse, "raw=%q", raw)
	}
}

func TestPipeline_Parse_Valid(t *testing.T) {
	got, err := NewPipeline(nil).Parse(validReply)
	require.NoError(t, err)

	want := entity.Analysis{
		Summary:          "El Gobierno aprueba los presupuestos.",
		BiasScore:        0.35,
		BiasLeaning:      entity.LeaningCenterLeft,
		ReliabilityScore: 0.8,
		FactCheck:        entity.FactCheck{Verdict: entity.VerdictMostlyTrue, Notes: "Cifras oficiales"},
		Topics:           []string{"presupuestos", "economía"},
		Indicators:       []string{"lenguaje emotivo"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Parse_LegacyVerdictAccepted(t *testing.T) {
	raw := `{"summary": "s", "biasScore": 0.2, "biasLeaning": "center", "reliabilityScore": 0.9, "factCheck": {"verdict": "Verified"}}`

	got, err := NewPipeline(nil).Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictVerified, got.FactCheck.Verdict)
}

func TestPipeline_Parse_UnknownVerdictRejected(t *testing.T) {
	raw := `{"summary": "s", "biasScore": 0.2, "biasLeaning": "center", "reliabilityScore": 0.9, "factCheck": {"verdict": "Probablemente"}}`

	_, err := NewPipeline(nil).Parse(raw)
	require.ErrorIs(t, err, ErrMalformedResponse)

	var verr *entity.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "factCheck.verdict", verr.Field)
}

func TestPipeline_Parse_LegacyShape(t *testing.T) {
	raw := "```json\n" + `{
  "resumen": "Resumen breve",
  "bias_score": 72,
  "leaning": "Centre-Right",
  "reliability": "85%",
  "fact_check_verdict": "Partially True",
  "tags": ["elecciones"],
}` + "\n```"

	got, err := NewPipeline(nil).Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Resumen breve", got.Summary)
	assert.InDelta(t, 0.72, got.BiasScore, 1e-9)
	assert.Equal(t, entity.LeaningCenterRight, got.BiasLeaning)
	assert.InDelta(t, 0.85, got.ReliabilityScore, 1e-9)
	assert.Equal(t, entity.VerdictMixed, got.FactCheck.Verdict)
	assert.Equal(t, []string{"elecciones"}, got.Topics)
}

func TestPipeline_Parse_Scores(t *testing.T) {
	tests := []struct {
		name    string
		bias    string
		want    float64
		wantErr bool
	}{
		{name: "fraction", bias: `0.4`, want: 0.4},
		{name: "one", bias: `1`, want: 1},
		{name: "whole number", bias: `72`, want: 0.72},
		{name: "numeric string", bias: `"60"`, want: 0.6},
		{name: "percentage", bias: `"85%"`, want: 0.85},
		{name: "fractional percentage", bias: `"12.5%"`, want: 0.125},
		{name: "fraction above one", bias: `1.5`, wantErr: true},
		{name: "fraction above one as string", bias: `"7.25"`, wantErr: true},
		{name: "above hundred", bias: `150`, wantErr: true},
		{name: "negative", bias: `-0.2`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"summary": "s", "biasScore": ` + tt.bias + `, "biasLeaning": "center", "reliabilityScore": 0.9, "factCheck": {"verdict": "verified"}}`

			got, err := NewPipeline(nil).Parse(raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedResponse)
				var verr *entity.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "biasScore", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.BiasScore, 1e-9)
		})
	}
}

func TestRegistry_Normalize_VerdictRewrites(t *testing.T) {
	tests := map[string]entity.Verdict{
		"Verified":       entity.VerdictVerified,
		"True":           entity.VerdictVerified,
		"Mostly True":    entity.VerdictMostlyTrue,
		"Partially True": entity.VerdictMixed,
		"Unverified":     entity.VerdictUnverified,
		"Unverifiable":   entity.VerdictUnverified,
		"Misleading":     entity.VerdictMisleading,
		"False":          entity.VerdictFalse,
		"FALSO":          entity.VerdictFalse,
	}
	r := DefaultRegistry()
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			m := r.Normalize(map[string]any{"factCheck": map[string]any{"verdict": raw}})
			got, _ := getPath(m, "factCheck.verdict")
			assert.Equal(t, string(want), got)
		})
	}
}

func TestRegistry_Normalize_LeaningRewrites(t *testing.T) {
	tests := map[string]entity.BiasLeaning{
		"Left":           entity.LeaningLeft,
		"Centre-Left":    entity.LeaningCenterLeft,
		"center left":    entity.LeaningCenterLeft,
		"Centre":         entity.LeaningCenter,
		"Center_Right":   entity.LeaningCenterRight,
		"derecha":        entity.LeaningRight,
		"centro-derecha": entity.LeaningCenterRight,
	}
	r := DefaultRegistry()
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			m := r.Normalize(map[string]any{"biasLeaning": raw})
			assert.Equal(t, string(want), m["biasLeaning"])
		})
	}
}

func TestRegistry_Normalize_FactCheckString(t *testing.T) {
	m := DefaultRegistry().Normalize(map[string]any{"factCheck": "Misleading"})
	assert.Equal(t, map[string]any{"verdict": "misleading"}, m["factCheck"])
}

func TestRegistry_Normalize_AliasDoesNotOverwrite(t *testing.T) {
	m := DefaultRegistry().Normalize(map[string]any{"biasScore": 0.1, "bias_score": 0.9})
	assert.Equal(t, 0.1, m["biasScore"])
	assert.NotContains(t, m, "bias_score")
}

func TestRegistry_CustomMapping(t *testing.T) {
	r := NewRegistry()
	r.Verdict("dudoso", entity.VerdictUnverified)

	m := r.Normalize(map[string]any{"factCheck": map[string]any{"verdict": "Dudoso"}})
	got, _ := getPath(m, "factCheck.verdict")
	assert.Equal(t, "unverified", got)
}

func TestValidate_Errors(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"summary":          "s",
			"biasScore":        0.5,
			"biasLeaning":      "center",
			"reliabilityScore": 0.5,
			"factCheck":        map[string]any{"verdict": "mixed"},
		}
	}
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		field  string
	}{
		{"missing summary", func(m map[string]any) { delete(m, "summary") }, "summary"},
		{"blank summary", func(m map[string]any) { m["summary"] = "  " }, "summary"},
		{"bias score above range", func(m map[string]any) { m["biasScore"] = 1.5 }, "biasScore"},
		{"bias score negative", func(m map[string]any) { m["biasScore"] = -0.1 }, "biasScore"},
		{"bias score string", func(m map[string]any) { m["biasScore"] = "alto" }, "biasScore"},
		{"missing reliability", func(m map[string]any) { delete(m, "reliabilityScore") }, "reliabilityScore"},
		{"unknown leaning", func(m map[string]any) { m["biasLeaning"] = "far-left" }, "biasLeaning"},
		{"missing fact check", func(m map[string]any) { delete(m, "factCheck") }, "factCheck"},
		{"topics not array", func(m map[string]any) { m["topics"] = "economía" }, "topics"},
		{"indicators with number", func(m map[string]any) { m["indicators"] = []any{"a", 1.0} }, "indicators"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			tt.mutate(m)
			_, err := Validate(m)
			require.ErrorIs(t, err, ErrMalformedResponse)
			var verr *entity.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate_DoesNotRewrite(t *testing.T) {
	_, err := Validate(map[string]any{
		"summary":          "s",
		"biasScore":        0.5,
		"biasLeaning":      "center",
		"reliabilityScore": 0.5,
		"factCheck":        map[string]any{"verdict": "Verified"},
	})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
