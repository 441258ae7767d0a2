// Package analyzer provides AI-backed implementations of analysis.Analyzer.
// It includes adapters for Claude (Anthropic) and OpenAI with circuit breaker
// and retry, and a heuristic NoOp analyzer for development.
package analyzer

import (
	"fmt"
	"unicode/utf8"
)

// systemPrompt fixes the reply contract. Parsing is tolerant, but the
// model is asked for exactly this shape.
const systemPrompt = `Eres un analista de medios. Analizas noticias en español y evalúas su sesgo político, su fiabilidad y la veracidad de sus afirmaciones principales.
Responde únicamente con un objeto JSON, sin texto adicional, con esta forma:
{
  "summary": "resumen neutral de 2 a 3 frases",
  "biasScore": número entre 0 (neutral) y 1 (muy sesgado),
  "biasLeaning": "left" | "center-left" | "center" | "center-right" | "right",
  "reliabilityScore": número entre 0 y 1,
  "factCheck": {"verdict": "verified" | "mostly-true" | "mixed" | "misleading" | "false" | "unverified", "notes": "explicación breve"},
  "topics": ["tema"],
  "indicators": ["indicador de sesgo observado"]
}`

// truncatedSuffix marks input cut at MaxInputChars.
const truncatedSuffix = "\n...(texto recortado)"

// userPrompt builds the per-article message, truncating the text to maxChars runes.
func userPrompt(text string, maxChars int) (prompt string, truncated bool) {
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		text = string([]rune(text)[:maxChars]) + truncatedSuffix
		truncated = true
	}
	return fmt.Sprintf("Analiza la siguiente noticia:\n\n%s", text), truncated
}
