package search

import (
	"slices"
	"strings"
	"unicode"

	"biaswatch/internal/domain/entity"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// categoryKeywords maps query words (lowercase, without accents) to the
// categories most likely to contain matching news.
var categoryKeywords = map[entity.Category][]string{
	entity.CategorySports: {
		"futbol", "liga", "champions", "gol", "madrid", "barcelona", "barca", "atletico",
		"tenis", "nadal", "alcaraz", "baloncesto", "nba", "formula", "f1", "ciclismo",
		"tour", "olimpicos", "mundial", "seleccion", "partido", "fichaje", "entrenador",
	},
	entity.CategoryTechnology: {
		"tecnologia", "inteligencia", "ia", "ai", "chatgpt", "openai", "apple", "google",
		"microsoft", "meta", "android", "iphone", "movil", "software", "ciberseguridad",
		"hackeo", "startup", "internet", "redes", "app", "videojuego", "chip",
	},
	entity.CategoryEconomy: {
		"economia", "ibex", "bolsa", "inflacion", "ipc", "paro", "empleo", "pib", "bce",
		"tipos", "interes", "hipoteca", "euribor", "impuestos", "hacienda", "salario",
		"pensiones", "vivienda", "alquiler", "banco", "empresa", "precio",
	},
	entity.CategoryPolitics: {
		"gobierno", "congreso", "senado", "psoe", "pp", "vox", "sumar", "podemos",
		"sanchez", "feijoo", "elecciones", "ministro", "ministra", "ley", "amnistia",
		"presupuestos", "parlamento", "moncloa", "diputado", "partido", "votacion",
	},
	entity.CategoryInternational: {
		"ucrania", "rusia", "putin", "zelenski", "israel", "gaza", "palestina", "trump",
		"eeuu", "estados", "china", "ue", "europea", "bruselas", "otan", "onu",
		"francia", "alemania", "marruecos", "venezuela", "mexico", "argentina", "guerra",
	},
	entity.CategoryScience: {
		"ciencia", "cientificos", "investigacion", "espacio", "nasa", "esa", "luna",
		"marte", "clima", "cambio", "climatico", "fosil", "genetica", "fisica",
		"astronomia", "telescopio", "especie", "dinosaurio",
	},
	entity.CategoryHealth: {
		"salud", "sanidad", "hospital", "medico", "medicos", "enfermedad", "vacuna",
		"covid", "gripe", "cancer", "virus", "pandemia", "farmaco", "tratamiento",
		"oms", "urgencias", "paciente",
	},
	entity.CategoryEntertainment: {
		"cine", "pelicula", "serie", "netflix", "musica", "concierto", "festival",
		"oscar", "goya", "eurovision", "actor", "actriz", "cantante", "album",
		"television", "famoso", "teatro",
	},
}

// PickCategories returns the categories to re-ingest for query: the best
// keyword matches followed by general, at most maxCategories in total.
// General is always included.
func PickCategories(query string, maxCategories int) []entity.Category {
	maxCategories = max(maxCategories, 1)
	words := strings.Fields(fold(query))

	type scored struct {
		category entity.Category
		hits     int
	}
	var matches []scored
	for _, c := range entity.AllCategories() {
		if c == entity.CategoryGeneral {
			continue
		}
		hits := 0
		for _, w := range words {
			if slices.Contains(categoryKeywords[c], w) {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, scored{category: c, hits: hits})
		}
	}
	// stable: ties keep the AllCategories order
	slices.SortStableFunc(matches, func(a, b scored) int { return b.hits - a.hits })

	out := make([]entity.Category, 0, maxCategories)
	for _, m := range matches {
		if len(out) == maxCategories-1 {
			break
		}
		out = append(out, m.category)
	}
	return append(out, entity.CategoryGeneral)
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases s, strips accents and replaces punctuation with spaces.
func fold(s string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
}
