package entity

import (
	"fmt"
	"strings"
)

// Category is one of the fixed news categories served by the aggregator.
type Category string

const (
	CategoryGeneral       Category = "general"
	CategorySports        Category = "deportes"
	CategoryTechnology    Category = "tecnologia"
	CategoryEconomy       Category = "economia"
	CategoryPolitics      Category = "politica"
	CategoryInternational Category = "internacional"
	CategoryScience       Category = "ciencia"
	CategoryHealth        Category = "salud"
	CategoryEntertainment Category = "entretenimiento"
)

// allCategories is ordered; global ingestion walks it in this order.
var allCategories = []Category{
	CategoryGeneral,
	CategorySports,
	CategoryTechnology,
	CategoryEconomy,
	CategoryPolitics,
	CategoryInternational,
	CategoryScience,
	CategoryHealth,
	CategoryEntertainment,
}

// AllCategories returns a copy of every known category.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory converts user input into a Category.
// Input is trimmed and lower-cased; unknown values yield a ValidationError.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c == "" {
		return "", &ValidationError{Field: "category", Message: "category is required"}
	}
	if !c.Valid() {
		return "", &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category %q", raw),
		}
	}
	return c, nil
}
