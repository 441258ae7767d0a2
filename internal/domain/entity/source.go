package entity

import "fmt"

// Source represents an RSS feed the aggregator pulls from.
// Sources are read-only to the ingestion pipeline.
type Source struct {
	Name     string   `yaml:"name" json:"name"`
	FeedURL  string   `yaml:"feed_url" json:"feedUrl"`
	Category Category `yaml:"category" json:"category"`
	Active   bool     `yaml:"active" json:"active"`
}

// Validate validates the Source entity fields.
func (s *Source) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if err := ValidateURL(s.FeedURL); err != nil {
		return fmt.Errorf("source %q: %w", s.Name, err)
	}
	if !s.Category.Valid() {
		return &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("source %q has unknown category %q", s.Name, s.Category),
		}
	}
	return nil
}
