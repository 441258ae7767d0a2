package search

import (
	"encoding/json"
	"fmt"
	"strconv"

	"biaswatch/internal/domain/entity"
)

// Level identifies which waterfall level answered a search.
// It is encoded as 1, 2 or "fallback".
type Level int

const (
	LevelLocal    Level = 1
	LevelReingest Level = 2
	LevelFallback Level = 3
)

func (l Level) String() string {
	if l == LevelFallback {
		return "fallback"
	}
	return strconv.Itoa(int(l))
}

// MarshalJSON implements json.Marshaler.
func (l Level) MarshalJSON() ([]byte, error) {
	if l == LevelFallback {
		return []byte(`"fallback"`), nil
	}
	return []byte(strconv.Itoa(int(l))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "fallback" {
			return fmt.Errorf("unknown search level %q", s)
		}
		*l = LevelFallback
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid search level %s: %w", data, err)
	}
	if n != int(LevelLocal) && n != int(LevelReingest) {
		return fmt.Errorf("unknown search level %d", n)
	}
	*l = Level(n)
	return nil
}

// Suggestion points the user to an external search when nothing was found.
type Suggestion struct {
	Message      string `json:"message"`
	ExternalLink string `json:"externalLink"`
}

// Result is the answer of the waterfall. Articles is empty, never nil,
// at the fallback level. Categories lists what was re-ingested at level 2.
type Result struct {
	Level      Level
	Query      string
	Articles   []*entity.Article
	IsFresh    bool
	Categories []entity.Category
	Suggestion *Suggestion
	DurationMs int64
}
