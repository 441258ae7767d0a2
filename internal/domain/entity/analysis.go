package entity

// BiasLeaning is the canonical political leaning assigned by the analysis.
type BiasLeaning string

const (
	LeaningLeft        BiasLeaning = "left"
	LeaningCenterLeft  BiasLeaning = "center-left"
	LeaningCenter      BiasLeaning = "center"
	LeaningCenterRight BiasLeaning = "center-right"
	LeaningRight       BiasLeaning = "right"
)

// Valid reports whether l is one of the canonical leanings.
func (l BiasLeaning) Valid() bool {
	switch l {
	case LeaningLeft, LeaningCenterLeft, LeaningCenter, LeaningCenterRight, LeaningRight:
		return true
	}
	return false
}

// Verdict is the canonical fact-check verdict vocabulary.
type Verdict string

const (
	VerdictVerified   Verdict = "verified"
	VerdictMostlyTrue Verdict = "mostly-true"
	VerdictMixed      Verdict = "mixed"
	VerdictMisleading Verdict = "misleading"
	VerdictFalse      Verdict = "false"
	VerdictUnverified Verdict = "unverified"
)

// Valid reports whether v belongs to the current verdict vocabulary.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictVerified, VerdictMostlyTrue, VerdictMixed, VerdictMisleading, VerdictFalse, VerdictUnverified:
		return true
	}
	return false
}

// FactCheck holds the fact-check part of an analysis.
type FactCheck struct {
	Verdict Verdict `json:"verdict"`
	Notes   string  `json:"notes,omitempty"`
}

// Analysis is the validated, typed payload produced by the AI analysis.
// It is stored as JSON next to the article.
type Analysis struct {
	Summary          string      `json:"summary"`
	BiasScore        float64     `json:"biasScore"`
	BiasLeaning      BiasLeaning `json:"biasLeaning"`
	ReliabilityScore float64     `json:"reliabilityScore"`
	FactCheck        FactCheck   `json:"factCheck"`
	Topics           []string    `json:"topics,omitempty"`
	Indicators       []string    `json:"indicators,omitempty"`
}
