// Package analysis defines the canonical per-entry analysis result and the
// parsing of remote model output into it.
package analysis

import (
	"math"

	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

// Sentiment is the coarse polarity derived from an emotion score.
type Sentiment string

const (
	Positive Sentiment = "긍정"
	Neutral  Sentiment = "중립"
	Negative Sentiment = "부정"
)

// Source records which path produced a Result.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Thresholds for SentimentFor. Both comparisons are strict.
const (
	PositiveThreshold = 0.3
	NegativeThreshold = -0.3
)

// MaxKeywords caps the keyword list of every Result.
const MaxKeywords = 5

// Result is the analysis of one entry. It is treated as immutable once
// returned from the analyzer.
type Result struct {
	PrimaryCategory taxonomy.Primary `json:"primaryCategory" bson:"primaryCategory"`
	SubCategory     taxonomy.Sub     `json:"subCategory" bson:"subCategory"`
	// Category mirrors SubCategory for readers of the older single-tier field.
	Category       taxonomy.Sub `json:"category" bson:"category"`
	Keywords       []string     `json:"keywords" bson:"keywords"`
	Sentiment      Sentiment    `json:"sentiment" bson:"sentiment"`
	EmotionScore   float64      `json:"emotionScore" bson:"emotionScore"`
	Interpretation string       `json:"interpretation" bson:"interpretation"`
	Source         Source       `json:"source,omitempty" bson:"source,omitempty"`
}

// Clone returns a copy of r that shares no slices with it.
func (r Result) Clone() Result {
	r.Keywords = append([]string{}, r.Keywords...)
	return r
}

// SentimentFor maps an emotion score onto a Sentiment.
func SentimentFor(score float64) Sentiment {
	switch {
	case score > PositiveThreshold:
		return Positive
	case score < NegativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// ClampScore bounds score to [-1, 1]. NaN maps to 0.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(-1, math.Min(1, score))
}

// Valid reports whether r satisfies the structural invariants every
// returned Result must hold.
func (r Result) Valid() bool {
	if !taxonomy.Valid(r.PrimaryCategory, r.SubCategory) {
		return false
	}
	if r.Category != r.SubCategory {
		return false
	}
	if r.EmotionScore < -1 || r.EmotionScore > 1 || math.IsNaN(r.EmotionScore) {
		return false
	}
	if r.Sentiment != SentimentFor(r.EmotionScore) {
		return false
	}
	if len(r.Keywords) > MaxKeywords {
		return false
	}
	seen := make(map[string]struct{}, len(r.Keywords))
	for _, kw := range r.Keywords {
		if _, dup := seen[kw]; dup {
			return false
		}
		seen[kw] = struct{}{}
	}
	return true
}

// Polarity returns the adjective used by templated interpretations.
func Polarity(score float64) string {
	switch {
	case score > 0:
		return "긍정적인"
	case score < 0:
		return "부정적인"
	default:
		return "중립적인"
	}
}
