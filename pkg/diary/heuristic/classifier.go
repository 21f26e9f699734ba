// Package heuristic is the deterministic fallback classifier used whenever
// the remote capability is missing or untrustworthy. It makes no external
// calls and always returns a structurally valid result.
package heuristic

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/diary/pkg/diary/analysis"
	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

// markersPerPoint sentiment markers move the score by 1.0, so each marker
// is worth 0.2.
const markersPerPoint = 5

// Markers are the substring sets the classifier tests against entry text.
type Markers struct {
	Dream        []string `yaml:"dream"`
	Exercise     []string `yaml:"exercise"`
	Emotion      []string `yaml:"emotion"`
	Plan         []string `yaml:"plan"`
	Relationship []string `yaml:"relationship"`
	Positive     []string `yaml:"positive"`
	Negative     []string `yaml:"negative"`
}

// DefaultMarkers returns the built-in marker sets.
func DefaultMarkers() Markers {
	return Markers{
		Dream:        []string{"꿈", "악몽", "꿈에서", "꿈속"},
		Exercise:     []string{"운동", "헬스", "달리기", "러닝", "요가", "필라테스", "스쿼트"},
		Emotion:      []string{"기분", "감정", "느낌", "슬프", "기쁘", "화나", "우울"},
		Plan:         []string{"할 거", "하려고", "예정", "목표"},
		Relationship: []string{"친구", "가족", "동생", "엄마", "아빠", "언니", "오빠", "형", "누나"},
		Positive:     []string{"좋", "행복", "기쁨", "즐거", "감사", "사랑", "완벽", "최고"},
		Negative:     []string{"나쁨", "슬픔", "우울", "화", "짜증", "스트레스", "힘들", "싫"},
	}
}

// Merge returns m with other's non-empty sets replacing m's.
func (m Markers) Merge(other Markers) Markers {
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	pick(&m.Dream, other.Dream)
	pick(&m.Exercise, other.Exercise)
	pick(&m.Emotion, other.Emotion)
	pick(&m.Plan, other.Plan)
	pick(&m.Relationship, other.Relationship)
	pick(&m.Positive, other.Positive)
	pick(&m.Negative, other.Negative)
	return m
}

type rule struct {
	sub     taxonomy.Sub
	markers []string
}

// Classifier guesses a classification from raw text. Safe for concurrent use.
type Classifier struct {
	rules    []rule // priority order, first match wins
	positive []string
	negative []string
}

// New builds a Classifier from m.
func New(m Markers) *Classifier {
	return &Classifier{
		rules: []rule{
			{taxonomy.Dream, clean(m.Dream)},
			{taxonomy.Exercise, clean(m.Exercise)},
			{taxonomy.Emotion, clean(m.Emotion)},
			{taxonomy.Plan, clean(m.Plan)},
			{taxonomy.Family, clean(m.Relationship)},
		},
		positive: clean(m.Positive),
		negative: clean(m.Negative),
	}
}

// Default builds a Classifier over DefaultMarkers.
func Default() *Classifier {
	return New(DefaultMarkers())
}

func clean(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(norm.NFC.String(strings.TrimSpace(w)))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Classify produces a best-effort analysis of text. It never fails.
func (c *Classifier) Classify(text string) analysis.Result {
	text = norm.NFC.String(text)
	lower := strings.ToLower(text)

	sub := c.guessSub(lower)
	// Every rule targets a taxonomy member, so this lookup cannot fail.
	primary, _ := taxonomy.ResolvePrimary(sub)
	score := c.guessScore(lower)
	sentiment := analysis.SentimentFor(score)

	return analysis.Result{
		PrimaryCategory: primary,
		SubCategory:     sub,
		Category:        sub,
		Keywords:        TopTokens(text, analysis.MaxKeywords),
		Sentiment:       sentiment,
		EmotionScore:    score,
		Interpretation:  interpret(sub, score),
		Source:          analysis.SourceFallback,
	}
}

func (c *Classifier) guessSub(lower string) taxonomy.Sub {
	for _, r := range c.rules {
		if containsAny(lower, r.markers) {
			return r.sub
		}
	}
	return taxonomy.Daily
}

func (c *Classifier) guessScore(lower string) float64 {
	hits := 0
	for _, w := range c.positive {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	for _, w := range c.negative {
		if strings.Contains(lower, w) {
			hits--
		}
	}
	return analysis.ClampScore(float64(hits) / markersPerPoint)
}

func interpret(sub taxonomy.Sub, score float64) string {
	return fmt.Sprintf(
		"이 기록은 %s 관련 내용으로 분류되었습니다. %s 감정이 느껴집니다. 앞으로도 꾸준히 기록하며 자신을 돌아보는 시간을 가져보세요.",
		sub, analysis.Polarity(score),
	)
}

// TopTokens returns up to k of the most frequent whitespace tokens of text
// longer than one rune, after dropping everything but letters, digits,
// underscores and whitespace. Ties keep first-occurrence order.
func TopTokens(text string, k int) []string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)

	counts := make(map[string]int)
	var order []string
	for _, tok := range strings.Fields(stripped) {
		if utf8.RuneCountInString(tok) <= 1 {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	if order == nil {
		return []string{}
	}
	return order
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
