package analysis

import (
	"math"
	"testing"

	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

func TestSentimentForBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Sentiment
	}{
		{0.3, Neutral},
		{-0.3, Neutral},
		{0.31, Positive},
		{-0.31, Negative},
		{0, Neutral},
		{1, Positive},
		{-1, Negative},
		{0.29999, Neutral},
	}
	for _, tt := range tests {
		if got := SentimentFor(tt.score); got != tt.want {
			t.Errorf("SentimentFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{1.7, 1},
		{-3, -1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResultValid(t *testing.T) {
	good := Result{
		PrimaryCategory: taxonomy.Habit,
		SubCategory:     taxonomy.Exercise,
		Category:        taxonomy.Exercise,
		Keywords:        []string{"헬스장", "러닝"},
		Sentiment:       Positive,
		EmotionScore:    0.6,
	}
	if !good.Valid() {
		t.Fatal("expected valid result")
	}

	cases := map[string]func(r *Result){
		"cross pair":      func(r *Result) { r.PrimaryCategory = taxonomy.Goal },
		"alias drift":     func(r *Result) { r.Category = taxonomy.Study },
		"sentiment drift": func(r *Result) { r.Sentiment = Neutral },
		"score range":     func(r *Result) { r.EmotionScore = 1.5 },
		"dup keywords":    func(r *Result) { r.Keywords = []string{"러닝", "러닝"} },
		"too many":        func(r *Result) { r.Keywords = []string{"가가", "나나", "다다", "라라", "마마", "바바"} },
	}
	for name, mutate := range cases {
		r := good
		r.Keywords = append([]string(nil), good.Keywords...)
		mutate(&r)
		if r.Valid() {
			t.Errorf("%s: expected invalid", name)
		}
	}
}

func TestPolarity(t *testing.T) {
	if Polarity(0.2) != "긍정적인" || Polarity(-0.2) != "부정적인" || Polarity(0) != "중립적인" {
		t.Fatal("unexpected polarity words")
	}
}
