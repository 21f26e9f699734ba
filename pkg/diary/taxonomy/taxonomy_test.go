package taxonomy

import (
	"errors"
	"testing"

	"github.com/cognicore/diary/pkg/diary/internalerr"
)

func TestResolvePrimary(t *testing.T) {
	tests := []struct {
		sub  Sub
		want Primary
	}{
		{Dream, SelfUnderstanding},
		{Emotion, SelfUnderstanding},
		{Reflection, SelfUnderstanding},
		{Exercise, Habit},
		{Study, Habit},
		{Work, Habit},
		{Daily, Habit},
		{Plan, Goal},
		{Challenge, Goal},
		{Family, Relationship},
		{Friend, Relationship},
		{Romance, Relationship},
		{Other, Relationship},
	}
	for _, tt := range tests {
		got, err := ResolvePrimary(tt.sub)
		if err != nil {
			t.Fatalf("ResolvePrimary(%s): %v", tt.sub, err)
		}
		if got != tt.want {
			t.Errorf("ResolvePrimary(%s) = %s, want %s", tt.sub, got, tt.want)
		}
	}
}

func TestResolvePrimaryUnknown(t *testing.T) {
	for _, sub := range []Sub{"", "건강", "목표", "Exercise"} {
		_, err := ResolvePrimary(sub)
		if !errors.Is(err, internalerr.ErrUnknownSubcategory) {
			t.Errorf("ResolvePrimary(%q) error = %v, want ErrUnknownSubcategory", sub, err)
		}
	}
}

func TestEverySubOwnedOnce(t *testing.T) {
	seen := make(map[Sub]Primary)
	for _, p := range Primaries() {
		for _, s := range Subs(p) {
			if prev, ok := seen[s]; ok {
				t.Fatalf("%s owned by both %s and %s", s, prev, p)
			}
			seen[s] = p
			if !Valid(p, s) {
				t.Errorf("Valid(%s, %s) = false", p, s)
			}
		}
	}
	if len(seen) != 13 {
		t.Fatalf("expected 13 subcategories, got %d", len(seen))
	}
	if len(AllSubs()) != len(seen) {
		t.Fatalf("AllSubs returned %d, want %d", len(AllSubs()), len(seen))
	}
}

func TestValidRejectsCrossPairs(t *testing.T) {
	if Valid(Habit, Dream) {
		t.Error("Dream must not belong to Habit")
	}
	if Valid(Goal, "모름") {
		t.Error("unknown sub must not validate")
	}
}

func TestRank(t *testing.T) {
	if Rank(Dream) != 0 {
		t.Errorf("Rank(Dream) = %d", Rank(Dream))
	}
	if Rank(Other) != 12 {
		t.Errorf("Rank(Other) = %d", Rank(Other))
	}
	if Rank("없음") != -1 {
		t.Error("unknown sub should rank -1")
	}
}

func TestIsPrimary(t *testing.T) {
	if !IsPrimary(Goal) || IsPrimary("계획") {
		t.Error("IsPrimary mismatch")
	}
	if Subs("없음") != nil {
		t.Error("Subs of unknown primary should be nil")
	}
}

func TestIsSub(t *testing.T) {
	for _, sub := range AllSubs() {
		if !IsSub(sub) {
			t.Errorf("IsSub(%q) = false", sub)
		}
	}
	for _, sub := range []Sub{"", "건강", Sub(Habit), " 운동"} {
		if IsSub(sub) {
			t.Errorf("IsSub(%q) = true", sub)
		}
	}
}
