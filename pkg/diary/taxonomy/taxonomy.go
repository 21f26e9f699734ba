// Package taxonomy holds the fixed two-tier category map used to validate
// every classification, whichever path produced it.
package taxonomy

import (
	"fmt"

	"github.com/cognicore/diary/pkg/diary/internalerr"
)

// Primary is a top-level category.
type Primary string

// Sub is a subcategory owned by exactly one Primary.
type Sub string

// Primary categories.
const (
	SelfUnderstanding Primary = "자기이해"
	Habit             Primary = "습관"
	Goal              Primary = "목표"
	Relationship      Primary = "관계"
)

// Subcategories.
const (
	Dream      Sub = "꿈"
	Emotion    Sub = "감정"
	Reflection Sub = "회고"

	Exercise Sub = "운동"
	Study    Sub = "공부"
	Work     Sub = "업무"
	Daily    Sub = "일상"

	Plan      Sub = "계획"
	Challenge Sub = "도전"

	Family  Sub = "가족"
	Friend  Sub = "친구"
	Romance Sub = "연애"
	Other   Sub = "기타"
)

type branch struct {
	primary Primary
	subs    []Sub
}

// table is ordered; every listing helper returns values in this order.
var table = []branch{
	{SelfUnderstanding, []Sub{Dream, Emotion, Reflection}},
	{Habit, []Sub{Exercise, Study, Work, Daily}},
	{Goal, []Sub{Plan, Challenge}},
	{Relationship, []Sub{Family, Friend, Romance, Other}},
}

var owner = func() map[Sub]Primary {
	m := make(map[Sub]Primary)
	for _, b := range table {
		for _, s := range b.subs {
			m[s] = b.primary
		}
	}
	return m
}()

// ResolvePrimary returns the primary category owning sub.
func ResolvePrimary(sub Sub) (Primary, error) {
	p, ok := owner[sub]
	if !ok {
		return "", fmt.Errorf("%w: %q", internalerr.ErrUnknownSubcategory, string(sub))
	}
	return p, nil
}

// IsSub reports whether sub is part of the taxonomy.
func IsSub(sub Sub) bool {
	_, ok := owner[sub]
	return ok
}

// IsPrimary reports whether p is one of the four primary categories.
func IsPrimary(p Primary) bool {
	for _, b := range table {
		if b.primary == p {
			return true
		}
	}
	return false
}

// Valid reports whether sub belongs to p.
func Valid(p Primary, sub Sub) bool {
	got, ok := owner[sub]
	return ok && got == p
}

// Primaries lists the primary categories in table order.
func Primaries() []Primary {
	out := make([]Primary, len(table))
	for i, b := range table {
		out[i] = b.primary
	}
	return out
}

// Subs lists the subcategories owned by p, or nil for an unknown primary.
func Subs(p Primary) []Sub {
	for _, b := range table {
		if b.primary == p {
			return append([]Sub(nil), b.subs...)
		}
	}
	return nil
}

// AllSubs lists every subcategory in table order.
func AllSubs() []Sub {
	var out []Sub
	for _, b := range table {
		out = append(out, b.subs...)
	}
	return out
}

// Rank gives the position of sub in table order, or -1 when unknown.
func Rank(sub Sub) int {
	i := 0
	for _, b := range table {
		for _, s := range b.subs {
			if s == sub {
				return i
			}
			i++
		}
	}
	return -1
}
