package keywords

import (
	"reflect"
	"testing"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

func TestNormalizeParticleExample(t *testing.T) {
	n := Default()
	got := n.Normalize([]string{"동생이랑", "문신을", "보니까"})
	want := []string{"동생", "문신"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeCases(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"longest particle wins", []string{"공원으로"}, []string{"공원"}},
		{"ending stripped", []string{"공부했다"}, []string{"공부"}},
		{"particle then ending", []string{"운동했다는"}, []string{"운동"}},
		{"stopword after strip", []string{"오늘은", "내일도"}, []string{}},
		{"too short after strip", []string{"나는", "책"}, []string{}},
		{"whitespace trimmed", []string{"  카페에서  "}, []string{"카페"}},
		{"dedupe first seen", []string{"동생이", "친구", "동생을"}, []string{"동생", "친구"}},
		{"unstable rejected", []string{"사랑이가"}, []string{}},
		{"plain nouns kept", []string{"헬스장", "러닝"}, []string{"헬스장", "러닝"}},
		{"empty", []string{"", "   "}, []string{}},
		{"latin kept", []string{"yoga"}, []string{"yoga"}},
	}
	n := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeProperties(t *testing.T) {
	corpus := [][]string{
		{"동생이랑", "문신을", "보니까", "동생이"},
		{"오늘", "아침에", "우울했다", "아침"},
		{"헬스장에서", "3km", "뛰었다"},
		{"사랑이가", "사랑", "사랑을"},
		{"학교까지", "학교", "학교에서", "친구들과"},
		{"엄마한테", "엄마", "가족", "가족의"},
		{"의", "가", "이", "는"},
		{"공원으로", "공원에", "공원"},
	}
	n := Default()
	for _, in := range corpus {
		out := n.Normalize(in)

		if len(out) > len(in) {
			t.Fatalf("output longer than input: %v -> %v", in, out)
		}
		seen := map[string]bool{}
		for _, kw := range out {
			if seen[kw] {
				t.Errorf("duplicate %q in %v", kw, out)
			}
			seen[kw] = true
			if utf8.RuneCountInString(kw) < MinRunes {
				t.Errorf("short keyword %q in %v", kw, out)
			}
			if n.IsStopword(kw) {
				t.Errorf("stopword %q in %v", kw, out)
			}
		}

		again := n.Normalize(out)
		if !reflect.DeepEqual(again, out) {
			t.Errorf("not idempotent: %v -> %v -> %v", in, out, again)
		}
	}
}

func TestNormalizeComposesJamo(t *testing.T) {
	decomposed := norm.NFD.String("동생이랑")
	got := Default().Normalize([]string{decomposed})
	if !reflect.DeepEqual(got, []string{"동생"}) {
		t.Fatalf("Normalize(NFD) = %v", got)
	}
}

func TestCustomLexicon(t *testing.T) {
	lex := DefaultLexicon().Merge(Lexicon{Stopwords: []string{"회사"}})
	n := New(lex)
	got := n.Normalize([]string{"회사에서", "동료와"})
	if !reflect.DeepEqual(got, []string{"동료"}) {
		t.Fatalf("Normalize = %v", got)
	}
	if len(lex.Particles) == 0 || len(lex.Endings) == 0 {
		t.Fatal("Merge should keep default particles and endings")
	}
}

func TestLongestFirstIgnoresBlank(t *testing.T) {
	got := longestFirst([]string{"로", "", " ", "으로", "보니까"})
	want := []string{"보니까", "으로", "로"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("longestFirst = %v, want %v", got, want)
	}
}

// Nouns that end in a particle-shaped syllable ("누나", "고양이") would be cut
// again on a second pass, so they are dropped to keep Normalize idempotent.
func TestNormalizeDropsUnstableNouns(t *testing.T) {
	n := Default()
	got := n.Normalize([]string{"고양이가", "아이가", "누나가", "동생이랑", "문신을", "보니까"})
	want := []string{"동생", "문신"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}

	for _, word := range []string{"누나가", "아이가", "고양이가", "오빠가나"} {
		if out := n.Normalize([]string{word}); len(out) != 0 {
			t.Errorf("Normalize(%q) = %v, want it dropped", word, out)
		}
	}
}
