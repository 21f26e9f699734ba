// Package keywords cleans keyword candidates into bare noun-like terms by
// stripping trailing Korean particles and inflectional endings.
package keywords

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MinRunes is the shortest keyword kept.
const MinRunes = 2

// Lexicon lists the suffixes and noise words the Normalizer works with.
type Lexicon struct {
	Particles []string `yaml:"particles"`
	Endings   []string `yaml:"endings"`
	Stopwords []string `yaml:"stopwords"`
}

// DefaultLexicon returns the built-in particle, ending and stopword lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Particles: []string{
			"이랑", "에서", "에게", "한테", "으로", "로", "까지", "부터", "처럼", "같이",
			"이", "가", "을", "를", "은", "는", "도", "만", "의", "와", "과", "나", "이나",
			"보니까", "보니", "에도", "라도", "마저", "조차", "밖에",
		},
		Endings: []string{
			"했다", "한다", "했어", "해서", "하고", "하지", "하는", "하던",
			"았다", "었다", "이다", "였다", "였어", "았어", "었어",
			"습니다", "입니다", "세요", "어요", "아요",
			"울었다", "웃었다", "갔다", "왔다", "봤다", "먹었다",
		},
		Stopwords: []string{
			"오늘", "어제", "내일", "그냥", "정말", "진짜", "완전", "너무", "매우",
			"조금", "많이", "아주", "좀", "더", "덜", "때", "일", "것", "수",
		},
	}
}

// Merge returns l with other's non-empty lists replacing l's.
func (l Lexicon) Merge(other Lexicon) Lexicon {
	if len(other.Particles) > 0 {
		l.Particles = other.Particles
	}
	if len(other.Endings) > 0 {
		l.Endings = other.Endings
	}
	if len(other.Stopwords) > 0 {
		l.Stopwords = other.Stopwords
	}
	return l
}

// Normalizer strips grammatical suffixes from keyword candidates. It holds
// no mutable state after construction and is safe for concurrent use.
type Normalizer struct {
	particles []string // longest first
	endings   []string // longest first
	stops     map[string]struct{}
}

// New builds a Normalizer from lex.
func New(lex Lexicon) *Normalizer {
	stops := make(map[string]struct{}, len(lex.Stopwords))
	for _, w := range lex.Stopwords {
		w = norm.NFC.String(strings.TrimSpace(w))
		if w != "" {
			stops[w] = struct{}{}
		}
	}
	return &Normalizer{
		particles: longestFirst(lex.Particles),
		endings:   longestFirst(lex.Endings),
		stops:     stops,
	}
}

// Default builds a Normalizer over DefaultLexicon.
func Default() *Normalizer {
	return New(DefaultLexicon())
}

// longestFirst cleans suffixes and orders them by rune length, longest
// first. Equal lengths keep their list order.
func longestFirst(suffixes []string) []string {
	out := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		s = norm.NFC.String(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	return out
}

// Normalize cleans raw keyword candidates. Each candidate loses at most one
// trailing particle and then at most one trailing ending. It is rejected
// when the result is empty, shorter than MinRunes, a stopword, or would be
// stripped again by another pass. Survivors are deduplicated in first-seen
// order, so Normalize(Normalize(x)) equals Normalize(x).
func (n *Normalizer) Normalize(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, cand := range raw {
		kw := n.Strip(cand)
		if !n.keep(kw) {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Strip trims word and removes one particle and one ending from its end.
func (n *Normalizer) Strip(word string) string {
	word = norm.NFC.String(strings.TrimSpace(word))
	word = trimFirstSuffix(word, n.particles)
	word = trimFirstSuffix(word, n.endings)
	return strings.TrimSpace(word)
}

func (n *Normalizer) keep(kw string) bool {
	if strings.TrimSpace(kw) == "" {
		return false
	}
	if utf8.RuneCountInString(kw) < MinRunes {
		return false
	}
	if n.IsStopword(kw) {
		return false
	}
	// Unstable results ("사랑이가" -> "사랑이") would change on a second pass.
	return n.Strip(kw) == kw
}

// IsStopword reports whether word is in the stopword set.
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stops[word]
	return ok
}

func trimFirstSuffix(word string, suffixes []string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(word, s) {
			return strings.TrimSuffix(word, s)
		}
	}
	return word
}
