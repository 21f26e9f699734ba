// Package learning keeps each user's correction history and preferred
// keywords, and turns them into hint text for the remote analyzer.
//
// Every operation is best-effort: persistence failures are logged and
// degrade to empty results so that entry analysis is never blocked.
package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/store"
	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

const (
	// MaxHintCorrections caps the correction lines in a hint.
	MaxHintCorrections = 5
	// MaxHintKeywords caps the keywords listed per subcategory.
	MaxHintKeywords = 5

	// DefaultCacheTTL is how long generated hints are reused.
	DefaultCacheTTL = time.Minute
)

// Store wraps a store.LearningRecords with lazy creation, hint generation
// and a per-user hint cache.
type Store struct {
	records store.LearningRecords
	logger  *zap.Logger
	now     func() time.Time
	hints   *cache.Cache // nil when caching is off
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCacheTTL sets the hint cache lifetime. ttl <= 0 disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl <= 0 {
			s.hints = nil
			return
		}
		s.hints = cache.New(ttl, 2*ttl)
	}
}

// WithClock overrides the time source used for lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Store over records.
func New(records store.LearningRecords, opts ...Option) *Store {
	s := &Store{
		records: records,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		hints:   cache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRecord returns the user's record, creating and persisting an empty one
// on first access. It never fails; on persistence errors it returns an
// in-memory empty record.
func (s *Store) GetRecord(ctx context.Context, userID string) store.LearningRecord {
	rec, err := s.getOrCreate(ctx, userID)
	if err != nil {
		s.logger.Warn("learning record unavailable",
			zap.String("user", userID), zap.Error(err))
		return store.NewLearningRecord(userID, s.now())
	}
	return rec
}

func (s *Store) getOrCreate(ctx context.Context, userID string) (store.LearningRecord, error) {
	rec, err := s.records.GetLearning(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, internalerr.ErrNotFound) {
		return store.LearningRecord{}, err
	}

	rec = store.NewLearningRecord(userID, s.now())
	err = s.records.CreateLearning(ctx, rec)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, internalerr.ErrDuplicate):
		// Someone else created it between our read and write.
		return s.records.GetLearning(ctx, userID)
	default:
		return store.LearningRecord{}, err
	}
}

// RecordCorrection counts one move of an entry from one subcategory to
// another. Equal or blank values are ignored. Failures are logged.
func (s *Store) RecordCorrection(ctx context.Context, userID, from, to string) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" || from == to {
		return
	}
	defer s.evict(userID)

	if err := s.records.IncrementCorrection(ctx, userID, from, to, s.now()); err != nil {
		s.logger.Warn("record correction failed",
			zap.String("user", userID),
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		return
	}
	s.logger.Debug("correction recorded",
		zap.String("user", userID), zap.String("from", from), zap.String("to", to))
}

// RecordKeywordPattern unions keywords into the user's preferred set for sub.
// Failures are logged.
func (s *Store) RecordKeywordPattern(ctx context.Context, userID, sub string, keywords []string) {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return
	}
	clean := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			clean = append(clean, kw)
		}
	}
	clean = store.UnionStrings(nil, clean)
	if len(clean) == 0 {
		return
	}
	defer s.evict(userID)

	if err := s.records.UnionKeywords(ctx, userID, sub, clean, s.now()); err != nil {
		s.logger.Warn("record keywords failed",
			zap.String("user", userID),
			zap.String("sub", sub),
			zap.Error(err))
	}
}

// GenerateHints renders the user's top corrections and preferred keywords as
// prompt text. It returns "" for a user with no history or when the record
// cannot be read.
func (s *Store) GenerateHints(ctx context.Context, userID string) string {
	if s.hints != nil {
		if v, ok := s.hints.Get(userID); ok {
			return v.(string)
		}
	}

	rec, err := s.getOrCreate(ctx, userID)
	if err != nil {
		s.logger.Warn("hint generation degraded",
			zap.String("user", userID), zap.Error(err))
		return ""
	}
	text := FormatHints(rec)
	if s.hints != nil {
		s.hints.Set(userID, text, cache.DefaultExpiration)
	}
	return text
}

func (s *Store) evict(userID string) {
	if s.hints != nil {
		s.hints.Delete(userID)
	}
}

// FormatHints renders rec. Output is deterministic for a given record.
func FormatHints(rec store.LearningRecord) string {
	var sections []string

	if top := TopCorrections(rec, MaxHintCorrections); len(top) > 0 {
		lines := []string{"사용자 선호 카테고리 패턴:"}
		for _, c := range top {
			lines = append(lines, fmt.Sprintf("- %q보다 %q 선호 (%d회 수정)", c.From, c.To, c.Count))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	var kwLines []string
	for _, sub := range keywordSubs(rec) {
		kws := rec.PreferredKeywords[sub]
		if len(kws) > MaxHintKeywords {
			kws = kws[:MaxHintKeywords]
		}
		kwLines = append(kwLines, fmt.Sprintf("- %s: %s", sub, strings.Join(kws, ", ")))
	}
	if len(kwLines) > 0 {
		sections = append(sections, "사용자가 자주 사용하는 키워드:\n"+strings.Join(kwLines, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

// TopCorrections returns up to n corrections by count descending. Ties keep
// the order in which the pairs were first recorded.
func TopCorrections(rec store.LearningRecord, n int) []store.Correction {
	out := make([]store.Correction, 0, len(rec.Corrections))
	for _, c := range rec.Corrections {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// keywordSubs lists subcategories with at least one keyword: taxonomy members
// in table order, then anything else sorted.
func keywordSubs(rec store.LearningRecord) []string {
	subs := make([]string, 0, len(rec.PreferredKeywords))
	for sub, kws := range rec.PreferredKeywords {
		if len(kws) > 0 {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		ri, rj := taxonomy.Rank(taxonomy.Sub(subs[i])), taxonomy.Rank(taxonomy.Sub(subs[j]))
		switch {
		case ri >= 0 && rj >= 0:
			return ri < rj
		case ri >= 0:
			return true
		case rj >= 0:
			return false
		default:
			return subs[i] < subs[j]
		}
	})
	return subs
}
