package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/store"
	"github.com/cognicore/diary/pkg/diary/store/memstore"
)

var fixedNow = time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*Store, *memstore.Store) {
	t.Helper()
	mem := memstore.New()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(mem, opts...), mem
}

func TestGetRecordCreatesLazily(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	rec := s.GetRecord(ctx, "u1")
	assert.Equal(t, "u1", rec.UserID)
	assert.True(t, rec.Empty())
	assert.True(t, rec.LastUpdated.Equal(fixedNow))

	stored, err := mem.GetLearning(ctx, "u1")
	require.NoError(t, err, "record should be persisted on first read")
	assert.True(t, stored.Empty())
}

func TestConcurrentCorrectionsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			s.RecordCorrection(ctx, "u1", "계획", "목표")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	rec := s.GetRecord(ctx, "u1")
	assert.Equal(t, 2, rec.CorrectionCount("계획", "목표"))
}

func TestRecordCorrectionIgnoresNoOps(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	s.RecordCorrection(ctx, "u1", "운동", "운동")
	s.RecordCorrection(ctx, "u1", "", "운동")
	s.RecordCorrection(ctx, "u1", "운동", "  ")

	_, err := mem.GetLearning(ctx, "u1")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
}

func TestRecordKeywordPatternUnions(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	s.RecordKeywordPattern(ctx, "u1", "운동", []string{"헬스", "건강", " 헬스 "})
	s.RecordKeywordPattern(ctx, "u1", "운동", []string{"건강", "피트니스", ""})

	rec := s.GetRecord(ctx, "u1")
	assert.Equal(t, []string{"헬스", "건강", "피트니스"}, rec.PreferredKeywords["운동"])
}

func TestGenerateHintsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, "", s.GenerateHints(context.Background(), "nobody"))
}

func TestGenerateHintsFormat(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	s.RecordCorrection(ctx, "u1", "일상", "운동")
	s.RecordCorrection(ctx, "u1", "계획", "목표")
	s.RecordCorrection(ctx, "u1", "계획", "목표")
	s.RecordKeywordPattern(ctx, "u1", "공부", []string{"학습", "독서", "강의", "시험", "과제", "도서관"})
	s.RecordKeywordPattern(ctx, "u1", "운동", []string{"헬스"})

	want := "사용자 선호 카테고리 패턴:\n" +
		"- \"계획\"보다 \"목표\" 선호 (2회 수정)\n" +
		"- \"일상\"보다 \"운동\" 선호 (1회 수정)\n" +
		"\n" +
		"사용자가 자주 사용하는 키워드:\n" +
		"- 운동: 헬스\n" +
		"- 공부: 학습, 독서, 강의, 시험, 과제"
	assert.Equal(t, want, s.GenerateHints(ctx, "u1"))
}

func TestTopCorrectionsTiesKeepFirstRecorded(t *testing.T) {
	rec := store.NewLearningRecord("u1", fixedNow)
	for i, pair := range [][2]string{{"a", "b"}, {"c", "d"}, {"e", "f"}, {"g", "h"}, {"i", "j"}, {"k", "l"}, {"m", "n"}} {
		count := 1
		if i == 3 {
			count = 5
		}
		rec.Corrections = append(rec.Corrections, store.Correction{From: pair[0], To: pair[1], Count: count})
	}

	top := TopCorrections(rec, MaxHintCorrections)
	require.Len(t, top, 5)
	assert.Equal(t, "g", top[0].From)
	assert.Equal(t, []string{"a", "c", "e", "i"}, []string{top[1].From, top[2].From, top[3].From, top[4].From})
}

func TestKeywordSubsOrder(t *testing.T) {
	rec := store.NewLearningRecord("u1", fixedNow)
	rec.PreferredKeywords["연애"] = []string{"데이트"}
	rec.PreferredKeywords["건강"] = []string{"병원"}
	rec.PreferredKeywords["꿈"] = []string{"악몽"}
	rec.PreferredKeywords["공부"] = []string{}
	rec.PreferredKeywords["가족"] = []string{"엄마"}

	assert.Equal(t, []string{"꿈", "가족", "연애", "건강"}, keywordSubs(rec))
}

func TestHintsCachedUntilMutation(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	s.RecordCorrection(ctx, "u1", "계획", "목표")
	first := s.GenerateHints(ctx, "u1")
	require.Contains(t, first, "(1회 수정)")

	// Bypass the Store: the cached text is served.
	require.NoError(t, mem.IncrementCorrection(ctx, "u1", "계획", "목표", fixedNow))
	assert.Equal(t, first, s.GenerateHints(ctx, "u1"))

	// Going through the Store evicts.
	s.RecordCorrection(ctx, "u1", "계획", "목표")
	assert.Contains(t, s.GenerateHints(ctx, "u1"), "(3회 수정)")
}

func TestCacheDisabled(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t, WithCacheTTL(0))

	s.RecordCorrection(ctx, "u1", "계획", "목표")
	_ = s.GenerateHints(ctx, "u1")
	require.NoError(t, mem.IncrementCorrection(ctx, "u1", "계획", "목표", fixedNow))
	assert.Contains(t, s.GenerateHints(ctx, "u1"), "(2회 수정)")
}

// brokenRecords fails every call.
type brokenRecords struct{}

var errDown = errors.New("connection refused")

func (brokenRecords) GetLearning(context.Context, string) (store.LearningRecord, error) {
	return store.LearningRecord{}, errDown
}
func (brokenRecords) CreateLearning(context.Context, store.LearningRecord) error { return errDown }
func (brokenRecords) IncrementCorrection(context.Context, string, string, string, time.Time) error {
	return errDown
}
func (brokenRecords) UnionKeywords(context.Context, string, string, []string, time.Time) error {
	return errDown
}

func TestDegradesOnPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	s := New(brokenRecords{})

	rec := s.GetRecord(ctx, "u1")
	assert.Equal(t, "u1", rec.UserID)
	assert.True(t, rec.Empty())

	assert.NotPanics(t, func() {
		s.RecordCorrection(ctx, "u1", "계획", "목표")
		s.RecordKeywordPattern(ctx, "u1", "운동", []string{"헬스"})
	})
	assert.Equal(t, "", s.GenerateHints(ctx, "u1"))
}

// racingRecords reports not-found once, then loses the create race to a
// concurrent writer.
type racingRecords struct {
	*memstore.Store
	reads int
}

func (r *racingRecords) GetLearning(ctx context.Context, userID string) (store.LearningRecord, error) {
	r.reads++
	if r.reads == 1 {
		_ = r.Store.IncrementCorrection(ctx, userID, "꿈", "감정", fixedNow)
		return store.LearningRecord{}, internalerr.ErrNotFound
	}
	return r.Store.GetLearning(ctx, userID)
}

func TestGetRecordRereadsAfterDuplicate(t *testing.T) {
	r := &racingRecords{Store: memstore.New()}
	s := New(r)

	rec := s.GetRecord(context.Background(), "u1")
	assert.Equal(t, 1, rec.CorrectionCount("꿈", "감정"))
	assert.Equal(t, 2, r.reads)
}
