// Package storetest holds behaviour checks shared by every store.Store
// backend.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/diary/pkg/diary/analysis"
	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/store"
	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

// Run exercises open() against the store.Store contract. open must return a
// fresh, empty store; Run closes it.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("entries", func(t *testing.T) { testEntries(t, open(t)) })
	t.Run("learning", func(t *testing.T) { testLearning(t, open(t)) })
	t.Run("concurrent increments", func(t *testing.T) { testConcurrentIncrements(t, open(t)) })
	t.Run("concurrent first union", func(t *testing.T) { testConcurrentUnion(t, open(t)) })
}

func sample(sub taxonomy.Sub) *analysis.Result {
	primary, _ := taxonomy.ResolvePrimary(sub)
	return &analysis.Result{
		PrimaryCategory: primary,
		SubCategory:     sub,
		Category:        sub,
		Keywords:        []string{"기록"},
		Sentiment:       analysis.Positive,
		EmotionScore:    0.5,
		Interpretation:  "좋은 하루",
		Source:          analysis.SourceRemote,
	}
}

func testEntries(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	var ids []string
	for i, sub := range []taxonomy.Sub{taxonomy.Exercise, taxonomy.Exercise, taxonomy.Dream} {
		e, err := s.CreateEntry(ctx, store.Entry{
			UserID:    "u1",
			Content:   fmt.Sprintf("기록 %d", i),
			Analysis:  sample(sub),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NotEmpty(t, e.ID)
		ids = append(ids, e.ID)
	}
	_, err := s.CreateEntry(ctx, store.Entry{UserID: "u2", Content: "other", CreatedAt: base})
	require.NoError(t, err)

	got, err := s.GetEntry(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "기록 0", got.Content)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, taxonomy.Exercise, got.Analysis.SubCategory)
	assert.Equal(t, 0.5, got.Analysis.EmotionScore)
	assert.True(t, got.CreatedAt.Equal(base))

	recent, err := s.ListRecent(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)

	all, err := s.ListRecent(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := s.CountByCategory(ctx, "u1", string(taxonomy.Exercise))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	revised := sample(taxonomy.Plan)
	updated, err := s.UpdateEntry(ctx, ids[0], store.EntryUpdate{Analysis: revised})
	require.NoError(t, err)
	assert.Equal(t, "기록 0", updated.Content)
	assert.Equal(t, taxonomy.Plan, updated.Analysis.SubCategory)

	n, err = s.CountByCategory(ctx, "u1", string(taxonomy.Exercise))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.UpdateEntry(ctx, "missing", store.EntryUpdate{})
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	// Another user's ids are not theirs to delete.
	deleted, err := s.DeleteEntries(ctx, "u2", []string{ids[0]})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	deleted, err = s.DeleteEntries(ctx, "u1", []string{ids[0], ids[1], "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = s.GetEntry(ctx, ids[0])
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	cleared, err := s.DeleteUserEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	left, err := s.ListRecent(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, left)

	others, err := s.ListRecent(ctx, "u2", 0)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "other", others[0].Content)

	cleared, err = s.DeleteUserEntries(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
}

func testLearning(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := s.GetLearning(ctx, "u1")
	require.ErrorIs(t, err, internalerr.ErrNotFound)

	require.NoError(t, s.IncrementCorrection(ctx, "u1", "계획", "목표", at))
	require.NoError(t, s.IncrementCorrection(ctx, "u1", "일상", "운동", at))
	require.NoError(t, s.IncrementCorrection(ctx, "u1", "계획", "목표", at.Add(time.Second)))
	require.NoError(t, s.UnionKeywords(ctx, "u1", "운동", []string{"헬스", "건강"}, at))
	require.NoError(t, s.UnionKeywords(ctx, "u1", "운동", []string{"건강", "피트니스"}, at))

	rec, err := s.GetLearning(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rec.Corrections, 2)
	assert.Equal(t, store.Correction{From: "계획", To: "목표", Count: 2}, rec.Corrections[0])
	assert.Equal(t, store.Correction{From: "일상", To: "운동", Count: 1}, rec.Corrections[1])
	assert.Equal(t, []string{"헬스", "건강", "피트니스"}, rec.PreferredKeywords["운동"])

	err = s.CreateLearning(ctx, store.NewLearningRecord("u1", at))
	assert.ErrorIs(t, err, internalerr.ErrDuplicate)

	fresh := store.NewLearningRecord("u2", at)
	fresh.Corrections = append(fresh.Corrections, store.Correction{From: "꿈", To: "감정", Count: 4})
	fresh.PreferredKeywords["꿈"] = []string{"악몽"}
	require.NoError(t, s.CreateLearning(ctx, fresh))

	rec, err = s.GetLearning(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 4, rec.CorrectionCount("꿈", "감정"))
	assert.Equal(t, []string{"악몽"}, rec.PreferredKeywords["꿈"])
}

func testConcurrentIncrements(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	at := time.Now().UTC()

	const workers = 8
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return s.IncrementCorrection(ctx, "u1", "계획", "목표", at)
		})
	}
	require.NoError(t, g.Wait())

	rec, err := s.GetLearning(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, workers, rec.CorrectionCount("계획", "목표"))
	assert.Len(t, rec.Corrections, 1)
}

func testConcurrentUnion(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	at := time.Now().UTC()

	var g errgroup.Group
	g.Go(func() error { return s.UnionKeywords(ctx, "u1", "운동", []string{"헬스", "건강"}, at) })
	g.Go(func() error { return s.UnionKeywords(ctx, "u1", "운동", []string{"건강", "러닝"}, at) })
	require.NoError(t, g.Wait())

	rec, err := s.GetLearning(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"헬스", "건강", "러닝"}, rec.PreferredKeywords["운동"])
}
