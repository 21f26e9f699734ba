package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/diary/pkg/diary/store"
	"github.com/cognicore/diary/pkg/diary/store/storetest"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "diary.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return st
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "diary.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	e, err := st.CreateEntry(ctx, store.Entry{UserID: "u1", Content: "남겨둘 기록"})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if err := st.IncrementCorrection(ctx, "u1", "계획", "목표", time.Now()); err != nil {
		t.Fatalf("IncrementCorrection: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, err := st.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Content != "남겨둘 기록" || got.Analysis != nil {
		t.Fatalf("entry = %+v", got)
	}
	rec, err := st.GetLearning(ctx, "u1")
	if err != nil {
		t.Fatalf("GetLearning: %v", err)
	}
	if rec.CorrectionCount("계획", "목표") != 1 {
		t.Fatalf("corrections = %+v", rec.Corrections)
	}
}

func TestDeleteEntriesEmpty(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	n, err := st.DeleteEntries(context.Background(), "u1", nil)
	if err != nil || n != 0 {
		t.Fatalf("DeleteEntries(nil) = %d, %v", n, err)
	}
}
