package store

import (
	"reflect"
	"testing"
	"time"
)

func TestUnionStrings(t *testing.T) {
	got := UnionStrings([]string{"헬스", "건강"}, []string{"건강", "피트니스", "헬스", "피트니스"})
	want := []string{"헬스", "건강", "피트니스"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UnionStrings = %v, want %v", got, want)
	}
}

func TestLearningRecordHelpers(t *testing.T) {
	rec := NewLearningRecord("u1", time.Unix(0, 0))
	if !rec.Empty() {
		t.Fatal("new record should be empty")
	}

	rec.PreferredKeywords["운동"] = []string{}
	if !rec.Empty() {
		t.Fatal("record with only empty keyword sets should be empty")
	}

	rec.Corrections = append(rec.Corrections, Correction{From: "계획", To: "목표", Count: 3})
	if rec.Empty() {
		t.Fatal("record with corrections is not empty")
	}
	if rec.CorrectionCount("계획", "목표") != 3 {
		t.Fatal("wrong correction count")
	}
	if rec.CorrectionCount("목표", "계획") != 0 {
		t.Fatal("pairs are ordered")
	}

	clone := rec.Clone()
	clone.Corrections[0].Count = 99
	clone.PreferredKeywords["운동"] = append(clone.PreferredKeywords["운동"], "헬스")
	if rec.Corrections[0].Count != 3 || len(rec.PreferredKeywords["운동"]) != 0 {
		t.Fatal("Clone shares state with the original")
	}
}
