package admin

import (
	"testing"

	"caringai-backend/consultation"
)

func TestRankDiagnoses(t *testing.T) {
	lists := [][]consultation.Diagnosis{
		{{Name: "Migraine", Confidence: 72}, {Name: "Tension headache", Confidence: 40}},
		{{Name: "migraine", Confidence: 65}},
		{{Name: "MIGRAINE", Confidence: 80}, {Name: "Cluster headache", Confidence: 15}},
		{{Name: "  ", Confidence: 50}},
	}

	got := rankDiagnoses(lists, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %+v", got)
	}
	if got[0].Name != "Migraine" || got[0].Count != 3 {
		t.Fatalf("case-insensitive count wrong: %+v", got[0])
	}
	// Ties broken alphabetically.
	if got[1].Name != "Cluster headache" || got[2].Name != "Tension headache" {
		t.Fatalf("tie break wrong: %+v", got[1:])
	}
}

func TestRankDiagnosesLimit(t *testing.T) {
	lists := [][]consultation.Diagnosis{
		{{Name: "A"}, {Name: "B"}, {Name: "C"}},
	}
	got := rankDiagnoses(lists, 2)
	if len(got) != 2 {
		t.Fatalf("limit not applied: %+v", got)
	}
}

func TestRankDiagnosesEmpty(t *testing.T) {
	if got := rankDiagnoses(nil, 10); len(got) != 0 {
		t.Fatalf("expected empty, got %+v", got)
	}
}
