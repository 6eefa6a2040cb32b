package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"caringai-backend/consultation"
	"caringai-backend/llm"
	"caringai-backend/patients"
)

var jane = patients.Patient{
	ID:          "p-1",
	Nickname:    "Jane Doe",
	DateOfBirth: "1990-01-01",
	Gender:      "female",
}

func sampleTranscript() []consultation.Message {
	return []consultation.Message{
		{Sender: consultation.SenderSystem, Content: "Welcome Jane!", Stage: consultation.StageGreeting},
		{Sender: consultation.SenderUser, Content: "I have a severe headache and nausea", Stage: consultation.StageGreeting},
		{Sender: consultation.SenderSystem, Content: "Tell me more.", Stage: consultation.StageGreeting},
		{Sender: consultation.SenderUser, Content: "it started two days ago", Stage: consultation.StageSymptoms},
		{Sender: consultation.SenderSystem, Content: "I'm sorry, I encountered an error.", Stage: consultation.StageSymptoms, IsError: true},
		{Sender: consultation.SenderSystem, Content: "1. **Migraine** (72% confidence)", Stage: consultation.StageDifferential},
		{Sender: consultation.SenderUser, Content: "light does bother me", Stage: consultation.StageDifferential},
		{Sender: consultation.SenderSystem, Content: "Final diagnosis: Migraine.", Stage: consultation.StageDifferential},
		{Sender: consultation.SenderSystem, Content: "## Treatment Plan\n- rest in a dark room", Stage: consultation.StageTreatment},
	}
}

func TestExtractKeyInfoByStageTags(t *testing.T) {
	info := ExtractKeyInfo(sampleTranscript())

	if info.ChiefComplaint != "I have a severe headache and nausea" {
		t.Fatalf("chief complaint: %q", info.ChiefComplaint)
	}
	if len(info.DiagnosisNotes) != 2 {
		t.Fatalf("diagnosis notes: %+v", info.DiagnosisNotes)
	}
	if len(info.TreatmentNotes) != 1 || !strings.Contains(info.TreatmentNotes[0], "Treatment Plan") {
		t.Fatalf("treatment notes: %+v", info.TreatmentNotes)
	}
	if len(info.FollowUp) != 2 {
		t.Fatalf("follow-up should hold last two system entries: %+v", info.FollowUp)
	}
	for _, n := range append(info.DiagnosisNotes, info.FollowUp...) {
		if strings.Contains(n, "encountered an error") {
			t.Fatalf("apology entry leaked into report: %q", n)
		}
	}
}

func TestExtractKeyInfoEmptyTranscript(t *testing.T) {
	info := ExtractKeyInfo(nil)
	if info.ChiefComplaint != "Not specified" {
		t.Fatalf("chief complaint: %q", info.ChiefComplaint)
	}
	if len(info.DiagnosisNotes) != 0 || len(info.TreatmentNotes) != 0 || len(info.FollowUp) != 0 {
		t.Fatalf("expected empty sections: %+v", info)
	}
}

type stubGateway struct {
	reply string
	err   error
	calls int
}

func (g *stubGateway) Converse(ctx context.Context, tier llm.ModelTier, system string, transcript []llm.Turn) (string, error) {
	g.calls++
	return g.reply, g.err
}

func TestBuildRendersBothShapes(t *testing.T) {
	b := &Builder{GW: &stubGateway{reply: "# Medical Report\n## Diagnosis\nMigraine with aura."}}
	doc, err := b.Build(context.Background(), jane, sampleTranscript())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.Filename != "Jane_Doe_Medical_Report.pdf" {
		t.Fatalf("filename: %q", doc.Filename)
	}
	for _, want := range []string{"<h2>Diagnosis</h2>", "Jane Doe", "1990-01-01", "not a substitute for professional medical advice"} {
		if !strings.Contains(doc.HTML, want) {
			t.Fatalf("html missing %q", want)
		}
	}
	if !bytes.HasPrefix(doc.PDF, []byte("%PDF")) {
		t.Fatalf("pdf output not a PDF, starts with %q", doc.PDF[:8])
	}
}

func TestBuildFallsBackToLocalSummary(t *testing.T) {
	gw := &stubGateway{err: errors.New("upstream down")}
	b := &Builder{GW: gw}
	doc, err := b.Build(context.Background(), jane, sampleTranscript())
	if err != nil {
		t.Fatalf("build must not fail on summary error: %v", err)
	}
	if gw.calls != 1 {
		t.Fatalf("expected one summarization attempt, got %d", gw.calls)
	}
	for _, want := range []string{"Chief Complaint", "severe headache", "Treatment Plan"} {
		if !strings.Contains(doc.HTML, want) {
			t.Fatalf("local summary missing %q", want)
		}
	}
	if len(doc.PDF) == 0 {
		t.Fatalf("pdf empty")
	}
}

func TestBuildBlankSummaryUsesLocal(t *testing.T) {
	b := &Builder{GW: &stubGateway{reply: "  \n"}}
	doc, err := b.Build(context.Background(), jane, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(doc.HTML, "Not specified") {
		t.Fatalf("empty sections not filled: %s", doc.HTML)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":   "Jane_Doe",
		"  ":         "Patient",
		"a/b\\c":     "abc",
		"José–María": "JosMara",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
