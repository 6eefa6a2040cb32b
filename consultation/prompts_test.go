package consultation

import (
	"strings"
	"testing"

	"caringai-backend/patients"
)

func TestPromptsRenderPlaceholdersForAbsentFields(t *testing.T) {
	var empty patients.Patient

	cases := []struct {
		name  string
		got   string
		wants []string
	}{
		{"welcome", WelcomeMessage(empty), []string{"the patient"}},
		{"greeting", InterviewPrompt(StageGreeting, empty), []string{"the patient", "none reported"}},
		{"symptoms", InterviewPrompt(StageSymptoms, empty), []string{"the patient"}},
		{"late stage", InterviewPrompt(StageTreatment, empty), []string{"the patient"}},
		{"final diagnosis", FinalDiagnosisPrompt(empty, nil, "no change"),
			[]string{"the patient", "Unknown conditions based on the reported symptoms"}},
	}
	for _, tc := range cases {
		for _, want := range tc.wants {
			if !strings.Contains(tc.got, want) {
				t.Fatalf("%s: missing %q in %q", tc.name, want, tc.got)
			}
		}
	}
}

func TestPromptsInterpolatePatientFields(t *testing.T) {
	p := patients.Patient{
		Nickname:           "Jane",
		DateOfBirth:        "1990-01-01",
		Gender:             "female",
		MedicalHistory:     "asthma",
		Allergies:          "penicillin",
		CurrentMedications: "albuterol",
	}

	if got := WelcomeMessage(p); !strings.Contains(got, "Welcome Jane!") {
		t.Fatalf("welcome: %q", got)
	}

	got := InterviewPrompt(StageGreeting, p)
	for _, want := range []string{"Jane", "1990-01-01", "female", "asthma", "penicillin", "albuterol"} {
		if !strings.Contains(got, want) {
			t.Fatalf("greeting missing %q: %q", want, got)
		}
	}
	if strings.Contains(got, "none reported") {
		t.Fatalf("placeholder used despite populated fields: %q", got)
	}

	diags := []Diagnosis{{Name: "Migraine", Confidence: 72}}
	got = FinalDiagnosisPrompt(p, diags, "light does bother me")
	if !strings.Contains(got, "Migraine (72% confidence)") {
		t.Fatalf("diagnoses missing: %q", got)
	}
	if !strings.Contains(got, `"light does bother me"`) {
		t.Fatalf("latest answer missing: %q", got)
	}
}

func TestFormatDiagnosisList(t *testing.T) {
	diags := []Diagnosis{
		{Name: "Migraine", Confidence: 72},
		{Name: "Tension headache", Confidence: 40},
	}
	got := FormatDiagnosisList(diags)
	if got != "Migraine (72% confidence), Tension headache (40% confidence)" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDiagnosisList(nil); got != "Unknown conditions based on the reported symptoms" {
		t.Fatalf("empty list: %q", got)
	}
}
