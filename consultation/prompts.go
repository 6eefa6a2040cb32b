package consultation

import (
	"fmt"
	"strings"
	"time"

	"caringai-backend/patients"
)

// Prompt construction for each clinical task. These are pure string
// builders: no I/O, and absent patient fields render as placeholders
// rather than breaking the template.

const persona = "Dr. CaringAI"

func field(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "none reported"
	}
	return v
}

func nickname(p patients.Patient) string {
	if strings.TrimSpace(p.Nickname) == "" {
		return "the patient"
	}
	return p.Nickname
}

// WelcomeMessage opens every consultation.
func WelcomeMessage(p patients.Patient) string {
	return fmt.Sprintf("Welcome %s! I'm %s, your AI Doctor. What brings you in today and how may I help?", nickname(p), persona)
}

// InterviewPrompt covers the greeting and symptom-gathering stages.
func InterviewPrompt(stage Stage, p patients.Patient) string {
	switch stage {
	case StageGreeting:
		return fmt.Sprintf(`You are %s, an AI-powered doctor. You are interviewing a patient named %s who is %s and was born on %s. Today's date is %s, find approximate age of patient, and use it in your risk assessment. Patient's medical history: %s - Patient's allergies: %s - Patient's current medications: %s
Your job is to interview them and gather further information in a compassionate and professional manner.
Ask relevant follow-up questions focused on understanding their symptoms.`,
			persona, nickname(p), field(p.Gender), field(p.DateOfBirth), time.Now().Format("January 2, 2006"),
			field(p.MedicalHistory), field(p.Allergies), field(p.CurrentMedications))
	case StageSymptoms:
		return fmt.Sprintf(`You are %s, an AI-powered doctor interviewing %s.
You have already asked initial questions about their chief complaint. Now you need to ask more specific questions to build a complete clinical picture.
You should ask 2-3 targeted questions at a time based on their previous responses.
Be medically accurate and focused. Ask about duration, severity, and any factors that make symptoms better or worse.`,
			persona, nickname(p))
	}
	return fmt.Sprintf("You are %s, an AI-powered doctor helping %s.", persona, nickname(p))
}

// DiagnosesPrompt asks for candidate diagnoses with confidence levels.
// The fenced JSON block gives the parser a structured path; the prose
// list is what the patient actually reads.
func DiagnosesPrompt() string {
	return fmt.Sprintf(`You are %s, a diagnostic AI doctor. Based on the patient's reported symptoms,
generate a list of 3 possible diagnoses with confidence levels and provide a brief explanation of each diagnosis.
After your explanation, include the diagnoses in a fenced JSON code block of the form:
`+"```json"+`
{"diagnoses": [{"name": "Condition", "confidence": 70}]}
`+"```", persona)
}

// RetryDiagnosesPrompt is the stricter follow-up used when no diagnosis
// could be extracted from the first differential reply.
func RetryDiagnosesPrompt() string {
	return fmt.Sprintf(`You are %s. Please analyze the patient's symptoms again and provide
three potential diagnoses with confidence levels. Be sure to format as a clear list, one line per diagnosis,
each ending with its confidence percentage (for example "Migraine - 70%%").`, persona)
}

// FinalDiagnosisPrompt synthesizes a single diagnosis after the patient
// has answered the differential questions.
func FinalDiagnosisPrompt(p patients.Patient, diagnoses []Diagnosis, latestAnswer string) string {
	return fmt.Sprintf(`You are %s, a diagnostic AI doctor. Based on the entire conversation history,
including the patient's responses to differential questions, determine the final diagnosis for %s.
The patient initially reported symptoms, and we've been discussing potential diagnoses including: %s.

After asking differential questions, the patient's latest response was: %q

Provide a final diagnosis with confidence and explain your reasoning. Be medically accurate and thorough.
First, state the final diagnosis clearly. Then explain why this is the most likely diagnosis based on all information.
Include a brief mention of what diagnoses have been ruled out and why.`,
		persona, nickname(p), FormatDiagnosisList(diagnoses), latestAnswer)
}

// TreatmentPlanPrompt drives the automatic continuation after the final
// diagnosis has been delivered.
func TreatmentPlanPrompt() string {
	return fmt.Sprintf(`You are %s, an AI doctor. The patient has been diagnosed with
a condition. Based on this diagnosis and the entire conversation history, provide a treatment plan (based on patient's preference), and explain next steps.
Include medications if appropriate, lifestyle recommendations, and when to seek follow-up care.
Be medically accurate, thorough, and compassionate. Format your response clearly with sections for:
1. Treatment Plan
2. Lifestyle Recommendations
3. Follow-up Care
4. When to Seek Immediate Medical Attention`, persona)
}

// FollowUpPrompt answers free-form questions once the diagnosis is
// settled.
func FollowUpPrompt(question string) string {
	return fmt.Sprintf(`You are %s, an AI doctor. The patient has already been diagnosed and
received a treatment plan. This is a follow-up question from the patient: %q

Provide a helpful, medically accurate response. Be compassionate but professional.`, persona, question)
}

// FormatDiagnosisList renders candidates the way prompts embed them:
// "Migraine (72% confidence), Tension headache (40% confidence)".
func FormatDiagnosisList(diagnoses []Diagnosis) string {
	if len(diagnoses) == 0 {
		return "Unknown conditions based on the reported symptoms"
	}
	parts := make([]string, 0, len(diagnoses))
	for _, d := range diagnoses {
		parts = append(parts, fmt.Sprintf("%s (%d%% confidence)", d.Name, d.Confidence))
	}
	return strings.Join(parts, ", ")
}
