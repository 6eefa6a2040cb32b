package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"caringai-backend/consultation"
	"caringai-backend/llm"
	"caringai-backend/patients"
)

const notSpecified = "Not specified"

// Gateway is the slice of the LLM layer report generation needs.
type Gateway interface {
	Converse(ctx context.Context, tier llm.ModelTier, system string, transcript []llm.Turn) (string, error)
}

// KeyInfo is the material the summarization prompt is built from,
// selected by each entry's stage tag rather than by keyword scanning.
type KeyInfo struct {
	ChiefComplaint string
	DiagnosisNotes []string
	TreatmentNotes []string
	FollowUp       []string
}

// ExtractKeyInfo walks the transcript once. Apology entries are noise
// and are skipped everywhere.
func ExtractKeyInfo(transcript []consultation.Message) KeyInfo {
	info := KeyInfo{ChiefComplaint: notSpecified}

	var systems []consultation.Message
	for _, m := range transcript {
		if m.IsError {
			continue
		}
		if m.Sender == consultation.SenderUser {
			if info.ChiefComplaint == notSpecified {
				info.ChiefComplaint = m.Content
			}
			continue
		}
		systems = append(systems, m)
	}
	for _, m := range systems {
		switch m.Stage {
		case consultation.StageDifferential:
			info.DiagnosisNotes = append(info.DiagnosisNotes, m.Content)
		case consultation.StageTreatment, consultation.StageReport:
			info.TreatmentNotes = append(info.TreatmentNotes, m.Content)
		}
	}
	start := len(systems) - 2
	if start < 0 {
		start = 0
	}
	for _, m := range systems[start:] {
		info.FollowUp = append(info.FollowUp, m.Content)
	}
	return info
}

// Builder turns a finished (or abandoned) consultation into a document.
type Builder struct {
	GW Gateway
}

// Document is the rendered output in both shapes the API serves.
type Document struct {
	Filename string
	HTML     string
	PDF      []byte
}

// Build always produces a document. If the summarization call fails,
// the body is assembled locally from the extracted sections instead of
// failing the export.
func (b *Builder) Build(ctx context.Context, p patients.Patient, transcript []consultation.Message) (*Document, error) {
	info := ExtractKeyInfo(transcript)

	body, err := b.GW.Converse(ctx, llm.TierFull, summaryPrompt(p, info), nil)
	if err != nil || strings.TrimSpace(body) == "" {
		if err != nil {
			log.Printf("[report][summary] falling back to local assembly patient=%s err=%v", p.ID, err)
		}
		body = localSummary(info)
	}

	html, err := wrapDocument(p, ToHTML(body))
	if err != nil {
		return nil, err
	}
	pdf, err := RenderPDF(p, body)
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename: fmt.Sprintf("%s_Medical_Report.pdf", sanitizeFilename(p.Nickname)),
		HTML:     html,
		PDF:      pdf,
	}, nil
}

func orNotSpecified(parts []string) string {
	if len(parts) == 0 {
		return notSpecified
	}
	return strings.Join(parts, "\n\n")
}

func summaryPrompt(p patients.Patient, info KeyInfo) string {
	name := p.Nickname
	if strings.TrimSpace(name) == "" {
		name = "the patient"
	}
	return fmt.Sprintf(`You are Dr. CaringAI, an AI doctor. Write a report for %s.
Create a comprehensive medical report with all key details needed for a human doctor to understand the patient's condition and our analysis.

The patient's chief complaint is: %q

The diagnostic process found:
%s

The treatment recommendations were:
%s

Additional follow-up information:
%s

Format this as a professional medical document with clear sections for:
1. Patient information
2. Chief complaint
3. Diagnosis
4. Treatment Plan
5. Follow-up Recommendations`,
		name, info.ChiefComplaint,
		orNotSpecified(info.DiagnosisNotes),
		orNotSpecified(info.TreatmentNotes),
		orNotSpecified(info.FollowUp))
}

// localSummary is the no-upstream fallback body.
func localSummary(info KeyInfo) string {
	var b strings.Builder
	b.WriteString("## Chief Complaint\n\n")
	b.WriteString(info.ChiefComplaint + "\n\n")
	b.WriteString("## Diagnosis\n\n")
	b.WriteString(orNotSpecified(info.DiagnosisNotes) + "\n\n")
	b.WriteString("## Treatment Plan\n\n")
	b.WriteString(orNotSpecified(info.TreatmentNotes) + "\n\n")
	b.WriteString("## Follow-up Recommendations\n\n")
	b.WriteString(orNotSpecified(info.FollowUp))
	return b.String()
}

var docTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Medical Consultation Report - {{.Name}}</title>
<style>
body { font-family: 'Helvetica', 'Arial', sans-serif; color: #333; line-height: 1.6; }
.container { max-width: 800px; margin: 0 auto; padding: 20px; }
h1 { color: #2c3e50; text-align: center; font-size: 24px; }
h2 { color: #3498db; font-size: 18px; border-bottom: 1px solid #eee; padding-bottom: 5px; }
h3 { color: #2c3e50; font-size: 16px; }
.header { text-align: center; margin-bottom: 20px; padding-bottom: 15px; border-bottom: 2px solid #3498db; }
.patient-info { background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin-bottom: 20px; border-left: 4px solid #3498db; }
.footer { text-align: center; margin-top: 30px; font-size: 0.8em; color: #7f8c8d; border-top: 1px solid #eee; }
</style>
</head>
<body>
<div class="container">
<div class="header">
<h1>Medical Consultation Report</h1>
<p>Dr. CaringAI Virtual Healthcare Assistant</p>
<p>Date: {{.Date}}</p>
</div>
<div class="patient-info">
<h2>Patient Information</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Date of Birth:</strong> {{.DateOfBirth}}</p>
<p><strong>Gender:</strong> {{.Gender}}</p>
</div>
<div class="report-content">{{.Body}}</div>
<div class="footer">
<p>This report was generated by Dr. CaringAI, an AI virtual healthcare assistant on {{.Generated}}.</p>
<p><strong>Disclaimer:</strong> This is not a substitute for professional medical advice, diagnosis, or treatment. Always seek the advice of your physician or other qualified health provider with any questions you may have regarding a medical condition.</p>
</div>
</div>
</body>
</html>`))

func wrapDocument(p patients.Patient, bodyHTML string) (string, error) {
	now := time.Now()
	var buf bytes.Buffer
	err := docTemplate.Execute(&buf, struct {
		Name, DateOfBirth, Gender, Date, Generated string
		Body                                       template.HTML
	}{
		Name:        p.Nickname,
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
		Date:        now.Format("January 2, 2006"),
		Generated:   now.Format("January 2, 2006 15:04"),
		Body:        template.HTML(bodyHTML),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Patient"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "Patient"
	}
	return b.String()
}
