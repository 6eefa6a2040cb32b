package consultation

import (
	"strings"
	"sync"
	"time"

	"caringai-backend/llm"
	"caringai-backend/patients"
)

// Stage is one step of the consultation's linear progression. Stages
// only move forward within a session.
type Stage string

const (
	StageGreeting     Stage = "greeting"
	StageSymptoms     Stage = "symptoms"
	StageDifferential Stage = "differential"
	StageTreatment    Stage = "treatment"
	StageReport       Stage = "report"
)

var stageOrder = map[Stage]int{
	StageGreeting:     0,
	StageSymptoms:     1,
	StageDifferential: 2,
	StageTreatment:    3,
	StageReport:       4,
}

// Before reports whether s precedes other in the consultation flow.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

// Phase tracks where the differential stage is within its own sub-flow.
type Phase string

const (
	PhaseInitial   Phase = "initial"
	PhaseQuestions Phase = "questions"
	PhaseComplete  Phase = "complete"
)

type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Message is one transcript entry. Stage records the stage the entry was
// produced in, so downstream consumers (report assembly in particular)
// filter by tag instead of scanning message text for keywords.
type Message struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"is_error,omitempty"`
}

// Diagnosis is one candidate extracted from differential-stage model
// output. Duplicates by name are possible; nothing dedups them.
type Diagnosis struct {
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
}

// Session is the aggregate for one running consultation. All mutation
// goes through the Machine's transition methods; views read through
// Snapshot.
type Session struct {
	ID      string
	Patient patients.Patient

	mu         sync.Mutex
	busy       bool
	closed     bool
	stage      Stage
	phase      Phase
	transcript []Message
	diagnoses  []Diagnosis
	createdAt  time.Time
	updatedAt  time.Time

	treatmentTimer *time.Timer
}

// View is a read-only projection of a Session.
type View struct {
	ID         string      `json:"id"`
	PatientID  string      `json:"patient_id"`
	Stage      Stage       `json:"stage"`
	Phase      Phase       `json:"phase"`
	Transcript []Message   `json:"transcript"`
	Diagnoses  []Diagnosis `json:"diagnoses"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:        s.ID,
		PatientID: s.Patient.ID,
		Stage:     s.stage,
		Phase:     s.phase,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	v.Transcript = make([]Message, len(s.transcript))
	copy(v.Transcript, s.transcript)
	v.Diagnoses = make([]Diagnosis, len(s.diagnoses))
	copy(v.Diagnoses, s.diagnoses)
	return v
}

// append records a transcript entry tagged with the current stage.
func (s *Session) append(sender Sender, content string, isError bool) Message {
	msg := Message{
		Sender:    sender,
		Content:   content,
		Stage:     s.stage,
		Timestamp: time.Now().UTC(),
		IsError:   isError,
	}
	s.transcript = append(s.transcript, msg)
	s.updatedAt = msg.Timestamp
	return msg
}

// advance moves the stage forward. Backward transitions are ignored;
// the progression is monotonic by construction.
func (s *Session) advance(to Stage) {
	if s.stage.Before(to) {
		s.stage = to
		s.updatedAt = time.Now().UTC()
	}
}

// turns maps the transcript onto alternating chat roles. The transcript
// is replayed verbatim, apologies included, so the model sees exactly
// what the patient saw.
func (s *Session) turns() []llm.Turn {
	out := make([]llm.Turn, 0, len(s.transcript))
	for _, m := range s.transcript {
		role := "assistant"
		if m.Sender == SenderUser {
			role = "user"
		}
		out = append(out, llm.Turn{Role: role, Content: m.Content})
	}
	return out
}

// symptomsText joins every user entry so far, the same source text that
// is handed to the research upstream.
func (s *Session) symptomsText() string {
	var parts []string
	for _, m := range s.transcript {
		if m.Sender == SenderUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, " ")
}

// CancelTimers stops the pending treatment auto-continuation and marks
// the session closed. Called on teardown; a continuation that already
// fired and is mid-call sees the closed flag and discards its result
// instead of appending to a dead session.
func (s *Session) CancelTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.treatmentTimer != nil {
		s.treatmentTimer.Stop()
		s.treatmentTimer = nil
	}
}
