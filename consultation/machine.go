package consultation

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"caringai-backend/llm"
	"caringai-backend/patients"
)

// ErrBusy is returned when a message arrives while a previous gateway
// call for the same session is still in flight. The caller surfaces it
// as a conflict; nothing is appended and no stage changes.
var ErrBusy = errors.New("consultation busy")

const apologyMessage = "I'm sorry, I encountered an error processing your request. Please try again or reload the page."

// Gateway is the slice of the LLM layer the machine needs.
type Gateway interface {
	Converse(ctx context.Context, tier llm.ModelTier, system string, transcript []llm.Turn) (string, error)
	ResearchDifferential(ctx context.Context, symptoms string, diagnoses []string) (string, error)
}

// Machine owns every stage transition. Sessions hold the data; the
// machine decides which prompt and model each stage runs and what the
// transcript gains from the result.
type Machine struct {
	gw Gateway

	// TreatmentDelay separates the final diagnosis from the automatic
	// treatment-plan continuation so the patient sees the diagnosis
	// land first. Overridable via TREATMENT_DELAY_MS for tests.
	TreatmentDelay time.Duration

	// OnUpdate, when set, runs after the machine finishes mutating a
	// session (including the delayed treatment continuation). Used to
	// persist turns.
	OnUpdate func(s *Session)
}

func NewMachine(gw Gateway) *Machine {
	delay := 2 * time.Second
	if v := os.Getenv("TREATMENT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			delay = time.Duration(n) * time.Millisecond
		}
	}
	return &Machine{gw: gw, TreatmentDelay: delay}
}

// Open starts a session at the greeting stage with the welcome message
// already on the transcript.
func (m *Machine) Open(p patients.Patient) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		Patient:   p,
		stage:     StageGreeting,
		phase:     PhaseInitial,
		createdAt: now,
		updatedAt: now,
	}
	s.append(SenderSystem, WelcomeMessage(p), false)
	return s
}

// Send drives one user turn through the current stage. A gateway
// failure is recoverable: the transcript gains a single apology entry
// and the stage stays put. Send itself only errors when the session is
// already processing a turn.
func (m *Machine) Send(ctx context.Context, s *Session, input string) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.append(SenderUser, input, false)
	stage, phase := s.stage, s.phase
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		m.notify(s)
	}()

	switch {
	case stage == StageGreeting:
		m.interviewTurn(ctx, s, StageSymptoms)
	case stage == StageSymptoms:
		m.interviewTurn(ctx, s, StageDifferential)
	case stage == StageDifferential && phase == PhaseInitial:
		m.differentialInitial(ctx, s)
	case stage == StageDifferential && phase == PhaseQuestions:
		m.differentialAnswer(ctx, s, input)
	default:
		// treatment and report: free-form follow-ups, no advancement.
		m.followUpTurn(ctx, s, input)
	}
	return nil
}

// interviewTurn runs the interview prompt for the current stage and
// advances to next on success.
func (m *Machine) interviewTurn(ctx context.Context, s *Session, next Stage) {
	s.mu.Lock()
	system := InterviewPrompt(s.stage, s.Patient)
	turns := s.turns()
	s.mu.Unlock()

	reply, err := m.gw.Converse(ctx, llm.TierFull, system, turns)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Printf("[consultation][%s] converse failed session=%s err=%v", s.stage, s.ID, err)
		s.append(SenderSystem, apologyMessage, true)
		return
	}
	s.append(SenderSystem, reply, false)
	s.advance(next)
}

// differentialInitial generates candidate diagnoses, then asks the
// research upstream for discriminating questions. A total extraction
// failure retries once with a stricter prompt and stays in this phase.
func (m *Machine) differentialInitial(ctx context.Context, s *Session) {
	s.mu.Lock()
	turns := s.turns()
	symptoms := s.symptomsText()
	s.mu.Unlock()

	reply, err := m.gw.Converse(ctx, llm.TierFull, DiagnosesPrompt(), turns)
	if err != nil {
		log.Printf("[consultation][differential] converse failed session=%s err=%v", s.ID, err)
		s.mu.Lock()
		s.append(SenderSystem, apologyMessage, true)
		s.mu.Unlock()
		return
	}

	diagnoses := ExtractDiagnoses(reply)
	if len(diagnoses) == 0 {
		log.Printf("[consultation][differential] no diagnoses extracted session=%s, retrying", s.ID)
		retry, err := m.gw.Converse(ctx, llm.TierFull, RetryDiagnosesPrompt(), turns)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.append(SenderSystem, apologyMessage, true)
			return
		}
		// Phase stays initial; the next user turn runs extraction again.
		s.append(SenderSystem, retry, false)
		return
	}

	// Parsing must never block advancement, and neither may the research
	// upstream: its failure path inside the gateway falls back to the
	// chat model, and if even that fails we show the diagnoses alone.
	display := FormatForDisplay(reply, diagnoses)
	names := make([]string, 0, len(diagnoses))
	for _, d := range diagnoses {
		names = append(names, FormatDiagnosisList([]Diagnosis{d}))
	}
	questions, qerr := m.gw.ResearchDifferential(ctx, symptoms, names)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnoses = diagnoses
	s.phase = PhaseQuestions
	if qerr != nil {
		log.Printf("[consultation][differential] research and fallback both failed session=%s err=%v", s.ID, qerr)
		s.append(SenderSystem, display, false)
		return
	}
	s.append(SenderSystem, display+"\n\n"+questions, false)
}

// differentialAnswer synthesizes the final diagnosis from the patient's
// answers, then schedules the treatment-plan continuation.
func (m *Machine) differentialAnswer(ctx context.Context, s *Session, answer string) {
	s.mu.Lock()
	system := FinalDiagnosisPrompt(s.Patient, s.diagnoses, answer)
	turns := s.turns()
	s.mu.Unlock()

	reply, err := m.gw.Converse(ctx, llm.TierFull, system, turns)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Printf("[consultation][diagnosis] converse failed session=%s err=%v", s.ID, err)
		s.append(SenderSystem, apologyMessage, true)
		return
	}
	s.append(SenderSystem, reply, false)
	s.phase = PhaseComplete
	s.advance(StageTreatment)

	// Let the diagnosis render before the plan follows. The timer is
	// held on the session so teardown can cancel it.
	s.treatmentTimer = time.AfterFunc(m.TreatmentDelay, func() { m.treatmentContinuation(s) })
}

// treatmentContinuation issues the treatment-plan prompt and moves the
// session to its terminal report stage.
func (m *Machine) treatmentContinuation(s *Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.busy {
		// A follow-up message is mid-flight; try again shortly.
		s.treatmentTimer = time.AfterFunc(200*time.Millisecond, func() { m.treatmentContinuation(s) })
		s.mu.Unlock()
		return
	}
	s.busy = true
	s.treatmentTimer = nil
	turns := s.turns()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	reply, err := m.gw.Converse(ctx, llm.TierFull, TreatmentPlanPrompt(), turns)

	s.mu.Lock()
	if s.closed {
		// Session was torn down while the call was in flight.
		s.busy = false
		s.mu.Unlock()
		return
	}
	if err != nil {
		log.Printf("[consultation][treatment] converse failed session=%s err=%v", s.ID, err)
		s.append(SenderSystem, apologyMessage, true)
	} else {
		s.append(SenderSystem, reply, false)
		s.advance(StageReport)
	}
	s.busy = false
	s.mu.Unlock()
	m.notify(s)
}

// followUpTurn answers questions after the diagnosis is settled. The
// lighter model is enough here.
func (m *Machine) followUpTurn(ctx context.Context, s *Session, question string) {
	s.mu.Lock()
	turns := s.turns()
	s.mu.Unlock()

	reply, err := m.gw.Converse(ctx, llm.TierLight, FollowUpPrompt(question), turns)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Printf("[consultation][followup] converse failed session=%s err=%v", s.ID, err)
		s.append(SenderSystem, apologyMessage, true)
		return
	}
	s.append(SenderSystem, reply, false)
}

func (m *Machine) notify(s *Session) {
	if m.OnUpdate != nil {
		m.OnUpdate(s)
	}
}
