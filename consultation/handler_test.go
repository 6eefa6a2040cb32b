package consultation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"caringai-backend/patients"
)

type stubPatients struct {
	byID map[string]patients.Patient
}

func (s *stubPatients) GetByID(ctx context.Context, id string) (*patients.Patient, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, patients.ErrNotFound
	}
	return &p, nil
}

type memoryRecorder struct {
	saved []View
}

func (r *memoryRecorder) Save(ctx context.Context, v View) error {
	r.saved = append(r.saved, v)
	return nil
}

func newTestRouter(g Gateway, rec Recorder) (*gin.Engine, *Store) {
	gin.SetMode(gin.TestMode)
	m := newTestMachine(g)
	st := NewStore()
	ps := &stubPatients{byID: map[string]patients.Patient{jane.ID: jane}}
	h := NewHandler(m, st, ps, rec)
	r := gin.New()
	h.RegisterRoutes(r)
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartCreatesSession(t *testing.T) {
	r, st := newTestRouter(&scriptedGateway{}, nil)
	w := doJSON(t, r, http.MethodPost, "/consultations", `{"patient_id":"p-1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var v View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Stage != StageGreeting || v.PatientID != "p-1" {
		t.Fatalf("unexpected view: %+v", v)
	}
	if len(v.Transcript) != 1 {
		t.Fatalf("expected welcome entry, got %d", len(v.Transcript))
	}
	if _, ok := st.Get(v.ID); !ok {
		t.Fatalf("session not in store")
	}
}

func TestStartUnknownPatient(t *testing.T) {
	r, _ := newTestRouter(&scriptedGateway{}, nil)
	w := doJSON(t, r, http.MethodPost, "/consultations", `{"patient_id":"nope"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Patient information not found") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestStartMissingPatientID(t *testing.T) {
	r, _ := newTestRouter(&scriptedGateway{}, nil)
	w := doJSON(t, r, http.MethodPost, "/consultations", `{"patient_id":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMessageAdvancesAndReplies(t *testing.T) {
	rec := &memoryRecorder{}
	r, _ := newTestRouter(&scriptedGateway{replies: []string{"Tell me more about that."}}, rec)

	w := doJSON(t, r, http.MethodPost, "/consultations", `{"patient_id":"p-1"}`)
	var created View
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, r, http.MethodPost, "/consultations/"+created.ID+"/message", `{"message":"I have a headache"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Reply Message `json:"reply"`
		Stage Stage   `json:"stage"`
		Phase Phase   `json:"phase"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stage != StageSymptoms {
		t.Fatalf("expected symptoms stage, got %s", resp.Stage)
	}
	if resp.Reply.Content != "Tell me more about that." {
		t.Fatalf("unexpected reply: %+v", resp.Reply)
	}
	if len(rec.saved) == 0 {
		t.Fatalf("turn not persisted")
	}
	last := rec.saved[len(rec.saved)-1]
	if last.Stage != StageSymptoms {
		t.Fatalf("persisted view stale: %+v", last)
	}
}

func TestMessageUnknownSession(t *testing.T) {
	r, _ := newTestRouter(&scriptedGateway{}, nil)
	w := doJSON(t, r, http.MethodPost, "/consultations/missing/message", `{"message":"hi"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestMessageBusyConflict(t *testing.T) {
	g := &blockingGateway{release: make(chan struct{})}
	r, st := newTestRouter(g, nil)

	w := doJSON(t, r, http.MethodPost, "/consultations", `{"patient_id":"p-1"}`)
	var created View
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	s, _ := st.Get(created.ID)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- doJSON(t, r, http.MethodPost, "/consultations/"+created.ID+"/message", `{"message":"first"}`)
	}()
	waitBusy(s)

	w = doJSON(t, r, http.MethodPost, "/consultations/"+created.ID+"/message", `{"message":"second"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	close(g.release)
	if first := <-done; first.Code != http.StatusOK {
		t.Fatalf("first message: %d", first.Code)
	}
}

func waitBusy(s *Session) {
	for i := 0; i < 1000; i++ {
		s.mu.Lock()
		busy := s.busy
		s.mu.Unlock()
		if busy {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestMessageStreamsSSE(t *testing.T) {
	r, _ := newTestRouter(&scriptedGateway{replies: []string{"one two three four"}}, nil)

	w := doJSON(t, r, http.MethodPost, "/consultations", `{"patient_id":"p-1"}`)
	var created View
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, r, http.MethodPost, "/consultations/"+created.ID+"/message", `{"message":"hello","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Consultation-Stage"); got != string(StageSymptoms) {
		t.Fatalf("stage header: %q", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, "data: ") || !strings.Contains(body, "data: [DONE]") {
		t.Fatalf("not an SSE stream: %q", body)
	}
	var joined strings.Builder
	for _, line := range strings.Split(body, "\n") {
		chunk := strings.TrimPrefix(line, "data: ")
		if chunk == line || chunk == "[DONE]" {
			continue
		}
		joined.WriteString(chunk)
	}
	if !strings.Contains(joined.String(), "one two three four") {
		t.Fatalf("reassembled stream missing reply: %q", joined.String())
	}
}

func TestCloseRemovesSession(t *testing.T) {
	rec := &memoryRecorder{}
	r, st := newTestRouter(&scriptedGateway{}, rec)

	w := doJSON(t, r, http.MethodPost, "/consultations", `{"patient_id":"p-1"}`)
	var created View
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, r, http.MethodDelete, "/consultations/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if _, ok := st.Get(created.ID); ok {
		t.Fatalf("session still in store")
	}
	if w = doJSON(t, r, http.MethodDelete, "/consultations/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("double close expected 404, got %d", w.Code)
	}
}
