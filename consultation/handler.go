package consultation

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"caringai-backend/patients"
	"caringai-backend/sse"
)

// PatientSource is the slice of the patients package the handler needs.
type PatientSource interface {
	GetByID(ctx context.Context, id string) (*patients.Patient, error)
}

// Recorder persists completed turns. Nil-safe so tests can run without
// a database.
type Recorder interface {
	Save(ctx context.Context, v View) error
}

type Handler struct {
	machine  *Machine
	store    *Store
	patients PatientSource
	recorder Recorder
}

func NewHandler(m *Machine, st *Store, ps PatientSource, rec Recorder) *Handler {
	h := &Handler{machine: m, store: st, patients: ps, recorder: rec}
	m.OnUpdate = h.persist
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/consultations", h.Start)
	r.GET("/consultations/:id", h.Get)
	r.POST("/consultations/:id/message", h.Message)
	r.DELETE("/consultations/:id", h.Close)
}

func (h *Handler) persist(s *Session) {
	if h.recorder == nil {
		return
	}
	v := s.Snapshot()
	if err := h.recorder.Save(context.Background(), v); err != nil {
		log.Printf("[consultation][persist] session=%s err=%v", v.ID, err)
	}
}

type startReq struct {
	PatientID string `json:"patient_id"`
}

// Start opens a session for a registered patient. A missing patient is
// the storage-error case: the client shows a full-page error with a
// return-to-home action.
func (h *Handler) Start(c *gin.Context) {
	var req startReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PatientID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "patient_id required"})
		return
	}
	p, err := h.patients.GetByID(c, req.PatientID)
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Patient information not found. Please start a new consultation."})
			return
		}
		log.Printf("[consultation][start] patient lookup failed id=%s err=%v", req.PatientID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "There was an error loading your information. Please try again."})
		return
	}

	s := h.machine.Open(*p)
	h.store.Add(s)
	h.persist(s)
	c.JSON(http.StatusCreated, s.Snapshot())
}

func (h *Handler) Get(c *gin.Context) {
	s, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "consultation not found"})
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

type messageReq struct {
	Message string `json:"message"`
	Stream  bool   `json:"stream"`
}

// Message drives one user turn through the state machine. With
// stream=true the assistant's reply is re-chunked over SSE in the
// 'data:' line format the chat UI already speaks.
func (h *Handler) Message(c *gin.Context) {
	s, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "consultation not found"})
		return
	}
	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
		return
	}

	if err := h.machine.Send(c, s, req.Message); err != nil {
		if errors.Is(err, ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "a previous message is still being processed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message processing failed"})
		return
	}

	v := s.Snapshot()
	reply := lastSystemEntry(v.Transcript)
	if req.Stream {
		c.Header("X-Consultation-Stage", string(v.Stage))
		sse.Stream(c, sse.Chunked(reply.Content, 0))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reply":     reply,
		"stage":     v.Stage,
		"phase":     v.Phase,
		"diagnoses": v.Diagnoses,
	})
}

// Close tears the session down, cancelling the pending treatment
// continuation if one is scheduled.
func (h *Handler) Close(c *gin.Context) {
	s, ok := h.store.Remove(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "consultation not found"})
		return
	}
	h.persist(s)
	c.Status(http.StatusNoContent)
}

func lastSystemEntry(transcript []Message) Message {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Sender == SenderSystem {
			return transcript[i]
		}
	}
	return Message{}
}
