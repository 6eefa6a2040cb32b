package report

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"caringai-backend/consultation"
)

type Handler struct {
	builder *Builder
	store   *consultation.Store
	repo    *Repository
}

func NewHandler(b *Builder, store *consultation.Store, repo *Repository) *Handler {
	return &Handler{builder: b, store: store, repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/consultations/:id/report", h.Generate)
	r.GET("/reports/:id/download", h.Download)
	r.GET("/reports/:id/html", h.HTML)
}

// Generate builds the report for a live consultation, stores it, and
// returns the download location. Export is available from any stage; an
// early export just carries more "Not specified" sections.
func (h *Handler) Generate(c *gin.Context) {
	s, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "consultation not found"})
		return
	}
	v := s.Snapshot()

	doc, err := h.builder.Build(c, s.Patient, v.Transcript)
	if err != nil {
		log.Printf("[report][generate] consultation=%s err=%v", v.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "There was an error generating the report. Please try again."})
		return
	}

	rec := &Record{
		ID:             uuid.NewString(),
		ConsultationID: v.ID,
		PatientID:      v.PatientID,
		Filename:       doc.Filename,
		HTML:           doc.HTML,
		PDF:            doc.PDF,
		CreatedAt:      time.Now().UTC(),
	}
	if h.repo != nil {
		if err := h.repo.Save(c, rec); err != nil {
			log.Printf("[report][save] consultation=%s err=%v", v.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store report"})
			return
		}
	}
	c.JSON(http.StatusCreated, gin.H{
		"report_id":    rec.ID,
		"filename":     rec.Filename,
		"download_url": "/reports/" + rec.ID + "/download",
	})
}

func (h *Handler) Download(c *gin.Context) {
	rec, err := h.repo.GetByID(c, c.Param("id"))
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+rec.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", rec.PDF)
}

func (h *Handler) HTML(c *gin.Context) {
	rec, err := h.repo.GetByID(c, c.Param("id"))
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rec.HTML))
}
