package admin

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"caringai-backend/consultation"
	"caringai-backend/login"
	"caringai-backend/migrations"
	"caringai-backend/patients"
	"caringai-backend/report"
)

// Handler serves the dashboard: stats, resource lists, analytics and
// settings. Every route sits behind the admin token middleware.
type Handler struct {
	db            *sql.DB
	patients      *patients.Repository
	consultations *consultation.Repository
	reports       *report.Repository
}

func NewHandler(db *sql.DB, p *patients.Repository, c *consultation.Repository, r *report.Repository) *Handler {
	return &Handler{db: db, patients: p, consultations: c, reports: r}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/admin/login", login.Handler)
	r.POST("/admin/logout", login.Logout)

	g := r.Group("/admin", login.RequireAuth())
	g.GET("/dashboard/stats", h.DashboardStats)
	g.GET("/patients", h.Patients)
	g.GET("/patients/:id", h.PatientDetail)
	g.GET("/consultations", h.Consultations)
	g.GET("/consultations/:id", h.ConsultationDetail)
	g.GET("/reports", h.Reports)
	g.GET("/analytics", h.Analytics)
	g.GET("/settings", h.Settings)
	g.PUT("/settings", h.UpdateSettings)
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *Handler) DashboardStats(c *gin.Context) {
	stats := gin.H{}
	for name, query := range map[string]string{
		"patients":            "SELECT COUNT(*) FROM patients",
		"consultations":       "SELECT COUNT(*) FROM consultations",
		"reports":             "SELECT COUNT(*) FROM reports",
		"consultations_today": "SELECT COUNT(*) FROM consultations WHERE DATE(created_at) = CURDATE()",
		"completed":           "SELECT COUNT(*) FROM consultations WHERE stage = 'report'",
	} {
		var n int
		if err := h.db.QueryRowContext(c, query).Scan(&n); err != nil {
			log.Printf("[admin][stats] %s err=%v", name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stats query failed"})
			return
		}
		stats[name] = n
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Patients(c *gin.Context) {
	limit, offset := pageParams(c)
	list, err := h.patients.List(c, c.Query("search"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	total, _ := h.patients.Count(c)
	c.JSON(http.StatusOK, gin.H{"patients": list, "total": total})
}

func (h *Handler) PatientDetail(c *gin.Context) {
	p, err := h.patients.GetByID(c, c.Param("id"))
	if err == patients.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Consultations(c *gin.Context) {
	limit, offset := pageParams(c)
	list, err := h.consultations.List(c, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	// Lists carry summaries, not full transcripts.
	type summary struct {
		ID        string             `json:"id"`
		PatientID string             `json:"patient_id"`
		Stage     consultation.Stage `json:"stage"`
		Messages  int                `json:"messages"`
		Diagnoses int                `json:"diagnoses"`
		UpdatedAt string             `json:"updated_at"`
		CreatedAt string             `json:"created_at"`
	}
	out := make([]summary, 0, len(list))
	for _, rec := range list {
		out = append(out, summary{
			ID:        rec.ID,
			PatientID: rec.PatientID,
			Stage:     rec.Stage,
			Messages:  len(rec.Transcript),
			Diagnoses: len(rec.Diagnoses),
			UpdatedAt: rec.UpdatedAt.Format("2006-01-02 15:04:05"),
			CreatedAt: rec.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"consultations": out})
}

func (h *Handler) ConsultationDetail(c *gin.Context) {
	rec, err := h.consultations.GetByID(c, c.Param("id"))
	if err == consultation.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "consultation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Reports(c *gin.Context) {
	limit, offset := pageParams(c)
	list, err := h.reports.List(c, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list})
}

var knownSettings = []string{"clinic_name", "welcome_banner", "retention_days"}

func (h *Handler) Settings(c *gin.Context) {
	out := gin.H{}
	for _, name := range knownSettings {
		out[name] = migrations.GetSetting(name, "")
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}
	for name, value := range req {
		if !isKnownSetting(name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting: " + name})
			return
		}
		if err := migrations.SetSetting(name, value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save settings"})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func isKnownSetting(name string) bool {
	for _, s := range knownSettings {
		if s == name {
			return true
		}
	}
	return false
}
