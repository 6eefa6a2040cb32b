package patients

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"caringai-backend/files"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler { return &Handler{repo: repo} }

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/patients", h.Create)
	r.GET("/patients/:id", h.Get)
}

type intakeReq struct {
	Nickname           string `json:"nickname" form:"nickname"`
	DateOfBirth        string `json:"date_of_birth" form:"date_of_birth"`
	Gender             string `json:"gender" form:"gender"`
	MedicalHistory     string `json:"medical_history" form:"medical_history"`
	Allergies          string `json:"allergies" form:"allergies"`
	CurrentMedications string `json:"current_medications" form:"current_medications"`
}

// validate returns a field -> message map; empty means the intake is
// acceptable. Errors are per-field so the form can render them inline.
func (req *intakeReq) validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(req.Nickname) == "" {
		errs["nickname"] = "nickname is required"
	}
	if strings.TrimSpace(req.DateOfBirth) == "" {
		errs["date_of_birth"] = "date of birth is required"
	} else if _, err := time.Parse("2006-01-02", req.DateOfBirth); err != nil {
		errs["date_of_birth"] = "date of birth must be YYYY-MM-DD"
	}
	if strings.TrimSpace(req.Gender) == "" {
		errs["gender"] = "gender is required"
	}
	return errs
}

// Create registers a patient. Accepts plain JSON, or multipart form data
// with an optional "records" PDF whose text layer is appended to the
// medical history.
func (h *Handler) Create(c *gin.Context) {
	var req intakeReq
	ct := c.GetHeader("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if errs := req.validate(); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}

	history := strings.TrimSpace(req.MedicalHistory)
	if upFile, err := c.FormFile("records"); err == nil && upFile != nil {
		if strings.ToLower(filepath.Ext(upFile.Filename)) != ".pdf" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "records attachment must be a PDF"})
			return
		}
		tmpDir := "./tmp"
		_ = os.MkdirAll(tmpDir, 0o755)
		tmp := filepath.Join(tmpDir, uuid.NewString()+".pdf")
		if err := c.SaveUploadedFile(upFile, tmp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
			return
		}
		defer os.Remove(tmp)
		if text, err := files.ExtractPDFText(tmp, 0); err == nil {
			if history != "" {
				history += "\n\n[From uploaded records]:\n" + text
			} else {
				history = text
			}
		} else {
			// Keep the typed history; a scan without a text layer is
			// not worth failing the whole intake for.
			log.Printf("[patients][records] extraction failed file=%s err=%v", upFile.Filename, err)
		}
	}

	p := &Patient{
		ID:                 uuid.NewString(),
		Nickname:           strings.TrimSpace(req.Nickname),
		DateOfBirth:        req.DateOfBirth,
		Gender:             strings.TrimSpace(req.Gender),
		MedicalHistory:     history,
		Allergies:          strings.TrimSpace(req.Allergies),
		CurrentMedications: strings.TrimSpace(req.CurrentMedications),
		CreatedAt:          time.Now(),
	}
	if err := h.repo.Create(c, p); err != nil {
		log.Printf("[patients][create] err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save patient"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.repo.GetByID(c, c.Param("id"))
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}
