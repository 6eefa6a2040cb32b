package admin

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"caringai-backend/consultation"
)

// Analytics aggregates consultation activity: volume per day, the stage
// funnel, and the most frequent extracted diagnoses. Diagnoses live in
// a JSON column, so that aggregation happens here rather than in SQL.
func (h *Handler) Analytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 || days > 365 {
		days = 30
	}

	perDay, err := h.consultationsPerDay(c, days)
	if err != nil {
		log.Printf("[admin][analytics] per-day err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analytics query failed"})
		return
	}
	funnel, err := h.stageFunnel(c)
	if err != nil {
		log.Printf("[admin][analytics] funnel err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analytics query failed"})
		return
	}
	top, err := h.topDiagnoses(c, 10)
	if err != nil {
		log.Printf("[admin][analytics] diagnoses err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analytics query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"consultations_per_day": perDay,
		"stage_funnel":          funnel,
		"top_diagnoses":         top,
	})
}

type dayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

func (h *Handler) consultationsPerDay(c *gin.Context, days int) ([]dayCount, error) {
	rows, err := h.db.QueryContext(c, `
		SELECT DATE(created_at) AS day, COUNT(*)
		FROM consultations
		WHERE created_at >= DATE_SUB(CURDATE(), INTERVAL ? DAY)
		GROUP BY day ORDER BY day`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []dayCount{}
	for rows.Next() {
		var dc dayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (h *Handler) stageFunnel(c *gin.Context) (map[string]int, error) {
	rows, err := h.db.QueryContext(c, `SELECT stage, COUNT(*) FROM consultations GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		out[stage] = n
	}
	return out, rows.Err()
}

type diagnosisCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (h *Handler) topDiagnoses(c *gin.Context, limit int) ([]diagnosisCount, error) {
	rows, err := h.db.QueryContext(c, `SELECT diagnoses FROM consultations WHERE diagnoses IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lists [][]consultation.Diagnosis
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var list []consultation.Diagnosis
		if err := json.Unmarshal(raw, &list); err != nil {
			continue // tolerate rows written by older builds
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankDiagnoses(lists, limit), nil
}

// rankDiagnoses counts case-insensitive name occurrences across all
// consultations and returns the top entries, ties broken by name.
func rankDiagnoses(lists [][]consultation.Diagnosis, limit int) []diagnosisCount {
	counts := map[string]*diagnosisCount{}
	for _, list := range lists {
		for _, d := range list {
			name := strings.TrimSpace(d.Name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if dc, ok := counts[key]; ok {
				dc.Count++
			} else {
				counts[key] = &diagnosisCount{Name: name, Count: 1}
			}
		}
	}
	out := make([]diagnosisCount, 0, len(counts))
	for _, dc := range counts {
		out = append(out, *dc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
