package report

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("report not found")

// Record is a stored, downloadable report.
type Record struct {
	ID             string    `json:"id"`
	ConsultationID string    `json:"consultation_id"`
	PatientID      string    `json:"patient_id"`
	Filename       string    `json:"filename"`
	HTML           string    `json:"-"`
	PDF            []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Save(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, consultation_id, patient_id, filename, html, pdf, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ConsultationID, rec.PatientID, rec.Filename, rec.HTML, rec.PDF, rec.CreatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, consultation_id, patient_id, filename, html, pdf, created_at
		FROM reports WHERE id = ?`, id)
	var rec Record
	err := row.Scan(&rec.ID, &rec.ConsultationID, &rec.PatientID, &rec.Filename, &rec.HTML, &rec.PDF, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns report metadata only; the blob is fetched per download.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, consultation_id, patient_id, filename, created_at
		FROM reports ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.ConsultationID, &rec.PatientID, &rec.Filename, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
