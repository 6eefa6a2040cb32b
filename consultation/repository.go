package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("consultation not found")

// Record is the durable shape of a session. Transcript and diagnoses
// are JSON columns; the admin surface reads them back for detail views
// and analytics.
type Record struct {
	ID         string      `json:"id"`
	PatientID  string      `json:"patient_id"`
	Stage      Stage       `json:"stage"`
	Phase      Phase       `json:"phase"`
	Transcript []Message   `json:"transcript"`
	Diagnoses  []Diagnosis `json:"diagnoses"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

// Save upserts the session's current view. Called after every completed
// turn, so a crash loses at most the in-flight exchange.
func (r *Repository) Save(ctx context.Context, v View) error {
	transcript, err := json.Marshal(v.Transcript)
	if err != nil {
		return err
	}
	diagnoses, err := json.Marshal(v.Diagnoses)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO consultations (id, patient_id, stage, phase, transcript, diagnoses, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE stage = VALUES(stage), phase = VALUES(phase),
			transcript = VALUES(transcript), diagnoses = VALUES(diagnoses), updated_at = VALUES(updated_at)`,
		v.ID, v.PatientID, string(v.Stage), string(v.Phase), transcript, diagnoses, v.CreatedAt, v.UpdatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, stage, phase, transcript, diagnoses, created_at, updated_at
		FROM consultations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// List returns a page of consultations, newest activity first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, stage, phase, transcript, diagnoses, created_at, updated_at
		FROM consultations ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var rec Record
	var stage, phase string
	var transcript, diagnoses []byte
	if err := sc.Scan(&rec.ID, &rec.PatientID, &stage, &phase, &transcript, &diagnoses, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Stage = Stage(stage)
	rec.Phase = Phase(phase)
	if err := json.Unmarshal(transcript, &rec.Transcript); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(diagnoses, &rec.Diagnoses); err != nil {
		return nil, err
	}
	return &rec, nil
}
