package patients

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("patient not found")

// Patient is the intake record. It is created once at intake and
// treated as immutable for the duration of a consultation session.
type Patient struct {
	ID                 string    `json:"id"`
	Nickname           string    `json:"nickname"`
	DateOfBirth        string    `json:"date_of_birth"`
	Gender             string    `json:"gender"`
	MedicalHistory     string    `json:"medical_history"`
	Allergies          string    `json:"allergies"`
	CurrentMedications string    `json:"current_medications"`
	CreatedAt          time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Create(ctx context.Context, p *Patient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (id, nickname, date_of_birth, gender, medical_history, allergies, current_medications, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Nickname, p.DateOfBirth, p.Gender, p.MedicalHistory, p.Allergies, p.CurrentMedications, p.CreatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Patient, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, nickname, date_of_birth, gender, medical_history, allergies, current_medications, created_at
		FROM patients WHERE id = ?`, id)
	var p Patient
	err := row.Scan(&p.ID, &p.Nickname, &p.DateOfBirth, &p.Gender, &p.MedicalHistory, &p.Allergies, &p.CurrentMedications, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns a page of patients, newest first, optionally filtered by
// a case-insensitive nickname substring.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Patient, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := `SELECT id, nickname, date_of_birth, gender, medical_history, allergies, current_medications, created_at
	      FROM patients`
	args := []any{}
	if s := strings.TrimSpace(search); s != "" {
		q += ` WHERE LOWER(nickname) LIKE ?`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Nickname, &p.DateOfBirth, &p.Gender, &p.MedicalHistory, &p.Allergies, &p.CurrentMedications, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n)
	return n, err
}
