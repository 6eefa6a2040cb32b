package migrations

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"time"
)

// AdminUser is a dashboard account. Patient-facing flows never touch
// this table.
type AdminUser struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

var db *sql.DB

// Init sets the DB connection for migrations and queries.
func Init(database *sql.DB) {
	db = database
}

// Migrate creates required tables if they do not exist.
func Migrate() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id CHAR(36) PRIMARY KEY,
			nickname VARCHAR(100) NOT NULL,
			date_of_birth VARCHAR(10) NOT NULL,
			gender VARCHAR(50) NOT NULL,
			medical_history TEXT,
			allergies TEXT,
			current_medications TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS consultations (
			id CHAR(36) PRIMARY KEY,
			patient_id CHAR(36) NOT NULL,
			stage VARCHAR(20) NOT NULL,
			phase VARCHAR(20) NOT NULL,
			transcript JSON,
			diagnoses JSON,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_consultations_patient (patient_id),
			INDEX idx_consultations_updated (updated_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS reports (
			id CHAR(36) PRIMARY KEY,
			consultation_id CHAR(36) NOT NULL,
			patient_id CHAR(36) NOT NULL,
			filename VARCHAR(255) NOT NULL,
			html MEDIUMTEXT,
			pdf MEDIUMBLOB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_reports_consultation (consultation_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS admin_users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(191) NOT NULL UNIQUE,
			password VARCHAR(191) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'admin',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS settings (
			name VARCHAR(100) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return seedAdmin()
}

// seedAdmin creates the initial dashboard account from ADMIN_EMAIL and
// ADMIN_PASSWORD when the table is empty.
func seedAdmin() error {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM admin_users").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	email := os.Getenv("ADMIN_EMAIL")
	pass := os.Getenv("ADMIN_PASSWORD")
	if email == "" || pass == "" {
		log.Printf("[migrations] no ADMIN_EMAIL/ADMIN_PASSWORD set; skipping admin seed")
		return nil
	}
	_, err := db.Exec(
		"INSERT INTO admin_users (name, email, password, role) VALUES (?, ?, ?, 'admin')",
		"Administrator", email, HashPassword(pass))
	if err == nil {
		log.Printf("[migrations] seeded admin account %s", email)
	}
	return err
}

func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// GetAdminByEmail returns nil when no account matches.
func GetAdminByEmail(email string) *AdminUser {
	if db == nil {
		return nil
	}
	row := db.QueryRow("SELECT id, name, email, password, role, created_at FROM admin_users WHERE email = ?", email)
	var u AdminUser
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.CreatedAt); err != nil {
		return nil
	}
	return &u
}

// GetSetting returns the stored value or fallback.
func GetSetting(name, fallback string) string {
	if db == nil {
		return fallback
	}
	var v string
	if err := db.QueryRow("SELECT value FROM settings WHERE name = ?", name).Scan(&v); err != nil {
		return fallback
	}
	return v
}

func SetSetting(name, value string) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	_, err := db.Exec(
		"INSERT INTO settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		name, value)
	return err
}
