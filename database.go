package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func initDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK(role IN ('devotee', 'volunteer', 'admin', 'security')),
		email_verified INTEGER NOT NULL DEFAULT 0,
		verify_token TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS issue_reports (
		id TEXT PRIMARY KEY,
		location TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'New' CHECK(status IN ('New', 'In Progress', 'Resolved')),
		reported_by TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS emergency_alerts (
		id TEXT PRIMARY KEY,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		sent_by TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open' CHECK(status IN ('open', 'closed')),
		closed_by TEXT NOT NULL DEFAULT '',
		closed_at INTEGER,
		timestamp INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS darshan_times (
		id TEXT PRIMARY KEY,
		wait_time INTEGER NOT NULL CHECK(wait_time >= 0),
		updated_by TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS broadcast_messages (
		id TEXT PRIMARY KEY,
		message TEXT NOT NULL,
		target TEXT NOT NULL CHECK(target IN ('Devotees', 'Volunteers')),
		sent_by TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff_shifts (
		id TEXT PRIMARY KEY,
		uid TEXT NOT NULL,
		staff_name TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('Volunteer', 'Admin', 'Security')),
		login_time INTEGER NOT NULL,
		logout_time INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_issues_timestamp ON issue_reports(timestamp);
	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON emergency_alerts(timestamp);
	CREATE INDEX IF NOT EXISTS idx_darshan_timestamp ON darshan_times(timestamp);
	CREATE INDEX IF NOT EXISTS idx_broadcasts_timestamp ON broadcast_messages(timestamp);
	CREATE INDEX IF NOT EXISTS idx_shifts_login ON staff_shifts(login_time);
	`

	_, err := db.Exec(schema)
	return err
}

// seedAdmin creates the default admin account on an empty users table.
func seedAdmin(db *sql.DB, email, password string) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, password, display_name, role, email_verified, created_at)
		VALUES (?, ?, ?, ?, 'admin', 1, ?)`,
		uuid.NewString(), email, string(hashedPassword), "Administrator", time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Info().Str("email", email).Msg("Default admin account created")
	return nil
}

// seedDemoData fills empty collections with the sample records the
// dashboards were designed against.
func seedDemoData(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM issue_reports").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil // Already seeded
	}

	now := time.Now()
	ago := func(d time.Duration) int64 { return now.Add(-d).UnixNano() }

	issues := []struct {
		location    string
		description string
		status      IssueStatus
		age         time.Duration
	}{
		{"Near Ramulavari Meda", "Water cooler leaking in Hall 12, causing a slip hazard.", StatusNew, 5 * time.Minute},
		{"Vaikuntam Q Complex II", "Cleanliness issue near luggage counter. Bins are overflowing.", StatusInProgress, 12 * time.Minute},
		{"Annaprasadam Complex, Floor 1", "A large spill on the floor requires mopping immediately.", StatusResolved, 30 * time.Minute},
		{"Mahadwaram entrance", "Light fixture flickering in the main waiting area.", StatusNew, 45 * time.Minute},
	}
	for _, is := range issues {
		_, err := db.Exec(
			`INSERT INTO issue_reports (id, location, description, status, reported_by, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), is.location, is.description, is.status, "demo-devotee", ago(is.age),
		)
		if err != nil {
			return fmt.Errorf("failed to insert issue %q: %w", is.location, err)
		}
	}

	_, err := db.Exec(
		`INSERT INTO emergency_alerts (id, latitude, longitude, sent_by, status, timestamp)
		VALUES (?, ?, ?, ?, 'open', ?)`,
		uuid.NewString(), 13.684, 79.349, "demo-devotee", ago(8*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO darshan_times (id, wait_time, updated_by, timestamp) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), 180, "demo-admin", ago(20*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to insert darshan sample: %w", err)
	}

	shifts := []struct {
		name   string
		role   StaffRole
		login  time.Duration
		logout time.Duration
	}{
		{"Lakshmi Narayana", RoleVolunteer, 6 * time.Hour, 0},
		{"Ravi Teja", RoleSecurity, 9 * time.Hour, time.Hour},
		{"Padmavathi", RoleAdmin, 3 * time.Hour, 0},
	}
	for _, sh := range shifts {
		var logout interface{}
		if sh.logout > 0 {
			logout = ago(sh.logout)
		}
		_, err := db.Exec(
			`INSERT INTO staff_shifts (id, uid, staff_name, role, login_time, logout_time)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), "demo-"+uuid.NewString()[:8], sh.name, sh.role, ago(sh.login), logout,
		)
		if err != nil {
			log.Error().Err(err).Str("staff", sh.name).Msg("Error inserting sample shift")
		}
	}

	log.Info().Msg("Database seeded successfully")
	return nil
}
