package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	_ "github.com/mattn/go-sqlite3"
)

const (
	appDirName    = "lucky-draw"
	dbFileName    = "luckydraw.db"
	dataDirEnvVar = "LUCKYDRAW_DATA_DIR"
)

// getDataDir returns the OS-appropriate data directory for the app
// If LUCKYDRAW_DATA_DIR is set, it overrides the default location (useful for testing)
func getDataDir() (string, error) {
	if customDir := os.Getenv(dataDirEnvVar); customDir != "" {
		if err := os.MkdirAll(customDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create custom data directory: %w", err)
		}
		return customDir, nil
	}

	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support", appDirName)
	case "windows":
		baseDir = filepath.Join(os.Getenv("APPDATA"), appDirName)
	default: // Linux and others
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, ".config", appDirName)
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// initDB opens the database in the data directory
func initDB() (*sql.DB, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	log.Printf("Using database at: %s", dbPath)
	return openDB(dbPath)
}

// openDB opens (or creates) the database at path and applies the schema
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("Warning: Failed to enable WAL mode: %v", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS participants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			weight INTEGER NOT NULL DEFAULT 1,
			excluded INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS draws (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			prize_name TEXT,
			total_participants INTEGER NOT NULL DEFAULT 0,
			rounds TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS draw_winners (
			draw_id TEXT NOT NULL REFERENCES draws(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			participant_id INTEGER,
			name TEXT NOT NULL,
			batch INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (draw_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_draws_created_at ON draws(created_at)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return db, nil
}
