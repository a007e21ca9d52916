package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"lucky-draw/draw"
)

const maxParticipantNameLength = 100

var errParticipantNotFound = errors.New("participant not found")

// Participant is one entry in the roster
type Participant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Weight    int       `json:"weight"`
	Excluded  bool      `json:"excluded"`
	CreatedAt time.Time `json:"created_at"`
}

// ParticipantStats summarises the roster
type ParticipantStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Excluded  int `json:"excluded"`
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("participant name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxParticipantNameLength {
		return "", fmt.Errorf("participant name too long (max %d characters)", maxParticipantNameLength)
	}
	return name, nil
}

// normalizeWeight clamps weight to [1, draw.MaxWeight]
func normalizeWeight(weight int) int {
	switch {
	case weight < 1:
		return 1
	case weight > draw.MaxWeight:
		return draw.MaxWeight
	}
	return weight
}

func scanParticipant(row interface{ Scan(...interface{}) error }) (Participant, error) {
	var p Participant
	var createdAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Weight, &p.Excluded, &createdAt); err != nil {
		return p, err
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	return p, nil
}

// GetParticipants returns participants in insertion order. A non-empty query
// filters by name, case-insensitively.
func (a *App) GetParticipants(query string) ([]Participant, error) {
	if err := a.requireDB(); err != nil {
		return nil, err
	}

	rows, err := a.db.Query(`
		SELECT id, name, weight, excluded, created_at
		FROM participants
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	query = strings.ToLower(strings.TrimSpace(query))
	participants := []Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			log.Printf("Failed to scan participant: %v", err)
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}
	return participants, nil
}

// GetParticipant returns one participant by ID
func (a *App) GetParticipant(id int64) (*Participant, error) {
	if err := a.requireDB(); err != nil {
		return nil, err
	}

	p, err := scanParticipant(a.db.QueryRow(`
		SELECT id, name, weight, excluded, created_at
		FROM participants WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, errParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

// AddParticipant adds a participant with the given weight
func (a *App) AddParticipant(name string, weight int) (*Participant, error) {
	if err := a.requireDB(); err != nil {
		return nil, err
	}
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	weight = normalizeWeight(weight)

	result, err := a.db.Exec("INSERT INTO participants (name, weight) VALUES (?, ?)", name, weight)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("participant already exists: %s", name)
		}
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get participant ID: %w", err)
	}

	a.emitEvent(eventParticipantsChanged)
	return a.GetParticipant(id)
}

// UpdateParticipant renames a participant and changes its weight
func (a *App) UpdateParticipant(id int64, name string, weight int) error {
	if err := a.requireDB(); err != nil {
		return err
	}
	name, err := normalizeName(name)
	if err != nil {
		return err
	}

	result, err := a.db.Exec("UPDATE participants SET name = ?, weight = ? WHERE id = ?", name, normalizeWeight(weight), id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("participant already exists: %s", name)
		}
		return fmt.Errorf("failed to update participant: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	a.emitEvent(eventParticipantsChanged)
	return nil
}

// DeleteParticipant removes a participant. Past draw results keep the name.
func (a *App) DeleteParticipant(id int64) error {
	if err := a.requireDB(); err != nil {
		return err
	}

	result, err := a.db.Exec("DELETE FROM participants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	a.emitEvent(eventParticipantsChanged)
	return nil
}

// ToggleExclude flips the excluded flag and returns the new value
func (a *App) ToggleExclude(id int64) (bool, error) {
	if err := a.requireDB(); err != nil {
		return false, err
	}

	result, err := a.db.Exec("UPDATE participants SET excluded = 1 - excluded WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to toggle participant: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return false, err
	}

	var excluded bool
	if err := a.db.QueryRow("SELECT excluded FROM participants WHERE id = ?", id).Scan(&excluded); err != nil {
		return false, fmt.Errorf("failed to read participant: %w", err)
	}

	a.emitEvent(eventParticipantsChanged)
	return excluded, nil
}

// RestoreAll clears the excluded flag on every participant
func (a *App) RestoreAll() error {
	if err := a.requireDB(); err != nil {
		return err
	}
	if _, err := a.db.Exec("UPDATE participants SET excluded = 0 WHERE excluded != 0"); err != nil {
		return fmt.Errorf("failed to restore participants: %w", err)
	}
	a.emitEvent(eventParticipantsChanged)
	return nil
}

// ClearParticipants deletes every participant
func (a *App) ClearParticipants() error {
	if err := a.requireDB(); err != nil {
		return err
	}
	if _, err := a.db.Exec("DELETE FROM participants"); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	a.emitEvent(eventParticipantsChanged)
	return nil
}

// GetStats returns total, available and excluded counts
func (a *App) GetStats() (ParticipantStats, error) {
	var stats ParticipantStats
	if err := a.requireDB(); err != nil {
		return stats, err
	}

	err := a.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN excluded = 0 THEN 1 ELSE 0 END), 0)
		FROM participants
	`).Scan(&stats.Total, &stats.Available)
	if err != nil {
		return stats, fmt.Errorf("failed to count participants: %w", err)
	}
	stats.Excluded = stats.Total - stats.Available
	return stats, nil
}

// availableCandidates returns the non-excluded participants as a draw pool
func (a *App) availableCandidates() ([]draw.Candidate, error) {
	rows, err := a.db.Query("SELECT id, name, weight FROM participants WHERE excluded = 0 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var pool []draw.Candidate
	for rows.Next() {
		var c draw.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		pool = append(pool, c)
	}
	return pool, rows.Err()
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return errParticipantNotFound
	}
	return nil
}
