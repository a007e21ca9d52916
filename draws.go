package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lucky-draw/draw"
	"lucky-draw/plugin/dialog"

	"github.com/google/uuid"
	"golang.design/x/clipboard"
)

const defaultHistoryLimit = 100

var errDrawNotFound = errors.New("draw not found")

// DrawConfig is a draw request from the frontend
type DrawConfig struct {
	Mode      draw.Mode    `json:"mode"`
	Count     int          `json:"count"`
	Method    draw.Method  `json:"method"`
	BatchSize int          `json:"batch_size"`
	Rounds    []draw.Round `json:"rounds"`
	PrizeName string       `json:"prize_name"`
}

// Winner is one drawn participant. Batch is the reveal batch for classic
// draws and 0 for tournaments.
type Winner struct {
	ParticipantID int64  `json:"participant_id"`
	Name          string `json:"name"`
	Batch         int    `json:"batch"`
}

// DrawRecord is a completed draw kept in history
type DrawRecord struct {
	ID                string             `json:"id"`
	Mode              draw.Mode          `json:"mode"`
	PrizeName         string             `json:"prize_name"`
	Winners           []Winner           `json:"winners"`
	Rounds            []draw.RoundResult `json:"rounds,omitempty"`
	TotalParticipants int                `json:"total_participants"`
	CreatedAt         time.Time          `json:"created_at"`
}

// WinnerNames returns the winner names in draw order
func (r *DrawRecord) WinnerNames() []string {
	names := make([]string, 0, len(r.Winners))
	for _, w := range r.Winners {
		names = append(names, w.Name)
	}
	return names
}

func newDrawRecord(cfg DrawConfig, result *draw.Result, total int) *DrawRecord {
	mode := cfg.Mode
	if mode == "" {
		mode = draw.ModeClassic
	}

	record := &DrawRecord{
		ID:                uuid.NewString(),
		Mode:              mode,
		PrizeName:         strings.TrimSpace(cfg.PrizeName),
		Rounds:            result.Rounds,
		TotalParticipants: total,
		CreatedAt:         time.Now().UTC(),
	}
	if len(result.Batches) > 0 {
		for i, batch := range result.Batches {
			for _, c := range batch {
				record.Winners = append(record.Winners, Winner{ParticipantID: c.ID, Name: c.Name, Batch: i})
			}
		}
	} else {
		for _, c := range result.Winners {
			record.Winners = append(record.Winners, Winner{ParticipantID: c.ID, Name: c.Name})
		}
	}
	if record.Winners == nil {
		record.Winners = []Winner{}
	}
	return record
}

// StartDraw runs a draw over the available participants, records it and,
// when auto-exclude is on, excludes the winners from later draws.
func (a *App) StartDraw(cfg DrawConfig) (*DrawRecord, error) {
	if err := a.requireDB(); err != nil {
		return nil, err
	}

	settings, err := a.GetSettings()
	if err != nil {
		log.Printf("Warning: Failed to load settings, using defaults: %v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pool, err := a.availableCandidates()
	if err != nil {
		return nil, err
	}

	result, err := a.engine.Run(draw.Config{
		Mode:      cfg.Mode,
		Count:     cfg.Count,
		Method:    cfg.Method,
		BatchSize: cfg.BatchSize,
		Rounds:    cfg.Rounds,
	}, pool)
	if err != nil {
		return nil, err
	}

	record := newDrawRecord(cfg, result, len(pool))
	if err := a.saveDraw(record, settings.AutoExclude); err != nil {
		return nil, err
	}

	a.emitEvent(eventDrawCompleted, record)
	if settings.AutoExclude {
		a.emitEvent(eventParticipantsChanged)
	}
	return record, nil
}

// saveDraw stores a record and optionally excludes its winners
func (a *App) saveDraw(record *DrawRecord, excludeWinners bool) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertDraw(tx, record); err != nil {
		return err
	}

	if excludeWinners {
		for _, w := range record.Winners {
			if _, err := tx.Exec("UPDATE participants SET excluded = 1 WHERE id = ?", w.ParticipantID); err != nil {
				return fmt.Errorf("failed to exclude winner: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit draw: %w", err)
	}
	return nil
}

func insertDraw(tx *sql.Tx, record *DrawRecord) error {
	var rounds []byte
	if len(record.Rounds) > 0 {
		var err error
		rounds, err = json.Marshal(record.Rounds)
		if err != nil {
			return fmt.Errorf("failed to encode rounds: %w", err)
		}
	}

	_, err := tx.Exec(`
		INSERT INTO draws (id, mode, prize_name, total_participants, rounds, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, string(record.Mode), record.PrizeName, record.TotalParticipants, string(rounds), record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save draw: %w", err)
	}

	for i, w := range record.Winners {
		var participantID interface{}
		if w.ParticipantID != 0 {
			participantID = w.ParticipantID
		}
		_, err := tx.Exec(`
			INSERT INTO draw_winners (draw_id, position, participant_id, name, batch)
			VALUES (?, ?, ?, ?, ?)
		`, record.ID, i, participantID, w.Name, w.Batch)
		if err != nil {
			return fmt.Errorf("failed to save winner: %w", err)
		}
	}
	return nil
}

// GetHistory returns the newest draws first. limit <= 0 uses the default.
func (a *App) GetHistory(limit int) ([]DrawRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return a.loadHistory(limit)
}

// loadHistory returns up to limit draws, or all of them when limit is negative
func (a *App) loadHistory(limit int) ([]DrawRecord, error) {
	if err := a.requireDB(); err != nil {
		return nil, err
	}

	rows, err := a.db.Query(`
		SELECT id, mode, prize_name, total_participants, rounds, created_at
		FROM draws
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []DrawRecord{}
	for rows.Next() {
		record, err := scanDraw(rows)
		if err != nil {
			log.Printf("Failed to scan draw: %v", err)
			continue
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	if len(records) == 0 {
		return records, nil
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	winners, err := a.getWinnersForDraws(ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if w, ok := winners[records[i].ID]; ok {
			records[i].Winners = w
		}
	}
	return records, nil
}

func scanDraw(row interface{ Scan(...interface{}) error }) (*DrawRecord, error) {
	var record DrawRecord
	var mode string
	var prizeName, rounds sql.NullString
	if err := row.Scan(&record.ID, &mode, &prizeName, &record.TotalParticipants, &rounds, &record.CreatedAt); err != nil {
		return nil, err
	}
	record.Mode = draw.Mode(mode)
	record.PrizeName = prizeName.String
	record.Winners = []Winner{}
	if rounds.Valid && rounds.String != "" {
		if err := json.Unmarshal([]byte(rounds.String), &record.Rounds); err != nil {
			log.Printf("Warning: Failed to decode rounds for draw %s: %v", record.ID, err)
		}
	}
	return &record, nil
}

// getWinnersForDraws fetches winners for multiple draws in a single query
func (a *App) getWinnersForDraws(ids []string) (map[string][]Winner, error) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := a.db.Query(fmt.Sprintf(`
		SELECT draw_id, participant_id, name, batch
		FROM draw_winners
		WHERE draw_id IN (%s)
		ORDER BY draw_id, position
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query winners: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]Winner)
	for rows.Next() {
		var drawID string
		var participantID sql.NullInt64
		var w Winner
		if err := rows.Scan(&drawID, &participantID, &w.Name, &w.Batch); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		w.ParticipantID = participantID.Int64
		result[drawID] = append(result[drawID], w)
	}
	return result, rows.Err()
}

// GetDraw returns one draw by ID
func (a *App) GetDraw(id string) (*DrawRecord, error) {
	if err := a.requireDB(); err != nil {
		return nil, err
	}

	record, err := scanDraw(a.db.QueryRow(`
		SELECT id, mode, prize_name, total_participants, rounds, created_at
		FROM draws WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, errDrawNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}

	winners, err := a.getWinnersForDraws([]string{id})
	if err != nil {
		return nil, err
	}
	if w, ok := winners[id]; ok {
		record.Winners = w
	}
	return record, nil
}

// DeleteDraw removes one draw from history
func (a *App) DeleteDraw(id string) error {
	if err := a.requireDB(); err != nil {
		return err
	}
	result, err := a.db.Exec("DELETE FROM draws WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete draw: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errDrawNotFound
	}
	return nil
}

// ClearHistory removes every draw
func (a *App) ClearHistory() error {
	if err := a.requireDB(); err != nil {
		return err
	}
	if _, err := a.db.Exec("DELETE FROM draws"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// ExportHistory asks for a destination and writes the full history as JSON.
// Returns the written path, or "" if the dialog was cancelled.
func (a *App) ExportHistory() (string, error) {
	records, err := a.loadHistory(-1)
	if err != nil {
		return "", err
	}

	path, err := a.dialogs.Save(dialog.Options{
		Title:           "Export Draw History",
		DefaultFilename: fmt.Sprintf("draw-history-%s.json", time.Now().Format("20060102")),
		Filters:         []dialog.Filter{{Name: "JSON (*.json)", Pattern: "*.json"}},
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", nil
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	if err := a.files.WriteTextFile(path, string(data)); err != nil {
		return "", fmt.Errorf("failed to write history: %w", err)
	}
	return path, nil
}

// CopyWinners puts the winner names of a draw on the system clipboard and
// returns the copied text
func (a *App) CopyWinners(id string) (string, error) {
	record, err := a.GetDraw(id)
	if err != nil {
		return "", err
	}
	text := strings.Join(record.WinnerNames(), ", ")
	if !a.clipboardReady {
		return text, fmt.Errorf("clipboard not available")
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return text, nil
}
