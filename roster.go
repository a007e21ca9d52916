package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"lucky-draw/plugin/dialog"
)

const rosterDebounce = 500 * time.Millisecond

var rosterFilters = []dialog.Filter{
	{Name: "Roster files (*.csv, *.txt)", Pattern: "*.csv;*.txt"},
}

// RosterEntry is one parsed roster line
type RosterEntry struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// RosterSyncEvent is emitted after a linked roster is re-imported
type RosterSyncEvent struct {
	Path     string `json:"path"`
	Imported int    `json:"imported,omitempty"`
	Error    string `json:"error,omitempty"`
}

// rosterDelimiter picks tab when the text uses tabs and no commas
func rosterDelimiter(text string) rune {
	if strings.Contains(text, "\t") && !strings.Contains(text, ",") {
		return '\t'
	}
	return ','
}

func isRosterHeader(record []string) bool {
	if !strings.EqualFold(strings.TrimSpace(record[0]), "name") {
		return false
	}
	return len(record) < 2 || strings.EqualFold(strings.TrimSpace(record[1]), "weight")
}

// ParseRoster reads a roster of "name" or "name,weight" lines. Blank lines
// and # comments are skipped, a leading header line is ignored and repeated
// names keep their first position with the last weight. Weights are clamped
// to [1, draw.MaxWeight].
func ParseRoster(text string) ([]RosterEntry, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = rosterDelimiter(text)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var entries []RosterEntry
	index := make(map[string]int)
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse roster: %w", err)
		}
		line, _ := r.FieldPos(0)

		if first {
			first = false
			if isRosterHeader(record) {
				continue
			}
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		name, err = normalizeName(name)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		weight := 1
		if len(record) > 1 {
			if w := strings.TrimSpace(record[1]); w != "" {
				weight, err = strconv.Atoi(w)
				if errors.Is(err, strconv.ErrRange) {
					err = nil
				}
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid weight %q", line, w)
				}
			}
		}
		weight = normalizeWeight(weight)

		if i, ok := index[name]; ok {
			entries[i].Weight = weight
			continue
		}
		index[name] = len(entries)
		entries = append(entries, RosterEntry{Name: name, Weight: weight})
	}
	return entries, nil
}

// FormatRoster writes participants as name,weight,excluded CSV with a header
func FormatRoster(w io.Writer, participants []Participant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "weight", "excluded"}); err != nil {
		return err
	}
	for _, p := range participants {
		if err := cw.Write([]string{p.Name, strconv.Itoa(p.Weight), strconv.FormatBool(p.Excluded)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// importRoster stores entries in one transaction. In replace mode names
// missing from entries are deleted first. Excluded flags of existing names
// are kept.
func (a *App) importRoster(entries []RosterEntry, replace bool) (int, error) {
	if err := a.requireDB(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.Exec("CREATE TEMP TABLE IF NOT EXISTS roster_import (name TEXT PRIMARY KEY)"); err != nil {
			return 0, fmt.Errorf("failed to stage roster: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM roster_import"); err != nil {
			return 0, fmt.Errorf("failed to stage roster: %w", err)
		}
		for _, e := range entries {
			if _, err := tx.Exec("INSERT OR IGNORE INTO roster_import (name) VALUES (?)", e.Name); err != nil {
				return 0, fmt.Errorf("failed to stage roster: %w", err)
			}
		}
		if _, err := tx.Exec("DELETE FROM participants WHERE name NOT IN (SELECT name FROM roster_import)"); err != nil {
			return 0, fmt.Errorf("failed to remove missing participants: %w", err)
		}
	}

	for _, e := range entries {
		if _, err := tx.Exec(`
			INSERT INTO participants (name, weight) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET weight = excluded.weight
		`, e.Name, normalizeWeight(e.Weight)); err != nil {
			return 0, fmt.Errorf("failed to import %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	a.emitEvent(eventParticipantsChanged)
	return len(entries), nil
}

// importRosterFile reads a roster file through the filesystem scope
func (a *App) importRosterFile(path string, replace bool) (int, error) {
	text, err := a.files.ReadTextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read roster: %w", err)
	}
	entries, err := ParseRoster(text)
	if err != nil {
		return 0, err
	}
	return a.importRoster(entries, replace)
}

// ImportParticipants asks for a roster file and imports it. Returns the
// number of names imported, or 0 if the dialog was cancelled.
func (a *App) ImportParticipants(replace bool) (int, error) {
	path, err := a.dialogs.Open(dialog.Options{
		Title:   "Import Participants",
		Filters: rosterFilters,
	})
	if err != nil {
		return 0, err
	}
	if path == "" {
		return 0, nil
	}
	return a.importRosterFile(path, replace)
}

// ExportParticipants asks for a destination and writes the roster as CSV.
// Returns the written path, or "" if the dialog was cancelled.
func (a *App) ExportParticipants() (string, error) {
	participants, err := a.GetParticipants("")
	if err != nil {
		return "", err
	}

	path, err := a.dialogs.Save(dialog.Options{
		Title:           "Export Participants",
		DefaultFilename: "participants.csv",
		Filters:         rosterFilters,
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", nil
	}

	var sb strings.Builder
	if err := FormatRoster(&sb, participants); err != nil {
		return "", fmt.Errorf("failed to format roster: %w", err)
	}
	if err := a.files.WriteTextFile(path, sb.String()); err != nil {
		return "", fmt.Errorf("failed to write roster: %w", err)
	}
	return path, nil
}

// LinkRoster imports a roster file in replace mode and keeps it in sync.
// The file must already be in the filesystem scope, e.g. picked through the
// dialog plugin.
func (a *App) LinkRoster(path string) (int, error) {
	if a.roster == nil {
		return 0, errors.New("roster sync is not available")
	}
	abs, err := a.files.Scope().Resolve(path)
	if err != nil {
		return 0, err
	}

	count, err := a.importRosterFile(abs, true)
	if err != nil {
		return 0, err
	}
	if err := a.roster.Watch(abs); err != nil {
		return count, fmt.Errorf("failed to watch roster: %w", err)
	}
	if err := a.setSetting(settingRosterPath, abs); err != nil {
		return count, fmt.Errorf("failed to save roster path: %w", err)
	}
	return count, nil
}

// UnlinkRoster stops syncing the linked roster
func (a *App) UnlinkRoster() error {
	if a.roster != nil {
		a.roster.Unwatch()
	}
	if err := a.requireDB(); err != nil {
		return err
	}
	if _, err := a.db.Exec("DELETE FROM settings WHERE key = ?", settingRosterPath); err != nil {
		return fmt.Errorf("failed to clear roster path: %w", err)
	}
	return nil
}

// GetLinkedRoster returns the synced roster path, or ""
func (a *App) GetLinkedRoster() string {
	if a.roster == nil {
		return ""
	}
	return a.roster.Path()
}

// startRosterSync starts the roster watcher and resumes a saved link
func (a *App) startRosterSync() error {
	w, err := NewRosterWatcher(rosterDebounce, a.syncRoster)
	if err != nil {
		return err
	}
	a.roster = w

	path, err := a.getSetting(settingRosterPath)
	if err != nil || path == "" {
		return err
	}
	if err := a.files.Scope().Allow(path); err != nil {
		return fmt.Errorf("failed to allow roster path: %w", err)
	}
	if err := w.Watch(path); err != nil {
		return fmt.Errorf("failed to watch roster %s: %w", path, err)
	}
	log.Printf("Resumed roster sync: %s", path)
	return nil
}

// syncRoster re-imports the linked roster after it changes on disk
func (a *App) syncRoster(path string) {
	count, err := a.importRosterFile(path, true)
	if err != nil {
		log.Printf("Failed to sync roster %s: %v", path, err)
		a.emitEvent(eventRosterError, RosterSyncEvent{Path: path, Error: err.Error()})
		return
	}
	log.Printf("Synced %d participants from %s", count, path)
	a.emitEvent(eventRosterSynced, RosterSyncEvent{Path: path, Imported: count})
}
