package main

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"lucky-draw/plugin/dialog"
)

const (
	BackupFormatVersion = 1
	AppVersion          = "1.0.0"

	maxBackupEntrySize = 64 * 1024 * 1024
)

// Backup archive entries
const (
	backupManifestFile     = "manifest.json"
	backupParticipantsFile = "participants.json"
	backupHistoryFile      = "history.json"
	backupSettingsFile     = "settings.json"
)

// BackupManifest describes the contents of a backup file
type BackupManifest struct {
	FormatVersion int           `json:"format_version"`
	AppVersion    string        `json:"app_version"`
	CreatedAt     time.Time     `json:"created_at"`
	Platform      string        `json:"platform"`
	Summary       BackupSummary `json:"summary"`
	Excluded      []string      `json:"excluded"`
}

// BackupSummary contains counts of backed up items
type BackupSummary struct {
	Participants int `json:"participants"`
	Draws        int `json:"draws"`
	Settings     int `json:"settings"`
}

var backupFilters = []dialog.Filter{{Name: "Lucky Draw backup (*.zip)", Pattern: "*.zip"}}

// isLocalSetting reports settings that only make sense on this machine
func isLocalSetting(key string) bool {
	return key == settingRosterPath
}

// ExportBackup asks for a destination and writes a backup there. Returns
// the written path, or "" if the dialog was cancelled.
func (a *App) ExportBackup() (string, error) {
	path, err := a.dialogs.Save(dialog.Options{
		Title:           "Export Backup",
		DefaultFilename: fmt.Sprintf("lucky-draw-backup-%s.zip", time.Now().Format("20060102-150405")),
		Filters:         backupFilters,
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", nil
	}
	if err := a.CreateBackup(path); err != nil {
		return "", err
	}
	return path, nil
}

// ImportBackup asks for a backup file and restores it. Returns nil if the
// dialog was cancelled.
func (a *App) ImportBackup() (*BackupManifest, error) {
	path, err := a.dialogs.Open(dialog.Options{
		Title:   "Import Backup",
		Filters: backupFilters,
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	return a.RestoreBackup(path)
}

// CreateBackup creates a backup ZIP file at the specified path
func (a *App) CreateBackup(destPath string) error {
	abs, err := a.files.Scope().Resolve(destPath)
	if err != nil {
		return err
	}

	participants, err := a.GetParticipants("")
	if err != nil {
		return fmt.Errorf("failed to export participants: %w", err)
	}
	history, err := a.loadHistory(-1)
	if err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	values, err := a.loadSettingValues()
	if err != nil {
		return fmt.Errorf("failed to export settings: %w", err)
	}

	var excluded []string
	settings := make(map[string]string, len(values))
	for key, value := range values {
		if isLocalSetting(key) {
			excluded = append(excluded, key)
			continue
		}
		settings[key] = value
	}
	if excluded == nil {
		excluded = []string{}
	}

	manifest := BackupManifest{
		FormatVersion: BackupFormatVersion,
		AppVersion:    AppVersion,
		CreatedAt:     time.Now().UTC(),
		Platform:      runtime.GOOS,
		Summary: BackupSummary{
			Participants: len(participants),
			Draws:        len(history),
			Settings:     len(settings),
		},
		Excluded: excluded,
	}

	zipFile, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	entries := []struct {
		name string
		v    interface{}
	}{
		{backupManifestFile, manifest},
		{backupParticipantsFile, participants},
		{backupHistoryFile, history},
		{backupSettingsFile, settings},
	}
	for _, e := range entries {
		if err := writeZipJSON(w, e.name, e.v); err != nil {
			w.Close()
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish backup: %w", err)
	}
	return zipFile.Close()
}

func writeZipJSON(w *zip.Writer, name string, v interface{}) error {
	f, err := w.Create(name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func findZipFile(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readZipJSON(r *zip.Reader, name string, v interface{}) error {
	f := findZipFile(r, name)
	if f == nil {
		return fmt.Errorf("backup is corrupted (missing %s)", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()

	if err := json.NewDecoder(io.LimitReader(rc, maxBackupEntrySize)).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// ValidateBackup opens a backup file and returns its manifest
func ValidateBackup(backupPath string) (*BackupManifest, error) {
	r, err := zip.OpenReader(backupPath)
	if err != nil {
		return nil, fmt.Errorf("invalid backup file: %w", err)
	}
	defer r.Close()

	return readManifest(&r.Reader)
}

func readManifest(r *zip.Reader) (*BackupManifest, error) {
	if findZipFile(r, backupManifestFile) == nil {
		return nil, fmt.Errorf("this doesn't appear to be a lucky-draw backup (missing manifest)")
	}

	var manifest BackupManifest
	if err := readZipJSON(r, backupManifestFile, &manifest); err != nil {
		return nil, err
	}
	if manifest.FormatVersion < 1 {
		return nil, fmt.Errorf("backup manifest has no format version")
	}
	if manifest.FormatVersion > BackupFormatVersion {
		return nil, fmt.Errorf("backup format version %d is newer than supported %d", manifest.FormatVersion, BackupFormatVersion)
	}
	return &manifest, nil
}

// RestoreBackup replaces participants, history and settings with the
// contents of a backup ZIP file
func (a *App) RestoreBackup(backupPath string) (*BackupManifest, error) {
	if err := a.requireDB(); err != nil {
		return nil, err
	}
	abs, err := a.files.Scope().Resolve(backupPath)
	if err != nil {
		return nil, err
	}

	r, err := zip.OpenReader(abs)
	if err != nil {
		return nil, fmt.Errorf("invalid backup file: %w", err)
	}
	defer r.Close()

	manifest, err := readManifest(&r.Reader)
	if err != nil {
		return nil, err
	}

	var participants []Participant
	if err := readZipJSON(&r.Reader, backupParticipantsFile, &participants); err != nil {
		return nil, err
	}
	var history []DrawRecord
	if err := readZipJSON(&r.Reader, backupHistoryFile, &history); err != nil {
		return nil, err
	}
	var settings map[string]string
	if err := readZipJSON(&r.Reader, backupSettingsFile, &settings); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM draw_winners",
		"DELETE FROM draws",
		"DELETE FROM participants",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}
	if _, err := tx.Exec("DELETE FROM settings WHERE key != ?", settingRosterPath); err != nil {
		return nil, fmt.Errorf("failed to clear settings: %w", err)
	}

	for _, p := range participants {
		name, err := normalizeName(p.Name)
		if err != nil {
			log.Printf("Warning: Skipping participant %d from backup: %v", p.ID, err)
			continue
		}
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var id interface{}
		if p.ID > 0 {
			id = p.ID
		}
		if _, err := tx.Exec(`
			INSERT INTO participants (id, name, weight, excluded, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, name, normalizeWeight(p.Weight), p.Excluded, createdAt); err != nil {
			return nil, fmt.Errorf("failed to restore participant %s: %w", name, err)
		}
	}

	for i := range history {
		if history[i].ID == "" {
			continue
		}
		if err := insertDraw(tx, &history[i]); err != nil {
			return nil, err
		}
	}

	for key, value := range settings {
		if isLocalSetting(key) {
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return nil, fmt.Errorf("failed to restore setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit restore: %w", err)
	}

	a.emitEvent(eventParticipantsChanged)
	return manifest, nil
}
