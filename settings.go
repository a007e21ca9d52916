package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"lucky-draw/draw"
)

// Setting keys
const (
	settingTheme                 = "theme"
	settingHideNamesWhileRolling = "hide_names_while_rolling"
	settingParticleEffects       = "particle_effects"
	settingSoundEnabled          = "sound_enabled"
	settingAutoExclude           = "auto_exclude"
	settingMode                  = "mode"
	settingClassicCount          = "classic_count"
	settingClassicMethod         = "classic_method"
	settingBatchSize             = "batch_size"
	settingTournamentRounds      = "tournament_rounds"
	settingPrizeName             = "prize_name"
	settingRosterPath            = "roster_path"
)

var settingKeys = []string{
	settingTheme,
	settingHideNamesWhileRolling,
	settingParticleEffects,
	settingSoundEnabled,
	settingAutoExclude,
	settingMode,
	settingClassicCount,
	settingClassicMethod,
	settingBatchSize,
	settingTournamentRounds,
	settingPrizeName,
}

var validThemes = map[string]bool{"light": true, "dark": true, "system": true}

// Settings holds the user preferences
type Settings struct {
	Theme                 string       `json:"theme"`
	HideNamesWhileRolling bool         `json:"hide_names_while_rolling"`
	ParticleEffects       bool         `json:"particle_effects"`
	SoundEnabled          bool         `json:"sound_enabled"`
	AutoExclude           bool         `json:"auto_exclude"`
	Mode                  draw.Mode    `json:"mode"`
	ClassicCount          int          `json:"classic_count"`
	ClassicMethod         draw.Method  `json:"classic_method"`
	BatchSize             int          `json:"batch_size"`
	TournamentRounds      []draw.Round `json:"tournament_rounds"`
	PrizeName             string       `json:"prize_name"`
}

// DefaultSettings returns the factory preferences
func DefaultSettings() Settings {
	return Settings{
		Theme:            "system",
		ParticleEffects:  true,
		SoundEnabled:     true,
		AutoExclude:      true,
		Mode:             draw.ModeClassic,
		ClassicCount:     1,
		ClassicMethod:    draw.MethodAll,
		BatchSize:        1,
		TournamentRounds: []draw.Round{{Name: "Final", Count: 1}},
	}
}

// Validate checks the enum and range fields
func (s Settings) Validate() error {
	if !validThemes[s.Theme] {
		return fmt.Errorf("invalid theme: %s", s.Theme)
	}
	if !draw.ValidMode(s.Mode) {
		return fmt.Errorf("invalid draw mode: %s", s.Mode)
	}
	if !draw.ValidMethod(s.ClassicMethod) {
		return fmt.Errorf("invalid draw method: %s", s.ClassicMethod)
	}
	if s.ClassicCount < 1 {
		return fmt.Errorf("winner count must be at least 1")
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	if len(s.TournamentRounds) == 0 {
		return fmt.Errorf("tournament needs at least one round")
	}
	for i, r := range s.TournamentRounds {
		if r.Count < 1 {
			return fmt.Errorf("round %d must keep at least 1 participant", i+1)
		}
	}
	return nil
}

// getSetting retrieves a setting value by key
func (a *App) getSetting(key string) (string, error) {
	var value string
	err := a.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// setSetting stores a setting value (insert or update)
func (a *App) setSetting(key string, value string) error {
	_, err := a.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (a *App) loadSettingValues() (map[string]string, error) {
	rows, err := a.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = value
	}
	return values, rows.Err()
}

// GetSettings returns the stored preferences merged over the defaults
func (a *App) GetSettings() (Settings, error) {
	s := DefaultSettings()
	if err := a.requireDB(); err != nil {
		return s, err
	}

	values, err := a.loadSettingValues()
	if err != nil {
		return s, err
	}

	if v, ok := values[settingTheme]; ok && validThemes[v] {
		s.Theme = v
	}
	readBool(values, settingHideNamesWhileRolling, &s.HideNamesWhileRolling)
	readBool(values, settingParticleEffects, &s.ParticleEffects)
	readBool(values, settingSoundEnabled, &s.SoundEnabled)
	readBool(values, settingAutoExclude, &s.AutoExclude)
	if v, ok := values[settingMode]; ok && draw.ValidMode(draw.Mode(v)) {
		s.Mode = draw.Mode(v)
	}
	readPositiveInt(values, settingClassicCount, &s.ClassicCount)
	if v, ok := values[settingClassicMethod]; ok && draw.ValidMethod(draw.Method(v)) {
		s.ClassicMethod = draw.Method(v)
	}
	readPositiveInt(values, settingBatchSize, &s.BatchSize)
	if v, ok := values[settingTournamentRounds]; ok {
		var rounds []draw.Round
		if err := json.Unmarshal([]byte(v), &rounds); err != nil || len(rounds) == 0 {
			log.Printf("Warning: Ignoring malformed %s setting", settingTournamentRounds)
		} else {
			s.TournamentRounds = rounds
		}
	}
	if v, ok := values[settingPrizeName]; ok {
		s.PrizeName = v
	}
	return s, nil
}

func readBool(values map[string]string, key string, dst *bool) {
	v, ok := values[key]
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: Ignoring malformed %s setting: %q", key, v)
		return
	}
	*dst = b
}

func readPositiveInt(values map[string]string, key string, dst *int) {
	v, ok := values[key]
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		log.Printf("Warning: Ignoring malformed %s setting: %q", key, v)
		return
	}
	*dst = n
}

// SaveSettings validates and persists every preference
func (a *App) SaveSettings(s Settings) error {
	if err := a.requireDB(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	rounds, err := json.Marshal(s.TournamentRounds)
	if err != nil {
		return fmt.Errorf("failed to encode rounds: %w", err)
	}
	values := map[string]string{
		settingTheme:                 s.Theme,
		settingHideNamesWhileRolling: strconv.FormatBool(s.HideNamesWhileRolling),
		settingParticleEffects:       strconv.FormatBool(s.ParticleEffects),
		settingSoundEnabled:          strconv.FormatBool(s.SoundEnabled),
		settingAutoExclude:           strconv.FormatBool(s.AutoExclude),
		settingMode:                  string(s.Mode),
		settingClassicCount:          strconv.Itoa(s.ClassicCount),
		settingClassicMethod:         string(s.ClassicMethod),
		settingBatchSize:             strconv.Itoa(s.BatchSize),
		settingTournamentRounds:      string(rounds),
		settingPrizeName:             s.PrizeName,
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range settingKeys {
		if _, err := tx.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, values[key]); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

// ResetSettings removes the stored preferences and returns the defaults.
// The linked roster is kept.
func (a *App) ResetSettings() (Settings, error) {
	if err := a.requireDB(); err != nil {
		return DefaultSettings(), err
	}
	if _, err := a.db.Exec("DELETE FROM settings WHERE key != ?", settingRosterPath); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to reset settings: %w", err)
	}
	return DefaultSettings(), nil
}
