package main

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"lucky-draw/draw"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBackupData(t *testing.T, ta *testApp) *DrawRecord {
	t.Helper()
	ta.addParticipants(t, "Alice", "Bob", "Carol")

	s := DefaultSettings()
	s.Theme = "dark"
	s.PrizeName = "Bike"
	require.NoError(t, ta.SaveSettings(s))
	require.NoError(t, ta.setSetting(settingRosterPath, "/home/me/roster.csv"))

	record, err := ta.StartDraw(DrawConfig{Mode: draw.ModeClassic, Count: 1, PrizeName: "Bike"})
	require.NoError(t, err)
	return record
}

func TestCreateBackup_Contents(t *testing.T) {
	ta := newTestApp(t)
	seedBackupData(t, ta)

	dest := filepath.Join(ta.dir, "backup.zip")
	require.NoError(t, ta.CreateBackup(dest))

	manifest, err := ValidateBackup(dest)
	require.NoError(t, err)
	assert.Equal(t, BackupFormatVersion, manifest.FormatVersion)
	assert.Equal(t, AppVersion, manifest.AppVersion)
	assert.Equal(t, BackupSummary{Participants: 3, Draws: 1, Settings: len(settingKeys)}, manifest.Summary)
	assert.Equal(t, []string{settingRosterPath}, manifest.Excluded)

	r, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		backupManifestFile, backupParticipantsFile, backupHistoryFile, backupSettingsFile,
	}, names)

	var settings map[string]string
	require.NoError(t, readZipJSON(&r.Reader, backupSettingsFile, &settings))
	assert.Equal(t, "dark", settings[settingTheme])
	assert.NotContains(t, settings, settingRosterPath)
}

func TestCreateBackup_OutOfScope(t *testing.T) {
	ta := newTestApp(t)
	assert.Error(t, ta.CreateBackup(filepath.Join(t.TempDir(), "backup.zip")))
}

func TestRestoreBackup_ReplacesData(t *testing.T) {
	src := newTestApp(t)
	record := seedBackupData(t, src)
	dest := filepath.Join(src.dir, "backup.zip")
	require.NoError(t, src.CreateBackup(dest))

	dst := newTestApp(t)
	dst.addParticipants(t, "Zed")
	require.NoError(t, dst.setSetting(settingRosterPath, "/local/roster.csv"))
	require.NoError(t, dst.files.Scope().Allow(dest))

	manifest, err := dst.RestoreBackup(dest)
	require.NoError(t, err)
	assert.Equal(t, 3, manifest.Summary.Participants)

	want, err := src.GetParticipants("")
	require.NoError(t, err)
	got, err := dst.GetParticipants("")
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Excluded, got[i].Excluded)
	}

	restored, err := dst.GetDraw(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Winners, restored.Winners)
	assert.Equal(t, "Bike", restored.PrizeName)

	settings, err := dst.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "dark", settings.Theme)

	local, err := dst.getSetting(settingRosterPath)
	require.NoError(t, err)
	assert.Equal(t, "/local/roster.csv", local, "machine-local settings survive a restore")
}

func TestImportExportBackup_ThroughDialogs(t *testing.T) {
	ta := newTestApp(t)
	seedBackupData(t, ta)

	dest := filepath.Join(ta.dir, "exports", "lucky.zip")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	ta.dialogs.path = dest
	path, err := ta.ExportBackup()
	require.NoError(t, err)
	assert.Equal(t, dest, path)

	require.NoError(t, ta.ClearParticipants())
	manifest, err := ta.ImportBackup()
	require.NoError(t, err)
	require.NotNil(t, manifest)

	stats, err := ta.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)

	ta.dialogs.path = ""
	manifest, err = ta.ImportBackup()
	require.NoError(t, err)
	assert.Nil(t, manifest)
}

func writeZip(t *testing.T, path string, files map[string]interface{}) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, v := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		require.NoError(t, json.NewEncoder(entry).Encode(v))
	}
	require.NoError(t, w.Close())
}

func TestValidateBackup_Rejects(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "plain.zip")
	require.NoError(t, os.WriteFile(notZip, []byte("not a zip"), 0644))
	_, err := ValidateBackup(notZip)
	assert.ErrorContains(t, err, "invalid backup file")

	noManifest := filepath.Join(dir, "nomanifest.zip")
	writeZip(t, noManifest, map[string]interface{}{backupParticipantsFile: []Participant{}})
	_, err = ValidateBackup(noManifest)
	assert.ErrorContains(t, err, "missing manifest")

	newer := filepath.Join(dir, "newer.zip")
	writeZip(t, newer, map[string]interface{}{
		backupManifestFile: BackupManifest{FormatVersion: BackupFormatVersion + 1},
	})
	_, err = ValidateBackup(newer)
	assert.ErrorContains(t, err, "newer than supported")

	unversioned := filepath.Join(dir, "unversioned.zip")
	writeZip(t, unversioned, map[string]interface{}{backupManifestFile: map[string]string{}})
	_, err = ValidateBackup(unversioned)
	assert.Error(t, err)
}

func TestRestoreBackup_MissingEntryLeavesDataUntouched(t *testing.T) {
	ta := newTestApp(t)
	ta.addParticipants(t, "Alice")

	path := filepath.Join(ta.dir, "partial.zip")
	writeZip(t, path, map[string]interface{}{
		backupManifestFile:     BackupManifest{FormatVersion: BackupFormatVersion},
		backupParticipantsFile: []Participant{{ID: 1, Name: "Bob", Weight: 1}},
	})

	_, err := ta.RestoreBackup(path)
	assert.ErrorContains(t, err, "missing history.json")

	all, err := ta.GetParticipants("")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alice", all[0].Name)
}
