package ux

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultUserPreferences(t *testing.T) {
	prefs := DefaultUserPreferences()
	if prefs.Version != PreferencesVersion {
		t.Fatalf("unexpected preferences version: %s", prefs.Version)
	}
	if prefs.Journey != StateNew {
		t.Fatalf("unexpected journey state: %s", prefs.Journey)
	}
	if !prefs.Settings.Execution || !prefs.Settings.Preview {
		t.Fatalf("expected execution and preview on by default, got %+v", prefs.Settings)
	}
}

func TestPreferencesManagerLoadSave(t *testing.T) {
	home := t.TempDir()
	pm := NewPreferencesManager(home)
	if err := pm.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	s := pm.Get().Settings
	if err := s.Set(SettingTestMode, true); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	pm.SetSettings(s)
	if err := pm.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	pm2 := NewPreferencesManager(home)
	if err := pm2.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !pm2.Get().Settings.TestMode {
		t.Fatalf("expected test mode persisted")
	}
}

func TestPreferencesManagerCorruptFile(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "preferences.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	pm := NewPreferencesManager(home)
	if err := pm.Load(); err == nil {
		t.Fatalf("expected parse error")
	}
	if pm.Get().Version != PreferencesVersion {
		t.Fatalf("expected defaults after corrupt load")
	}
}

func TestIncrementMetric(t *testing.T) {
	pm := NewPreferencesManager(t.TempDir())
	if err := pm.IncrementMetric("sessions_count"); err != nil {
		t.Fatalf("increment metric failed: %v", err)
	}
	if pm.Get().Metrics.SessionsCount != 1 {
		t.Fatalf("expected sessions count to increment")
	}
	if err := pm.IncrementMetric("unknown"); err == nil {
		t.Fatalf("expected error for unknown metric")
	}

	if err := pm.IncrementMetric("commands_executed"); err != nil {
		t.Fatalf("increment metric failed: %v", err)
	}
	if pm.GetJourneyState() != StateLearning {
		t.Fatalf("expected learning after first command, got %s", pm.GetJourneyState())
	}
}
