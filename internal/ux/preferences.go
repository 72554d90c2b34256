package ux

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PreferencesVersion is the current schema version for preferences.json.
const PreferencesVersion = "1.0"

// UserPreferences is what saysh remembers about the user between sessions.
type UserPreferences struct {
	// Version is the schema version for migration detection
	Version string `json:"version"`

	// Journey is the user's familiarity state
	Journey     UserJourneyState `json:"journey"`
	JourneyTime string           `json:"journey_transition,omitempty"`

	// Settings are the toggles as last left
	Settings Settings `json:"settings"`

	// Metrics tracks local usage statistics
	Metrics UserMetrics `json:"metrics"`
}

// PreferencesManager handles loading/saving preferences.
type PreferencesManager struct {
	mu          sync.RWMutex
	path        string
	preferences *UserPreferences
}

// NewPreferencesManager creates a preferences manager rooted at the saysh
// home directory.
func NewPreferencesManager(home string) *PreferencesManager {
	return &PreferencesManager{
		path: filepath.Join(home, "preferences.json"),
	}
}

// Path is the preferences file.
func (pm *PreferencesManager) Path() string { return pm.path }

// Load reads preferences from disk, creating defaults if not exists.
func (pm *PreferencesManager) Load() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	data, err := os.ReadFile(pm.path)
	if err != nil {
		if os.IsNotExist(err) {
			pm.preferences = DefaultUserPreferences()
			return nil
		}
		return fmt.Errorf("failed to read preferences: %w", err)
	}

	prefs := DefaultUserPreferences()
	if err := json.Unmarshal(data, prefs); err != nil {
		pm.preferences = DefaultUserPreferences()
		return fmt.Errorf("failed to parse preferences: %w", err)
	}

	pm.preferences = prefs
	return nil
}

// Save writes preferences to disk.
func (pm *PreferencesManager) Save() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.ensure()

	dir := filepath.Dir(pm.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(pm.preferences, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := os.WriteFile(pm.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	return nil
}

func (pm *PreferencesManager) ensure() {
	if pm.preferences == nil {
		pm.preferences = DefaultUserPreferences()
	}
}

// Get returns a copy of the current preferences (thread-safe).
func (pm *PreferencesManager) Get() UserPreferences {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if pm.preferences == nil {
		return *DefaultUserPreferences()
	}
	return *pm.preferences
}

// SetSettings stores the session toggles.
func (pm *PreferencesManager) SetSettings(s Settings) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.ensure()
	pm.preferences.Settings = s
}

// GetJourneyState returns the current journey state.
func (pm *PreferencesManager) GetJourneyState() UserJourneyState {
	prefs := pm.Get()
	if prefs.Journey == "" {
		return StateNew
	}
	return prefs.Journey
}

// IncrementMetric increments a numeric metric and advances the journey
// state when the new counts warrant it.
func (pm *PreferencesManager) IncrementMetric(metric string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.ensure()
	m := &pm.preferences.Metrics

	switch metric {
	case "sessions_count":
		m.SessionsCount++
		m.LastSession = time.Now().Format(time.RFC3339)
	case "commands_executed":
		m.CommandsExecuted++
	case "suggestions_offered":
		m.SuggestionsOffered++
	case "suggestions_accepted":
		m.SuggestionsAccepted++
	case "unrecognized":
		m.Unrecognized++
	case "help_requests":
		m.HelpRequests++
	case "errors_encountered":
		m.ErrorsEncountered++
	default:
		return fmt.Errorf("unknown metric: %s", metric)
	}

	current := pm.preferences.Journey
	if current == "" {
		current = StateNew
	}
	if next, ok := m.ShouldTransition(current); ok {
		pm.preferences.Journey = next
		pm.preferences.JourneyTime = time.Now().Format(time.RFC3339)
	}
	return nil
}

// DefaultUserPreferences returns sensible defaults for new users.
func DefaultUserPreferences() *UserPreferences {
	return &UserPreferences{
		Version:  PreferencesVersion,
		Journey:  StateNew,
		Settings: DefaultSettings(),
	}
}
