package ux

import (
	"fmt"

	"saysh/internal/config"
)

// Setting names a session toggle.
type Setting string

const (
	SettingVerbose   Setting = "verbose"
	SettingPreview   Setting = "preview"
	SettingFeedback  Setting = "feedback"
	SettingExecution Setting = "execution"
	SettingSuggest   Setting = "suggest"
	SettingTestMode  Setting = "test-mode"
)

// AllSettings lists the toggles in display order.
var AllSettings = []Setting{
	SettingVerbose, SettingPreview, SettingFeedback,
	SettingExecution, SettingSuggest, SettingTestMode,
}

var settingHelp = map[Setting]string{
	SettingVerbose:   "show resolution details (action, score, source)",
	SettingPreview:   "show the command before running it; confirm destructive ones",
	SettingFeedback:  "ask whether each interpretation was right",
	SettingExecution: "run commands (off = plan and preview only)",
	SettingSuggest:   "accept close matches without asking",
	SettingTestMode:  "never run processes; report a mock result",
}

// Description is the one-line help for s.
func (s Setting) Description() string { return settingHelp[s] }

// Settings are the session toggles.
type Settings struct {
	Verbose   bool `json:"verbose"`
	Preview   bool `json:"preview"`
	Feedback  bool `json:"feedback"`
	Execution bool `json:"execution"`
	Suggest   bool `json:"suggest"`
	TestMode  bool `json:"test_mode"`
}

// DefaultSettings are the toggles of a fresh session.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.DefaultConfig().Session)
}

// SettingsFromConfig maps the config session section to toggles.
func SettingsFromConfig(c config.SessionConfig) Settings {
	return Settings{
		Verbose:   c.Verbose,
		Preview:   c.Preview,
		Feedback:  c.Feedback,
		Execution: c.Execution,
		Suggest:   c.Suggest,
		TestMode:  c.TestMode,
	}
}

func (s *Settings) field(name Setting) (*bool, error) {
	switch name {
	case SettingVerbose:
		return &s.Verbose, nil
	case SettingPreview:
		return &s.Preview, nil
	case SettingFeedback:
		return &s.Feedback, nil
	case SettingExecution:
		return &s.Execution, nil
	case SettingSuggest:
		return &s.Suggest, nil
	case SettingTestMode:
		return &s.TestMode, nil
	}
	return nil, fmt.Errorf("unknown setting: %s", name)
}

// Get returns one toggle.
func (s Settings) Get(name Setting) (bool, error) {
	f, err := s.field(name)
	if err != nil {
		return false, err
	}
	return *f, nil
}

// Set changes one toggle.
func (s *Settings) Set(name Setting, on bool) error {
	f, err := s.field(name)
	if err != nil {
		return err
	}
	*f = on
	return nil
}

// SettingState is a toggle and its value, for listings.
type SettingState struct {
	Name Setting
	On   bool
}

// List returns every toggle in display order.
func (s Settings) List() []SettingState {
	out := make([]SettingState, 0, len(AllSettings))
	for _, name := range AllSettings {
		v, _ := s.Get(name)
		out = append(out, SettingState{Name: name, On: v})
	}
	return out
}
