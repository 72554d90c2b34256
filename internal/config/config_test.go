package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"saysh/internal/actions"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SAYSH_DEBUG", "SAYSH_EXEC_THRESHOLD", "SAYSH_SUGGEST_THRESHOLD", "SAYSH_VOCABULARY"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 90.0, cfg.Intent.ExecThreshold)
	assert.Equal(t, 65.0, cfg.Intent.SuggestThreshold)
	assert.Equal(t, 90.0, cfg.Intent.CorrectionThreshold)
	assert.Equal(t, 10, cfg.Context.HistorySize)
	assert.Zero(t, cfg.GetExecutionTimeout())
	assert.False(t, cfg.Logging.DebugMode)
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Intent.ExecThreshold = 95
	cfg.Context.HistorySize = 4
	cfg.Session.TestMode = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 95.0, loaded.Intent.ExecThreshold)
	assert.Equal(t, 4, loaded.Context.HistorySize)
	assert.True(t, loaded.Session.TestMode)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intent:\n  suggest_threshold: 70\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 70.0, cfg.Intent.SuggestThreshold)
	assert.Equal(t, 90.0, cfg.Intent.ExecThreshold)
	assert.Equal(t, 10, cfg.Context.HistorySize)
}

func TestLoad_Malformed(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intent: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("thresholds and debug", func(t *testing.T) {
		t.Setenv("SAYSH_DEBUG", "true")
		t.Setenv("SAYSH_EXEC_THRESHOLD", "80")
		t.Setenv("SAYSH_SUGGEST_THRESHOLD", "50.5")
		t.Setenv("SAYSH_VOCABULARY", "/tmp/words.yaml")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
		assert.Equal(t, 80.0, cfg.Intent.ExecThreshold)
		assert.Equal(t, 50.5, cfg.Intent.SuggestThreshold)
		assert.Equal(t, "/tmp/words.yaml", cfg.Vocabulary.Path)
	})

	t.Run("garbage is ignored", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SAYSH_EXEC_THRESHOLD", "high")
		t.Setenv("SAYSH_DEBUG", "sometimes")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 90.0, cfg.Intent.ExecThreshold)
		assert.False(t, cfg.Logging.DebugMode)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"suggest above exec", func(c *Config) { c.Intent.SuggestThreshold = 95 }, ErrInvalidThresholds},
		{"equal thresholds", func(c *Config) { c.Intent.SuggestThreshold = 90 }, ErrInvalidThresholds},
		{"exec over 100", func(c *Config) { c.Intent.ExecThreshold = 101 }, ErrInvalidThresholds},
		{"zero correction", func(c *Config) { c.Intent.CorrectionThreshold = 0 }, ErrInvalidThresholds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	cfg := DefaultConfig()
	cfg.Context.HistorySize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Execution.Timeout = "soon"
	assert.Error(t, cfg.Validate())

	cfg.Execution.Timeout = "30s"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.GetExecutionTimeout())
}

func TestResolvePaths(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig()
	cfg.Journal.Path = "db/journal.db"
	cfg.Learning.Path = "/abs/learning.json"
	cfg.ResolvePaths(home)

	assert.Equal(t, "/abs/learning.json", cfg.Learning.Path)
	assert.Equal(t, filepath.Join(home, "vocabulary.yaml"), cfg.Vocabulary.Path)
	assert.Equal(t, filepath.Join(home, "db", "journal.db"), cfg.Journal.Path)
}

func TestHome(t *testing.T) {
	t.Setenv("SAYSH_HOME", "/srv/saysh")
	assert.Equal(t, "/srv/saysh", Home())
	assert.Equal(t, "/srv/saysh/config.yaml", DefaultPath(Home()))
}

func TestLoggingConfig(t *testing.T) {
	lc := LoggingConfig{Categories: map[string]bool{"pipeline": false}}
	assert.False(t, lc.IsCategoryEnabled("boot"))

	lc.DebugMode = true
	lc.Format = "json"
	assert.True(t, lc.IsCategoryEnabled("boot"))
	assert.False(t, lc.IsCategoryEnabled("pipeline"))

	opts := lc.Options()
	assert.True(t, opts.DebugMode)
	assert.True(t, opts.JSONFormat)
}

// =============================================================================
// VOCABULARY TESTS
// =============================================================================

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	content := `command_mappings:
  ship it: git_commit
  show me stuff: "List Files"
  ask me: suggest
  nothing: ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]actions.ID{
		"ship it":       actions.GitCommit,
		"show me stuff": actions.ListFiles,
	}, v.Mappings)
	assert.Len(t, v.Warnings, 2)
}

func TestLoadVocabulary_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"command_mappings": {"where": "show_path"}}`), 0644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, actions.ShowPath, v.Mappings["where"])
}

func TestLoadVocabulary_CustomActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	content := `command_mappings:
  show the date: today
custom_actions:
  today: [date, "+%Y-%m-%d"]
  broken: []
  error: [echo]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, actions.ID("today"), v.Mappings["show the date"])
	assert.Equal(t, map[actions.ID][]string{"today": {"date", "+%Y-%m-%d"}}, v.Actions)
	assert.Len(t, v.Warnings, 2)
}

func TestLoadVocabulary_Failures(t *testing.T) {
	dir := t.TempDir()

	v, err := LoadVocabulary(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.NotNil(t, v)
	assert.Empty(t, v.Mappings)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("command_mappings: [1, 2"), 0644))
	v, err = LoadVocabulary(bad)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrNotExist))
	assert.Empty(t, v.Mappings)
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("command_mappings: {}\n"), 0644))

	changed := make(chan string, 4)
	w, err := NewWatcher(path, 50*time.Millisecond, func(p string) { changed <- p })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("command_mappings: {ship it: git_commit}\n"), 0644))

	select {
	case p := <-changed:
		assert.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
	assert.GreaterOrEqual(t, w.Stats().Reloads, 1)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "v.yaml"), 0, nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}

func TestWatcher_StartFailsForMissingDirectory(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "v.yaml"), 0, nil)
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Start(context.Background()))
}
