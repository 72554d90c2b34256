package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"saysh/internal/config"
	"saysh/internal/core"
	"saysh/internal/perception"
	"saysh/internal/tactile"
	"saysh/internal/ux"
)

func TestMain(m *testing.M) {
	logger = zap.NewNop()
	goleak.VerifyTestMain(m)
}

type harness struct {
	engine *core.Engine
	mock   *tactile.MockExecutor
	cfg    *config.Config
	prefs  *ux.PreferencesManager
	out    *bytes.Buffer
}

func newHarness(t *testing.T, tweak func(*config.Config)) *harness {
	t.Helper()
	home := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Vocabulary.Watch = false
	if tweak != nil {
		tweak(cfg)
	}
	cfg.ResolvePaths(home)

	h := &harness{
		mock:  tactile.NewMockExecutor(),
		cfg:   cfg,
		prefs: ux.NewPreferencesManager(home),
		out:   &bytes.Buffer{},
	}
	e, err := core.New(cfg,
		core.WithExecutor(h.mock),
		core.WithTagger(perception.NopTagger{}),
		core.WithWorkDir(t.TempDir()),
		core.WithTempRoot(t.TempDir()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	h.engine = e
	return h
}

func (h *harness) serve(t *testing.T, input string) string {
	t.Helper()
	s := &session{engine: h.engine, prefs: h.prefs, out: h.out, styles: PlainStyles(), plain: true}
	require.NoError(t, serve(context.Background(), s, strings.NewReader(input), h.cfg))
	return h.out.String()
}

func TestREPL_ControlsAndCommands(t *testing.T) {
	h := newHarness(t, nil)
	h.mock.On("ls", tactile.MockResponse{Stdout: "a.txt\nb.txt\n"})

	out := h.serve(t, "list files\npreview off\nsettings\nxyzzy plugh\nexit\nlist files\n")

	assert.Contains(t, out, "→ ls")
	assert.Contains(t, out, "a.txt\nb.txt")
	assert.Contains(t, out, "preview is now off")
	assert.Contains(t, out, "test-mode")
	assert.Contains(t, out, "I didn't understand that")
	assert.Contains(t, out, "Goodbye.")
	assert.Len(t, h.mock.Calls(), 1, "nothing runs after exit")

	m := h.prefs.Get().Metrics
	assert.Equal(t, 1, m.CommandsExecuted)
	assert.Equal(t, 1, m.Unrecognized)
	assert.False(t, h.engine.Settings().Preview)
}

func TestREPL_EndOfInputEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	out := h.serve(t, "")
	assert.Contains(t, out, "saysh>")
}

func TestREPL_SuggestionPrompt(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Intent.ExecThreshold = 99.9
		c.Intent.SuggestThreshold = 50
	})

	out := h.serve(t, "lst files\nn\nlst files\ny\n")
	assert.Contains(t, out, "Did you mean list_files?")
	assert.Contains(t, out, "Okay, nothing ran.")
	require.Len(t, h.mock.Calls(), 1)
	assert.Equal(t, "ls", h.mock.Calls()[0].Binary)

	m := h.prefs.Get().Metrics
	assert.Equal(t, 2, m.SuggestionsOffered)
	assert.Equal(t, 1, m.SuggestionsAccepted)
}

func TestREPL_DestructiveConfirmation(t *testing.T) {
	h := newHarness(t, nil)

	out := h.serve(t, "delete file old.txt\n\ndelete file old.txt\nyes\n")
	assert.Contains(t, out, "→ rm old.txt")
	assert.Contains(t, out, "Cancelled.")
	require.Len(t, h.mock.Calls(), 1)
	assert.Equal(t, []string{"old.txt"}, h.mock.Calls()[0].Arguments)
}

func TestREPL_FeedbackRecordsCorrection(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Session.Feedback = true })

	out := h.serve(t, "git status\nno\nlist_files\n")
	assert.Contains(t, out, "Was that what you meant?")
	assert.Contains(t, out, `next time "git status" means list_files`)
	assert.Equal(t, 1, len(h.engine.Learning().Snapshot().Corrections))
}

func TestREPL_FailedStageReported(t *testing.T) {
	h := newHarness(t, nil)
	h.mock.On("ls", tactile.MockResponse{Stdout: "a\n"})
	h.mock.On("wc", tactile.MockResponse{Stderr: "wc: boom", ExitCode: 2})

	s := &session{engine: h.engine, out: h.out, styles: PlainStyles()}
	s.lines = scanLines(context.Background(), strings.NewReader(""))
	code := s.present(context.Background(), h.engine.Handle(context.Background(), "list files and count lines"))

	assert.Equal(t, 2, code)
	assert.Contains(t, h.out.String(), "wc: boom")
	assert.Contains(t, h.out.String(), "stopped at stage 2 of 2")
}

func TestREPL_WatcherReloadsVocabulary(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Vocabulary.Watch = true })
	require.NoError(t, os.MkdirAll(filepath.Dir(h.cfg.Vocabulary.Path), 0755))

	// The prompt ends on EOF, which also stops the watcher.
	out := h.serve(t, "help\n")
	assert.Contains(t, out, "Pipelines")
}

func TestHelpMarkdown(t *testing.T) {
	md := helpMarkdown(ux.DefaultSettings())
	assert.Contains(t, md, "list files and count lines")
	for _, name := range ux.AllSettings {
		assert.Contains(t, md, "`"+string(name)+"`")
	}
	assert.NotEmpty(t, renderMarkdown(md, true))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 3, exitCode(&exitError{code: 3}))
}
