// Package core is the saysh engine. It owns the session state (context,
// learning record, vocabulary, settings) and runs an utterance through
// detection, splitting, resolution and execution.
package core

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/google/uuid"

	"saysh/internal/actions"
	"saysh/internal/config"
	"saysh/internal/history"
	"saysh/internal/learning"
	"saysh/internal/logging"
	"saysh/internal/perception"
	"saysh/internal/pipeline"
	"saysh/internal/similarity"
	"saysh/internal/store"
	"saysh/internal/tactile"
	"saysh/internal/ux"
)

// Engine wires the resolvers, the pipeline and persistence together.
// Handle, Confirm, Execute and RecordFeedback are serialized.
type Engine struct {
	mu sync.Mutex

	cfg        *config.Config
	sessionID  string
	registry   *actions.Registry
	dispatcher *actions.Dispatcher
	learning   *learning.Manager
	context    *history.Store
	resolver   *perception.IntentResolver
	parser     *perception.Parser
	detector   *pipeline.Detector
	splitter   *pipeline.Splitter
	executor   *pipeline.Executor
	journal    *store.Journal
	settings   ux.Settings

	ownsJournal bool
	warnings    []string
}

// Option customizes an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	executor      tactile.Executor
	tagger        perception.Tagger
	learningStore learning.Store
	journal       *store.Journal
	noJournal     bool
	settings      *ux.Settings
	workDir       string
	tempRoot      string
}

// WithExecutor replaces the OS process executor, e.g. with a mock.
func WithExecutor(x tactile.Executor) Option {
	return func(o *engineOptions) { o.executor = x }
}

// WithTagger replaces the part-of-speech tagger.
func WithTagger(t perception.Tagger) Option {
	return func(o *engineOptions) { o.tagger = t }
}

// WithLearningStore replaces the learning record file.
func WithLearningStore(s learning.Store) Option {
	return func(o *engineOptions) { o.learningStore = s }
}

// WithJournal uses an already opened journal. The engine does not close it.
func WithJournal(j *store.Journal) Option {
	return func(o *engineOptions) { o.journal = j }
}

// WithoutJournal disables journaling regardless of config.
func WithoutJournal() Option {
	return func(o *engineOptions) { o.noJournal = true }
}

// WithSettings sets the initial session toggles instead of the config's.
func WithSettings(s ux.Settings) Option {
	return func(o *engineOptions) { o.settings = &s }
}

// WithWorkDir sets the directory commands start in.
func WithWorkDir(dir string) Option {
	return func(o *engineOptions) { o.workDir = dir }
}

// WithTempRoot sets where pipeline hand-off files are created.
func WithTempRoot(dir string) Option {
	return func(o *engineOptions) { o.tempRoot = dir }
}

// New builds an engine from cfg, whose paths must already be resolved.
// Problems that do not prevent a session (unreadable learning data, a bad
// vocabulary file, an unavailable journal) are kept as warnings.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "core.New")
	defer timer.Stop()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.executor == nil {
		xcfg := tactile.DefaultExecutorConfig()
		xcfg.DefaultTimeout = cfg.GetExecutionTimeout()
		if cfg.Execution.MaxOutputBytes > 0 {
			xcfg.MaxOutputBytes = cfg.Execution.MaxOutputBytes
		}
		o.executor = tactile.NewDirectExecutorWithConfig(xcfg)
	}
	if o.tagger == nil {
		o.tagger = perception.ProseTagger{}
	}
	if o.learningStore == nil {
		path := cfg.Learning.Path
		if path == "" {
			path = learning.DefaultPath(config.Home())
		}
		o.learningStore = learning.NewFileStore(path)
	}
	if o.workDir == "" {
		o.workDir = cfg.Execution.WorkingDir
	}

	e := &Engine{
		cfg:       cfg,
		sessionID: uuid.NewString(),
		registry:  actions.NewRegistry(),
		context:   history.NewStore(cfg.Context.HistorySize),
		learning:  learning.NewManager(o.learningStore),
		detector:  pipeline.NewDetector(),
		splitter:  pipeline.NewSplitter(),
		settings:  ux.SettingsFromConfig(cfg.Session),
	}
	if o.settings != nil {
		e.settings = *o.settings
	}

	if err := e.learning.Load(); err != nil {
		e.warn("learning data: %v", err)
	}

	e.dispatcher = actions.NewDispatcher(e.registry, o.executor, o.workDir)
	var popts []pipeline.Option
	if o.tempRoot != "" {
		popts = append(popts, pipeline.WithTempRoot(o.tempRoot))
	}
	e.executor = pipeline.NewExecutor(e.dispatcher, popts...)

	th := perception.Thresholds{
		Execute:    cfg.Intent.ExecThreshold,
		Suggest:    cfg.Intent.SuggestThreshold,
		Correction: cfg.Intent.CorrectionThreshold,
	}
	e.resolver = perception.NewIntentResolver(perception.DefaultVocabulary(), similarity.New(), e.learning, th)
	e.parser = perception.NewParser(e.resolver, perception.NewEntityResolver(o.tagger), e.context, e.learning)

	if cfg.Vocabulary.Path != "" {
		warnings, err := e.ReloadVocabulary(cfg.Vocabulary.Path)
		for _, w := range warnings {
			e.warn("vocabulary: %s", w)
		}
		if err != nil {
			e.warn("vocabulary: %v", err)
		}
	}

	switch {
	case o.noJournal:
	case o.journal != nil:
		e.journal = o.journal
	case cfg.Journal.Enabled && cfg.Journal.Path != "":
		j, err := store.Open(cfg.Journal.Path)
		if err != nil {
			e.warn("journal disabled: %v", err)
		} else {
			e.journal, e.ownsJournal = j, true
		}
	}

	logging.Boot("Engine ready: session %s, %d phrases, work dir %s", e.sessionID, e.resolver.Vocabulary().Len(), e.dispatcher.WorkDir())
	return e, nil
}

func (e *Engine) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logging.BootWarn("%s", msg)
	e.warnings = append(e.warnings, msg)
}

// Warnings returns the problems found while starting.
func (e *Engine) Warnings() []string {
	return append([]string(nil), e.warnings...)
}

// Close releases the journal if the engine opened it.
func (e *Engine) Close() error {
	if e.journal != nil && e.ownsJournal {
		return e.journal.Close()
	}
	return nil
}

// SessionID identifies this engine's journal entries.
func (e *Engine) SessionID() string { return e.sessionID }

// Config is the configuration the engine was built with.
func (e *Engine) Config() *config.Config { return e.cfg }

// Registry is the set of executable actions.
func (e *Engine) Registry() *actions.Registry { return e.registry }

// Context is the recent-command store.
func (e *Engine) Context() *history.Store { return e.context }

// Learning is the learning record manager.
func (e *Engine) Learning() *learning.Manager { return e.learning }

// Journal is the execution journal, or nil when journaling is off.
func (e *Engine) Journal() *store.Journal { return e.journal }

// Vocabulary is the active phrase table.
func (e *Engine) Vocabulary() *perception.Vocabulary { return e.resolver.Vocabulary() }

// WorkDir is where the next command runs.
func (e *Engine) WorkDir() string { return e.dispatcher.WorkDir() }

// Settings returns the current session toggles.
func (e *Engine) Settings() ux.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetSetting flips one session toggle.
func (e *Engine) SetSetting(name ux.Setting, on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.settings.Set(name, on); err != nil {
		return err
	}
	logging.Session("Setting %s -> %v", name, on)
	return nil
}

// ReloadVocabulary overlays the user mapping file at path on the built-in
// phrases. Custom actions in the file are registered first; mappings naming
// an action that is neither built in nor custom are skipped with a warning.
// A missing file resets to the built-ins without error. Safe to call from
// the config watcher goroutine.
func (e *Engine) ReloadVocabulary(path string) ([]string, error) {
	uv, err := config.LoadVocabulary(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.resolver.SetVocabulary(perception.DefaultVocabulary())
			logging.Config("No user vocabulary at %s, using built-ins", path)
			return nil, nil
		}
		return nil, err
	}

	warnings := append([]string(nil), uv.Warnings...)

	ids := make([]actions.ID, 0, len(uv.Actions))
	for id := range uv.Actions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := e.registry.Register(id, uv.Actions[id]); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	mappings := make(map[string]actions.ID, len(uv.Mappings))
	for phrase, id := range uv.Mappings {
		if !e.registry.Known(id) {
			warnings = append(warnings, fmt.Sprintf("skipping %q: unknown action %s", phrase, id))
			continue
		}
		mappings[phrase] = id
	}
	sort.Strings(warnings)

	e.resolver.SetVocabulary(perception.DefaultVocabulary().Overlay(mappings))
	logging.Config("Loaded %d user phrase(s) and %d custom action(s) from %s", len(mappings), len(ids), path)
	return warnings, nil
}
