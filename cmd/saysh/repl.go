package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"saysh/internal/actions"
	"saysh/internal/config"
	"saysh/internal/core"
	"saysh/internal/ux"
)

// vocabularyDebounce coalesces editor save bursts.
const vocabularyDebounce = 250 * time.Millisecond

// session is one conversation with the engine over a line stream.
type session struct {
	engine *core.Engine
	prefs  *ux.PreferencesManager
	lines  <-chan string
	out    io.Writer
	styles Styles
	plain  bool
	// autoYes answers every question with yes.
	autoYes bool
}

// scanLines feeds r line by line until EOF or ctx ends.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (s *session) next(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-s.lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

// ask prints question and reads a yes/no answer; an empty answer is def.
func (s *session) ask(ctx context.Context, question string, def bool) bool {
	if s.autoYes {
		return true
	}
	fmt.Fprint(s.out, s.styles.Prompt.Render(question))
	line, ok := s.next(ctx)
	if !ok {
		fmt.Fprintln(s.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

func (s *session) metric(name string) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.IncrementMetric(name); err != nil {
		logger.Debug("Metric not recorded", zap.String("metric", name), zap.Error(err))
	}
}

func (s *session) println(st interface{ Render(...string) string }, format string, args ...interface{}) {
	fmt.Fprintln(s.out, st.Render(fmt.Sprintf(format, args...)))
}

// loop runs the prompt until exit, end of input or cancellation.
func (s *session) loop(ctx context.Context) error {
	s.println(s.styles.Title, "saysh")
	if s.prefs == nil || s.prefs.GetJourneyState().ShowTips() {
		s.println(s.styles.Muted, "Say what you want to do, e.g. \"list files and count lines\". Type 'help' for more.")
	}

	for {
		fmt.Fprint(s.out, s.styles.Prompt.Render("saysh> "))
		line, ok := s.next(ctx)
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		c := ux.ParseControl(line)
		switch c.Kind {
		case ux.ControlExit:
			s.println(s.styles.Muted, "Goodbye.")
			return nil
		case ux.ControlHelp:
			s.metric("help_requests")
			fmt.Fprint(s.out, renderMarkdown(helpMarkdown(s.engine.Settings()), s.plain))
		case ux.ControlSettings:
			for _, st := range s.engine.Settings().List() {
				fmt.Fprintf(s.out, "  %-10s %-3s  %s\n", st.Name, onOff(st.On), s.styles.Muted.Render(st.Name.Description()))
			}
		case ux.ControlClear:
			fmt.Fprint(s.out, "\033[H\033[2J")
		case ux.ControlToggle:
			if err := s.engine.SetSetting(c.Setting, c.On); err != nil {
				s.println(s.styles.Error, "%v", err)
				continue
			}
			s.println(s.styles.Success, "%s is now %s", c.Setting, onOff(c.On))
		default:
			s.present(ctx, s.engine.Handle(ctx, line))
		}
	}
}

// present shows an outcome, asking follow-up questions where the outcome
// needs an answer, and returns the exit status it stands for.
func (s *session) present(ctx context.Context, o *core.Outcome) int {
	for _, w := range o.Warnings {
		s.println(s.styles.Warning, "warning: %s", w)
	}
	if o.Plan != nil {
		for _, sk := range o.Plan.Unrecognized() {
			s.println(s.styles.Warning, "not understood: %q", sk.Text)
		}
	}

	switch o.Kind {
	case core.OutcomeUnrecognized:
		s.metric("unrecognized")
		s.println(s.styles.Error, "I didn't understand that. Try rephrasing it, or type 'help'.")
		return 1

	case core.OutcomeSuggestion:
		s.metric("suggestions_offered")
		question := fmt.Sprintf("Did you mean %s? [y/N] ", o.Suggestion.Action)
		if o.Suggestion.Pipeline != "" {
			question = fmt.Sprintf("By %q did you mean %s? [y/N] ", o.Suggestion.Text, o.Suggestion.Action)
		}
		accept := s.ask(ctx, question, false)
		if accept {
			s.metric("suggestions_accepted")
		}
		return s.present(ctx, s.engine.Confirm(ctx, o.Suggestion, accept))

	case core.OutcomeDeclined:
		s.println(s.styles.Muted, "Okay, nothing ran.")
		return 0

	case core.OutcomeNeedsConfirmation:
		s.showPreview(o.Preview)
		if s.ask(ctx, "This deletes data. Run it? [y/N] ", false) {
			return s.present(ctx, s.engine.Execute(ctx, o.Plan))
		}
		s.println(s.styles.Muted, "Cancelled.")
		return 0

	case core.OutcomePreviewed:
		s.showPreview(o.Preview)
		s.println(s.styles.Muted, "execution is off; nothing ran")
		return 0

	case core.OutcomeTested:
		s.showPreview(o.Preview)
		s.println(s.styles.Muted, "%s", o.Result.Stdout)
		return 0
	}

	if s.engine.Settings().Preview {
		s.showPreview(o.Preview)
	}
	code := s.showResult(o)
	if code == 0 {
		s.metric("commands_executed")
	} else {
		s.metric("errors_encountered")
	}
	if s.engine.Settings().Feedback && !s.autoYes {
		s.feedback(ctx, o.Plan.Text)
	}
	return code
}

func (s *session) showPreview(lines []string) {
	if len(lines) == 0 {
		return
	}
	s.println(s.styles.Command, "→ %s", strings.Join(lines, " | "))
}

func (s *session) showResult(o *core.Outcome) int {
	r := o.Result
	if out := strings.TrimRight(r.Stdout, "\n"); out != "" {
		fmt.Fprintln(s.out, s.styles.Output.Render(out))
	}
	if s.engine.Settings().Verbose {
		s.println(s.styles.Muted, "run %s: %d stage(s) in %s", r.RunID, r.StagesExecuted, r.Duration.Round(time.Millisecond))
	}
	if r.Success {
		return 0
	}

	if stderr := strings.TrimRight(r.Stderr, "\n"); stderr != "" {
		s.println(s.styles.Error, "%s", stderr)
	}
	if r.Err != nil && !strings.Contains(r.Stderr, r.Err.Error()) {
		s.println(s.styles.Error, "%s", r.ErrorMessage())
	}
	if r.FailedStageIndex != nil && len(o.Preview) > 1 {
		s.println(s.styles.Error, "stopped at stage %d of %d", *r.FailedStageIndex+1, len(o.Preview))
	}
	if r.ExitCode > 0 {
		return r.ExitCode
	}
	return 1
}

// feedback asks whether text was understood and records the answer.
func (s *session) feedback(ctx context.Context, text string) {
	if s.ask(ctx, "Was that what you meant? [Y/n] ", true) {
		if err := s.engine.RecordFeedback(text, true, ""); err != nil {
			s.println(s.styles.Warning, "warning: %v", err)
		}
		return
	}

	fmt.Fprint(s.out, s.styles.Prompt.Render("What should it have been? (action name, empty to skip) "))
	answer, _ := s.next(ctx)
	var action actions.ID
	if answer = strings.TrimSpace(answer); answer != "" {
		action = s.pickAction(ctx, answer)
	}
	if err := s.engine.RecordFeedback(text, false, action); err != nil {
		s.println(s.styles.Warning, "warning: %v", err)
		return
	}
	if action != "" {
		s.println(s.styles.Success, "Got it: next time %q means %s.", text, action)
	}
}

// pickAction maps free text to a registered action, offering the closest
// match when the text is not an action name.
func (s *session) pickAction(ctx context.Context, answer string) actions.ID {
	if id, ok := s.engine.Registry().Lookup(answer); ok {
		return id
	}
	candidates := s.engine.CorrectionCandidates(answer, 3)
	if len(candidates) == 0 {
		s.println(s.styles.Warning, "no action like %q", answer)
		return ""
	}
	if s.ask(ctx, fmt.Sprintf("Did you mean %s? [y/N] ", candidates[0]), false) {
		return candidates[0]
	}
	return ""
}

// runInteractive is the root command: the prompt, with the user vocabulary
// reloaded in the background whenever its file changes.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, home, err := loadConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}

	prefs := ux.NewPreferencesManager(home)
	settings := ux.SettingsFromConfig(cfg.Session)
	if _, statErr := os.Stat(prefs.Path()); statErr == nil {
		if err := prefs.Load(); err != nil {
			logger.Warn("Preferences reset", zap.Error(err))
		} else {
			settings = prefs.Get().Settings
			settings.Verbose = settings.Verbose || verbose
		}
	}

	engine, err := newEngine(cfg, core.WithSettings(settings))
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := prefs.IncrementMetric("sessions_count"); err != nil {
		logger.Debug("Metric not recorded", zap.Error(err))
	}

	s := &session{
		engine: engine,
		prefs:  prefs,
		out:    cmd.OutOrStdout(),
		styles: stylesFor(os.Stdout),
	}
	s.plain = !isTerminal(os.Stdout)

	err = serve(ctx, s, cmd.InOrStdin(), cfg)

	prefs.SetSettings(engine.Settings())
	if saveErr := prefs.Save(); saveErr != nil {
		logger.Warn("Preferences not saved", zap.Error(saveErr))
	}
	return err
}

// serve runs the prompt and, when configured, the vocabulary watcher until
// the prompt ends.
func serve(ctx context.Context, s *session, in io.Reader, cfg *config.Config) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	s.lines = scanLines(gctx, in)

	if cfg.Vocabulary.Watch && cfg.Vocabulary.Path != "" {
		if w := startVocabularyWatcher(gctx, s.engine, cfg.Vocabulary.Path); w != nil {
			g.Go(func() error {
				<-gctx.Done()
				w.Stop()
				return nil
			})
		}
	}

	g.Go(func() error {
		defer stop()
		return s.loop(gctx)
	})
	return g.Wait()
}

func startVocabularyWatcher(ctx context.Context, engine *core.Engine, path string) *config.Watcher {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Warn("Vocabulary watch disabled", zap.Error(err))
		return nil
	}
	w, err := config.NewWatcher(path, vocabularyDebounce, func(p string) {
		warnings, err := engine.ReloadVocabulary(p)
		if err != nil {
			logger.Warn("Vocabulary reload failed", zap.String("path", p), zap.Error(err))
			return
		}
		for _, msg := range warnings {
			logger.Warn("Vocabulary", zap.String("path", p), zap.String("warning", msg))
		}
		logger.Info("Vocabulary reloaded", zap.String("path", p), zap.Int("phrases", engine.Vocabulary().Len()))
	})
	if err != nil {
		logger.Warn("Vocabulary watch disabled", zap.Error(err))
		return nil
	}
	if err := w.Start(ctx); err != nil {
		logger.Warn("Vocabulary watch disabled", zap.Error(err))
		return nil
	}
	return w
}
