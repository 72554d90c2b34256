package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"saysh/internal/actions"
	"saysh/internal/config"
	"saysh/internal/core"
	"saysh/internal/ux"
)

var (
	runDryRun    bool
	runYes       bool
	historyLimit int
)

// runCmd handles one utterance and exits with its status.
var runCmd = &cobra.Command{
	Use:   "run [sentence]",
	Short: "Run one sentence and exit with its status",
	Long: `Resolves a sentence and runs it. Suggestions and destructive commands are
confirmed on stdin unless --yes is given.

Example:
  saysh run list files and count lines
  saysh run --dry-run delete file old.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOnce,
}

// parseCmd shows how a sentence resolves without running it.
var parseCmd = &cobra.Command{
	Use:   "parse [sentence]",
	Short: "Show how a sentence resolves, without running anything",
	Args:  cobra.MinimumNArgs(1),
	RunE:  parseSentence,
}

// correctCmd stores a correction.
var correctCmd = &cobra.Command{
	Use:   "correct [action] [sentence]",
	Short: "Teach saysh that a sentence means an action",
	Long: `Records a correction: from now on, sentences close to the given one
resolve to the action.

Example:
  saysh correct list_files gimme the goods`,
	Args: cobra.MinimumNArgs(2),
	RunE: correctSentence,
}

// historyCmd lists the execution journal.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently handled sentences",
	RunE:  showHistory,
}

// statsCmd shows learned usage.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show command frequencies and journal totals",
	RunE:  showStats,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the saysh configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPath(resolveHome()))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultPath(resolveHome())
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	settings := ux.SettingsFromConfig(cfg.Session)
	settings.Feedback = false
	if runDryRun {
		settings.Execution = false
	}

	engine, err := newEngine(cfg, core.WithSettings(settings))
	if err != nil {
		return err
	}
	defer engine.Close()

	code := runSentence(ctx, engine, cmd, joinArgs(args))
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// runSentence handles text in a one-shot session reading answers from the
// command's stdin.
func runSentence(ctx context.Context, engine *core.Engine, cmd *cobra.Command, text string) int {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	s := &session{
		engine:  engine,
		out:     cmd.OutOrStdout(),
		styles:  stylesFor(os.Stdout),
		autoYes: runYes,
	}
	s.lines = scanLines(ctx, cmd.InOrStdin())
	return s.present(ctx, engine.Handle(ctx, text))
}

func parseSentence(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg, core.WithoutJournal())
	if err != nil {
		return err
	}
	defer engine.Close()

	out := cmd.OutOrStdout()
	p := engine.Plan(joinArgs(args))
	if !p.Multi {
		fmt.Fprintf(out, "intent:  %s %s (score %.1f, %s)\n", p.Intent.Kind, p.Intent.Action, p.Intent.Score, p.Intent.Source)
	} else {
		fmt.Fprintf(out, "pipeline: %d stage(s)\n", len(p.Stages))
	}
	for _, st := range p.Stages {
		fmt.Fprintf(out, "stage %d: %s\n", st.Index+1, st.Command.String())
	}
	for _, sk := range p.Skipped {
		fmt.Fprintf(out, "unresolved: %q (%s %s)\n", sk.Text, sk.Intent.Kind, sk.Intent.Action)
	}
	for _, w := range p.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

func correctSentence(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg, core.WithoutJournal())
	if err != nil {
		return err
	}
	defer engine.Close()

	id, ok := engine.Registry().Lookup(args[0])
	if !ok {
		if c := engine.CorrectionCandidates(args[0], 3); len(c) > 0 {
			return fmt.Errorf("unknown action %q (closest: %s)", args[0], joinIDs(c))
		}
		return fmt.Errorf("unknown action %q", args[0])
	}
	text := joinArgs(args[1:])
	if err := engine.RecordFeedback(text, false, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%q now means %s\n", text, id)
	return nil
}

func showHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	j := engine.Journal()
	if j == nil {
		return fmt.Errorf("the execution journal is disabled")
	}
	entries, err := j.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMODE\tSTATUS\tSENTENCE\tCOMMANDS")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = fmt.Sprintf("exit %d", e.ExitCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Mode, status, e.Utterance, strings.Join(e.Stages, " | "))
	}
	return tw.Flush()
}

func showStats(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	st, err := engine.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Most used actions:")
	if len(st.TopActions) == 0 {
		fmt.Fprintln(out, "  (none yet)")
	}
	for _, r := range st.TopActions {
		fmt.Fprintf(out, "  %-18s %d\n", r.Action, r.Count)
	}
	fmt.Fprintf(out, "Corrections learned: %d\n", st.Corrections)
	fmt.Fprintf(out, "Misunderstood:       %d\n", st.Misinterpreted)
	if j := st.Journal; j != nil {
		fmt.Fprintf(out, "Journal: %d total, %d succeeded, %d failed, %d not run\n", j.Total, j.Succeeded, j.Failed, j.Previewed)
	}
	return nil
}

func joinIDs(ids []actions.ID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}
