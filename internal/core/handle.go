package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"saysh/internal/actions"
	"saysh/internal/learning"
	"saysh/internal/logging"
	"saysh/internal/perception"
	"saysh/internal/pipeline"
	"saysh/internal/store"
)

// OutcomeKind says how Handle disposed of an utterance.
type OutcomeKind int

const (
	// OutcomeExecuted means the plan ran; Result holds what happened.
	OutcomeExecuted OutcomeKind = iota
	// OutcomeSuggestion means confirmation is needed, see Confirm.
	OutcomeSuggestion
	// OutcomeUnrecognized means the user should rephrase.
	OutcomeUnrecognized
	// OutcomeNeedsConfirmation means a destructive plan awaits Execute.
	OutcomeNeedsConfirmation
	// OutcomePreviewed means execution is off and only Preview is set.
	OutcomePreviewed
	// OutcomeTested means test mode produced a mock Result.
	OutcomeTested
	// OutcomeDeclined means a suggestion was rejected.
	OutcomeDeclined
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeExecuted:
		return "executed"
	case OutcomeSuggestion:
		return "suggestion"
	case OutcomeUnrecognized:
		return "unrecognized"
	case OutcomeNeedsConfirmation:
		return "needs_confirmation"
	case OutcomePreviewed:
		return "previewed"
	case OutcomeTested:
		return "tested"
	case OutcomeDeclined:
		return "declined"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Suggestion is an action offered for confirmation.
type Suggestion struct {
	Text   string
	Action actions.ID
	Score  float64

	// Pipeline is the whole utterance when Text is one of its parts.
	Pipeline string
	// Part is the index of Text among the pipeline's parts.
	Part int
	// accepted holds the parts of Pipeline confirmed before this one.
	accepted map[int]actions.ID
}

// Outcome is what happened to one utterance.
type Outcome struct {
	Kind       OutcomeKind
	Plan       *Plan
	Preview    []string
	Result     *pipeline.Result
	Suggestion *Suggestion
	// JournalID is set when the outcome was journaled.
	JournalID string
	Warnings  []string
}

// Handle resolves and, depending on the session settings, runs text.
func (e *Engine) Handle(ctx context.Context, text string) *Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	logging.Session("Handle %q", text)
	p := e.plan(text, nil)

	if p.Multi {
		return e.hold(ctx, p, nil)
	}
	if len(p.Stages) == 0 {
		switch p.Intent.Kind {
		case perception.Suggested:
			s := &Suggestion{Text: text, Action: p.Intent.Action, Score: p.Intent.Score}
			if !e.settings.Suggest {
				return &Outcome{Kind: OutcomeSuggestion, Plan: p, Suggestion: s, Warnings: p.Warnings}
			}
			logging.Session("Auto-accepting suggestion %s for %q", s.Action, text)
			return e.accept(ctx, s, p.Warnings)
		default:
			return &Outcome{Kind: OutcomeUnrecognized, Plan: p, Warnings: p.Warnings}
		}
	}

	return e.run(ctx, p, false)
}

// hold runs a pipeline plan whose parts all resolved. Otherwise nothing
// runs: a suggested part is offered for confirmation, and an unrecognized
// part asks for a rephrase. A plan where no part resolved at all runs as
// an empty pipeline.
func (e *Engine) hold(ctx context.Context, p *Plan, accepted map[int]actions.ID) *Outcome {
	if len(p.Skipped) == 0 {
		return e.run(ctx, p, false)
	}

	unknown := p.Unrecognized()
	switch {
	case len(unknown) == p.Parts:
		return e.run(ctx, p, false)
	case len(unknown) > 0:
		return &Outcome{Kind: OutcomeUnrecognized, Plan: p, Warnings: p.Warnings}
	}

	sk := p.Skipped[0]
	s := &Suggestion{
		Text:     sk.Text,
		Action:   sk.Intent.Action,
		Score:    sk.Intent.Score,
		Pipeline: p.Text,
		Part:     sk.Index,
		accepted: accepted,
	}
	if !e.settings.Suggest {
		return &Outcome{Kind: OutcomeSuggestion, Plan: p, Suggestion: s, Warnings: p.Warnings}
	}
	logging.Session("Auto-accepting suggestion %s for part %d of %q", s.Action, s.Part, p.Text)
	return e.acceptPart(ctx, s)
}

// acceptPart re-plans the pipeline with s's part fixed to its suggested
// action, along with every part accepted before it.
func (e *Engine) acceptPart(ctx context.Context, s *Suggestion) *Outcome {
	accepted := make(map[int]actions.ID, len(s.accepted)+1)
	for i, id := range s.accepted {
		accepted[i] = id
	}
	accepted[s.Part] = s.Action
	return e.hold(ctx, e.plan(s.Pipeline, accepted), accepted)
}

// Confirm answers a suggestion. Rejection changes nothing; acceptance
// resolves the utterance as the suggested action and runs it.
func (e *Engine) Confirm(ctx context.Context, s *Suggestion, accept bool) *Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s == nil || !accept {
		return &Outcome{Kind: OutcomeDeclined, Suggestion: s}
	}
	if s.Pipeline != "" {
		return e.acceptPart(ctx, s)
	}
	return e.accept(ctx, s, nil)
}

func (e *Engine) accept(ctx context.Context, s *Suggestion, warnings []string) *Outcome {
	res := e.parser.Accept(s.Text, s.Action)
	p := &Plan{Text: s.Text, Intent: res.Intent, Warnings: append(warnings, res.Warnings...)}
	if !res.Confirmed() {
		return &Outcome{Kind: OutcomeUnrecognized, Plan: p, Suggestion: s, Warnings: p.Warnings}
	}
	p.addStage(res)
	return e.run(ctx, p, false)
}

// Execute runs a plan previously returned with OutcomeNeedsConfirmation.
func (e *Engine) Execute(ctx context.Context, p *Plan) *Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run(ctx, p, true)
}

func (e *Engine) run(ctx context.Context, p *Plan, confirmed bool) *Outcome {
	out := &Outcome{Plan: p, Warnings: append([]string(nil), p.Warnings...)}

	preview, err := pipeline.Describe(e.dispatcher, p.Stages)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("preview: %v", err))
	}
	out.Preview = preview

	switch {
	case e.settings.TestMode:
		out.Kind = OutcomeTested
		out.Result = &pipeline.Result{
			Success: true,
			Stdout:  "[test mode] would run: " + strings.Join(preview, " | "),
		}
		e.record(ctx, out, store.ModeTest)
		return out

	case !e.settings.Execution:
		out.Kind = OutcomePreviewed
		e.record(ctx, out, store.ModePreview)
		return out

	case e.settings.Preview && p.Destructive() && !confirmed:
		out.Kind = OutcomeNeedsConfirmation
		return out
	}

	out.Kind = OutcomeExecuted
	var se *pipeline.StageError
	if errors.As(err, &se) && len(p.Stages) > 1 {
		// nothing runs when any stage cannot be built
		out.Result = refused(se)
	} else {
		out.Result = e.executor.Execute(ctx, p.Stages)
	}
	e.record(ctx, out, store.ModeExecuted)
	return out
}

func refused(se *pipeline.StageError) *pipeline.Result {
	index := se.Index
	return &pipeline.Result{
		Stderr:           se.Error(),
		ExitCode:         1,
		FailedStageIndex: &index,
		Err:              se,
	}
}

func (e *Engine) record(ctx context.Context, out *Outcome, mode store.Mode) {
	if e.journal == nil {
		return
	}

	entry := store.Entry{
		SessionID: e.sessionID,
		Utterance: out.Plan.Text,
		Stages:    out.Preview,
		Mode:      mode,
	}
	if r := out.Result; r != nil {
		entry.RunID = r.RunID
		entry.Success = r.Success
		entry.ExitCode = r.ExitCode
		entry.StagesExecuted = r.StagesExecuted
		entry.FailedStage = r.FailedStageIndex
		entry.Stderr = r.Stderr
		entry.Duration = r.Duration
	}

	id, err := e.journal.Record(ctx, entry)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("journal: %v", err))
		return
	}
	out.JournalID = id
}

// RecordFeedback stores whether text was understood. When it was not,
// action (if not empty) becomes the learned correction.
func (e *Engine) RecordFeedback(text string, correct bool, action actions.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !correct && action != "" && !e.registry.Known(action) {
		return fmt.Errorf("%s: %w", action, actions.ErrUnknownAction)
	}
	return e.learning.RecordFeedback(text, correct, action)
}

// CorrectionCandidates ranks registered actions against free-form input,
// for prompting after negative feedback.
func (e *Engine) CorrectionCandidates(input string, limit int) []actions.ID {
	return e.registry.Closest(input, limit)
}

// Stats is usage drawn from the learning record and the journal.
type Stats struct {
	TopActions     []learning.Ranked
	Corrections    int
	Misinterpreted int
	Journal        *store.Stats
}

// Stats summarizes learned usage and, when journaling, execution history.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	rec := e.learning.Snapshot()
	s := Stats{
		TopActions:     rec.TopActions(),
		Corrections:    len(rec.Corrections),
		Misinterpreted: len(rec.Misinterpreted),
	}
	if e.journal == nil {
		return s, nil
	}
	js, err := e.journal.Stats(ctx)
	if err != nil {
		return s, err
	}
	s.Journal = &js
	return s, nil
}
