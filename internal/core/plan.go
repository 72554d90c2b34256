package core

import (
	"saysh/internal/actions"
	"saysh/internal/logging"
	"saysh/internal/perception"
	"saysh/internal/pipeline"
)

// Skipped is a pipeline part that did not resolve to a runnable command.
type Skipped struct {
	Index  int
	Text   string
	Intent perception.Intent
}

// Plan is an utterance resolved into stages, not yet run.
type Plan struct {
	Text string
	// Multi is the detector's verdict.
	Multi bool
	// Parts is the number of stage texts the pipeline split into.
	Parts  int
	Stages []pipeline.Stage
	// Skipped lists pipeline parts that are unrecognized or only
	// suggested. While any remain, Stages is empty.
	Skipped []Skipped
	// Intent is the resolution of a single-command utterance.
	Intent   perception.Intent
	Warnings []string
}

// Destructive reports whether any stage deletes something.
func (p *Plan) Destructive() bool {
	for _, s := range p.Stages {
		if s.Action().Destructive() {
			return true
		}
	}
	return false
}

// plan resolves text. A pipeline is committed only when every part is
// confirmed, either by the resolver or through accepted, which maps a part
// index to an action the user confirmed. Parts commit in order, so a later
// stage can refer to an earlier one.
func (e *Engine) plan(text string, accepted map[int]actions.ID) *Plan {
	p := &Plan{Text: text, Multi: e.detector.IsPipeline(text)}

	if !p.Multi {
		res := e.parser.Parse(text)
		p.Intent = res.Intent
		p.Warnings = append(p.Warnings, res.Warnings...)
		if res.Confirmed() {
			p.addStage(res)
		}
		return p
	}

	parts := e.splitter.Split(text)
	p.Parts = len(parts)
	intents := make([]perception.Intent, len(parts))
	for i, part := range parts {
		if id, ok := accepted[i]; ok {
			intents[i] = perception.Accepted(id)
			continue
		}
		intents[i] = e.parser.Resolve(part)
		if intents[i].Kind != perception.Confirmed {
			p.Skipped = append(p.Skipped, Skipped{Index: i, Text: part, Intent: intents[i]})
			logging.PipelineDebug("Holding part %d %q: %s", i, part, intents[i].Kind)
		}
	}

	if len(p.Skipped) == 0 {
		for i, part := range parts {
			res := e.parser.Commit(part, intents[i])
			p.Warnings = append(p.Warnings, res.Warnings...)
			p.addStage(res)
		}
	}
	logging.Pipeline("Planned %q: %d stage(s), %d unresolved", text, len(p.Stages), len(p.Skipped))
	return p
}

// Unrecognized returns the parts nothing matched.
func (p *Plan) Unrecognized() []Skipped {
	var out []Skipped
	for _, sk := range p.Skipped {
		if sk.Intent.Kind == perception.Unrecognized {
			out = append(out, sk)
		}
	}
	return out
}

func (p *Plan) addStage(res *perception.Resolution) {
	stage, err := pipeline.NewStage(len(p.Stages), *res.Command)
	if err != nil {
		p.Warnings = append(p.Warnings, err.Error())
		return
	}
	p.Stages = append(p.Stages, stage)
}

// Plan resolves text without running anything. A confirmed plan still
// counts as resolutions and enters the recent-command context.
func (e *Engine) Plan(text string) *Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plan(text, nil)
}
