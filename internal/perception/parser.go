// Package perception turns one natural-language utterance into a resolved
// command: which action it names (intent) and what it acts on (entities),
// with references to earlier commands filled in from session context.
package perception

import (
	"saysh/internal/actions"
	"saysh/internal/history"
	"saysh/internal/logging"
)

// Recorder counts confirmed resolutions.
type Recorder interface {
	RecordResolution(id actions.ID) error
}

// Resolution is the outcome of parsing one utterance.
type Resolution struct {
	Text   string
	Intent Intent
	// Command is set only when the intent is confirmed.
	Command *history.Command
	// Warnings are non-fatal problems, e.g. learning data not saved.
	Warnings []string
}

// Confirmed reports whether the utterance resolved to a runnable command.
func (r *Resolution) Confirmed() bool {
	return r.Command != nil
}

// Parser runs intent and entity resolution and owns their side effects:
// frequency counting and context updates.
type Parser struct {
	intents  *IntentResolver
	entities *EntityResolver
	context  *history.Store
	recorder Recorder
}

// NewParser wires a parser. recorder may be nil.
func NewParser(intents *IntentResolver, entities *EntityResolver, context *history.Store, recorder Recorder) *Parser {
	return &Parser{intents: intents, entities: entities, context: context, recorder: recorder}
}

// Intents exposes the intent resolver, e.g. to swap its vocabulary.
func (p *Parser) Intents() *IntentResolver { return p.intents }

// Context exposes the session context store.
func (p *Parser) Context() *history.Store { return p.context }

// Resolve classifies text without side effects.
func (p *Parser) Resolve(text string) Intent {
	return p.intents.Resolve(text)
}

// Parse resolves text. Suggested and unrecognized intents have no side
// effects; a confirmed intent is counted and recorded in context.
func (p *Parser) Parse(text string) *Resolution {
	return p.Commit(text, p.Resolve(text))
}

// Commit turns an intent obtained from Resolve into a command. Only a
// confirmed intent is counted and recorded in context.
func (p *Parser) Commit(text string, intent Intent) *Resolution {
	res := &Resolution{Text: text, Intent: intent}
	if intent.Kind != Confirmed || intent.Action.IsTerminal() {
		return res
	}
	p.commit(res, intent.Action)
	return res
}

// Accept resolves text as action regardless of what the intent resolver
// would say, e.g. when the user confirms a suggestion.
func (p *Parser) Accept(text string, action actions.ID) *Resolution {
	if action.IsTerminal() {
		return &Resolution{Text: text, Intent: Intent{Kind: Unrecognized, Action: actions.Unrecognized, Source: SourceNone}}
	}
	return p.Commit(text, Accepted(action))
}

// Accepted is the intent of a suggestion the user confirmed.
func Accepted(action actions.ID) Intent {
	return Intent{Kind: Confirmed, Action: action, Score: 100, Source: SourceLearned}
}

func (p *Parser) commit(res *Resolution, action actions.ID) {
	if p.recorder != nil {
		if err := p.recorder.RecordResolution(action); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}

	ents := p.entities.Extract(res.Text, p.context.Entities())
	cmd := history.Command{
		Action:   action,
		Args:     Args(action, ents),
		Entities: ents,
		Text:     res.Text,
	}
	p.context.Add(cmd)
	res.Command = &cmd
	logging.Perception("Parsed %q -> %s (%s)", res.Text, cmd.String(), res.Intent.Source)
}
