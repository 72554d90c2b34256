package pipeline

import (
	"errors"
	"fmt"

	"saysh/internal/actions"
	"saysh/internal/history"
)

var (
	// ErrEmptyPipeline is carried in Result.Err when there is nothing to run.
	ErrEmptyPipeline = errors.New("empty pipeline")
	// ErrTerminalAction is returned for stages naming a terminal disposition.
	ErrTerminalAction = actions.ErrTerminalAction
)

// Stage is one command of a pipeline and its position.
type Stage struct {
	Index   int
	Command history.Command
}

// NewStage builds a stage, refusing terminal dispositions.
func NewStage(index int, cmd history.Command) (Stage, error) {
	if cmd.Action == "" || cmd.Action.IsTerminal() {
		return Stage{}, fmt.Errorf("stage %d (%q): %w", index, cmd.Text, ErrTerminalAction)
	}
	return Stage{Index: index, Command: cmd}, nil
}

// Action is the stage's action.
func (s Stage) Action() actions.ID { return s.Command.Action }

// Args are the stage's arguments.
func (s Stage) Args() []string { return s.Command.Args }

// Examples are sample pipeline utterances, grouped by topic, for help text.
type Examples struct {
	Topic      string
	Utterances []string
}

// ExampleUtterances returns the built-in pipeline examples.
func ExampleUtterances() []Examples {
	return []Examples{
		{"File operations", []string{
			"list files and count lines",
			`find files named "*.py" and count the lines`,
			`list files, then grep for ".txt", then sort lines`,
		}},
		{"Text processing", []string{
			"display file README.md and count the lines",
			"display file notes.txt then sort lines",
			`display file app.log and grep for "error"`,
		}},
		{"System monitoring", []string{
			"show processes then sort lines",
			"check disk space and count lines",
		}},
	}
}
