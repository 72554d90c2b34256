package pipeline

import (
	"fmt"
	"strings"

	"saysh/internal/actions"
)

// nativeArgv maps a stage to a command that reads the previous stage's
// output from stdin. Stages without a native form are run through the
// dispatcher instead.
func nativeArgv(s Stage) ([]string, bool) {
	args := s.Args()
	switch s.Action() {
	case actions.ListFiles:
		return append([]string{"ls", "-la"}, args...), true
	case actions.DisplayFile:
		if len(args) > 0 {
			return append([]string{"cat"}, args...), true
		}
	case actions.CountLines:
		return []string{"wc", "-l"}, true
	case actions.SortLines:
		return append([]string{"sort"}, args...), true
	case actions.Grep, actions.FindText:
		if len(args) > 0 {
			return append([]string{"grep"}, args...), true
		}
	}
	return nil, false
}

// consumesOutput reports whether a non-native action takes the previous
// stage's output as its file argument.
func consumesOutput(id actions.ID) bool {
	return id == actions.DisplayFile
}

// StageError is a stage that cannot be mapped to anything runnable.
type StageError struct {
	Index  int
	Action actions.ID
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index+1, e.Action, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Describe previews what each stage would run, in order. Every stage gets a
// line, even after a failure; the error is a *StageError for the first
// stage that cannot run.
func Describe(d *actions.Dispatcher, stages []Stage) ([]string, error) {
	out := make([]string, 0, len(stages))
	var first error
	for i, s := range stages {
		desc, err := describe(d, stages, i)
		if err != nil {
			desc = fmt.Sprintf("%s: %v", s.Action(), err)
			if first == nil {
				first = &StageError{Index: i, Action: s.Action(), Err: err}
			}
		}
		out = append(out, desc)
	}
	return out, first
}

func describe(d *actions.Dispatcher, stages []Stage, i int) (string, error) {
	s := stages[i]
	if s.Action().IsTerminal() {
		return "", ErrTerminalAction
	}
	if len(stages) > 1 {
		if argv, ok := nativeArgv(s); ok {
			return strings.Join(argv, " "), nil
		}
		if i > 0 && consumesOutput(s.Action()) {
			return fmt.Sprintf("%s <output of stage %d>", s.Action(), i), nil
		}
	}
	return d.Describe(s.Action(), s.Args())
}
