package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"saysh/internal/actions"
	"saysh/internal/logging"
	"saysh/internal/tactile"
)

// Result is the outcome of one pipeline invocation.
type Result struct {
	Success  bool
	Stdout   string
	Stderr   string
	ExitCode int
	// StagesExecuted counts attempted stages, including a failed one.
	StagesExecuted int
	// FailedStageIndex is set when a stage stopped the pipeline.
	FailedStageIndex *int
	// Err is set for structural failures (ErrEmptyPipeline, mapping errors).
	Err      error
	RunID    string
	Duration time.Duration
}

// ErrorMessage is Err as text, or "".
func (r *Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Option configures an Executor.
type Option func(*Executor)

// WithTempRoot sets where pipeline-scoped temp directories are created.
func WithTempRoot(dir string) Option {
	return func(e *Executor) { e.tempRoot = dir }
}

// Executor runs stages in order, feeding each stage's stdout to the next.
type Executor struct {
	dispatcher *actions.Dispatcher
	tempRoot   string
}

// NewExecutor returns an executor that runs single commands through d.
func NewExecutor(d *actions.Dispatcher, opts ...Option) *Executor {
	e := &Executor{dispatcher: d}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs stages. It never returns nil; failures are described by the
// Result.
func (e *Executor) Execute(ctx context.Context, stages []Stage) *Result {
	runID := uuid.NewString()
	timer := logging.StartTimer(logging.CategoryPipeline, "pipeline "+runID)
	defer timer.Stop()

	start := time.Now()
	var res *Result
	switch len(stages) {
	case 0:
		res = &Result{
			Stderr:   "no commands to execute",
			ExitCode: 1,
			Err:      ErrEmptyPipeline,
		}
	case 1:
		res = e.single(ctx, stages[0], runID)
	default:
		res = e.multi(ctx, stages, runID)
	}
	res.RunID = runID
	res.Duration = time.Since(start)

	if res.Success {
		logging.Pipeline("Run %s: %d stage(s) succeeded", runID, res.StagesExecuted)
	} else {
		logging.PipelineWarn("Run %s: failed after %d stage(s): %s%s", runID, res.StagesExecuted, res.ErrorMessage(), res.Stderr)
	}
	return res
}

func (e *Executor) single(ctx context.Context, s Stage, runID string) *Result {
	out, err := e.dispatch(ctx, s, s.Args(), runID)
	if err != nil || out.Failed() {
		return failedAt(0, 1, out, err)
	}
	return &Result{Success: true, Stdout: out.Stdout, Stderr: out.Stderr, StagesExecuted: 1}
}

func (e *Executor) multi(ctx context.Context, stages []Stage, runID string) *Result {
	var (
		input   string
		tempDir string
	)
	defer func() {
		if tempDir != "" {
			if err := os.RemoveAll(tempDir); err != nil {
				logging.PipelineWarn("Failed to remove %s: %v", tempDir, err)
			}
		}
	}()

	for i, s := range stages {
		var (
			out *tactile.ExecutionResult
			err error
		)

		if argv, ok := nativeArgv(s); ok {
			logging.PipelineDebug("Stage %d native: %v", i, argv)
			out, err = e.dispatcher.Executor().Execute(ctx, tactile.Command{
				Binary:           argv[0],
				Arguments:        argv[1:],
				WorkingDirectory: e.dispatcher.WorkDir(),
				Stdin:            input,
				RequestID:        runID,
			})
		} else {
			args := s.Args()
			if i > 0 {
				if tempDir == "" {
					tempDir, err = os.MkdirTemp(e.tempRoot, "saysh-"+runID[:8]+"-*")
				}
				var artifact string
				if err == nil {
					artifact, err = writeArtifact(tempDir, i-1, input)
				}
				if err == nil && consumesOutput(s.Action()) {
					args = []string{artifact}
				}
			}
			if err == nil {
				logging.PipelineDebug("Stage %d via dispatcher: %s %v", i, s.Action(), args)
				out, err = e.dispatch(ctx, s, args, runID)
			}
		}

		if err != nil || out.Failed() {
			return failedAt(i, i+1, out, err)
		}
		input = out.Stdout
	}

	return &Result{Success: true, Stdout: input, StagesExecuted: len(stages)}
}

func (e *Executor) dispatch(ctx context.Context, s Stage, args []string, runID string) (*tactile.ExecutionResult, error) {
	if s.Action().IsTerminal() {
		return nil, fmt.Errorf("stage %d: %w", s.Index, ErrTerminalAction)
	}
	return e.dispatcher.Run(ctx, s.Action(), args, runID)
}

func writeArtifact(dir string, stage int, content string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("stage-%d.out", stage))
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to hand off stage %d output: %w", stage, err)
	}
	return path, nil
}

func failedAt(index, executed int, out *tactile.ExecutionResult, err error) *Result {
	res := &Result{
		StagesExecuted:   executed,
		FailedStageIndex: &index,
		ExitCode:         1,
		Err:              err,
	}
	if err != nil {
		res.Stderr = fmt.Sprintf("error executing command: %v", err)
		return res
	}
	res.Stdout = out.Stdout
	res.Stderr = out.Stderr
	if out.ExitCode > 0 {
		res.ExitCode = out.ExitCode
	}
	if out.Error != "" && res.Stderr == "" {
		res.Stderr = out.Error
	}
	return res
}
