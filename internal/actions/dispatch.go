package actions

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"saysh/internal/logging"
	"saysh/internal/tactile"
)

// Handler runs an in-process action. It reports through the same result
// shape as a child process.
type Handler func(ctx context.Context, d *Dispatcher, args []string) *tactile.ExecutionResult

// Dispatcher is the single-command execution path: it maps one action to
// its invocation and runs it, natively or in-process.
type Dispatcher struct {
	registry *Registry
	executor tactile.Executor

	mu       sync.RWMutex
	workDir  string
	handlers map[HandlerID]Handler
	meminfo  string
}

// NewDispatcher returns a dispatcher rooted at workDir ("" = process cwd).
func NewDispatcher(registry *Registry, executor tactile.Executor, workDir string) *Dispatcher {
	if workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workDir = wd
		}
	}
	d := &Dispatcher{
		registry: registry,
		executor: executor,
		workDir:  workDir,
		meminfo:  "/proc/meminfo",
	}
	d.handlers = map[HandlerID]Handler{
		HandlerChangeDirectory: changeDirectory,
		HandlerCreateFile:      createFile,
		HandlerMemoryInfo:      memoryInfo,
	}
	return d
}

// ErrUnknownHandler is returned when an internal invocation names a handler
// the dispatcher does not have.
var ErrUnknownHandler = errors.New("unknown internal handler")

// Registry returns the registry the dispatcher maps through.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Executor returns the process executor native invocations run on.
func (d *Dispatcher) Executor() tactile.Executor { return d.executor }

// WorkDir is the directory child processes start in.
func (d *Dispatcher) WorkDir() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.workDir
}

func (d *Dispatcher) setWorkDir(dir string) {
	d.mu.Lock()
	d.workDir = dir
	d.mu.Unlock()
}

// Resolve expands ~ and makes p absolute against the working directory.
func (d *Dispatcher) Resolve(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(d.WorkDir(), p)
}

// Describe previews what id with args would run without running it.
func (d *Dispatcher) Describe(id ID, args []string) (string, error) {
	inv, err := d.registry.Invocation(id, args)
	if err != nil {
		return "", err
	}
	return inv.Describe(), nil
}

// Run executes one action. Mapping failures (terminal or unknown action,
// missing arguments) come back as errors; anything that ran, successfully
// or not, comes back as a result.
func (d *Dispatcher) Run(ctx context.Context, id ID, args []string, requestID string) (*tactile.ExecutionResult, error) {
	inv, err := d.registry.Invocation(id, args)
	if err != nil {
		return nil, err
	}

	switch inv := inv.(type) {
	case Native:
		return d.executor.Execute(ctx, tactile.Command{
			Binary:           inv.Argv[0],
			Arguments:        inv.Argv[1:],
			WorkingDirectory: d.WorkDir(),
			RequestID:        requestID,
		})
	case Internal:
		d.mu.RLock()
		h, ok := d.handlers[inv.Handler]
		d.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("handler %s: %w", inv.Handler, ErrUnknownHandler)
		}
		logging.Tactile("Running internal handler %s %v", inv.Handler, inv.Args)
		start := time.Now()
		res := h(ctx, d, inv.Args)
		res.StartedAt = start
		res.FinishedAt = time.Now()
		res.Duration = res.FinishedAt.Sub(start)
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported invocation %T", inv)
	}
}

func handled(stdout string) *tactile.ExecutionResult {
	return &tactile.ExecutionResult{Success: true, ExitCode: 0, Stdout: stdout}
}

func handlerFailed(format string, args ...interface{}) *tactile.ExecutionResult {
	return &tactile.ExecutionResult{Success: true, ExitCode: 1, Stderr: fmt.Sprintf(format, args...)}
}

func changeDirectory(_ context.Context, d *Dispatcher, args []string) *tactile.ExecutionResult {
	target := "~"
	if len(args) > 0 {
		target = args[0]
	}
	dir := d.Resolve(target)

	info, err := os.Stat(dir)
	if err != nil {
		return handlerFailed("cd: %v", err)
	}
	if !info.IsDir() {
		return handlerFailed("cd: %s is not a directory", target)
	}
	d.setWorkDir(dir)
	logging.Tactile("Working directory changed to %s", dir)
	return handled(dir + "\n")
}

func createFile(_ context.Context, d *Dispatcher, args []string) *tactile.ExecutionResult {
	if len(args) == 0 {
		return handlerFailed("need a file name")
	}
	path := d.Resolve(args[0])

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return handlerFailed("create %s: %v", args[0], err)
	}
	if err := f.Close(); err != nil {
		return handlerFailed("create %s: %v", args[0], err)
	}
	now := time.Now()
	_ = os.Chtimes(path, now, now)
	return handled(fmt.Sprintf("Created %s\n", args[0]))
}

func memoryInfo(_ context.Context, d *Dispatcher, _ []string) *tactile.ExecutionResult {
	f, err := os.Open(d.meminfo)
	if err != nil {
		return handlerFailed("memory usage: %v", err)
	}
	defer f.Close()

	wanted := map[string]bool{"MemTotal": true, "MemFree": true, "MemAvailable": true, "SwapTotal": true, "SwapFree": true}
	var sb strings.Builder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || !wanted[key] {
			continue
		}
		fmt.Fprintf(&sb, "%-13s %s\n", key+":", strings.TrimSpace(value))
	}
	if err := sc.Err(); err != nil {
		return handlerFailed("memory usage: %v", err)
	}
	if sb.Len() == 0 {
		return handlerFailed("memory usage: no data in %s", d.meminfo)
	}
	return handled(sb.String())
}
