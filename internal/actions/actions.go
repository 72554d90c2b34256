// Package actions defines the closed set of things saysh knows how to do,
// how each one maps to a process or an in-process handler, and the
// dispatcher that runs a single resolved command.
package actions

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

// ID identifies an action. Built-in IDs are the constants below; user
// vocabularies may register more through a Registry.
type ID string

// Built-in actions.
const (
	ListFiles       ID = "list_files"
	ShowPath        ID = "show_path"
	ChangeDirectory ID = "change_directory"
	MakeDirectory   ID = "make_directory"
	DeleteDirectory ID = "delete_directory"
	CreateFile      ID = "create_file"
	DeleteFile      ID = "delete_file"
	DisplayFile     ID = "display_file"
	MoveRename      ID = "move_rename"
	CopyFile        ID = "copy_file"
	WhoAmI          ID = "whoami"
	ShowProcesses   ID = "show_processes"
	DiskUsage       ID = "disk_usage"
	MemoryUsage     ID = "memory_usage"
	GitStatus       ID = "git_status"
	GitInit         ID = "git_init"
	GitCommit       ID = "git_commit"
	CountLines      ID = "count_lines"
	SortLines       ID = "sort_lines"
	FindText        ID = "find_text"
	Grep            ID = "grep"
	FindFiles       ID = "find_files"
)

// Terminal dispositions. They describe a resolution outcome, never
// something to execute.
const (
	Unrecognized ID = "unrecognized"
	Suggest      ID = "suggest"
	Error        ID = "error"
)

var (
	// ErrTerminalAction is returned when a terminal disposition is handed to
	// something that executes.
	ErrTerminalAction = errors.New("terminal action cannot be executed")
	// ErrUnknownAction is returned for IDs absent from the registry.
	ErrUnknownAction = errors.New("unknown action")
)

var builtins = []ID{
	ListFiles, ShowPath, ChangeDirectory, MakeDirectory, DeleteDirectory,
	CreateFile, DeleteFile, DisplayFile, MoveRename, CopyFile,
	WhoAmI, ShowProcesses, DiskUsage, MemoryUsage,
	GitStatus, GitInit, GitCommit,
	CountLines, SortLines, FindText, Grep, FindFiles,
}

// Builtins returns the built-in action IDs in declaration order.
func Builtins() []ID {
	out := make([]ID, len(builtins))
	copy(out, builtins)
	return out
}

// IsTerminal reports whether id is a resolution disposition.
func (id ID) IsTerminal() bool {
	return id == Unrecognized || id == Suggest || id == Error
}

// Destructive reports whether running id removes data.
func (id ID) Destructive() bool {
	return id == DeleteFile || id == DeleteDirectory
}

func (id ID) String() string { return string(id) }

// Normalize turns free text such as "Display File" into an ID shape.
func Normalize(s string) ID {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return ID(strings.ReplaceAll(s, "-", "_"))
}

// Registry is the set of executable actions: the built-ins plus any
// user-supplied extensions with their argv templates.
type Registry struct {
	mu        sync.RWMutex
	order     []ID
	known     map[ID]bool
	templates map[ID][]string
	table     map[ID]mapper
}

// NewRegistry returns a registry seeded with the built-ins for the current
// platform.
func NewRegistry() *Registry {
	return newRegistry(platformTable())
}

func newRegistry(table map[ID]mapper) *Registry {
	r := &Registry{
		known:     make(map[ID]bool),
		templates: make(map[ID][]string),
		table:     table,
	}
	for _, id := range builtins {
		r.order = append(r.order, id)
		r.known[id] = true
	}
	return r
}

// Register adds a user-supplied action. argv, when non-empty, is the
// process it runs; the resolved arguments are appended to it.
func (r *Registry) Register(id ID, argv []string) error {
	if id == "" {
		return fmt.Errorf("action id is required")
	}
	if id.IsTerminal() {
		return fmt.Errorf("cannot register %q: %w", id, ErrTerminalAction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.known[id] {
		r.known[id] = true
		r.order = append(r.order, id)
	}
	if len(argv) > 0 {
		r.templates[id] = append([]string(nil), argv...)
	}
	return nil
}

// Known reports whether id can be executed.
func (r *Registry) Known(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.known[id]
}

// All returns every registered ID, built-ins first.
func (r *Registry) All() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ID, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup parses user input naming an action, e.g. during feedback.
func (r *Registry) Lookup(input string) (ID, bool) {
	id := Normalize(input)
	return id, r.Known(id)
}

// Closest ranks registered actions by fuzzy match against input, best first.
func (r *Registry) Closest(input string, limit int) []ID {
	ids := r.All()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}

	matches := fuzzy.Find(string(Normalize(input)), names)

	out := make([]ID, 0, limit)
	for _, m := range matches {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, ids[m.Index])
	}
	return out
}
