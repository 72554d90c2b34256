package actions

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Invocation is how one action runs: either a process argv or an
// in-process handler. Exactly one of Native or Internal implements it.
type Invocation interface {
	Describe() string
	invocation()
}

// Native runs Argv as a child process.
type Native struct {
	Argv []string
}

// Describe implements Invocation.
func (n Native) Describe() string { return strings.Join(n.Argv, " ") }
func (Native) invocation()        {}

// HandlerID names an in-process handler.
type HandlerID string

// In-process handlers.
const (
	HandlerChangeDirectory HandlerID = "change_directory"
	HandlerCreateFile      HandlerID = "create_file"
	HandlerMemoryInfo      HandlerID = "memory_info"
)

// Internal runs a handler inside the saysh process.
type Internal struct {
	Handler HandlerID
	Args    []string
}

// Describe implements Invocation.
func (i Internal) Describe() string {
	if len(i.Args) == 0 {
		return fmt.Sprintf("[internal %s]", i.Handler)
	}
	return fmt.Sprintf("[internal %s] %s", i.Handler, strings.Join(i.Args, " "))
}
func (Internal) invocation() {}

var (
	// ErrNoInvocation is returned for a known action with nothing to run on
	// this platform.
	ErrNoInvocation = errors.New("no invocation for action")
	// ErrMissingArgument is returned when an action needs arguments the
	// utterance did not supply.
	ErrMissingArgument = errors.New("missing argument")
)

type mapper func(args []string) (Invocation, error)

// nativeNeeds builds argv as bin, fixed..., args... and requires at least n args.
func nativeNeeds(n int, what string, bin string, fixed ...string) mapper {
	return func(args []string) (Invocation, error) {
		if len(args) < n {
			return nil, fmt.Errorf("%s: %w", what, ErrMissingArgument)
		}
		argv := append([]string{bin}, fixed...)
		return Native{Argv: append(argv, args...)}, nil
	}
}

func native(bin string, fixed ...string) mapper {
	return nativeNeeds(0, "", bin, fixed...)
}

func internal(h HandlerID) mapper {
	return func(args []string) (Invocation, error) {
		return Internal{Handler: h, Args: append([]string(nil), args...)}, nil
	}
}

func findText(args []string) (Invocation, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("need a pattern to search for: %w", ErrMissingArgument)
	}
	argv := append([]string{"grep", "-rn"}, args...)
	if len(args) == 1 {
		argv = append(argv, ".")
	}
	return Native{Argv: argv}, nil
}

func unixTable() map[ID]mapper {
	return map[ID]mapper{
		ListFiles:       native("ls"),
		ShowPath:        native("pwd"),
		ChangeDirectory: internal(HandlerChangeDirectory),
		MakeDirectory:   nativeNeeds(1, "need a directory name", "mkdir", "-p"),
		DeleteDirectory: nativeNeeds(1, "need a directory name", "rm", "-r"),
		CreateFile:      internal(HandlerCreateFile),
		DeleteFile:      nativeNeeds(1, "need a file name", "rm"),
		DisplayFile:     nativeNeeds(1, "need a file name", "cat"),
		MoveRename:      nativeNeeds(2, "need a source and a destination", "mv"),
		CopyFile:        nativeNeeds(2, "need a source and a destination", "cp"),
		WhoAmI:          native("whoami"),
		ShowProcesses:   native("ps", "aux"),
		DiskUsage:       native("df", "-h"),
		MemoryUsage:     internal(HandlerMemoryInfo),
		GitStatus:       native("git", "status"),
		GitInit:         native("git", "init"),
		GitCommit:       nativeNeeds(1, "need a commit message", "git", "commit"),
		CountLines:      native("wc", "-l"),
		SortLines:       native("sort"),
		FindText:        findText,
		Grep:            nativeNeeds(1, "need a pattern", "grep"),
		FindFiles:       nativeNeeds(1, "need a name pattern", "find", ".", "-name"),
	}
}

func platformTable() map[ID]mapper {
	table := unixTable()
	switch runtime.GOOS {
	case "darwin":
		table[MemoryUsage] = native("vm_stat")
	case "windows":
		table[ListFiles] = native("cmd", "/C", "dir")
		table[ShowPath] = native("cmd", "/C", "cd")
		table[MakeDirectory] = nativeNeeds(1, "need a directory name", "cmd", "/C", "mkdir")
		table[DeleteDirectory] = nativeNeeds(1, "need a directory name", "cmd", "/C", "rmdir", "/S", "/Q")
		table[DeleteFile] = nativeNeeds(1, "need a file name", "cmd", "/C", "del")
		table[DisplayFile] = nativeNeeds(1, "need a file name", "cmd", "/C", "type")
		table[MoveRename] = nativeNeeds(2, "need a source and a destination", "cmd", "/C", "move")
		table[CopyFile] = nativeNeeds(2, "need a source and a destination", "cmd", "/C", "copy")
		table[ShowProcesses] = native("tasklist")
		table[DiskUsage] = native("wmic", "logicaldisk", "get", "size,freespace,caption")
		table[MemoryUsage] = native("systeminfo")
		table[CountLines] = native("find", "/C", "/V", `""`)
		table[SortLines] = native("sort")
		table[FindText] = nativeNeeds(1, "need a pattern to search for", "findstr", "/S", "/N")
		table[Grep] = nativeNeeds(1, "need a pattern", "findstr")
		delete(table, FindFiles)
	}
	return table
}

// Invocation maps a resolved action and its arguments to what will run.
func (r *Registry) Invocation(id ID, args []string) (Invocation, error) {
	if id.IsTerminal() {
		return nil, fmt.Errorf("%s: %w", id, ErrTerminalAction)
	}

	r.mu.RLock()
	known := r.known[id]
	template, hasTemplate := r.templates[id]
	m, hasMapper := r.table[id]
	r.mu.RUnlock()

	if !known {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownAction)
	}
	if hasTemplate {
		argv := append(append([]string(nil), template...), args...)
		return Native{Argv: argv}, nil
	}
	if !hasMapper {
		return nil, fmt.Errorf("%s on %s: %w", id, runtime.GOOS, ErrNoInvocation)
	}
	return m(args)
}
