package actions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saysh/internal/tactile"
)

func unixRegistry() *Registry { return newRegistry(unixTable()) }

func TestTerminalDispositions(t *testing.T) {
	for _, id := range []ID{Unrecognized, Suggest, Error} {
		assert.True(t, id.IsTerminal(), id)
	}
	for _, id := range Builtins() {
		assert.False(t, id.IsTerminal(), id)
	}
	assert.True(t, DeleteFile.Destructive())
	assert.False(t, ListFiles.Destructive())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, DisplayFile, Normalize("  Display File "))
	assert.Equal(t, GitStatus, Normalize("git-status"))
}

func TestRegistry_Register(t *testing.T) {
	r := unixRegistry()

	require.NoError(t, r.Register("open_editor", []string{"vim"}))
	assert.True(t, r.Known("open_editor"))
	assert.Equal(t, ID("open_editor"), r.All()[len(r.All())-1])

	err := r.Register(Suggest, nil)
	assert.ErrorIs(t, err, ErrTerminalAction)
	assert.Error(t, r.Register("", nil))

	inv, err := r.Invocation("open_editor", []string{"notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, Native{Argv: []string{"vim", "notes.txt"}}, inv)
}

func TestRegistry_Invocation(t *testing.T) {
	r := unixRegistry()

	tests := []struct {
		name string
		id   ID
		args []string
		want Invocation
	}{
		{"list", ListFiles, nil, Native{Argv: []string{"ls"}}},
		{"list with options", ListFiles, []string{"-la"}, Native{Argv: []string{"ls", "-la"}}},
		{"display", DisplayFile, []string{"a.txt"}, Native{Argv: []string{"cat", "a.txt"}}},
		{"move", MoveRename, []string{"a", "b"}, Native{Argv: []string{"mv", "a", "b"}}},
		{"find text pattern only", FindText, []string{"TODO"}, Native{Argv: []string{"grep", "-rn", "TODO", "."}}},
		{"count", CountLines, nil, Native{Argv: []string{"wc", "-l"}}},
		{"cd is internal", ChangeDirectory, []string{"src"}, Internal{Handler: HandlerChangeDirectory, Args: []string{"src"}}},
		{"create is internal", CreateFile, []string{"x"}, Internal{Handler: HandlerCreateFile, Args: []string{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Invocation(tt.id, tt.args)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Invocation mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegistry_InvocationErrors(t *testing.T) {
	r := unixRegistry()

	_, err := r.Invocation(Unrecognized, nil)
	assert.ErrorIs(t, err, ErrTerminalAction)

	_, err = r.Invocation("teleport", nil)
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = r.Invocation(MoveRename, []string{"only-one"})
	assert.ErrorIs(t, err, ErrMissingArgument)

	require.NoError(t, r.Register("no_argv", nil))
	_, err = r.Invocation("no_argv", nil)
	assert.ErrorIs(t, err, ErrNoInvocation)
}

func TestRegistry_Closest(t *testing.T) {
	r := unixRegistry()

	got := r.Closest("disp", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, DisplayFile, got[0])

	got = r.Closest("gitst", 1)
	assert.Equal(t, []ID{GitStatus}, got)

	id, ok := r.Lookup("Git Status")
	assert.True(t, ok)
	assert.Equal(t, GitStatus, id)
}

func TestDispatcher_NativeUsesWorkDir(t *testing.T) {
	dir := t.TempDir()
	mock := tactile.NewMockExecutor().On("ls", tactile.MockResponse{Stdout: "a.txt\n"})
	d := NewDispatcher(unixRegistry(), mock, dir)

	res, err := d.Run(context.Background(), ListFiles, nil, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt\n", res.Stdout)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, dir, calls[0].WorkingDirectory)
	assert.Equal(t, "req-1", calls[0].RequestID)
}

func TestDispatcher_RefusesTerminal(t *testing.T) {
	mock := tactile.NewMockExecutor()
	d := NewDispatcher(unixRegistry(), mock, t.TempDir())

	_, err := d.Run(context.Background(), Error, nil, "")
	assert.True(t, errors.Is(err, ErrTerminalAction))
	assert.Empty(t, mock.Calls())
}

func TestDispatcher_ChangeDirectoryAndCreateFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	d := NewDispatcher(unixRegistry(), tactile.NewMockExecutor(), root)

	res, err := d.Run(context.Background(), ChangeDirectory, []string{"sub"}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, filepath.Join(root, "sub"), d.WorkDir())

	res, err = d.Run(context.Background(), CreateFile, []string{"test.txt"}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, res.Stderr)
	assert.FileExists(t, filepath.Join(root, "sub", "test.txt"))

	res, err = d.Run(context.Background(), ChangeDirectory, []string{"missing"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.True(t, res.Failed())
	assert.Equal(t, filepath.Join(root, "sub"), d.WorkDir())
}

func TestDispatcher_MemoryInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meminfo")
	content := "MemTotal:       16000000 kB\nMemFree:         8000000 kB\nBuffers:          100 kB\nMemAvailable:   12000000 kB\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	d := NewDispatcher(unixRegistry(), tactile.NewMockExecutor(), dir)
	d.meminfo = path

	res, err := d.Run(context.Background(), MemoryUsage, nil, "")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "MemTotal:")
	assert.Contains(t, res.Stdout, "12000000 kB")
	assert.NotContains(t, res.Stdout, "Buffers")
}

func TestDispatcher_Describe(t *testing.T) {
	d := NewDispatcher(unixRegistry(), tactile.NewMockExecutor(), t.TempDir())

	s, err := d.Describe(DisplayFile, []string{"notes.md"})
	require.NoError(t, err)
	assert.Equal(t, "cat notes.md", s)

	s, err = d.Describe(ChangeDirectory, []string{"src"})
	require.NoError(t, err)
	assert.Equal(t, "[internal change_directory] src", s)
}
