package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"saysh/internal/actions"
	"saysh/internal/history"
	"saysh/internal/tactile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const listing = "file1.txt\nfile2.txt\nfile3.txt\n"

func countStdinLines(cmd tactile.Command) tactile.MockResponse {
	if cmd.Binary == "wc" {
		return tactile.MockResponse{Stdout: strconv.Itoa(strings.Count(cmd.Stdin, "\n"))}
	}
	return tactile.MockResponse{}
}

func newExecutor(t *testing.T, mock *tactile.MockExecutor, opts ...Option) *Executor {
	t.Helper()
	d := actions.NewDispatcher(actions.NewRegistry(), mock, t.TempDir())
	return NewExecutor(d, opts...)
}

func stages(t *testing.T, cmds ...history.Command) []Stage {
	t.Helper()
	out := make([]Stage, 0, len(cmds))
	for i, c := range cmds {
		s, err := NewStage(i, c)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func cmd(id actions.ID, args ...string) history.Command {
	return history.Command{Action: id, Args: args, Text: string(id)}
}

func TestExecute_OutputFeedsNextStage(t *testing.T) {
	mock := tactile.NewMockExecutor().
		On("ls", tactile.MockResponse{Stdout: listing}).
		Handle(countStdinLines)
	e := newExecutor(t, mock)

	res := e.Execute(context.Background(), stages(t, cmd(actions.ListFiles), cmd(actions.CountLines)))

	require.True(t, res.Success, res.Stderr)
	assert.Equal(t, "3", res.Stdout)
	assert.Equal(t, 2, res.StagesExecuted)
	assert.Nil(t, res.FailedStageIndex)
	assert.NotEmpty(t, res.RunID)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	if diff := cmp.Diff([]string{"ls", "-la"}, calls[0].Argv()); diff != "" {
		t.Errorf("first stage argv (-want +got):\n%s", diff)
	}
	assert.Empty(t, calls[0].Stdin)
	assert.Equal(t, listing, calls[1].Stdin)
	assert.Equal(t, res.RunID, calls[1].RequestID)
}

func TestExecute_HaltsOnFirstFailure(t *testing.T) {
	mock := tactile.NewMockExecutor().
		On("ls", tactile.MockResponse{Stdout: listing}).
		On("grep", tactile.MockResponse{ExitCode: 2, Stderr: "grep: bad pattern"})
	e := newExecutor(t, mock)

	res := e.Execute(context.Background(), stages(t,
		cmd(actions.ListFiles),
		cmd(actions.Grep, "["),
		cmd(actions.SortLines),
	))

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.StagesExecuted)
	require.NotNil(t, res.FailedStageIndex)
	assert.Equal(t, 1, *res.FailedStageIndex)
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "grep: bad pattern", res.Stderr)

	for _, c := range mock.Calls() {
		assert.NotEqual(t, "sort", c.Binary)
	}
	assert.Len(t, mock.Calls(), 2)
}

func TestExecute_EmptyPipeline(t *testing.T) {
	mock := tactile.NewMockExecutor()
	e := newExecutor(t, mock)

	res := e.Execute(context.Background(), nil)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrEmptyPipeline)
	assert.Equal(t, "empty pipeline", res.ErrorMessage())
	assert.Equal(t, "no commands to execute", res.Stderr)
	assert.Zero(t, res.StagesExecuted)
	assert.Empty(t, mock.Calls())
}

func readArtifact(cmd tactile.Command) tactile.MockResponse {
	switch cmd.Binary {
	case "cat":
		data, err := os.ReadFile(cmd.Arguments[0])
		if err != nil {
			return tactile.MockResponse{Err: err}
		}
		return tactile.MockResponse{Stdout: string(data)}
	case "git":
		return tactile.MockResponse{ExitCode: 128, Stderr: "fatal: not a git repository"}
	}
	return tactile.MockResponse{}
}

func TestExecute_NonNativeStageReadsHandOffFile(t *testing.T) {
	root := t.TempDir()
	mock := tactile.NewMockExecutor().
		On("ls", tactile.MockResponse{Stdout: listing}).
		Handle(readArtifact)
	e := newExecutor(t, mock, WithTempRoot(root))

	res := e.Execute(context.Background(), stages(t, cmd(actions.ListFiles), cmd(actions.DisplayFile)))

	require.True(t, res.Success, res.Stderr)
	assert.Equal(t, listing, res.Stdout)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "cat", calls[1].Binary)
	assert.True(t, strings.HasPrefix(calls[1].Arguments[0], root))
	assert.Empty(t, calls[1].Stdin)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp artifacts left behind")
}

func TestExecute_TempDirRemovedOnFailure(t *testing.T) {
	root := t.TempDir()
	mock := tactile.NewMockExecutor().
		On("ls", tactile.MockResponse{Stdout: listing}).
		Handle(readArtifact)
	e := newExecutor(t, mock, WithTempRoot(root))

	res := e.Execute(context.Background(), stages(t,
		cmd(actions.ListFiles),
		cmd(actions.DisplayFile),
		cmd(actions.GitStatus),
	))

	assert.False(t, res.Success)
	require.NotNil(t, res.FailedStageIndex)
	assert.Equal(t, 2, *res.FailedStageIndex)
	assert.Equal(t, 3, res.StagesExecuted)
	assert.Equal(t, 128, res.ExitCode)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp artifacts left behind")
}

func TestExecute_MappingErrorStopsPipeline(t *testing.T) {
	mock := tactile.NewMockExecutor().On("ls", tactile.MockResponse{Stdout: listing})
	e := newExecutor(t, mock)

	res := e.Execute(context.Background(), stages(t, cmd(actions.ListFiles), cmd(actions.MoveRename)))

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, actions.ErrMissingArgument)
	assert.Contains(t, res.Stderr, "error executing command")
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, 2, res.StagesExecuted)
}

func TestExecute_SingleStageUsesDispatcher(t *testing.T) {
	mock := tactile.NewMockExecutor()
	dir := t.TempDir()
	e := NewExecutor(actions.NewDispatcher(actions.NewRegistry(), mock, dir))

	res := e.Execute(context.Background(), stages(t, cmd(actions.CreateFile, "notes.txt")))

	require.True(t, res.Success, res.Stderr)
	assert.Equal(t, 1, res.StagesExecuted)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.Empty(t, mock.Calls())
}

func TestExecute_RefusesTerminalStages(t *testing.T) {
	_, err := NewStage(0, cmd(actions.Suggest))
	assert.ErrorIs(t, err, ErrTerminalAction)
	_, err = NewStage(0, history.Command{})
	assert.ErrorIs(t, err, ErrTerminalAction)

	mock := tactile.NewMockExecutor()
	e := newExecutor(t, mock)
	raw := []Stage{{Index: 0, Command: cmd(actions.ListFiles)}, {Index: 1, Command: cmd(actions.Unrecognized)}}

	res := e.Execute(context.Background(), raw)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrTerminalAction)
	require.NotNil(t, res.FailedStageIndex)
	assert.Equal(t, 1, *res.FailedStageIndex)
}

func TestDescribe(t *testing.T) {
	d := actions.NewDispatcher(actions.NewRegistry(), tactile.NewMockExecutor(), t.TempDir())

	got, err := Describe(d, stages(t, cmd(actions.ListFiles), cmd(actions.DisplayFile), cmd(actions.SortLines, "-r")))
	require.NoError(t, err)
	want := []string{"ls -la", "display_file <output of stage 1>", "sort -r"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Describe mismatch (-want +got):\n%s", diff)
	}

	got, err = Describe(d, stages(t, cmd(actions.ListFiles)))
	require.NoError(t, err)
	assert.Equal(t, []string{"ls"}, got)

	_, err = Describe(d, stages(t, cmd(actions.CopyFile, "only-one")))
	assert.ErrorIs(t, err, actions.ErrMissingArgument)
}

func TestDescribe_PreviewsEveryStagePastAFailure(t *testing.T) {
	d := actions.NewDispatcher(actions.NewRegistry(), tactile.NewMockExecutor(), t.TempDir())

	got, err := Describe(d, stages(t, cmd(actions.GitStatus), cmd(actions.GitCommit), cmd(actions.CountLines)))
	require.Error(t, err)
	assert.ErrorIs(t, err, actions.ErrMissingArgument)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, actions.GitCommit, se.Action)

	require.Len(t, got, 3)
	assert.Equal(t, "git status", got[0])
	assert.True(t, strings.HasPrefix(got[1], "git_commit: "), got[1])
	assert.Equal(t, "wc -l", got[2])
}
