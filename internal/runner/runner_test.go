package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/procman/internal/model"
)

// TestExec_CapturesStdout verifies that a successful command returns its
// stdout and a zero exit status.
func TestExec_CapturesStdout(t *testing.T) {
	res, err := Exec{}.Run(context.Background(), []string{"echo", "hello", "world"}, "")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "hello world\n", res.Output)
}

// TestExec_NonZeroExitIsNotAnError verifies that a started command that
// fails is reported through the Result, with stderr captured separately.
func TestExec_NonZeroExitIsNotAnError(t *testing.T) {
	res, err := Exec{}.Run(context.Background(),
		[]string{"sh", "-c", "echo out; echo oops >&2; exit 3"}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitStatus)
	assert.False(t, res.Success())
	assert.Equal(t, "out\n", res.Output)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, "out\noops", res.Combined())
}

// TestExec_WorkingDirectory verifies that dir becomes the process working
// directory when no DirFlag is configured.
func TestExec_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0644))

	res, err := Exec{}.Run(context.Background(), []string{"ls"}, dir)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "marker.txt")
}

// TestExec_Binary verifies that a configured binary receives argv as its
// arguments, preceded by the directory flag.
func TestExec_Binary(t *testing.T) {
	e := Exec{Binary: "echo", DirFlag: "-C"}
	program, args, err := e.command([]string{"stage", "fileA"}, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "echo", program)
	assert.Equal(t, []string{"-C", "/repo", "stage", "fileA"}, args)

	program, args, err = Exec{Binary: "echo"}.command([]string{"stage"}, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "echo", program)
	assert.Equal(t, []string{"stage"}, args)
}

// TestExec_Faults verifies the fault kinds reported for commands that
// cannot be started.
func TestExec_Faults(t *testing.T) {
	ctx := context.Background()

	t.Run("missing directory", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope")
		res, err := Exec{}.Run(ctx, []string{"echo"}, missing)
		require.Error(t, err)
		assert.Equal(t, model.DirectoryNotFound, model.KindOf(err))
		assert.Equal(t, -1, res.ExitStatus)
	})

	t.Run("missing program", func(t *testing.T) {
		_, err := Exec{}.Run(ctx, []string{"procman-no-such-binary-xyz"}, "")
		require.Error(t, err)
		assert.Equal(t, model.FileNotFound, model.KindOf(err))
	})

	t.Run("empty argv", func(t *testing.T) {
		_, err := Exec{}.Run(ctx, nil, "")
		require.Error(t, err)
		assert.Equal(t, model.CustomError, model.KindOf(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Exec{}.Run(cctx, []string{"sleep", "5"}, "")
		require.Error(t, err)
	})
}

// TestExec_Env verifies that extra environment entries reach the process.
func TestExec_Env(t *testing.T) {
	res, err := Exec{Env: []string{"PROCMAN_TEST_VAR=present"}}.Run(
		context.Background(), []string{"sh", "-c", "echo $PROCMAN_TEST_VAR"}, "")
	require.NoError(t, err)
	assert.Equal(t, "present", strings.TrimSpace(res.Output))
}

// TestRecorder verifies that calls are recorded in order and answered
// with scripted results.
func TestRecorder(t *testing.T) {
	rec := NewRecorder().
		Respond(model.Command{"status"}, Result{Output: "clean"}).
		Fail(model.Command{"push"}, errors.New("offline"))

	ctx := context.Background()
	res, err := rec.Run(ctx, []string{"status"}, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "clean", res.Output)

	res, err = rec.Run(ctx, []string{"stage", "fileA"}, "/repo")
	require.NoError(t, err)
	assert.True(t, res.Success())

	_, err = rec.Run(ctx, []string{"push"}, "/repo")
	assert.EqualError(t, err, "offline")

	assert.Equal(t, []model.Command{{"status"}, {"stage", "fileA"}, {"push"}}, rec.Argvs())
	assert.Equal(t, "/repo", rec.Calls()[0].Dir)
}

// TestFunc verifies the function adapter.
func TestFunc(t *testing.T) {
	var got []string
	r := Func(func(_ context.Context, argv []string, _ string) (Result, error) {
		got = argv
		return Result{ExitStatus: 2}, nil
	})
	res, err := r.Run(context.Background(), []string{"a", "b"}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitStatus)
	assert.Equal(t, []string{"a", "b"}, got)
}
