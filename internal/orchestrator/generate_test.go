package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/procman/internal/model"
	"github.com/shinji-kodama/procman/internal/runner"
)

// TestGenerate_RendersStagedCommands verifies template expansion with
// built-in, seeded and per-cycle variables, and that nothing is executed.
func TestGenerate_RendersStagedCommands(t *testing.T) {
	rec := runner.NewRecorder()
	p := New(model.TypeGit, rec,
		WithWorkDir("/repo"),
		WithVars(map[string]string{"Branch": "main"}),
	)
	require.NoError(t, p.Add(model.NewBatch(
		[]string{"checkout", "{{.Branch}}"},
		[]string{"add", "{{.Dir}}/{{.File}}"},
		[]string{"commit", "-m", "{{.Type}} change"},
	)))

	require.NoError(t, p.Generate(model.NewBatch([]string{"File=a.txt"})))

	assert.Equal(t, model.NewBatch(
		[]string{"checkout", "main"},
		[]string{"add", "/repo/a.txt"},
		[]string{"commit", "-m", "git change"},
	), p.Artifacts())
	assert.Equal(t, 1, p.Generation())
	assert.Empty(t, rec.Calls(), "Generate must not run commands")

	// Staged commands keep their templates.
	assert.Equal(t, model.Command{"checkout", "{{.Branch}}"}, p.Staged()[0])
}

// TestGenerate_AssignmentsAreScopedToCycle verifies that per-cycle
// variables do not leak into the next generation.
func TestGenerate_AssignmentsAreScopedToCycle(t *testing.T) {
	p := New(model.TypeGeneration, runner.NewRecorder())
	require.NoError(t, p.Add(model.NewBatch([]string{"echo", "{{.Name}}"})))

	require.NoError(t, p.Generate(model.NewBatch([]string{"Name=first"})))
	assert.Equal(t, model.Command{"echo", "first"}, p.Artifacts()[0])

	err := p.Generate(nil)
	require.Error(t, err)
	assert.Equal(t, model.ReaderError, model.KindOf(err))

	// The failed cycle keeps the previous artifacts.
	assert.Equal(t, model.Command{"echo", "first"}, p.Artifacts()[0])
	assert.Equal(t, 1, p.Generation())
}

// TestGenerate_Faults covers malformed assignments and templates.
func TestGenerate_Faults(t *testing.T) {
	tests := []struct {
		name   string
		staged model.CommandBatch
		batch  model.CommandBatch
	}{
		{"assignment without equals", model.NewBatch([]string{"x"}), model.NewBatch([]string{"oops"})},
		{"assignment without key", model.NewBatch([]string{"x"}), model.NewBatch([]string{"=value"})},
		{"unparseable template", model.NewBatch([]string{"{{.Broken"}), nil},
		{"unknown variable", model.NewBatch([]string{"{{.Missing}}"}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(model.TypeGeneration, runner.NewRecorder())
			require.NoError(t, p.Add(tt.staged))
			err := p.Generate(tt.batch)
			require.Error(t, err)
			assert.Equal(t, model.ReaderError, model.KindOf(err))
			assert.Zero(t, p.Generation())
		})
	}
}

// TestWriteAndReadArtifacts round-trips generated artifacts through the
// YAML file format.
func TestWriteAndReadArtifacts(t *testing.T) {
	p := New(model.TypeProcess, runner.NewRecorder())
	require.NoError(t, p.Add(model.NewBatch([]string{"echo", "{{.Greeting}}"}, []string{"true"})))
	require.NoError(t, p.Generate(model.NewBatch([]string{"Greeting=hi there"})))

	path := filepath.Join(t.TempDir(), "nested", "out", "artifacts.yaml")
	require.NoError(t, p.WriteArtifacts(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: process")
	assert.Contains(t, string(data), "generation: 1")

	batch, err := ReadArtifacts(path)
	require.NoError(t, err)
	assert.Equal(t, model.NewBatch([]string{"echo", "hi there"}, []string{"true"}), batch)
}

// TestWriteArtifacts_Faults verifies the fault kinds for unwritable
// destinations.
func TestWriteArtifacts_Faults(t *testing.T) {
	p := New(model.TypeProcess, runner.NewRecorder())

	t.Run("parent is a file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		err := p.WriteArtifacts(filepath.Join(blocker, "sub", "a.yaml"))
		require.Error(t, err)
		assert.Equal(t, model.DirectoryCannotCreate, model.KindOf(err))
	})

	t.Run("path is a directory", func(t *testing.T) {
		err := p.WriteArtifacts(t.TempDir())
		require.Error(t, err)
		assert.Equal(t, model.FileCannotOpen, model.KindOf(err))
	})
}

// TestReadArtifacts_Faults verifies missing and malformed files.
func TestReadArtifacts_Faults(t *testing.T) {
	_, err := ReadArtifacts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, model.FileNotFound, model.KindOf(err))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("commands: [[unclosed"), 0644))
	_, err = ReadArtifacts(bad)
	assert.Equal(t, model.ReaderError, model.KindOf(err))
}
