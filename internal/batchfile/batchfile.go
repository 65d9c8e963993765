// Package batchfile loads batch files: declarative descriptions of one
// orchestration session.
//
// A batch file names the manager type, its working directory and seeded
// template variables, and the command batches to stage, update, generate
// and execute. YAML (.yaml, .yml) and JSON (.json, .jsonc) are accepted;
// JSON files may carry // and /* */ comments and trailing commas.
//
// Example (YAML):
//
//	type: git
//	workdir: ../repo
//	vars:
//	  Branch: main
//	add:
//	  - [checkout, "{{.Branch}}"]
//	  - [add, README.md]
//	  - [commit, -m, "docs: touch readme"]
package batchfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/procman/internal/model"
)

// File is a parsed batch file. Each command list holds argv-style commands.
type File struct {
	// Type is the manager type tag. Empty means "process".
	Type string `yaml:"type" json:"type"`

	// WorkDir is where commands run. A relative path is resolved against
	// the directory containing the batch file; empty means the current
	// directory.
	WorkDir string `yaml:"workdir" json:"workdir"`

	// Vars seeds the template variables available to every generation.
	Vars map[string]string `yaml:"vars" json:"vars"`

	Add      [][]string `yaml:"add" json:"add"`
	Update   [][]string `yaml:"update" json:"update"`
	Generate [][]string `yaml:"generate" json:"generate"`

	// Execute is an explicit batch to run. When the key is absent the
	// staged set runs instead; an explicit empty list runs nothing.
	Execute [][]string `yaml:"execute" json:"execute"`

	// Detach runs the session without waiting for it on the caller's
	// goroutine. Failures are then only logged.
	Detach bool `yaml:"detach" json:"detach"`

	// Container names a labelled container to run the commands in.
	Container string `yaml:"container" json:"container"`

	path string
}

// Load reads and parses the batch file at path. The format is chosen by
// extension; unknown extensions are parsed as YAML.
//
// Faults: FileNotFound when path does not exist, FileCannotOpen when it
// cannot be read, ReaderError when the content is malformed.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, model.WrapFault(model.FileNotFound,
				fmt.Sprintf("batch file not found: %s", path), err)
		default:
			return nil, model.WrapFault(model.FileCannotOpen,
				fmt.Sprintf("cannot read batch file: %s", path), err)
		}
	}

	f, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, model.WrapFault(model.ReaderError,
			fmt.Sprintf("failed to parse batch file %s", path), err)
	}
	f.path = path
	return f, nil
}

// Format is a batch file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Parse decodes data in the given format. Unknown fields are rejected so
// that a misspelt key does not silently drop a batch.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			// An empty document decodes to io.EOF.
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported batch file format: %q", format)
	}
	return &f, nil
}

// Path returns the file the batch was loaded from, or "" for parsed data.
func (f *File) Path() string {
	return f.path
}

// ManagerType returns the parsed type tag, defaulting to TypeProcess.
// Call Validate first to surface invalid tags.
func (f *File) ManagerType() model.ManagerType {
	if strings.TrimSpace(f.Type) == "" {
		return model.TypeProcess
	}
	t, err := model.ParseManagerType(f.Type)
	if err != nil {
		return model.TypeNA
	}
	return t
}

// ResolvedWorkDir returns WorkDir with relative paths anchored at the
// batch file's directory.
func (f *File) ResolvedWorkDir() string {
	if f.WorkDir == "" || filepath.IsAbs(f.WorkDir) || f.path == "" {
		return f.WorkDir
	}
	return filepath.Join(filepath.Dir(f.path), f.WorkDir)
}

// AddBatch returns the commands to stage.
func (f *File) AddBatch() model.CommandBatch { return model.NewBatch(f.Add...) }

// UpdateBatch returns the commands replacing staged ones.
func (f *File) UpdateBatch() model.CommandBatch { return model.NewBatch(f.Update...) }

// GenerateBatch returns the per-cycle assignments.
func (f *File) GenerateBatch() model.CommandBatch { return model.NewBatch(f.Generate...) }

// ExecuteBatch returns the explicit batch and whether one was given.
func (f *File) ExecuteBatch() (model.CommandBatch, bool) {
	return model.NewBatch(f.Execute...), f.Execute != nil
}

// HasGenerate reports whether the file asks for a generation cycle.
func (f *File) HasGenerate() bool {
	return f.Generate != nil
}

// Validate checks the type tag and that no command is empty. Violations
// are ReaderError faults naming the offending section.
func (f *File) Validate() error {
	if strings.TrimSpace(f.Type) != "" {
		if _, err := model.ParseManagerType(f.Type); err != nil {
			return model.WrapFault(model.ReaderError, "invalid batch file", err)
		}
	}

	sections := []struct {
		name  string
		batch model.CommandBatch
	}{
		{"add", f.AddBatch()},
		{"update", f.UpdateBatch()},
		{"execute", model.NewBatch(f.Execute...)},
	}
	for _, s := range sections {
		if err := s.batch.Validate(); err != nil {
			return model.WrapFault(model.ReaderError, fmt.Sprintf("invalid %s section", s.name), err)
		}
	}

	for i, cmd := range f.Generate {
		for _, tok := range cmd {
			if !strings.Contains(tok, "=") {
				return model.NewFault(model.ReaderError,
					fmt.Sprintf("invalid generate section: command %d: %q is not a key=value assignment", i, tok))
			}
		}
	}
	return nil
}
