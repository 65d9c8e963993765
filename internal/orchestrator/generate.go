package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/procman/internal/manager"
	"github.com/shinji-kodama/procman/internal/model"
)

// Built-in template variables, always available to Generate.
const (
	VarDir  = "Dir"
	VarType = "Type"
)

// Generate renders every staged command into an artifact without running
// anything. Each token may reference template variables, for example
// {{.Dir}}, {{.Type}} or any user variable.
//
// Every token of every command in batch must be a key=value assignment.
// Assignments extend the variables for this generation cycle only; the
// seeded variables are not changed. On success the rendered batch becomes
// Artifacts and Generation is incremented. On failure the previous
// generation state is kept and a ReaderError fault is returned.
func (p *Process) Generate(batch model.CommandBatch) error {
	assigns, err := parseAssignments(batch)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	data := make(map[string]string, len(p.vars)+len(assigns)+2)
	for k, v := range p.vars {
		data[k] = v
	}
	for k, v := range assigns {
		data[k] = v
	}
	data[VarDir] = p.workDir
	data[VarType] = p.Type().String()

	rendered := make(model.CommandBatch, 0, len(p.staged))
	for i, cmd := range p.staged {
		out := make(model.Command, len(cmd))
		for j, tok := range cmd {
			r, err := renderToken(tok, data)
			if err != nil {
				return model.WrapFault(model.ReaderError,
					fmt.Sprintf("cannot render token %d of command %d (%s)", j, i, cmd.String()), err)
			}
			out[j] = r
		}
		rendered = append(rendered, out)
	}

	p.artifacts = rendered
	p.generation++
	manager.Notify(p.sink, "generated artifacts", "type", p.Type(),
		"generation", p.generation, "commands", len(rendered))
	return nil
}

// Artifacts returns a copy of the most recently generated batch.
func (p *Process) Artifacts() model.CommandBatch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifacts.Clone()
}

// Generation returns how many successful Generate calls have happened.
func (p *Process) Generation() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// parseAssignments reads key=value tokens.
func parseAssignments(batch model.CommandBatch) (map[string]string, error) {
	assigns := make(map[string]string)
	for i, cmd := range batch {
		for _, tok := range cmd {
			key, value, ok := strings.Cut(tok, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				return nil, model.NewFault(model.ReaderError,
					fmt.Sprintf("generate command %d: %q is not a key=value assignment", i, tok))
			}
			assigns[key] = value
		}
	}
	return assigns, nil
}

// renderToken expands template actions in tok. Tokens without actions
// are returned unchanged. A reference to an unknown variable is an error.
func renderToken(tok string, data map[string]string) (string, error) {
	if !strings.Contains(tok, "{{") {
		return tok, nil
	}

	tmpl, err := template.New("token").Option("missingkey=error").Parse(tok)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// artifactFile is the on-disk form written by WriteArtifacts.
type artifactFile struct {
	Type        string     `yaml:"type"`
	Generation  int        `yaml:"generation"`
	GeneratedAt time.Time  `yaml:"generatedAt"`
	Commands    [][]string `yaml:"commands"`
}

// WriteArtifacts saves the most recent artifacts as YAML at path,
// creating parent directories as needed.
func (p *Process) WriteArtifacts(path string) error {
	p.mu.Lock()
	doc := artifactFile{
		Type:        p.Type().String(),
		Generation:  p.generation,
		GeneratedAt: time.Now().UTC(),
		Commands:    make([][]string, 0, len(p.artifacts)),
	}
	for _, cmd := range p.artifacts {
		doc.Commands = append(doc.Commands, cmd.Clone())
	}
	p.mu.Unlock()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return model.WrapFault(model.DirectoryCannotCreate,
				fmt.Sprintf("cannot create artifact directory %s", dir), err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return model.WrapFault(model.FileIsBlocked, fmt.Sprintf("artifact file %s is not writable", path), err)
		}
		return model.WrapFault(model.FileCannotOpen, fmt.Sprintf("cannot open artifact file %s", path), err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return model.WrapFault(model.CustomError, fmt.Sprintf("cannot write artifact file %s", path), err)
	}
	if err := enc.Close(); err != nil {
		return model.WrapFault(model.CustomError, fmt.Sprintf("cannot write artifact file %s", path), err)
	}

	manager.Notify(p.sink, "wrote artifacts", "type", p.Type(), "path", path)
	return nil
}

// ReadArtifacts loads a batch previously saved by WriteArtifacts.
func ReadArtifacts(path string) (model.CommandBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.WrapFault(model.FileNotFound, fmt.Sprintf("artifact file %s not found", path), err)
		}
		return nil, model.WrapFault(model.FileCannotOpen, fmt.Sprintf("cannot read artifact file %s", path), err)
	}

	var doc artifactFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, model.WrapFault(model.ReaderError, fmt.Sprintf("cannot parse artifact file %s", path), err)
	}
	return model.NewBatch(doc.Commands...), nil
}
