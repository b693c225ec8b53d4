package optimizer

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Stage identifies one step of the refinement pipeline.
type Stage int

const (
	Stage1 Stage = iota + 1
	Stage2
	Stage3
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{Stage1, Stage2, Stage3}

func (s Stage) String() string {
	return fmt.Sprintf("stage%d", int(s))
}

// HistoryMode selects the prompt variant for a fresh requirement or an ongoing conversation.
type HistoryMode string

const (
	ModeFresh        HistoryMode = "fresh"
	ModeContinuation HistoryMode = "continuation"
)

// ModeFor maps the hasHistory flag produced by the ContextBuilder to a mode.
func ModeFor(hasHistory bool) HistoryMode {
	if hasHistory {
		return ModeContinuation
	}
	return ModeFresh
}

// Template is a system/human prompt pair. Human prompts reference bindings as {name}.
type Template struct {
	System string `yaml:"system"`
	Human  string `yaml:"human"`
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render substitutes bindings into both prompts. Substituted values are not rescanned,
// so user text containing braces is passed through untouched.
func (t Template) Render(bindings map[string]string) (system, human string, err error) {
	system, err = render(t.System, bindings)
	if err != nil {
		return "", "", fmt.Errorf("system prompt: %w", err)
	}
	human, err = render(t.Human, bindings)
	if err != nil {
		return "", "", fmt.Errorf("human prompt: %w", err)
	}
	return system, human, nil
}

func render(text string, bindings map[string]string) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := bindings[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing binding(s): %s", strings.Join(missing, ", "))
	}
	return out, nil
}

type templateKey struct {
	stage Stage
	mode  HistoryMode
}

// TemplateRegistry holds the stage prompts plus the standalone summary and title prompts.
// It is read-only after loading.
type TemplateRegistry struct {
	stages  map[templateKey]Template
	summary Template
	title   Template
}

type templateDocument struct {
	Stages  map[string]map[HistoryMode]Template `yaml:"stages"`
	Summary Template                            `yaml:"summary"`
	Title   Template                            `yaml:"title"`
}

// DefaultTemplates returns the registry compiled into the binary.
func DefaultTemplates() (*TemplateRegistry, error) {
	return ParseTemplates(defaultTemplates)
}

// LoadTemplates reads a registry from path, or the built-in one when path is empty.
func LoadTemplates(path string) (*TemplateRegistry, error) {
	if path == "" {
		return DefaultTemplates()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes a YAML template document and checks that every
// (stage, mode) pair and the summary/title prompts are present.
func ParseTemplates(data []byte) (*TemplateRegistry, error) {
	var doc templateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding templates: %w", err)
	}

	reg := &TemplateRegistry{
		stages:  make(map[templateKey]Template, len(Stages)*2),
		summary: doc.Summary,
		title:   doc.Title,
	}
	for _, stage := range Stages {
		modes, ok := doc.Stages[stage.String()]
		if !ok {
			return nil, fmt.Errorf("templates: %s is not defined", stage)
		}
		for _, mode := range []HistoryMode{ModeFresh, ModeContinuation} {
			tmpl, ok := modes[mode]
			if !ok || strings.TrimSpace(tmpl.Human) == "" {
				return nil, fmt.Errorf("templates: %s/%s is not defined", stage, mode)
			}
			reg.stages[templateKey{stage, mode}] = tmpl
		}
	}
	if strings.TrimSpace(reg.summary.Human) == "" {
		return nil, fmt.Errorf("templates: summary is not defined")
	}
	if strings.TrimSpace(reg.title.Human) == "" {
		return nil, fmt.Errorf("templates: title is not defined")
	}
	return reg, nil
}

// Lookup returns the prompt pair for a stage in the given history mode.
func (r *TemplateRegistry) Lookup(stage Stage, hasHistory bool) (Template, bool) {
	t, ok := r.stages[templateKey{stage, ModeFor(hasHistory)}]
	return t, ok
}

// Summary returns the prompt used by the Summarizer.
func (r *TemplateRegistry) Summary() Template {
	return r.summary
}

// Title returns the prompt used to name sessions.
func (r *TemplateRegistry) Title() Template {
	return r.title
}
