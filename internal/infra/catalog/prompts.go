package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/TSHgroup/hh25-backend/internal/domain/model"
)

// PromptData is what the chat system prompt is rendered from.
type PromptData struct {
	Persona  model.Persona
	Scenario *model.Scenario
	Profile  *model.Profile
	Name     string
	Round    *model.Round
}

type Prompts struct {
	main     *template.Template
	analysis string
}

// LoadPrompts reads main.prompt and analysis.prompt from dir, falling back to the embedded copies
// for any file dir does not provide.
func LoadPrompts(dir string) (*Prompts, error) {
	read := func(name string) ([]byte, error) {
		if dir != "" {
			b, err := os.ReadFile(filepath.Join(dir, name))
			if err == nil {
				return b, nil
			}
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
		return DataFS.ReadFile("data/prompts/" + name)
	}
	mainRaw, err := read("main.prompt")
	if err != nil {
		return nil, fmt.Errorf("read main prompt: %w", err)
	}
	analysis, err := read("analysis.prompt")
	if err != nil {
		return nil, fmt.Errorf("read analysis prompt: %w", err)
	}
	tpl, err := template.New("main").Funcs(template.FuncMap{"join": strings.Join}).Parse(string(mainRaw))
	if err != nil {
		return nil, fmt.Errorf("parse main prompt: %w", err)
	}
	return &Prompts{main: tpl, analysis: strings.TrimSpace(string(analysis))}, nil
}

// System renders the prompt that seeds a chat transcript.
func (p *Prompts) System(d PromptData) (string, error) {
	if d.Scenario == nil {
		d.Scenario = &model.Scenario{}
	}
	var buf bytes.Buffer
	if err := p.main.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// Rubric is the scoring instruction sent with every scored utterance.
func (p *Prompts) Rubric() string { return p.analysis }
