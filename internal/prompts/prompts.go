// Package prompts builds the generation requests for the interviewer and the
// feedback coach from a YAML catalog.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/domain/repositories"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Persona is the prompt set for one speaker the model plays
type Persona struct {
	System            string `yaml:"system"`
	TranscriptHeading string `yaml:"transcript_heading"`
	Cue               string `yaml:"cue"`

	system *template.Template
}

// Catalog holds every prompt the dialogue generator needs
type Catalog struct {
	Interviewer        Persona  `yaml:"interviewer"`
	Coach              Persona  `yaml:"coach"`
	TerminationPhrases []string `yaml:"termination_phrases"`
}

// Default returns the embedded catalog
func Default() *Catalog {
	catalog, err := parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt catalog is invalid: %v", err))
	}
	return catalog
}

// Load reads a catalog from filename. An empty filename yields the embedded
// catalog. Fields missing from the file keep their embedded values.
func Load(filename string) (*Catalog, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog %s: %w", filename, err)
	}

	catalog, err := parse(defaultCatalog, data)
	if err != nil {
		return nil, fmt.Errorf("prompt catalog %s: %w", filename, err)
	}
	return catalog, nil
}

func parse(layers ...[]byte) (*Catalog, error) {
	var catalog Catalog
	for _, data := range layers {
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Catalog) validate() error {
	for name, persona := range map[string]*Persona{"interviewer": &c.Interviewer, "coach": &c.Coach} {
		if strings.TrimSpace(persona.System) == "" {
			return fmt.Errorf("%s.system is required", name)
		}
		if strings.TrimSpace(persona.Cue) == "" {
			return fmt.Errorf("%s.cue is required", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(persona.System)
		if err != nil {
			return fmt.Errorf("%s.system: %w", name, err)
		}
		persona.system = tmpl
	}

	phrases := c.TerminationPhrases[:0]
	for _, phrase := range c.TerminationPhrases {
		if phrase = strings.TrimSpace(phrase); phrase != "" {
			phrases = append(phrases, phrase)
		}
	}
	if len(phrases) == 0 {
		return fmt.Errorf("at least one termination phrase is required")
	}
	c.TerminationPhrases = phrases
	return nil
}

// InterviewerRequest builds the request for the next interviewer question
func (c *Catalog) InterviewerRequest(role string, history []entities.Turn) (repositories.GenerateRequest, error) {
	return c.Interviewer.request(role, history)
}

// FeedbackRequest builds the request for the feedback report
func (c *Catalog) FeedbackRequest(role string, history []entities.Turn) (repositories.GenerateRequest, error) {
	return c.Coach.request(role, history)
}

func (p *Persona) request(role string, history []entities.Turn) (repositories.GenerateRequest, error) {
	var system strings.Builder
	if err := p.system.Execute(&system, struct{ Role string }{Role: role}); err != nil {
		return repositories.GenerateRequest{}, fmt.Errorf("failed to render system prompt: %w", err)
	}

	prompt := p.TranscriptHeading + "\n" + Transcript(history) + "\n\n" + p.Cue
	return repositories.GenerateRequest{
		SystemInstruction: strings.TrimSpace(system.String()),
		Prompt:            prompt,
	}, nil
}

// Transcript renders history as "Candidate: ..." and "Interviewer: ..." lines
func Transcript(history []entities.Turn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		prefix := "Interviewer"
		if turn.Speaker == entities.SpeakerCandidate {
			prefix = "Candidate"
		}
		lines = append(lines, prefix+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}
