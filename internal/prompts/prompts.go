// Package prompts renders the enrichment prompt for a record. Built-in templates cover
// every record type; a YAML file may override them and is reloaded when it changes.
package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"nexussync/internal/models"
)

const responseContract = `
Respond with a single JSON object and nothing else:
{"summary": "<one or two sentences>", "insight": "<one actionable observation>"}`

const defaultTemplate = `Summarize the following {{.RecordType}} record from the {{.SourceType}} source and give one insight about it.

Record:
{{.Content}}
` + responseContract

var builtin = map[models.RecordType]string{
	models.RecordTypeNote: `You are reviewing a personal note.

Note:
{{.Content}}

Summarize what the note is about and point out one follow-up the author might take.
` + responseContract,
	models.RecordTypeProject: `You are reviewing a project.

Project:
{{.Content}}

Summarize the project's purpose and current state, and give one insight about its progress or risks.
` + responseContract,
	models.RecordTypeContact: `You are reviewing a CRM contact.

Contact:
{{.Content}}

Summarize who this contact is and suggest one way to follow up with them.
` + responseContract,
	models.RecordTypeConversation: `You are reviewing a conversation thread.

Conversation:
{{.Content}}

Summarize the conversation and highlight one open question or next step.
` + responseContract,
}

// File is the on-disk override format
type File struct {
	Default   string            `yaml:"default"`
	Templates map[string]string `yaml:"templates"`
}

// data is what templates see
type data struct {
	RecordType string
	SourceType string
	SourceName string
	Content    string
	Fields     map[string]interface{}
}

// Store holds the active template set
type Store struct {
	mu        sync.RWMutex
	fallback  *template.Template
	templates map[models.RecordType]*template.Template
}

// NewStore returns a store loaded with the built-in templates
func NewStore() *Store {
	s := &Store{}
	set, fallback, err := compile(File{})
	if err != nil {
		panic(fmt.Sprintf("built-in prompt templates: %v", err))
	}
	s.templates, s.fallback = set, fallback
	return s
}

// LoadFile replaces the template set with the built-ins overlaid by the file at path. On
// error the active set is left untouched.
func (s *Store) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("failed to parse prompts file: %w", err)
	}

	set, fallback, err := compile(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.templates, s.fallback = set, fallback
	s.mu.Unlock()
	return nil
}

// Render builds the enrichment prompt for a record
func (s *Store) Render(record *models.CanonicalRecord) (string, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[record.RecordType]
	if !ok {
		tmpl = s.fallback
	}
	s.mu.RUnlock()

	fields := models.ContentFields(record.Content)
	content, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode record content: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data{
		RecordType: string(record.RecordType),
		SourceType: string(record.SourceType),
		SourceName: record.SourceName,
		Content:    string(content),
		Fields:     fields,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt for %s: %w", record.RecordType, err)
	}
	return buf.String(), nil
}

func compile(f File) (map[models.RecordType]*template.Template, *template.Template, error) {
	sources := make(map[models.RecordType]string, len(builtin))
	for rt, text := range builtin {
		sources[rt] = text
	}
	for name, text := range f.Templates {
		rt := models.RecordType(name)
		if !rt.Valid() {
			return nil, nil, fmt.Errorf("unknown record type %q in prompts file", name)
		}
		sources[rt] = text
	}

	set := make(map[models.RecordType]*template.Template, len(sources))
	for rt, text := range sources {
		tmpl, err := template.New(string(rt)).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %s template: %w", rt, err)
		}
		set[rt] = tmpl
	}

	fallbackText := defaultTemplate
	if f.Default != "" {
		fallbackText = f.Default
	}
	fallback, err := template.New("default").Option("missingkey=zero").Parse(fallbackText)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid default template: %w", err)
	}
	return set, fallback, nil
}
