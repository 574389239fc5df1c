// Package summarize turns transcripts into summaries with a generative-AI
// text API.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/n2p5/ytt/internal/quota"
)

// Placeholder marks where the transcript goes in a prompt template.
const Placeholder = "{text}"

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Template is a prompt with one substitution point.
type Template string

// LoadTemplate reads a template file. A template without the placeholder
// gets the transcript appended after a blank line.
func LoadTemplate(path string) (Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	t := string(b)
	if strings.TrimSpace(t) == "" {
		return "", fmt.Errorf("prompt template %s is empty", path)
	}
	if !strings.Contains(t, Placeholder) {
		t = strings.TrimRight(t, "\n") + "\n\n" + Placeholder
	}
	return Template(t), nil
}

// Render substitutes text into the template.
func (t Template) Render(text string) string {
	return strings.ReplaceAll(string(t), Placeholder, text)
}

// Backend generates text for a prompt with one credential.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Keyed is a backend bound to a named credential.
type Keyed struct {
	Name    string
	Backend Backend
}

// Summarizer renders prompts and calls the backends with credential
// rotation.
type Summarizer struct {
	template Template
	backends []Backend
	quota    *quota.Client
}

// New creates a Summarizer. Backends are rotated in order; classify maps
// provider errors to outcomes.
func New(t Template, backends []Keyed, cfg quota.Config, classify quota.Classifier, log zerolog.Logger) (*Summarizer, error) {
	names := make([]string, len(backends))
	bs := make([]Backend, len(backends))
	for i, b := range backends {
		names[i] = b.Name
		bs[i] = b.Backend
	}
	pool, err := quota.NewPool(names...)
	if err != nil {
		return nil, fmt.Errorf("summary credentials: %w", err)
	}
	log = log.With().Str("component", "summarize").Logger()
	return &Summarizer{
		template: t,
		backends: bs,
		quota:    quota.NewClient("summarize", pool, cfg, classify, quota.WithLogger(log)),
	}, nil
}

// Summarize returns the model's summary of text. Errors are those of
// quota.Client.Execute, or ErrEmptyResponse wrapped in a rejection.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	prompt := s.template.Render(text)
	var out string
	err := s.quota.Execute(ctx, func(ctx context.Context, cred quota.Credential) error {
		resp, err := s.backends[cred.Index].Generate(ctx, prompt)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(resp)
		if out == "" {
			return ErrEmptyResponse
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
