// Package analyze classifies posts as product opportunities using an LLM.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jacklau/oppradar/internal/provider"
)

// ErrAnalysis is returned when the classifier output is missing, malformed or
// fails validation. Callers treat it as fatal for the run.
var ErrAnalysis = errors.New("analysis failed")

// Result is a validated classification.
type Result struct {
	IsOpportunity    bool   `json:"isOpportunity"`
	PainPointSummary string `json:"painPointSummary"`
	ProposedSolution string `json:"proposedSolution"`
}

// Classifier is the contract the pipeline depends on.
type Classifier interface {
	Analyze(ctx context.Context, title, body string) (*Result, error)
}

// Analyzer implements Classifier on top of a provider.Completer.
type Analyzer struct {
	completer provider.Completer
	timeout   time.Duration
}

// NewAnalyzer creates an Analyzer. If timeout is zero, defaults to 60 seconds.
func NewAnalyzer(completer provider.Completer, timeout time.Duration) *Analyzer {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Analyzer{completer: completer, timeout: timeout}
}

// llmResponse uses pointers so absent keys can be told apart from zero values.
type llmResponse struct {
	IsOpportunity    *bool   `json:"is_opportunity"`
	PainPointSummary *string `json:"pain_point_summary"`
	ProposedSolution *string `json:"proposed_solution"`
}

// codeFenceRe matches markdown code fences around JSON.
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\\s*```")

// ParseResponse validates raw model output against the expected schema.
func ParseResponse(raw string) (*Result, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrAnalysis)
	}
	if m := codeFenceRe.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = strings.TrimSpace(m[1])
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrAnalysis, provider.ErrInvalidResponse, err)
	}

	switch {
	case resp.IsOpportunity == nil:
		return nil, fmt.Errorf("%w: missing is_opportunity", ErrAnalysis)
	case resp.PainPointSummary == nil || strings.TrimSpace(*resp.PainPointSummary) == "":
		return nil, fmt.Errorf("%w: pain_point_summary must be a non-empty string", ErrAnalysis)
	case resp.ProposedSolution == nil || strings.TrimSpace(*resp.ProposedSolution) == "":
		return nil, fmt.Errorf("%w: proposed_solution must be a non-empty string", ErrAnalysis)
	}

	return &Result{
		IsOpportunity:    *resp.IsOpportunity,
		PainPointSummary: strings.TrimSpace(*resp.PainPointSummary),
		ProposedSolution: strings.TrimSpace(*resp.ProposedSolution),
	}, nil
}

// Analyze classifies a single post. The call is not retried.
func (a *Analyzer) Analyze(ctx context.Context, title, body string) (*Result, error) {
	user, err := BuildUserPrompt(title, body)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.completer.Complete(ctx, provider.Prompt{
		System: SystemPrompt,
		User:   user,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: completing prompt: %w", ErrAnalysis, err)
	}

	return ParseResponse(raw)
}

var _ Classifier = (*Analyzer)(nil)
