// Package heuristic implements the keyword pre-filter applied before any
// model call.
package heuristic

import (
	"regexp"
	"strings"
)

// NormalizeTerms trims, lowercases and deduplicates terms, dropping empties.
// Order of first occurrence is preserved.
func NormalizeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// BuildPattern compiles terms into a case-insensitive whole-word alternation.
// Terms are matched literally. Returns nil when no usable terms remain.
func BuildPattern(terms []string) *regexp.Regexp {
	normalized := NormalizeTerms(terms)
	if len(normalized) == 0 {
		return nil
	}
	quoted := make([]string, len(normalized))
	for i, t := range normalized {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Filter decides whether a post is worth sending to the classifier.
type Filter struct {
	re *regexp.Regexp
}

// New builds a Filter from raw terms. A filter with no usable terms passes
// every post.
func New(terms []string) *Filter {
	return &Filter{re: BuildPattern(terms)}
}

// Match reports whether the title or body contains any term.
func (f *Filter) Match(title, body string) bool {
	if f == nil || f.re == nil {
		return true
	}
	return f.re.MatchString(title + "\n" + body)
}

// Empty reports whether the filter has no terms.
func (f *Filter) Empty() bool {
	return f == nil || f.re == nil
}
