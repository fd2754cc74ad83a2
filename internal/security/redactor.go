// Package security keeps gateway credentials out of the console's logs and
// API responses, and guards the console's HTTP surface.
package security

import (
	"regexp"
	"strings"
	"sync"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches document keys whose string values are secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|passwd|apikey|api_key|credential|authorization)`)

// Redactor replaces secret values in strings and configuration documents.
// It matches well-known API key formats and literal values registered at
// runtime (provider keys read from the gateway snapshot).
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals map[string]struct{}
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
		literals: make(map[string]struct{}),
	}
}

// AddPattern adds a compiled regex pattern.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral registers a literal secret. Values shorter than four
// characters are ignored; redacting them would mangle ordinary text.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < 4 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.literals == nil {
		r.literals = make(map[string]struct{})
	}
	r.literals[secret] = struct{}{}
}

// RegisterDocument registers every secret-named string value in doc as a
// literal, so it is redacted wherever it later appears in free text.
func (r *Redactor) RegisterDocument(doc confdoc.Document) {
	for _, s := range collectSecrets(doc, nil) {
		r.AddLiteral(s)
	}
}

// Redact replaces known secret patterns and literals in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for lit := range r.literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	return s
}

// RedactDocument returns a redacted deep copy of doc. Values under
// secret-named keys are replaced, other strings go through Redact. doc is
// left untouched.
func (r *Redactor) RedactDocument(doc confdoc.Document) confdoc.Document {
	out := confdoc.Clone(doc)
	r.redactMap(out)
	return out
}

func (r *Redactor) redactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		m[k] = r.redactValue(v)
	}
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		r.redactMap(val)
		return val
	case []any:
		for i, item := range val {
			val[i] = r.redactValue(item)
		}
		return val
	case string:
		return r.Redact(val)
	default:
		return v
	}
}

func collectSecrets(v any, out []string) []string {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if s, ok := child.(string); ok && secretKeyPattern.MatchString(k) {
				out = append(out, s)
				continue
			}
			out = collectSecrets(child, out)
		}
	case []any:
		for _, item := range val {
			out = collectSecrets(item, out)
		}
	}
	return out
}

// DefaultPatterns returns compiled regex patterns for common API key formats.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Anthropic before OpenAI so the longer prefix wins.
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`),
		regexp.MustCompile(`sk-(or-v1-)?[a-zA-Z0-9]{20,}`),
		regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
		regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
		regexp.MustCompile(`xox[bp]-[0-9]+-[a-zA-Z0-9\-]+`),
		// Telegram bot token.
		regexp.MustCompile(`\b[0-9]{8,10}:[a-zA-Z0-9_\-]{35}\b`),
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]{16,}=*`),
	}
}
