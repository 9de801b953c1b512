// Package redact masks secrets and PII in received log lines before they
// reach the operator console.
package redact

import (
	"fmt"
	"regexp"
)

// Rule detects sensitive data in a string and provides a replacement.
type Rule interface {
	Name() string
	Kind() string
	Detect(s string) []Match
	Replacement(m Match) string
}

// Match represents a detected occurrence within a string.
type Match struct {
	Start int
	End   int
	Value string
}

const (
	KindSecret = "secret"
	KindPII    = "pii"
)

type regexRule struct {
	name    string
	kind    string
	pattern *regexp.Regexp
	// group selects a submatch to redact instead of the whole match, so
	// that "password=hunter2" keeps its key.
	group int
}

func newRegexRule(name, kind, pattern string) *regexRule {
	return &regexRule{name: name, kind: kind, pattern: regexp.MustCompile(pattern)}
}

func (r *regexRule) Name() string { return r.name }
func (r *regexRule) Kind() string { return r.kind }

func (r *regexRule) Detect(s string) []Match {
	locs := r.pattern.FindAllStringSubmatchIndex(s, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[2*r.group], loc[2*r.group+1]
		if start < 0 {
			continue
		}
		matches = append(matches, Match{Start: start, End: end, Value: s[start:end]})
	}
	return matches
}

func (r *regexRule) Replacement(_ Match) string {
	return fmt.Sprintf("[REDACTED:%s]", r.name)
}

// SecretRules returns the built-in secret detection rules.
func SecretRules() []Rule {
	assignment := newRegexRule("assignment", KindSecret,
		`(?i)(?:password|passwd|secret|token|aws_secret_access_key)["']?\s*[:=]\s*["']?([^\s"',]{4,})`)
	assignment.group = 1

	return []Rule{
		newRegexRule("aws_key", KindSecret, `AKIA[0-9A-Z]{16}`),
		newRegexRule("api_key", KindSecret, `(?:sk-[a-zA-Z0-9]{32,}|ghp_[a-zA-Z0-9]{36,}|gho_[a-zA-Z0-9]{36,}|glpat-[a-zA-Z0-9\-]{20,})`),
		newRegexRule("private_key", KindSecret, `-----BEGIN [A-Z ]+PRIVATE KEY-----`),
		newRegexRule("connection_string", KindSecret, `(?:postgres|mongodb|mysql|redis)://[^\s"'`+"`"+`]+`),
		newRegexRule("jwt", KindSecret, `eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_.+/=]+`),
		assignment,
	}
}

// PIIRules returns the built-in PII detection rules.
func PIIRules() []Rule {
	return []Rule{
		newRegexRule("email", KindPII, `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		newRegexRule("ipv4", KindPII, `\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
		newRegexRule("phone", KindPII, `(?:\+\d{1,3}[\s\-]?)?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{4}`),
	}
}
