// Package security guards raw statements against injection patterns and
// writes an audit trail of executed statements.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeStatement is returned when a raw statement or template argument
// matches an injection pattern.
var ErrUnsafeStatement = errors.New("unsafe SQL construct")

// Validator checks raw statements and template arguments against known
// injection patterns. Statements assembled by the builder are not checked.
type Validator struct {
	patterns []*regexp.Regexp
	strict   bool
}

// ValidatorOption configures the Validator.
type ValidatorOption func(*Validator)

// WithStrict adds patterns that also reject any OR, AND, UNION or EXEC.
func WithStrict(strict bool) ValidatorOption {
	return func(v *Validator) {
		v.strict = strict
	}
}

// NewValidator creates a validator with the default pattern set.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{patterns: compilePatterns(dangerousPatterns)}
	for _, opt := range opts {
		opt(v)
	}
	if v.strict {
		v.patterns = append(v.patterns, compilePatterns(strictPatterns)...)
	}
	return v
}

// dangerousPatterns match upper-cased statements.
var dangerousPatterns = []string{
	// comments used to cut a statement short
	`--[\s]`,
	`/\*.*\*/`,
	`#[\s]`,

	// stacked statements
	`;\s*DROP\s+`,
	`;\s*DELETE\s+`,
	`;\s*TRUNCATE\s+`,
	`;\s*ALTER\s+`,
	`;\s*CREATE\s+`,

	`UNION\s+ALL\s+SELECT`,
	`UNION\s+SELECT`,

	`XP_CMDSHELL`,
	`\bEXEC\s*\(`,
	`\bEXECUTE\s*\(`,
	`SP_EXECUTESQL`,
	`\bEXEC\s+XP_`,
	`\bEXEC\s+SP_`,

	// metadata and timing probes
	`INFORMATION_SCHEMA`,
	`PG_SLEEP\s*\(`,
	`BENCHMARK\s*\(`,
	`WAITFOR\s+DELAY`,
	`\bSLEEP\s*\(`,

	// tautologies
	`\s+OR\s+1\s*=\s*1\b`,
	`\s+OR\s+'1'\s*=\s*'1'`,
	`\s+AND\s+1\s*=\s*0\b`,
}

var strictPatterns = []string{
	`\bOR\b`,
	`\bAND\b`,
	`\bUNION\b`,
	`\bEXEC\b`,
	`\bEXECUTE\b`,
}

// ValidateQuery returns ErrUnsafeStatement when query matches a pattern.
func (v *Validator) ValidateQuery(query string) error {
	normalized := strings.ToUpper(query)
	for _, pattern := range v.patterns {
		if pattern.MatchString(normalized) {
			return fmt.Errorf("%w: statement matches %q", ErrUnsafeStatement, pattern.String())
		}
	}
	return nil
}

// ValidateArgs checks the string arguments bound into a template. Values
// are escaped before substitution, so this only catches attempts that
// would survive a broken escaper.
func (v *Validator) ValidateArgs(args []any) error {
	for i, arg := range args {
		var s string
		switch x := arg.(type) {
		case string:
			s = x
		case []byte:
			s = string(x)
		default:
			continue
		}
		if containsInjection(s) {
			return fmt.Errorf("%w: argument %d", ErrUnsafeStatement, i)
		}
	}
	return nil
}

var injectionIndicators = []string{
	"'--",
	"';",
	"' OR ",
	"' AND ",
	"/*",
	"*/",
	"' UNION ",
	"' DROP ",
	"XP_",
}

func containsInjection(value string) bool {
	upper := strings.ToUpper(value)
	for _, indicator := range injectionIndicators {
		if strings.Contains(upper, indicator) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}
	return compiled
}
