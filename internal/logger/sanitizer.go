package logger

import (
	"regexp"
	"strings"
)

// Mask replaces literal values in statements that mention a sensitive column.
const Mask = "***REDACTED***"

// MaxStatementLength bounds statements written to logs.
const MaxStatementLength = 2000

// DefaultSensitiveFields lists column names whose values never reach a log.
var DefaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api_token",
	"secret", "auth", "authorization",
	"credit_card", "card_number", "cvv", "cvc",
	"ssn", "social_security",
	"private_key", "priv_key",
}

// Statements arrive with their values already inlined as quoted literals.
// The pattern accepts both doubled quotes and backslash escapes.
var quotedLiteral = regexp.MustCompile(`'(?:[^'\\]|\\.|'')*'`)

// Sanitizer redacts inlined values from statements that touch sensitive
// columns before they are logged or attached to spans.
type Sanitizer struct {
	pattern *regexp.Regexp
}

// NewSanitizer builds a sanitizer for fields, or DefaultSensitiveFields
// when fields is empty.
func NewSanitizer(fields []string) *Sanitizer {
	if len(fields) == 0 {
		fields = DefaultSensitiveFields
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return &Sanitizer{
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

// IsSensitive reports whether sql names any sensitive field.
func (s *Sanitizer) IsSensitive(sql string) bool {
	return s.pattern.MatchString(sql)
}

// MaskSQL returns sql with every quoted literal replaced by Mask when the
// statement names a sensitive field, truncated to MaxStatementLength.
func (s *Sanitizer) MaskSQL(sql string) string {
	if s.IsSensitive(sql) {
		sql = quotedLiteral.ReplaceAllLiteralString(sql, "'"+Mask+"'")
	}
	return Truncate(sql, MaxStatementLength)
}

// Truncate shortens v to at most n bytes, marking the cut with "...".
func Truncate(v string, n int) string {
	if len(v) <= n {
		return v
	}
	return v[:n] + "..."
}
