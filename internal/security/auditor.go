package security

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// AuditLevel selects which statements are audited.
type AuditLevel int

const (
	// AuditNone disables audit logging.
	AuditNone AuditLevel = iota
	// AuditWrites records INSERT, UPDATE, DELETE and TRUNCATE.
	AuditWrites
	// AuditReads adds SELECT.
	AuditReads
	// AuditAll records every statement, maintenance and savepoints included.
	AuditAll
)

// ParseAuditLevel maps "none", "writes", "reads" and "all" to a level.
// Anything else is AuditNone.
func ParseAuditLevel(s string) AuditLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "writes":
		return AuditWrites
	case "reads":
		return AuditReads
	case "all":
		return AuditAll
	}
	return AuditNone
}

// Entry is one executed statement as seen by the auditor. SQL is expected
// to be masked already.
type Entry struct {
	Operation    string
	SQL          string
	Rows         int
	RowsAffected int64
	Cached       bool
	Duration     time.Duration
	Err          error
}

// AuditEvent is the record written for an Entry.
type AuditEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	User         string    `json:"user,omitempty"`
	Operation    string    `json:"operation"`
	Table        string    `json:"table,omitempty"`
	Rows         int       `json:"rows"`
	AffectedRows int64     `json:"affected_rows"`
	Cached       bool      `json:"cached"`
	SQL          string    `json:"sql"`
	ClientIP     string    `json:"client_ip,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	Duration     int64     `json:"duration_ms"`
}

// Auditor writes audit events through a slog.Logger.
type Auditor struct {
	logger *slog.Logger
	level  AuditLevel
	now    func() time.Time
}

// NewAuditor creates an auditor. A nil logger disables it.
func NewAuditor(logger *slog.Logger, level AuditLevel) *Auditor {
	return &Auditor{
		logger: logger,
		level:  level,
		now:    time.Now,
	}
}

// Record audits e if the level covers its operation.
func (a *Auditor) Record(ctx context.Context, e Entry) {
	if !a.shouldLog(e.Operation) {
		return
	}

	event := AuditEvent{
		Timestamp:    a.now().UTC(),
		User:         GetUser(ctx),
		Operation:    e.Operation,
		Table:        extractTableName(e.SQL),
		Rows:         e.Rows,
		AffectedRows: e.RowsAffected,
		Cached:       e.Cached,
		SQL:          e.SQL,
		ClientIP:     GetClientIP(ctx),
		RequestID:    GetRequestID(ctx),
		Success:      e.Err == nil,
		Duration:     e.Duration.Milliseconds(),
	}
	if e.Err != nil {
		event.Error = e.Err.Error()
	}
	a.logEvent(event)
}

// LogSecurityEvent records a rejected statement regardless of level.
func (a *Auditor) LogSecurityEvent(ctx context.Context, eventType, query string, err error) {
	if a == nil || a.logger == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.logger.Warn("security_event",
		"event_type", eventType,
		"timestamp", a.now().UTC(),
		"user", GetUser(ctx),
		"client_ip", GetClientIP(ctx),
		"request_id", GetRequestID(ctx),
		"query", query,
		"error", msg,
	)
}

func (a *Auditor) shouldLog(operation string) bool {
	if a == nil || a.logger == nil {
		return false
	}
	switch a.level {
	case AuditWrites:
		switch operation {
		case "INSERT", "UPDATE", "DELETE", "TRUNCATE":
			return true
		}
		return false
	case AuditReads:
		switch operation {
		case "INSERT", "UPDATE", "DELETE", "TRUNCATE", "SELECT":
			return true
		}
		return false
	case AuditAll:
		return true
	}
	return false
}

func (a *Auditor) logEvent(event AuditEvent) {
	logFunc := a.logger.Info
	if !event.Success {
		logFunc = a.logger.Warn
	}
	logFunc("audit_event",
		"timestamp", event.Timestamp,
		"user", event.User,
		"operation", event.Operation,
		"table", event.Table,
		"rows", event.Rows,
		"affected_rows", event.AffectedRows,
		"cached", event.Cached,
		"sql", event.SQL,
		"client_ip", event.ClientIP,
		"request_id", event.RequestID,
		"success", event.Success,
		"error", event.Error,
		"duration_ms", event.Duration,
	)
}

var tableName = regexp.MustCompile(`(?i)\b(?:FROM|INTO|UPDATE|TABLE)\s+([A-Za-z0-9_.` + "`" + `"]+)`)

// extractTableName returns the first table named after FROM, INTO, UPDATE
// or TABLE, without quoting.
func extractTableName(query string) string {
	m := tableName.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], "`\"")
}

type contextKey string

const (
	userKey      contextKey = "fluentdb:user"
	clientIPKey  contextKey = "fluentdb:client_ip"
	requestIDKey contextKey = "fluentdb:request_id"
)

// WithUser adds the acting user to ctx for audit records.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithClientIP adds the client address to ctx for audit records.
func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, clientIPKey, clientIP)
}

// WithRequestID adds a request id to ctx for audit records.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetUser returns the user stored by WithUser.
func GetUser(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// GetClientIP returns the address stored by WithClientIP.
func GetClientIP(ctx context.Context) string {
	clientIP, _ := ctx.Value(clientIPKey).(string)
	return clientIP
}

// GetRequestID returns the id stored by WithRequestID.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}
