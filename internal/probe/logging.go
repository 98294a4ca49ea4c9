package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/prithuhomes/customerportal/internal/server"
)

// loggingObserver creates request-scoped logging probes
type loggingObserver struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLoggingObserver creates an observer that logs portal request events
// using structured logging with slog.
func NewLoggingObserver(logger *slog.Logger) server.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingObserver{
		logger: logger,
		now:    time.Now,
	}
}

func (o *loggingObserver) RequestStarted(ctx context.Context, info server.RequestInfo) (context.Context, server.RequestProbe) {
	logger := o.logger.With(
		slog.String("request_id", info.RequestID),
		slog.String("entity", info.Entity),
	)

	logger.LogAttrs(ctx, slog.LevelDebug, "Portal request started",
		slog.String("method", info.Method),
		slog.String("path", info.Path),
	)

	// Return a request-scoped probe that captures the context
	return ctx, &loggingProbe{
		ctx:     ctx,
		logger:  logger,
		now:     o.now,
		started: o.now(),
	}
}

// loggingProbe is a request-scoped probe that logs events for a single request
type loggingProbe struct {
	ctx     context.Context
	logger  *slog.Logger
	now     func() time.Time
	started time.Time

	objectID  string
	contactID string
}

func (p *loggingProbe) TokenRejected(reason string, err error) {
	attrs := []slog.Attr{slog.String("reason", reason)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	p.logger.LogAttrs(p.ctx, slog.LevelWarn, "Token rejected", attrs...)
}

func (p *loggingProbe) RoleMissing(role string) {
	p.logger.LogAttrs(p.ctx, slog.LevelWarn,
		"Access denied, required role missing",
		slog.String("required_role", role),
	)
}

func (p *loggingProbe) IdentityMissing() {
	p.logger.LogAttrs(p.ctx, slog.LevelWarn,
		"Token missing required identity claim",
		slog.String("expected", "oid/objectidentifier/sub/nameidentifier"),
	)
}

func (p *loggingProbe) ServiceTokenFailed(err error) {
	attrs := []slog.Attr{}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	p.logger.LogAttrs(p.ctx, slog.LevelError, "Failed to acquire service token", attrs...)
}

func (p *loggingProbe) ContactResolved(objectID, contactID string) {
	p.objectID, p.contactID = objectID, contactID
	p.logger.LogAttrs(p.ctx, slog.LevelDebug,
		"Contact resolved",
		slog.String("oid", objectID),
		slog.String("contact_id", contactID),
	)
}

func (p *loggingProbe) ContactNotFound(objectID string) {
	p.logger.LogAttrs(p.ctx, slog.LevelWarn,
		"Authorized token but no matching customer contact found",
		slog.String("oid", objectID),
	)
}

func (p *loggingProbe) EntityServed(entity string, count int) {
	p.logger.LogAttrs(p.ctx, slog.LevelInfo,
		"Entity served",
		slog.String("served_entity", entity),
		slog.String("contact_id", p.contactID),
		slog.Int("record_count", count),
	)
}

func (p *loggingProbe) RequestFailed(status int, err error) {
	level := slog.LevelError
	if status < 500 {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.Int("status", status),
		slog.String("oid", p.objectID),
		slog.String("contact_id", p.contactID),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	p.logger.LogAttrs(p.ctx, level, "Portal request failed", attrs...)
}

func (p *loggingProbe) End() {
	p.logger.LogAttrs(p.ctx, slog.LevelDebug,
		"Portal request completed",
		slog.Duration("duration", p.now().Sub(p.started)),
	)
}
