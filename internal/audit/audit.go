// Package audit is the structured audit trail. It is deliberately narrow:
// spec.md §1 scopes the audit sink as an external collaborator and only
// specifies its interface; this package supplies one logx-based adapter so
// the coordinators have somewhere real to write to, without taking on a
// SIEM integration.
package audit

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"
)

// Event is one audit-log entry. Outcome is one of the names below, never
// an internal error message.
type Event struct {
	Actor     string // email or "unknown" when the principal could not be resolved
	IPAddress string
	UserAgent string
	Outcome   string
	Detail    string
}

const (
	OutcomeLoginSuccess  = "login_success"
	OutcomeLoginNoUser   = "login_no_such_user"
	OutcomeLoginBadPass  = "login_wrong_password"
	OutcomeLoginLocked   = "login_locked"
	OutcomeLoginInactive = "login_inactive"
	OutcomeRefreshOK     = "refresh_success"
	OutcomeRefreshDenied = "refresh_denied"
	OutcomeLogout        = "logout"
	OutcomeRevokeAll     = "revoke_all"
)

// Sink is the interface coordinators depend on, so tests can substitute an
// in-memory recorder.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// LogxSink renders every event through logx at Info level with the fields
// flattened, matching the teacher's own "one structured line per event"
// logging idiom rather than a separate audit database.
type LogxSink struct{}

func NewLogxSink() *LogxSink { return &LogxSink{} }

func (s *LogxSink) Record(ctx context.Context, ev Event) {
	logx.WithContext(ctx).Infof(
		"audit outcome=%s actor=%s ip=%s user_agent=%q detail=%q",
		ev.Outcome, ev.Actor, ev.IPAddress, ev.UserAgent, ev.Detail,
	)
}
