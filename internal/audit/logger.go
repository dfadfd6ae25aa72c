package audit

import (
	"context"

	appCtx "github.com/baechuer/cityevents/services/analytics-service/internal/pkg/context"
	"github.com/rs/zerolog"
)

// Logger provides structured audit logging for administrative mutations
// of the log store. Ingestion itself is high volume and deliberately not
// audited here; the worker's own logs cover it.
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// LogUpdated records an administrative edit of a stored log entry.
func (l *Logger) LogUpdated(ctx context.Context, id int64, actorID string, changed []string) {
	l.log.Info().
		Str("action", "log_updated").
		Int64("log_id", id).
		Str("actor_user_id", actorID).
		Strs("changed_fields", changed).
		Str("trace_id", appCtx.GetRequestID(ctx)).
		Msg("Log entry updated")
}

// LogDeleted records an administrative deletion of a stored log entry.
func (l *Logger) LogDeleted(ctx context.Context, id int64, actorID string) {
	l.log.Warn().
		Str("action", "log_deleted").
		Int64("log_id", id).
		Str("actor_user_id", actorID).
		Str("trace_id", appCtx.GetRequestID(ctx)).
		Msg("Log entry deleted")
}
