package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
)

// EnsureSchema creates the content_logs table and its indexes when absent.
// The action CHECK constraint is generated from domain.Actions so the
// schema can never drift from the validation set.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	quoted := make([]string, len(domain.Actions))
	for i, a := range domain.Actions {
		quoted[i] = "'" + string(a) + "'"
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS content_logs (
			id          BIGSERIAL PRIMARY KEY,
			content_id  BIGINT,
			action      TEXT NOT NULL CHECK (action IN (%s)),
			session_id  TEXT,
			ip_address  TEXT,
			user_agent  TEXT,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_content_logs_content_id ON content_logs (content_id);
		CREATE INDEX IF NOT EXISTS idx_content_logs_action     ON content_logs (action);
		CREATE INDEX IF NOT EXISTS idx_content_logs_session_id ON content_logs (session_id);
		CREATE INDEX IF NOT EXISTS idx_content_logs_created_at ON content_logs (created_at);
	`, strings.Join(quoted, ", "))

	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure content_logs schema: %w", err)
	}
	return nil
}
