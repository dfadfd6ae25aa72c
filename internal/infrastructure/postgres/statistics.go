package postgres

import (
	"context"
	"fmt"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
)

// Statistics aggregates the full history for one content id in a single
// scan. COUNT over an empty set is zero, so "no data" is a valid snapshot,
// never an error. COUNT(DISTINCT session_id) ignores NULL sessions.
func (r *Repository) Statistics(ctx context.Context, contentID int64) (domain.ContentStatistics, error) {
	var s domain.ContentStatistics
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE action = $2),
			COUNT(*) FILTER (WHERE action = $3),
			COUNT(*) FILTER (WHERE action = $4),
			COUNT(*) FILTER (WHERE action = $5),
			COUNT(*) FILTER (WHERE action = $6),
			COUNT(DISTINCT session_id)
		FROM content_logs
		WHERE content_id = $1
	`, contentID,
		string(domain.ActionPlay),
		string(domain.ActionPause),
		string(domain.ActionComplete),
		string(domain.ActionLike),
		string(domain.ActionShare),
	).Scan(
		&s.TotalInteractions,
		&s.Plays,
		&s.Pauses,
		&s.Completions,
		&s.Likes,
		&s.Shares,
		&s.UniqueSessions,
	)
	if err != nil {
		return domain.ContentStatistics{}, fmt.Errorf("aggregate content statistics: %w", err)
	}
	return s, nil
}
