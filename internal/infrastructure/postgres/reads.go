package postgres

import (
	"context"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return 15
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func (r *Repository) queryEvents(ctx context.Context, q string, args ...any) ([]domain.InteractionEvent, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InteractionEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List is the administrative paged listing over all logs, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]domain.InteractionEvent, error) {
	if offset < 0 {
		offset = 0
	}
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM content_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, clampLimit(limit), offset)
}

// ListByContent returns every log for a content id, newest first, unbounded.
func (r *Repository) ListByContent(ctx context.Context, contentID int64) ([]domain.InteractionEvent, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM content_logs
		WHERE content_id = $1
		ORDER BY created_at DESC, id DESC
	`, contentID)
}

// ListBySession returns every log for a session id, newest first, unbounded.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]domain.InteractionEvent, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM content_logs
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
	`, sessionID)
}

func (r *Repository) ListByAction(ctx context.Context, action domain.Action) ([]domain.InteractionEvent, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM content_logs
		WHERE action = $1
		ORDER BY created_at DESC, id DESC
	`, string(action))
}
