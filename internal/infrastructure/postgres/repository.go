package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements domain.EventRepository against a single
// content_logs table. Every insert is an independent row with a
// store-assigned id, so concurrent workers need no coordination.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping reports store connectivity (health endpoint).
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const eventColumns = "id, content_id, action, session_id, ip_address, user_agent, created_at, updated_at"

func scanEvent(row pgx.Row) (domain.InteractionEvent, error) {
	var ev domain.InteractionEvent
	var action string
	err := row.Scan(
		&ev.ID, &ev.ContentID, &action, &ev.SessionID,
		&ev.IPAddress, &ev.UserAgent, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return domain.InteractionEvent{}, err
	}
	ev.Action = domain.Action(action)
	return ev, nil
}

func (r *Repository) Insert(ctx context.Context, job domain.IngestionJob) (domain.InteractionEvent, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO content_logs (content_id, action, session_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+eventColumns+`
	`, job.ContentID, string(job.Action), job.SessionID, job.IPAddress, job.UserAgent)

	ev, err := scanEvent(row)
	if err != nil {
		return domain.InteractionEvent{}, fmt.Errorf("insert content log: %w", err)
	}
	return ev, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.InteractionEvent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM content_logs
		WHERE id = $1
	`, id)

	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InteractionEvent{}, domain.ErrNotFound
		}
		return domain.InteractionEvent{}, err
	}
	return ev, nil
}

func (r *Repository) Update(ctx context.Context, id int64, upd domain.EventUpdate) (domain.InteractionEvent, error) {
	if upd.Empty() {
		return domain.InteractionEvent{}, domain.ErrNoFieldsToUpdate
	}
	if upd.Action != nil && !upd.Action.Valid() {
		return domain.InteractionEvent{}, domain.ErrInvalidAction
	}

	set := []string{"updated_at = NOW()"}
	args := []any{id}
	argN := 2

	add := func(col string, v any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, v)
		argN++
	}

	if upd.ContentID != nil {
		add("content_id", *upd.ContentID)
	}
	if upd.Action != nil {
		add("action", string(*upd.Action))
	}
	if upd.SessionID != nil {
		add("session_id", *upd.SessionID)
	}
	if upd.IPAddress != nil {
		add("ip_address", *upd.IPAddress)
	}
	if upd.UserAgent != nil {
		add("user_agent", *upd.UserAgent)
	}

	q := fmt.Sprintf(`
		UPDATE content_logs
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(set, ", "), eventColumns)

	ev, err := scanEvent(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InteractionEvent{}, domain.ErrNotFound
		}
		return domain.InteractionEvent{}, fmt.Errorf("update content log: %w", err)
	}
	return ev, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM content_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
