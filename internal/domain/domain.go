package domain

import (
	"context"
	"errors"
	"time"
)

// Action is one recorded user interaction type against a piece of content.
// The set below is canonical: handler validation, the storage schema and the
// statistics aggregation all reference it. Extending it is a schema decision,
// not a runtime one.
type Action string

const (
	ActionPlay     Action = "play"
	ActionPause    Action = "pause"
	ActionComplete Action = "complete"
	ActionLike     Action = "like"
	ActionShare    Action = "share"
)

// Actions lists every allowed action, in the order the statistics
// snapshot reports them.
var Actions = []Action{
	ActionPlay,
	ActionPause,
	ActionComplete,
	ActionLike,
	ActionShare,
}

func (a Action) Valid() bool {
	for _, v := range Actions {
		if a == v {
			return true
		}
	}
	return false
}

// ParseAction validates a raw string against the allowed set.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", ErrInvalidAction
	}
	return a, nil
}

var (
	ErrInvalidAction    = errors.New("action not in allowed set")
	ErrNotFound         = errors.New("log entry not found")
	ErrQueueUnavailable = errors.New("ingestion queue unavailable")
	ErrNoFieldsToUpdate = errors.New("no updatable fields provided")

	ErrCacheMiss = errors.New("cache miss")
)

// InteractionEvent is the persisted record. IDs and timestamps are assigned
// by the store; everything else is snapshotted from the request that
// produced the job.
type InteractionEvent struct {
	ID        int64     `json:"id"`
	ContentID *int64    `json:"content_id"`
	Action    Action    `json:"action"`
	SessionID *string   `json:"session_id"`
	IPAddress *string   `json:"ip_address"`
	UserAgent *string   `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IngestionJob carries everything needed to create one InteractionEvent.
// It is immutable once enqueued: ambient request metadata (session, ip,
// user agent) is captured at submission time, never re-derived by the
// worker.
type IngestionJob struct {
	ContentID *int64
	Action    Action
	SessionID *string
	IPAddress *string
	UserAgent *string
}

// EventUpdate holds the fields an administrative update may change.
// Nil fields are left untouched.
type EventUpdate struct {
	ContentID *int64
	Action    *Action
	SessionID *string
	IPAddress *string
	UserAgent *string
}

// Empty reports whether the update would change nothing.
func (u EventUpdate) Empty() bool {
	return u.ContentID == nil && u.Action == nil && u.SessionID == nil &&
		u.IPAddress == nil && u.UserAgent == nil
}

// ContentStatistics is computed fresh on each request; it is never cached,
// so it always reflects the store at query time.
type ContentStatistics struct {
	TotalInteractions int64 `json:"total_interactions"`
	Plays             int64 `json:"plays"`
	Pauses            int64 `json:"pauses"`
	Completions       int64 `json:"completions"`
	Likes             int64 `json:"likes"`
	Shares            int64 `json:"shares"`
	UniqueSessions    int64 `json:"unique_sessions"`
}

// EventRepository is the Event Store: the sole source of truth for
// interaction records. Inserts must be safe under concurrent workers.
type EventRepository interface {
	Insert(ctx context.Context, job IngestionJob) (InteractionEvent, error)
	GetByID(ctx context.Context, id int64) (InteractionEvent, error)
	Update(ctx context.Context, id int64, upd EventUpdate) (InteractionEvent, error)
	Delete(ctx context.Context, id int64) error

	// Reads; ordered by created_at DESC.
	List(ctx context.Context, limit, offset int) ([]InteractionEvent, error)
	ListByContent(ctx context.Context, contentID int64) ([]InteractionEvent, error)
	ListBySession(ctx context.Context, sessionID string) ([]InteractionEvent, error)
	ListByAction(ctx context.Context, action Action) ([]InteractionEvent, error)

	Statistics(ctx context.Context, contentID int64) (ContentStatistics, error)
}

// JobQueue accepts an IngestionJob for asynchronous processing. Enqueue
// returns once the job is durably queued; it never waits on the worker.
// Delivery is at-least-once: consumers must tolerate duplicates.
type JobQueue interface {
	Enqueue(ctx context.Context, traceID string, job IngestionJob) error
}

// NotifyStatus is the outcome of one best-effort outbound delivery.
type NotifyStatus string

const (
	NotifyDelivered NotifyStatus = "delivered"
	NotifyFailed    NotifyStatus = "failed"
	// NotifySkipped means no external collector is configured.
	NotifySkipped NotifyStatus = "skipped"
)

// Notifier forwards a copy of a persisted event to an external collector.
// A single attempt, bounded by a timeout; the error is non-nil only when
// the status is NotifyFailed and is never fatal to the caller.
type Notifier interface {
	Notify(ctx context.Context, ev InteractionEvent) (NotifyStatus, error)
}

// CacheRepository backs cross-cutting request concerns (rate limiting).
type CacheRepository interface {
	AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error)
}
