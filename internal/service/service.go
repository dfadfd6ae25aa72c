package service

import (
	"context"

	"github.com/baechuer/cityevents/services/analytics-service/internal/audit"
	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
)

// AnalyticsService is the application layer over the Event Store and the
// Ingestion Queue. Writes go through the queue only; reads go straight to
// the store.
type AnalyticsService struct {
	repo  domain.EventRepository
	queue domain.JobQueue
	audit *audit.Logger
}

func NewAnalyticsService(repo domain.EventRepository, queue domain.JobQueue, auditLog *audit.Logger) *AnalyticsService {
	return &AnalyticsService{repo: repo, queue: queue, audit: auditLog}
}

// Ingest validates the action and enqueues the job. It returns as soon as
// the job is durably queued; the caller learns acceptance, never the
// persistence or notification outcome. Invalid actions are rejected here
// and never reach the queue.
func (s *AnalyticsService) Ingest(ctx context.Context, traceID string, job domain.IngestionJob) error {
	if !job.Action.Valid() {
		return domain.ErrInvalidAction
	}
	return s.queue.Enqueue(ctx, traceID, job)
}

// Reads
func (s *AnalyticsService) GetLog(ctx context.Context, id int64) (domain.InteractionEvent, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AnalyticsService) ListLogs(ctx context.Context, limit, offset int) ([]domain.InteractionEvent, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *AnalyticsService) ContentLogs(ctx context.Context, contentID int64) ([]domain.InteractionEvent, error) {
	return s.repo.ListByContent(ctx, contentID)
}

func (s *AnalyticsService) SessionLogs(ctx context.Context, sessionID string) ([]domain.InteractionEvent, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

func (s *AnalyticsService) LogsByAction(ctx context.Context, action domain.Action) ([]domain.InteractionEvent, error) {
	if !action.Valid() {
		return nil, domain.ErrInvalidAction
	}
	return s.repo.ListByAction(ctx, action)
}

// ContentStatistics aggregates the full history for one content id.
// An unknown content id yields a zeroed snapshot, not an error.
func (s *AnalyticsService) ContentStatistics(ctx context.Context, contentID int64) (domain.ContentStatistics, error) {
	return s.repo.Statistics(ctx, contentID)
}

// Administrative mutations. These bypass the queue intentionally: they
// correct existing records rather than ingest new facts.

func (s *AnalyticsService) UpdateLog(ctx context.Context, actorID string, id int64, upd domain.EventUpdate) (domain.InteractionEvent, error) {
	if upd.Empty() {
		return domain.InteractionEvent{}, domain.ErrNoFieldsToUpdate
	}
	if upd.Action != nil && !upd.Action.Valid() {
		return domain.InteractionEvent{}, domain.ErrInvalidAction
	}

	ev, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return domain.InteractionEvent{}, err
	}
	if s.audit != nil {
		s.audit.LogUpdated(ctx, id, actorID, changedFields(upd))
	}
	return ev, nil
}

func (s *AnalyticsService) DeleteLog(ctx context.Context, actorID string, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.LogDeleted(ctx, id, actorID)
	}
	return nil
}

func changedFields(upd domain.EventUpdate) []string {
	var out []string
	if upd.ContentID != nil {
		out = append(out, "content_id")
	}
	if upd.Action != nil {
		out = append(out, "action")
	}
	if upd.SessionID != nil {
		out = append(out, "session_id")
	}
	if upd.IPAddress != nil {
		out = append(out, "ip_address")
	}
	if upd.UserAgent != nil {
		out = append(out, "user_agent")
	}
	return out
}
