package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeAcker struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

type stubNotifier struct {
	status domain.NotifyStatus
	err    error
	calls  int
}

func (s *stubNotifier) Notify(ctx context.Context, ev domain.InteractionEvent) (domain.NotifyStatus, error) {
	s.calls++
	return s.status, s.err
}

func delivery(acker *fakeAcker, body []byte) amqp.Delivery {
	return amqp.Delivery{Acknowledger: acker, Body: body}
}

func TestHandleDelivery_AckAfterPersist_NotifyFailureIsNonFatal(t *testing.T) {
	repo := new(MockRepo)
	notif := &stubNotifier{status: domain.NotifyFailed, err: errors.New("connection refused")}
	c := &Consumer{repo: repo, notifier: notif}

	repo.On("Insert", mock.Anything, mock.Anything).
		Return(domain.InteractionEvent{ID: 5, Action: domain.ActionPlay}, nil).Once()

	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), delivery(acker, envelopeBody(t, payloadPlay())), loggerStub())

	assert.True(t, acker.acked, "job must be acknowledged after a successful store write")
	assert.False(t, acker.nacked)
	assert.Equal(t, 1, notif.calls, "notification attempted exactly once")
	repo.AssertExpectations(t)
}

func TestHandleDelivery_PersistFailureNacksWithRequeue(t *testing.T) {
	repo := new(MockRepo)
	notif := &stubNotifier{status: domain.NotifyDelivered}
	c := &Consumer{repo: repo, notifier: notif}

	repo.On("Insert", mock.Anything, mock.Anything).
		Return(domain.InteractionEvent{}, errors.New("db down")).Once()

	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), delivery(acker, envelopeBody(t, payloadPlay())), loggerStub())

	require.True(t, acker.nacked, "unpersisted job must not be acknowledged")
	assert.True(t, acker.requeued, "broker must redeliver after a persistence failure")
	assert.False(t, acker.acked)
	assert.Zero(t, notif.calls, "no notification for an unpersisted event")
}

func TestHandleDelivery_PoisonMessageAckedWithoutNotify(t *testing.T) {
	repo := new(MockRepo)
	notif := &stubNotifier{status: domain.NotifyDelivered}
	c := &Consumer{repo: repo, notifier: notif}

	acker := &fakeAcker{}
	c.handleDelivery(context.Background(), delivery(acker, []byte("garbage")), loggerStub())

	assert.True(t, acker.acked, "poison messages are dropped, not redelivered")
	assert.Zero(t, notif.calls)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}
