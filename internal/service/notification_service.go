package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/result-service/internal/events"
)

// NotificationService forwards workflow events to the outbox feed.
type NotificationService struct {
	dispatcher events.Dispatcher
	outbox     events.Outbox
	logger     *zap.Logger
}

// NewNotificationService creates the service. A nil outbox drops events after logging.
func NewNotificationService(dispatcher events.Dispatcher, outbox events.Outbox, logger *zap.Logger) *NotificationService {
	if outbox == nil {
		outbox = events.NopOutbox{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		outbox:     outbox,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventResultUploaded, n.handleResultUploaded)
	n.dispatcher.Subscribe(events.EventResultStatusChanged, n.handleResultStatusChanged)
}

func (n *NotificationService) handleResultUploaded(ctx context.Context, event events.Event) error {
	n.logger.Info("ResultUploaded",
		zap.String("event_id", event.ID),
		zap.Int64("lecturer_id", event.Actor.IdentityID),
		zap.Int("count", len(event.ResultIDs)))
	return n.outbox.Push(ctx, event)
}

func (n *NotificationService) handleResultStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ResultStatusChanged",
		zap.String("event_id", event.ID),
		zap.Int64s("result_ids", event.ResultIDs),
		zap.Any("payload", event.Payload))
	return n.outbox.Push(ctx, event)
}
