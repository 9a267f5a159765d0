package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/events"
	"github.com/spec-kit/hms-gateway/internal/realtime"
)

// ChangePublisher delivers change notifications to subscribers.
type ChangePublisher interface {
	Publish(ctx context.Context, change realtime.Change) error
}

// ChangeNotifier relays profile events to the staff change feed.
type ChangeNotifier struct {
	dispatcher events.Dispatcher
	publisher  ChangePublisher
	logger     *zap.Logger
}

// NewChangeNotifier creates the notifier.
func NewChangeNotifier(dispatcher events.Dispatcher, publisher ChangePublisher, logger *zap.Logger) *ChangeNotifier {
	return &ChangeNotifier{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *ChangeNotifier) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(n.relay, events.EventStaffProfileCreated, events.EventStaffProfileUpdated)
	n.dispatcher.Subscribe(n.audit, events.EventStaffSignedUp, events.EventStaffSignedIn)
}

func (n *ChangeNotifier) relay(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	change := realtime.Change{
		ID:       event.ID,
		Topic:    realtime.TopicStaff,
		Type:     string(event.Type),
		RecordID: event.StaffID,
		At:       event.Timestamp,
		Data:     data,
	}
	if err := n.publisher.Publish(ctx, change); err != nil {
		n.logger.Warn("relaying staff change failed",
			zap.String("staff_id", event.StaffID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (n *ChangeNotifier) audit(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("staff_id", event.StaffID), zap.Any("payload", event.Payload))
	return nil
}
