package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pandapunten/apiserver/internal/mq"
	"github.com/pandapunten/apiserver/types"
	"github.com/sirupsen/logrus"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher is the publishing half of mq.Backend.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// EventPublisher turns user mutations into broker messages. Failures are
// logged; they never fail the mutation that triggered them.
type EventPublisher struct {
	pub     Publisher
	channel string
	log     logrus.FieldLogger
	timeout time.Duration
}

func NewEventPublisher(pub Publisher, channel string, log logrus.FieldLogger) *EventPublisher {
	return &EventPublisher{
		pub:     pub,
		channel: channel,
		log:     log,
		timeout: defaultPublishTimeout,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, eventType string, user types.User, now time.Time) {
	event := types.UserEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Name:       user.Name,
		LastReset:  user.LastReset,
		OccurredAt: now,
	}

	entry := p.log.WithFields(logrus.Fields{"event_id": event.ID, "type": eventType})

	data, err := json.Marshal(event)
	if err != nil {
		entry.WithError(err).Error("failed to encode user event")
		return
	}

	// Detached from request cancellation, bounded by p.timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	attrs := map[string]string{
		"type":             eventType,
		mq.AttrContentType: "application/json",
	}
	if _, err := p.pub.Publish(ctx, p.channel, data, attrs); err != nil {
		entry.WithError(err).Warn("failed to publish user event")
		return
	}
	entry.Debug("user event published")
}
