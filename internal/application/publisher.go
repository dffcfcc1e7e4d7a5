package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
)

// EventPublisher delivers domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.Event) error
}

// publishCommitted is called once the transaction has committed. The change is durable
// at this point, so a failure is reported as a messaging error alongside the result.
func publishCommitted(ctx context.Context, pub EventPublisher, logger *logrus.Logger, events []event.Event) error {
	if pub == nil || len(events) == 0 {
		return nil
	}
	if err := pub.Publish(ctx, events...); err != nil {
		if logger != nil {
			fields := logrus.Fields{"event_type": events[0].EventType(), "aggregate_id": events[0].AggregateID()}
			logger.WithError(err).WithFields(fields).Error("publish after commit failed")
		}
		return errs.Messaging("publish events", err)
	}
	return nil
}
