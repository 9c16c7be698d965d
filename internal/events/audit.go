package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// AuditLog consumes every portal topic and writes one structured log line per event.
type AuditLog struct {
	subscriber message.Subscriber
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewAuditLog(subscriber message.Subscriber, logger *slog.Logger) *AuditLog {
	return &AuditLog{subscriber: subscriber, logger: logger}
}

// Start subscribes to the given topics; consumers stop when ctx is cancelled.
func (a *AuditLog) Start(ctx context.Context, topics []string, handle func(*Event)) error {
	for _, topic := range topics {
		messages, err := a.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}

		a.wg.Add(1)
		go func(topic string, messages <-chan *message.Message) {
			defer a.wg.Done()
			for msg := range messages {
				var event Event
				if err := json.Unmarshal(msg.Payload, &event); err != nil {
					a.logger.Warn("Dropping malformed event", "topic", topic, "error", err)
					msg.Ack()
					continue
				}

				a.logger.Info("Domain event",
					"topic", topic,
					"event_id", event.ID,
					"event_type", event.Type,
					"timestamp", event.Timestamp)
				if handle != nil {
					handle(&event)
				}
				msg.Ack()
			}
		}(topic, messages)
	}

	return nil
}

// Wait blocks until every consumer goroutine has exited.
func (a *AuditLog) Wait() {
	a.wg.Wait()
}
