package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(TestScored, TestScoredEvent{ResultID: 1, Score: 42, Band: "moderate"})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TestScored, event.Type)
	assert.Equal(t, EventSource, event.Source)
	assert.Equal(t, EventVersion, event.Version)
	assert.False(t, event.Timestamp.IsZero())
}

func TestWatermillPublisher_GoChannelRoundTrip(t *testing.T) {
	logger := discardLogger()
	pubSub := NewGoChannelPubSub(logger)
	defer pubSub.Close()

	publisher := NewWatermillPublisher(pubSub, "portal", logger)
	assert.Equal(t, "portal.inquiry.answered", publisher.Topic(InquiryAnswered))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []*Event
	audit := NewAuditLog(pubSub, logger)
	topics := []string{publisher.Topic(InquiryAnswered), publisher.Topic(ThreadCreated)}
	require.NoError(t, audit.Start(ctx, topics, func(e *Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	}))

	PublishSafe(ctx, publisher, logger, InquiryAnswered, InquiryAnsweredEvent{InquiryID: 7, ReplyID: 9})
	PublishSafe(ctx, publisher, logger, ThreadCreated, ThreadCreatedEvent{ThreadID: 3})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	types := []string{received[0].Type, received[1].Type}
	assert.ElementsMatch(t, []string{InquiryAnswered, ThreadCreated}, types)
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(discardLogger())
	ctx := context.Background()

	PublishSafe(ctx, mock, discardLogger(), UserCreated, UserCreatedEvent{UserID: 1})
	PublishSafe(ctx, mock, discardLogger(), TestScored, TestScoredEvent{ResultID: 2})

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(TestScored), 1)

	mock.ClearEvents()
	mock.FailWith(assert.AnError)
	PublishSafe(ctx, mock, discardLogger(), UserCreated, UserCreatedEvent{UserID: 1})
	assert.Empty(t, mock.GetPublishedEvents())
}
