package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "portal-service"
	EventVersion = "1.0"
)

// Event types
const (
	UserCreated     = "user.created"
	InquiryAnswered = "inquiry.answered"
	TestScored      = "test.scored"
	ContentAssigned = "content.assigned"
	ThreadCreated   = "thread.created"
)

// AllEventTypes lists every topic suffix the portal publishes.
var AllEventTypes = []string{UserCreated, InquiryAnswered, TestScored, ContentAssigned, ThreadCreated}

// Event is the envelope published for every domain change.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events. Publishing is best effort: callers
// log failures and never roll back the change that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== PAYLOADS =====

type UserCreatedEvent struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	// CreatedBy is zero for self-service and bootstrap accounts.
	CreatedBy uint `json:"created_by,omitempty"`
}

type InquiryAnsweredEvent struct {
	InquiryID  uint `json:"inquiry_id"`
	ReplyID    uint `json:"reply_id"`
	UserID     uint `json:"user_id"`
	AnsweredBy uint `json:"answered_by"`
}

type TestScoredEvent struct {
	ResultID  uint   `json:"result_id"`
	PatientID uint   `json:"patient_id"`
	Score     int    `json:"score"`
	Band      string `json:"band"`
}

type ContentAssignedEvent struct {
	ContentID uint   `json:"content_id"`
	PatientID uint   `json:"patient_id"`
	AuthorID  uint   `json:"author_id"`
	Kind      string `json:"kind"`
}

type ThreadCreatedEvent struct {
	ThreadID   uint `json:"thread_id"`
	CategoryID uint `json:"category_id"`
	AuthorID   uint `json:"author_id"`
}
