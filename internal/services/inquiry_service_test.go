package services

import (
	"testing"

	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createInquiry(t *testing.T, sender *models.User, subject string) *models.Inquiry {
	t.Helper()
	inquiry, err := e.services.Inquiry().Create(e.ctx, sender, &InquiryRequest{
		Kind:    models.InquiryQuestion,
		Subject: subject,
		Message: "¿Cuál es el horario de atención?",
	})
	require.NoError(t, err)
	return inquiry
}

func TestInquiryService_ReplyMarksAnswered(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Inquiry()

	inquiry := env.createInquiry(t, env.patient, "Horario")
	assert.False(t, inquiry.Answered)

	reply, err := svc.Reply(env.ctx, env.intern, inquiry.ID, &InquiryReplyRequest{Body: "  De lunes a viernes, 9 a 18 h.  "})
	require.NoError(t, err)
	assert.NotZero(t, reply.ID)

	stored, err := svc.GetByID(env.ctx, env.patient, inquiry.ID)
	require.NoError(t, err)
	assert.True(t, stored.Answered)
	assert.True(t, stored.Read)
	assert.Equal(t, "De lunes a viernes, 9 a 18 h.", stored.LatestReply)
	assert.Equal(t, 1, stored.ReplyCount)

	count, err := env.repo.Inquiry().CountReplies(env.ctx, nil, inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	published := env.publisher.EventsOfType(events.InquiryAnswered)
	require.Len(t, published, 1)
	payload := published[0].Data.(events.InquiryAnsweredEvent)
	assert.Equal(t, env.patient.ID, payload.UserID)
	assert.Equal(t, env.intern.ID, payload.AnsweredBy)
}

func TestInquiryService_ReplyRules(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Inquiry()
	inquiry := env.createInquiry(t, env.patient, "Costos")

	t.Run("patients cannot reply", func(t *testing.T) {
		_, err := svc.Reply(env.ctx, env.patient, inquiry.ID, &InquiryReplyRequest{Body: "hola"})
		assert.True(t, IsPermissionError(err))
	})

	t.Run("blank body", func(t *testing.T) {
		_, err := svc.Reply(env.ctx, env.admin, inquiry.ID, &InquiryReplyRequest{Body: "   "})
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown inquiry", func(t *testing.T) {
		_, err := svc.Reply(env.ctx, env.admin, 9999, &InquiryReplyRequest{Body: "hola"})
		assert.ErrorIs(t, err, ErrInquiryNotFound)
	})

	stored, err := svc.GetByID(env.ctx, env.admin, inquiry.ID)
	require.NoError(t, err)
	assert.False(t, stored.Answered)
	assert.Empty(t, env.publisher.EventsOfType(events.InquiryAnswered))
}

func TestInquiryService_ListScoping(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Inquiry()
	other := env.createUser(t, "otro", models.RolePatient)

	mine := env.createInquiry(t, env.patient, "Mía")
	theirs := env.createInquiry(t, other, "Suya")

	_, err := svc.Reply(env.ctx, env.admin, theirs.ID, &InquiryReplyRequest{Body: "Respondida"})
	require.NoError(t, err)

	own, err := svc.List(env.ctx, env.patient, 1, nil)
	require.NoError(t, err)
	require.Len(t, own.Inquiries, 1)
	assert.Equal(t, mine.ID, own.Inquiries[0].ID)

	all, err := svc.List(env.ctx, env.intern, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	pending := false
	unanswered, err := svc.List(env.ctx, env.intern, 1, &pending)
	require.NoError(t, err)
	require.Len(t, unanswered.Inquiries, 1)
	assert.Equal(t, mine.ID, unanswered.Inquiries[0].ID)

	_, err = svc.GetByID(env.ctx, env.patient, theirs.ID)
	assert.True(t, IsPermissionError(err))
}

func TestInquiryService_MarkRead(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Inquiry()
	inquiry := env.createInquiry(t, env.patient, "Lectura")

	assert.True(t, IsPermissionError(svc.MarkRead(env.ctx, env.patient, inquiry.ID)))
	require.NoError(t, svc.MarkRead(env.ctx, env.intern, inquiry.ID))
	assert.ErrorIs(t, svc.MarkRead(env.ctx, env.intern, 9999), ErrInquiryNotFound)

	stored, err := svc.GetByID(env.ctx, env.intern, inquiry.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)
	assert.False(t, stored.Answered)
}
