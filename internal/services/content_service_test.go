package services

import (
	"testing"

	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentRequest(patientID uint, url string) *ContentRequest {
	return &ContentRequest{
		PatientID: patientID,
		Title:     "Registro de pensamientos",
		Kind:      models.ContentExercise,
		URL:       url,
	}
}

func TestContentService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Content()

	t.Run("assigns to a patient and publishes", func(t *testing.T) {
		content, err := svc.Create(env.ctx, env.intern, contentRequest(env.patient.ID, ""), upload("registro.pdf", "pdf"))
		require.NoError(t, err)
		assert.Equal(t, env.intern.ID, content.AuthorID)
		require.NotNil(t, content.FileKey)
		assert.Contains(t, *content.FileKey, storage.PrefixContent+"/")

		published := env.publisher.EventsOfType(events.ContentAssigned)
		require.Len(t, published, 1)
		assert.Equal(t, env.patient.ID, published[0].Data.(events.ContentAssignedEvent).PatientID)
	})

	t.Run("needs a link or a file", func(t *testing.T) {
		_, err := svc.Create(env.ctx, env.intern, contentRequest(env.patient.ID, ""), nil)
		var ve ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "link_or_file", ve[0].Rule)
	})

	t.Run("recipient must be a patient", func(t *testing.T) {
		_, err := svc.Create(env.ctx, env.admin, contentRequest(env.intern.ID, "https://example.org/x"), nil)
		var ve ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "patient_id", ve[0].Field)

		_, err = svc.Create(env.ctx, env.admin, contentRequest(9999, "https://example.org/x"), nil)
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "patient_id", ve[0].Field)
	})

	t.Run("patients cannot author", func(t *testing.T) {
		_, err := svc.Create(env.ctx, env.patient, contentRequest(env.patient.ID, "https://example.org/x"), nil)
		assert.True(t, IsPermissionError(err))
	})
}

func TestContentService_VisibleOnlyToRecipientAndStaff(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Content()
	other := env.createUser(t, "otro", models.RolePatient)

	mine, err := svc.Create(env.ctx, env.intern, contentRequest(env.patient.ID, "https://example.org/mio"), nil)
	require.NoError(t, err)
	theirs, err := svc.Create(env.ctx, env.intern, contentRequest(other.ID, "https://example.org/suyo"), nil)
	require.NoError(t, err)

	_, err = svc.GetByID(env.ctx, env.patient, theirs.ID)
	assert.True(t, IsPermissionError(err))

	got, err := svc.GetByID(env.ctx, env.patient, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	// The patient filter is ignored for patients.
	list, err := svc.List(env.ctx, env.patient, other.ID, 1)
	require.NoError(t, err)
	require.Len(t, list.Contents, 1)
	assert.Equal(t, mine.ID, list.Contents[0].ID)

	all, err := svc.List(env.ctx, env.admin, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	narrowed, err := svc.List(env.ctx, env.intern, other.ID, 1)
	require.NoError(t, err)
	require.Len(t, narrowed.Contents, 1)
	assert.Equal(t, theirs.ID, narrowed.Contents[0].ID)
}

func TestContentService_Delete(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.Content()
	colleague := env.createUser(t, "pasante2", models.RoleIntern)

	content, err := svc.Create(env.ctx, env.intern, contentRequest(env.patient.ID, ""), upload("audio.mp3", "mp3"))
	require.NoError(t, err)

	assert.True(t, IsPermissionError(svc.Delete(env.ctx, colleague, content.ID)))
	assert.True(t, IsPermissionError(svc.Delete(env.ctx, env.patient, content.ID)))

	require.NoError(t, svc.Delete(env.ctx, env.admin, content.ID))
	_, _, err = env.files.Open(env.ctx, *content.FileKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(env.ctx, env.admin, content.ID), ErrContentNotFound)
}
