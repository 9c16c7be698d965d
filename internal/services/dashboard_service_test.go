package services

import (
	"testing"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Admin(t *testing.T) {
	env := newTestEnv(t)
	questions := env.questions(t)

	for _, target := range []int{5, 70, 75} {
		_, err := env.services.Test().Submit(env.ctx, env.patient, answersTotalling(t, questions, target))
		require.NoError(t, err)
	}
	inquiry := env.createInquiry(t, env.patient, "Pregunta")
	env.createInquiry(t, env.patient, "Otra")
	_, err := env.services.Inquiry().Reply(env.ctx, env.admin, inquiry.ID, &InquiryReplyRequest{Body: "Listo"})
	require.NoError(t, err)

	_, err = env.services.Dashboard().AdminDashboard(env.ctx, env.intern)
	assert.True(t, IsPermissionError(err))

	dash, err := env.services.Dashboard().AdminDashboard(env.ctx, env.admin)
	require.NoError(t, err)

	assert.Equal(t, int64(3), dash.Stats.TotalUsers)
	assert.Equal(t, int64(1), dash.Stats.UsersByRole[models.RolePatient])
	assert.Equal(t, int64(1), dash.Stats.PendingInquiries)
	assert.Equal(t, int64(1), dash.Stats.AnsweredInquiries)
	assert.Equal(t, int64(3), dash.Stats.TotalResults)

	assert.Equal(t, []repositories.BandCount{
		{Band: models.BandAdequate, Count: 1},
		{Band: models.BandMild, Count: 0},
		{Band: models.BandModerate, Count: 0},
		{Band: models.BandSignificant, Count: 2},
	}, dash.Bands)
	require.NotNil(t, dash.Forum)
}

func TestDashboardService_Intern(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < pendingPreview+2; i++ {
		env.createInquiry(t, env.patient, "Pendiente")
	}

	_, err := env.services.Dashboard().InternDashboard(env.ctx, env.patient)
	assert.True(t, IsPermissionError(err))

	dash, err := env.services.Dashboard().InternDashboard(env.ctx, env.intern)
	require.NoError(t, err)
	assert.Len(t, dash.PendingInquiries, pendingPreview)
	assert.Equal(t, int64(pendingPreview+2), dash.Stats.PendingInquiries)
	assert.Equal(t, int64(1), dash.Stats.TotalPatients)
	assert.Len(t, dash.Bands, 4)

	// Admins can open the intern view as well.
	_, err = env.services.Dashboard().InternDashboard(env.ctx, env.admin)
	require.NoError(t, err)
}
