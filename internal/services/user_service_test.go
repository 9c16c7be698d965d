package services

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRequest(username string, role models.Role) *CreateUserRequest {
	return &CreateUserRequest{
		Username:        username,
		Email:           username + "@clinic.test",
		FirstName:       "Ana",
		LastName:        "Pérez",
		Password:        "password-123",
		PasswordConfirm: "password-123",
		Role:            role,
		Phone:           "+51 999 888",
	}
}

func countProfiles(t *testing.T, env *testEnv, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&models.Profile{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestUserService_EveryUserHasExactlyOneProfile(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.User()

	user, err := svc.Create(env.ctx, env.admin, newUserRequest("maria", models.RolePatient))
	require.NoError(t, err)
	assert.Equal(t, int64(1), countProfiles(t, env, user.ID))

	_, err = svc.Update(env.ctx, env.admin, user.ID, &UpdateUserRequest{
		Username: "maria",
		Email:    "maria@clinic.test",
		Role:     models.RoleIntern,
		IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countProfiles(t, env, user.ID))

	var users, profiles int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, env.db.Model(&models.Profile{}).Count(&profiles).Error)
	assert.Equal(t, users, profiles)

	reloaded, err := svc.GetByID(env.ctx, env.admin, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleIntern, reloaded.Role())
}

func TestUserService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.User()

	t.Run("publishes user created", func(t *testing.T) {
		env.publisher.ClearEvents()
		user, err := svc.Create(env.ctx, env.admin, newUserRequest("lucia", models.RolePatient))
		require.NoError(t, err)

		published := env.publisher.EventsOfType(events.UserCreated)
		require.Len(t, published, 1)
		payload, ok := published[0].Data.(events.UserCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, user.ID, payload.UserID)
		assert.Equal(t, env.admin.ID, payload.CreatedBy)
	})

	t.Run("duplicate username and email are field errors", func(t *testing.T) {
		req := newUserRequest("paciente", models.RolePatient)
		_, err := svc.Create(env.ctx, env.admin, req)

		var ve ValidationErrors
		require.ErrorAs(t, err, &ve)
		fields := map[string]bool{}
		for _, e := range ve {
			fields[e.Field] = true
		}
		assert.True(t, fields["username"])
		assert.True(t, fields["email"])
	})

	t.Run("interns cannot create accounts", func(t *testing.T) {
		_, err := svc.Create(env.ctx, env.intern, newUserRequest("nuevo", models.RolePatient))
		assert.True(t, IsPermissionError(err))
	})

	t.Run("password confirmation must match", func(t *testing.T) {
		req := newUserRequest("otro", models.RolePatient)
		req.PasswordConfirm = "different-123"
		_, err := svc.Create(env.ctx, env.admin, req)
		assert.True(t, IsValidationError(err))
	})
}

func TestUserService_AdminSelfProtection(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.User()

	err := svc.Delete(env.ctx, env.admin, env.admin.ID)
	var rule *BusinessRuleError
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, "self_delete", rule.Rule)

	_, err = svc.Update(env.ctx, env.admin, env.admin.ID, &UpdateUserRequest{
		Username: env.admin.Username,
		Email:    env.admin.Email,
		Role:     models.RolePatient,
		IsActive: true,
	})
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, "self_demotion", rule.Rule)
}

func TestUserService_DeleteCascadesOwnedRows(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.Inquiry().Create(env.ctx, env.patient, &InquiryRequest{
		Kind:    models.InquiryQuestion,
		Subject: "Horarios",
		Message: "¿Atienden los sábados?",
	})
	require.NoError(t, err)

	require.NoError(t, env.services.User().Delete(env.ctx, env.admin, env.patient.ID))

	var inquiries int64
	require.NoError(t, env.db.Model(&models.Inquiry{}).Where("user_id = ?", env.patient.ID).Count(&inquiries).Error)
	assert.Zero(t, inquiries)
	assert.Zero(t, countProfiles(t, env, env.patient.ID))

	_, err = env.services.User().GetByID(env.ctx, env.admin, env.patient.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_DeleteDropsLibraryEntriesAndFiles(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	env := newTestEnvWithRedis(t, client)
	category := env.createCategory(t)
	resources := env.services.Resource()

	resource, err := resources.Create(env.ctx, env.intern, resourceRequest(category.ID, "", true), upload("guia.pdf", "%PDF-1.4"), upload("portada.png", "png"))
	require.NoError(t, err)
	content, err := env.services.Content().Create(env.ctx, env.intern, &ContentRequest{
		PatientID: env.patient.ID,
		Title:     "Registro de emociones",
		Kind:      models.ContentExercise,
	}, upload("registro.pdf", "%PDF-1.4"))
	require.NoError(t, err)

	// Warm the shared public listing.
	before, err := resources.List(env.ctx, env.patient, &ResourceListRequest{})
	require.NoError(t, err)
	require.Len(t, before.Resources, 1)

	require.NoError(t, env.services.User().Delete(env.ctx, env.admin, env.intern.ID))

	after, err := resources.List(env.ctx, env.patient, &ResourceListRequest{})
	require.NoError(t, err)
	assert.Empty(t, after.Resources)
	assert.Zero(t, after.Total)

	for _, key := range []*string{resource.FileKey, resource.CoverKey, content.FileKey} {
		require.NotNil(t, key)
		_, _, err := env.files.Open(env.ctx, *key)
		assert.ErrorIs(t, err, storage.ErrNotFound, *key)
	}
}

func TestUserService_Visibility(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.User()

	_, err := svc.GetByID(env.ctx, env.patient, env.intern.ID)
	assert.True(t, IsPermissionError(err))

	self, err := svc.GetByID(env.ctx, env.patient, env.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, env.patient.ID, self.ID)

	patients, err := svc.ListPatients(env.ctx, env.intern)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, env.patient.ID, patients[0].ID)

	_, err = svc.ListPatients(env.ctx, env.patient)
	assert.True(t, IsPermissionError(err))
}

func TestUserService_Profile(t *testing.T) {
	env := newTestEnv(t)
	svc := env.services.User()

	updated, err := svc.UpdateProfile(env.ctx, env.patient, &ProfileUpdateRequest{
		FirstName: "Paula",
		LastName:  "Rojas",
		Email:     "paula@clinic.test",
		Phone:     "987654321",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paula Rojas", updated.FullName())

	_, err = svc.UpdateProfile(env.ctx, env.patient, &ProfileUpdateRequest{Email: env.intern.Email})
	assert.True(t, IsValidationError(err))

	profile, err := svc.GetProfile(env.ctx, env.patient)
	require.NoError(t, err)
	assert.Equal(t, "paula@clinic.test", profile.User.Email)
	assert.Zero(t, profile.Stats.TotalInquiries)
}
