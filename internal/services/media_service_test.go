package services

import (
	"io"
	"testing"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaService_Open(t *testing.T) {
	env := newTestEnv(t)
	media := env.services.Media()
	category := env.createCategory(t)
	other := env.createUser(t, "otro", models.RolePatient)

	public, err := env.services.Resource().Create(env.ctx, env.intern, resourceRequest(category.ID, "", true), upload("publico.pdf", "public"), nil)
	require.NoError(t, err)
	private, err := env.services.Resource().Create(env.ctx, env.intern, resourceRequest(category.ID, "", false), upload("privado.pdf", "private"), nil)
	require.NoError(t, err)
	content, err := env.services.Content().Create(env.ctx, env.intern, contentRequest(env.patient.ID, ""), upload("tarea.pdf", "content"))
	require.NoError(t, err)

	orphan, err := env.files.Save(env.ctx, storage.PrefixResourceFiles, "huerfano.pdf", upload("huerfano.pdf", "x").Content, 1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		actor    *models.User
		key      string
		wantBody string
		wantErr  func(error) bool
	}{
		{name: "public resource for a patient", actor: env.patient, key: *public.FileKey, wantBody: "public"},
		{name: "private resource hidden from a patient", actor: env.patient, key: *private.FileKey, wantErr: IsNotFound},
		{name: "private resource for staff", actor: env.intern, key: *private.FileKey, wantBody: "private"},
		{name: "content for its recipient", actor: env.patient, key: *content.FileKey, wantBody: "content"},
		{name: "content for another patient", actor: other, key: *content.FileKey, wantErr: IsPermissionError},
		{name: "content for staff", actor: env.admin, key: *content.FileKey, wantBody: "content"},
		{name: "key owned by nothing", actor: env.admin, key: orphan, wantErr: IsNotFound},
		{name: "path traversal", actor: env.admin, key: "../../etc/passwd", wantErr: IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, info, err := media.Open(env.ctx, tt.actor, tt.key)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			defer rc.Close()

			body, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(body))
			assert.Equal(t, "application/pdf", info.ContentType)
		})
	}
}
