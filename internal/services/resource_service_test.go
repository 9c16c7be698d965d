package services

import (
	"io"
	"testing"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createCategory(t *testing.T) *models.ResourceCategory {
	t.Helper()
	category, err := e.services.Resource().CreateCategory(e.ctx, e.admin, &ResourceCategoryRequest{Name: "Ansiedad"})
	require.NoError(t, err)
	return category
}

func resourceRequest(categoryID uint, url string, public bool) *ResourceRequest {
	return &ResourceRequest{
		Title:       "Respiración diafragmática",
		Description: "Ejercicio guiado de cinco minutos.",
		Kind:        models.ResourceExercise,
		CategoryID:  categoryID,
		URL:         url,
		IsPublic:    public,
	}
}

func readStored(t *testing.T, env *testEnv, key *string) string {
	t.Helper()
	require.NotNil(t, key)
	rc, _, err := env.files.Open(env.ctx, *key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(body)
}

func TestResourceService_LinkOrFile(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t)

	tests := []struct {
		name    string
		url     string
		file    *FileUpload
		wantErr bool
	}{
		{name: "neither link nor file", wantErr: true},
		{name: "blank link", url: "   ", wantErr: true},
		{name: "link only", url: "https://example.org/respirar"},
		{name: "file only", file: upload("guia.pdf", "%PDF-1.4")},
		{name: "link and file", url: "https://example.org/respirar", file: upload("guia.pdf", "%PDF-1.4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resource, err := env.services.Resource().Create(env.ctx, env.intern, resourceRequest(category.ID, tt.url, true), tt.file, nil)
			if tt.wantErr {
				var ve ValidationErrors
				require.ErrorAs(t, err, &ve)
				require.Len(t, ve, 1)
				assert.Equal(t, "url", ve[0].Field)
				assert.Equal(t, "link_or_file", ve[0].Rule)
				return
			}
			require.NoError(t, err)
			assert.True(t, resource.HasLink() || resource.HasFile())
			if tt.file != nil {
				assert.Equal(t, "%PDF-1.4", readStored(t, env, resource.FileKey))
			}
		})
	}
}

func TestResourceService_RejectsOversizedUpload(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t)

	big := upload("video.mp4", "x")
	big.Size = 2 << 20
	_, err := env.services.Resource().Create(env.ctx, env.admin, resourceRequest(category.ID, "", true), big, nil)

	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	rules := map[string]string{}
	for _, e := range ve {
		rules[e.Field] = e.Rule
	}
	assert.Equal(t, "max_size", rules["file"])
}

func TestResourceService_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.Resource().Create(env.ctx, env.admin, resourceRequest(999, "https://example.org", true), nil, nil)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "category_id", ve[0].Field)
}

func TestResourceService_EditKeepsExistingFile(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t)
	svc := env.services.Resource()

	created, err := svc.Create(env.ctx, env.intern, resourceRequest(category.ID, "", true), upload("hoja.pdf", "contenido"), nil)
	require.NoError(t, err)

	req := resourceRequest(category.ID, "", false)
	req.Title = "Respiración (versión 2)"
	updated, err := svc.Update(env.ctx, env.intern, created.ID, req, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, created.FileKey, updated.FileKey)
	assert.Equal(t, "contenido", readStored(t, env, updated.FileKey))

	// Dropping the only file without a link leaves the entry empty.
	req.RemoveFile = true
	_, err = svc.Update(env.ctx, env.intern, created.ID, req, nil, nil)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "link_or_file", ve[0].Rule)

	// Replacing the file discards the previous one.
	req.RemoveFile = false
	replaced, err := svc.Update(env.ctx, env.intern, created.ID, req, upload("hoja2.pdf", "nuevo"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, *created.FileKey, *replaced.FileKey)
	assert.Equal(t, "nuevo", readStored(t, env, replaced.FileKey))

	_, _, err = env.files.Open(env.ctx, *created.FileKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResourceService_Permissions(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t)
	svc := env.services.Resource()

	byAdmin, err := svc.Create(env.ctx, env.admin, resourceRequest(category.ID, "https://example.org/a", true), nil, nil)
	require.NoError(t, err)

	t.Run("patients cannot create", func(t *testing.T) {
		_, err := svc.Create(env.ctx, env.patient, resourceRequest(category.ID, "https://example.org/b", true), nil, nil)
		assert.True(t, IsPermissionError(err))
	})

	t.Run("interns cannot edit entries they did not author", func(t *testing.T) {
		_, err := svc.Update(env.ctx, env.intern, byAdmin.ID, resourceRequest(category.ID, "https://example.org/c", true), nil, nil)
		assert.True(t, IsPermissionError(err))

		_, err = svc.Delete(env.ctx, env.intern, byAdmin.ID)
		assert.True(t, IsPermissionError(err))

		view, err := svc.GetByID(env.ctx, env.intern, byAdmin.ID)
		require.NoError(t, err)
		assert.False(t, view.CanEdit)
	})

	t.Run("admin manages entries authored by interns", func(t *testing.T) {
		own, err := svc.Create(env.ctx, env.intern, resourceRequest(category.ID, "https://example.org/d", true), nil, nil)
		require.NoError(t, err)

		managed, err := svc.ListManaged(env.ctx, env.intern, nil)
		require.NoError(t, err)
		require.Len(t, managed.Resources, 1)
		assert.Equal(t, own.ID, managed.Resources[0].ID)

		_, err = svc.Delete(env.ctx, env.admin, own.ID)
		require.NoError(t, err)

		_, err = svc.GetByID(env.ctx, env.admin, own.ID)
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})

	t.Run("only admin manages categories", func(t *testing.T) {
		_, err := svc.CreateCategory(env.ctx, env.intern, &ResourceCategoryRequest{Name: "Duelo"})
		assert.True(t, IsPermissionError(err))
	})
}

func TestResourceService_PrivateEntriesHiddenFromPatients(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t)
	svc := env.services.Resource()

	public, err := svc.Create(env.ctx, env.intern, resourceRequest(category.ID, "https://example.org/pub", true), nil, nil)
	require.NoError(t, err)
	private, err := svc.Create(env.ctx, env.intern, resourceRequest(category.ID, "https://example.org/priv", false), nil, nil)
	require.NoError(t, err)

	_, err = svc.GetByID(env.ctx, env.patient, private.ID)
	assert.ErrorIs(t, err, ErrResourceNotFound)

	list, err := svc.List(env.ctx, env.patient, &ResourceListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Resources, 1)
	assert.Equal(t, public.ID, list.Resources[0].ID)
	assert.Equal(t, int64(1), list.Total)

	staff, err := svc.List(env.ctx, env.intern, &ResourceListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), staff.Total)
}

func TestResourceService_DeleteCategoryRemovesFiles(t *testing.T) {
	env := newTestEnv(t)
	category := env.createCategory(t)
	svc := env.services.Resource()

	created, err := svc.Create(env.ctx, env.admin, resourceRequest(category.ID, "", true), upload("a.pdf", "x"), upload("cover.png", "png"))
	require.NoError(t, err)
	require.NotNil(t, created.CoverKey)

	require.NoError(t, svc.DeleteCategory(env.ctx, env.admin, category.ID))

	_, err = svc.GetByID(env.ctx, env.admin, created.ID)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	_, _, err = env.files.Open(env.ctx, *created.FileKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, _, err = env.files.Open(env.ctx, *created.CoverKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteCategory(env.ctx, env.admin, category.ID), ErrCategoryNotFound)
}
