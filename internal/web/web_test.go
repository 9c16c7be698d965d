package web

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-portal/portal-service/internal/models"
)

func TestTemplates_Parse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{
		"login.html", "index.html", "error.html", "profile.html",
		"users.html", "user_form.html", "categories.html",
		"resources.html", "resource_detail.html", "resources_manage.html", "resource_form.html",
		"inquiries.html", "inquiry_form.html", "inquiry_detail.html",
		"forum.html", "thread.html", "thread_form.html",
		"test_form.html", "test_result.html", "test_results.html",
		"contents.html", "content_form.html", "content_detail.html",
		"admin_dashboard.html", "intern_dashboard.html",
	} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestTemplates_Render(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	patient := &models.User{Username: "ana", FirstName: "Ana", Profile: models.Profile{Role: models.RolePatient}}

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "index.html", map[string]any{
		"Title":       "Inicio",
		"User":        patient,
		"PatientView": true,
	}))
	assert.Contains(t, buf.String(), "Hola, Ana")
	assert.Contains(t, buf.String(), `href="/test"`)
	assert.NotContains(t, buf.String(), "Ver como paciente")

	buf.Reset()
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "error.html", map[string]any{
		"Title":   "Not Found",
		"Status":  404,
		"Message": "<b>nope</b>",
	}))
	assert.Contains(t, buf.String(), "&lt;b&gt;nope&lt;/b&gt;")
}

func TestFuncs(t *testing.T) {
	assert.Equal(t, 3, pageCount(41, 20))
	assert.Equal(t, 1, pageCount(0, 20))
	assert.Equal(t, []int{1, 2, 3}, seq(3))

	tmpl, err := Templates()
	require.NoError(t, err)

	key := "personalized/abc.pdf"
	when := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	_, err = tmpl.New("helpers").Parse(`{{media .Key}}|{{date .When}}|{{label .Kind}}|{{band .Band}}|{{author .User true}}`)
	require.NoError(t, err)
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "helpers", map[string]any{
		"Key":  &key,
		"When": when,
		"Kind": models.ResourceTextImage,
		"Band": models.BandModerate,
		"User": models.User{Username: "x"},
	}))
	assert.Equal(t, "/media/personalized/abc.pdf|09/03/2024|Texto con imagen|Malestar moderado|Anónimo", buf.String())
}
