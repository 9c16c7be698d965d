package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-portal/portal-service/internal/models"
)

func TestValidateResourceRequest(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		req       ResourceRequest
		wantRules []string
	}{
		{
			name: "valid with link",
			req: ResourceRequest{
				Title: "Respiración", Description: "Guía", Kind: models.ResourceVideo,
				CategoryID: 1, URL: "https://example.com/video",
			},
		},
		{
			name: "unknown kind",
			req: ResourceRequest{
				Title: "Respiración", Description: "Guía", Kind: "podcast", CategoryID: 1,
			},
			wantRules: []string{"resource_kind"},
		},
		{
			name: "blank title and bad url",
			req: ResourceRequest{
				Title: "   ", Description: "Guía", Kind: models.ResourceArticle,
				CategoryID: 1, URL: "not a url",
			},
			wantRules: []string{"notblank", "url"},
		},
		{
			name:      "missing category",
			req:       ResourceRequest{Title: "T", Description: "D", Kind: models.ResourceExercise},
			wantRules: []string{"required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateStruct(&tt.req)

			var rules []string
			for _, e := range errs {
				rules = append(rules, e.Rule)
			}
			assert.ElementsMatch(t, tt.wantRules, rules)
		})
	}
}

func TestValidateLinkOrFile(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		url     string
		hasFile bool
		wantErr bool
	}{
		{"neither", "", false, true},
		{"whitespace url only", "   ", false, true},
		{"link only", "https://example.com", false, false},
		{"file only", "", true, false},
		{"both", "https://example.com", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateLinkOrFile(tt.url, tt.hasFile)
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Equal(t, "link_or_file", errs[0].Rule)
				assert.Equal(t, "Debes proporcionar un ENLACE (URL) o subir un ARCHIVO.", errs[0].Message)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidateCreateUserRequest(t *testing.T) {
	v := New()

	req := CreateUserRequest{
		Username:        "ana.perez",
		Email:           "ana@example.com",
		Password:        "secreto123",
		PasswordConfirm: "secreto124",
		Role:            "superuser",
	}

	errs := v.ValidateStruct(&req)
	require.Len(t, errs, 2)

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Rule
	}
	assert.Equal(t, "eqfield", fields["password_confirm"])
	assert.Equal(t, "role", fields["role"])
}

func TestValidateReturnsNilWhenValid(t *testing.T) {
	v := New()

	err := v.Validate(&VoteRequest{Polarity: models.VoteUp})
	assert.NoError(t, err)

	err = v.Validate(&VoteRequest{Polarity: "sideways"})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "polarity", verrs[0].Field)
}

func TestValidateUniqueAccount(t *testing.T) {
	v := New()
	existing := &models.User{Username: "ana", Email: "Ana@Example.com"}

	errs := v.ValidateUniqueAccount(existing, "ana", "ana@example.com")
	assert.Len(t, errs, 2)

	errs = v.ValidateUniqueAccount(existing, "otra", "ana@example.com")
	require.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].Field)

	assert.Nil(t, v.ValidateUniqueAccount(nil, "ana", "ana@example.com"))
}
