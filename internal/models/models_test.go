package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnose(t *testing.T) {
	tests := []struct {
		score int
		want  DiagnosisBand
	}{
		{0, BandAdequate},
		{20, BandAdequate},
		{21, BandMild},
		{40, BandMild},
		{41, BandModerate},
		{60, BandModerate},
		{61, BandSignificant},
		{80, BandSignificant},
	}

	for _, tt := range tests {
		band, text := Diagnose(tt.score)
		assert.Equal(t, tt.want, band, "score %d", tt.score)
		assert.NotEmpty(t, text)
	}
}

func TestRoleIn(t *testing.T) {
	assert.True(t, RoleAdmin.In(RoleAdmin, RoleIntern))
	assert.False(t, RolePatient.In(StaffRoles...))
	assert.False(t, RoleIntern.In())
	assert.True(t, RoleIntern.IsStaff())
	assert.False(t, Role("root").Valid())
}

func TestResourceLinkOrFile(t *testing.T) {
	empty := ""
	link := "https://example.org"
	key := "resources/files/a.pdf"

	assert.False(t, (&Resource{URL: &empty}).HasLink())
	assert.True(t, (&Resource{URL: &link}).HasLink())
	assert.False(t, (&Resource{}).HasFile())
	assert.True(t, (&Resource{FileKey: &key}).HasFile())
}

func TestDefaultTestQuestions(t *testing.T) {
	questions := DefaultTestQuestions()
	assert.Len(t, questions, 20)

	bySection := map[TestSection]int{}
	for i, q := range questions {
		assert.Equal(t, i+1, q.Number)
		assert.Len(t, q.Options, 5)
		bySection[q.Section]++
	}
	assert.Equal(t, 7, bySection[SectionA])
	assert.Equal(t, 7, bySection[SectionB])
	assert.Equal(t, 6, bySection[SectionC])

	// Each call hands out its own option slices.
	questions[0].Options[0].Points = 99
	assert.Equal(t, 0, DefaultTestQuestions()[0].Options[0].Points)
}
