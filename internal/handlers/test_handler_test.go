package handlers

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/utils"
)

func TestSectionScores(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		raw     datatypes.JSON
		want    map[models.TestSection]int
		wantLog bool
	}{
		{name: "stored summary", raw: datatypes.JSON(`{"A":12,"B":3,"C":0}`), want: map[models.TestSection]int{models.SectionA: 12, models.SectionB: 3, models.SectionC: 0}},
		{name: "no summary", want: map[models.TestSection]int{}},
		{name: "unreadable summary", raw: datatypes.JSON(`{"A":"doce"`), want: map[models.TestSection]int{}, wantLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewTestHandler(nil, nil, utils.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))))
			c, _ := gin.CreateTestContext(httptest.NewRecorder())

			got := h.sectionScores(c, &models.TestResult{ID: 7, SectionScores: tt.raw})

			assert.Len(t, got, len(tt.want))
			for section, points := range tt.want {
				assert.Equal(t, points, got[section])
			}
			if tt.wantLog {
				assert.Contains(t, buf.String(), "Unreadable section scores")
				assert.Contains(t, buf.String(), "result_id=7")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
