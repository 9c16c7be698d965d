package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_CountsMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/foro/hilo/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/foro/hilo/:id", "200"))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/foro/hilo/7", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/foro/hilo/:id", "200"))
	assert.Equal(t, float64(3), after-before)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(testSubmissions.WithLabelValues("mild"))
	RecordTestSubmission("mild")
	assert.Equal(t, float64(1), testutil.ToFloat64(testSubmissions.WithLabelValues("mild"))-before)

	beforeVotes := testutil.ToFloat64(forumVotes.WithLabelValues("thread", "up"))
	RecordVote("thread", "up")
	RecordVote("thread", "up")
	assert.Equal(t, float64(2), testutil.ToFloat64(forumVotes.WithLabelValues("thread", "up"))-beforeVotes)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", Handler())
	RecordLogin("success")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "portal_logins_total"))
}
