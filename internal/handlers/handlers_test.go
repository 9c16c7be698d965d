package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clinic-portal/portal-service/internal/auth"
	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/config"
	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories/postgres"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/clinic-portal/portal-service/internal/utils"
	"github.com/clinic-portal/portal-service/internal/validator"
	"github.com/clinic-portal/portal-service/internal/web"
	"github.com/clinic-portal/portal-service/pkg"
)

const (
	cookieName    = "portal_session"
	adminPassword = "admin-pass-123"
	userPassword  = "password-123"
)

type testServer struct {
	router   *gin.Engine
	services services.ServiceManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, pkg.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	files, err := storage.NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db})

	manager := services.NewServiceManager(services.Dependencies{
		DB:        db,
		Repo:      repo,
		Logger:    slogger,
		Validator: validator.New(),
		Sessions:  auth.NewSessionManager("test-secret", time.Hour, cache.NewCacheHelper(nil, cache.SessionCacheConfig.Prefix)),
		Files:     files,
		Publisher: events.NewMockEventPublisher(slogger),
	}, services.ServiceManagerConfig{
		SeedQuestions: true,
		Admin:         services.AdminSeed{Username: "admin", Email: "admin@clinic.test", Password: adminPassword},
	})
	require.NoError(t, manager.Initialize(context.Background()))

	for username, role := range map[string]models.Role{"pasante": models.RoleIntern, "paciente": models.RolePatient} {
		hash, err := auth.HashPassword(userPassword)
		require.NoError(t, err)
		require.NoError(t, repo.User().Create(context.Background(), nil, &models.User{
			Username:     username,
			Email:        username + "@clinic.test",
			PasswordHash: hash,
			IsActive:     true,
			Profile:      models.Profile{Role: role},
		}))
	}

	templates, err := web.Templates()
	require.NoError(t, err)

	log := utils.NewSlogLogger(slogger)
	cfg := &config.Config{
		Session:        config.SessionConfig{CookieName: cookieName, TTL: time.Hour},
		MetricsEnabled: true,
	}

	router := gin.New()
	SetupMiddleware(router, log, cfg.MetricsEnabled)
	NewHandlerManager(manager, log, cfg, templates).SetupRoutes(router)

	return &testServer{router: router, services: manager}
}

func (s *testServer) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// login posts the login form and returns the session cookie.
func (s *testServer) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	session := responseCookie(rec, cookieName)
	require.NotNil(t, session, "no session cookie issued")
	return session
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			return c
		}
	}
	return nil
}

func flashMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	c := responseCookie(rec, flashCookie)
	require.NotNil(t, c, "no flash cookie set")
	decoded, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	return decoded
}

func TestLogin_RedirectsByRole(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		username string
		password string
		want     string
	}{
		{"admin", adminPassword, "/admin/dashboard"},
		{"pasante", userPassword, "/intern/dashboard"},
		{"paciente", userPassword, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/login", url.Values{"username": {tt.username}, "password": {tt.password}})
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))

			session := responseCookie(rec, cookieName)
			require.NotNil(t, session)
			assert.True(t, session.HttpOnly)

			page := srv.do(t, http.MethodGet, tt.want, nil, session)
			assert.Equal(t, http.StatusOK, page.Code)
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/login", url.Values{"username": {"paciente"}, "password": {"nope-nope"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuario o contraseña incorrectos")
	assert.Nil(t, responseCookie(rec, cookieName))
}

func TestRoleGate(t *testing.T) {
	srv := newTestServer(t)
	patient := srv.login(t, "paciente", userPassword)
	intern := srv.login(t, "pasante", userPassword)

	t.Run("anonymous callers go to login", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/admin/users", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.Contains(t, flashMessage(t, rec), msgLoginRequired)
	})

	tests := []struct {
		name     string
		method   string
		path     string
		cookie   *http.Cookie
		wantHome string
	}{
		{"patient on admin users", http.MethodGet, "/admin/users", patient, "/"},
		{"patient on intern dashboard", http.MethodGet, "/intern/dashboard", patient, "/"},
		{"patient replying to an inquiry", http.MethodPost, "/inquiries/1/reply", patient, "/"},
		{"patient exporting results", http.MethodGet, "/test/results/export", patient, "/"},
		{"intern on admin dashboard", http.MethodGet, "/admin/dashboard", intern, "/intern/dashboard"},
		{"intern managing categories", http.MethodPost, "/admin/categories", intern, "/intern/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.path, url.Values{}, tt.cookie)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantHome, rec.Header().Get("Location"))
			assert.Contains(t, flashMessage(t, rec), msgForbidden)

			// The message shows up once on the landing page.
			flash := responseCookie(rec, flashCookie)
			landing := srv.do(t, http.MethodGet, tt.wantHome, nil, tt.cookie, flash)
			assert.Equal(t, http.StatusOK, landing.Code)
			assert.Contains(t, landing.Body.String(), msgForbidden)
		})
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	srv := newTestServer(t)
	session := srv.login(t, "paciente", userPassword)

	rec := srv.do(t, http.MethodGet, "/profile", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/logout", url.Values{}, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// The old cookie no longer authenticates.
	rec = srv.do(t, http.MethodGet, "/profile", nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestViewAsUser(t *testing.T) {
	srv := newTestServer(t)
	intern := srv.login(t, "pasante", userPassword)

	home := srv.do(t, http.MethodGet, "/", nil, intern)
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Ir al panel del pasante")

	rec := srv.do(t, http.MethodPost, "/view-as", url.Values{"enabled": {"true"}}, intern)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	viewing := responseCookie(rec, cookieName)
	require.NotNil(t, viewing)

	home = srv.do(t, http.MethodGet, "/", nil, viewing)
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Test personalizado")
	assert.Contains(t, home.Body.String(), "Volver a vista de personal")

	// Patient view changes navigation only; staff pages stay reachable.
	dash := srv.do(t, http.MethodGet, "/intern/dashboard", nil, viewing)
	assert.Equal(t, http.StatusOK, dash.Code)

	patient := srv.login(t, "paciente", userPassword)
	rec = srv.do(t, http.MethodPost, "/view-as", url.Values{"enabled": {"true"}}, patient)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, flashMessage(t, rec), msgForbidden)
}

func TestSubmitTestRedirectsToResult(t *testing.T) {
	srv := newTestServer(t)
	session := srv.login(t, "paciente", userPassword)

	questions, err := srv.services.Test().Questions(context.Background())
	require.NoError(t, err)

	form := url.Values{"csrf": {"ignored"}}
	for _, q := range questions {
		for _, o := range q.Options {
			if o.Points == 4 {
				form.Set("question_"+itoa(q.ID), itoa(o.ID))
			}
		}
	}

	rec := srv.do(t, http.MethodPost, "/test", form, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/test/results/"), location)

	page := srv.do(t, http.MethodGet, location, nil, session)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Puntaje total: 80")
}

func TestInquiryFormValidation(t *testing.T) {
	srv := newTestServer(t)
	session := srv.login(t, "paciente", userPassword)

	rec := srv.do(t, http.MethodPost, "/inquiries", url.Values{"kind": {"question"}, "subject": {"  "}, "message": {"Hola"}}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="errors"`)

	rec = srv.do(t, http.MethodPost, "/inquiries", url.Values{"kind": {"question"}, "subject": {"Horarios"}, "message": {"¿Atienden sábados?"}}, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/inquiries/"))
}

func TestUnknownThreadRendersNotFound(t *testing.T) {
	srv := newTestServer(t)
	session := srv.login(t, "paciente", userPassword)

	rec := srv.do(t, http.MethodGet, "/forum/threads/9999", nil, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = srv.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal_http_requests_total")
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
