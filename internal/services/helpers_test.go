package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/clinic-portal/portal-service/internal/auth"
	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/repositories/postgres"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/clinic-portal/portal-service/internal/validator"
	"github.com/clinic-portal/portal-service/pkg"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAdminPassword = "admin-pass-123"

type testEnv struct {
	ctx       context.Context
	db        *gorm.DB
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	files     storage.FileStorage
	services  ServiceManager

	admin   *models.User
	intern  *models.User
	patient *models.User
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires every service against a private in-memory sqlite database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithRedis(t, nil)
}

// newTestEnvWithRedis is newTestEnv with the repository caches backed by client.
func newTestEnvWithRedis(t *testing.T, client *redis.Client) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, pkg.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)

	files, err := storage.NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	log := discardLogger()
	publisher := events.NewMockEventPublisher(log)
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: client})

	manager := NewServiceManager(Dependencies{
		DB:        db,
		Repo:      repo,
		Logger:    log,
		Validator: validator.New(),
		Sessions:  auth.NewSessionManager("test-secret", time.Hour, cache.NewCacheHelper(nil, cache.SessionCacheConfig.Prefix)),
		Files:     files,
		Publisher: publisher,
	}, ServiceManagerConfig{
		SeedQuestions:  true,
		Admin:          AdminSeed{Username: "admin", Email: "admin@clinic.test", Password: testAdminPassword},
		MaxUploadBytes: 1 << 20,
	})

	ctx := context.Background()
	require.NoError(t, manager.Initialize(ctx))
	t.Cleanup(func() { sqlDB.Close() })

	env := &testEnv{
		ctx:       ctx,
		db:        db,
		repo:      repo,
		publisher: publisher,
		files:     files,
		services:  manager,
	}

	env.admin, err = repo.User().GetByUsername(ctx, nil, "admin")
	require.NoError(t, err)
	env.intern = env.createUser(t, "pasante", models.RoleIntern)
	env.patient = env.createUser(t, "paciente", models.RolePatient)
	publisher.ClearEvents()

	return env
}

func (e *testEnv) createUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("password-123")
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		Email:        username + "@clinic.test",
		PasswordHash: hash,
		IsActive:     true,
		Profile:      models.Profile{Role: role},
	}
	require.NoError(t, e.repo.User().Create(e.ctx, nil, user))
	return user
}

func upload(name, body string) *FileUpload {
	return &FileUpload{Filename: name, Size: int64(len(body)), Content: strings.NewReader(body)}
}
