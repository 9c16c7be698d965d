package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clinic-portal/portal-service/internal/auth"
	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/clinic-portal/portal-service/internal/validator"
	"gorm.io/gorm"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Seed data applied by Initialize
	SeedQuestions bool
	Admin         AdminSeed

	MaxUploadBytes int64
	InitTimeout    time.Duration
}

// AdminSeed is the bootstrap administrator. An empty password disables it.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// Dependencies are the collaborators shared by every service.
type Dependencies struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Sessions  *auth.SessionManager
	Files     storage.FileStorage
	Directory repositories.DirectoryRepository // nil when SSO is disabled
	Publisher events.EventPublisher
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	// Service instances
	authService      AuthService
	userService      UserService
	resourceService  ResourceService
	inquiryService   InquiryService
	forumService     ForumService
	testService      TestService
	contentService   ContentService
	mediaService     MediaService
	dashboardService DashboardService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if config.InitTimeout <= 0 {
		config.InitTimeout = 30 * time.Second
	}
	return &serviceManager{deps: deps, config: config}
}

// Initialize builds every service and applies the seed data.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")
	sm.initializeServices()

	ctx, cancel := context.WithTimeout(ctx, sm.config.InitTimeout)
	defer cancel()

	if err := sm.seed(ctx); err != nil {
		return fmt.Errorf("failed to seed data: %w", err)
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	d := sm.deps

	sm.authService = NewAuthService(d.Repo, d.DB, d.Logger, d.Validator, d.Sessions, d.Directory, d.Publisher)
	sm.userService = NewUserService(d.Repo, d.DB, d.Logger, d.Validator, d.Files, d.Publisher)
	sm.resourceService = NewResourceService(d.Repo, d.DB, d.Logger, d.Validator, d.Files, sm.config.MaxUploadBytes)
	sm.inquiryService = NewInquiryService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher)
	sm.forumService = NewForumService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher)
	sm.testService = NewTestService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher)
	sm.contentService = NewContentService(d.Repo, d.DB, d.Logger, d.Validator, d.Files, d.Publisher, sm.config.MaxUploadBytes)
	sm.mediaService = NewMediaService(d.Repo, d.Files, d.Logger)
	sm.dashboardService = NewDashboardService(d.Repo, d.DB, d.Logger)
}

func (sm *serviceManager) seed(ctx context.Context) error {
	if sm.config.SeedQuestions {
		if err := sm.testService.EnsureQuestions(ctx); err != nil {
			return err
		}
	}

	if _, err := sm.forumService.ListCategories(ctx); err != nil {
		return err
	}

	admin := sm.config.Admin
	return sm.authService.EnsureAdmin(ctx, admin.Username, admin.Email, admin.Password)
}

func (sm *serviceManager) ready() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.authService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.userService
}

func (sm *serviceManager) Resource() ResourceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.resourceService
}

func (sm *serviceManager) Inquiry() InquiryService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.inquiryService
}

func (sm *serviceManager) Forum() ForumService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.forumService
}

func (sm *serviceManager) Test() TestService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.testService
}

func (sm *serviceManager) Content() ContentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.contentService
}

func (sm *serviceManager) Media() MediaService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.mediaService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.dashboardService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown closes the event publisher and then the repository connections.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := sm.deps.Repo.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}
