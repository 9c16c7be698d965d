package handlers

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/config"
	"github.com/clinic-portal/portal-service/internal/metrics"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

type HandlerManager struct {
	authHandler      *AuthHandler
	userHandler      *UserHandler
	resourceHandler  *ResourceHandler
	inquiryHandler   *InquiryHandler
	forumHandler     *ForumHandler
	testHandler      *TestHandler
	contentHandler   *ContentHandler
	mediaHandler     *MediaHandler
	dashboardHandler *DashboardHandler
	healthHandler    *HealthHandler
	authMiddleware   *AuthMiddleware
	templates        *template.Template
	metricsEnabled   bool
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	cfg *config.Config,
	templates *template.Template,
) *HandlerManager {
	authMiddleware := NewAuthMiddleware(serviceManager.Auth(), cfg.Session, logger)

	return &HandlerManager{
		authHandler:      NewAuthHandler(serviceManager.Auth(), authMiddleware, logger),
		userHandler:      NewUserHandler(serviceManager.User(), logger),
		resourceHandler:  NewResourceHandler(serviceManager.Resource(), logger),
		inquiryHandler:   NewInquiryHandler(serviceManager.Inquiry(), logger),
		forumHandler:     NewForumHandler(serviceManager.Forum(), logger),
		testHandler:      NewTestHandler(serviceManager.Test(), serviceManager.User(), logger),
		contentHandler:   NewContentHandler(serviceManager.Content(), serviceManager.User(), logger),
		mediaHandler:     NewMediaHandler(serviceManager.Media(), logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		healthHandler:    NewHealthHandler(serviceManager),
		authMiddleware:   authMiddleware,
		templates:        templates,
		metricsEnabled:   cfg.MetricsEnabled,
	}
}

// SetupRoutes sets up all page routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(hm.templates)

	router.GET("/health", hm.healthHandler.HealthCheck)
	if hm.metricsEnabled {
		router.GET("/metrics", metrics.Handler())
	}

	staff := hm.authMiddleware.RequireRoleMiddleware(models.StaffRoles...)
	admin := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

	site := router.Group("/")
	site.Use(hm.authMiddleware.LoadUser())
	{
		site.GET("/login", hm.authHandler.LoginPage)
		site.POST("/login", hm.authHandler.Login)
	}

	app := site.Group("")
	app.Use(hm.authMiddleware.RequireAuth())
	{
		app.GET("/", hm.authHandler.Home)
		app.POST("/logout", hm.authHandler.Logout)
		app.POST("/view-as", staff, hm.authHandler.ToggleViewAs)

		app.GET("/profile", hm.userHandler.Profile)
		app.POST("/profile", hm.userHandler.UpdateProfile)

		app.GET("/media/*key", hm.mediaHandler.ServeMedia)

		// Resource library - everyone reads, staff manage
		resources := app.Group("/resources")
		{
			resources.GET("", hm.resourceHandler.ListResources)
			resources.GET("/:id", hm.resourceHandler.GetResource)
		}

		manage := app.Group("/manage/resources", staff)
		{
			manage.GET("", hm.resourceHandler.ManageResources)
			manage.GET("/new", hm.resourceHandler.NewResource)
			manage.POST("", hm.resourceHandler.CreateResource)
			manage.GET("/:id/edit", hm.resourceHandler.EditResource)
			manage.POST("/:id/edit", hm.resourceHandler.UpdateResource)
			manage.POST("/:id/delete", hm.resourceHandler.DeleteResource)
		}

		// Contact inquiries
		inquiries := app.Group("/inquiries")
		{
			inquiries.GET("", hm.inquiryHandler.ListInquiries)
			inquiries.GET("/new", hm.inquiryHandler.NewInquiry)
			inquiries.POST("", hm.inquiryHandler.CreateInquiry)
			inquiries.GET("/:id", hm.inquiryHandler.GetInquiry)

			inquiries.POST("/:id/reply", staff, hm.inquiryHandler.Reply)
			inquiries.POST("/:id/read", staff, hm.inquiryHandler.MarkRead)
		}

		// Forum
		forum := app.Group("/forum")
		{
			forum.GET("", hm.forumHandler.ListThreads)
			forum.GET("/new", hm.forumHandler.NewThread)
			forum.POST("", hm.forumHandler.CreateThread)

			forum.GET("/threads/:id", hm.forumHandler.GetThread)
			forum.GET("/threads/:id/edit", hm.forumHandler.EditThread)
			forum.POST("/threads/:id/edit", hm.forumHandler.UpdateThread)
			forum.POST("/threads/:id/replies", hm.forumHandler.CreateReply)
			forum.POST("/threads/:id/vote", hm.forumHandler.VoteThread)
			forum.POST("/replies/:id/vote", hm.forumHandler.VoteReply)

			// Moderation - staff only
			forum.POST("/threads/:id/delete", staff, hm.forumHandler.DeleteThread)
			forum.POST("/threads/:id/status", staff, hm.forumHandler.SetStatus)
			forum.POST("/replies/:id/official", staff, hm.forumHandler.SetOfficial)
		}

		// Personalized test
		test := app.Group("/test")
		{
			test.GET("", hm.testHandler.TestForm)
			test.POST("", hm.testHandler.SubmitTest)
			test.GET("/results", hm.testHandler.ListResults)
			test.GET("/results/export", staff, hm.testHandler.ExportResults)
			test.GET("/results/:id", hm.testHandler.GetResult)
		}

		// Personalized content
		content := app.Group("/content")
		{
			content.GET("", hm.contentHandler.ListContent)
			content.GET("/new", staff, hm.contentHandler.NewContent)
			content.POST("", staff, hm.contentHandler.CreateContent)
			content.GET("/:id", hm.contentHandler.GetContent)
			content.POST("/:id/delete", staff, hm.contentHandler.DeleteContent)
		}

		app.GET("/intern/dashboard", staff, hm.dashboardHandler.InternDashboard)

		admins := app.Group("/admin", admin)
		{
			admins.GET("/dashboard", hm.dashboardHandler.AdminDashboard)

			admins.GET("/users", hm.userHandler.ListUsers)
			admins.GET("/users/new", hm.userHandler.NewUser)
			admins.POST("/users", hm.userHandler.CreateUser)
			admins.GET("/users/:id/edit", hm.userHandler.EditUser)
			admins.POST("/users/:id/edit", hm.userHandler.UpdateUser)
			admins.POST("/users/:id/delete", hm.userHandler.DeleteUser)

			admins.GET("/categories", hm.resourceHandler.ListCategories)
			admins.POST("/categories", hm.resourceHandler.CreateCategory)
			admins.POST("/categories/:id/delete", hm.resourceHandler.DeleteCategory)
		}
	}
}
