package routes

import (
	"log"

	"learning-platform/backend/cache"
	"learning-platform/backend/config"
	"learning-platform/backend/controllers"
	"learning-platform/backend/middleware"
	"learning-platform/backend/services"
	"learning-platform/backend/storage"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps are the shared services the handlers are built from.
type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Cache    cache.Store
	Storage  storage.Storage
	Notifier *services.Notifier
	Training *services.TrainingService
	Logger   *log.Logger
}

func SetupRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api/v1")

	authMiddleware := middleware.AuthMiddleware(d.Cfg, d.Cache)
	adminMiddleware := middleware.AdminMiddleware()
	staffMiddleware := middleware.StaffMiddleware()

	// Auth routes
	authController := controllers.NewAuthController(d.DB, d.Cfg, d.Cache)
	api.Post("/auth/register", middleware.OptionalAuth(d.Cfg, d.Cache), authController.Register)
	api.Post("/auth/login", authController.Login)
	api.Delete("/auth/logout/:userId", authMiddleware, authController.Logout)

	// User routes
	userController := controllers.NewUserController(d.DB, d.Cfg)
	users := api.Group("/users", authMiddleware)
	users.Get("/me", userController.GetProfile)
	users.Put("/me", userController.UpdateProfile)
	users.Get("/me/preferences", userController.GetPreferences)
	users.Put("/me/preferences", userController.UpdatePreferences)
	users.Get("/", adminMiddleware, userController.ListUsers)
	users.Post("/", adminMiddleware, userController.CreateUser)
	users.Put("/:id", adminMiddleware, userController.UpdateUser)
	users.Delete("/:id", adminMiddleware, userController.DeleteUser)

	// Module routes
	modulesController := controllers.NewModulesController(d.DB, d.Cache, d.Logger)
	modules := api.Group("/modules", authMiddleware)
	modules.Get("/", modulesController.ListModules)
	modules.Post("/", adminMiddleware, modulesController.CreateModule)
	modules.Put("/:id", adminMiddleware, modulesController.UpdateModule)
	modules.Delete("/:id", adminMiddleware, modulesController.DeleteModule)

	// Courses routes
	coursesController := &controllers.CoursesController{
		DB:       d.DB,
		Cfg:      d.Cfg,
		Cache:    d.Cache,
		Storage:  d.Storage,
		Training: d.Training,
		Notifier: d.Notifier,
		Logger:   d.Logger,
	}
	analyticsController := controllers.NewAnalyticsController(d.DB)
	notesController := controllers.NewNotesController(d.DB)
	courses := api.Group("/courses", authMiddleware)
	courses.Get("/", coursesController.GetCourses)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Get("/:id/chapters/:chapterId/notes", notesController.GetNote)
	courses.Put("/:id/chapters/:chapterId/notes", notesController.SaveNote)

	// Studio routes for courses
	courses.Post("/", staffMiddleware, coursesController.CreateCourse)
	courses.Put("/:id", staffMiddleware, coursesController.UpdateCourse)
	courses.Delete("/:id", staffMiddleware, coursesController.DeleteCourse)
	courses.Post("/:id/chapters", staffMiddleware, coursesController.AddChapter)
	courses.Put("/:id/chapters/order", staffMiddleware, coursesController.ReorderChapters)
	courses.Put("/:id/chapters/:chapterId", staffMiddleware, coursesController.UpdateChapter)
	courses.Delete("/:id/chapters/:chapterId", staffMiddleware, coursesController.DeleteChapter)
	courses.Get("/:id/analytics", staffMiddleware, analyticsController.GetCourseAnalytics)

	// Training routes
	progressController := controllers.NewProgressController(d.Training)
	training := api.Group("/training", authMiddleware)
	training.Post("/coursesassign", progressController.AssignCourse)
	training.Get("/courses/progress/:userId", progressController.GetUserProgress)
	training.Get("/courses/:courseId/progress/:userId", progressController.GetCourseProgress)
	training.Post("/chapters/complete", progressController.CompleteChapter)
	training.Post("/chapters/position", progressController.ReportPosition)

	// Badge routes
	badgesController := controllers.NewBadgesController(d.DB, d.Training)
	badges := api.Group("/badges", authMiddleware)
	badges.Get("/me", badgesController.GetMyBadges)
	badges.Get("/me/:userId", badgesController.GetUserBadges)
	badges.Get("/:courseId/badge", badgesController.GetCourseBadge)
	badges.Post("/assingBadge", badgesController.AssignBadge)
	badges.Post("/assignBadge", badgesController.AssignBadge)
	badges.Get("/", adminMiddleware, badgesController.ListBadges)
	badges.Post("/", adminMiddleware, badgesController.CreateBadge)
	badges.Put("/:id", adminMiddleware, badgesController.UpdateBadge)
	badges.Delete("/:id", adminMiddleware, badgesController.DeleteBadge)

	// Notification routes
	notificationsController := controllers.NewNotificationsController(d.DB)
	notifications := api.Group("/notifications", authMiddleware)
	notifications.Get("/", notificationsController.ListNotifications)
	notifications.Post("/read-all", notificationsController.MarkAllRead)
	notifications.Post("/:id/read", notificationsController.MarkRead)

	// Material routes
	materialsController := controllers.NewMaterialsController(d.DB, d.Cfg, d.Storage, d.Logger)
	materials := api.Group("/materials", authMiddleware)
	materials.Get("/", materialsController.ListMaterials)
	materials.Post("/", materialsController.UploadMaterial)
	materials.Delete("/:id", materialsController.DeleteMaterial)

	// Dashboard
	overviewController := controllers.NewOverviewController(d.DB, d.Cfg, d.Training)
	api.Get("/dashboard", authMiddleware, overviewController.GetDashboard)
}
