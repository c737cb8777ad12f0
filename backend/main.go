package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learning-platform/backend/cache"
	"learning-platform/backend/config"
	"learning-platform/backend/jobs"
	"learning-platform/backend/models"
	"learning-platform/backend/routes"
	"learning-platform/backend/services"
	"learning-platform/backend/storage"
	"learning-platform/backend/utils"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "learning-platform",
		Short:         "Learning platform API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCreateAdminCmd())
	root.AddCommand(newSeedCmd())
	return root
}

// openDB loads the configuration and connects to the database.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := utils.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			if migrate {
				if err := utils.Migrate(db); err != nil {
					return err
				}
			}
			return serve(cfg, db)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run migrations before serving")
	return cmd
}

func serve(cfg *config.Config, db *gorm.DB) error {
	logger := utils.InitLogger(utils.LoggerConfig{
		Format:       cfg.LogFormat,
		EnableColors: !cfg.IsProduction(),
	})
	reporter := utils.NewReporter(logger, cfg)
	defer reporter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		store = redisStore
	} else {
		// revocations are lost on restart and not shared between replicas
		reporter.Warn("REDIS_ADDR not set, using in-memory cache", map[string]interface{}{"env": cfg.Env})
	}
	defer store.Close()

	files, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		return err
	}

	notifier := services.NewNotifier(db, services.NewMailer(cfg, logger), logger, cfg)
	defer notifier.Wait()

	deps := routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Cache:    store,
		Storage:  files,
		Notifier: notifier,
		Training: services.NewTrainingService(db, notifier),
		Logger:   logger,
	}
	app := routes.NewApp(deps, reporter)

	jobs.NewReminderJob(db, logger, cfg).Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Println("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return err
	}
	return <-errCh
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			if err := utils.Migrate(db); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var email, password, firstName, lastName string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			user, err := createAdmin(db, firstName, lastName, email, password)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "e-mail address")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	cmd.Flags().StringVar(&firstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createAdmin(db *gorm.DB, firstName, lastName, email, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, errors.New("password must have at least 8 characters")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		prefs := models.DefaultPreferences(user.ID)
		return tx.Create(&prefs).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a sample module, course and badge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			course, err := seed(db)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded course %q (id %d)\n", course.Title, course.ID)
			return nil
		},
	}
}

// seed is idempotent: existing rows are reused.
func seed(db *gorm.DB) (*models.Course, error) {
	var course models.Course
	err := db.Transaction(func(tx *gorm.DB) error {
		module := models.Module{Name: "Filosofía", Description: "Introducción a la filosofía"}
		if err := tx.Where(models.Module{Name: module.Name}).Attrs(module).FirstOrCreate(&module).Error; err != nil {
			return err
		}

		err := tx.Where("title = ? AND module_id = ?", "Ética para principiantes", module.ID).First(&course).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		course = models.Course{
			ModuleID:    module.ID,
			Title:       "Ética para principiantes",
			Description: "Conceptos básicos de ética.",
			Tags:        "ética,introducción",
			Level:       "basic",
			Published:   true,
			Chapters: []models.Chapter{
				{Title: "¿Qué es la ética?", OrderIndex: 0, ContentType: models.ContentVideo, DurationSeconds: 600,
					S3Key: "https://example.com/media/etica-1.mp4"},
				{Title: "Lecturas", OrderIndex: 1, ContentType: models.ContentPDF, PageCount: 12,
					S3Key: "https://example.com/media/etica-lecturas.pdf"},
			},
		}
		if err := tx.Create(&course).Error; err != nil {
			return err
		}
		badge := models.Badge{
			Name:        "Ético",
			Description: "Completaste Ética para principiantes",
			Criterion:   "Completar todos los capítulos",
			CourseID:    &course.ID,
		}
		return tx.Create(&badge).Error
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}
