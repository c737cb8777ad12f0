// Package testutil builds throwaway databases and fixtures for tests.
package testutil

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"learning-platform/backend/config"
	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Password = "secret123"

// Config returns a configuration suitable for tests.
func Config(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:              "test",
		AppName:          "Learning Platform",
		ServerPort:       "0",
		JWTSecret:        "test-secret",
		JWTTTL:           time.Hour,
		StorageDir:       t.TempDir(),
		PublicFilesURL:   "/files/",
		MaxUploadMB:      16,
		MailFrom:         "noreply@example.com",
		FrontendURL:      "http://localhost:5173",
		ReminderInterval: time.Hour,
		ReminderAfter:    48 * time.Hour,
		CatalogCacheTTL:  time.Minute,
	}
}

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps transactions from tripping over sqlite table locks
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, utils.Migrate(db))
	return db
}

func Logger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func CreateUser(t *testing.T, db *gorm.DB, role models.Role, email string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(Password)
	require.NoError(t, err)
	user := &models.User{
		FirstName:    "Test",
		LastName:     string(role),
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateModule(t *testing.T, db *gorm.DB, name string) *models.Module {
	t.Helper()
	module := &models.Module{Name: name}
	require.NoError(t, db.Create(module).Error)
	return module
}

// CreateCourse stores a published course with one video chapter per title.
func CreateCourse(t *testing.T, db *gorm.DB, moduleID, authorID uint, title string, chapters ...string) *models.Course {
	t.Helper()
	course := &models.Course{
		ModuleID:  moduleID,
		AuthorID:  authorID,
		Title:     title,
		Published: true,
	}
	for i, name := range chapters {
		course.Chapters = append(course.Chapters, models.Chapter{
			Title:           name,
			OrderIndex:      i,
			ContentType:     models.ContentVideo,
			S3Key:           fmt.Sprintf("courses/%s-%d.mp4", uuid.NewString(), i),
			DurationSeconds: 600,
		})
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func CreateBadge(t *testing.T, db *gorm.DB, courseID uint, name string) *models.Badge {
	t.Helper()
	badge := &models.Badge{Name: name, Description: "Completed " + name, CourseID: &courseID}
	require.NoError(t, db.Create(badge).Error)
	return badge
}

// Token signs an access token for user.
func Token(t *testing.T, cfg *config.Config, user *models.User) string {
	t.Helper()
	token, _, err := utils.GenerateJWTToken(user, cfg)
	require.NoError(t, err)
	return token
}
