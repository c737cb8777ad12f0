package controllers_test

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"learning-platform/backend/controllers"
	"learning-platform/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications(t *testing.T) {
	e := newEnv(t)
	e.createCourse(e.admin, courseRequest(e.module.ID, "Uno", true))
	e.createCourse(e.admin, courseRequest(e.module.ID, "Dos", true))
	token := e.token(e.student)

	var list []models.Notification
	resp := e.do(http.MethodGet, "/api/v1/notifications", token, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 2)

	resp = e.do(http.MethodPost, fmt.Sprintf("/api/v1/notifications/%s/read", list[0].ID), token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(http.MethodPost, fmt.Sprintf("/api/v1/notifications/%s/read", list[0].ID), e.token(e.admin), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	e.do(http.MethodGet, "/api/v1/notifications?unread=true", token, nil, &list)
	assert.Len(t, list, 1)

	var out map[string]int64
	resp = e.do(http.MethodPost, "/api/v1/notifications/read-all", token, nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), out["updated"])

	e.do(http.MethodGet, "/api/v1/notifications?unread=true", token, nil, &list)
	assert.Empty(t, list)
}

func TestPreferences(t *testing.T) {
	e := newEnv(t)
	token := e.token(e.student)

	var prefs models.UserPreferences
	resp := e.do(http.MethodGet, "/api/v1/users/me/preferences", token, nil, &prefs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, prefs.NotificationsEnabled)
	assert.Equal(t, "medium", prefs.FontSize)

	resp = e.do(http.MethodPut, "/api/v1/users/me/preferences", token, map[string]interface{}{
		"notificationsEnabled": false,
		"fontSize":             "large",
		"interests":            []string{"ética", "lógica"},
	}, &prefs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, prefs.NotificationsEnabled)
	assert.JSONEq(t, `["ética","lógica"]`, string(prefs.Interests))

	resp = e.do(http.MethodPut, "/api/v1/users/me/preferences", token, map[string]interface{}{"fontSize": "huge"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var again models.UserPreferences
	e.do(http.MethodGet, "/api/v1/users/me/preferences", token, nil, &again)
	assert.False(t, again.NotificationsEnabled)
	assert.Equal(t, "large", again.FontSize)
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t)
	token := e.token(e.student)
	name := "Lucía"

	var user models.User
	resp := e.do(http.MethodPut, "/api/v1/users/me", token, controllers.UpdateProfileRequest{FirstName: &name}, &user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Lucía", user.FirstName)

	resp = e.do(http.MethodPut, "/api/v1/users/me", token, controllers.UpdateProfileRequest{NewPassword: "newpassword"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do(http.MethodPut, "/api/v1/users/me", token, controllers.UpdateProfileRequest{OldPassword: "bad", NewPassword: "newpassword"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminUsers(t *testing.T) {
	e := newEnv(t)
	admin := e.token(e.admin)

	var created models.User
	resp := e.do(http.MethodPost, "/api/v1/users", admin, controllers.UserRequest{
		FirstName: "Nuevo", Email: "nuevo@example.com", Password: "password123", RoleID: 3,
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.RoleInstructor, created.Role)

	resp = e.do(http.MethodPost, "/api/v1/users", admin, controllers.UserRequest{FirstName: "Sin clave", Email: "x@example.com"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var updated models.User
	resp = e.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d", created.ID), admin, controllers.UserRequest{
		FirstName: "Nuevo", Email: "nuevo@example.com", RoleID: 1,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	resp = e.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", e.admin.ID), admin, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = e.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", created.ID), admin, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", created.ID), admin, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotes(t *testing.T) {
	e := newEnv(t)
	course := e.createCourse(e.admin, courseRequest(e.module.ID, "Notas", true, "A"))
	path := fmt.Sprintf("/api/v1/courses/%d/chapters/%d/notes", course.ID, course.Chapters[0].ID)
	token := e.token(e.student)

	var note models.ChapterNote
	resp := e.do(http.MethodGet, path, token, nil, &note)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, note.Content)

	resp = e.do(http.MethodPut, path, token, controllers.NoteRequest{Content: "primera"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = e.do(http.MethodPut, path, token, controllers.NoteRequest{Content: "segunda"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	e.do(http.MethodGet, path, token, nil, &note)
	assert.Equal(t, "segunda", note.Content)

	var other models.ChapterNote
	e.do(http.MethodGet, path, e.token(e.admin), nil, &other)
	assert.Empty(t, other.Content)

	resp = e.do(http.MethodGet, fmt.Sprintf("/api/v1/courses/%d/chapters/999/notes", course.ID), token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMaterials(t *testing.T) {
	e := newEnv(t)

	var material models.Material
	resp := e.multipart(http.MethodPost, "/api/v1/materials", e.token(e.instructor),
		map[string]string{"name": "Guía"},
		[]filePart{{field: "file", name: "guia.pdf", content: []byte("%PDF-1.4 not really")}},
		&material)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Guía", material.Name)
	assert.Equal(t, models.MaterialPDF, material.Type)
	assert.Equal(t, int64(19), material.Size)

	var list []models.Material
	e.do(http.MethodGet, "/api/v1/materials?type=pdf", e.token(e.student), nil, &list)
	require.Len(t, list, 1)

	var stored models.Material
	require.NoError(t, e.db.First(&stored, "id = ?", material.ID).Error)
	path := filepath.Join(e.cfg.StorageDir, stored.StorageKey)
	_, err := os.Stat(path)
	require.NoError(t, err)

	resp = e.do(http.MethodDelete, "/api/v1/materials/"+material.ID, e.token(e.student), nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = e.do(http.MethodDelete, "/api/v1/materials/"+material.ID, e.token(e.instructor), nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDashboard(t *testing.T) {
	e := newEnv(t)
	done := e.createCourse(e.admin, courseRequest(e.module.ID, "Terminado", true, "A"))
	open := e.createCourse(e.admin, courseRequest(e.module.ID, "Abierto", true, "A", "B"))
	e.createCourse(e.admin, courseRequest(e.module.ID, "Nuevo", true, "A"))

	e.complete(e.student, done, 0)
	e.complete(e.student, open, 0)
	require.NoError(t, e.db.Create(&models.LoginHistory{UserID: e.student.ID, LoginTime: time.Now().UTC()}).Error)

	var overview models.DashboardOverview
	resp := e.do(http.MethodGet, "/api/v1/dashboard", e.token(e.student), nil, &overview)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, overview.Enrolled)
	assert.Equal(t, 1, overview.Completed)
	assert.Equal(t, 1, overview.InProgress)
	assert.Equal(t, 1, overview.StreakDays)
	assert.Equal(t, int64(3), overview.UnreadAlerts)
	require.Len(t, overview.ContinueLearning, 1)
	assert.Equal(t, "Abierto", overview.ContinueLearning[0].CourseTitle)
	require.Len(t, overview.Recommended, 1)
	assert.Equal(t, "Nuevo", overview.Recommended[0].Title)
}

func TestStreakDays(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return now.AddDate(0, 0, -d) }

	assert.Equal(t, 0, controllers.StreakDays(nil, now))
	assert.Equal(t, 1, controllers.StreakDays([]time.Time{day(0)}, now))
	assert.Equal(t, 3, controllers.StreakDays([]time.Time{day(0), day(0), day(1), day(2), day(4)}, now))
	assert.Equal(t, 2, controllers.StreakDays([]time.Time{day(1), day(2)}, now))
	assert.Equal(t, 0, controllers.StreakDays([]time.Time{day(2), day(3)}, now))
}

func TestOperationalEndpoints(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, os.MkdirAll(filepath.Join(e.cfg.StorageDir, "courses"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.cfg.StorageDir, "courses", "a.txt"), []byte("hola"), 0o644))
	resp = e.do(http.MethodGet, "/files/courses/a.txt", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(http.MethodGet, "/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
