package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"learning-platform/backend/cache"
	"learning-platform/backend/config"
	"learning-platform/backend/models"
	"learning-platform/backend/routes"
	"learning-platform/backend/services"
	"learning-platform/backend/storage"
	"learning-platform/backend/testutil"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	t          *testing.T
	app        *fiber.App
	db         *gorm.DB
	cfg        *config.Config
	notifier   *services.Notifier
	admin      *models.User
	instructor *models.User
	student    *models.User
	module     *models.Module
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	logger := testutil.Logger()

	files, err := storage.NewLocalStorage(cfg.StorageDir)
	require.NoError(t, err)
	notifier := services.NewNotifier(db, services.NewMailer(cfg, logger), logger, cfg)
	t.Cleanup(notifier.Wait)

	deps := routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Cache:    cache.NewMemoryStore(),
		Storage:  files,
		Notifier: notifier,
		Training: services.NewTrainingService(db, notifier),
		Logger:   logger,
	}

	e := &env{
		t:        t,
		app:      routes.NewApp(deps, utils.NewReporter(logger, cfg)),
		db:       db,
		cfg:      cfg,
		notifier: notifier,
	}
	e.admin = testutil.CreateUser(t, db, models.RoleAdmin, "admin@example.com")
	e.instructor = testutil.CreateUser(t, db, models.RoleInstructor, "instructor@example.com")
	e.student = testutil.CreateUser(t, db, models.RoleStudent, "student@example.com")
	e.module = testutil.CreateModule(t, db, "Filosofía")
	return e
}

func (e *env) token(user *models.User) string {
	return testutil.Token(e.t, e.cfg, user)
}

// do sends a JSON request; body may be nil. The decoded response is stored
// in out when it is not nil.
func (e *env) do(method, path, token string, body interface{}, out interface{}) *http.Response {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return e.send(req, out)
}

type filePart struct {
	field, name string
	content     []byte
}

func (e *env) multipart(method, path, token string, fields map[string]string, files []filePart, out interface{}) *http.Response {
	e.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(e.t, err)
		_, err = part.Write(f.content)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return e.send(req, out)
}

func (e *env) send(req *http.Request, out interface{}) *http.Response {
	e.t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	_ = resp.Body.Close()
	if out != nil && len(raw) > 0 {
		require.NoError(e.t, json.Unmarshal(raw, out), string(raw))
	}
	return resp
}
