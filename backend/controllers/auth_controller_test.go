package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"learning-platform/backend/controllers"
	"learning-platform/backend/models"
	"learning-platform/backend/testutil"
	"learning-platform/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(email string, roleID int) controllers.RegisterRequest {
	return controllers.RegisterRequest{
		FirstName: "Ana",
		LastName:  "García",
		Email:     email,
		Password:  "password123",
		RoleID:    roleID,
	}
}

func TestRegister(t *testing.T) {
	e := newEnv(t)

	var res controllers.LoginResponse
	resp := e.do(http.MethodPost, "/api/v1/auth/register", "", registerBody("ana@example.com", 2), &res)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Ana García", res.UserName)
	assert.Equal(t, models.RoleStudent, res.Role)
	assert.NotEmpty(t, res.Token)
	assert.NotZero(t, res.UserID)

	var errRes utils.ErrorResponse
	resp = e.do(http.MethodPost, "/api/v1/auth/register", "", registerBody("ANA@example.com", 2), &errRes)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, errRes.Success)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)

	var errRes utils.ErrorResponse
	resp := e.do(http.MethodPost, "/api/v1/auth/register", "", controllers.RegisterRequest{Email: "nope", Password: "x"}, &errRes)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	details, ok := errRes.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "firstName")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestRegisterStaffNeedsAdmin(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodPost, "/api/v1/auth/register", "", registerBody("prof@example.com", 3), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/v1/auth/register", e.token(e.student), registerBody("prof@example.com", 3), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var res controllers.LoginResponse
	resp = e.do(http.MethodPost, "/api/v1/auth/register", e.token(e.admin), registerBody("prof@example.com", 3), &res)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.RoleInstructor, res.Role)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodPost, "/api/v1/auth/login", "", controllers.LoginRequest{Email: "student@example.com", Password: "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/v1/auth/login", "", controllers.LoginRequest{Email: "missing@example.com", Password: testutil.Password}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var res controllers.LoginResponse
	resp = e.do(http.MethodPost, "/api/v1/auth/login", "", controllers.LoginRequest{Email: "Student@Example.com", Password: testutil.Password}, &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, e.student.ID, res.UserID)

	var me models.User
	resp = e.do(http.MethodGet, "/api/v1/users/me", res.Token, nil, &me)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "student@example.com", me.Email)
	assert.NotNil(t, me.LastActiveAt)

	var logins int64
	require.NoError(t, e.db.Model(&models.LoginHistory{}).Where("user_id = ?", e.student.ID).Count(&logins).Error)
	assert.Equal(t, int64(1), logins)
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodGet, "/api/v1/users/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other := *e.cfg
	other.JWTSecret = "another-secret"
	resp = e.do(http.MethodGet, "/api/v1/users/me", testutil.Token(t, &other, e.student), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	token := e.token(e.student)

	resp := e.do(http.MethodDelete, fmt.Sprintf("/api/v1/auth/logout/%d", e.admin.ID), token, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(http.MethodDelete, fmt.Sprintf("/api/v1/auth/logout/%d", e.student.ID), token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(http.MethodGet, "/api/v1/users/me", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// a fresh token still works
	resp = e.do(http.MethodGet, "/api/v1/users/me", e.token(e.student), nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoleChecks(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodGet, "/api/v1/users", e.token(e.student), nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = e.do(http.MethodGet, "/api/v1/users", e.token(e.instructor), nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var page utils.PaginatedResponse
	resp = e.do(http.MethodGet, "/api/v1/users?role=student", e.token(e.admin), nil, &page)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), page.Total)
}
