package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"learning-platform/backend/controllers"
	"learning-platform/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgeAdmin(t *testing.T) {
	e := newEnv(t)
	course := e.createCourse(e.admin, courseRequest(e.module.ID, "Con insignia", true, "A"))
	admin := e.token(e.admin)

	var badge models.Badge
	resp := e.do(http.MethodPost, "/api/v1/badges", admin, controllers.BadgeRequest{Name: "Oro", CourseID: &course.ID}, &badge)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/v1/badges", admin, controllers.BadgeRequest{Name: "Plata", CourseID: &course.ID}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	missing := uint(999)
	resp = e.do(http.MethodPost, "/api/v1/badges", admin, controllers.BadgeRequest{Name: "Bronce", CourseID: &missing}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/v1/badges", e.token(e.instructor), controllers.BadgeRequest{Name: "X"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var courseBadge models.Badge
	resp = e.do(http.MethodGet, fmt.Sprintf("/api/v1/badges/%d/badge", course.ID), e.token(e.student), nil, &courseBadge)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, badge.ID, courseBadge.ID)

	var updated models.Badge
	resp = e.do(http.MethodPut, fmt.Sprintf("/api/v1/badges/%d", badge.ID), admin, controllers.BadgeRequest{Name: "Oro puro", CourseID: &course.ID}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Oro puro", updated.Name)

	resp = e.do(http.MethodDelete, fmt.Sprintf("/api/v1/badges/%d", badge.ID), admin, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(http.MethodGet, fmt.Sprintf("/api/v1/badges/%d/badge", course.ID), e.token(e.student), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssignBadgeEndpoint(t *testing.T) {
	e := newEnv(t)
	course := e.createCourse(e.admin, courseRequest(e.module.ID, "Reclamar", true, "A"))
	var badge models.Badge
	e.do(http.MethodPost, "/api/v1/badges", e.token(e.admin), controllers.BadgeRequest{Name: "Oro", CourseID: &course.ID}, &badge)

	body := controllers.AssignBadgeRequest{BadgeID: badge.ID, CourseID: course.ID, AwardedAt: "2024-01-01T00:00:00Z"}
	resp := e.do(http.MethodPost, "/api/v1/badges/assingBadge", e.token(e.student), body, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// completing the course awards it; claiming afterwards is a no-op
	e.complete(e.student, course, 0)
	var award models.BadgeAward
	resp = e.do(http.MethodPost, "/api/v1/badges/assignBadge", e.token(e.student), body, &award)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, badge.ID, award.BadgeID)

	body.UserID = e.instructor.ID
	resp = e.do(http.MethodPost, "/api/v1/badges/assingBadge", e.token(e.admin), body, &award)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, e.instructor.ID, award.UserID)

	var held []models.BadgeAward
	resp = e.do(http.MethodGet, fmt.Sprintf("/api/v1/badges/me/%d", e.instructor.ID), e.token(e.student), nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = e.do(http.MethodGet, fmt.Sprintf("/api/v1/badges/me/%d", e.instructor.ID), e.token(e.instructor), nil, &held)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, held, 1)
}
