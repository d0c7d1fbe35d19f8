package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/dto"
)

func TestStudentHandler_OwnProfile(t *testing.T) {
	server := newTestServer(t)
	token := server.signupStudent(t, "Asha Rao", "asha@school.edu")

	resp, payload := server.do(t, http.MethodPut, "/api/students/me", token, map[string]interface{}{
		"phone":        "9876543210",
		"dateOfBirth":  "2008-04-12",
		"gender":       "Female",
		"currentClass": "11",
		"school":       "Green Valley School",
		"interests":    []string{"Robotics"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var profile dto.StudentResponse
	decodeData(t, payload, &profile)
	require.True(t, profile.ProfileComplete)
	require.Equal(t, []string{"Robotics"}, profile.Interests)

	resp, payload = server.do(t, http.MethodPut, "/api/students/me", token, map[string]interface{}{
		"phone": "12345",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "phone", payload.Errors[0].Field)

	resp, _ = server.do(t, http.MethodGet, "/api/students/me", server.adminToken(t), nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestStudentHandler_StaffRoster(t *testing.T) {
	server := newTestServer(t)
	adminToken := server.adminToken(t)
	studentToken := server.signupStudent(t, "Asha Rao", "asha@school.edu")

	resp, _ := server.do(t, http.MethodGet, "/api/students", studentToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, payload := server.do(t, http.MethodPost, "/api/students", adminToken, map[string]interface{}{
		"firstName":    "Kiran",
		"lastName":     "Das",
		"email":        "kiran@school.edu",
		"currentClass": "12",
		"riskLevel":    "High",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created dto.StudentResponse
	decodeData(t, payload, &created)
	require.Equal(t, "High", created.RiskLevel)

	resp, _ = server.do(t, http.MethodPost, "/api/students", adminToken, map[string]interface{}{
		"firstName": "Kiran",
		"email":     "kiran@school.edu",
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, payload = server.do(t, http.MethodGet, "/api/students?riskLevel=High", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list dto.StudentListResponse
	decodeData(t, payload, &list)
	require.Len(t, list.Records, 1)
	require.Equal(t, "kiran@school.edu", list.Records[0].Email)

	path := fmt.Sprintf("/api/students/%d", created.ID)
	resp, _ = server.do(t, http.MethodPost, path+"/notes", adminToken, map[string]string{"notes": "Follow up on exam stress"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, payload = server.do(t, http.MethodGet, path, adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var detail dto.StudentResponse
	decodeData(t, payload, &detail)
	require.Len(t, detail.Notes, 1)

	resp, payload = server.do(t, http.MethodPut, path, adminToken, map[string]interface{}{"status": "Graduated"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, payload, &detail)
	require.Equal(t, "Graduated", detail.Status)

	resp, _ = server.do(t, http.MethodDelete, path, adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = server.do(t, http.MethodGet, path, adminToken, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStudentHandler_OverviewAlias(t *testing.T) {
	server := newTestServer(t)
	server.signupStudent(t, "Asha Rao", "asha@school.edu")

	resp, payload := server.do(t, http.MethodGet, "/api/students/stats/overview", server.adminToken(t), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats dto.StudentStats
	decodeData(t, payload, &stats)
	require.Equal(t, int64(1), stats.Total)
}
