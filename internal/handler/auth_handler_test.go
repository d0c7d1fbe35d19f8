package handler_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/dto"
)

func TestAuthHandler_SignupLoginAndMe(t *testing.T) {
	server := newTestServer(t)

	token := server.signupStudent(t, "Asha Rao", "asha@school.edu")

	resp, payload := server.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me dto.MeResponse
	decodeData(t, payload, &me)
	require.Equal(t, dto.UserTypeStudent, me.UserType)
	require.Equal(t, "asha@school.edu", me.User.Email)
	require.NotNil(t, me.User.ProfileComplete)
	require.False(t, *me.User.ProfileComplete)

	resp, payload = server.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ASHA@school.edu",
		"password": "secret123",
		"userType": "student",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "login successful", payload.Message)

	resp, payload = server.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "asha@school.edu",
		"password": "wrong-password",
		"userType": "student",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.False(t, payload.Success)
	require.Equal(t, "invalid credentials", payload.Message)
}

func TestAuthHandler_SignupValidationAndDuplicates(t *testing.T) {
	server := newTestServer(t)

	resp, payload := server.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "not-an-email",
		"password": "123",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation failed", payload.Message)
	fields := make([]string, 0, len(payload.Errors))
	for _, fieldErr := range payload.Errors {
		fields = append(fields, fieldErr.Field)
	}
	require.ElementsMatch(t, []string{"email", "password"}, fields)

	server.signupStudent(t, "Asha Rao", "asha@school.edu")
	resp, _ = server.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name":     "Asha Again",
		"email":    "asha@school.edu",
		"password": "secret123",
		"userType": "student",
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestAuthHandler_StaffSignupRequiresAdmin(t *testing.T) {
	server := newTestServer(t)
	body := map[string]string{
		"name":     "Meera Counsellor",
		"email":    "meera@school.edu",
		"password": "secret123",
		"userType": "admin",
	}

	resp, _ := server.do(t, http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	studentToken := server.signupStudent(t, "Asha Rao", "asha@school.edu")
	resp, _ = server.do(t, http.MethodPost, "/api/auth/signup", studentToken, body)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, payload := server.do(t, http.MethodPost, "/api/auth/signup", server.adminToken(t), body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created dto.AuthResponse
	decodeData(t, payload, &created)
	require.Equal(t, "counsellor", created.User.Role)
}

func TestAuthHandler_ProtectedRoutesRequireToken(t *testing.T) {
	server := newTestServer(t)

	resp, _ := server.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = server.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, payload := server.do(t, http.MethodPost, "/api/auth/logout", server.adminToken(t), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "logged out successfully", payload.Message)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	server := newTestServer(t)
	token := server.signupStudent(t, "Asha Rao", "asha@school.edu")

	resp, _ := server.do(t, http.MethodPut, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "nope",
		"newPassword":     "another123",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = server.do(t, http.MethodPut, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "secret123",
		"newPassword":     "another123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = server.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "asha@school.edu",
		"password": "another123",
		"userType": "student",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
