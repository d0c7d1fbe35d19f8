package handler_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func fetchJSON(t *testing.T, server *testServer, path, token string) interface{} {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := server.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestAppointmentContract(t *testing.T) {
	schema := compileSchema(t, "appointment.schema.json")
	server := newTestServer(t)
	token := server.signupStudent(t, "Asha Rao", "asha@school.edu")
	id := server.requestAppointment(t, token)

	payload := fetchJSON(t, server, fmt.Sprintf("/api/appointments/%d", id), token)
	require.NoError(t, schema.Validate(payload))
}

func TestDashboardContract(t *testing.T) {
	schema := compileSchema(t, "dashboard.schema.json")
	server := newTestServer(t)
	token := server.signupStudent(t, "Asha Rao", "asha@school.edu")
	server.requestAppointment(t, token)

	payload := fetchJSON(t, server, "/api/stats/dashboard", server.adminToken(t))
	require.NoError(t, schema.Validate(payload))
}
