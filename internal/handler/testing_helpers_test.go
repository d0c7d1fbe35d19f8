package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/config"
	"github.com/noah-isme/counseling-api/internal/handler"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/repository"
	"github.com/noah-isme/counseling-api/internal/router"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/pkg/mailer"
)

const (
	adminEmail    = "counsellor@atmachetna.com"
	adminPassword = "admin123"
)

type stubMailer struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failWith error
}

func (m *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *stubMailer) Verify(context.Context) error {
	return m.failWith
}

func (m *stubMailer) Name() string {
	return "stub"
}

type testServer struct {
	app  *fiber.App
	db   *gorm.DB
	mail *stubMailer
	feed service.LiveFeed
}

type envelope struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    json.RawMessage      `json:"data"`
	Errors  []service.FieldError `json:"errors"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	// The confirmation email runs in the background; one connection serialises its writes.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cfg := config.Config{AppName: "Counseling API", AppEnv: "test"}
	log := zerolog.Nop()
	validate := service.NewValidator()
	hasher := auth.NewPasswordHasher(4)
	tokens := auth.NewTokenManager("handler-secret", time.Hour)
	mail := &stubMailer{}

	students := repository.NewStudentRepository(db)
	admins := repository.NewAdminRepository(db)
	appointments := repository.NewAppointmentRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), log)
	authService := service.NewAuthService(students, admins, tokens, hasher, validate, activity, log)
	studentService := service.NewStudentService(students, hasher, validate, activity, log)
	notifications := service.NewNotificationService(appointments, students, repository.NewEmailDeliveryRepository(db), mail, cfg.AppName, validate, log)
	feed := service.NewLiveFeed(nil, "", log)
	appointmentService := service.NewAppointmentService(appointments, students, admins, validate, activity, service.NewEventPublisher(nil, nil, "", log, feed), notifications, time.Second, log)
	statsService := service.NewStatsService(repository.NewStatsRepository(db), nil, time.Minute, log)

	_, err = authService.BootstrapAdmin(context.Background(), "Counsellor Admin", adminEmail, adminPassword)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler(log, true)})
	middleware.Register(app, middleware.Config{Logger: &log})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:          handler.NewAuthHandler(authService, log),
		StudentHandler:       handler.NewStudentHandler(studentService, log),
		AppointmentHandler:   handler.NewAppointmentHandler(appointmentService, log),
		StatsHandler:         handler.NewStatsHandler(statsService, log),
		EmailHandler:         handler.NewEmailHandler(notifications, log),
		ActivityHandler:      handler.NewActivityHandler(activity, log),
		LiveFeedHandler:      handler.NewLiveFeedHandler(feed, log),
		Authenticate:         middleware.Authenticate(authService, log),
		OptionalAuthenticate: middleware.OptionalAuthenticate(authService, log),
		LoginLimiter:         middleware.RateLimit("auth", 1000, time.Minute),
	})

	return &testServer{app: app, db: db, mail: mail, feed: feed}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	resp, payload := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
		"userType": "admin",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return tokenFrom(t, payload)
}

func (s *testServer) signupStudent(t *testing.T, name, email string) string {
	t.Helper()
	resp, payload := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "secret123",
		"userType": "student",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return tokenFrom(t, payload)
}

func (s *testServer) requestAppointment(t *testing.T, token string) uint {
	t.Helper()
	resp, payload := s.do(t, http.MethodPost, "/api/appointments", token, map[string]interface{}{
		"requestedDate": time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02"),
		"requestedTime": "10:00 AM",
		"type":          models.AppointmentTypeStress,
		"mode":          models.AppointmentModeVideo,
		"reason":        "Exam anxiety",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var appointment struct {
		ID uint `json:"id"`
	}
	decodeData(t, payload, &appointment)
	return appointment.ID
}

func tokenFrom(t *testing.T, payload envelope) string {
	t.Helper()
	var data struct {
		Token string `json:"token"`
	}
	decodeData(t, payload, &data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func decodeData(t *testing.T, payload envelope, target interface{}) {
	t.Helper()
	require.NotEmpty(t, payload.Data)
	require.NoError(t, json.Unmarshal(payload.Data, target))
}
