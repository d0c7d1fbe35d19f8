package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/repository"
	"github.com/noah-isme/counseling-api/pkg/mailer"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type recordingMailer struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failWith error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Verify(context.Context) error {
	return m.failWith
}

func (m *recordingMailer) Name() string {
	return "recording"
}

func (m *recordingMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mailer.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

type publishedEvent struct {
	transition string
	status     string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, transition string, appointment dto.AppointmentResponse, _ uint, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{transition: transition, status: appointment.Status})
}

func (p *recordingPublisher) transitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, event := range p.events {
		names = append(names, event.transition)
	}
	return names
}

type testEnv struct {
	db            *gorm.DB
	students      repository.StudentRepository
	admins        repository.AdminRepository
	appointments  repository.AppointmentRepository
	deliveries    repository.EmailDeliveryRepository
	activity      ActivityService
	tokens        *auth.TokenManager
	auth          AuthService
	studentSvc    StudentService
	appointmentSv *appointmentService
	notifications NotificationService
	mail          *recordingMailer
	events        *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupServiceDB(t)
	validate := NewValidator()
	hasher := auth.NewPasswordHasher(4)
	log := testLogger()

	env := &testEnv{
		db:           db,
		students:     repository.NewStudentRepository(db),
		admins:       repository.NewAdminRepository(db),
		appointments: repository.NewAppointmentRepository(db),
		deliveries:   repository.NewEmailDeliveryRepository(db),
		tokens:       auth.NewTokenManager("test-secret", time.Hour),
		mail:         &recordingMailer{},
		events:       &recordingPublisher{},
	}
	env.activity = NewActivityService(repository.NewActivityLogRepository(db), log)
	env.auth = NewAuthService(env.students, env.admins, env.tokens, hasher, validate, env.activity, log)
	env.studentSvc = NewStudentService(env.students, hasher, validate, env.activity, log)
	env.notifications = NewNotificationService(env.appointments, env.students, env.deliveries, env.mail, "Atma Chetna", validate, log)

	svc := NewAppointmentService(env.appointments, env.students, env.admins, validate, env.activity, env.events, env.notifications, time.Second, log).(*appointmentService)
	svc.dispatch = func(fn func()) { fn() }
	env.appointmentSv = svc

	return env
}

func (e *testEnv) createStudent(t *testing.T, first, email string) auth.Principal {
	t.Helper()
	student := models.Student{
		FirstName: first,
		LastName:  "Sharma",
		Email:     email,
		Role:      models.RoleStudent,
		Status:    models.StudentStatusActive,
		RiskLevel: models.RiskLevelLow,
		IsActive:  true,
	}
	require.NoError(t, e.students.Create(context.Background(), &student))
	return auth.StudentPrincipal(student)
}

func (e *testEnv) createAdmin(t *testing.T, name, email, role string) auth.Principal {
	t.Helper()
	hash, err := auth.NewPasswordHasher(4).Hash("admin123")
	require.NoError(t, err)
	admin := models.Admin{Name: name, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(t, e.admins.Create(context.Background(), &admin))
	return auth.AdminPrincipal(admin)
}

func (e *testEnv) requestAppointment(t *testing.T, student auth.Principal, date string) dto.AppointmentResponse {
	t.Helper()
	response, err := e.appointmentSv.Request(context.Background(), student, dto.AppointmentCreateRequest{
		RequestedDate: date,
		RequestedTime: "10:00 AM",
		Type:          models.AppointmentTypeCareer,
		Mode:          models.AppointmentModeInPerson,
		Reason:        "Need help choosing a stream",
	})
	require.NoError(t, err)
	return response
}

func tomorrow() string {
	return time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
}

func ptrString(v string) *string {
	return &v
}

func ptrInt(v int) *int {
	return &v
}

var errSMTPDown = errors.New("smtp relay unavailable")
