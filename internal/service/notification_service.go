package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/observability"
	"github.com/noah-isme/counseling-api/internal/repository"
	"github.com/noah-isme/counseling-api/pkg/mailer"
)

// NotificationService sends appointment emails and records every attempt.
type NotificationService interface {
	ConfirmationNotifier
	SendConfirmation(ctx context.Context, actor auth.Principal, req dto.AppointmentEmailRequest) (dto.EmailDispatchResponse, error)
	SendReminder(ctx context.Context, actor auth.Principal, req dto.AppointmentEmailRequest) (dto.EmailDispatchResponse, error)
	SendFollowUp(ctx context.Context, actor auth.Principal, req dto.FollowUpEmailRequest) (dto.EmailDispatchResponse, error)
	TestTransport(ctx context.Context) dto.EmailTransportStatus
}

type notificationService struct {
	appointments repository.AppointmentRepository
	students     repository.StudentRepository
	deliveries   repository.EmailDeliveryRepository
	mailer       mailer.Mailer
	appName      string
	validator    *validator.Validate
	sanitizer    textSanitizer
	tracer       trace.Tracer
	now          func() time.Time
	logger       zerolog.Logger
}

// NewNotificationService constructs the notification service on top of a mail transport.
func NewNotificationService(
	appointments repository.AppointmentRepository,
	students repository.StudentRepository,
	deliveries repository.EmailDeliveryRepository,
	transport mailer.Mailer,
	appName string,
	validate *validator.Validate,
	logger zerolog.Logger,
) NotificationService {
	if strings.TrimSpace(appName) == "" {
		appName = "Counseling API"
	}

	return &notificationService{
		appointments: appointments,
		students:     students,
		deliveries:   deliveries,
		mailer:       transport,
		appName:      appName,
		validator:    validate,
		sanitizer:    newTextSanitizer(),
		tracer:       otel.Tracer("github.com/noah-isme/counseling-api/internal/service/notification"),
		now:          time.Now,
		logger:       logger.With().Str("component", "notification_service").Logger(),
	}
}

// NotifyConfirmed is triggered after a confirm transition commits.
func (s *notificationService) NotifyConfirmed(ctx context.Context, appointmentID uint) error {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAppointmentNotFound
		}
		return err
	}

	result, err := s.sendAppointmentEmail(ctx, nil, appointment, models.EmailKindConfirmation, "")
	if err != nil {
		return err
	}
	if !result.Delivered {
		return fmt.Errorf("%w: %s", ErrNotificationFailure, result.Error)
	}
	return nil
}

func (s *notificationService) SendConfirmation(ctx context.Context, actor auth.Principal, req dto.AppointmentEmailRequest) (dto.EmailDispatchResponse, error) {
	return s.sendForRequest(ctx, actor, req, models.EmailKindConfirmation)
}

func (s *notificationService) SendReminder(ctx context.Context, actor auth.Principal, req dto.AppointmentEmailRequest) (dto.EmailDispatchResponse, error) {
	return s.sendForRequest(ctx, actor, req, models.EmailKindReminder)
}

func (s *notificationService) SendFollowUp(ctx context.Context, actor auth.Principal, req dto.FollowUpEmailRequest) (dto.EmailDispatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EmailDispatchResponse{}, err
	}
	if !actor.IsStaff() && actor.ID != req.StudentID {
		return dto.EmailDispatchResponse{}, ErrForbidden
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EmailDispatchResponse{}, ErrStudentNotFound
		}
		return dto.EmailDispatchResponse{}, err
	}

	if req.AppointmentID != nil {
		appointment, err := s.appointments.GetByID(ctx, *req.AppointmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.EmailDispatchResponse{}, ErrAppointmentNotFound
			}
			return dto.EmailDispatchResponse{}, err
		}
		if appointment.StudentID != student.ID {
			return dto.EmailDispatchResponse{}, newValidationError("appointmentId", "does not belong to the student")
		}
	}

	subject := s.sanitizer.clean(req.Subject)
	if subject == "" {
		subject = "Follow-up from " + s.appName
	}
	message := s.sanitizer.clean(req.Message)
	if message == "" {
		return dto.EmailDispatchResponse{}, newValidationError("message", "must not be empty")
	}

	view := followUpEmailView{
		AppName:     s.appName,
		StudentName: student.FullName(),
		Paragraphs:  splitParagraphs(message),
	}
	body, err := renderTemplate(followUpTemplate, view)
	if err != nil {
		return dto.EmailDispatchResponse{}, err
	}

	studentID := student.ID
	result, err := s.dispatch(ctx, &actor, delivery{
		kind:          models.EmailKindFollowUp,
		studentID:     &studentID,
		appointmentID: req.AppointmentID,
		message: mailer.Message{
			To:      student.Email,
			ToName:  student.FullName(),
			Subject: subject,
			Text:    followUpEmailText(view),
			HTML:    body,
		},
	})
	if err != nil {
		return dto.EmailDispatchResponse{}, err
	}
	if !result.Delivered {
		return result, ErrNotificationFailure
	}

	if req.AppointmentID != nil {
		s.markCommunication(ctx, *req.AppointmentID, "email_sent", "email_sent_date")
	}
	return result, nil
}

// TestTransport checks that the configured transport accepts connections.
func (s *notificationService) TestTransport(ctx context.Context) dto.EmailTransportStatus {
	status := dto.EmailTransportStatus{Transport: s.mailer.Name(), Healthy: true}
	if err := s.mailer.Verify(ctx); err != nil {
		s.logger.Warn().Err(err).Str("transport", s.mailer.Name()).Msg("email transport check failed")
		status.Healthy = false
		status.Error = err.Error()
	}
	return status
}

func (s *notificationService) sendForRequest(ctx context.Context, actor auth.Principal, req dto.AppointmentEmailRequest, kind string) (dto.EmailDispatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EmailDispatchResponse{}, err
	}

	appointment, err := s.appointments.GetByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EmailDispatchResponse{}, ErrAppointmentNotFound
		}
		return dto.EmailDispatchResponse{}, err
	}
	if !actor.IsStaff() && appointment.StudentID != actor.ID {
		return dto.EmailDispatchResponse{}, ErrAppointmentNotFound
	}

	result, err := s.sendAppointmentEmail(ctx, &actor, appointment, kind, s.sanitizer.clean(req.CustomMessage))
	if err != nil {
		return dto.EmailDispatchResponse{}, err
	}
	if !result.Delivered {
		return result, ErrNotificationFailure
	}
	return result, nil
}

func (s *notificationService) sendAppointmentEmail(ctx context.Context, actor *auth.Principal, appointment models.Appointment, kind, customMessage string) (dto.EmailDispatchResponse, error) {
	student := appointment.Student
	if student.Email == "" {
		return dto.EmailDispatchResponse{}, ErrStudentNotFound
	}

	view := appointmentEmailView{
		AppName:       s.appName,
		StudentName:   student.FullName(),
		Date:          formatEmailDate(appointment.EffectiveDate()),
		Time:          appointment.Details.RequestedTime,
		Type:          appointment.Details.Type,
		Mode:          appointment.Details.Mode,
		CustomMessage: customMessage,
	}
	if appointment.Details.ConfirmedTime != "" {
		view.Time = appointment.Details.ConfirmedTime
	}

	var subject, flag, flagDate string
	switch kind {
	case models.EmailKindReminder:
		subject = "Appointment Reminder - " + s.appName
		view.Heading = "Appointment Reminder"
		view.Intro = "This is a reminder of your upcoming counseling appointment."
		flag, flagDate = "reminder_sent", "reminder_sent_date"
	default:
		subject = "Appointment Confirmation - " + s.appName
		view.Heading = "Appointment Confirmation"
		view.Intro = "We are pleased to confirm your counseling appointment."
		flag, flagDate = "email_sent", "email_sent_date"
	}

	body, err := renderTemplate(confirmationTemplate, view)
	if err != nil {
		return dto.EmailDispatchResponse{}, err
	}

	studentID := student.ID
	appointmentID := appointment.ID
	result, err := s.dispatch(ctx, actor, delivery{
		kind:          kind,
		studentID:     &studentID,
		appointmentID: &appointmentID,
		message: mailer.Message{
			To:      student.Email,
			ToName:  student.FullName(),
			Subject: subject,
			Text:    appointmentEmailText(view),
			HTML:    body,
		},
	})
	if err != nil {
		return dto.EmailDispatchResponse{}, err
	}

	if result.Delivered {
		s.markCommunication(ctx, appointment.ID, flag, flagDate)
	}
	return result, nil
}

type delivery struct {
	kind          string
	studentID     *uint
	appointmentID *uint
	message       mailer.Message
}

// dispatch sends one message and stores the outcome. A transport failure is reported
// through the response, not the error.
func (s *notificationService) dispatch(ctx context.Context, actor *auth.Principal, d delivery) (dto.EmailDispatchResponse, error) {
	ctx, span := s.tracer.Start(ctx, "email.dispatch", trace.WithAttributes(
		attribute.String("email.kind", d.kind),
		attribute.String("email.transport", s.mailer.Name()),
	))
	defer span.End()

	record := models.EmailDelivery{
		Kind:          d.kind,
		Recipient:     d.message.To,
		Subject:       d.message.Subject,
		StudentID:     d.studentID,
		AppointmentID: d.appointmentID,
		Status:        models.EmailStatusSent,
	}
	if actor != nil {
		sentBy := actor.ID
		record.SentBy = &sentBy
	}

	sendErr := s.mailer.Send(ctx, d.message)
	if sendErr != nil {
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, "email delivery failed")
		record.Status = models.EmailStatusFailed
		record.Error = sendErr.Error()
		s.logger.Warn().
			Err(sendErr).
			Str("kind", d.kind).
			Str("recipient", maskEmail(d.message.To)).
			Msg("email delivery failed")
	} else {
		s.logger.Info().
			Str("kind", d.kind).
			Str("recipient", maskEmail(d.message.To)).
			Msg("email delivered")
	}
	observability.EmailDispatches().WithLabelValues(d.kind, record.Status).Inc()

	// The delivery row is written even when the request context is already done.
	if err := s.deliveries.Create(context.WithoutCancel(ctx), &record); err != nil {
		s.logger.Error().Err(err).Str("kind", d.kind).Msg("failed to record email delivery")
		return dto.EmailDispatchResponse{}, err
	}

	return dto.EmailDispatchResponse{
		DeliveryID: record.ID,
		Kind:       record.Kind,
		Recipient:  record.Recipient,
		Delivered:  sendErr == nil,
		Error:      record.Error,
	}, nil
}

func (s *notificationService) markCommunication(ctx context.Context, appointmentID uint, flag, flagDate string) {
	if err := s.appointments.MarkCommunication(ctx, appointmentID, flag, flagDate, s.now().UTC()); err != nil {
		s.logger.Warn().Err(err).Uint("appointment_id", appointmentID).Str("flag", flag).Msg("failed to record communication flag")
	}
}
