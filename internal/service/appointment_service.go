package service

import (
	"context"
	"errors"
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
)

const defaultCancelReason = "Appointment cancelled"

// ConfirmationNotifier sends the confirmation email for a confirmed appointment.
type ConfirmationNotifier interface {
	NotifyConfirmed(ctx context.Context, appointmentID uint) error
}

// AppointmentService drives the appointment lifecycle.
type AppointmentService interface {
	Request(ctx context.Context, actor auth.Principal, req dto.AppointmentCreateRequest) (dto.AppointmentResponse, error)
	Get(ctx context.Context, actor auth.Principal, id uint) (dto.AppointmentResponse, error)
	List(ctx context.Context, actor auth.Principal, req dto.AppointmentListRequest) (dto.AppointmentListResponse, error)
	ListPending(ctx context.Context, actor auth.Principal) ([]dto.AppointmentResponse, error)
	Confirm(ctx context.Context, actor auth.Principal, id uint, req dto.ConfirmAppointmentRequest) (dto.AppointmentResponse, error)
	Start(ctx context.Context, actor auth.Principal, id uint, req dto.TransitionRequest) (dto.AppointmentResponse, error)
	Complete(ctx context.Context, actor auth.Principal, id uint, req dto.CompleteAppointmentRequest) (dto.AppointmentResponse, error)
	MarkNoShow(ctx context.Context, actor auth.Principal, id uint, req dto.TransitionRequest) (dto.AppointmentResponse, error)
	Cancel(ctx context.Context, actor auth.Principal, id uint, req dto.CancelAppointmentRequest) (dto.AppointmentResponse, error)
	Reschedule(ctx context.Context, actor auth.Principal, id uint, req dto.RescheduleAppointmentRequest) (dto.AppointmentResponse, error)
	MarkStatus(ctx context.Context, actor auth.Principal, id uint, req dto.StatusOverrideRequest) (dto.AppointmentResponse, error)
	Update(ctx context.Context, actor auth.Principal, id uint, req dto.AppointmentUpdateRequest) (dto.AppointmentResponse, error)
	SubmitFeedback(ctx context.Context, actor auth.Principal, id uint, req dto.FeedbackRequest) (dto.AppointmentResponse, error)
	Delete(ctx context.Context, actor auth.Principal, id uint) error
}

type appointmentService struct {
	repo          repository.AppointmentRepository
	students      repository.StudentRepository
	admins        repository.AdminRepository
	validator     *validator.Validate
	activity      ActivityRecorder
	events        EventPublisher
	notifier      ConfirmationNotifier
	notifyTimeout time.Duration
	dispatch      func(func())
	sanitizer     textSanitizer
	tracer        trace.Tracer
	now           func() time.Time
	logger        zerolog.Logger
}

// NewAppointmentService constructs the appointment workflow service. events and notifier may be nil.
func NewAppointmentService(
	repo repository.AppointmentRepository,
	students repository.StudentRepository,
	admins repository.AdminRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	events EventPublisher,
	notifier ConfirmationNotifier,
	notifyTimeout time.Duration,
	logger zerolog.Logger,
) AppointmentService {
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}

	return &appointmentService{
		repo:          repo,
		students:      students,
		admins:        admins,
		validator:     validate,
		activity:      activity,
		events:        events,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		dispatch:      func(fn func()) { go fn() },
		sanitizer:     newTextSanitizer(),
		tracer:        otel.Tracer("github.com/noah-isme/counseling-api/internal/service/appointment"),
		now:           time.Now,
		logger:        logger.With().Str("component", "appointment_service").Logger(),
	}
}

func (s *appointmentService) Request(ctx context.Context, actor auth.Principal, req dto.AppointmentCreateRequest) (dto.AppointmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	requestedDate, err := parseDate("requestedDate", req.RequestedDate)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}
	requestedTime, err := requiredText("requestedTime", req.RequestedTime)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}

	reason := s.sanitizer.clean(req.Reason)
	if reason == "" {
		return dto.AppointmentResponse{}, newValidationError("reason", "must not be empty")
	}

	studentID := actor.ID
	requestedBy := "Student"
	if actor.IsStaff() {
		if req.StudentID == nil {
			return dto.AppointmentResponse{}, newValidationError("studentId", "is required when booking for a student")
		}
		studentID = *req.StudentID
		requestedBy = "Counsellor"
	} else if !actor.IsStudent() {
		return dto.AppointmentResponse{}, ErrForbidden
	}
	if req.RequestedBy != "" {
		requestedBy = req.RequestedBy
	}

	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AppointmentResponse{}, ErrStudentNotFound
		}
		return dto.AppointmentResponse{}, err
	}

	appointment := models.Appointment{
		StudentID: studentID,
		Details: models.AppointmentDetails{
			RequestedDate: requestedDate,
			RequestedTime: requestedTime,
			Duration:      req.Duration,
			Type:          req.Type,
			Mode:          req.Mode,
			Priority:      req.Priority,
		},
		Reason:          reason,
		StudentConcerns: s.sanitizer.clean(req.StudentConcerns),
		Status:          models.AppointmentStatusPending,
		SessionNotes:    models.SessionNotes{ActionItems: jsonStrings(nil)},
		RequestedBy:     requestedBy,
		UrgencyLevel:    req.UrgencyLevel,
	}
	if appointment.Details.Duration == 0 {
		appointment.Details.Duration = 60
	}
	if appointment.Details.Priority == "" {
		appointment.Details.Priority = models.PriorityMedium
	}
	if appointment.UrgencyLevel == "" {
		appointment.UrgencyLevel = "Normal"
	}

	if err := s.repo.Create(ctx, &appointment); err != nil {
		return dto.AppointmentResponse{}, err
	}

	stored, err := s.repo.GetByID(ctx, appointment.ID)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}

	response := dto.NewAppointmentResponse(stored)
	s.afterTransition(ctx, actor, transitionRequest, "", stored)
	return response, nil
}

func (s *appointmentService) Get(ctx context.Context, actor auth.Principal, id uint) (dto.AppointmentResponse, error) {
	appointment, err := s.loadScoped(ctx, actor, id)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}
	return dto.NewAppointmentResponse(appointment), nil
}

func (s *appointmentService) List(ctx context.Context, actor auth.Principal, req dto.AppointmentListRequest) (dto.AppointmentListResponse, error) {
	pageSize := repository.NormalizePageSize(req.Limit)
	page := req.Page
	if page <= 0 {
		page = 1
	}

	filter := repository.AppointmentFilter{
		Search:    strings.TrimSpace(req.Search),
		Status:    strings.TrimSpace(req.Status),
		Type:      strings.TrimSpace(req.Type),
		Priority:  strings.TrimSpace(req.Priority),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      page,
		PageSize:  pageSize,
	}

	if filter.Status != "" && !models.AppointmentStatus(filter.Status).Valid() {
		return dto.AppointmentListResponse{}, newValidationError("status", "is not a known appointment status")
	}

	if date := strings.TrimSpace(req.Date); date != "" {
		day, err := parseDate("date", date)
		if err != nil {
			return dto.AppointmentListResponse{}, err
		}
		start, end := dayBounds(day)
		filter.DayStart = &start
		filter.DayEnd = &end
	}

	if !actor.IsStaff() {
		studentID := actor.ID
		filter.StudentID = &studentID
	}

	appointments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AppointmentListResponse{}, err
	}

	records := make([]dto.AppointmentResponse, 0, len(appointments))
	for _, appointment := range appointments {
		records = append(records, dto.NewAppointmentResponse(appointment))
	}

	return dto.AppointmentListResponse{
		Records:    records,
		Pagination: dto.NewPagination(page, pageSize, total),
	}, nil
}

// ListPending returns the pending queue, oldest requested date first.
func (s *appointmentService) ListPending(ctx context.Context, actor auth.Principal) ([]dto.AppointmentResponse, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	appointments, _, err := s.repo.List(ctx, repository.AppointmentFilter{
		Status:    string(models.AppointmentStatusPending),
		SortBy:    "requestedDate",
		SortOrder: "asc",
		Page:      1,
		PageSize:  repository.NormalizePageSize(100),
	})
	if err != nil {
		return nil, err
	}

	records := make([]dto.AppointmentResponse, 0, len(appointments))
	for _, appointment := range appointments {
		records = append(records, dto.NewAppointmentResponse(appointment))
	}
	return records, nil
}

func (s *appointmentService) Confirm(ctx context.Context, actor auth.Principal, id uint, req dto.ConfirmAppointmentRequest) (dto.AppointmentResponse, error) {
	if !actor.IsStaff() {
		return dto.AppointmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	confirmedDate, err := parseDate("confirmedDate", req.ConfirmedDate)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}
	confirmedTime, err := requiredText("confirmedTime", req.ConfirmedTime)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}
	notes := s.sanitizer.clean(req.Notes)

	response, err := s.transition(ctx, actor, id, req.Version, models.AppointmentStatusConfirmed, func(a *models.Appointment) {
		at := s.now().UTC()
		a.Details.ConfirmedDate = &confirmedDate
		a.Details.ConfirmedTime = confirmedTime
		a.Communication.ConfirmationSent = true
		a.Communication.ConfirmationSentDate = &at
		if a.CounsellorID == nil && actor.Kind == auth.KindAdmin {
			counsellorID := actor.ID
			a.CounsellorID = &counsellorID
		}
		if notes != "" {
			a.SessionNotes.PreSessionNotes = notes
		}
	})
	if err != nil {
		return dto.AppointmentResponse{}, err
	}

	s.notifyConfirmed(ctx, response.ID)
	return response, nil
}

func (s *appointmentService) Start(ctx context.Context, actor auth.Principal, id uint, req dto.TransitionRequest) (dto.AppointmentResponse, error) {
	if !actor.IsStaff() {
		return dto.AppointmentResponse{}, ErrForbidden
	}
	return s.transition(ctx, actor, id, req.Version, models.AppointmentStatusInProgress, nil)
}

// Complete merges the provided session data. Omitted fields keep their stored values.
func (s *appointmentService) Complete(ctx context.Context, actor auth.Principal, id uint, req dto.CompleteAppointmentRequest) (dto.AppointmentResponse, error) {
	if !actor.IsStaff() {
		return dto.AppointmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	var followUpDate *time.Time
	if req.FollowUpDate != nil && strings.TrimSpace(*req.FollowUpDate) != "" {
		parsed, err := parseDate("followUpDate", *req.FollowUpDate)
		if err != nil {
			return dto.AppointmentResponse{}, err
		}
		followUpDate = &parsed
	}

	return s.transition(ctx, actor, id, req.Version, models.AppointmentStatusCompleted, func(a *models.Appointment) {
		notes := &a.SessionNotes
		if req.SessionSummary != nil {
			notes.SessionSummary = s.sanitizer.clean(*req.SessionSummary)
		}
		if req.ActionItems != nil {
			notes.ActionItems = jsonStrings(s.sanitizer.cleanAll(req.ActionItems))
		}
		if req.FollowUpRequired != nil {
			notes.FollowUpRequired = *req.FollowUpRequired
		}
		if followUpDate != nil {
			notes.FollowUpDate = followUpDate
		}
		if req.Recommendations != nil {
			notes.Recommendations = s.sanitizer.clean(*req.Recommendations)
		}
		if req.NextSteps != nil {
			notes.NextSteps = s.sanitizer.clean(*req.NextSteps)
		}
	})
}

func (s *appointmentService) MarkNoShow(ctx context.Context, actor auth.Principal, id uint, req dto.TransitionRequest) (dto.AppointmentResponse, error) {
	if !actor.IsStaff() {
		return dto.AppointmentResponse{}, ErrForbidden
	}
	return s.transition(ctx, actor, id, req.Version, models.AppointmentStatusNoShow, nil)
}

// Cancel is open to staff and to the owning student.
func (s *appointmentService) Cancel(ctx context.Context, actor auth.Principal, id uint, req dto.CancelAppointmentRequest) (dto.AppointmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	reason := s.sanitizer.clean(req.Reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	return s.transition(ctx, actor, id, req.Version, models.AppointmentStatusCancelled, func(a *models.Appointment) {
		a.SessionNotes.PreSessionNotes = reason
	})
}

// Reschedule replaces the requested slot and drops any confirmation.
func (s *appointmentService) Reschedule(ctx context.Context, actor auth.Principal, id uint, req dto.RescheduleAppointmentRequest) (dto.AppointmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	requestedDate, err := parseDate("requestedDate", req.RequestedDate)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}
	requestedTime, err := requiredText("requestedTime", req.RequestedTime)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}
	reason := s.sanitizer.clean(req.Reason)

	return s.transition(ctx, actor, id, req.Version, models.AppointmentStatusRescheduled, func(a *models.Appointment) {
		a.Details.RequestedDate = requestedDate
		a.Details.RequestedTime = requestedTime
		a.Details.ConfirmedDate = nil
		a.Details.ConfirmedTime = ""
		if reason != "" {
			a.SessionNotes.PreSessionNotes = reason
		}
	})
}

// MarkStatus is the staff override. It still goes through the transition table so it
// cannot leave an appointment in a state the granular operations would reject.
func (s *appointmentService) MarkStatus(ctx context.Context, actor auth.Principal, id uint, req dto.StatusOverrideRequest) (dto.AppointmentResponse, error) {
	if !actor.IsStaff() {
		return dto.AppointmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	target := models.AppointmentStatus(req.Status)
	var apply func(*models.Appointment)

	switch target {
	case models.AppointmentStatusConfirmed:
		apply = func(a *models.Appointment) {
			if a.Details.ConfirmedDate == nil {
				requested := a.Details.RequestedDate
				a.Details.ConfirmedDate = &requested
			}
			if a.Details.ConfirmedTime == "" {
				a.Details.ConfirmedTime = a.Details.RequestedTime
			}
		}
	case models.AppointmentStatusCancelled:
		apply = func(a *models.Appointment) {
			a.SessionNotes.PreSessionNotes = defaultCancelReason
		}
	case models.AppointmentStatusPending:
		apply = func(a *models.Appointment) {
			a.Details.ConfirmedDate = nil
			a.Details.ConfirmedTime = ""
		}
	case models.AppointmentStatusCompleted:
	default:
		return dto.AppointmentResponse{}, newValidationError("status", "must be one of Pending, Confirmed, Completed, Cancelled")
	}

	response, err := s.transition(ctx, actor, id, req.Version, target, apply)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}
	if target == models.AppointmentStatusConfirmed {
		s.notifyConfirmed(ctx, response.ID)
	}
	return response, nil
}

// Update edits non-status fields.
func (s *appointmentService) Update(ctx context.Context, actor auth.Principal, id uint, req dto.AppointmentUpdateRequest) (dto.AppointmentResponse, error) {
	if !actor.IsStaff() {
		return dto.AppointmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	if req.CounsellorID != nil {
		if _, err := s.admins.GetByID(ctx, *req.CounsellorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.AppointmentResponse{}, newValidationError("counsellorId", "does not reference a staff account")
			}
			return dto.AppointmentResponse{}, err
		}
	}

	var reason string
	if req.Reason != nil {
		reason = s.sanitizer.clean(*req.Reason)
		if reason == "" {
			return dto.AppointmentResponse{}, newValidationError("reason", "must not be empty")
		}
	}

	return s.mutate(ctx, actor, id, req.Version, "updated", func(a *models.Appointment) error {
		if req.CounsellorID != nil {
			counsellorID := *req.CounsellorID
			a.CounsellorID = &counsellorID
		}
		if req.Duration != nil {
			a.Details.Duration = *req.Duration
		}
		if req.Type != nil {
			a.Details.Type = *req.Type
		}
		if req.Mode != nil {
			a.Details.Mode = *req.Mode
		}
		if req.Priority != nil {
			a.Details.Priority = *req.Priority
		}
		if req.Reason != nil {
			a.Reason = reason
		}
		if req.StudentConcerns != nil {
			a.StudentConcerns = s.sanitizer.clean(*req.StudentConcerns)
		}
		if req.PreSessionNotes != nil {
			a.SessionNotes.PreSessionNotes = s.sanitizer.clean(*req.PreSessionNotes)
		}
		if req.UrgencyLevel != nil {
			a.UrgencyLevel = *req.UrgencyLevel
		}
		return nil
	})
}

// SubmitFeedback stores the caller's rating. Students rate as the student side, staff as the counsellor side.
func (s *appointmentService) SubmitFeedback(ctx context.Context, actor auth.Principal, id uint, req dto.FeedbackRequest) (dto.AppointmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	comments := s.sanitizer.clean(req.Comments)
	rating := req.Rating

	return s.mutate(ctx, actor, id, req.Version, "feedback", func(a *models.Appointment) error {
		if a.Status != models.AppointmentStatusCompleted {
			return ErrFeedbackNotAllowed
		}
		if actor.IsStudent() {
			a.Feedback.StudentRating = &rating
			a.Feedback.StudentComments = comments
		} else {
			a.Feedback.CounsellorRating = &rating
			a.Feedback.CounsellorComments = comments
		}
		return nil
	})
}

func (s *appointmentService) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAppointmentNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "appointment.deleted", "appointment", id, nil)
	return nil
}

// transition moves an appointment to the target status after checking the workflow table.
// apply runs only when the move is allowed and must not touch Status.
func (s *appointmentService) transition(ctx context.Context, actor auth.Principal, id uint, version *int, to models.AppointmentStatus, apply func(*models.Appointment)) (dto.AppointmentResponse, error) {
	name := transitionName(to)
	ctx, span := s.tracer.Start(ctx, "appointments."+name, trace.WithAttributes(
		attribute.Int64("appointment.id", int64(id)),
		attribute.String("appointment.target_status", string(to)),
		attribute.String("actor.role", actor.Role),
	))
	defer span.End()

	var from models.AppointmentStatus
	appointment, err := s.save(ctx, actor, id, version, func(a *models.Appointment) error {
		from = a.Status
		if err := checkTransition(a.Status, to); err != nil {
			return err
		}
		if apply != nil {
			apply(a)
		}
		a.Status = to
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.AppointmentResponse{}, err
	}

	if to == models.AppointmentStatusCompleted && strings.TrimSpace(appointment.SessionNotes.SessionSummary) == "" {
		s.logger.Warn().Uint("appointment_id", id).Msg("appointment completed without a session summary")
	}

	span.SetAttributes(attribute.Int("appointment.version", appointment.Version))
	s.afterTransition(ctx, actor, name, from, appointment)
	return s.responseFor(appointment), nil
}

// mutate applies a non-status change under the version check.
func (s *appointmentService) mutate(ctx context.Context, actor auth.Principal, id uint, version *int, action string, apply func(*models.Appointment) error) (dto.AppointmentResponse, error) {
	appointment, err := s.save(ctx, actor, id, version, apply)
	if err != nil {
		return dto.AppointmentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "appointment."+action, "appointment", id, map[string]interface{}{
		"version": appointment.Version,
	})
	return s.responseFor(appointment), nil
}

// save loads the appointment within the caller's scope, applies fn and writes it back
// with a conditional update on the expected version.
func (s *appointmentService) save(ctx context.Context, actor auth.Principal, id uint, version *int, fn func(*models.Appointment) error) (models.Appointment, error) {
	appointment, err := s.loadScoped(ctx, actor, id)
	if err != nil {
		return models.Appointment{}, err
	}

	expected := appointment.Version
	if version != nil {
		if *version != appointment.Version {
			return models.Appointment{}, ErrVersionConflict
		}
		expected = *version
	}

	previous := appointment.Status
	counsellorID := appointment.CounsellorID
	if err := fn(&appointment); err != nil {
		return models.Appointment{}, err
	}

	if appointment.Status == models.AppointmentStatusCompleted && previous != models.AppointmentStatusCompleted {
		err = s.repo.CompleteVersioned(ctx, &appointment, expected)
	} else {
		err = s.repo.UpdateVersioned(ctx, &appointment, expected)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleVersion):
			return models.Appointment{}, ErrVersionConflict
		case errors.Is(err, gorm.ErrRecordNotFound):
			return models.Appointment{}, ErrAppointmentNotFound
		default:
			return models.Appointment{}, err
		}
	}

	if !sameCounsellor(counsellorID, appointment.CounsellorID) {
		reloaded, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return models.Appointment{}, err
		}
		return reloaded, nil
	}

	return appointment, nil
}

func sameCounsellor(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *appointmentService) loadScoped(ctx context.Context, actor auth.Principal, id uint) (models.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Appointment{}, ErrAppointmentNotFound
		}
		return models.Appointment{}, err
	}

	if !actor.IsStaff() && appointment.StudentID != actor.ID {
		return models.Appointment{}, ErrAppointmentNotFound
	}
	return appointment, nil
}

func (s *appointmentService) responseFor(appointment models.Appointment) dto.AppointmentResponse {
	return dto.NewAppointmentResponse(appointment)
}

func (s *appointmentService) afterTransition(ctx context.Context, actor auth.Principal, name string, from models.AppointmentStatus, appointment models.Appointment) {
	observability.AppointmentTransitions().WithLabelValues(name, string(appointment.Status)).Inc()

	metadata := map[string]interface{}{
		"to":      string(appointment.Status),
		"version": appointment.Version,
	}
	if from != "" {
		metadata["from"] = string(from)
	}
	recordActivity(ctx, s.activity, s.logger, actor, "appointment."+name, "appointment", appointment.ID, metadata)

	if s.events != nil {
		s.events.Publish(ctx, name, dto.NewAppointmentResponse(appointment), actor.ID, actor.Role)
	}

	s.logger.Info().
		Uint("appointment_id", appointment.ID).
		Str("transition", name).
		Str("status", string(appointment.Status)).
		Int("version", appointment.Version).
		Msg("appointment transition committed")
}

// notifyConfirmed sends the confirmation email off the request path. The request
// context is detached so the send outlives the HTTP response.
func (s *appointmentService) notifyConfirmed(ctx context.Context, id uint) {
	if s.notifier == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	s.dispatch(func() {
		notifyCtx, cancel := context.WithTimeout(detached, s.notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyConfirmed(notifyCtx, id); err != nil {
			s.logger.Warn().Err(err).
				Uint("appointment_id", id).
				Str("correlation_id", observability.CorrelationID(notifyCtx)).
				Msg("confirmation email failed")
		}
	})
}
