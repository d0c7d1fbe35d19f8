package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/counseling-api/internal/models"
)

// ErrStaleVersion is returned when a conditional update matched no row at the expected version.
var ErrStaleVersion = errors.New("appointment version is stale")

var appointmentSortColumns = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"requestedDate": "requested_date",
	"confirmedDate": "confirmed_date",
	"status":        "status",
	"priority":      "priority",
	"type":          "type",
}

// AppointmentFilter narrows appointment listings. StudentID scopes the result to one owner.
type AppointmentFilter struct {
	StudentID *uint
	Search    string
	Status    string
	Type      string
	Priority  string
	DayStart  *time.Time
	DayEnd    *time.Time
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// AppointmentRepository persists appointments with optimistic concurrency.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id uint) (models.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, int64, error)
	UpdateVersioned(ctx context.Context, appointment *models.Appointment, expectedVersion int) error
	CompleteVersioned(ctx context.Context, appointment *models.Appointment, expectedVersion int) error
	MarkCommunication(ctx context.Context, id uint, sentFlag, sentDate string, at time.Time) error
	Delete(ctx context.Context, id uint) error
}

type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository constructs an appointment repository.
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	appointment.Version = 1
	return r.db.WithContext(ctx).Omit("Student", "Counsellor").Create(appointment).Error
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uint) (models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Counsellor").
		First(&appointment, id).Error
	if err != nil {
		return models.Appointment{}, err
	}
	return appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Appointment{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := likePattern(search)
		students := r.db.Model(&models.Student{}).
			Select("id").
			Where(
				"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ? OR LOWER(student_code) LIKE ?",
				like, like, like, like, like,
			)
		query = query.Where(r.db.Where("student_id IN (?)", students).Or("LOWER(reason) LIKE ?", like))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.DayStart != nil && filter.DayEnd != nil {
		query = query.Where("requested_date >= ? AND requested_date < ?", *filter.DayStart, *filter.DayEnd)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = orderBy(query, appointmentSortColumns, filter.SortBy, filter.SortOrder)
	query = paginate(query, filter.Page, filter.PageSize)

	var appointments []models.Appointment
	if err := query.Preload("Student").Preload("Counsellor").Find(&appointments).Error; err != nil {
		return nil, 0, err
	}

	return appointments, total, nil
}

// UpdateVersioned writes every mutable column when the stored version still equals expectedVersion.
// On success the appointment carries the bumped version.
func (r *appointmentRepository) UpdateVersioned(ctx context.Context, appointment *models.Appointment, expectedVersion int) error {
	return updateVersioned(r.db.WithContext(ctx), appointment, expectedVersion)
}

// CompleteVersioned applies the completion and bumps the student's counters in one transaction.
func (r *appointmentRepository) CompleteVersioned(ctx context.Context, appointment *models.Appointment, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, appointment, expectedVersion); err != nil {
			return err
		}

		completedAt := appointment.EffectiveDate()
		result := tx.Model(&models.Student{}).
			Where("id = ?", appointment.StudentID).
			Updates(map[string]interface{}{
				"total_appointments":     gorm.Expr("total_appointments + 1"),
				"completed_appointments": gorm.Expr("completed_appointments + 1"),
				"last_appointment_date":  completedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func updateVersioned(db *gorm.DB, appointment *models.Appointment, expectedVersion int) error {
	now := time.Now().UTC()
	columns := appointmentColumns(*appointment)
	columns["version"] = expectedVersion + 1
	columns["updated_at"] = now

	result := db.Model(&models.Appointment{}).
		Where("id = ? AND version = ?", appointment.ID, expectedVersion).
		Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.Appointment{}).Where("id = ?", appointment.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrStaleVersion
	}

	appointment.Version = expectedVersion + 1
	appointment.UpdatedAt = now
	return nil
}

func appointmentColumns(a models.Appointment) map[string]interface{} {
	return map[string]interface{}{
		"counsellor_id":                a.CounsellorID,
		"requested_date":               a.Details.RequestedDate,
		"requested_time":               a.Details.RequestedTime,
		"confirmed_date":               a.Details.ConfirmedDate,
		"confirmed_time":               a.Details.ConfirmedTime,
		"duration":                     a.Details.Duration,
		"type":                         a.Details.Type,
		"mode":                         a.Details.Mode,
		"priority":                     a.Details.Priority,
		"reason":                       a.Reason,
		"student_concerns":             a.StudentConcerns,
		"status":                       a.Status,
		"notes_pre_session_notes":      a.SessionNotes.PreSessionNotes,
		"notes_session_summary":        a.SessionNotes.SessionSummary,
		"notes_action_items":           a.SessionNotes.ActionItems,
		"notes_follow_up_required":     a.SessionNotes.FollowUpRequired,
		"notes_follow_up_date":         a.SessionNotes.FollowUpDate,
		"notes_recommendations":        a.SessionNotes.Recommendations,
		"notes_next_steps":             a.SessionNotes.NextSteps,
		"email_sent":                   a.Communication.EmailSent,
		"email_sent_date":              a.Communication.EmailSentDate,
		"reminder_sent":                a.Communication.ReminderSent,
		"reminder_sent_date":           a.Communication.ReminderSentDate,
		"confirmation_sent":            a.Communication.ConfirmationSent,
		"confirmation_sent_date":       a.Communication.ConfirmationSentDate,
		"feedback_student_rating":      a.Feedback.StudentRating,
		"feedback_student_comments":    a.Feedback.StudentComments,
		"feedback_counsellor_rating":   a.Feedback.CounsellorRating,
		"feedback_counsellor_comments": a.Feedback.CounsellorComments,
		"requested_by":                 a.RequestedBy,
		"urgency_level":                a.UrgencyLevel,
	}
}

// MarkCommunication sets a communication flag and its timestamp without bumping the version.
func (r *appointmentRepository) MarkCommunication(ctx context.Context, id uint, sentFlag, sentDate string, at time.Time) error {
	allowed := map[string]string{
		"email_sent":        "email_sent_date",
		"reminder_sent":     "reminder_sent_date",
		"confirmation_sent": "confirmation_sent_date",
	}
	if allowed[sentFlag] != sentDate {
		return errors.New("unknown communication column")
	}

	result := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			sentFlag: true,
			sentDate: at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Appointment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
