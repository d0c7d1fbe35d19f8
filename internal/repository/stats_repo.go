package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/counseling-api/internal/models"
)

var (
	studentGroupColumns     = map[string]bool{"status": true, "risk_level": true, "current_class": true}
	appointmentGroupColumns = map[string]bool{"status": true, "type": true, "priority": true}
)

// StudentCountFilter narrows a student count.
type StudentCountFilter struct {
	Status       string
	RiskLevel    string
	IsActive     *bool
	CreatedSince *time.Time
}

// AppointmentCountFilter narrows an appointment count. StudentID scopes to one owner.
type AppointmentCountFilter struct {
	StudentID    *uint
	Status       string
	CreatedSince *time.Time
}

// StatsRepository supplies aggregate figures for the dashboards.
type StatsRepository interface {
	CountStudents(ctx context.Context, filter StudentCountFilter) (int64, error)
	StudentDistribution(ctx context.Context, column string) ([]LabelCount, error)
	CountAppointments(ctx context.Context, filter AppointmentCountFilter) (int64, error)
	AppointmentDistribution(ctx context.Context, studentID *uint, column string) ([]LabelCount, error)
	AppointmentCreatedTimes(ctx context.Context, studentID *uint, since time.Time) ([]time.Time, error)
	AppointmentsRequestedBetween(ctx context.Context, studentID *uint, from, to time.Time) ([]models.Appointment, error)
	AppointmentsScheduledBetween(ctx context.Context, studentID *uint, from, to time.Time) ([]models.Appointment, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository constructs the statistics repository.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountStudents(ctx context.Context, filter StudentCountFilter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RiskLevel != "" {
		query = query.Where("risk_level = ?", filter.RiskLevel)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedSince != nil {
		query = query.Where("created_at >= ?", *filter.CreatedSince)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *statsRepository) StudentDistribution(ctx context.Context, column string) ([]LabelCount, error) {
	if !studentGroupColumns[column] {
		return nil, fmt.Errorf("unsupported student grouping %q", column)
	}
	return groupCount(r.db.WithContext(ctx).Model(&models.Student{}), column)
}

func (r *statsRepository) CountAppointments(ctx context.Context, filter AppointmentCountFilter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Appointment{})
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedSince != nil {
		query = query.Where("created_at >= ?", *filter.CreatedSince)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *statsRepository) AppointmentDistribution(ctx context.Context, studentID *uint, column string) ([]LabelCount, error) {
	if !appointmentGroupColumns[column] {
		return nil, fmt.Errorf("unsupported appointment grouping %q", column)
	}
	query := r.db.WithContext(ctx).Model(&models.Appointment{})
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}
	return groupCount(query, column)
}

func groupCount(query *gorm.DB, column string) ([]LabelCount, error) {
	var rows []LabelCount
	err := query.
		Select(fmt.Sprintf("%s AS label, COUNT(*) AS count", column)).
		Group(column).
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) AppointmentCreatedTimes(ctx context.Context, studentID *uint, since time.Time) ([]time.Time, error) {
	query := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("created_at >= ?", since)
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}

	var created []time.Time
	err := query.Order("created_at ASC").Pluck("created_at", &created).Error
	return created, err
}

func (r *statsRepository) AppointmentsRequestedBetween(ctx context.Context, studentID *uint, from, to time.Time) ([]models.Appointment, error) {
	query := r.db.WithContext(ctx).
		Where("requested_date >= ? AND requested_date < ?", from, to)
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}

	var appointments []models.Appointment
	err := query.Order("requested_date ASC").Find(&appointments).Error
	return appointments, err
}

// AppointmentsScheduledBetween matches on the confirmed date when set and on the requested date otherwise.
func (r *statsRepository) AppointmentsScheduledBetween(ctx context.Context, studentID *uint, from, to time.Time) ([]models.Appointment, error) {
	query := r.db.WithContext(ctx).
		Where(
			"(confirmed_date IS NOT NULL AND confirmed_date >= ? AND confirmed_date < ?) OR (confirmed_date IS NULL AND requested_date >= ? AND requested_date < ?)",
			from, to, from, to,
		)
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}

	var appointments []models.Appointment
	err := query.Preload("Student").Order("requested_date ASC").Find(&appointments).Error
	return appointments, err
}
