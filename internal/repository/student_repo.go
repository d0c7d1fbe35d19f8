package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/counseling-api/internal/models"
)

const studentCodeAttempts = 5

var studentSortColumns = map[string]string{
	"createdAt": "created_at",
	"firstName": "first_name",
	"lastName":  "last_name",
	"email":     "email",
	"studentId": "student_code",
	"riskLevel": "risk_level",
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	Search    string
	Status    string
	RiskLevel string
	Class     string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// StudentRepository provides access to student records and their counseling notes.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetWithNotes(ctx context.Context, id uint) (models.Student, error)
	GetByEmail(ctx context.Context, email string) (models.Student, error)
	EmailExists(ctx context.Context, email string, excludeID uint) (bool, error)
	List(ctx context.Context, filter StudentFilter) ([]models.Student, int64, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Student, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	Delete(ctx context.Context, id uint) (int64, error)
	AddNote(ctx context.Context, note *models.CounselingNote) error
}

type studentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db, now: time.Now}
}

// Create persists the student and assigns the next STU<year><seq> code.
// A code collision with a concurrent insert is retried with a fresh sequence.
func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	var lastErr error
	for attempt := 0; attempt < studentCodeAttempts; attempt++ {
		code, err := r.nextStudentCode(ctx)
		if err != nil {
			return err
		}
		student.StudentCode = code
		student.Role = models.RoleStudent

		err = r.db.WithContext(ctx).Create(student).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		exists, checkErr := r.EmailExists(ctx, student.Email, 0)
		if checkErr != nil {
			return checkErr
		}
		if exists {
			return err
		}
		student.ID = 0
		lastErr = err
	}

	return fmt.Errorf("allocate student code: %w", lastErr)
}

func (r *studentRepository) nextStudentCode(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("STU%d", r.now().Year())

	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("student_code LIKE ?", prefix+"%").
		// Sequences grow past four digits, so shorter codes sort first.
		Order("LENGTH(student_code) DESC").
		Order("student_code DESC").
		Limit(1).
		Pluck("student_code", &codes).Error
	if err != nil {
		return "", err
	}

	next := 1
	if len(codes) > 0 {
		if seq, convErr := strconv.Atoi(strings.TrimPrefix(codes[0], prefix)); convErr == nil {
			next = seq + 1
		}
	}

	return fmt.Sprintf("%s%04d", prefix, next), nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) GetWithNotes(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Preload("Notes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&student, id).Error
	if err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) GetByEmail(ctx context.Context, email string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&student).Error
	if err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *studentRepository) List(ctx context.Context, filter StudentFilter) ([]models.Student, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := likePattern(search)
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ? OR LOWER(student_code) LIKE ?",
			like, like, like, like, like, like,
		)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RiskLevel != "" {
		query = query.Where("risk_level = ?", filter.RiskLevel)
	}
	if filter.Class != "" {
		query = query.Where("current_class = ?", filter.Class)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = orderBy(query, studentSortColumns, filter.SortBy, filter.SortOrder)
	query = paginate(query, filter.Page, filter.PageSize)

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *studentRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Student, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return models.Student{}, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return models.Student{}, err
		}
	}

	return r.GetByID(ctx, id)
}

func (r *studentRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}

// Delete removes the student together with their appointments and notes.
// It returns the number of appointments removed.
func (r *studentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appointments := tx.Where("student_id = ?", id).Delete(&models.Appointment{})
		if appointments.Error != nil {
			return appointments.Error
		}
		removed = appointments.RowsAffected

		if err := tx.Where("student_id = ?", id).Delete(&models.CounselingNote{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Student{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

func (r *studentRepository) AddNote(ctx context.Context, note *models.CounselingNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}
