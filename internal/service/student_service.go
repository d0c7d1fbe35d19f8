package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/repository"
)

// StudentService manages student profiles for students themselves and for staff.
type StudentService interface {
	GetOwnProfile(ctx context.Context, principal auth.Principal) (dto.StudentResponse, error)
	UpdateOwnProfile(ctx context.Context, principal auth.Principal, req dto.StudentProfileRequest) (dto.StudentResponse, error)
	List(ctx context.Context, actor auth.Principal, req dto.StudentListRequest) (dto.StudentListResponse, error)
	Get(ctx context.Context, actor auth.Principal, id uint) (dto.StudentResponse, error)
	Create(ctx context.Context, actor auth.Principal, req dto.StudentCreateRequest) (dto.StudentResponse, error)
	Update(ctx context.Context, actor auth.Principal, id uint, req dto.StudentAdminRequest) (dto.StudentResponse, error)
	Delete(ctx context.Context, actor auth.Principal, id uint) error
	AddNote(ctx context.Context, actor auth.Principal, id uint, req dto.CounselingNoteRequest) (dto.CounselingNoteResponse, error)
}

type studentService struct {
	repo      repository.StudentRepository
	hasher    auth.PasswordHasher
	validator *validator.Validate
	activity  ActivityRecorder
	sanitizer textSanitizer
	logger    zerolog.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo repository.StudentRepository, hasher auth.PasswordHasher, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) StudentService {
	return &studentService{
		repo:      repo,
		hasher:    hasher,
		validator: validate,
		activity:  activity,
		sanitizer: newTextSanitizer(),
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) GetOwnProfile(ctx context.Context, principal auth.Principal) (dto.StudentResponse, error) {
	if !principal.IsStudent() {
		return dto.StudentResponse{}, ErrForbidden
	}
	student, err := s.load(ctx, principal.ID)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) UpdateOwnProfile(ctx context.Context, principal auth.Principal, req dto.StudentProfileRequest) (dto.StudentResponse, error) {
	if !principal.IsStudent() {
		return dto.StudentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	student, err := s.load(ctx, principal.ID)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	wasComplete := student.ProfileComplete
	if err := s.applyProfile(&student, req); err != nil {
		return dto.StudentResponse{}, err
	}

	updated, err := s.repo.Update(ctx, student.ID, profileColumns(student))
	if err != nil {
		return dto.StudentResponse{}, err
	}

	if !wasComplete && updated.ProfileComplete {
		s.logger.Info().Uint("student_id", updated.ID).Msg("student profile completed")
	}

	return dto.NewStudentResponse(updated), nil
}

func (s *studentService) List(ctx context.Context, actor auth.Principal, req dto.StudentListRequest) (dto.StudentListResponse, error) {
	if !actor.IsStaff() {
		return dto.StudentListResponse{}, ErrForbidden
	}

	pageSize := repository.NormalizePageSize(req.Limit)
	page := req.Page
	if page <= 0 {
		page = 1
	}

	students, total, err := s.repo.List(ctx, repository.StudentFilter{
		Search:    strings.TrimSpace(req.Search),
		Status:    strings.TrimSpace(req.Status),
		RiskLevel: strings.TrimSpace(req.RiskLevel),
		Class:     strings.TrimSpace(req.Class),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return dto.StudentListResponse{}, err
	}

	records := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		records = append(records, dto.NewStudentResponse(student))
	}

	return dto.StudentListResponse{
		Records:    records,
		Pagination: dto.NewPagination(page, pageSize, total),
	}, nil
}

// Get returns a student with their counseling notes.
func (s *studentService) Get(ctx context.Context, actor auth.Principal, id uint) (dto.StudentResponse, error) {
	if !actor.IsStaff() {
		return dto.StudentResponse{}, ErrForbidden
	}

	student, err := s.repo.GetWithNotes(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Create(ctx context.Context, actor auth.Principal, req dto.StudentCreateRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	email := normalizeEmail(req.Email)
	exists, err := s.repo.EmailExists(ctx, email, 0)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	if exists {
		return dto.StudentResponse{}, ErrDuplicateEmail
	}

	student := models.Student{
		Email:     email,
		Role:      models.RoleStudent,
		RiskLevel: models.RiskLevelLow,
		Status:    models.StudentStatusActive,
		IsActive:  true,
	}
	if req.RiskLevel != "" {
		student.RiskLevel = req.RiskLevel
	}

	profile := dto.StudentProfileRequest{
		FirstName:    &req.FirstName,
		LastName:     &req.LastName,
		Address:      req.Address,
		Subjects:     req.Subjects,
		Interests:    req.Interests,
		Guardian:     req.Guardian,
		Phone:        optionalString(req.Phone),
		DateOfBirth:  optionalString(req.DateOfBirth),
		Gender:       optionalString(req.Gender),
		CurrentClass: optionalString(req.CurrentClass),
		School:       optionalString(req.School),
		Board:        optionalString(req.Board),
		CareerGoals:  optionalString(req.CareerGoals),
		SpecialNeeds: optionalString(req.SpecialNeeds),
	}
	if err := s.applyProfile(&student, profile); err != nil {
		return dto.StudentResponse{}, err
	}

	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return dto.StudentResponse{}, err
		}
		student.PasswordHash = hash
	}

	if err := s.repo.Create(ctx, &student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.StudentResponse{}, ErrDuplicateEmail
		}
		return dto.StudentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "student.created", "student", student.ID, map[string]interface{}{
		"student_code": student.StudentCode,
	})

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Update(ctx context.Context, actor auth.Principal, id uint, req dto.StudentAdminRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	student, err := s.load(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	if err := s.applyProfile(&student, req.StudentProfileRequest); err != nil {
		return dto.StudentResponse{}, err
	}

	columns := profileColumns(student)
	changed := make([]string, 0)

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		exists, err := s.repo.EmailExists(ctx, email, id)
		if err != nil {
			return dto.StudentResponse{}, err
		}
		if exists {
			return dto.StudentResponse{}, ErrDuplicateEmail
		}
		columns["email"] = email
		changed = append(changed, "email")
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return dto.StudentResponse{}, err
		}
		columns["password_hash"] = hash
		changed = append(changed, "password")
	}
	if req.RiskLevel != nil {
		columns["risk_level"] = *req.RiskLevel
		changed = append(changed, "risk_level")
	}
	if req.Status != nil {
		columns["status"] = *req.Status
		changed = append(changed, "status")
	}
	if req.IsActive != nil {
		columns["is_active"] = *req.IsActive
		changed = append(changed, "is_active")
	}

	updated, err := s.repo.Update(ctx, id, columns)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.StudentResponse{}, ErrDuplicateEmail
		}
		return dto.StudentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "student.updated", "student", id, map[string]interface{}{
		"fields": changed,
	})

	return dto.NewStudentResponse(updated), nil
}

// Delete removes the student with their appointments and notes.
func (s *studentService) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "student.deleted", "student", id, map[string]interface{}{
		"appointments_removed": removed,
	})
	s.logger.Info().Uint("student_id", id).Int64("appointments_removed", removed).Msg("student deleted")

	return nil
}

func (s *studentService) AddNote(ctx context.Context, actor auth.Principal, id uint, req dto.CounselingNoteRequest) (dto.CounselingNoteResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CounselingNoteResponse{}, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return dto.CounselingNoteResponse{}, err
	}

	text := s.sanitizer.clean(req.Notes)
	if text == "" {
		return dto.CounselingNoteResponse{}, newValidationError("notes", "must not be empty")
	}

	note := models.CounselingNote{StudentID: id, AdminID: actor.ID, Notes: text}
	if err := s.repo.AddNote(ctx, &note); err != nil {
		return dto.CounselingNoteResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "student.note_added", "student", id, nil)

	return dto.NewCounselingNoteResponse(note), nil
}

func (s *studentService) load(ctx context.Context, id uint) (models.Student, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

// applyProfile copies the non-nil request fields onto the student and refreshes ProfileComplete.
func (s *studentService) applyProfile(student *models.Student, req dto.StudentProfileRequest) error {
	if req.FirstName != nil {
		student.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		student.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		student.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate("dateOfBirth", *req.DateOfBirth)
		if err != nil {
			return err
		}
		student.DateOfBirth = &dob
	}
	if req.Gender != nil {
		student.Gender = *req.Gender
	}
	if req.Address != nil {
		student.Address = models.Address{
			Street:  strings.TrimSpace(req.Address.Street),
			City:    strings.TrimSpace(req.Address.City),
			State:   strings.TrimSpace(req.Address.State),
			Pincode: strings.TrimSpace(req.Address.Pincode),
		}
	}
	if req.CurrentClass != nil {
		student.CurrentClass = strings.TrimSpace(*req.CurrentClass)
	}
	if req.School != nil {
		student.School = strings.TrimSpace(*req.School)
	}
	if req.Board != nil {
		student.Board = *req.Board
	}
	if req.Subjects != nil {
		student.Subjects = jsonStrings(s.sanitizer.cleanAll(req.Subjects))
	}
	if req.Interests != nil {
		student.Interests = jsonStrings(s.sanitizer.cleanAll(req.Interests))
	}
	if req.CareerGoals != nil {
		student.CareerGoals = s.sanitizer.clean(*req.CareerGoals)
	}
	if req.SpecialNeeds != nil {
		student.SpecialNeeds = s.sanitizer.clean(*req.SpecialNeeds)
	}
	if req.Guardian != nil {
		student.Guardian = models.Guardian{
			Name:         strings.TrimSpace(req.Guardian.Name),
			Relationship: strings.TrimSpace(req.Guardian.Relationship),
			Phone:        strings.TrimSpace(req.Guardian.Phone),
			Email:        normalizeEmail(req.Guardian.Email),
		}
	}

	if student.FirstName == "" {
		return newValidationError("firstName", "must not be empty")
	}

	student.ProfileComplete = student.HasCompletedProfile()
	return nil
}

func profileColumns(student models.Student) map[string]interface{} {
	return map[string]interface{}{
		"first_name":            student.FirstName,
		"last_name":             student.LastName,
		"phone":                 student.Phone,
		"date_of_birth":         student.DateOfBirth,
		"gender":                student.Gender,
		"address_street":        student.Address.Street,
		"address_city":          student.Address.City,
		"address_state":         student.Address.State,
		"address_pincode":       student.Address.Pincode,
		"current_class":         student.CurrentClass,
		"school":                student.School,
		"board":                 student.Board,
		"subjects":              student.Subjects,
		"interests":             student.Interests,
		"career_goals":          student.CareerGoals,
		"special_needs":         student.SpecialNeeds,
		"guardian_name":         student.Guardian.Name,
		"guardian_relationship": student.Guardian.Relationship,
		"guardian_phone":        student.Guardian.Phone,
		"guardian_email":        student.Guardian.Email,
		"profile_complete":      student.ProfileComplete,
	}
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
