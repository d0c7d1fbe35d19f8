package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/repository"
)

// AuthService covers credential verification, token issuance and principal resolution.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	Signup(ctx context.Context, caller *auth.Principal, req dto.SignupRequest) (dto.AuthResponse, error)
	Me(ctx context.Context, principal auth.Principal) (dto.MeResponse, error)
	ChangePassword(ctx context.Context, principal auth.Principal, req dto.ChangePasswordRequest) error
	ResolveToken(ctx context.Context, token string) (auth.Principal, error)
	BootstrapAdmin(ctx context.Context, name, email, password string) (bool, error)
}

type authService struct {
	students  repository.StudentRepository
	admins    repository.AdminRepository
	tokens    *auth.TokenManager
	hasher    auth.PasswordHasher
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the authentication service.
func NewAuthService(students repository.StudentRepository, admins repository.AdminRepository, tokens *auth.TokenManager, hasher auth.PasswordHasher, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AuthService {
	return &authService{
		students:  students,
		admins:    admins,
		tokens:    tokens,
		hasher:    hasher,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	userType := req.UserType
	if userType == "" {
		userType = dto.UserTypeAdmin
	}
	email := normalizeEmail(req.Email)
	loginAt := s.now().UTC()

	var principal auth.Principal
	var user dto.UserResponse

	switch userType {
	case dto.UserTypeStudent:
		student, err := s.students.GetByEmail(ctx, email)
		if err != nil {
			return dto.AuthResponse{}, s.credentialLookupError(err, email)
		}
		if err := s.verify(student.PasswordHash, req.Password, student.IsActive); err != nil {
			s.logger.Info().Str("email", maskEmail(email)).Err(err).Msg("student login rejected")
			return dto.AuthResponse{}, err
		}
		if err := s.students.TouchLastLogin(ctx, student.ID, loginAt); err != nil {
			return dto.AuthResponse{}, err
		}
		student.LastLogin = &loginAt
		principal = auth.StudentPrincipal(student)
		user = studentUser(student)
	default:
		admin, err := s.admins.GetByEmail(ctx, email)
		if err != nil {
			return dto.AuthResponse{}, s.credentialLookupError(err, email)
		}
		if err := s.verify(admin.PasswordHash, req.Password, admin.IsActive); err != nil {
			s.logger.Info().Str("email", maskEmail(email)).Err(err).Msg("admin login rejected")
			return dto.AuthResponse{}, err
		}
		if err := s.admins.TouchLastLogin(ctx, admin.ID, loginAt); err != nil {
			return dto.AuthResponse{}, err
		}
		admin.LastLogin = &loginAt
		principal = auth.AdminPrincipal(admin)
		user = adminUser(admin)
	}

	token, err := s.tokens.Issue(principal)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	s.logger.Info().Uint("principal_id", principal.ID).Str("role", principal.Role).Msg("login succeeded")

	return dto.AuthResponse{Token: token, User: user, UserType: userType}, nil
}

func (s *authService) credentialLookupError(err error, email string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Info().Str("email", maskEmail(email)).Msg("login for unknown email")
		return ErrInvalidCredentials
	}
	return err
}

func (s *authService) verify(hash, plaintext string, active bool) error {
	if hash == "" {
		return ErrAccountNotProvisioned
	}
	if err := s.hasher.Verify(hash, plaintext); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !active {
		return ErrAccountInactive
	}
	return nil
}

func (s *authService) Signup(ctx context.Context, caller *auth.Principal, req dto.SignupRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	userType := req.UserType
	if userType == "" {
		userType = dto.UserTypeStudent
	}

	if userType == dto.UserTypeAdmin {
		return s.signupCounsellor(ctx, caller, req)
	}
	return s.signupStudent(ctx, req)
}

func (s *authService) signupStudent(ctx context.Context, req dto.SignupRequest) (dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	exists, err := s.students.EmailExists(ctx, email, 0)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	if exists {
		return dto.AuthResponse{}, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	firstName, lastName := splitName(req.Name, email)
	student := models.Student{
		FirstName:       firstName,
		LastName:        lastName,
		Email:           email,
		PasswordHash:    hash,
		Role:            models.RoleStudent,
		RiskLevel:       models.RiskLevelLow,
		Status:          models.StudentStatusActive,
		IsActive:        true,
		ProfileComplete: false,
	}
	if err := s.students.Create(ctx, &student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AuthResponse{}, ErrDuplicateEmail
		}
		return dto.AuthResponse{}, err
	}

	principal := auth.StudentPrincipal(student)
	token, err := s.tokens.Issue(principal)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	s.logger.Info().Uint("student_id", student.ID).Str("email", maskEmail(email)).Msg("student signed up")

	return dto.AuthResponse{Token: token, User: studentUser(student), UserType: dto.UserTypeStudent}, nil
}

func (s *authService) signupCounsellor(ctx context.Context, caller *auth.Principal, req dto.SignupRequest) (dto.AuthResponse, error) {
	if caller == nil {
		return dto.AuthResponse{}, ErrUnauthenticated
	}
	if !caller.IsStaff() || caller.Role != models.RoleAdmin {
		return dto.AuthResponse{}, ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return dto.AuthResponse{}, newValidationError("name", "is required for staff accounts")
	}

	email := normalizeEmail(req.Email)
	exists, err := s.admins.EmailExists(ctx, email)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	if exists {
		return dto.AuthResponse{}, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	admin := models.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleCounsellor,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, &admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AuthResponse{}, ErrDuplicateEmail
		}
		return dto.AuthResponse{}, err
	}

	token, err := s.tokens.Issue(auth.AdminPrincipal(admin))
	if err != nil {
		return dto.AuthResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, *caller, "admin.created", "admin", admin.ID, map[string]interface{}{
		"role": admin.Role,
	})

	return dto.AuthResponse{Token: token, User: adminUser(admin), UserType: dto.UserTypeAdmin}, nil
}

func (s *authService) Me(ctx context.Context, principal auth.Principal) (dto.MeResponse, error) {
	if principal.IsStudent() {
		student, err := s.students.GetByID(ctx, principal.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.MeResponse{}, ErrStudentNotFound
			}
			return dto.MeResponse{}, err
		}
		profile := dto.NewStudentResponse(student)
		return dto.MeResponse{User: studentUser(student), UserType: dto.UserTypeStudent, Profile: &profile}, nil
	}

	admin, err := s.admins.GetByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MeResponse{}, ErrAdminNotFound
		}
		return dto.MeResponse{}, err
	}
	return dto.MeResponse{User: adminUser(admin), UserType: dto.UserTypeAdmin}, nil
}

func (s *authService) ChangePassword(ctx context.Context, principal auth.Principal, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	var currentHash string
	if principal.IsStudent() {
		student, err := s.students.GetByID(ctx, principal.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return err
		}
		currentHash = student.PasswordHash
	} else {
		admin, err := s.admins.GetByID(ctx, principal.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAdminNotFound
			}
			return err
		}
		currentHash = admin.PasswordHash
	}

	if err := s.hasher.Verify(currentHash, req.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return newValidationError("currentPassword", "is incorrect")
		}
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if principal.IsStudent() {
		if _, err := s.students.Update(ctx, principal.ID, map[string]interface{}{"password_hash": hash}); err != nil {
			return err
		}
	} else if err := s.admins.UpdatePassword(ctx, principal.ID, hash); err != nil {
		return err
	}

	s.logger.Info().Uint("principal_id", principal.ID).Str("kind", principal.Kind).Msg("password changed")
	return nil
}

// ResolveToken validates the token and loads the principal fresh from its store.
func (s *authService) ResolveToken(ctx context.Context, token string) (auth.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Principal{}, err
	}
	id, err := claims.PrincipalID()
	if err != nil {
		return auth.Principal{}, err
	}

	switch claims.Kind {
	case auth.KindStudent:
		student, err := s.students.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return auth.Principal{}, ErrUnauthenticated
			}
			return auth.Principal{}, err
		}
		if !student.IsActive {
			return auth.Principal{}, ErrUnauthenticated
		}
		return auth.StudentPrincipal(student), nil
	default:
		admin, err := s.admins.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return auth.Principal{}, ErrUnauthenticated
			}
			return auth.Principal{}, err
		}
		if !admin.IsActive {
			return auth.Principal{}, ErrUnauthenticated
		}
		return auth.AdminPrincipal(admin), nil
	}
}

// BootstrapAdmin creates the default administrator when no admin exists yet.
func (s *authService) BootstrapAdmin(ctx context.Context, name, email, password string) (bool, error) {
	count, err := s.admins.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	email = normalizeEmail(email)
	if email == "" || len(password) < 6 {
		return false, newValidationError("admin", "bootstrap email and a password of at least 6 characters are required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}

	admin := models.Admin{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, &admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn().Str("email", maskEmail(email)).Msg("bootstrap admin email already used by a counsellor")
			return false, nil
		}
		return false, err
	}

	s.logger.Info().Str("email", maskEmail(email)).Msg("default admin created")
	return true, nil
}

func splitName(name, email string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		local := email
		if at := strings.Index(email, "@"); at > 0 {
			local = email[:at]
		}
		return local, ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func studentUser(student models.Student) dto.UserResponse {
	complete := student.ProfileComplete
	return dto.UserResponse{
		ID:              student.ID,
		Name:            student.FullName(),
		Email:           student.Email,
		Role:            models.RoleStudent,
		StudentID:       student.StudentCode,
		ProfileComplete: &complete,
		LastLogin:       student.LastLogin,
	}
}

func adminUser(admin models.Admin) dto.UserResponse {
	return dto.UserResponse{
		ID:        admin.ID,
		Name:      admin.Name,
		Email:     admin.Email,
		Role:      admin.Role,
		LastLogin: admin.LastLogin,
	}
}
