package dto

import "time"

// User types accepted by the authentication endpoints.
const (
	UserTypeStudent = "student"
	UserTypeAdmin   = "admin"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"userType" validate:"omitempty,oneof=student admin"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	UserType string `json:"userType" validate:"omitempty,oneof=student admin"`
}

// ChangePasswordRequest is the body of PUT /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// UserResponse is the public view of an authenticated principal.
type UserResponse struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	StudentID       string     `json:"studentId,omitempty"`
	ProfileComplete *bool      `json:"profileComplete,omitempty"`
	LastLogin       *time.Time `json:"lastLogin"`
}

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	Token    string       `json:"token"`
	User     UserResponse `json:"user"`
	UserType string       `json:"userType"`
}

// MeResponse is returned by GET /auth/me. Profile is only set for students.
type MeResponse struct {
	User     UserResponse     `json:"user"`
	UserType string           `json:"userType"`
	Profile  *StudentResponse `json:"profile,omitempty"`
}
