package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/counseling-api/internal/models"
)

// AddressPayload carries a postal address.
type AddressPayload struct {
	Street  string `json:"street" validate:"omitempty,max=255"`
	City    string `json:"city" validate:"omitempty,max=120"`
	State   string `json:"state" validate:"omitempty,max=120"`
	Pincode string `json:"pincode" validate:"omitempty,pincode"`
}

// GuardianPayload carries parent or guardian contact details.
type GuardianPayload struct {
	Name         string `json:"name" validate:"omitempty,max=255"`
	Relationship string `json:"relationship" validate:"omitempty,max=64"`
	Phone        string `json:"phone" validate:"omitempty,digits10"`
	Email        string `json:"email" validate:"omitempty,email"`
}

// StudentProfileRequest updates the fields a student may edit on their own profile.
// Nil fields are left untouched.
type StudentProfileRequest struct {
	FirstName    *string          `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName     *string          `json:"lastName" validate:"omitempty,max=50"`
	Phone        *string          `json:"phone" validate:"omitempty,digits10"`
	DateOfBirth  *string          `json:"dateOfBirth" validate:"omitempty"`
	Gender       *string          `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Address      *AddressPayload  `json:"address" validate:"omitempty"`
	CurrentClass *string          `json:"currentClass" validate:"omitempty,min=1,max=64"`
	School       *string          `json:"school" validate:"omitempty,min=1,max=255"`
	Board        *string          `json:"board" validate:"omitempty,oneof=CBSE ICSE 'State Board' International Other"`
	Subjects     []string         `json:"subjects" validate:"omitempty,dive,min=1,max=64"`
	Interests    []string         `json:"interests" validate:"omitempty,dive,min=1,max=64"`
	CareerGoals  *string          `json:"careerGoals" validate:"omitempty,max=1000"`
	SpecialNeeds *string          `json:"specialNeeds" validate:"omitempty,max=1000"`
	Guardian     *GuardianPayload `json:"guardian" validate:"omitempty"`
}

// StudentAdminRequest extends the profile with fields only staff may change.
type StudentAdminRequest struct {
	StudentProfileRequest
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	RiskLevel *string `json:"riskLevel" validate:"omitempty,oneof=Low Medium High"`
	Status    *string `json:"status" validate:"omitempty,oneof=Active Inactive Graduated Transferred"`
	IsActive  *bool   `json:"isActive"`
}

// StudentCreateRequest is the body of POST /students.
type StudentCreateRequest struct {
	FirstName    string           `json:"firstName" validate:"required,max=50"`
	LastName     string           `json:"lastName" validate:"omitempty,max=50"`
	Email        string           `json:"email" validate:"required,email"`
	Password     string           `json:"password" validate:"omitempty,min=6"`
	Phone        string           `json:"phone" validate:"omitempty,digits10"`
	DateOfBirth  string           `json:"dateOfBirth"`
	Gender       string           `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Address      *AddressPayload  `json:"address" validate:"omitempty"`
	CurrentClass string           `json:"currentClass" validate:"omitempty,max=64"`
	School       string           `json:"school" validate:"omitempty,max=255"`
	Board        string           `json:"board" validate:"omitempty,oneof=CBSE ICSE 'State Board' International Other"`
	Subjects     []string         `json:"subjects" validate:"omitempty,dive,min=1,max=64"`
	Interests    []string         `json:"interests" validate:"omitempty,dive,min=1,max=64"`
	CareerGoals  string           `json:"careerGoals" validate:"omitempty,max=1000"`
	RiskLevel    string           `json:"riskLevel" validate:"omitempty,oneof=Low Medium High"`
	SpecialNeeds string           `json:"specialNeeds" validate:"omitempty,max=1000"`
	Guardian     *GuardianPayload `json:"guardian" validate:"omitempty"`
}

// CounselingNoteRequest is the body of POST /students/:id/notes.
type CounselingNoteRequest struct {
	Notes string `json:"notes" validate:"required,min=1,max=2000"`
}

// StudentListRequest carries list filters for students.
type StudentListRequest struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	RiskLevel string
	Class     string
	SortBy    string
	SortOrder string
}

// CounselingNoteResponse is the public view of a counseling note.
type CounselingNoteResponse struct {
	ID        uint      `json:"id"`
	AdminID   uint      `json:"adminId"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// StudentResponse is the public view of a student.
type StudentResponse struct {
	ID                    uint                     `json:"id"`
	StudentID             string                   `json:"studentId"`
	FirstName             string                   `json:"firstName"`
	LastName              string                   `json:"lastName"`
	FullName              string                   `json:"fullName"`
	Email                 string                   `json:"email"`
	Phone                 string                   `json:"phone"`
	DateOfBirth           *time.Time               `json:"dateOfBirth"`
	Gender                string                   `json:"gender"`
	Address               models.Address           `json:"address"`
	CurrentClass          string                   `json:"currentClass"`
	School                string                   `json:"school"`
	Board                 string                   `json:"board"`
	Subjects              []string                 `json:"subjects"`
	Interests             []string                 `json:"interests"`
	CareerGoals           string                   `json:"careerGoals"`
	RiskLevel             string                   `json:"riskLevel"`
	TotalAppointments     int                      `json:"totalAppointments"`
	CompletedAppointments int                      `json:"completedAppointments"`
	LastAppointmentDate   *time.Time               `json:"lastAppointmentDate"`
	SpecialNeeds          string                   `json:"specialNeeds"`
	Guardian              models.Guardian          `json:"guardian"`
	Role                  string                   `json:"role"`
	Status                string                   `json:"status"`
	IsActive              bool                     `json:"isActive"`
	ProfileComplete       bool                     `json:"profileComplete"`
	LastLogin             *time.Time               `json:"lastLogin"`
	Notes                 []CounselingNoteResponse `json:"notes,omitempty"`
	CreatedAt             time.Time                `json:"createdAt"`
	UpdatedAt             time.Time                `json:"updatedAt"`
}

// StudentListResponse wraps a page of students.
type StudentListResponse struct {
	Records    []StudentResponse `json:"records"`
	Pagination Pagination        `json:"pagination"`
}

// NewStudentResponse converts a model into its public view.
func NewStudentResponse(student models.Student) StudentResponse {
	response := StudentResponse{
		ID:                    student.ID,
		StudentID:             student.StudentCode,
		FirstName:             student.FirstName,
		LastName:              student.LastName,
		FullName:              student.FullName(),
		Email:                 student.Email,
		Phone:                 student.Phone,
		DateOfBirth:           student.DateOfBirth,
		Gender:                student.Gender,
		Address:               student.Address,
		CurrentClass:          student.CurrentClass,
		School:                student.School,
		Board:                 student.Board,
		Subjects:              StringsFromJSON(student.Subjects),
		Interests:             StringsFromJSON(student.Interests),
		CareerGoals:           student.CareerGoals,
		RiskLevel:             student.RiskLevel,
		TotalAppointments:     student.TotalAppointments,
		CompletedAppointments: student.CompletedAppointments,
		LastAppointmentDate:   student.LastAppointmentDate,
		SpecialNeeds:          student.SpecialNeeds,
		Guardian:              student.Guardian,
		Role:                  models.RoleStudent,
		Status:                student.Status,
		IsActive:              student.IsActive,
		ProfileComplete:       student.ProfileComplete,
		LastLogin:             student.LastLogin,
		CreatedAt:             student.CreatedAt,
		UpdatedAt:             student.UpdatedAt,
	}

	if len(student.Notes) > 0 {
		response.Notes = make([]CounselingNoteResponse, 0, len(student.Notes))
		for _, note := range student.Notes {
			response.Notes = append(response.Notes, NewCounselingNoteResponse(note))
		}
	}

	return response
}

// NewCounselingNoteResponse converts a note into its public view.
func NewCounselingNoteResponse(note models.CounselingNote) CounselingNoteResponse {
	return CounselingNoteResponse{
		ID:        note.ID,
		AdminID:   note.AdminID,
		Notes:     note.Notes,
		CreatedAt: note.CreatedAt,
	}
}

// StringsFromJSON decodes a JSON string array column, tolerating empty values.
func StringsFromJSON(raw []byte) []string {
	result := []string{}
	if len(raw) == 0 {
		return result
	}
	if err := json.Unmarshal(raw, &result); err != nil || result == nil {
		return []string{}
	}
	return result
}
