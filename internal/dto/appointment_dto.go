package dto

import (
	"time"

	"github.com/noah-isme/counseling-api/internal/models"
)

// AppointmentCreateRequest is the body of POST /appointments.
// StudentID is only honoured for staff callers booking on behalf of a student.
type AppointmentCreateRequest struct {
	StudentID       *uint  `json:"studentId" validate:"omitempty,gt=0"`
	RequestedDate   string `json:"requestedDate" validate:"required"`
	RequestedTime   string `json:"requestedTime" validate:"required,max=16"`
	Duration        int    `json:"duration" validate:"omitempty,min=30,max=180"`
	Type            string `json:"type" validate:"required,oneof='Academic Counseling' 'Career Guidance' 'Personal Counseling' 'Stress Management' 'Study Skills' 'College Preparation' 'Behavioral Issues' 'Follow-up Session' Other"`
	Mode            string `json:"mode" validate:"required,oneof=In-Person 'Video Call' 'Phone Call'"`
	Priority        string `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Reason          string `json:"reason" validate:"required,max=500"`
	StudentConcerns string `json:"studentConcerns" validate:"omitempty,max=1000"`
	RequestedBy     string `json:"requestedBy" validate:"omitempty,oneof=Student Parent Teacher Counsellor"`
	UrgencyLevel    string `json:"urgencyLevel" validate:"omitempty,oneof=Normal Urgent Emergency"`
}

// AppointmentUpdateRequest edits non-status fields. Nil fields are left untouched.
type AppointmentUpdateRequest struct {
	Version         *int    `json:"version" validate:"omitempty,gt=0"`
	CounsellorID    *uint   `json:"counsellorId" validate:"omitempty,gt=0"`
	Duration        *int    `json:"duration" validate:"omitempty,min=30,max=180"`
	Type            *string `json:"type" validate:"omitempty,oneof='Academic Counseling' 'Career Guidance' 'Personal Counseling' 'Stress Management' 'Study Skills' 'College Preparation' 'Behavioral Issues' 'Follow-up Session' Other"`
	Mode            *string `json:"mode" validate:"omitempty,oneof=In-Person 'Video Call' 'Phone Call'"`
	Priority        *string `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Reason          *string `json:"reason" validate:"omitempty,min=1,max=500"`
	StudentConcerns *string `json:"studentConcerns" validate:"omitempty,max=1000"`
	PreSessionNotes *string `json:"preSessionNotes" validate:"omitempty,max=2000"`
	UrgencyLevel    *string `json:"urgencyLevel" validate:"omitempty,oneof=Normal Urgent Emergency"`
}

// ConfirmAppointmentRequest is the body of PATCH /appointments/:id/confirm.
type ConfirmAppointmentRequest struct {
	Version       *int   `json:"version" validate:"omitempty,gt=0"`
	ConfirmedDate string `json:"confirmedDate" validate:"required"`
	ConfirmedTime string `json:"confirmedTime" validate:"required,max=16"`
	Notes         string `json:"notes" validate:"omitempty,max=2000"`
}

// CompleteAppointmentRequest is the body of PATCH /appointments/:id/complete.
// Omitted fields leave the stored session notes unchanged.
type CompleteAppointmentRequest struct {
	Version          *int     `json:"version" validate:"omitempty,gt=0"`
	SessionSummary   *string  `json:"sessionSummary" validate:"omitempty,max=5000"`
	ActionItems      []string `json:"actionItems" validate:"omitempty,dive,min=1,max=500"`
	FollowUpRequired *bool    `json:"followUpRequired"`
	FollowUpDate     *string  `json:"followUpDate"`
	Recommendations  *string  `json:"recommendations" validate:"omitempty,max=5000"`
	NextSteps        *string  `json:"nextSteps" validate:"omitempty,max=5000"`
}

// CancelAppointmentRequest is the body of PATCH /appointments/:id/cancel.
type CancelAppointmentRequest struct {
	Version *int   `json:"version" validate:"omitempty,gt=0"`
	Reason  string `json:"reason" validate:"omitempty,max=500"`
}

// RescheduleAppointmentRequest is the body of PATCH /appointments/:id/reschedule.
type RescheduleAppointmentRequest struct {
	Version       *int   `json:"version" validate:"omitempty,gt=0"`
	RequestedDate string `json:"requestedDate" validate:"required"`
	RequestedTime string `json:"requestedTime" validate:"required,max=16"`
	Reason        string `json:"reason" validate:"omitempty,max=500"`
}

// TransitionRequest carries only the expected version, used by start and no-show.
type TransitionRequest struct {
	Version *int `json:"version" validate:"omitempty,gt=0"`
}

// StatusOverrideRequest is the body of PATCH /appointments/:id/status.
type StatusOverrideRequest struct {
	Version *int   `json:"version" validate:"omitempty,gt=0"`
	Status  string `json:"status" validate:"required,oneof=Pending Confirmed Completed Cancelled"`
}

// FeedbackRequest is the body of PATCH /appointments/:id/feedback.
type FeedbackRequest struct {
	Version  *int   `json:"version" validate:"omitempty,gt=0"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comments string `json:"comments" validate:"omitempty,max=1000"`
}

// AppointmentListRequest carries list filters for appointments.
type AppointmentListRequest struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	Type      string
	Priority  string
	Date      string
	SortBy    string
	SortOrder string
}

// AppointmentStudentSummary is the student excerpt embedded in appointments.
type AppointmentStudentSummary struct {
	ID           uint   `json:"id"`
	StudentID    string `json:"studentId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	CurrentClass string `json:"currentClass"`
}

// AppointmentCounsellorSummary is the counsellor excerpt embedded in appointments.
type AppointmentCounsellorSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AppointmentDetailsResponse mirrors the scheduling block.
type AppointmentDetailsResponse struct {
	RequestedDate time.Time  `json:"requestedDate"`
	RequestedTime string     `json:"requestedTime"`
	ConfirmedDate *time.Time `json:"confirmedDate"`
	ConfirmedTime *string    `json:"confirmedTime"`
	Duration      int        `json:"duration"`
	Type          string     `json:"type"`
	Mode          string     `json:"mode"`
	Priority      string     `json:"priority"`
}

// SessionNotesResponse mirrors the session notes block.
type SessionNotesResponse struct {
	PreSessionNotes  string     `json:"preSessionNotes"`
	SessionSummary   string     `json:"sessionSummary"`
	ActionItems      []string   `json:"actionItems"`
	FollowUpRequired bool       `json:"followUpRequired"`
	FollowUpDate     *time.Time `json:"followUpDate"`
	Recommendations  string     `json:"recommendations"`
	NextSteps        string     `json:"nextSteps"`
}

// AppointmentResponse is the public view of an appointment.
type AppointmentResponse struct {
	ID                 uint                          `json:"id"`
	Student            AppointmentStudentSummary     `json:"student"`
	Counsellor         *AppointmentCounsellorSummary `json:"counsellor"`
	AppointmentDetails AppointmentDetailsResponse    `json:"appointmentDetails"`
	Reason             string                        `json:"reason"`
	StudentConcerns    string                        `json:"studentConcerns"`
	Status             string                        `json:"status"`
	SessionNotes       SessionNotesResponse          `json:"sessionNotes"`
	Communication      models.Communication          `json:"communication"`
	Feedback           models.Feedback               `json:"feedback"`
	RequestedBy        string                        `json:"requestedBy"`
	UrgencyLevel       string                        `json:"urgencyLevel"`
	Version            int                           `json:"version"`
	CreatedAt          time.Time                     `json:"createdAt"`
	UpdatedAt          time.Time                     `json:"updatedAt"`
}

// AppointmentListResponse wraps a page of appointments.
type AppointmentListResponse struct {
	Records    []AppointmentResponse `json:"records"`
	Pagination Pagination            `json:"pagination"`
}

// NewAppointmentResponse converts a model into its public view.
func NewAppointmentResponse(appointment models.Appointment) AppointmentResponse {
	details := appointment.Details
	response := AppointmentResponse{
		ID: appointment.ID,
		Student: AppointmentStudentSummary{
			ID:           appointment.StudentID,
			StudentID:    appointment.Student.StudentCode,
			Name:         appointment.Student.FullName(),
			Email:        appointment.Student.Email,
			Phone:        appointment.Student.Phone,
			CurrentClass: appointment.Student.CurrentClass,
		},
		AppointmentDetails: AppointmentDetailsResponse{
			RequestedDate: details.RequestedDate,
			RequestedTime: details.RequestedTime,
			ConfirmedDate: details.ConfirmedDate,
			Duration:      details.Duration,
			Type:          details.Type,
			Mode:          details.Mode,
			Priority:      details.Priority,
		},
		Reason:          appointment.Reason,
		StudentConcerns: appointment.StudentConcerns,
		Status:          string(appointment.Status),
		SessionNotes: SessionNotesResponse{
			PreSessionNotes:  appointment.SessionNotes.PreSessionNotes,
			SessionSummary:   appointment.SessionNotes.SessionSummary,
			ActionItems:      StringsFromJSON(appointment.SessionNotes.ActionItems),
			FollowUpRequired: appointment.SessionNotes.FollowUpRequired,
			FollowUpDate:     appointment.SessionNotes.FollowUpDate,
			Recommendations:  appointment.SessionNotes.Recommendations,
			NextSteps:        appointment.SessionNotes.NextSteps,
		},
		Communication: appointment.Communication,
		Feedback:      appointment.Feedback,
		RequestedBy:   appointment.RequestedBy,
		UrgencyLevel:  appointment.UrgencyLevel,
		Version:       appointment.Version,
		CreatedAt:     appointment.CreatedAt,
		UpdatedAt:     appointment.UpdatedAt,
	}

	if details.ConfirmedTime != "" {
		confirmedTime := details.ConfirmedTime
		response.AppointmentDetails.ConfirmedTime = &confirmedTime
	}

	if appointment.Counsellor != nil {
		response.Counsellor = &AppointmentCounsellorSummary{
			ID:    appointment.Counsellor.ID,
			Name:  appointment.Counsellor.Name,
			Email: appointment.Counsellor.Email,
		}
	}

	return response
}
