package models

// Principal roles carried in tokens and stored on every account.
const (
	RoleStudent    = "student"
	RoleAdmin      = "admin"
	RoleCounsellor = "counsellor"
)

// AppointmentStatus enumerates the lifecycle states of an appointment.
type AppointmentStatus string

// Appointment statuses.
const (
	AppointmentStatusPending     AppointmentStatus = "Pending"
	AppointmentStatusConfirmed   AppointmentStatus = "Confirmed"
	AppointmentStatusInProgress  AppointmentStatus = "In-Progress"
	AppointmentStatusCompleted   AppointmentStatus = "Completed"
	AppointmentStatusCancelled   AppointmentStatus = "Cancelled"
	AppointmentStatusNoShow      AppointmentStatus = "No-Show"
	AppointmentStatusRescheduled AppointmentStatus = "Rescheduled"
)

// AppointmentStatuses lists every valid status in lifecycle order.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusInProgress,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
	AppointmentStatusNoShow,
	AppointmentStatusRescheduled,
}

// Valid reports whether the status belongs to the closed enum.
func (s AppointmentStatus) Valid() bool {
	for _, status := range AppointmentStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from the status.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	default:
		return false
	}
}

// Appointment categories.
const (
	AppointmentTypeAcademic   = "Academic Counseling"
	AppointmentTypeCareer     = "Career Guidance"
	AppointmentTypePersonal   = "Personal Counseling"
	AppointmentTypeStress     = "Stress Management"
	AppointmentTypeStudy      = "Study Skills"
	AppointmentTypeCollege    = "College Preparation"
	AppointmentTypeBehavioral = "Behavioral Issues"
	AppointmentTypeFollowUp   = "Follow-up Session"
	AppointmentTypeOther      = "Other"
)

// AppointmentTypes lists the supported counseling categories.
var AppointmentTypes = []string{
	AppointmentTypeAcademic,
	AppointmentTypeCareer,
	AppointmentTypePersonal,
	AppointmentTypeStress,
	AppointmentTypeStudy,
	AppointmentTypeCollege,
	AppointmentTypeBehavioral,
	AppointmentTypeFollowUp,
	AppointmentTypeOther,
}

// Appointment modes.
const (
	AppointmentModeInPerson = "In-Person"
	AppointmentModeVideo    = "Video Call"
	AppointmentModePhone    = "Phone Call"
)

// Appointment priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// Student risk levels.
const (
	RiskLevelLow    = "Low"
	RiskLevelMedium = "Medium"
	RiskLevelHigh   = "High"
)

// Student statuses.
const (
	StudentStatusActive      = "Active"
	StudentStatusInactive    = "Inactive"
	StudentStatusGraduated   = "Graduated"
	StudentStatusTransferred = "Transferred"
)

// Email delivery kinds and outcomes.
const (
	EmailKindConfirmation = "confirmation"
	EmailKindFollowUp     = "follow_up"
	EmailKindReminder     = "reminder"

	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)
