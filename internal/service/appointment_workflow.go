package service

import "github.com/noah-isme/counseling-api/internal/models"

// appointmentTransitions is the only place status moves are defined. Every mutation,
// including the status override, is checked against it.
var appointmentTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentStatusPending: {
		models.AppointmentStatusConfirmed,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusRescheduled,
	},
	models.AppointmentStatusRescheduled: {
		models.AppointmentStatusConfirmed,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusRescheduled,
		models.AppointmentStatusPending,
	},
	models.AppointmentStatusConfirmed: {
		models.AppointmentStatusInProgress,
		models.AppointmentStatusCompleted,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusRescheduled,
	},
	models.AppointmentStatusInProgress: {
		models.AppointmentStatusCompleted,
		models.AppointmentStatusNoShow,
		models.AppointmentStatusCancelled,
	},
}

// Transition names used for activity actions, metrics labels and event subjects.
const (
	transitionRequest    = "requested"
	transitionConfirm    = "confirmed"
	transitionStart      = "started"
	transitionComplete   = "completed"
	transitionNoShow     = "no_show"
	transitionCancel     = "cancelled"
	transitionReschedule = "rescheduled"
	transitionReopen     = "reopened"
)

func canTransition(from, to models.AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to models.AppointmentStatus) error {
	if !canTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// AllowedTransitions lists the statuses reachable from the given one.
func AllowedTransitions(from models.AppointmentStatus) []models.AppointmentStatus {
	allowed := appointmentTransitions[from]
	out := make([]models.AppointmentStatus, len(allowed))
	copy(out, allowed)
	return out
}

// transitionName maps a target status to the name of the move into it.
func transitionName(to models.AppointmentStatus) string {
	switch to {
	case models.AppointmentStatusConfirmed:
		return transitionConfirm
	case models.AppointmentStatusInProgress:
		return transitionStart
	case models.AppointmentStatusCompleted:
		return transitionComplete
	case models.AppointmentStatusNoShow:
		return transitionNoShow
	case models.AppointmentStatusCancelled:
		return transitionCancel
	case models.AppointmentStatusRescheduled:
		return transitionReschedule
	case models.AppointmentStatusPending:
		return transitionReopen
	default:
		return string(to)
	}
}
