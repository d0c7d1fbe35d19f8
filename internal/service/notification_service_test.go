package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
)

func TestSendReminderMarksCommunication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.createStudent(t, "Priya", "priya@school.edu")
	admin := env.createAdmin(t, "Head", "head@school.edu", models.RoleAdmin)
	appointment := env.requestAppointment(t, student, tomorrow())

	result, err := env.notifications.SendReminder(ctx, admin, dto.AppointmentEmailRequest{AppointmentID: appointment.ID})
	require.NoError(t, err)
	require.True(t, result.Delivered)
	require.Equal(t, models.EmailKindReminder, result.Kind)
	require.Equal(t, "priya@school.edu", result.Recipient)

	stored, err := env.appointments.GetByID(ctx, appointment.ID)
	require.NoError(t, err)
	require.True(t, stored.Communication.ReminderSent)
	require.NotNil(t, stored.Communication.ReminderSentDate)
	require.False(t, stored.Communication.EmailSent)
	require.Equal(t, appointment.Version, stored.Version)
}

func TestSendConfirmationEscapesCustomMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.createStudent(t, "Priya", "priya@school.edu")
	appointment := env.requestAppointment(t, student, tomorrow())

	result, err := env.notifications.SendConfirmation(ctx, student, dto.AppointmentEmailRequest{
		AppointmentID: appointment.ID,
		CustomMessage: `<img src=x onerror=alert(1)>Bring your report & marksheet`,
	})
	require.NoError(t, err)
	require.True(t, result.Delivered)

	messages := env.mail.messages()
	require.Len(t, messages, 1)
	require.NotContains(t, messages[0].HTML, "<img")
	require.Contains(t, messages[0].HTML, "Bring your report &amp; marksheet")
	require.Equal(t, "Appointment Confirmation - Atma Chetna", messages[0].Subject)
}

func TestEmailEndpointsAreScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createStudent(t, "Priya", "priya@school.edu")
	other := env.createStudent(t, "Rahul", "rahul@school.edu")
	appointment := env.requestAppointment(t, owner, tomorrow())

	_, err := env.notifications.SendConfirmation(ctx, other, dto.AppointmentEmailRequest{AppointmentID: appointment.ID})
	require.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = env.notifications.SendFollowUp(ctx, other, dto.FollowUpEmailRequest{StudentID: owner.ID, Subject: "Hi", Message: "Checking in"})
	require.ErrorIs(t, err, ErrForbidden)

	require.Empty(t, env.mail.messages())
}

func TestSendFollowUpRecordsDelivery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.createStudent(t, "Priya", "priya@school.edu")
	other := env.createStudent(t, "Rahul", "rahul@school.edu")
	admin := env.createAdmin(t, "Head", "head@school.edu", models.RoleAdmin)
	appointment := env.requestAppointment(t, student, tomorrow())
	foreign := env.requestAppointment(t, other, tomorrow())

	foreignID := foreign.ID
	_, err := env.notifications.SendFollowUp(ctx, admin, dto.FollowUpEmailRequest{StudentID: student.ID, AppointmentID: &foreignID, Subject: "Hi", Message: "x"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	appointmentID := appointment.ID
	result, err := env.notifications.SendFollowUp(ctx, admin, dto.FollowUpEmailRequest{
		StudentID:     student.ID,
		AppointmentID: &appointmentID,
		Subject:       "How are you doing?",
		Message:       "Line one\n\nLine two",
	})
	require.NoError(t, err)
	require.True(t, result.Delivered)
	require.NotZero(t, result.DeliveryID)

	messages := env.mail.messages()
	require.Len(t, messages, 1)
	require.Contains(t, messages[0].HTML, "<p>Line one</p>")
	require.Contains(t, messages[0].HTML, "<p>Line two</p>")

	deliveries, err := env.deliveries.ListByAppointment(ctx, appointment.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.Equal(t, models.EmailKindFollowUp, deliveries[0].Kind)
	require.NotNil(t, deliveries[0].SentBy)
	require.Equal(t, admin.ID, *deliveries[0].SentBy)

	stored, err := env.appointments.GetByID(ctx, appointment.ID)
	require.NoError(t, err)
	require.True(t, stored.Communication.EmailSent)
}

func TestFailedDeliveryReturnsNotificationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mail.failWith = errSMTPDown
	ctx := context.Background()
	student := env.createStudent(t, "Priya", "priya@school.edu")
	appointment := env.requestAppointment(t, student, tomorrow())

	result, err := env.notifications.SendReminder(ctx, student, dto.AppointmentEmailRequest{AppointmentID: appointment.ID})
	require.ErrorIs(t, err, ErrNotificationFailure)
	require.False(t, result.Delivered)
	require.Contains(t, result.Error, "smtp relay unavailable")

	status := env.notifications.TestTransport(ctx)
	require.False(t, status.Healthy)
	require.Equal(t, "recording", status.Transport)
}
