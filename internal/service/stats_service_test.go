package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/repository"
)

func newStatsFixture(t *testing.T) (*testEnv, *statsService, *miniredis.Miniredis) {
	t.Helper()
	env := newTestEnv(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewStatsService(repository.NewStatsRepository(env.db), client, time.Minute, testLogger()).(*statsService)
	return env, svc, mr
}

func TestDashboardStatsAreCachedPerScope(t *testing.T) {
	env, svc, mr := newStatsFixture(t)
	ctx := context.Background()
	admin := env.createAdmin(t, "Head", "head@school.edu", models.RoleAdmin)
	priya := env.createStudent(t, "Priya", "priya@school.edu")
	rahul := env.createStudent(t, "Rahul", "rahul@school.edu")

	today := time.Now().UTC().Format("2006-01-02")
	env.requestAppointment(t, priya, today)
	env.requestAppointment(t, priya, tomorrow())
	env.requestAppointment(t, rahul, tomorrow())

	stats, err := svc.Dashboard(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Overview.TotalStudents)
	require.Equal(t, int64(3), stats.Overview.TotalAppointments)
	require.Equal(t, int64(3), stats.Overview.PendingAppointments)
	require.Equal(t, int64(1), stats.Overview.TodayAppointments)
	require.Equal(t, int64(3), stats.Overview.RecentAppointments)
	require.Len(t, stats.MonthlyTrend, 6)
	require.Equal(t, int64(3), stats.MonthlyTrend[5].Count)
	require.Equal(t, []dto.CountByLabel{{Label: models.AppointmentTypeCareer, Count: 3}}, stats.AppointmentTypes)
	require.True(t, mr.Exists("stats:dashboard:all"))

	own, err := svc.Dashboard(ctx, priya)
	require.NoError(t, err)
	require.Zero(t, own.Overview.TotalStudents)
	require.Equal(t, int64(2), own.Overview.TotalAppointments)
	require.True(t, mr.Exists("stats:dashboard:student:"+itoa(priya.ID)))

	env.requestAppointment(t, rahul, tomorrow())
	cached, err := svc.Dashboard(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, int64(3), cached.Overview.TotalAppointments)

	mr.FastForward(2 * time.Minute)
	fresh, err := svc.Dashboard(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, int64(4), fresh.Overview.TotalAppointments)
}

func TestStudentStatsRequireStaff(t *testing.T) {
	env, svc, _ := newStatsFixture(t)
	ctx := context.Background()
	admin := env.createAdmin(t, "Head", "head@school.edu", models.RoleAdmin)
	student := env.createStudent(t, "Priya", "priya@school.edu")
	env.createStudent(t, "Rahul", "rahul@school.edu")

	_, err := svc.Students(ctx, student)
	require.ErrorIs(t, err, ErrForbidden)

	stats, err := svc.Students(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(2), stats.RecentRegistrations)
	require.Equal(t, []dto.CountByLabel{{Label: models.StudentStatusActive, Count: 2}}, stats.StatusDistribution)
	require.Equal(t, []dto.CountByLabel{{Label: models.RiskLevelLow, Count: 2}}, stats.RiskDistribution)
}

func TestAppointmentStatsCompletionRate(t *testing.T) {
	env, svc, _ := newStatsFixture(t)
	ctx := context.Background()
	admin := env.createAdmin(t, "Head", "head@school.edu", models.RoleAdmin)
	student := env.createStudent(t, "Priya", "priya@school.edu")

	first := env.requestAppointment(t, student, tomorrow())
	env.requestAppointment(t, student, tomorrow())
	env.requestAppointment(t, student, tomorrow())

	_, err := env.appointmentSv.MarkStatus(ctx, admin, first.ID, dto.StatusOverrideRequest{Status: "Confirmed"})
	require.NoError(t, err)
	_, err = env.appointmentSv.MarkStatus(ctx, admin, first.ID, dto.StatusOverrideRequest{Status: "Completed"})
	require.NoError(t, err)

	stats, err := svc.Appointments(ctx, student)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.Total)
	require.InDelta(t, 33.33, stats.CompletionRate, 0.001)
	require.Len(t, stats.StatusDistribution, 2)
}

func TestCalendarGroupsByEffectiveDate(t *testing.T) {
	env, svc, _ := newStatsFixture(t)
	ctx := context.Background()
	admin := env.createAdmin(t, "Head", "head@school.edu", models.RoleAdmin)
	student := env.createStudent(t, "Priya", "priya@school.edu")

	moved := env.requestAppointment(t, student, "2030-06-03")
	env.requestAppointment(t, student, "2030-06-10")
	env.requestAppointment(t, student, "2030-07-01")

	_, err := env.appointmentSv.Confirm(ctx, admin, moved.ID, dto.ConfirmAppointmentRequest{ConfirmedDate: "2030-06-05", ConfirmedTime: "11:00 AM"})
	require.NoError(t, err)

	calendar, err := svc.Calendar(ctx, admin, 2030, 6)
	require.NoError(t, err)
	require.Equal(t, 2030, calendar.Year)
	require.Equal(t, 6, calendar.Month)
	require.Len(t, calendar.Days, 2)
	require.Equal(t, "2030-06-05", calendar.Days[0].Date)
	require.Equal(t, "11:00 AM", calendar.Days[0].Appointments[0].Time)
	require.Equal(t, "Priya Sharma", calendar.Days[0].Appointments[0].StudentName)
	require.Equal(t, "2030-06-10", calendar.Days[1].Date)

	_, err = svc.Calendar(ctx, admin, 2030, 13)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestStatsFallBackWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "Head", "head@school.edu", models.RoleAdmin)
	svc := NewStatsService(repository.NewStatsRepository(env.db), nil, 0, testLogger())

	stats, err := svc.Appointments(context.Background(), admin)
	require.NoError(t, err)
	require.Zero(t, stats.Total)
	require.Zero(t, stats.CompletionRate)
}

func TestWeeklyCountsBucketByDayOfMonth(t *testing.T) {
	appointments := []models.Appointment{
		{Details: models.AppointmentDetails{RequestedDate: time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)}},
		{Details: models.AppointmentDetails{RequestedDate: time.Date(2030, 6, 7, 0, 0, 0, 0, time.UTC)}},
		{Details: models.AppointmentDetails{RequestedDate: time.Date(2030, 6, 8, 0, 0, 0, 0, time.UTC)}},
		{Details: models.AppointmentDetails{RequestedDate: time.Date(2030, 6, 30, 0, 0, 0, 0, time.UTC)}},
	}

	require.Equal(t, []dto.WeeklyCount{{Week: 1, Count: 2}, {Week: 2, Count: 1}, {Week: 5, Count: 1}}, weeklyCounts(appointments))
}

func itoa(v uint) string {
	return fmt.Sprintf("%d", v)
}
