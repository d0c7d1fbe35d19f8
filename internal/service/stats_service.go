package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/models"
	"github.com/noah-isme/counseling-api/internal/observability"
	"github.com/noah-isme/counseling-api/internal/repository"
)

// StatsService aggregates dashboard figures. Student callers only see their own appointments.
type StatsService interface {
	Dashboard(ctx context.Context, actor auth.Principal) (dto.DashboardStats, error)
	Students(ctx context.Context, actor auth.Principal) (dto.StudentStats, error)
	Appointments(ctx context.Context, actor auth.Principal) (dto.AppointmentStats, error)
	Calendar(ctx context.Context, actor auth.Principal, year, month int) (dto.CalendarStats, error)
}

type statsService struct {
	repo     repository.StatsRepository
	cache    *redis.Client
	cacheTTL time.Duration
	tracer   trace.Tracer
	now      func() time.Time
	logger   zerolog.Logger
}

// NewStatsService constructs the statistics service. cache may be nil.
func NewStatsService(repo repository.StatsRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &statsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		tracer:   otel.Tracer("github.com/noah-isme/counseling-api/internal/service/stats"),
		now:      time.Now,
		logger:   logger.With().Str("component", "stats_service").Logger(),
	}
}

func (s *statsService) Dashboard(ctx context.Context, actor auth.Principal) (dto.DashboardStats, error) {
	return withStatsCache(ctx, s, "dashboard", cacheScope(actor), func(ctx context.Context) (dto.DashboardStats, error) {
		return s.buildDashboard(ctx, actor)
	})
}

func (s *statsService) Students(ctx context.Context, actor auth.Principal) (dto.StudentStats, error) {
	if !actor.IsStaff() {
		return dto.StudentStats{}, ErrForbidden
	}
	return withStatsCache(ctx, s, "students", "all", s.buildStudentStats)
}

func (s *statsService) Appointments(ctx context.Context, actor auth.Principal) (dto.AppointmentStats, error) {
	return withStatsCache(ctx, s, "appointments", cacheScope(actor), func(ctx context.Context) (dto.AppointmentStats, error) {
		return s.buildAppointmentStats(ctx, actor)
	})
}

// Calendar groups a month of appointments by the day they take place. Zero year or
// month selects the current one.
func (s *statsService) Calendar(ctx context.Context, actor auth.Principal, year, month int) (dto.CalendarStats, error) {
	now := s.now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return dto.CalendarStats{}, newValidationError("month", "must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return dto.CalendarStats{}, newValidationError("year", "must be between 2000 and 2100")
	}

	scope := fmt.Sprintf("%s:%04d-%02d", cacheScope(actor), year, month)
	return withStatsCache(ctx, s, "calendar", scope, func(ctx context.Context) (dto.CalendarStats, error) {
		return s.buildCalendar(ctx, actor, year, month)
	})
}

func (s *statsService) buildDashboard(ctx context.Context, actor auth.Principal) (dto.DashboardStats, error) {
	scope := studentScope(actor)
	now := s.now().UTC()
	var overview dto.DashboardOverview
	var err error

	if scope == nil {
		active := true
		if overview.TotalStudents, err = s.repo.CountStudents(ctx, repository.StudentCountFilter{}); err != nil {
			return dto.DashboardStats{}, err
		}
		if overview.ActiveStudents, err = s.repo.CountStudents(ctx, repository.StudentCountFilter{Status: models.StudentStatusActive, IsActive: &active}); err != nil {
			return dto.DashboardStats{}, err
		}
		if overview.HighRiskStudents, err = s.repo.CountStudents(ctx, repository.StudentCountFilter{RiskLevel: models.RiskLevelHigh}); err != nil {
			return dto.DashboardStats{}, err
		}
	}

	counts := []struct {
		status string
		target *int64
	}{
		{"", &overview.TotalAppointments},
		{string(models.AppointmentStatusPending), &overview.PendingAppointments},
		{string(models.AppointmentStatusConfirmed), &overview.ConfirmedAppointments},
		{string(models.AppointmentStatusCompleted), &overview.CompletedAppointments},
	}
	for _, c := range counts {
		if *c.target, err = s.repo.CountAppointments(ctx, repository.AppointmentCountFilter{StudentID: scope, Status: c.status}); err != nil {
			return dto.DashboardStats{}, err
		}
	}

	weekAgo := now.AddDate(0, 0, -7)
	if overview.RecentAppointments, err = s.repo.CountAppointments(ctx, repository.AppointmentCountFilter{StudentID: scope, CreatedSince: &weekAgo}); err != nil {
		return dto.DashboardStats{}, err
	}

	dayStart, dayEnd := dayBounds(now)
	today, err := s.repo.AppointmentsScheduledBetween(ctx, scope, dayStart, dayEnd)
	if err != nil {
		return dto.DashboardStats{}, err
	}
	overview.TodayAppointments = int64(len(today))

	types, err := s.repo.AppointmentDistribution(ctx, scope, "type")
	if err != nil {
		return dto.DashboardStats{}, err
	}

	trendStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)
	created, err := s.repo.AppointmentCreatedTimes(ctx, scope, trendStart)
	if err != nil {
		return dto.DashboardStats{}, err
	}

	return dto.DashboardStats{
		Overview:         overview,
		AppointmentTypes: toCountByLabel(types),
		MonthlyTrend:     monthlyTrend(trendStart, 6, created),
	}, nil
}

func (s *statsService) buildStudentStats(ctx context.Context) (dto.StudentStats, error) {
	var stats dto.StudentStats
	var err error

	if stats.Total, err = s.repo.CountStudents(ctx, repository.StudentCountFilter{}); err != nil {
		return dto.StudentStats{}, err
	}

	distributions := []struct {
		column string
		target *[]dto.CountByLabel
	}{
		{"status", &stats.StatusDistribution},
		{"risk_level", &stats.RiskDistribution},
		{"current_class", &stats.ClassDistribution},
	}
	for _, d := range distributions {
		rows, err := s.repo.StudentDistribution(ctx, d.column)
		if err != nil {
			return dto.StudentStats{}, err
		}
		*d.target = toCountByLabel(rows)
	}

	since := s.now().UTC().AddDate(0, 0, -30)
	if stats.RecentRegistrations, err = s.repo.CountStudents(ctx, repository.StudentCountFilter{CreatedSince: &since}); err != nil {
		return dto.StudentStats{}, err
	}

	return stats, nil
}

func (s *statsService) buildAppointmentStats(ctx context.Context, actor auth.Principal) (dto.AppointmentStats, error) {
	scope := studentScope(actor)
	var stats dto.AppointmentStats

	distributions := []struct {
		column string
		target *[]dto.CountByLabel
	}{
		{"status", &stats.StatusDistribution},
		{"type", &stats.TypeDistribution},
		{"priority", &stats.PriorityDistribution},
	}
	for _, d := range distributions {
		rows, err := s.repo.AppointmentDistribution(ctx, scope, d.column)
		if err != nil {
			return dto.AppointmentStats{}, err
		}
		*d.target = toCountByLabel(rows)
	}

	total, err := s.repo.CountAppointments(ctx, repository.AppointmentCountFilter{StudentID: scope})
	if err != nil {
		return dto.AppointmentStats{}, err
	}
	completed, err := s.repo.CountAppointments(ctx, repository.AppointmentCountFilter{StudentID: scope, Status: string(models.AppointmentStatusCompleted)})
	if err != nil {
		return dto.AppointmentStats{}, err
	}
	stats.Total = total
	stats.CompletionRate = completionRate(completed, total)

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	inMonth, err := s.repo.AppointmentsRequestedBetween(ctx, scope, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return dto.AppointmentStats{}, err
	}
	stats.WeeklyStats = weeklyCounts(inMonth)

	return stats, nil
}

func (s *statsService) buildCalendar(ctx context.Context, actor auth.Principal, year, month int) (dto.CalendarStats, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	appointments, err := s.repo.AppointmentsScheduledBetween(ctx, studentScope(actor), from, from.AddDate(0, 1, 0))
	if err != nil {
		return dto.CalendarStats{}, err
	}

	byDay := map[string][]dto.CalendarEntry{}
	for _, appointment := range appointments {
		day := appointment.EffectiveDate().UTC().Format("2006-01-02")
		entryTime := appointment.Details.RequestedTime
		if appointment.Details.ConfirmedTime != "" {
			entryTime = appointment.Details.ConfirmedTime
		}
		byDay[day] = append(byDay[day], dto.CalendarEntry{
			ID:          appointment.ID,
			StudentName: appointment.Student.FullName(),
			Time:        entryTime,
			Type:        appointment.Details.Type,
			Status:      string(appointment.Status),
			Duration:    appointment.Details.Duration,
		})
	}

	days := make([]dto.CalendarDay, 0, len(byDay))
	for day, entries := range byDay {
		days = append(days, dto.CalendarDay{Date: day, Appointments: entries})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return dto.CalendarStats{Year: year, Month: month, Days: days}, nil
}

// withStatsCache serves a report from Redis when present and stores freshly built
// reports for the configured TTL. Cache failures fall through to the database.
func withStatsCache[T any](ctx context.Context, s *statsService, report, scope string, build func(context.Context) (T, error)) (T, error) {
	cacheKey := fmt.Sprintf("stats:%s:%s", report, scope)
	ctx, span := s.tracer.Start(ctx, "stats."+report)
	span.SetAttributes(attribute.String("stats.cache_key", cacheKey))
	defer span.End()

	var zero T
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var result T
			if unmarshalErr := json.Unmarshal([]byte(cached), &result); unmarshalErr == nil {
				span.SetAttributes(attribute.Bool("stats.cache_hit", true))
				observability.StatsCacheLookups().WithLabelValues(report, "hit").Inc()
				return result, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Str("report", report).Msg("failed to read stats cache")
			span.RecordError(err)
		}
		observability.StatsCacheLookups().WithLabelValues(report, "miss").Inc()
	}

	result, err := build(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, report+"_aggregation_failed")
		return zero, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(result)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Str("report", report).Msg("failed to store stats cache")
				span.RecordError(err)
			}
		}
	}

	return result, nil
}

func cacheScope(actor auth.Principal) string {
	if actor.IsStaff() {
		return "all"
	}
	return fmt.Sprintf("student:%d", actor.ID)
}

func studentScope(actor auth.Principal) *uint {
	if actor.IsStaff() {
		return nil
	}
	id := actor.ID
	return &id
}

func toCountByLabel(rows []repository.LabelCount) []dto.CountByLabel {
	out := make([]dto.CountByLabel, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.CountByLabel{Label: row.Label, Count: row.Count})
	}
	return out
}

// monthlyTrend returns one point per month starting at start, including empty months.
func monthlyTrend(start time.Time, months int, created []time.Time) []dto.MonthlyCount {
	counts := map[string]int64{}
	for _, t := range created {
		t = t.UTC()
		counts[fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))]++
	}

	trend := make([]dto.MonthlyCount, 0, months)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0)
		key := fmt.Sprintf("%04d-%02d", month.Year(), int(month.Month()))
		trend = append(trend, dto.MonthlyCount{Year: month.Year(), Month: int(month.Month()), Count: counts[key]})
	}
	return trend
}

// weeklyCounts buckets appointments by week of the month, week 1 being days 1 to 7.
func weeklyCounts(appointments []models.Appointment) []dto.WeeklyCount {
	counts := map[int]int64{}
	for _, appointment := range appointments {
		week := (appointment.Details.RequestedDate.UTC().Day()-1)/7 + 1
		counts[week]++
	}

	weeks := make([]int, 0, len(counts))
	for week := range counts {
		weeks = append(weeks, week)
	}
	sort.Ints(weeks)

	out := make([]dto.WeeklyCount, 0, len(weeks))
	for _, week := range weeks {
		out = append(out, dto.WeeklyCount{Week: week, Count: counts[week]})
	}
	return out
}

func completionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}
