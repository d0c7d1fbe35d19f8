package dto

// CountByLabel is one bucket of a distribution.
type CountByLabel struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// MonthlyCount is one point of a month-by-month trend.
type MonthlyCount struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

// DashboardOverview holds the headline figures of the dashboard.
type DashboardOverview struct {
	TotalStudents         int64 `json:"totalStudents"`
	ActiveStudents        int64 `json:"activeStudents"`
	TotalAppointments     int64 `json:"totalAppointments"`
	PendingAppointments   int64 `json:"pendingAppointments"`
	ConfirmedAppointments int64 `json:"confirmedAppointments"`
	CompletedAppointments int64 `json:"completedAppointments"`
	TodayAppointments     int64 `json:"todayAppointments"`
	HighRiskStudents      int64 `json:"highRiskStudents"`
	RecentAppointments    int64 `json:"recentAppointments"`
}

// DashboardStats is returned by GET /stats/dashboard.
type DashboardStats struct {
	Overview         DashboardOverview `json:"overview"`
	AppointmentTypes []CountByLabel    `json:"appointmentTypes"`
	MonthlyTrend     []MonthlyCount    `json:"monthlyTrend"`
}

// StudentStats is returned by GET /stats/students.
type StudentStats struct {
	Total               int64          `json:"total"`
	StatusDistribution  []CountByLabel `json:"statusDistribution"`
	RiskDistribution    []CountByLabel `json:"riskDistribution"`
	ClassDistribution   []CountByLabel `json:"classDistribution"`
	RecentRegistrations int64          `json:"recentRegistrations"`
}

// WeeklyCount is the number of appointments in one week of the current month.
type WeeklyCount struct {
	Week  int   `json:"week"`
	Count int64 `json:"count"`
}

// AppointmentStats is returned by GET /stats/appointments.
type AppointmentStats struct {
	Total                int64          `json:"total"`
	StatusDistribution   []CountByLabel `json:"statusStats"`
	TypeDistribution     []CountByLabel `json:"typeStats"`
	PriorityDistribution []CountByLabel `json:"priorityStats"`
	WeeklyStats          []WeeklyCount  `json:"weeklyStats"`
	CompletionRate       float64        `json:"completionRate"`
}

// CalendarEntry is a compact appointment view used in the calendar.
type CalendarEntry struct {
	ID          uint   `json:"id"`
	StudentName string `json:"studentName"`
	Time        string `json:"time"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Duration    int    `json:"duration"`
}

// CalendarDay groups appointments falling on one day.
type CalendarDay struct {
	Date         string          `json:"date"`
	Appointments []CalendarEntry `json:"appointments"`
}

// CalendarStats is returned by GET /stats/calendar.
type CalendarStats struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}
