// Package dashboard computes the read-side statistics for a (month, year)
// period: overtime per user, missing submissions, the recent-activity feed,
// the status breakdown and the hour charts. All computations are
// side-effect-free; only the holiday lookup is cached, keyed by calendar year.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"timesheets/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	regularDayHours  = 8.0
	activityFeedSize = 10
	topEmployeeCount = 5
)

type Service struct {
	db       *gorm.DB
	holidays HolidayLookup
	log      zerolog.Logger

	mu    sync.Mutex
	cache map[int]map[string]struct{} // year -> set of "2006-01-02" dates
}

func NewService(db *gorm.DB, holidays HolidayLookup, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		holidays: holidays,
		log:      log,
		cache:    make(map[int]map[string]struct{}),
	}
}

type OvertimeUser struct {
	UserID        uint    `json:"user_id"`
	Name          string  `json:"name"`
	OvertimeHours float64 `json:"overtime_hours"`
}

type UserRef struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
}

type ActivityItem struct {
	Type        string    `json:"type"` // "timesheet" or "batch"
	Action      string    `json:"action"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	ActorName   string    `json:"actor_name"`
	ReferenceID uint      `json:"reference_id"`
}

type StatusCount struct {
	Status models.Status `json:"status"`
	Count  int           `json:"count"`
}

type PeriodHours struct {
	Label string  `json:"label"` // e.g. "Mar 2025"
	Hours float64 `json:"hours"`
}

type ProjectHours struct {
	Project string  `json:"project"`
	Hours   float64 `json:"hours"`
}

type EmployeeHours struct {
	UserID uint    `json:"user_id"`
	Name   string  `json:"name"`
	Hours  float64 `json:"hours"`
}

type Stats struct {
	OvertimeUsers         []OvertimeUser  `json:"overtimeUsers"`
	MissingTimesheetUsers []UserRef       `json:"missingTimesheetUsers"`
	RecentActivity        []ActivityItem  `json:"recentActivity"`
	TimesheetStatusChart  []StatusCount   `json:"timesheetStatusChart"`
	MonthlyHoursTrend     []PeriodHours   `json:"monthlyHoursTrend"`
	ProjectHoursChart     []ProjectHours  `json:"projectHoursChart"`
	TopEmployeesChart     []EmployeeHours `json:"topEmployeesChart"`
}

// Stats assembles all dashboard figures for the period.
func (s *Service) Stats(ctx context.Context, month, year int) (*Stats, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d", models.ErrValidation, month)
	}

	overtime, err := s.Overtime(ctx, month, year)
	if err != nil {
		return nil, err
	}
	missing, err := s.MissingTimesheets(ctx, month, year)
	if err != nil {
		return nil, err
	}
	activity, err := s.RecentActivity(ctx, activityFeedSize)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.StatusBreakdown(ctx, month, year)
	if err != nil {
		return nil, err
	}
	trend, projects, top, err := s.HourCharts(ctx, month, year)
	if err != nil {
		return nil, err
	}

	return &Stats{
		OvertimeUsers:         overtime,
		MissingTimesheetUsers: missing,
		RecentActivity:        activity,
		TimesheetStatusChart:  breakdown,
		MonthlyHoursTrend:     trend,
		ProjectHoursChart:     projects,
		TopEmployeesChart:     top,
	}, nil
}

// Overtime sums overtime hours per user for the period. Weekend and holiday
// hours count in full; on regular days only the hours beyond the 8-hour day
// count. Sorted descending by total.
func (s *Service) Overtime(ctx context.Context, month, year int) ([]OvertimeUser, error) {
	entries, err := s.periodEntries(ctx, month, year, month, year)
	if err != nil {
		return nil, err
	}
	holidays := s.holidaySet(ctx, year)

	totals := make(map[uint]*OvertimeUser)
	for i := range entries {
		e := &entries[i]
		eff := e.EffectiveHours()
		if eff <= 0 {
			continue
		}
		var ot float64
		if isWeekend(e.Date) || isHoliday(holidays, e.Date) {
			ot = eff
		} else {
			ot = math.Max(0, eff-regularDayHours)
		}
		if ot == 0 {
			continue
		}
		u, ok := totals[e.Timesheet.UserID]
		if !ok {
			u = &OvertimeUser{UserID: e.Timesheet.UserID, Name: e.Timesheet.User.DisplayName()}
			totals[e.Timesheet.UserID] = u
		}
		u.OvertimeHours += ot
	}

	out := make([]OvertimeUser, 0, len(totals))
	for _, u := range totals {
		u.OvertimeHours = round1(u.OvertimeHours)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OvertimeHours != out[j].OvertimeHours {
			return out[i].OvertimeHours > out[j].OvertimeHours
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// MissingTimesheets lists active users without any timesheet row in the
// period.
func (s *Service) MissingTimesheets(ctx context.Context, month, year int) ([]UserRef, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	var submitted []uint
	err := s.db.WithContext(ctx).Model(&models.Timesheet{}).
		Where("month = ? AND year = ?", month, year).
		Pluck("user_id", &submitted).Error
	if err != nil {
		return nil, err
	}
	have := make(map[uint]struct{}, len(submitted))
	for _, id := range submitted {
		have[id] = struct{}{}
	}

	out := []UserRef{}
	for i := range users {
		if _, ok := have[users[i].ID]; ok {
			continue
		}
		out = append(out, UserRef{UserID: users[i].ID, Name: users[i].DisplayName()})
	}
	return out, nil
}

// RecentActivity merges the latest timesheet and batch history rows into one
// feed, newest first, truncated to limit. A missing actor never fails the
// feed; it shows as "System".
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error) {
	var approvals []models.ApprovalHistory
	err := s.db.WithContext(ctx).Preload("Actor").
		Order("created_at desc, id desc").Limit(limit).
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	var batches []models.BatchHistory
	err = s.db.WithContext(ctx).Preload("Actor").
		Order("created_at desc, id desc").Limit(limit).
		Find(&batches).Error
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(approvals)+len(batches))
	for i := range approvals {
		h := &approvals[i]
		msg := h.Comment
		if msg == "" {
			msg = fmt.Sprintf("Timesheet %s", h.Action)
		}
		items = append(items, ActivityItem{
			Type:        "timesheet",
			Action:      h.Action,
			Message:     msg,
			Timestamp:   h.CreatedAt,
			ActorName:   actorName(h.Actor),
			ReferenceID: h.TimesheetID,
		})
	}
	for i := range batches {
		h := &batches[i]
		msg := h.Comment
		if msg == "" {
			msg = fmt.Sprintf("Batch %s", h.Action)
		}
		items = append(items, ActivityItem{
			Type:        "batch",
			Action:      h.Action,
			Message:     msg,
			Timestamp:   h.CreatedAt,
			ActorName:   actorName(h.Actor),
			ReferenceID: h.BatchID,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// statusOrder is the fixed bucket order of the status chart.
var statusOrder = []models.Status{
	models.StatusDraft,
	models.StatusSubmitted,
	models.StatusApproved,
	models.StatusFinished,
	models.StatusRejected,
}

// StatusBreakdown counts the period's timesheets per status in a fixed bucket
// order, dropping empty buckets.
func (s *Service) StatusBreakdown(ctx context.Context, month, year int) ([]StatusCount, error) {
	var sheets []models.Timesheet
	err := s.db.WithContext(ctx).
		Where("month = ? AND year = ?", month, year).
		Find(&sheets).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Status]int)
	for i := range sheets {
		// AfterFind already normalized legacy literals.
		counts[sheets[i].Status]++
	}

	out := []StatusCount{}
	for _, st := range statusOrder {
		if counts[st] == 0 {
			continue
		}
		out = append(out, StatusCount{Status: st, Count: counts[st]})
	}
	return out, nil
}

// HourCharts computes the trailing 6-month hours trend ending at the period,
// plus per-project hours and the top employees for the period itself.
func (s *Service) HourCharts(ctx context.Context, month, year int) ([]PeriodHours, []ProjectHours, []EmployeeHours, error) {
	windowEnd := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	windowStart := windowEnd.AddDate(0, -5, 0)
	entries, err := s.periodEntries(ctx, int(windowStart.Month()), windowStart.Year(), month, year)
	if err != nil {
		return nil, nil, nil, err
	}

	trendTotals := make(map[string]float64)
	projectTotals := make(map[string]float64)
	userTotals := make(map[uint]*EmployeeHours)
	for i := range entries {
		e := &entries[i]
		eff := e.EffectiveHours()
		if eff <= 0 {
			continue
		}
		bucket := time.Date(e.Timesheet.Year, time.Month(e.Timesheet.Month), 1, 0, 0, 0, 0, time.UTC)
		trendTotals[bucket.Format("Jan 2006")] += eff

		if e.Timesheet.Month != month || e.Timesheet.Year != year {
			continue
		}
		name := "Unassigned"
		if e.Project != nil {
			name = e.Project.Name
		}
		projectTotals[name] += eff

		u, ok := userTotals[e.Timesheet.UserID]
		if !ok {
			u = &EmployeeHours{UserID: e.Timesheet.UserID, Name: e.Timesheet.User.DisplayName()}
			userTotals[e.Timesheet.UserID] = u
		}
		u.Hours += eff
	}

	trend := make([]PeriodHours, 0, 6)
	for i := 5; i >= 0; i-- {
		bucket := windowEnd.AddDate(0, -i, 0)
		label := bucket.Format("Jan 2006")
		trend = append(trend, PeriodHours{Label: label, Hours: round1(trendTotals[label])})
	}

	projects := make([]ProjectHours, 0, len(projectTotals))
	for name, h := range projectTotals {
		projects = append(projects, ProjectHours{Project: name, Hours: round1(h)})
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Hours != projects[j].Hours {
			return projects[i].Hours > projects[j].Hours
		}
		return projects[i].Project < projects[j].Project
	})

	top := make([]EmployeeHours, 0, len(userTotals))
	for _, u := range userTotals {
		u.Hours = round1(u.Hours)
		top = append(top, *u)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Hours != top[j].Hours {
			return top[i].Hours > top[j].Hours
		}
		return top[i].UserID < top[j].UserID
	})
	if len(top) > topEmployeeCount {
		top = top[:topEmployeeCount]
	}
	return trend, projects, top, nil
}

// periodEntries loads entries whose parent timesheet falls between the two
// (month, year) bounds inclusive, with parent and project preloaded.
func (s *Service) periodEntries(ctx context.Context, fromMonth, fromYear, toMonth, toYear int) ([]models.TimesheetEntry, error) {
	var entries []models.TimesheetEntry
	err := s.db.WithContext(ctx).
		Joins("JOIN timesheets ON timesheets.id = timesheet_entries.timesheet_id").
		Where("timesheets.year * 12 + timesheets.month BETWEEN ? AND ?", fromYear*12+fromMonth, toYear*12+toMonth).
		Preload("Timesheet").
		Preload("Timesheet.User").
		Preload("Project").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// holidaySet returns the cached holiday set for a year, fetching it once. A
// failed lookup is logged and not cached, so the year degrades to weekend-only
// detection until a later call succeeds.
func (s *Service) holidaySet(ctx context.Context, year int) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.cache[year]; ok {
		return set
	}
	days, err := s.holidays.Holidays(ctx, year)
	if err != nil {
		s.log.Warn().Int("year", year).Err(err).Msg("holiday lookup failed, counting weekends only")
		return map[string]struct{}{}
	}
	set := make(map[string]struct{}, len(days))
	for _, d := range days {
		set[d.Format("2006-01-02")] = struct{}{}
	}
	s.cache[year] = set
	return set
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func isHoliday(set map[string]struct{}, d time.Time) bool {
	_, ok := set[d.Format("2006-01-02")]
	return ok
}

func actorName(u *models.User) string {
	if u == nil {
		return "System"
	}
	return u.DisplayName()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
