// Package dashboard computes department summary and analytics views.
// Every view is produced by a single pass over the department's tickets
// for the requested window and wrapped by the cache layer, so a hit
// short-circuits recomputation entirely.
package dashboard

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// Period selects the analytics window.
type Period string

const (
	Period7d     Period = "7d"
	Period30d    Period = "30d"
	Period90d    Period = "90d"
	PeriodCustom Period = "custom"
)

// ParsePeriod validates a period value received at the boundary.
func ParsePeriod(raw string) (Period, bool) {
	switch Period(raw) {
	case Period7d, Period30d, Period90d, PeriodCustom:
		return Period(raw), true
	}
	return "", false
}

// Overview is the department summary card.
type Overview struct {
	Department       domain.Department             `json:"department"`
	Total            int                           `json:"total"`
	CountsByStatus   map[domain.TicketStatus]int   `json:"counts_by_status"`
	CountsByPriority map[domain.TicketPriority]int `json:"counts_by_priority"`
	Unassigned       int                           `json:"unassigned"`
	GeneratedAt      time.Time                     `json:"generated_at"`
}

// ResolutionStats covers tickets with a non-null resolution time.
type ResolutionStats struct {
	ResolvedCount int     `json:"resolved_count"`
	AvgHours      float64 `json:"avg_hours"`
	MinHours      float64 `json:"min_hours"`
	MaxHours      float64 `json:"max_hours"`
}

// TrendPoint is one day of the dense created/resolved series.
type TrendPoint struct {
	Date     string `json:"date"`
	Created  int    `json:"created"`
	Resolved int    `json:"resolved"`
}

// Analytics is the department analytics view over a window.
type Analytics struct {
	Department        domain.Department             `json:"department"`
	From              time.Time                     `json:"from"`
	To                time.Time                     `json:"to"`
	CountsByStatus    map[domain.TicketStatus]int   `json:"counts_by_status"`
	CountsByPriority  map[domain.TicketPriority]int `json:"counts_by_priority"`
	Resolution        ResolutionStats               `json:"resolution"`
	SLAComplianceRate float64                       `json:"sla_compliance_rate"`
	Trend             []TrendPoint                  `json:"trend"`
	GeneratedAt       time.Time                     `json:"generated_at"`
}

// Performer is one staff member's resolved-ticket ranking entry.
type Performer struct {
	StaffID            string  `json:"staff_id"`
	Name               string  `json:"name"`
	ResolvedCount      int     `json:"resolved_count"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

// TeamPerformance ranks a department's staff by resolved count.
type TeamPerformance struct {
	Department  domain.Department `json:"department"`
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Performers  []Performer       `json:"performers"`
	GeneratedAt time.Time         `json:"generated_at"`
}

const maxPerformers = 10

// Aggregator produces cache-wrapped dashboard views.
type Aggregator struct {
	tickets   repository.TicketRepository
	staff     repository.StaffRepository
	cache     cache.Cache
	cfg       config.DashboardConfig
	ttl       time.Duration
	staticTTL time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Dependencies bundles collaborators for the aggregator. TTL covers the
// volatile dashboard views; StaticTTL covers the staff directory, which
// changes far less often than tickets.
type Dependencies struct {
	TicketRepo repository.TicketRepository
	StaffRepo  repository.StaffRepository
	Cache      cache.Cache
	Config     config.DashboardConfig
	TTL        time.Duration
	StaticTTL  time.Duration
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAggregator constructs the aggregator.
func NewAggregator(deps Dependencies) *Aggregator {
	staticTTL := deps.StaticTTL
	if staticTTL <= 0 {
		staticTTL = deps.TTL
	}
	return &Aggregator{
		tickets:   deps.TicketRepo,
		staff:     deps.StaffRepo,
		cache:     deps.Cache,
		cfg:       deps.Config,
		ttl:       deps.TTL,
		staticTTL: staticTTL,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// Overview returns the department summary over the last 30 days. The
// bool result reports whether the value was served from cache.
func (a *Aggregator) Overview(ctx context.Context, dept domain.Department) (*Overview, bool, error) {
	key := cache.Key(dept, "overview")
	var cached Overview
	if hit := a.lookup(ctx, dept, key, &cached); hit {
		return &cached, true, nil
	}

	from, to := a.window(Period30d, time.Time{}, time.Time{})
	tickets, err := a.fetch(ctx, dept, from, to)
	if err != nil {
		return nil, false, err
	}

	result := &Overview{
		Department:       dept,
		CountsByStatus:   make(map[domain.TicketStatus]int),
		CountsByPriority: make(map[domain.TicketPriority]int),
		GeneratedAt:      a.now(),
	}
	for i := range tickets {
		t := &tickets[i]
		result.Total++
		result.CountsByStatus[t.Status]++
		result.CountsByPriority[t.Priority]++
		if t.AssignedTo == nil {
			result.Unassigned++
		}
	}

	a.store(ctx, key, result)
	return result, false, nil
}

// Analytics returns the analytics view for a period. customFrom/customTo
// are honored only for PeriodCustom.
func (a *Aggregator) Analytics(ctx context.Context, dept domain.Department, period Period, customFrom, customTo time.Time) (*Analytics, bool, error) {
	from, to := a.window(period, customFrom, customTo)
	key := cache.Key(dept, "analytics", string(period), from.Format("20060102"), to.Format("20060102"))
	var cached Analytics
	if hit := a.lookup(ctx, dept, key, &cached); hit {
		return &cached, true, nil
	}

	tickets, err := a.fetch(ctx, dept, from, to)
	if err != nil {
		return nil, false, err
	}

	result := a.computeAnalytics(dept, tickets, from, to)
	a.store(ctx, key, result)
	return result, false, nil
}

// TeamPerformance ranks staff by resolved count over a period.
func (a *Aggregator) TeamPerformance(ctx context.Context, dept domain.Department, period Period) (*TeamPerformance, bool, error) {
	from, to := a.window(period, time.Time{}, time.Time{})
	key := cache.Key(dept, "teamperf", string(period))
	var cached TeamPerformance
	if hit := a.lookup(ctx, dept, key, &cached); hit {
		return &cached, true, nil
	}

	tickets, err := a.fetch(ctx, dept, from, to)
	if err != nil {
		return nil, false, err
	}

	names, err := a.staffNames(ctx, dept)
	if err != nil {
		return nil, false, err
	}

	type bucket struct {
		count int
		hours float64
	}
	byStaff := map[string]*bucket{}
	for i := range tickets {
		t := &tickets[i]
		if t.ResolvedAt == nil || t.AssignedTo == nil {
			continue
		}
		b := byStaff[*t.AssignedTo]
		if b == nil {
			b = &bucket{}
			byStaff[*t.AssignedTo] = b
		}
		b.count++
		b.hours += t.ResolvedAt.Sub(t.CreatedAt).Hours()
	}

	performers := make([]Performer, 0, len(byStaff))
	for id, b := range byStaff {
		performers = append(performers, Performer{
			StaffID:            id,
			Name:               names[id],
			ResolvedCount:      b.count,
			AvgResolutionHours: b.hours / float64(b.count),
		})
	}
	sort.Slice(performers, func(i, j int) bool {
		if performers[i].ResolvedCount != performers[j].ResolvedCount {
			return performers[i].ResolvedCount > performers[j].ResolvedCount
		}
		return performers[i].StaffID < performers[j].StaffID
	})
	if len(performers) > maxPerformers {
		performers = performers[:maxPerformers]
	}

	result := &TeamPerformance{
		Department:  dept,
		From:        from,
		To:          to,
		Performers:  performers,
		GeneratedAt: a.now(),
	}
	a.store(ctx, key, result)
	return result, false, nil
}

// computeAnalytics is a single pass over the window's tickets.
func (a *Aggregator) computeAnalytics(dept domain.Department, tickets []domain.Ticket, from, to time.Time) *Analytics {
	result := &Analytics{
		Department:       dept,
		From:             from,
		To:               to,
		CountsByStatus:   make(map[domain.TicketStatus]int),
		CountsByPriority: make(map[domain.TicketPriority]int),
		GeneratedAt:      a.now(),
	}

	// dense series: every day in the window is present even at zero
	days := map[string]*TrendPoint{}
	var order []string
	for day := from.Truncate(24 * time.Hour); day.Before(to); day = day.Add(24 * time.Hour) {
		date := day.Format("2006-01-02")
		point := &TrendPoint{Date: date}
		days[date] = point
		order = append(order, date)
	}

	var (
		resolutionSum float64
		slaMet        int
	)
	for i := range tickets {
		t := &tickets[i]
		result.CountsByStatus[t.Status]++
		result.CountsByPriority[t.Priority]++

		if point, ok := days[t.CreatedAt.Format("2006-01-02")]; ok {
			point.Created++
		}
		if t.ResolvedAt == nil {
			continue
		}
		if point, ok := days[t.ResolvedAt.Format("2006-01-02")]; ok {
			point.Resolved++
		}
		hours := t.ResolvedAt.Sub(t.CreatedAt).Hours()
		result.Resolution.ResolvedCount++
		resolutionSum += hours
		if result.Resolution.ResolvedCount == 1 || hours < result.Resolution.MinHours {
			result.Resolution.MinHours = hours
		}
		if hours > result.Resolution.MaxHours {
			result.Resolution.MaxHours = hours
		}
		if hours <= a.slaHours(t.Priority) {
			slaMet++
		}
	}
	if result.Resolution.ResolvedCount > 0 {
		result.Resolution.AvgHours = resolutionSum / float64(result.Resolution.ResolvedCount)
		result.SLAComplianceRate = float64(slaMet) / float64(result.Resolution.ResolvedCount)
	}

	result.Trend = make([]TrendPoint, 0, len(order))
	for _, date := range order {
		result.Trend = append(result.Trend, *days[date])
	}
	return result
}

func (a *Aggregator) slaHours(priority domain.TicketPriority) float64 {
	switch priority {
	case domain.TicketPriorityCritical:
		return float64(a.cfg.SLACriticalHours)
	case domain.TicketPriorityHigh:
		return float64(a.cfg.SLAHighHours)
	case domain.TicketPriorityMedium:
		return float64(a.cfg.SLAMediumHours)
	default:
		return float64(a.cfg.SLALowHours)
	}
}

func (a *Aggregator) window(period Period, customFrom, customTo time.Time) (time.Time, time.Time) {
	now := a.now().UTC()
	to := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	switch period {
	case Period7d:
		return to.AddDate(0, 0, -7), to
	case Period90d:
		return to.AddDate(0, 0, -90), to
	case PeriodCustom:
		if !customFrom.IsZero() && !customTo.IsZero() && customFrom.Before(customTo) {
			return customFrom.UTC().Truncate(24 * time.Hour), customTo.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		}
		fallthrough
	default:
		return to.AddDate(0, 0, -30), to
	}
}

// fetch reads the window's tickets under the aggregation budget. Failures
// and timeouts surface as retryable recompute errors, never as stale data.
func (a *Aggregator) fetch(ctx context.Context, dept domain.Department, from, to time.Time) ([]domain.Ticket, error) {
	if budget := a.cfg.AggregationTimeout(); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	tickets, err := a.tickets.ListForWindow(ctx, dept, from, to)
	if err != nil {
		a.logger.Warn("dashboard recompute failed",
			zap.String("department", string(dept)), zap.Error(err))
		return nil, apperrors.NewCacheRecomputeError(err)
	}
	return tickets, nil
}

func (a *Aggregator) lookup(ctx context.Context, dept domain.Department, key string, out any) bool {
	raw, ok := a.cache.Get(ctx, key)
	if !ok {
		a.metrics.RecordCacheMiss(cache.DepartmentPrefix(dept))
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		a.metrics.RecordCacheMiss(cache.DepartmentPrefix(dept))
		return false
	}
	a.metrics.RecordCacheHit(cache.DepartmentPrefix(dept))
	return true
}

func (a *Aggregator) store(ctx context.Context, key string, value any) {
	a.storeTTL(ctx, key, value, a.ttl)
}

func (a *Aggregator) storeTTL(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn("dashboard cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	a.cache.Set(ctx, key, raw, ttl)
}

// staffNames returns the department's staff directory, cached under the
// long static TTL. The entry lives under the department prefix, so ticket
// mutations drop it along with the views; the TTL only bounds how long a
// roster change can go unnoticed on an otherwise idle department.
func (a *Aggregator) staffNames(ctx context.Context, dept domain.Department) (map[string]string, error) {
	key := cache.Key(dept, "staffnames")
	cached := map[string]string{}
	if hit := a.lookup(ctx, dept, key, &cached); hit {
		return cached, nil
	}

	members, err := a.staff.ListByDepartment(ctx, dept)
	if err != nil {
		return nil, apperrors.NewCacheRecomputeError(err)
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	a.storeTTL(ctx, key, names, a.staticTTL)
	return names, nil
}
