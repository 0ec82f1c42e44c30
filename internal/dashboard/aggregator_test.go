package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

type fakeTicketRepo struct {
	repository.TicketRepository

	tickets []domain.Ticket
	err     error
	calls   int
}

func (f *fakeTicketRepo) ListForWindow(_ context.Context, _ domain.Department, from, to time.Time) ([]domain.Ticket, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Ticket
	for _, t := range f.tickets {
		if !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeStaffRepo struct {
	repository.StaffRepository

	members []domain.StaffMember
	calls   int
}

func (f *fakeStaffRepo) ListByDepartment(_ context.Context, _ domain.Department) ([]domain.StaffMember, error) {
	f.calls++
	return f.members, nil
}

var aggNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func testConfig() config.DashboardConfig {
	return config.DashboardConfig{
		AggregationTimeoutSeconds: 10,
		SLACriticalHours:          4,
		SLAHighHours:              8,
		SLAMediumHours:            24,
		SLALowHours:               48,
	}
}

func newTestAggregator(t *testing.T, tickets *fakeTicketRepo, staff *fakeStaffRepo) (*Aggregator, *cache.Memory) {
	t.Helper()
	store := cache.NewMemory(0)
	t.Cleanup(store.Close)

	agg := NewAggregator(Dependencies{
		TicketRepo: tickets,
		StaffRepo:  staff,
		Cache:      store,
		Config:     testConfig(),
		TTL:        5 * time.Minute,
		Logger:     zap.NewNop(),
	})
	agg.now = func() time.Time { return aggNow }
	return agg, store
}

func resolvedTicket(id string, createdAt time.Time, resolveAfter time.Duration, priority domain.TicketPriority, assignee string) domain.Ticket {
	resolvedAt := createdAt.Add(resolveAfter)
	t := domain.Ticket{
		ID:         id,
		Department: domain.DepartmentFinance,
		Status:     domain.TicketStatusResolved,
		Priority:   priority,
		CreatedAt:  createdAt,
		ResolvedAt: &resolvedAt,
	}
	if assignee != "" {
		t.AssignedTo = &assignee
	}
	return t
}

func openTicket(id string, createdAt time.Time, priority domain.TicketPriority) domain.Ticket {
	return domain.Ticket{
		ID:         id,
		Department: domain.DepartmentFinance,
		Status:     domain.TicketStatusOpen,
		Priority:   priority,
		CreatedAt:  createdAt,
	}
}

func TestOverviewComputesCounts(t *testing.T) {
	assignee := "staff-1"
	repo := &fakeTicketRepo{tickets: []domain.Ticket{
		openTicket("t1", aggNow.Add(-24*time.Hour), domain.TicketPriorityHigh),
		openTicket("t2", aggNow.Add(-48*time.Hour), domain.TicketPriorityLow),
		{
			ID:         "t3",
			Department: domain.DepartmentFinance,
			Status:     domain.TicketStatusInProgress,
			Priority:   domain.TicketPriorityHigh,
			CreatedAt:  aggNow.Add(-72 * time.Hour),
			AssignedTo: &assignee,
		},
	}}
	agg, _ := newTestAggregator(t, repo, &fakeStaffRepo{})

	overview, fromCache, err := agg.Overview(context.Background(), domain.DepartmentFinance)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 3, overview.Total)
	assert.Equal(t, 2, overview.CountsByStatus[domain.TicketStatusOpen])
	assert.Equal(t, 1, overview.CountsByStatus[domain.TicketStatusInProgress])
	assert.Equal(t, 2, overview.CountsByPriority[domain.TicketPriorityHigh])
	assert.Equal(t, 2, overview.Unassigned)
}

func TestOverviewServedFromCacheOnSecondCall(t *testing.T) {
	repo := &fakeTicketRepo{tickets: []domain.Ticket{
		openTicket("t1", aggNow.Add(-24*time.Hour), domain.TicketPriorityMedium),
	}}
	agg, _ := newTestAggregator(t, repo, &fakeStaffRepo{})
	ctx := context.Background()

	first, fromCache, err := agg.Overview(ctx, domain.DepartmentFinance)
	require.NoError(t, err)
	assert.False(t, fromCache)

	second, fromCache, err := agg.Overview(ctx, domain.DepartmentFinance)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1, repo.calls, "recompute skipped on hit")
}

func TestOverviewRecomputesAfterInvalidation(t *testing.T) {
	repo := &fakeTicketRepo{tickets: []domain.Ticket{
		openTicket("t1", aggNow.Add(-24*time.Hour), domain.TicketPriorityMedium),
	}}
	agg, store := newTestAggregator(t, repo, &fakeStaffRepo{})
	ctx := context.Background()

	_, _, err := agg.Overview(ctx, domain.DepartmentFinance)
	require.NoError(t, err)

	// a mutation lands: one more ticket, then the department prefix drops
	repo.tickets = append(repo.tickets, openTicket("t2", aggNow.Add(-2*time.Hour), domain.TicketPriorityHigh))
	store.Invalidate(ctx, cache.DepartmentPrefix(domain.DepartmentFinance))

	overview, fromCache, err := agg.Overview(ctx, domain.DepartmentFinance)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, overview.Total)
	assert.Equal(t, 2, repo.calls)
}

func TestOverviewFetchErrorIsRetryable(t *testing.T) {
	repo := &fakeTicketRepo{err: errors.New("connection reset")}
	agg, _ := newTestAggregator(t, repo, &fakeStaffRepo{})

	_, _, err := agg.Overview(context.Background(), domain.DepartmentFinance)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeCacheRecompute))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestAnalyticsDenseTrend(t *testing.T) {
	// one created on each of two days inside a 7d window, nothing else
	repo := &fakeTicketRepo{tickets: []domain.Ticket{
		openTicket("t1", aggNow.Add(-24*time.Hour), domain.TicketPriorityMedium),
		resolvedTicket("t2", aggNow.Add(-3*24*time.Hour), 2*time.Hour, domain.TicketPriorityHigh, "staff-1"),
	}}
	agg, _ := newTestAggregator(t, repo, &fakeStaffRepo{})

	analytics, fromCache, err := agg.Analytics(context.Background(), domain.DepartmentFinance, Period7d, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.False(t, fromCache)

	require.Len(t, analytics.Trend, 7, "every day present even at zero")
	createdTotal, resolvedTotal, zeroDays := 0, 0, 0
	for _, point := range analytics.Trend {
		createdTotal += point.Created
		resolvedTotal += point.Resolved
		if point.Created == 0 && point.Resolved == 0 {
			zeroDays++
		}
	}
	assert.Equal(t, 2, createdTotal)
	assert.Equal(t, 1, resolvedTotal)
	assert.GreaterOrEqual(t, zeroDays, 4)
}

func TestAnalyticsResolutionAndSLA(t *testing.T) {
	base := aggNow.Add(-5 * 24 * time.Hour)
	repo := &fakeTicketRepo{tickets: []domain.Ticket{
		// high priority, resolved in 2h: meets the 8h SLA
		resolvedTicket("t1", base, 2*time.Hour, domain.TicketPriorityHigh, "staff-1"),
		// critical, resolved in 6h: misses the 4h SLA
		resolvedTicket("t2", base, 6*time.Hour, domain.TicketPriorityCritical, "staff-1"),
		// open tickets never count toward SLA
		openTicket("t3", base, domain.TicketPriorityLow),
	}}
	agg, _ := newTestAggregator(t, repo, &fakeStaffRepo{})

	analytics, _, err := agg.Analytics(context.Background(), domain.DepartmentFinance, Period7d, time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 2, analytics.Resolution.ResolvedCount)
	assert.InDelta(t, 4.0, analytics.Resolution.AvgHours, 0.001)
	assert.InDelta(t, 2.0, analytics.Resolution.MinHours, 0.001)
	assert.InDelta(t, 6.0, analytics.Resolution.MaxHours, 0.001)
	assert.InDelta(t, 0.5, analytics.SLAComplianceRate, 0.001)
}

func TestAnalyticsCustomWindowKeysDiffer(t *testing.T) {
	repo := &fakeTicketRepo{}
	agg, _ := newTestAggregator(t, repo, &fakeStaffRepo{})
	ctx := context.Background()

	from := aggNow.Add(-10 * 24 * time.Hour)
	to := aggNow.Add(-5 * 24 * time.Hour)
	_, _, err := agg.Analytics(ctx, domain.DepartmentFinance, PeriodCustom, from, to)
	require.NoError(t, err)

	// a different custom window misses the first window's entry
	_, fromCache, err := agg.Analytics(ctx, domain.DepartmentFinance, PeriodCustom, from.Add(24*time.Hour), to)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, repo.calls)
}

func TestTeamPerformanceRanksByResolvedCount(t *testing.T) {
	base := aggNow.Add(-5 * 24 * time.Hour)
	repo := &fakeTicketRepo{tickets: []domain.Ticket{
		resolvedTicket("t1", base, 2*time.Hour, domain.TicketPriorityHigh, "staff-a"),
		resolvedTicket("t2", base, 4*time.Hour, domain.TicketPriorityHigh, "staff-a"),
		resolvedTicket("t3", base, 8*time.Hour, domain.TicketPriorityLow, "staff-b"),
		openTicket("t4", base, domain.TicketPriorityLow),
	}}
	staff := &fakeStaffRepo{members: []domain.StaffMember{
		{ID: "staff-a", Name: "Asha"},
		{ID: "staff-b", Name: "Bilal"},
	}}
	agg, _ := newTestAggregator(t, repo, staff)

	performance, fromCache, err := agg.TeamPerformance(context.Background(), domain.DepartmentFinance, Period7d)
	require.NoError(t, err)
	assert.False(t, fromCache)

	require.Len(t, performance.Performers, 2)
	assert.Equal(t, "staff-a", performance.Performers[0].StaffID)
	assert.Equal(t, "Asha", performance.Performers[0].Name)
	assert.Equal(t, 2, performance.Performers[0].ResolvedCount)
	assert.InDelta(t, 3.0, performance.Performers[0].AvgResolutionHours, 0.001)
	assert.Equal(t, "staff-b", performance.Performers[1].StaffID)
}

func TestTeamPerformanceCachesStaffDirectory(t *testing.T) {
	base := aggNow.Add(-5 * 24 * time.Hour)
	repo := &fakeTicketRepo{tickets: []domain.Ticket{
		resolvedTicket("t1", base, 2*time.Hour, domain.TicketPriorityHigh, "staff-a"),
	}}
	staff := &fakeStaffRepo{members: []domain.StaffMember{{ID: "staff-a", Name: "Asha"}}}
	agg, _ := newTestAggregator(t, repo, staff)
	ctx := context.Background()

	_, _, err := agg.TeamPerformance(ctx, domain.DepartmentFinance, Period7d)
	require.NoError(t, err)
	assert.Equal(t, 1, staff.calls)

	// a different period recomputes the view but reuses the cached roster
	performance, fromCache, err := agg.TeamPerformance(ctx, domain.DepartmentFinance, Period30d)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 1, staff.calls)
	require.Len(t, performance.Performers, 1)
	assert.Equal(t, "Asha", performance.Performers[0].Name)
}

func TestTeamPerformanceCapsPerformers(t *testing.T) {
	base := aggNow.Add(-5 * 24 * time.Hour)
	repo := &fakeTicketRepo{}
	for i := 0; i < 15; i++ {
		repo.tickets = append(repo.tickets,
			resolvedTicket(fmt.Sprintf("t%d", i), base, time.Hour, domain.TicketPriorityLow, fmt.Sprintf("staff-%02d", i)))
	}
	agg, _ := newTestAggregator(t, repo, &fakeStaffRepo{})

	performance, _, err := agg.TeamPerformance(context.Background(), domain.DepartmentFinance, Period7d)
	require.NoError(t, err)
	assert.Len(t, performance.Performers, maxPerformers)
}

func TestParsePeriod(t *testing.T) {
	for _, valid := range []string{"7d", "30d", "90d", "custom"} {
		_, ok := ParsePeriod(valid)
		assert.True(t, ok, valid)
	}
	_, ok := ParsePeriod("14d")
	assert.False(t, ok)
}
