package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/dashboard"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

const cacheHeader = "X-Cache"

// DashboardHandler exposes department dashboard endpoints. Every response
// carries an X-Cache header so callers can tell cached reads from fresh
// aggregations.
type DashboardHandler struct {
	aggregator *dashboard.Aggregator
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(aggregator *dashboard.Aggregator) *DashboardHandler {
	return &DashboardHandler{aggregator: aggregator}
}

// Overview GET /dashboard/overview.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	dept, err := resolveDepartment(c)
	if err != nil {
		return err
	}
	overview, fromCache, err := h.aggregator.Overview(c.UserContext(), dept)
	if err != nil {
		return err
	}
	setCacheHeader(c, fromCache)
	return c.JSON(fiber.Map{"data": overview})
}

// Analytics GET /dashboard/analytics.
func (h *DashboardHandler) Analytics(c *fiber.Ctx) error {
	dept, err := resolveDepartment(c)
	if err != nil {
		return err
	}
	period, customFrom, customTo, err := parsePeriodQuery(c)
	if err != nil {
		return err
	}
	analytics, fromCache, err := h.aggregator.Analytics(c.UserContext(), dept, period, customFrom, customTo)
	if err != nil {
		return err
	}
	setCacheHeader(c, fromCache)
	return c.JSON(fiber.Map{"data": analytics})
}

// TeamPerformance GET /dashboard/team-performance.
func (h *DashboardHandler) TeamPerformance(c *fiber.Ctx) error {
	dept, err := resolveDepartment(c)
	if err != nil {
		return err
	}
	period, _, _, err := parsePeriodQuery(c)
	if err != nil {
		return err
	}
	if period == dashboard.PeriodCustom {
		return apperrors.NewValidationError("custom period not supported for team performance", nil)
	}
	performance, fromCache, err := h.aggregator.TeamPerformance(c.UserContext(), dept, period)
	if err != nil {
		return err
	}
	setCacheHeader(c, fromCache)
	return c.JSON(fiber.Map{"data": performance})
}

func setCacheHeader(c *fiber.Ctx, fromCache bool) {
	if fromCache {
		c.Set(cacheHeader, "hit")
	} else {
		c.Set(cacheHeader, "miss")
	}
}

// resolveDepartment scopes staff to their own department; admins may pick
// any department via query.
func resolveDepartment(c *fiber.Ctx) (domain.Department, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return "", apperrors.NewUnauthorized("authentication required")
	}
	if principal.Role == domain.RoleAdmin {
		if deptStr := c.Query("department"); deptStr != "" {
			dept, valid := domain.ParseDepartment(deptStr)
			if !valid {
				return "", apperrors.NewValidationError("unknown department", map[string]any{"department": deptStr})
			}
			return dept, nil
		}
	}
	if _, valid := domain.ParseDepartment(string(principal.Department)); !valid {
		return "", apperrors.NewValidationError("department required", nil)
	}
	return principal.Department, nil
}

func parsePeriodQuery(c *fiber.Ctx) (dashboard.Period, time.Time, time.Time, error) {
	raw := c.Query("period", string(dashboard.Period7d))
	period, ok := dashboard.ParsePeriod(raw)
	if !ok {
		return "", time.Time{}, time.Time{}, apperrors.NewValidationError("unknown period", map[string]any{"period": raw})
	}
	var customFrom, customTo time.Time
	if period == dashboard.PeriodCustom {
		from := parseTime(c.Query("from"))
		to := parseTime(c.Query("to"))
		if from == nil || to == nil || !from.Before(*to) {
			return "", time.Time{}, time.Time{}, apperrors.NewValidationError("custom period requires valid from/to range", nil)
		}
		customFrom, customTo = *from, *to
	}
	return period, customFrom, customTo, nil
}
