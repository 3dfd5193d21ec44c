package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stemworks/api/internal/aggregator"
	"github.com/stemworks/api/pkg/response"
)

const defaultWindowDays = 7

type AnalyticsHandler struct {
	aggregator *aggregator.Aggregator
}

func NewAnalyticsHandler(agg *aggregator.Aggregator) *AnalyticsHandler {
	return &AnalyticsHandler{aggregator: agg}
}

// Stats handles GET /api/analytics/artists/:artistId/stats
func (h *AnalyticsHandler) Stats(c *fiber.Ctx) error {
	artistID := c.Params("artistId")
	if artistID == "" {
		return response.ValidationError(c, "Artist ID is required", nil)
	}

	days := c.QueryInt("days", defaultWindowDays)
	if days < 1 {
		return response.ValidationError(c, "days must be at least 1", nil)
	}

	return response.OK(c, h.aggregator.ArtistStats(artistID, days))
}

// Dashboard handles GET /api/analytics/artists/:artistId/dashboard
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	artistID := c.Params("artistId")
	if artistID == "" {
		return response.ValidationError(c, "Artist ID is required", nil)
	}

	days := c.QueryInt("days", defaultWindowDays)
	if days < 1 {
		return response.ValidationError(c, "days must be at least 1", nil)
	}

	return response.OK(c, h.aggregator.ArtistDashboard(artistID, days))
}

// Rollup handles POST /api/analytics/rollup
func (h *AnalyticsHandler) Rollup(c *fiber.Ctx) error {
	result, err := h.aggregator.DailyRollup(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
