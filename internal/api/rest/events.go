package rest

import (
	"net/http"
	"strconv"

	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"github.com/gin-gonic/gin"
)

// GET /api/v1/events?interface=<name>&limit=<n>
func (s *Server) listEvents(c *gin.Context) {
	reader := s.lm.Events()
	if reader == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("EVENTS_503", "Event journal is disabled", nil))
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("EVENTS_400", "limit must be between 1 and 1000", v))
			return
		}
		limit = n
	}

	events, err := reader.ListEvents(c.Request.Context(), c.Query("interface"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("EVENTS_500", "Failed to list events", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
