package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/KevinKickass/OpenPowerCore/internal/api/websocket"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"github.com/gin-gonic/gin"
)

type SetPowerRequest struct {
	On *bool `json:"on" binding:"required"`
}

type WakeoutRequest struct {
	LengthUs *int `json:"length_us"`
}

type WakeoutLengthRequest struct {
	LengthUs *int `json:"length_us" binding:"required"`
}

// writeError maps the error taxonomy onto HTTP statuses and
// "<PREFIX>_<status>" error codes.
func writeError(c *gin.Context, prefix string, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"
	var details any = err.Error()

	var fault *types.HardwareFaultError
	switch {
	case errors.Is(err, types.ErrNoMapping):
		status, message = http.StatusNotFound, "No interface on this switch port"
	case errors.Is(err, types.ErrNotFound):
		status, message = http.StatusNotFound, "Interface not found"
	case errors.Is(err, types.ErrUnsupported):
		status, message = http.StatusUnprocessableEntity, "Operation not supported on this interface"
	case errors.Is(err, types.ErrInvalidLength):
		status, message = http.StatusBadRequest, "Invalid wakeout length"
	case errors.Is(err, types.ErrMisuse):
		status, message = http.StatusConflict, "Interface is not powered"
	case errors.As(err, &fault):
		status, message = http.StatusBadGateway, "Hardware fault"
		details = gin.H{"op": fault.Op, "gpio": fault.GPIO, "error": err.Error()}
	}

	c.JSON(status, types.NewErrorResponse(fmt.Sprintf("%s_%d", prefix, status), message, details))
}

// GET /api/v1/interfaces
func (s *Server) listInterfaces(c *gin.Context) {
	list := s.power.ListInterfaces()
	c.JSON(http.StatusOK, gin.H{
		"board":      s.power.Registry().BoardName(),
		"interfaces": list,
		"count":      len(list),
	})
}

// GET /api/v1/interfaces/:name/state
func (s *Server) getInterfaceState(c *gin.Context) {
	snaps, err := s.power.DumpState(c.Param("name"))
	if err != nil {
		writeError(c, "INTERFACE", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interfaces": snaps})
}

// POST /api/v1/interfaces/:name/power
func (s *Server) setPower(c *gin.Context) {
	var req SetPowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("POWER_400", "Invalid request body", err.Error()))
		return
	}

	name := c.Param("name")
	if err := s.power.SetPower(name, *req.On); err != nil {
		writeError(c, "POWER", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interface": name,
		"on":        *req.On,
	})
}

// POST /api/v1/interfaces/:name/wakeout
func (s *Server) sendWakeout(c *gin.Context) {
	var req WakeoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("WAKEOUT_400", "Invalid request body", err.Error()))
			return
		}
	}

	name := c.Param("name")
	if err := s.power.Wakeout(name, req.LengthUs); err != nil {
		writeError(c, "WAKEOUT", err)
		return
	}

	length := s.power.WakeoutLength()
	if req.LengthUs != nil {
		length = *req.LengthUs
	}
	c.JSON(http.StatusOK, gin.H{
		"interface": name,
		"length_us": length,
	})
}

// GET /api/v1/wakeout/length
func (s *Server) getWakeoutLength(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"length_us":        s.power.WakeoutLength(),
		"board_default_us": s.power.Registry().WakeoutDefaultUs(),
		"effective_us":     s.power.EffectiveWakeoutLength().Microseconds(),
		"max_length_us":    s.power.MaxWakeoutLength(),
	})
}

// PUT /api/v1/wakeout/length
func (s *Server) setWakeoutLength(c *gin.Context) {
	var req WakeoutLengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("WAKEOUT_400", "Invalid request body", err.Error()))
		return
	}

	if err := s.power.SetWakeoutLength(*req.LengthUs); err != nil {
		writeError(c, "WAKEOUT", err)
		return
	}
	if s.wsHub != nil {
		s.wsHub.Broadcast(websocket.NewWakeoutLengthMessage(*req.LengthUs))
	}

	s.getWakeoutLength(c)
}

// GET /api/v1/ports/:port
func (s *Server) lookupPort(c *gin.Context) {
	port, err := strconv.Atoi(c.Param("port"))
	if err != nil || port < 0 {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("PORT_400", "Invalid switch port", c.Param("port")))
		return
	}

	id, err := s.power.LookupIDByPort(port)
	if err != nil {
		writeError(c, "PORT", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"switch_port":  port,
		"interface_id": id,
	})
}
