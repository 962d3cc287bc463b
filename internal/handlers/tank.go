package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/willbeeching/boilerjuice/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusReset     = "reset"
	statusOverride  = "consumption_set"
	statusRefreshed = "refreshed"

	errGetState       = "failed to load state"
	errGetMetrics     = "failed to compute metrics"
	errResetTank      = "failed to reset consumption"
	errSetConsumption = "failed to set consumption"
	errRefreshTank    = "failed to refresh reading"

	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Request DTO for the consumption override.
type consumptionRequest struct {
	Litres    *float64 `json:"litres" binding:"required"`
	DailyRate *float64 `json:"daily_rate,omitempty"`
}

// SetConsumptionRequest is an exported model for Swagger docs of the override payload.
type SetConsumptionRequest struct {
	// New cumulative consumption in litres
	Litres float64 `json:"litres" example:"500"`
	// Optional daily rate override in litres per day
	DailyRate float64 `json:"daily_rate,omitempty" example:"15"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get tank state
// @Tags         tank
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/tank/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.State(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "tank_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Get derived metrics
// @Description  Rolling daily rate, cumulative consumption, seasonal average and days until empty
// @Tags         tank
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/tank/metrics [get]
// @Security     BearerAuth
func (h *Handler) getMetrics(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := h.services.Monitoring.Metrics(ctx, time.Now())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetMetrics, "tank_get_metrics_failed", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// @Summary      Refresh the reading now
// @Description  Fetches a fresh reading from BoilerJuice outside the polling schedule
// @Tags         tank
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, metrics"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/tank/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshTank(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := h.services.Tank.Refresh(ctx, time.Now())
	if err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errRefreshTank, "tank_refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusRefreshed, "metrics": m})
}

// @Summary      Reset cumulative consumption
// @Description  Zeroes the cumulative counter and the rolling history; seasonal averages survive
// @Tags         tank
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/tank/reset [post]
// @Security     BearerAuth
func (h *Handler) resetConsumption(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Tank.Reset(ctx, time.Now()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errResetTank, "tank_reset_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusReset})
}

// @Summary      Set cumulative consumption
// @Description  Overrides the cumulative total and optionally the daily rate
// @Tags         tank
// @Accept       json
// @Produce      json
// @Param        body  body   SetConsumptionRequest  true  "Override payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/tank/consumption [put]
// @Security     BearerAuth
func (h *Handler) setConsumption(c *gin.Context) {
	var req consumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.services.Tank.SetConsumption(ctx, *req.Litres, req.DailyRate, time.Now()); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errSetConsumption, "tank_set_consumption_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOverride})
}
