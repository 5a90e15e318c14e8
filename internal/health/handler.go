package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	aggregator *Aggregator
}

func NewHealthHandler(a *Aggregator) *HealthHandler {
	return &HealthHandler{aggregator: a}
}

// Queues reports per-queue health. HTTP 503 when any queue is degraded so
// load balancers and uptime checks see it without parsing the body.
func (h *HealthHandler) Queues(c *gin.Context) {
	report := h.aggregator.Report(c.Request.Context())

	status := http.StatusOK
	if report.Status != StatusOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
