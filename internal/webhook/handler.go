package webhook

import (
	"errors"
	"net/http"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/middleware"
	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	service *Service
}

func NewWebhookHandler(s *Service) *WebhookHandler {
	return &WebhookHandler{service: s}
}

var _ WebhookHandlerInterface = (*WebhookHandler)(nil)

// Receive handles inbound tenant notifications. Replay-protected or stale
// events get HTTP 400; a repeated idempotency key returns the stored outcome
// with HTTP 200.
func (h *WebhookHandler) Receive(c *gin.Context) {
	tenant := c.Param("tenant")
	if tenant == "" {
		c.Error(common.Errf(http.StatusBadRequest, "tenant is required"))
		return
	}

	var req dto.WebhookRequest
	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.Process(c.Request.Context(), tenant, req)
	if err != nil {
		if errors.Is(err, common.ErrReplaySuspected) {
			c.Error(common.Errf(http.StatusBadRequest, "%v", err))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Replay re-runs a failed webhook by its idempotency key.
func (h *WebhookHandler) Replay(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.Error(common.Errf(http.StatusBadRequest, "idempotency key is required"))
		return
	}

	resp, err := h.service.Replay(c.Request.Context(), key)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
