package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/domain/models"
	service "github.com/mamadbah2/farmdesk/internal/service/whatsapp"
)

// WebhookHandler exposes the WhatsApp channel: Meta's callback endpoint and
// the manual outbound endpoint used by managers.
type WebhookHandler struct {
	messaging service.MessagingService
	logger    *zap.Logger
}

// NewWebhookHandler builds the WhatsApp HTTP adapter.
func NewWebhookHandler(messaging service.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{messaging: messaging, logger: logger}
}

// Verify answers the subscription handshake by echoing hub.challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	challenge, err := h.messaging.VerifyWebhookToken(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		h.logger.Warn("rejected webhook subscription", zap.String("remote", c.ClientIP()), zap.Error(err))
		c.String(http.StatusForbidden, "forbidden")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive runs the worker commands of a delivery. Meta retries any non-2xx
// answer, so processing failures are logged and still acknowledged.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var delivery models.WebhookPayload
	if err := c.ShouldBindJSON(&delivery); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.messaging.HandleWebhook(c.Request.Context(), delivery); err != nil {
		h.logger.Error("process webhook delivery",
			zap.String("object", delivery.Object),
			zap.Int("entries", len(delivery.Entry)),
			zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage delivers a manual text message to one phone number.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := h.messaging.SendOutbound(c.Request.Context(), req)
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case errors.Is(err, service.ErrNotConfigured):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("send manual message", zap.String("to", req.To), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "message not delivered"})
	}
}
