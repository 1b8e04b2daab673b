package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"battbot_backend/internal/conversation/service"
	"battbot_backend/internal/conversation/transport"
	"battbot_backend/platform/httpkit"
)

// Handler handles the Support Board webhook and pause administration.
type Handler struct {
	svc *service.Service
}

// New creates a new conversation handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Webhook receives Support Board message events.
// POST /api/v1/conversations/webhook
//
// Support Board retries deliveries that do not return 200, so every outcome,
// including malformed payloads, is acknowledged with 200 and a status body.
func (h *Handler) Webhook(c *gin.Context) {
	var env transport.WebhookEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusOK, transport.WebhookAck{Status: service.AckError, Detail: "malformed payload"})
		return
	}

	ack := h.svc.HandleWebhook(c.Request.Context(), env)
	c.JSON(http.StatusOK, ack)
}

// GetPause returns the pause record for a conversation.
// GET /api/v1/admin/conversations/:id/pause
func (h *Handler) GetPause(c *gin.Context) {
	pause, err := h.svc.GetPause(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, pause)
}

// Pause pauses the bot for the configured takeover window.
// PUT /api/v1/admin/conversations/:id/pause
func (h *Handler) Pause(c *gin.Context) {
	if err := h.svc.PauseConversation(c.Request.Context(), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Unpause resumes the bot for a conversation.
// DELETE /api/v1/admin/conversations/:id/pause
func (h *Handler) Unpause(c *gin.Context) {
	if err := h.svc.Unpause(c.Request.Context(), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
