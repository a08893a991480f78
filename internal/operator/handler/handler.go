package handler

import (
	"net/http"

	"salesbot_backend/internal/conversation"
	"salesbot_backend/internal/operator/service"
	"salesbot_backend/internal/operator/transport"
	"salesbot_backend/platform/httpkit"
	"salesbot_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest = "invalid request"
	msgUnauthorized   = "unauthorized"
	msgForbidden      = "business not managed by operator"
)

// Handler handles HTTP requests for the operator console
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new operator handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the console routes on a /operator/businesses/:businessId group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(h.requireBusiness)

	rg.GET("/chats", h.ListConversations)
	rg.GET("/chats/:chatId", h.GetConversation)
	rg.POST("/chats/:chatId/silence", h.Silence)
	rg.POST("/chats/:chatId/reactivate", h.Reactivate)
	rg.POST("/chats/:chatId/read", h.MarkRead)
	rg.POST("/chats/:chatId/messages", h.SendMessage)

	rg.GET("/bookings", h.ListBookings)
}

// requireBusiness rejects operators that do not manage the business in the path.
func (h *Handler) requireBusiness(c *gin.Context) {
	op, ok := httpkit.GetOperator(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, msgUnauthorized, nil)
		c.Abort()
		return
	}
	if !op.CanManage(c.Param("businessId")) {
		httpkit.Error(c, http.StatusForbidden, msgForbidden, nil)
		c.Abort()
		return
	}
	c.Next()
}

// ListConversations handles GET /operator/businesses/:businessId/chats
func (h *Handler) ListConversations(c *gin.Context) {
	var req transport.ListConversationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if httpkit.HandleError(c, h.val.Check(req)) {
		return
	}

	result, err := h.svc.ListConversations(c.Request.Context(), c.Param("businessId"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetConversation handles GET /operator/businesses/:businessId/chats/:chatId
func (h *Handler) GetConversation(c *gin.Context) {
	result, err := h.svc.GetConversation(c.Request.Context(), key(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Silence handles POST .../chats/:chatId/silence
func (h *Handler) Silence(c *gin.Context) {
	result, err := h.svc.Silence(c.Request.Context(), key(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reactivate handles POST .../chats/:chatId/reactivate
func (h *Handler) Reactivate(c *gin.Context) {
	result, err := h.svc.Reactivate(c.Request.Context(), key(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// MarkRead handles POST .../chats/:chatId/read
func (h *Handler) MarkRead(c *gin.Context) {
	result, err := h.svc.MarkRead(c.Request.Context(), key(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SendMessage handles POST .../chats/:chatId/messages
func (h *Handler) SendMessage(c *gin.Context) {
	var req transport.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if httpkit.HandleError(c, h.val.Check(req)) {
		return
	}

	result, err := h.svc.SendMessage(c.Request.Context(), key(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListBookings handles GET /operator/businesses/:businessId/bookings
func (h *Handler) ListBookings(c *gin.Context) {
	var req transport.ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if httpkit.HandleError(c, h.val.Check(req)) {
		return
	}

	result, err := h.svc.ListBookings(c.Request.Context(), c.Param("businessId"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func key(c *gin.Context) conversation.Key {
	return conversation.Key{
		BusinessID: c.Param("businessId"),
		CustomerID: c.Param("chatId"),
	}
}
