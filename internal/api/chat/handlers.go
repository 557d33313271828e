// Package chat exposes the conversation endpoints: starting a thread,
// sending a turn, and browsing history. All handlers require an
// authenticated request context and scope every operation by its org id.
package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cloud-companion/cloud-companion/internal/api/respond"
	"github.com/cloud-companion/cloud-companion/internal/apperrors"
	chatengine "github.com/cloud-companion/cloud-companion/internal/chat"
	"github.com/cloud-companion/cloud-companion/internal/middleware"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
)

// Handlers holds the chat endpoint dependencies.
type Handlers struct {
	engine        *chatengine.Service
	conversations *repositories.ConversationRepository
}

// New creates the chat Handlers.
func New(engine *chatengine.Service, conversations *repositories.ConversationRepository) *Handlers {
	return &Handlers{engine: engine, conversations: conversations}
}

// StartConversationRequest is the body for POST /chat/start.
type StartConversationRequest struct {
	Title string `json:"title" binding:"max=200"`
}

// SendMessageRequest is the body for POST /chat/message.
type SendMessageRequest struct {
	Message        string   `json:"message" binding:"required"`
	ConversationID string   `json:"conversation_id"`
	ResourceIDs    []string `json:"resource_ids"`
}

// StartConversation opens a new empty conversation.
// @Summary Start a conversation
// @Tags chat
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/chat/start [post]
func (h *Handlers) StartConversation(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Validation(err.Error()))
		return
	}

	conv, err := h.engine.StartConversation(c.Request.Context(), reqCtx.OrgID, req.Title)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"title":           conv.Title,
		"created_at":      conv.CreatedAt,
	})
}

// SendMessage processes one chat turn.
// @Summary Send a chat message
// @Tags chat
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/chat/message [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Validation(err.Error()))
		return
	}

	reply, err := h.engine.Send(c.Request.Context(), reqCtx.OrgID, chatengine.Request{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		ResourceIDs:    req.ResourceIDs,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": reply.ConversationID,
		"message_id":      reply.MessageID,
		"content":         reply.Content,
		"confidence":      reply.Confidence,
	})
}

// ListConversations pages through the org's conversations, newest first.
// @Summary List conversations
// @Tags chat
// @Router /api/v1/chat/conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	conversations, err := h.conversations.ListByOrg(c.Request.Context(), reqCtx.OrgID, skip, limit)
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"skip":          skip,
		"limit":         limit,
	})
}

// GetMessages returns the recent messages of one conversation in
// chronological order.
// @Summary Get conversation messages
// @Tags chat
// @Router /api/v1/chat/conversations/{id}/messages [get]
func (h *Handlers) GetMessages(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	conversationID := c.Param("id")

	conv, err := h.conversations.GetByID(c.Request.Context(), reqCtx.OrgID, conversationID)
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}
	if conv == nil {
		respond.Error(c, apperrors.NotFound("conversation"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	messages, err := h.conversations.RecentMessages(c.Request.Context(), reqCtx.OrgID, conversationID, limit)
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"title":           conv.Title,
		"messages":        messages,
	})
}
