package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parardhadhar/parardha-insight-engine/internal/app"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/middleware"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/response"
)

type SessionHandler struct {
	conversation *app.ConversationService
}

func NewSessionHandler(conversation *app.ConversationService) *SessionHandler {
	return &SessionHandler{conversation: conversation}
}

func (h *SessionHandler) Create(c *gin.Context) {
	sess := h.conversation.StartSession()
	response.OK(c, gin.H{"session_id": sess.ID})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		response.Error(c, 401, response.CodeSessionRequired, "session required")
		return
	}
	h.conversation.EndSession(sess.ID)
	response.OK(c, gin.H{"deleted_session_id": sess.ID})
}
