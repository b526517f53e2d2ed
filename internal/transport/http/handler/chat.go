package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parardhadhar/parardha-insight-engine/internal/ai"
	"github.com/parardhadhar/parardha-insight-engine/internal/app"
	"github.com/parardhadhar/parardha-insight-engine/internal/index"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/middleware"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/response"
)

type ChatHandler struct {
	conversation *app.ConversationService
	archive      *app.ArchiveService // nil when archiving is disabled
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

func NewChatHandler(conversation *app.ConversationService, archive *app.ArchiveService) *ChatHandler {
	return &ChatHandler{conversation: conversation, archive: archive}
}

// Ask runs one synchronous conversation turn. The turn blocks until the
// answer (or an error) is ready; there is no cancellation beyond the client
// dropping the request.
func (h *ChatHandler) Ask(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeSessionRequired, "session required")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.conversation.Ask(c.Request.Context(), sess.ID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrQuestionEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNoDocument):
			response.Error(c, http.StatusBadRequest, response.CodeNoDocument, "upload a PDF document before asking questions")
		case errors.Is(err, ai.ErrModelLoad):
			response.Error(c, http.StatusInternalServerError, response.CodeModelLoad, err.Error())
		case errors.Is(err, index.ErrIndexing):
			response.Error(c, http.StatusInternalServerError, response.CodeIndexing, err.Error())
		case errors.Is(err, app.ErrQuery):
			response.Error(c, http.StatusBadGateway, response.CodeQuery, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		}
		return
	}

	response.OK(c, result)
}

// History returns the live session transcript.
func (h *ChatHandler) History(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeSessionRequired, "session required")
		return
	}

	messages, err := h.conversation.History(sess.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "history failed")
		return
	}
	response.OK(c, gin.H{"messages": messages})
}

// Transcript returns the archived copy of a (possibly ended) session's
// transcript. Only available when archiving is enabled.
func (h *ChatHandler) Transcript(c *gin.Context) {
	if h.archive == nil {
		response.Error(c, http.StatusNotFound, response.CodeBadRequest, "transcript archive is disabled")
		return
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing session id")
		return
	}

	messages, err := h.archive.GetTranscript(c.Request.Context(), sessionID, 0)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "transcript lookup failed")
		return
	}
	response.OK(c, gin.H{"messages": messages})
}

// DeleteTranscript purges the archived copy of a session's transcript.
func (h *ChatHandler) DeleteTranscript(c *gin.Context) {
	if h.archive == nil {
		response.Error(c, http.StatusNotFound, response.CodeBadRequest, "transcript archive is disabled")
		return
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing session id")
		return
	}

	if err := h.archive.DeleteTranscript(c.Request.Context(), sessionID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "transcript purge failed")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}
