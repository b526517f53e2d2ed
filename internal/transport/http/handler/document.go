package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parardhadhar/parardha-insight-engine/internal/app"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/middleware"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/response"
)

type DocumentHandler struct {
	conversation *app.ConversationService
	maxSize      int64
}

func NewDocumentHandler(conversation *app.ConversationService, maxSizeMB int) *DocumentHandler {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &DocumentHandler{
		conversation: conversation,
		maxSize:      int64(maxSizeMB) << 20,
	}
}

// Upload accepts a multipart form with one PDF under "file". Only the bytes
// are stored here; indexing happens on the session's first question.
func (h *DocumentHandler) Upload(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeSessionRequired, "session required")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}
	if !isPDFUpload(file.Filename, file.Header.Get("Content-Type")) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to open upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read upload")
		return
	}

	if err := h.conversation.Upload(sess.ID, data, file.Filename); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	response.OK(c, gin.H{
		"session_id": sess.ID,
		"file_name":  file.Filename,
		"size":       file.Size,
	})
}

func isPDFUpload(fileName, contentType string) bool {
	if strings.ToLower(filepath.Ext(fileName)) == ".pdf" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(contentType), "application/pdf")
}
