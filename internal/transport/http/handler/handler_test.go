package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parardhadhar/parardha-insight-engine/internal/ai"
	"github.com/parardhadhar/parardha-insight-engine/internal/app"
	"github.com/parardhadhar/parardha-insight-engine/internal/index"
	"github.com/parardhadhar/parardha-insight-engine/internal/session"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/handler"
	"github.com/parardhadhar/parardha-insight-engine/internal/transport/http/middleware"
)

type fakeLLM struct{}

func (fakeLLM) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	return "stub answer", nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

type fakeProvider struct{}

func (fakeProvider) Get(ctx context.Context, credential string) (ai.ChatModel, ai.EmbeddingModel, error) {
	return fakeLLM{}, fakeEmbedder{}, nil
}

type fakeBuilder struct{}

func (fakeBuilder) Build(ctx context.Context, data []byte, fileName string, embedder ai.EmbeddingModel) (*index.VectorIndex, error) {
	return index.New(fileName, []string{"chunk"}, [][]float32{{1}}), nil
}

func setupRouter() (*gin.Engine, *session.Store) {
	gin.SetMode(gin.TestMode)

	store := session.NewStore(time.Hour)
	conversation := app.NewConversationService(store, fakeProvider{}, "gsk_test", fakeBuilder{}, 2, nil)

	sessionHandler := handler.NewSessionHandler(conversation)
	documentHandler := handler.NewDocumentHandler(conversation, 1)
	chatHandler := handler.NewChatHandler(conversation, nil)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/sessions", sessionHandler.Create)

	withSession := v1.Group("")
	withSession.Use(middleware.RequireSession(store))
	withSession.DELETE("/sessions", sessionHandler.Delete)
	withSession.POST("/documents", documentHandler.Upload)
	withSession.POST("/ask", chatHandler.Ask)
	withSession.GET("/history", chatHandler.History)

	v1.GET("/transcripts/:id", chatHandler.Transcript)

	return router, store
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.SessionID)
	return body.Data.SessionID
}

func uploadPDF(t *testing.T, router *gin.Engine, sessionID, fileName string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.SessionHeader, sessionID)
	router.ServeHTTP(w, req)
	return w
}

func ask(t *testing.T, router *gin.Engine, sessionID, question string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"question": question})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.SessionHeader, sessionID)
	router.ServeHTTP(w, req)
	return w
}

func TestAskRequiresSessionHeader(t *testing.T) {
	router, _ := setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewBufferString(`{"question":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAskUnknownSession(t *testing.T) {
	router, _ := setupRouter()

	w := ask(t, router, "not-a-session", "hi")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	router, _ := setupRouter()
	sessionID := createSession(t, router)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.SessionHeader, sessionID)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PDF")
}

func TestAskBeforeUploadRejected(t *testing.T) {
	router, store := setupRouter()
	sessionID := createSession(t, router)

	w := ask(t, router, sessionID, "what does the document say?")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "upload a PDF")

	// Append-then-reject: the question is kept in the transcript.
	sess, err := store.Get(sessionID)
	require.NoError(t, err)
	require.Len(t, sess.Messages(), 1)
}

func TestFullConversationFlow(t *testing.T) {
	router, _ := setupRouter()
	sessionID := createSession(t, router)

	w := uploadPDF(t, router, sessionID, "paper.pdf")
	require.Equal(t, http.StatusOK, w.Code)

	w = ask(t, router, sessionID, "summarize the paper")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Messages []session.Message `json:"messages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Messages, 2)
	assert.Equal(t, session.RoleUser, body.Data.Messages[0].Role)
	assert.Equal(t, session.RoleAssistant, body.Data.Messages[1].Role)
	assert.Equal(t, "stub answer", body.Data.Messages[1].Content)

	// History reflects the full turn.
	hw := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set(middleware.SessionHeader, sessionID)
	router.ServeHTTP(hw, req)
	require.Equal(t, http.StatusOK, hw.Code)
	assert.Contains(t, hw.Body.String(), "summarize the paper")
}

func TestDeleteSessionEndsIt(t *testing.T) {
	router, store := setupRouter()
	sessionID := createSession(t, router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions", nil)
	req.Header.Set(middleware.SessionHeader, sessionID)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := store.Get(sessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestTranscriptDisabledWithoutArchive(t *testing.T) {
	router, _ := setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transcripts/some-id", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
