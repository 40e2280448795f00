package api

import (
	"context"
	"net/http"
	"time"

	"PrepBot/backend/go/internal/rag_service/rag/pipeline"
	"PrepBot/backend/go/internal/rag_service/service"

	"github.com/gin-gonic/gin"
)

const (
	msgNoQuestion    = "No question provided"
	msgIndexNotReady = "Vector store is not ready"
)

// ChatService is what the handlers need from service.Server.
type ChatService interface {
	Chat(ctx context.Context, question string) *pipeline.Result
	Status() service.Status
}

// Handler wraps all API endpoint handlers.
type Handler struct {
	service ChatService
}

// NewHandler creates a new Handler.
func NewHandler(s ChatService) *Handler {
	return &Handler{service: s}
}

// ChatRequest is the JSON body of POST /chat.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is returned for answered questions and both advisory outcomes.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// ErrorResponse carries a single error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Chat handles POST /chat.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	// An unreadable body is reported the same as a missing question.
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgNoQuestion})
		return
	}

	res := h.service.Chat(c.Request.Context(), req.Question)
	if res.Err != nil {
		status, msg := errorResponse(res.Err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Answer: res.Answer})
}

// errorResponse maps a pipeline failure to an HTTP status and message.
func errorResponse(err error) (int, string) {
	switch pipeline.KindOf(err) {
	case pipeline.KindInvalidRequest:
		return http.StatusBadRequest, msgNoQuestion
	case pipeline.KindIndexNotReady:
		return http.StatusServiceUnavailable, msgIndexNotReady
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string     `json:"status"`
	Segments int        `json:"segments,omitempty"`
	Sources  []string   `json:"sources,omitempty"`
	BuiltAt  *time.Time `json:"built_at,omitempty"`
}

// Health handles GET /healthz. It answers 503 until the index is published.
func (h *Handler) Health(c *gin.Context) {
	st := h.service.Status()
	if !st.Ready {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "building"})
		return
	}
	builtAt := st.BuiltAt
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ready",
		Segments: st.Segments,
		Sources:  st.Sources,
		BuiltAt:  &builtAt,
	})
}
