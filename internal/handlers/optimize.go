package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/eventbus"
	"github.com/promptforge/api/internal/middleware"
	"github.com/promptforge/api/internal/optimizer"
)

var tracer = otel.Tracer("github.com/promptforge/api/internal/handlers")

// Limits bounds what the optimize and summarize endpoints accept.
type Limits struct {
	MaxRequirementLength int
	MaxHistoryTurns      int
	SummaryMinLength     int
}

// OptimizeHandler exposes the refinement pipeline and the summarizer over HTTP
type OptimizeHandler struct {
	svc     Optimizer
	cache   SummaryCache
	events  eventbus.Publisher
	breaker *middleware.CircuitBreaker
	metrics CacheObserver
	limits  Limits
	logger  *zap.Logger
}

// NewOptimizeHandler creates a new optimize handler. cache, events and metrics may be nil.
func NewOptimizeHandler(svc Optimizer, cache SummaryCache, events eventbus.Publisher, breaker *middleware.CircuitBreaker,
	metrics CacheObserver, limits Limits, logger *zap.Logger) *OptimizeHandler {
	if events == nil {
		events = eventbus.NopPublisher{}
	}
	if metrics == nil {
		metrics = nopCacheObserver{}
	}
	if breaker == nil {
		breaker = middleware.NewCircuitBreaker()
	}
	return &OptimizeHandler{
		svc:     svc,
		cache:   cache,
		events:  events,
		breaker: breaker,
		metrics: metrics,
		limits:  limits,
		logger:  logger,
	}
}

// OptimizeRequest is the request body for running the pipeline
type OptimizeRequest struct {
	UserText            string          `json:"user_text"`
	ConversationHistory json.RawMessage `json:"conversation_history" swaggertype:"array,object"`
}

// OptimizeResponse wraps the three stage outputs
type OptimizeResponse struct {
	Success bool                      `json:"success"`
	Data    *optimizer.PipelineResult `json:"data"`
}

// SummarizeRequest is the request body for summarization
type SummarizeRequest struct {
	Content string `json:"content"`
}

// SummarizeResponse reports the summary and whether it came from the cache
type SummarizeResponse struct {
	OriginalLength int    `json:"original_length"`
	SummaryLength  int    `json:"summary_length"`
	Summary        string `json:"summary"`
	Cached         bool   `json:"cached"`
}

type optimizationCompleted struct {
	UserID            string `json:"user_id"`
	RequirementLength int    `json:"requirement_length"`
	HistoryTurns      int    `json:"history_turns"`
	Stage3Length      int    `json:"stage3_length"`
}

type summaryCompleted struct {
	UserID         string `json:"user_id"`
	OriginalLength int    `json:"original_length"`
	SummaryLength  int    `json:"summary_length"`
	Cached         bool   `json:"cached"`
}

// Optimize runs the three-stage pipeline
// @Summary Optimize a prompt
// @Description Runs the requirement and conversation history through three model stages.
// @Tags optimize
// @Accept json
// @Produce json
// @Security Bearer
// @Param body body OptimizeRequest true "requirement and history"
// @Success 200 {object} OptimizeResponse
// @Failure 400 {object} middleware.APIError
// @Failure 502 {object} middleware.APIError
// @Router /optimize [post]
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Optimize")
	defer span.End()

	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "invalid request body")
		return
	}
	req.UserText = strings.TrimSpace(req.UserText)

	history := h.svc.Builder().DecodeHistory(req.ConversationHistory)
	if msg := h.validateOptimize(req.UserText, history); msg != "" {
		middleware.BadRequest(c, msg)
		return
	}
	span.SetAttributes(
		attribute.Int("optimize.requirement_length", utf8.RuneCountInString(req.UserText)),
		attribute.Int("optimize.history_turns", len(history)),
	)

	result, err := h.svc.RunOptimization(ctx, req.UserText, history)
	if err != nil {
		h.breaker.Record(err)
		h.respondPipelineError(c, err)
		return
	}
	h.breaker.Record(nil)

	userID, _ := middleware.GetUserID(c)
	h.publish(c, eventbus.SubjectOptimizationCompleted, optimizationCompleted{
		UserID:            userID.String(),
		RequirementLength: utf8.RuneCountInString(req.UserText),
		HistoryTurns:      len(history),
		Stage3Length:      utf8.RuneCountInString(result.Stage3),
	})

	c.JSON(http.StatusOK, OptimizeResponse{Success: true, Data: result})
}

func (h *OptimizeHandler) validateOptimize(userText string, history optimizer.History) string {
	if userText == "" && len(history) == 0 {
		return "user_text or conversation_history is required"
	}
	if h.limits.MaxRequirementLength > 0 && utf8.RuneCountInString(userText) > h.limits.MaxRequirementLength {
		return "user_text is too long"
	}
	if h.limits.MaxHistoryTurns > 0 && len(history) > h.limits.MaxHistoryTurns {
		return "conversation_history has too many turns"
	}
	return ""
}

func (h *OptimizeHandler) respondPipelineError(c *gin.Context, err error) {
	var stageErr *optimizer.PipelineStageError
	if errors.As(err, &stageErr) {
		h.logger.Error("optimization failed", zap.String("stage", stageErr.Stage.String()), zap.Error(err))
		middleware.StageFailed(c, stageErr.Stage.String(), err.Error())
		return
	}
	h.logger.Error("optimization failed", zap.Error(err))
	middleware.InternalError(c, "optimization failed")
}

// Summarize compresses long text with a single model call
// @Summary Summarize long text
// @Tags optimize
// @Accept json
// @Produce json
// @Security Bearer
// @Param body body SummarizeRequest true "content"
// @Success 200 {object} SummarizeResponse
// @Failure 400 {object} middleware.APIError
// @Failure 502 {object} middleware.APIError
// @Router /summarize [post]
func (h *OptimizeHandler) Summarize(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Summarize")
	defer span.End()

	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "content is required")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		middleware.BadRequest(c, "content is required")
		return
	}
	originalLength := utf8.RuneCountInString(req.Content)
	if originalLength < h.limits.SummaryMinLength {
		middleware.BadRequest(c, "content is too short to summarize")
		return
	}

	summary, cached := h.cachedSummary(c, req.Content)
	if !cached {
		var err error
		summary, err = h.svc.SummarizeLongText(ctx, req.Content)
		h.breaker.Record(err)
		if err != nil {
			h.logger.Error("summarization failed", zap.Error(err))
			middleware.RespondErrorWithDetails(c, http.StatusBadGateway, middleware.ErrCodeAIServiceUnavailable,
				"summarization failed", err.Error())
			return
		}
		if h.cache != nil {
			if err := h.cache.Set(ctx, req.Content, summary); err != nil {
				h.logger.Warn("failed to cache summary", zap.Error(err))
			}
		}
	}

	resp := SummarizeResponse{
		OriginalLength: originalLength,
		SummaryLength:  utf8.RuneCountInString(summary),
		Summary:        summary,
		Cached:         cached,
	}
	userID, _ := middleware.GetUserID(c)
	h.publish(c, eventbus.SubjectSummaryCompleted, summaryCompleted{
		UserID:         userID.String(),
		OriginalLength: resp.OriginalLength,
		SummaryLength:  resp.SummaryLength,
		Cached:         cached,
	})

	c.JSON(http.StatusOK, resp)
}

func (h *OptimizeHandler) cachedSummary(c *gin.Context, content string) (string, bool) {
	if h.cache == nil {
		return "", false
	}
	summary, ok, err := h.cache.Get(c.Request.Context(), content)
	if err != nil {
		h.logger.Warn("summary cache unavailable", zap.Error(err))
		return "", false
	}
	h.metrics.ObserveCache(ok)
	return summary, ok
}

func (h *OptimizeHandler) publish(c *gin.Context, subject string, payload any) {
	if err := h.events.Publish(c.Request.Context(), subject, payload); err != nil {
		h.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
