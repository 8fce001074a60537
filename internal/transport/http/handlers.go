package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kmindev/chat-archiver/internal/health"
	"github.com/kmindev/chat-archiver/internal/registry"
	"github.com/kmindev/chat-archiver/internal/store"
	"github.com/kmindev/chat-archiver/internal/validate"
)

// ActiveUserRegistry is the registry surface the handlers need.
type ActiveUserRegistry interface {
	Join(ctx context.Context, nickname string) (int64, error)
	Leave(ctx context.Context, nickname string) (int64, error)
	List(ctx context.Context) ([]string, int, error)
}

// MessageReader is the store surface the handlers need.
type MessageReader interface {
	RecentMessages(ctx context.Context, limit int) ([]*store.Message, error)
}

// Handlers provides the REST API endpoints.
type Handlers struct {
	registry     ActiveUserRegistry
	messages     MessageReader
	health       *health.Aggregator
	queryTimeout time.Duration
	started      time.Time
	log          *zerolog.Logger
}

// NewHandlers creates a handlers instance. queryTimeout bounds every
// backing-store call made on behalf of a request.
func NewHandlers(reg ActiveUserRegistry, messages MessageReader, agg *health.Aggregator, queryTimeout time.Duration, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		registry:     reg,
		messages:     messages,
		health:       agg,
		queryTimeout: queryTimeout,
		started:      time.Now(),
		log:          logger,
	}
}

// NicknameRequest represents the join/leave request body.
type NicknameRequest struct {
	Nickname string `json:"nickname"`
}

func (h *Handlers) opContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.queryTimeout)
}

// Join registers a nickname as active.
// POST /api/join
func (h *Handlers) Join(c *gin.Context) {
	var req NicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	nickname, err := validate.Nickname(req.Nickname)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	count, err := h.registry.Join(ctx, nickname)
	if err != nil {
		if errors.Is(err, registry.ErrNicknameTaken) {
			c.JSON(http.StatusConflict, errorBody("nickname already in use"))
			return
		}
		h.log.Error().Err(err).Str("nickname", nickname).Msg("join failed")
		c.JSON(http.StatusInternalServerError, errorBody("internal server error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "nickname registered",
		"data":    gin.H{"nickname": nickname, "activeUsers": count},
	})
}

// Leave removes a nickname from the active set.
// POST /api/leave
func (h *Handlers) Leave(c *gin.Context) {
	var req NicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	nickname, err := validate.Nickname(req.Nickname)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	count, err := h.registry.Leave(ctx, nickname)
	if err != nil {
		h.log.Error().Err(err).Str("nickname", nickname).Msg("leave failed")
		c.JSON(http.StatusInternalServerError, errorBody("internal server error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "removed from active users",
		"data":    gin.H{"activeUsers": count},
	})
}

// Messages returns the most recent messages in chronological order.
// GET /api/messages?limit=N
func (h *Handlers) Messages(c *gin.Context) {
	limit := store.DefaultMessageLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	limit = store.ClampLimit(limit)

	ctx, cancel := h.opContext(c)
	defer cancel()

	messages, err := h.messages.RecentMessages(ctx, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("message query failed")
		c.JSON(http.StatusInternalServerError, errorBody("failed to fetch message history"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   toMessageResponses(messages),
		"meta":   gin.H{"count": len(messages), "limit": limit},
	})
}

// ActiveUsers returns the sorted active nickname list.
// GET /api/active-users
func (h *Handlers) ActiveUsers(c *gin.Context) {
	ctx, cancel := h.opContext(c)
	defer cancel()

	users, count, err := h.registry.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("active user query failed")
		c.JSON(http.StatusInternalServerError, errorBody("failed to fetch active users"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   users,
		"meta":   gin.H{"count": count},
	})
}

// Health reports aggregate liveness of the three backing connections.
// GET /health and GET /api/health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := h.opContext(c)
	defer cancel()

	checks, healthy := h.health.CheckAll(ctx)

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

func errorBody(message string) gin.H {
	return gin.H{"status": "error", "message": message}
}
