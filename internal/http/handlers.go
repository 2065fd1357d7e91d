package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-bot/internal/common/middleware"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

// Lifecycle is the part of the giveaway lifecycle operators can trigger.
type Lifecycle interface {
	ForceEnd(ctx context.Context, messageID string) error
	Reroll(ctx context.Context, messageID string) ([]string, error)
}

// Lister exposes the active giveaways.
type Lister interface {
	Snapshot() []*models.Giveaway
}

type GiveawayHandler struct {
	lifecycle Lifecycle
	lister    Lister
	logger    zerolog.Logger
}

func NewGiveawayHandler(lifecycle Lifecycle, lister Lister, logger zerolog.Logger) *GiveawayHandler {
	return &GiveawayHandler{lifecycle: lifecycle, lister: lister, logger: logger}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.GET("", h.list)
		giveaways.POST("/:message_id/end", h.end)
		giveaways.POST("/:message_id/reroll", h.reroll)
	}
}

func (h *GiveawayHandler) list(c *gin.Context) {
	active := h.lister.Snapshot()
	views := make([]models.GiveawayView, 0, len(active))
	for _, g := range active {
		views = append(views, g.View())
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": views, "count": len(views)})
}

func (h *GiveawayHandler) end(c *gin.Context) {
	messageID := c.Param("message_id")
	if err := h.lifecycle.ForceEnd(c.Request.Context(), messageID); err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "status": models.StatusEnded.String()})
}

func (h *GiveawayHandler) reroll(c *gin.Context) {
	messageID := c.Param("message_id")
	winners, err := h.lifecycle.Reroll(c.Request.Context(), messageID)
	if err != nil {
		middleware.AbortWithError(c, h.logger, err)
		return
	}
	if winners == nil {
		winners = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "winners": winners})
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "giveaway-bot",
	})
}
