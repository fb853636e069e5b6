package api

import (
	"errors"
	"net/http"
	"strconv"

	"sentinel-panel/internal/stats"
	"sentinel-panel/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type commandView struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Usage       string   `json:"usage"`
	Aliases     []string `json:"aliases,omitempty"`
	Cooldown    float64  `json:"cooldown"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Health())
}

func (h *handlers) botStats(c *gin.Context) {
	data, _ := SessionFrom(c)
	report, err := h.stats.Report(data.Guilds)
	if err != nil {
		if errors.Is(err, stats.ErrNotReady) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":    "Bot is not ready",
				"guilds":   0,
				"users":    0,
				"commands": 0,
				"uptime":   "0m",
			})
			return
		}
		h.logger.Error("stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bot stats"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handlers) guilds(c *gin.Context) {
	data, _ := SessionFrom(c)
	views, err := h.stats.Guilds(data.Guilds)
	if err != nil {
		if errors.Is(err, stats.ErrNotReady) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Bot is not ready"})
			return
		}
		h.logger.Error("guilds failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch guilds"})
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *handlers) commands(c *gin.Context) {
	descs := h.registry.List()
	out := make([]commandView, 0, len(descs))
	for _, desc := range descs {
		category := desc.Category
		if category == "" {
			category = "General"
		}
		usage := desc.Usage
		if usage == "" {
			usage = "/" + desc.Name
		}
		out = append(out, commandView{
			Name:        desc.Name,
			Description: desc.Description,
			Category:    category,
			Usage:       usage,
			Aliases:     desc.Aliases,
			Cooldown:    desc.EffectiveCooldown().Seconds(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) recentActivity(c *gin.Context) {
	data, _ := SessionFrom(c)
	limit := storage.DefaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	c.JSON(http.StatusOK, h.activity.Recent(c.Request.Context(), data.GuildIDs(), limit))
}
