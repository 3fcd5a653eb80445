package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/quake-report/app/database"
	"github.com/lysyi3m/quake-report/app/feed"
	"github.com/lysyi3m/quake-report/app/tasks"
)

const (
	noQuakesMessage = "No earthquakes found."
	defaultRunLimit = 20
	maxRunLimit     = 100
)

func NewHandler(configCache *feed.ConfigCache, board *feed.Board, filterer *feed.Filterer,
	runRepo database.RunRepository, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		configCache: configCache,
		board:       board,
		filterer:    filterer,
		generator:   feed.NewGenerator(),
		runRepo:     runRepo,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetQuakes(c *gin.Context) {
	name := c.Param("name")

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Debug("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	snapshot, _ := h.board.Get(name)
	records := h.filterer.Run(snapshot.Records, feedConfig)

	quakes := make([]quakeView, 0, len(records))
	for _, record := range records {
		quakes = append(quakes, newQuakeView(record))
	}

	response := gin.H{
		"feed":      name,
		"available": snapshot.Available,
		"count":     len(quakes),
		"quakes":    quakes,
	}
	if !snapshot.UpdatedAt.IsZero() {
		response["updated_at"] = snapshot.UpdatedAt.In(time.Local).Format(time.RFC3339)
	}
	if len(quakes) == 0 {
		response["message"] = noQuakesMessage
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Debug("Feed configuration not found", "feed", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	snapshot, _ := h.board.Get(name)
	records := h.filterer.Run(snapshot.Records, feedConfig)

	rss, err := h.generator.Run(feedConfig, snapshot, records)
	if err != nil {
		slog.Error("RSS generation error", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(records)))
	c.Header("X-Feed-Name", name)
	if !snapshot.UpdatedAt.IsZero() {
		c.Header("X-Last-Updated", snapshot.UpdatedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":                "ok",
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	available := 0
	for name := range h.configCache.GetConfigs() {
		if snapshot, ok := h.board.Get(name); ok && snapshot.Available {
			available++
		}
	}
	health["available_feeds"] = available

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]map[string]interface{}, 0, len(configs))

	for _, feedConfig := range configs {
		feedInfo := map[string]interface{}{
			"name":             feedConfig.Name,
			"url":              feedConfig.URL,
			"enabled":          feedConfig.Settings.Enabled,
			"max_items":        feedConfig.Settings.MaxItems,
			"min_magnitude":    feedConfig.Settings.MinMagnitude,
			"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(feedConfig.Filters),
		}

		if snapshot, ok := h.board.Get(feedConfig.Name); ok {
			feedInfo["available"] = snapshot.Available
			feedInfo["record_count"] = len(snapshot.Records)
			feedInfo["updated_at"] = snapshot.UpdatedAt.In(time.Local).Format(time.RFC3339)
		}

		if stats, err := h.runRepo.GetRunStats(feedConfig.Name); err == nil {
			feedInfo["runs"] = map[string]interface{}{
				"total":       stats.Total,
				"succeeded":   stats.Succeeded,
				"failed":      stats.Failed,
				"last_run_at": stats.LastRunAt,
			}
		} else {
			slog.Warn("Database error", "operation", "get_run_stats", "feed", feedConfig.Name, "error", err)
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedRuns(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxRunLimit)
	}

	runs, err := h.runRepo.GetRecentRuns(name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_runs", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}

	c.JSON(http.StatusOK, gin.H{
		"feed":  name,
		"runs":  views,
		"total": len(views),
	})
}

func (h *Handler) APIRefreshFeed(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	task, err := h.scheduler.RefreshFeed(name)
	if err != nil {
		slog.Error("Failed to start refresh", "feed", name, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	slog.Info("Feed refresh requested", "feed", name, "id", task.GetID())

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Refresh started",
		"feed":    name,
		"task_id": task.GetID(),
	})
}
