package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/feed"
	"github.com/lysyi3m/idea-comb/app/tasks"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func NewHandler(repos Repositories, receiver EventReceiver, channelSyncer tasks.ChannelSyncer,
	searcher Searcher, verifier tasks.CredentialVerifier, settings Settings) *Handler {
	if settings.SyncTimeout <= 0 {
		settings.SyncTimeout = 2 * time.Minute
	}

	return &Handler{
		workspaceRepo: repos.Workspaces,
		channelRepo:   repos.Channels,
		messageRepo:   repos.Messages,
		ideaRepo:      repos.Ideas,
		syncJobRepo:   repos.SyncJobs,
		generator:     feed.NewGenerator(),
		receiver:      receiver,
		syncer:        channelSyncer,
		searcher:      searcher,
		verifier:      verifier,
		settings:      settings,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	channelID := c.Param("channel")
	if channelID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	channel, err := h.channelRepo.GetChannel(channelID)
	if err != nil {
		slog.Error("Database error", "operation", "get_channel", "channel", channelID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if channel == nil {
		c.Status(http.StatusNotFound)
		return
	}

	ideas, err := h.ideaRepo.GetIdeas(database.IdeaFilter{ChannelID: channelID, Limit: defaultListLimit})
	if err != nil {
		slog.Error("Database error", "operation", "get_ideas", "channel", channelID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	links := make(map[string][]database.IdeaLink, len(ideas))
	for _, idea := range ideas {
		ideaLinks, err := h.ideaRepo.GetIdeaLinks(idea.ID)
		if err != nil {
			slog.Error("Database error", "operation", "get_idea_links", "idea", idea.ID, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		links[idea.ID] = ideaLinks
	}

	rss, err := h.generator.Run(*channel, ideas, links)
	if err != nil {
		slog.Error("RSS generation error", "channel", channelID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(ideas)))
	c.Header("X-Feed-Channel", channelID)
	if channel.LastSyncedAt != nil {
		c.Header("X-Last-Synced", channel.LastSyncedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.workspaceRepo.GetWorkspaceCount(); err == nil {
		health["workspaces"] = count
	}
	if count, err := h.channelRepo.GetChannelCount(); err == nil {
		health["channels"] = count
	}
	if count, err := h.messageRepo.GetMessageCount(); err == nil {
		health["messages"] = count
	}
	if count, err := h.ideaRepo.GetIdeaCount(); err == nil {
		health["ideas"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListIdeas(c *gin.Context) {
	filter := database.IdeaFilter{
		ChannelID: c.Query("channel"),
		Status:    c.Query("status"),
		Limit:     parseLimit(c.Query("limit")),
	}

	ideas, err := h.ideaRepo.GetIdeas(filter)
	if err != nil {
		slog.Error("Database error", "operation", "get_ideas", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]gin.H, 0, len(ideas))
	for _, idea := range ideas {
		result = append(result, ideaJSON(idea))
	}

	c.JSON(http.StatusOK, gin.H{
		"ideas": result,
		"total": len(result),
	})
}

func (h *Handler) APISearchIdeas(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}

	hits, err := h.searcher.Search(query, parseLimit(c.Query("limit")))
	if err != nil {
		slog.Error("Search error", "query", query, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search failed", "details": err.Error()})
		return
	}

	results := make([]gin.H, 0, len(hits))
	for _, hit := range hits {
		idea, err := h.ideaRepo.GetIdea(hit.ID)
		if err != nil {
			slog.Error("Database error", "operation", "get_idea", "idea", hit.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if idea == nil {
			continue
		}

		item := ideaJSON(*idea)
		item["score"] = hit.Score
		results = append(results, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}

func (h *Handler) APIGetIdea(c *gin.Context) {
	id := c.Param("id")

	idea, err := h.ideaRepo.GetIdea(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_idea", "idea", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if idea == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Idea not found"})
		return
	}

	links, err := h.ideaRepo.GetIdeaLinks(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_idea_links", "idea", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	details := ideaJSON(*idea)
	linkList := make([]gin.H, 0, len(links))
	for _, link := range links {
		linkList = append(linkList, gin.H{
			"url":          link.URL,
			"label":        link.Label,
			"status":       link.Status,
			"title":        link.Title,
			"excerpt":      link.Excerpt,
			"attempts":     link.Attempts,
			"error":        link.Error,
			"extracted_at": link.ExtractedAt,
		})
	}
	details["links"] = linkList

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIListSyncJobs(c *gin.Context) {
	jobs, err := h.syncJobRepo.GetRecentSyncJobs(parseLimit(c.Query("limit")))
	if err != nil {
		slog.Error("Database error", "operation", "get_sync_jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		result = append(result, gin.H{
			"job_id":             job.ID,
			"trigger":            job.Trigger,
			"channel_id":         job.ChannelID,
			"success":            job.Success,
			"channels_synced":    job.ChannelsSynced,
			"messages_fetched":   job.MessagesFetched,
			"messages_processed": job.MessagesProcessed,
			"ideas_created":      job.IdeasCreated,
			"errors":             job.Errors,
			"started_at":         job.StartedAt,
			"finished_at":        job.FinishedAt,
			"duration":           job.FinishedAt.Sub(job.StartedAt).String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  result,
		"total": len(result),
	})
}

func (h *Handler) APIListChannels(c *gin.Context) {
	channels, err := h.channelRepo.GetChannels()
	if err != nil {
		slog.Error("Database error", "operation", "get_channels", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]gin.H, 0, len(channels))
	for _, channel := range channels {
		result = append(result, gin.H{
			"id":             channel.ID,
			"workspace_id":   channel.WorkspaceID,
			"name":           channel.Name,
			"cadence":        channel.Cadence,
			"enabled":        channel.Enabled,
			"auto_approve":   channel.AutoApprove,
			"last_cursor":    channel.LastCursor,
			"last_synced_at": channel.LastSyncedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": result,
		"total":    len(result),
	})
}

func (h *Handler) APIVerifyWorkspace(c *gin.Context) {
	id := c.Param("id")

	workspace, err := h.workspaceRepo.GetWorkspace(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_workspace", "workspace", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if workspace == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		return
	}

	if workspace.BotToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Workspace has no bot token configured"})
		return
	}

	identity, err := h.verifier.AuthTest(c.Request.Context(), workspace.BotToken)
	if err != nil {
		slog.Warn("Workspace verification failed", "workspace", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Verification failed",
			"details": err.Error(),
		})
		return
	}

	if err := h.workspaceRepo.UpdateBotIdentity(id, identity.BotUserID, identity.BotID); err != nil {
		slog.Error("Database error", "operation", "update_bot_identity", "workspace", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"workspace_id": id,
		"team_id":      identity.ID,
		"team":         identity.Name,
		"bot_user_id":  identity.BotUserID,
		"bot_id":       identity.BotID,
		"team_matches": identity.ID == "" || identity.ID == id,
	})
}

func ideaJSON(idea database.Idea) gin.H {
	return gin.H{
		"id":          idea.ID,
		"channel_id":  idea.ChannelID,
		"message_id":  idea.MessageID,
		"title":       idea.Title,
		"description": idea.Description,
		"priority":    idea.Priority,
		"category":    idea.Category,
		"hashtags":    idea.Hashtags,
		"status":      idea.Status,
		"author_name": idea.AuthorName,
		"created_at":  idea.CreatedAt,
	}
}

func parseLimit(value string) int {
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
