package handler

import (
	"context"
	"net/http"

	"artstory-server/internal/models"
	"artstory-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *ArtStoryHandler) storyOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "options": h.stories.Options()})
}

// storyParamsFromForm читает пресеты и пользовательские замены из формы.
func storyParamsFromForm(c *gin.Context) models.StoryParams {
	return models.StoryParams{
		Conflict:        c.PostForm("conflict"),
		Setting:         c.PostForm("setting"),
		NarrativeStyle:  c.PostForm("narrative_style"),
		Mood:            c.PostForm("mood"),
		CustomConflict:  c.PostForm("custom_conflict"),
		CustomSetting:   c.PostForm("custom_setting"),
		CustomNarrative: c.PostForm("custom_narrative"),
		CustomMood:      c.PostForm("custom_mood"),
	}
}

// generateStory: POST /generate_story - разовая история.
func (h *ArtStoryHandler) generateStory(c *gin.Context) {
	selectedImageID, err := parseOptionalID(c.PostForm("selected_image_id"), "selected_image_id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result, err := h.stories.GenerateAndStore(c.Request.Context(), storyParamsFromForm(c), selectedImageID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "story": result.Story})
}

// beginStory: POST /begin_story - новая интерактивная сессия, id кладётся в cookie.
func (h *ArtStoryHandler) beginStory(c *gin.Context) {
	characterIDs, err := parseIDList(c.PostForm("selected_character_ids"), "selected_character_ids")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	session, err := h.graph.Begin(c.Request.Context(), service.BeginRequest{
		Params:       storyParamsFromForm(c),
		CharacterIDs: characterIDs,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.cookies.Set(c, session.ID); err != nil {
		// Сессия уже создана; без cookie её можно открыть по id.
		h.logger.Error("Failed to set story session cookie", zap.Int64("sessionID", session.ID), zap.Error(err))
	}
	storySessionsStartedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "story_id": session.ID})
}

func (h *ArtStoryHandler) makeChoice(c *gin.Context) {
	h.advance(c, "choose", h.graph.Choose)
}

func (h *ArtStoryHandler) regenerateChoice(c *gin.Context) {
	h.advance(c, "regenerate", h.graph.Regenerate)
}

func (h *ArtStoryHandler) advance(c *gin.Context, operation string, step func(ctx context.Context, choiceID int64) (int64, error)) {
	choiceID, err := parseID(c.Param("choice_id"), "choice_id")
	if err != nil {
		handleServiceError(c, err)
		return
	}
	nextID, err := step(c.Request.Context(), choiceID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	storyChoicesTotal.WithLabelValues(operation).Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "next_segment_id": nextID})
}

// currentStory: GET /story/current - сессия из cookie.
func (h *ArtStoryHandler) currentStory(c *gin.Context) {
	sessionID, err := h.cookies.Current(c)
	if err != nil {
		h.logger.Debug("No valid story session cookie", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{Error: "No active story session"})
		return
	}
	h.respondSession(c, sessionID)
}

func (h *ArtStoryHandler) getStory(c *gin.Context) {
	sessionID, err := parseID(c.Param("id"), "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.respondSession(c, sessionID)
}

func (h *ArtStoryHandler) respondSession(c *gin.Context, sessionID int64) {
	view, err := h.graph.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "story": view})
}

func (h *ArtStoryHandler) getStoryGraph(c *gin.Context) {
	sessionID, err := parseID(c.Param("id"), "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}
	graph, err := h.graph.GetGraph(c.Request.Context(), sessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "graph": graph})
}

func (h *ArtStoryHandler) completeStory(c *gin.Context) {
	sessionID, err := parseID(c.Param("id"), "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if err := h.graph.Complete(c.Request.Context(), sessionID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "story_id": sessionID, "state": models.StateCompleted})
}
