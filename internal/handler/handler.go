package handler

import (
	"artstory-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// randomImagesLimit - сколько карточек отдаёт /get_random_images.
const randomImagesLimit = 3

type ArtStoryHandler struct {
	catalog  service.CatalogService
	analysis service.AnalysisService
	stories  service.StoryService
	graph    service.StoryGraphService
	cookies  *SessionCookie
	logger   *zap.Logger
}

func NewArtStoryHandler(
	catalog service.CatalogService,
	analysis service.AnalysisService,
	stories service.StoryService,
	graph service.StoryGraphService,
	cookies *SessionCookie,
	logger *zap.Logger,
) *ArtStoryHandler {
	return &ArtStoryHandler{
		catalog:  catalog,
		analysis: analysis,
		stories:  stories,
		graph:    graph,
		cookies:  cookies,
		logger:   logger.Named("ArtStoryHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. rateLimit навешивается на маршруты,
// которые обращаются к модели; nil - без ограничения.
func (h *ArtStoryHandler) RegisterRoutes(router *gin.Engine, rateLimit gin.HandlerFunc) {
	limited := []gin.HandlerFunc{}
	if rateLimit != nil {
		limited = append(limited, rateLimit)
	}
	withLimit := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, limited...), handler)
	}

	// Анализ изображений
	router.POST("/generate", withLimit(h.generate)...)
	router.POST("/analyze_image", withLimit(h.analyzeImage)...)
	router.GET("/get_random_images", h.getRandomImages)
	router.GET("/reroll_image/:index", h.rerollImage)

	// Истории
	router.GET("/story_options", h.storyOptions)
	router.POST("/generate_story", withLimit(h.generateStory)...)
	router.POST("/begin_story", withLimit(h.beginStory)...)
	router.POST("/make_choice/:choice_id", withLimit(h.makeChoice)...)
	router.POST("/regenerate_choice/:choice_id", withLimit(h.regenerateChoice)...)

	storyGroup := router.Group("/story")
	{
		storyGroup.GET("/current", h.currentStory)
		storyGroup.GET("/:id", h.getStory)
		storyGroup.GET("/:id/graph", h.getStoryGraph)
		storyGroup.POST("/:id/complete", h.completeStory)
	}

	// Каталог
	router.GET("/get_instructions", h.getInstructions)
	router.GET("/get_instruction/:id", h.getInstruction)

	manageGroup := router.Group("/manage")
	{
		manageGroup.GET("/instructions", h.listInstructions)
		manageGroup.POST("/instructions", h.createInstruction)
		manageGroup.PUT("/instructions", h.updateInstruction)
		manageGroup.DELETE("/instructions", h.deleteInstruction)

		manageGroup.GET("/hashtags", h.listHashtags)
		manageGroup.POST("/hashtags", h.createHashtags)
		manageGroup.DELETE("/hashtags", h.deleteHashtags)
	}
}
