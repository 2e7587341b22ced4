package handler

import (
	"net/http"
	"strconv"
	"strings"

	"artstory-server/internal/models"
	"artstory-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// generate: POST /generate (форма) - анализ, подпись и сохранение.
func (h *ArtStoryHandler) generate(c *gin.Context) {
	imageURL := strings.TrimSpace(c.PostForm("image_url"))
	if imageURL == "" {
		badRequest(c, "No image URL provided")
		return
	}
	instructionID, err := parseOptionalID(c.PostForm("instruction_id"), "instruction_id")
	if err != nil {
		handleServiceError(c, err)
		return
	}
	hashtagsID, err := parseOptionalID(c.PostForm("hashtag_collection_id"), "hashtag_collection_id")
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result, err := h.analysis.Generate(c.Request.Context(), service.GenerateRequest{
		ImageURL:            imageURL,
		InstructionID:       instructionID,
		HashtagCollectionID: hashtagsID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	captionsGeneratedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"caption":     result.Caption,
		"analysis":    result.Analysis.AnalysisResult,
		"analysis_id": result.Analysis.ID,
	})
}

// analyzeImage: POST /analyze_image (JSON) - анализ без сохранения.
func (h *ArtStoryHandler) analyzeImage(c *gin.Context) {
	var req analyzeImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid analyze_image request body", zap.Error(err))
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		badRequest(c, "No image URL provided")
		return
	}

	analysis, err := h.analysis.AnalyzeAdHoc(c.Request.Context(), req.ImageURL, req.InstructionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}

func (h *ArtStoryHandler) getRandomImages(c *gin.Context) {
	images, err := h.analysis.RandomImages(c.Request.Context(), randomImagesLimit, nil)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	cards := make([]imageCard, 0, len(images))
	for _, img := range images {
		cards = append(cards, newImageCard(img))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "images": cards})
}

// rerollImage: GET /reroll_image/:index?excluded_ids[]=1&excluded_ids[]=2.
// index - позиция карточки в интерфейсе, сервер её только проверяет.
func (h *ArtStoryHandler) rerollImage(c *gin.Context) {
	if index, err := strconv.Atoi(c.Param("index")); err != nil || index < 0 {
		badRequest(c, "Invalid image index")
		return
	}
	excluded := parseExcludedIDs(append(c.QueryArray("excluded_ids[]"), c.QueryArray("excluded_ids")...))

	images, err := h.analysis.RandomImages(c.Request.Context(), 1, excluded)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if len(images) == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{Error: "No more images available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "image": newImageCard(images[0])})
}
