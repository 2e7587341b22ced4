package handler

import (
	"fmt"
	"net/http"

	"artstory-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getInstructions: краткий список для выпадающего меню.
func (h *ArtStoryHandler) getInstructions(c *gin.Context) {
	instructions, err := h.catalog.ListInstructions(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	summaries := make([]instructionSummary, 0, len(instructions))
	for _, i := range instructions {
		summaries = append(summaries, instructionSummary{ID: i.ID, Name: i.Name})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "instructions": summaries})
}

func (h *ArtStoryHandler) getInstruction(c *gin.Context) {
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		handleServiceError(c, err)
		return
	}
	instruction, err := h.catalog.GetInstruction(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "instruction": instruction})
}

func (h *ArtStoryHandler) listInstructions(c *gin.Context) {
	instructions, err := h.catalog.ListInstructions(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if instructions == nil {
		instructions = []models.AnalysisInstruction{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "instructions": instructions})
}

func (h *ArtStoryHandler) createInstruction(c *gin.Context) {
	var req instructionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid instruction request body", zap.Error(err))
		badRequest(c, "Invalid request body")
		return
	}
	instruction := req.toModel()
	instruction.ID = 0
	if err := h.catalog.CreateInstruction(c.Request.Context(), instruction); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "instruction": instruction})
}

func (h *ArtStoryHandler) updateInstruction(c *gin.Context) {
	var req instructionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid instruction request body", zap.Error(err))
		badRequest(c, "Invalid request body")
		return
	}
	if req.ID <= 0 {
		badRequest(c, "No instruction ID provided")
		return
	}
	instruction := req.toModel()
	if err := h.catalog.UpdateInstruction(c.Request.Context(), instruction); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "instruction": instruction})
}

func (h *ArtStoryHandler) deleteInstruction(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		badRequest(c, "No instruction ID provided")
		return
	}
	if err := h.catalog.DeleteInstruction(c.Request.Context(), req.ID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Instruction %d deleted successfully", req.ID),
	})
}

func (h *ArtStoryHandler) listHashtags(c *gin.Context) {
	collections, err := h.catalog.ListHashtags(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if collections == nil {
		collections = []models.HashtagCollection{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "collections": collections})
}

func (h *ArtStoryHandler) createHashtags(c *gin.Context) {
	var req hashtagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid hashtag collection request body", zap.Error(err))
		badRequest(c, "Invalid request body")
		return
	}
	collection, err := req.toModel()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if err := h.catalog.CreateHashtags(c.Request.Context(), collection); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"collection": collectionSummary{
			ID:        collection.ID,
			Name:      collection.Name,
			IsDefault: collection.IsDefault,
		},
		"hashtags": collection.Hashtags,
	})
}

func (h *ArtStoryHandler) deleteHashtags(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		badRequest(c, "No hashtag collection ID provided")
		return
	}
	if err := h.catalog.DeleteHashtags(c.Request.Context(), req.ID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Hashtag collection %d deleted successfully", req.ID),
	})
}
