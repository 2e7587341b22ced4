package handler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"artstory-server/internal/models"
)

type analyzeImageRequest struct {
	ImageURL      string `json:"image_url"`
	InstructionID *int64 `json:"instruction_id"`
}

type instructionRequest struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
	IsDefault    bool   `json:"is_default"`
}

func (r instructionRequest) toModel() *models.AnalysisInstruction {
	return &models.AnalysisInstruction{
		ID:           r.ID,
		Name:         r.Name,
		SystemPrompt: r.SystemPrompt,
		UserPrompt:   r.UserPrompt,
		IsDefault:    r.IsDefault,
	}
}

// hashtagsRequest: hashtags - строка через запятую/перевод строки или массив.
type hashtagsRequest struct {
	Name      string          `json:"name"`
	Hashtags  json.RawMessage `json:"hashtags"`
	IsDefault bool            `json:"is_default"`
}

func (r hashtagsRequest) toModel() (*models.HashtagCollection, error) {
	var tags []string
	if len(r.Hashtags) > 0 {
		var text string
		if err := json.Unmarshal(r.Hashtags, &text); err == nil {
			tags = models.ParseHashtags(text)
		} else if err := json.Unmarshal(r.Hashtags, &tags); err != nil {
			return nil, fmt.Errorf("%w: hashtags must be a string or an array of strings", models.ErrInvalidInput)
		}
	}
	return &models.HashtagCollection{
		Name:      r.Name,
		Hashtags:  tags,
		IsDefault: r.IsDefault,
	}, nil
}

type deleteRequest struct {
	ID int64 `json:"id"`
}

type instructionSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type collectionSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// imageCard - анализ в виде карточки персонажа.
type imageCard struct {
	ID              int64    `json:"id"`
	ImageURL        string   `json:"image_url"`
	Name            string   `json:"name"`
	Style           string   `json:"style"`
	Story           string   `json:"story"`
	CharacterTraits []string `json:"character_traits"`
}

func newImageCard(a models.ImageAnalysis) imageCard {
	traits := a.CharacterTraits
	if traits == nil {
		traits = []string{}
	}
	return imageCard{
		ID:              a.ID,
		ImageURL:        a.ImageURL,
		Name:            a.AnalysisResult.Name,
		Style:           a.AnalysisResult.Style,
		Story:           a.AnalysisResult.Story,
		CharacterTraits: traits,
	}
}

// parseOptionalID: пустая строка - nil.
func parseOptionalID(raw, field string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: %s must be a positive integer", models.ErrInvalidInput, field)
	}
	return &id, nil
}

func parseID(raw, field string) (int64, error) {
	id, err := parseOptionalID(raw, field)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, fmt.Errorf("%w: %s is required", models.ErrInvalidInput, field)
	}
	return *id, nil
}

// parseIDList разбирает "3, 5,8". Пустые элементы пропускаются.
func parseIDList(raw, field string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := parseOptionalID(part, field)
		if err != nil {
			return nil, err
		}
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids, nil
}

// parseExcludedIDs разбирает excluded_ids[]; нечисловые значения игнорируются.
func parseExcludedIDs(values []string) []int64 {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
