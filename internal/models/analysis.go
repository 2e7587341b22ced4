package models

import (
	"fmt"
	"time"
)

// AnalysisResult - проверенный ответ модели об изображении.
type AnalysisResult struct {
	Style           string   `json:"style"`
	Name            string   `json:"name"`
	Story           string   `json:"story"`
	CharacterTraits []string `json:"character_traits,omitempty"`
}

// ImageAnalysis - сохранённый результат анализа. После создания не меняется.
type ImageAnalysis struct {
	ID                  int64          `db:"id" json:"id"`
	ImageURL            string         `db:"image_url" json:"image_url"`
	AnalysisResult      AnalysisResult `db:"analysis_result" json:"analysis_result"`
	CharacterTraits     []string       `db:"character_traits" json:"character_traits"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	InstructionID       *int64         `db:"instruction_id" json:"instruction_id,omitempty"`
	HashtagCollectionID *int64         `db:"hashtag_collection_id" json:"hashtag_collection_id,omitempty"`
}

// CharacterInfo - персонаж для истории, построенный из анализа.
type CharacterInfo struct {
	ID          int64    `json:"-"`
	Name        string   `json:"name"`
	Traits      []string `json:"traits"`
	Description string   `json:"description"`
}

// Character строит CharacterInfo. Описанием служит стиль изображения.
func (a *ImageAnalysis) Character() CharacterInfo {
	traits := a.CharacterTraits
	if traits == nil {
		traits = []string{}
	}
	return CharacterInfo{
		ID:          a.ID,
		Name:        a.AnalysisResult.Name,
		Traits:      traits,
		Description: a.AnalysisResult.Style,
	}
}

func fieldError(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// RequireFields проверяет поля, без которых нельзя собрать подпись.
func (r AnalysisResult) RequireFields() error {
	switch {
	case r.Name == "":
		return fieldError("name")
	case r.Story == "":
		return fieldError("story")
	case r.Style == "":
		return fieldError("style")
	}
	return nil
}
