package models

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisInstruction - шаблон промта для анализа изображения.
type AnalysisInstruction struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SystemPrompt string    `db:"system_prompt" json:"system_prompt"`
	UserPrompt   string    `db:"user_prompt" json:"user_prompt"`
	IsDefault    bool      `db:"is_default" json:"is_default"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Validate проверяет обязательные поля инструкции.
func (i *AnalysisInstruction) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return invalidField("name")
	}
	if strings.TrimSpace(i.SystemPrompt) == "" {
		return invalidField("system_prompt")
	}
	if strings.TrimSpace(i.UserPrompt) == "" {
		return invalidField("user_prompt")
	}
	return nil
}

// HashtagCollection - именованный упорядоченный набор хэштегов.
type HashtagCollection struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Hashtags  []string  `db:"hashtags" json:"hashtags"`
	IsDefault bool      `db:"is_default" json:"is_default"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (h *HashtagCollection) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return invalidField("name")
	}
	if len(h.Hashtags) == 0 {
		return invalidField("hashtags")
	}
	return nil
}

// ParseHashtags разбирает текст по запятым и переводам строк.
// Остаются только токены, начинающиеся с '#', порядок сохраняется.
func ParseHashtags(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.TrimSpace(f)
		if strings.HasPrefix(tag, "#") && len(tag) > 1 {
			tags = append(tags, tag)
		}
	}
	return tags
}

// NormalizeHashtags применяет те же правила к уже разбитому списку.
func NormalizeHashtags(list []string) []string {
	return ParseHashtags(strings.Join(list, "\n"))
}

func invalidField(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
}
