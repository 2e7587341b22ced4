package models

import (
	"encoding/json"
	"strings"
	"time"
)

// StoryParams - параметры истории: пресеты и пользовательские замены.
type StoryParams struct {
	Conflict       string
	Setting        string
	NarrativeStyle string
	Mood           string

	CustomConflict  string
	CustomSetting   string
	CustomNarrative string
	CustomMood      string
}

// ResolvedStoryParams - итоговые значения после применения замен.
type ResolvedStoryParams struct {
	Conflict       string `json:"conflict"`
	Setting        string `json:"setting"`
	NarrativeStyle string `json:"narrative_style"`
	Mood           string `json:"mood"`
}

// Resolve подставляет непустую пользовательскую замену вместо пресета.
func (p StoryParams) Resolve() ResolvedStoryParams {
	return ResolvedStoryParams{
		Conflict:       pick(p.CustomConflict, p.Conflict),
		Setting:        pick(p.CustomSetting, p.Setting),
		NarrativeStyle: pick(p.CustomNarrative, p.NarrativeStyle),
		Mood:           pick(p.CustomMood, p.Mood),
	}
}

func pick(custom, preset string) string {
	if c := strings.TrimSpace(custom); c != "" {
		return c
	}
	return strings.TrimSpace(preset)
}

// StoryContent - проверенный ответ модели для разовой истории.
// Characters хранится как есть: модель возвращает его в произвольной форме.
type StoryContent struct {
	Title      string          `json:"title"`
	Story      string          `json:"story"`
	Characters json.RawMessage `json:"characters,omitempty"`
}

// StoryResult - результат генерации разовой истории.
type StoryResult struct {
	Story          StoryContent `json:"story"`
	Conflict       string       `json:"conflict"`
	Setting        string       `json:"setting"`
	NarrativeStyle string       `json:"narrative_style"`
	Mood           string       `json:"mood"`
}

// StoryGeneration - сохранённая разовая история.
type StoryGeneration struct {
	ID             int64     `db:"id" json:"id"`
	Conflict       string    `db:"conflict" json:"conflict"`
	Setting        string    `db:"setting" json:"setting"`
	NarrativeStyle string    `db:"narrative_style" json:"narrative_style"`
	Mood           string    `db:"mood" json:"mood"`
	GeneratedStory string    `db:"generated_story" json:"generated_story"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// StoryOption - вариант пресета для выбора в интерфейсе.
type StoryOption struct {
	Emoji string `yaml:"emoji" json:"emoji"`
	Label string `yaml:"label" json:"label"`
}

// StoryOptions - каталог пресетов.
type StoryOptions struct {
	Conflicts       []StoryOption `yaml:"conflicts" json:"conflicts"`
	Settings        []StoryOption `yaml:"settings" json:"settings"`
	NarrativeStyles []StoryOption `yaml:"narrative_styles" json:"narrative_styles"`
	Moods           []StoryOption `yaml:"moods" json:"moods"`
}
