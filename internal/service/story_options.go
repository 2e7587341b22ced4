package service

import (
	"fmt"

	"artstory-server/internal/models"

	"github.com/ilyakaznacheev/cleanenv"
)

var defaultStoryOptions = models.StoryOptions{
	Conflicts: []models.StoryOption{
		{Emoji: "🐿️", Label: "Squirrel gang's mischief"},
		{Emoji: "🧙‍♂️", Label: "Rat wizard's devious plots"},
		{Emoji: "🦃", Label: "Turkey's clumsy adventures"},
		{Emoji: "🐔", Label: "Chicken's clever conspiracies"},
	},
	Settings: []models.StoryOption{
		{Emoji: "🌳", Label: "Deep Forest"},
		{Emoji: "🌾", Label: "Sunny Pasture"},
		{Emoji: "🏡", Label: "Homestead"},
		{Emoji: "🌲", Label: "Mysterious Woods"},
	},
	NarrativeStyles: []models.StoryOption{
		{Emoji: "😎", Label: "GenZ fresh style"},
		{Emoji: "✌️", Label: "Old hippie 1960s vibe"},
		{Emoji: "🤘", Label: "Mix of both"},
	},
	Moods: []models.StoryOption{
		{Emoji: "😄", Label: "Joyful and playful"},
		{Emoji: "😲", Label: "Thrilling and mysterious"},
		{Emoji: "😎", Label: "Cool and laid-back"},
		{Emoji: "😂", Label: "Funny and quirky"},
	},
}

// LoadStoryOptions читает каталог пресетов из YAML. Пустой путь - встроенный каталог.
// Категории, которых нет в файле, берутся из встроенного каталога.
func LoadStoryOptions(path string) (models.StoryOptions, error) {
	opts := cloneStoryOptions(defaultStoryOptions)
	if path == "" {
		return opts, nil
	}

	var fromFile models.StoryOptions
	if err := cleanenv.ReadConfig(path, &fromFile); err != nil {
		return models.StoryOptions{}, fmt.Errorf("failed to read story options from %s: %w", path, err)
	}
	if len(fromFile.Conflicts) > 0 {
		opts.Conflicts = fromFile.Conflicts
	}
	if len(fromFile.Settings) > 0 {
		opts.Settings = fromFile.Settings
	}
	if len(fromFile.NarrativeStyles) > 0 {
		opts.NarrativeStyles = fromFile.NarrativeStyles
	}
	if len(fromFile.Moods) > 0 {
		opts.Moods = fromFile.Moods
	}
	return opts, nil
}

func cloneStoryOptions(o models.StoryOptions) models.StoryOptions {
	return models.StoryOptions{
		Conflicts:       append([]models.StoryOption(nil), o.Conflicts...),
		Settings:        append([]models.StoryOption(nil), o.Settings...),
		NarrativeStyles: append([]models.StoryOption(nil), o.NarrativeStyles...),
		Moods:           append([]models.StoryOption(nil), o.Moods...),
	}
}
