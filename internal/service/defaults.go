package service

import "artstory-server/internal/models"

// Записи, которые создаются при первом запуске, если в базе нет записи по умолчанию.
const (
	defaultInstructionName         = "Default Art Style Analysis"
	defaultInstructionSystemPrompt = "You are an art critic specializing in dog portraits. Analyze the image and provide: " +
		"1. Art style description 2. A creative name for the Yorkie 3. A brief, engaging story about the Yorkie " +
		"Respond in JSON format with keys: 'style', 'name', 'story'"
	defaultInstructionUserPrompt = "Please analyze this Yorkie artwork:"

	defaultHashtagsName = "Default Yorkie Art Hashtags"
)

var defaultHashtags = []string{
	"#YorkshireTerrier", "#YorkieArt", "#DogArt", "#PetPortrait", "#YorkieLove",
	"#DogLover", "#PetArt", "#YorkieLife", "#DogPortrait", "#AnimalArt",
	"#YorkiesOfInstagram", "#DogArtist", "#PetLover", "#YorkieMom", "#DogDrawing",
}

// genericInstruction используется в /analyze_image, когда инструкция не указана.
var genericInstruction = models.AnalysisInstruction{
	Name: "Generic Art Analysis",
	SystemPrompt: "You are an art critic. Analyze the image and provide: 1. Art style description " +
		"2. A creative name for the character 3. A brief, engaging story about the character " +
		"4. List 3-5 character traits that define this character " +
		"Respond in JSON format with keys: 'style', 'name', 'story', 'character_traits'",
	UserPrompt: "Please analyze this artwork:",
}
