package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"artstory-server/internal/ai"
	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"go.uber.org/zap"
)

const (
	storySystemPrompt = "You are a master storyteller for kids. Create a captivating Netflix-series–style story set in " +
		"Uncle Mark's forest farm. The main characters are two courageous Yorkshire terriers, Pawel (male, impulsive) " +
		"and Pawleen (female, thoughtful). Include vivid, detailed descriptions of each character and scene with plenty " +
		"of emojis. Provide your response in JSON format."

	storyFarmPrompt = "Tell a story set on Uncle Mark's forest farm with vivid descriptions of every scene and character. " +
		"Include Pawel and Pawleen, the fearless Yorkshire terriers, who face off against mean squirrels and a cunning " +
		"rat wizard. Make sure to mention the quirky chickens led by Big Red, the clever hens, and the clumsy white " +
		"turkeys. Switch the narrative tone between a modern GenZ vibe and an old-school 1960s hippie style, and " +
		"sprinkle in lots of emojis. End the episode with an unresolved cliffhanger to set up future episodes."

	storyFormatSuffix = "\n\nFormat your response as a JSON object with 'title', 'story', and 'characters' fields."
)

// StoryService генерирует разовые истории и отдаёт каталог пресетов.
type StoryService interface {
	Options() models.StoryOptions
	Generate(ctx context.Context, params models.StoryParams, character *models.CharacterInfo) (*models.StoryResult, error)
	// GenerateAndStore загружает персонажа по selectedImageID (если задан), генерирует и сохраняет историю.
	GenerateAndStore(ctx context.Context, params models.StoryParams, selectedImageID *int64) (*models.StoryResult, error)
}

type storyServiceImpl struct {
	client      ai.Client
	db          interfaces.DBTX
	analyses    interfaces.AnalysisRepository
	stories     interfaces.StoryGenerationRepository
	options     models.StoryOptions
	temperature float64
	logger      *zap.Logger
}

func NewStoryService(
	client ai.Client,
	db interfaces.DBTX,
	analyses interfaces.AnalysisRepository,
	stories interfaces.StoryGenerationRepository,
	options models.StoryOptions,
	temperature float64,
	logger *zap.Logger,
) StoryService {
	return &storyServiceImpl{
		client:      client,
		db:          db,
		analyses:    analyses,
		stories:     stories,
		options:     options,
		temperature: temperature,
		logger:      logger.Named("StoryService"),
	}
}

func (s *storyServiceImpl) Options() models.StoryOptions {
	return s.options
}

func (s *storyServiceImpl) Generate(ctx context.Context, params models.StoryParams, character *models.CharacterInfo) (*models.StoryResult, error) {
	resolved := params.Resolve()
	if err := requireResolved(resolved, true); err != nil {
		return nil, err
	}

	temperature := s.temperature
	reply, usage, err := s.client.Chat(ctx, ai.ChatRequest{
		Operation:    ai.OperationStory,
		SystemPrompt: storySystemPrompt,
		UserPrompt:   BuildStoryPrompt(resolved, character),
		JSONMode:     true,
		Temperature:  &temperature,
	})
	if err != nil {
		storiesGeneratedTotal.WithLabelValues("upstream_error").Inc()
		return nil, err
	}

	content, err := ParseStoryReply(reply)
	if err != nil {
		storiesGeneratedTotal.WithLabelValues("parse_error").Inc()
		s.logger.Warn("Story reply has unexpected shape", zap.Error(err), zap.String("reply", truncate(reply, 500)))
		return nil, err
	}
	storiesGeneratedTotal.WithLabelValues("success").Inc()
	s.logger.Info("Story generated", zap.String("title", content.Title), zap.Int("totalTokens", usage.TotalTokens))

	return &models.StoryResult{
		Story:          *content,
		Conflict:       resolved.Conflict,
		Setting:        resolved.Setting,
		NarrativeStyle: resolved.NarrativeStyle,
		Mood:           resolved.Mood,
	}, nil
}

func (s *storyServiceImpl) GenerateAndStore(ctx context.Context, params models.StoryParams, selectedImageID *int64) (*models.StoryResult, error) {
	var (
		character *models.CharacterInfo
		imageIDs  []int64
	)
	if selectedImageID != nil {
		analysis, err := s.analyses.GetByID(ctx, s.db, *selectedImageID)
		if err != nil {
			return nil, err
		}
		c := analysis.Character()
		character = &c
		imageIDs = []int64{analysis.ID}
	}

	result, err := s.Generate(ctx, params, character)
	if err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(result.Story)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize story: %w", err)
	}
	record := &models.StoryGeneration{
		Conflict:       result.Conflict,
		Setting:        result.Setting,
		NarrativeStyle: result.NarrativeStyle,
		Mood:           result.Mood,
		GeneratedStory: string(serialized),
	}
	if err := s.stories.Create(ctx, s.db, record, imageIDs); err != nil {
		return nil, err
	}
	return result, nil
}

// requireResolved проверяет, что после подстановки параметры непустые.
func requireResolved(p models.ResolvedStoryParams, withNarrative bool) error {
	missing := make([]string, 0, 4)
	if p.Conflict == "" {
		missing = append(missing, "conflict")
	}
	if p.Setting == "" {
		missing = append(missing, "setting")
	}
	if withNarrative && p.NarrativeStyle == "" {
		missing = append(missing, "narrative_style")
	}
	if p.Mood == "" {
		missing = append(missing, "mood")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", models.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// BuildStoryPrompt собирает пользовательский промт разовой истории.
func BuildStoryPrompt(p models.ResolvedStoryParams, character *models.CharacterInfo) string {
	characterPrompt := ""
	if character != nil {
		characterPrompt = fmt.Sprintf("\nInclude the character '%s' in the story. This character has the following traits: %s. Their appearance is described as: %s",
			character.Name, strings.Join(character.Traits, ", "), character.Description)
	}
	return fmt.Sprintf("Primary Conflict: %s\nSetting: %s\nNarrative Style: %s\nMood: %s\n%s\n\n%s%s",
		p.Conflict, p.Setting, p.NarrativeStyle, p.Mood, characterPrompt, storyFarmPrompt, storyFormatSuffix)
}

// ParseStoryReply требует строки title и story; characters сохраняется как есть.
func ParseStoryReply(reply string) (*models.StoryContent, error) {
	fields, err := decodeReplyObject(reply)
	if err != nil {
		return nil, err
	}
	var content models.StoryContent
	if content.Title, err = requireString(fields, "title"); err != nil {
		return nil, err
	}
	if content.Story, err = requireString(fields, "story"); err != nil {
		return nil, err
	}
	if raw, ok := fields["characters"]; ok && !isJSONNull(raw) {
		content.Characters = raw
	}
	return &content, nil
}
