package database

import (
	"context"
	"fmt"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"go.uber.org/zap"
)

const (
	createStoryGenerationQuery = `
		INSERT INTO story_generations (conflict, setting, narrative_style, mood, generated_story)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	attachStoryImageQuery = `
		INSERT INTO story_generation_images (story_generation_id, image_analysis_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
)

type pgStoryGenerationRepository struct {
	logger *zap.Logger
}

func NewPgStoryGenerationRepository(logger *zap.Logger) interfaces.StoryGenerationRepository {
	return &pgStoryGenerationRepository{logger: logger.Named("PgStoryGenerationRepo")}
}

// Create сохраняет историю и связи с изображениями. Вызывается внутри транзакции.
func (r *pgStoryGenerationRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.StoryGeneration, imageIDs []int64) error {
	err := querier.QueryRow(ctx, createStoryGenerationQuery,
		story.Conflict, story.Setting, story.NarrativeStyle, story.Mood, story.GeneratedStory,
	).Scan(&story.ID, &story.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create story generation", zap.Error(err))
		return fmt.Errorf("failed to create story generation: %w", err)
	}

	for _, imageID := range imageIDs {
		if _, err := querier.Exec(ctx, attachStoryImageQuery, story.ID, imageID); err != nil {
			if isPgError(err, pgForeignKeyViolation) {
				return fmt.Errorf("%w: image analysis %d", models.ErrNotFound, imageID)
			}
			return fmt.Errorf("failed to attach image %d to story %d: %w", imageID, story.ID, err)
		}
	}
	r.logger.Info("Story generation stored", zap.Int64("id", story.ID), zap.Int("images", len(imageIDs)))
	return nil
}
