package database

import (
	"context"
	"fmt"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const (
	segmentFields = `id, session_id, content, sequence_number, parent_choice_id, created_at`
	choiceFields  = `id, segment_id, content, position, next_segment_id, created_at`
)

const (
	createSegmentQuery = `
		INSERT INTO story_segments (session_id, content, sequence_number, parent_choice_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	createChoiceQuery = `
		INSERT INTO story_choices (segment_id, content, position)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	getChoiceQuery   = `SELECT ` + choiceFields + ` FROM story_choices WHERE id = $1`
	lockChoiceQuery  = getChoiceQuery + ` FOR UPDATE`
	linkChoiceQuery  = `UPDATE story_choices SET next_segment_id = $2 WHERE id = $1`
	getSegmentQuery  = `SELECT ` + segmentFields + ` FROM story_segments WHERE id = $1`
	listSegmentsQ    = `SELECT ` + segmentFields + ` FROM story_segments WHERE session_id = $1 ORDER BY sequence_number, id`
	listChoicesQuery = `
		SELECT c.id, c.segment_id, c.content, c.position, c.next_segment_id, c.created_at
		FROM story_choices c
		JOIN story_segments s ON s.id = c.segment_id
		WHERE s.session_id = $1
		ORDER BY c.segment_id, c.position`
)

type pgSegmentRepository struct {
	logger *zap.Logger
}

func NewPgSegmentRepository(logger *zap.Logger) interfaces.SegmentRepository {
	return &pgSegmentRepository{logger: logger.Named("PgSegmentRepo")}
}

func (r *pgSegmentRepository) CreateSegment(ctx context.Context, querier interfaces.DBTX, segment *models.StorySegment) error {
	err := querier.QueryRow(ctx, createSegmentQuery,
		segment.SessionID, segment.Content, segment.SequenceNumber, segment.ParentChoiceID,
	).Scan(&segment.ID, &segment.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create story segment", zap.Int64("sessionID", segment.SessionID), zap.Error(err))
		return fmt.Errorf("failed to create story segment: %w", err)
	}
	return nil
}

func (r *pgSegmentRepository) CreateChoice(ctx context.Context, querier interfaces.DBTX, choice *models.StoryChoice) error {
	err := querier.QueryRow(ctx, createChoiceQuery, choice.SegmentID, choice.Content, choice.Position).
		Scan(&choice.ID, &choice.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create story choice: %w", err)
	}
	return nil
}

func (r *pgSegmentRepository) GetChoice(ctx context.Context, querier interfaces.DBTX, id int64) (*models.StoryChoice, error) {
	return r.getChoice(ctx, querier, getChoiceQuery, id)
}

func (r *pgSegmentRepository) LockChoice(ctx context.Context, querier interfaces.DBTX, id int64) (*models.StoryChoice, error) {
	return r.getChoice(ctx, querier, lockChoiceQuery, id)
}

func (r *pgSegmentRepository) getChoice(ctx context.Context, querier interfaces.DBTX, query string, id int64) (*models.StoryChoice, error) {
	var choice models.StoryChoice
	if err := pgxscan.Get(ctx, querier, &choice, query, id); err != nil {
		return nil, wrapNotFound(err, "story choice", id)
	}
	return &choice, nil
}

func (r *pgSegmentRepository) LinkChoice(ctx context.Context, querier interfaces.DBTX, choiceID, segmentID int64) error {
	tag, err := querier.Exec(ctx, linkChoiceQuery, choiceID, segmentID)
	if err != nil {
		return fmt.Errorf("failed to link choice %d to segment %d: %w", choiceID, segmentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: story choice %d", models.ErrNotFound, choiceID)
	}
	return nil
}

func (r *pgSegmentRepository) GetSegment(ctx context.Context, querier interfaces.DBTX, id int64) (*models.StorySegment, error) {
	var segment models.StorySegment
	if err := pgxscan.Get(ctx, querier, &segment, getSegmentQuery, id); err != nil {
		return nil, wrapNotFound(err, "story segment", id)
	}
	return &segment, nil
}

func (r *pgSegmentRepository) ListSegments(ctx context.Context, querier interfaces.DBTX, sessionID int64) ([]models.StorySegment, error) {
	segments := []models.StorySegment{}
	if err := pgxscan.Select(ctx, querier, &segments, listSegmentsQ, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list segments of session %d: %w", sessionID, err)
	}
	return segments, nil
}

func (r *pgSegmentRepository) ListChoices(ctx context.Context, querier interfaces.DBTX, sessionID int64) ([]models.StoryChoice, error) {
	choices := []models.StoryChoice{}
	if err := pgxscan.Select(ctx, querier, &choices, listChoicesQuery, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list choices of session %d: %w", sessionID, err)
	}
	return choices, nil
}
