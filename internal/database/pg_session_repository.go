package database

import (
	"context"
	"fmt"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const sessionFields = `id, setting, mood, conflict, is_completed, current_segment_id, created_at, updated_at`

const (
	createSessionQuery = `
		INSERT INTO story_sessions (setting, mood, conflict)
		VALUES ($1, $2, $3)
		RETURNING ` + sessionFields
	attachCharacterQuery = `
		INSERT INTO story_session_characters (session_id, image_analysis_id, position)
		VALUES ($1, $2, $3)`
	listCharacterIDsQuery = `
		SELECT image_analysis_id FROM story_session_characters
		WHERE session_id = $1 ORDER BY position`
	getSessionQuery     = `SELECT ` + sessionFields + ` FROM story_sessions WHERE id = $1`
	lockSessionQuery    = getSessionQuery + ` FOR UPDATE`
	setCurrentQuery     = `UPDATE story_sessions SET current_segment_id = $2, updated_at = NOW() WHERE id = $1`
	markCompletedQuery  = `UPDATE story_sessions SET is_completed = TRUE, updated_at = NOW() WHERE id = $1`
	countChoicesQuery   = `SELECT COUNT(*) FROM player_choices WHERE session_id = $1`
	appendChoiceQuery   = `
		INSERT INTO player_choices (session_id, choice_id, sequence_number)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	listPlayerChoicesQ = `
		SELECT id, session_id, choice_id, sequence_number, created_at
		FROM player_choices WHERE session_id = $1 ORDER BY sequence_number`
)

type pgSessionRepository struct {
	logger *zap.Logger
}

func NewPgSessionRepository(logger *zap.Logger) interfaces.SessionRepository {
	return &pgSessionRepository{logger: logger.Named("PgSessionRepo")}
}

func (r *pgSessionRepository) Create(ctx context.Context, querier interfaces.DBTX, session *models.StorySession) error {
	if err := pgxscan.Get(ctx, querier, session, createSessionQuery, session.Setting, session.Mood, session.Conflict); err != nil {
		r.logger.Error("Failed to create story session", zap.Error(err))
		return fmt.Errorf("failed to create story session: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) AttachCharacters(ctx context.Context, querier interfaces.DBTX, sessionID int64, analysisIDs []int64) error {
	for i, id := range analysisIDs {
		if _, err := querier.Exec(ctx, attachCharacterQuery, sessionID, id, i+1); err != nil {
			if isPgError(err, pgForeignKeyViolation) {
				return fmt.Errorf("%w: image analysis %d", models.ErrNotFound, id)
			}
			return fmt.Errorf("failed to attach character %d to session %d: %w", id, sessionID, err)
		}
	}
	return nil
}

func (r *pgSessionRepository) ListCharacterIDs(ctx context.Context, querier interfaces.DBTX, sessionID int64) ([]int64, error) {
	ids := []int64{}
	if err := pgxscan.Select(ctx, querier, &ids, listCharacterIDsQuery, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list characters of session %d: %w", sessionID, err)
	}
	return ids, nil
}

func (r *pgSessionRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id int64) (*models.StorySession, error) {
	return r.getOne(ctx, querier, getSessionQuery, id)
}

func (r *pgSessionRepository) LockByID(ctx context.Context, querier interfaces.DBTX, id int64) (*models.StorySession, error) {
	return r.getOne(ctx, querier, lockSessionQuery, id)
}

func (r *pgSessionRepository) getOne(ctx context.Context, querier interfaces.DBTX, query string, id int64) (*models.StorySession, error) {
	var session models.StorySession
	if err := pgxscan.Get(ctx, querier, &session, query, id); err != nil {
		return nil, wrapNotFound(err, "story session", id)
	}
	return &session, nil
}

func (r *pgSessionRepository) SetCurrentSegment(ctx context.Context, querier interfaces.DBTX, sessionID, segmentID int64) error {
	tag, err := querier.Exec(ctx, setCurrentQuery, sessionID, segmentID)
	if err != nil {
		return fmt.Errorf("failed to set current segment of session %d: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: story session %d", models.ErrNotFound, sessionID)
	}
	return nil
}

func (r *pgSessionRepository) MarkCompleted(ctx context.Context, querier interfaces.DBTX, sessionID int64) error {
	tag, err := querier.Exec(ctx, markCompletedQuery, sessionID)
	if err != nil {
		return fmt.Errorf("failed to complete session %d: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: story session %d", models.ErrNotFound, sessionID)
	}
	return nil
}

func (r *pgSessionRepository) CountPlayerChoices(ctx context.Context, querier interfaces.DBTX, sessionID int64) (int, error) {
	var count int
	if err := querier.QueryRow(ctx, countChoicesQuery, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count player choices: %w", err)
	}
	return count, nil
}

func (r *pgSessionRepository) AppendPlayerChoice(ctx context.Context, querier interfaces.DBTX, choice *models.PlayerChoice) error {
	err := querier.QueryRow(ctx, appendChoiceQuery, choice.SessionID, choice.ChoiceID, choice.SequenceNumber).
		Scan(&choice.ID, &choice.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("player choice #%d already recorded for session %d: %w", choice.SequenceNumber, choice.SessionID, err)
		}
		return fmt.Errorf("failed to append player choice: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) ListPlayerChoices(ctx context.Context, querier interfaces.DBTX, sessionID int64) ([]models.PlayerChoice, error) {
	choices := []models.PlayerChoice{}
	if err := pgxscan.Select(ctx, querier, &choices, listPlayerChoicesQ, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list player choices: %w", err)
	}
	return choices, nil
}
