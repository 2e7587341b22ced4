package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const analysisFields = `id, image_url, analysis_result, character_traits, created_at, instruction_id, hashtag_collection_id`

const (
	createAnalysisQuery = `
		INSERT INTO image_analyses (image_url, analysis_result, character_traits, instruction_id, hashtag_collection_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	getAnalysisQuery      = `SELECT ` + analysisFields + ` FROM image_analyses WHERE id = $1`
	getAnalysesByIDsQuery = `SELECT ` + analysisFields + ` FROM image_analyses WHERE id = ANY($1)`
	randomAnalysesQuery   = `
		SELECT ` + analysisFields + ` FROM image_analyses
		WHERE NOT (id = ANY($2))
		ORDER BY random()
		LIMIT $1`
)

// analysisRow - строка image_analyses; analysis_result читается как сырой JSONB.
type analysisRow struct {
	ID                  int64     `db:"id"`
	ImageURL            string    `db:"image_url"`
	AnalysisResult      []byte    `db:"analysis_result"`
	CharacterTraits     []string  `db:"character_traits"`
	CreatedAt           time.Time `db:"created_at"`
	InstructionID       *int64    `db:"instruction_id"`
	HashtagCollectionID *int64    `db:"hashtag_collection_id"`
}

func (row analysisRow) toModel() (models.ImageAnalysis, error) {
	a := models.ImageAnalysis{
		ID:                  row.ID,
		ImageURL:            row.ImageURL,
		CharacterTraits:     row.CharacterTraits,
		CreatedAt:           row.CreatedAt,
		InstructionID:       row.InstructionID,
		HashtagCollectionID: row.HashtagCollectionID,
	}
	if err := json.Unmarshal(row.AnalysisResult, &a.AnalysisResult); err != nil {
		return a, fmt.Errorf("failed to decode analysis_result of analysis %d: %w", row.ID, err)
	}
	return a, nil
}

type pgAnalysisRepository struct {
	logger *zap.Logger
}

func NewPgAnalysisRepository(logger *zap.Logger) interfaces.AnalysisRepository {
	return &pgAnalysisRepository{logger: logger.Named("PgAnalysisRepo")}
}

func (r *pgAnalysisRepository) Create(ctx context.Context, querier interfaces.DBTX, analysis *models.ImageAnalysis) error {
	result, err := json.Marshal(analysis.AnalysisResult)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}
	traits := analysis.CharacterTraits
	if traits == nil {
		traits = []string{}
	}

	err = querier.QueryRow(ctx, createAnalysisQuery,
		analysis.ImageURL, string(result), traits, analysis.InstructionID, analysis.HashtagCollectionID,
	).Scan(&analysis.ID, &analysis.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create image analysis", zap.String("imageURL", analysis.ImageURL), zap.Error(err))
		return fmt.Errorf("failed to create image analysis: %w", err)
	}
	analysis.CharacterTraits = traits
	r.logger.Info("Image analysis stored", zap.Int64("id", analysis.ID))
	return nil
}

func (r *pgAnalysisRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id int64) (*models.ImageAnalysis, error) {
	var row analysisRow
	if err := pgxscan.Get(ctx, querier, &row, getAnalysisQuery, id); err != nil {
		return nil, wrapNotFound(err, "image analysis", id)
	}
	a, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *pgAnalysisRepository) GetByIDs(ctx context.Context, querier interfaces.DBTX, ids []int64) ([]models.ImageAnalysis, error) {
	if len(ids) == 0 {
		return []models.ImageAnalysis{}, nil
	}
	var rows []analysisRow
	if err := pgxscan.Select(ctx, querier, &rows, getAnalysesByIDsQuery, ids); err != nil {
		return nil, fmt.Errorf("failed to get image analyses: %w", err)
	}

	byID := make(map[int64]analysisRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]models.ImageAnalysis, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: image analysis %d", models.ErrNotFound, id)
		}
		a, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *pgAnalysisRepository) Random(ctx context.Context, querier interfaces.DBTX, limit int, excludeIDs []int64) ([]models.ImageAnalysis, error) {
	if excludeIDs == nil {
		excludeIDs = []int64{}
	}
	var rows []analysisRow
	if err := pgxscan.Select(ctx, querier, &rows, randomAnalysesQuery, limit, excludeIDs); err != nil {
		return nil, fmt.Errorf("failed to select random image analyses: %w", err)
	}
	out := make([]models.ImageAnalysis, 0, len(rows))
	for _, row := range rows {
		a, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
