package database

import (
	"context"
	"fmt"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const hashtagFields = `id, name, hashtags, is_default, created_at`

const (
	createHashtagsQuery     = `INSERT INTO hashtag_collections (name, hashtags, is_default) VALUES ($1, $2, $3) RETURNING id, created_at`
	getHashtagsQuery        = `SELECT ` + hashtagFields + ` FROM hashtag_collections WHERE id = $1`
	lockHashtagsQuery       = getHashtagsQuery + ` FOR UPDATE`
	getDefaultHashtagsQuery = `SELECT ` + hashtagFields + ` FROM hashtag_collections WHERE is_default LIMIT 1`
	listHashtagsQuery       = `SELECT ` + hashtagFields + ` FROM hashtag_collections ORDER BY id`
	deleteHashtagsQuery     = `DELETE FROM hashtag_collections WHERE id = $1`
	clearDefaultHashtagsQ   = `UPDATE hashtag_collections SET is_default = FALSE WHERE is_default AND id <> $1`
)

type pgHashtagRepository struct {
	logger *zap.Logger
}

func NewPgHashtagRepository(logger *zap.Logger) interfaces.HashtagRepository {
	return &pgHashtagRepository{logger: logger.Named("PgHashtagRepo")}
}

func (r *pgHashtagRepository) Create(ctx context.Context, querier interfaces.DBTX, collection *models.HashtagCollection) error {
	err := querier.QueryRow(ctx, createHashtagsQuery, collection.Name, collection.Hashtags, collection.IsDefault).
		Scan(&collection.ID, &collection.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("%w: another default hashtag collection exists", models.ErrConflict)
		}
		r.logger.Error("Failed to create hashtag collection", zap.String("name", collection.Name), zap.Error(err))
		return fmt.Errorf("failed to create hashtag collection: %w", err)
	}
	r.logger.Info("Hashtag collection created", zap.Int64("id", collection.ID), zap.Int("count", len(collection.Hashtags)))
	return nil
}

func (r *pgHashtagRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id int64) (*models.HashtagCollection, error) {
	return r.getOne(ctx, querier, getHashtagsQuery, id)
}

func (r *pgHashtagRepository) LockByID(ctx context.Context, querier interfaces.DBTX, id int64) (*models.HashtagCollection, error) {
	return r.getOne(ctx, querier, lockHashtagsQuery, id)
}

func (r *pgHashtagRepository) getOne(ctx context.Context, querier interfaces.DBTX, query string, id int64) (*models.HashtagCollection, error) {
	var collection models.HashtagCollection
	if err := pgxscan.Get(ctx, querier, &collection, query, id); err != nil {
		return nil, wrapNotFound(err, "hashtag collection", id)
	}
	return &collection, nil
}

func (r *pgHashtagRepository) GetDefault(ctx context.Context, querier interfaces.DBTX) (*models.HashtagCollection, error) {
	var collection models.HashtagCollection
	if err := pgxscan.Get(ctx, querier, &collection, getDefaultHashtagsQuery); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("%w: default hashtag collection", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get default hashtag collection: %w", err)
	}
	return &collection, nil
}

func (r *pgHashtagRepository) List(ctx context.Context, querier interfaces.DBTX) ([]models.HashtagCollection, error) {
	collections := []models.HashtagCollection{}
	if err := pgxscan.Select(ctx, querier, &collections, listHashtagsQuery); err != nil {
		r.logger.Error("Failed to list hashtag collections", zap.Error(err))
		return nil, fmt.Errorf("failed to list hashtag collections: %w", err)
	}
	return collections, nil
}

func (r *pgHashtagRepository) Delete(ctx context.Context, querier interfaces.DBTX, id int64) error {
	tag, err := querier.Exec(ctx, deleteHashtagsQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete hashtag collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: hashtag collection %d", models.ErrNotFound, id)
	}
	r.logger.Info("Hashtag collection deleted", zap.Int64("id", id))
	return nil
}

func (r *pgHashtagRepository) ClearDefault(ctx context.Context, querier interfaces.DBTX, exceptID int64) error {
	if _, err := querier.Exec(ctx, clearDefaultHashtagsQ, exceptID); err != nil {
		return fmt.Errorf("failed to clear default hashtag collection: %w", err)
	}
	return nil
}
