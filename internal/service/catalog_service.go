package service

import (
	"context"
	"errors"
	"fmt"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"go.uber.org/zap"
)

// CatalogService управляет инструкциями анализа и наборами хэштегов.
// Флаг по умолчанию у каждого вида записей не больше чем у одной строки.
type CatalogService interface {
	CreateInstruction(ctx context.Context, instruction *models.AnalysisInstruction) error
	UpdateInstruction(ctx context.Context, instruction *models.AnalysisInstruction) error
	GetInstruction(ctx context.Context, id int64) (*models.AnalysisInstruction, error)
	ListInstructions(ctx context.Context) ([]models.AnalysisInstruction, error)
	DeleteInstruction(ctx context.Context, id int64) error
	DefaultInstruction(ctx context.Context) (*models.AnalysisInstruction, error)

	CreateHashtags(ctx context.Context, collection *models.HashtagCollection) error
	GetHashtags(ctx context.Context, id int64) (*models.HashtagCollection, error)
	ListHashtags(ctx context.Context) ([]models.HashtagCollection, error)
	DeleteHashtags(ctx context.Context, id int64) error
	DefaultHashtags(ctx context.Context) (*models.HashtagCollection, error)

	// SeedDefaults создаёт встроенные записи, если записи по умолчанию ещё нет.
	SeedDefaults(ctx context.Context) error
}

type catalogServiceImpl struct {
	db           interfaces.DBTX
	tx           interfaces.TxManager
	instructions interfaces.InstructionRepository
	hashtags     interfaces.HashtagRepository
	logger       *zap.Logger
}

func NewCatalogService(
	db interfaces.DBTX,
	tx interfaces.TxManager,
	instructions interfaces.InstructionRepository,
	hashtags interfaces.HashtagRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogServiceImpl{
		db:           db,
		tx:           tx,
		instructions: instructions,
		hashtags:     hashtags,
		logger:       logger.Named("CatalogService"),
	}
}

func (s *catalogServiceImpl) CreateInstruction(ctx context.Context, instruction *models.AnalysisInstruction) error {
	if err := instruction.Validate(); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		// Сначала снимаем старый флаг, иначе сработает уникальный индекс
		if instruction.IsDefault {
			if err := s.instructions.ClearDefault(ctx, tx, 0); err != nil {
				return err
			}
		}
		return s.instructions.Create(ctx, tx, instruction)
	})
}

func (s *catalogServiceImpl) UpdateInstruction(ctx context.Context, instruction *models.AnalysisInstruction) error {
	if err := instruction.Validate(); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		current, err := s.instructions.LockByID(ctx, tx, instruction.ID)
		if err != nil {
			return err
		}
		if instruction.IsDefault {
			if err := s.instructions.ClearDefault(ctx, tx, instruction.ID); err != nil {
				return err
			}
		}
		if err := s.instructions.Update(ctx, tx, instruction); err != nil {
			return err
		}
		instruction.CreatedAt = current.CreatedAt
		return nil
	})
}

func (s *catalogServiceImpl) GetInstruction(ctx context.Context, id int64) (*models.AnalysisInstruction, error) {
	return s.instructions.GetByID(ctx, s.db, id)
}

func (s *catalogServiceImpl) ListInstructions(ctx context.Context) ([]models.AnalysisInstruction, error) {
	return s.instructions.List(ctx, s.db)
}

func (s *catalogServiceImpl) DeleteInstruction(ctx context.Context, id int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		instruction, err := s.instructions.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if instruction.IsDefault {
			return fmt.Errorf("%w: instruction %d", models.ErrProtectedDefault, id)
		}
		return s.instructions.Delete(ctx, tx, id)
	})
}

func (s *catalogServiceImpl) DefaultInstruction(ctx context.Context) (*models.AnalysisInstruction, error) {
	return s.instructions.GetDefault(ctx, s.db)
}

func (s *catalogServiceImpl) CreateHashtags(ctx context.Context, collection *models.HashtagCollection) error {
	collection.Hashtags = models.NormalizeHashtags(collection.Hashtags)
	if err := collection.Validate(); err != nil {
		return err
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if collection.IsDefault {
			if err := s.hashtags.ClearDefault(ctx, tx, 0); err != nil {
				return err
			}
		}
		return s.hashtags.Create(ctx, tx, collection)
	})
}

func (s *catalogServiceImpl) GetHashtags(ctx context.Context, id int64) (*models.HashtagCollection, error) {
	return s.hashtags.GetByID(ctx, s.db, id)
}

func (s *catalogServiceImpl) ListHashtags(ctx context.Context) ([]models.HashtagCollection, error) {
	return s.hashtags.List(ctx, s.db)
}

func (s *catalogServiceImpl) DeleteHashtags(ctx context.Context, id int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		collection, err := s.hashtags.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if collection.IsDefault {
			return fmt.Errorf("%w: hashtag collection %d", models.ErrProtectedDefault, id)
		}
		return s.hashtags.Delete(ctx, tx, id)
	})
}

func (s *catalogServiceImpl) DefaultHashtags(ctx context.Context) (*models.HashtagCollection, error) {
	return s.hashtags.GetDefault(ctx, s.db)
}

func (s *catalogServiceImpl) SeedDefaults(ctx context.Context) error {
	_, err := s.DefaultInstruction(ctx)
	switch {
	case errors.Is(err, models.ErrNotFound):
		instruction := &models.AnalysisInstruction{
			Name:         defaultInstructionName,
			SystemPrompt: defaultInstructionSystemPrompt,
			UserPrompt:   defaultInstructionUserPrompt,
			IsDefault:    true,
		}
		if err := s.CreateInstruction(ctx, instruction); err != nil {
			return fmt.Errorf("failed to seed default instruction: %w", err)
		}
		s.logger.Info("Seeded default instruction", zap.Int64("id", instruction.ID))
	case err != nil:
		return fmt.Errorf("failed to check default instruction: %w", err)
	}

	_, err = s.DefaultHashtags(ctx)
	switch {
	case errors.Is(err, models.ErrNotFound):
		collection := &models.HashtagCollection{
			Name:      defaultHashtagsName,
			Hashtags:  append([]string(nil), defaultHashtags...),
			IsDefault: true,
		}
		if err := s.CreateHashtags(ctx, collection); err != nil {
			return fmt.Errorf("failed to seed default hashtags: %w", err)
		}
		s.logger.Info("Seeded default hashtag collection", zap.Int64("id", collection.ID))
	case err != nil:
		return fmt.Errorf("failed to check default hashtags: %w", err)
	}
	return nil
}
