package service

import (
	"context"
	"fmt"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"go.uber.org/zap"
)

// GenerateRequest - входные данные /generate. nil означает запись по умолчанию.
type GenerateRequest struct {
	ImageURL            string
	InstructionID       *int64
	HashtagCollectionID *int64
}

type GenerateResult struct {
	Caption  string
	Analysis *models.ImageAnalysis
}

// AnalysisService связывает анализатор, подпись и хранилище анализов.
type AnalysisService interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	// AnalyzeAdHoc анализирует изображение без сохранения.
	AnalyzeAdHoc(ctx context.Context, imageURL string, instructionID *int64) (*models.AnalysisResult, error)
	RandomImages(ctx context.Context, limit int, excludeIDs []int64) ([]models.ImageAnalysis, error)
	GetAnalysis(ctx context.Context, id int64) (*models.ImageAnalysis, error)
}

type analysisServiceImpl struct {
	db       interfaces.DBTX
	analyzer ArtworkAnalyzer
	catalog  CatalogService
	analyses interfaces.AnalysisRepository
	logger   *zap.Logger
}

func NewAnalysisService(
	db interfaces.DBTX,
	analyzer ArtworkAnalyzer,
	catalog CatalogService,
	analyses interfaces.AnalysisRepository,
	logger *zap.Logger,
) AnalysisService {
	return &analysisServiceImpl{
		db:       db,
		analyzer: analyzer,
		catalog:  catalog,
		analyses: analyses,
		logger:   logger.Named("AnalysisService"),
	}
}

func (s *analysisServiceImpl) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	imageURL, err := ValidateImageURL(req.ImageURL)
	if err != nil {
		return nil, err
	}

	instruction, hashtags, err := s.loadCatalog(ctx, req.InstructionID, req.HashtagCollectionID)
	if err != nil {
		return nil, err
	}

	result, err := s.analyzer.Analyze(ctx, imageURL, instruction)
	if err != nil {
		return nil, err
	}

	caption, err := Caption(*result, hashtags.Hashtags)
	if err != nil {
		return nil, err
	}

	traits := result.CharacterTraits
	if traits == nil {
		traits = []string{}
	}
	analysis := &models.ImageAnalysis{
		ImageURL:            imageURL,
		AnalysisResult:      *result,
		CharacterTraits:     traits,
		InstructionID:       &instruction.ID,
		HashtagCollectionID: &hashtags.ID,
	}
	if err := s.analyses.Create(ctx, s.db, analysis); err != nil {
		return nil, fmt.Errorf("failed to store image analysis: %w", err)
	}
	s.logger.Info("Image analysis stored",
		zap.Int64("analysisID", analysis.ID),
		zap.Int64("instructionID", instruction.ID),
		zap.Int64("hashtagCollectionID", hashtags.ID),
	)
	return &GenerateResult{Caption: caption, Analysis: analysis}, nil
}

// loadCatalog загружает инструкцию и хэштеги. Неизвестный id - ошибка ввода.
func (s *analysisServiceImpl) loadCatalog(ctx context.Context, instructionID, hashtagsID *int64) (*models.AnalysisInstruction, *models.HashtagCollection, error) {
	var (
		instruction *models.AnalysisInstruction
		hashtags    *models.HashtagCollection
		err         error
	)
	if instructionID != nil {
		instruction, err = s.catalog.GetInstruction(ctx, *instructionID)
	} else {
		instruction, err = s.catalog.DefaultInstruction(ctx)
	}
	if err == nil {
		if hashtagsID != nil {
			hashtags, err = s.catalog.GetHashtags(ctx, *hashtagsID)
		} else {
			hashtags, err = s.catalog.DefaultHashtags(ctx)
		}
	}
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("%w: invalid instruction or hashtag collection", models.ErrInvalidInput)
		}
		return nil, nil, err
	}
	return instruction, hashtags, nil
}

func (s *analysisServiceImpl) AnalyzeAdHoc(ctx context.Context, imageURL string, instructionID *int64) (*models.AnalysisResult, error) {
	imageURL, err := ValidateImageURL(imageURL)
	if err != nil {
		return nil, err
	}
	instruction := &genericInstruction
	if instructionID != nil {
		instruction, err = s.catalog.GetInstruction(ctx, *instructionID)
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: invalid instruction ID", models.ErrInvalidInput)
		}
		if err != nil {
			return nil, err
		}
	}
	return s.analyzer.Analyze(ctx, imageURL, instruction)
}

func (s *analysisServiceImpl) RandomImages(ctx context.Context, limit int, excludeIDs []int64) ([]models.ImageAnalysis, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", models.ErrInvalidInput)
	}
	return s.analyses.Random(ctx, s.db, limit, excludeIDs)
}

func (s *analysisServiceImpl) GetAnalysis(ctx context.Context, id int64) (*models.ImageAnalysis, error) {
	return s.analyses.GetByID(ctx, s.db, id)
}
