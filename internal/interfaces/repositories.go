package interfaces

import (
	"context"

	"artstory-server/internal/models"
)

// InstructionRepository хранит шаблоны промтов для анализа.
type InstructionRepository interface {
	Create(ctx context.Context, querier DBTX, instruction *models.AnalysisInstruction) error
	Update(ctx context.Context, querier DBTX, instruction *models.AnalysisInstruction) error
	GetByID(ctx context.Context, querier DBTX, id int64) (*models.AnalysisInstruction, error)
	// LockByID читает запись с блокировкой строки до конца транзакции.
	LockByID(ctx context.Context, querier DBTX, id int64) (*models.AnalysisInstruction, error)
	GetDefault(ctx context.Context, querier DBTX) (*models.AnalysisInstruction, error)
	List(ctx context.Context, querier DBTX) ([]models.AnalysisInstruction, error)
	Delete(ctx context.Context, querier DBTX, id int64) error
	// ClearDefault снимает флаг по умолчанию со всех записей, кроме exceptID.
	ClearDefault(ctx context.Context, querier DBTX, exceptID int64) error
}

// HashtagRepository хранит наборы хэштегов.
type HashtagRepository interface {
	Create(ctx context.Context, querier DBTX, collection *models.HashtagCollection) error
	GetByID(ctx context.Context, querier DBTX, id int64) (*models.HashtagCollection, error)
	LockByID(ctx context.Context, querier DBTX, id int64) (*models.HashtagCollection, error)
	GetDefault(ctx context.Context, querier DBTX) (*models.HashtagCollection, error)
	List(ctx context.Context, querier DBTX) ([]models.HashtagCollection, error)
	Delete(ctx context.Context, querier DBTX, id int64) error
	ClearDefault(ctx context.Context, querier DBTX, exceptID int64) error
}

// AnalysisRepository хранит результаты анализа изображений.
type AnalysisRepository interface {
	Create(ctx context.Context, querier DBTX, analysis *models.ImageAnalysis) error
	GetByID(ctx context.Context, querier DBTX, id int64) (*models.ImageAnalysis, error)
	// GetByIDs возвращает записи в порядке ids. Отсутствующий id - ErrNotFound.
	GetByIDs(ctx context.Context, querier DBTX, ids []int64) ([]models.ImageAnalysis, error)
	Random(ctx context.Context, querier DBTX, limit int, excludeIDs []int64) ([]models.ImageAnalysis, error)
}

// StoryGenerationRepository хранит разовые истории.
type StoryGenerationRepository interface {
	Create(ctx context.Context, querier DBTX, story *models.StoryGeneration, imageIDs []int64) error
}

// SessionRepository хранит сессии, выбранных персонажей и журнал выборов.
type SessionRepository interface {
	Create(ctx context.Context, querier DBTX, session *models.StorySession) error
	AttachCharacters(ctx context.Context, querier DBTX, sessionID int64, analysisIDs []int64) error
	ListCharacterIDs(ctx context.Context, querier DBTX, sessionID int64) ([]int64, error)
	GetByID(ctx context.Context, querier DBTX, id int64) (*models.StorySession, error)
	LockByID(ctx context.Context, querier DBTX, id int64) (*models.StorySession, error)
	SetCurrentSegment(ctx context.Context, querier DBTX, sessionID, segmentID int64) error
	MarkCompleted(ctx context.Context, querier DBTX, sessionID int64) error
	CountPlayerChoices(ctx context.Context, querier DBTX, sessionID int64) (int, error)
	AppendPlayerChoice(ctx context.Context, querier DBTX, choice *models.PlayerChoice) error
	ListPlayerChoices(ctx context.Context, querier DBTX, sessionID int64) ([]models.PlayerChoice, error)
}

// SegmentRepository хранит узлы дерева истории и выборы.
type SegmentRepository interface {
	CreateSegment(ctx context.Context, querier DBTX, segment *models.StorySegment) error
	CreateChoice(ctx context.Context, querier DBTX, choice *models.StoryChoice) error
	GetChoice(ctx context.Context, querier DBTX, id int64) (*models.StoryChoice, error)
	LockChoice(ctx context.Context, querier DBTX, id int64) (*models.StoryChoice, error)
	LinkChoice(ctx context.Context, querier DBTX, choiceID, segmentID int64) error
	GetSegment(ctx context.Context, querier DBTX, id int64) (*models.StorySegment, error)
	ListSegments(ctx context.Context, querier DBTX, sessionID int64) ([]models.StorySegment, error)
	ListChoices(ctx context.Context, querier DBTX, sessionID int64) ([]models.StoryChoice, error)
}
