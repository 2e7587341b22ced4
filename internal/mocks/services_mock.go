package mocks

import (
	"context"

	"artstory-server/internal/models"
	"artstory-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockCatalogService is a mock type for the service.CatalogService type
type MockCatalogService struct {
	mock.Mock
}

func (_m *MockCatalogService) CreateInstruction(ctx context.Context, instruction *models.AnalysisInstruction) error {
	return _m.Called(ctx, instruction).Error(0)
}

func (_m *MockCatalogService) UpdateInstruction(ctx context.Context, instruction *models.AnalysisInstruction) error {
	return _m.Called(ctx, instruction).Error(0)
}

func (_m *MockCatalogService) GetInstruction(ctx context.Context, id int64) (*models.AnalysisInstruction, error) {
	ret := _m.Called(ctx, id)
	var r0 *models.AnalysisInstruction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.AnalysisInstruction)
	}
	return r0, ret.Error(1)
}

func (_m *MockCatalogService) ListInstructions(ctx context.Context) ([]models.AnalysisInstruction, error) {
	ret := _m.Called(ctx)
	var r0 []models.AnalysisInstruction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.AnalysisInstruction)
	}
	return r0, ret.Error(1)
}

func (_m *MockCatalogService) DeleteInstruction(ctx context.Context, id int64) error {
	return _m.Called(ctx, id).Error(0)
}

func (_m *MockCatalogService) DefaultInstruction(ctx context.Context) (*models.AnalysisInstruction, error) {
	ret := _m.Called(ctx)
	var r0 *models.AnalysisInstruction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.AnalysisInstruction)
	}
	return r0, ret.Error(1)
}

func (_m *MockCatalogService) CreateHashtags(ctx context.Context, collection *models.HashtagCollection) error {
	return _m.Called(ctx, collection).Error(0)
}

func (_m *MockCatalogService) GetHashtags(ctx context.Context, id int64) (*models.HashtagCollection, error) {
	ret := _m.Called(ctx, id)
	var r0 *models.HashtagCollection
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.HashtagCollection)
	}
	return r0, ret.Error(1)
}

func (_m *MockCatalogService) ListHashtags(ctx context.Context) ([]models.HashtagCollection, error) {
	ret := _m.Called(ctx)
	var r0 []models.HashtagCollection
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.HashtagCollection)
	}
	return r0, ret.Error(1)
}

func (_m *MockCatalogService) DeleteHashtags(ctx context.Context, id int64) error {
	return _m.Called(ctx, id).Error(0)
}

func (_m *MockCatalogService) DefaultHashtags(ctx context.Context) (*models.HashtagCollection, error) {
	ret := _m.Called(ctx)
	var r0 *models.HashtagCollection
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.HashtagCollection)
	}
	return r0, ret.Error(1)
}

func (_m *MockCatalogService) SeedDefaults(ctx context.Context) error {
	return _m.Called(ctx).Error(0)
}

// MockAnalysisService is a mock type for the service.AnalysisService type
type MockAnalysisService struct {
	mock.Mock
}

func (_m *MockAnalysisService) Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error) {
	ret := _m.Called(ctx, req)
	var r0 *service.GenerateResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.GenerateResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockAnalysisService) AnalyzeAdHoc(ctx context.Context, imageURL string, instructionID *int64) (*models.AnalysisResult, error) {
	ret := _m.Called(ctx, imageURL, instructionID)
	var r0 *models.AnalysisResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.AnalysisResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockAnalysisService) RandomImages(ctx context.Context, limit int, excludeIDs []int64) ([]models.ImageAnalysis, error) {
	ret := _m.Called(ctx, limit, excludeIDs)
	var r0 []models.ImageAnalysis
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.ImageAnalysis)
	}
	return r0, ret.Error(1)
}

func (_m *MockAnalysisService) GetAnalysis(ctx context.Context, id int64) (*models.ImageAnalysis, error) {
	ret := _m.Called(ctx, id)
	var r0 *models.ImageAnalysis
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.ImageAnalysis)
	}
	return r0, ret.Error(1)
}

// MockStoryService is a mock type for the service.StoryService type
type MockStoryService struct {
	mock.Mock
}

func (_m *MockStoryService) Options() models.StoryOptions {
	return _m.Called().Get(0).(models.StoryOptions)
}

func (_m *MockStoryService) Generate(ctx context.Context, params models.StoryParams, character *models.CharacterInfo) (*models.StoryResult, error) {
	ret := _m.Called(ctx, params, character)
	var r0 *models.StoryResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockStoryService) GenerateAndStore(ctx context.Context, params models.StoryParams, selectedImageID *int64) (*models.StoryResult, error) {
	ret := _m.Called(ctx, params, selectedImageID)
	var r0 *models.StoryResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryResult)
	}
	return r0, ret.Error(1)
}

// MockStoryGraphService is a mock type for the service.StoryGraphService type
type MockStoryGraphService struct {
	mock.Mock
}

func (_m *MockStoryGraphService) Begin(ctx context.Context, req service.BeginRequest) (*models.StorySession, error) {
	ret := _m.Called(ctx, req)
	var r0 *models.StorySession
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StorySession)
	}
	return r0, ret.Error(1)
}

func (_m *MockStoryGraphService) Choose(ctx context.Context, choiceID int64) (int64, error) {
	ret := _m.Called(ctx, choiceID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *MockStoryGraphService) Regenerate(ctx context.Context, choiceID int64) (int64, error) {
	ret := _m.Called(ctx, choiceID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *MockStoryGraphService) Complete(ctx context.Context, sessionID int64) error {
	return _m.Called(ctx, sessionID).Error(0)
}

func (_m *MockStoryGraphService) GetSession(ctx context.Context, sessionID int64) (*service.SessionView, error) {
	ret := _m.Called(ctx, sessionID)
	var r0 *service.SessionView
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.SessionView)
	}
	return r0, ret.Error(1)
}

func (_m *MockStoryGraphService) GetGraph(ctx context.Context, sessionID int64) (*service.GraphView, error) {
	ret := _m.Called(ctx, sessionID)
	var r0 *service.GraphView
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.GraphView)
	}
	return r0, ret.Error(1)
}

var (
	_ service.CatalogService    = (*MockCatalogService)(nil)
	_ service.AnalysisService   = (*MockAnalysisService)(nil)
	_ service.StoryService      = (*MockStoryService)(nil)
	_ service.StoryGraphService = (*MockStoryGraphService)(nil)
)
