package service_test

import (
	"context"
	"testing"

	"artstory-server/internal/ai"
	"artstory-server/internal/mocks"
	"artstory-server/internal/models"
	"artstory-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type analysisFixture struct {
	store   *memStore
	client  *mocks.MockAIClient
	catalog service.CatalogService
	svc     service.AnalysisService
	imgURL  string
}

func newAnalysisFixture(t *testing.T) *analysisFixture {
	var hits int32
	srv := newImageServer(t, &hits)
	store := newMemStore()
	client := mocks.NewMockAIClient(t)
	catalog := newCatalog(store)
	analyzer := service.NewArtworkAnalyzer(client, srv.Client(), 0, zap.NewNop())
	return &analysisFixture{
		store:   store,
		client:  client,
		catalog: catalog,
		svc:     service.NewAnalysisService(nil, analyzer, catalog, memAnalyses{store}, zap.NewNop()),
		imgURL:  srv.URL + "/dog.png",
	}
}

func TestGenerate_UsesDefaultsAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)

	instruction := &models.AnalysisInstruction{Name: "I", SystemPrompt: "sys-I", UserPrompt: "user-I", IsDefault: true}
	require.NoError(t, f.catalog.CreateInstruction(ctx, instruction))
	hashtags := &models.HashtagCollection{Name: "H", Hashtags: []string{"#yorkie", "#art"}, IsDefault: true}
	require.NoError(t, f.catalog.CreateHashtags(ctx, hashtags))

	f.client.On("Chat", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
		return req.SystemPrompt == "sys-I" && req.UserPrompt == "user-I"
	})).Return(`{"style":"Pop art","name":"Biscuit","story":"Biscuit saves the farm"}`, ai.Usage{}, nil).Once()

	result, err := f.svc.Generate(ctx, service.GenerateRequest{ImageURL: f.imgURL})
	require.NoError(t, err)
	assert.Equal(t, "🎨 Meet Biscuit! 🐕\n\nBiscuit saves the farm\n\nArt Style: Pop art\n\n#yorkie #art", result.Caption)

	stored, err := memAnalyses{f.store}.GetByID(ctx, nil, result.Analysis.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.InstructionID)
	require.NotNil(t, stored.HashtagCollectionID)
	assert.Equal(t, instruction.ID, *stored.InstructionID)
	assert.Equal(t, hashtags.ID, *stored.HashtagCollectionID)
	assert.Equal(t, []string{}, stored.CharacterTraits)
	assert.Equal(t, f.imgURL, stored.ImageURL)
}

func TestGenerate_UnknownInstructionIsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)
	require.NoError(t, f.catalog.SeedDefaults(ctx))

	missing := int64(404)
	_, err := f.svc.Generate(ctx, service.GenerateRequest{ImageURL: f.imgURL, InstructionID: &missing})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.Generate(ctx, service.GenerateRequest{ImageURL: f.imgURL, HashtagCollectionID: &missing})
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Empty(t, f.store.analyses)
}

func TestAnalyzeAdHoc_GenericInstruction(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)

	f.client.On("Chat", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
		return req.UserPrompt == "Please analyze this artwork:"
	})).Return(`{"style":"s","name":"n","story":"t","character_traits":["a","b","c"]}`, ai.Usage{}, nil).Once()

	result, err := f.svc.AnalyzeAdHoc(ctx, f.imgURL, nil)
	require.NoError(t, err)
	assert.Len(t, result.CharacterTraits, 3)
	assert.Empty(t, f.store.analyses)
}

func TestAnalyzeAdHoc_UnknownInstructionIsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)

	missing := int64(404)
	_, err := f.svc.AnalyzeAdHoc(ctx, f.imgURL, &missing)
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestRandomImages_Excludes(t *testing.T) {
	ctx := context.Background()
	f := newAnalysisFixture(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, memAnalyses{f.store}.Create(ctx, nil, &models.ImageAnalysis{
			ImageURL: "https://x/" + name, AnalysisResult: models.AnalysisResult{Name: name, Style: "s", Story: "t"},
		}))
	}

	images, err := f.svc.RandomImages(ctx, 3, nil)
	require.NoError(t, err)
	assert.Len(t, images, 3)

	rest, err := f.svc.RandomImages(ctx, 1, []int64{images[0].ID, images[1].ID, images[2].ID})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "d", rest[0].AnalysisResult.Name)
}
