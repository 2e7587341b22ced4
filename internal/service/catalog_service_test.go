package service_test

import (
	"context"
	"testing"

	"artstory-server/internal/models"
	"artstory-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCatalog(store *memStore) service.CatalogService {
	return service.NewCatalogService(nil, store, memInstructions{store}, memHashtags{store}, zap.NewNop())
}

func countDefaultInstructions(store *memStore) int {
	n := 0
	for _, i := range store.instructions {
		if i.IsDefault {
			n++
		}
	}
	return n
}

func TestCatalog_NewDefaultClearsPrevious(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := newCatalog(store)

	first := &models.AnalysisInstruction{Name: "first", SystemPrompt: "s", UserPrompt: "u", IsDefault: true}
	require.NoError(t, catalog.CreateInstruction(ctx, first))
	second := &models.AnalysisInstruction{Name: "second", SystemPrompt: "s", UserPrompt: "u", IsDefault: true}
	require.NoError(t, catalog.CreateInstruction(ctx, second))

	assert.Equal(t, 1, countDefaultInstructions(store))
	def, err := catalog.DefaultInstruction(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	// Обновление первой записи с флагом возвращает ей статус по умолчанию
	first.IsDefault = true
	first.Name = "first renamed"
	require.NoError(t, catalog.UpdateInstruction(ctx, first))
	assert.Equal(t, 1, countDefaultInstructions(store))
	def, err = catalog.DefaultInstruction(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first renamed", def.Name)
}

func TestCatalog_DeleteProtectsDefault(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := newCatalog(store)

	def := &models.HashtagCollection{Name: "default", Hashtags: []string{"#a"}, IsDefault: true}
	require.NoError(t, catalog.CreateHashtags(ctx, def))
	other := &models.HashtagCollection{Name: "other", Hashtags: []string{"#b"}}
	require.NoError(t, catalog.CreateHashtags(ctx, other))

	require.ErrorIs(t, catalog.DeleteHashtags(ctx, def.ID), models.ErrProtectedDefault)
	require.NoError(t, catalog.DeleteHashtags(ctx, other.ID))
	require.ErrorIs(t, catalog.DeleteHashtags(ctx, other.ID), models.ErrNotFound)

	list, err := catalog.ListHashtags(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, def.ID, list[0].ID)
}

func TestCatalog_DeleteInstruction(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := newCatalog(store)

	def := &models.AnalysisInstruction{Name: "d", SystemPrompt: "s", UserPrompt: "u", IsDefault: true}
	require.NoError(t, catalog.CreateInstruction(ctx, def))
	plain := &models.AnalysisInstruction{Name: "p", SystemPrompt: "s", UserPrompt: "u"}
	require.NoError(t, catalog.CreateInstruction(ctx, plain))

	require.ErrorIs(t, catalog.DeleteInstruction(ctx, def.ID), models.ErrProtectedDefault)
	require.NoError(t, catalog.DeleteInstruction(ctx, plain.ID))
	_, err := catalog.GetInstruction(ctx, plain.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCatalog_Validation(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(newMemStore())

	err := catalog.CreateInstruction(ctx, &models.AnalysisInstruction{Name: "x", SystemPrompt: " "})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	// Токены без '#' отбрасываются; пустой итог - ошибка
	err = catalog.CreateHashtags(ctx, &models.HashtagCollection{Name: "x", Hashtags: []string{"nohash", "#"}})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	c := &models.HashtagCollection{Name: "x", Hashtags: []string{" #one ", "two", "#three"}}
	require.NoError(t, catalog.CreateHashtags(ctx, c))
	assert.Equal(t, []string{"#one", "#three"}, c.Hashtags)
}

func TestCatalog_SeedDefaults(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	catalog := newCatalog(store)

	require.NoError(t, catalog.SeedDefaults(ctx))
	require.NoError(t, catalog.SeedDefaults(ctx))

	assert.Len(t, store.instructions, 1)
	assert.Len(t, store.hashtags, 1)

	instruction, err := catalog.DefaultInstruction(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Default Art Style Analysis", instruction.Name)

	hashtags, err := catalog.DefaultHashtags(ctx)
	require.NoError(t, err)
	assert.Len(t, hashtags.Hashtags, 15)
	assert.Equal(t, "#YorkshireTerrier", hashtags.Hashtags[0])
}
