package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newImageServer(t *testing.T, hits *int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/dog.png":
			assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
			assert.Equal(t, "https://www.google.com/", r.Header.Get("Referer"))
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(pngBytes)
		case "/typed":
			w.Header().Set("Content-Type", "image/webp; charset=binary")
			_, _ = w.Write(pngBytes)
		case "/big.jpg":
			_, _ = w.Write(make([]byte, 1024))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

var testInstruction = &models.AnalysisInstruction{ID: 7, Name: "i", SystemPrompt: "system", UserPrompt: "user"}

func TestAnalyze_InvalidURLMakesNoNetworkCall(t *testing.T) {
	var hits int32
	newImageServer(t, &hits)
	client := mocks.NewMockAIClient(t)
	analyzer := service.NewArtworkAnalyzer(client, nil, 0, zap.NewNop())

	for _, raw := range []string{"not-a-url", "", "ftp://example.com/a.png", "http://", "/relative.png"} {
		_, err := analyzer.Analyze(context.Background(), raw, testInstruction)
		require.ErrorIs(t, err, models.ErrInvalidInput, raw)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
	client.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestAnalyze_Success(t *testing.T) {
	var hits int32
	srv := newImageServer(t, &hits)
	client := mocks.NewMockAIClient(t)
	client.On("Chat", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
		return req.Operation == ai.OperationAnalysis &&
			req.SystemPrompt == "system" && req.UserPrompt == "user" && req.JSONMode &&
			req.Image != nil && req.Image.MIMEType == "image/png" && len(req.Image.Data) == len(pngBytes)
	})).Return(`{"style":"Watercolor","name":"Biscuit","story":"A tale","character_traits":["loyal","brave"]}`, ai.Usage{TotalTokens: 10}, nil).Once()

	analyzer := service.NewArtworkAnalyzer(client, srv.Client(), 1<<20, zap.NewNop())
	result, err := analyzer.Analyze(context.Background(), srv.URL+"/dog.png", testInstruction)
	require.NoError(t, err)
	assert.Equal(t, "Biscuit", result.Name)
	assert.Equal(t, []string{"loyal", "brave"}, result.CharacterTraits)
}

func TestAnalyze_MIMEFromHeader(t *testing.T) {
	var hits int32
	srv := newImageServer(t, &hits)
	client := mocks.NewMockAIClient(t)
	client.On("Chat", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
		return req.Image.MIMEType == "image/webp"
	})).Return(`{"style":"s","name":"n","story":"t"}`, ai.Usage{}, nil).Once()

	analyzer := service.NewArtworkAnalyzer(client, srv.Client(), 0, zap.NewNop())
	_, err := analyzer.Analyze(context.Background(), srv.URL+"/typed", testInstruction)
	require.NoError(t, err)
}

func TestAnalyze_FetchErrors(t *testing.T) {
	var hits int32
	srv := newImageServer(t, &hits)
	client := mocks.NewMockAIClient(t)
	analyzer := service.NewArtworkAnalyzer(client, srv.Client(), 100, zap.NewNop())

	_, err := analyzer.Analyze(context.Background(), srv.URL+"/missing.png", testInstruction)
	require.ErrorIs(t, err, models.ErrFetchFailed)
	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)

	_, err = analyzer.Analyze(context.Background(), srv.URL+"/big.jpg", testInstruction)
	require.ErrorIs(t, err, models.ErrFetchFailed)

	client.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestAnalyze_UpstreamFailures(t *testing.T) {
	var hits int32
	srv := newImageServer(t, &hits)
	client := mocks.NewMockAIClient(t)
	analyzer := service.NewArtworkAnalyzer(client, srv.Client(), 0, zap.NewNop())

	client.On("Chat", mock.Anything, mock.Anything).Return("", ai.Usage{}, models.ErrUpstream).Once()
	_, err := analyzer.Analyze(context.Background(), srv.URL+"/dog.png", testInstruction)
	require.ErrorIs(t, err, models.ErrUpstream)

	client.On("Chat", mock.Anything, mock.Anything).Return(`{"style":"s","name":"n"}`, ai.Usage{}, nil).Once()
	_, err = analyzer.Analyze(context.Background(), srv.URL+"/dog.png", testInstruction)
	require.ErrorIs(t, err, models.ErrUpstreamParse)

	// Повторный вызов снова качает изображение: кэша нет
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestParseAnalysisReply(t *testing.T) {
	_, err := service.ParseAnalysisReply(`{"style":"s","name":"n","story":"t","character_traits":"brave"}`)
	require.ErrorIs(t, err, models.ErrUpstreamParse)

	_, err = service.ParseAnalysisReply(`{"style":"s","name":42,"story":"t"}`)
	require.ErrorIs(t, err, models.ErrUpstreamParse)

	_, err = service.ParseAnalysisReply(`[1,2]`)
	require.ErrorIs(t, err, models.ErrUpstreamParse)

	r, err := service.ParseAnalysisReply("```json\n{\"style\":\"s\",\"name\":\"n\",\"story\":\"t\",\"character_traits\":null}\n```")
	require.NoError(t, err)
	assert.Nil(t, r.CharacterTraits)
}

func TestCaption(t *testing.T) {
	caption, err := service.Caption(models.AnalysisResult{Name: "Biscuit", Story: "A tale", Style: "Watercolor"}, []string{"#a", "#b"})
	require.NoError(t, err)
	assert.Equal(t, "🎨 Meet Biscuit! 🐕\n\nA tale\n\nArt Style: Watercolor\n\n#a #b", caption)

	_, err = service.Caption(models.AnalysisResult{Name: "Biscuit", Style: "Watercolor"}, nil)
	require.ErrorIs(t, err, models.ErrMissingField)
}
