package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"artstory-server/internal/ai"
	"artstory-server/internal/models"

	"go.uber.org/zap"
)

// Заголовки браузера: часть хостингов отдаёт 403 клиентам без User-Agent.
var imageRequestHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Accept":          "image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.google.com/",
}

const defaultImageMIME = "image/jpeg"

// ArtworkAnalyzer описывает изображение по URL с помощью vision-модели.
type ArtworkAnalyzer interface {
	Analyze(ctx context.Context, imageURL string, instruction *models.AnalysisInstruction) (*models.AnalysisResult, error)
}

type artworkAnalyzerImpl struct {
	client     ai.Client
	httpClient *http.Client
	maxBytes   int64
	logger     *zap.Logger
}

// NewArtworkAnalyzer создаёт анализатор. Таймаут загрузки задаётся в httpClient.
func NewArtworkAnalyzer(client ai.Client, httpClient *http.Client, maxBytes int64, logger *zap.Logger) ArtworkAnalyzer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &artworkAnalyzerImpl{
		client:     client,
		httpClient: httpClient,
		maxBytes:   maxBytes,
		logger:     logger.Named("ArtworkAnalyzer"),
	}
}

func (a *artworkAnalyzerImpl) Analyze(ctx context.Context, imageURL string, instruction *models.AnalysisInstruction) (*models.AnalysisResult, error) {
	imageURL, err := ValidateImageURL(imageURL)
	if err != nil {
		analysesTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}
	if instruction == nil {
		return nil, fmt.Errorf("%w: instruction is required", models.ErrInvalidInput)
	}
	log := a.logger.With(zap.String("imageURL", imageURL), zap.Int64("instructionID", instruction.ID))

	img, err := a.fetch(ctx, imageURL)
	if err != nil {
		analysesTotal.WithLabelValues("fetch_error").Inc()
		log.Warn("Failed to fetch image", zap.Error(err))
		return nil, err
	}
	log.Debug("Image fetched", zap.String("mime", img.MIMEType), zap.Int("bytes", len(img.Data)))

	reply, usage, err := a.client.Chat(ctx, ai.ChatRequest{
		Operation:    ai.OperationAnalysis,
		SystemPrompt: instruction.SystemPrompt,
		UserPrompt:   instruction.UserPrompt,
		Image:        img,
		JSONMode:     true,
	})
	if err != nil {
		analysesTotal.WithLabelValues("upstream_error").Inc()
		return nil, err
	}

	result, err := ParseAnalysisReply(reply)
	if err != nil {
		analysesTotal.WithLabelValues("parse_error").Inc()
		log.Warn("Model reply has unexpected shape", zap.Error(err), zap.String("reply", truncate(reply, 500)))
		return nil, err
	}
	analysesTotal.WithLabelValues("success").Inc()
	log.Info("Artwork analyzed", zap.String("name", result.Name), zap.Int("totalTokens", usage.TotalTokens))
	return result, nil
}

// ValidateImageURL проверяет, что URL абсолютный http(s) с хостом. Сеть не трогает.
func ValidateImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: image_url is required", models.ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: image_url must be an absolute http(s) URL", models.ErrInvalidInput)
	}
	return raw, nil
}

func (a *artworkAnalyzerImpl) fetch(ctx context.Context, imageURL string) (*ai.Image, error) {
	start := time.Now()
	defer func() { imageFetchDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &models.FetchError{URL: imageURL, Message: err.Error()}
	}
	for k, v := range imageRequestHeaders {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &models.FetchError{URL: imageURL, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.FetchError{URL: imageURL, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	reader := io.Reader(resp.Body)
	if a.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, a.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &models.FetchError{URL: imageURL, StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if a.maxBytes > 0 && int64(len(data)) > a.maxBytes {
		return nil, &models.FetchError{URL: imageURL, StatusCode: resp.StatusCode, Message: fmt.Sprintf("image exceeds %d bytes", a.maxBytes)}
	}
	if len(data) == 0 {
		return nil, &models.FetchError{URL: imageURL, StatusCode: resp.StatusCode, Message: "empty response body"}
	}

	return &ai.Image{MIMEType: detectImageMIME(resp.Header.Get("Content-Type"), imageURL), Data: data}, nil
}

// detectImageMIME берёт тип из заголовка, иначе по расширению, иначе image/jpeg.
func detectImageMIME(contentType, imageURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	return defaultImageMIME
}

// ParseAnalysisReply проверяет форму ответа: style, name, story - непустые строки,
// character_traits - необязательный список строк.
func ParseAnalysisReply(reply string) (*models.AnalysisResult, error) {
	fields, err := decodeReplyObject(reply)
	if err != nil {
		return nil, err
	}

	var result models.AnalysisResult
	if result.Style, err = requireString(fields, "style"); err != nil {
		return nil, err
	}
	if result.Name, err = requireString(fields, "name"); err != nil {
		return nil, err
	}
	if result.Story, err = requireString(fields, "story"); err != nil {
		return nil, err
	}

	if raw, ok := fields["character_traits"]; ok && !isJSONNull(raw) {
		var traits []string
		if err := json.Unmarshal(raw, &traits); err != nil {
			return nil, fmt.Errorf("%w: character_traits must be a list of strings", models.ErrUpstreamParse)
		}
		result.CharacterTraits = traits
	}
	return &result, nil
}

func decodeReplyObject(reply string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(ai.ExtractJSONObject(reply)), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamParse, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: reply is not a JSON object", models.ErrUpstreamParse)
	}
	return fields, nil
}

func requireString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: missing key '%s'", models.ErrUpstreamParse, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: key '%s' must be a string", models.ErrUpstreamParse, key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: key '%s' is empty", models.ErrUpstreamParse, key)
	}
	return s, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Не режем посреди руны, иначе в логе будет невалидный UTF-8
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// isNotFound - короткая проверка для хендлеров и сервисов.
func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
