package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/mentor-match/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel       = "gemini-embedding-001"
	defaultBatchSize   = 100
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
	defaultMaxLogLen   = 120
	taskType           = "SEMANTIC_SIMILARITY"
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiProvider embeds texts with the Gemini embedding API.
type GeminiProvider struct {
	embedder  contentEmbedder
	modelName string
	logger    *zap.Logger

	BatchSize    int
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	// MaxLogLength limits the sample text written to debug logs.
	MaxLogLength int
}

// NewGeminiProvider creates a provider configured for the Gemini API backend.
func NewGeminiProvider(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGeminiProvider(client.Models, model, logger), nil
}

func newGeminiProvider(embedder contentEmbedder, model string, logger *zap.Logger) *GeminiProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &GeminiProvider{
		embedder:     embedder,
		modelName:    model,
		logger:       logger,
		BatchSize:    defaultBatchSize,
		MaxAttempts:  defaultMaxAttempts,
		BaseDelay:    defaultBaseDelay,
		MaxDelay:     defaultMaxDelay,
		MaxLogLength: defaultMaxLogLen,
	}
}

func (p *GeminiProvider) Model() string {
	if p == nil {
		return ""
	}
	return p.modelName
}

// Embed splits texts into batches and embeds each one, retrying temporary API errors with bounded backoff.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p == nil || p.embedder == nil {
		return nil, fmt.Errorf("%w: gemini provider is not initialized", ErrUnavailable)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	size := p.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))

		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (p *GeminiProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		}
	}
	cfg := &genai.EmbedContentConfig{TaskType: taskType}

	attempts := max(p.MaxAttempts, 1)

	p.logger.Debug("embedding batch",
		zap.String("model", p.modelName),
		zap.Int("size", len(texts)),
		zap.String("first", utils.TruncateForLog(texts[0], p.MaxLogLength)),
	)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := p.embedder.EmbedContent(ctx, p.modelName, contents, cfg)
		if err == nil {
			return vectorsFrom(resp, len(texts))
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTemporary(err) || attempt == attempts {
			break
		}

		delay := utils.Backoff(attempt, p.BaseDelay, p.MaxDelay)
		p.logger.Warn("temporary embedding error, retrying",
			zap.String("model", p.modelName),
			zap.Int("attempt", attempt),
			zap.Int("batch", len(texts)),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := utils.WaitFor(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: embed content: %w", ErrUnavailable, lastErr)
}

func vectorsFrom(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrUnavailable, want, got)
	}

	vectors := make([][]float32, want)
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", ErrUnavailable, i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return temporaryCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return temporaryCode(apiErrPtr.Code)
	}
	return false
}

func temporaryCode(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
