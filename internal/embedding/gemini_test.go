package embedding

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"
)

type fakeEmbedResponse struct {
	resp *genai.EmbedContentResponse
	err  error
}

type fakeEmbedder struct {
	mu      sync.Mutex
	queue   []fakeEmbedResponse
	batches [][]string
	configs []*genai.EmbedContentConfig
}

func (f *fakeEmbedder) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	texts := make([]string, 0, len(contents))
	for _, c := range contents {
		texts = append(texts, c.Parts[0].Text)
	}
	f.batches = append(f.batches, texts)
	f.configs = append(f.configs, config)

	if len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		if next.err != nil || next.resp != nil {
			return next.resp, next.err
		}
	}

	resp := &genai.EmbedContentResponse{}
	for i := range texts {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: []float32{float32(len(texts[i])), 1}})
	}
	return resp, nil
}

func newTestProvider(embedder contentEmbedder, logger *zap.Logger) *GeminiProvider {
	p := newGeminiProvider(embedder, "", logger)
	p.BaseDelay = 0
	return p
}

func TestGeminiProviderBatches(t *testing.T) {
	fake := &fakeEmbedder{}
	p := newTestProvider(fake, nil)
	p.BatchSize = 2

	vectors, err := p.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.batches) != 2 || len(fake.batches[0]) != 2 || len(fake.batches[1]) != 1 {
		t.Fatalf("unexpected batches: %v", fake.batches)
	}
	if len(vectors) != 3 || vectors[2][0] != 3 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if fake.configs[0].TaskType != taskType {
		t.Fatalf("expected task type %q, got %q", taskType, fake.configs[0].TaskType)
	}
	if p.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", p.Model())
	}
}

func TestGeminiProviderRetriesOnTemporaryError(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	fake := &fakeEmbedder{queue: []fakeEmbedResponse{
		{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}},
		{err: &genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
	}}
	p := newTestProvider(fake, zap.New(core))

	vectors, err := p.Embed(context.Background(), []string{"goal"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected one vector, got %d", len(vectors))
	}
	if len(fake.batches) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(fake.batches))
	}
	if got := observed.FilterMessage("temporary embedding error, retrying").Len(); got != 2 {
		t.Fatalf("expected 2 retry logs, got %d", got)
	}
}

func TestGeminiProviderGivesUp(t *testing.T) {
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable}
	fake := &fakeEmbedder{queue: []fakeEmbedResponse{{err: tempErr}, {err: tempErr}, {err: tempErr}, {err: tempErr}}}
	p := newTestProvider(fake, nil)

	_, err := p.Embed(context.Background(), []string{"goal"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(fake.batches) != defaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", defaultMaxAttempts, len(fake.batches))
	}
}

func TestGeminiProviderDoesNotRetryPermanentError(t *testing.T) {
	fake := &fakeEmbedder{queue: []fakeEmbedResponse{{err: genai.APIError{Code: http.StatusBadRequest}}}}
	p := newTestProvider(fake, nil)

	_, err := p.Embed(context.Background(), []string{"goal"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(fake.batches) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.batches))
	}
}

func TestGeminiProviderRejectsShortResponse(t *testing.T) {
	fake := &fakeEmbedder{queue: []fakeEmbedResponse{{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}},
	}}}}
	p := newTestProvider(fake, nil)

	_, err := p.Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGeminiProviderStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeEmbedder{queue: []fakeEmbedResponse{{err: context.Canceled}}}
	p := newTestProvider(fake, nil)

	_, err := p.Embed(ctx, []string{"goal"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
		ok   bool
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1, true},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, true},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, true},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0, false},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Cosine(tc.a, tc.b)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestGeminiProviderTruncatesLoggedText(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	p := newTestProvider(&fakeEmbedder{}, zap.New(core))
	p.MaxLogLength = 5

	if _, err := p.Embed(context.Background(), []string{"mentoring on distributed systems"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("embedding batch").All()
	if len(entries) != 1 {
		t.Fatalf("expected one batch log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["first"]; got != "mento..." {
		t.Fatalf("expected truncated sample, got %v", got)
	}
}
