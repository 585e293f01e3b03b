package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/embeddings/cybertron"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Kind selects the backend that produces vectors.
type Kind string

const (
	KindNone     Kind = "none"
	KindLocal    Kind = "local"
	KindOpenAI   Kind = "openai"
	KindGoogleAI Kind = "googleai"
)

// DefaultLocalModel is the sentence-transformers model run in-process.
const DefaultLocalModel = "sentence-transformers/all-MiniLM-L6-v2"

// Config describes how to build an Adapter.
type Config struct {
	Kind      Kind
	Model     string
	ModelsDir string // local only: where model weights are cached
	APIKey    string // openai / googleai
	CacheSize int    // 0 disables the vector cache
}

// Adapter wraps a langchaingo embedder and serves it as a Provider.
type Adapter struct {
	kind  Kind
	model string
	impl  embeddings.Embedder

	cacheMu sync.Mutex
	cache   *lru.Cache[string, []float32]
}

var _ Provider = (*Adapter)(nil)

// New builds the configured backend. KindNone yields Unavailable.
func New(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.Kind == "" || cfg.Kind == KindNone {
		return Unavailable{}, nil
	}

	impl, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := Wrap(cfg.Kind, cfg.Model, impl)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		if err := a.EnableCache(cfg.CacheSize); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(kind Kind, model string, impl embeddings.Embedder) (*Adapter, error) {
	if impl == nil {
		return nil, fmt.Errorf("embedder %q: implementation is required", kind)
	}
	return &Adapter{kind: kind, model: model, impl: impl}, nil
}

// EnableCache keeps up to size vectors keyed by input text.
func (a *Adapter) EnableCache(size int) error {
	if size <= 0 {
		return fmt.Errorf("embedder %q: cache size must be greater than zero", a.kind)
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return fmt.Errorf("embedder %q: init cache: %w", a.kind, err)
	}
	a.cacheMu.Lock()
	a.cache = cache
	a.cacheMu.Unlock()
	return nil
}

func (a *Adapter) Available() bool { return a != nil && a.impl != nil }

// Encode returns the vector for text, served from the cache when possible.
// Returned slices are copies and may be modified by the caller.
func (a *Adapter) Encode(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := a.lookup(key); ok {
		return v, nil
	}

	vector, err := a.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedder %q (%s): %w", a.kind, a.model, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedder %q (%s): empty vector", a.kind, a.model)
	}
	a.store(key, vector)
	return cloneVector(vector), nil
}

func (a *Adapter) lookup(key string) ([]float32, bool) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if a.cache == nil {
		return nil, false
	}
	v, ok := a.cache.Get(key)
	if !ok {
		return nil, false
	}
	return cloneVector(v), true
}

func (a *Adapter) store(key string, vector []float32) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if a.cache != nil {
		a.cache.Add(key, cloneVector(vector))
	}
}

func buildEmbedder(ctx context.Context, cfg Config) (embeddings.Embedder, error) {
	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch cfg.Kind {
	case KindLocal:
		client, err = newLocalClient(cfg)
	case KindOpenAI:
		client, err = newOpenAIClient(cfg)
	case KindGoogleAI:
		client, err = newGoogleAIClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("embedder: provider %q is not supported", cfg.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("embedder %q: init client: %w", cfg.Kind, err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("embedder %q: construct: %w", cfg.Kind, err)
	}
	return embedder, nil
}

func newLocalClient(cfg Config) (embeddings.EmbedderClient, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultLocalModel
	}
	opts := []cybertron.Option{cybertron.WithModel(model)}
	if cfg.ModelsDir != "" {
		opts = append(opts, cybertron.WithModelsDir(cfg.ModelsDir))
	}
	return cybertron.NewCybertron(opts...)
}

func newOpenAIClient(cfg Config) (embeddings.EmbedderClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
	}
	return openai.New(opts...)
}

func newGoogleAIClient(ctx context.Context, cfg Config) (embeddings.EmbedderClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	opts := []googleai.Option{googleai.WithAPIKey(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, googleai.WithDefaultEmbeddingModel(cfg.Model))
	}
	return googleai.New(ctx, opts...)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
