package embedding

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single remote embedding call.
const DefaultTimeout = 4 * time.Second

// ErrRateLimited is reported to the fallback hook when the limiter denies a remote call.
var ErrRateLimited = errors.New("remote embedding rate limited")

// FallbackHook observes fallbacks. err is the reason the remote path was not used.
type FallbackHook func(text string, err error)

// Provider resolves text to a vector and never fails: it tries the remote
// embedder and silently degrades to the pseudo-embedder. Callers cannot tell
// a remote vector from a fallback one by the return value.
type Provider struct {
	remote     Embedder
	fallback   *PseudoEmbedder
	cache      *EmbeddingCache
	limiter    *rate.Limiter
	timeout    time.Duration
	group      singleflight.Group
	logger     *zap.Logger
	onFallback FallbackHook
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithRemote sets the remote embedder. Without one every call uses the fallback.
func WithRemote(e Embedder) ProviderOption {
	return func(p *Provider) { p.remote = e }
}

// WithFallbackDimensions sets the pseudo-embedding dimension.
func WithFallbackDimensions(dim int) ProviderOption {
	return func(p *Provider) { p.fallback = NewPseudoEmbedder(dim) }
}

// WithCacheSize caches up to n remote embeddings. Zero disables caching.
func WithCacheSize(n int) ProviderOption {
	return func(p *Provider) { p.cache = NewEmbeddingCache(n) }
}

// WithRateLimit caps remote calls at r per second with the given burst.
// Calls over the limit use the fallback instead of waiting.
func WithRateLimit(r float64, burst int) ProviderOption {
	return func(p *Provider) {
		if r <= 0 {
			p.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithTimeout bounds each remote call. Non-positive values use DefaultTimeout.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d <= 0 {
			d = DefaultTimeout
		}
		p.timeout = d
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithFallbackHook registers a callback invoked whenever a remote attempt fails.
func WithFallbackHook(h FallbackHook) ProviderOption {
	return func(p *Provider) { p.onFallback = h }
}

// NewProvider creates a provider. With no options it is fallback-only.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		fallback: NewPseudoEmbedder(DefaultFallbackDimensions),
		cache:    NewEmbeddingCache(0),
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HasRemote reports whether a remote embedder is configured.
func (p *Provider) HasRemote() bool {
	return p.remote != nil
}

// FallbackDimensions returns the pseudo-embedding dimension.
func (p *Provider) FallbackDimensions() int {
	return p.fallback.Dimensions()
}

// GetEmbedding returns the embedding for text.
func (p *Provider) GetEmbedding(ctx context.Context, text string) []float64 {
	if p.remote == nil {
		return p.fallback.Vector(text)
	}
	if cached, ok := p.cache.Get(text); ok {
		return append([]float64(nil), cached...)
	}
	if p.limiter != nil && !p.limiter.Allow() {
		p.reportFallback(text, ErrRateLimited)
		return p.fallback.Vector(text)
	}

	v, err, _ := p.group.Do(text, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		emb, err := p.remote.Embed(callCtx, text)
		if err != nil {
			return nil, err
		}
		p.cache.Set(text, emb)
		return emb, nil
	})
	if err != nil {
		p.reportFallback(text, err)
		return p.fallback.Vector(text)
	}
	return append([]float64(nil), v.([]float64)...)
}

// Embed implements Embedder. The error is always nil.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	return p.GetEmbedding(ctx, text), nil
}

func (p *Provider) reportFallback(text string, err error) {
	p.logger.Warn("remote embedding unavailable, using fallback",
		zap.Int("text_len", len(text)),
		zap.Error(err),
	)
	if p.onFallback != nil {
		p.onFallback(text, err)
	}
}
