package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ent0n29/storyteller/internal/observability"
)

type cacheEntry struct {
	voices    []Voice
	fetchedAt time.Time
}

// Catalog is the TTL cache in front of Provider.ListVoices. Filtering happens
// once per fetch; cached entries are served verbatim until they expire and
// are never served past their TTL.
type Catalog struct {
	provider Provider
	filter   LanguageFilter
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu    sync.Mutex
	entry *cacheEntry
	group singleflight.Group
}

type CatalogConfig struct {
	TTL       time.Duration
	Languages []string
	// FetchTimeout bounds a refetch that is shared between concurrent callers.
	FetchTimeout time.Duration
	Now          func() time.Time
}

func NewCatalog(provider Provider, cfg CatalogConfig, metrics *observability.Metrics, logger *zap.Logger) *Catalog {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		provider: provider,
		filter:   NewLanguageFilter(cfg.Languages),
		ttl:      cfg.TTL,
		timeout:  cfg.FetchTimeout,
		now:      cfg.Now,
		metrics:  metrics,
		logger:   logger,
	}
}

// Voices returns the filtered catalog, refetching synchronously when the
// cached entry is missing or expired.
func (c *Catalog) Voices(ctx context.Context) ([]Voice, error) {
	if voices, ok := c.cached(); ok {
		c.observe("hit")
		return voices, nil
	}

	ch := c.group.DoChan("voices", func() (any, error) {
		// Another caller may have refreshed while this one waited.
		if voices, ok := c.cached(); ok {
			return voices, nil
		}
		return c.refresh(ctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.observe("error")
			return nil, res.Err
		}
		c.observe("miss")
		return cloneVoices(res.Val.([]Voice)), nil
	}
}

func (c *Catalog) cached() ([]Voice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || c.ttl <= 0 {
		return nil, false
	}
	if c.now().Sub(c.entry.fetchedAt) >= c.ttl {
		c.entry = nil
		return nil, false
	}
	return cloneVoices(c.entry.voices), true
}

func (c *Catalog) refresh(ctx context.Context) ([]Voice, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	started := time.Now()
	all, err := c.provider.ListVoices(fetchCtx)
	if c.metrics != nil {
		c.metrics.ObserveProviderCall("tts", "list_voices", time.Since(started))
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.ProviderErrors.WithLabelValues("tts", ErrorCode(err)).Inc()
		}
		c.logger.Warn("voice catalog fetch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrVoiceFetchFailed, err)
	}

	filtered := c.filter.Apply(all)
	c.logger.Debug("voice catalog refreshed", zap.Int("fetched", len(all)), zap.Int("kept", len(filtered)))

	c.mu.Lock()
	c.entry = &cacheEntry{voices: filtered, fetchedAt: c.now()}
	c.mu.Unlock()
	return filtered, nil
}

func (c *Catalog) observe(result string) {
	if c.metrics != nil {
		c.metrics.VoiceCacheLookups.WithLabelValues(result).Inc()
	}
}

// Lookup reports whether id is in the current catalog.
func (c *Catalog) Lookup(ctx context.Context, id string) (Voice, bool, error) {
	voices, err := c.Voices(ctx)
	if err != nil {
		return Voice{}, false, err
	}
	for _, v := range voices {
		if v.ID == id {
			return v, true, nil
		}
	}
	return Voice{}, false, nil
}

// ForLanguage narrows an already-filtered list to one language without refetching.
func ForLanguage(voices []Voice, language string) []Voice {
	if language == "" {
		return voices
	}
	return NewLanguageFilter([]string{language}).Apply(voices)
}

func cloneVoices(in []Voice) []Voice {
	out := make([]Voice, len(in))
	copy(out, in)
	return out
}
