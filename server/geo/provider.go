package geo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a single attempt of the primary loader.
const DefaultLoadTimeout = 12 * time.Second

// Loader loads a map backend.
type Loader func(ctx context.Context) (Backend, error)

// Provider loads a map backend lazily and shares it. Concurrent callers share one in-flight
// load and the first successful load is kept. A failed load is not remembered, so a later call
// tries again.
type Provider struct {
	primary  Loader
	fallback Loader
	timeout  time.Duration
	logger   Logger

	group singleflight.Group

	mu      sync.RWMutex
	backend Backend
}

// NewProvider creates a Provider. When the primary loader fails or does not finish within
// timeout, the fallback loader is tried. fallback may be nil.
func NewProvider(primary, fallback Loader, timeout time.Duration, logger Logger) *Provider {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Provider{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger,
	}
}

// Get returns the shared backend, loading it if needed. ctx only bounds the wait of this caller;
// the shared load keeps going for the other callers.
func (p *Provider) Get(ctx context.Context) (Backend, error) {
	if b := p.loaded(); b != nil {
		return b, nil
	}

	ch := p.group.DoChan("backend", func() (any, error) {
		if b := p.loaded(); b != nil {
			return b, nil
		}
		b, err := p.load()
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.backend = b
		p.mu.Unlock()
		return b, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Backend), nil
	}
}

// Reset forgets the loaded backend.
func (p *Provider) Reset() {
	p.mu.Lock()
	p.backend = nil
	p.mu.Unlock()
}

func (p *Provider) loaded() Backend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backend
}

func (p *Provider) load() (Backend, error) {
	if p.primary == nil && p.fallback == nil {
		return nil, fmt.Errorf("%w: no loader configured", ErrBackendUnavailable)
	}

	var primaryErr error
	if p.primary != nil {
		b, err := p.attempt(p.primary)
		if err == nil {
			return b, nil
		}
		primaryErr = err
		if p.logger != nil {
			p.logger.Warn("Primary map backend load failed", "error", err.Error(), "fallback", p.fallback != nil)
		}
	}

	if p.fallback == nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, primaryErr)
	}

	b, err := p.attempt(p.fallback)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("Fallback map backend load failed", "error", err.Error())
		}
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return b, nil
}

// attempt runs loader and gives up once the timeout passes, even if the loader ignores its
// context.
func (p *Provider) attempt(loader Loader) (Backend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	type result struct {
		backend Backend
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := loader(ctx)
		ch <- result{backend: b, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load timed out after %s: %w", p.timeout, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.backend == nil {
			return nil, fmt.Errorf("loader returned no backend")
		}
		return r.backend, nil
	}
}
