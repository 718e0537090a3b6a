package geo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
)

// fakeBackend records the maps it creates.
type fakeBackend struct {
	NewMapFn func(ctx context.Context, container string, opts MapOptions) (Map, error)

	mu   sync.Mutex
	maps []*fakeMap
}

func (b *fakeBackend) NewMap(ctx context.Context, container string, opts MapOptions) (Map, error) {
	if b.NewMapFn != nil {
		return b.NewMapFn(ctx, container, opts)
	}
	m := &fakeMap{container: container, opts: opts}
	b.mu.Lock()
	b.maps = append(b.maps, m)
	b.mu.Unlock()
	return m, nil
}

func (b *fakeBackend) created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.maps)
}

type fakeLayer string

func (l fakeLayer) ID() string { return string(l) }

type fakeMap struct {
	container string
	opts      MapOptions

	mu      sync.Mutex
	base    bool
	layers  map[string]Style
	drawn   int
	nextID  int
	center  *Coord
	zoom    int
	bounds  *orb.Bound
	views   int
	removed bool
	addErr  error
	baseErr error
}

func (m *fakeMap) AddBaseLayer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseErr != nil {
		return m.baseErr
	}
	m.base = true
	return nil
}

func (m *fakeMap) AddPoint(_ Coord, style Style) (Layer, error) {
	return m.add(style)
}

func (m *fakeMap) AddLine(_ []Coord, style Style) (Layer, error) {
	return m.add(style)
}

func (m *fakeMap) add(style Style) (Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return nil, m.addErr
	}
	if m.layers == nil {
		m.layers = make(map[string]Style)
	}
	m.nextID++
	m.drawn++
	id := fmt.Sprintf("layer-%d", m.nextID)
	m.layers[id] = style
	return fakeLayer(id), nil
}

func (m *fakeMap) RemoveLayer(l Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.layers, l.ID())
}

func (m *fakeMap) FitBounds(b orb.Bound, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bounds = &b
	m.center = nil
	m.zoom = 0
	m.views++
}

func (m *fakeMap) SetView(c Coord, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.center = &c
	m.zoom = zoom
	m.bounds = nil
	m.views++
}

func (m *fakeMap) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
	m.layers = nil
}

func (m *fakeMap) Snapshot() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{"container": m.container, "layers": len(m.layers)}
}

func (m *fakeMap) isRemoved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removed
}

func (m *fakeMap) layerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.layers)
}

// countingLoader returns a loader handing out backend and counting its calls.
func countingLoader(backend Backend, err error, calls *atomic.Int32) Loader {
	return func(context.Context) (Backend, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
}
