package geo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPointZoom is the zoom used for a single point when no zoom is configured.
	DefaultPointZoom = 14

	fitPadding     = 16
	maxConcurrency = 4
)

// Target is a map a rendered item wants.
type Target struct {
	Key       string
	Container string
	Coords    []Coord
	Color     string
	Popup     string
}

// Settings apply to every map of a card.
type Settings struct {
	// Zoom is a fixed zoom level. 0 fits the view to the geometry.
	Zoom    int
	Options MapOptions
}

// Status is the outcome of attaching one map.
type Status struct {
	Key   string `json:"key"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
	Scene any    `json:"scene,omitempty"`
}

// Adapter keeps the map instances of one card in line with the items that are rendered.
type Adapter struct {
	provider *Provider
	registry *Registry
	logger   Logger

	// syncMu serializes Sync calls.
	syncMu sync.Mutex

	// mu guards wanted and closed. Instances are registered while holding it.
	mu     sync.Mutex
	wanted map[string]bool
	closed bool
}

// NewAdapter creates an Adapter drawing on the backend of provider.
func NewAdapter(provider *Provider, logger Logger) *Adapter {
	return &Adapter{
		provider: provider,
		registry: NewRegistry(),
		logger:   logger,
		wanted:   make(map[string]bool),
	}
}

// Registry returns the instance registry of the adapter.
func (a *Adapter) Registry() *Registry {
	return a.registry
}

// Sync attaches maps for targets and releases every instance that is no longer wanted. Targets
// without coordinates are skipped; when two targets share a key the first one wins. A failure
// is reported per target and leaves the others unaffected.
func (a *Adapter) Sync(ctx context.Context, targets []Target, settings Settings) map[string]Status {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	// 1. Work out what is wanted
	wanted := make(map[string]bool, len(targets))
	unique := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.Key == "" || len(t.Coords) == 0 || wanted[t.Key] {
			continue
		}
		wanted[t.Key] = true
		unique = append(unique, t)
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return map[string]Status{}
	}
	a.wanted = wanted
	a.mu.Unlock()

	// 2. Release stale instances
	if released := a.registry.Retain(wanted); len(released) > 0 && a.logger != nil {
		a.logger.Debug("Released map instances", "count", len(released))
	}

	statuses := make(map[string]Status, len(unique))
	if len(unique) == 0 {
		return statuses
	}

	// 3. Load the backend
	backend, err := a.provider.Get(ctx)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("Map backend unavailable", "error", err.Error(), "maps", len(unique))
		}
		for _, t := range unique {
			statuses[t.Key] = Status{Key: t.Key, Error: err.Error()}
		}
		return statuses
	}

	// 4. Attach concurrently
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, t := range unique {
		g.Go(func() error {
			st := a.attach(gctx, backend, t, settings)
			mu.Lock()
			statuses[t.Key] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

// Close releases every instance. Sync is a no-op afterwards.
func (a *Adapter) Close() {
	a.mu.Lock()
	a.closed = true
	a.wanted = map[string]bool{}
	a.mu.Unlock()

	a.registry.UnregisterAll()
}

func (a *Adapter) attach(ctx context.Context, backend Backend, t Target, settings Settings) Status {
	inst := a.registry.Get(t.Key)
	if inst != nil && inst.Container != t.Container {
		a.registry.Unregister(t.Key)
		inst = nil
	}

	fresh := inst == nil
	if fresh {
		m, err := backend.NewMap(ctx, t.Container, settings.Options)
		if err != nil {
			return a.failed(t, fmt.Errorf("failed to create map: %w", err))
		}
		if err := m.AddBaseLayer(); err != nil {
			m.Remove()
			return a.failed(t, fmt.Errorf("failed to add base layer: %w", err))
		}

		inst = &Instance{Key: t.Key, Container: t.Container, Map: m}
		if !a.register(inst) {
			// The item went away while the map was being created.
			m.Remove()
			return Status{Key: t.Key, Error: "item is no longer visible"}
		}
	}

	sig := t.Signature()
	if fresh || inst.Signature != sig {
		if inst.Layer != nil {
			inst.Map.RemoveLayer(inst.Layer)
			inst.Layer = nil
		}
		layer, err := Draw(inst.Map, t)
		if err != nil {
			inst.Signature = ""
			return a.failed(t, fmt.Errorf("failed to draw geometry: %w", err))
		}
		inst.Layer = layer
		inst.Signature = sig
		ApplyView(inst.Map, t.Coords, settings.Zoom)
		inst.Zoom = settings.Zoom
	} else if inst.Zoom != settings.Zoom {
		ApplyView(inst.Map, t.Coords, settings.Zoom)
		inst.Zoom = settings.Zoom
	}

	return Status{Key: t.Key, Ready: true, Scene: inst.Map.Snapshot()}
}

// register adds inst unless its key stopped being wanted.
func (a *Adapter) register(inst *Instance) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || !a.wanted[inst.Key] {
		return false
	}
	return a.registry.Register(inst) == nil
}

func (a *Adapter) failed(t Target, err error) Status {
	if a.logger != nil {
		a.logger.Warn("Failed to attach map", "key", t.Key, "error", err.Error())
	}
	return Status{Key: t.Key, Error: err.Error()}
}

// Draw adds the geometry of t to m: a marker for a single point, a line otherwise.
func Draw(m Map, t Target) (Layer, error) {
	if len(t.Coords) == 1 {
		return m.AddPoint(t.Coords[0], Style{Color: t.Color, Radius: 8, Weight: 2, Popup: t.Popup})
	}
	return m.AddLine(t.Coords, Style{Color: t.Color, Weight: 5, Popup: t.Popup})
}

// ApplyView centers m on coords at zoom, or fits it to them when zoom is 0.
func ApplyView(m Map, coords []Coord, zoom int) {
	switch {
	case zoom > 0:
		m.SetView(Center(coords), zoom)
	case len(coords) == 1:
		m.SetView(coords[0], DefaultPointZoom)
	default:
		m.FitBounds(Bound(coords), fitPadding)
	}
}

// Signature identifies what Draw would render for t.
func (t Target) Signature() string {
	var b strings.Builder
	b.WriteString(t.Color)
	b.WriteByte('|')
	b.WriteString(t.Popup)
	for _, c := range t.Coords {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(c.Lat, 'f', 6, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Lon, 'f', 6, 64))
	}
	return b.String()
}
