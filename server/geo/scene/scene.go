// Package scene is a headless map backend. Maps are recorded as serializable scenes that clients
// render with their own mapping library.
package scene

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/paulmach/orb"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
)

// Tiles describes a raster tile source.
type Tiles struct {
	Template    string `json:"template"`
	Attribution string `json:"attribution,omitempty"`
	MaxZoom     int    `json:"max_zoom,omitempty"`
}

// OpenStreetMap is the public OpenStreetMap tile source.
var OpenStreetMap = Tiles{
	Template:    "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
	Attribution: "© OpenStreetMap contributors",
	MaxZoom:     19,
}

// Layer kinds
const (
	KindPoint = "point"
	KindLine  = "line"
)

// Scene is the recorded content of a map.
type Scene struct {
	Container string         `json:"container"`
	Options   geo.MapOptions `json:"options"`
	Base      *Tiles         `json:"base,omitempty"`
	Layers    []Layer        `json:"layers"`
	View      View           `json:"view"`
	Removed   bool           `json:"removed,omitempty"`
}

// Layer is a recorded marker or line.
type Layer struct {
	LayerID string      `json:"id"`
	Kind    string      `json:"kind"`
	Coords  []geo.Coord `json:"coords"`
	Style   geo.Style   `json:"style"`
}

// ID implements geo.Layer.
func (l Layer) ID() string {
	return l.LayerID
}

// View is the recorded viewport. Either Center and Zoom or Bounds is set.
type View struct {
	Center  *geo.Coord  `json:"center,omitempty"`
	Zoom    int         `json:"zoom,omitempty"`
	Bounds  []geo.Coord `json:"bounds,omitempty"`
	Padding int         `json:"padding,omitempty"`
}

// Backend implements geo.Backend.
type Backend struct {
	tiles Tiles
}

// New creates a Backend using the given tile source for base layers.
func New(tiles Tiles) *Backend {
	return &Backend{tiles: tiles}
}

// Tiles returns the tile source of the backend.
func (b *Backend) Tiles() Tiles {
	return b.tiles
}

// NewMap implements geo.Backend.
func (b *Backend) NewMap(ctx context.Context, container string, opts geo.MapOptions) (geo.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Map{
		tiles: b.tiles,
		scene: Scene{Container: container, Options: opts, Layers: []Layer{}},
	}, nil
}

// Map implements geo.Map.
type Map struct {
	tiles Tiles

	mu     sync.Mutex
	scene  Scene
	nextID int
}

// AddBaseLayer implements geo.Map.
func (m *Map) AddBaseLayer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tiles := m.tiles
	m.scene.Base = &tiles
	return nil
}

// AddPoint implements geo.Map.
func (m *Map) AddPoint(c geo.Coord, style geo.Style) (geo.Layer, error) {
	return m.add(KindPoint, []geo.Coord{c}, style), nil
}

// AddLine implements geo.Map.
func (m *Map) AddLine(coords []geo.Coord, style geo.Style) (geo.Layer, error) {
	return m.add(KindLine, slices.Clone(coords), style), nil
}

func (m *Map) add(kind string, coords []geo.Coord, style geo.Style) geo.Layer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	l := Layer{LayerID: kind + "-" + strconv.Itoa(m.nextID), Kind: kind, Coords: coords, Style: style}
	m.scene.Layers = append(m.scene.Layers, l)
	return l
}

// RemoveLayer implements geo.Map.
func (m *Map) RemoveLayer(l geo.Layer) {
	if l == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.scene.Layers = slices.DeleteFunc(m.scene.Layers, func(existing Layer) bool {
		return existing.LayerID == l.ID()
	})
}

// FitBounds implements geo.Map.
func (m *Map) FitBounds(b orb.Bound, padding int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scene.View = View{
		Bounds:  []geo.Coord{geo.FromPoint(b.Min), geo.FromPoint(b.Max)},
		Padding: padding,
	}
}

// SetView implements geo.Map.
func (m *Map) SetView(c geo.Coord, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tiles.MaxZoom > 0 && zoom > m.tiles.MaxZoom {
		zoom = m.tiles.MaxZoom
	}
	center := c
	m.scene.View = View{Center: &center, Zoom: zoom}
}

// Remove implements geo.Map.
func (m *Map) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scene.Layers = []Layer{}
	m.scene.Removed = true
}

// Snapshot implements geo.Map. It returns a Scene.
func (m *Map) Snapshot() any {
	return m.Scene()
}

// Scene returns a copy of the recorded scene.
func (m *Map) Scene() Scene {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.scene
	s.Layers = slices.Clone(m.scene.Layers)
	if m.scene.Base != nil {
		base := *m.scene.Base
		s.Base = &base
	}
	return s
}
