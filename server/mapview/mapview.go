// Package mapview implements the shared map view: the incidents of several source entities drawn
// onto a single map, each with a popup instead of an expandable item.
package mapview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/entity"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/formatter"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/pipeline"
)

// Deps are the collaborators of a map view.
type Deps struct {
	Maps     *geo.Provider
	Logger   geo.Logger
	Locale   string
	Location *time.Location
}

// Marker is one incident on the shared map.
type Marker struct {
	Key      string      `json:"key"`
	EntityID string      `json:"entity_id"`
	Headline string      `json:"headline"`
	Popup    string      `json:"popup"`
	Accent   string      `json:"accent"`
	Color    string      `json:"color"`
	Coords   []geo.Coord `json:"coords"`
}

// Result is the outcome of a Sync.
type Result struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Markers []Marker `json:"markers"`
	Ready   bool     `json:"ready"`
	Empty   string   `json:"empty,omitempty"`
	Error   string   `json:"error,omitempty"`
	Scene   any      `json:"scene,omitempty"`
}

type drawn struct {
	layer geo.Layer
	sig   string
}

// View is one shared map view. All methods are safe for concurrent use.
type View struct {
	id   string
	cfg  Config
	deps Deps
	tr   formatter.Translator

	mu     sync.Mutex
	states map[string]entity.State
	closed bool

	// syncMu serializes Sync and guards the map and its layers.
	syncMu sync.Mutex
	m      geo.Map
	layers map[string]drawn
	zoom   int
}

// New creates a map view. It fails when the configuration names no entity.
func New(id string, raw Config, deps Deps) (*View, error) {
	cfg, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("map view %s: %w", id, err)
	}
	return &View{
		id:     id,
		cfg:    cfg,
		deps:   deps,
		tr:     formatter.NewTranslator(deps.Locale),
		states: make(map[string]entity.State),
		layers: make(map[string]drawn),
	}, nil
}

// ID returns the map view id.
func (v *View) ID() string {
	return v.id
}

// Entities returns the source entities in configuration order.
func (v *View) Entities() []string {
	return append([]string(nil), v.cfg.Entities...)
}

// SetState hands the view a new state. States of entities the view does not show are ignored.
func (v *View) SetState(s entity.State) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return false
	}
	for _, e := range v.cfg.Entities {
		if e == s.EntityID {
			v.states[e] = s
			return true
		}
	}
	return false
}

// Markers returns the incidents with a geometry, entity by entity in configuration order.
func (v *View) Markers() []Marker {
	v.mu.Lock()
	states := make([]entity.State, 0, len(v.cfg.Entities))
	for _, e := range v.cfg.Entities {
		if s, ok := v.states[e]; ok {
			states = append(states, s)
		}
	}
	v.mu.Unlock()

	var markers []Marker
	for _, s := range states {
		cfg, err := v.cfg.cardConfig(s.EntityID)
		if err != nil {
			continue
		}
		f := formatter.New(cfg, v.tr, v.deps.Location)
		for _, r := range pipeline.Visible(s.Attributes.Events, cfg, pipeline.Options{Location: v.deps.Location}) {
			coords := geo.ParseWKT(r.GeometryWGS84.String())
			if len(coords) == 0 {
				continue
			}
			accent := incident.Classify(r).Accent()
			markers = append(markers, Marker{
				Key:      s.EntityID + "/" + r.Key(),
				EntityID: s.EntityID,
				Headline: f.Headline(r),
				Popup:    popup(f, r),
				Accent:   string(accent),
				Color:    accent.Color(),
				Coords:   coords,
			})
		}
	}
	return markers
}

// popup is the headline followed by the road, location and period lines that have data.
func popup(f *formatter.Formatter, r incident.Record) string {
	lines := []string{f.Headline(r)}
	var where []string
	for _, s := range []string{formatter.Road(r), r.Location()} {
		if s = strings.TrimSpace(s); s != "" {
			where = append(where, s)
		}
	}
	if len(where) > 0 {
		lines = append(lines, strings.Join(where, " · "))
	}
	if r.HasPeriod() {
		lines = append(lines, f.Period(r))
	}
	return strings.Join(lines, "\n")
}

// Sync brings the shared map in line with the current markers and returns its scene. Layers of
// unchanged markers are kept; the view is refitted whenever the set of layers changed.
func (v *View) Sync(ctx context.Context) Result {
	v.syncMu.Lock()
	defer v.syncMu.Unlock()

	res := Result{ID: v.id, Title: v.title(), Markers: v.Markers()}
	if res.Markers == nil {
		res.Markers = []Marker{}
	}

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		res.Error = v.tr.T(formatter.KeyMapFailed)
		return res
	}

	if len(res.Markers) == 0 {
		v.releaseMap()
		res.Empty = v.tr.T(formatter.KeyNoAlerts)
		return res
	}

	if v.m == nil {
		backend, err := v.backend(ctx)
		if err != nil {
			v.warn("Map backend unavailable", "map_view", v.id, "error", err.Error())
			res.Error = v.tr.T(formatter.KeyMapFailed)
			return res
		}
		opts := geo.MapOptions{
			ZoomControl:     cardconfig.Enabled(v.cfg.ZoomControls),
			ScrollWheelZoom: cardconfig.Enabled(v.cfg.ScrollWheelZoom),
		}
		m, err := backend.NewMap(ctx, "mapview-"+v.id, opts)
		if err != nil {
			v.warn("Failed to create shared map", "map_view", v.id, "error", err.Error())
			res.Error = v.tr.T(formatter.KeyMapFailed)
			return res
		}
		if err := m.AddBaseLayer(); err != nil {
			m.Remove()
			v.warn("Failed to add base layer", "map_view", v.id, "error", err.Error())
			res.Error = v.tr.T(formatter.KeyMapFailed)
			return res
		}
		v.m = m
		v.layers = make(map[string]drawn)
	}

	changed := v.drawLocked(res.Markers)
	if changed || v.zoom != v.cfg.Zoom {
		var all []geo.Coord
		for _, mk := range res.Markers {
			if _, ok := v.layers[mk.Key]; ok {
				all = append(all, mk.Coords...)
			}
		}
		if len(all) > 0 {
			geo.ApplyView(v.m, all, v.cfg.Zoom)
		}
		v.zoom = v.cfg.Zoom
	}

	res.Ready = true
	res.Scene = v.m.Snapshot()
	return res
}

// drawLocked removes the layers of markers that went away and draws new or changed markers. It
// reports whether any layer changed.
func (v *View) drawLocked(markers []Marker) bool {
	changed := false
	wanted := make(map[string]bool, len(markers))
	for _, mk := range markers {
		wanted[mk.Key] = true
	}
	for key, d := range v.layers {
		if !wanted[key] {
			v.m.RemoveLayer(d.layer)
			delete(v.layers, key)
			changed = true
		}
	}

	for _, mk := range markers {
		t := geo.Target{Key: mk.Key, Coords: mk.Coords, Color: mk.Color, Popup: mk.Popup}
		sig := t.Signature()
		if d, ok := v.layers[mk.Key]; ok {
			if d.sig == sig {
				continue
			}
			v.m.RemoveLayer(d.layer)
			delete(v.layers, mk.Key)
		}
		layer, err := geo.Draw(v.m, t)
		changed = true
		if err != nil {
			v.warn("Failed to draw incident", "map_view", v.id, "key", mk.Key, "error", err.Error())
			continue
		}
		v.layers[mk.Key] = drawn{layer: layer, sig: sig}
	}
	return changed
}

func (v *View) backend(ctx context.Context) (geo.Backend, error) {
	if v.deps.Maps == nil {
		return nil, geo.ErrBackendUnavailable
	}
	return v.deps.Maps.Get(ctx)
}

func (v *View) releaseMap() {
	if v.m == nil {
		return
	}
	v.m.Remove()
	v.m = nil
	v.layers = make(map[string]drawn)
	v.zoom = 0
}

func (v *View) title() string {
	if t := strings.TrimSpace(v.cfg.Title); t != "" {
		return t
	}
	return v.tr.T(formatter.KeyDefaultTitle)
}

// Layers returns the number of layers drawn on the shared map.
func (v *View) Layers() int {
	v.syncMu.Lock()
	defer v.syncMu.Unlock()
	return len(v.layers)
}

// Close releases the shared map. The view ignores states afterwards.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.states = make(map[string]entity.State)
	v.mu.Unlock()

	v.syncMu.Lock()
	v.releaseMap()
	v.syncMu.Unlock()
}

func (v *View) warn(msg string, keyValuePairs ...any) {
	if v.deps.Logger != nil {
		v.deps.Logger.Warn(msg, keyValuePairs...)
	}
}
