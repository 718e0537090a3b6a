package geo

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
)

// ErrBackendUnavailable is returned when no map backend could be loaded.
var ErrBackendUnavailable = errors.New("map backend unavailable")

// Logger is the logging interface used by this package. pluginapi.LogService satisfies it.
type Logger interface {
	Debug(message string, keyValuePairs ...any)
	Info(message string, keyValuePairs ...any)
	Warn(message string, keyValuePairs ...any)
	Error(message string, keyValuePairs ...any)
}

// Backend creates maps. It is the capability surface of a mapping library.
type Backend interface {
	// NewMap creates a map bound to the given container.
	NewMap(ctx context.Context, container string, opts MapOptions) (Map, error)
}

// MapOptions controls the interactive behavior of a map.
type MapOptions struct {
	ZoomControl     bool `json:"zoom_control"`
	ScrollWheelZoom bool `json:"scroll_wheel_zoom"`
}

// Style is the look of a marker or line.
type Style struct {
	Color  string `json:"color"`
	Weight int    `json:"weight,omitempty"`
	Radius int    `json:"radius,omitempty"`

	// Popup is shown when the layer is activated. Empty for no popup.
	Popup string `json:"popup,omitempty"`
}

// Layer is a handle to a layer added to a map.
type Layer interface {
	ID() string
}

// Map is one map instance owned by a single consumer. It must be released with Remove.
type Map interface {
	// AddBaseLayer adds the tile layer of the backend.
	AddBaseLayer() error

	// AddPoint adds a circle marker.
	AddPoint(c Coord, style Style) (Layer, error)

	// AddLine adds a polyline through coords.
	AddLine(coords []Coord, style Style) (Layer, error)

	// RemoveLayer removes a layer added earlier. Unknown layers are ignored.
	RemoveLayer(l Layer)

	// FitBounds fits the view to b with the given padding in pixels.
	FitBounds(b orb.Bound, padding int)

	// SetView centers the map on c at zoom.
	SetView(c Coord, zoom int)

	// Remove releases the map and everything attached to it.
	Remove()

	// Snapshot returns a serializable description of the map.
	Snapshot() any
}
