package mapview

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
)

// ErrNoEntities is returned when a map view names no source entity.
var ErrNoEntities = errors.New("you must specify at least one entity")

// Config is the user-authored configuration of a map view.
type Config struct {
	Title            string   `json:"title,omitempty" yaml:"title,omitempty"`
	Entities         []string `json:"entities" yaml:"entities"`
	FilterSeverities []string `json:"filter_severities,omitempty" yaml:"filter_severities,omitempty"`
	MaxItems         int      `json:"max_items,omitempty" yaml:"max_items,omitempty"`

	Zoom            int   `json:"map_zoom,omitempty" yaml:"map_zoom,omitempty"`
	ZoomControls    *bool `json:"map_zoom_controls,omitempty" yaml:"map_zoom_controls,omitempty"`
	ScrollWheelZoom *bool `json:"map_scroll_wheel_zoom,omitempty" yaml:"map_scroll_wheel_zoom,omitempty"`
}

// Parse decodes a YAML or JSON map view configuration.
func Parse(data []byte) (Config, error) {
	var c Config
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse map view configuration: %w", err)
	}
	return c, nil
}

// Normalize trims and de-duplicates the entities and fills in defaults.
func Normalize(c Config) (Config, error) {
	n := c
	n.Entities = nil
	seen := make(map[string]bool, len(c.Entities))
	for _, e := range c.Entities {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		n.Entities = append(n.Entities, e)
	}
	if len(n.Entities) == 0 {
		return Config{}, ErrNoEntities
	}

	if n.MaxItems < 0 {
		n.MaxItems = 0
	}
	if n.Zoom < 0 {
		n.Zoom = 0
	}
	if n.ZoomControls == nil {
		v := true
		n.ZoomControls = &v
	}
	if n.ScrollWheelZoom == nil {
		v := false
		n.ScrollWheelZoom = &v
	}
	n.FilterSeverities = append([]string(nil), c.FilterSeverities...)
	return n, nil
}

// cardConfig is the card configuration the pipeline and formatter run with for one entity.
func (c Config) cardConfig(entityID string) (cardconfig.Config, error) {
	return cardconfig.Normalize(cardconfig.Config{
		Entity:           entityID,
		FilterSeverities: c.FilterSeverities,
		MaxItems:         c.MaxItems,
		SortOrder:        cardconfig.SortSeverityThenTime,
	})
}

// Settings is a map view as declared in the plugin configuration.
type Settings struct {
	// ID is the unique stable identifier for this map view (UUID v4, immutable)
	ID string `json:"id"`

	// Name is the display name for this map view (must be unique)
	Name string `json:"name"`

	// Config is the YAML or JSON map view configuration
	Config string `json:"config"`
}

// ValidateSettings validates map view declarations.
func ValidateSettings(settings []Settings) error {
	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)

	for i, s := range settings {
		if s.ID == "" {
			return fmt.Errorf("map view at position %d: missing required field 'id'", i+1)
		}
		if s.Name == "" {
			return fmt.Errorf("map view at position %d: missing required field 'name'", i+1)
		}

		parsed, err := uuid.Parse(s.ID)
		if err != nil {
			return fmt.Errorf("map view '%s': invalid UUID format for id: %w", s.Name, err)
		}
		if parsed.Version() != 4 {
			return fmt.Errorf("map view '%s': id must be a UUID v4 (got version %d)", s.Name, parsed.Version())
		}

		if seenIDs[s.ID] {
			return fmt.Errorf("duplicate map view ID found: %s", s.ID)
		}
		seenIDs[s.ID] = true
		if seenNames[s.Name] {
			return fmt.Errorf("duplicate map view name found: '%s'", s.Name)
		}
		seenNames[s.Name] = true

		cfg, err := Parse([]byte(s.Config))
		if err != nil {
			return fmt.Errorf("map view '%s': %w", s.Name, err)
		}
		if _, err := Normalize(cfg); err != nil {
			return fmt.Errorf("map view '%s': %w", s.Name, err)
		}
	}

	return nil
}
