// Package cardconfig defines the user-authored configuration of an incident card and normalizes
// it into a stable, fully defaulted form.
package cardconfig

import (
	"errors"
	"maps"
)

// ErrMissingEntity is returned when a configuration does not name its source entity.
var ErrMissingEntity = errors.New("you must specify an entity")

// Preset selects the card variant.
type Preset string

// Presets
const (
	PresetAccident  Preset = "accident"
	PresetImportant Preset = "important"
)

// SortOrder selects how visible incidents are ordered.
type SortOrder string

// Sort orders
const (
	SortSeverityThenTime SortOrder = "severity_then_time"
	SortTimeDesc         SortOrder = "time_desc"
)

// GroupBy selects how visible incidents are grouped.
type GroupBy string

// Groupings
const (
	GroupNone     GroupBy = "none"
	GroupRoad     GroupBy = "road"
	GroupSeverity GroupBy = "severity"
)

// DateFormat selects how timestamps are rendered.
type DateFormat string

// Date formats
const (
	DateLocale           DateFormat = "locale"
	DateDayMonthTime     DateFormat = "day_month_time"
	DateWeekdayTime      DateFormat = "weekday_time"
	DateDayMonthTimeYear DateFormat = "day_month_time_year"
)

// DismissBehavior selects how long a dismissed event stays hidden upstream.
type DismissBehavior string

// Dismiss behaviors
const (
	DismissUntilUpdate DismissBehavior = "until_update"
	DismissPermanent   DismissBehavior = "permanent"
)

// Meta field keys usable in meta_order.
const (
	FieldRoad            = "road"
	FieldLocation        = "location"
	FieldSeverity        = "severity"
	FieldRestriction     = "restriction"
	FieldDirection       = "direction"
	FieldPeriod          = "period"
	FieldPublished       = "published"
	FieldUpdated         = "updated"
	FieldLink            = "link"
	FieldSubtype         = "subtype"
	FieldTemporaryLimit  = "temporary_limit"
	FieldLanesRestricted = "lanes_restricted"
	FieldSafetyRelated   = "safety_related"
	FieldSuspended       = "suspended"
	FieldText            = "text"
	FieldMap             = "map"

	// Divider separates the always-visible fields from the ones behind the details toggle.
	Divider = "divider"
)

// Headline keys usable in headline_fields.
const (
	HeadlineHeader         = "header"
	HeadlineType           = "type"
	HeadlineRoad           = "road"
	HeadlineLocation       = "location"
	HeadlineRestriction    = "restriction"
	HeadlineSeverity       = "severity"
	HeadlineDirection      = "direction"
	HeadlineTemporaryLimit = "temporary_limit"
)

// DefaultMetaOrder is the meta_order used when none is configured.
var DefaultMetaOrder = []string{
	FieldRoad, FieldLocation, FieldSeverity, FieldRestriction, FieldDirection, FieldPeriod,
	Divider,
	FieldPublished, FieldUpdated, FieldLink, FieldText,
}

// Config is the configuration of one incident card. Optional settings are pointers so that an
// unset value can be told apart from an explicit false; after Normalize every pointer is set.
type Config struct {
	Entity string `json:"entity" yaml:"entity" jsonschema:"required,description=Source entity id"`
	Preset Preset `json:"preset,omitempty" yaml:"preset,omitempty" jsonschema:"enum=accident,enum=important,default=accident"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`

	ShowHeader         *bool `json:"show_header,omitempty" yaml:"show_header,omitempty" jsonschema:"default=true"`
	ShowIcon           *bool `json:"show_icon,omitempty" yaml:"show_icon,omitempty" jsonschema:"default=true"`
	SeverityBackground *bool `json:"severity_background,omitempty" yaml:"severity_background,omitempty" jsonschema:"default=false"`
	HideWhenEmpty      *bool `json:"hide_when_empty,omitempty" yaml:"hide_when_empty,omitempty" jsonschema:"default=false"`
	UseDetails         *bool `json:"use_details,omitempty" yaml:"use_details,omitempty" jsonschema:"default=true"`

	MaxItems         int       `json:"max_items,omitempty" yaml:"max_items,omitempty" jsonschema:"minimum=0,default=0"`
	SortOrder        SortOrder `json:"sort_order,omitempty" yaml:"sort_order,omitempty" jsonschema:"enum=severity_then_time,enum=time_desc,default=severity_then_time"`
	GroupBy          GroupBy   `json:"group_by,omitempty" yaml:"group_by,omitempty" jsonschema:"enum=none,enum=road,enum=severity,default=none"`
	FilterSeverities []string  `json:"filter_severities,omitempty" yaml:"filter_severities,omitempty" jsonschema:"uniqueItems=true"`
	FilterRoads      RoadList  `json:"filter_roads,omitempty" yaml:"filter_roads,omitempty"`

	ShowRoad            *bool `json:"show_road,omitempty" yaml:"show_road,omitempty" jsonschema:"default=true"`
	ShowLocation        *bool `json:"show_location,omitempty" yaml:"show_location,omitempty" jsonschema:"default=true"`
	ShowSeverity        *bool `json:"show_severity,omitempty" yaml:"show_severity,omitempty" jsonschema:"default=true"`
	ShowRestriction     *bool `json:"show_restriction,omitempty" yaml:"show_restriction,omitempty" jsonschema:"default=true"`
	ShowDirection       *bool `json:"show_direction,omitempty" yaml:"show_direction,omitempty" jsonschema:"default=true"`
	ShowPeriod          *bool `json:"show_period,omitempty" yaml:"show_period,omitempty" jsonschema:"default=true"`
	ShowPublished       *bool `json:"show_published,omitempty" yaml:"show_published,omitempty" jsonschema:"default=true"`
	ShowUpdated         *bool `json:"show_updated,omitempty" yaml:"show_updated,omitempty" jsonschema:"default=true"`
	ShowLink            *bool `json:"show_link,omitempty" yaml:"show_link,omitempty" jsonschema:"default=true"`
	ShowText            *bool `json:"show_text,omitempty" yaml:"show_text,omitempty" jsonschema:"default=true"`
	ShowSubtype         *bool `json:"show_subtype,omitempty" yaml:"show_subtype,omitempty" jsonschema:"default=false"`
	ShowTemporaryLimit  *bool `json:"show_temporary_limit,omitempty" yaml:"show_temporary_limit,omitempty" jsonschema:"default=false"`
	ShowLanesRestricted *bool `json:"show_lanes_restricted,omitempty" yaml:"show_lanes_restricted,omitempty" jsonschema:"default=false"`
	ShowSafetyRelated   *bool `json:"show_safety_related,omitempty" yaml:"show_safety_related,omitempty" jsonschema:"default=false"`
	ShowSuspended       *bool `json:"show_suspended,omitempty" yaml:"show_suspended,omitempty" jsonschema:"default=false"`

	MetaOrder         []string `json:"meta_order,omitempty" yaml:"meta_order,omitempty"`
	HeadlineFields    []string `json:"headline_fields,omitempty" yaml:"headline_fields,omitempty"`
	HeadlineSeparator *string  `json:"headline_separator,omitempty" yaml:"headline_separator,omitempty" jsonschema:"default= "`

	ShowMap            *bool `json:"show_map,omitempty" yaml:"show_map,omitempty" jsonschema:"default=false"`
	MapZoom            int   `json:"map_zoom,omitempty" yaml:"map_zoom,omitempty" jsonschema:"minimum=0,maximum=19,description=Fixed zoom level; 0 fits the map to the geometry"`
	MapZoomControls    *bool `json:"map_zoom_controls,omitempty" yaml:"map_zoom_controls,omitempty" jsonschema:"default=true"`
	MapScrollWheelZoom *bool `json:"map_scroll_wheel_zoom,omitempty" yaml:"map_scroll_wheel_zoom,omitempty" jsonschema:"default=false"`

	DateFormat DateFormat `json:"date_format,omitempty" yaml:"date_format,omitempty" jsonschema:"enum=locale,enum=day_month_time,enum=weekday_time,enum=day_month_time_year,default=locale"`

	EnableDismiss      *bool           `json:"enable_dismiss,omitempty" yaml:"enable_dismiss,omitempty" jsonschema:"default=false"`
	DismissBehavior    DismissBehavior `json:"dismiss_behavior,omitempty" yaml:"dismiss_behavior,omitempty" jsonschema:"enum=until_update,enum=permanent,default=until_update"`
	ShowDismissedCount *bool           `json:"show_dismissed_count,omitempty" yaml:"show_dismissed_count,omitempty" jsonschema:"default=true"`

	TapAction       *Action `json:"tap_action,omitempty" yaml:"tap_action,omitempty"`
	DoubleTapAction *Action `json:"double_tap_action,omitempty" yaml:"double_tap_action,omitempty"`
	HoldAction      *Action `json:"hold_action,omitempty" yaml:"hold_action,omitempty"`

	// Deprecated settings, removed by Normalize.
	ShowRoadName   *bool `json:"show_road_name,omitempty" yaml:"show_road_name,omitempty" jsonschema:"-"`
	ShowRoadNumber *bool `json:"show_road_number,omitempty" yaml:"show_road_number,omitempty" jsonschema:"-"`
	ShowMessage    *bool `json:"show_message,omitempty" yaml:"show_message,omitempty" jsonschema:"-"`
}

// Enabled reports whether an optional boolean setting is set and true.
func Enabled(p *bool) bool {
	return p != nil && *p
}

// Shows reports whether the meta field with the given key is switched on. The divider and
// unknown keys report true; the map block additionally requires show_map.
func (c Config) Shows(key string) bool {
	switch key {
	case FieldRoad:
		return Enabled(c.ShowRoad)
	case FieldLocation:
		return Enabled(c.ShowLocation)
	case FieldSeverity:
		return Enabled(c.ShowSeverity)
	case FieldRestriction:
		return Enabled(c.ShowRestriction)
	case FieldDirection:
		return Enabled(c.ShowDirection)
	case FieldPeriod:
		return Enabled(c.ShowPeriod)
	case FieldPublished:
		return Enabled(c.ShowPublished)
	case FieldUpdated:
		return Enabled(c.ShowUpdated)
	case FieldLink:
		return Enabled(c.ShowLink)
	case FieldText:
		return Enabled(c.ShowText)
	case FieldSubtype:
		return Enabled(c.ShowSubtype)
	case FieldTemporaryLimit:
		return Enabled(c.ShowTemporaryLimit)
	case FieldLanesRestricted:
		return Enabled(c.ShowLanesRestricted)
	case FieldSafetyRelated:
		return Enabled(c.ShowSafetyRelated)
	case FieldSuspended:
		return Enabled(c.ShowSuspended)
	case FieldMap:
		return Enabled(c.ShowMap)
	default:
		return true
	}
}

// Separator returns the headline separator.
func (c Config) Separator() string {
	if c.HeadlineSeparator == nil {
		return " "
	}
	return *c.HeadlineSeparator
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	clone := c

	clone.FilterSeverities = cloneStrings(c.FilterSeverities)
	clone.FilterRoads = RoadList(cloneStrings(c.FilterRoads))
	clone.MetaOrder = cloneStrings(c.MetaOrder)
	clone.HeadlineFields = cloneStrings(c.HeadlineFields)

	for _, p := range []**bool{
		&clone.ShowHeader, &clone.ShowIcon, &clone.SeverityBackground, &clone.HideWhenEmpty,
		&clone.UseDetails, &clone.ShowRoad, &clone.ShowLocation, &clone.ShowSeverity,
		&clone.ShowRestriction, &clone.ShowDirection, &clone.ShowPeriod, &clone.ShowPublished,
		&clone.ShowUpdated, &clone.ShowLink, &clone.ShowText, &clone.ShowSubtype,
		&clone.ShowTemporaryLimit, &clone.ShowLanesRestricted, &clone.ShowSafetyRelated,
		&clone.ShowSuspended, &clone.ShowMap, &clone.MapZoomControls, &clone.MapScrollWheelZoom,
		&clone.EnableDismiss, &clone.ShowDismissedCount, &clone.ShowRoadName,
		&clone.ShowRoadNumber, &clone.ShowMessage,
	} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}

	if c.HeadlineSeparator != nil {
		sep := *c.HeadlineSeparator
		clone.HeadlineSeparator = &sep
	}

	clone.TapAction = c.TapAction.clone()
	clone.DoubleTapAction = c.DoubleTapAction.clone()
	clone.HoldAction = c.HoldAction.clone()

	return clone
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func (a *Action) clone() *Action {
	if a == nil {
		return nil
	}
	clone := *a
	clone.ServiceData = maps.Clone(a.ServiceData)
	return &clone
}
