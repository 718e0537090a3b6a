package cardconfig

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
)

// MetaFields lists every key accepted in meta_order.
var MetaFields = []string{
	FieldRoad, FieldLocation, FieldSeverity, FieldRestriction, FieldDirection, FieldPeriod,
	FieldPublished, FieldUpdated, FieldLink, FieldSubtype, FieldTemporaryLimit,
	FieldLanesRestricted, FieldSafetyRelated, FieldSuspended, FieldText, FieldMap, Divider,
}

// HeadlineKeys lists every key accepted in headline_fields.
var HeadlineKeys = []string{
	HeadlineHeader, HeadlineType, HeadlineRoad, HeadlineLocation, HeadlineRestriction,
	HeadlineSeverity, HeadlineDirection, HeadlineTemporaryLimit,
}

// deprecatedMetaKeys are dropped from meta_order. "message" duplicated "text".
var deprecatedMetaKeys = []string{"message", "road_name", "road_number"}

// Normalize returns a fully defaulted copy of c. The input is not modified. Unknown enum values
// fall back to their defaults; the only error is a missing entity.
//
// Normalize is idempotent: normalizing a normalized configuration returns an equal value.
func Normalize(c Config) (Config, error) {
	if strings.TrimSpace(c.Entity) == "" {
		return Config{}, ErrMissingEntity
	}

	n := c.Clone()
	n.Entity = strings.TrimSpace(c.Entity)

	// 1. Enums
	n.Preset = pick(n.Preset, PresetAccident, PresetAccident, PresetImportant)
	n.SortOrder = pick(n.SortOrder, SortSeverityThenTime, SortSeverityThenTime, SortTimeDesc)
	n.GroupBy = pick(n.GroupBy, GroupNone, GroupNone, GroupRoad, GroupSeverity)
	n.DateFormat = pick(n.DateFormat, DateLocale, DateLocale, DateDayMonthTime, DateWeekdayTime, DateDayMonthTimeYear)
	n.DismissBehavior = pick(n.DismissBehavior, DismissUntilUpdate, DismissUntilUpdate, DismissPermanent)

	// 2. Deprecated settings. show_message became show_text.
	if n.ShowText == nil && n.ShowMessage != nil {
		n.ShowText = n.ShowMessage
	}
	n.ShowMessage = nil
	n.ShowRoadName = nil
	n.ShowRoadNumber = nil

	// 3. Boolean defaults
	for _, d := range []struct {
		field **bool
		value bool
	}{
		{&n.ShowHeader, true},
		{&n.ShowIcon, true},
		{&n.SeverityBackground, false},
		{&n.HideWhenEmpty, false},
		{&n.UseDetails, true},
		{&n.ShowRoad, true},
		{&n.ShowLocation, true},
		{&n.ShowSeverity, true},
		{&n.ShowRestriction, true},
		{&n.ShowDirection, true},
		{&n.ShowPeriod, true},
		{&n.ShowPublished, true},
		{&n.ShowUpdated, true},
		{&n.ShowLink, true},
		{&n.ShowText, true},
		{&n.ShowSubtype, false},
		{&n.ShowTemporaryLimit, false},
		{&n.ShowLanesRestricted, false},
		{&n.ShowSafetyRelated, false},
		{&n.ShowSuspended, false},
		{&n.ShowMap, false},
		{&n.MapZoomControls, true},
		{&n.MapScrollWheelZoom, false},
		{&n.EnableDismiss, false},
		{&n.ShowDismissedCount, true},
	} {
		if *d.field == nil {
			v := d.value
			*d.field = &v
		}
	}

	// 4. Numbers and strings
	if n.MaxItems < 0 {
		n.MaxItems = 0
	}
	if n.MapZoom < 0 {
		n.MapZoom = 0
	}
	if n.HeadlineSeparator == nil {
		sep := " "
		n.HeadlineSeparator = &sep
	}

	// 5. Lists
	n.FilterSeverities = normalizeSeverities(n.FilterSeverities)
	n.FilterRoads = normalizeRoads(n.FilterRoads)
	n.HeadlineFields = normalizeHeadlineFields(n.HeadlineFields)

	// 6. Actions
	n.TapAction = normalizeAction(n.TapAction)
	n.DoubleTapAction = normalizeAction(n.DoubleTapAction)
	n.HoldAction = normalizeAction(n.HoldAction)

	// 7. Preset specific shape
	if n.Preset == PresetImportant {
		// Important traffic information carries no severity, so a filter would hide everything.
		n.FilterSeverities = []string{}
		if *n.UseDetails {
			n.MetaOrder = []string{Divider, FieldPeriod, FieldText}
		} else {
			n.MetaOrder = []string{FieldPeriod, FieldText}
		}
	} else {
		n.MetaOrder = NormalizeMetaOrder(n.MetaOrder)
	}

	if *n.ShowMap && !slices.Contains(n.MetaOrder, FieldMap) {
		n.MetaOrder = append(n.MetaOrder, FieldMap)
	}

	return n, nil
}

// NormalizeMetaOrder returns the canonical form of a meta_order list: the default order when it
// is empty, otherwise the known keys in their first position of appearance with "text" and the
// divider guaranteed to be present. Missing ones are appended divider first, then "text".
func NormalizeMetaOrder(order []string) []string {
	if len(order) == 0 {
		return slices.Clone(DefaultMetaOrder)
	}

	out := make([]string, 0, len(order)+2)
	for _, key := range order {
		key = strings.ToLower(strings.TrimSpace(key))
		if slices.Contains(deprecatedMetaKeys, key) || !slices.Contains(MetaFields, key) {
			continue
		}
		if slices.Contains(out, key) {
			continue
		}
		out = append(out, key)
	}

	// The divider goes first so that appended text lands in the details.
	if !slices.Contains(out, Divider) {
		out = append(out, Divider)
	}
	if !slices.Contains(out, FieldText) {
		out = append(out, FieldText)
	}

	return out
}

func normalizeSeverities(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		b, ok := incident.ParseBucket(s)
		if !ok || slices.Contains(out, string(b)) {
			continue
		}
		out = append(out, string(b))
	}
	return out
}

func normalizeRoads(in RoadList) RoadList {
	out := make(RoadList, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeHeadlineFields(in []string) []string {
	out := make([]string, 0, len(in))
	for _, key := range in {
		key = strings.ToLower(strings.TrimSpace(key))
		if !slices.Contains(HeadlineKeys, key) || slices.Contains(out, key) {
			continue
		}
		out = append(out, key)
	}
	return out
}

// pick returns v when it is one of allowed, otherwise def. Matching ignores case and surrounding
// whitespace.
func pick[T ~string](v, def T, allowed ...T) T {
	candidate := T(strings.ToLower(strings.TrimSpace(string(v))))
	if slices.Contains(allowed, candidate) {
		return candidate
	}
	return def
}

// Validate normalizes c and reports the configuration error, if any, in a form suitable for the
// configuration UI.
func Validate(c Config) error {
	if _, err := Normalize(c); err != nil {
		return fmt.Errorf("invalid card configuration: %w", err)
	}
	return nil
}
