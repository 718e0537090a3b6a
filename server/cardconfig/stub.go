package cardconfig

import "strings"

// StubConfig returns the suggested starting configuration for a new card of the given preset,
// bound to the best matching entity among the ones the host knows about.
func StubConfig(preset Preset, entities []string) Config {
	empty := func() *Action { return &Action{} }

	if preset == PresetImportant {
		return Config{
			Preset:          PresetImportant,
			Entity:          suggestEntity(entities, "sensor.trafikinfo_se_viktig_trafikinformation", "viktig_trafikinformation"),
			ShowHeader:      boolPtr(true),
			ShowIcon:        boolPtr(true),
			HideWhenEmpty:   boolPtr(true),
			UseDetails:      boolPtr(true),
			MetaOrder:       []string{Divider, FieldPeriod, FieldText},
			TapAction:       empty(),
			DoubleTapAction: empty(),
			HoldAction:      empty(),
		}
	}

	return Config{
		Preset:             PresetAccident,
		Entity:             suggestEntity(entities, "sensor.trafikinfo_se_olycka", ""),
		ShowHeader:         boolPtr(true),
		ShowIcon:           boolPtr(true),
		SeverityBackground: boolPtr(false),
		HideWhenEmpty:      boolPtr(true),
		SortOrder:          SortSeverityThenTime,
		GroupBy:            GroupNone,
		FilterSeverities:   []string{},
		FilterRoads:        RoadList{},
		ShowRoad:           boolPtr(true),
		ShowLocation:       boolPtr(true),
		ShowSeverity:       boolPtr(true),
		ShowRestriction:    boolPtr(true),
		ShowDirection:      boolPtr(true),
		ShowPeriod:         boolPtr(true),
		ShowPublished:      boolPtr(true),
		ShowUpdated:        boolPtr(true),
		ShowLink:           boolPtr(true),
		ShowText:           boolPtr(true),
		MetaOrder:          append([]string(nil), DefaultMetaOrder...),
		TapAction:          empty(),
		DoubleTapAction:    empty(),
		HoldAction:         empty(),
	}
}

// suggestEntity picks, in order: the exact preferred id, an id containing hint, any Trafikinfo
// sensor, any sensor. It returns "" when nothing matches.
func suggestEntity(entities []string, preferred, hint string) string {
	matchers := []func(string) bool{
		func(e string) bool { return e == preferred },
		func(e string) bool { return hint != "" && strings.Contains(e, hint) },
		func(e string) bool { return strings.HasPrefix(e, "sensor.trafikinfo_se_") },
		func(e string) bool { return strings.HasPrefix(e, "sensor.") },
	}
	for _, match := range matchers {
		for _, e := range entities {
			if e != "" && match(e) {
				return e
			}
		}
	}
	return ""
}

func boolPtr(v bool) *bool {
	return &v
}
