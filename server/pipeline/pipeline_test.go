package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
)

func normalized(t *testing.T, c cardconfig.Config) cardconfig.Config {
	t.Helper()
	if c.Entity == "" {
		c.Entity = "sensor.trafikinfo_se_olycka"
	}
	n, err := cardconfig.Normalize(c)
	require.NoError(t, err)
	return n
}

func record(id string, code float64, start string) incident.Record {
	return incident.Record{
		SituationID:  incident.Text(id),
		EventKey:     incident.Text("key-" + id),
		SeverityCode: incident.NewNumber(code),
		StartTime:    incident.TimeString(start),
	}
}

func ids(records []incident.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.SituationID.String()
	}
	return out
}

func TestVisible_SeverityFilter(t *testing.T) {
	records := []incident.Record{
		record("high", 5, "2025-03-01T08:00:00Z"),
		record("medium", 3, "2025-03-01T09:00:00Z"),
		record("low", 1, "2025-03-01T10:00:00Z"),
		{SituationID: "text-high", SeverityText: "Mycket stor påverkan"},
	}

	cfg := normalized(t, cardconfig.Config{FilterSeverities: []string{"HIGH"}})
	got := Visible(records, cfg, Options{})
	require.NotEmpty(t, got)
	for _, r := range got {
		assert.Equal(t, incident.BucketHigh, incident.Classify(r))
	}
	assert.ElementsMatch(t, []string{"high", "text-high"}, ids(got))

	important := normalized(t, cardconfig.Config{Preset: cardconfig.PresetImportant})
	important.FilterSeverities = []string{"HIGH"} // even when set after normalization
	assert.Len(t, Visible(records, important, Options{}), len(records))
}

func TestVisible_RoadFilter(t *testing.T) {
	records := []incident.Record{
		{SituationID: "by-number", RoadNumber: "73"},
		{SituationID: "by-name", RoadName: "Väg 73 mot Nynäshamn"},
		{SituationID: "other", RoadName: "E4", RoadNumber: "E4"},
		{SituationID: "none"},
	}

	cfg := normalized(t, cardconfig.Config{FilterRoads: cardconfig.RoadList{"väg 73"}})
	assert.Equal(t, []string{"by-number", "by-name"}, ids(Visible(records, cfg, Options{})))

	cfg = normalized(t, cardconfig.Config{FilterRoads: cardconfig.RoadList{"Road  E4", "  "}})
	assert.Equal(t, []string{"other"}, ids(Visible(records, cfg, Options{})))

	empty := normalized(t, cardconfig.Config{})
	empty.FilterRoads = cardconfig.RoadList{"", "   "}
	assert.Len(t, Visible(records, empty, Options{}), len(records), "empty tokens do not filter")
}

func TestVisible_Sort(t *testing.T) {
	older := record("high-old", 4, "2025-03-01T08:00:00Z")
	newer := record("low-new", 1, "2025-03-02T08:00:00Z")
	records := []incident.Record{older, newer}

	byTime := normalized(t, cardconfig.Config{SortOrder: cardconfig.SortTimeDesc})
	assert.Equal(t, []string{"low-new", "high-old"}, ids(Visible(records, byTime, Options{})))

	bySeverity := normalized(t, cardconfig.Config{SortOrder: cardconfig.SortSeverityThenTime})
	assert.Equal(t, []string{"high-old", "low-new"}, ids(Visible(records, bySeverity, Options{})))

	t.Run("ties broken by time", func(t *testing.T) {
		a := record("a", 3, "2025-03-01T08:00:00Z")
		b := record("b", 3, "2025-03-01T09:00:00Z")
		assert.Equal(t, []string{"b", "a"}, ids(Visible([]incident.Record{a, b}, bySeverity, Options{})))
	})

	t.Run("unresolvable times keep source order", func(t *testing.T) {
		a := incident.Record{SituationID: "a"}
		b := incident.Record{SituationID: "b", StartTime: incident.TimeString("garbage")}
		assert.Equal(t, []string{"a", "b"}, ids(Visible([]incident.Record{a, b}, byTime, Options{})))
	})
}

func TestVisible_Cap(t *testing.T) {
	var records []incident.Record
	for i, start := range []string{"01", "05", "03", "02", "04"} {
		records = append(records, record(string(rune('a'+i)), 2, "2025-03-"+start+"T00:00:00Z"))
	}

	all := Visible(records, normalized(t, cardconfig.Config{}), Options{})
	capped := Visible(records, normalized(t, cardconfig.Config{MaxItems: 2}), Options{})

	require.Len(t, capped, 2)
	assert.Equal(t, ids(all[:2]), ids(capped))
}

func TestVisible_Hidden(t *testing.T) {
	records := []incident.Record{record("a", 1, ""), record("b", 1, ""), {SituationID: "no-key"}}
	got := Visible(records, normalized(t, cardconfig.Config{}), Options{Hidden: map[string]bool{"key-a": true, "": true}})
	assert.Equal(t, []string{"b", "no-key"}, ids(got))
}

func TestVisible_Deterministic(t *testing.T) {
	records := []incident.Record{
		record("a", 3, "2025-03-01T08:00:00Z"),
		record("b", 3, "2025-03-01T08:00:00Z"),
		record("c", 0, ""),
		{SituationID: "d", SeverityText: "låg", RoadName: "E4"},
	}
	cfg := normalized(t, cardconfig.Config{})

	first := Visible(records, cfg, Options{})
	for range 5 {
		assert.Equal(t, first, Visible(records, cfg, Options{}))
	}
	assert.Equal(t, "a", records[0].SituationID.String(), "input is not reordered")
}

func TestNormalizeRoadToken(t *testing.T) {
	tests := map[string]string{
		"Väg 73":       "73",
		"vag  163":     "163",
		"ROAD E4":      "e4",
		"  E 4  ":      "e 4",
		"Vägen":        "vägen",
		"":             "",
		"   ":          "",
		"väg\t 222  x": "222 x",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, NormalizeRoadToken(in), in)
	}
}

func TestGroupRecords(t *testing.T) {
	records := []incident.Record{
		{SituationID: "1", RoadName: "Östra vägen"},
		{SituationID: "2", RoadNumber: "E4"},
		{SituationID: "3"},
		{SituationID: "4", RoadName: "Abbekås"},
		{SituationID: "5", RoadName: "Östra vägen"},
	}

	t.Run("none", func(t *testing.T) {
		groups := GroupRecords(records, cardconfig.GroupNone, language.Swedish)
		require.Len(t, groups, 1)
		assert.Empty(t, groups[0].Label)
		assert.Len(t, groups[0].Records, len(records))
	})

	t.Run("road uses collation", func(t *testing.T) {
		groups := GroupRecords(records, cardconfig.GroupRoad, language.Swedish)
		labels := make([]string, len(groups))
		for i, g := range groups {
			labels[i] = g.Label
		}
		assert.Equal(t, []string{NoRoad, "Abbekås", "E4", "Östra vägen"}, labels)
		assert.Equal(t, []string{"1", "5"}, ids(groups[3].Records))
	})

	t.Run("severity ordered by rank", func(t *testing.T) {
		sev := []incident.Record{
			{SituationID: "u"},
			{SituationID: "l", SeverityCode: incident.NewNumber(1)},
			{SituationID: "h", SeverityCode: incident.NewNumber(4)},
			{SituationID: "h2", SeverityCode: incident.NewNumber(5)},
		}
		groups := GroupRecords(sev, cardconfig.GroupSeverity, language.English)
		require.Len(t, groups, 3)
		assert.Equal(t, "HIGH", groups[0].Label)
		assert.Equal(t, []string{"h", "h2"}, ids(groups[0].Records))
		assert.Equal(t, "LOW", groups[1].Label)
		assert.Equal(t, "UNKNOWN", groups[2].Label)
	})
}
