package mapview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/entity"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo/scene"
)

const (
	accidents = "sensor.trafikinfo_se_olycka"
	roadworks = "sensor.trafikinfo_se_vagarbete"
)

func state(t *testing.T, data string) entity.State {
	t.Helper()
	s, err := entity.Decode([]byte(data))
	require.NoError(t, err)
	return s
}

const accidentState = `{
	"entity_id": "sensor.trafikinfo_se_olycka",
	"attributes": {"events": [
		{"situation_id": "S1", "header": "Olycka", "road_number": "E4", "location_descriptor": "Häggvik",
		 "start_time": "2025-03-01T08:00:00Z", "severity_code": 5,
		 "geometry_wgs84": "POINT (17.9300 59.4400)"},
		{"situation_id": "S2", "header": "Olycka utan plats", "severity_code": 2}
	]}
}`

const roadworkState = `{
	"entity_id": "sensor.trafikinfo_se_vagarbete",
	"attributes": {"events": [
		{"situation_id": "R1", "header": "Vägarbete", "severity_code": 2,
		 "geometry_wgs84": "LINESTRING (18.0 59.3, 18.1 59.35)"}
	]}
}`

func newView(t *testing.T, cfg Config, provider *geo.Provider) *View {
	t.Helper()
	v, err := New("view-1", cfg, Deps{Maps: provider, Locale: "sv"})
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func staticProvider() *geo.Provider {
	return geo.NewProvider(scene.StaticLoader(scene.OpenStreetMap), nil, time.Second, nil)
}

func TestNormalize(t *testing.T) {
	t.Run("requires an entity", func(t *testing.T) {
		_, err := Normalize(Config{Entities: []string{" ", ""}})
		require.ErrorIs(t, err, ErrNoEntities)
	})

	t.Run("deduplicates entities and fills defaults", func(t *testing.T) {
		cfg, err := Normalize(Config{Entities: []string{accidents, " " + accidents, roadworks}, Zoom: -2})
		require.NoError(t, err)
		assert.Equal(t, []string{accidents, roadworks}, cfg.Entities)
		assert.Equal(t, 0, cfg.Zoom)
		require.NotNil(t, cfg.ZoomControls)
		assert.True(t, *cfg.ZoomControls)
		require.NotNil(t, cfg.ScrollWheelZoom)
		assert.False(t, *cfg.ScrollWheelZoom)
	})
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("title: Trafik\nentities:\n  - sensor.a\n  - sensor.b\nmap_zoom: 9\n"))
	require.NoError(t, err)
	assert.Equal(t, "Trafik", cfg.Title)
	assert.Equal(t, []string{"sensor.a", "sensor.b"}, cfg.Entities)
	assert.Equal(t, 9, cfg.Zoom)

	_, err = Parse([]byte("entities: ["))
	require.Error(t, err)
}

func TestMarkers(t *testing.T) {
	v := newView(t, Config{Entities: []string{accidents, roadworks}}, nil)

	assert.True(t, v.SetState(state(t, roadworkState)))
	assert.True(t, v.SetState(state(t, accidentState)))
	assert.False(t, v.SetState(state(t, `{"entity_id": "sensor.other"}`)))

	markers := v.Markers()
	require.Len(t, markers, 2, "incidents without geometry are left out")

	assert.Equal(t, accidents, markers[0].EntityID, "entities keep their configured order")
	assert.Equal(t, "Olycka", markers[0].Headline)
	assert.Equal(t, "sev-red", markers[0].Accent)
	assert.Contains(t, markers[0].Popup, "Olycka\nE4 · Häggvik")
	require.Len(t, markers[0].Coords, 1)

	assert.Equal(t, roadworks, markers[1].EntityID)
	assert.Len(t, markers[1].Coords, 2)
	assert.NotEqual(t, markers[0].Key, markers[1].Key)

	assert.Len(t, strings.Split(markers[0].Popup, "\n"), 3, "headline, place and period")
	assert.Equal(t, markers[1].Headline, markers[1].Popup, "no period line without times")
	assert.NotContains(t, markers[1].Popup, "Okänt")
}

func TestMarkers_SeverityFilter(t *testing.T) {
	v := newView(t, Config{Entities: []string{accidents, roadworks}, FilterSeverities: []string{"high"}}, nil)
	v.SetState(state(t, accidentState))
	v.SetState(state(t, roadworkState))

	markers := v.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, accidents, markers[0].EntityID)
}

func TestSync(t *testing.T) {
	t.Run("draws every marker on one map", func(t *testing.T) {
		v := newView(t, Config{Entities: []string{accidents, roadworks}}, staticProvider())
		v.SetState(state(t, accidentState))
		v.SetState(state(t, roadworkState))

		res := v.Sync(context.Background())
		require.True(t, res.Ready, res.Error)
		assert.Len(t, res.Markers, 2)
		assert.Equal(t, 2, v.Layers())

		sc, ok := res.Scene.(scene.Scene)
		require.True(t, ok)
		assert.Equal(t, "mapview-view-1", sc.Container)
		require.Len(t, sc.Layers, 2)
		assert.Equal(t, scene.KindPoint, sc.Layers[0].Kind)
		assert.NotEmpty(t, sc.Layers[0].Style.Popup)
		assert.Equal(t, scene.KindLine, sc.Layers[1].Kind)
		assert.Len(t, sc.View.Bounds, 2, "the view fits all markers")
	})

	t.Run("keeps unchanged layers and drops stale ones", func(t *testing.T) {
		v := newView(t, Config{Entities: []string{accidents, roadworks}}, staticProvider())
		v.SetState(state(t, accidentState))
		v.SetState(state(t, roadworkState))

		first := v.Sync(context.Background()).Scene.(scene.Scene)
		second := v.Sync(context.Background()).Scene.(scene.Scene)
		assert.Equal(t, first.Layers, second.Layers)

		v.SetState(state(t, `{"entity_id": "sensor.trafikinfo_se_vagarbete", "attributes": {"events": []}}`))
		third := v.Sync(context.Background()).Scene.(scene.Scene)
		require.Len(t, third.Layers, 1)
		assert.Equal(t, first.Layers[0].LayerID, third.Layers[0].LayerID)
		require.NotNil(t, third.View.Center, "a single point is centered")
	})

	t.Run("fixed zoom", func(t *testing.T) {
		v := newView(t, Config{Entities: []string{accidents, roadworks}, Zoom: 8}, staticProvider())
		v.SetState(state(t, accidentState))
		v.SetState(state(t, roadworkState))

		sc := v.Sync(context.Background()).Scene.(scene.Scene)
		require.NotNil(t, sc.View.Center)
		assert.Equal(t, 8, sc.View.Zoom)
	})

	t.Run("no markers releases the map", func(t *testing.T) {
		v := newView(t, Config{Entities: []string{accidents}}, staticProvider())
		v.SetState(state(t, accidentState))
		require.True(t, v.Sync(context.Background()).Ready)

		v.SetState(state(t, `{"entity_id": "sensor.trafikinfo_se_olycka", "attributes": {"events": []}}`))
		res := v.Sync(context.Background())
		assert.False(t, res.Ready)
		assert.Equal(t, "Inga olyckor", res.Empty)
		assert.Equal(t, 0, v.Layers())
	})

	t.Run("backend failure is reported and retried", func(t *testing.T) {
		fail := true
		loader := func(ctx context.Context) (geo.Backend, error) {
			if fail {
				return nil, errors.New("tiles unreachable")
			}
			return scene.New(scene.OpenStreetMap), nil
		}
		v := newView(t, Config{Entities: []string{accidents}}, geo.NewProvider(loader, nil, time.Second, nil))
		v.SetState(state(t, accidentState))

		res := v.Sync(context.Background())
		assert.False(t, res.Ready)
		assert.Equal(t, "Kartan kunde inte laddas", res.Error)
		assert.Len(t, res.Markers, 1)

		fail = false
		assert.True(t, v.Sync(context.Background()).Ready)
	})

	t.Run("without a provider", func(t *testing.T) {
		v := newView(t, Config{Entities: []string{accidents}}, nil)
		v.SetState(state(t, accidentState))
		assert.NotEmpty(t, v.Sync(context.Background()).Error)
	})

	t.Run("closed view", func(t *testing.T) {
		v := newView(t, Config{Entities: []string{accidents}}, staticProvider())
		v.SetState(state(t, accidentState))
		require.True(t, v.Sync(context.Background()).Ready)

		v.Close()
		assert.Equal(t, 0, v.Layers())
		assert.False(t, v.SetState(state(t, accidentState)))
		res := v.Sync(context.Background())
		assert.False(t, res.Ready)
		assert.Empty(t, res.Markers)
	})
}

func TestValidateSettings(t *testing.T) {
	valid := Settings{
		ID:     "550e8400-e29b-41d4-a716-446655440000",
		Name:   "Trafikkarta",
		Config: "entities: [sensor.trafikinfo_se_olycka]",
	}

	require.NoError(t, ValidateSettings(nil))
	require.NoError(t, ValidateSettings([]Settings{valid}))

	tests := []struct {
		name   string
		modify func(s *Settings)
		errMsg string
	}{
		{"missing ID", func(s *Settings) { s.ID = "" }, "missing required field 'id'"},
		{"missing name", func(s *Settings) { s.Name = "" }, "missing required field 'name'"},
		{"invalid UUID", func(s *Settings) { s.ID = "nope" }, "invalid UUID format"},
		{"UUID v1", func(s *Settings) { s.ID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8" }, "must be a UUID v4"},
		{"no entities", func(s *Settings) { s.Config = "title: x" }, "at least one entity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.modify(&s)
			err := ValidateSettings([]Settings{s})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("duplicates", func(t *testing.T) {
		other := valid
		other.Name = "Other"
		err := ValidateSettings([]Settings{valid, other})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate map view ID")
	})
}
