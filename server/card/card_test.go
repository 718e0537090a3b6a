package card

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/entity"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo/scene"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/interaction"
)

const testEntity = "sensor.trafikinfo_se_olycka"

const twoAccidents = `{
	"entity_id": "sensor.trafikinfo_se_olycka",
	"state": 2,
	"attributes": {
		"friendly_name": "Olyckor",
		"entry_id": "entry-1",
		"events_total": 2,
		"max_items": 10,
		"last_change_id": "1",
		"events": [
			{"situation_id": "S1", "deviation_id": "D1", "event_key": "K1", "header": "Olycka",
			 "start_time": "2025-03-01T08:00:00Z", "severity_code": 5, "message": "Stopp i trafiken",
			 "geometry_wgs84": "POINT (18.0686 59.3293)"},
			{"situation_id": "S2", "deviation_id": "D2", "event_key": "K2", "header": "Olycka",
			 "start_time": "2025-03-01T07:00:00Z", "severity_code": 2, "message": "Vägarbete"}
		]
	}
}`

func decode(t *testing.T, data string) entity.State {
	t.Helper()
	s, err := entity.Decode([]byte(data))
	require.NoError(t, err)
	return s
}

func boolPtr(v bool) *bool {
	return &v
}

type testCard struct {
	*Card
	clock     *interaction.FakeClock
	commander *interaction.MockCommander
	changes   *atomic.Int32
}

func newTestCard(t *testing.T, cfg cardconfig.Config, deps Deps) *testCard {
	t.Helper()
	tc := &testCard{
		clock:     interaction.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		commander: &interaction.MockCommander{},
		changes:   &atomic.Int32{},
	}
	if deps.Commander == nil {
		deps.Commander = tc.commander
	}
	deps.Clock = tc.clock
	deps.OnChange = func(string) { tc.changes.Add(1) }
	if cfg.Entity == "" {
		cfg.Entity = testEntity
	}

	c, err := New("card-1", cfg, deps)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	tc.Card = c
	return tc
}

func TestNew(t *testing.T) {
	t.Run("requires an entity", func(t *testing.T) {
		_, err := New("card-1", cardconfig.Config{}, Deps{})
		require.ErrorIs(t, err, cardconfig.ErrMissingEntity)
	})

	t.Run("normalizes the configuration", func(t *testing.T) {
		c, err := New("card-1", cardconfig.Config{Entity: testEntity}, Deps{})
		require.NoError(t, err)
		defer c.Close()

		cfg := c.Config()
		assert.Equal(t, cardconfig.PresetAccident, cfg.Preset)
		assert.Equal(t, cardconfig.DefaultMetaOrder, cfg.MetaOrder)
		assert.Equal(t, testEntity, c.Entity())
		assert.False(t, c.HasState())
	})
}

func TestSetState(t *testing.T) {
	c := newTestCard(t, cardconfig.Config{}, Deps{})
	state := decode(t, twoAccidents)

	assert.True(t, c.SetState(state))
	assert.True(t, c.HasState())
	assert.False(t, c.SetState(state), "an identical state changes nothing")

	other := state
	other.EntityID = "sensor.other"
	assert.False(t, c.SetState(other), "states of other entities are ignored")

	changed := decode(t, twoAccidents)
	changed.Attributes.Events = changed.Attributes.Events[:1]
	assert.True(t, c.SetState(changed))
	assert.Len(t, c.Visible(), 1)
}

func TestRender(t *testing.T) {
	t.Run("hidden without a state", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{}, Deps{})
		out := c.Render()
		assert.True(t, out.Hidden)
		assert.Equal(t, 0, c.Size())
	})

	t.Run("incidents sorted by severity", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{}, Deps{})
		c.SetState(decode(t, twoAccidents))

		out := c.Render()
		require.False(t, out.Hidden)
		assert.Equal(t, "Olyckor", out.Header)
		assert.Equal(t, 3, out.Size)
		assert.Empty(t, out.Empty)
		require.Len(t, out.Groups, 1)
		require.Len(t, out.Groups[0].Items, 2)

		first := out.Groups[0].Items[0]
		assert.Equal(t, "K1", first.EventKey)
		assert.Equal(t, "sev-red", first.Accent)
		assert.NotNil(t, first.Icon)
		assert.False(t, first.Dismissable, "dismissal is off by default")
		assert.Nil(t, out.Footer)
	})

	t.Run("title overrides the entity name", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{Title: "Trafik"}, Deps{})
		c.SetState(decode(t, twoAccidents))
		assert.Equal(t, "Trafik", c.Render().Header)
	})

	t.Run("empty list explains a zero cap", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{}, Deps{Locale: "en"})
		c.SetState(decode(t, `{"entity_id": "sensor.trafikinfo_se_olycka",
			"attributes": {"events": [], "events_total": 3, "max_items": 0}}`))

		out := c.Render()
		assert.False(t, out.Hidden)
		assert.Contains(t, out.Empty, "max_items")
	})

	t.Run("empty list without a cap", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{}, Deps{Locale: "sv-SE"})
		c.SetState(decode(t, `{"entity_id": "sensor.trafikinfo_se_olycka", "attributes": {"events": []}}`))
		assert.Equal(t, "Inga olyckor", c.Render().Empty)
	})

	t.Run("hide when empty", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{HideWhenEmpty: boolPtr(true)}, Deps{})
		c.SetState(decode(t, `{"entity_id": "sensor.trafikinfo_se_olycka", "attributes": {"events": []}}`))
		assert.True(t, c.Render().Hidden)
	})

	t.Run("no header", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{ShowHeader: boolPtr(false)}, Deps{})
		c.SetState(decode(t, twoAccidents))
		out := c.Render()
		assert.Empty(t, out.Header)
		assert.Equal(t, 2, out.Size)
	})
}

func TestToggle(t *testing.T) {
	c := newTestCard(t, cardconfig.Config{}, Deps{})
	c.SetState(decode(t, twoAccidents))

	items := c.Render().Groups[0].Items
	require.Equal(t, items[0].Headline, items[1].Headline, "identical headlines must not share state")
	require.NotEqual(t, items[0].Key, items[1].Key)

	expanded, err := c.Toggle(items[0].Key)
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.True(t, c.Expanded(items[0].Key))
	assert.False(t, c.Expanded(items[1].Key))

	items = c.Render().Groups[0].Items
	assert.True(t, items[0].Expanded)
	assert.NotEmpty(t, items[0].Details)
	assert.False(t, items[1].Expanded)
	assert.Empty(t, items[1].Details)

	expanded, err = c.Toggle(items[0].Key)
	require.NoError(t, err)
	assert.False(t, expanded)

	_, err = c.Toggle("missing")
	assert.ErrorIs(t, err, ErrUnknownAlert)
}

func TestDismiss(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{}, Deps{})
		c.SetState(decode(t, twoAccidents))
		key := c.Visible()[0].Key()

		assert.ErrorIs(t, c.Dismiss(key), ErrDismissDisabled)
		assert.ErrorIs(t, c.RestoreAll(), ErrDismissDisabled)
	})

	t.Run("hides the incident and sends the command", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{EnableDismiss: boolPtr(true)}, Deps{})
		c.SetState(decode(t, twoAccidents))
		key := c.Visible()[0].Key()

		require.NoError(t, c.Dismiss(key))
		assert.True(t, c.Render().Groups[0].Items[0].Dismissing)

		c.clock.Advance(interaction.DefaultTransition)
		c.Wait()

		visible := c.Visible()
		require.Len(t, visible, 1)
		assert.Equal(t, "K2", visible[0].EventKey.String())

		requests := c.commander.DismissRequests()
		require.Len(t, requests, 1)
		assert.Equal(t, "entry-1", requests[0].EntryID)
		assert.Equal(t, "K1", requests[0].EventKey)
		assert.NotEmpty(t, requests[0].Signature)

		out := c.Render()
		require.NotNil(t, out.Footer)
		assert.Equal(t, 1, out.Footer.Count)
		assert.Positive(t, c.changes.Load())
	})

	t.Run("permanent dismissal carries no signature", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{
			EnableDismiss:   boolPtr(true),
			DismissBehavior: cardconfig.DismissPermanent,
		}, Deps{})
		c.SetState(decode(t, twoAccidents))

		require.NoError(t, c.Dismiss(c.Visible()[0].Key()))
		c.clock.Advance(interaction.DefaultTransition)
		c.Wait()

		requests := c.commander.DismissRequests()
		require.Len(t, requests, 1)
		assert.Empty(t, requests[0].Signature)
	})

	t.Run("failure restores the incident", func(t *testing.T) {
		commander := &interaction.MockCommander{
			DismissFn: func(context.Context, interaction.DismissRequest) error {
				return errors.New("service unavailable")
			},
		}
		c := newTestCard(t, cardconfig.Config{EnableDismiss: boolPtr(true)}, Deps{Commander: commander})
		c.SetState(decode(t, twoAccidents))

		require.NoError(t, c.Dismiss(c.Visible()[0].Key()))
		c.clock.Advance(interaction.DefaultTransition)
		c.Wait()

		assert.Len(t, c.Visible(), 2)
		assert.Nil(t, c.Render().Footer)
	})

	t.Run("incidents without an event key", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{EnableDismiss: boolPtr(true)}, Deps{})
		c.SetState(decode(t, `{"entity_id": "sensor.trafikinfo_se_olycka",
			"attributes": {"events": [{"situation_id": "S1", "header": "Olycka"}]}}`))

		item := c.Render().Groups[0].Items[0]
		assert.False(t, item.Dismissable)
		assert.ErrorIs(t, c.Dismiss(item.Key), ErrNotDismissable)
	})

	t.Run("restore all", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{EnableDismiss: boolPtr(true)}, Deps{})
		c.SetState(decode(t, twoAccidents))

		require.NoError(t, c.Dismiss(c.Visible()[0].Key()))
		c.clock.Advance(interaction.DefaultTransition)
		c.Wait()
		require.Len(t, c.Visible(), 1)

		require.NoError(t, c.RestoreAll())
		c.Wait()

		assert.Len(t, c.Visible(), 2)
		assert.Equal(t, []string{"entry-1"}, c.commander.RestoreRequests())
	})
}

func TestSetConfigResetsTransientState(t *testing.T) {
	c := newTestCard(t, cardconfig.Config{EnableDismiss: boolPtr(true)}, Deps{})
	c.SetState(decode(t, twoAccidents))
	key := c.Visible()[0].Key()

	_, err := c.Toggle(key)
	require.NoError(t, err)
	require.NoError(t, c.Dismiss(key))

	require.NoError(t, c.SetConfig(cardconfig.Config{Entity: testEntity, EnableDismiss: boolPtr(true)}))

	assert.False(t, c.Expanded(key))
	assert.Len(t, c.Visible(), 2)
	assert.True(t, c.HasState(), "the state survives when the entity is unchanged")
	assert.Equal(t, 0, c.clock.Pending())

	require.Error(t, c.SetConfig(cardconfig.Config{}))
	assert.Equal(t, testEntity, c.Entity(), "an invalid configuration is not applied")

	require.NoError(t, c.SetConfig(cardconfig.Config{Entity: "sensor.other"}))
	assert.False(t, c.HasState())
}

type recordingHost struct {
	entity  atomic.Value
	invoked atomic.Int32
}

func (h *recordingHost) MoreInfo(_ context.Context, entityID string) error {
	h.entity.Store(entityID)
	h.invoked.Add(1)
	return nil
}

func (h *recordingHost) Navigate(context.Context, string) error { return nil }
func (h *recordingHost) OpenURL(context.Context, string) error  { return nil }

func (h *recordingHost) CallService(context.Context, string, string, map[string]any) error {
	return nil
}

func TestPointer(t *testing.T) {
	host := &recordingHost{}
	c := newTestCard(t, cardconfig.Config{
		HoldAction: &cardconfig.Action{Action: cardconfig.ActionMoreInfo},
	}, Deps{Host: host})
	c.SetState(decode(t, twoAccidents))
	key := c.Visible()[0].Key()

	require.NoError(t, c.Pointer(key, PointerEvent{Type: PointerDown}))
	c.clock.Advance(interaction.DefaultTimings.Hold)
	require.NoError(t, c.Pointer(key, PointerEvent{Type: PointerUp}))
	c.Wait()

	assert.Equal(t, int32(1), host.invoked.Load())
	assert.Equal(t, testEntity, host.entity.Load())

	assert.ErrorIs(t, c.Pointer("missing", PointerEvent{Type: PointerDown}), ErrUnknownAlert)
	assert.Error(t, c.Pointer(key, PointerEvent{Type: "wiggle"}))
}

func TestMaps(t *testing.T) {
	showMap := cardconfig.Config{
		ShowMap:   boolPtr(true),
		MetaOrder: []string{cardconfig.FieldMap, cardconfig.Divider, cardconfig.FieldText},
	}

	t.Run("attaches a map per incident with geometry", func(t *testing.T) {
		provider := geo.NewProvider(scene.StaticLoader(scene.OpenStreetMap), nil, time.Second, nil)
		c := newTestCard(t, showMap, Deps{Maps: provider})
		c.SetState(decode(t, twoAccidents))

		statuses := c.Maps(context.Background())
		require.Len(t, statuses, 1)
		key := c.Visible()[0].Key()
		assert.True(t, statuses[key].Ready)
		assert.Equal(t, 1, c.MapInstances())

		c.Close()
		assert.Equal(t, 0, c.MapInstances())
	})

	t.Run("dismissed incidents release their map", func(t *testing.T) {
		provider := geo.NewProvider(scene.StaticLoader(scene.OpenStreetMap), nil, time.Second, nil)
		cfg := showMap
		cfg.EnableDismiss = boolPtr(true)
		c := newTestCard(t, cfg, Deps{Maps: provider})
		c.SetState(decode(t, twoAccidents))

		c.Maps(context.Background())
		require.Equal(t, 1, c.MapInstances())

		require.NoError(t, c.Dismiss(c.Visible()[0].Key()))
		c.clock.Advance(interaction.DefaultTransition)
		c.Wait()

		assert.Empty(t, c.Maps(context.Background()))
		assert.Equal(t, 0, c.MapInstances())
	})

	t.Run("render releases the map of a removed incident", func(t *testing.T) {
		provider := geo.NewProvider(scene.StaticLoader(scene.OpenStreetMap), nil, time.Second, nil)
		c := newTestCard(t, showMap, Deps{Maps: provider})
		c.SetState(decode(t, twoAccidents))

		c.Maps(context.Background())
		require.Equal(t, 1, c.MapInstances())

		c.SetState(decode(t, `{
			"entity_id": "sensor.trafikinfo_se_olycka",
			"attributes": {
				"last_change_id": "2",
				"events": [
					{"situation_id": "S2", "deviation_id": "D2", "event_key": "K2", "header": "Olycka",
					 "start_time": "2025-03-01T07:00:00Z", "severity_code": 2}
				]
			}
		}`))
		c.Render()

		assert.Equal(t, 0, c.MapInstances())
	})

	t.Run("render releases the map of a collapsed item", func(t *testing.T) {
		provider := geo.NewProvider(scene.StaticLoader(scene.OpenStreetMap), nil, time.Second, nil)
		cfg := cardconfig.Config{
			ShowMap:   boolPtr(true),
			MetaOrder: []string{cardconfig.FieldRoad, cardconfig.Divider, cardconfig.FieldMap},
		}
		c := newTestCard(t, cfg, Deps{Maps: provider})
		c.SetState(decode(t, twoAccidents))
		key := c.Visible()[0].Key()

		assert.Empty(t, c.Maps(context.Background()), "collapsed items have no map")

		expanded, err := c.Toggle(key)
		require.NoError(t, err)
		require.True(t, expanded)
		c.Maps(context.Background())
		require.Equal(t, 1, c.MapInstances())

		expanded, err = c.Toggle(key)
		require.NoError(t, err)
		require.False(t, expanded)
		c.Render()

		assert.Equal(t, 0, c.MapInstances())
	})

	t.Run("render keeps maps that are still shown", func(t *testing.T) {
		provider := geo.NewProvider(scene.StaticLoader(scene.OpenStreetMap), nil, time.Second, nil)
		c := newTestCard(t, showMap, Deps{Maps: provider})
		c.SetState(decode(t, twoAccidents))

		c.Maps(context.Background())
		c.Render()

		assert.Equal(t, 1, c.MapInstances())
	})

	t.Run("without a provider", func(t *testing.T) {
		c := newTestCard(t, showMap, Deps{})
		c.SetState(decode(t, twoAccidents))

		statuses := c.Maps(context.Background())
		require.Len(t, statuses, 1)
		for _, s := range statuses {
			assert.False(t, s.Ready)
			assert.NotEmpty(t, s.Error)
		}
	})

	t.Run("maps are off by default", func(t *testing.T) {
		c := newTestCard(t, cardconfig.Config{}, Deps{})
		c.SetState(decode(t, twoAccidents))
		assert.Empty(t, c.Maps(context.Background()))
	})
}

func TestClose(t *testing.T) {
	c := newTestCard(t, cardconfig.Config{EnableDismiss: boolPtr(true)}, Deps{})
	c.SetState(decode(t, twoAccidents))
	key := c.Visible()[0].Key()
	require.NoError(t, c.Dismiss(key))

	c.Close()
	c.Close()

	assert.Equal(t, 0, c.clock.Pending())
	assert.False(t, c.SetState(decode(t, twoAccidents)))
	assert.ErrorIs(t, c.Pointer(key, PointerEvent{Type: PointerDown}), ErrUnknownAlert)
}
