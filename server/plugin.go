package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/mattermost/mattermost/server/public/pluginapi"
	"github.com/pkg/errors"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/card"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/command"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/entity"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo/scene"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/mapview"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/notify"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/poster"
)

const (
	botUsername    = "trafikinfo"
	botDisplayName = "Trafikinfo"
)

// Plugin implements the interface expected by the Mattermost server to communicate between the server and plugin processes.
type Plugin struct {
	plugin.MattermostPlugin

	// client is the Mattermost server API client.
	client *pluginapi.Client

	// configurationLock synchronizes access to the configuration.
	configurationLock sync.RWMutex

	// configuration is the active plugin configuration. Consult getConfiguration and
	// setConfiguration for usage.
	configuration *configuration

	// registry manages all active card instances.
	registry *card.Registry

	// mapViewsLock guards mapViews.
	mapViewsLock sync.RWMutex
	mapViews     map[string]*mapview.View

	// poster keeps one post per card in its channel.
	poster *poster.Poster

	// notifier publishes card invalidations to event stream clients.
	notifier *notify.Notifier

	// states keeps the last pushed state of every entity.
	states *StateStore

	// servicesLock guards the collaborators shared by all cards.
	servicesLock sync.RWMutex
	services     services

	// router serves the plugin HTTP API.
	router http.Handler
}

// services are built from the plugin configuration and shared by every card and map view.
type services struct {
	maps     *geo.Provider
	commands *command.Client
	locale   string
	location *time.Location
}

// OnActivate is invoked when the plugin is activated. If an error is returned, the plugin will be deactivated.
func (p *Plugin) OnActivate() error {
	p.client = pluginapi.NewClient(p.API, p.Driver)

	botID, err := p.API.EnsureBotUser(&model.Bot{
		Username:    botUsername,
		DisplayName: botDisplayName,
		Description: "Bot for posting traffic incident cards to Mattermost channels",
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure bot user")
	}

	p.API.LogInfo("Bot user initialized", "botID", botID, "username", botUsername)

	p.registry = card.NewRegistry()
	p.mapViews = make(map[string]*mapview.View)
	p.notifier = notify.New()
	p.states = NewStateStore(p.client)
	p.poster = poster.New(p.API, botID)
	p.router = p.initRouter()

	config := p.getConfiguration()
	p.configureServices(config)

	// Initialize cards and map views from current configuration
	for _, s := range config.Cards {
		p.createCard(s)
	}
	p.reloadMapViews(config)

	return nil
}

// OnDeactivate is invoked when the plugin is deactivated.
func (p *Plugin) OnDeactivate() error {
	if p.registry != nil {
		p.registry.UnregisterAll()
	}

	p.mapViewsLock.Lock()
	for _, v := range p.mapViews {
		v.Close()
	}
	p.mapViews = make(map[string]*mapview.View)
	p.mapViewsLock.Unlock()

	if p.notifier != nil {
		p.notifier.Close()
	}

	if p.states != nil {
		p.states.Stop()
	}

	return nil
}

// configureServices rebuilds the map provider and the command client from the configuration.
func (p *Plugin) configureServices(config *configuration) {
	location, err := config.location()
	if err != nil {
		// The configuration was validated, so this only happens before the first load.
		location = time.UTC
	}

	fallback := scene.StaticLoader(scene.OpenStreetMap)
	primary := fallback
	if config.TileServerURL != "" {
		primary = scene.TileJSONLoader(&http.Client{Timeout: geo.DefaultLoadTimeout}, config.TileServerURL)
	}

	s := services{
		maps:     geo.NewProvider(primary, fallback, geo.DefaultLoadTimeout, &p.client.Log),
		commands: command.NewClient(config.CommandURL, config.CommandToken, &p.client.Log),
		locale:   config.Language,
		location: location,
	}

	p.servicesLock.Lock()
	p.services = s
	p.servicesLock.Unlock()

	p.API.LogInfo("Services configured", "tileServer", config.TileServerURL != "", "commandURL", config.CommandURL != "", "language", config.Language)
}

func (p *Plugin) getServices() services {
	p.servicesLock.RLock()
	defer p.servicesLock.RUnlock()
	return p.services
}

// createCard creates a card instance and registers it.
// Disabled cards are not registered. Logs errors but does not fail - errors are non-fatal for
// individual cards.
func (p *Plugin) createCard(s card.Settings) {
	if !s.Enabled {
		p.API.LogInfo("Card not registered (disabled)", "id", s.ID, "name", s.Name)
		p.removePost(s.ID)
		return
	}

	raw, err := s.ParseConfig()
	if err != nil {
		p.API.LogError("Failed to parse card configuration", "id", s.ID, "name", s.Name, "error", err.Error())
		return
	}

	svc := p.getServices()
	c, err := card.New(s.ID, raw, card.Deps{
		Commander: svc.commands,
		Host:      newCardHost(p.API, s.ID, s.ChannelID, svc.commands),
		Maps:      svc.maps,
		Logger:    &p.client.Log,
		Locale:    svc.locale,
		Location:  svc.location,
		OnChange:  p.cardChanged,
	})
	if err != nil {
		p.API.LogError("Failed to create card", "id", s.ID, "name", s.Name, "error", err.Error())
		return
	}

	if err := p.registry.Register(c); err != nil {
		c.Close()
		p.API.LogError("Failed to register card", "id", s.ID, "name", s.Name, "error", err.Error())
		return
	}

	if state, ok := p.states.Get(c.Entity()); ok {
		c.SetState(state)
	}

	p.API.LogInfo("Card registered", "id", s.ID, "name", s.Name, "entity", c.Entity())
	p.publish(c, notify.ReasonConfig)
}

// reconfigureCard applies new settings to a running card, keeping its post. It fails when the
// card has to be recreated instead.
func (p *Plugin) reconfigureCard(c *card.Card, old, s card.Settings) error {
	if old.ChannelID != s.ChannelID {
		return errors.New("channel changed")
	}

	raw, err := s.ParseConfig()
	if err != nil {
		return errors.Wrap(err, "failed to parse card configuration")
	}
	if err := c.SetConfig(raw); err != nil {
		return errors.Wrap(err, "failed to apply card configuration")
	}
	if state, ok := p.states.Get(c.Entity()); ok {
		c.SetState(state)
	}

	p.API.LogInfo("Card reconfigured", "id", s.ID, "name", s.Name, "entity", c.Entity())
	p.publish(c, notify.ReasonConfig)
	return nil
}

// removeCard unregisters a card and deletes its post.
func (p *Plugin) removeCard(id, reason string) {
	if p.registry.Get(id) != nil {
		unregisterCard(p.registry, p.API, id, reason)
	}
	p.removePost(id)
	p.notifier.CardChanged(id, notify.ReasonRemoved)
}

func (p *Plugin) removePost(id string) {
	if p.poster == nil {
		return
	}
	if err := p.poster.Remove(id); err != nil {
		p.API.LogWarn("Failed to delete card post", "id", id, "error", err.Error())
	}
}

// reloadMapViews replaces every map view with the ones declared in the configuration.
func (p *Plugin) reloadMapViews(config *configuration) {
	views := make(map[string]*mapview.View, len(config.MapViews))
	svc := p.getServices()

	for _, s := range config.MapViews {
		raw, err := mapview.Parse([]byte(s.Config))
		if err != nil {
			p.API.LogError("Failed to parse map view configuration", "id", s.ID, "name", s.Name, "error", err.Error())
			continue
		}
		v, err := mapview.New(s.ID, raw, mapview.Deps{
			Maps:     svc.maps,
			Logger:   &p.client.Log,
			Locale:   svc.locale,
			Location: svc.location,
		})
		if err != nil {
			p.API.LogError("Failed to create map view", "id", s.ID, "name", s.Name, "error", err.Error())
			continue
		}
		for _, e := range v.Entities() {
			if state, ok := p.states.Get(e); ok {
				v.SetState(state)
			}
		}
		views[s.ID] = v
	}

	p.mapViewsLock.Lock()
	old := p.mapViews
	p.mapViews = views
	p.mapViewsLock.Unlock()

	for _, v := range old {
		v.Close()
	}
}

func (p *Plugin) getMapView(id string) *mapview.View {
	p.mapViewsLock.RLock()
	defer p.mapViewsLock.RUnlock()
	return p.mapViews[id]
}

// updateState records a pushed entity state and hands it to every card and map view showing
// the entity. It returns the ids of the cards whose display changed.
func (p *Plugin) updateState(state entity.State) []string {
	p.states.Record(state)

	var changed []string
	for _, c := range p.registry.ForEntity(state.EntityID) {
		if c.SetState(state) {
			changed = append(changed, c.ID())
			p.publish(c, notify.ReasonState)
		}
	}

	p.mapViewsLock.RLock()
	for _, v := range p.mapViews {
		v.SetState(state)
	}
	p.mapViewsLock.RUnlock()

	return changed
}

// cardChanged is called by cards when their transient state changed in the background.
func (p *Plugin) cardChanged(id string) {
	if c := p.registry.Get(id); c != nil {
		p.publish(c, notify.ReasonInteraction)
	}
}

// publish re-posts a card to its channel and tells event stream clients to refetch it. Cards
// are only posted once they received a state.
func (p *Plugin) publish(c *card.Card, reason string) {
	if s, found := findCardSettingsByID(p.getConfiguration().Cards, c.ID()); found && s.ChannelID != "" && p.poster != nil && c.HasState() {
		if err := p.poster.PostCard(c.Render(), s.ChannelID); err != nil {
			p.API.LogError("Failed to post card", "id", c.ID(), "channel", s.ChannelID, "error", err.Error())
		}
	}
	if p.notifier != nil {
		p.notifier.CardChanged(c.ID(), reason)
	}
}
