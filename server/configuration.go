package main

import (
	"reflect"
	"slices"
	"time"

	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/pkg/errors"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/card"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/mapview"
)

// configuration captures the plugin's external configuration as exposed in the Mattermost server
// configuration, as well as values computed from the configuration. Any public fields will be
// deserialized from the Mattermost server configuration in OnConfigurationChange.
//
// As plugins are inherently concurrent (hooks being called asynchronously), and the plugin
// configuration can change at any time, access to the configuration must be synchronized. The
// strategy used in this plugin is to guard a pointer to the configuration, and clone the entire
// struct whenever it changes.
//
// If you add non-reference types to your configuration struct, be sure to rewrite Clone as a deep
// copy appropriate for your types.
type configuration struct {
	// Cards is an array of card declarations.
	// Each card is one configured view over the incidents of a source entity.
	Cards []card.Settings `json:"cards"`

	// MapViews is an array of shared map view declarations.
	MapViews []mapview.Settings `json:"mapViews"`

	// TileServerURL is a TileJSON document describing the map tiles. OpenStreetMap is used when
	// it is empty or cannot be loaded.
	TileServerURL string `json:"tileServerUrl"`

	// CommandURL is the base URL of the automation host that receives service calls.
	CommandURL string `json:"commandUrl"`

	// CommandToken is sent as a bearer token with every service call.
	CommandToken string `json:"commandToken"`

	// Language selects the label language, e.g. "sv-SE". English when empty.
	Language string `json:"language"`

	// TimeZone is the IANA zone timestamps are shown in. UTC when empty.
	TimeZone string `json:"timeZone"`
}

// Clone creates a deep copy of the configuration.
// This ensures that slice modifications don't affect the original.
func (c *configuration) Clone() *configuration {
	clone := *c
	clone.Cards = slices.Clone(c.Cards)
	clone.MapViews = slices.Clone(c.MapViews)
	return &clone
}

// IsValid checks the configuration and returns the first problem found.
func (c *configuration) IsValid() error {
	if err := card.ValidateSettings(c.Cards); err != nil {
		return errors.Wrap(err, "invalid card configuration")
	}
	if err := mapview.ValidateSettings(c.MapViews); err != nil {
		return errors.Wrap(err, "invalid map view configuration")
	}
	if _, err := c.location(); err != nil {
		return err
	}
	return nil
}

// location resolves TimeZone.
func (c *configuration) location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid time zone %q", c.TimeZone)
	}
	return loc, nil
}

// servicesChanged reports whether a setting shared by every card changed. Cards and map views
// are rebuilt when it did.
func (c *configuration) servicesChanged(other *configuration) bool {
	return c.TileServerURL != other.TileServerURL ||
		c.CommandURL != other.CommandURL ||
		c.CommandToken != other.CommandToken ||
		c.Language != other.Language ||
		c.TimeZone != other.TimeZone
}

// getConfiguration retrieves the active configuration under lock, making it safe to use
// concurrently. The active configuration may change underneath the client of this method, but
// the struct returned by this API call is considered immutable.
func (p *Plugin) getConfiguration() *configuration {
	p.configurationLock.RLock()
	defer p.configurationLock.RUnlock()

	if p.configuration == nil {
		return &configuration{}
	}

	return p.configuration
}

// setConfiguration replaces the active configuration under lock.
//
// Do not call setConfiguration while holding the configurationLock, as sync.Mutex is not
// reentrant. In particular, avoid using the plugin API entirely, as this may in turn trigger a
// hook back into the plugin. If that hook attempts to acquire this lock, a deadlock may occur.
//
// This method panics if setConfiguration is called with the existing configuration. This almost
// certainly means that the configuration was modified without being cloned and may result in
// an unsafe access.
func (p *Plugin) setConfiguration(configuration *configuration) {
	p.configurationLock.Lock()
	defer p.configurationLock.Unlock()

	if configuration != nil && p.configuration == configuration {
		// Ignore assignment if the configuration struct is empty. Go will optimize the
		// allocation for same to point at the same memory address, breaking the check
		// above.
		if reflect.ValueOf(*configuration).NumField() == 0 {
			return
		}

		panic("setConfiguration called with the existing configuration")
	}

	p.configuration = configuration
}

// findCardSettingsByID finds a card declaration by ID.
// Returns the settings and true if found, or empty settings and false if not found.
func findCardSettingsByID(settings []card.Settings, id string) (card.Settings, bool) {
	for _, s := range settings {
		if s.ID == id {
			return s, true
		}
	}
	return card.Settings{}, false
}

// unregisterCard unregisters a card from the registry and logs the result.
func unregisterCard(registry *card.Registry, api plugin.API, id string, reason string) {
	if err := registry.Unregister(id); err != nil {
		api.LogWarn("Failed to unregister card", "id", id, "reason", reason, "error", err.Error())
	} else {
		api.LogInfo("Unregistered card", "id", id, "reason", reason)
	}
}

// OnConfigurationChange is invoked when configuration changes may have been made.
func (p *Plugin) OnConfigurationChange() error {
	var newConfig = new(configuration)

	// Load the public configuration fields from the Mattermost server configuration.
	if err := p.API.LoadPluginConfiguration(newConfig); err != nil {
		return errors.Wrap(err, "failed to load plugin configuration")
	}

	if err := newConfig.IsValid(); err != nil {
		return err
	}

	// Get old configuration for comparison
	oldConfig := p.getConfiguration()

	// Determine which cards need to be added, updated, or removed
	toAdd, toUpdate, toRemove := card.DiffSettings(oldConfig.Cards, newConfig.Cards)
	rebuild := newConfig.servicesChanged(oldConfig)

	// Update the configuration before managing cards
	p.setConfiguration(newConfig)

	// Nothing to manage before OnActivate
	if p.registry == nil {
		return nil
	}

	// Remove deleted cards
	for _, id := range toRemove {
		p.removeCard(id, "card removed from configuration")
	}

	if rebuild {
		p.configureServices(newConfig)
		p.registry.UnregisterAll()
		for _, s := range newConfig.Cards {
			if old, found := findCardSettingsByID(oldConfig.Cards, s.ID); found && old.ChannelID != s.ChannelID {
				p.removePost(s.ID)
			}
			p.createCard(s)
		}
		p.reloadMapViews(newConfig)
		return nil
	}

	// Update modified cards
	for _, id := range toUpdate {
		s, found := findCardSettingsByID(newConfig.Cards, id)
		if !found {
			continue
		}
		old, _ := findCardSettingsByID(oldConfig.Cards, id)
		if c := p.registry.Get(id); c != nil && s.Enabled {
			err := p.reconfigureCard(c, old, s)
			if err == nil {
				continue
			}
			p.API.LogInfo("Recreating card", "id", id, "reason", err.Error())
		}
		p.removeCard(id, "card configuration changed")
		p.createCard(s)
	}

	// Add new cards
	for _, id := range toAdd {
		if s, found := findCardSettingsByID(newConfig.Cards, id); found {
			p.createCard(s)
		}
	}

	if !slices.Equal(oldConfig.MapViews, newConfig.MapViews) {
		p.reloadMapViews(newConfig)
	}

	return nil
}
