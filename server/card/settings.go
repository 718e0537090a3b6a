package card

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
)

// Settings is a card as declared in the plugin configuration.
type Settings struct {
	// ID is the unique stable identifier for this card (UUID v4, immutable)
	ID string `json:"id"`

	// Name is the display name for this card (mutable, must be unique)
	Name string `json:"name"`

	// Enabled indicates whether the card is rendered and posted
	Enabled bool `json:"enabled"`

	// ChannelID is the Mattermost channel the card is posted to. Empty keeps the card API-only.
	ChannelID string `json:"channelId"`

	// Config is the YAML or JSON card configuration
	Config string `json:"config"`
}

// ParseConfig parses the card configuration of s without normalizing it.
func (s Settings) ParseConfig() (cardconfig.Config, error) {
	return cardconfig.Parse([]byte(s.Config))
}

// ValidateSettings validates card declarations.
func ValidateSettings(settings []Settings) error {
	if len(settings) == 0 {
		// Empty configuration is valid - no cards configured
		return nil
	}

	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)

	for i, s := range settings {
		// 1. Required fields
		if s.ID == "" {
			return fmt.Errorf("card at position %d: missing required field 'id'", i+1)
		}
		if s.Name == "" {
			return fmt.Errorf("card at position %d: missing required field 'name'", i+1)
		}

		// 2. UUID format
		if err := ValidateUUID(s.ID); err != nil {
			return fmt.Errorf("card '%s': %w", s.Name, err)
		}

		// 3. Duplicate IDs
		if seenIDs[s.ID] {
			return fmt.Errorf("duplicate card ID found: %s", s.ID)
		}
		seenIDs[s.ID] = true

		// 4. Duplicate names
		if seenNames[s.Name] {
			return fmt.Errorf("duplicate card name found: '%s'", s.Name)
		}
		seenNames[s.Name] = true

		// 5. Card configuration, including the required entity
		cfg, err := s.ParseConfig()
		if err != nil {
			return fmt.Errorf("card '%s': %w", s.Name, err)
		}
		if err := cardconfig.Validate(cfg); err != nil {
			return fmt.Errorf("card '%s': %w", s.Name, err)
		}
	}

	return nil
}

// ValidateUUID checks that id is a valid UUID v4.
func ValidateUUID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid UUID format for id: %w", err)
	}

	// Only accept UUID v4
	if parsed.Version() != 4 {
		return fmt.Errorf("id must be a UUID v4 (got version %d)", parsed.Version())
	}

	return nil
}

// DiffSettings compares old and new card declarations and returns IDs to add, update, and remove.
func DiffSettings(oldSettings, newSettings []Settings) (toAdd, toUpdate, toRemove []string) {
	oldMap := make(map[string]Settings)
	newMap := make(map[string]Settings)

	for _, s := range oldSettings {
		oldMap[s.ID] = s
	}

	for _, s := range newSettings {
		newMap[s.ID] = s
	}

	// Find cards to add or update
	for id, newS := range newMap {
		if oldS, exists := oldMap[id]; !exists {
			toAdd = append(toAdd, id)
		} else if oldS != newS {
			// Direct struct comparison works since all fields are primitive types
			toUpdate = append(toUpdate, id)
		}
	}

	// Find cards to remove
	for id := range oldMap {
		if _, exists := newMap[id]; !exists {
			toRemove = append(toRemove, id)
		}
	}

	return toAdd, toUpdate, toRemove
}
