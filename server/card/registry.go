package card

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Registry holds the live cards of the plugin keyed by the settings ID. A card leaves the
// registry closed: its map instances are released and its timers cancelled.
type Registry struct {
	mu    sync.RWMutex
	cards map[string]*Card
}

// NewRegistry creates an empty card registry.
func NewRegistry() *Registry {
	return &Registry{
		cards: make(map[string]*Card),
	}
}

// Register adds a built card. A second card under the same settings ID is rejected; replacing
// a card means unregistering the old one first.
func (r *Registry) Register(c *Card) error {
	if c == nil {
		return fmt.Errorf("cannot register nil card")
	}

	id := c.ID()
	if id == "" {
		return fmt.Errorf("card ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cards[id]; exists {
		return fmt.Errorf("card %s already registered", id)
	}

	r.cards[id] = c
	return nil
}

// Unregister removes the card and closes it.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	c, exists := r.cards[id]
	delete(r.cards, id)
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("card %s not found", id)
	}

	// Closing releases maps, which must not hold up other requests.
	c.Close()
	return nil
}

// Get returns the card with the settings ID, or nil.
func (r *Registry) Get(id string) *Card {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.cards[id]
}

// List returns the cards ordered by ID so that state fan-out and posting run in a stable order.
func (r *Registry) List() []*Card {
	r.mu.RLock()
	cards := slices.Collect(maps.Values(r.cards))
	r.mu.RUnlock()

	slices.SortFunc(cards, func(a, b *Card) int { return strings.Compare(a.ID(), b.ID()) })
	return cards
}

// ForEntity returns the cards that show entityID. The entity is read from each card at call
// time because a reconfigured card may have switched entities.
func (r *Registry) ForEntity(entityID string) []*Card {
	return slices.DeleteFunc(r.List(), func(c *Card) bool { return c.Entity() != entityID })
}

// UnregisterAll closes every card and empties the registry.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	cards := r.cards
	r.cards = make(map[string]*Card)
	r.mu.Unlock()

	for _, c := range cards {
		c.Close()
	}
}

// Count returns the number of live cards.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.cards)
}
