// Package view holds the render tree of a card. The tree is plain data and serializes to JSON
// for clients; the plugin also turns it into message attachments.
package view

// Block kinds
const (
	BlockMeta = "meta"
	BlockText = "text"
	BlockMap  = "map"
)

// Card is the rendered state of one incident card.
type Card struct {
	ID string `json:"id"`

	// Hidden is true when the card renders nothing at all.
	Hidden bool `json:"hidden,omitempty"`

	Header string `json:"header,omitempty"`

	// Empty is the empty-state message, set when there are no visible incidents.
	Empty string `json:"empty,omitempty"`

	Groups []Group `json:"groups,omitempty"`

	// Footer is set when dismissal is enabled.
	Footer *Footer `json:"footer,omitempty"`

	// Size is the layout height hint in rows.
	Size int `json:"size"`
}

// Items returns every item of the card in display order.
func (c Card) Items() []Item {
	var items []Item
	for _, g := range c.Groups {
		items = append(items, g.Items...)
	}
	return items
}

// Group is a labelled run of items. The label is empty when grouping is off.
type Group struct {
	Label string `json:"label,omitempty"`
	Items []Item `json:"items"`
}

// Item is one rendered incident.
type Item struct {
	// Key is the alert key that addresses per-item state.
	Key string `json:"key"`

	// EventKey identifies the event for dismissal. Empty when the event cannot be dismissed.
	EventKey string `json:"event_key,omitempty"`

	Headline string `json:"headline"`
	Accent   string `json:"accent"`
	Color    string `json:"color"`

	// Background is true when the card tints the whole item with the accent.
	Background bool `json:"background,omitempty"`

	Icon *Icon `json:"icon,omitempty"`

	// Tags are the hashtags of the incident.
	Tags []string `json:"tags,omitempty"`

	// Compact is true when the item has nothing to show besides its headline.
	Compact bool `json:"compact,omitempty"`

	Inline  []Block `json:"inline,omitempty"`
	Details []Block `json:"details,omitempty"`

	Expandable  bool   `json:"expandable,omitempty"`
	Expanded    bool   `json:"expanded,omitempty"`
	ToggleLabel string `json:"toggle_label,omitempty"`

	Dismissable  bool   `json:"dismissable,omitempty"`
	DismissLabel string `json:"dismiss_label,omitempty"`

	// Dismissing is true while the dismiss transition runs.
	Dismissing bool `json:"dismissing,omitempty"`
}

// Icon is the item icon: an image when the incident has one, otherwise a named icon.
type Icon struct {
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
}

// DefaultIcon is used for incidents without an icon image.
const DefaultIcon = "mdi:alert"

// Block is a section of an item: a group of scalar fields, the free text, or the map.
type Block struct {
	Kind   string  `json:"kind"`
	Fields []Field `json:"fields,omitempty"`
	Text   string  `json:"text,omitempty"`
	Map    *Map    `json:"map,omitempty"`
}

// Field is a labelled scalar value. URL is set for link fields, Value then holds the link text.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
}

// Map is the map container of an item.
type Map struct {
	Container string `json:"container"`

	// Status is the inline status shown while the map is not ready.
	Status string `json:"status,omitempty"`
}

// Footer shows the number of dismissed events and the restore affordance.
type Footer struct {
	Count        int    `json:"count"`
	Label        string `json:"label,omitempty"`
	RestoreLabel string `json:"restore_label"`
}
