package card

import (
	"fmt"
	"strings"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/formatter"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/hashtag"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/layout"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/pipeline"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/view"
)

// Render builds the render tree of the card from its current configuration, state and
// transient interaction state. A card without a state renders as hidden.
func (c *Card) Render() view.Card {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := view.Card{ID: c.id}
	if c.state == nil {
		out.Hidden = true
		return out
	}

	visible := c.visibleLocked()
	c.pruneLocked(visible)

	if cardconfig.Enabled(c.cfg.HideWhenEmpty) && len(visible) == 0 {
		out.Hidden = true
		return out
	}

	if cardconfig.Enabled(c.cfg.ShowHeader) {
		out.Header = c.headerLocked()
		out.Size = 1
	}
	out.Size += len(visible)

	if len(visible) == 0 {
		if c.state.Attributes.CappedToZero(0) {
			out.Empty = c.formatter.T(formatter.KeyMaxItemsZero)
		} else {
			out.Empty = c.formatter.T(formatter.KeyNoAlerts)
		}
	}

	for _, g := range pipeline.GroupRecords(visible, c.cfg.GroupBy, c.formatter.Translator().Tag()) {
		group := view.Group{Label: g.Label, Items: make([]view.Item, 0, len(g.Records))}
		for _, r := range g.Records {
			if item, ok := c.itemLocked(r); ok {
				group.Items = append(group.Items, item)
			}
		}
		out.Groups = append(out.Groups, group)
	}

	if cardconfig.Enabled(c.cfg.EnableDismiss) && cardconfig.Enabled(c.cfg.ShowDismissedCount) {
		if count := len(c.dismisser.HiddenKeys()); count > 0 {
			out.Footer = &view.Footer{
				Count:        count,
				Label:        fmt.Sprintf("%s: %d", c.formatter.T(formatter.KeyDismissed), count),
				RestoreLabel: c.formatter.T(formatter.KeyRestoreAll),
			}
		}
	}

	return out
}

// Size returns the layout height hint of the card: one row for the header plus one per visible
// incident, or 0 when the card is hidden.
func (c *Card) Size() int {
	return c.Render().Size
}

func (c *Card) headerLocked() string {
	if title := strings.TrimSpace(c.cfg.Title); title != "" {
		return title
	}
	if c.state.Attributes.FriendlyName.Present() {
		return c.state.Attributes.FriendlyName.String()
	}
	return c.formatter.T(formatter.KeyDefaultTitle)
}

// itemLocked renders one incident. A panic while rendering is contained to the item, which is
// then left out.
func (c *Card) itemLocked(r incident.Record) (item view.Item, ok bool) {
	key := r.Key()
	defer func() {
		if rec := recover(); rec != nil {
			c.deps.Logger.Error("Failed to render incident, skipping it", "card", c.id, "key", key, "panic", fmt.Sprint(rec))
			item, ok = view.Item{}, false
		}
	}()

	bucket := incident.Classify(r)
	expanded := c.expanded[key]
	res := c.layout.Build(r, layout.Options{Expanded: expanded, MapContainer: containerID(c.id, key)})

	item = view.Item{
		Key:        key,
		EventKey:   incident.DismissKey(r),
		Headline:   c.formatter.Headline(r),
		Accent:     string(bucket.Accent()),
		Color:      bucket.Accent().Color(),
		Background: cardconfig.Enabled(c.cfg.SeverityBackground),
		Tags:       hashtag.Tags(r),
		Compact:    res.Compact,
		Inline:     res.Inline,
		Details:    res.Details,
		Expandable: res.Expandable,
		Expanded:   expanded && res.Expandable,
	}

	if cardconfig.Enabled(c.cfg.ShowIcon) {
		if r.IconURL.Blank() {
			item.Icon = &view.Icon{Name: view.DefaultIcon}
		} else {
			item.Icon = &view.Icon{URL: strings.TrimSpace(r.IconURL.String())}
		}
	}

	if item.Expandable {
		item.ToggleLabel = c.formatter.T(formatter.KeyShowDetails)
		if item.Expanded {
			item.ToggleLabel = c.formatter.T(formatter.KeyHideDetails)
		}
	}

	if cardconfig.Enabled(c.cfg.EnableDismiss) && item.EventKey != "" {
		item.Dismissable = true
		item.DismissLabel = c.formatter.T(formatter.KeyDismiss)
		item.Dismissing = c.dismisser.Animating(item.EventKey)
	}

	return item, true
}

// pruneLocked stops the gesture recognizers of incidents that are no longer visible and
// releases the maps of items that no longer show one.
func (c *Card) pruneLocked(visible []incident.Record) {
	if c.maps != nil && c.maps.Registry().Count() > 0 {
		showing := make(map[string]bool)
		for _, t := range c.mapTargetsForLocked(visible) {
			showing[t.Key] = true
		}
		if released := c.maps.Registry().Retain(showing); len(released) > 0 {
			c.deps.Logger.Debug("Released maps of hidden items", "card_id", c.id, "keys", released)
		}
	}

	if len(c.recognizers) == 0 {
		return
	}
	keep := make(map[string]bool, len(visible))
	for _, r := range visible {
		keep[r.Key()] = true
	}
	for key, rec := range c.recognizers {
		if !keep[key] {
			rec.Stop()
			delete(c.recognizers, key)
		}
	}
}
