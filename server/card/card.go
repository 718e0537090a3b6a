// Package card implements the incident card: one configured view over the incident list of a
// source entity, together with its transient interaction state and map instances.
package card

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/entity"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/formatter"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/interaction"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/layout"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/pipeline"
)

var (
	// ErrUnknownAlert is returned when an alert key does not address a visible incident.
	ErrUnknownAlert = errors.New("unknown alert")

	// ErrDismissDisabled is returned when dismissal is requested on a card that does not allow it.
	ErrDismissDisabled = errors.New("dismissal is not enabled for this card")

	// ErrNotDismissable is returned for incidents without an event key.
	ErrNotDismissable = errors.New("incident cannot be dismissed")
)

// Logger is the logging interface used by this package. pluginapi.LogService satisfies it.
type Logger interface {
	Debug(message string, keyValuePairs ...any)
	Info(message string, keyValuePairs ...any)
	Warn(message string, keyValuePairs ...any)
	Error(message string, keyValuePairs ...any)
}

// Deps are the collaborators of a card. Every field is optional.
type Deps struct {
	// Commander sends dismiss and restore commands.
	Commander interaction.Commander

	// Host carries out gesture actions.
	Host interaction.Host

	// Maps provides the map backend. Without it map blocks report the backend as unavailable.
	Maps *geo.Provider

	Clock  interaction.Clock
	Logger Logger

	// Locale selects the language of labels, e.g. "sv-SE".
	Locale string

	// Location is the time zone timestamps are shown in.
	Location *time.Location

	// OnChange is called with the card id when transient state changed outside of a request,
	// e.g. when a dismiss transition ends or a failed command is rolled back.
	OnChange func(id string)
}

// Card is one incident card. All methods are safe for concurrent use.
type Card struct {
	id   string
	deps Deps

	mu          sync.Mutex
	cfg         cardconfig.Config
	state       *entity.State
	fingerprint string
	expanded    map[string]bool
	recognizers map[string]*interaction.Recognizer
	dismisser   *interaction.Dismisser
	runner      *interaction.Runner
	maps        *geo.Adapter
	formatter   *formatter.Formatter
	layout      *layout.Builder
	closed      bool
}

// New creates a card from a raw configuration. It fails when the configuration names no entity.
func New(id string, raw cardconfig.Config, deps Deps) (*Card, error) {
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}
	if deps.Clock == nil {
		deps.Clock = interaction.RealClock()
	}
	if deps.OnChange == nil {
		deps.OnChange = func(string) {}
	}

	c := &Card{id: id, deps: deps}
	if err := c.SetConfig(raw); err != nil {
		return nil, err
	}
	return c, nil
}

// ID returns the card id.
func (c *Card) ID() string {
	return c.id
}

// Config returns the normalized configuration.
func (c *Card) Config() cardconfig.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

// Entity returns the source entity id.
func (c *Card) Entity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Entity
}

// SetConfig normalizes raw and applies it. All transient state (expanded items, pending
// dismissals, gesture timers and maps) is discarded. On error the card keeps its previous
// configuration.
func (c *Card) SetConfig(raw cardconfig.Config) error {
	cfg, err := cardconfig.Normalize(raw)
	if err != nil {
		return fmt.Errorf("card %s: %w", c.id, err)
	}

	tr := formatter.NewTranslator(c.deps.Locale)
	f := formatter.New(cfg, tr, c.deps.Location)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	old := c.releaseLocked()

	c.cfg = cfg
	c.formatter = f
	c.layout = layout.New(cfg, f)
	c.expanded = make(map[string]bool)
	c.recognizers = make(map[string]*interaction.Recognizer)
	c.dismisser = interaction.NewDismisser(c.deps.Commander, c.deps.Clock, c.deps.Logger, func() { c.deps.OnChange(c.id) })
	c.runner = interaction.NewRunner(c.deps.Host, c.deps.Logger)
	c.maps = nil
	if c.deps.Maps != nil {
		c.maps = geo.NewAdapter(c.deps.Maps, c.deps.Logger)
	}
	if c.state != nil && c.state.EntityID != cfg.Entity {
		c.state = nil
	}
	c.fingerprint = ""
	c.mu.Unlock()

	old.release()
	return nil
}

// SetState hands the card a new state of its entity. It reports whether anything the card
// displays may have changed; states of other entities are ignored.
func (c *Card) SetState(s entity.State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || s.EntityID != c.cfg.Entity {
		return false
	}

	state := s
	c.state = &state

	fp := s.Attributes.ChangeMarker() + "|" + incident.Fingerprint(s.Attributes.Events)
	if fp == c.fingerprint {
		return false
	}
	c.fingerprint = fp
	return true
}

// HasState reports whether the card received a state for its entity.
func (c *Card) HasState() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != nil
}

// Visible returns the incidents the card displays, in order.
func (c *Card) Visible() []incident.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleLocked()
}

func (c *Card) visibleLocked() []incident.Record {
	if c.state == nil {
		return nil
	}
	return pipeline.Visible(c.state.Attributes.Events, c.cfg, pipeline.Options{
		Hidden:   c.dismisser.Hidden(),
		Location: c.deps.Location,
	})
}

// Toggle flips the details of the incident with the given alert key and returns the new
// expanded state. Only that key's state changes.
func (c *Card) Toggle(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.findLocked(key); !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAlert, key)
	}
	c.expanded[key] = !c.expanded[key]
	return c.expanded[key], nil
}

// Expanded reports whether the details of the alert key are shown.
func (c *Card) Expanded(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded[key]
}

// Pointer event types
const (
	PointerDown   = "down"
	PointerUp     = "up"
	PointerCancel = "cancel"
	PointerKey    = "key"
)

// PointerEvent is raw input on the body of an item.
type PointerEvent struct {
	Type   string `json:"type"`
	Button int    `json:"button"`
	Key    string `json:"key,omitempty"`
}

// Pointer feeds input on the item with the given alert key into its gesture recognizer. A
// resolved gesture runs the configured action in the background.
func (c *Card) Pointer(key string, ev PointerEvent) error {
	c.mu.Lock()
	rec, err := c.recognizerLocked(key)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	switch ev.Type {
	case PointerDown:
		rec.Down(ev.Button)
	case PointerUp:
		rec.Up(ev.Button)
	case PointerCancel:
		rec.Cancel()
	case PointerKey:
		rec.Key(ev.Key)
	default:
		return fmt.Errorf("unknown pointer event %q", ev.Type)
	}
	return nil
}

func (c *Card) recognizerLocked(key string) (*interaction.Recognizer, error) {
	if c.closed {
		return nil, fmt.Errorf("%w: card is closed", ErrUnknownAlert)
	}
	if rec, ok := c.recognizers[key]; ok {
		return rec, nil
	}
	if _, ok := c.findLocked(key); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlert, key)
	}

	actions := interaction.ActionsFrom(c.cfg)
	entityID := c.cfg.Entity
	runner := c.runner
	logger := c.deps.Logger
	rec := interaction.NewRecognizer(c.deps.Clock, interaction.DefaultTimings, func(g interaction.Gesture) {
		action := actions.For(g)
		logger.Debug("Gesture resolved", "key", key, "gesture", g.String(), "action", string(action.Action))
		runner.Run(action, entityID)
	})
	c.recognizers[key] = rec
	return rec, nil
}

// Dismiss starts the optimistic dismissal of the incident with the given alert key.
func (c *Card) Dismiss(key string) error {
	c.mu.Lock()
	if !cardconfig.Enabled(c.cfg.EnableDismiss) {
		c.mu.Unlock()
		return ErrDismissDisabled
	}
	r, ok := c.findLocked(key)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAlert, key)
	}
	eventKey := incident.DismissKey(r)
	if eventKey == "" {
		c.mu.Unlock()
		return ErrNotDismissable
	}

	req := interaction.DismissRequest{
		EntryID:  c.state.Attributes.EntryID.String(),
		EventKey: eventKey,
	}
	if c.cfg.DismissBehavior == cardconfig.DismissUntilUpdate {
		req.Signature = incident.Signature(r)
	}
	d := c.dismisser
	c.mu.Unlock()

	// Dismiss notifies synchronously, so it must run without the card lock.
	d.Dismiss(req)
	return nil
}

// RestoreAll brings back every dismissed incident of the card's entity.
func (c *Card) RestoreAll() error {
	c.mu.Lock()
	if !cardconfig.Enabled(c.cfg.EnableDismiss) {
		c.mu.Unlock()
		return ErrDismissDisabled
	}
	entryID := ""
	if c.state != nil {
		entryID = c.state.Attributes.EntryID.String()
	}
	d := c.dismisser
	c.mu.Unlock()

	d.RestoreAll(entryID)
	return nil
}

// Wait blocks until the commands and actions dispatched so far have completed.
func (c *Card) Wait() {
	c.mu.Lock()
	d, r := c.dismisser, c.runner
	c.mu.Unlock()

	d.Wait()
	r.Wait()
}

// Maps attaches maps to every rendered map block and releases the maps of items that no longer
// show one. The statuses are keyed by alert key.
func (c *Card) Maps(ctx context.Context) map[string]geo.Status {
	c.mu.Lock()
	adapter := c.maps
	targets := c.mapTargetsLocked()
	settings := geo.Settings{
		Zoom: c.cfg.MapZoom,
		Options: geo.MapOptions{
			ZoomControl:     cardconfig.Enabled(c.cfg.MapZoomControls),
			ScrollWheelZoom: cardconfig.Enabled(c.cfg.MapScrollWheelZoom),
		},
	}
	unavailable := c.formatter.T(formatter.KeyMapFailed)
	c.mu.Unlock()

	if adapter == nil {
		statuses := make(map[string]geo.Status, len(targets))
		for _, t := range targets {
			statuses[t.Key] = geo.Status{Key: t.Key, Error: unavailable}
		}
		return statuses
	}
	return adapter.Sync(ctx, targets, settings)
}

// MapInstances returns the number of live map instances.
func (c *Card) MapInstances() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maps == nil {
		return 0
	}
	return c.maps.Registry().Count()
}

func (c *Card) mapTargetsLocked() []geo.Target {
	return c.mapTargetsForLocked(c.visibleLocked())
}

func (c *Card) mapTargetsForLocked(visible []incident.Record) []geo.Target {
	if !cardconfig.Enabled(c.cfg.ShowMap) {
		return nil
	}

	var targets []geo.Target
	for _, r := range visible {
		key := r.Key()
		res := c.layout.Build(r, layout.Options{Expanded: c.expanded[key], MapContainer: containerID(c.id, key)})
		if !res.MapShown {
			continue
		}
		targets = append(targets, geo.Target{
			Key:       key,
			Container: containerID(c.id, key),
			Coords:    res.Geometry,
			Color:     incident.Classify(r).Accent().Color(),
		})
	}
	return targets
}

// Close releases every map instance and cancels all timers. The card ignores input afterwards.
func (c *Card) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	old := c.releaseLocked()
	c.mu.Unlock()

	old.release()
}

// findLocked returns the visible record with the given alert key.
func (c *Card) findLocked(key string) (incident.Record, bool) {
	for _, r := range c.visibleLocked() {
		if r.Key() == key {
			return r, true
		}
	}
	return incident.Record{}, false
}

// transient is the per-configuration state that has to be released outside the card lock.
type transient struct {
	dismisser   *interaction.Dismisser
	recognizers map[string]*interaction.Recognizer
	maps        *geo.Adapter
}

func (c *Card) releaseLocked() transient {
	return transient{dismisser: c.dismisser, recognizers: c.recognizers, maps: c.maps}
}

func (t transient) release() {
	for _, rec := range t.recognizers {
		rec.Stop()
	}
	if t.dismisser != nil {
		t.dismisser.Stop()
	}
	if t.maps != nil {
		t.maps.Close()
	}
}

func containerID(cardID, key string) string {
	return "map-" + cardID + "-" + key
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
