// Package notify publishes card invalidations as a server-sent event stream. Clients refetch a
// card when they see its id.
package notify

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/launchdarkly/eventsource"
)

// Channel is the event source channel of card invalidations.
const Channel = "cards"

// Reasons a card was invalidated.
const (
	ReasonState       = "state"
	ReasonConfig      = "config"
	ReasonInteraction = "interaction"
	ReasonRemoved     = "removed"
)

// EventData is the payload of an invalidation.
type EventData struct {
	CardID string `json:"card_id,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Initial marks the first event of a connection. It carries the most recent event id.
	Initial bool `json:"initial,omitempty"`
}

// Event is one invalidation.
type Event struct {
	EventID   int64
	EventData EventData
}

// Id implements eventsource.Event.
func (e Event) Id() string {
	return strconv.FormatInt(e.EventID, 10)
}

// Event implements eventsource.Event.
func (e Event) Event() string {
	if e.EventData.Initial {
		return "initial"
	}
	return "card"
}

// Data implements eventsource.Event.
func (e Event) Data() string {
	b, err := json.Marshal(e.EventData)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Notifier owns the event source server.
type Notifier struct {
	server *eventsource.Server
	lastID atomic.Int64
}

// New creates a Notifier.
func New() *Notifier {
	n := &Notifier{server: eventsource.NewServer()}
	n.server.Register(Channel, n)
	n.server.ReplayAll = true
	return n
}

// Replay implements eventsource.Repository. A new connection only learns the latest event id.
func (n *Notifier) Replay(channel, _ string) chan eventsource.Event {
	if channel != Channel {
		return nil
	}
	out := make(chan eventsource.Event, 1)
	out <- Event{EventID: n.lastID.Load(), EventData: EventData{Initial: true}}
	close(out)
	return out
}

// CardChanged publishes an invalidation of cardID.
func (n *Notifier) CardChanged(cardID, reason string) {
	if cardID == "" {
		return
	}
	n.server.Publish([]string{Channel}, Event{
		EventID:   n.lastID.Add(1),
		EventData: EventData{CardID: cardID, Reason: reason},
	})
}

// LastID returns the id of the most recent event.
func (n *Notifier) LastID() int64 {
	return n.lastID.Load()
}

// Handler returns the HTTP handler of the stream.
func (n *Notifier) Handler() http.Handler {
	return n.server.Handler(Channel)
}

// Close disconnects every client.
func (n *Notifier) Close() {
	n.server.Close()
}
