package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent(t *testing.T) {
	e := Event{EventID: 7, EventData: EventData{CardID: "card-1", Reason: ReasonState}}
	assert.Equal(t, "7", e.Id())
	assert.Equal(t, "card", e.Event())
	assert.JSONEq(t, `{"card_id":"card-1","reason":"state"}`, e.Data())

	initial := Event{EventData: EventData{Initial: true}}
	assert.Equal(t, "initial", initial.Event())
	assert.JSONEq(t, `{"initial":true}`, initial.Data())
}

func TestNotifier_CardChanged(t *testing.T) {
	n := New()
	defer n.Close()

	n.CardChanged("card-1", ReasonState)
	n.CardChanged("", ReasonState)
	n.CardChanged("card-2", ReasonConfig)

	assert.Equal(t, int64(2), n.LastID())
}

func TestNotifier_Replay(t *testing.T) {
	n := New()
	defer n.Close()
	n.CardChanged("card-1", ReasonInteraction)

	assert.Nil(t, n.Replay("other", ""))

	ch := n.Replay(Channel, "")
	require.NotNil(t, ch)
	var events []Event
	for e := range ch {
		events = append(events, e.(Event))
	}
	require.Len(t, events, 1)
	assert.True(t, events[0].EventData.Initial)
	assert.Equal(t, int64(1), events[0].EventID)
	assert.NotNil(t, n.Handler())
}
