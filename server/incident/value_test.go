package incident

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_UnmarshalLooseTypes(t *testing.T) {
	data := []byte(`{
		"situation_id": "SE_STA_TRISSID_1_123",
		"deviation_id": 42,
		"road_number": 73,
		"road_name": null,
		"severity_code": "4",
		"severity_text": {"nested": true},
		"number_of_lanes_restricted": 2,
		"safety_related_message": true,
		"suspended": "yes",
		"start_time": "2025-03-01T08:00:00+01:00",
		"end_time": 1740816000000,
		"valid_until_further_notice": false,
		"unknown_field": "ignored"
	}`)

	var r Record
	require.NoError(t, json.Unmarshal(data, &r))

	assert.Equal(t, Text("SE_STA_TRISSID_1_123"), r.SituationID)
	assert.Equal(t, Text("42"), r.DeviationID)
	assert.Equal(t, Text("73"), r.RoadNumber)
	assert.False(t, r.RoadName.Present())
	assert.True(t, r.SeverityCode.Valid)
	assert.Equal(t, 4.0, r.SeverityCode.Value)
	assert.False(t, r.SeverityText.Present())
	assert.Equal(t, "2", r.NumberOfLanesRestricted.String())
	assert.True(t, r.SafetyRelatedMessage.IsTrue())
	assert.False(t, r.Suspended.Valid, "only JSON booleans count as flags")
	assert.Equal(t, "2025-03-01T08:00:00+01:00", r.StartTime.Raw)
	assert.True(t, r.EndTime.Numeric)
	assert.Equal(t, 1740816000000.0, r.EndTime.Epoch)
	assert.True(t, r.ValidUntilFurtherNotice.Valid)
	assert.False(t, r.ValidUntilFurtherNotice.Value)
}

func TestNumber(t *testing.T) {
	t.Run("non-numeric text is kept for display", func(t *testing.T) {
		n := NumberFrom("okänd")
		assert.False(t, n.Valid)
		assert.True(t, n.Present())
		assert.Equal(t, "okänd", n.String())
	})

	t.Run("blank string is absent", func(t *testing.T) {
		n := NumberFrom("  ")
		assert.False(t, n.Present())
	})

	t.Run("integral values render without fraction", func(t *testing.T) {
		assert.Equal(t, "3", NewNumber(3).String())
		assert.Equal(t, "2.5", NewNumber(2.5).String())
	})

	t.Run("infinity is not a valid number", func(t *testing.T) {
		assert.False(t, NumberFrom("Inf").Valid)
	})
}

func TestRecord_Accessors(t *testing.T) {
	r := Record{
		PositionalDescription:  "Mellan Umeå och Vännäs",
		AffectedDirectionValue: "BothDirections",
		SeverityCode:           NewNumber(3),
		VersionTime:            TimeString("2025-03-01T09:00:00Z"),
		Message:                "   ",
		Header:                 "Olycka",
	}

	assert.Equal(t, "Mellan Umeå och Vännäs", r.Location())
	assert.Equal(t, "BothDirections", r.Direction())
	assert.Equal(t, "3", r.SeverityLabel())
	assert.True(t, r.HasSeverity())
	assert.Equal(t, "2025-03-01T09:00:00Z", r.Updated().Raw)
	assert.Equal(t, "Olycka", r.DetailsText(), "blank message falls back to header")
	assert.False(t, r.HasPeriod())

	r.LocationDescriptor = "Trafikplats Klockarbäcken"
	r.SeverityText = "Stor påverkan"
	r.ValidUntilFurtherNotice = Bool(true)
	assert.Equal(t, "Trafikplats Klockarbäcken", r.Location())
	assert.Equal(t, "Stor påverkan", r.SeverityLabel())
	assert.True(t, r.HasPeriod())
}
