package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    Timestamp
		loc      *time.Location
		expected time.Time
		ok       bool
	}{
		{
			name:     "RFC3339 with offset",
			input:    TimeString("2025-03-01T08:00:00+01:00"),
			expected: time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "fractional seconds with Z",
			input:    TimeString("2025-03-01T07:00:00.123Z"),
			expected: time.Date(2025, 3, 1, 7, 0, 0, 123000000, time.UTC),
			ok:       true,
		},
		{
			name:     "space separated without zone uses location",
			input:    TimeString("2025-03-01 08:00:00"),
			loc:      stockholm,
			expected: time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "space separated minutes only",
			input:    TimeString("2025-03-01 08:00"),
			expected: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "bare date is UTC midnight",
			input:    TimeString("2025-03-01"),
			loc:      stockholm,
			expected: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "numeric epoch milliseconds",
			input:    TimeEpoch(1740816000000),
			expected: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{name: "garbage", input: TimeString("igår"), ok: false},
		{name: "absent", input: Timestamp{}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTime(tt.input, tt.loc)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestEventTime(t *testing.T) {
	t.Run("start time wins", func(t *testing.T) {
		r := Record{
			StartTime:       TimeString("2025-03-01T08:00:00Z"),
			PublicationTime: TimeString("2025-03-01T09:00:00Z"),
		}
		assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC).UnixMilli(), EventTime(r, nil))
	})

	t.Run("unparseable candidates are skipped", func(t *testing.T) {
		r := Record{
			StartTime:    TimeString("not a time"),
			ModifiedTime: TimeString("2025-03-01T10:00:00Z"),
		}
		assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli(), EventTime(r, nil))
	})

	t.Run("non-positive instants are skipped", func(t *testing.T) {
		r := Record{
			StartTime: TimeEpoch(0),
			EndTime:   TimeString("2025-03-02T00:00:00Z"),
		}
		assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli(), EventTime(r, nil))
	})

	t.Run("nothing resolvable is zero", func(t *testing.T) {
		assert.Equal(t, int64(0), EventTime(Record{}, nil))
	})
}
