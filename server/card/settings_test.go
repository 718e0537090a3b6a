package card

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	idOne = "550e8400-e29b-41d4-a716-446655440000"
	idTwo = "6ba7b810-9dad-41d1-80b4-00c04fd430c8"
)

func validSettings() Settings {
	return Settings{
		ID:        idOne,
		Name:      "Olyckor",
		Enabled:   true,
		ChannelID: "channel123",
		Config:    "entity: sensor.trafikinfo_se_olycka\nshow_map: true\n",
	}
}

func TestValidateSettings_Valid(t *testing.T) {
	second := validSettings()
	second.ID = idTwo
	second.Name = "Viktig trafikinformation"
	second.Config = `{"entity": "sensor.trafikinfo_se_viktig_trafikinformation", "preset": "important"}`
	second.ChannelID = ""

	tests := []struct {
		name  string
		input []Settings
	}{
		{name: "empty configuration", input: nil},
		{name: "empty array", input: []Settings{}},
		{name: "single card", input: []Settings{validSettings()}},
		{name: "multiple cards", input: []Settings{validSettings(), second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, ValidateSettings(tt.input))
		})
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
		errMsg string
	}{
		{
			name:   "missing ID",
			modify: func(s *Settings) { s.ID = "" },
			errMsg: "missing required field 'id'",
		},
		{
			name:   "missing name",
			modify: func(s *Settings) { s.Name = "" },
			errMsg: "missing required field 'name'",
		},
		{
			name:   "invalid UUID",
			modify: func(s *Settings) { s.ID = "not-a-uuid" },
			errMsg: "invalid UUID format",
		},
		{
			name:   "UUID v1",
			modify: func(s *Settings) { s.ID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8" },
			errMsg: "must be a UUID v4",
		},
		{
			name:   "missing entity",
			modify: func(s *Settings) { s.Config = "title: Olyckor\n" },
			errMsg: "you must specify an entity",
		},
		{
			name:   "malformed config",
			modify: func(s *Settings) { s.Config = "entity: [" },
			errMsg: "card 'Olyckor'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(&s)

			err := ValidateSettings([]Settings{s})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateSettings_Duplicates(t *testing.T) {
	t.Run("duplicate ID", func(t *testing.T) {
		second := validSettings()
		second.Name = "Other"

		err := ValidateSettings([]Settings{validSettings(), second})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate card ID")
	})

	t.Run("duplicate name", func(t *testing.T) {
		second := validSettings()
		second.ID = idTwo

		err := ValidateSettings([]Settings{validSettings(), second})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate card name")
	})
}

func TestValidateUUID(t *testing.T) {
	require.NoError(t, ValidateUUID(uuid.New().String()))
	require.Error(t, ValidateUUID(""))
	require.Error(t, ValidateUUID(uuid.NewMD5(uuid.NameSpaceURL, []byte("x")).String()))
}

func TestDiffSettings(t *testing.T) {
	one := validSettings()
	two := validSettings()
	two.ID = idTwo
	two.Name = "Second"
	three := validSettings()
	three.ID = uuid.New().String()
	three.Name = "Third"

	changed := two
	changed.Config = "entity: sensor.other\n"

	toAdd, toUpdate, toRemove := DiffSettings(
		[]Settings{one, two},
		[]Settings{changed, three},
	)

	assert.Equal(t, []string{three.ID}, toAdd)
	assert.Equal(t, []string{idTwo}, toUpdate)
	assert.Equal(t, []string{idOne}, toRemove)

	toAdd, toUpdate, toRemove = DiffSettings([]Settings{one}, []Settings{one})
	assert.Empty(t, toAdd)
	assert.Empty(t, toUpdate)
	assert.Empty(t, toRemove)
}
