package matching

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstrument(t *testing.T) {
	piano, ok := ParseInstrument("  piano ", "")
	require.True(t, ok)
	assert.Equal(t, "Piano", piano.Name)
	assert.False(t, piano.Custom)

	_, ok = ParseInstrument("Other", "   ")
	assert.False(t, ok, "Other needs free text")

	_, ok = ParseInstrument("", "Banjo")
	assert.False(t, ok)

	banjo, ok := ParseInstrument("other", "  Five  String   Banjo ")
	require.True(t, ok)
	assert.True(t, banjo.Custom)
	assert.Equal(t, "Five String Banjo", banjo.Name)

	same, _ := ParseInstrument("Other", "five string banjo")
	assert.True(t, banjo.Equal(same))

	customPiano, _ := ParseInstrument("Other", "Piano")
	assert.False(t, piano.Equal(customPiano), "free text never equals a catalog instrument")

	assert.True(t, IsCatalogInstrument("french horn"))
	assert.False(t, IsCatalogInstrument("Kazoo"))
}

func TestNormalize(t *testing.T) {
	p, err := Normalize(RawParticipant{
		ID:   "t1",
		Role: RoleTutor,
		Instruments: []RawInstrument{
			{Value: "Guitar"},
			{Value: "guitar "},
			{Value: "Other"},
			{Value: "Other", Other: "Oud"},
		},
		Availability: []RawWindow{
			{Day: "Monday", Start: "15:00", End: "16:00"},
			{},
			{Day: "Monday", Start: "15:30", End: "17:00"},
		},
	})
	require.NoError(t, err)
	assert.True(t, p.Eligible)
	require.Len(t, p.Instruments, 2)
	assert.Equal(t, "Guitar", p.Instruments[0].Name)
	assert.Equal(t, "Oud", p.Instruments[1].Name)
	assert.Equal(t, []Window{{Day: 1, Start: 900, End: 1020}}, p.Windows)
	assert.True(t, p.Teaches("std:guitar"))
	assert.False(t, p.Teaches("std:piano"))
}

func TestNormalizeIneligible(t *testing.T) {
	p, err := Normalize(RawParticipant{
		ID:           "s1",
		Role:         RoleStudent,
		Instruments:  []RawInstrument{{Value: "Other", Other: ""}},
		Availability: []RawWindow{{Day: "Tue", Start: "10:00", End: "11:00"}},
	})
	require.NoError(t, err)
	assert.False(t, p.Eligible)
	assert.Equal(t, "no instruments", p.IneligibleReason())

	p, err = Normalize(RawParticipant{ID: "s2", Role: RoleStudent, Instruments: []RawInstrument{{Value: "Piano"}}})
	require.NoError(t, err)
	assert.Equal(t, "no availability", p.IneligibleReason())
}

func TestNormalizeMalformedWindow(t *testing.T) {
	_, err := Normalize(RawParticipant{
		ID:           "s9",
		Role:         RoleStudent,
		Instruments:  []RawInstrument{{Value: "Piano"}},
		Availability: []RawWindow{{Day: "Monday", Start: "10:00", End: "11:00"}, {Day: "Monday", Start: "12:00", End: "11:00"}},
	})
	var inputErr *InputDataError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "s9", inputErr.ParticipantID)
	assert.Equal(t, 1, inputErr.Index)
	assert.Contains(t, err.Error(), "availability[1]")
}

func TestNormalizeAll(t *testing.T) {
	eligible, excluded := NormalizeAll([]RawParticipant{
		{ID: "b", Role: RoleStudent, Instruments: []RawInstrument{{Value: "Piano"}}, Availability: []RawWindow{{Day: "Mon", Start: "09:00", End: "10:00"}}},
		{ID: "c", Role: RoleStudent},
		{ID: "a", Role: RoleStudent, Instruments: []RawInstrument{{Value: "Piano"}}, Availability: []RawWindow{{Day: "Mon", Start: "09:00", End: "10:00"}}},
		{ID: "0", Role: RoleStudent, Instruments: []RawInstrument{{Value: "Piano"}}, Availability: []RawWindow{{Day: "Mon", Start: "bad", End: "10:00"}}},
	})

	require.Len(t, eligible, 2)
	assert.Equal(t, "a", eligible[0].ID)
	assert.Equal(t, "b", eligible[1].ID)
	require.Len(t, excluded, 2)
	assert.Equal(t, "0", excluded[0].ID)
	assert.Error(t, excluded[0].Err)
	assert.Equal(t, "c", excluded[1].ID)
	assert.Equal(t, "no instruments and no availability", excluded[1].Reason)
}
