package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		typ  CommandType
		args []string
	}{
		{"/mortality 12 3 heat stress", CommandMortality, []string{"12", "3", "heat", "stress"}},
		{"  MATI 4 1 ", CommandMortality, []string{"4", "1"}},
		{"/afkir 4 2", CommandCull, []string{"4", "2"}},
		{"/pakan 4 br-1 50", CommandFeed, []string{"4", "br-1", "50"}},
		{"/status 9", CommandStatus, []string{"9"}},
		{"/help", CommandHelp, nil},
		{"hello there", CommandUnknown, []string{"there"}},
		{"   ", CommandUnknown, nil},
	}

	for _, tc := range cases {
		cmd := ParseCommand(tc.in)
		assert.Equal(t, tc.typ, cmd.Type, tc.in)
		assert.Equal(t, tc.args, cmd.Args, tc.in)
		assert.Equal(t, tc.in, cmd.Raw)
	}
}

func TestLivestockPopulationAndAge(t *testing.T) {
	start := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)
	l := Livestock{
		StartDate:       start,
		InitialQuantity: 1000,
		Depleted:        12,
		Culled:          3,
		Sold:            100,
		MutatedIn:       20,
		MutatedOut:      5,
	}

	assert.Equal(t, 900, l.Population())
	assert.Equal(t, 1, l.AgeOn(start))
	assert.Equal(t, 1, l.AgeOn(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, l.AgeOn(start.AddDate(0, 0, 34)))
}

func TestStockAvailable(t *testing.T) {
	s := FeedStock{QuantityIn: 500, QuantityUsed: 120.5, QuantityMutated: 50}
	assert.InDelta(t, 329.5, s.Available(), 1e-9)
}

func TestModelStamp(t *testing.T) {
	var m Model
	m.Stamp(7)
	if assert.NotNil(t, m.CreatedBy) {
		assert.Equal(t, uint(7), *m.CreatedBy)
	}

	m.ID = 3
	m.Stamp(9)
	assert.Equal(t, uint(7), *m.CreatedBy)
	assert.Equal(t, uint(9), *m.UpdatedBy)

	var untouched Model
	untouched.Stamp(0)
	assert.Nil(t, untouched.CreatedBy)
}
