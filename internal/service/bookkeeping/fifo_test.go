package bookkeeping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFIFO(t *testing.T) {
	tests := []struct {
		name      string
		available []float64
		qty       float64
		want      []float64
		wantErr   bool
	}{
		{name: "first lot covers", available: []float64{100, 50}, qty: 30, want: []float64{30, 0}},
		{name: "spills into next lot", available: []float64{20, 50}, qty: 45, want: []float64{20, 25}},
		{name: "skips empty lots", available: []float64{0, 10, 10}, qty: 15, want: []float64{0, 10, 5}},
		{name: "exact total", available: []float64{1.5, 2.5}, qty: 4, want: []float64{1.5, 2.5}},
		{name: "short", available: []float64{10, 5}, qty: 16, wantErr: true},
		{name: "no lots", qty: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := allocateFIFO(tt.available, tt.qty)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInsufficientStock)
				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-9)
		})
	}
}

func TestDepletionCounter(t *testing.T) {
	c, err := depletionCounter("mortality")
	require.NoError(t, err)
	assert.Equal(t, "depleted", c)

	c, err = depletionCounter("culling")
	require.NoError(t, err)
	assert.Equal(t, "culled", c)

	_, err = depletionCounter("theft")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
