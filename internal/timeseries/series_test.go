package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesForwardFill(t *testing.T) {
	s, err := New([]Point[float64]{
		{Date: Date(2024, 3, 1), Value: 3},
		{Date: Date(2024, 1, 1), Value: 1},
		{Date: Date(2024, 2, 1), Value: 2},
	})
	require.NoError(t, err)

	cases := []struct {
		name string
		date time.Time
		want float64
	}{
		{"before first clamps to first", Date(2023, 12, 1), 1},
		{"exact point", Date(2024, 2, 1), 2},
		{"between points fills forward", Date(2024, 2, 15), 2},
		{"after last clamps to last", Date(2024, 12, 1), 3},
		{"time of day ignored", Date(2024, 3, 1).Add(13 * time.Hour), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.At(tc.date))
		})
	}
}

func TestSeriesDuplicateDatesKeepLast(t *testing.T) {
	s, err := New([]Point[float64]{
		{Date: Date(2024, 1, 1), Value: 1},
		{Date: Date(2024, 1, 1), Value: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 5.0, s.At(Date(2024, 1, 1)))
}

func TestSeriesEmpty(t *testing.T) {
	_, err := New[float64](nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestConstantAndMean(t *testing.T) {
	c := Constant(2.5)
	assert.Equal(t, 2.5, c.At(Date(1990, 6, 1)))
	assert.Equal(t, 2.5, c.At(Date(2090, 6, 1)))
	assert.Equal(t, 2.5, Mean(c))
	assert.Equal(t, 0.0, Mean(nil))
}
