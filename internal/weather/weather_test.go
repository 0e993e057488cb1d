package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/agri-commons/internal/timeseries"
)

func TestSeriesResolvesNearestBoundary(t *testing.T) {
	s, err := NewSeries([]timeseries.Point[Observation]{
		{Date: timeseries.Date(2020, 1, 1), Value: Observation{TempMaxC: 20}},
		{Date: timeseries.Date(2020, 1, 3), Value: Observation{TempMaxC: 30}},
	})
	require.NoError(t, err)

	assert.Equal(t, 20.0, s.At(timeseries.Date(2019, 5, 1)).TempMaxC)
	assert.Equal(t, 20.0, s.At(timeseries.Date(2020, 1, 2)).TempMaxC)
	assert.Equal(t, 30.0, s.At(timeseries.Date(2031, 1, 1)).TempMaxC)
}

func TestNewSeriesRejectsEmpty(t *testing.T) {
	_, err := NewSeries(nil)
	assert.ErrorIs(t, err, timeseries.ErrEmpty)
}

func TestEffectivePrecipitation(t *testing.T) {
	assert.Equal(t, 0.0, EffectivePrecipitationMM(Observation{}))
	assert.InDelta(t, 4.0, EffectivePrecipitationMM(Observation{PrecipitationMM: 5}), 1e-9)
	assert.InDelta(t, 9.0, EffectivePrecipitationMM(Observation{PrecipitationMM: 15}), 1e-9)
	assert.Equal(t, 25.0, EffectivePrecipitationMM(Observation{PrecipitationMM: 200}))
}

func TestHeatStress(t *testing.T) {
	assert.Equal(t, 1.15, HeatStress(Observation{TempMaxC: 42}))
	assert.Equal(t, 1.08, HeatStress(Observation{TempMaxC: 36}))
	assert.Equal(t, 1.0, HeatStress(Observation{TempMaxC: 25}))
	assert.Equal(t, 0.95, HeatStress(Observation{TempMaxC: 10}))
	assert.Equal(t, 17.5, Observation{TempMaxC: 25, TempMinC: 10}.MeanTempC())
}
