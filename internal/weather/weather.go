// Package weather provides resolved daily weather observations.
// Observations come from historical records; missing days forward-fill
// from the nearest earlier record.
package weather

import (
	"fmt"
	"time"

	"github.com/talgya/agri-commons/internal/timeseries"
)

// Observation holds one day of weather.
type Observation struct {
	TempMaxC        float64 `json:"temp_max_c"`
	TempMinC        float64 `json:"temp_min_c"`
	SolarMJM2       float64 `json:"solar_mj_m2"`      // Global horizontal irradiance
	WindSpeedMS     float64 `json:"wind_speed_ms"`    // 2 m height
	PrecipitationMM float64 `json:"precipitation_mm"` // Daily total
	ET0MM           float64 `json:"et0_mm"`           // Reference evapotranspiration
}

// MeanTempC returns the daily mean temperature.
func (o Observation) MeanTempC() float64 {
	return (o.TempMaxC + o.TempMinC) / 2
}

// Series resolves observations by date.
type Series struct {
	obs *timeseries.Series[Observation]
}

// NewSeries builds a resolver over dated observations.
func NewSeries(points []timeseries.Point[Observation]) (*Series, error) {
	s, err := timeseries.New(points)
	if err != nil {
		return nil, fmt.Errorf("weather series: %w", err)
	}
	return &Series{obs: s}, nil
}

// At returns the observation for date, clamped to the covered range.
func (s *Series) At(date time.Time) Observation {
	return s.obs.At(date)
}

// Span returns the covered date range.
func (s *Series) Span() (time.Time, time.Time) {
	return s.obs.Span()
}

// EffectivePrecipitationMM returns the share of rainfall available to crops.
// Uses the USDA-SCS style rule for daily totals: light rain is mostly
// effective, heavy rain mostly runs off.
func EffectivePrecipitationMM(o Observation) float64 {
	p := o.PrecipitationMM
	if p <= 0 {
		return 0
	}
	if p <= 5 {
		return p * 0.8
	}
	eff := 4 + (p-5)*0.5
	if eff > 25 {
		eff = 25
	}
	return eff
}

// HeatStress maps maximum temperature to an irrigation multiplier.
// Hot days raise crop water use, cool days lower it slightly.
func HeatStress(o Observation) float64 {
	switch {
	case o.TempMaxC > 40:
		return 1.15
	case o.TempMaxC > 35:
		return 1.08
	case o.TempMaxC < 15:
		return 0.95
	default:
		return 1.0
	}
}
