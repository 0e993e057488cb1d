package crops

import (
	"time"

	"github.com/talgya/agri-commons/internal/weather"
)

// DemandContext is what a crop policy sees when adjusting demand.
type DemandContext struct {
	Date    time.Time
	Crop    string
	Stage   Stage
	AreaHa  float64
	Weather weather.Observation
}

// DemandPolicy adjusts a crop's base irrigation requirement.
type DemandPolicy interface {
	Name() string
	AdjustDemand(baseM3 float64, ctx DemandContext) float64
}

// FixedIrrigation applies the full requirement.
type FixedIrrigation struct{}

func (FixedIrrigation) Name() string { return "fixed_irrigation" }

func (FixedIrrigation) AdjustDemand(baseM3 float64, _ DemandContext) float64 {
	return nonNegative(baseM3)
}

// DeficitIrrigation waters at Fraction of the requirement outside mid-season,
// when yield is least sensitive to stress.
type DeficitIrrigation struct {
	Fraction float64
}

func (DeficitIrrigation) Name() string { return "deficit_irrigation" }

func (p DeficitIrrigation) AdjustDemand(baseM3 float64, ctx DemandContext) float64 {
	if ctx.Stage == StageMidSeason {
		return nonNegative(baseM3)
	}
	f := p.Fraction
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return nonNegative(baseM3 * f)
}

// WeatherAdaptive scales demand for heat and credits effective rainfall.
type WeatherAdaptive struct{}

func (WeatherAdaptive) Name() string { return "weather_adaptive" }

func (WeatherAdaptive) AdjustDemand(baseM3 float64, ctx DemandContext) float64 {
	if baseM3 <= 0 {
		return 0
	}
	// 1 mm over 1 ha is 10 m3.
	rain := weather.EffectivePrecipitationMM(ctx.Weather) * 10 * ctx.AreaHa
	return nonNegative(baseM3*weather.HeatStress(ctx.Weather) - rain)
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
