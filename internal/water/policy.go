package water

import "fmt"

// Policy decides how much of the day's demand to request from groundwater.
// Capacity clipping is applied afterwards by Allocate for every policy.
type Policy interface {
	Name() string
	RequestGroundwater(demandM3 float64, ctx Context) (float64, string)
}

// MaxGroundwater requests all demand from groundwater.
type MaxGroundwater struct{}

func (MaxGroundwater) Name() string { return "max_groundwater" }

func (MaxGroundwater) RequestGroundwater(demandM3 float64, _ Context) (float64, string) {
	return demandM3, "groundwater preferred"
}

// MinWaterCost picks whichever source is cheaper per m3 today.
type MinWaterCost struct{}

func (MinWaterCost) Name() string { return "min_water_cost" }

func (MinWaterCost) RequestGroundwater(demandM3 float64, ctx Context) (float64, string) {
	gw := ctx.GroundwaterCostPerM3()
	if gw <= ctx.MunicipalPricePerM3 {
		return demandM3, fmt.Sprintf("groundwater cheaper (%.3f <= %.3f)", gw, ctx.MunicipalPricePerM3)
	}
	return 0, fmt.Sprintf("municipal cheaper (%.3f < %.3f)", ctx.MunicipalPricePerM3, gw)
}

// QualityTarget blends the two sources linearly so the mix meets a
// salinity target.
type QualityTarget struct {
	TargetTDS float64
}

func (QualityTarget) Name() string { return "quality_target" }

func (p QualityTarget) RequestGroundwater(demandM3 float64, ctx Context) (float64, string) {
	f := BlendFraction(ctx.System.GroundwaterTDS, ctx.System.MunicipalTDS, p.TargetTDS)
	return demandM3 * f, fmt.Sprintf("blend %.3f groundwater for %.0f mg/L", f, p.TargetTDS)
}

// BlendFraction is the largest groundwater fraction f in [0, 1] such that
// f*gw + (1-f)*mun <= target.
func BlendFraction(gwTDS, munTDS, target float64) float64 {
	if gwTDS <= target {
		return 1
	}
	if munTDS >= target || gwTDS == munTDS {
		return 0
	}
	f := (target - munTDS) / (gwTDS - munTDS)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ExtractionQuota caps groundwater to an annual allowance, spread evenly
// over months with MonthlyVariance tolerance above the even share.
type ExtractionQuota struct {
	AnnualM3        float64
	MonthlyVariance float64
}

func (ExtractionQuota) Name() string { return "extraction_quota" }

// MonthlyLimitM3 is the most groundwater allowed in any one month.
func (p ExtractionQuota) MonthlyLimitM3() float64 {
	return p.AnnualM3 / 12 * (1 + p.MonthlyVariance)
}

func (p ExtractionQuota) RequestGroundwater(demandM3 float64, ctx Context) (float64, string) {
	yearLeft := p.AnnualM3 - ctx.Extraction.YearM3
	monthLeft := p.MonthlyLimitM3() - ctx.Extraction.MonthM3
	left := yearLeft
	binding := "annual"
	if monthLeft < left {
		left = monthLeft
		binding = "monthly"
	}
	if left <= 0 {
		return 0, binding + " quota exhausted"
	}
	if demandM3 <= left {
		return demandM3, "within quota"
	}
	return left, binding + " quota limits groundwater"
}
