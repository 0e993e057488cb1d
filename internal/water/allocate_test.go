package water

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/agri-commons/internal/timeseries"
)

func testContext() Context {
	return Context{
		Date: timeseries.Date(2024, 6, 1),
		System: System{
			WellCapacityM3:      1000,
			TreatmentCapacityM3: 1000,
			PumpKWhPerM3:        0.5,
			TreatmentKWhPerM3:   1.5,
			ConveyanceKWhPerM3:  0.2,
			GroundwaterOMPerM3:  0.05,
			GroundwaterTDS:      1200,
			MunicipalTDS:        300,
		},
		MunicipalPricePerM3: 0.6,
		EnergyPricePerKWh:   0.1,
	}
}

func TestAllocateWellLimited(t *testing.T) {
	ctx := testContext()
	ctx.System.WellCapacityM3 = 80

	res := Allocate(100, MaxGroundwater{}, ctx)
	assert.Equal(t, 80.0, res.GroundwaterM3)
	assert.Equal(t, 20.0, res.MunicipalM3)
	assert.Equal(t, ConstraintWell, res.Constraint)
	assert.InDelta(t, 80*2.2, res.EnergyKWh, 1e-9)
	assert.InDelta(t, 20*0.6+80*0.05, res.CostCash, 1e-9)
}

func TestAllocateTreatmentLimited(t *testing.T) {
	ctx := testContext()
	ctx.System.TreatmentCapacityM3 = 30

	res := Allocate(100, MaxGroundwater{}, ctx)
	assert.Equal(t, 30.0, res.GroundwaterM3)
	assert.Equal(t, 70.0, res.MunicipalM3)
	assert.Equal(t, ConstraintTreatment, res.Constraint)
}

func TestAllocateZeroDemand(t *testing.T) {
	res := Allocate(0, MaxGroundwater{}, testContext())
	assert.Equal(t, Result{Policy: "max_groundwater", Reason: "no demand"}, res)
}

func TestAllocateConservesWater(t *testing.T) {
	policies := []Policy{
		MaxGroundwater{},
		MinWaterCost{},
		QualityTarget{TargetTDS: 600},
		ExtractionQuota{AnnualM3: 12000, MonthlyVariance: 0.1},
	}
	for _, p := range policies {
		for _, demand := range []float64{0.5, 50, 999, 5000} {
			ctx := testContext()
			ctx.System.WellCapacityM3 = 700
			res := Allocate(demand, p, ctx)
			assert.InDelta(t, demand, res.GroundwaterM3+res.MunicipalM3, 1e-9, "%s demand %v", p.Name(), demand)
			assert.GreaterOrEqual(t, res.GroundwaterM3, 0.0)
			assert.LessOrEqual(t, res.GroundwaterM3, 700.0)
		}
	}
}

func TestMinWaterCost(t *testing.T) {
	ctx := testContext()
	// Groundwater: 0.05 + 2.2*0.1 = 0.27 < 0.6
	res := Allocate(100, MinWaterCost{}, ctx)
	assert.Equal(t, 100.0, res.GroundwaterM3)

	ctx.EnergyPricePerKWh = 1.0
	res = Allocate(100, MinWaterCost{}, ctx)
	assert.Equal(t, 0.0, res.GroundwaterM3)
	assert.Equal(t, 100.0, res.MunicipalM3)
	assert.Equal(t, ConstraintNone, res.Constraint)
}

func TestQualityTargetBlend(t *testing.T) {
	ctx := testContext()
	res := Allocate(90, QualityTarget{TargetTDS: 600}, ctx)
	// (600-300)/(1200-300) = 1/3
	assert.InDelta(t, 30.0, res.GroundwaterM3, 1e-9)

	assert.Equal(t, 1.0, BlendFraction(200, 300, 600))
	assert.Equal(t, 0.0, BlendFraction(1200, 700, 600))
}

func TestExtractionQuota(t *testing.T) {
	ctx := testContext()
	q := ExtractionQuota{AnnualM3: 1200, MonthlyVariance: 0.5}
	assert.InDelta(t, 150.0, q.MonthlyLimitM3(), 1e-9)

	ctx.Extraction = Extraction{MonthM3: 100, YearM3: 100}
	res := Allocate(100, q, ctx)
	assert.InDelta(t, 50.0, res.GroundwaterM3, 1e-9)
	assert.Equal(t, ConstraintNone, res.Constraint)

	ctx.Extraction = Extraction{MonthM3: 0, YearM3: 1190}
	res = Allocate(100, q, ctx)
	assert.InDelta(t, 10.0, res.GroundwaterM3, 1e-9)

	ctx.Extraction = Extraction{MonthM3: 150, YearM3: 150}
	res = Allocate(100, q, ctx)
	assert.Equal(t, 0.0, res.GroundwaterM3)
	assert.Equal(t, "monthly quota exhausted", res.Reason)
}

func TestExtractionResetsBeforeRead(t *testing.T) {
	var e Extraction
	e.BeginDay(timeseries.Date(2024, 1, 30))
	e.Record(10)
	e.BeginDay(timeseries.Date(2024, 1, 31))
	e.Record(5)
	assert.Equal(t, 15.0, e.MonthM3)

	e.BeginDay(timeseries.Date(2024, 2, 1))
	assert.Equal(t, 0.0, e.MonthM3)
	assert.Equal(t, 15.0, e.YearM3)
	e.Record(7)

	e.BeginDay(timeseries.Date(2025, 2, 1))
	assert.Equal(t, 0.0, e.MonthM3)
	assert.Equal(t, 0.0, e.YearM3)
	assert.Equal(t, 2025, e.Year)
}

func TestApportionProRata(t *testing.T) {
	res := Result{GroundwaterM3: 80, MunicipalM3: 20, EnergyKWh: 160, CostCash: 10}
	out := Apportion(res, []FarmDemand{
		{FarmID: "a", DemandM3: 60},
		{FarmID: "b", DemandM3: 0},
		{FarmID: "c", DemandM3: 40},
	})

	assert.Equal(t, "a", out[0].FarmID)
	assert.InDelta(t, 48.0, out[0].GroundwaterM3, 1e-9)
	assert.InDelta(t, 12.0, out[0].MunicipalM3, 1e-9)
	assert.InDelta(t, 6.0, out[0].CostCash, 1e-9)
	assert.Equal(t, FarmWater{FarmID: "b"}, out[1])
	assert.InDelta(t, 40.0, out[2].DeliveredM3(), 1e-9)
	assert.InDelta(t, 64.0, out[2].EnergyKWh, 1e-9)
}

func TestApportionZeroTotal(t *testing.T) {
	out := Apportion(Result{}, []FarmDemand{{FarmID: "a"}, {FarmID: "b"}})
	assert.Len(t, out, 2)
	assert.Equal(t, 0.0, out[0].Share)
	assert.Equal(t, 0.0, out[1].Share)
}
