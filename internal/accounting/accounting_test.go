package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/agri-commons/internal/timeseries"
	"github.com/talgya/agri-commons/internal/water"
)

func TestAllocateMethods(t *testing.T) {
	farms := []Basis{
		{FarmID: "a", AreaHa: 3, Usage: 0},
		{FarmID: "b", AreaHa: 1, Usage: 0},
	}

	assert.Equal(t, []float64{50, 50}, Allocate(MethodEqual, 100, farms))
	assert.Equal(t, []float64{75, 25}, Allocate(MethodArea, 100, farms))

	t.Run("usage falls back to area without history", func(t *testing.T) {
		assert.Equal(t, []float64{75, 25}, Allocate(MethodUsage, 100, farms))
	})

	t.Run("usage once history exists", func(t *testing.T) {
		farms[0].Usage, farms[1].Usage = 10, 30
		assert.Equal(t, []float64{25, 75}, Allocate(MethodUsage, 100, farms))
	})

	t.Run("area falls back to equal without area", func(t *testing.T) {
		bare := []Basis{{FarmID: "a"}, {FarmID: "b"}}
		assert.Equal(t, []float64{50, 50}, Allocate(MethodArea, 100, bare))
		assert.Equal(t, []float64{50, 50}, Allocate(MethodUsage, 100, bare))
	})

	assert.Empty(t, Allocate(MethodEqual, 100, nil))
	assert.Equal(t, []float64{0, 0}, Allocate(MethodArea, 0, farms))
}

func TestParseMethod(t *testing.T) {
	for _, m := range []Method{MethodEqual, MethodArea, MethodUsage} {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMethod("lottery")
	assert.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Month ")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, p)
	p, err = ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodYear, p)
	_, err = ParsePeriod("week")
	assert.Error(t, err)
}

func TestLoanPayments(t *testing.T) {
	flat := Loan{Principal: 1200, TermMonths: 12}
	assert.InDelta(t, 100.0, flat.MonthlyPayment(), 1e-9)

	l := Loan{Principal: 100000, AnnualRate: 0.06, TermMonths: 120}
	assert.InDelta(t, 1110.205, l.MonthlyPayment(), 1e-3)
}

func TestDebtScheduleChargesFirstOfMonth(t *testing.T) {
	start := timeseries.Date(2024, 2, 1)
	d := NewDebtSchedule([]Loan{{Principal: 300, TermMonths: 3, Start: start}})

	assert.Equal(t, 0.0, d.BeginDay(timeseries.Date(2024, 1, 1)))
	assert.InDelta(t, 300.0, d.Outstanding(), 1e-9)

	total := 0.0
	for day := start; day.Before(timeseries.Date(2024, 8, 1)); day = day.AddDate(0, 0, 1) {
		total += d.BeginDay(day)
	}
	assert.InDelta(t, 300.0, total, 1e-9)
	assert.Equal(t, []int{3}, d.Paid)
	assert.Equal(t, 0.0, d.Outstanding())

	clone := d.Clone()
	clone.Paid[0] = 0
	assert.Equal(t, 3, d.Paid[0])
}

func TestOutstandingAmortizes(t *testing.T) {
	d := NewDebtSchedule([]Loan{{Principal: 100000, AnnualRate: 0.06, TermMonths: 120, Start: timeseries.Date(2024, 1, 1)}})
	d.BeginDay(timeseries.Date(2024, 1, 1))
	// One payment: 100000*1.005 - 1110.205
	assert.InDelta(t, 99389.795, d.Outstanding(), 1e-2)
}

func TestSharedCostsDaily(t *testing.T) {
	s := SharedCosts{InfrastructureOM: 365, ManagementLabor: 730, MaintenanceLabor: 0, ReplacementReserve: 365}
	assert.InDelta(t, 4.0, s.Daily(), 1e-9)
}

func TestCloseRollsUpCostsAndCash(t *testing.T) {
	day := timeseries.Date(2024, 5, 1)
	records := Close(Day{
		Date:        day,
		Method:      MethodArea,
		WagePerHour: 10,
		SharedCost:  40,
		DebtService: 20,
		Farms: []FarmDay{
			{
				FarmID:        "a",
				AreaHa:        3,
				OpeningCash:   100,
				Water:         water.FarmWater{FarmID: "a", GroundwaterM3: 30, MunicipalM3: 10, CostCash: 8},
				EnergyKWh:     50,
				EnergyCost:    5,
				LaborHours:    2,
				InputCost:     1,
				StorageCost:   0.5,
				RevenueByCrop: map[string]float64{"tomato": 90, "kale": 10},
			},
			{FarmID: "b", AreaHa: 1, OpeningCash: 0},
		},
	})
	require.Len(t, records, 2)

	a := records[0]
	assert.Equal(t, 40.0, a.IrrigationM3)
	assert.Equal(t, 20.0, a.LaborCost)
	assert.Equal(t, 30.0, a.SharedCost)
	assert.Equal(t, 15.0, a.DebtService)
	assert.Equal(t, 100.0, a.Revenue)
	assert.InDelta(t, 8+5+20+1+0.5+30+15, a.TotalCost, 1e-9)
	assert.InDelta(t, 100-79.5, a.NetIncome, 1e-9)
	assert.InDelta(t, 120.5, a.CashBalance, 1e-9)

	b := records[1]
	assert.Equal(t, 10.0, b.SharedCost)
	assert.Equal(t, 5.0, b.DebtService)
	assert.InDelta(t, -15.0, b.CashBalance, 1e-9)

	var c CommunityRecord
	Summarize(&c, records)
	assert.InDelta(t, 105.5, c.TotalFarmCash, 1e-9)
}

func TestRollup(t *testing.T) {
	recs := []FarmRecord{
		{FarmID: "b", Date: timeseries.Date(2024, 1, 31), Revenue: 1, TotalCost: 2, NetIncome: -1, CashBalance: 9},
		{FarmID: "a", Date: timeseries.Date(2024, 1, 31), Revenue: 5, NetIncome: 5, CashBalance: 5},
		{FarmID: "a", Date: timeseries.Date(2024, 2, 1), Revenue: 3, NetIncome: 3, CashBalance: 8},
		{FarmID: "a", Date: timeseries.Date(2025, 2, 1), Revenue: 1, NetIncome: 1, CashBalance: 9},
	}

	months := Rollup(recs, PeriodMonth)
	require.Len(t, months, 4)
	assert.Equal(t, "a", months[0].FarmID)
	assert.Equal(t, "2024-01", months[0].Period)
	assert.Equal(t, "2025-02", months[2].Period)
	assert.Equal(t, "b", months[3].FarmID)

	years := Rollup(recs, PeriodYear)
	require.Len(t, years, 3)
	assert.Equal(t, 8.0, years[0].Revenue)
	assert.Equal(t, 8.0, years[0].ClosingCash)
	assert.Equal(t, 2, years[0].Days)

	life := Rollup(recs, PeriodLifetime)
	require.Len(t, life, 2)
	assert.Equal(t, 9.0, life[0].Revenue)
	assert.Equal(t, 9.0, life[0].ClosingCash)
	assert.Equal(t, "lifetime", life[1].Period)
}
