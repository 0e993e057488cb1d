package accounting

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Period is a reporting window.
type Period uint8

const (
	PeriodMonth Period = iota
	PeriodYear
	PeriodLifetime
)

// ParsePeriod maps "month", "year" or "lifetime" to a Period.
func ParsePeriod(name string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "month":
		return PeriodMonth, nil
	case "year", "":
		return PeriodYear, nil
	case "lifetime":
		return PeriodLifetime, nil
	}
	return 0, fmt.Errorf("unknown period %q (expected month, year or lifetime)", name)
}

// Totals aggregates a farm's records over one period.
type Totals struct {
	FarmID string `json:"farm_id"`
	Period string `json:"period"` // "2024-03", "2024" or "lifetime"
	Days   int    `json:"days"`

	IrrigationM3       float64 `json:"irrigation_m3"`
	GroundwaterM3      float64 `json:"groundwater_m3"`
	HarvestKg          float64 `json:"harvest_kg"`
	Revenue            float64 `json:"revenue"`
	WaterCost          float64 `json:"water_cost"`
	EnergyCost         float64 `json:"energy_cost"`
	EnergyEconomicCost float64 `json:"energy_economic_cost"`
	LaborCost          float64 `json:"labor_cost"`
	InputCost          float64 `json:"input_cost"`
	StorageCost        float64 `json:"storage_cost"`
	SharedCost         float64 `json:"shared_cost"`
	DebtService        float64 `json:"debt_service"`
	TotalCost          float64 `json:"total_cost"`
	NetIncome          float64 `json:"net_income"`
	ClosingCash        float64 `json:"closing_cash"`
}

func periodKey(p Period, r FarmRecord) string {
	switch p {
	case PeriodMonth:
		return r.Date.Format("2006-01")
	case PeriodYear:
		return strconv.Itoa(r.Date.Year())
	default:
		return "lifetime"
	}
}

// Rollup aggregates records by farm and period, ordered by farm then
// period. Records must be in date order per farm for ClosingCash.
func Rollup(records []FarmRecord, p Period) []Totals {
	type key struct{ farm, period string }
	index := make(map[key]*Totals)
	var order []key

	for _, r := range records {
		k := key{farm: r.FarmID, period: periodKey(p, r)}
		t, ok := index[k]
		if !ok {
			t = &Totals{FarmID: r.FarmID, Period: k.period}
			index[k] = t
			order = append(order, k)
		}
		t.Days++
		t.IrrigationM3 += r.IrrigationM3
		t.GroundwaterM3 += r.GroundwaterM3
		t.HarvestKg += r.HarvestKg
		t.Revenue += r.Revenue
		t.WaterCost += r.WaterCost
		t.EnergyCost += r.EnergyCost
		t.EnergyEconomicCost += r.EnergyEconomicCost
		t.LaborCost += r.LaborCost
		t.InputCost += r.InputCost
		t.StorageCost += r.StorageCost
		t.SharedCost += r.SharedCost
		t.DebtService += r.DebtService
		t.TotalCost += r.TotalCost
		t.NetIncome += r.NetIncome
		t.ClosingCash = r.CashBalance
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].farm != order[j].farm {
			return order[i].farm < order[j].farm
		}
		return order[i].period < order[j].period
	})
	out := make([]Totals, len(order))
	for i, k := range order {
		out[i] = *index[k]
	}
	return out
}
