package accounting

import (
	"sort"
	"time"

	"github.com/talgya/agri-commons/internal/water"
)

// FarmDay collects everything attributed to one farm during a day.
type FarmDay struct {
	FarmID      string
	AreaHa      float64
	UsageM3     float64 // cumulative irrigation before today
	OpeningCash float64

	Water              water.FarmWater
	EnergyKWh          float64
	EnergyCost         float64
	EnergyEconomicCost float64
	LaborHours         float64
	InputCost          float64
	StorageCost        float64
	HarvestKg          float64
	RevenueByCrop      map[string]float64
}

// Day is the accountant's input for one simulated date.
type Day struct {
	Date        time.Time
	Farms       []FarmDay
	Method      Method
	WagePerHour float64
	SharedCost  float64 // community operating cost to allocate
	DebtService float64 // community debt payment to allocate
}

// Close rolls one day into farm records and updates cash. Cash may go
// negative; insolvency is reported, not enforced.
func Close(d Day) []FarmRecord {
	basis := make([]Basis, len(d.Farms))
	for i, f := range d.Farms {
		basis[i] = Basis{FarmID: f.FarmID, AreaHa: f.AreaHa, Usage: f.UsageM3}
	}
	shared := Allocate(d.Method, d.SharedCost, basis)
	debt := Allocate(d.Method, d.DebtService, basis)

	records := make([]FarmRecord, len(d.Farms))
	for i, f := range d.Farms {
		r := FarmRecord{
			Date:               d.Date,
			FarmID:             f.FarmID,
			IrrigationM3:       f.Water.DeliveredM3(),
			GroundwaterM3:      f.Water.GroundwaterM3,
			MunicipalM3:        f.Water.MunicipalM3,
			WaterCost:          f.Water.CostCash,
			EnergyKWh:          f.EnergyKWh,
			EnergyCost:         f.EnergyCost,
			EnergyEconomicCost: f.EnergyEconomicCost,
			LaborHours:         f.LaborHours,
			LaborCost:          f.LaborHours * d.WagePerHour,
			InputCost:          f.InputCost,
			StorageCost:        f.StorageCost,
			SharedCost:         shared[i],
			DebtService:        debt[i],
			HarvestKg:          f.HarvestKg,
			RevenueByCrop:      make(map[string]float64, len(f.RevenueByCrop)),
		}
		crops := make([]string, 0, len(f.RevenueByCrop))
		for c := range f.RevenueByCrop {
			crops = append(crops, c)
		}
		sort.Strings(crops)
		for _, c := range crops {
			r.RevenueByCrop[c] = f.RevenueByCrop[c]
			r.Revenue += f.RevenueByCrop[c]
		}

		r.TotalCost = r.WaterCost + r.EnergyCost + r.LaborCost + r.InputCost +
			r.StorageCost + r.SharedCost + r.DebtService
		r.NetIncome = r.Revenue - r.TotalCost
		r.CashBalance = f.OpeningCash + r.NetIncome
		records[i] = r
	}
	return records
}

// Summarize fills the community record's farm totals.
func Summarize(c *CommunityRecord, farms []FarmRecord) {
	c.TotalFarmCash, c.TotalFarmCost, c.TotalFarmIncome = 0, 0, 0
	for _, r := range farms {
		c.TotalFarmCash += r.CashBalance
		c.TotalFarmCost += r.TotalCost
		c.TotalFarmIncome += r.NetIncome
	}
}
