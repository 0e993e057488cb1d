package synth

import (
	"fmt"
	"sort"
	"time"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/crops"
	"github.com/talgya/agri-commons/internal/energy"
	"github.com/talgya/agri-commons/internal/scenario"
	"github.com/talgya/agri-commons/internal/storage"
	"github.com/talgya/agri-commons/internal/water"
)

// kc holds FAO-56 crop coefficients for the initial, mid and end stages.
// Development and late stages interpolate linearly.
type kc struct {
	Ini, Mid, End float64
}

func (k kc) at(t crops.StageTable, day int) float64 {
	switch t.StageAt(day) {
	case crops.StageInitial:
		return k.Ini
	case crops.StageDevelopment:
		frac := float64(day-t.Initial) / float64(max(1, t.Development))
		return k.Ini + (k.Mid-k.Ini)*frac
	case crops.StageMidSeason:
		return k.Mid
	case crops.StageLateSeason:
		frac := float64(day-t.Initial-t.Development-t.MidSeason) / float64(max(1, t.LateSeason))
		return k.Mid + (k.End-k.Mid)*frac
	}
	return 0
}

var coefficients = map[string]kc{
	"tomato":   {Ini: 0.6, Mid: 1.15, End: 0.8},
	"potato":   {Ini: 0.5, Mid: 1.15, End: 0.75},
	"onion":    {Ini: 0.7, Mid: 1.05, End: 0.75},
	"kale":     {Ini: 0.7, Mid: 1.05, End: 0.95},
	"cucumber": {Ini: 0.6, Mid: 1.0, End: 0.75},
	"default":  {Ini: 0.6, Mid: 1.1, End: 0.8},
}

// Profiles returns the demo crop set.
func Profiles() map[string]crops.Profile {
	return map[string]crops.Profile{
		"tomato": {Name: "tomato", Stages: crops.StageTable{Initial: 30, Development: 40, MidSeason: 45, LateSeason: 20},
			YieldKgPerHa: 45000, Ky: 1.05, HandlingLoss: 0.05, InputCostPerHa: 3200,
			FieldLaborHrsPerHaDay: 1.2, HarvestLaborHrsPerKg: 0.004},
		"potato": {Name: "potato", Stages: crops.StageTable{Initial: 25, Development: 30, MidSeason: 45, LateSeason: 20},
			YieldKgPerHa: 30000, Ky: 1.1, HandlingLoss: 0.04, InputCostPerHa: 2600,
			FieldLaborHrsPerHaDay: 0.8, HarvestLaborHrsPerKg: 0.002},
		"onion": {Name: "onion", Stages: crops.StageTable{Initial: 15, Development: 25, MidSeason: 70, LateSeason: 40},
			YieldKgPerHa: 35000, Ky: 1.1, HandlingLoss: 0.03, InputCostPerHa: 2100,
			FieldLaborHrsPerHaDay: 0.7, HarvestLaborHrsPerKg: 0.002},
		"kale": {Name: "kale", Stages: crops.StageTable{Initial: 20, Development: 25, MidSeason: 25, LateSeason: 15},
			YieldKgPerHa: 20000, Ky: 0.95, HandlingLoss: 0.06, InputCostPerHa: 1500,
			FieldLaborHrsPerHaDay: 1.0, HarvestLaborHrsPerKg: 0.006},
		"cucumber": {Name: "cucumber", Stages: crops.StageTable{Initial: 20, Development: 30, MidSeason: 35, LateSeason: 15},
			YieldKgPerHa: 38000, Ky: 1.0, HandlingLoss: 0.05, InputCostPerHa: 2800,
			FieldLaborHrsPerHaDay: 1.1, HarvestLaborHrsPerKg: 0.004},
	}
}

// FreshPrices are the base fresh prices per kg.
func FreshPrices() map[string]float64 {
	return map[string]float64{"tomato": 1.1, "potato": 0.55, "onion": 0.6, "kale": 1.8, "cucumber": 0.9}
}

// plantingDays are the month-days each crop is sown every year.
var plantingDays = map[string][]struct {
	Month time.Month
	Day   int
}{
	"tomato":   {{time.March, 1}},
	"potato":   {{time.February, 15}, {time.August, 15}},
	"onion":    {{time.October, 1}},
	"kale":     {{time.March, 1}, {time.September, 1}},
	"cucumber": {{time.April, 1}},
}

// rotation lists the crops grown by the i-th farm, cycling through the set.
var rotation = [][]string{
	{"tomato", "onion", "kale"},
	{"potato", "cucumber", "onion"},
	{"tomato", "potato", "kale"},
	{"cucumber", "kale", "onion"},
}

// Plantings returns every sowing date of a crop within [start, end].
func Plantings(crop string, start, end time.Time) []time.Time {
	var out []time.Time
	for y := start.Year(); y <= end.Year(); y++ {
		for _, md := range plantingDays[crop] {
			d := time.Date(y, md.Month, md.Day, 0, 0, 0, 0, time.UTC)
			if !d.Before(start) && !d.After(end) {
				out = append(out, d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Scenario builds the demo community around the given policies.
func Scenario(cfg Config, pol scenario.Policies, demand crops.DemandPolicy) *scenario.Scenario {
	sc := &scenario.Scenario{
		Name:        fmt.Sprintf("demo-%d-farms", cfg.Farms),
		Start:       cfg.Start,
		End:         cfg.End,
		Profiles:    Profiles(),
		Catalog:     storage.DefaultCatalog(),
		WagePerHour: 14,
		SharedCosts: accounting.SharedCosts{
			InfrastructureOM:   6000,
			ManagementLabor:    9000,
			MaintenanceLabor:   4000,
			ReplacementReserve: 5000,
		},
		Allocation: accounting.MethodUsage,
		Policies:   pol,
	}

	n := float64(cfg.Farms)
	for i := 0; i < cfg.Farms; i++ {
		f := scenario.Farm{
			ID:              fmt.Sprintf("farm-%02d", i+1),
			Name:            fmt.Sprintf("Farm %d", i+1),
			AreaHa:          cfg.FarmAreaHa,
			StartingCapital: cfg.StartingCapital,
			DemandPolicy:    demand,
		}
		for _, crop := range rotation[i%len(rotation)] {
			f.Crops = append(f.Crops, scenario.CropPlan{
				Profile:   crop,
				AreaHa:    cfg.FarmAreaHa * 0.3,
				Plantings: Plantings(crop, cfg.Start, cfg.End),
			})
		}
		sc.Farms = append(sc.Farms, f)
	}

	sc.Water = scenario.Water{
		System: water.System{
			WellCapacityM3:      120 * n,
			TreatmentCapacityM3: 100 * n,
			PumpKWhPerM3:        0.6,
			TreatmentKWhPerM3:   1.2, // brackish RO
			ConveyanceKWhPerM3:  0.1,
			GroundwaterOMPerM3:  0.08,
			GroundwaterTDS:      350,
			MunicipalTDS:        250,
		},
		StorageCapacityM3:      500 * n,
		StorageInitialM3:       250 * n,
		NonFarmM3PerDay:        1.5 * n,
		PressurizationKWhPerM3: 0.15,
	}
	sc.Energy = scenario.Energy{
		System: energy.System{
			PVKW:                   50 * n,
			WindKW:                 10 * n,
			BatteryKWh:             120 * n,
			SOCMin:                 0.1,
			SOCMax:                 0.95,
			ChargeEfficiency:       0.95,
			DischargeEfficiency:    0.95,
			SelfDischargePerDay:    0.002,
			GeneratorKW:            20 * n,
			GeneratorMinLoad:       0.3,
			FuelLPerKWh:            0.3,
			RenewableCapitalPerDay: 9 * n,
			BatteryCapitalPerDay:   4 * n,
		},
		InitialSOC: 0.5,
	}
	sc.Financing = scenario.Financing{
		Loans: []accounting.Loan{{
			Name:       "infrastructure",
			Principal:  60000 * n,
			AnnualRate: 0.045,
			TermMonths: 180,
			Start:      cfg.Start,
		}},
		CashCapex: 0.25 * cfg.StartingCapital * n,
	}
	return sc
}

func sortedNames(profiles map[string]crops.Profile) []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
