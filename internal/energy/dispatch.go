// Package energy dispatches the community's daily electricity demand across
// photovoltaic, wind, battery, backup generator and grid sources.
package energy

import (
	"fmt"
	"math"
)

// System holds nameplate capacities and efficiencies. Fixed for a run.
type System struct {
	PVKW                float64 `json:"pv_kw"`
	WindKW              float64 `json:"wind_kw"`
	BatteryKWh          float64 `json:"battery_kwh"`
	SOCMin              float64 `json:"soc_min"`
	SOCMax              float64 `json:"soc_max"`
	ChargeEfficiency    float64 `json:"charge_efficiency"`
	DischargeEfficiency float64 `json:"discharge_efficiency"`
	SelfDischargePerDay float64 `json:"self_discharge_per_day"` // fraction of stored energy
	GeneratorKW         float64 `json:"generator_kw"`
	GeneratorMinLoad    float64 `json:"generator_min_load"` // fraction of daily capacity
	FuelLPerKWh         float64 `json:"fuel_l_per_kwh"`
	ExportCapKWh        float64 `json:"export_cap_kwh"` // per day

	// Amortized capital per day, counted in the economic cost only.
	RenewableCapitalPerDay float64 `json:"renewable_capital_per_day"`
	BatteryCapitalPerDay   float64 `json:"battery_capital_per_day"`
}

// Validate checks the bounds the dispatcher relies on.
func (s System) Validate() error {
	if s.BatteryKWh < 0 || s.PVKW < 0 || s.WindKW < 0 || s.GeneratorKW < 0 {
		return fmt.Errorf("energy system capacities must be non-negative")
	}
	if s.BatteryKWh > 0 {
		if s.SOCMin < 0 || s.SOCMax > 1 || s.SOCMin > s.SOCMax {
			return fmt.Errorf("battery SOC bounds [%v, %v] invalid", s.SOCMin, s.SOCMax)
		}
		if s.ChargeEfficiency <= 0 || s.ChargeEfficiency > 1 || s.DischargeEfficiency <= 0 || s.DischargeEfficiency > 1 {
			return fmt.Errorf("battery efficiencies must be in (0, 1]")
		}
	}
	return nil
}

// State is the community battery's state of charge.
type State struct {
	SOC float64 `json:"soc"`
}

// Demand is the day's aggregated electrical load by source, in kWh.
type Demand struct {
	WaterKWh          float64 `json:"water_kwh"`          // groundwater pumping, treatment, conveyance
	PressurizationKWh float64 `json:"pressurization_kwh"` // field irrigation pressure, any source
	ProcessingKWh     float64 `json:"processing_kwh"`     // same-day food processing
	HouseholdKWh      float64 `json:"household_kwh"`
	CommunityKWh      float64 `json:"community_kwh"`
}

// Total is the day's load.
func (d Demand) Total() float64 {
	return d.WaterKWh + d.PressurizationKWh + d.ProcessingKWh + d.HouseholdKWh + d.CommunityKWh
}

// Supply is the day's renewable generation in kWh.
type Supply struct {
	PVKWh   float64 `json:"pv_kwh"`
	WindKWh float64 `json:"wind_kwh"`
}

// Tariffs are the day's energy prices.
type Tariffs struct {
	GridImportPerKWh float64
	GridExportPerKWh float64
	DieselPerL       float64
}

// Result is one day's dispatch.
type Result struct {
	Policy string `json:"policy"`
	Demand Demand `json:"demand"`
	Flags  Flags  `json:"flags"`

	PVGeneratedKWh   float64 `json:"pv_generated_kwh"`
	WindGeneratedKWh float64 `json:"wind_generated_kwh"`
	PVUsedKWh        float64 `json:"pv_used_kwh"`
	WindUsedKWh      float64 `json:"wind_used_kwh"`

	BatteryChargedKWh    float64 `json:"battery_charged_kwh"`    // drawn from surplus
	BatteryDischargedKWh float64 `json:"battery_discharged_kwh"` // delivered to load
	GridImportKWh        float64 `json:"grid_import_kwh"`
	GridExportKWh        float64 `json:"grid_export_kwh"`
	GeneratorKWh         float64 `json:"generator_kwh"` // delivered to load
	GeneratorCurtailKWh  float64 `json:"generator_curtail_kwh"`
	GeneratorFuelL       float64 `json:"generator_fuel_l"`
	CurtailedKWh         float64 `json:"curtailed_kwh"` // renewable surplus
	UnmetKWh             float64 `json:"unmet_kwh"`
	SelfDischargeKWh     float64 `json:"self_discharge_kwh"` // stored energy lost

	SOCStart float64 `json:"soc_start"`
	SOCEnd   float64 `json:"soc_end"`

	// CashCost is import plus fuel minus export credit. It is the only cost
	// used in accounting.
	CashCost float64 `json:"cash_cost"`
	// EconomicCost adds amortized capital. Comparative reporting only.
	EconomicCost float64 `json:"economic_cost"`
}

// Dispatch runs the shared merit order under the policy's flags and
// updates the battery state once.
//
// Renewables serve load first. Surplus charges the battery, then exports,
// then is curtailed. Remaining load discharges the battery down to the
// greater of SOCMin and the reserve, then runs the generator or imports
// from the grid. Anything left is unmet.
func Dispatch(demand Demand, supply Supply, st *State, sys System, flags Flags, tariffs Tariffs) Result {
	res := Result{
		Demand:           demand,
		Flags:            flags,
		PVGeneratedKWh:   math.Max(0, supply.PVKWh),
		WindGeneratedKWh: math.Max(0, supply.WindKWh),
		SOCStart:         st.SOC,
	}
	load := math.Max(0, demand.Total())
	generated := res.PVGeneratedKWh + res.WindGeneratedKWh
	hasBattery := flags.UseBattery && sys.BatteryKWh > 0

	soc := st.SOC
	remaining := load
	surplus := generated

	if flags.UseRenewables && generated > 0 {
		direct := math.Min(generated, load)
		res.PVUsedKWh = direct * res.PVGeneratedKWh / generated
		res.WindUsedKWh = direct - res.PVUsedKWh
		remaining -= direct
		surplus -= direct
	}

	if hasBattery && flags.UseRenewables && surplus > 0 {
		headroom := math.Max(0, (sys.SOCMax-soc)*sys.BatteryKWh)
		input := math.Min(surplus, headroom/sys.ChargeEfficiency)
		soc += input * sys.ChargeEfficiency / sys.BatteryKWh
		res.BatteryChargedKWh = input
		surplus -= input
	}

	if (flags.GridExport || flags.RenewablesToExport) && surplus > 0 {
		export := surplus
		if sys.ExportCapKWh > 0 {
			export = math.Min(export, sys.ExportCapKWh)
		}
		res.GridExportKWh = export
		surplus -= export
	}
	res.CurtailedKWh = math.Max(0, surplus)

	if hasBattery && remaining > 0 {
		floor := math.Max(sys.SOCMin, flags.ReserveSOC)
		stored := math.Max(0, (soc-floor)*sys.BatteryKWh)
		out := math.Min(remaining, stored*sys.DischargeEfficiency)
		soc -= out / sys.DischargeEfficiency / sys.BatteryKWh
		res.BatteryDischargedKWh = out
		remaining -= out
	}

	if flags.UseGenerator && sys.GeneratorKW > 0 && remaining > 0 {
		capacity := sys.GeneratorKW * 24
		run := math.Min(capacity, math.Max(remaining, sys.GeneratorMinLoad*capacity))
		delivered := math.Min(run, remaining)
		res.GeneratorKWh = delivered
		res.GeneratorCurtailKWh = run - delivered
		res.GeneratorFuelL = run * sys.FuelLPerKWh
		remaining -= delivered
	}

	if flags.GridImport && remaining > 0 {
		res.GridImportKWh = remaining
		remaining = 0
	}
	res.UnmetKWh = math.Max(0, remaining)

	if sys.BatteryKWh > 0 {
		// Self-discharge stops at SOCMin and never adds charge.
		leak := math.Min(soc*sys.SelfDischargePerDay, math.Max(0, soc-sys.SOCMin))
		soc -= leak
		res.SelfDischargeKWh = leak * sys.BatteryKWh
		soc = math.Min(sys.SOCMax, soc)
	}
	st.SOC = soc
	res.SOCEnd = soc

	res.CashCost = res.GridImportKWh*tariffs.GridImportPerKWh +
		res.GeneratorFuelL*tariffs.DieselPerL -
		res.GridExportKWh*tariffs.GridExportPerKWh
	res.EconomicCost = res.CashCost + sys.RenewableCapitalPerDay + sys.BatteryCapitalPerDay
	return res
}

// Attribute splits a cost across farms by modeled demand, with the
// community's own load taking its proportional share.
func Attribute(cost float64, farmKWh map[string]float64, communityKWh float64) (map[string]float64, float64) {
	total := math.Max(0, communityKWh)
	for _, v := range farmKWh {
		if v > 0 {
			total += v
		}
	}
	out := make(map[string]float64, len(farmKWh))
	if total <= 0 {
		return out, 0
	}
	for id, v := range farmKWh {
		if v > 0 {
			out[id] = cost * v / total
		}
	}
	return out, cost * math.Max(0, communityKWh) / total
}
