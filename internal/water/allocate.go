// Package water splits community irrigation demand between groundwater and
// municipal supply and apportions the result back to farms.
package water

import (
	"fmt"
	"math"
	"time"
)

// Constraint names the physical limit that clipped groundwater, if any.
type Constraint uint8

const (
	ConstraintNone Constraint = iota
	ConstraintWell
	ConstraintTreatment
)

func (c Constraint) String() string {
	switch c {
	case ConstraintNone:
		return "none"
	case ConstraintWell:
		return "well_capacity"
	case ConstraintTreatment:
		return "treatment_capacity"
	default:
		return fmt.Sprintf("constraint(%d)", uint8(c))
	}
}

// System holds the community's groundwater infrastructure parameters.
type System struct {
	WellCapacityM3      float64 `json:"well_capacity_m3"`      // per day
	TreatmentCapacityM3 float64 `json:"treatment_capacity_m3"` // per day
	PumpKWhPerM3        float64 `json:"pump_kwh_per_m3"`
	TreatmentKWhPerM3   float64 `json:"treatment_kwh_per_m3"`
	ConveyanceKWhPerM3  float64 `json:"conveyance_kwh_per_m3"`
	GroundwaterOMPerM3  float64 `json:"groundwater_om_per_m3"`
	GroundwaterTDS      float64 `json:"groundwater_tds"` // mg/L after treatment
	MunicipalTDS        float64 `json:"municipal_tds"`
}

// EnergyKWhPerM3 is the total groundwater energy intensity.
func (s System) EnergyKWhPerM3() float64 {
	return s.PumpKWhPerM3 + s.TreatmentKWhPerM3 + s.ConveyanceKWhPerM3
}

// Context is the day's information available to a water policy.
type Context struct {
	Date                time.Time
	System              System
	MunicipalPricePerM3 float64
	EnergyPricePerKWh   float64
	Extraction          Extraction
}

// GroundwaterCostPerM3 is the marginal cash cost of treated groundwater,
// energy included.
func (c Context) GroundwaterCostPerM3() float64 {
	return c.System.GroundwaterOMPerM3 + c.System.EnergyKWhPerM3()*c.EnergyPricePerKWh
}

// Result is the community's water split for one day.
type Result struct {
	DemandM3      float64    `json:"demand_m3"`
	GroundwaterM3 float64    `json:"groundwater_m3"`
	MunicipalM3   float64    `json:"municipal_m3"`
	EnergyKWh     float64    `json:"energy_kwh"` // groundwater pumping, treatment and conveyance
	CostCash      float64    `json:"cost_cash"`  // municipal purchase plus groundwater O&M
	Constraint    Constraint `json:"constraint"`
	Policy        string     `json:"policy"`
	Reason        string     `json:"reason"`
}

// Allocate runs the policy and clips its groundwater request to the tighter
// of well and treatment capacity. Municipal supply absorbs any shortfall, so
// groundwater plus municipal always equals demand.
func Allocate(demandM3 float64, p Policy, ctx Context) Result {
	res := Result{DemandM3: demandM3, Policy: p.Name()}
	if demandM3 <= 0 || math.IsNaN(demandM3) {
		res.DemandM3 = 0
		res.Reason = "no demand"
		return res
	}

	req, reason := p.RequestGroundwater(demandM3, ctx)
	res.Reason = reason
	if req < 0 || math.IsNaN(req) {
		req = 0
	}
	if req > demandM3 {
		req = demandM3
	}

	sys := ctx.System
	capacity := math.Max(0, math.Min(sys.WellCapacityM3, sys.TreatmentCapacityM3))
	if req > capacity {
		req = capacity
		if sys.WellCapacityM3 <= sys.TreatmentCapacityM3 {
			res.Constraint = ConstraintWell
		} else {
			res.Constraint = ConstraintTreatment
		}
	}

	res.GroundwaterM3 = req
	res.MunicipalM3 = demandM3 - req
	res.EnergyKWh = req * sys.EnergyKWhPerM3()
	res.CostCash = res.MunicipalM3*ctx.MunicipalPricePerM3 + req*sys.GroundwaterOMPerM3
	return res
}

// FarmDemand is one farm's adjusted irrigation demand.
type FarmDemand struct {
	FarmID   string
	DemandM3 float64
}

// FarmWater is one farm's share of the community split.
type FarmWater struct {
	FarmID        string  `json:"farm_id"`
	Share         float64 `json:"share"`
	GroundwaterM3 float64 `json:"groundwater_m3"`
	MunicipalM3   float64 `json:"municipal_m3"`
	EnergyKWh     float64 `json:"energy_kwh"`
	CostCash      float64 `json:"cost_cash"`
}

// DeliveredM3 is the farm's total irrigation volume.
func (f FarmWater) DeliveredM3() float64 {
	return f.GroundwaterM3 + f.MunicipalM3
}

// Apportion splits a community result across farms pro-rata to demand.
// Output order matches input order. A zero total yields zero shares.
func Apportion(res Result, farms []FarmDemand) []FarmWater {
	total := 0.0
	for _, f := range farms {
		if f.DemandM3 > 0 {
			total += f.DemandM3
		}
	}

	out := make([]FarmWater, len(farms))
	for i, f := range farms {
		out[i].FarmID = f.FarmID
		if total <= 0 || f.DemandM3 <= 0 {
			continue
		}
		share := f.DemandM3 / total
		out[i].Share = share
		out[i].GroundwaterM3 = res.GroundwaterM3 * share
		out[i].MunicipalM3 = res.MunicipalM3 * share
		out[i].EnergyKWh = res.EnergyKWh * share
		out[i].CostCash = res.CostCash * share
	}
	return out
}
