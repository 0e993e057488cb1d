package engine

import (
	"log/slog"

	"github.com/talgya/agri-commons/internal/energy"
	"github.com/talgya/agri-commons/internal/water"
)

// allocateWater splits total adjusted demand between groundwater and
// municipal supply, records extraction and delivers each farm's share to
// its crops.
func (s *Simulation) allocateWater(d *day) {
	sc := s.Scenario
	farmDemand := make([]water.FarmDemand, len(d.st.Farms))
	total := 0.0
	for i, f := range d.st.Farms {
		farmDemand[i].FarmID = f.ID
		for _, m3 := range d.demand[i] {
			farmDemand[i].DemandM3 += m3
		}
		total += farmDemand[i].DemandM3
	}

	res := water.Allocate(total, sc.Policies.Water, water.Context{
		Date:                d.date,
		System:              sc.Water.System,
		MunicipalPricePerM3: d.econ.Prices.MunicipalWaterPerM3,
		EnergyPricePerKWh:   d.econ.Prices.GridImportPerKWh,
		Extraction:          d.st.Extraction,
	})
	d.st.Extraction.Record(res.GroundwaterM3)
	d.out.Community.Water = res
	if res.Constraint != water.ConstraintNone {
		slog.Debug("groundwater clipped", "date", d.date.Format("2006-01-02"),
			"constraint", res.Constraint.String(), "municipal_m3", res.MunicipalM3)
	}

	for i, fw := range water.Apportion(res, farmDemand) {
		d.farms[i].Water = fw
		d.waterKWh[i] = fw.EnergyKWh
		delivered := fw.DeliveredM3()
		d.pressureKWh[i] = delivered * sc.Water.PressurizationKWhPerM3
		d.st.Farms[i].UsageM3 += delivered

		if farmDemand[i].DemandM3 <= 0 {
			continue
		}
		ratio := delivered / farmDemand[i].DemandM3
		for j, c := range d.st.Farms[i].Crops {
			c.Irrigate(d.demand[i][j] * ratio)
		}
	}
}

// dispatchEnergy aggregates the day's load, dispatches it and attributes
// cash and economic cost to farms by modeled demand.
func (s *Simulation) dispatchEnergy(d *day) {
	sc := s.Scenario
	sys := sc.Energy.System
	prices := d.econ.Prices
	tariffs := energy.Tariffs{
		GridImportPerKWh: prices.GridImportPerKWh,
		GridExportPerKWh: prices.GridExportPerKWh,
		DieselPerL:       prices.DieselPerL,
	}

	demand := energy.Demand{
		WaterKWh:     d.out.Community.Water.EnergyKWh,
		HouseholdKWh: at(s.Inputs.HouseholdKWh, d.date),
		CommunityKWh: at(s.Inputs.CommunityKWh, d.date),
	}
	farmKWh := make(map[string]float64, len(d.st.Farms))
	for i, f := range d.st.Farms {
		demand.PressurizationKWh += d.pressureKWh[i]
		demand.ProcessingKWh += d.processingKWh[f.ID]
		farmKWh[f.ID] = d.waterKWh[i] + d.pressureKWh[i] + d.processingKWh[f.ID]
		d.farms[i].EnergyKWh = farmKWh[f.ID]
	}
	supply := energy.Supply{
		PVKWh:   sys.PVKW * at(s.Inputs.PVKWhPerKW, d.date),
		WindKWh: sys.WindKW * at(s.Inputs.WindKWhPerKW, d.date),
	}

	policy := sc.Policies.Energy
	flags := policy.Flags(energy.Context{Date: d.date, System: sys, Tariffs: tariffs, SOC: d.st.Battery.SOC})
	res := energy.Dispatch(demand, supply, &d.st.Battery, sys, flags, tariffs)
	res.Policy = policy.Name()
	if res.UnmetKWh > 0 {
		d.event("energy", "%.1f kWh unmet under %s", res.UnmetKWh, res.Policy)
	}

	communityKWh := demand.HouseholdKWh + demand.CommunityKWh
	cash, communityCash := energy.Attribute(res.CashCost, farmKWh, communityKWh)
	econ, communityEcon := energy.Attribute(res.EconomicCost, farmKWh, communityKWh)
	if demand.Total() <= 0 {
		// No load to weigh by; export credit and capital stay with the community.
		communityCash, communityEcon = res.CashCost, res.EconomicCost
	}
	for i, f := range d.st.Farms {
		d.farms[i].EnergyCost = cash[f.ID]
		d.farms[i].EnergyEconomicCost = econ[f.ID]
	}

	c := &d.out.Community
	c.Energy = res
	c.ProcessingKWh = demand.ProcessingKWh
	c.EnergyCommunityCost = communityCash
	c.EnergyCommunityEconomicCost = communityEcon
}
