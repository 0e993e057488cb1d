package engine

import (
	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/storage"
)

// close attributes sale proceeds and holding costs, allocates shared
// costs and debt, and writes the day's records and cash balances.
func (s *Simulation) close(d *day, debt float64, expired, sold []storage.Sale) {
	sc := s.Scenario
	prices := d.econ.Prices

	proceeds := storage.Proceeds{}
	proceeds.Add(expired)
	proceeds.Add(sold)
	holding := d.st.Ledger.HoldingCosts(sc.Catalog)
	for i := range d.farms {
		fd := &d.farms[i]
		for crop, v := range proceeds[fd.FarmID] {
			fd.RevenueByCrop[crop] = v
		}
		fd.StorageCost = holding[fd.FarmID]
		fd.LaborHours = d.labor[i]
	}

	c := &d.out.Community
	c.Date = d.date
	c.NonFarmWaterM3 = sc.Water.NonFarmM3PerDay
	c.SharedCost = sc.SharedCosts.Daily() +
		c.NonFarmWaterM3*prices.MunicipalWaterPerM3 +
		c.EnergyCommunityCost
	c.DebtService = debt

	d.out.Farms = accounting.Close(accounting.Day{
		Date:        d.date,
		Farms:       d.farms,
		Method:      sc.Allocation,
		WagePerHour: sc.WagePerHour,
		SharedCost:  c.SharedCost,
		DebtService: debt,
	})
	for i, r := range d.out.Farms {
		d.st.Farms[i].Cash = r.CashBalance
	}

	for _, p := range d.out.Processed {
		c.HarvestInputKg += p.InputKg
		c.ProcessedKg += p.OutputKg
	}
	for _, sale := range expired {
		c.ExpiredKg += sale.MassKg
		if sale.Discarded {
			c.DiscardedKg += sale.MassKg
		}
		c.Revenue += sale.Revenue
	}
	for _, sale := range sold {
		c.SoldKg += sale.MassKg
		c.Revenue += sale.Revenue
	}
	c.InventoryKg = d.st.Ledger.MassKg()
	accounting.Summarize(c, d.out.Farms)

	d.out.Sales = append(append(d.out.Sales, expired...), sold...)
}
