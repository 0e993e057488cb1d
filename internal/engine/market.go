package engine

import (
	"github.com/talgya/agri-commons/internal/storage"
)

// clearExpired force-sells expired stock before any harvest is pooled.
func (s *Simulation) clearExpired(d *day) []storage.Sale {
	sales := d.st.Ledger.ClearExpired(d.date, d.econ.Prices)
	for _, sale := range sales {
		if sale.Discarded {
			d.event("market", "batch %d of %s discarded at expiry (%.1f kg)",
				sale.BatchID, sale.Product.String(), sale.MassKg)
			continue
		}
		d.event("market", "batch %d of %s liquidated at expiry (%.1f kg)",
			sale.BatchID, sale.Product.String(), sale.MassKg)
	}
	return sales
}

// sell runs the market policy over the remaining stock.
func (s *Simulation) sell(d *day) []storage.Sale {
	return d.st.Ledger.SellVoluntary(d.date, d.econ.Prices, s.reference, s.Scenario.Policies.Market)
}
