package storage

import "github.com/talgya/agri-commons/internal/economy"

// ProductSpec holds the processing and storage parameters of a product.
type ProductSpec struct {
	WeightLoss          float64 `json:"weight_loss"` // Fraction of input mass lost in processing
	ShelfLifeDays       int     `json:"shelf_life_days"`
	EnergyKWhPerKg      float64 `json:"energy_kwh_per_kg"` // per input kg
	LaborHrsPerKg       float64 `json:"labor_hrs_per_kg"`  // per input kg
	HoldingCostPerKgDay float64 `json:"holding_cost_per_kg_day"`
}

// Catalog resolves product specs, with per-crop overrides over pathway
// defaults.
type Catalog struct {
	Defaults  [economy.NumPathways]ProductSpec
	Overrides map[economy.ProductKey]ProductSpec
}

// DefaultCatalog returns typical values for small-scale processing.
func DefaultCatalog() Catalog {
	var c Catalog
	c.Defaults[economy.PathwayFresh] = ProductSpec{WeightLoss: 0, ShelfLifeDays: 7, EnergyKWhPerKg: 0.01, LaborHrsPerKg: 0.002, HoldingCostPerKgDay: 0.002}
	c.Defaults[economy.PathwayPackaged] = ProductSpec{WeightLoss: 0.03, ShelfLifeDays: 21, EnergyKWhPerKg: 0.05, LaborHrsPerKg: 0.006, HoldingCostPerKgDay: 0.0015}
	c.Defaults[economy.PathwayCanned] = ProductSpec{WeightLoss: 0.15, ShelfLifeDays: 365, EnergyKWhPerKg: 0.35, LaborHrsPerKg: 0.01, HoldingCostPerKgDay: 0.0004}
	c.Defaults[economy.PathwayDried] = ProductSpec{WeightLoss: 0.88, ShelfLifeDays: 180, EnergyKWhPerKg: 0.9, LaborHrsPerKg: 0.012, HoldingCostPerKgDay: 0.0003}
	return c
}

// Lookup returns the spec for a product.
func (c Catalog) Lookup(k economy.ProductKey) ProductSpec {
	if s, ok := c.Overrides[k]; ok {
		return s
	}
	if int(k.Pathway) < len(c.Defaults) {
		return c.Defaults[k.Pathway]
	}
	return ProductSpec{}
}
