package engine

import (
	"time"
)

// CropStatus is a crop's lifecycle position at the end of a run.
type CropStatus struct {
	FarmID      string    `json:"farm_id"`
	Crop        string    `json:"crop"`
	Stage       string    `json:"stage"`
	DaysElapsed int       `json:"days_elapsed"`
	PlantedOn   time.Time `json:"planted_on"`
	WaterRatio  float64   `json:"water_ratio"`
	Cycles      int       `json:"cycles"`
}

// FarmCash is a farm's closing balance.
type FarmCash struct {
	FarmID string  `json:"farm_id"`
	Cash   float64 `json:"cash"`
}

// Snapshot is the terminal valuation of a run.
type Snapshot struct {
	Date            time.Time    `json:"date"`
	Days            int          `json:"days"`
	BatterySOC      float64      `json:"battery_soc"`
	WaterStorageM3  float64      `json:"water_storage_m3"`
	InventoryKg     float64      `json:"inventory_kg"`
	InventoryValue  float64      `json:"inventory_value"` // at the final day's prices
	DebtOutstanding float64      `json:"debt_outstanding"`
	Farms           []FarmCash   `json:"farms"`
	Crops           []CropStatus `json:"crops"` // Active crops only
}

// Snapshot values the state once after the last day.
func (s *Simulation) Snapshot(st *State) Snapshot {
	snap := Snapshot{
		Date:            st.Date,
		Days:            st.Days,
		BatterySOC:      st.Battery.SOC,
		WaterStorageM3:  s.Scenario.Water.StorageInitialM3,
		InventoryKg:     st.Ledger.MassKg(),
		DebtOutstanding: st.Debt.Outstanding(),
	}
	if !st.Date.IsZero() {
		snap.InventoryValue = st.Ledger.Value(s.Inputs.Resolver.Resolve(st.Date).Prices)
	}
	for _, f := range st.Farms {
		snap.Farms = append(snap.Farms, FarmCash{FarmID: f.ID, Cash: f.Cash})
		for _, c := range f.Crops {
			if !c.Stage.Active() {
				continue
			}
			snap.Crops = append(snap.Crops, CropStatus{
				FarmID:      f.ID,
				Crop:        c.Name,
				Stage:       c.Stage.String(),
				DaysElapsed: c.DaysElapsed,
				PlantedOn:   c.PlantedOn,
				WaterRatio:  c.WaterRatio(),
				Cycles:      c.Cycles,
			})
		}
	}
	return snap
}
