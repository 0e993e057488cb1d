// Package accounting closes each simulated day into per-farm and community
// ledger records. Records are append-only and are the only input to
// period reporting.
package accounting

import (
	"time"

	"github.com/talgya/agri-commons/internal/energy"
	"github.com/talgya/agri-commons/internal/water"
)

// FarmRecord is one farm's ledger entry for one day.
type FarmRecord struct {
	Date   time.Time `json:"date" db:"-"` // stored as a date string by persistence
	FarmID string    `json:"farm_id" db:"farm_id"`

	IrrigationM3  float64 `json:"irrigation_m3" db:"irrigation_m3"`
	GroundwaterM3 float64 `json:"groundwater_m3" db:"groundwater_m3"`
	MunicipalM3   float64 `json:"municipal_m3" db:"municipal_m3"`
	WaterCost     float64 `json:"water_cost" db:"water_cost"`

	EnergyKWh          float64 `json:"energy_kwh" db:"energy_kwh"`
	EnergyCost         float64 `json:"energy_cost" db:"energy_cost"` // cash
	EnergyEconomicCost float64 `json:"energy_economic_cost" db:"energy_economic_cost"`

	LaborHours  float64 `json:"labor_hours" db:"labor_hours"`
	LaborCost   float64 `json:"labor_cost" db:"labor_cost"`
	InputCost   float64 `json:"input_cost" db:"input_cost"`
	StorageCost float64 `json:"storage_cost" db:"storage_cost"`
	SharedCost  float64 `json:"shared_cost" db:"shared_cost"`
	DebtService float64 `json:"debt_service" db:"debt_service"`

	HarvestKg     float64            `json:"harvest_kg" db:"harvest_kg"`
	Revenue       float64            `json:"revenue" db:"revenue"`
	RevenueByCrop map[string]float64 `json:"revenue_by_crop" db:"-"`

	TotalCost   float64 `json:"total_cost" db:"total_cost"`
	NetIncome   float64 `json:"net_income" db:"net_income"`
	CashBalance float64 `json:"cash_balance" db:"cash_balance"`
}

// CommunityRecord is the community-wide ledger entry for one day.
type CommunityRecord struct {
	Date time.Time `json:"date"`

	Water  water.Result  `json:"water"`
	Energy energy.Result `json:"energy"`

	// Community share of dispatch cost for household and building load.
	EnergyCommunityCost         float64 `json:"energy_community_cost"`
	EnergyCommunityEconomicCost float64 `json:"energy_community_economic_cost"`

	HarvestInputKg  float64 `json:"harvest_input_kg"`
	ProcessedKg     float64 `json:"processed_kg"`
	ProcessingKWh   float64 `json:"processing_kwh"`
	InventoryKg     float64 `json:"inventory_kg"`
	SoldKg          float64 `json:"sold_kg"`
	ExpiredKg       float64 `json:"expired_kg"`
	DiscardedKg     float64 `json:"discarded_kg"`
	Revenue         float64 `json:"revenue"`
	NonFarmWaterM3  float64 `json:"non_farm_water_m3"`
	SharedCost      float64 `json:"shared_cost"`
	DebtService     float64 `json:"debt_service"`
	TotalFarmCash   float64 `json:"total_farm_cash"`
	TotalFarmCost   float64 `json:"total_farm_cost"`
	TotalFarmIncome float64 `json:"total_farm_income"`
}
