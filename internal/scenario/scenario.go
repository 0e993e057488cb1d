// Package scenario holds the fully resolved configuration of one
// community run: farms, infrastructure, financing and policy instances.
// Everything here is consumed as given; Validate catches the
// configuration errors that must stop a run before its first day.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/crops"
	"github.com/talgya/agri-commons/internal/energy"
	"github.com/talgya/agri-commons/internal/storage"
	"github.com/talgya/agri-commons/internal/water"
)

var (
	// ErrConfig wraps every configuration error found at initialization.
	ErrConfig = errors.New("invalid scenario")
	// ErrInsufficientCapital is returned when the farms cannot pay the
	// cash-financed share of the infrastructure.
	ErrInsufficientCapital = errors.New("insufficient starting capital")
)

// CropPlan is one crop type grown on a farm.
type CropPlan struct {
	Profile   string      `json:"profile"`
	AreaHa    float64     `json:"area_ha"`
	Plantings []time.Time `json:"plantings"`
}

// Farm is one member farm.
type Farm struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	AreaHa          float64            `json:"area_ha"`
	StartingCapital float64            `json:"starting_capital"`
	Crops           []CropPlan         `json:"crops"`
	DemandPolicy    crops.DemandPolicy `json:"-"`
}

// Water is the community water infrastructure.
type Water struct {
	System                 water.System `json:"system"`
	StorageCapacityM3      float64      `json:"storage_capacity_m3"`
	StorageInitialM3       float64      `json:"storage_initial_m3"`
	NonFarmM3PerDay        float64      `json:"non_farm_m3_per_day"` // households and buildings, bought municipal
	PressurizationKWhPerM3 float64      `json:"pressurization_kwh_per_m3"`
}

// Energy is the community energy infrastructure.
type Energy struct {
	System     energy.System `json:"system"`
	InitialSOC float64       `json:"initial_soc"`
}

// Financing covers how the infrastructure was paid for.
type Financing struct {
	Loans     []accounting.Loan `json:"loans"`
	CashCapex float64           `json:"cash_capex"` // paid up front from farm capital
}

// Policies are the community-level strategies for the shared domains.
type Policies struct {
	Water      water.Policy
	Energy     energy.Policy
	Processing storage.ProcessingPolicy
	Market     storage.MarketPolicy
}

// Scenario is a resolved run configuration.
type Scenario struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Farms    []Farm                   `json:"farms"`
	Profiles map[string]crops.Profile `json:"profiles"`

	Water   Water           `json:"water"`
	Energy  Energy          `json:"energy"`
	Catalog storage.Catalog `json:"-"`

	WagePerHour float64                `json:"wage_per_hour"`
	SharedCosts accounting.SharedCosts `json:"shared_costs"`
	Allocation  accounting.Method      `json:"allocation"`
	Financing   Financing              `json:"financing"`
	Policies    Policies               `json:"-"`
}

// Validate reports the first configuration error. Every error wraps
// ErrConfig; overlapping plantings also wrap crops.ErrOverlappingSeasons
// and a capital shortfall also wraps ErrInsufficientCapital.
func (s *Scenario) Validate() error {
	if s.End.Before(s.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrConfig,
			s.End.Format(time.DateOnly), s.Start.Format(time.DateOnly))
	}
	if len(s.Farms) == 0 {
		return fmt.Errorf("%w: no farms", ErrConfig)
	}
	if err := s.validatePolicies(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Farms))
	for _, f := range s.Farms {
		if f.ID == "" {
			return fmt.Errorf("%w: farm without id", ErrConfig)
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: duplicate farm %q", ErrConfig, f.ID)
		}
		seen[f.ID] = true
		if err := s.validateFarm(f); err != nil {
			return err
		}
	}

	if err := s.Energy.System.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if sys := s.Energy.System; sys.BatteryKWh > 0 &&
		(s.Energy.InitialSOC < sys.SOCMin || s.Energy.InitialSOC > sys.SOCMax) {
		return fmt.Errorf("%w: initial SOC %v outside [%v, %v]", ErrConfig, s.Energy.InitialSOC, sys.SOCMin, sys.SOCMax)
	}
	w := s.Water
	if w.System.WellCapacityM3 < 0 || w.System.TreatmentCapacityM3 < 0 || w.NonFarmM3PerDay < 0 {
		return fmt.Errorf("%w: water capacities must be non-negative", ErrConfig)
	}
	if w.StorageInitialM3 < 0 || (w.StorageCapacityM3 > 0 && w.StorageInitialM3 > w.StorageCapacityM3) {
		return fmt.Errorf("%w: water storage %v outside capacity %v", ErrConfig, w.StorageInitialM3, w.StorageCapacityM3)
	}

	for i, l := range s.Financing.Loans {
		if l.Principal < 0 || l.TermMonths < 0 || l.AnnualRate < 0 {
			return fmt.Errorf("%w: loan %d (%s) has negative terms", ErrConfig, i, l.Name)
		}
	}
	if capital := s.TotalCapital(); capital < s.Financing.CashCapex {
		return fmt.Errorf("%w: %w: capital %.2f, cash capex %.2f",
			ErrConfig, ErrInsufficientCapital, capital, s.Financing.CashCapex)
	}
	return nil
}

func (s *Scenario) validatePolicies() error {
	p := s.Policies
	switch {
	case p.Water == nil:
		return fmt.Errorf("%w: no water policy", ErrConfig)
	case p.Energy == nil:
		return fmt.Errorf("%w: no energy policy", ErrConfig)
	case p.Processing == nil:
		return fmt.Errorf("%w: no food processing policy", ErrConfig)
	case p.Market == nil:
		return fmt.Errorf("%w: no market policy", ErrConfig)
	}
	// Parameterized processing policies check their own fractions.
	if v, ok := p.Processing.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfig, p.Processing.Name(), err)
		}
	}
	return nil
}

func (s *Scenario) validateFarm(f Farm) error {
	if f.AreaHa < 0 || math.IsNaN(f.AreaHa) {
		return fmt.Errorf("%w: farm %s area %v", ErrConfig, f.ID, f.AreaHa)
	}
	if f.DemandPolicy == nil {
		return fmt.Errorf("%w: farm %s has no crop policy", ErrConfig, f.ID)
	}
	planted := 0.0
	names := make(map[string]bool, len(f.Crops))
	for _, c := range f.Crops {
		p, ok := s.Profiles[c.Profile]
		if !ok {
			return fmt.Errorf("%w: farm %s: unknown crop %q", ErrConfig, f.ID, c.Profile)
		}
		if names[c.Profile] {
			return fmt.Errorf("%w: farm %s lists %s twice", ErrConfig, f.ID, c.Profile)
		}
		names[c.Profile] = true
		if c.AreaHa < 0 {
			return fmt.Errorf("%w: farm %s: %s area %v", ErrConfig, f.ID, c.Profile, c.AreaHa)
		}
		planted += c.AreaHa

		dates := append([]time.Time(nil), c.Plantings...)
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		if err := crops.ValidatePlantings(p.Name, dates, p.Stages); err != nil {
			return fmt.Errorf("%w: farm %s: %w", ErrConfig, f.ID, err)
		}
	}
	if planted > f.AreaHa+1e-9 {
		return fmt.Errorf("%w: farm %s plants %.2f ha on %.2f ha", ErrConfig, f.ID, planted, f.AreaHa)
	}
	return nil
}

// TotalCapital is the farms' combined starting capital.
func (s *Scenario) TotalCapital() float64 {
	total := 0.0
	for _, f := range s.Farms {
		total += f.StartingCapital
	}
	return total
}

// OpeningCash returns each farm's cash after paying its share of the
// cash-financed capex, in farm order. Shares are proportional to
// starting capital so no farm opens negative when Validate passes.
func (s *Scenario) OpeningCash() []float64 {
	out := make([]float64, len(s.Farms))
	total := s.TotalCapital()
	for i, f := range s.Farms {
		out[i] = f.StartingCapital
		if total > 0 && s.Financing.CashCapex > 0 {
			out[i] -= s.Financing.CashCapex * f.StartingCapital / total
		}
	}
	return out
}

// Days is the number of simulated days, inclusive of both ends.
func (s *Scenario) Days() int {
	if s.End.Before(s.Start) {
		return 0
	}
	return int(s.End.Sub(s.Start).Hours()/24) + 1
}
