// Package engine advances the community one day at a time. Step runs the
// daily pipeline in a fixed order; Clock drives Step across a date range.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/crops"
	"github.com/talgya/agri-commons/internal/economy"
	"github.com/talgya/agri-commons/internal/energy"
	"github.com/talgya/agri-commons/internal/scenario"
	"github.com/talgya/agri-commons/internal/storage"
	"github.com/talgya/agri-commons/internal/timeseries"
)

// Inputs are the precomputed physical tables and market data for a run.
// Nil series resolve to zero.
type Inputs struct {
	Resolver   *economy.Resolver
	Irrigation crops.IrrigationTable

	PVKWhPerKW   *timeseries.Series[float64] // daily output per kW installed
	WindKWhPerKW *timeseries.Series[float64]
	HouseholdKWh *timeseries.Series[float64]
	CommunityKWh *timeseries.Series[float64] // community buildings
}

func at(s *timeseries.Series[float64], date time.Time) float64 {
	if s == nil {
		return 0
	}
	return s.At(date)
}

// Simulation holds the fixed configuration of a run. All mutable data lives
// in State, so one Simulation can step many states.
type Simulation struct {
	Scenario *scenario.Scenario
	Inputs   Inputs

	profiles  map[string]crops.Profile
	reference map[economy.ProductKey]float64
}

// New validates the scenario and inputs and returns the simulation with its
// initial state. Configuration errors are returned here and nowhere else.
func New(sc *scenario.Scenario, in Inputs) (*Simulation, *State, error) {
	if err := sc.Validate(); err != nil {
		return nil, nil, err
	}
	if in.Resolver == nil {
		return nil, nil, fmt.Errorf("%w: no price/weather resolver", scenario.ErrConfig)
	}

	s := &Simulation{
		Scenario:  sc,
		Inputs:    in,
		profiles:  make(map[string]crops.Profile, len(sc.Profiles)),
		reference: in.Resolver.ReferencePrices(),
	}
	for key, p := range sc.Profiles {
		if p.Name == "" {
			p.Name = key
		}
		s.profiles[p.Name] = p
	}

	cash := sc.OpeningCash()
	st := &State{
		Battery: energy.State{SOC: sc.Energy.InitialSOC},
		Ledger:  storage.NewLedger(),
		Debt:    accounting.NewDebtSchedule(sc.Financing.Loans),
	}
	for i, fc := range sc.Farms {
		f := &Farm{
			ID:           fc.ID,
			Name:         fc.Name,
			AreaHa:       fc.AreaHa,
			Cash:         cash[i],
			DemandPolicy: fc.DemandPolicy,
		}
		for _, cp := range fc.Crops {
			p := sc.Profiles[cp.Profile]
			if p.Name == "" {
				p.Name = cp.Profile
			}
			c, err := crops.NewCrop(fc.ID, p, cp.AreaHa, cp.Plantings)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %w", scenario.ErrConfig, err)
			}
			f.Crops = append(f.Crops, c)
		}
		st.Farms = append(st.Farms, f)
	}

	slog.Info("simulation initialized",
		"scenario", sc.Name,
		"farms", len(st.Farms),
		"start", sc.Start.Format(time.DateOnly),
		"end", sc.End.Format(time.DateOnly),
		"water_policy", sc.Policies.Water.Name(),
		"energy_policy", sc.Policies.Energy.Name(),
		"food_policy", sc.Policies.Processing.Name(),
		"market_policy", sc.Policies.Market.Name(),
	)
	return s, st, nil
}

// profile returns the crop's profile. Crops are only created from known
// profiles, so a miss is a programming error.
func (s *Simulation) profile(c *crops.Crop) crops.Profile {
	p, ok := s.profiles[c.Name]
	if !ok {
		panic(fmt.Sprintf("engine: no profile for crop %q", c.Name))
	}
	return p
}

// day is the working set of one Step.
type day struct {
	date   time.Time
	econ   economy.Day
	st     *State
	farms  []accounting.FarmDay
	demand [][]float64 // adjusted irrigation per farm per crop
	out    *DayRecords

	// Per-farm energy attributed by modeled demand, in farm order.
	waterKWh      []float64
	pressureKWh   []float64
	processingKWh map[string]float64
	labor         []float64
}

func (d *day) event(category, format string, args ...any) {
	d.out.Events = append(d.out.Events, Event{
		Date:        d.date,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
}

func (d *day) farmIndex(id string) int {
	for i, f := range d.st.Farms {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Step advances a copy of st through date and returns it with the day's
// records. The input state is never modified, so repeating a Step with the
// same state and date yields identical output.
//
// Order: begin-day resets, resolve, advance crops, crop demand, water,
// expiry clearance, harvest pooling, voluntary sales, energy dispatch,
// accounting.
func (s *Simulation) Step(prev *State, date time.Time) (*State, *DayRecords, error) {
	date = timeseries.Day(date)
	if !prev.Date.IsZero() && !date.After(prev.Date) {
		return nil, nil, fmt.Errorf("step %s: state already at %s",
			date.Format(time.DateOnly), prev.Date.Format(time.DateOnly))
	}

	d := &day{
		date:          date,
		st:            prev.Clone(),
		out:           &DayRecords{Date: date},
		processingKWh: make(map[string]float64),
	}
	n := len(d.st.Farms)
	d.farms = make([]accounting.FarmDay, n)
	d.waterKWh = make([]float64, n)
	d.pressureKWh = make([]float64, n)
	d.labor = make([]float64, n)
	for i, f := range d.st.Farms {
		d.farms[i] = accounting.FarmDay{
			FarmID:        f.ID,
			AreaHa:        f.AreaHa,
			UsageM3:       f.UsageM3,
			OpeningCash:   f.Cash,
			RevenueByCrop: make(map[string]float64),
		}
	}

	debt := s.beginDay(d)
	d.econ = s.Inputs.Resolver.Resolve(date)
	s.advanceCrops(d)
	s.cropDemand(d)
	s.allocateWater(d)
	expired := s.clearExpired(d)
	if err := s.harvest(d); err != nil {
		return nil, nil, fmt.Errorf("step %s: %w", date.Format(time.DateOnly), err)
	}
	sold := s.sell(d)
	s.dispatchEnergy(d)
	s.close(d, debt, expired, sold)

	d.st.Date = date
	d.st.Days++
	return d.st, d.out, nil
}

// beginDay resets period counters before anything reads them and returns
// the debt service falling due today.
func (s *Simulation) beginDay(d *day) float64 {
	d.st.Extraction.BeginDay(d.date)
	due := d.st.Debt.BeginDay(d.date)
	if due > 0 {
		d.event("finance", "debt service %.2f due", due)
	}
	return due
}

// harvestOrder returns the crop names that are harvest-ready today, sorted.
func harvestOrder(farms []*Farm) []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range farms {
		for _, c := range f.Crops {
			if c.Stage == crops.StageHarvestReady && !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}
