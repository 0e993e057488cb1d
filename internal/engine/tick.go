package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/talgya/agri-commons/internal/timeseries"
)

// Tally sums farm records over a reporting period.
type Tally struct {
	Days         int     `json:"days"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Net          float64 `json:"net"`
	HarvestKg    float64 `json:"harvest_kg"`
	IrrigationM3 float64 `json:"irrigation_m3"`
	UnmetKWh     float64 `json:"unmet_kwh"`
	Cash         float64 `json:"cash"` // Total farm cash at period end
}

func (t *Tally) add(rec *DayRecords) {
	t.Days++
	for _, r := range rec.Farms {
		t.Revenue += r.Revenue
		t.Cost += r.TotalCost
		t.Net += r.NetIncome
		t.HarvestKg += r.HarvestKg
		t.IrrigationM3 += r.IrrigationM3
	}
	t.UnmetKWh += rec.Community.Energy.UnmetKWh
	t.Cash = rec.Community.TotalFarmCash
}

// Clock drives a Simulation through a date range, strictly one day after
// another.
type Clock struct {
	Sim   *Simulation
	State *State // Advanced in place as days complete

	// Set by Run, cleared by Stop from any goroutine.
	running atomic.Bool

	// Callbacks, populated during setup. Returning an error from OnDay
	// stops the run.
	OnDay   func(st *State, rec *DayRecords) error
	OnMonth func(month time.Time, t Tally) // After the last day of each month
	OnYear  func(year int, t Tally)        // After the last day of each year
}

// NewClock creates a clock positioned at the simulation's initial state.
func NewClock(sim *Simulation, st *State) *Clock {
	return &Clock{Sim: sim, State: st}
}

// Run steps every day from start to end inclusive. Stop ends the run
// after the current day. A partial final month or year is still reported.
func (c *Clock) Run(start, end time.Time) error {
	start, end = timeseries.Day(start), timeseries.Day(end)
	c.running.Store(true)
	slog.Info("simulation clock started",
		"start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))

	var month, year Tally
	last := c.State.Date
	for date := start; c.running.Load() && !date.After(end); date = date.AddDate(0, 0, 1) {
		next, rec, err := c.Sim.Step(c.State, date)
		if err != nil {
			c.running.Store(false)
			return err
		}
		c.State = next
		last = date
		month.add(rec)
		year.add(rec)

		if c.OnDay != nil {
			if err := c.OnDay(next, rec); err != nil {
				c.running.Store(false)
				return fmt.Errorf("day %s: %w", date.Format(time.DateOnly), err)
			}
		}

		tomorrow := date.AddDate(0, 0, 1)
		closing := !c.running.Load() || tomorrow.After(end)
		if closing || tomorrow.Month() != date.Month() {
			c.closeMonth(date, month)
			month = Tally{}
		}
		if closing || tomorrow.Year() != date.Year() {
			c.closeYear(date.Year(), year)
			year = Tally{}
		}
	}

	c.running.Store(false)
	slog.Info("simulation clock stopped", "date", last.Format(time.DateOnly), "days", c.State.Days)
	return nil
}

// Running reports whether Run is stepping days.
func (c *Clock) Running() bool {
	return c.running.Load()
}

// Stop ends the run after the day in progress. Safe to call from any
// goroutine.
func (c *Clock) Stop() {
	c.running.Store(false)
}

func (c *Clock) closeMonth(date time.Time, t Tally) {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	slog.Debug("month closed",
		"month", first.Format("2006-01"),
		"revenue", fmt.Sprintf("%.2f", t.Revenue),
		"cost", fmt.Sprintf("%.2f", t.Cost),
		"harvest_kg", fmt.Sprintf("%.0f", t.HarvestKg),
		"cash", fmt.Sprintf("%.2f", t.Cash),
	)
	if c.OnMonth != nil {
		c.OnMonth(first, t)
	}
}

func (c *Clock) closeYear(year int, t Tally) {
	slog.Info("year closed",
		"year", year,
		"days", t.Days,
		"revenue", fmt.Sprintf("%.2f", t.Revenue),
		"net", fmt.Sprintf("%.2f", t.Net),
		"irrigation_m3", fmt.Sprintf("%.0f", t.IrrigationM3),
		"unmet_kwh", fmt.Sprintf("%.1f", t.UnmetKWh),
		"cash", fmt.Sprintf("%.2f", t.Cash),
	)
	if c.OnYear != nil {
		c.OnYear(year, t)
	}
}
