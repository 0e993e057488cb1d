package crops

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/talgya/agri-commons/internal/timeseries"
)

// ErrOverlappingSeasons is returned when two plantings of the same crop on
// the same farm would have concurrent growth cycles.
var ErrOverlappingSeasons = errors.New("overlapping planting seasons")

// Profile holds the agronomic and cost parameters of a crop type.
type Profile struct {
	Name                  string     `json:"name"`
	Stages                StageTable `json:"stages"`
	YieldKgPerHa          float64    `json:"yield_kg_per_ha"`
	Ky                    float64    `json:"ky"`            // FAO-33 yield response factor
	HandlingLoss          float64    `json:"handling_loss"` // Fraction lost between field and pool
	InputCostPerHa        float64    `json:"input_cost_per_ha"`
	FieldLaborHrsPerHaDay float64    `json:"field_labor_hrs_per_ha_day"`
	HarvestLaborHrsPerKg  float64    `json:"harvest_labor_hrs_per_kg"`
}

// IrrigationTable is a precomputed lookup of irrigation requirement per
// hectare for a crop planted on a date, indexed by day since planting.
type IrrigationTable interface {
	DemandM3PerHa(crop string, planting time.Time, day int) float64
}

// Transition reports what Advance did to a crop.
type Transition struct {
	From    Stage
	To      Stage
	Planted bool
}

// Changed reports whether the stage moved.
func (t Transition) Changed() bool { return t.From != t.To }

// Crop is one crop type on one farm.
type Crop struct {
	Name   string     `json:"name"`
	FarmID string     `json:"farm_id"`
	AreaHa float64    `json:"area_ha"` // Effective planted area
	Stages StageTable `json:"stages"`

	Stage             Stage     `json:"stage"`
	DaysElapsed       int       `json:"days_elapsed"`
	PlantedOn         time.Time `json:"planted_on"`
	CumulativeWaterM3 float64   `json:"cumulative_water_m3"`
	ExpectedWaterM3   float64   `json:"expected_water_m3"`
	Cycles            int       `json:"cycles"` // Completed harvests

	plantings []time.Time
	next      int // Index of the next unused planting date
}

// NewCrop creates a dormant crop with its resolved planting dates.
func NewCrop(farmID string, p Profile, areaHa float64, plantings []time.Time) (*Crop, error) {
	dates := make([]time.Time, len(plantings))
	for i, d := range plantings {
		dates[i] = timeseries.Day(d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if err := ValidatePlantings(p.Name, dates, p.Stages); err != nil {
		return nil, fmt.Errorf("farm %s: %w", farmID, err)
	}
	return &Crop{
		Name:      p.Name,
		FarmID:    farmID,
		AreaHa:    areaHa,
		Stages:    p.Stages,
		Stage:     StageDormant,
		plantings: dates,
	}, nil
}

// ValidatePlantings rejects planting schedules whose cycles would overlap.
// A crop harvested on day N returns to dormant after that day's storage step,
// so the next planting must fall on day N+1 or later.
func ValidatePlantings(crop string, sorted []time.Time, t StageTable) error {
	season := t.SeasonDays()
	for i := 1; i < len(sorted); i++ {
		earliest := sorted[i-1].AddDate(0, 0, season+1)
		if sorted[i].Before(earliest) {
			return fmt.Errorf("%w: %s planted %s and %s (season %d days)",
				ErrOverlappingSeasons, crop,
				sorted[i-1].Format(time.DateOnly), sorted[i].Format(time.DateOnly), season)
		}
	}
	return nil
}

// Plantings returns the crop's resolved planting dates.
func (c *Crop) Plantings() []time.Time {
	out := make([]time.Time, len(c.plantings))
	copy(out, c.plantings)
	return out
}

// Clone returns an independent copy. Planting dates are shared since they
// are never modified after creation.
func (c *Crop) Clone() *Crop {
	cp := *c
	return &cp
}

// Advance moves the crop forward one day. Active crops gain a day and take
// the stage from the stage table; dormant crops whose planting date is today
// start a new cycle. A harvest-ready crop stays put until MarkHarvested.
func (c *Crop) Advance(today time.Time, irr IrrigationTable) Transition {
	today = timeseries.Day(today)
	tr := Transition{From: c.Stage}

	switch {
	case c.Stage == StageHarvestReady:
	case c.Stage.Active():
		c.DaysElapsed++
		c.Stage = c.Stages.StageAt(c.DaysElapsed)
	default:
		for c.next < len(c.plantings) && c.plantings[c.next].Before(today) {
			c.next++
		}
		if c.next < len(c.plantings) && c.plantings[c.next].Equal(today) {
			c.next++
			c.activate(today, irr)
			tr.Planted = true
		}
	}

	tr.To = c.Stage
	return tr
}

func (c *Crop) activate(today time.Time, irr IrrigationTable) {
	c.PlantedOn = today
	c.DaysElapsed = 0
	c.Stage = c.Stages.StageAt(0)
	c.CumulativeWaterM3 = 0
	c.ExpectedWaterM3 = 0
	if c.AreaHa <= 0 || irr == nil {
		return
	}
	for d := 0; d < c.Stages.SeasonDays(); d++ {
		c.ExpectedWaterM3 += irr.DemandM3PerHa(c.Name, today, d) * c.AreaHa
	}
}

// BaseDemandM3 returns today's unadjusted irrigation requirement.
func (c *Crop) BaseDemandM3(irr IrrigationTable) float64 {
	if !c.Stage.Growing() || c.AreaHa <= 0 || irr == nil {
		return 0
	}
	d := irr.DemandM3PerHa(c.Name, c.PlantedOn, c.DaysElapsed) * c.AreaHa
	if d < 0 {
		return 0
	}
	return d
}

// Irrigate records delivered water against the current cycle.
func (c *Crop) Irrigate(m3 float64) {
	if m3 > 0 {
		c.CumulativeWaterM3 += m3
	}
}

// WaterRatio is delivered over expected water for the cycle, capped at 1.
// A cycle with no expected requirement counts as fully watered.
func (c *Crop) WaterRatio() float64 {
	if c.ExpectedWaterM3 <= 0 {
		return 1
	}
	r := c.CumulativeWaterM3 / c.ExpectedWaterM3
	if r > 1 {
		return 1
	}
	return r
}

// Yield returns the harvestable mass after water stress and handling loss.
func (c *Crop) Yield(p Profile) float64 {
	if c.AreaHa <= 0 || p.YieldKgPerHa <= 0 {
		return 0
	}
	factor := 1 - p.Ky*(1-c.WaterRatio())
	if factor < 0 {
		factor = 0
	}
	loss := p.HandlingLoss
	if loss < 0 {
		loss = 0
	}
	if loss > 1 {
		loss = 1
	}
	return p.YieldKgPerHa * c.AreaHa * factor * (1 - loss)
}

// MarkHarvested closes the cycle. Called by the storage step once the
// harvest has been pooled.
func (c *Crop) MarkHarvested() error {
	if c.Stage != StageHarvestReady {
		return fmt.Errorf("crop %s on farm %s: harvest in stage %s", c.Name, c.FarmID, c.Stage)
	}
	c.Stage = c.Stage.Next()
	c.DaysElapsed = 0
	c.CumulativeWaterM3 = 0
	c.ExpectedWaterM3 = 0
	c.Cycles++
	return nil
}
