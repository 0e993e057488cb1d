package crops

import (
	"time"

	"github.com/talgya/agri-commons/internal/timeseries"
)

// TableKey identifies one precomputed demand curve.
type TableKey struct {
	Crop     string
	Planting time.Time
}

// PrecomputedTable is an in-memory IrrigationTable. Curves are stored per
// crop and planting date; a date with no exact curve falls back to the curve
// registered for the same month and day in any year.
type PrecomputedTable struct {
	curves   map[TableKey][]float64
	seasonal map[string][]float64 // crop + "MM-DD"
}

// NewPrecomputedTable creates an empty table.
func NewPrecomputedTable() *PrecomputedTable {
	return &PrecomputedTable{
		curves:   make(map[TableKey][]float64),
		seasonal: make(map[string][]float64),
	}
}

// Set registers the daily demand curve (m3/ha) for a crop planted on a date.
func (t *PrecomputedTable) Set(crop string, planting time.Time, curve []float64) {
	planting = timeseries.Day(planting)
	cp := make([]float64, len(curve))
	copy(cp, curve)
	t.curves[TableKey{Crop: crop, Planting: planting}] = cp
	t.seasonal[crop+planting.Format("01-02")] = cp
}

// DemandM3PerHa implements IrrigationTable. Days past the curve return zero.
func (t *PrecomputedTable) DemandM3PerHa(crop string, planting time.Time, day int) float64 {
	planting = timeseries.Day(planting)
	curve, ok := t.curves[TableKey{Crop: crop, Planting: planting}]
	if !ok {
		curve, ok = t.seasonal[crop+planting.Format("01-02")]
	}
	if !ok || day < 0 || day >= len(curve) {
		return 0
	}
	return curve[day]
}
