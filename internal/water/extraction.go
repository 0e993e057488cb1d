package water

import (
	"log/slog"
	"time"
)

// Extraction tracks cumulative groundwater pumped this month and year.
// BeginDay must run before any policy reads the counters for a new day.
type Extraction struct {
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	MonthM3 float64    `json:"month_m3"`
	YearM3  float64    `json:"year_m3"`
}

// BeginDay resets counters when date enters a new month or year.
func (e *Extraction) BeginDay(date time.Time) {
	y, m, _ := date.Date()
	if e.Year == 0 {
		e.Year, e.Month = y, m
		return
	}
	if y != e.Year {
		slog.Debug("extraction year reset", "year", e.Year, "total_m3", e.YearM3)
		e.YearM3 = 0
		e.MonthM3 = 0
	} else if m != e.Month {
		e.MonthM3 = 0
	}
	e.Year, e.Month = y, m
}

// Record adds pumped groundwater to both counters.
func (e *Extraction) Record(m3 float64) {
	if m3 <= 0 {
		return
	}
	e.MonthM3 += m3
	e.YearM3 += m3
}
