// Package crops tracks per-farm crop growth cycles.
// Each crop is a small state machine driven by days since planting.
package crops

import "fmt"

// Stage is a crop's lifecycle stage.
type Stage uint8

const (
	StageDormant Stage = iota
	StageInitial
	StageDevelopment
	StageMidSeason
	StageLateSeason
	StageHarvestReady
)

func (s Stage) String() string {
	switch s {
	case StageDormant:
		return "dormant"
	case StageInitial:
		return "initial"
	case StageDevelopment:
		return "development"
	case StageMidSeason:
		return "mid_season"
	case StageLateSeason:
		return "late_season"
	case StageHarvestReady:
		return "harvest_ready"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Active reports whether the crop is in a growth cycle.
func (s Stage) Active() bool {
	return s != StageDormant
}

// Growing reports whether the crop is in a stage that draws irrigation.
func (s Stage) Growing() bool {
	switch s {
	case StageInitial, StageDevelopment, StageMidSeason, StageLateSeason:
		return true
	}
	return false
}

// Next returns the stage that follows s in the growth graph.
// HarvestReady wraps to Dormant; that edge is only taken by MarkHarvested.
func (s Stage) Next() Stage {
	switch s {
	case StageDormant:
		return StageInitial
	case StageInitial:
		return StageDevelopment
	case StageDevelopment:
		return StageMidSeason
	case StageMidSeason:
		return StageLateSeason
	case StageLateSeason:
		return StageHarvestReady
	case StageHarvestReady:
		return StageDormant
	}
	panic(fmt.Sprintf("crops: unknown stage %d", uint8(s)))
}

// StageTable holds the FAO-56 stage lengths for a crop, in days.
type StageTable struct {
	Initial     int `json:"initial"`
	Development int `json:"development"`
	MidSeason   int `json:"mid_season"`
	LateSeason  int `json:"late_season"`
}

// SeasonDays is the number of days from planting to harvest readiness.
func (t StageTable) SeasonDays() int {
	return t.Initial + t.Development + t.MidSeason + t.LateSeason
}

// StageAt returns the stage for a given day since planting (day 0 = planting).
func (t StageTable) StageAt(day int) Stage {
	switch {
	case day < 0:
		return StageDormant
	case day < t.Initial:
		return StageInitial
	case day < t.Initial+t.Development:
		return StageDevelopment
	case day < t.Initial+t.Development+t.MidSeason:
		return StageMidSeason
	case day < t.SeasonDays():
		return StageLateSeason
	default:
		return StageHarvestReady
	}
}
