package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/talgya/agri-commons/internal/crops"
	"github.com/talgya/agri-commons/internal/economy"
	"github.com/talgya/agri-commons/internal/energy"
	"github.com/talgya/agri-commons/internal/scenario"
	"github.com/talgya/agri-commons/internal/storage"
	"github.com/talgya/agri-commons/internal/synth"
	"github.com/talgya/agri-commons/internal/water"
)

// agrisim run file key mapping.
type fileConfig struct {
	Start           string   `toml:"start"`
	End             string   `toml:"end"`
	Seed            int64    `toml:"seed"`
	DB              string   `toml:"db"`
	LogLevel        string   `toml:"log_level"`
	Farms           int      `toml:"farms"`
	FarmAreaHa      float64  `toml:"farm_area_ha"`
	StartingCapital float64  `toml:"starting_capital"`
	MeanTempC       float64  `toml:"mean_temp_c"`
	TempAmplitudeC  float64  `toml:"temp_amplitude_c"`
	AnnualRainMM    float64  `toml:"annual_rain_mm"`
	Policies        policies `toml:"policies"`
}

// policies names the strategy used for each decision and its parameters.
type policies struct {
	Water      string `toml:"water" json:"water"`
	Energy     string `toml:"energy" json:"energy"`
	Processing string `toml:"processing" json:"processing"`
	Market     string `toml:"market" json:"market"`
	Demand     string `toml:"demand" json:"demand"`

	ReserveSOC           float64    `toml:"reserve_soc" json:"reserve_soc"`
	DeficitFraction      float64    `toml:"deficit_fraction" json:"deficit_fraction"`
	TargetTDS            float64    `toml:"target_tds" json:"target_tds"`
	QuotaAnnualM3        float64    `toml:"quota_annual_m3" json:"quota_annual_m3"`
	QuotaMonthlyVariance float64    `toml:"quota_monthly_variance" json:"quota_monthly_variance"`
	Split                [4]float64 `toml:"split" json:"split"` // fresh, packaged, canned, dried
	ResponsiveTrigger    float64    `toml:"responsive_trigger" json:"responsive_trigger"`
	ResponsiveShift      float64    `toml:"responsive_shift" json:"responsive_shift"`
	HoldThreshold        float64    `toml:"hold_threshold" json:"hold_threshold"`
	HoldUrgentDays       int        `toml:"hold_urgent_days" json:"hold_urgent_days"`
	AdaptiveMidpoint     float64    `toml:"adaptive_midpoint" json:"adaptive_midpoint"`
	AdaptiveSteepness    float64    `toml:"adaptive_steepness" json:"adaptive_steepness"`
}

// runConfig is a fully resolved run.
type runConfig struct {
	Synth    synth.Config `json:"synth"`
	DBPath   string       `json:"db"`
	LogLevel slog.Level   `json:"log_level"`
	Policies policies     `json:"policies"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		Synth:    synth.DefaultConfig(),
		DBPath:   "data/agrisim.db",
		LogLevel: slog.LevelInfo,
		Policies: policies{
			Water:                "min_water_cost",
			Energy:               "microgrid",
			Processing:           "max_shelf_life",
			Market:               "adaptive_marketing",
			Demand:               "deficit_irrigation",
			ReserveSOC:           0.2,
			DeficitFraction:      0.8,
			TargetTDS:            300,
			QuotaAnnualM3:        40000,
			QuotaMonthlyVariance: 0.25,
			Split:                [4]float64{0.5, 0.2, 0.2, 0.1},
			ResponsiveTrigger:    0.9,
			ResponsiveShift:      0.3,
			HoldThreshold:        1.1,
			HoldUrgentDays:       5,
			AdaptiveMidpoint:     1,
			AdaptiveSteepness:    3,
		},
	}
}

// loadRunConfig overlays the TOML file at path on the defaults. An empty
// path returns the defaults.
func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runConfig{}, fmt.Errorf("load run config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return runConfig{}, fmt.Errorf("load run config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("start") {
		if cfg.Synth.Start, err = parseDate("start", raw.Start); err != nil {
			return runConfig{}, err
		}
	}
	if meta.IsDefined("end") {
		if cfg.Synth.End, err = parseDate("end", raw.End); err != nil {
			return runConfig{}, err
		}
	}
	if meta.IsDefined("seed") {
		cfg.Synth.Seed = raw.Seed
	}
	if meta.IsDefined("db") {
		cfg.DBPath = strings.TrimSpace(raw.DB)
	}
	if meta.IsDefined("log_level") {
		if cfg.LogLevel, err = parseLevel(raw.LogLevel); err != nil {
			return runConfig{}, err
		}
	}
	if meta.IsDefined("farms") {
		cfg.Synth.Farms = raw.Farms
	}
	if meta.IsDefined("farm_area_ha") {
		cfg.Synth.FarmAreaHa = raw.FarmAreaHa
	}
	if meta.IsDefined("starting_capital") {
		cfg.Synth.StartingCapital = raw.StartingCapital
	}
	if meta.IsDefined("mean_temp_c") {
		cfg.Synth.MeanTempC = raw.MeanTempC
	}
	if meta.IsDefined("temp_amplitude_c") {
		cfg.Synth.TempAmplitudeC = raw.TempAmplitudeC
	}
	if meta.IsDefined("annual_rain_mm") {
		cfg.Synth.AnnualRainMM = raw.AnnualRainMM
	}
	overlayPolicies(&cfg.Policies, raw.Policies, meta)

	if err := cfg.check(); err != nil {
		return runConfig{}, err
	}
	return cfg, nil
}

func overlayPolicies(dst *policies, raw policies, meta toml.MetaData) {
	defined := func(key string) bool { return meta.IsDefined("policies", key) }
	if defined("water") {
		dst.Water = strings.TrimSpace(raw.Water)
	}
	if defined("energy") {
		dst.Energy = strings.TrimSpace(raw.Energy)
	}
	if defined("processing") {
		dst.Processing = strings.TrimSpace(raw.Processing)
	}
	if defined("market") {
		dst.Market = strings.TrimSpace(raw.Market)
	}
	if defined("demand") {
		dst.Demand = strings.TrimSpace(raw.Demand)
	}
	if defined("reserve_soc") {
		dst.ReserveSOC = raw.ReserveSOC
	}
	if defined("deficit_fraction") {
		dst.DeficitFraction = raw.DeficitFraction
	}
	if defined("target_tds") {
		dst.TargetTDS = raw.TargetTDS
	}
	if defined("quota_annual_m3") {
		dst.QuotaAnnualM3 = raw.QuotaAnnualM3
	}
	if defined("quota_monthly_variance") {
		dst.QuotaMonthlyVariance = raw.QuotaMonthlyVariance
	}
	if defined("split") {
		dst.Split = raw.Split
	}
	if defined("responsive_trigger") {
		dst.ResponsiveTrigger = raw.ResponsiveTrigger
	}
	if defined("responsive_shift") {
		dst.ResponsiveShift = raw.ResponsiveShift
	}
	if defined("hold_threshold") {
		dst.HoldThreshold = raw.HoldThreshold
	}
	if defined("hold_urgent_days") {
		dst.HoldUrgentDays = raw.HoldUrgentDays
	}
	if defined("adaptive_midpoint") {
		dst.AdaptiveMidpoint = raw.AdaptiveMidpoint
	}
	if defined("adaptive_steepness") {
		dst.AdaptiveSteepness = raw.AdaptiveSteepness
	}
}

// check rejects values the demo generator cannot work with. Scenario
// validation covers the rest once the community is built.
func (c runConfig) check() error {
	if c.Synth.End.Before(c.Synth.Start) {
		return fmt.Errorf("load run config: end %s before start %s",
			c.Synth.End.Format(time.DateOnly), c.Synth.Start.Format(time.DateOnly))
	}
	if c.Synth.Farms < 1 {
		return fmt.Errorf("load run config: farms must be at least 1, got %d", c.Synth.Farms)
	}
	if c.Synth.FarmAreaHa <= 0 {
		return fmt.Errorf("load run config: farm_area_ha must be positive")
	}
	if c.DBPath == "" {
		return fmt.Errorf("load run config: db path is empty")
	}
	return nil
}

func parseDate(key, v string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("load run config: %s: %w", key, err)
	}
	return t, nil
}

func parseLevel(v string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return 0, fmt.Errorf("load run config: log_level: %w", err)
	}
	return lvl, nil
}

// resolve maps policy names to strategies.
func (p policies) resolve() (scenario.Policies, crops.DemandPolicy, error) {
	var out scenario.Policies

	switch p.Water {
	case "max_groundwater":
		out.Water = water.MaxGroundwater{}
	case "min_water_cost":
		out.Water = water.MinWaterCost{}
	case "quality_target":
		out.Water = water.QualityTarget{TargetTDS: p.TargetTDS}
	case "extraction_quota":
		out.Water = water.ExtractionQuota{AnnualM3: p.QuotaAnnualM3, MonthlyVariance: p.QuotaMonthlyVariance}
	default:
		return scenario.Policies{}, nil, fmt.Errorf("unknown water policy %q", p.Water)
	}

	switch p.Energy {
	case "microgrid":
		out.Energy = energy.MicrogridFirst{ReserveSOC: p.ReserveSOC}
	case "renewable_first":
		out.Energy = energy.RenewableFirst{ReserveSOC: p.ReserveSOC}
	case "all_grid":
		out.Energy = energy.AllGrid{}
	case "cheapest_energy":
		out.Energy = energy.CheapestEnergy{ReserveSOC: p.ReserveSOC}
	default:
		return scenario.Policies{}, nil, fmt.Errorf("unknown energy policy %q", p.Energy)
	}

	split := storage.Split{}
	for i, f := range p.Split {
		split[economy.Pathway(i)] = f
	}
	switch p.Processing {
	case "all_fresh":
		out.Processing = storage.AllFresh{}
	case "fixed_split":
		out.Processing = storage.FixedSplit{Fractions: split}
	case "max_shelf_life":
		out.Processing = storage.MaxShelfLife{}
	case "market_responsive":
		out.Processing = storage.MarketResponsive{Base: split, Trigger: p.ResponsiveTrigger, Shift: p.ResponsiveShift}
	default:
		return scenario.Policies{}, nil, fmt.Errorf("unknown processing policy %q", p.Processing)
	}

	switch p.Market {
	case "sell_all":
		out.Market = storage.SellAll{}
	case "hold_for_peak":
		out.Market = storage.HoldForPeak{Threshold: p.HoldThreshold, UrgentDays: p.HoldUrgentDays}
	case "adaptive_marketing":
		out.Market = storage.AdaptiveMarketing{Midpoint: p.AdaptiveMidpoint, Steepness: p.AdaptiveSteepness}
	default:
		return scenario.Policies{}, nil, fmt.Errorf("unknown market policy %q", p.Market)
	}

	var demand crops.DemandPolicy
	switch p.Demand {
	case "fixed_irrigation":
		demand = crops.FixedIrrigation{}
	case "deficit_irrigation":
		demand = crops.DeficitIrrigation{Fraction: p.DeficitFraction}
	case "weather_adaptive":
		demand = crops.WeatherAdaptive{}
	default:
		return scenario.Policies{}, nil, fmt.Errorf("unknown demand policy %q", p.Demand)
	}
	return out, demand, nil
}
