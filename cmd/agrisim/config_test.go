package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/crops"
	"github.com/talgya/agri-commons/internal/economy"
	"github.com/talgya/agri-commons/internal/energy"
	"github.com/talgya/agri-commons/internal/storage"
	"github.com/talgya/agri-commons/internal/timeseries"
	"github.com/talgya/agri-commons/internal/water"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRunConfigDefaults(t *testing.T) {
	cfg, err := loadRunConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultRunConfig(), cfg)
}

func TestLoadRunConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
start = "2025-03-01"
end = "2025-12-31"
seed = 9
db = " runs/test.db "
log_level = "debug"
farms = 2

[policies]
water = "extraction_quota"
quota_annual_m3 = 12000
market = "hold_for_peak"
hold_urgent_days = 3
`)
	cfg, err := loadRunConfig(path)
	require.NoError(t, err)

	assert.Equal(t, timeseries.Date(2025, 3, 1), cfg.Synth.Start)
	assert.Equal(t, timeseries.Date(2025, 12, 31), cfg.Synth.End)
	assert.Equal(t, int64(9), cfg.Synth.Seed)
	assert.Equal(t, "runs/test.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 2, cfg.Synth.Farms)

	defaults := defaultRunConfig()
	assert.Equal(t, defaults.Synth.FarmAreaHa, cfg.Synth.FarmAreaHa)
	assert.Equal(t, "extraction_quota", cfg.Policies.Water)
	assert.Equal(t, 12000.0, cfg.Policies.QuotaAnnualM3)
	assert.Equal(t, defaults.Policies.QuotaMonthlyVariance, cfg.Policies.QuotaMonthlyVariance)
	assert.Equal(t, defaults.Policies.Energy, cfg.Policies.Energy)
	assert.Equal(t, 3, cfg.Policies.HoldUrgentDays)
	assert.Equal(t, defaults.Policies.HoldThreshold, cfg.Policies.HoldThreshold)

	pol, demand, err := cfg.Policies.resolve()
	require.NoError(t, err)
	assert.Equal(t, water.ExtractionQuota{AnnualM3: 12000, MonthlyVariance: 0.25}, pol.Water)
	assert.Equal(t, storage.HoldForPeak{Threshold: 1.1, UrgentDays: 3}, pol.Market)
	assert.Equal(t, crops.DeficitIrrigation{Fraction: 0.8}, demand)
}

func TestLoadRunConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad date", `start = "March 1"`},
		{"end before start", "start = \"2025-01-01\"\nend = \"2024-12-31\""},
		{"no farms", "farms = 0"},
		{"bad level", `log_level = "loud"`},
		{"unknown key", `farmz = 3`},
		{"short split", "[policies]\nsplit = [0.5, 0.5]"},
		{"not toml", `farms = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadRunConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestResolvePolicies(t *testing.T) {
	p := defaultRunConfig().Policies
	pol, demand, err := p.resolve()
	require.NoError(t, err)
	assert.Equal(t, "min_water_cost", pol.Water.Name())
	assert.Equal(t, energy.MicrogridFirst{ReserveSOC: 0.2}, pol.Energy)
	assert.Equal(t, "max_shelf_life", pol.Processing.Name())
	assert.Equal(t, "adaptive_marketing", pol.Market.Name())
	assert.Equal(t, "deficit_irrigation", demand.Name())

	p.Processing = "fixed_split"
	pol, _, err = p.resolve()
	require.NoError(t, err)
	fixed, ok := pol.Processing.(storage.FixedSplit)
	require.True(t, ok)
	assert.Equal(t, 0.5, fixed.Fractions[economy.PathwayFresh])
	assert.Equal(t, 0.1, fixed.Fractions[economy.PathwayDried])
	assert.NoError(t, fixed.Fractions.Validate())

	breakers := map[string]func(*policies){
		"water":      func(p *policies) { p.Water = "nonsense" },
		"energy":     func(p *policies) { p.Energy = "nonsense" },
		"processing": func(p *policies) { p.Processing = "nonsense" },
		"market":     func(p *policies) { p.Market = "nonsense" },
		"demand":     func(p *policies) { p.Demand = "nonsense" },
	}
	for name, breakIt := range breakers {
		t.Run(name, func(t *testing.T) {
			bad := defaultRunConfig().Policies
			breakIt(&bad)
			_, _, err := bad.resolve()
			assert.ErrorContains(t, err, "unknown "+name+" policy")
		})
	}
}

func TestPrintTotals(t *testing.T) {
	var buf bytes.Buffer
	printTotals(&buf, []accounting.Totals{{
		FarmID: "farm-01", Period: "2024", Days: 366,
		HarvestKg: 12345.6, Revenue: 1234567.891, NetIncome: -2500,
	}})
	out := buf.String()
	assert.Contains(t, out, "farm-01")
	assert.Contains(t, out, "12,346")
	assert.Contains(t, out, "1,234,567.89")
	assert.Contains(t, out, "-2,500.00")

	buf.Reset()
	printTotals(&buf, nil)
	assert.Equal(t, "No farm records.\n", buf.String())
}
