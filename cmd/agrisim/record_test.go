package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/agri-commons/internal/engine"
	"github.com/talgya/agri-commons/internal/persistence"
	"github.com/talgya/agri-commons/internal/synth"
	"github.com/talgya/agri-commons/internal/timeseries"
)

func recordFixture(t *testing.T) (*engine.Clock, *dayWriter) {
	t.Helper()
	cfg := defaultRunConfig()
	cfg.Synth.Farms = 2
	cfg.Synth.Start = timeseries.Date(2024, 1, 1)
	cfg.Synth.End = timeseries.Date(2024, 3, 31)

	pol, demand, err := cfg.Policies.resolve()
	require.NoError(t, err)
	sc := synth.Scenario(cfg.Synth, pol, demand)
	in, err := synth.Inputs(cfg.Synth, sc, synth.FreshPrices())
	require.NoError(t, err)
	sim, st, err := engine.New(sc, in)
	require.NoError(t, err)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "record.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	run, err := db.CreateRun(sc.Name, sc.Start, sc.End, cfg.Synth.Seed, nil)
	require.NoError(t, err)

	return engine.NewClock(sim, st), &dayWriter{db: db, runID: run.ID}
}

func TestRecordSavesCompleteRun(t *testing.T) {
	clock, w := recordFixture(t)

	require.NoError(t, record(clock, w, timeseries.Date(2024, 1, 1), timeseries.Date(2024, 2, 10)))
	assert.Empty(t, w.pending)

	community, err := w.db.CommunityRecords(w.runID)
	require.NoError(t, err)
	assert.Len(t, community, 41)
}

func TestRecordKeepsDaysBeforeFailure(t *testing.T) {
	clock, w := recordFixture(t)
	lost := errors.New("weather feed lost")
	clock.OnDay = func(st *engine.State, _ *engine.DayRecords) error {
		if st.Date.Equal(timeseries.Date(2024, 2, 12)) {
			return lost
		}
		return nil
	}

	err := record(clock, w, timeseries.Date(2024, 1, 1), timeseries.Date(2024, 3, 31))
	require.ErrorIs(t, err, lost)
	assert.Empty(t, w.pending)

	// January closed normally; February's days up to the failure are kept.
	community, err := w.db.CommunityRecords(w.runID)
	require.NoError(t, err)
	require.Len(t, community, 31+12)
	assert.Equal(t, timeseries.Date(2024, 2, 12), community[len(community)-1].Date)

	farms, err := w.db.FarmRecords(w.runID)
	require.NoError(t, err)
	assert.Len(t, farms, 2*(31+12))
}
