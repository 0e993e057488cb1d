package main

import (
	"fmt"
	"time"

	"github.com/talgya/agri-commons/internal/engine"
	"github.com/talgya/agri-commons/internal/persistence"
)

// dayWriter queues daily records and writes them one transaction at a time.
type dayWriter struct {
	db      *persistence.DB
	runID   string
	pending []*engine.DayRecords
	err     error // first failed write; later flushes are no-ops
}

func (w *dayWriter) add(rec *engine.DayRecords) {
	w.pending = append(w.pending, rec)
}

// flush writes every queued day. label names the batch in the error.
func (w *dayWriter) flush(label string) error {
	if w.err != nil || len(w.pending) == 0 {
		return w.err
	}
	if err := w.db.SaveDays(w.runID, w.pending); err != nil {
		w.err = fmt.Errorf("save %s: %w", label, err)
		return w.err
	}
	w.pending = nil
	return nil
}

// record runs the clock over [start, end], saving days at each month close
// and once more when the run ends. An OnDay hook already set on the clock
// still runs after the day is queued.
func record(clock *engine.Clock, w *dayWriter, start, end time.Time) error {
	hook := clock.OnDay
	clock.OnDay = func(st *engine.State, rec *engine.DayRecords) error {
		w.add(rec)
		if hook != nil {
			return hook(st, rec)
		}
		return nil
	}
	clock.OnMonth = func(month time.Time, _ engine.Tally) {
		if err := w.flush(month.Format("2006-01")); err != nil {
			clock.Stop()
		}
	}

	runErr := clock.Run(start, end)
	// A failed step leaves the current month's days queued.
	saveErr := w.flush("through " + clock.State.Date.Format(time.DateOnly))
	if runErr != nil {
		return runErr
	}
	return saveErr
}
