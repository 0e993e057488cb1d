package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/engine"
	"github.com/talgya/agri-commons/internal/persistence"
)

// whole formats v with thousands separators and no decimals.
func whole(v float64) string {
	return humanize.FormatFloat("#,###.", v)
}

// money formats v with thousands separators and cents.
func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func printYear(w io.Writer, year int, t engine.Tally) {
	fmt.Fprintf(w, "%d: %d days, revenue %s, cost %s, net %s, harvest %s kg, irrigation %s m3, farm cash %s\n",
		year, t.Days, whole(t.Revenue), whole(t.Cost), whole(t.Net),
		whole(t.HarvestKg), whole(t.IrrigationM3), whole(t.Cash))
	if t.UnmetKWh > 0 {
		fmt.Fprintf(w, "      unmet energy %s kWh\n", whole(t.UnmetKWh))
	}
}

func printRuns(w io.Writer, db *persistence.DB, runs []persistence.Run, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCENARIO\tPERIOD\tSEED\tSTATUS\tCREATED")
	for _, r := range runs {
		status, err := db.GetMeta(r.ID, "status")
		if err != nil {
			status = "unknown"
		}
		created := r.CreatedAt
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			created = humanize.RelTime(t, now, "ago", "from now")
		} else {
			slog.Debug("bad run timestamp", "run", r.ID, "created_at", r.CreatedAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%d\t%s\t%s\n",
			r.ID, r.Scenario, r.StartDate, r.EndDate, r.Seed, status, created)
	}
	tw.Flush()
}

func printTotals(w io.Writer, totals []accounting.Totals) {
	if len(totals) == 0 {
		fmt.Fprintln(w, "No farm records.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "FARM\tPERIOD\tDAYS\tHARVEST KG\tIRRIGATION M3\tREVENUE\tWATER\tENERGY\tLABOR\tSHARED\tDEBT\tNET\tCASH\t")
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			t.FarmID, t.Period, t.Days, whole(t.HarvestKg), whole(t.IrrigationM3),
			money(t.Revenue), money(t.WaterCost), money(t.EnergyCost), money(t.LaborCost),
			money(t.SharedCost), money(t.DebtService), money(t.NetIncome), money(t.ClosingCash))
	}
	tw.Flush()
}

func printSnapshot(w io.Writer, s engine.Snapshot) {
	fmt.Fprintf(w, "\nAt %s after %d days:\n", s.Date.Format(time.DateOnly), s.Days)
	fmt.Fprintf(w, "  battery %.0f%%, water storage %s m3\n", s.BatterySOC*100, whole(s.WaterStorageM3))
	fmt.Fprintf(w, "  inventory %s kg worth %s\n", whole(s.InventoryKg), money(s.InventoryValue))
	fmt.Fprintf(w, "  debt outstanding %s\n", money(s.DebtOutstanding))
	for _, f := range s.Farms {
		fmt.Fprintf(w, "  %s cash %s\n", f.FarmID, money(f.Cash))
	}
	for _, c := range s.Crops {
		fmt.Fprintf(w, "  %s %s: %s, day %d, planted %s\n",
			c.FarmID, c.Crop, c.Stage, c.DaysElapsed, c.PlantedOn.Format(time.DateOnly))
	}
}

func printEvents(w io.Writer, events []engine.Event) {
	if len(events) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecent events:")
	for _, e := range events {
		fmt.Fprintf(w, "  %s [%s] %s\n", e.Date.Format(time.DateOnly), e.Category, e.Description)
	}
}
