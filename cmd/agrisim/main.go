// Command agrisim runs the agricultural commons daily simulation and
// reports on stored runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/agri-commons/internal/accounting"
	"github.com/talgya/agri-commons/internal/api"
	"github.com/talgya/agri-commons/internal/engine"
	"github.com/talgya/agri-commons/internal/persistence"
	"github.com/talgya/agri-commons/internal/synth"
)

var (
	// Global flags
	configPath string
	dbPath     string
	logLevel   string

	// run flags
	seed  int64
	start string
	end   string
	farms int

	// summary flags
	runID  string
	period string

	// serve flags
	addr        string
	recordsRate int
)

var rootCmd = &cobra.Command{
	Use:   "agrisim",
	Short: "Agricultural commons daily simulation",
	Long: `agrisim simulates a farming community one day at a time: crops, shared
water and energy systems, a pooled food store and per-farm accounts.

Runs are stored in a sqlite database and can be summarized afterwards.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a demo community and simulate it",
	Long: `Generate a deterministic demo community from the run configuration,
simulate every day from start to end, and store the daily records.

Ctrl+C stops the run after the current day; records up to then are kept.`,
	RunE: runSimulation,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	RunE:  listRuns,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize a stored run per farm",
	RunE:  summarizeRun,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs over a read-only HTTP API",
	Long: `Serve stored runs as JSON:

  GET /api/v1/runs
  GET /api/v1/runs/{id}
  GET /api/v1/runs/{id}/summary?period=month|year|lifetime
  GET /api/v1/runs/{id}/snapshot
  GET /api/v1/runs/{id}/events?limit=50&category=harvest
  GET /api/v1/runs/{id}/community
  GET /api/v1/runs/{id}/farms/{farm}`,
	RunE: serveRuns,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML run configuration")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	runCmd.Flags().Int64Var(&seed, "seed", 0, "generation seed, 0 for random (overrides config)")
	runCmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (overrides config)")
	runCmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (overrides config)")
	runCmd.Flags().IntVar(&farms, "farms", 0, "number of farms (overrides config)")

	summaryCmd.Flags().StringVar(&runID, "run", "", "run ID (default: newest run)")
	summaryCmd.Flags().StringVar(&period, "period", "year", "month, year or lifetime")

	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&recordsRate, "records-per-hour", 60, "per-client limit on daily record endpoints")

	rootCmd.AddCommand(runCmd, runsCmd, summaryCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the run configuration, applies command-line overrides and
// installs the default logger.
func setup(cmd *cobra.Command) (runConfig, error) {
	cfg, err := loadRunConfig(configPath)
	if err != nil {
		return runConfig{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("log-level") {
		if cfg.LogLevel, err = parseLevel(logLevel); err != nil {
			return runConfig{}, err
		}
	}
	if flags.Changed("seed") {
		cfg.Synth.Seed = seed
	}
	if flags.Changed("start") {
		if cfg.Synth.Start, err = parseDate("start", start); err != nil {
			return runConfig{}, err
		}
	}
	if flags.Changed("end") {
		if cfg.Synth.End, err = parseDate("end", end); err != nil {
			return runConfig{}, err
		}
	}
	if flags.Changed("farms") {
		cfg.Synth.Farms = farms
	}
	if err := cfg.check(); err != nil {
		return runConfig{}, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	return cfg, nil
}

func openDB(path string) (*persistence.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", path)
	return db, nil
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	cfg.Synth.Seed = synth.ResolveSeed(cfg.Synth.Seed)

	pol, demand, err := cfg.Policies.resolve()
	if err != nil {
		return err
	}
	sc := synth.Scenario(cfg.Synth, pol, demand)
	in, err := synth.Inputs(cfg.Synth, sc, synth.FreshPrices())
	if err != nil {
		return fmt.Errorf("generate inputs: %w", err)
	}
	sim, st, err := engine.New(sc, in)
	if err != nil {
		return err
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.CreateRun(sc.Name, sc.Start, sc.End, cfg.Synth.Seed, cfg)
	if err != nil {
		return err
	}
	slog.Info("run created", "run", run.ID, "scenario", sc.Name, "seed", cfg.Synth.Seed,
		"water", pol.Water.Name(), "energy", pol.Energy.Name(),
		"processing", pol.Processing.Name(), "market", pol.Market.Name(), "demand", demand.Name())

	clock := engine.NewClock(sim, st)

	out := cmd.OutOrStdout()
	clock.OnYear = func(year int, t engine.Tally) {
		printYear(out, year, t)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		slog.Info("received signal, stopping after current day", "signal", sig)
		clock.Stop()
	}()

	// Days are written in one transaction per month.
	runErr := record(clock, &dayWriter{db: db, runID: run.ID}, sc.Start, sc.End)

	status := "complete"
	if runErr != nil {
		status = "failed"
	} else if clock.State.Date.Before(sc.End) {
		status = "stopped"
	}
	if err := db.SaveSnapshot(run.ID, sim.Snapshot(clock.State)); err != nil {
		slog.Error("failed to save snapshot", "run", run.ID, "error", err)
	}
	if err := db.SaveMeta(run.ID, "status", status); err != nil {
		slog.Error("failed to save run status", "run", run.ID, "error", err)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(out, "\nRun %s %s after %d days.\n", run.ID, status, clock.State.Days)
	fmt.Fprintf(out, "Summarize with: agrisim summary --db %s --run %s\n", cfg.DBPath, run.ID)
	return nil
}

func listRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	printRuns(cmd.OutOrStdout(), db, runs, time.Now())
	return nil
}

func summarizeRun(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	p, err := accounting.ParsePeriod(period)
	if err != nil {
		return err
	}
	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	id := runID
	if id == "" {
		runs, err := db.Runs()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			return fmt.Errorf("no stored runs in %s", cfg.DBPath)
		}
		id = runs[0].ID
	}
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	records, err := db.FarmRecords(run.ID)
	if err != nil {
		return err
	}
	snap, err := db.Snapshot(run.ID)
	if err != nil {
		slog.Warn("run has no snapshot", "run", run.ID, "error", err)
	}
	events, err := db.RecentEvents(run.ID, "", 10)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, seed %d, %s to %s)\n\n",
		run.ID, run.Scenario, run.Seed, run.StartDate, run.EndDate)
	printTotals(out, accounting.Rollup(records, p))
	if !snap.Date.IsZero() {
		printSnapshot(out, snap)
	}
	printEvents(out, events)
	return nil
}

func serveRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &api.Server{DB: db, Addr: addr}
	if recordsRate > 0 {
		srv.Limiter = api.NewRateLimiter(recordsRate, time.Hour)
	}
	return srv.ListenAndServe(ctx)
}
