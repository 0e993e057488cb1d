package energy

import "time"

// Flags parameterize the shared merit-order dispatch.
type Flags struct {
	UseRenewables      bool    `json:"use_renewables"`
	UseBattery         bool    `json:"use_battery"`
	GridImport         bool    `json:"grid_import"`
	GridExport         bool    `json:"grid_export"`
	UseGenerator       bool    `json:"use_generator"`
	RenewablesToExport bool    `json:"renewables_to_export"`
	ReserveSOC         float64 `json:"reserve_soc"`
}

// Context is what an energy policy sees before dispatch.
type Context struct {
	Date    time.Time
	System  System
	Tariffs Tariffs
	SOC     float64
}

// Policy selects dispatch capabilities. It never dispatches itself.
type Policy interface {
	Name() string
	Flags(ctx Context) Flags
}

// MicrogridFirst runs islanded: renewables, battery and generator only.
type MicrogridFirst struct {
	ReserveSOC float64
}

func (MicrogridFirst) Name() string { return "microgrid" }

func (p MicrogridFirst) Flags(Context) Flags {
	return Flags{UseRenewables: true, UseBattery: true, UseGenerator: true, ReserveSOC: p.ReserveSOC}
}

// RenewableFirst uses renewables and battery, backed by grid import, and
// exports surplus.
type RenewableFirst struct {
	ReserveSOC float64
}

func (RenewableFirst) Name() string { return "renewable_first" }

func (p RenewableFirst) Flags(Context) Flags {
	return Flags{UseRenewables: true, UseBattery: true, GridImport: true, GridExport: true, ReserveSOC: p.ReserveSOC}
}

// AllGrid serves all load from the grid and sells all renewable output.
type AllGrid struct{}

func (AllGrid) Name() string { return "all_grid" }

func (AllGrid) Flags(Context) Flags {
	return Flags{GridImport: true, GridExport: true, RenewablesToExport: true}
}

// CheapestEnergy backs renewables and battery with whichever of grid or
// generator is cheaper per kWh today.
type CheapestEnergy struct {
	ReserveSOC float64
}

func (CheapestEnergy) Name() string { return "cheapest_energy" }

func (p CheapestEnergy) Flags(ctx Context) Flags {
	f := Flags{UseRenewables: true, UseBattery: true, GridExport: true, ReserveSOC: p.ReserveSOC}
	genCost := ctx.System.FuelLPerKWh * ctx.Tariffs.DieselPerL
	if ctx.System.GeneratorKW > 0 && genCost < ctx.Tariffs.GridImportPerKWh {
		f.UseGenerator = true
	} else {
		f.GridImport = true
	}
	return f
}
