package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/agri-commons/internal/crops"
	"github.com/talgya/agri-commons/internal/storage"
)

// advanceCrops moves every crop forward a day and charges inputs at
// planting.
func (s *Simulation) advanceCrops(d *day) {
	for i, f := range d.st.Farms {
		for _, c := range f.Crops {
			tr := c.Advance(d.date, s.Inputs.Irrigation)
			if tr.Planted {
				p := s.profile(c)
				d.farms[i].InputCost += p.InputCostPerHa * c.AreaHa
				d.event("crop", "%s planted %s on %.2f ha", f.ID, c.Name, c.AreaHa)
				continue
			}
			if tr.Changed() && tr.To == crops.StageHarvestReady {
				d.event("crop", "%s %s ready for harvest", f.ID, c.Name)
			}
		}
	}
}

// cropDemand applies each farm's crop policy to today's base demand and
// charges field labor for growing crops.
func (s *Simulation) cropDemand(d *day) {
	d.demand = make([][]float64, len(d.st.Farms))
	for i, f := range d.st.Farms {
		d.demand[i] = make([]float64, len(f.Crops))
		for j, c := range f.Crops {
			if !c.Stage.Growing() {
				continue
			}
			p := s.profile(c)
			d.labor[i] += p.FieldLaborHrsPerHaDay * c.AreaHa

			base := c.BaseDemandM3(s.Inputs.Irrigation)
			if base <= 0 {
				continue
			}
			adj := f.DemandPolicy.AdjustDemand(base, crops.DemandContext{
				Date:    d.date,
				Crop:    c.Name,
				Stage:   c.Stage,
				AreaHa:  c.AreaHa,
				Weather: d.econ.Weather,
			})
			if adj > 0 {
				d.demand[i][j] = adj
			}
		}
	}
}

// harvest pools every harvest-ready crop by type, processes the pool into
// inventory and only then returns the contributing crops to dormant.
func (s *Simulation) harvest(d *day) error {
	for _, name := range harvestOrder(d.st.Farms) {
		var (
			contribs []storage.Contribution
			ready    []*crops.Crop
		)
		for i, f := range d.st.Farms {
			for _, c := range f.Crops {
				if c.Name != name || c.Stage != crops.StageHarvestReady {
					continue
				}
				ready = append(ready, c)
				p := s.profile(c)
				kg := c.Yield(p)
				if kg <= 0 {
					continue
				}
				contribs = append(contribs, storage.Contribution{FarmID: f.ID, MassKg: kg})
				d.farms[i].HarvestKg += kg
				d.labor[i] += p.HarvestLaborHrsPerKg * kg
			}
		}

		if len(contribs) > 0 {
			if err := s.pool(d, name, contribs); err != nil {
				return err
			}
		}
		for _, c := range ready {
			if err := c.MarkHarvested(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Simulation) pool(d *day, crop string, contribs []storage.Contribution) error {
	input := 0.0
	for _, c := range contribs {
		input += c.MassKg
	}
	split := s.Scenario.Policies.Processing.Split(storage.ProcessingContext{
		Date:      d.date,
		Crop:      crop,
		InputKg:   input,
		Prices:    d.econ.Prices,
		Reference: s.reference,
	})

	p, err := d.st.Ledger.Pool(d.date, crop, contribs, split, s.Scenario.Catalog)
	if errors.Is(err, storage.ErrNoContribution) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s via %s: %w", crop, s.Scenario.Policies.Processing.Name(), err)
	}

	for _, a := range p.Owners.Split(p.EnergyKWh) {
		d.processingKWh[a.FarmID] += a.Amount
	}
	for _, a := range p.Owners.Split(p.LaborHours) {
		if i := d.farmIndex(a.FarmID); i >= 0 {
			d.labor[i] += a.Amount
		}
	}
	d.out.Processed = append(d.out.Processed, p)

	slog.Info("harvest pooled",
		"date", d.date.Format("2006-01-02"),
		"crop", crop,
		"farms", len(contribs),
		"input_kg", fmt.Sprintf("%.1f", p.InputKg),
		"output_kg", fmt.Sprintf("%.1f", p.OutputKg),
		"batches", len(p.BatchIDs),
	)
	d.event("harvest", "%s pooled %.1f kg from %d farms into %d batches",
		crop, p.InputKg, len(contribs), len(p.BatchIDs))
	return nil
}
