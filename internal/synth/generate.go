// Package synth generates deterministic demo inputs: weather, prices,
// renewable output, building load and irrigation tables shaped by
// seasonal curves and layered simplex noise.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/agri-commons/internal/crops"
	"github.com/talgya/agri-commons/internal/economy"
	"github.com/talgya/agri-commons/internal/engine"
	"github.com/talgya/agri-commons/internal/scenario"
	"github.com/talgya/agri-commons/internal/timeseries"
	"github.com/talgya/agri-commons/internal/weather"
)

// Config holds generation parameters.
type Config struct {
	Seed            int64     // 0 picks a random seed
	Start           time.Time // First simulated day
	End             time.Time // Last simulated day
	Farms           int
	FarmAreaHa      float64
	StartingCapital float64

	MeanTempC      float64 // Annual mean
	TempAmplitudeC float64 // Half the summer to winter swing
	AnnualRainMM   float64
}

// DefaultConfig returns a five-year, four-farm semi-arid community.
func DefaultConfig() Config {
	return Config{
		Seed:            42,
		Start:           timeseries.Date(2024, 1, 1),
		End:             timeseries.Date(2028, 12, 31),
		Farms:           4,
		FarmAreaHa:      5,
		StartingCapital: 60000,
		MeanTempC:       21,
		TempAmplitudeC:  8,
		AnnualRainMM:    300,
	}
}

// ResolveSeed returns seed, or a random one when seed is zero.
func ResolveSeed(seed int64) int64 {
	if seed == 0 {
		return rand.Int63()
	}
	return seed
}

// fieldEfficiency is the drip irrigation application efficiency.
const fieldEfficiency = 0.85

// horizon is how far past the end weather is generated, so every season
// planted before the end has a full demand curve.
const horizon = 200

// noise wraps a normalized simplex generator as a signed daily signal.
type noise struct {
	n opensimplex.Noise
}

func newNoise(seed int64) noise {
	return noise{n: opensimplex.NewNormalized(seed)}
}

// at returns fractal noise in [-1, 1] for day t.
func (s noise) at(t float64, octaves int, frequency float64) float64 {
	total, amplitude, maxVal := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += (s.n.Eval2(t*frequency, float64(i)*7.3) - 0.5) * 2 * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	return total / maxVal
}

// season is +1 at midsummer (northern hemisphere) and -1 at midwinter.
func season(date time.Time) float64 {
	return math.Sin(2 * math.Pi * float64(date.YearDay()-105) / 365.25)
}

// Weather generates daily observations from start for the given number
// of days.
func Weather(cfg Config, days int) []timeseries.Point[weather.Observation] {
	temp := newNoise(cfg.Seed)
	rain := newNoise(cfg.Seed + 1)
	sky := newNoise(cfg.Seed + 2)
	wind := newNoise(cfg.Seed + 3)

	// Rain fires on the wettest noise days; depth scales to the annual total.
	const rainThreshold = 0.45
	depth := cfg.AnnualRainMM / (365 * 0.12) // ~12% of days are wet

	points := make([]timeseries.Point[weather.Observation], days)
	for i := range points {
		date := cfg.Start.AddDate(0, 0, i)
		t := float64(i)
		s := season(date)

		mean := cfg.MeanTempC + cfg.TempAmplitudeC*s + 3*temp.at(t, 3, 0.08)
		spread := 6 + 2*sky.at(t, 2, 0.15)
		o := weather.Observation{
			TempMaxC:    mean + spread,
			TempMinC:    mean - spread,
			SolarMJM2:   math.Max(2, 18+7*s+4*sky.at(t, 2, 0.2)),
			WindSpeedMS: math.Max(0, 3+1.5*wind.at(t, 3, 0.1)),
		}
		if r := rain.at(t, 3, 0.12) - 0.25*s; r > rainThreshold {
			o.PrecipitationMM = (r - rainThreshold) / (1 - rainThreshold) * depth * 3
		}
		o.ET0MM = hargreaves(o)
		points[i] = timeseries.Point[weather.Observation]{Date: date, Value: o}
	}
	return points
}

// hargreaves estimates reference evapotranspiration in mm/day, using solar
// radiation as a stand-in for extraterrestrial radiation.
func hargreaves(o weather.Observation) float64 {
	ra := o.SolarMJM2 / 0.6
	diff := math.Max(0, o.TempMaxC-o.TempMinC)
	et0 := 0.0023 * (o.MeanTempC() + 17.8) * math.Sqrt(diff) * ra * 0.408
	if o.PrecipitationMM > 0 {
		et0 *= 0.8
	}
	return math.Max(0, et0)
}

// pathwayPremium scales the fresh price for processed products, per kg of
// output.
var pathwayPremium = [economy.NumPathways]float64{1, 1.25, 1.8, 6}

// Prices generates a price book with monthly points.
func Prices(cfg Config, profiles map[string]crops.Profile, fresh map[string]float64) economy.PriceBook {
	market := newNoise(cfg.Seed + 10)
	energyNoise := newNoise(cfg.Seed + 11)

	months := monthsBetween(cfg.Start, cfg.End)
	water := make([]timeseries.Point[float64], len(months))
	power := make([]timeseries.Point[float64], len(months))
	diesel := make([]timeseries.Point[float64], len(months))
	for i, m := range months {
		years := float64(i) / 12
		water[i] = point(m, 0.6*math.Pow(1.03, years))
		power[i] = point(m, 0.18*math.Pow(1.02, years)*(1+0.08*energyNoise.at(float64(i), 2, 0.3)))
		diesel[i] = point(m, 1.1*(1+0.15*energyNoise.at(float64(i)+100, 2, 0.25)))
	}

	book := economy.PriceBook{
		MunicipalWater: mustSeries(water),
		Electricity:    mustSeries(power),
		Diesel:         mustSeries(diesel),
		Products:       make(map[economy.ProductKey]*timeseries.Series[float64]),
		ExportFraction: 0.4,
	}
	offset := 0.0
	for _, name := range sortedNames(profiles) {
		base := fresh[name]
		if base <= 0 {
			base = 1
		}
		offset += 50
		for _, pw := range economy.Pathways {
			pts := make([]timeseries.Point[float64], len(months))
			for i, m := range months {
				// Fresh prices swing with the season; processed prices are steadier.
				swing := 0.2
				if pw != economy.PathwayFresh {
					swing = 0.06
				}
				v := base * pathwayPremium[pw] *
					(1 - swing*season(m) + 0.1*market.at(float64(i)+offset, 2, 0.25))
				pts[i] = point(m, math.Max(0.05, v))
			}
			book.Products[economy.ProductKey{Crop: name, Pathway: pw}] = mustSeries(pts)
		}
	}
	return book
}

// Energy generates per-kW PV and wind output and building load.
func Energy(cfg Config, days int) (pv, wind, household, community *timeseries.Series[float64]) {
	sun := newNoise(cfg.Seed + 20)
	gust := newNoise(cfg.Seed + 21)

	pvPts := make([]timeseries.Point[float64], days)
	windPts := make([]timeseries.Point[float64], days)
	housePts := make([]timeseries.Point[float64], days)
	commPts := make([]timeseries.Point[float64], days)
	for i := 0; i < days; i++ {
		date := cfg.Start.AddDate(0, 0, i)
		t := float64(i)
		s := season(date)
		pvPts[i] = point(date, math.Max(0, 4.6+1.4*s+0.9*sun.at(t, 2, 0.3)))
		windPts[i] = point(date, math.Max(0, 24*(0.24-0.04*s+0.12*gust.at(t, 3, 0.2))))
		// Cooling load peaks in summer.
		housePts[i] = point(date, float64(cfg.Farms)*14*(1+0.25*s))
		commPts[i] = point(date, 35+10*math.Abs(s))
	}
	return mustSeries(pvPts), mustSeries(windPts), mustSeries(housePts), mustSeries(commPts)
}

// Irrigation builds demand curves for every planting in the scenario.
// Demand follows FAO-56 crop coefficients times ET0, less effective rain,
// grossed up for field efficiency.
func Irrigation(sc *scenario.Scenario, obs []timeseries.Point[weather.Observation]) (*crops.PrecomputedTable, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("irrigation: no weather")
	}
	start := obs[0].Date
	table := crops.NewPrecomputedTable()
	done := make(map[crops.TableKey]bool)

	for _, f := range sc.Farms {
		for _, cp := range f.Crops {
			p := sc.Profiles[cp.Profile]
			kc, ok := coefficients[cp.Profile]
			if !ok {
				kc = coefficients["default"]
			}
			for _, planted := range cp.Plantings {
				key := crops.TableKey{Crop: p.Name, Planting: planted}
				if done[key] {
					continue
				}
				done[key] = true

				curve := make([]float64, p.Stages.SeasonDays())
				for d := range curve {
					idx := int(planted.AddDate(0, 0, d).Sub(start).Hours() / 24)
					if idx < 0 || idx >= len(obs) {
						return nil, fmt.Errorf("irrigation: %s planted %s outside weather range",
							p.Name, planted.Format(time.DateOnly))
					}
					o := obs[idx].Value
					need := kc.at(p.Stages, d)*o.ET0MM - weather.EffectivePrecipitationMM(o)
					curve[d] = math.Max(0, need) * 10 / fieldEfficiency // mm over 1 ha = 10 m3
				}
				table.Set(p.Name, planted, curve)
			}
		}
	}
	return table, nil
}

// Inputs generates every engine input for the scenario.
func Inputs(cfg Config, sc *scenario.Scenario, fresh map[string]float64) (engine.Inputs, error) {
	days := int(cfg.End.Sub(cfg.Start).Hours()/24) + 1 + horizon
	obs := Weather(cfg, days)
	ws, err := weather.NewSeries(obs)
	if err != nil {
		return engine.Inputs{}, fmt.Errorf("weather: %w", err)
	}
	irr, err := Irrigation(sc, obs)
	if err != nil {
		return engine.Inputs{}, err
	}
	pv, wind, house, comm := Energy(cfg, days)

	return engine.Inputs{
		Resolver:     economy.NewResolver(ws, Prices(cfg, sc.Profiles, fresh)),
		Irrigation:   irr,
		PVKWhPerKW:   pv,
		WindKWhPerKW: wind,
		HouseholdKWh: house,
		CommunityKWh: comm,
	}, nil
}

func point(date time.Time, v float64) timeseries.Point[float64] {
	return timeseries.Point[float64]{Date: date, Value: v}
}

// mustSeries builds a series from generated points, which are never empty.
func mustSeries(pts []timeseries.Point[float64]) *timeseries.Series[float64] {
	s, err := timeseries.New(pts)
	if err != nil {
		panic(fmt.Sprintf("synth: %v", err))
	}
	return s
}

func monthsBetween(start, end time.Time) []time.Time {
	var out []time.Time
	m := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(end) {
		out = append(out, m)
		m = m.AddDate(0, 1, 0)
	}
	return out
}
