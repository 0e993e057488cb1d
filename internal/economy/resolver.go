package economy

import (
	"sort"
	"time"

	"github.com/talgya/agri-commons/internal/timeseries"
	"github.com/talgya/agri-commons/internal/weather"
)

// PriceBook holds the historical price series the community trades against.
type PriceBook struct {
	MunicipalWater *timeseries.Series[float64] // per m3
	Electricity    *timeseries.Series[float64] // grid import per kWh
	Diesel         *timeseries.Series[float64] // per litre
	Products       map[ProductKey]*timeseries.Series[float64]

	// ExportFraction is the share of the import tariff credited for export.
	ExportFraction float64
}

// Prices is the resolved price set for one day.
type Prices struct {
	MunicipalWaterPerM3 float64                `json:"municipal_water_per_m3"`
	GridImportPerKWh    float64                `json:"grid_import_per_kwh"`
	GridExportPerKWh    float64                `json:"grid_export_per_kwh"`
	DieselPerL          float64                `json:"diesel_per_l"`
	Products            map[ProductKey]float64 `json:"-"`
}

// Product returns the per-kg price of a product, zero when unpriced.
func (p Prices) Product(k ProductKey) float64 {
	return p.Products[k]
}

// Day bundles everything resolved for one simulated date.
type Day struct {
	Date    time.Time
	Weather weather.Observation
	Prices  Prices
}

// Resolver resolves weather and prices for any date by forward fill.
type Resolver struct {
	Weather *weather.Series
	Book    PriceBook

	reference map[ProductKey]float64
	keys      []ProductKey
}

// NewResolver wires a weather series and a price book.
func NewResolver(w *weather.Series, book PriceBook) *Resolver {
	r := &Resolver{
		Weather:   w,
		Book:      book,
		reference: make(map[ProductKey]float64, len(book.Products)),
	}
	for k, s := range book.Products {
		r.reference[k] = timeseries.Mean(s)
		r.keys = append(r.keys, k)
	}
	sort.Slice(r.keys, func(i, j int) bool {
		if r.keys[i].Crop != r.keys[j].Crop {
			return r.keys[i].Crop < r.keys[j].Crop
		}
		return r.keys[i].Pathway < r.keys[j].Pathway
	})
	return r
}

// Resolve returns the day's weather and prices. Dates outside the data
// coverage resolve to the nearest boundary value.
func (r *Resolver) Resolve(date time.Time) Day {
	date = timeseries.Day(date)
	p := Prices{Products: make(map[ProductKey]float64, len(r.keys))}
	if r.Book.MunicipalWater != nil {
		p.MunicipalWaterPerM3 = r.Book.MunicipalWater.At(date)
	}
	if r.Book.Electricity != nil {
		p.GridImportPerKWh = r.Book.Electricity.At(date)
		p.GridExportPerKWh = p.GridImportPerKWh * r.Book.ExportFraction
	}
	if r.Book.Diesel != nil {
		p.DieselPerL = r.Book.Diesel.At(date)
	}
	for _, k := range r.keys {
		p.Products[k] = r.Book.Products[k].At(date)
	}

	day := Day{Date: date, Prices: p}
	if r.Weather != nil {
		day.Weather = r.Weather.At(date)
	}
	return day
}

// ReferencePrices returns the long-run mean price of every product.
// Market policies compare the day's price against it.
func (r *Resolver) ReferencePrices() map[ProductKey]float64 {
	out := make(map[ProductKey]float64, len(r.reference))
	for k, v := range r.reference {
		out[k] = v
	}
	return out
}
