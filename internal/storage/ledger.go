package storage

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/talgya/agri-commons/internal/economy"
	"github.com/talgya/agri-commons/internal/timeseries"
)

// SaleKind distinguishes voluntary sales from forced liquidation.
type SaleKind uint8

const (
	SaleVoluntary SaleKind = iota
	SaleExpired
)

func (k SaleKind) String() string {
	if k == SaleExpired {
		return "expired"
	}
	return "voluntary"
}

// Sale is one liquidation of mass from one batch.
type Sale struct {
	Date        time.Time          `json:"date"`
	BatchID     uint64             `json:"batch_id"`
	Product     economy.ProductKey `json:"product"`
	Kind        SaleKind           `json:"kind"`
	MassKg      float64            `json:"mass_kg"`
	PricePerKg  float64            `json:"price_per_kg"`
	Revenue     float64            `json:"revenue"`
	Discarded   bool               `json:"discarded"`
	Allocations []Allocation       `json:"allocations"`
}

// Ledger is the community inventory. Batches are kept in creation order,
// which is harvest-date order, so FIFO liquidation is a forward scan.
type Ledger struct {
	batches []*Batch
	nextID  uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{nextID: 1}
}

// Clone deep-copies batch quantities. Ownership maps are immutable and shared.
func (l *Ledger) Clone() *Ledger {
	cp := &Ledger{nextID: l.nextID, batches: make([]*Batch, len(l.batches))}
	for i, b := range l.batches {
		bb := *b
		cp.batches[i] = &bb
	}
	return cp
}

// Batches returns copies of the current batches, oldest first.
func (l *Ledger) Batches() []Batch {
	out := make([]Batch, len(l.batches))
	for i, b := range l.batches {
		out[i] = *b
	}
	return out
}

// Len is the number of batches held.
func (l *Ledger) Len() int { return len(l.batches) }

// MassKg is total stored mass.
func (l *Ledger) MassKg() float64 {
	total := 0.0
	for _, b := range l.batches {
		total += b.MassKg
	}
	return total
}

// Value prices remaining stock at the day's prices.
func (l *Ledger) Value(prices economy.Prices) float64 {
	total := 0.0
	for _, b := range l.batches {
		total += b.MassKg * prices.Product(b.Product)
	}
	return total
}

// ClearExpired force-sells every batch whose expiry date has been reached,
// oldest first, at the day's price. A batch with no positive price is
// discarded for zero revenue. Must run before any new harvest is pooled.
func (l *Ledger) ClearExpired(date time.Time, prices economy.Prices) []Sale {
	date = timeseries.Day(date)
	var sales []Sale
	for _, b := range l.batches {
		if !b.Expired(date) || b.MassKg <= 0 {
			continue
		}
		price := prices.Product(b.Product)
		discarded := price <= 0
		if discarded {
			price = 0
		}
		kg := b.take(b.MassKg)
		sale := newSale(date, b, SaleExpired, kg, price)
		sale.Discarded = discarded
		if discarded {
			slog.Debug("batch discarded at expiry", "batch", b.ID, "product", b.Product.String(), "kg", kg)
		}
		sales = append(sales, sale)
	}
	l.compact()
	return sales
}

// Processed describes one pooled harvest after processing.
type Processed struct {
	Date          time.Time      `json:"date"`
	Crop          string         `json:"crop"`
	InputKg       float64        `json:"input_kg"`
	OutputKg      float64        `json:"output_kg"`
	EnergyKWh     float64        `json:"energy_kwh"`
	LaborHours    float64        `json:"labor_hours"`
	Split         Split          `json:"split"`
	Contributions []Contribution `json:"contributions"`
	Owners        Ownership      `json:"owners"`
	BatchIDs      []uint64       `json:"batch_ids"`
}

// Pool sums the farms' contributions of one crop, splits the pool across
// pathways and creates one batch per non-zero pathway. Ownership is fixed
// from contributed mass before any processing loss.
func (l *Ledger) Pool(date time.Time, crop string, contribs []Contribution, split Split, cat Catalog) (Processed, error) {
	date = timeseries.Day(date)
	if err := split.Validate(); err != nil {
		return Processed{}, fmt.Errorf("pool %s: %w", crop, err)
	}
	owners, err := NewOwnership(contribs)
	if err != nil {
		return Processed{}, fmt.Errorf("pool %s: %w", crop, err)
	}

	p := Processed{
		Date:          date,
		Crop:          crop,
		Split:         split,
		Contributions: append([]Contribution(nil), contribs...),
		Owners:        owners,
	}
	for _, c := range contribs {
		if c.MassKg > 0 {
			p.InputKg += c.MassKg
		}
	}

	for _, pw := range economy.Pathways {
		frac := split[pw]
		if frac <= 0 {
			continue
		}
		key := economy.ProductKey{Crop: crop, Pathway: pw}
		spec := cat.Lookup(key)
		in := p.InputKg * frac
		out := in * (1 - clamp01(spec.WeightLoss))
		p.EnergyKWh += in * spec.EnergyKWhPerKg
		p.LaborHours += in * spec.LaborHrsPerKg
		if out <= 0 {
			continue
		}

		b := &Batch{
			ID:          l.nextID,
			Product:     key,
			MassKg:      out,
			HarvestDate: date,
			ExpiryDate:  date.AddDate(0, 0, spec.ShelfLifeDays),
			Owners:      owners,
		}
		mustValidMass(b)
		l.nextID++
		l.batches = append(l.batches, b)
		p.OutputKg += out
		p.BatchIDs = append(p.BatchIDs, b.ID)
	}
	return p, nil
}

// SellVoluntary asks the market policy once per product held and sells that
// fraction of available mass, oldest batches first, partially consuming the
// last batch touched. Unpriced products are held.
func (l *Ledger) SellVoluntary(date time.Time, prices economy.Prices, reference map[economy.ProductKey]float64, policy MarketPolicy) []Sale {
	date = timeseries.Day(date)
	var sales []Sale
	for _, key := range l.products() {
		price := prices.Product(key)
		if price <= 0 {
			continue
		}
		available, oldest := l.stock(key)
		if available <= 0 {
			continue
		}
		frac := clamp01(policy.SellFraction(MarketContext{
			Date:           date,
			Product:        key,
			PricePerKg:     price,
			ReferencePrice: reference[key],
			AvailableKg:    available,
			DaysToExpiry:   int(oldest.Sub(date).Hours() / 24),
		}))
		target := available * frac
		for _, b := range l.batches {
			if target <= 1e-9 {
				break
			}
			if b.Product != key || b.MassKg <= 0 {
				continue
			}
			kg := b.take(target)
			target -= kg
			sales = append(sales, newSale(date, b, SaleVoluntary, kg, price))
		}
	}
	l.compact()
	return sales
}

// HoldingCosts charges each remaining batch its daily holding cost, split
// by ownership. Returned per farm.
func (l *Ledger) HoldingCosts(cat Catalog) map[string]float64 {
	out := make(map[string]float64)
	for _, b := range l.batches {
		cost := b.MassKg * cat.Lookup(b.Product).HoldingCostPerKgDay
		if cost <= 0 {
			continue
		}
		for _, a := range b.Owners.Split(cost) {
			out[a.FarmID] += a.Amount
		}
	}
	return out
}

// products lists the distinct products held, in order of first appearance.
func (l *Ledger) products() []economy.ProductKey {
	seen := make(map[economy.ProductKey]bool)
	var keys []economy.ProductKey
	for _, b := range l.batches {
		if !seen[b.Product] {
			seen[b.Product] = true
			keys = append(keys, b.Product)
		}
	}
	return keys
}

// stock returns available mass of a product and its oldest expiry date.
func (l *Ledger) stock(key economy.ProductKey) (float64, time.Time) {
	total := 0.0
	var oldest time.Time
	for _, b := range l.batches {
		if b.Product != key || b.MassKg <= 0 {
			continue
		}
		if total == 0 {
			oldest = b.ExpiryDate
		}
		total += b.MassKg
	}
	return total, oldest
}

// compact drops emptied batches, preserving order.
func (l *Ledger) compact() {
	kept := l.batches[:0]
	for _, b := range l.batches {
		mustValidMass(b)
		if b.MassKg > 0 {
			kept = append(kept, b)
		}
	}
	for i := len(kept); i < len(l.batches); i++ {
		l.batches[i] = nil
	}
	l.batches = kept
}

func newSale(date time.Time, b *Batch, kind SaleKind, kg, price float64) Sale {
	revenue := kg * price
	return Sale{
		Date:        date,
		BatchID:     b.ID,
		Product:     b.Product,
		Kind:        kind,
		MassKg:      kg,
		PricePerKg:  price,
		Revenue:     revenue,
		Allocations: b.Owners.Split(revenue),
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
