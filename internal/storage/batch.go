// Package storage is the community food ledger: pooled harvests, processed
// inventory batches with fixed multi-farm ownership, and FIFO liquidation.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/talgya/agri-commons/internal/economy"
)

// ShareTolerance bounds the drift allowed in ownership and split sums.
const ShareTolerance = 1e-6

// ErrNoContribution is returned when a pool has no positive contribution.
var ErrNoContribution = errors.New("pool has no positive contribution")

// Share is one farm's fraction of a batch.
type Share struct {
	FarmID   string  `json:"farm_id"`
	Fraction float64 `json:"fraction"`
}

// Ownership is an immutable farm→fraction map fixed when a batch is created.
// Fractions sum to 1.
type Ownership struct {
	shares []Share
}

// Contribution is one farm's mass entering a pool.
type Contribution struct {
	FarmID string  `json:"farm_id"`
	MassKg float64 `json:"mass_kg"`
}

// NewOwnership derives shares from pooled contributions. Farms with no
// positive contribution are left out.
func NewOwnership(contribs []Contribution) (Ownership, error) {
	byFarm := make(map[string]float64, len(contribs))
	total := 0.0
	for _, c := range contribs {
		if c.MassKg <= 0 || math.IsNaN(c.MassKg) {
			continue
		}
		byFarm[c.FarmID] += c.MassKg
		total += c.MassKg
	}
	if total <= 0 {
		return Ownership{}, ErrNoContribution
	}

	shares := make([]Share, 0, len(byFarm))
	for id, m := range byFarm {
		shares = append(shares, Share{FarmID: id, Fraction: m / total})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].FarmID < shares[j].FarmID })
	return Ownership{shares: shares}, nil
}

// Shares returns a copy of the shares, ordered by farm ID.
func (o Ownership) Shares() []Share {
	out := make([]Share, len(o.shares))
	copy(out, o.shares)
	return out
}

// Fraction returns a farm's share, zero if it holds none.
func (o Ownership) Fraction(farmID string) float64 {
	for _, s := range o.shares {
		if s.FarmID == farmID {
			return s.Fraction
		}
	}
	return 0
}

// Total is the sum of all fractions.
func (o Ownership) Total() float64 {
	t := 0.0
	for _, s := range o.shares {
		t += s.Fraction
	}
	return t
}

// Split divides an amount across owners.
func (o Ownership) Split(amount float64) []Allocation {
	out := make([]Allocation, len(o.shares))
	for i, s := range o.shares {
		out[i] = Allocation{FarmID: s.FarmID, Amount: amount * s.Fraction}
	}
	return out
}

// MarshalJSON encodes the shares as a list.
func (o Ownership) MarshalJSON() ([]byte, error) {
	if o.shares == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o.shares)
}

// Allocation is an amount attributed to a farm.
type Allocation struct {
	FarmID string  `json:"farm_id"`
	Amount float64 `json:"amount"`
}

// Batch is one processing run's output for one product.
type Batch struct {
	ID          uint64             `json:"id"`
	Product     economy.ProductKey `json:"product"`
	MassKg      float64            `json:"mass_kg"`
	HarvestDate time.Time          `json:"harvest_date"`
	ExpiryDate  time.Time          `json:"expiry_date"`
	Owners      Ownership          `json:"owners"`
}

// Expired reports whether the batch must be force-sold on date.
func (b *Batch) Expired(date time.Time) bool {
	return !date.Before(b.ExpiryDate)
}

// take removes up to kg from the batch and returns the amount removed.
func (b *Batch) take(kg float64) float64 {
	if kg > b.MassKg {
		kg = b.MassKg
	}
	b.MassKg -= kg
	if b.MassKg < 1e-9 {
		b.MassKg = 0
	}
	mustValidMass(b)
	return kg
}

// mustValidMass panics on negative or non-numeric batch mass. Either means
// a modeling defect upstream.
func mustValidMass(b *Batch) {
	if b.MassKg < 0 || math.IsNaN(b.MassKg) || math.IsInf(b.MassKg, 0) {
		panic(fmt.Sprintf("storage: batch %d (%s) has invalid mass %v", b.ID, b.Product, b.MassKg))
	}
}
