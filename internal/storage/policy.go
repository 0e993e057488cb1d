package storage

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/talgya/agri-commons/internal/economy"
)

// ErrSplitNotNormalized is returned when pathway fractions do not sum to 1.
// It is a configuration error and stops the run.
var ErrSplitNotNormalized = errors.New("pathway fractions must sum to 1")

// Split holds the fraction of a pool sent down each pathway, indexed by
// economy.Pathway.
type Split [economy.NumPathways]float64

// Validate checks fractions are non-negative and sum to 1 within tolerance.
func (s Split) Validate() error {
	total := 0.0
	for i, f := range s {
		if f < 0 || math.IsNaN(f) {
			return fmt.Errorf("%w: %s fraction %v", ErrSplitNotNormalized, economy.Pathway(i), f)
		}
		total += f
	}
	if math.Abs(total-1) > ShareTolerance {
		return fmt.Errorf("%w: got %.6f", ErrSplitNotNormalized, total)
	}
	return nil
}

// ProcessingContext is what a food policy sees when splitting a pool.
type ProcessingContext struct {
	Date      time.Time
	Crop      string
	InputKg   float64
	Prices    economy.Prices
	Reference map[economy.ProductKey]float64
}

// ProcessingPolicy decides how a pooled harvest is split across pathways.
type ProcessingPolicy interface {
	Name() string
	Split(ctx ProcessingContext) Split
}

// AllFresh sells everything fresh.
type AllFresh struct{}

func (AllFresh) Name() string { return "all_fresh" }

func (AllFresh) Split(ProcessingContext) Split {
	return Split{economy.PathwayFresh: 1}
}

// FixedSplit applies the same fractions to every crop.
type FixedSplit struct {
	Fractions Split
}

func (FixedSplit) Name() string { return "fixed_split" }

func (p FixedSplit) Split(ProcessingContext) Split { return p.Fractions }

func (p FixedSplit) Validate() error { return p.Fractions.Validate() }

// MaxShelfLife favors canning and drying to spread sales over the year.
type MaxShelfLife struct{}

func (MaxShelfLife) Name() string { return "max_shelf_life" }

func (MaxShelfLife) Split(ProcessingContext) Split {
	return Split{
		economy.PathwayFresh:    0.2,
		economy.PathwayPackaged: 0.1,
		economy.PathwayCanned:   0.35,
		economy.PathwayDried:    0.35,
	}
}

// MarketResponsive starts from Base and, when the fresh price is below
// Trigger times its reference, moves Shift of the fresh fraction into
// canned and dried equally.
type MarketResponsive struct {
	Base    Split
	Trigger float64
	Shift   float64
}

func (MarketResponsive) Name() string { return "market_responsive" }

// Validate checks the base split and that the shift only moves mass out of
// fresh.
func (p MarketResponsive) Validate() error {
	if err := p.Base.Validate(); err != nil {
		return err
	}
	if p.Shift < 0 || math.IsNaN(p.Shift) {
		return fmt.Errorf("%w: negative shift %v", ErrSplitNotNormalized, p.Shift)
	}
	if p.Trigger < 0 || math.IsNaN(p.Trigger) {
		return fmt.Errorf("market responsive trigger %v must be non-negative", p.Trigger)
	}
	return nil
}

func (p MarketResponsive) Split(ctx ProcessingContext) Split {
	s := p.Base
	fresh := economy.ProductKey{Crop: ctx.Crop, Pathway: economy.PathwayFresh}
	ref := ctx.Reference[fresh]
	if ref <= 0 || ctx.Prices.Product(fresh) >= ref*p.Trigger {
		return s
	}
	moved := math.Min(p.Shift, s[economy.PathwayFresh])
	s[economy.PathwayFresh] -= moved
	s[economy.PathwayCanned] += moved / 2
	s[economy.PathwayDried] += moved / 2
	return s
}

// MarketContext is what a market policy sees for one product.
type MarketContext struct {
	Date           time.Time
	Product        economy.ProductKey
	PricePerKg     float64
	ReferencePrice float64
	AvailableKg    float64
	DaysToExpiry   int // of the oldest batch
}

// MarketPolicy decides what fraction of available stock to sell today.
type MarketPolicy interface {
	Name() string
	SellFraction(ctx MarketContext) float64
}

// SellAll sells everything as soon as it is stored.
type SellAll struct{}

func (SellAll) Name() string { return "sell_all" }

func (SellAll) SellFraction(MarketContext) float64 { return 1 }

// HoldForPeak holds stock until the price reaches Threshold times the
// reference, or the oldest batch is within UrgentDays of expiry.
type HoldForPeak struct {
	Threshold  float64
	UrgentDays int
}

func (HoldForPeak) Name() string { return "hold_for_peak" }

func (p HoldForPeak) SellFraction(ctx MarketContext) float64 {
	if ctx.ReferencePrice <= 0 || ctx.DaysToExpiry <= p.UrgentDays {
		return 1
	}
	if ctx.PricePerKg >= ctx.ReferencePrice*p.Threshold {
		return 1
	}
	return 0
}

// AdaptiveMarketing sells a logistic fraction of stock in the price ratio
// to reference: half at Midpoint, more as prices rise.
type AdaptiveMarketing struct {
	Midpoint  float64
	Steepness float64
}

func (AdaptiveMarketing) Name() string { return "adaptive_marketing" }

func (p AdaptiveMarketing) SellFraction(ctx MarketContext) float64 {
	if ctx.ReferencePrice <= 0 {
		return 1
	}
	ratio := ctx.PricePerKg / ctx.ReferencePrice
	return 1 / (1 + math.Exp(-p.Steepness*(ratio-p.Midpoint)))
}
