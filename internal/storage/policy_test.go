package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/agri-commons/internal/economy"
)

func TestProcessingPoliciesProduceValidSplits(t *testing.T) {
	ctx := ProcessingContext{
		Crop:      "tomato",
		Prices:    prices(map[economy.ProductKey]float64{freshTomato: 0.5}),
		Reference: map[economy.ProductKey]float64{freshTomato: 1},
	}
	policies := []ProcessingPolicy{
		AllFresh{},
		FixedSplit{Fractions: Split{0.25, 0.25, 0.25, 0.25}},
		MaxShelfLife{},
		MarketResponsive{Base: Split{0.7, 0.1, 0.1, 0.1}, Trigger: 0.8, Shift: 0.3},
	}
	for _, p := range policies {
		t.Run(p.Name(), func(t *testing.T) {
			assert.NoError(t, p.Split(ctx).Validate())
		})
	}
}

func TestMarketResponsiveShiftsOnLowFreshPrice(t *testing.T) {
	p := MarketResponsive{Base: Split{0.7, 0.1, 0.1, 0.1}, Trigger: 0.8, Shift: 0.3}
	ctx := ProcessingContext{
		Crop:      "tomato",
		Prices:    prices(map[economy.ProductKey]float64{freshTomato: 0.5}),
		Reference: map[economy.ProductKey]float64{freshTomato: 1},
	}
	s := p.Split(ctx)
	assert.InDelta(t, 0.4, s[economy.PathwayFresh], 1e-12)
	assert.InDelta(t, 0.25, s[economy.PathwayCanned], 1e-12)
	assert.InDelta(t, 0.25, s[economy.PathwayDried], 1e-12)

	ctx.Prices = prices(map[economy.ProductKey]float64{freshTomato: 0.9})
	assert.Equal(t, p.Base, p.Split(ctx))
}

func TestMarketResponsiveValidate(t *testing.T) {
	ok := MarketResponsive{Base: Split{0.7, 0.1, 0.1, 0.1}, Trigger: 0.8, Shift: 0.3}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Base = Split{0.5, 0.2, 0.2, 0}
	assert.ErrorIs(t, bad.Validate(), ErrSplitNotNormalized)

	bad = ok
	bad.Shift = -0.1
	assert.ErrorIs(t, bad.Validate(), ErrSplitNotNormalized)

	bad = ok
	bad.Trigger = -1
	assert.Error(t, bad.Validate())

	assert.ErrorIs(t, FixedSplit{Fractions: Split{0.5}}.Validate(), ErrSplitNotNormalized)
}

func TestSplitValidate(t *testing.T) {
	assert.NoError(t, Split{1, 0, 0, 0}.Validate())
	assert.NoError(t, Split{0.1, 0.2, 0.3, 0.4 + 1e-9}.Validate())
	assert.ErrorIs(t, Split{0.5, 0.5, 0.5, 0}.Validate(), ErrSplitNotNormalized)
	assert.ErrorIs(t, Split{1.5, -0.5, 0, 0}.Validate(), ErrSplitNotNormalized)
}

func TestMarketPolicies(t *testing.T) {
	ctx := MarketContext{PricePerKg: 1, ReferencePrice: 1, AvailableKg: 10, DaysToExpiry: 30}

	assert.Equal(t, 1.0, SellAll{}.SellFraction(ctx))

	hold := HoldForPeak{Threshold: 1.2, UrgentDays: 3}
	assert.Equal(t, 0.0, hold.SellFraction(ctx))
	ctx.PricePerKg = 1.25
	assert.Equal(t, 1.0, hold.SellFraction(ctx))
	ctx.PricePerKg = 1
	ctx.DaysToExpiry = 2
	assert.Equal(t, 1.0, hold.SellFraction(ctx))

	adaptive := AdaptiveMarketing{Midpoint: 1, Steepness: 5}
	ctx.PricePerKg = 1
	assert.InDelta(t, 0.5, adaptive.SellFraction(ctx), 1e-12)
	ctx.PricePerKg = 2
	assert.Greater(t, adaptive.SellFraction(ctx), 0.99)
	ctx.ReferencePrice = 0
	assert.Equal(t, 1.0, adaptive.SellFraction(ctx))
}
