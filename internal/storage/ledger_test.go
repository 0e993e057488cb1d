package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/agri-commons/internal/economy"
	"github.com/talgya/agri-commons/internal/timeseries"
)

var (
	freshTomato  = economy.ProductKey{Crop: "tomato", Pathway: economy.PathwayFresh}
	driedTomato  = economy.ProductKey{Crop: "tomato", Pathway: economy.PathwayDried}
	cannedTomato = economy.ProductKey{Crop: "tomato", Pathway: economy.PathwayCanned}
)

func prices(vals map[economy.ProductKey]float64) economy.Prices {
	return economy.Prices{Products: vals}
}

func TestPoolOwnershipFixedBeforeWeightLoss(t *testing.T) {
	l := NewLedger()
	day := timeseries.Date(2024, 7, 1)
	split := Split{economy.PathwayFresh: 0.5, economy.PathwayDried: 0.5}

	p, err := l.Pool(day, "tomato", []Contribution{
		{FarmID: "farmA", MassKg: 60},
		{FarmID: "farmB", MassKg: 40},
	}, split, DefaultCatalog())
	require.NoError(t, err)

	assert.Equal(t, 100.0, p.InputKg)
	require.Len(t, p.BatchIDs, 2)
	batches := l.Batches()
	require.Len(t, batches, 2)

	fresh := batches[0]
	assert.Equal(t, freshTomato, fresh.Product)
	assert.InDelta(t, 50.0, fresh.MassKg, 1e-9)
	assert.Equal(t, day.AddDate(0, 0, 7), fresh.ExpiryDate)
	assert.InDelta(t, 0.6, fresh.Owners.Fraction("farmA"), 1e-12)
	assert.InDelta(t, 0.4, fresh.Owners.Fraction("farmB"), 1e-12)

	dried := batches[1]
	assert.InDelta(t, 50*0.12, dried.MassKg, 1e-9)
	assert.InDelta(t, 0.6, dried.Owners.Fraction("farmA"), 1e-12)
	assert.InDelta(t, 1.0, dried.Owners.Total(), ShareTolerance)

	assert.InDelta(t, 50*0.01+50*0.9, p.EnergyKWh, 1e-9)
	assert.InDelta(t, 50+6, p.OutputKg, 1e-9)
}

func TestPoolRejectsBadSplit(t *testing.T) {
	l := NewLedger()
	_, err := l.Pool(timeseries.Date(2024, 7, 1), "tomato",
		[]Contribution{{FarmID: "a", MassKg: 1}},
		Split{economy.PathwayFresh: 0.5, economy.PathwayCanned: 0.4}, DefaultCatalog())
	assert.ErrorIs(t, err, ErrSplitNotNormalized)

	_, err = l.Pool(timeseries.Date(2024, 7, 1), "tomato",
		[]Contribution{{FarmID: "a", MassKg: 0}}, AllFresh{}.Split(ProcessingContext{}), DefaultCatalog())
	assert.ErrorIs(t, err, ErrNoContribution)
	assert.Equal(t, 0, l.Len())
}

func TestOwnershipAlwaysSumsToOne(t *testing.T) {
	o, err := NewOwnership([]Contribution{
		{FarmID: "c", MassKg: 1.0 / 3},
		{FarmID: "a", MassKg: 7.77},
		{FarmID: "b", MassKg: 1e-6},
		{FarmID: "a", MassKg: 2},
		{FarmID: "d", MassKg: -4},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, o.Total(), ShareTolerance)
	assert.Equal(t, 0.0, o.Fraction("d"))
	shares := o.Shares()
	assert.Equal(t, "a", shares[0].FarmID)

	raw, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"farm_id":"a"`)
}

func TestExpiryClearedBeforePooling(t *testing.T) {
	l := NewLedger()
	harvest := timeseries.Date(2024, 7, 1)
	_, err := l.Pool(harvest, "tomato", []Contribution{{FarmID: "a", MassKg: 10}}, AllFresh{}.Split(ProcessingContext{}), DefaultCatalog())
	require.NoError(t, err)

	expiry := harvest.AddDate(0, 0, 7)
	assert.Empty(t, l.ClearExpired(expiry.AddDate(0, 0, -1), prices(map[economy.ProductKey]float64{freshTomato: 2})))

	sales := l.ClearExpired(expiry, prices(map[economy.ProductKey]float64{freshTomato: 2}))
	require.Len(t, sales, 1)
	assert.Equal(t, SaleExpired, sales[0].Kind)
	assert.InDelta(t, 10.0, sales[0].MassKg, 1e-9)
	assert.InDelta(t, 20.0, sales[0].Revenue, 1e-9)
	assert.False(t, sales[0].Discarded)
	assert.Equal(t, 0, l.Len())

	// New harvest the same day is pooled into a fresh ledger position.
	_, err = l.Pool(expiry, "tomato", []Contribution{{FarmID: "b", MassKg: 5}}, AllFresh{}.Split(ProcessingContext{}), DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, uint64(2), l.Batches()[0].ID)
}

func TestExpiredWithoutPriceIsDiscarded(t *testing.T) {
	l := NewLedger()
	harvest := timeseries.Date(2024, 7, 1)
	_, err := l.Pool(harvest, "tomato", []Contribution{{FarmID: "a", MassKg: 10}}, AllFresh{}.Split(ProcessingContext{}), DefaultCatalog())
	require.NoError(t, err)

	sales := l.ClearExpired(harvest.AddDate(0, 0, 30), prices(nil))
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Discarded)
	assert.Equal(t, 0.0, sales[0].Revenue)
	assert.Equal(t, 0.0, l.MassKg())
}

func TestSellVoluntaryFIFOWithPartialBatch(t *testing.T) {
	l := NewLedger()
	cat := DefaultCatalog()
	d1 := timeseries.Date(2024, 7, 1)
	d2 := d1.AddDate(0, 0, 1)
	_, err := l.Pool(d1, "tomato", []Contribution{{FarmID: "a", MassKg: 30}}, AllFresh{}.Split(ProcessingContext{}), cat)
	require.NoError(t, err)
	_, err = l.Pool(d2, "tomato", []Contribution{{FarmID: "a", MassKg: 25}, {FarmID: "b", MassKg: 25}}, AllFresh{}.Split(ProcessingContext{}), cat)
	require.NoError(t, err)

	half := AdaptiveMarketing{Midpoint: 1, Steepness: 4}
	p := prices(map[economy.ProductKey]float64{freshTomato: 2})
	ref := map[economy.ProductKey]float64{freshTomato: 2}

	sales := l.SellVoluntary(d2, p, ref, half)
	// Half of 80 kg: all 30 from the oldest batch, then 10 of the second.
	require.Len(t, sales, 2)
	assert.Equal(t, uint64(1), sales[0].BatchID)
	assert.InDelta(t, 30.0, sales[0].MassKg, 1e-9)
	assert.Equal(t, uint64(2), sales[1].BatchID)
	assert.InDelta(t, 10.0, sales[1].MassKg, 1e-9)

	batches := l.Batches()
	require.Len(t, batches, 1)
	assert.InDelta(t, 40.0, batches[0].MassKg, 1e-9)

	proceeds := Proceeds{}
	proceeds.Add(sales)
	assert.InDelta(t, 60+10, proceeds.FarmTotal("a"), 1e-9)
	assert.InDelta(t, 10.0, proceeds.FarmTotal("b"), 1e-9)
	assert.InDelta(t, 80.0, proceeds.Total(), 1e-9)
	assert.InDelta(t, 70.0, proceeds["a"]["tomato"], 1e-9)
}

func TestSellVoluntaryHoldsUnpricedAndPerProduct(t *testing.T) {
	l := NewLedger()
	day := timeseries.Date(2024, 7, 1)
	split := Split{economy.PathwayFresh: 0.5, economy.PathwayCanned: 0.5}
	_, err := l.Pool(day, "tomato", []Contribution{{FarmID: "a", MassKg: 100}}, split, DefaultCatalog())
	require.NoError(t, err)

	sales := l.SellVoluntary(day, prices(map[economy.ProductKey]float64{freshTomato: 1}), nil, SellAll{})
	require.Len(t, sales, 1)
	assert.Equal(t, freshTomato, sales[0].Product)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, cannedTomato, l.Batches()[0].Product)
}

func TestHoldingCostsAndValue(t *testing.T) {
	l := NewLedger()
	cat := DefaultCatalog()
	_, err := l.Pool(timeseries.Date(2024, 7, 1), "tomato",
		[]Contribution{{FarmID: "a", MassKg: 75}, {FarmID: "b", MassKg: 25}},
		Split{economy.PathwayDried: 1}, cat)
	require.NoError(t, err)

	costs := l.HoldingCosts(cat)
	perKg := cat.Lookup(driedTomato).HoldingCostPerKgDay
	assert.InDelta(t, 12*perKg*0.75, costs["a"], 1e-12)
	assert.InDelta(t, 12*perKg*0.25, costs["b"], 1e-12)
	assert.InDelta(t, 12*5.0, l.Value(prices(map[economy.ProductKey]float64{driedTomato: 5})), 1e-9)
}

func TestCloneIsIndependent(t *testing.T) {
	l := NewLedger()
	_, err := l.Pool(timeseries.Date(2024, 7, 1), "tomato", []Contribution{{FarmID: "a", MassKg: 10}}, AllFresh{}.Split(ProcessingContext{}), DefaultCatalog())
	require.NoError(t, err)

	cp := l.Clone()
	cp.SellVoluntary(timeseries.Date(2024, 7, 1), prices(map[economy.ProductKey]float64{freshTomato: 1}), nil, SellAll{})
	assert.Equal(t, 0, cp.Len())
	assert.Equal(t, 1, l.Len())
	assert.InDelta(t, 10.0, l.MassKg(), 1e-9)
}

func TestInvalidMassPanics(t *testing.T) {
	assert.Panics(t, func() {
		mustValidMass(&Batch{ID: 9, MassKg: -1})
	})
}
