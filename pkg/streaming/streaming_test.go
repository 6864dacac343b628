package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/pricing"
	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/soa"
)

var bond = products.NewBond("9128283H1", products.BondAttrs{Ticker: "US2Y"})

func newAlgo(t *testing.T, seed uint64) *AlgoService {
	t.Helper()
	algo, err := NewAlgoService(AlgoConfig{Rand: NewRand(seed)})
	require.NoError(t, err)
	return algo
}

func TestPublishPrice_Quote(t *testing.T) {
	algo := newAlgo(t, 42)

	var notified []PriceStream
	algo.AddListener(soa.ListenerFunc[PriceStream](func(ps PriceStream) error {
		notified = append(notified, ps)
		return nil
	}))

	require.NoError(t, algo.PublishPrice(pricing.Price{Product: bond, Mid: 100, BidOfferSpread: 2}))
	require.Len(t, notified, 1)

	ps, err := algo.GetData(bond.ID())
	require.NoError(t, err)
	assert.Equal(t, notified[0], ps)

	assert.Equal(t, 99.0, ps.BidOrder.Price)
	assert.Equal(t, 101.0, ps.OfferOrder.Price)
	assert.Equal(t, marketdata.Bid, ps.BidOrder.Side)
	assert.Equal(t, marketdata.Offer, ps.OfferOrder.Side)

	for _, leg := range []PriceStreamOrder{ps.BidOrder, ps.OfferOrder} {
		assert.GreaterOrEqual(t, leg.VisibleQuantity, DefaultMinSize)
		assert.LessOrEqual(t, leg.VisibleQuantity, DefaultMaxSize)
		assert.Equal(t, 2*leg.VisibleQuantity, leg.HiddenQuantity)
	}
	assert.Equal(t, ps.BidOrder.VisibleQuantity, ps.OfferOrder.VisibleQuantity)
}

func TestPublishPrice_SeedIsReproducible(t *testing.T) {
	a, b := newAlgo(t, 7), newAlgo(t, 7)
	price := pricing.Price{Product: bond, Mid: 99.5, BidOfferSpread: 1.0 / 128}

	for range 20 {
		require.NoError(t, a.PublishPrice(price))
		require.NoError(t, b.PublishPrice(price))

		qa, _ := a.GetData(bond.ID())
		qb, _ := b.GetData(bond.ID())
		assert.Equal(t, qa.BidOrder.VisibleQuantity, qb.BidOrder.VisibleQuantity)
	}
}

func TestPublishPrice_SizeRange(t *testing.T) {
	algo, err := NewAlgoService(AlgoConfig{MinSize: 5, MaxSize: 6, Rand: NewRand(1)})
	require.NoError(t, err)

	seen := map[int64]bool{}
	for range 200 {
		require.NoError(t, algo.PublishPrice(pricing.Price{Product: bond, Mid: 100}))
		ps, _ := algo.GetData(bond.ID())
		seen[ps.BidOrder.VisibleQuantity] = true
	}
	assert.Equal(t, map[int64]bool{5: true, 6: true}, seen)
}

func TestNewAlgoService_InvalidRange(t *testing.T) {
	_, err := NewAlgoService(AlgoConfig{MinSize: 10, MaxSize: 5})
	assert.Error(t, err)
}

func TestPipeline_PricingToStreaming(t *testing.T) {
	prices := pricing.NewService()
	algo := newAlgo(t, 3)
	streams := NewService()

	prices.AddListener(PriceListener(algo))
	algo.AddListener(AlgoListener(streams))

	var out []PriceStream
	streams.AddListener(soa.ListenerFunc[PriceStream](func(ps PriceStream) error {
		out = append(out, ps)
		return nil
	}))

	require.NoError(t, prices.OnMessage(pricing.Price{Product: bond, Mid: 100, BidOfferSpread: 1.0 / 64}))
	require.Len(t, out, 1)
	assert.Equal(t, 100-1.0/128, out[0].BidOrder.Price)

	stored, err := streams.GetData(bond.ID())
	require.NoError(t, err)
	assert.Equal(t, out[0], stored)
}

func TestService_OnMessageDoesNotNotify(t *testing.T) {
	streams := NewService()
	calls := 0
	streams.AddListener(soa.ListenerFunc[PriceStream](func(PriceStream) error { calls++; return nil }))

	require.NoError(t, streams.OnMessage(PriceStream{Product: bond}))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, streams.Len())
}
