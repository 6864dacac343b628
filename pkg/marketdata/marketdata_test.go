package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/soa"
)

func bid(px float64, qty int64) Order   { return Order{Price: px, Quantity: qty, Side: Bid} }
func offer(px float64, qty int64) Order { return Order{Price: px, Quantity: qty, Side: Offer} }

func product(id string) products.Product {
	return products.NewBond(id, products.BondAttrs{Ticker: "T"})
}

func TestGetBestBidOffer(t *testing.T) {
	svc := NewService()
	book := NewOrderBook(product("X"),
		[]Order{bid(99, 10), bid(99.5, 20), bid(98, 30)},
		[]Order{offer(101, 10), offer(100.5, 20), offer(102, 30)},
	)
	require.NoError(t, svc.OnMessage(book))

	bo, err := svc.GetBestBidOffer("X")
	require.NoError(t, err)
	assert.Equal(t, bid(99.5, 20), bo.Bid)
	assert.Equal(t, offer(100.5, 20), bo.Offer)
	assert.InDelta(t, 1.0, bo.Spread(), 1e-12)
}

func TestGetBestBidOffer_InputOrderIrrelevant(t *testing.T) {
	bids := []Order{bid(97, 1), bid(99, 2), bid(98, 3)}
	offers := []Order{offer(103, 1), offer(101, 2), offer(102, 3)}

	for i := range bids {
		rotated := append(append([]Order{}, bids[i:]...), bids[:i]...)
		rotatedOffers := append(append([]Order{}, offers[i:]...), offers[:i]...)

		bo, err := NewOrderBook(product("X"), rotated, rotatedOffers).BestBidOffer()
		require.NoError(t, err)
		assert.Equal(t, 99.0, bo.Bid.Price)
		assert.Equal(t, 101.0, bo.Offer.Price)
	}
}

func TestGetBestBidOffer_TiesKeepFirst(t *testing.T) {
	book := NewOrderBook(product("X"),
		[]Order{bid(99, 1), bid(99, 2)},
		[]Order{offer(101, 3), offer(101, 4)},
	)

	bo, err := book.BestBidOffer()
	require.NoError(t, err)
	assert.Equal(t, int64(1), bo.Bid.Quantity)
	assert.Equal(t, int64(3), bo.Offer.Quantity)
}

func TestQueries_NotFound(t *testing.T) {
	svc := NewService()

	_, err := svc.GetBestBidOffer("nope")
	assert.ErrorIs(t, err, soa.ErrNotFound)

	_, err = svc.AggregateDepth("nope")
	assert.ErrorIs(t, err, soa.ErrNotFound)
}

func TestQueries_EmptyBook(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.OnMessage(NewOrderBook(product("B"), []Order{bid(99, 1)}, nil)))
	require.NoError(t, svc.OnMessage(NewOrderBook(product("O"), nil, []Order{offer(101, 1)})))

	for _, id := range []string{"B", "O"} {
		_, err := svc.GetBestBidOffer(id)
		assert.ErrorIs(t, err, soa.ErrEmptyBook, id)

		_, err = svc.AggregateDepth(id)
		assert.ErrorIs(t, err, soa.ErrEmptyBook, id)
	}
}

func TestAggregateDepth_SumPreserving(t *testing.T) {
	svc := NewService()
	bids := []Order{bid(99, 10), bid(98, 5), bid(99, 15), bid(97, 1), bid(98, 5)}
	offers := []Order{offer(101, 7), offer(101, 3), offer(102, 9)}
	require.NoError(t, svc.OnMessage(NewOrderBook(product("X"), bids, offers)))

	agg, err := svc.AggregateDepth("X")
	require.NoError(t, err)
	assert.Equal(t, "X", agg.ProductID())

	assert.ElementsMatch(t, []Order{bid(99, 25), bid(98, 10), bid(97, 1)}, agg.BidStack)
	assert.ElementsMatch(t, []Order{offer(101, 10), offer(102, 9)}, agg.OfferStack)

	assert.Equal(t, total(bids), total(agg.BidStack))
	assert.Equal(t, total(offers), total(agg.OfferStack))
}

func TestLevelsSorted(t *testing.T) {
	book := NewOrderBook(product("X"),
		[]Order{bid(98, 1), bid(99, 2), bid(98, 3)},
		[]Order{offer(102, 1), offer(101, 2), offer(102, 3)},
	)

	assert.Equal(t, []PriceLevel{{99, 2}, {98, 4}}, book.BidLevels())
	assert.Equal(t, []PriceLevel{{101, 2}, {102, 4}}, book.OfferLevels())
}

func TestOnMessage_ReplacesAndCopies(t *testing.T) {
	svc := NewService()
	bids := []Order{bid(99, 1)}
	require.NoError(t, svc.OnMessage(OrderBook{Product: product("X"), BidStack: bids, OfferStack: []Order{offer(101, 1)}}))
	bids[0].Price = 50

	stored, err := svc.GetData("X")
	require.NoError(t, err)
	assert.Equal(t, 99.0, stored.BidStack[0].Price)

	require.NoError(t, svc.OnMessage(NewOrderBook(product("X"), []Order{bid(90, 1)}, []Order{offer(91, 1)})))
	bo, err := svc.GetBestBidOffer("X")
	require.NoError(t, err)
	assert.Equal(t, 90.0, bo.Bid.Price)
	assert.Equal(t, 1, svc.Len())
}

func TestOnMessage_NotifiesListeners(t *testing.T) {
	svc := NewService()
	var seen []string
	svc.AddListener(soa.ListenerFunc[OrderBook](func(b OrderBook) error {
		seen = append(seen, b.ProductID())
		return nil
	}))

	require.NoError(t, svc.OnMessage(NewOrderBook(product("A"), nil, nil)))
	require.NoError(t, svc.OnMessage(NewOrderBook(product("B"), nil, nil)))
	assert.Equal(t, []string{"A", "B"}, seen)
}

func total(orders []Order) int64 {
	var n int64
	for _, o := range orders {
		n += o.Quantity
	}
	return n
}
