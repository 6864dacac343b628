package sim

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/bondmm/params"
	"github.com/uhyunpark/bondmm/pkg/desk"
	"github.com/uhyunpark/bondmm/pkg/inquiry"
	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/storage"
)

func newDesk(t *testing.T) *desk.Desk {
	t.Helper()
	cfg := params.Default().Desk
	cfg.QuoteSeed = 5
	d, err := desk.New(desk.Options{Config: cfg, Reference: params.DefaultReference()})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMidOscillates(t *testing.T) {
	assert.Equal(t, 99.0, Mid(0))
	assert.Equal(t, 99+1.0/256, Mid(1))
	assert.Equal(t, 101.0, Mid(512))
	assert.Equal(t, 101-1.0/256, Mid(513))
	assert.Equal(t, 99.0, Mid(1024))
}

func TestSpreadCycles(t *testing.T) {
	want := []float64{1.0 / 128, 1.0 / 64, 3.0 / 128, 1.0 / 32, 1.0 / 128}
	for i, w := range want {
		assert.Equal(t, w, Spread(i))
	}
}

func TestGenerator_OrderBookShape(t *testing.T) {
	p := products.NewBond("9128283H1", products.BondAttrs{Ticker: "US2Y"})
	g := NewGenerator(1, []products.Product{p}, nil)

	_ = g.OrderBook(p)
	book := g.OrderBook(p) // step 1: mid 99+1/256, spread 1/64

	require.Len(t, book.BidStack, levels)
	require.Len(t, book.OfferStack, levels)
	bo, err := book.BestBidOffer()
	require.NoError(t, err)
	assert.Equal(t, 99+1.0/256-1.0/128, bo.Bid.Price)
	assert.Equal(t, 99+1.0/256+1.0/128, bo.Offer.Price)
	assert.Equal(t, int64(lotSize), bo.Bid.Quantity)
	assert.Equal(t, int64(5*lotSize), book.BidStack[4].Quantity)
	assert.Equal(t, marketdata.Offer, book.OfferStack[0].Side)
	assert.Equal(t, 2, g.Stats().OrderBooks)
}

func TestGenerator_SeedIsReproducible(t *testing.T) {
	p := products.NewBond("9128283H1", products.BondAttrs{})
	a := NewGenerator(9, []products.Product{p}, nil)
	b := NewGenerator(9, []products.Product{p}, nil)

	for range 10 {
		ta, tb := a.Trade(p), b.Trade(p)
		assert.Equal(t, ta.Quantity, tb.Quantity)
		assert.Equal(t, ta.Side, tb.Side)
		assert.Equal(t, ta.Book, tb.Book)
		assert.Equal(t, a.Price(p), b.Price(p))
	}
}

func TestFeeder_StepDrivesDesk(t *testing.T) {
	d := newDesk(t)
	f := NewFeeder(d, FeederConfig{Seed: 3, TradeEvery: 2, InquiryEvery: 3})

	for range 24 {
		f.Step()
	}

	assert.Zero(t, f.Failed())
	assert.Equal(t, 7, d.MarketData.Len())
	assert.Equal(t, 7, d.Pricing.Len())
	assert.Positive(t, d.AlgoExecution.Executions())
	assert.Positive(t, d.TradeBooking.Len())
	assert.Positive(t, d.Positions.Len())

	s := f.Stats()
	assert.Equal(t, 24, s.OrderBooks)
	assert.Equal(t, 12, s.Trades)
	assert.Equal(t, 8, s.Inquiries)

	var done int
	for _, in := range d.Inquiries.List() {
		if in.State == inquiry.Done {
			done++
		}
	}
	// the inquiry from the last round is still waiting on the customer
	assert.Equal(t, 7, done)
}

func TestStartFeeder_StopsOnCancel(t *testing.T) {
	d := newDesk(t)
	stop := StartFeeder(context.Background(), d, FeederConfig{Interval: 5 * time.Millisecond, Seed: 1, TradeEvery: 1, InquiryEvery: 1})

	assert.Eventually(t, func() bool { return d.MarketData.Len() >= 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	books := d.MarketData.Len()
	executions := d.AlgoExecution.Executions()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, books, d.MarketData.Len())
	assert.Equal(t, executions, d.AlgoExecution.Executions())
}

func TestStartFeeder_StopThenClosePebble(t *testing.T) {
	cfg := params.Default().Desk
	cfg.QuoteSeed = 5

	for i := range 20 {
		store, err := storage.NewPebbleStore(filepath.Join(t.TempDir(), "history"))
		require.NoError(t, err)
		d, err := desk.New(desk.Options{Config: cfg, Reference: params.DefaultReference(), Store: store})
		require.NoError(t, err)

		stop := StartFeeder(context.Background(), d, FeederConfig{Interval: time.Microsecond, Seed: uint64(i), TradeEvery: 1, InquiryEvery: 1})
		time.Sleep(2 * time.Millisecond)
		stop()

		require.NoError(t, d.Close(), "round %d", i)
	}
}

func TestStartFeeder_StopsWithParentContext(t *testing.T) {
	d := newDesk(t)
	ctx, cancel := context.WithCancel(context.Background())
	stop := StartFeeder(ctx, d, FeederConfig{Interval: time.Millisecond, Seed: 2})

	cancel()
	exited := make(chan struct{})
	go func() {
		stop()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("feeder did not exit after parent cancel")
	}
}
