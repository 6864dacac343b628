package history

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/bondmm/pkg/booking"
	"github.com/uhyunpark/bondmm/pkg/execution"
	"github.com/uhyunpark/bondmm/pkg/inquiry"
	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/storage"
	"github.com/uhyunpark/bondmm/pkg/streaming"
	"github.com/uhyunpark/bondmm/pkg/util"
)

var bond = products.NewBond("9128283J7", products.BondAttrs{Ticker: "US7Y"})

func TestService_PersistsToStoreAndFile(t *testing.T) {
	dir := t.TempDir()
	files, err := storage.NewFileLog(dir, FileNames)
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	clock := util.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(Config[booking.Position]{
		Kind:      KindPositions,
		KeyOf:     booking.Position.ProductID,
		Format:    FormatPosition,
		Store:     store,
		Appenders: []storage.Appender{files},
		Clock:     clock,
	})

	positions := booking.NewPositionService()
	positions.AddListener(svc)
	require.NoError(t, positions.AddTrade(booking.Trade{Product: bond, TradeID: "1", Book: "TRSY2", Quantity: 5, Side: booking.Buy}))
	require.NoError(t, positions.AddTrade(booking.Trade{Product: bond, TradeID: "2", Book: "TRSY1", Quantity: 2, Side: booking.Sell}))

	latest, err := svc.Latest(bond.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.Aggregate())

	recent, err := svc.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "9128283J7,TRSY1,-2,TRSY2,5,AGGREGATE,3", recent[0].Line)
	assert.Equal(t, clock.Now(), recent[0].Time)

	require.NoError(t, files.Close())
	b, err := os.ReadFile(files.Path(KindPositions))
	require.NoError(t, err)
	assert.Equal(t, "9128283J7,TRSY2,5,AGGREGATE,5\n9128283J7,TRSY1,-2,TRSY2,5,AGGREGATE,3\n", string(b))
}

type failingAppender struct{}

func (failingAppender) Append(r storage.Record) (storage.Record, error) {
	return r, errors.New("disk full")
}

func TestService_AppendFailureSurfaces(t *testing.T) {
	svc := NewService(Config[execution.ExecutionOrder]{
		Kind:      KindExecutions,
		KeyOf:     execution.ExecutionOrder.ID,
		Format:    FormatExecution,
		Appenders: []storage.Appender{failingAppender{}},
	})
	algo := execution.NewAlgoService(execution.DefaultSpreadTolerance, nil)
	algo.AddListener(svc)

	err := algo.ExecuteOrder(marketdata.NewOrderBook(bond,
		[]marketdata.Order{{Price: 99, Quantity: 1, Side: marketdata.Bid}},
		[]marketdata.Order{{Price: 100, Quantity: 1, Side: marketdata.Offer}},
	))
	assert.ErrorIs(t, err, soa.ErrListenerFailure)
	assert.ErrorContains(t, err, "disk full")

	_, err = svc.Latest("TRADEID_0")
	assert.ErrorIs(t, err, soa.ErrNotFound)

	recent, err := svc.Recent(1)
	require.NoError(t, err)
	assert.Nil(t, recent)
}

func TestFormats(t *testing.T) {
	o := execution.ExecutionOrder{
		Product: bond, OrderID: "TRADEID_3", Side: marketdata.Offer, OrderType: execution.MarketOrder,
		Price: 99 + 16.5/32, VisibleQuantity: 10, HiddenQuantity: 20,
	}
	assert.Equal(t, "TRADEID_3,9128283J7,OFFER,MARKET,99-16+,10,20,,false", FormatExecution(o))

	ps := streaming.PriceStream{
		Product:    bond,
		BidOrder:   streaming.PriceStreamOrder{Price: 99, VisibleQuantity: 1, HiddenQuantity: 2, Side: marketdata.Bid},
		OfferOrder: streaming.PriceStreamOrder{Price: 101, VisibleQuantity: 1, HiddenQuantity: 2, Side: marketdata.Offer},
	}
	assert.Equal(t, "9128283J7,BID,99-000,1,2,OFFER,101-000,1,2", FormatStream(ps))

	in := inquiry.Inquiry{InquiryID: "I1", Product: bond, Side: booking.Sell, Quantity: 7, Price: 100, State: inquiry.Quoted}
	assert.Equal(t, "I1,9128283J7,SELL,7,100-000,QUOTED", FormatInquiry(in))

	r := booking.PV01[products.Product]{Product: bond, PV01: 12.5, Quantity: 100}
	assert.Equal(t, "9128283J7,12.500000,100", FormatRisk(r))
}
