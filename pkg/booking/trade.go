// Package booking books trades into positions and derives PV01 risk.
package booking

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/execution"
	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/util"
)

// Side is the direction of a trade from the desk's point of view.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseSide accepts BUY or SELL in any case.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(s) {
	case "BUY":
		return Buy, true
	case "SELL":
		return Sell, true
	}
	return 0, false
}

// Trade is a booked fill against one trading book.
type Trade struct {
	Product  products.Product `json:"product"`
	TradeID  string           `json:"tradeId"`
	Price    float64          `json:"price"`
	Book     string           `json:"book"`
	Quantity int64            `json:"quantity"`
	Side     Side             `json:"side"`
}

func (t Trade) ID() string { return t.TradeID }

// TradeBookingService keeps trades by id and forwards each to positions.
type TradeBookingService struct {
	*soa.Store[string, Trade]

	logger *zap.SugaredLogger
}

func NewTradeBookingService(logger *zap.SugaredLogger) *TradeBookingService {
	return &TradeBookingService{
		Store:  soa.NewStore(Trade.ID),
		logger: util.OrNop(logger),
	}
}

// BookTrade stores t and notifies listeners.
func (s *TradeBookingService) BookTrade(t Trade) error {
	s.Put(t)
	s.logger.Debugw("trade_booked", "trade_id", t.TradeID, "book", t.Book, "side", t.Side, "qty", t.Quantity)
	return s.Notify(t)
}

// OnMessage books trades arriving from a feed.
func (s *TradeBookingService) OnMessage(t Trade) error { return s.BookTrade(t) }

// ExecutionListener books every execution against books in rotation.
// Hitting a bid sells to the market, lifting an offer buys from it.
type ExecutionListener struct {
	svc   *TradeBookingService
	books []string

	mu   sync.Mutex
	next int
}

func NewExecutionListener(svc *TradeBookingService, books []string) *ExecutionListener {
	if len(books) == 0 {
		books = []string{"TRSY1", "TRSY2", "TRSY3"}
	}
	return &ExecutionListener{svc: svc, books: books}
}

func (l *ExecutionListener) ProcessAdd(o execution.ExecutionOrder) error {
	l.mu.Lock()
	book := l.books[l.next%len(l.books)]
	l.next++
	l.mu.Unlock()

	side := Buy
	if o.Side == marketdata.Bid {
		side = Sell
	}
	return l.svc.BookTrade(Trade{
		Product:  o.Product,
		TradeID:  o.OrderID,
		Price:    o.Price,
		Book:     book,
		Quantity: o.VisibleQuantity,
		Side:     side,
	})
}

var _ soa.Service[string, Trade] = (*TradeBookingService)(nil)
