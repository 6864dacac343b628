package execution

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/util"
)

// DefaultSpreadTolerance is the tightest spread that still triggers an
// execution, exclusive.
const DefaultSpreadTolerance = 1.0 / 128

const tradeIDPrefix = "TRADEID_"

// AlgoService crosses the market whenever the top-of-book spread is wider
// than the tolerance, alternating sides on each execution.
type AlgoService struct {
	*soa.Store[string, ExecutionOrder]

	mu        sync.Mutex
	counter   int
	tolerance float64
	logger    *zap.SugaredLogger
}

func NewAlgoService(tolerance float64, logger *zap.SugaredLogger) *AlgoService {
	return &AlgoService{
		Store:     soa.NewStore(ExecutionOrder.ID),
		tolerance: tolerance,
		logger:    util.OrNop(logger),
	}
}

// Tolerance returns the configured spread tolerance.
func (s *AlgoService) Tolerance() float64 { return s.tolerance }

// Executions returns how many orders have been generated so far.
func (s *AlgoService) Executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// OnMessage stores an order without notifying.
func (s *AlgoService) OnMessage(o ExecutionOrder) error {
	s.Put(o)
	return nil
}

// ExecuteOrder decides on book. An even counter hits the best bid, an odd
// one lifts the best offer. Nothing happens when either side is empty or
// the spread is within tolerance.
func (s *AlgoService) ExecuteOrder(book marketdata.OrderBook) error {
	bestBid, okBid := marketdata.BestBid(book.BidStack)
	bestOffer, okOffer := marketdata.BestOffer(book.OfferStack)

	if !okBid || !okOffer || bestOffer.Price-bestBid.Price <= s.tolerance {
		return nil
	}

	s.mu.Lock()
	n := s.counter
	chosen, side := bestBid, marketdata.Bid
	if n%2 != 0 {
		chosen, side = bestOffer, marketdata.Offer
	}
	order := ExecutionOrder{
		Product:         book.Product,
		Side:            side,
		OrderID:         tradeIDPrefix + strconv.Itoa(n),
		OrderType:       MarketOrder,
		Price:           chosen.Price,
		VisibleQuantity: chosen.Quantity,
		HiddenQuantity:  2 * chosen.Quantity,
	}
	s.Put(order)
	s.counter++
	s.mu.Unlock()

	s.logger.Infow("algo_execution",
		"order_id", order.OrderID,
		"product", order.ProductID(),
		"side", order.Side,
		"price", order.Price,
		"visible", order.VisibleQuantity,
		"spread", bestOffer.Price-bestBid.Price,
	)
	return s.Notify(order)
}

// BookListener runs the decision on every order book update.
func BookListener(algo *AlgoService) soa.Listener[marketdata.OrderBook] {
	return soa.ListenerFunc[marketdata.OrderBook](algo.ExecuteOrder)
}

var _ soa.Service[string, ExecutionOrder] = (*AlgoService)(nil)
