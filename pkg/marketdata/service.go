package marketdata

import (
	"github.com/uhyunpark/bondmm/pkg/soa"
)

// Service distributes order book snapshots, keyed on product identifier.
// Each update replaces the stored book for its product.
type Service struct {
	*soa.Store[string, OrderBook]
}

func NewService() *Service {
	return &Service{Store: soa.NewStore(OrderBook.ProductID)}
}

// OnMessage stores a copy of the book and notifies listeners with it.
func (s *Service) OnMessage(book OrderBook) error {
	book = NewOrderBook(book.Product, book.BidStack, book.OfferStack)
	return s.Store.OnMessage(book)
}

// GetBestBidOffer recomputes the top of book for productID on every call.
func (s *Service) GetBestBidOffer(productID string) (BidOffer, error) {
	book, err := s.GetData(productID)
	if err != nil {
		return BidOffer{}, err
	}
	return book.BestBidOffer()
}

// AggregateDepth returns the stored book with quantities summed per price.
func (s *Service) AggregateDepth(productID string) (OrderBook, error) {
	book, err := s.GetData(productID)
	if err != nil {
		return OrderBook{}, err
	}
	if _, err := book.BestBidOffer(); err != nil {
		return OrderBook{}, err
	}
	return book.Aggregate(), nil
}

var _ soa.Service[string, OrderBook] = (*Service)(nil)
