package booking

import (
	"maps"
	"slices"
	"sync"

	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/soa"
)

// Position is the signed holding of one product per trading book.
type Position struct {
	Product products.Product `json:"product"`
	Books   map[string]int64 `json:"books"`
}

func (p Position) ProductID() string { return p.Product.ID() }

// Quantity returns the holding in book.
func (p Position) Quantity(book string) int64 { return p.Books[book] }

// Aggregate sums the holding across all books.
func (p Position) Aggregate() int64 {
	var total int64
	for _, q := range p.Books {
		total += q
	}
	return total
}

// BookNames returns the books in sorted order.
func (p Position) BookNames() []string {
	return slices.Sorted(maps.Keys(p.Books))
}

// PositionService accumulates trades into positions keyed by product.
type PositionService struct {
	*soa.Store[string, Position]

	mu sync.Mutex // serializes read-modify-write of a position
}

func NewPositionService() *PositionService {
	return &PositionService{Store: soa.NewStore(Position.ProductID)}
}

// AddTrade applies t to its product's position and notifies with a copy of
// the new position.
func (s *PositionService) AddTrade(t Trade) error {
	delta := t.Quantity
	if t.Side == Sell {
		delta = -delta
	}

	s.mu.Lock()
	pos, err := s.GetData(t.Product.ID())
	if err != nil {
		pos = Position{Product: t.Product}
	}
	books := maps.Clone(pos.Books)
	if books == nil {
		books = make(map[string]int64)
	}
	books[t.Book] += delta

	pos = Position{Product: t.Product, Books: books}
	s.Put(pos)
	s.mu.Unlock()

	return s.Notify(pos)
}

// TradeListener feeds booked trades into svc.
func TradeListener(svc *PositionService) soa.Listener[Trade] {
	return soa.ListenerFunc[Trade](svc.AddTrade)
}

var _ soa.Service[string, Position] = (*PositionService)(nil)
