package marketdata

import (
	"fmt"
	"slices"

	"github.com/uhyunpark/bondmm/pkg/products"
)

// Side is the pricing side of a quote.
type Side int8

const (
	Bid Side = iota
	Offer
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Offer:
		return "OFFER"
	default:
		return "UNKNOWN"
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Order is one resting quote in a book. The zero value has price 0.
type Order struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Side     Side    `json:"side"`
}

// BidOffer pairs the best bid and best offer of a book.
type BidOffer struct {
	Bid   Order `json:"bid"`
	Offer Order `json:"offer"`
}

// Spread is offer price minus bid price.
func (b BidOffer) Spread() float64 { return b.Offer.Price - b.Bid.Price }

// OrderBook is a full snapshot of both stacks for one product.
type OrderBook struct {
	Product    products.Product `json:"product"`
	BidStack   []Order          `json:"bidStack"`
	OfferStack []Order          `json:"offerStack"`
}

// NewOrderBook copies the stacks so later changes by the caller do not leak
// into a stored snapshot.
func NewOrderBook(p products.Product, bids, offers []Order) OrderBook {
	return OrderBook{Product: p, BidStack: slices.Clone(bids), OfferStack: slices.Clone(offers)}
}

func (b OrderBook) ProductID() string { return b.Product.ID() }

// PriceLevel is the total quantity resting at one price.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

func (o Order) String() string {
	return fmt.Sprintf("%s %g x %d", o.Side, o.Price, o.Quantity)
}
