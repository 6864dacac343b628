package marketdata

import (
	"fmt"
	"sort"

	"github.com/uhyunpark/bondmm/pkg/soa"
)

// BestBid scans stack for the highest price. The first order seeds the
// running best and only a strictly higher price replaces it, so ties keep
// the earliest order. ok is false for an empty stack.
func BestBid(stack []Order) (best Order, ok bool) {
	if len(stack) == 0 {
		return Order{}, false
	}
	best = stack[0]
	for _, o := range stack[1:] {
		if o.Price > best.Price {
			best = o
		}
	}
	return best, true
}

// BestOffer scans stack for the lowest price, ties keep the earliest order.
func BestOffer(stack []Order) (best Order, ok bool) {
	if len(stack) == 0 {
		return Order{}, false
	}
	best = stack[0]
	for _, o := range stack[1:] {
		if o.Price < best.Price {
			best = o
		}
	}
	return best, true
}

// BestBidOffer returns the top of book. Both stacks must be non-empty.
func (b OrderBook) BestBidOffer() (BidOffer, error) {
	bid, okBid := BestBid(b.BidStack)
	offer, okOffer := BestOffer(b.OfferStack)
	if !okBid || !okOffer {
		return BidOffer{}, fmt.Errorf("%s: bids=%d offers=%d: %w",
			b.ProductID(), len(b.BidStack), len(b.OfferStack), soa.ErrEmptyBook)
	}
	return BidOffer{Bid: bid, Offer: offer}, nil
}

// Aggregate collapses each stack to one order per distinct price, sized at
// the summed quantity. Level order in the result is unspecified.
func (b OrderBook) Aggregate() OrderBook {
	return OrderBook{
		Product:    b.Product,
		BidStack:   aggregate(b.BidStack, Bid),
		OfferStack: aggregate(b.OfferStack, Offer),
	}
}

func aggregate(stack []Order, side Side) []Order {
	depth := make(map[float64]int64, len(stack))
	for _, o := range stack {
		depth[o.Price] += o.Quantity
	}

	out := make([]Order, 0, len(depth))
	for price, qty := range depth {
		out = append(out, Order{Price: price, Quantity: qty, Side: side})
	}
	return out
}

// BidLevels returns aggregated bid levels sorted high to low (best bid first).
func (b OrderBook) BidLevels() []PriceLevel {
	levels := toLevels(aggregate(b.BidStack, Bid))
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Price > levels[j].Price
	})
	return levels
}

// OfferLevels returns aggregated offer levels sorted low to high (best offer first).
func (b OrderBook) OfferLevels() []PriceLevel {
	levels := toLevels(aggregate(b.OfferStack, Offer))
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Price < levels[j].Price
	})
	return levels
}

func toLevels(orders []Order) []PriceLevel {
	levels := make([]PriceLevel, len(orders))
	for i, o := range orders {
		levels[i] = PriceLevel{Price: o.Price, Quantity: o.Quantity}
	}
	return levels
}
