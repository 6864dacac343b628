// Package sim generates synthetic desk traffic.
package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/uhyunpark/bondmm/pkg/booking"
	"github.com/uhyunpark/bondmm/pkg/inquiry"
	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/pricing"
	"github.com/uhyunpark/bondmm/pkg/products"
)

const (
	tick       = 1.0 / 256
	levels     = 5
	levelStep  = 1.0 / 128
	lotSize    = 10_000_000
	midLow     = 99.0
	midTicks   = 512 // 99 to 101 in 1/256 steps
	tradeLot   = 1_000_000
	maxLots    = 5
	inquiryLot = 1_000_000
)

// Generator creates order books, prices, trades and inquiries for a fixed set
// of products. Books and prices move deterministically per product; sides,
// sizes and trade prices come from the seeded generator.
type Generator struct {
	products []products.Product
	books    []string
	rng      *rand.Rand
	step     map[string]int
	stats    Stats
}

// Stats counts generated events.
type Stats struct {
	OrderBooks int
	Prices     int
	Trades     int
	Inquiries  int
}

func NewGenerator(seed uint64, ps []products.Product, books []string) *Generator {
	if len(books) == 0 {
		books = []string{"TRSY1", "TRSY2", "TRSY3"}
	}
	return &Generator{
		products: ps,
		books:    books,
		rng:      rand.New(rand.NewPCG(seed, seed+1)),
		step:     make(map[string]int),
	}
}

func (g *Generator) Products() []products.Product { return g.products }

func (g *Generator) Stats() Stats { return g.stats }

// Mid oscillates between 99 and 101 in 1/256 steps.
func Mid(step int) float64 {
	k := step % (2 * midTicks)
	if k > midTicks {
		k = 2*midTicks - k
	}
	return midLow + float64(k)*tick
}

// Spread cycles 1/128, 1/64, 3/128, 1/32.
func Spread(step int) float64 {
	return float64(step%4+1) / 128
}

// OrderBook returns the next book for p: five levels a side around the
// current mid, each level 1/128 further out and 10M larger.
func (g *Generator) OrderBook(p products.Product) marketdata.OrderBook {
	n := g.advance(p)
	mid, half := Mid(n), Spread(n)/2

	bids := make([]marketdata.Order, levels)
	offers := make([]marketdata.Order, levels)
	for l := range levels {
		size := int64(l+1) * lotSize
		bids[l] = marketdata.Order{Price: mid - half - float64(l)*levelStep, Quantity: size, Side: marketdata.Bid}
		offers[l] = marketdata.Order{Price: mid + half + float64(l)*levelStep, Quantity: size, Side: marketdata.Offer}
	}
	g.stats.OrderBooks++
	return marketdata.OrderBook{Product: p, BidStack: bids, OfferStack: offers}
}

// Price returns an internal price at the current mid with a spread of
// 1/128 or 1/64.
func (g *Generator) Price(p products.Product) pricing.Price {
	n := g.step[p.ID()]
	spread := 1.0 / 128
	if g.rng.IntN(2) == 1 {
		spread = 1.0 / 64
	}
	g.stats.Prices++
	return pricing.Price{Product: p, Mid: Mid(n), BidOfferSpread: spread}
}

// Trade returns a client trade at a random price between 99 and 101.
func (g *Generator) Trade(p products.Product) booking.Trade {
	side := booking.Buy
	if g.rng.IntN(2) == 1 {
		side = booking.Sell
	}
	g.stats.Trades++
	return booking.Trade{
		Product:  p,
		TradeID:  fmt.Sprintf("SIM-%s", uuid.NewString()),
		Price:    Mid(g.rng.IntN(midTicks + 1)),
		Book:     g.books[g.rng.IntN(len(g.books))],
		Quantity: int64(g.rng.IntN(maxLots)+1) * tradeLot,
		Side:     side,
	}
}

// Inquiry returns a fresh received inquiry.
func (g *Generator) Inquiry(p products.Product) inquiry.Inquiry {
	side := booking.Buy
	if g.rng.IntN(2) == 1 {
		side = booking.Sell
	}
	g.stats.Inquiries++
	return inquiry.Inquiry{
		InquiryID: uuid.NewString(),
		Product:   p,
		Side:      side,
		Quantity:  int64(g.rng.IntN(maxLots)+1) * inquiryLot,
		State:     inquiry.Received,
	}
}

func (g *Generator) advance(p products.Product) int {
	n := g.step[p.ID()]
	g.step[p.ID()] = n + 1
	return n
}
