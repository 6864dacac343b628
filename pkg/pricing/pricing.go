// Package pricing holds internal mid/spread prices per product.
package pricing

import (
	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/soa"
)

// Price is an internal mid price and the bid/offer width around it.
type Price struct {
	Product        products.Product `json:"product"`
	Mid            float64          `json:"mid"`
	BidOfferSpread float64          `json:"bidOfferSpread"`
}

func (p Price) ProductID() string { return p.Product.ID() }

// Bid returns mid minus half the spread.
func (p Price) Bid() float64 { return p.Mid - p.BidOfferSpread/2 }

// Offer returns mid plus half the spread.
func (p Price) Offer() float64 { return p.Mid + p.BidOfferSpread/2 }

// Service keeps the latest price per product and notifies listeners on each.
type Service struct {
	*soa.Store[string, Price]
}

func NewService() *Service {
	return &Service{Store: soa.NewStore(Price.ProductID)}
}

var _ soa.Service[string, Price] = (*Service)(nil)
