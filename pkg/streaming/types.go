package streaming

import (
	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/products"
)

// PriceStreamOrder is one leg of a two-way quote.
type PriceStreamOrder struct {
	Price           float64         `json:"price"`
	VisibleQuantity int64           `json:"visibleQuantity"`
	HiddenQuantity  int64           `json:"hiddenQuantity"`
	Side            marketdata.Side `json:"side"`
}

// PriceStream pairs a bid and an offer for one product.
type PriceStream struct {
	Product    products.Product `json:"product"`
	BidOrder   PriceStreamOrder `json:"bidOrder"`
	OfferOrder PriceStreamOrder `json:"offerOrder"`
}

func (s PriceStream) ProductID() string { return s.Product.ID() }
