package execution

import (
	"strings"

	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/products"
)

// OrderType is the execution style of an order.
type OrderType int8

const (
	FOK OrderType = iota
	IOC
	MarketOrder
	Limit
	Stop
)

var orderTypeNames = [...]string{"FOK", "IOC", "MARKET", "LIMIT", "STOP"}

func (t OrderType) String() string {
	if int(t) < len(orderTypeNames) {
		return orderTypeNames[t]
	}
	return "UNKNOWN"
}

func (t OrderType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Market is a trading venue.
type Market int8

const (
	BrokerTec Market = iota
	ESpeed
	CME
)

var marketNames = [...]string{"BROKERTEC", "ESPEED", "CME"}

func (m Market) String() string {
	if int(m) < len(marketNames) {
		return marketNames[m]
	}
	return "UNKNOWN"
}

func (m Market) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMarket accepts a venue name in any case.
func ParseMarket(s string) (Market, bool) {
	for i, n := range marketNames {
		if strings.EqualFold(s, n) {
			return Market(i), true
		}
	}
	return 0, false
}

// ExecutionOrder is an order sent to a venue. Immutable once created.
type ExecutionOrder struct {
	Product         products.Product `json:"product"`
	Side            marketdata.Side  `json:"side"`
	OrderID         string           `json:"orderId"`
	OrderType       OrderType        `json:"orderType"`
	Price           float64          `json:"price"`
	VisibleQuantity int64            `json:"visibleQuantity"`
	HiddenQuantity  int64            `json:"hiddenQuantity"`
	ParentOrderID   string           `json:"parentOrderId"`
	IsChildOrder    bool             `json:"isChildOrder"`
}

func (o ExecutionOrder) ID() string { return o.OrderID }

func (o ExecutionOrder) ProductID() string { return o.Product.ID() }
