package products

import (
	"encoding/json"
	"fmt"
	"time"
)

// Attributes is the variant payload of a Product. The set of
// implementations is closed: BondAttrs, SwapAttrs, FutureAttrs,
// EuroDollarFutureAttrs and BondFutureAttrs.
type Attributes interface {
	productType() Type
}

// BondAttrs describes a cash treasury.
type BondAttrs struct {
	IDType   BondIDType `json:"idType"`
	Ticker   string     `json:"ticker"`
	Coupon   float64    `json:"coupon"`
	Maturity time.Time  `json:"maturity"`
}

// SwapAttrs describes a vanilla interest rate swap.
type SwapAttrs struct {
	FixedLegDayCount    DayCountConvention `json:"fixedLegDayCount"`
	FloatingLegDayCount DayCountConvention `json:"floatingLegDayCount"`
	FixedLegFrequency   PaymentFrequency   `json:"fixedLegFrequency"`
	FloatingIndex       FloatingIndex      `json:"floatingIndex"`
	FloatingTenor       Tenor              `json:"floatingTenor"`
	EffectiveDate       time.Time          `json:"effectiveDate"`
	TerminationDate     time.Time          `json:"terminationDate"`
	Currency            Currency           `json:"currency"`
	TermYears           int                `json:"termYears"`
	SwapType            SwapType           `json:"swapType"`
	LegType             SwapLegType        `json:"legType"`
}

// FutureAttrs is shared by every future variant.
type FutureAttrs struct {
	Underlying     string    `json:"underlying"`
	ContractSize   float64   `json:"contractSize"`
	Expiration     time.Time `json:"expiration"`
	DeliveryMethod string    `json:"deliveryMethod"`
	Price          float64   `json:"price"`
	Currency       Currency  `json:"currency"`
}

// EuroDollarFutureAttrs adds the floating reference of the contract.
type EuroDollarFutureAttrs struct {
	FutureAttrs
	FloatingTenor Tenor         `json:"floatingTenor"`
	FloatingIndex FloatingIndex `json:"floatingIndex"`
}

// BondFutureAttrs adds the cheapest-to-deliver bond reference.
type BondFutureAttrs struct {
	FutureAttrs
	BondTicker string     `json:"bondTicker"`
	BondIDType BondIDType `json:"bondIdType"`
	Coupon     float64    `json:"coupon"`
	Maturity   time.Time  `json:"maturity"`
}

func (BondAttrs) productType() Type             { return Bond }
func (SwapAttrs) productType() Type             { return InterestRateSwap }
func (FutureAttrs) productType() Type           { return Future }
func (EuroDollarFutureAttrs) productType() Type { return EuroDollarFuture }
func (BondFutureAttrs) productType() Type       { return BondFuture }

// Product is a tagged variant: a unique identifier, the type tag and the
// attributes of that type. Values are immutable after construction.
type Product struct {
	id    string
	typ   Type
	attrs Attributes
}

// New builds a product whose tag is derived from attrs.
func New(id string, attrs Attributes) Product {
	return Product{id: id, typ: attrs.productType(), attrs: attrs}
}

func NewBond(id string, a BondAttrs) Product                         { return New(id, a) }
func NewSwap(id string, a SwapAttrs) Product                         { return New(id, a) }
func NewFuture(id string, a FutureAttrs) Product                     { return New(id, a) }
func NewEuroDollarFuture(id string, a EuroDollarFutureAttrs) Product { return New(id, a) }
func NewBondFuture(id string, a BondFutureAttrs) Product             { return New(id, a) }

// ID returns the product identifier (CUSIP for treasuries).
func (p Product) ID() string { return p.id }

// Type returns the discriminant tag.
func (p Product) Type() Type { return p.typ }

// Attributes returns the variant payload; switch on its concrete type.
func (p Product) Attributes() Attributes { return p.attrs }

// Bond returns the bond payload when p is a Bond.
func (p Product) Bond() (BondAttrs, bool) {
	a, ok := p.attrs.(BondAttrs)
	return a, ok
}

// Swap returns the swap payload when p is an InterestRateSwap.
func (p Product) Swap() (SwapAttrs, bool) {
	a, ok := p.attrs.(SwapAttrs)
	return a, ok
}

// Future returns the common future payload for any future variant.
func (p Product) Future() (FutureAttrs, bool) {
	switch a := p.attrs.(type) {
	case FutureAttrs:
		return a, true
	case EuroDollarFutureAttrs:
		return a.FutureAttrs, true
	case BondFutureAttrs:
		return a.FutureAttrs, true
	}
	return FutureAttrs{}, false
}

func (p Product) EuroDollarFuture() (EuroDollarFutureAttrs, bool) {
	a, ok := p.attrs.(EuroDollarFutureAttrs)
	return a, ok
}

func (p Product) BondFuture() (BondFutureAttrs, bool) {
	a, ok := p.attrs.(BondFutureAttrs)
	return a, ok
}

// Ticker returns the trading ticker, falling back to the identifier for
// variants that have none.
func (p Product) Ticker() string {
	switch a := p.attrs.(type) {
	case BondAttrs:
		return a.Ticker
	case BondFutureAttrs:
		return a.BondTicker
	case EuroDollarFutureAttrs:
		return a.Underlying
	case FutureAttrs:
		return a.Underlying
	}
	return p.id
}

// IsZero reports whether p was never constructed.
func (p Product) IsZero() bool { return p.attrs == nil }

func (p Product) String() string {
	const day = "2006-01-02"
	switch a := p.attrs.(type) {
	case BondAttrs:
		return fmt.Sprintf("%s %s %g %s", p.id, a.Ticker, a.Coupon, a.Maturity.Format(day))
	case SwapAttrs:
		return fmt.Sprintf("%s fixedDayCount:%s floatingDayCount:%s paymentFreq:%s %s%s effective:%s termination:%s %s %dyrs %s %s",
			p.id, a.FixedLegDayCount, a.FloatingLegDayCount, a.FixedLegFrequency, a.FloatingTenor, a.FloatingIndex,
			a.EffectiveDate.Format(day), a.TerminationDate.Format(day), a.Currency, a.TermYears, a.SwapType, a.LegType)
	case FutureAttrs:
		return fmt.Sprintf("%s %s %g %s %s %g %s", p.id, a.Underlying, a.ContractSize, a.Expiration.Format(day),
			a.DeliveryMethod, a.Price, a.Currency)
	case EuroDollarFutureAttrs:
		return fmt.Sprintf("%s %s %g %s %s %s", p.id, a.Underlying, a.ContractSize, a.Expiration.Format(day),
			a.FloatingTenor, a.FloatingIndex)
	case BondFutureAttrs:
		return fmt.Sprintf("%s %s %g %s %s %s %g %s", p.id, a.Underlying, a.ContractSize, a.Expiration.Format(day),
			a.BondTicker, a.BondIDType, a.Coupon, a.Maturity.Format(day))
	}
	return p.id
}

type productJSON struct {
	ID         string     `json:"id"`
	Type       Type       `json:"type"`
	Attributes Attributes `json:"attributes,omitempty"`
}

func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(productJSON{ID: p.id, Type: p.typ, Attributes: p.attrs})
}
