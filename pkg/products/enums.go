package products

import (
	"fmt"
	"strings"
)

// Type is the discriminant of a Product.
type Type int8

const (
	Bond Type = iota
	InterestRateSwap
	Future
	EuroDollarFuture
	BondFuture
)

var typeNames = []string{"Bond", "InterestRateSwap", "Future", "EuroDollarFuture", "BondFuture"}

func (t Type) String() string { return enumName(typeNames, int(t)) }

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// IsFuture reports whether t is one of the future variants.
func (t Type) IsFuture() bool {
	return t == Future || t == EuroDollarFuture || t == BondFuture
}

// BondIDType identifies the numbering scheme of a bond identifier.
type BondIDType int8

const (
	CUSIP BondIDType = iota
	ISIN
)

var bondIDTypeNames = []string{"CUSIP", "ISIN"}

func (b BondIDType) String() string { return enumName(bondIDTypeNames, int(b)) }

type DayCountConvention int8

const (
	Thirty360 DayCountConvention = iota
	Act360
	Act365
)

var dayCountNames = []string{"30/360", "Act/360", "Act/365"}

func (d DayCountConvention) String() string { return enumName(dayCountNames, int(d)) }

type PaymentFrequency int8

const (
	Quarterly PaymentFrequency = iota
	SemiAnnual
	Annual
)

var paymentFrequencyNames = []string{"Quarterly", "Semi-Annual", "Annual"}

func (p PaymentFrequency) String() string { return enumName(paymentFrequencyNames, int(p)) }

// FloatingIndex is the reference rate of a floating leg.
type FloatingIndex int8

const (
	LIBOR FloatingIndex = iota
	EURIBOR
)

var floatingIndexNames = []string{"LIBOR", "EURIBOR"}

func (f FloatingIndex) String() string { return enumName(floatingIndexNames, int(f)) }

// Tenor is the reset period of a floating index.
type Tenor int8

const (
	Tenor1M Tenor = iota
	Tenor3M
	Tenor6M
	Tenor12M
)

var tenorNames = []string{"1m", "3m", "6m", "12m"}

func (t Tenor) String() string { return enumName(tenorNames, int(t)) }

type Currency int8

const (
	USD Currency = iota
	EUR
	GBP
)

var currencyNames = []string{"USD", "EUR", "GBP"}

func (c Currency) String() string { return enumName(currencyNames, int(c)) }

type SwapType int8

const (
	Spot SwapType = iota
	Forward
	IMM
	MAC
	Basis
)

var swapTypeNames = []string{"Standard", "Forward", "IMM", "MAC", "Basis"}

func (s SwapType) String() string { return enumName(swapTypeNames, int(s)) }

// SwapLegType: outright is one leg, curve two, fly three.
type SwapLegType int8

const (
	Outright SwapLegType = iota
	Curve
	Fly
)

var swapLegTypeNames = []string{"Outright", "Curve", "Fly"}

func (s SwapLegType) String() string { return enumName(swapLegTypeNames, int(s)) }

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "Unknown"
	}
	return names[i]
}

func parseEnum(kind string, names []string, s string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}

// ParseType accepts the String form or the short aliases used in
// reference data files (bond, swap, future, eurodollar, bondfuture).
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "swap", "irswap":
		return InterestRateSwap, nil
	case "eurodollar", "edfuture":
		return EuroDollarFuture, nil
	}
	i, err := parseEnum("product type", typeNames, s)
	return Type(i), err
}

func ParseBondIDType(s string) (BondIDType, error) {
	i, err := parseEnum("bond id type", bondIDTypeNames, s)
	return BondIDType(i), err
}

func ParseDayCountConvention(s string) (DayCountConvention, error) {
	i, err := parseEnum("day count convention", dayCountNames, s)
	return DayCountConvention(i), err
}

func ParsePaymentFrequency(s string) (PaymentFrequency, error) {
	i, err := parseEnum("payment frequency", paymentFrequencyNames, s)
	return PaymentFrequency(i), err
}

func ParseFloatingIndex(s string) (FloatingIndex, error) {
	i, err := parseEnum("floating index", floatingIndexNames, s)
	return FloatingIndex(i), err
}

func ParseTenor(s string) (Tenor, error) {
	i, err := parseEnum("tenor", tenorNames, s)
	return Tenor(i), err
}

func ParseCurrency(s string) (Currency, error) {
	i, err := parseEnum("currency", currencyNames, s)
	return Currency(i), err
}

func ParseSwapType(s string) (SwapType, error) {
	if strings.EqualFold(s, "spot") {
		return Spot, nil
	}
	i, err := parseEnum("swap type", swapTypeNames, s)
	return SwapType(i), err
}

func ParseSwapLegType(s string) (SwapLegType, error) {
	i, err := parseEnum("swap leg type", swapLegTypeNames, s)
	return SwapLegType(i), err
}
