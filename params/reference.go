package params

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uhyunpark/bondmm/pkg/products"
)

//go:embed treasuries.yaml
var defaultReference []byte

// Sector names a bucket of products reported together.
type Sector struct {
	Name       string
	ProductIDs []string
}

// Reference is the static data the desk needs before any event arrives.
type Reference struct {
	Products []products.Product
	// PV01 holds the per-unit PV01 of each product by id.
	PV01    map[string]float64
	Sectors []Sector
}

type referenceFile struct {
	Products []productEntry `yaml:"products"`
	Sectors  []struct {
		Name     string   `yaml:"name"`
		Products []string `yaml:"products"`
	} `yaml:"sectors"`
}

type productEntry struct {
	ID   string  `yaml:"id"`
	Type string  `yaml:"type"`
	PV01 float64 `yaml:"pv01"`

	// bond and bond future
	IDType   string  `yaml:"idType"`
	Ticker   string  `yaml:"ticker"`
	Coupon   float64 `yaml:"coupon"`
	Maturity string  `yaml:"maturity"`

	// swap
	FixedLegDayCount    string `yaml:"fixedLegDayCount"`
	FloatingLegDayCount string `yaml:"floatingLegDayCount"`
	FixedLegFrequency   string `yaml:"fixedLegFrequency"`
	FloatingIndex       string `yaml:"floatingIndex"`
	FloatingTenor       string `yaml:"floatingTenor"`
	EffectiveDate       string `yaml:"effectiveDate"`
	TerminationDate     string `yaml:"terminationDate"`
	Currency            string `yaml:"currency"`
	TermYears           int    `yaml:"termYears"`
	SwapType            string `yaml:"swapType"`
	LegType             string `yaml:"legType"`

	// futures
	Underlying     string  `yaml:"underlying"`
	ContractSize   float64 `yaml:"contractSize"`
	Expiration     string  `yaml:"expiration"`
	DeliveryMethod string  `yaml:"deliveryMethod"`
	Price          float64 `yaml:"price"`
}

// DefaultReference returns the built-in US treasury on-the-run set.
func DefaultReference() Reference {
	ref, err := ParseReference(defaultReference)
	if err != nil {
		panic(fmt.Errorf("built-in reference data: %w", err))
	}
	return ref
}

// LoadReference reads a reference data file. A missing file is reported
// with an error wrapping os.ErrNotExist.
func LoadReference(path string) (Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Reference{}, fmt.Errorf("read reference data: %w", err)
	}
	ref, err := ParseReference(data)
	if err != nil {
		return Reference{}, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

// ParseReference decodes YAML reference data.
func ParseReference(data []byte) (Reference, error) {
	var f referenceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Reference{}, fmt.Errorf("decode reference data: %w", err)
	}

	ref := Reference{PV01: make(map[string]float64, len(f.Products))}
	known := make(map[string]bool, len(f.Products))
	for i, e := range f.Products {
		p, err := e.product()
		if err != nil {
			return Reference{}, fmt.Errorf("product %d (%s): %w", i, e.ID, err)
		}
		ref.Products = append(ref.Products, p)
		known[p.ID()] = true
		if e.PV01 != 0 {
			ref.PV01[p.ID()] = e.PV01
		}
	}
	for _, s := range f.Sectors {
		for _, id := range s.Products {
			if !known[id] {
				return Reference{}, fmt.Errorf("sector %s: unknown product %s", s.Name, id)
			}
		}
		ref.Sectors = append(ref.Sectors, Sector{Name: s.Name, ProductIDs: s.Products})
	}
	return ref, nil
}

func (e productEntry) product() (products.Product, error) {
	if e.ID == "" {
		return products.Product{}, fmt.Errorf("missing id")
	}
	typ, err := products.ParseType(e.Type)
	if err != nil {
		return products.Product{}, err
	}

	var p parser
	switch typ {
	case products.Bond:
		a := products.BondAttrs{
			IDType:   p.bondIDType(e.IDType),
			Ticker:   e.Ticker,
			Coupon:   e.Coupon,
			Maturity: p.date("maturity", e.Maturity),
		}
		return products.NewBond(e.ID, a), p.err
	case products.InterestRateSwap:
		a := products.SwapAttrs{
			FixedLegDayCount:    p.dayCount(e.FixedLegDayCount),
			FloatingLegDayCount: p.dayCount(e.FloatingLegDayCount),
			FixedLegFrequency:   p.frequency(e.FixedLegFrequency),
			FloatingIndex:       p.index(e.FloatingIndex),
			FloatingTenor:       p.tenor(e.FloatingTenor),
			EffectiveDate:       p.date("effectiveDate", e.EffectiveDate),
			TerminationDate:     p.date("terminationDate", e.TerminationDate),
			Currency:            p.currency(e.Currency),
			TermYears:           e.TermYears,
			SwapType:            p.swapType(e.SwapType),
			LegType:             p.legType(e.LegType),
		}
		return products.NewSwap(e.ID, a), p.err
	}

	fut := products.FutureAttrs{
		Underlying:     e.Underlying,
		ContractSize:   e.ContractSize,
		Expiration:     p.date("expiration", e.Expiration),
		DeliveryMethod: e.DeliveryMethod,
		Price:          e.Price,
		Currency:       p.currency(e.Currency),
	}
	switch typ {
	case products.EuroDollarFuture:
		a := products.EuroDollarFutureAttrs{
			FutureAttrs:   fut,
			FloatingTenor: p.tenor(e.FloatingTenor),
			FloatingIndex: p.index(e.FloatingIndex),
		}
		return products.NewEuroDollarFuture(e.ID, a), p.err
	case products.BondFuture:
		a := products.BondFutureAttrs{
			FutureAttrs: fut,
			BondTicker:  e.Ticker,
			BondIDType:  p.bondIDType(e.IDType),
			Coupon:      e.Coupon,
			Maturity:    p.date("maturity", e.Maturity),
		}
		return products.NewBondFuture(e.ID, a), p.err
	default:
		return products.NewFuture(e.ID, fut), p.err
	}
}

// parser keeps the first field error so a product can be decoded in one
// expression per field. Empty fields take the enum's zero value.
type parser struct{ err error }

func (p *parser) keep(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) date(field, s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		p.keep(fmt.Errorf("%s: %w", field, err))
	}
	return t
}

func parseOr[T any](p *parser, s string, parse func(string) (T, error)) T {
	var zero T
	if s == "" {
		return zero
	}
	v, err := parse(s)
	if err != nil {
		p.keep(err)
	}
	return v
}

func (p *parser) bondIDType(s string) products.BondIDType {
	return parseOr(p, s, products.ParseBondIDType)
}

func (p *parser) dayCount(s string) products.DayCountConvention {
	return parseOr(p, s, products.ParseDayCountConvention)
}

func (p *parser) frequency(s string) products.PaymentFrequency {
	return parseOr(p, s, products.ParsePaymentFrequency)
}

func (p *parser) index(s string) products.FloatingIndex {
	return parseOr(p, s, products.ParseFloatingIndex)
}

func (p *parser) tenor(s string) products.Tenor { return parseOr(p, s, products.ParseTenor) }

func (p *parser) currency(s string) products.Currency {
	return parseOr(p, s, products.ParseCurrency)
}

func (p *parser) swapType(s string) products.SwapType {
	return parseOr(p, s, products.ParseSwapType)
}

func (p *parser) legType(s string) products.SwapLegType {
	return parseOr(p, s, products.ParseSwapLegType)
}
