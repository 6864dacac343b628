package products

import (
	"fmt"
	"sort"

	"github.com/uhyunpark/bondmm/pkg/soa"
)

// Service owns product reference data, keyed by product identifier.
// Reference data is loaded out-of-band before any market event refers to
// a product; nothing else in the desk validates against it.
type Service struct {
	*soa.Store[string, Product]
}

// NewService creates an empty product registry.
func NewService() *Service {
	return &Service{Store: soa.NewStore(Product.ID)}
}

// Register adds a product. It fails if the identifier is already taken.
func (s *Service) Register(p Product) error {
	if p.IsZero() {
		return fmt.Errorf("cannot register empty product")
	}
	if _, err := s.Insert(p); err != nil {
		return fmt.Errorf("register product: %w", err)
	}
	return s.Notify(p)
}

// List returns every product ordered by identifier.
func (s *Service) List() []Product {
	return s.filter(func(Product) bool { return true })
}

// BondsByTicker returns the bonds issued under ticker.
func (s *Service) BondsByTicker(ticker string) []Product {
	return s.filter(func(p Product) bool {
		b, ok := p.Bond()
		return ok && b.Ticker == ticker
	})
}

func (s *Service) SwapsByFixedLegDayCount(d DayCountConvention) []Product {
	return s.swaps(func(a SwapAttrs) bool { return a.FixedLegDayCount == d })
}

func (s *Service) SwapsByFixedLegPaymentFrequency(f PaymentFrequency) []Product {
	return s.swaps(func(a SwapAttrs) bool { return a.FixedLegFrequency == f })
}

func (s *Service) SwapsByFloatingIndex(i FloatingIndex) []Product {
	return s.swaps(func(a SwapAttrs) bool { return a.FloatingIndex == i })
}

// SwapsTermGreaterThan returns swaps with a term strictly above years.
func (s *Service) SwapsTermGreaterThan(years int) []Product {
	return s.swaps(func(a SwapAttrs) bool { return a.TermYears > years })
}

// SwapsTermLessThan returns swaps with a term strictly below years.
func (s *Service) SwapsTermLessThan(years int) []Product {
	return s.swaps(func(a SwapAttrs) bool { return a.TermYears < years })
}

func (s *Service) SwapsBySwapType(t SwapType) []Product {
	return s.swaps(func(a SwapAttrs) bool { return a.SwapType == t })
}

func (s *Service) SwapsBySwapLegType(t SwapLegType) []Product {
	return s.swaps(func(a SwapAttrs) bool { return a.LegType == t })
}

// FuturesByType returns futures of exactly the given variant.
func (s *Service) FuturesByType(t Type) []Product {
	if !t.IsFuture() {
		return nil
	}
	return s.filter(func(p Product) bool { return p.Type() == t })
}

func (s *Service) swaps(match func(SwapAttrs) bool) []Product {
	return s.filter(func(p Product) bool {
		a, ok := p.Swap()
		return ok && match(a)
	})
}

func (s *Service) filter(match func(Product) bool) []Product {
	var out []Product
	for _, p := range s.Values() {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

var _ soa.Service[string, Product] = (*Service)(nil)
