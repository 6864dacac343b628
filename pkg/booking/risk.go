package booking

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/soa"
)

// PV01 is the dollar value of a basis point move for a product or a
// bucket of products.
type PV01[T any] struct {
	Product  T       `json:"product"`
	PV01     float64 `json:"pv01"`
	Quantity int64   `json:"quantity"`
}

// BucketedSector groups products whose risk is reported together.
type BucketedSector struct {
	Name     string             `json:"name"`
	Products []products.Product `json:"products"`
}

// RiskService converts positions into PV01 using per-unit reference values.
type RiskService struct {
	*soa.Store[string, PV01[products.Product]]

	unitPV01 map[string]decimal.Decimal
}

// NewRiskService takes the per-unit PV01 of each product by id.
func NewRiskService(unitPV01 map[string]float64) *RiskService {
	units := make(map[string]decimal.Decimal, len(unitPV01))
	for id, v := range unitPV01 {
		units[id] = decimal.NewFromFloat(v)
	}
	return &RiskService{
		Store:    soa.NewStore(func(r PV01[products.Product]) string { return r.Product.ID() }),
		unitPV01: units,
	}
}

// UnitPV01 returns the per-unit PV01 for productID.
func (s *RiskService) UnitPV01(productID string) (float64, error) {
	u, ok := s.unitPV01[productID]
	if !ok {
		return 0, fmt.Errorf("pv01 for %s: %w", productID, soa.ErrNotFound)
	}
	return u.InexactFloat64(), nil
}

// AddPosition recomputes the risk of pos and notifies listeners.
func (s *RiskService) AddPosition(pos Position) error {
	u, ok := s.unitPV01[pos.ProductID()]
	if !ok {
		return fmt.Errorf("pv01 for %s: %w", pos.ProductID(), soa.ErrNotFound)
	}

	qty := pos.Aggregate()
	risk := PV01[products.Product]{
		Product:  pos.Product,
		PV01:     u.Mul(decimal.NewFromInt(qty)).InexactFloat64(),
		Quantity: qty,
	}
	s.Put(risk)
	return s.Notify(risk)
}

// GetBucketedRisk sums the stored risk of every product in sector.
// Products without a position yet contribute nothing.
func (s *RiskService) GetBucketedRisk(sector BucketedSector) PV01[BucketedSector] {
	total := decimal.Zero
	var qty int64
	for _, p := range sector.Products {
		r, err := s.GetData(p.ID())
		if err != nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(r.PV01))
		qty += r.Quantity
	}
	return PV01[BucketedSector]{Product: sector, PV01: total.InexactFloat64(), Quantity: qty}
}

// Risks returns all stored product risks sorted by product id.
func (s *RiskService) Risks() []PV01[products.Product] {
	out := s.Values()
	sort.Slice(out, func(i, j int) bool { return out[i].Product.ID() < out[j].Product.ID() })
	return out
}

// PositionListener feeds position changes into svc.
func PositionListener(svc *RiskService) soa.Listener[Position] {
	return soa.ListenerFunc[Position](svc.AddPosition)
}

var _ soa.Service[string, PV01[products.Product]] = (*RiskService)(nil)
