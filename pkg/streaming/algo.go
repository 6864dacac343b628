package streaming

import (
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/pricing"
	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/util"
)

const (
	DefaultMinSize int64 = 1_000_000
	DefaultMaxSize int64 = 1_999_999
)

// AlgoConfig controls quote sizing. Rand may be nil, in which case a
// generator seeded from the wall clock is used.
type AlgoConfig struct {
	MinSize int64
	MaxSize int64
	Rand    *rand.Rand
	Logger  *zap.SugaredLogger
}

// NewRand returns a generator for seed, or a time-seeded one when seed is 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// AlgoService turns internal prices into two-way quotes.
type AlgoService struct {
	*soa.Store[string, PriceStream]

	minSize int64
	maxSize int64
	rng     *rand.Rand
	logger  *zap.SugaredLogger
}

func NewAlgoService(cfg AlgoConfig) (*AlgoService, error) {
	if cfg.MinSize == 0 && cfg.MaxSize == 0 {
		cfg.MinSize, cfg.MaxSize = DefaultMinSize, DefaultMaxSize
	}
	if cfg.MinSize <= 0 || cfg.MaxSize < cfg.MinSize {
		return nil, fmt.Errorf("invalid quote size range [%d, %d]", cfg.MinSize, cfg.MaxSize)
	}
	if cfg.Rand == nil {
		cfg.Rand = NewRand(0)
	}
	return &AlgoService{
		Store:   soa.NewStore(PriceStream.ProductID),
		minSize: cfg.MinSize,
		maxSize: cfg.MaxSize,
		rng:     cfg.Rand,
		logger:  util.OrNop(cfg.Logger),
	}, nil
}

// OnMessage stores a quote built elsewhere without notifying.
func (s *AlgoService) OnMessage(ps PriceStream) error {
	s.Put(ps)
	return nil
}

// PublishPrice quotes mid -/+ half the spread on both legs. One visible size
// is drawn for the pair and each leg hides twice that.
func (s *AlgoService) PublishPrice(p pricing.Price) error {
	visible := s.minSize + s.rng.Int64N(s.maxSize-s.minSize+1)
	hidden := 2 * visible

	ps := PriceStream{
		Product: p.Product,
		BidOrder: PriceStreamOrder{
			Price:           p.Bid(),
			VisibleQuantity: visible,
			HiddenQuantity:  hidden,
			Side:            marketdata.Bid,
		},
		OfferOrder: PriceStreamOrder{
			Price:           p.Offer(),
			VisibleQuantity: visible,
			HiddenQuantity:  hidden,
			Side:            marketdata.Offer,
		},
	}
	s.Put(ps)

	s.logger.Debugw("quote_published",
		"product", ps.ProductID(),
		"bid", ps.BidOrder.Price,
		"offer", ps.OfferOrder.Price,
		"visible", visible,
	)
	return s.Notify(ps)
}

// PriceListener feeds every internal price into algo.
func PriceListener(algo *AlgoService) soa.Listener[pricing.Price] {
	return soa.ListenerFunc[pricing.Price](algo.PublishPrice)
}

var _ soa.Service[string, PriceStream] = (*AlgoService)(nil)
