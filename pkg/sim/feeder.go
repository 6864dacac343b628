package sim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/desk"
	"github.com/uhyunpark/bondmm/pkg/inquiry"
	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/util"
)

// FeederConfig controls the event rate.
type FeederConfig struct {
	Interval time.Duration // one round per interval
	Seed     uint64
	// TradeEvery and InquiryEvery emit a trade / inquiry every N rounds.
	TradeEvery   int
	InquiryEvery int
	// Books receive simulated client trades.
	Books  []string
	Logger *zap.SugaredLogger
}

// DefaultFeederConfig returns a modest rate for a local run.
func DefaultFeederConfig() FeederConfig {
	return FeederConfig{
		Interval:     250 * time.Millisecond,
		Seed:         1,
		TradeEvery:   4,
		InquiryEvery: 6,
	}
}

// Feeder pushes generated events into a desk.
type Feeder struct {
	desk   *desk.Desk
	gen    *Generator
	cfg    FeederConfig
	logger *zap.SugaredLogger

	round   int
	pending []string // quoted inquiries awaiting the customer
	failed  int
}

// NewFeeder feeds every bond of d that has a PV01.
func NewFeeder(d *desk.Desk, cfg FeederConfig) *Feeder {
	var ps []products.Product
	for _, p := range d.Products.List() {
		if p.Type() != products.Bond {
			continue
		}
		if _, err := d.Risk.UnitPV01(p.ID()); err == nil {
			ps = append(ps, p)
		}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultFeederConfig().Interval
	}
	if cfg.TradeEvery <= 0 {
		cfg.TradeEvery = 1
	}
	if cfg.InquiryEvery <= 0 {
		cfg.InquiryEvery = 1
	}
	return &Feeder{
		desk:   d,
		gen:    NewGenerator(cfg.Seed, ps, cfg.Books),
		cfg:    cfg,
		logger: util.OrNop(cfg.Logger),
	}
}

// Step runs one round: a book and a price for one product in rotation, plus
// a trade and an inquiry on their schedules. Quoted inquiries from the
// previous round are confirmed first. A failed event is logged and skipped.
func (f *Feeder) Step() {
	ps := f.gen.Products()
	if len(ps) == 0 {
		return
	}
	p := ps[f.round%len(ps)]
	f.round++

	for _, id := range f.pending {
		in, err := f.desk.Inquiries.GetData(id)
		if err == nil && in.State == inquiry.Quoted {
			f.check("inquiry_done", f.desk.Inquiries.OnMessage(in))
		}
	}
	f.pending = f.pending[:0]

	f.check("order_book", f.desk.MarketData.OnMessage(f.gen.OrderBook(p)))
	f.check("price", f.desk.Pricing.OnMessage(f.gen.Price(p)))

	if f.round%f.cfg.TradeEvery == 0 {
		f.check("trade", f.desk.TradeBooking.OnMessage(f.gen.Trade(p)))
	}
	if f.round%f.cfg.InquiryEvery == 0 {
		in := f.gen.Inquiry(p)
		if f.check("inquiry", f.desk.Inquiries.OnMessage(in)) {
			f.pending = append(f.pending, in.InquiryID)
		}
	}
}

// Failed returns how many events were rejected by the desk.
func (f *Feeder) Failed() int { return f.failed }

func (f *Feeder) Stats() Stats { return f.gen.Stats() }

func (f *Feeder) check(event string, err error) bool {
	if err != nil {
		f.failed++
		f.logger.Warnw("sim_event_failed", "event", event, "round", f.round, "err", err)
		return false
	}
	return true
}

// StartFeeder starts a background goroutine that feeds the desk until ctx
// is done or the returned stop function is called. stop returns once the
// goroutine has exited, so the desk can be closed right after it.
func StartFeeder(ctx context.Context, d *desk.Desk, cfg FeederConfig) (stop func()) {
	f := NewFeeder(d, cfg)
	feedCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(f.cfg.Interval)
		defer ticker.Stop()

		start := time.Now()
		f.logger.Infow("sim_started", "interval", f.cfg.Interval, "products", len(f.gen.Products()))

		for {
			select {
			case <-feedCtx.Done():
				s := f.Stats()
				f.logger.Infow("sim_stopped",
					"elapsed", time.Since(start).Round(time.Second),
					"books", s.OrderBooks,
					"prices", s.Prices,
					"trades", s.Trades,
					"inquiries", s.Inquiries,
					"failed", f.failed,
				)
				return
			case <-ticker.C:
				f.Step()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
