// Package desk builds the full listener graph of the trading desk.
//
//	Prices:      pricing -> gui -> history(gui)
//	             pricing -> algo streaming -> streaming -> history(streaming)
//	Order books: market data -> algo execution -> execution -> trade booking
//	             execution -> history(executions)
//	Trades:      trade booking -> positions -> risk -> history(risk, sector_risk)
//	             positions -> history(positions)
//	Inquiries:   inquiry -> history(inquiries)
package desk

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/params"
	"github.com/uhyunpark/bondmm/pkg/booking"
	"github.com/uhyunpark/bondmm/pkg/execution"
	"github.com/uhyunpark/bondmm/pkg/gui"
	"github.com/uhyunpark/bondmm/pkg/history"
	"github.com/uhyunpark/bondmm/pkg/inquiry"
	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/pricing"
	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/storage"
	"github.com/uhyunpark/bondmm/pkg/streaming"
	"github.com/uhyunpark/bondmm/pkg/util"
)

const KindSectorRisk = "sector_risk"

// Options configures New. Store defaults to an in-memory record store and
// Appenders (typically a storage.FileLog) receive every history record.
type Options struct {
	Config    params.Desk
	Reference params.Reference
	Store     storage.RecordStore
	Appenders []storage.Appender
	Clock     util.Clock
	Logger    *zap.SugaredLogger
}

// Desk owns every service and the history they feed.
type Desk struct {
	Products      *products.Service
	MarketData    *marketdata.Service
	Pricing       *pricing.Service
	AlgoStreaming *streaming.AlgoService
	Streaming     *streaming.Service
	AlgoExecution *execution.AlgoService
	Execution     *execution.Service
	TradeBooking  *booking.TradeBookingService
	Positions     *booking.PositionService
	Risk          *booking.RiskService
	Inquiries     *inquiry.Service
	GUI           *gui.Service

	PositionHistory   *history.Service[booking.Position]
	RiskHistory       *history.Service[booking.PV01[products.Product]]
	SectorRiskHistory *history.Service[booking.PV01[booking.BucketedSector]]
	ExecutionHistory  *history.Service[execution.ExecutionOrder]
	StreamingHistory  *history.Service[streaming.PriceStream]
	InquiryHistory    *history.Service[inquiry.Inquiry]
	GUIHistory        *history.Service[gui.Update]

	Sectors []booking.BucketedSector

	store  storage.RecordStore
	logger *zap.SugaredLogger
}

func New(opts Options) (*Desk, error) {
	logger := util.OrNop(opts.Logger)
	cfg := opts.Config
	if opts.Store == nil {
		opts.Store = storage.NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = util.RealClock{}
	}

	market, ok := execution.ParseMarket(cfg.ExecutionMarket)
	if !ok && cfg.ExecutionMarket != "" {
		return nil, fmt.Errorf("unknown execution market %q", cfg.ExecutionMarket)
	}

	algoStreaming, err := streaming.NewAlgoService(streaming.AlgoConfig{
		MinSize: cfg.QuoteSizeMin,
		MaxSize: cfg.QuoteSizeMax,
		Rand:    streaming.NewRand(cfg.QuoteSeed),
		Logger:  logger.Named("algo_streaming"),
	})
	if err != nil {
		return nil, err
	}

	d := &Desk{
		Products:      products.NewService(),
		MarketData:    marketdata.NewService(),
		Pricing:       pricing.NewService(),
		AlgoStreaming: algoStreaming,
		Streaming:     streaming.NewService(),
		AlgoExecution: execution.NewAlgoService(cfg.SpreadTolerance, logger.Named("algo_execution")),
		Execution:     execution.NewService(logger.Named("execution")),
		TradeBooking:  booking.NewTradeBookingService(logger.Named("trade_booking")),
		Positions:     booking.NewPositionService(),
		Risk:          booking.NewRiskService(opts.Reference.PV01),
		Inquiries: inquiry.NewService(inquiry.Config{
			QuotePrice:   cfg.InquiryQuotePrice,
			LegacyNotify: cfg.InquiryLegacyNotify,
			Logger:       logger.Named("inquiry"),
		}),
		GUI: gui.NewService(gui.Config{
			Throttle:   cfg.GUIThrottle,
			MaxUpdates: cfg.GUIMaxUpdates,
			Clock:      opts.Clock,
			Logger:     logger.Named("gui"),
		}),
		store:  opts.Store,
		logger: logger,
	}

	for _, p := range opts.Reference.Products {
		if err := d.Products.Register(p); err != nil {
			return nil, fmt.Errorf("register %s: %w", p.ID(), err)
		}
	}
	for _, s := range opts.Reference.Sectors {
		sector := booking.BucketedSector{Name: s.Name}
		for _, id := range s.ProductIDs {
			p, err := d.Products.GetData(id)
			if err != nil {
				return nil, fmt.Errorf("sector %s: %w", s.Name, err)
			}
			sector.Products = append(sector.Products, p)
		}
		d.Sectors = append(d.Sectors, sector)
	}

	hist := histFactory{store: opts.Store, appenders: opts.Appenders, clock: opts.Clock, logger: logger.Named("history")}
	d.PositionHistory = newHistory(hist, history.KindPositions, booking.Position.ProductID, history.FormatPosition)
	d.RiskHistory = newHistory(hist, history.KindRisk,
		func(r booking.PV01[products.Product]) string { return r.Product.ID() }, history.FormatRisk)
	d.SectorRiskHistory = newHistory(hist, KindSectorRisk,
		func(r booking.PV01[booking.BucketedSector]) string { return r.Product.Name }, formatSectorRisk)
	d.ExecutionHistory = newHistory(hist, history.KindExecutions, execution.ExecutionOrder.ID, history.FormatExecution)
	d.StreamingHistory = newHistory(hist, history.KindStreaming, streaming.PriceStream.ProductID, history.FormatStream)
	d.InquiryHistory = newHistory(hist, history.KindInquiries, inquiry.Inquiry.ID, history.FormatInquiry)
	d.GUIHistory = newHistory(hist, history.KindGUI, gui.Update.ProductID, history.FormatGUI)

	// trades -> positions -> risk
	d.TradeBooking.AddListener(booking.TradeListener(d.Positions))
	d.Positions.AddListener(booking.PositionListener(d.Risk))
	d.Positions.AddListener(d.PositionHistory)
	d.Risk.AddListener(d.RiskHistory)
	d.Risk.AddListener(soa.ListenerFunc[booking.PV01[products.Product]](d.persistSectorRisk))

	// prices -> gui, prices -> quotes -> streams
	d.Pricing.AddListener(gui.PriceListener(d.GUI))
	d.GUI.AddListener(d.GUIHistory)
	d.Pricing.AddListener(streaming.PriceListener(d.AlgoStreaming))
	d.AlgoStreaming.AddListener(streaming.AlgoListener(d.Streaming))
	d.Streaming.AddListener(d.StreamingHistory)

	// order books -> executions -> trades
	d.MarketData.AddListener(execution.BookListener(d.AlgoExecution))
	d.AlgoExecution.AddListener(execution.AlgoListener(d.Execution, market))
	d.Execution.AddListener(booking.NewExecutionListener(d.TradeBooking, cfg.TradeBooks))
	d.Execution.AddListener(d.ExecutionHistory)

	d.Inquiries.AddListener(d.InquiryHistory)

	logger.Infow("desk_wired",
		"products", d.Products.Len(),
		"sectors", len(d.Sectors),
		"spread_tolerance", cfg.SpreadTolerance,
		"market", market,
		"books", cfg.TradeBooks,
	)
	return d, nil
}

// Store returns the queryable history store.
func (d *Desk) Store() storage.RecordStore { return d.store }

// Sector returns the bucketed sector called name.
func (d *Desk) Sector(name string) (booking.BucketedSector, error) {
	i := slices.IndexFunc(d.Sectors, func(s booking.BucketedSector) bool { return s.Name == name })
	if i < 0 {
		return booking.BucketedSector{}, fmt.Errorf("sector %s: %w", name, soa.ErrNotFound)
	}
	return d.Sectors[i], nil
}

// persistSectorRisk records the bucketed risk of every sector holding the
// product whose risk just changed.
func (d *Desk) persistSectorRisk(r booking.PV01[products.Product]) error {
	var errs []error
	for _, s := range d.Sectors {
		if !slices.ContainsFunc(s.Products, func(p products.Product) bool { return p.ID() == r.Product.ID() }) {
			continue
		}
		errs = append(errs, d.SectorRiskHistory.PersistData(s.Name, d.Risk.GetBucketedRisk(s)))
	}
	return errors.Join(errs...)
}

func (d *Desk) Close() error { return d.store.Close() }

type histFactory struct {
	store     storage.RecordStore
	appenders []storage.Appender
	clock     util.Clock
	logger    *zap.SugaredLogger
}

func newHistory[V any](f histFactory, kind string, keyOf func(V) string, format func(V) string) *history.Service[V] {
	return history.NewService(history.Config[V]{
		Kind:      kind,
		KeyOf:     keyOf,
		Format:    format,
		Store:     f.store,
		Appenders: f.appenders,
		Clock:     f.clock,
		Logger:    f.logger,
	})
}

func formatSectorRisk(r booking.PV01[booking.BucketedSector]) string {
	return fmt.Sprintf("%s,%.6f,%d", r.Product.Name, r.PV01, r.Quantity)
}
