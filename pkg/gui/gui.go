// Package gui throttles internal prices down to a rate a screen can show.
package gui

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/pricing"
	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/util"
)

const (
	DefaultThrottle   = 300 * time.Millisecond
	DefaultMaxUpdates = 100
)

// Update is one price shown on the GUI.
type Update struct {
	Seq   int           `json:"seq"`
	Time  time.Time     `json:"time"`
	Price pricing.Price `json:"price"`
}

func (u Update) ProductID() string { return u.Price.ProductID() }

// Config for Service. A zero Throttle shows every price; MaxUpdates <= 0
// removes the cap.
type Config struct {
	Throttle   time.Duration
	MaxUpdates int
	Clock      util.Clock
	Logger     *zap.SugaredLogger
}

// Service forwards at most one price per throttle window, and stops after
// MaxUpdates, keeping the latest shown update per product.
type Service struct {
	*soa.Store[string, Update]

	mu       sync.Mutex
	throttle time.Duration
	max      int
	clock    util.Clock
	last     time.Time
	sent     int
	logger   *zap.SugaredLogger
}

func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	return &Service{
		Store:    soa.NewStore(Update.ProductID),
		throttle: cfg.Throttle,
		max:      cfg.MaxUpdates,
		clock:    cfg.Clock,
		logger:   util.OrNop(cfg.Logger),
	}
}

// OnMessage offers p to the screen. Prices inside the current window or past
// the cap are dropped silently.
func (s *Service) OnMessage(p pricing.Price) error {
	now := s.clock.Now()

	s.mu.Lock()
	if s.max > 0 && s.sent >= s.max {
		s.mu.Unlock()
		return nil
	}
	if s.sent > 0 && now.Sub(s.last) < s.throttle {
		s.mu.Unlock()
		return nil
	}
	s.last = now
	s.sent++
	u := Update{Seq: s.sent, Time: now, Price: p}
	s.mu.Unlock()

	s.Put(u)
	s.logger.Debugw("gui_update", "seq", u.Seq, "product", u.ProductID(), "mid", p.Mid)
	return s.Notify(u)
}

// Sent returns how many updates have been shown.
func (s *Service) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// PriceListener feeds internal prices into svc.
func PriceListener(svc *Service) soa.Listener[pricing.Price] {
	return soa.ListenerFunc[pricing.Price](svc.OnMessage)
}
