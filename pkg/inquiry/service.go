package inquiry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/util"
)

// DefaultQuotePrice is the price sent back to every received inquiry.
const DefaultQuotePrice = 100.0

var ErrTerminal = errors.New("inquiry is in a terminal state")

// Config tunes the service. QuotePrice is used as given, zero included.
// With LegacyNotify set, listeners of a received inquiry see the inquiry as
// it arrived rather than the quoted one.
type Config struct {
	QuotePrice   float64
	LegacyNotify bool
	Logger       *zap.SugaredLogger
}

// Service keeps inquiries by id and advances them on each ingestion.
type Service struct {
	*soa.Store[string, Inquiry]

	mu           sync.Mutex // serializes transitions
	quotePrice   float64
	legacyNotify bool
	logger       *zap.SugaredLogger
}

func NewService(cfg Config) *Service {
	return &Service{
		Store:        soa.NewStore(Inquiry.ID),
		quotePrice:   cfg.QuotePrice,
		legacyNotify: cfg.LegacyNotify,
		logger:       util.OrNop(cfg.Logger),
	}
}

// OnMessage ingests one inquiry event.
//
// A RECEIVED inquiry is quoted at the configured price and stored as QUOTED.
// A QUOTED inquiry is stored as DONE. Both notify listeners. An inquiry
// already stored in a terminal state ignores further events. Any other state
// is stored as given without notification.
func (s *Service) OnMessage(in Inquiry) error {
	s.mu.Lock()
	if cur, err := s.GetData(in.InquiryID); err == nil && cur.State.Terminal() {
		s.mu.Unlock()
		s.logger.Debugw("inquiry_ignored", "inquiry_id", in.InquiryID, "state", cur.State)
		return nil
	}

	s.Put(in)

	var payload Inquiry
	switch in.State {
	case Received:
		stored, err := s.quote(in.InquiryID, s.quotePrice, true)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		payload = stored
		if s.legacyNotify {
			payload = in
		}
	case Quoted:
		stored, err := s.transition(in.InquiryID, Done)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		payload = stored
	default:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Debugw("inquiry_transition",
		"inquiry_id", in.InquiryID,
		"from", in.State,
		"to", payload.State,
		"price", payload.Price,
	)
	return s.Notify(payload)
}

// SendQuote sets the stored price of inquiry id.
func (s *Service) SendQuote(id string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.quote(id, price, false)
	return err
}

// RejectInquiry forces inquiry id to REJECTED whatever its state and
// notifies listeners.
func (s *Service) RejectInquiry(id string) error {
	s.mu.Lock()
	stored, err := s.transition(id, Rejected)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Infow("inquiry_rejected", "inquiry_id", id)
	return s.Notify(stored)
}

// List returns every inquiry sorted by id.
func (s *Service) List() []Inquiry {
	out := s.Values()
	sort.Slice(out, func(i, j int) bool { return out[i].InquiryID < out[j].InquiryID })
	return out
}

func (s *Service) quote(id string, price float64, advance bool) (Inquiry, error) {
	var closed bool
	v, err := s.Update(id, func(in *Inquiry) bool {
		if !advance && in.State.Terminal() {
			closed = true
			return false
		}
		in.Price = price
		if advance {
			in.State = Quoted
		}
		return true
	})
	if err != nil {
		return Inquiry{}, fmt.Errorf("quote inquiry: %w", err)
	}
	if closed {
		return Inquiry{}, fmt.Errorf("quote inquiry %s (%s): %w", id, v.State, ErrTerminal)
	}
	return v, nil
}

func (s *Service) transition(id string, to State) (Inquiry, error) {
	v, err := s.Update(id, func(in *Inquiry) bool {
		in.State = to
		return true
	})
	if err != nil {
		return Inquiry{}, fmt.Errorf("inquiry %s -> %s: %w", id, to, err)
	}
	return v, nil
}

var _ soa.Service[string, Inquiry] = (*Service)(nil)
