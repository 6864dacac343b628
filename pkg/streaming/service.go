package streaming

import (
	"github.com/uhyunpark/bondmm/pkg/soa"
)

// Service republishes algorithmic quotes to downstream consumers.
type Service struct {
	*soa.Store[string, PriceStream]
}

func NewService() *Service {
	return &Service{Store: soa.NewStore(PriceStream.ProductID)}
}

// OnMessage stores an inbound quote. Only PublishPrice fans out.
func (s *Service) OnMessage(ps PriceStream) error {
	s.Put(ps)
	return nil
}

// PublishPrice stores ps and notifies listeners.
func (s *Service) PublishPrice(ps PriceStream) error {
	s.Put(ps)
	return s.Notify(ps)
}

// AlgoListener forwards quotes from the algo service into svc.
func AlgoListener(svc *Service) soa.Listener[PriceStream] {
	return soa.ListenerFunc[PriceStream](svc.PublishPrice)
}

var _ soa.Service[string, PriceStream] = (*Service)(nil)
