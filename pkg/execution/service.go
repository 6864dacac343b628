package execution

import (
	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/util"
)

// Service sends orders to a venue and fans them out to booking and history.
type Service struct {
	*soa.Store[string, ExecutionOrder]

	logger *zap.SugaredLogger
}

func NewService(logger *zap.SugaredLogger) *Service {
	return &Service{
		Store:  soa.NewStore(ExecutionOrder.ID),
		logger: util.OrNop(logger),
	}
}

// OnMessage stores an order without executing it.
func (s *Service) OnMessage(o ExecutionOrder) error {
	s.Put(o)
	return nil
}

// ExecuteOrder stores o and notifies listeners.
func (s *Service) ExecuteOrder(o ExecutionOrder, market Market) error {
	s.Put(o)
	s.logger.Debugw("order_executed", "order_id", o.OrderID, "market", market)
	return s.Notify(o)
}

// AlgoListener routes every algo order to svc on market.
func AlgoListener(svc *Service, market Market) soa.Listener[ExecutionOrder] {
	return soa.ListenerFunc[ExecutionOrder](func(o ExecutionOrder) error {
		return svc.ExecuteOrder(o, market)
	})
}

var _ soa.Service[string, ExecutionOrder] = (*Service)(nil)
