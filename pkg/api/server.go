package api

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/bondmm/pkg/desk"
	"github.com/uhyunpark/bondmm/pkg/execution"
	"github.com/uhyunpark/bondmm/pkg/gui"
	"github.com/uhyunpark/bondmm/pkg/inquiry"
	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/quote"
	"github.com/uhyunpark/bondmm/pkg/soa"
	"github.com/uhyunpark/bondmm/pkg/storage"
	"github.com/uhyunpark/bondmm/pkg/streaming"
	"github.com/uhyunpark/bondmm/pkg/util"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Server provides the REST API and WebSocket feed over a desk.
type Server struct {
	desk   *desk.Desk
	router *mux.Router
	hub    *Hub
	clock  util.Clock
	logger *zap.SugaredLogger
	http   *http.Server
}

// NewServer creates a new API server and subscribes the WebSocket hub to
// the desk's streams, executions, inquiries and GUI updates.
func NewServer(d *desk.Desk, logger *zap.SugaredLogger) *Server {
	logger = util.OrNop(logger).Named("api")
	s := &Server{
		desk:   d,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		clock:  util.RealClock{},
		logger: logger,
	}

	s.setupRoutes()
	s.attach()
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Reference data
	api.HandleFunc("/products", s.handleGetProducts).Methods("GET")
	api.HandleFunc("/products/{id}", s.handleGetProduct).Methods("GET")

	// Market data
	api.HandleFunc("/marketdata/{id}/bbo", s.handleGetBBO).Methods("GET")
	api.HandleFunc("/marketdata/{id}/depth", s.handleGetDepth).Methods("GET")

	// Quotes and executions
	api.HandleFunc("/streams", s.handleGetStreams).Methods("GET")
	api.HandleFunc("/streams/{id}", s.handleGetStream).Methods("GET")
	api.HandleFunc("/executions", s.handleGetExecutions).Methods("GET")
	api.HandleFunc("/executions/{id}", s.handleGetExecution).Methods("GET")

	// Positions and risk
	api.HandleFunc("/positions", s.handleGetPositions).Methods("GET")
	api.HandleFunc("/positions/{id}", s.handleGetPosition).Methods("GET")
	api.HandleFunc("/risk", s.handleGetRisks).Methods("GET")
	api.HandleFunc("/risk/sectors/{name}", s.handleGetSectorRisk).Methods("GET")
	api.HandleFunc("/risk/{id}", s.handleGetRisk).Methods("GET")

	// Inquiries
	api.HandleFunc("/inquiries", s.handleGetInquiries).Methods("GET")
	api.HandleFunc("/inquiries/{id}", s.handleGetInquiry).Methods("GET")
	api.HandleFunc("/inquiries/{id}/quote", s.handleQuoteInquiry).Methods("POST")
	api.HandleFunc("/inquiries/{id}/reject", s.handleRejectInquiry).Methods("POST")

	// Persisted history
	api.HandleFunc("/history/{kind}", s.handleGetHistory).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]any{
			"status":  "ok",
			"clients": s.hub.Clients(),
		})
	}).Methods("GET")
}

// attach registers the hub as a listener on the services it pushes.
func (s *Server) attach() {
	s.desk.Streaming.AddListener(soa.ListenerFunc[streaming.PriceStream](func(ps streaming.PriceStream) error {
		s.hub.BroadcastToChannel("streams:"+ps.ProductID(), "stream", ps)
		return nil
	}))
	s.desk.Execution.AddListener(soa.ListenerFunc[execution.ExecutionOrder](func(o execution.ExecutionOrder) error {
		s.hub.BroadcastToChannel("executions", "execution", o)
		return nil
	}))
	s.desk.Inquiries.AddListener(soa.ListenerFunc[inquiry.Inquiry](func(in inquiry.Inquiry) error {
		s.hub.BroadcastToChannel("inquiries", "inquiry", in)
		return nil
	}))
	s.desk.GUI.AddListener(soa.ListenerFunc[gui.Update](func(u gui.Update) error {
		s.hub.BroadcastToChannel("gui", "gui", u)
		return nil
	}))
}

// Handler returns the router wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves on addr until Shutdown is called. The hub
// stops when ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	go s.hub.Run(ctx)

	s.logger.Infow("api_listening", "addr", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and then for
// the websocket pumps, which end once the hub's context is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}

	pumps := make(chan struct{})
	go func() {
		s.hub.Wait()
		close(pumps)
	}()
	select {
	case <-pumps:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("websocket clients still open: %w", ctx.Err())
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.desk.Products.List())
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.desk.Products.GetData(mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, p)
}

func (s *Server) handleGetBBO(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	bo, err := s.desk.MarketData.GetBestBidOffer(id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, BidOfferInfo{
		ProductID: id,
		Bid:       level(bo.Bid.Price, bo.Bid.Quantity),
		Offer:     level(bo.Offer.Price, bo.Offer.Quantity),
		Spread:    bo.Spread(),
	})
}

func (s *Server) handleGetDepth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	book, err := s.desk.MarketData.AggregateDepth(id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, OrderbookSnapshot{
		ProductID: id,
		Bids:      levels(book.BidLevels()),
		Asks:      levels(book.OfferLevels()),
		Timestamp: s.clock.Now().UnixMilli(),
	})
}

func (s *Server) handleGetStreams(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, sortedBy(s.desk.Streaming.Values(), streaming.PriceStream.ProductID))
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	respondLookup(w, s.desk.Streaming.GetData, mux.Vars(r)["id"])
}

func (s *Server) handleGetExecutions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, sortedBy(s.desk.Execution.Values(), execution.ExecutionOrder.ID))
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	respondLookup(w, s.desk.Execution.GetData, mux.Vars(r)["id"])
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions := s.desk.Positions.Values()
	out := make([]PositionInfo, 0, len(positions))
	for _, p := range positions {
		out = append(out, PositionInfo{ProductID: p.ProductID(), Books: p.Books, Aggregate: p.Aggregate()})
	}
	respondJSON(w, sortedBy(out, func(p PositionInfo) string { return p.ProductID }))
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	p, err := s.desk.Positions.GetData(mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, PositionInfo{ProductID: p.ProductID(), Books: p.Books, Aggregate: p.Aggregate()})
}

func (s *Server) handleGetRisks(w http.ResponseWriter, r *http.Request) {
	risks := s.desk.Risk.Risks()
	out := make([]RiskInfo, len(risks))
	for i, rk := range risks {
		out[i] = RiskInfo{Name: rk.Product.ID(), PV01: rk.PV01, Quantity: rk.Quantity}
	}
	respondJSON(w, out)
}

func (s *Server) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	rk, err := s.desk.Risk.GetData(mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, RiskInfo{Name: rk.Product.ID(), PV01: rk.PV01, Quantity: rk.Quantity})
}

func (s *Server) handleGetSectorRisk(w http.ResponseWriter, r *http.Request) {
	sector, err := s.desk.Sector(mux.Vars(r)["name"])
	if err != nil {
		respondErr(w, err)
		return
	}
	rk := s.desk.Risk.GetBucketedRisk(sector)
	ids := make([]string, len(sector.Products))
	for i, p := range sector.Products {
		ids[i] = p.ID()
	}
	respondJSON(w, RiskInfo{Name: sector.Name, PV01: rk.PV01, Quantity: rk.Quantity, Products: ids})
}

func (s *Server) handleGetInquiries(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.desk.Inquiries.List())
}

func (s *Server) handleGetInquiry(w http.ResponseWriter, r *http.Request) {
	respondLookup(w, s.desk.Inquiries.GetData, mux.Vars(r)["id"])
}

func (s *Server) handleQuoteInquiry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "invalid price", "price must be positive")
		return
	}
	if err := s.desk.Inquiries.SendQuote(id, req.Price); err != nil {
		respondErr(w, err)
		return
	}
	respondLookup(w, s.desk.Inquiries.GetData, id)
}

func (s *Server) handleRejectInquiry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.desk.Inquiries.RejectInquiry(id); err != nil {
		respondErr(w, err)
		return
	}
	respondLookup(w, s.desk.Inquiries.GetData, id)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.desk.Store().Recent(kind, limit)
	if err != nil {
		respondErr(w, err)
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	respondJSON(w, records)
}

// ==============================
// Helper Functions
// ==============================

func level(price float64, size int64) PriceLevel {
	return PriceLevel{Price: price, Fractional: quote.Format(price), Size: size}
}

func levels(in []marketdata.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, len(in))
	for i, l := range in {
		out[i] = level(l.Price, l.Quantity)
	}
	return out
}

func sortedBy[V any](vs []V, key func(V) string) []V {
	slices.SortFunc(vs, func(a, b V) int { return cmp.Compare(key(a), key(b)) })
	return vs
}

func respondLookup[V any](w http.ResponseWriter, get func(string) (V, error), id string) {
	v, err := get(id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, v)
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// respondErr maps service errors to HTTP status codes.
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, soa.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, soa.ErrEmptyBook), errors.Is(err, inquiry.ErrTerminal):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
