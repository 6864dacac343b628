package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/bondmm/params"
	"github.com/uhyunpark/bondmm/pkg/booking"
	"github.com/uhyunpark/bondmm/pkg/desk"
	"github.com/uhyunpark/bondmm/pkg/inquiry"
	"github.com/uhyunpark/bondmm/pkg/marketdata"
	"github.com/uhyunpark/bondmm/pkg/products"
)

const twoYear = "9128283H1"

func newTestServer(t *testing.T) (*Server, *desk.Desk) {
	t.Helper()
	cfg := params.Default().Desk
	cfg.QuoteSeed = 5
	d, err := desk.New(desk.Options{Config: cfg, Reference: params.DefaultReference()})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewServer(d, nil), d
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[V any](t *testing.T, rec *httptest.ResponseRecorder) V {
	t.Helper()
	var v V
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func product(t *testing.T, d *desk.Desk, id string) products.Product {
	t.Helper()
	p, err := d.Products.GetData(id)
	require.NoError(t, err)
	return p
}

type inquiryView struct {
	InquiryID string  `json:"inquiryId"`
	Price     float64 `json:"price"`
	State     string  `json:"state"`
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestServer_Products(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 7)

	rec = do(t, s, http.MethodGet, "/api/v1/products/"+twoYear, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, twoYear, decode[map[string]any](t, rec)["id"])

	rec = do(t, s, http.MethodGet, "/api/v1/products/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MarketData(t *testing.T) {
	s, d := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/marketdata/"+twoYear+"/bbo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	book := marketdata.NewOrderBook(product(t, d, twoYear),
		[]marketdata.Order{
			{Price: 99.5, Quantity: 10, Side: marketdata.Bid},
			{Price: 99.5, Quantity: 5, Side: marketdata.Bid},
			{Price: 99, Quantity: 7, Side: marketdata.Bid},
		},
		[]marketdata.Order{{Price: 100.5, Quantity: 3, Side: marketdata.Offer}},
	)
	require.NoError(t, d.MarketData.OnMessage(book))

	rec = do(t, s, http.MethodGet, "/api/v1/marketdata/"+twoYear+"/bbo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	bbo := decode[BidOfferInfo](t, rec)
	assert.Equal(t, 99.5, bbo.Bid.Price)
	assert.Equal(t, "99-160", bbo.Bid.Fractional)
	assert.Equal(t, 100.5, bbo.Offer.Price)
	assert.InDelta(t, 1.0, bbo.Spread, 1e-12)

	rec = do(t, s, http.MethodGet, "/api/v1/marketdata/"+twoYear+"/depth", "")
	require.Equal(t, http.StatusOK, rec.Code)
	depth := decode[OrderbookSnapshot](t, rec)
	require.Len(t, depth.Bids, 2)
	assert.Equal(t, PriceLevel{Price: 99.5, Fractional: "99-160", Size: 15}, depth.Bids[0])
	assert.Equal(t, int64(7), depth.Bids[1].Size)
	require.Len(t, depth.Asks, 1)

	empty := marketdata.NewOrderBook(product(t, d, twoYear), nil, nil)
	require.NoError(t, d.MarketData.OnMessage(empty))
	rec = do(t, s, http.MethodGet, "/api/v1/marketdata/"+twoYear+"/depth", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_ExecutionsPositionsRisk(t *testing.T) {
	s, d := newTestServer(t)

	book := marketdata.NewOrderBook(product(t, d, twoYear),
		[]marketdata.Order{{Price: 99, Quantity: 1_000_000, Side: marketdata.Bid}},
		[]marketdata.Order{{Price: 101, Quantity: 1_000_000, Side: marketdata.Offer}},
	)
	require.NoError(t, d.MarketData.OnMessage(book))

	rec := do(t, s, http.MethodGet, "/api/v1/executions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	execs := decode[[]map[string]any](t, rec)
	require.Len(t, execs, 1)
	assert.Equal(t, "TRADEID_0", execs[0]["orderId"])

	rec = do(t, s, http.MethodGet, "/api/v1/executions/TRADEID_0", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/positions/"+twoYear, "")
	require.Equal(t, http.StatusOK, rec.Code)
	pos := decode[PositionInfo](t, rec)
	assert.Equal(t, int64(-1_000_000), pos.Aggregate)
	assert.Equal(t, int64(-1_000_000), pos.Books["TRSY1"])

	rec = do(t, s, http.MethodGet, "/api/v1/risk/"+twoYear, "")
	require.Equal(t, http.StatusOK, rec.Code)
	risk := decode[RiskInfo](t, rec)
	assert.InDelta(t, -185.0, risk.PV01, 1e-9)

	rec = do(t, s, http.MethodGet, "/api/v1/risk/sectors/FrontEnd", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sector := decode[RiskInfo](t, rec)
	assert.Equal(t, "FrontEnd", sector.Name)
	assert.InDelta(t, -185.0, sector.PV01, 1e-9)
	assert.Contains(t, sector.Products, twoYear)

	rec = do(t, s, http.MethodGet, "/api/v1/risk/sectors/Nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_InquiryWorkflow(t *testing.T) {
	s, d := newTestServer(t)

	require.NoError(t, d.Inquiries.OnMessage(inquiry.Inquiry{
		InquiryID: "I1",
		Product:   product(t, d, twoYear),
		Side:      booking.Buy,
		Quantity:  1_000_000,
		State:     inquiry.Received,
	}))

	rec := do(t, s, http.MethodGet, "/api/v1/inquiries/I1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QUOTED", decode[inquiryView](t, rec).State)

	rec = do(t, s, http.MethodPost, "/api/v1/inquiries/I1/quote", `{"price":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/inquiries/I1/quote", `{"price":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/inquiries/I1/quote", `{"price":100.25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[inquiryView](t, rec)
	assert.Equal(t, 100.25, got.Price)
	assert.Equal(t, "QUOTED", got.State)

	rec = do(t, s, http.MethodPost, "/api/v1/inquiries/I1/reject", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REJECTED", decode[inquiryView](t, rec).State)

	rec = do(t, s, http.MethodPost, "/api/v1/inquiries/I1/quote", `{"price":101}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/inquiries/NOPE/reject", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/inquiries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]inquiryView](t, rec), 1)
}

func TestServer_History(t *testing.T) {
	s, d := newTestServer(t)

	for _, id := range []string{"I1", "I2", "I3"} {
		require.NoError(t, d.Inquiries.OnMessage(inquiry.Inquiry{
			InquiryID: id,
			Product:   product(t, d, twoYear),
			Side:      booking.Sell,
			Quantity:  1,
			State:     inquiry.Received,
		}))
	}

	rec := do(t, s, http.MethodGet, "/api/v1/history/inquiries?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]map[string]any](t, rec)
	require.Len(t, records, 2)
	assert.Equal(t, "I3", records[0]["key"])

	rec = do(t, s, http.MethodGet, "/api/v1/history/inquiries?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/history/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

type wsEnvelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	var msg wsEnvelope
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitOrFail(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestServer_WebSocketExecutions(t *testing.T) {
	s, d := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{"executions", "bogus"}}))
	ack := readWS(t, conn)
	assert.Equal(t, "subscribed", ack.Type)
	assert.Equal(t, "executions", ack.Channel)
	bad := readWS(t, conn)
	assert.Equal(t, "error", bad.Type)
	assert.Equal(t, "bogus", bad.Channel)

	book := marketdata.NewOrderBook(product(t, d, twoYear),
		[]marketdata.Order{{Price: 99, Quantity: 100, Side: marketdata.Bid}},
		[]marketdata.Order{{Price: 101, Quantity: 100, Side: marketdata.Offer}},
	)
	require.NoError(t, d.MarketData.OnMessage(book))

	msg := readWS(t, conn)
	assert.Equal(t, "execution", msg.Type)
	assert.Equal(t, "executions", msg.Channel)
	var order map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &order))
	assert.Equal(t, "TRADEID_0", order["orderId"])
}

func TestServer_WebSocketAfterHubStops(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	first := dialWS(t, ts)
	defer first.Close()
	require.NoError(t, first.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{"gui"}}))
	assert.Equal(t, "subscribed", readWS(t, first).Type)
	require.Equal(t, 1, s.hub.Clients())

	cancel()
	_, _, err := first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	first.Close()
	waitOrFail(t, "client pumps", s.hub.Wait)
	assert.Zero(t, s.hub.Clients())

	// A client arriving after shutdown is turned away, not parked.
	second := dialWS(t, ts)
	defer second.Close()
	_, _, err = second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	var shutdownErr error
	waitOrFail(t, "server shutdown", func() { shutdownErr = s.Shutdown(context.Background()) })
	assert.NoError(t, shutdownErr)
}
