package api

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// PriceLevel is one aggregated depth level. Fractional is the price in
// treasury 32nds notation.
type PriceLevel struct {
	Price      float64 `json:"price"`
	Fractional string  `json:"fractional"`
	Size       int64   `json:"size"`
}

// OrderbookSnapshot is the aggregated depth of one product.
type OrderbookSnapshot struct {
	ProductID string       `json:"productId"`
	Bids      []PriceLevel `json:"bids"`      // Sorted high to low
	Asks      []PriceLevel `json:"asks"`      // Sorted low to high
	Timestamp int64        `json:"timestamp"` // Unix milliseconds
}

// BidOfferInfo is the top of book of one product.
type BidOfferInfo struct {
	ProductID string     `json:"productId"`
	Bid       PriceLevel `json:"bid"`
	Offer     PriceLevel `json:"offer"`
	Spread    float64    `json:"spread"`
}

// PositionInfo is the holding of one product per book.
type PositionInfo struct {
	ProductID string           `json:"productId"`
	Books     map[string]int64 `json:"books"`
	Aggregate int64            `json:"aggregate"`
}

// RiskInfo is the PV01 of a product or a sector.
type RiskInfo struct {
	Name     string   `json:"name"`
	PV01     float64  `json:"pv01"`
	Quantity int64    `json:"quantity"`
	Products []string `json:"products,omitempty"`
}

// QuoteRequest sets the price of an inquiry.
type QuoteRequest struct {
	Price float64 `json:"price"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSMessage is the envelope of every pushed message
type WSMessage struct {
	Type    string `json:"type"`    // "stream", "execution", "inquiry", "gui"
	Channel string `json:"channel"` // channel the client subscribed to
	Data    any    `json:"data"`    // Type-specific payload
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["streams:9128283H1", "executions", "inquiries", "gui"]
}
