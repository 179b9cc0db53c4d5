package api

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// ListingInfo represents an Offer or Order, open or historical
type ListingInfo struct {
	ID        uint64 `json:"id"`
	Kind      string `json:"kind"` // "offer" or "order"
	Owner     string `json:"owner"`
	Asset     string `json:"asset"`
	Original  uint64 `json:"original"`
	Remaining uint64 `json:"remaining"`
	UnitPrice uint64 `json:"unitPrice"`
	Available bool   `json:"available"`
	CreatedAt int64  `json:"createdAt"` // Unix milliseconds
	ClosedAt  int64  `json:"closedAt,omitempty"`
}

// Stats reports the registry totals
type Stats struct {
	Offers uint64 `json:"offers"` // Total offers ever created
	Orders uint64 `json:"orders"` // Total orders ever created
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// REST Request Types
// ==============================

// CreateOfferRequest is the payload for POST /api/v1/offers.
// Caller is the authenticated seller identity; host authentication is trusted,
// so the identity rides in the body.
type CreateOfferRequest struct {
	Caller    string `json:"caller"`
	Asset     string `json:"asset"`
	Quantity  uint64 `json:"quantity"`
	UnitPrice uint64 `json:"unitPrice"`
}

// CreateOrderRequest is the payload for POST /api/v1/orders.
// Payment must equal unitPrice × quantity exactly; it is escrowed up front.
type CreateOrderRequest struct {
	Caller    string `json:"caller"`
	Asset     string `json:"asset"`
	Quantity  uint64 `json:"quantity"`
	UnitPrice uint64 `json:"unitPrice"`
	Payment   uint64 `json:"payment"`
}

// FillOfferRequest is the payload for POST /api/v1/offers/{id}/fill
type FillOfferRequest struct {
	Caller  string `json:"caller"`
	Amount  uint64 `json:"amount"`
	Payment uint64 `json:"payment"`
}

// FillOrderRequest is the payload for POST /api/v1/orders/{id}/fill
type FillOrderRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

// CancelRequest is the payload for POST /api/v1/offers/{id}/cancel and
// POST /api/v1/orders/{id}/cancel
type CancelRequest struct {
	Caller string `json:"caller"`
}

// CreateResponse is returned from listing creation
type CreateResponse struct {
	ID uint64 `json:"id"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by clients to manage channel subscriptions
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["events"]
}
