package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/404-LAB/otcledger/pkg/ledger"
)

// Server exposes the ledger over REST and streams its events over WebSocket.
// The host environment is trusted to have authenticated callers, so operation
// payloads carry the caller identity directly.
type Server struct {
	ledger *ledger.Ledger
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger

	allowedOrigins []string
}

// NewServer creates an API server over the given ledger.
func NewServer(l *ledger.Ledger, logger *zap.SugaredLogger, allowedOrigins []string) *Server {
	s := &Server{
		ledger:         l,
		router:         mux.NewRouter(),
		hub:            NewHub(logger),
		log:            logger,
		allowedOrigins: allowedOrigins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Query surface
	api.HandleFunc("/offers/{id}", s.handleGetOffer).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")

	// Listing creation
	api.HandleFunc("/offers", s.handleCreateOffer).Methods("POST")
	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")

	// Fills
	api.HandleFunc("/offers/{id}/fill", s.handleFillOffer).Methods("POST")
	api.HandleFunc("/orders/{id}/fill", s.handleFillOrder).Methods("POST")

	// Cancellation
	api.HandleFunc("/offers/{id}/cancel", s.handleCancelOffer).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")

	// WebSocket event stream
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the WebSocket hub and serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// BroadcastEvent pushes a ledger event to all subscribed WebSocket clients.
// Wired to ledger.OnEvent.
func (s *Server) BroadcastEvent(e ledger.Event) {
	s.hub.BroadcastToChannel("events", e)
}

// Handler returns the HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	off, err := s.ledger.Offer(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "offer not found", err.Error())
		return
	}
	respondJSON(w, listingInfo(off))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ord, err := s.ledger.Order(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "order not found", err.Error())
		return
	}
	respondJSON(w, listingInfo(ord))
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, Stats{
		Offers: s.ledger.OfferCount(),
		Orders: s.ledger.OrderCount(),
	})
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, asset, ok := addresses(w, req.Caller, req.Asset)
	if !ok {
		return
	}

	id, err := s.ledger.CreateOffer(caller, asset, req.Quantity, req.UnitPrice)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	s.log.Infow("offer_created", "id", id, "owner", req.Caller, "asset", req.Asset,
		"quantity", req.Quantity, "unit_price", req.UnitPrice)
	respondJSON(w, CreateResponse{ID: id})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, asset, ok := addresses(w, req.Caller, req.Asset)
	if !ok {
		return
	}

	id, err := s.ledger.CreateOrder(caller, asset, req.Quantity, req.UnitPrice, req.Payment)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	s.log.Infow("order_created", "id", id, "owner", req.Caller, "asset", req.Asset,
		"quantity", req.Quantity, "unit_price", req.UnitPrice)
	respondJSON(w, CreateResponse{ID: id})
}

func (s *Server) handleFillOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req FillOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, ok := address(w, req.Caller)
	if !ok {
		return
	}

	if err := s.ledger.FillOffer(caller, id, req.Amount, req.Payment); err != nil {
		respondLedgerError(w, err)
		return
	}

	s.log.Infow("offer_filled", "id", id, "counterparty", req.Caller, "amount", req.Amount)
	respondJSON(w, map[string]string{"status": "filled"})
}

func (s *Server) handleFillOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req FillOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, ok := address(w, req.Caller)
	if !ok {
		return
	}

	if err := s.ledger.FillOrder(caller, id, req.Amount); err != nil {
		respondLedgerError(w, err)
		return
	}

	s.log.Infow("order_filled", "id", id, "counterparty", req.Caller, "amount", req.Amount)
	respondJSON(w, map[string]string{"status": "filled"})
}

func (s *Server) handleCancelOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, ok := address(w, req.Caller)
	if !ok {
		return
	}

	if err := s.ledger.CancelOffer(caller, id); err != nil {
		respondLedgerError(w, err)
		return
	}

	s.log.Infow("offer_cancelled", "id", id, "owner", req.Caller)
	respondJSON(w, map[string]string{"status": "cancelled"})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, ok := address(w, req.Caller)
	if !ok {
		return
	}

	if err := s.ledger.CancelOrder(caller, id); err != nil {
		respondLedgerError(w, err)
		return
	}

	s.log.Infow("order_cancelled", "id", id, "owner", req.Caller)
	respondJSON(w, map[string]string{"status": "cancelled"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func listingInfo(l ledger.Listing) ListingInfo {
	return ListingInfo{
		ID:        l.ID,
		Kind:      l.Kind.String(),
		Owner:     l.Owner.Hex(),
		Asset:     l.Asset.Hex(),
		Original:  l.Original,
		Remaining: l.Remaining,
		UnitPrice: l.UnitPrice,
		Available: l.Available,
		CreatedAt: l.CreatedAt,
		ClosedAt:  l.ClosedAt,
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "invalid listing id", "")
		return 0, false
	}
	return id, true
}

func address(w http.ResponseWriter, hex string) (common.Address, bool) {
	if !common.IsHexAddress(hex) {
		respondError(w, http.StatusBadRequest, "invalid address", hex)
		return common.Address{}, false
	}
	return common.HexToAddress(hex), true
}

func addresses(w http.ResponseWriter, callerHex, assetHex string) (common.Address, common.Address, bool) {
	caller, ok := address(w, callerHex)
	if !ok {
		return common.Address{}, common.Address{}, false
	}
	asset, ok := address(w, assetHex)
	if !ok {
		return common.Address{}, common.Address{}, false
	}
	return caller, asset, true
}

// respondLedgerError maps the ledger's error taxonomy onto HTTP statuses.
// 409 covers both a listing that closed between read and write and the
// settlement latch being held by another in-flight operation; either way the
// request may be retried after re-reading the listing.
func respondLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, ledger.ErrListingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidPrice),
		errors.Is(err, ledger.ErrPaymentMismatch),
		errors.Is(err, ledger.ErrValueOverflow):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrListingClosed),
		errors.Is(err, ledger.ErrInsufficientRemaining):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrAssetTransferFailed),
		errors.Is(err, ledger.ErrPaymentFailed):
		status = http.StatusBadGateway
	}
	respondError(w, status, "operation rejected", err.Error())
}

func respondJSON(w http.ResponseWriter, data interface{}) {
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
