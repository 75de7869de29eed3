package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/eugenenazirov/carrier-rates/internal/quoting"
	"github.com/eugenenazirov/carrier-rates/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler wires the quoting engine and carrier storage into HTTP handlers.
type Handler struct {
	quoter  quoting.Quoter
	storage storage.Storage

	clock func() time.Time

	mu                sync.RWMutex
	carriersUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(quoter quoting.Quoter, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		quoter:  quoter,
		storage: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.carriersUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRates answers the checkout rate callback with the cheapest quote, or
// an empty rate list when no carriers are configured.
func (h *Handler) handleRates(w http.ResponseWriter, r *http.Request) {
	var req rateCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	items := make([]quoting.LineItem, 0, len(req.Rate.Items))
	for _, item := range req.Rate.Items {
		items = append(items, quoting.LineItem{Grams: item.Grams, Quantity: item.Quantity})
	}

	carriers, err := h.storage.ListCarriers(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	quotes, err := h.quoter.ComputeRates(quoting.RateRequest{
		Items:    items,
		Currency: req.Rate.Currency,
	}, carriers)
	if err != nil {
		switch {
		case errors.Is(err, quoting.ErrInvalidWeight), errors.Is(err, quoting.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		case errors.Is(err, quoting.ErrOrderTooHeavy):
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error(), "split the order into smaller shipments")
		default:
			writeInternalError(w, err)
		}
		return
	}

	resp := ratesResponse{Rates: []rateDTO{}}
	if len(quotes) > 0 {
		resp.Rates = append(resp.Rates, toRateDTO(quotes[0]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCarriers(w http.ResponseWriter, r *http.Request) {
	carriers, err := h.storage.ListCarriers(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := carriersResponse{
		Carriers:  toCarrierDTOs(carriers),
		UpdatedAt: h.currentCarriersUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutCarrier(w http.ResponseWriter, r *http.Request) {
	var req carrierDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	carrier := quoting.Carrier{Name: req.Name, PricePerParcel: req.PricePerParcel}
	if err := h.storage.UpsertCarrier(r.Context(), carrier); err != nil {
		if errors.Is(err, storage.ErrInvalidCarrier) {
			writeError(w, http.StatusBadRequest, "Invalid carrier", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markCarriersUpdated()

	carriers, err := h.storage.ListCarriers(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := carriersResponse{
		Carriers:  toCarrierDTOs(carriers),
		UpdatedAt: h.currentCarriersUpdatedAt(),
		Message:   "Carrier saved successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteCarrier(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.storage.DeleteCarrier(r.Context(), name); err != nil {
		if errors.Is(err, storage.ErrCarrierNotFound) {
			writeError(w, http.StatusNotFound, "Unknown carrier", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markCarriersUpdated()

	carriers, err := h.storage.ListCarriers(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := carriersResponse{
		Carriers:  toCarrierDTOs(carriers),
		UpdatedAt: h.currentCarriersUpdatedAt(),
		Message:   "Carrier deleted successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) currentCarriersUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.carriersUpdatedAt
}

func (h *Handler) markCarriersUpdated() {
	h.mu.Lock()
	h.carriersUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type rateCallbackRequest struct {
	Rate struct {
		Currency string        `json:"currency"`
		Items    []rateItemDTO `json:"items"`
	} `json:"rate"`
}

type rateItemDTO struct {
	Grams    int64 `json:"grams"`
	Quantity int64 `json:"quantity"`
}

type ratesResponse struct {
	Rates []rateDTO `json:"rates"`
}

type rateDTO struct {
	ServiceName     string `json:"service_name"`
	ServiceCode     string `json:"service_code"`
	TotalPrice      int64  `json:"total_price"`
	Currency        string `json:"currency"`
	MinDeliveryDate string `json:"min_delivery_date"`
	MaxDeliveryDate string `json:"max_delivery_date"`
	Description     string `json:"description"`
}

func toRateDTO(quote quoting.Quote) rateDTO {
	return rateDTO{
		ServiceName:     quote.ServiceName,
		ServiceCode:     quote.ServiceCode,
		TotalPrice:      quote.TotalPrice,
		Currency:        quote.Currency,
		MinDeliveryDate: quote.MinDeliveryDate.Format(time.RFC3339),
		MaxDeliveryDate: quote.MaxDeliveryDate.Format(time.RFC3339),
		Description:     quote.Description,
	}
}

type carrierDTO struct {
	Name           string `json:"name"`
	PricePerParcel int64  `json:"price_per_parcel"`
}

func toCarrierDTOs(carriers []quoting.Carrier) []carrierDTO {
	out := make([]carrierDTO, 0, len(carriers))
	for _, carrier := range carriers {
		out = append(out, carrierDTO{Name: carrier.Name, PricePerParcel: carrier.PricePerParcel})
	}
	return out
}

type carriersResponse struct {
	Carriers  []carrierDTO `json:"carriers"`
	UpdatedAt time.Time    `json:"updated_at"`
	Message   string       `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
