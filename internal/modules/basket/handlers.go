package basket

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handlers contains HTTP handlers for the basket API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new basket handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "basket").Logger(),
	}
}

type registerItemRequest struct {
	Ticker        string          `json:"ticker"`
	WeightPercent decimal.Decimal `json:"weight_percent"`
}

type registerRequest struct {
	Name  string                `json:"name"`
	Items []registerItemRequest `json:"items"`
}

// HandleRegister registers a new basket, superseding the active one
// POST /api/baskets
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, Item{Ticker: item.Ticker, WeightPercent: item.WeightPercent})
	}

	result, err := h.service.Register(req.Name, items)
	switch {
	case errors.Is(err, ErrInvalidAssetCount),
		errors.Is(err, ErrInvalidPercentages),
		errors.Is(err, ErrDuplicateTicker):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to register basket")
		http.Error(w, "Failed to register basket", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, result)
}

// HandleGetActive returns the active basket
// GET /api/baskets/active
func (h *Handlers) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	bkt, err := h.service.GetActive()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get active basket")
		http.Error(w, "Failed to get active basket", http.StatusInternalServerError)
		return
	}

	if bkt == nil {
		http.Error(w, "No active basket", http.StatusNotFound)
		return
	}

	h.writeJSON(w, bkt)
}

// HandleGetHistory returns every basket version
// GET /api/baskets/history
func (h *Handlers) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	baskets, err := h.service.History()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get basket history")
		http.Error(w, "Failed to get basket history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, baskets)
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
