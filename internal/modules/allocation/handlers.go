package allocation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/index5/index5/internal/modules/basket"
	"github.com/index5/index5/internal/modules/clients"
	"github.com/index5/index5/internal/modules/ledger"
	"github.com/index5/index5/internal/modules/quotes"
)

// Handlers contains HTTP handlers for the purchase engine API
type Handlers struct {
	engine  *Engine
	baskets *basket.Repository
	clients *clients.Repository
	store   *ledger.Store
	quotes  quotes.Source
	log     zerolog.Logger
}

// NewHandlers creates a new engine handlers instance
func NewHandlers(
	engine *Engine,
	baskets *basket.Repository,
	repo *clients.Repository,
	store *ledger.Store,
	src quotes.Source,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		engine:  engine,
		baskets: baskets,
		clients: repo,
		store:   store,
		quotes:  src,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// HandleExecute runs one purchase cycle immediately
// POST /api/engine/execute
func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	bkt, err := h.baskets.GetActive()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load active basket")
		http.Error(w, "Failed to load active basket", http.StatusInternalServerError)
		return
	}

	activeClients, err := h.clients.ListActive()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load active clients")
		http.Error(w, "Failed to load active clients", http.StatusInternalServerError)
		return
	}

	referenceDate := time.Now().UTC().Format("2006-01-02")
	result, err := h.engine.ExecuteScheduledPurchase(r.Context(), bkt, activeClients, h.quotes, referenceDate)
	switch {
	case errors.Is(err, ErrBasketNotFound), errors.Is(err, ErrNoActiveClients):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Purchase cycle failed")
		http.Error(w, "Purchase cycle failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, result)
}

// HandleGetPool returns the house residual pool
// GET /api/engine/pool
func (h *Handlers) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.PoolEntries()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get house pool")
		http.Error(w, "Failed to get house pool", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []ledger.PoolEntry{}
	}
	h.writeJSON(w, entries)
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
