package clients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handlers contains HTTP handlers for the client API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new client handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "clients").Logger(),
	}
}

type registerRequest struct {
	Name         string          `json:"name"`
	Document     string          `json:"document"`
	Email        string          `json:"email"`
	MonthlyValue decimal.Decimal `json:"monthly_value"`
}

// HandleRegister registers a new client (inactive until approved)
// POST /api/clients
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	client, err := h.service.Register(req.Name, req.Document, req.Email, req.MonthlyValue)
	switch {
	case errors.Is(err, ErrInvalidMonthlyValue):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, ErrDocumentTaken):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to register client")
		http.Error(w, "Failed to register client", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, client)
}

// HandleApprove activates a client and creates its sub-account
// POST /api/clients/{id}/approve
func (h *Handlers) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}

	client, err := h.service.Approve(id)
	switch {
	case errors.Is(err, ErrClientNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrAlreadyApproved):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.log.Error().Err(err).Int64("client_id", id).Msg("Failed to approve client")
		http.Error(w, "Failed to approve client", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, client)
}

// HandleList returns all active clients
// GET /api/clients
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListActive()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list clients")
		http.Error(w, "Failed to list clients", http.StatusInternalServerError)
		return
	}

	if list == nil {
		list = []Client{}
	}
	h.writeJSON(w, list)
}

// HandleGetPortfolio returns the valued portfolio of one client
// GET /api/clients/{id}/portfolio
func (h *Handlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}

	portfolio, err := h.service.Portfolio(id)
	switch {
	case errors.Is(err, ErrClientNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		h.log.Error().Err(err).Int64("client_id", id).Msg("Failed to get portfolio")
		http.Error(w, "Failed to get portfolio", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, portfolio)
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
