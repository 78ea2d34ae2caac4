package event

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/event"
	"github.com/dmaia/kakeibo/internal/ledger"
)

type Handler struct {
	svc *event.Service
}

func NewHandler(svc *event.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// writeLedgerError maps synchronizer errors to response codes so the UI can
// show a precise message ("insufficient balance", "invalid transfer target").
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNegativeOrZeroAmount),
		errors.Is(err, ledger.ErrInvalidTransferTarget):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrAccountNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, event.ErrNotFound):
		http.Error(w, "event not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type createEventRequest struct {
	Kind            event.Kind `json:"kind"`
	Amount          int64      `json:"amount"`
	SourceAccountID uuid.UUID  `json:"source_account_id"`
	TargetAccountID *uuid.UUID `json:"target_account_id,omitempty"`
	Category        string     `json:"category"`
	Note            string     `json:"note"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := h.svc.Create(r.Context(), event.CreateParams{
		Kind:            req.Kind,
		Amount:          req.Amount,
		SourceAccountID: req.SourceAccountID,
		TargetAccountID: req.TargetAccountID,
		Category:        req.Category,
		Note:            req.Note,
		OccurredAt:      req.OccurredAt,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(ev)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := event.ListFilter{}

	if s := r.URL.Query().Get("account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid account_id", http.StatusBadRequest)
			return
		}

		filter.AccountID = &id
	}

	if s := r.URL.Query().Get("kind"); s != "" {
		kind := event.Kind(s)
		filter.Kind = &kind
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = &t
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = &t
		}
	}

	evs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(evs)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ev, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(ev)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateEventRequest struct {
	Kind            *event.Kind `json:"kind,omitempty"`
	Amount          *int64      `json:"amount,omitempty"`
	SourceAccountID *uuid.UUID  `json:"source_account_id,omitempty"`
	TargetAccountID *uuid.UUID  `json:"target_account_id,omitempty"`
	Category        *string     `json:"category,omitempty"`
	Note            *string     `json:"note,omitempty"`
	OccurredAt      *time.Time  `json:"occurred_at,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := h.svc.Update(r.Context(), id, event.UpdateParams{
		Kind:            req.Kind,
		Amount:          req.Amount,
		SourceAccountID: req.SourceAccountID,
		TargetAccountID: req.TargetAccountID,
		Category:        req.Category,
		Note:            req.Note,
		OccurredAt:      req.OccurredAt,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(ev)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
