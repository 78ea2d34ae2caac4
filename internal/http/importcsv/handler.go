package importcsv

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmaia/kakeibo/internal/account"
	"github.com/dmaia/kakeibo/internal/event"
	"github.com/dmaia/kakeibo/internal/importer"
)

type Handler struct {
	importSvc  *importer.Service
	eventSvc   *event.Service
	accountSvc *account.Service
}

func NewHandler(importSvc *importer.Service, eventSvc *event.Service, accountSvc *account.Service) *Handler {
	return &Handler{
		importSvc:  importSvc,
		eventSvc:   eventSvc,
		accountSvc: accountSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importStatement)
}

type rowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type importResponse struct {
	Imported int        `json:"imported"`
	Failed   []rowError `json:"failed,omitempty"`
}

// importStatement parses an uploaded statement and creates one event per row
// through the regular create path, so every row passes ledger validation and
// balance synchronization.
func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatCSV
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, err := h.importSvc.Import(format, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	accounts, err := h.accountSvc.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	byName := make(map[string]*account.Account, len(accounts))
	for _, acc := range accounts {
		byName[acc.Name] = acc
	}

	var resp importResponse

	for i, row := range rows {
		params, err := h.rowToParams(row, byName)
		if err == nil {
			_, err = h.eventSvc.Create(r.Context(), params)
		}

		if err != nil {
			resp.Failed = append(resp.Failed, rowError{Row: i + 1, Error: err.Error()})
			continue
		}

		resp.Imported++
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) rowToParams(row importer.Row, byName map[string]*account.Account) (event.CreateParams, error) {
	src, ok := byName[row.Account]
	if !ok {
		return event.CreateParams{}, fmt.Errorf("unknown account %q", row.Account)
	}

	params := event.CreateParams{
		Kind:            row.Kind,
		Amount:          row.Amount,
		SourceAccountID: src.ID,
		Category:        row.Category,
		Note:            row.Note,
		OccurredAt:      row.OccurredAt,
	}

	if row.Kind == event.KindTransfer {
		target, ok := byName[row.TargetAccount]
		if !ok {
			return event.CreateParams{}, fmt.Errorf("unknown target account %q", row.TargetAccount)
		}

		params.TargetAccountID = &target.ID
	}

	return params, nil
}
