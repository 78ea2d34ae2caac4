package consistency

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmaia/kakeibo/internal/reconcile"
)

type Handler struct {
	engine *reconcile.Engine
}

func NewHandler(engine *reconcile.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/check", h.check)
	r.Get("/runs", h.listRuns)
}

type findingResponse struct {
	AccountID          uuid.UUID          `json:"account_id"`
	ActualBalance      int64              `json:"actual_balance"`
	TheoreticalBalance int64              `json:"theoretical_balance"`
	Difference         int64              `json:"difference"`
	Severity           reconcile.Severity `json:"severity"`
}

type repairResponse struct {
	AccountID     uuid.UUID `json:"account_id"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Error         string    `json:"error,omitempty"`
}

type reportResponse struct {
	RunID           uuid.UUID         `json:"run_id"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
	DryRun          bool              `json:"dry_run"`
	EventsScanned   int               `json:"events_scanned"`
	AccountsChecked int               `json:"accounts_checked"`
	Findings        []findingResponse `json:"findings"`
	RepairApplied   bool              `json:"repair_applied"`
	Repairs         []repairResponse  `json:"repairs,omitempty"`
}

func toResponse(report *reconcile.Report) reportResponse {
	resp := reportResponse{
		RunID:           report.RunID,
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
		DryRun:          report.DryRun,
		EventsScanned:   report.EventsScanned,
		AccountsChecked: report.AccountsChecked,
		Findings:        make([]findingResponse, len(report.Findings)),
		RepairApplied:   report.RepairApplied,
	}

	for i, f := range report.Findings {
		resp.Findings[i] = findingResponse{
			AccountID:          f.AccountID,
			ActualBalance:      f.ActualBalance,
			TheoreticalBalance: f.TheoreticalBalance,
			Difference:         f.Difference,
			Severity:           f.Severity,
		}
	}

	for _, rep := range report.Repairs {
		out := repairResponse{
			AccountID:     rep.AccountID,
			BalanceBefore: rep.BalanceBefore,
			BalanceAfter:  rep.BalanceAfter,
		}

		if rep.Err != nil {
			out.Error = rep.Err.Error()
		}

		resp.Repairs = append(resp.Repairs, out)
	}

	return resp
}

// check runs a full consistency check. With dry_run=true the report only
// describes drift; otherwise drifted balances are repaired from history.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	dryRun := false

	if s := r.URL.Query().Get("dry_run"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			http.Error(w, "invalid dry_run", http.StatusBadRequest)
			return
		}

		dryRun = v
	}

	report, err := h.engine.RunFullCheck(r.Context(), dryRun)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(report)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type runResponse struct {
	ID              uuid.UUID `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DryRun          bool      `json:"dry_run"`
	EventsScanned   int       `json:"events_scanned"`
	AccountsChecked int       `json:"accounts_checked"`
	FindingsCount   int       `json:"findings_count"`
	RepairApplied   bool      `json:"repair_applied"`
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50

	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		limit = v
	}

	runs, err := h.engine.ListRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]runResponse, len(runs))
	for i, run := range runs {
		resp[i] = runResponse{
			ID:              run.ID,
			StartedAt:       run.StartedAt,
			FinishedAt:      run.FinishedAt,
			DryRun:          run.DryRun,
			EventsScanned:   run.EventsScanned,
			AccountsChecked: run.AccountsChecked,
			FindingsCount:   run.FindingsCount,
			RepairApplied:   run.RepairApplied,
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
