package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/fintrack/internal/api/middleware"
	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/dvloznov/fintrack/internal/export"
	"github.com/dvloznov/fintrack/internal/fuel"
	"github.com/dvloznov/fintrack/internal/importer"
	"github.com/dvloznov/fintrack/internal/insights"
	"github.com/dvloznov/fintrack/internal/lent"
	"github.com/dvloznov/fintrack/internal/logger"
	"github.com/dvloznov/fintrack/internal/stats"
	"github.com/dvloznov/fintrack/internal/store"
)

// maxUploadBytes bounds import and receipt bodies.
const maxUploadBytes = 10 << 20

// Handler serves the JSON API over a single store.
type Handler struct {
	store    *store.Store
	importer *importer.Importer
	insights *insights.Service // nil when no model is configured

	now func() time.Time
	loc *time.Location
}

// New creates a handler. svc may be nil; the insight and scan routes then
// answer 503.
func New(st *store.Store, im *importer.Importer, svc *insights.Service) *Handler {
	return &Handler{
		store:    st,
		importer: im,
		insights: svc,
		now:      time.Now,
		loc:      time.Local,
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/transactions", h.ListTransactions)
	mux.HandleFunc("POST /api/transactions", h.CreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.DeleteTransaction)
	mux.HandleFunc("POST /api/import", h.Import)
	mux.HandleFunc("GET /api/fuel", h.Fuel)
	mux.HandleFunc("GET /api/lent", h.ListLent)
	mux.HandleFunc("POST /api/lent/{id}/toggle", h.ToggleLent)
	mux.HandleFunc("POST /api/lent/{id}/partial", h.AddPartialReturn)
	mux.HandleFunc("GET /api/stats", h.Stats)
	mux.HandleFunc("GET /api/export.json", h.ExportJSON)
	mux.HandleFunc("GET /api/export.csv", h.ExportCSV)
	mux.HandleFunc("GET /api/insights", h.ListInsights)
	mux.HandleFunc("POST /api/insights", h.RefreshInsights)
	mux.HandleFunc("POST /api/scan", h.ScanReceipt)
	mux.HandleFunc("GET /health", h.Health)
}

// ListTransactions handles GET /api/transactions?period=&type=&limit=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	txs := h.store.Transactions()
	if p := q.Get("period"); p != "" {
		txs = stats.FilterByPeriod(txs, stats.ParsePeriod(p), h.now().In(h.loc))
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var typ domain.TransactionType
	if v := q.Get("type"); v != "" {
		typ = domain.NormalizeType(domain.TransactionType(v))
	}

	txs = stats.Recent(txs, typ, limit)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.store.AddTransaction(r.Context(), tx)
	if err != nil {
		h.writeError(w, r, err, "Failed to save transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, saved)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importRequest struct {
	Source string `json:"source"`
}

// Import handles POST /api/import. A JSON body {"source": "..."} imports a
// local path or gs:// object; any other body is the export text itself.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var (
		res *importer.Result
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req importRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil || req.Source == "" {
			middleware.WriteError(w, http.StatusBadRequest, "source is required")
			return
		}
		res, err = h.importer.ImportSource(ctx, req.Source)
	} else {
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Failed to read body")
			return
		}
		res, err = h.importer.ImportText(ctx, data)
	}
	if err != nil {
		h.writeError(w, r, err, "Import failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"imported": len(res.Transactions),
		"skipped":  res.Skipped,
	})
}

type fuelResponse struct {
	Available bool `json:"available"`
	*fuel.Result
}

// Fuel handles GET /api/fuel
func (h *Handler) Fuel(w http.ResponseWriter, r *http.Request) {
	res := fuel.Analyze(h.store.Transactions())
	middleware.WriteJSON(w, http.StatusOK, fuelResponse{Available: res != nil, Result: res})
}

// ListLent handles GET /api/lent?filter=all|pending|returned
func (h *Handler) ListLent(w http.ResponseWriter, r *http.Request) {
	txs := h.store.Transactions()
	list := lent.List(txs, lent.ParseFilter(r.URL.Query().Get("filter")))

	type row struct {
		domain.Transaction
		Status lent.Status `json:"status"`
	}
	rows := make([]row, 0, len(list))
	for i := range list {
		rows = append(rows, row{Transaction: list[i], Status: lent.StatusOf(&list[i])})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": rows,
		"summary":      lent.Summarize(txs),
	})
}

// ToggleLent handles POST /api/lent/{id}/toggle
func (h *Handler) ToggleLent(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	tx, err := h.store.Mutate(r.Context(), r.PathValue("id"), func(tx *domain.Transaction) error {
		return lent.ToggleReturned(tx, now)
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to toggle returned state")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

type partialRequest struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// AddPartialReturn handles POST /api/lent/{id}/partial. The date defaults to now.
func (h *Handler) AddPartialReturn(w http.ResponseWriter, r *http.Request) {
	var req partialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Date.IsZero() {
		req.Date = h.now()
	}

	tx, err := h.store.Mutate(r.Context(), r.PathValue("id"), func(tx *domain.Transaction) error {
		_, err := lent.AddPartialReturn(tx, req.Amount, req.Date)
		return err
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to record partial return")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Stats handles GET /api/stats?period=day|week|month|year|all
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	period := stats.ParsePeriod(r.URL.Query().Get("period"))
	categories := h.store.Categories()
	txs := stats.FilterByPeriod(h.store.Transactions(), period, h.now().In(h.loc))

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"period":     period,
		"summary":    stats.Summarize(txs),
		"categories": stats.CategoryBreakdown(txs, categories, domain.TypeExpense),
		"trend":      stats.DailyTrend(txs, h.loc),
	})
}

// ExportJSON handles GET /api/export.json
func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	categories, methods := h.store.Dictionaries()
	bundle := export.NewBundle(h.store.Transactions(), categories, methods, now)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.BackupFileName(now)+`"`)
	if err := export.WriteJSON(w, bundle); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to write JSON export")
	}
}

// ExportCSV handles GET /api/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	categories, methods := h.store.Dictionaries()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.LogFileName(now)+`"`)
	if err := export.WriteCSV(w, h.store.Transactions(), categories, methods, h.loc); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to write CSV export")
	}
}

// ListInsights handles GET /api/insights
func (h *Handler) ListInsights(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights": h.store.Insights(),
	})
}

// RefreshInsights handles POST /api/insights
func (h *Handler) RefreshInsights(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Insights are not configured")
		return
	}
	out, err := h.insights.RefreshInsights(r.Context())
	if err != nil {
		h.writeError(w, r, err, "Failed to refresh insights")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"insights": out})
}

// ScanReceipt handles POST /api/scan with the raw image as body.
func (h *Handler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	if h.insights == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Receipt scanning is not configured")
		return
	}
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil || len(image) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Image body is required")
		return
	}

	tx, err := h.insights.ScanReceipt(r.Context(), image, r.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, r, err, "Failed to scan receipt")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500 with the generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, domain.ErrInvalidTransaction),
		errors.Is(err, lent.ErrInvalidAmount):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lent.ErrNotLent):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, importer.ErrNothingImported):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, insights.ErrBusy):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg(message)
		middleware.WriteError(w, http.StatusInternalServerError, message)
	}
}
