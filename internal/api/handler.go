package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/opensource-finance/ticpe/internal/bus"
	"github.com/opensource-finance/ticpe/internal/cache"
	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/engine"
	"github.com/opensource-finance/ticpe/internal/repository"
	"github.com/opensource-finance/ticpe/internal/worker"
)

// calculationTTL bounds how long a finished calculation stays cached.
const calculationTTL = 15 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engine  *engine.Engine
	worker  *worker.Worker
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, wk *worker.Worker) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		engine:  eng,
		worker:  wk,
		version: eng.Version(),
	}
}

// CalculationRequest is the request body for POST /calculations.
type CalculationRequest struct {
	Responses []domain.Response `json:"responses"`
	Async     bool              `json:"async,omitempty"`
}

// AcceptedResponse is returned for an asynchronous calculation.
type AcceptedResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	TraceID string `json:"traceId"`
}

// Calculate handles POST /calculations. Synchronous requests return the
// finished calculation; async requests are queued on the worker.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	calc := &domain.Calculation{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		Responses:      req.Responses,
		TraceID:        GetTraceID(ctx),
		CreatedAt:      start.UTC(),
		DatasetVersion: h.version,
	}

	if req.Async {
		if h.worker == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "asynchronous calculations are disabled",
			})
			return
		}
		if err := h.worker.Submit(ctx, tenantID, calc); err != nil {
			slog.Error("failed to queue calculation", "calculation_id", calc.ID, "error", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, AcceptedResponse{
			ID:      calc.ID,
			Status:  calc.Status,
			TraceID: calc.TraceID,
		})
		return
	}

	result, err := h.engine.Calculate(ctx, req.Responses)
	calc.ProcessMs = time.Since(start).Milliseconds()
	if err != nil {
		calc.Status = domain.CalculationFailed
		calc.Error = err.Error()
		h.store(ctx, calc)
		slog.Error("calculation failed",
			"calculation_id", calc.ID,
			"tenant_id", tenantID,
			"error", err,
		)
		writeError(w, err)
		return
	}

	calc.Status = domain.CalculationCompleted
	calc.Result = result
	h.store(ctx, calc)

	writeJSON(w, http.StatusOK, calc)
}

// store saves and caches a finished calculation. Failures are logged: the
// caller already holds the result.
func (h *Handler) store(ctx context.Context, calc *domain.Calculation) {
	if h.repo != nil {
		if err := h.repo.SaveCalculation(ctx, calc.TenantID, calc); err != nil {
			slog.Error("failed to save calculation", "calculation_id", calc.ID, "error", err)
		}
	}
	if h.cache != nil {
		if err := cache.SetCalculation(ctx, h.cache, calc.TenantID, calc, calculationTTL); err != nil {
			slog.Warn("failed to cache calculation", "calculation_id", calc.ID, "error", err)
		}
	}
}

// GetCalculation handles GET /calculations/{id}.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	calcID := chi.URLParam(r, "id")

	if h.cache != nil {
		calc, err := cache.GetCalculation(ctx, h.cache, tenantID, calcID)
		if err != nil {
			slog.Warn("calculation cache read failed", "calculation_id", calcID, "error", err)
		}
		if calc != nil {
			writeJSON(w, http.StatusOK, calc)
			return
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	calc, err := h.repo.GetCalculation(ctx, tenantID, calcID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get calculation", "calculation_id", calcID, "error", err)
		}
		writeError(w, err)
		return
	}

	// Pending calculations change when the worker finishes.
	if h.cache != nil && calc.Status != domain.CalculationPending {
		if err := cache.SetCalculation(ctx, h.cache, tenantID, calc, calculationTTL); err != nil {
			slog.Warn("failed to cache calculation", "calculation_id", calcID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, calc)
}

// ListCalculations handles GET /calculations?limit=N, newest first.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	calcs, err := h.repo.ListCalculations(ctx, tenantID, limit)
	if err != nil {
		slog.Error("failed to list calculations", "tenant_id", tenantID, "error", err)
		writeError(w, err)
		return
	}
	if calcs == nil {
		calcs = []*domain.Calculation{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"calculations": calcs,
		"count":        len(calcs),
	})
}

// ExtractProfile handles POST /profile: the normalized profile of the
// responses, without calculating.
func (h *Handler) ExtractProfile(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":        h.engine.ExtractProfile(req.Responses),
		"datasetVersion": h.version,
	})
}

// ReferenceSummary handles GET /reference.
func (h *Handler) ReferenceSummary(w http.ResponseWriter, r *http.Request) {
	ds := h.engine.Dataset()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":         ds.Version,
		"year":            ds.Year,
		"eligibleSectors": ds.Policy.EligibleSectors(),
		"tables": map[string]int{
			"sectors":       len(ds.Sectors),
			"fuelRates":     len(ds.FuelRates),
			"vehicleTypes":  len(ds.VehicleTypes),
			"benchmarks":    len(ds.Benchmarks),
			"maturityRules": len(ds.MaturityRules),
			"rules":         len(ds.Rules),
		},
	})
}

// SectorInfo joins a sector row with its scoring policy.
type SectorInfo struct {
	Sector        domain.Sector   `json:"sector"`
	Eligible      bool            `json:"eligible"`
	Points        int             `json:"points"`
	Performance   float64         `json:"performance"`
	DefaultFuel   domain.FuelType `json:"defaultFuel,omitempty"`
	DefaultLiters float64         `json:"defaultLiters,omitempty"`
}

// ListSectors handles GET /reference/sectors.
func (h *Handler) ListSectors(w http.ResponseWriter, r *http.Request) {
	ds := h.engine.Dataset()

	rows := make(map[domain.Sector]domain.SectorRow, len(ds.Sectors))
	for _, row := range ds.Sectors {
		rows[row.Sector] = row
	}

	sectors := make([]SectorInfo, 0, len(ds.Policy.Sectors))
	for _, sp := range ds.Policy.Sectors {
		row := rows[sp.Sector]
		sectors = append(sectors, SectorInfo{
			Sector:        sp.Sector,
			Eligible:      sp.Eligible,
			Points:        sp.Points,
			Performance:   row.Performance,
			DefaultFuel:   row.DefaultFuel,
			DefaultLiters: sp.DefaultLiters,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": ds.Version,
		"sectors": sectors,
		"count":   len(sectors),
	})
}

// ListBenchmarks handles GET /reference/benchmarks, optionally filtered with
// ?sector=.
func (h *Handler) ListBenchmarks(w http.ResponseWriter, r *http.Request) {
	ds := h.engine.Dataset()
	sector := domain.Sector(r.URL.Query().Get("sector"))

	benchmarks := make([]domain.BenchmarkRow, 0, len(ds.Benchmarks))
	for _, b := range ds.Benchmarks {
		if sector == "" || b.Sector == sector {
			benchmarks = append(benchmarks, b)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":    ds.Version,
		"benchmarks": benchmarks,
		"count":      len(benchmarks),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":         status,
		"datasetVersion": h.version,
	})
}

// Ready reports whether every backend answers. It returns 503 otherwise.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	ready := true

	check := func(name string, ping func() error) {
		if err := ping(); err != nil {
			checks[name] = err.Error()
			ready = false
			return
		}
		checks[name] = "ok"
	}

	if h.repo != nil {
		check("repository", func() error { return h.repo.Ping(ctx) })
	}
	if h.cache != nil {
		check("cache", func() error { return h.cache.Ping(ctx) })
	}
	if h.bus != nil {
		check("eventBus", func() error { return h.bus.Ping(ctx) })
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}

// writeError maps an error to its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, "calculation not found"
	case errors.Is(err, repository.ErrInvalidInput), errors.Is(err, bus.ErrInvalidTenant):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, engine.ErrReferenceData):
		status, msg = http.StatusBadGateway, "reference data unavailable"
	case errors.Is(err, bus.ErrBufferFull), errors.Is(err, bus.ErrClosed):
		status, msg = http.StatusServiceUnavailable, "calculation queue unavailable"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
