// Package worker runs calculations asynchronously from the EventBus.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opensource-finance/ticpe/internal/domain"
)

var tracer = otel.Tracer("ticpe-worker")

// Calculator computes a result from questionnaire responses.
type Calculator interface {
	Calculate(ctx context.Context, responses []domain.Response) (*domain.CalculationResult, error)
	Version() string
}

// Worker consumes calculation requests, persists the outcome and publishes
// completion events.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository
	calc Calculator

	mu            sync.Mutex
	subscriptions map[string]domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs are subscribed at start. Other tenants are subscribed on
	// their first Submit.
	TenantIDs []string
}

// Request is the payload of a calculation request message.
type Request struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	TraceID   string            `json:"traceId,omitempty"`
	Responses []domain.Response `json:"responses"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, calc Calculator) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:           bus,
		repo:          repo,
		calc:          calc,
		subscriptions: make(map[string]domain.Subscription),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start subscribes the configured tenants.
func (w *Worker) Start(cfg Config) error {
	for _, tenantID := range cfg.TenantIDs {
		if err := w.ensureTenant(tenantID); err != nil {
			return fmt.Errorf("start worker for tenant %s: %w", tenantID, err)
		}
	}

	slog.Info("worker started",
		"tenant_count", len(cfg.TenantIDs),
		"topic", domain.TopicCalculationRequested,
	)
	return nil
}

// ensureTenant subscribes to the request topic of a tenant once.
func (w *Worker) ensureTenant(tenantID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return errors.New("worker is stopped")
	}
	if _, ok := w.subscriptions[tenantID]; ok {
		return nil
	}

	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicCalculationRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.process(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions[tenantID] = sub

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicCalculationRequested,
	)
	return nil
}

// Submit stores calc as pending and queues it for calculation. On a publish
// failure the calculation is stored as failed and the error returned.
func (w *Worker) Submit(ctx context.Context, tenantID string, calc *domain.Calculation) error {
	if err := w.ensureTenant(tenantID); err != nil {
		return err
	}

	calc.TenantID = tenantID
	calc.Status = domain.CalculationPending
	calc.DatasetVersion = w.calc.Version()
	if err := w.repo.SaveCalculation(ctx, tenantID, calc); err != nil {
		return fmt.Errorf("save pending calculation: %w", err)
	}

	payload, err := json.Marshal(Request{
		ID:        calc.ID,
		TenantID:  tenantID,
		TraceID:   calc.TraceID,
		Responses: calc.Responses,
		CreatedAt: calc.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	if err := w.bus.Publish(ctx, tenantID, domain.TopicCalculationRequested, payload); err != nil {
		calc.Status = domain.CalculationFailed
		calc.Error = err.Error()
		if saveErr := w.repo.SaveCalculation(ctx, tenantID, calc); saveErr != nil {
			slog.Error("failed to mark calculation failed",
				"calculation_id", calc.ID,
				"error", saveErr,
			)
		}
		return fmt.Errorf("queue calculation: %w", err)
	}
	return nil
}

// process runs one queued calculation.
func (w *Worker) process(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var req Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse calculation request",
			"message_id", msg.ID,
			"error", err,
		)
		w.failed.Add(1)
		return err
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = msg.Metadata[domain.MetadataTraceID]
	}

	ctx, span := tracer.Start(ctx, "worker.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticpe.calculation_id", req.ID),
		attribute.String("ticpe.tenant_id", tenantID),
		attribute.String("ticpe.publisher_trace_id", traceID),
	)

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = start.UTC()
	}
	calc := &domain.Calculation{
		ID:             req.ID,
		TenantID:       tenantID,
		Responses:      req.Responses,
		TraceID:        traceID,
		CreatedAt:      createdAt,
		DatasetVersion: w.calc.Version(),
	}

	result, err := w.calc.Calculate(ctx, req.Responses)
	calc.ProcessMs = time.Since(start).Milliseconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		calc.Status = domain.CalculationFailed
		calc.Error = err.Error()
	} else {
		calc.Status = domain.CalculationCompleted
		calc.Result = result
	}

	if saveErr := w.repo.SaveCalculation(ctx, tenantID, calc); saveErr != nil {
		slog.Error("failed to save calculation",
			"calculation_id", calc.ID,
			"error", saveErr,
		)
	}

	if err != nil {
		w.failed.Add(1)
		slog.Error("calculation failed",
			"calculation_id", calc.ID,
			"tenant_id", tenantID,
			"trace_id", traceID,
			"error", err,
		)
		return err
	}
	w.processed.Add(1)

	w.publishResult(ctx, tenantID, calc)

	slog.Info("calculation processed",
		"calculation_id", calc.ID,
		"tenant_id", tenantID,
		"trace_id", traceID,
		"eligible", result.Eligible,
		"estimated_recovery", result.EstimatedRecovery,
		"duration_ms", calc.ProcessMs,
	)
	return nil
}

// publishResult announces a finished calculation, and its eligibility when
// eligible. Failures are logged: the calculation is already stored.
func (w *Worker) publishResult(ctx context.Context, tenantID string, calc *domain.Calculation) {
	payload, err := json.Marshal(calc)
	if err != nil {
		slog.Error("failed to marshal calculation",
			"calculation_id", calc.ID,
			"error", err,
		)
		return
	}

	if err := w.bus.Publish(ctx, tenantID, domain.TopicCalculationCompleted, payload); err != nil {
		slog.Error("failed to publish completion",
			"calculation_id", calc.ID,
			"error", err,
		)
	}
	if calc.Result != nil && calc.Result.Eligible {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicCalculationEligible, payload); err != nil {
			slog.Error("failed to publish eligibility",
				"calculation_id", calc.ID,
				"error", err,
			)
		}
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cancel()

	for tenantID, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"tenant_id", tenantID,
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = make(map[string]domain.Subscription)

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Tenants           []string `json:"tenants"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	tenants := make([]string, 0, len(w.subscriptions))
	for tenantID := range w.subscriptions {
		tenants = append(tenants, tenantID)
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Tenants:           tenants,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
