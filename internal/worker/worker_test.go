package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/opensource-finance/ticpe/internal/bus"
	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/engine"
	"github.com/opensource-finance/ticpe/internal/reference"
	"github.com/opensource-finance/ticpe/internal/repository"
)

func freightResponses() []domain.Response {
	return []domain.Response{
		{QuestionID: "secteur_activite", Value: "Transport routier de marchandises"},
		{QuestionID: "vehicules_professionnels", Value: "Oui"},
		{QuestionID: "types_vehicules", Value: []any{"Camions de plus de 7,5 tonnes"}},
		{QuestionID: "consommation_carburant", Value: "Plus de 50 000 litres"},
		{QuestionID: "types_carburant", Value: []any{"Gazole professionnel"}},
		{QuestionID: "factures_carburant", Value: "Oui, 3 dernières années complètes"},
		{QuestionID: "usage_professionnel", Value: "100% professionnel"},
	}
}

type fixture struct {
	bus    *bus.ChannelBus
	repo   *repository.SQLRepository
	worker *Worker
}

func newFixture(t *testing.T, calc Calculator) *fixture {
	t.Helper()

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	repo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: repository.MemoryPath})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	if calc == nil {
		e, err := engine.New(nil, reference.Default())
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}
		calc = e
	}

	w := NewWorker(eventBus, repo, calc)
	t.Cleanup(func() { w.Stop() })
	return &fixture{bus: eventBus, repo: repo, worker: w}
}

// listen collects the messages of a topic.
func (f *fixture) listen(t *testing.T, tenantID, topic string) <-chan *domain.Message {
	t.Helper()
	ch := make(chan *domain.Message, 10)
	_, err := f.bus.Subscribe(context.Background(), tenantID, topic, func(ctx context.Context, msg *domain.Message) error {
		ch <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	return ch
}

func receive(t *testing.T, ch <-chan *domain.Message) *domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestWorker(t *testing.T) {
	t.Run("StartAndStop", func(t *testing.T) {
		f := newFixture(t, nil)

		if err := f.worker.Start(Config{TenantIDs: []string{"tenant-001", "tenant-002"}}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if stats := f.worker.GetStats(); stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions, got %d", stats.SubscriptionCount)
		}

		if err := f.worker.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
		if stats := f.worker.GetStats(); stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}

		err := f.worker.Submit(context.Background(), "tenant-001", &domain.Calculation{ID: "late"})
		if err == nil {
			t.Error("expected Submit to fail after Stop")
		}
	})

	t.Run("EligibleCalculation", func(t *testing.T) {
		f := newFixture(t, nil)
		tenantID := "tenant-001"
		completed := f.listen(t, tenantID, domain.TopicCalculationCompleted)
		eligible := f.listen(t, tenantID, domain.TopicCalculationEligible)

		calc := &domain.Calculation{
			ID:        "calc-001",
			Responses: freightResponses(),
			TraceID:   "trace-001",
			CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		}
		if err := f.worker.Submit(context.Background(), tenantID, calc); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}

		msg := receive(t, completed)
		var done domain.Calculation
		if err := json.Unmarshal(msg.Payload, &done); err != nil {
			t.Fatalf("invalid completion payload: %v", err)
		}
		if done.Status != domain.CalculationCompleted || done.Result == nil {
			t.Fatalf("expected completed calculation, got %+v", done)
		}
		if done.Result.EstimatedRecovery != 5496 {
			t.Errorf("expected 5496, got %v", done.Result.EstimatedRecovery)
		}
		if done.TraceID != "trace-001" {
			t.Errorf("expected trace-001, got %s", done.TraceID)
		}
		receive(t, eligible)

		stored, err := f.repo.GetCalculation(context.Background(), tenantID, "calc-001")
		if err != nil {
			t.Fatalf("GetCalculation failed: %v", err)
		}
		if stored.Status != domain.CalculationCompleted || stored.DatasetVersion != reference.DefaultVersion {
			t.Errorf("unexpected stored calculation: %+v", stored)
		}
		if !stored.CreatedAt.Equal(calc.CreatedAt) {
			t.Errorf("created_at changed: %v", stored.CreatedAt)
		}

		if stats := f.worker.GetStats(); stats.Processed != 1 || stats.Failed != 0 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("NotEligibleCalculation", func(t *testing.T) {
		f := newFixture(t, nil)
		tenantID := "tenant-002"
		completed := f.listen(t, tenantID, domain.TopicCalculationCompleted)
		eligible := f.listen(t, tenantID, domain.TopicCalculationEligible)

		if err := f.worker.Submit(context.Background(), tenantID, &domain.Calculation{ID: "calc-002"}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		receive(t, completed)

		select {
		case msg := <-eligible:
			t.Errorf("unexpected eligibility event: %s", msg.Payload)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("CalculationFailure", func(t *testing.T) {
		f := newFixture(t, failingCalculator{})
		tenantID := "tenant-003"
		completed := f.listen(t, tenantID, domain.TopicCalculationCompleted)

		if err := f.worker.Submit(context.Background(), tenantID, &domain.Calculation{ID: "calc-003"}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for {
			stored, err := f.repo.GetCalculation(context.Background(), tenantID, "calc-003")
			if err == nil && stored.Status == domain.CalculationFailed {
				if stored.Error == "" {
					t.Error("expected error message on failed calculation")
				}
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("calculation never failed: %+v, %v", stored, err)
			}
			time.Sleep(10 * time.Millisecond)
		}

		select {
		case <-completed:
			t.Error("failed calculation must not publish completion")
		case <-time.After(50 * time.Millisecond):
		}
		if stats := f.worker.GetStats(); stats.Failed != 1 {
			t.Errorf("expected 1 failure, got %+v", stats)
		}
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		f := newFixture(t, nil)
		msg := &domain.Message{ID: "m1", Payload: []byte("{not json")}
		if err := f.worker.process(context.Background(), "tenant-001", msg); err == nil {
			t.Error("expected parse error")
		}
	})
}

type failingCalculator struct{}

func (failingCalculator) Calculate(context.Context, []domain.Response) (*domain.CalculationResult, error) {
	return nil, errors.Join(engine.ErrReferenceData, errors.New("database is locked"))
}

func (failingCalculator) Version() string { return "test" }

func TestRequestParsing(t *testing.T) {
	payload := `{
		"id": "calc-9",
		"tenantId": "tenant-001",
		"responses": [
			{"question_id": "secteur_activite", "response_value": "Taxi"},
			{"question_id": "types_vehicules", "response_value": ["Véhicules de service"]}
		]
	}`

	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if req.ID != "calc-9" || len(req.Responses) != 2 {
		t.Errorf("unexpected request: %+v", req)
	}
	if _, ok := req.Responses[1].Value.([]any); !ok {
		t.Errorf("expected list value, got %T", req.Responses[1].Value)
	}
}

func TestPublishResult(t *testing.T) {
	f := newFixture(t, nil)
	completed := f.listen(t, "tenant-001", domain.TopicCalculationCompleted)
	eligible := f.listen(t, "tenant-001", domain.TopicCalculationEligible)

	t.Run("Eligible", func(t *testing.T) {
		f.worker.publishResult(context.Background(), "tenant-001", &domain.Calculation{
			ID:     "calc-ok",
			Status: domain.CalculationCompleted,
			Result: &domain.CalculationResult{Eligible: true},
		})

		var got domain.Calculation
		if err := json.Unmarshal(receive(t, completed).Payload, &got); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if got.ID != "calc-ok" {
			t.Errorf("unexpected calculation %+v", got)
		}
		receive(t, eligible)
	})

	t.Run("UnencodableCalculation", func(t *testing.T) {
		f.worker.publishResult(context.Background(), "tenant-001", &domain.Calculation{
			ID:        "calc-bad",
			Responses: []domain.Response{{QuestionID: "q1", Value: make(chan int)}},
			Result:    &domain.CalculationResult{Eligible: true},
		})

		select {
		case msg := <-completed:
			t.Errorf("expected nothing published, got %s", msg.Payload)
		case msg := <-eligible:
			t.Errorf("expected nothing published, got %s", msg.Payload)
		case <-time.After(100 * time.Millisecond):
		}
	})
}
