package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/ticpe/internal/domain"
)

func waitFor(t *testing.T, ch <-chan *domain.Message) *domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		got := make(chan *domain.Message, 1)
		_, err := bus.Subscribe(ctx, tenantID, domain.TopicCalculationRequested, func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		if err := bus.Publish(ctx, tenantID, domain.TopicCalculationRequested, []byte(`{"id":"calc-1"}`)); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		msg := waitFor(t, got)
		if string(msg.Payload) != `{"id":"calc-1"}` {
			t.Errorf("unexpected payload %s", msg.Payload)
		}
		if msg.TenantID != tenantID {
			t.Errorf("expected tenantID '%s', got '%s'", tenantID, msg.TenantID)
		}
		if msg.Topic != domain.TopicCalculationRequested || msg.ID == "" {
			t.Errorf("incomplete envelope: %+v", msg)
		}
		if _, ok := msg.Metadata[domain.MetadataTraceID]; ok {
			t.Error("no trace ID expected without an active span")
		}
	})

	t.Run("TraceIDPropagated", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		spanCtx := trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		}))

		got := make(chan *domain.Message, 1)
		bus.Subscribe(ctx, tenantID, "trace.topic", func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})
		if err := bus.Publish(spanCtx, tenantID, "trace.topic", nil); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		msg := waitFor(t, got)
		if msg.Metadata[domain.MetadataTraceID] != traceID.String() {
			t.Errorf("expected trace ID %s, got %q", traceID, msg.Metadata[domain.MetadataTraceID])
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		var received1, received2 atomic.Int32
		done := make(chan *domain.Message, 1)

		bus.Subscribe(ctx, "tenant-a", "isolation.topic", func(ctx context.Context, msg *domain.Message) error {
			received1.Add(1)
			done <- msg
			return nil
		})
		bus.Subscribe(ctx, "tenant-b", "isolation.topic", func(ctx context.Context, msg *domain.Message) error {
			received2.Add(1)
			return nil
		})

		bus.Publish(ctx, "tenant-a", "isolation.topic", []byte("msg1"))
		waitFor(t, done)
		time.Sleep(20 * time.Millisecond)

		if received1.Load() != 1 {
			t.Errorf("tenant-a should receive 1 message, got %d", received1.Load())
		}
		if received2.Load() != 0 {
			t.Errorf("tenant-b should receive 0 messages, got %d", received2.Load())
		}
	})

	t.Run("InvalidTenantID", func(t *testing.T) {
		for _, tenant := range []string{"", "*", "a.b", "x>", "with space"} {
			if err := bus.Publish(ctx, tenant, "topic", []byte("data")); !errors.Is(err, ErrInvalidTenant) {
				t.Errorf("Publish(%q): expected ErrInvalidTenant, got %v", tenant, err)
			}
			_, err := bus.Subscribe(ctx, tenant, "topic", func(ctx context.Context, msg *domain.Message) error {
				return nil
			})
			if !errors.Is(err, ErrInvalidTenant) {
				t.Errorf("Subscribe(%q): expected ErrInvalidTenant, got %v", tenant, err)
			}
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32
		got := make(chan *domain.Message, 1)

		sub, _ := bus.Subscribe(ctx, tenantID, "unsub.topic", func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			got <- msg
			return nil
		})

		bus.Publish(ctx, tenantID, "unsub.topic", []byte("msg1"))
		waitFor(t, got)

		if err := sub.Unsubscribe(); err != nil {
			t.Fatalf("unsubscribe failed: %v", err)
		}

		bus.mu.RLock()
		remaining := len(bus.subscriptions[bus.makeKey(tenantID, "unsub.topic")])
		bus.mu.RUnlock()
		if remaining != 0 {
			t.Errorf("expected subscription removed, %d left", remaining)
		}

		bus.Publish(ctx, tenantID, "unsub.topic", []byte("msg2"))
		time.Sleep(50 * time.Millisecond)

		if count.Load() != 1 {
			t.Errorf("expected 1 message after unsubscribe, got %d", count.Load())
		}
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)
		var count1, count2 atomic.Int32

		bus.Subscribe(ctx, tenantID, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
			count1.Add(1)
			wg.Done()
			return nil
		})
		bus.Subscribe(ctx, tenantID, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
			count2.Add(1)
			wg.Done()
			return nil
		})

		bus.Publish(ctx, tenantID, "multi.topic", []byte("broadcast"))
		wg.Wait()

		if count1.Load() != 1 || count2.Load() != 1 {
			t.Errorf("expected both subscribers to receive, got %d and %d", count1.Load(), count2.Load())
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := bus.Ping(ctx); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, _ := bus.Subscribe(ctx, tenantID, domain.TopicCalculationEligible, func(ctx context.Context, msg *domain.Message) error {
			return nil
		})

		if sub.Topic() != domain.TopicCalculationEligible {
			t.Errorf("expected topic %q, got %q", domain.TopicCalculationEligible, sub.Topic())
		}
	})
}

func TestChannelBusBufferFull(t *testing.T) {
	bus := NewChannelBus(1)
	defer bus.Close()

	ctx := context.Background()
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	bus.Subscribe(ctx, "tenant-001", "slow.topic", func(ctx context.Context, msg *domain.Message) error {
		started <- struct{}{}
		<-release
		return nil
	})

	if err := bus.Publish(ctx, "tenant-001", "slow.topic", []byte("1")); err != nil {
		t.Fatalf("first publish failed: %v", err)
	}
	<-started

	if err := bus.Publish(ctx, "tenant-001", "slow.topic", []byte("2")); err != nil {
		t.Fatalf("buffered publish failed: %v", err)
	}
	if err := bus.Publish(ctx, "tenant-001", "slow.topic", []byte("3")); !errors.Is(err, ErrBufferFull) {
		t.Errorf("expected ErrBufferFull, got %v", err)
	}
	close(release)
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)

	ctx := context.Background()
	tenantID := "tenant-001"

	bus.Subscribe(ctx, tenantID, "close.topic", func(ctx context.Context, msg *domain.Message) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}

	if err := bus.Publish(ctx, tenantID, "close.topic", []byte("data")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}
}

func TestMakeSubject(t *testing.T) {
	got := makeSubject("tenant-001", domain.TopicCalculationCompleted)
	if got != "ticpe.tenant-001.ticpe.calculation.completed" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestNewBus(t *testing.T) {
	t.Run("ChannelType", func(t *testing.T) {
		cfg := domain.EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 50,
		}

		bus, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer bus.Close()

		if _, ok := bus.(*ChannelBus); !ok {
			t.Error("expected ChannelBus for channel type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.EventBusConfig{
			Type: "kafka",
		}

		if _, err := New(cfg); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(1000)
	defer bus.Close()

	ctx := context.Background()
	tenantID := "tenant-load"

	var received atomic.Int32
	const messageCount = 100

	var wg sync.WaitGroup
	wg.Add(messageCount)

	bus.Subscribe(ctx, tenantID, domain.TopicCalculationRequested, func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		wg.Done()
		return nil
	})

	for i := 0; i < messageCount; i++ {
		if err := bus.Publish(ctx, tenantID, domain.TopicCalculationRequested, []byte("msg")); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if received.Load() != messageCount {
			t.Errorf("expected %d messages, got %d", messageCount, received.Load())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout: received %d/%d messages", received.Load(), messageCount)
	}
}
