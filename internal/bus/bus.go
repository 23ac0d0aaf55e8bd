// Package bus provides event bus implementations for the asynchronous
// calculation pipeline.
package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/ticpe/internal/domain"
)

var (
	ErrClosed        = errors.New("bus is closed")
	ErrInvalidTenant = errors.New("invalid tenantID")
	ErrBufferFull    = errors.New("subscriber buffer full")
)

// New creates a new event bus based on configuration.
// For community tier: returns ChannelBus.
// For pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// validateTenant rejects tenant IDs that cannot be a subject token.
func validateTenant(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidTenant)
	}
	if strings.ContainsAny(tenantID, ".*> \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}
	return nil
}

// newMessage builds the envelope of a publication. The active span, if any,
// is recorded so consumers can link their work to the publisher.
func newMessage(ctx context.Context, tenantID, topic string, payload []byte) *domain.Message {
	msg := &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.Metadata[domain.MetadataTraceID] = sc.TraceID().String()
	}
	return msg
}
