package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/domain"
	"github.com/fastygo/boatclosers/internal/metrics"
)

// Publisher fans transaction events out to other parties' sessions.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

const (
	// StreamName is the JetStream stream holding transaction events.
	StreamName = "BOATCLOSERS"

	// StreamRetention is how long events are retained.
	StreamRetention = 30 * 24 * time.Hour
)

// JetStreamPublisher publishes events to "<prefix>.<transactionId>.<event>".
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	prefix  string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewPublisher connects to NATS and ensures the stream exists.
func NewPublisher(url, prefix string, logger *zap.Logger, m *metrics.Metrics) (*JetStreamPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "boatclosers"
	}

	nc, err := nats.Connect(url,
		nats.Name("boatclosers-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, prefix: prefix, logger: logger, metrics: m}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized", zap.String("url", url), zap.String("stream", StreamName))
	return p, nil
}

func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	p.logger.Info("creating JetStream stream", zap.String("stream", StreamName))
	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Vessel sale transaction events",
		Subjects:    []string{p.prefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	return err
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event domain.Event) error {
	subject := Subject(p.prefix, event)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	start := time.Now()
	_, err = p.js.Publish(ctx, subject, data)
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordNATSPublish(event.Name, status, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published transaction event", zap.String("subject", subject), zap.String("event_id", event.ID))
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}

// Subject builds the subject an event is published on.
func Subject(prefix string, event domain.Event) string {
	return strings.Join([]string{prefix, event.TransactionID, event.Name}, ".")
}

// NoopPublisher is used when no NATS server is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }
func (NoopPublisher) Close() error                               { return nil }
