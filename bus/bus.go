// Package bus provides the message transport between pipeline stages:
// NATS JetStream publish and durable pull consumption addressed by
// named topics. Delivery is at-least-once; stages must tolerate
// redelivery of the same message.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Bus wraps a NATS connection with the JetStream context the stages
// publish and consume through. Construct once and share; the
// connection is safe for concurrent use.
type Bus struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// Option configures a Bus connection.
type Option func(*options)

type options struct {
	name          string
	logger        *slog.Logger
	maxReconnects int
	reconnectWait time.Duration
}

// WithName sets the NATS connection name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxReconnects sets the reconnect attempt limit.
func WithMaxReconnects(n int) Option {
	return func(o *options) { o.maxReconnects = n }
}

// Connect establishes a NATS connection and JetStream context.
func Connect(_ context.Context, url string, opts ...Option) (*Bus, error) {
	o := &options{
		name:          "triagent",
		logger:        slog.Default(),
		maxReconnects: 10,
		reconnectWait: time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url,
		nats.Name(o.name),
		nats.MaxReconnects(o.maxReconnects),
		nats.ReconnectWait(o.reconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get JetStream context: %w", err)
	}

	return &Bus{nc: nc, js: js, logger: o.logger}, nil
}

// EnsureStream creates or updates the stream holding the pipeline topics.
func (b *Bus) EnsureStream(ctx context.Context, name string, subjects []string) error {
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

// Publish writes a payload to a subject through JetStream.
// The call is synchronous; a failure means the record was not durably
// stored and it is the caller's decision whether to degrade or abort.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := b.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Consumer creates or updates a durable pull consumer filtered to one
// subject. ackWait should exceed the stage's worst-case handling time
// so in-flight messages are not redelivered mid-execution.
func (b *Bus) Consumer(ctx context.Context, stream, durable, subject string, ackWait time.Duration) (jetstream.Consumer, error) {
	s, err := b.js.Stream(ctx, stream)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", stream, err)
	}

	consumer, err := s.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    3,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", durable, err)
	}
	return consumer, nil
}

// Observe attaches a core NATS subscription to a subject pattern.
// Used by passive observers that should not participate in the durable
// delivery of pipeline records.
func (b *Bus) Observe(subject string, handler func(subject string, data []byte)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// Close drains and closes the underlying connection.
func (b *Bus) Close() {
	if err := b.nc.Drain(); err != nil {
		b.logger.Warn("Failed to drain NATS connection", "error", err)
		b.nc.Close()
	}
}
