// Package diagnoser implements the first pipeline stage: it consumes
// raw pipeline-failure events, obtains a free-text analysis from the
// model router, normalizes it into a DiagnosisRecord via ordered
// heuristic classification, and publishes the record downstream.
// Diagnosis failure is never fatal: a canned low-confidence fallback
// keeps the pipeline moving.
package diagnoser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/triagent/bus"
	"github.com/c360studio/triagent/llm"
	"github.com/c360studio/triagent/triage"
	"github.com/nats-io/nats.go/jetstream"
)

// aiResponseLimit bounds the raw model text stored on the record.
const aiResponseLimit = 200

// Deps are the collaborators a diagnoser component needs.
type Deps struct {
	Bus    *bus.Bus
	Router *llm.Router
	Logger *slog.Logger
}

// Component implements the diagnoser processor.
type Component struct {
	config Config
	bus    *bus.Bus
	router *llm.Router
	logger *slog.Logger

	consumer jetstream.Consumer

	// Lifecycle.
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc

	// Metrics.
	eventsProcessed atomic.Int64
	fallbacksUsed   atomic.Int64
	publishFailures atomic.Int64
}

// New constructs a diagnoser Component.
func New(cfg Config, deps Deps) (*Component, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if deps.Router == nil {
		return nil, fmt.Errorf("router is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Component{
		config: cfg,
		bus:    deps.Bus,
		router: deps.Router,
		logger: logger.With("component", "diagnoser"),
	}, nil
}

// Start begins consuming failure events.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	c.running = true
	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	ackWait := c.config.RouteTimeout + 30*time.Second
	consumer, err := c.bus.Consumer(subCtx, c.config.StreamName, c.config.ConsumerName, c.config.InputSubject, ackWait)
	if err != nil {
		c.rollbackStart(cancel)
		return err
	}
	c.consumer = consumer

	go c.consumeLoop(subCtx)

	c.logger.Info("diagnoser started",
		"stream", c.config.StreamName,
		"subject", c.config.InputSubject,
		"provider", c.config.Provider)
	return nil
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// Stop gracefully stops the component.
func (c *Component) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	c.logger.Info("diagnoser stopped",
		"events_processed", c.eventsProcessed.Load(),
		"fallbacks_used", c.fallbacksUsed.Load(),
		"publish_failures", c.publishFailures.Load())
}

// consumeLoop fetches failure events until the context is cancelled.
func (c *Component) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("Fetch timeout or error", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			status := c.Handle(ctx, msg.Data())
			// Every outcome is terminal for this message: even a
			// publish failure is acked so the transport does not turn
			// one broken downstream into a redelivery storm.
			if ackErr := msg.Ack(); ackErr != nil {
				c.logger.Warn("Failed to ACK message", "error", ackErr)
			}
			c.logger.Debug("Invocation finished", "status", status.Code)
		}
	}
}

// Handle processes one inbound failure event and returns the
// invocation status. Exposed for direct invocation in tests.
func (c *Component) Handle(ctx context.Context, data []byte) triage.Status {
	c.eventsProcessed.Add(1)

	event := decodeEvent(bus.ExtractPayload(data))
	c.logger.Info("Processing pipeline event",
		"build_status", event.BuildStatus,
		"step", event.Step,
		"repository", event.Repository)

	record := c.Diagnose(ctx, event)

	payload, err := json.Marshal(record)
	if err != nil {
		// Record types marshal cleanly; treat this as a publish failure.
		c.publishFailures.Add(1)
		c.logger.Error("Failed to marshal diagnosis", "error", err, "id", record.ID)
		return triage.Status{Code: triage.StatusPublishFailed, Error: err.Error()}
	}

	if err := c.bus.Publish(ctx, c.config.OutputSubject, payload); err != nil {
		c.publishFailures.Add(1)
		// Log the full record so the diagnosis is recoverable by hand.
		c.logger.Error("Publish failed, diagnosis dropped",
			"error", err,
			"record", string(payload))
		return triage.Status{Code: triage.StatusPublishFailed, Error: err.Error()}
	}

	c.logger.Info("Published diagnosis",
		"id", record.ID,
		"fix_type", record.FixType,
		"risk", record.Risk,
		"confidence", record.Confidence,
		"command", record.Command)
	return triage.Status{Code: triage.StatusOK}
}

// Diagnose obtains and normalizes the model analysis for an event.
func (c *Component) Diagnose(ctx context.Context, event *triage.FailureEvent) *triage.DiagnosisRecord {
	prompt := BuildPrompt(event)

	routeCtx, cancel := context.WithTimeout(ctx, c.config.RouteTimeout)
	defer cancel()

	var text string
	result, err := c.router.Route(routeCtx, prompt, llm.RouteOptions{
		Provider: c.config.Provider,
		Model:    c.config.Model,
	})
	if err != nil {
		// Soft fallback so downstream stages still observe a record.
		// The underlying error is embedded for traceability.
		c.fallbacksUsed.Add(1)
		text = fmt.Sprintf(
			"Diagnosis: Dependency conflict in npm install.\n"+
				"Command: npm install --legacy-peer-deps\n"+
				"(fallback due to AI error: %v)", err)
		c.logger.Warn("Model analysis failed, using fallback", "error", err)
	} else {
		text = result.Response
	}

	cls := triage.Classify(text)

	return &triage.DiagnosisRecord{
		ID:         triage.NewID("diag"),
		Diagnosis:  cls.Diagnosis,
		FixType:    cls.FixType,
		Command:    cls.Command,
		Risk:       cls.Risk,
		Confidence: cls.Confidence,
		Metadata:   triage.MetadataFrom(event),
		AIResponse: triage.Truncate(text, aiResponseLimit),
		Timestamp:  time.Now().UTC(),
	}
}

// decodeEvent parses a failure event payload, degrading to a raw-only
// event when the payload is not a structured event.
func decodeEvent(payload []byte) *triage.FailureEvent {
	var event triage.FailureEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return &triage.FailureEvent{Raw: string(payload)}
	}
	return &event
}
