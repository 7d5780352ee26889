// Package validator implements the second pipeline stage: it consumes
// DiagnosisRecords, applies the keyword/risk policy, and publishes a
// ValidationRecord downstream only when the command is approved.
// Rejections are terminal outcomes, logged with their reason.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/triagent/bus"
	"github.com/c360studio/triagent/triage"
	"github.com/nats-io/nats.go/jetstream"
)

// noCommandSentinel goes on the wire when a diagnosis carried no
// command at all.
const noCommandSentinel = "echo 'no command'"

// Deps are the collaborators a validator component needs.
type Deps struct {
	Bus    *bus.Bus
	Logger *slog.Logger
}

// Component implements the validator processor.
type Component struct {
	config   Config
	bus      *bus.Bus
	logger   *slog.Logger
	keywords *keywordSet

	consumer jetstream.Consumer

	// Lifecycle.
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc

	// Metrics.
	recordsProcessed atomic.Int64
	approvedCount    atomic.Int64
	rejectedCount    atomic.Int64
	publishFailures  atomic.Int64
}

// New constructs a validator Component. The keyword set is parsed once
// here; when a keyword file is configured its contents take precedence
// and are hot-reloaded while the component runs.
func New(cfg Config, deps Deps) (*Component, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "validator")

	keywords := ParseKeywords(cfg.ApprovedKeywords)
	logger.Info("Approved keywords configured", "count", len(keywords))

	return &Component{
		config:   cfg,
		bus:      deps.Bus,
		logger:   logger,
		keywords: newKeywordSet(keywords),
	}, nil
}

// Keywords returns the current approved-keyword snapshot.
func (c *Component) Keywords() []string {
	return c.keywords.get()
}

// Start begins consuming diagnosis records.
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

	consumer, err := c.bus.Consumer(subCtx, c.config.StreamName, c.config.ConsumerName, c.config.InputSubject, 60*time.Second)
	if err != nil {
		c.rollbackStart(cancel)
		return err
	}
	c.consumer = consumer

	if c.config.KeywordFile != "" {
		watcher, err := newKeywordWatcher(c.config.KeywordFile, c.keywords, c.logger)
		if err != nil {
			c.logger.Warn("Keyword file watch unavailable, using static set",
				"path", c.config.KeywordFile,
				"error", err)
		} else {
			watcher.reload()
			go watcher.run(subCtx)
		}
	}

	go c.consumeLoop(subCtx)

	c.logger.Info("validator started",
		"stream", c.config.StreamName,
		"subject", c.config.InputSubject)
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

	c.logger.Info("validator stopped",
		"records_processed", c.recordsProcessed.Load(),
		"approved", c.approvedCount.Load(),
		"rejected", c.rejectedCount.Load(),
		"publish_failures", c.publishFailures.Load())
}

// consumeLoop fetches diagnosis records until the context is cancelled.
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
			if ackErr := msg.Ack(); ackErr != nil {
				c.logger.Warn("Failed to ACK message", "error", ackErr)
			}
			c.logger.Debug("Invocation finished", "status", status.Code)
		}
	}
}

// Handle processes one diagnosis record and returns the invocation
// status. Exposed for direct invocation in tests. Re-delivery of the
// same record yields the same decision: evaluation is pure and the
// only varying outputs are the fresh id and timestamp.
func (c *Component) Handle(ctx context.Context, data []byte) triage.Status {
	c.recordsProcessed.Add(1)

	diagnosis := decodeDiagnosis(bus.ExtractPayload(data))
	c.logger.Info("Received diagnosis",
		"id", diagnosis.ID,
		"fix_type", diagnosis.FixType,
		"risk", diagnosis.Risk,
		"command", diagnosis.Command)

	record := c.Validate(diagnosis)

	if !record.Approved {
		c.rejectedCount.Add(1)
		c.logger.Info("Rejected fix",
			"id", record.ID,
			"diagnosis_id", record.DiagnosisID,
			"reason", record.Reason)
		return triage.Status{Code: triage.StatusRejected, Reason: record.Reason}
	}

	c.approvedCount.Add(1)

	payload, err := json.Marshal(record)
	if err != nil {
		c.publishFailures.Add(1)
		c.logger.Error("Failed to marshal validation record", "error", err, "id", record.ID)
		return triage.Status{Code: triage.StatusPublishFailed, Error: err.Error()}
	}

	if err := c.bus.Publish(ctx, c.config.OutputSubject, payload); err != nil {
		c.publishFailures.Add(1)
		c.logger.Error("Publish failed, approved record dropped",
			"error", err,
			"record", string(payload))
		return triage.Status{Code: triage.StatusPublishFailed, Error: err.Error()}
	}

	c.logger.Info("Published approved fix",
		"id", record.ID,
		"command", record.Command,
		"reason", record.Reason)
	return triage.Status{Code: triage.StatusApproved, Reason: record.Reason}
}

// Validate evaluates the policy for a diagnosis and builds the
// resulting ValidationRecord.
func (c *Component) Validate(diagnosis *triage.DiagnosisRecord) *triage.ValidationRecord {
	decision := Evaluate(diagnosis.Command, diagnosis.Risk, c.keywords.get())

	command := diagnosis.Command
	if command == "" {
		command = noCommandSentinel
	}

	return &triage.ValidationRecord{
		ID:          triage.NewID("rem"),
		DiagnosisID: orUnknownID(diagnosis.ID),
		Command:     command,
		FixType:     diagnosis.FixType,
		Risk:        diagnosis.Risk,
		Confidence:  diagnosis.Confidence,
		Approved:    decision.Approved,
		Reason:      decision.Reason,
		Metadata:    diagnosis.Metadata,
		Timestamp:   time.Now().UTC(),
	}
}

// decodeDiagnosis parses a diagnosis payload, degrading missing or
// malformed fields to conservative defaults: unclassifiable input must
// be rejectable, not crash the stage.
func decodeDiagnosis(payload []byte) *triage.DiagnosisRecord {
	var record triage.DiagnosisRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		record = triage.DiagnosisRecord{}
	}
	if record.FixType == "" {
		record.FixType = triage.FixTypeOther
	}
	if record.Risk == "" {
		record.Risk = triage.RiskHigh
	}
	return &record
}

func orUnknownID(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}
