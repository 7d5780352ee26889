// Package remediator implements the final pipeline stage: it consumes
// approved ValidationRecords, re-checks command safety independently
// of upstream approval, executes the command under strict bounds, and
// logs the terminal ExecutionResult. Nothing is republished: the
// result is the end of the pipeline.
package remediator

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

// Deps are the collaborators a remediator component needs.
type Deps struct {
	Bus    *bus.Bus
	Logger *slog.Logger

	// OnResult, when set, observes every terminal ExecutionResult.
	// Used by the analytics observer; must not block.
	OnResult func(*triage.ExecutionResult)
}

// Component implements the remediator processor.
type Component struct {
	config   Config
	bus      *bus.Bus
	logger   *slog.Logger
	executor *Executor
	onResult func(*triage.ExecutionResult)

	consumer jetstream.Consumer

	// Lifecycle.
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc

	// Metrics.
	tasksProcessed atomic.Int64
	executed       atomic.Int64
	skipped        atomic.Int64
	rejected       atomic.Int64
}

// New constructs a remediator Component.
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

	return &Component{
		config:   cfg,
		bus:      deps.Bus,
		logger:   logger.With("component", "remediator"),
		executor: NewExecutor(cfg.WorkDir),
		onResult: deps.OnResult,
	}, nil
}

// Start begins consuming validation records.
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

	// Ack wait must outlast the longest execution so in-flight work is
	// not redelivered mid-run.
	ackWait := c.config.NpmTimeout + time.Minute
	consumer, err := c.bus.Consumer(subCtx, c.config.StreamName, c.config.ConsumerName, c.config.InputSubject, ackWait)
	if err != nil {
		c.rollbackStart(cancel)
		return err
	}
	c.consumer = consumer

	go c.consumeLoop(subCtx)

	c.logger.Info("remediator started",
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

// Stop gracefully stops the component. A command already running is
// not cancelled beyond its own timeout firing.
func (c *Component) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	c.logger.Info("remediator stopped",
		"tasks_processed", c.tasksProcessed.Load(),
		"executed", c.executed.Load(),
		"skipped", c.skipped.Load(),
		"rejected", c.rejected.Load())
}

// consumeLoop fetches validation records until the context is cancelled.
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
			// All outcomes are terminal, including failed executions:
			// command execution is not deduplicated and a redelivered
			// task would run the command again.
			if ackErr := msg.Ack(); ackErr != nil {
				c.logger.Warn("Failed to ACK message", "error", ackErr)
			}
			c.logger.Debug("Invocation finished", "status", status.Code)
		}
	}
}

// Handle processes one validation record through the gate sequence and
// returns the invocation status. Exposed for direct invocation in tests.
func (c *Component) Handle(ctx context.Context, data []byte) triage.Status {
	c.tasksProcessed.Add(1)

	task := decodeTask(bus.ExtractPayload(data))
	c.logger.Info("Received remediation task",
		"id", task.ID,
		"fix_type", task.FixType,
		"risk", task.Risk,
		"approved", task.Approved,
		"command", task.Command)

	// Gate 1: the record must be approved. Defensive: unapproved
	// records are not published to this topic in the first place.
	if !task.Approved {
		c.skipped.Add(1)
		c.logger.Info("Task not approved, skipping", "id", task.ID)
		return triage.Status{Code: triage.StatusSkipped, Reason: "Not approved"}
	}

	// Gate 2: there must be something to execute.
	if task.Command == "" || task.Command == triage.ManualReviewCommand {
		c.skipped.Add(1)
		c.logger.Info("No valid command to execute", "id", task.ID)
		return triage.Status{Code: triage.StatusSkipped, Reason: "No valid command"}
	}

	// Gate 3: only low-risk commands execute automatically, regardless
	// of upstream approval.
	if task.Risk != triage.RiskLow {
		c.rejected.Add(1)
		reason := fmt.Sprintf("Risk level %s requires manual approval", task.Risk)
		c.logger.Info("Risk gate rejected task", "id", task.ID, "risk", task.Risk)
		return triage.Status{Code: triage.StatusRejected, Reason: reason}
	}

	// Gate 4: independent safety classification.
	safe, safetyReason := CheckSafety(task.Command)
	if !safe {
		c.rejected.Add(1)
		c.logger.Info("Safety check failed",
			"id", task.ID,
			"command", task.Command,
			"reason", safetyReason)
		return triage.Status{Code: triage.StatusRejected, Reason: safetyReason}
	}
	c.logger.Debug("Safety check passed", "id", task.ID, "reason", safetyReason)

	result := c.execute(ctx, task)
	c.executed.Add(1)

	// The result is terminal: persisted via the log, never republished.
	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte(fmt.Sprintf("%+v", result))
	}
	if result.Success {
		c.logger.Info("Fix executed successfully",
			"id", result.ID,
			"task_id", result.TaskID,
			"result", string(resultJSON))
	} else {
		c.logger.Warn("Fix execution failed",
			"id", result.ID,
			"task_id", result.TaskID,
			"result", string(resultJSON))
	}

	if c.onResult != nil {
		c.onResult(result)
	}

	if result.Success {
		return triage.Status{Code: triage.StatusExecuted}
	}
	return triage.Status{Code: triage.StatusFailed, Reason: result.Stderr}
}

// execute runs the command with the fix-type-appropriate timeout and
// builds the terminal result record.
func (c *Component) execute(ctx context.Context, task *triage.ValidationRecord) *triage.ExecutionResult {
	timeout := c.config.DefaultTimeout
	if task.FixType == triage.FixTypeNpm {
		timeout = c.config.NpmTimeout
	}

	c.logger.Info("Executing command",
		"id", task.ID,
		"command", task.Command,
		"timeout", timeout)

	started := time.Now().UTC()
	exec := c.executor.Run(ctx, task.Command, timeout)

	return &triage.ExecutionResult{
		ID:        triage.NewID("exec"),
		TaskID:    orUnknownID(task.ID),
		Command:   task.Command,
		FixType:   task.FixType,
		Risk:      task.Risk,
		Success:   exec.Success,
		Stdout:    exec.Stdout,
		Stderr:    exec.Stderr,
		StartedAt: started,
		EndedAt:   time.Now().UTC(),
		Metadata:  task.Metadata,
	}
}

// decodeTask parses a validation record payload with conservative
// defaults for malformed input: an undecodable task must fail the
// gates, not crash the stage.
func decodeTask(payload []byte) *triage.ValidationRecord {
	var record triage.ValidationRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		record = triage.ValidationRecord{}
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
