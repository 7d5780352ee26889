// Package analytics is a passive observability tap on the pipeline
// topics. It subscribes alongside the durable consumers without
// joining them, classifies each record it sees, and exports Prometheus
// metrics. Losing an observation is acceptable; the durable pipeline
// is unaffected by anything this package does.
package analytics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/triagent/bus"
	"github.com/c360studio/triagent/triage"
	"github.com/nats-io/nats.go"
)

// alertThreshold is the anomaly score above which a predictive alert
// is logged.
const alertThreshold = 0.7

// Config holds the subjects the observer taps.
type Config struct {
	FailureSubject     string
	ValidationSubject  string
	RemediationSubject string
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.FailureSubject == "" || c.ValidationSubject == "" || c.RemediationSubject == "" {
		return fmt.Errorf("all three subjects are required")
	}
	return nil
}

// Deps are the collaborators the observer needs.
type Deps struct {
	Bus    *bus.Bus
	Logger *slog.Logger
}

// Component observes pipeline traffic and exports metrics.
type Component struct {
	config Config
	bus    *bus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	subs    []*nats.Subscription
}

// New constructs the analytics observer.
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
		config: cfg,
		bus:    deps.Bus,
		logger: logger.With("component", "analytics"),
	}, nil
}

// Start attaches core subscriptions to the pipeline subjects.
func (c *Component) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("component already running")
	}

	taps := []struct {
		subject string
		handler func([]byte)
	}{
		{c.config.FailureSubject, c.observeFailure},
		{c.config.ValidationSubject, c.observeDiagnosis},
		{c.config.RemediationSubject, c.observeValidation},
	}

	for _, tap := range taps {
		handler := tap.handler
		sub, err := c.bus.Observe(tap.subject, func(_ string, data []byte) {
			handler(bus.ExtractPayload(data))
		})
		if err != nil {
			c.unsubscribeLocked()
			return err
		}
		c.subs = append(c.subs, sub)
	}

	c.running = true
	c.logger.Info("analytics observer started",
		"subjects", []string{c.config.FailureSubject, c.config.ValidationSubject, c.config.RemediationSubject})
	return nil
}

// Stop detaches the subscriptions.
func (c *Component) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribeLocked()
	c.running = false
	c.logger.Info("analytics observer stopped")
}

func (c *Component) unsubscribeLocked() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("Failed to unsubscribe", "error", err)
		}
	}
	c.subs = nil
}

// observeFailure counts raw failure events entering the pipeline.
func (c *Component) observeFailure(payload []byte) {
	recordsObserved.WithLabelValues("failure", "received").Inc()

	var event triage.FailureEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		errorTypes.WithLabelValues("failure", "unknown").Inc()
		return
	}
	if event.Error != "" {
		errorTypes.WithLabelValues("failure", ErrorType(event.Error)).Inc()
	}
}

// observeDiagnosis classifies diagnoser output.
func (c *Component) observeDiagnosis(payload []byte) {
	var record triage.DiagnosisRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		recordsObserved.WithLabelValues("diagnoser", "undecodable").Inc()
		return
	}

	outcome := "diagnosed"
	if record.FixType == triage.FixTypeManualReview {
		outcome = "manual_review"
	}
	recordsObserved.WithLabelValues("diagnoser", outcome).Inc()
	fixTypes.WithLabelValues(string(record.FixType), string(record.Risk)).Inc()
	diagnosisConfidence.Observe(record.Confidence)

	c.score("diagnoser", anomalyInputs{
		failed:        record.FixType == triage.FixTypeManualReview,
		confidence:    record.Confidence,
		hasConfidence: true,
		highRisk:      record.Risk == triage.RiskHigh,
	}, record.ID)
}

// observeValidation classifies validator output. Only approved records
// travel on this subject, so the outcome label is informational rather
// than an approval rate.
func (c *Component) observeValidation(payload []byte) {
	var record triage.ValidationRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		recordsObserved.WithLabelValues("validator", "undecodable").Inc()
		return
	}

	outcome := "approved"
	if !record.Approved {
		outcome = "rejected"
	}
	recordsObserved.WithLabelValues("validator", outcome).Inc()

	c.score("validator", anomalyInputs{
		failed:        !record.Approved,
		confidence:    record.Confidence,
		hasConfidence: true,
		highRisk:      record.Risk == triage.RiskHigh,
	}, record.ID)
}

// ObserveExecution records a terminal remediation outcome. Execution
// results never travel the bus, so the remediator hands them over
// directly.
func (c *Component) ObserveExecution(result *triage.ExecutionResult) {
	outcome := "executed"
	if !result.Success {
		outcome = "failed"
		errorTypes.WithLabelValues("remediator", ErrorType(result.Stderr)).Inc()
	}
	recordsObserved.WithLabelValues("remediator", outcome).Inc()

	c.score("remediator", anomalyInputs{
		failed: !result.Success,
	}, result.ID)
}

func (c *Component) score(stage string, in anomalyInputs, recordID string) {
	score := anomalyScore(in)
	anomalyScores.Observe(score)

	if score > alertThreshold {
		predictiveAlerts.WithLabelValues(stage).Inc()
		c.logger.Warn("PREDICTIVE ALERT",
			"stage", stage,
			"record_id", recordID,
			"anomaly_score", score,
			"prediction", fmt.Sprintf("High likelihood of %s issues based on recent patterns", stage),
			"timestamp", time.Now().UTC().Format(time.RFC3339))
	}
}
