// Package metrics tracks the rolling-window quality gates that decide
// whether the trust and content-safety core is behaving within its
// acceptance criteria: rubric pass rate, reproducibility, policy-violation
// severity, and pipeline latency. Each gate evaluates over a bounded
// recent-history window rather than an all-time average, so a regression
// shows up quickly and an old incident eventually ages out.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/miethe/MeatyMusic-sub000/pkg/logger"
)

// GateState is the evaluated status of a single quality gate.
type GateState string

const (
	StatusPass    GateState = "pass"
	StatusFail    GateState = "fail"
	StatusUnknown GateState = "unknown"
)

// Gate identifies which of the four acceptance-criteria gates a status
// belongs to.
type Gate string

const (
	GateRubricPassRate   Gate = "A"
	GateReproducibility  Gate = "B"
	GatePolicyViolations Gate = "C"
	GateLatencyP95       Gate = "D"
)

// defaults mirror the acceptance criteria: rubric pass rate >=95%,
// reproducibility >=99%, zero high-severity policy violations in the
// window, and p95 latency across all phases <=60s.
const (
	defaultRubricPassTarget = 0.95
	defaultReproTarget      = 0.99
	defaultMaxHighSeverity  = 0
	defaultLatencyP95Ms     = 60000.0
	defaultWindowSize       = 200
	defaultMinSamples       = 10
	highSeverityCategoryA   = "strong"
	highSeverityCategoryB   = "extreme"
)

// Snapshot is one recorded metric observation. Metadata carries whatever
// context the caller tagged it with (genre, run ID, phase, ...) for later
// inspection; it never feeds into gate math.
type Snapshot struct {
	Timestamp time.Time
	Value     float64
	Metadata  map[string]interface{}
}

// GateStatus is the evaluated state of one quality gate at a point in
// time.
type GateStatus struct {
	Gate         Gate
	Name         string
	Status       GateState
	CurrentValue *float64
	TargetValue  float64
	Message      string
	LastUpdated  time.Time
}

// GateReport bundles all four gate evaluations plus an overall rollup:
// fail beats unknown beats pass, so a single red or unproven gate holds
// back the whole report.
type GateReport struct {
	OverallStatus GateState
	Gates         map[Gate]GateStatus
	Timestamp     time.Time
	Summary       string
}

// QualityGateMetrics accumulates rolling histories for the four
// acceptance-criteria gates and evaluates them on demand. All history
// slices are trimmed to windowSize on every append rather than kept as a
// true circular buffer, which keeps the trim logic identical across the
// four kinds of history and matches how the originating tracker does it.
type QualityGateMetrics struct {
	mu sync.RWMutex

	windowSize int
	minSamples int

	rubricPassHistory      []Snapshot
	reproducibilityHistory []Snapshot
	policyViolationHistory []Snapshot
	latencyHistory         map[string][]Snapshot

	log *logger.Logger
}

// New builds a QualityGateMetrics tracker with the default 200-sample
// window and a 10-sample minimum before any gate evaluates. log may be
// nil.
func New(log *logger.Logger) *QualityGateMetrics {
	return NewWithWindow(defaultWindowSize, defaultMinSamples, log)
}

// NewWithWindow builds a tracker with an explicit window size and
// minimum sample count, primarily for tests that want a gate to become
// decidable without 10+ calls.
func NewWithWindow(windowSize, minSamples int, log *logger.Logger) *QualityGateMetrics {
	return &QualityGateMetrics{
		windowSize:     windowSize,
		minSamples:     minSamples,
		latencyHistory: map[string][]Snapshot{},
		log:            log,
	}
}

func trim(history []Snapshot, windowSize int) []Snapshot {
	if len(history) <= windowSize {
		return history
	}
	return history[len(history)-windowSize:]
}

// TrackRubricPassRate records one Rubric Scorer outcome (Gate A).
func (m *QualityGateMetrics) TrackRubricPassRate(passed bool, genre string, totalScore, threshold float64) {
	value := 0.0
	if passed {
		value = 1.0
	}
	snapshot := Snapshot{
		Timestamp: time.Now().UTC(),
		Value:     value,
		Metadata: map[string]interface{}{
			"genre":       genre,
			"total_score": totalScore,
			"threshold":   threshold,
		},
	}

	m.mu.Lock()
	m.rubricPassHistory = trim(append(m.rubricPassHistory, snapshot), m.windowSize)
	size := len(m.rubricPassHistory)
	m.mu.Unlock()

	rubricPassGauge.WithLabelValues(genre).Set(value)
	if m.log != nil {
		m.log.Debug("metrics.rubric_pass_tracked", map[string]interface{}{
			"passed": passed, "genre": genre, "total_score": totalScore, "history_size": size,
		})
	}
}

// TrackReproducibility records one determinism-replay measurement (Gate
// B). rate is clamped to [0, 1].
func (m *QualityGateMetrics) TrackReproducibility(rate float64, runID string, replays int) {
	clamped := rate
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 1 {
		clamped = 1
	}
	if clamped != rate && m.log != nil {
		m.log.Warn("metrics.invalid_reproducibility_rate", map[string]interface{}{"rate": rate})
	}

	snapshot := Snapshot{
		Timestamp: time.Now().UTC(),
		Value:     clamped,
		Metadata:  map[string]interface{}{"run_id": runID, "replays": replays},
	}

	m.mu.Lock()
	m.reproducibilityHistory = trim(append(m.reproducibilityHistory, snapshot), m.windowSize)
	size := len(m.reproducibilityHistory)
	m.mu.Unlock()

	reproducibilityGauge.Set(clamped)
	if m.log != nil {
		m.log.Debug("metrics.reproducibility_tracked", map[string]interface{}{
			"rate": clamped, "run_id": runID, "history_size": size,
		})
	}
}

// ViolationCount is the shape TrackPolicyViolations needs from a policy
// check result: how many violations occurred per severity category.
type ViolationCount struct {
	Severity string
	Count    int
}

// TrackPolicyViolations records one validation run's violations, bucketed
// by severity (Gate C). "High severity" is strong+extreme, matching the
// Profanity Filter's own severity weighting.
func (m *QualityGateMetrics) TrackPolicyViolations(violations []ViolationCount, contentID string) {
	severityCounts := map[string]int{}
	total := 0
	for _, v := range violations {
		severityCounts[v.Severity] += v.Count
		total += v.Count
	}
	highSeverity := severityCounts[highSeverityCategoryA] + severityCounts[highSeverityCategoryB]

	snapshot := Snapshot{
		Timestamp: time.Now().UTC(),
		Value:     float64(highSeverity),
		Metadata: map[string]interface{}{
			"content_id":       contentID,
			"total_violations": total,
			"severity_counts":  severityCounts,
		},
	}

	m.mu.Lock()
	m.policyViolationHistory = trim(append(m.policyViolationHistory, snapshot), m.windowSize)
	size := len(m.policyViolationHistory)
	m.mu.Unlock()

	policyViolationsCounter.Add(float64(total))
	highSeverityViolationsCounter.Add(float64(highSeverity))
	if m.log != nil {
		m.log.Debug("metrics.policy_violations_tracked", map[string]interface{}{
			"content_id": contentID, "total_violations": total, "high_severity_count": highSeverity, "history_size": size,
		})
	}
}

// TrackLatency records one workflow phase's duration in milliseconds
// (Gate D). Negative durations are clamped to zero.
func (m *QualityGateMetrics) TrackLatency(durationMS float64, phase, runID string) {
	clamped := durationMS
	if clamped < 0 {
		clamped = 0
		if m.log != nil {
			m.log.Warn("metrics.invalid_latency", map[string]interface{}{"duration_ms": durationMS, "phase": phase})
		}
	}

	snapshot := Snapshot{
		Timestamp: time.Now().UTC(),
		Value:     clamped,
		Metadata:  map[string]interface{}{"phase": phase, "run_id": runID},
	}

	m.mu.Lock()
	m.latencyHistory[phase] = trim(append(m.latencyHistory[phase], snapshot), m.windowSize)
	size := len(m.latencyHistory[phase])
	m.mu.Unlock()

	latencyHistogram.WithLabelValues(phase).Observe(clamped)
	if m.log != nil {
		m.log.Debug("metrics.latency_tracked", map[string]interface{}{
			"phase": phase, "duration_ms": clamped, "run_id": runID, "history_size": size,
		})
	}
}

func (m *QualityGateMetrics) rubricPassRate() (float64, int) {
	recent := m.rubricPassHistory
	if len(recent) < m.minSamples {
		return 0, len(recent)
	}
	passed := 0
	for _, s := range recent {
		if s.Value == 1.0 {
			passed++
		}
	}
	return float64(passed) / float64(len(recent)), len(recent)
}

func (m *QualityGateMetrics) reproducibilityRate() (float64, int) {
	recent := m.reproducibilityHistory
	if len(recent) < m.minSamples {
		return 0, len(recent)
	}
	values := make([]float64, len(recent))
	for i, s := range recent {
		values[i] = s.Value
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, len(recent)
	}
	return mean, len(recent)
}

func (m *QualityGateMetrics) highSeverityViolations() (float64, int) {
	recent := m.policyViolationHistory
	if len(recent) < m.minSamples {
		return 0, len(recent)
	}
	total := 0.0
	for _, s := range recent {
		total += s.Value
	}
	return total, len(recent)
}

func (m *QualityGateMetrics) latencyP95() (float64, int) {
	var all []float64
	// Sort phase names so the aggregated sample order (and therefore any
	// tie-broken percentile) is deterministic across runs.
	phases := make([]string, 0, len(m.latencyHistory))
	for phase := range m.latencyHistory {
		phases = append(phases, phase)
	}
	sort.Strings(phases)
	for _, phase := range phases {
		for _, s := range m.latencyHistory[phase] {
			all = append(all, s.Value)
		}
	}
	if len(all) < m.minSamples {
		return 0, len(all)
	}
	p95, err := stats.Percentile(all, 95)
	if err != nil {
		return 0, len(all)
	}
	return p95, len(all)
}

// GetGateStatus evaluates all four quality gates against the current
// rolling histories and returns a combined report.
func (m *QualityGateMetrics) GetGateStatus() GateReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now().UTC()
	gates := map[Gate]GateStatus{}

	rubricRate, rubricSamples := m.rubricPassRate()
	gates[GateRubricPassRate] = buildGateStatus(
		GateRubricPassRate, "Gate A: Rubric Pass Rate", rubricSamples, m.minSamples,
		rubricRate, defaultRubricPassTarget, now, gteThreshold,
	)

	reproRate, reproSamples := m.reproducibilityRate()
	gates[GateReproducibility] = buildGateStatus(
		GateReproducibility, "Gate B: Reproducibility Rate", reproSamples, m.minSamples,
		reproRate, defaultReproTarget, now, gteThreshold,
	)

	highSeverity, violationSamples := m.highSeverityViolations()
	gates[GatePolicyViolations] = buildGateStatus(
		GatePolicyViolations, "Gate C: Policy Violations", violationSamples, m.minSamples,
		highSeverity, defaultMaxHighSeverity, now, lteThreshold,
	)

	p95, latencySamples := m.latencyP95()
	gates[GateLatencyP95] = buildGateStatus(
		GateLatencyP95, "Gate D: Latency P95", latencySamples, m.minSamples,
		p95, defaultLatencyP95Ms, now, lteThreshold,
	)

	for gate, status := range gates {
		gateStatusGauge.WithLabelValues(string(gate)).Set(statusToFloat(status.Status))
		if status.CurrentValue != nil {
			gateValueGauge.WithLabelValues(string(gate)).Set(*status.CurrentValue)
		}
	}

	overall := rollupStatus(gates)
	report := GateReport{
		OverallStatus: overall,
		Gates:         gates,
		Timestamp:     now,
		Summary:       summarize(gates),
	}

	if m.log != nil {
		m.log.Info("metrics.gate_status_calculated", map[string]interface{}{
			"overall_status": string(overall),
		})
	}

	return report
}

// comparator decides whether a gate's current value satisfies its
// target, so the same buildGateStatus helper serves both "higher is
// better" gates (pass rate, reproducibility) and "lower is better" gates
// (violations, latency).
type comparator func(current, target float64) bool

func gteThreshold(current, target float64) bool { return current >= target }
func lteThreshold(current, target float64) bool { return current <= target }

func buildGateStatus(gate Gate, name string, samples, minSamples int, current, target float64, now time.Time, cmp comparator) GateStatus {
	if samples < minSamples {
		return GateStatus{
			Gate:        gate,
			Name:        name,
			Status:      StatusUnknown,
			TargetValue: target,
			Message:     insufficientDataMessage(samples, minSamples),
			LastUpdated: now,
		}
	}

	status := StatusFail
	if cmp(current, target) {
		status = StatusPass
	}
	value := current
	return GateStatus{
		Gate:         gate,
		Name:         name,
		Status:       status,
		CurrentValue: &value,
		TargetValue:  target,
		Message:      gateMessage(name, current, target, status),
		LastUpdated:  now,
	}
}

func rollupStatus(gates map[Gate]GateStatus) GateState {
	hasFail, hasUnknown := false, false
	for _, g := range gates {
		switch g.Status {
		case StatusFail:
			hasFail = true
		case StatusUnknown:
			hasUnknown = true
		}
	}
	switch {
	case hasFail:
		return StatusFail
	case hasUnknown:
		return StatusUnknown
	default:
		return StatusPass
	}
}

func summarize(gates map[Gate]GateStatus) string {
	pass, fail, unknown := 0, 0, 0
	for _, g := range gates {
		switch g.Status {
		case StatusPass:
			pass++
		case StatusFail:
			fail++
		default:
			unknown++
		}
	}
	return formatSummary(pass, fail, unknown)
}

func statusToFloat(s GateState) float64 {
	switch s {
	case StatusPass:
		return 1
	case StatusFail:
		return 0
	default:
		return -1
	}
}

// Reset clears every rolling history. Intended for tests and for
// starting a fresh evaluation period.
func (m *QualityGateMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rubricPassHistory = nil
	m.reproducibilityHistory = nil
	m.policyViolationHistory = nil
	m.latencyHistory = map[string][]Snapshot{}
	if m.log != nil {
		m.log.Info("metrics.reset_complete", nil)
	}
}
