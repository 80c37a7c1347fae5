package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRubricPass(m *QualityGateMetrics, passed bool, n int) {
	for i := 0; i < n; i++ {
		m.TrackRubricPassRate(passed, "pop", 0.9, 0.75)
	}
}

func TestGateStatusUnknownBelowMinSamples(t *testing.T) {
	m := NewWithWindow(50, 10, nil)
	fillRubricPass(m, true, 5)

	report := m.GetGateStatus()
	require.Contains(t, report.Gates, GateRubricPassRate)
	assert.Equal(t, StatusUnknown, report.Gates[GateRubricPassRate].Status)
	assert.Equal(t, StatusUnknown, report.OverallStatus)
}

func TestGateARubricPassRatePassesAtTarget(t *testing.T) {
	m := NewWithWindow(50, 10, nil)
	fillRubricPass(m, true, 19)
	m.TrackRubricPassRate(false, "pop", 0.5, 0.75) // 19/20 = 0.95, meets the >=0.95 target

	report := m.GetGateStatus()
	gate := report.Gates[GateRubricPassRate]
	assert.Equal(t, StatusPass, gate.Status)
	require.NotNil(t, gate.CurrentValue)
	assert.InDelta(t, 0.95, *gate.CurrentValue, 0.0001)
}

func TestGateARubricPassRateFailsBelowTarget(t *testing.T) {
	m := NewWithWindow(50, 10, nil)
	fillRubricPass(m, true, 5)
	fillRubricPass(m, false, 5)

	report := m.GetGateStatus()
	assert.Equal(t, StatusFail, report.Gates[GateRubricPassRate].Status)
	assert.Equal(t, StatusFail, report.OverallStatus)
}

func TestGateBReproducibilityUsesMeanOfWindow(t *testing.T) {
	m := NewWithWindow(50, 10, nil)
	for i := 0; i < 9; i++ {
		m.TrackReproducibility(1.0, "run-1", 5)
	}
	m.TrackReproducibility(0.9, "run-1", 5) // mean = (9*1.0 + 0.9)/10 = 0.99

	report := m.GetGateStatus()
	gate := report.Gates[GateReproducibility]
	assert.Equal(t, StatusPass, gate.Status)
	assert.InDelta(t, 0.99, *gate.CurrentValue, 0.0001)
}

func TestTrackReproducibilityClampsOutOfRange(t *testing.T) {
	m := NewWithWindow(50, 1, nil)
	m.TrackReproducibility(1.5, "run-1", 1)
	report := m.GetGateStatus()
	assert.InDelta(t, 1.0, *report.Gates[GateReproducibility].CurrentValue, 0.0001)
}

func TestGateCPolicyViolationsFailsOnHighSeverity(t *testing.T) {
	m := NewWithWindow(50, 10, nil)
	for i := 0; i < 9; i++ {
		m.TrackPolicyViolations([]ViolationCount{{Severity: "mild", Count: 2}}, "content-1")
	}
	m.TrackPolicyViolations([]ViolationCount{{Severity: "strong", Count: 1}}, "content-2")

	report := m.GetGateStatus()
	gate := report.Gates[GatePolicyViolations]
	assert.Equal(t, StatusFail, gate.Status)
	assert.Equal(t, 1.0, *gate.CurrentValue)
}

func TestGateCPolicyViolationsPassesWithOnlyMildCounts(t *testing.T) {
	m := NewWithWindow(50, 10, nil)
	for i := 0; i < 10; i++ {
		m.TrackPolicyViolations([]ViolationCount{{Severity: "mild", Count: 3}}, "content-1")
	}
	report := m.GetGateStatus()
	gate := report.Gates[GatePolicyViolations]
	assert.Equal(t, StatusPass, gate.Status)
	assert.Equal(t, 0.0, *gate.CurrentValue)
}

func TestGateDLatencyP95AggregatesAcrossPhases(t *testing.T) {
	m := NewWithWindow(50, 10, nil)
	for i := 0; i < 5; i++ {
		m.TrackLatency(1000, "LYRICS", "run-1")
	}
	for i := 0; i < 5; i++ {
		m.TrackLatency(70000, "COMPOSE", "run-1")
	}

	report := m.GetGateStatus()
	gate := report.Gates[GateLatencyP95]
	assert.Equal(t, StatusFail, gate.Status)
	require.NotNil(t, gate.CurrentValue)
	assert.Greater(t, *gate.CurrentValue, 60000.0)
}

func TestTrackLatencyClampsNegativeDuration(t *testing.T) {
	m := NewWithWindow(50, 1, nil)
	m.TrackLatency(-5, "PLAN", "run-1")
	report := m.GetGateStatus()
	assert.Equal(t, 0.0, *report.Gates[GateLatencyP95].CurrentValue)
}

func TestResetClearsAllHistories(t *testing.T) {
	m := NewWithWindow(50, 1, nil)
	m.TrackRubricPassRate(true, "pop", 0.9, 0.75)
	m.TrackReproducibility(1.0, "run-1", 1)
	m.TrackLatency(100, "PLAN", "run-1")
	m.TrackPolicyViolations([]ViolationCount{{Severity: "mild", Count: 1}}, "content-1")

	m.Reset()
	report := m.GetGateStatus()
	for _, gate := range report.Gates {
		assert.Equal(t, StatusUnknown, gate.Status)
	}
}

func TestOverallStatusPassesWhenAllGatesPass(t *testing.T) {
	m := NewWithWindow(50, 10, nil)
	fillRubricPass(m, true, 10)
	for i := 0; i < 10; i++ {
		m.TrackReproducibility(1.0, "run-1", 1)
		m.TrackLatency(1000, "PLAN", "run-1")
		m.TrackPolicyViolations([]ViolationCount{{Severity: "mild", Count: 1}}, "content-1")
	}

	report := m.GetGateStatus()
	assert.Equal(t, StatusPass, report.OverallStatus)
	assert.Equal(t, "4 gates passing, 0 failing, 0 unknown", report.Summary)
}
