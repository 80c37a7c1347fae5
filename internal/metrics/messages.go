package metrics

import "fmt"

func insufficientDataMessage(samples, minSamples int) string {
	return fmt.Sprintf("Insufficient data (%d samples, need %d)", samples, minSamples)
}

func gateMessage(name string, current, target float64, status GateState) string {
	verdict := "within target"
	if status == StatusFail {
		verdict = "outside target"
	}
	return fmt.Sprintf("%s: %.4f (target %.4f) - %s", name, current, target, verdict)
}

func formatSummary(pass, fail, unknown int) string {
	return fmt.Sprintf("%d gates passing, %d failing, %d unknown", pass, fail, unknown)
}
