package logger

import "testing"

func TestNewDefaultsInstanceID(t *testing.T) {
	l := New("rowguard")
	if l.Component != "rowguard" {
		t.Fatalf("expected component rowguard, got %s", l.Component)
	}
	if l.InstanceID == "" {
		t.Fatal("expected non-empty instance id")
	}
}

func TestLoggingDoesNotPanic(t *testing.T) {
	l := New("test")
	l.Debug("debug message", nil)
	l.Info("info message", map[string]interface{}{"k": "v"})
	l.Warn("warn message", nil)
	l.Error("error message", nil, map[string]interface{}{"op": "get"})
	l.WithDuration("slow op", 5.2, nil)
}
