package logger

import (
	"testing"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerLevelOverride(t *testing.T) {
	t.Setenv("DD_LOG_LEVEL", "error")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	// Suppressed by the level; must not panic.
	l.Debugf("debug")
	l.Infof("info")
	l.Errorf("error")
}

func TestZerologLoggerIgnoresBadLevel(t *testing.T) {
	t.Setenv("DD_LOG_LEVEL", "loudest")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Infof("info")
}
