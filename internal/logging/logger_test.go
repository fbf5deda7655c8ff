package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestZapLevelParsesKnownNames(testContext *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":    zapcore.DebugLevel,
		" INFO ":   zapcore.InfoLevel,
		"warning":  zapcore.WarnLevel,
		"error":    zapcore.ErrorLevel,
		"":         zapcore.InfoLevel,
		"verbose?": zapcore.InfoLevel,
	}
	for input, expected := range cases {
		if got := zapLevel(input); got != expected {
			testContext.Fatalf("zapLevel(%q) = %v, want %v", input, got, expected)
		}
	}
}

func TestNewGormLoggerDiscardsWithoutZap(testContext *testing.T) {
	if NewGormLogger(nil, "debug") != gormlogger.Discard {
		testContext.Fatalf("expected discard logger when zap logger is nil")
	}
	if gormLevel("debug") != gormlogger.Info {
		testContext.Fatalf("expected debug to enable sql tracing")
	}
	if gormLevel("info") != gormlogger.Warn {
		testContext.Fatalf("expected info to log slow queries and warnings only")
	}
}

func TestNewLoggerBuilds(testContext *testing.T) {
	logger, err := NewLogger("debug")
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		testContext.Fatalf("expected debug level to be enabled")
	}
}
