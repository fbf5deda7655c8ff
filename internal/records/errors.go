package records

import (
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var noOpLogger = zap.NewNop()

// IsDuplicate reports whether err is a unique constraint violation.
// Dialects that do not translate errors are matched on their message.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := err.Error()
	return strings.Contains(message, "UNIQUE constraint failed") ||
		strings.Contains(message, "duplicate key value")
}

// StoreError wraps a store failure, classifying unique violations as conflicts.
func StoreError(operation, reason string, err error) error {
	if IsDuplicate(err) {
		return apperror.New(operation, "duplicate", apperror.ErrConflict, err)
	}
	return apperror.New(operation, reason, apperror.ErrStoreFailure, err)
}

// LoggerOrDefault returns logger or a no-op logger when nil.
func LoggerOrDefault(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return noOpLogger
	}
	return logger
}

// LogError writes a structured service failure entry.
func LogError(logger *zap.Logger, operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	LoggerOrDefault(logger).Error("service error", attrs...)
}
