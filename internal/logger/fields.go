package logger

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldCohort is the structured log field key for the cohort identifier.
	FieldCohort = "cohort_id"
	// FieldModelVersion is the structured log field key for the matching model version.
	FieldModelVersion = "model_version"
	// FieldMode is the structured log field key for the matching mode.
	FieldMode = "mode"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RunFields returns the fields describing a matching run. A zero version is omitted.
func RunFields(cohortID string, modelVersion int, mode string) []zap.Field {
	version := ""
	if modelVersion > 0 {
		version = strconv.Itoa(modelVersion)
	}

	return StringFields(
		StringField{Key: FieldCohort, Value: cohortID},
		StringField{Key: FieldModelVersion, Value: version},
		StringField{Key: FieldMode, Value: mode},
	)
}

// WithRunFields attaches the run fields to the provided logger.
func WithRunFields(logger *zap.Logger, cohortID string, modelVersion int, mode string) *zap.Logger {
	return WithFields(logger, RunFields(cohortID, modelVersion, mode)...)
}
