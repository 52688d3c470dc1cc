package assessment

import (
	"errors"
	"fmt"
)

var ErrInvalidAnswer = errors.New("invalid answer")

// ConfigurationError reports a malformed static catalog. It is raised while
// loading, never while scoring.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("catalog configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
