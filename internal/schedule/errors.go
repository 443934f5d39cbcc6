package schedule

import (
	"errors"
	"fmt"
)

// ErrConfig marks an unusable schedule configuration.
var ErrConfig = errors.New("schedule: invalid configuration")

// ConfigError describes which part of the schedule configuration is unusable.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("schedule: invalid %s: %s", e.Field, e.Reason)
}

// Is lets callers match any ConfigError with errors.Is(err, ErrConfig).
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
