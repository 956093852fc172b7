package model

import (
	"errors"
	"fmt"
)

// SchedulingError is raised for conditions that cannot be recovered from without
// fixing the input (malformed rooms, duplicate courses, infeasible models, ...)
type SchedulingError struct {
	Message     string
	Explanation string // Infeasibility report from the engine, if any
}

func (err *SchedulingError) Error() string {
	if err.Explanation != "" {
		return fmt.Sprintf("%v\n%v", err.Message, err.Explanation)
	}
	return err.Message
}

func schedulingErrorf(format string, args ...any) *SchedulingError {
	return &SchedulingError{Message: fmt.Sprintf(format, args...)}
}

// IsSchedulingError reports whether err (or any error it wraps) is a SchedulingError
func IsSchedulingError(err error) bool {
	var target *SchedulingError
	return errors.As(err, &target)
}
