package convert

import (
	"fmt"
	"strings"
)

// BadRequestError marks input the caller must fix before retrying.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

type UnknownProfileError struct {
	Profile string
	Valid   []string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown prompt_version: %s (valid: %s)", e.Profile, strings.Join(e.Valid, ", "))
}

// UnparseableError is returned when the generator answered but neither
// section could be recovered from its text.
type UnparseableError struct {
	Preview  string
	Provider string
	Model    string
}

func (e *UnparseableError) Error() string {
	return "could not parse SFW/NSFW from model output"
}
