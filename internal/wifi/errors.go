package wifi

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrParse is matched by every ParseFailure
	ErrParse = errors.New("parse failure")

	// ErrSourceUnavailable is returned when the metrics command fails or
	// produces no output
	ErrSourceUnavailable = errors.New("source unavailable")
)

// maxOffendingText bounds the text kept in a ParseFailure.
const maxOffendingText = 256

// ParseFailure describes a command output block that did not yield a reading.
type ParseFailure struct {
	Reason string
	Text   string
}

func newParseFailure(reason, text string) *ParseFailure {
	if len(text) > maxOffendingText {
		n := maxOffendingText
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n]
	}
	return &ParseFailure{Reason: reason, Text: text}
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure: %s", e.Reason)
}

func (e *ParseFailure) Is(target error) bool {
	return target == ErrParse
}

// RuntimeError is returned when the metrics command cannot be located.
type RuntimeError struct {
	msg string
}

func NewRuntimeError(msg string) *RuntimeError {
	return &RuntimeError{msg}
}

func (e *RuntimeError) Error() string {
	return e.msg
}

func (e *RuntimeError) Unwrap() error {
	return ErrSourceUnavailable
}
