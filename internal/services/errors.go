package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrorKind classifies a failure for retry and triage decisions.
type ErrorKind string

const (
	ErrorKindTransient     ErrorKind = "transient"
	ErrorKindStructural    ErrorKind = "structural"
	ErrorKindNotFound      ErrorKind = "not_found"
	ErrorKindIO            ErrorKind = "io"
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindUnknown       ErrorKind = "unknown"
)

var (
	ErrTransient     = errors.New("transient failure")
	ErrStructural    = errors.New("structural mismatch")
	ErrNotFound      = errors.New("not found")
	ErrIO            = errors.New("persistence failure")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
)

// Operator-facing error codes recorded as the prefix of an item's last error.
const (
	CodeNoData     = "D"
	CodeStructural = "I"
	CodeNotFound   = "V"
	CodePartial    = "P"
	CodeOther      = "O"
	CodeIO         = "F"
)

// Error is the typed failure returned by collaborators. The marker keeps
// errors.Is working against the sentinels above.
type Error struct {
	Kind      ErrorKind
	Code      string
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error

	marker error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.marker, detail)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.Cause}
}

// ErrorKind reports the classification as a plain string.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	kind := kindForMarker(marker)
	return &Error{
		Kind:      kind,
		Code:      defaultCode(kind),
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Hint:      defaultHint(kind),
		Cause:     err,
		marker:    marker,
	}
}

// WithCode returns a copy of err carrying the given operator code. Errors not
// built by Wrap are wrapped as transient first.
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if !errors.As(err, &typed) {
		return &Error{Kind: ErrorKindTransient, Code: code, Hint: defaultHint(ErrorKindTransient), Cause: err, marker: ErrTransient}
	}
	clone := *typed
	clone.Code = code
	return &clone
}

// WithHint returns a copy of err carrying an operator hint.
func WithHint(err error, hint string) error {
	var typed *Error
	if err == nil || !errors.As(err, &typed) {
		return err
	}
	clone := *typed
	clone.Hint = strings.TrimSpace(hint)
	return &clone
}

// ErrorDetails is the flattened view of an error used for structured logging.
type ErrorDetails struct {
	Kind       ErrorKind
	Code       string
	Stage      string
	Operation  string
	Message    string
	Hint       string
	DetailPath string
	Cause      error
}

// Details extracts classification fields from err.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var typed *Error
	if errors.As(err, &typed) {
		return ErrorDetails{
			Kind:      typed.Kind,
			Code:      typed.Code,
			Stage:     typed.Stage,
			Operation: typed.Operation,
			Message:   typed.Message,
			Hint:      typed.Hint,
			Cause:     typed.Cause,
		}
	}
	kind := KindOf(err)
	return ErrorDetails{
		Kind: kind,
		Code: defaultCode(kind),
		Hint: defaultHint(kind),
	}
}

// KindOf classifies any error. Explicit kinds win; well-known network and
// timeout failures are transient; everything else is unknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	for _, marker := range []error{ErrStructural, ErrNotFound, ErrIO, ErrConfiguration, ErrValidation, ErrTransient} {
		if errors.Is(err, marker) {
			return kindForMarker(marker)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrorKindTransient
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return ErrorKindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorKindTransient
	}
	return ErrorKindUnknown
}

// CodeOf returns the operator code for err.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) && typed.Code != "" {
		return typed.Code
	}
	return defaultCode(KindOf(err))
}

// FailureMessage renders err as "<code>: <message>" for the tracker.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	return CodeOf(err) + ": " + strings.TrimSpace(err.Error())
}

func kindForMarker(marker error) ErrorKind {
	switch {
	case errors.Is(marker, ErrStructural):
		return ErrorKindStructural
	case errors.Is(marker, ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(marker, ErrIO):
		return ErrorKindIO
	case errors.Is(marker, ErrConfiguration):
		return ErrorKindConfiguration
	case errors.Is(marker, ErrValidation):
		return ErrorKindValidation
	case errors.Is(marker, ErrTransient):
		return ErrorKindTransient
	default:
		return ErrorKindUnknown
	}
}

func defaultCode(kind ErrorKind) string {
	switch kind {
	case ErrorKindTransient:
		return CodeNoData
	case ErrorKindStructural:
		return CodeStructural
	case ErrorKindNotFound:
		return CodeNotFound
	case ErrorKindIO:
		return CodeIO
	default:
		return CodeOther
	}
}

func defaultHint(kind ErrorKind) string {
	switch kind {
	case ErrorKindTransient:
		return "upstream unavailable or rate limiting; the item will be retried"
	case ErrorKindStructural:
		return "upstream payload changed shape; check extraction paths"
	case ErrorKindNotFound:
		return "upstream has nothing under this identifier"
	case ErrorKindIO:
		return "check output directory permissions and database connectivity"
	case ErrorKindConfiguration:
		return "review the configuration file"
	case ErrorKindValidation:
		return "check the supplied identifiers"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
