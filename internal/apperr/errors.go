package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the coarse error category surfaced to callers.
type Kind string

const (
	// KindSchema covers unknown tables, columns, id columns and forbidden targets.
	KindSchema Kind = "SchemaError"

	// KindValidation covers malformed user input.
	KindValidation Kind = "ValidationError"

	// KindNotFound covers missing records and snapshots.
	KindNotFound Kind = "NotFoundError"

	// KindPermission covers writes attempted without an actor label.
	KindPermission Kind = "PermissionError"

	// KindStorage covers transaction and driver failures.
	KindStorage Kind = "StorageError"
)

// Code identifies the specific failure within a Kind.
type Code string

const (
	CodeUnknownTable    Code = "UNKNOWN_TABLE"
	CodeUnknownColumn   Code = "UNKNOWN_COLUMN"
	CodeUnknownIDColumn Code = "UNKNOWN_ID_COLUMN"
	CodeForbiddenTarget Code = "FORBIDDEN_TARGET"
	CodeInvalidNumber   Code = "INVALID_NUMBER"
	CodeInvalidTime     Code = "INVALID_TIME"
	CodeBatchTooLarge   Code = "BATCH_TOO_LARGE"
	CodeEmptyLabel      Code = "EMPTY_LABEL"
	CodeRecordNotFound  Code = "RECORD_NOT_FOUND"
	CodeNotFound        Code = "NOT_FOUND"
	CodeLabelRequired   Code = "LABEL_REQUIRED"
	CodeStorageFailure  Code = "STORAGE_FAILURE"
	CodeDigestMismatch  Code = "DIGEST_MISMATCH"
)

// SchemaMismatchMessage is shown for every schema error. Column and table
// names stay in Details and Cause.
const SchemaMismatchMessage = "record no longer matches the current schema; reload and try again"

// Error pairs a sanitized user-facing message with the raw diagnostic cause.
type Error struct {
	Kind Kind
	Code Code

	// Message is safe to show to an end user.
	Message string

	// Details holds identifiers useful for diagnostics (table, column, input).
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error
}

// Error renders the diagnostic form including details and cause.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, e.Details[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns the sanitized message.
func (e *Error) UserMessage() string {
	return e.Message
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindStorage for errors outside the
// taxonomy.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindStorage
}

// CodeOf returns the Code of err, or CodeStorageFailure for errors outside
// the taxonomy.
func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return CodeStorageFailure
}

// UserMessage returns a sanitized message for any error.
func UserMessage(err error) string {
	if ae, ok := As(err); ok {
		return ae.Message
	}
	return "the operation could not be completed"
}

func isKind(err error, k Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == k
}

// IsSchema reports whether err is a schema error.
func IsSchema(err error) bool { return isKind(err, KindSchema) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsPermission reports whether err is a permission error.
func IsPermission(err error) bool { return isKind(err, KindPermission) }

// IsStorage reports whether err is a storage error.
func IsStorage(err error) bool { return isKind(err, KindStorage) }

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	ae, ok := As(err)
	return ok && ae.Code == code
}
