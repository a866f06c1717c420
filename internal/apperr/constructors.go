package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ValidNumberExamples lists accepted numeric input shapes.
var ValidNumberExamples = []string{"1000000", "1,000,000", "2.5K", "1.2M", "3B"}

// UnknownTable reports a table missing from the current store.
func UnknownTable(table string) *Error {
	return &Error{
		Kind:    KindSchema,
		Code:    CodeUnknownTable,
		Message: SchemaMismatchMessage,
		Details: map[string]string{"table": table},
	}
}

// UnknownColumn reports a field that is not a declared column.
func UnknownColumn(table, column string) *Error {
	return &Error{
		Kind:    KindSchema,
		Code:    CodeUnknownColumn,
		Message: SchemaMismatchMessage,
		Details: map[string]string{"table": table, "column": column},
	}
}

// UnknownIDColumn reports an id column that is not a declared column.
func UnknownIDColumn(table, column string) *Error {
	return &Error{
		Kind:    KindSchema,
		Code:    CodeUnknownIDColumn,
		Message: SchemaMismatchMessage,
		Details: map[string]string{"table": table, "id_column": column},
	}
}

// ForbiddenTarget reports an edit aimed at internal bookkeeping tables.
func ForbiddenTarget(table string) *Error {
	return &Error{
		Kind:    KindSchema,
		Code:    CodeForbiddenTarget,
		Message: "this record cannot be edited",
		Details: map[string]string{"table": table},
	}
}

// InvalidNumber reports numeric input that does not parse.
func InvalidNumber(input string) *Error {
	return &Error{
		Kind: KindValidation,
		Code: CodeInvalidNumber,
		Message: fmt.Sprintf("%q is not a valid number; try formats like %s",
			input, strings.Join(ValidNumberExamples, ", ")),
		Details: map[string]string{
			"input":    input,
			"examples": strings.Join(ValidNumberExamples, " "),
		},
	}
}

// InvalidTime reports a time bound that does not parse.
func InvalidTime(input string, cause error) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidTime,
		Message: fmt.Sprintf("%q is not a valid time; use YYYY-MM-DD or RFC 3339", input),
		Details: map[string]string{"input": input},
		Cause:   cause,
	}
}

// BatchTooLarge reports an edit batch over the configured limit.
func BatchTooLarge(size, limit int) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeBatchTooLarge,
		Message: fmt.Sprintf("too many changes at once (%d); split them into batches of at most %d", size, limit),
		Details: map[string]string{"size": fmt.Sprint(size), "limit": fmt.Sprint(limit)},
	}
}

// EmptyLabel reports a blank actor label.
func EmptyLabel() *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeEmptyLabel,
		Message: "your name cannot be empty",
	}
}

// LabelRequired reports a write attempted before the actor label is set.
func LabelRequired() *Error {
	return &Error{
		Kind:    KindPermission,
		Code:    CodeLabelRequired,
		Message: "set your name before making changes",
	}
}

// RecordNotFound reports an edit whose target row does not exist.
func RecordNotFound(table, idColumn, recordID string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeRecordNotFound,
		Message: "the record was not found; it may have been deleted",
		Details: map[string]string{"table": table, "id_column": idColumn, "record_id": recordID},
	}
}

// NotFound reports a missing entity or snapshot.
func NotFound(what, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", what),
		Details: map[string]string{"id": id},
	}
}

// DigestMismatch reports a snapshot payload that no longer matches its digest.
func DigestMismatch(snapshotID string) *Error {
	return &Error{
		Kind:    KindStorage,
		Code:    CodeDigestMismatch,
		Message: "the saved snapshot is damaged",
		Details: map[string]string{"snapshot_id": snapshotID},
	}
}

// Storage wraps a driver or transaction failure. Errors already in the
// taxonomy pass through unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{
		Kind:    KindStorage,
		Code:    CodeStorageFailure,
		Message: "the change could not be saved; try again",
		Details: map[string]string{"op": op},
		Cause:   err,
	}
}
