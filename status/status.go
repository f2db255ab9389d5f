// Package status defines the stable error taxonomy reported by the ingestion core.
//
// Every validation or coercion failure is classified into exactly one Code.
// Callers should branch on the code (via CodeOf or errors.Is against the
// sentinel errors); the message is advisory and may change between releases.
package status

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a stable, numeric error classification.
//
// NOTE: values are part of the wire contract with the RPC layer; never renumber.
type Code int32

const (
	OK                      Code = 0
	EmptyInput              Code = 3001
	SyntaxError             Code = 3002
	ColumnNotFound          Code = 3003
	ColumnCountMismatch     Code = 3004
	MissingValue            Code = 3005
	TypeMismatch            Code = 3006
	DimensionMismatch       Code = 3007
	NotSupported            Code = 3008
	BatchTooLarge           Code = 3009
	TableNotExist           Code = 3010
	ValueOutOfRange         Code = 3011
	DuplicateTable          Code = 3012
	InvalidColumnDefinition Code = 3013
	DuplicateIndex          Code = 3014
	IndexNotExist           Code = 3015
	CommitFailed            Code = 3016
	Internal                Code = 3099
)

var codeNames = map[Code]string{
	OK:                      "OK",
	EmptyInput:              "EmptyInput",
	SyntaxError:             "SyntaxError",
	ColumnNotFound:          "ColumnNotFound",
	ColumnCountMismatch:     "ColumnCountMismatch",
	MissingValue:            "MissingValue",
	TypeMismatch:            "TypeMismatch",
	DimensionMismatch:       "DimensionMismatch",
	NotSupported:            "NotSupported",
	BatchTooLarge:           "BatchTooLarge",
	TableNotExist:           "TableNotExist",
	ValueOutOfRange:         "ValueOutOfRange",
	DuplicateTable:          "DuplicateTable",
	InvalidColumnDefinition: "InvalidColumnDefinition",
	DuplicateIndex:          "DuplicateIndex",
	IndexNotExist:           "IndexNotExist",
	CommitFailed:            "CommitFailed",
	Internal:                "Internal",
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int32(c))
}

// Codes returns every defined code in ascending order.
func Codes() []Code {
	return []Code{
		OK, EmptyInput, SyntaxError, ColumnNotFound, ColumnCountMismatch, MissingValue,
		TypeMismatch, DimensionMismatch, NotSupported, BatchTooLarge, TableNotExist,
		ValueOutOfRange, DuplicateTable, InvalidColumnDefinition, DuplicateIndex,
		IndexNotExist, CommitFailed, Internal,
	}
}

// Error is a classified failure.
//
// Row is the zero-based row index inside the rejected batch, or -1 when the
// failure is not tied to a row. Column is empty when not tied to a column.
type Error struct {
	Code   Code
	Msg    string
	Row    int
	Column string
	cause  error
}

// New creates an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg, Row: -1}
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Row: -1}
}

// Wrap classifies an underlying error. The cause stays reachable via errors.Unwrap.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{Code: code, Msg: msg, Row: -1, cause: err}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.String())
	if e.Row >= 0 {
		fmt.Fprintf(&sb, " at row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&sb, " column %q", e.Column)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same code.
// This makes the package sentinels usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// AtRow returns a copy of e attributed to the given row.
func (e *Error) AtRow(row int) *Error {
	c := *e
	c.Row = row
	return &c
}

// InColumn returns a copy of e attributed to the given column.
func (e *Error) InColumn(name string) *Error {
	c := *e
	c.Column = name
	return &c
}

// CodeOf extracts the code from err.
//
// nil maps to OK; errors that carry no classification map to Internal.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Internal
}

// Sentinels for errors.Is matching. Only the Code is compared.
var (
	ErrEmptyInput              = &Error{Code: EmptyInput, Row: -1}
	ErrSyntaxError             = &Error{Code: SyntaxError, Row: -1}
	ErrColumnNotFound          = &Error{Code: ColumnNotFound, Row: -1}
	ErrColumnCountMismatch     = &Error{Code: ColumnCountMismatch, Row: -1}
	ErrMissingValue            = &Error{Code: MissingValue, Row: -1}
	ErrTypeMismatch            = &Error{Code: TypeMismatch, Row: -1}
	ErrDimensionMismatch       = &Error{Code: DimensionMismatch, Row: -1}
	ErrNotSupported            = &Error{Code: NotSupported, Row: -1}
	ErrBatchTooLarge           = &Error{Code: BatchTooLarge, Row: -1}
	ErrTableNotExist           = &Error{Code: TableNotExist, Row: -1}
	ErrValueOutOfRange         = &Error{Code: ValueOutOfRange, Row: -1}
	ErrDuplicateTable          = &Error{Code: DuplicateTable, Row: -1}
	ErrInvalidColumnDefinition = &Error{Code: InvalidColumnDefinition, Row: -1}
	ErrDuplicateIndex          = &Error{Code: DuplicateIndex, Row: -1}
	ErrIndexNotExist           = &Error{Code: IndexNotExist, Row: -1}
	ErrCommitFailed            = &Error{Code: CommitFailed, Row: -1}
	ErrInternal                = &Error{Code: Internal, Row: -1}
)
