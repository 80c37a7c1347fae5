// Package errs defines the machine-readable error surface shared by the
// security, validation, and retrieval layers of the trust core.
//
// Every error carries enough structured context (operation, entity kind,
// table pattern, severity) for an ingress layer to translate it into its
// own wire protocol, per the propagation policy: the core never
// log-and-swallows, and never downgrades a denial into a permissive
// default.
package errs

import "fmt"

// Code is a stable, machine-readable error code from the external error
// surface.
type Code string

const (
	CodeSecurityContextMissing Code = "SECURITY_CONTEXT_MISSING"
	CodeSecurityContextInvalid Code = "SECURITY_CONTEXT_INVALID"
	CodeSecurityFilterFailed   Code = "SECURITY_FILTER_FAILED"
	CodeUnsupportedTable       Code = "UNSUPPORTED_TABLE"
	CodeEntityNotFound         Code = "ENTITY_NOT_FOUND"
	CodeDatabaseError          Code = "DATABASE_ERROR"
	CodeBadRequest             Code = "BAD_REQUEST"
	CodePolicyViolation        Code = "POLICY_VIOLATION"
	CodeDeterminismViolation   Code = "DETERMINISM_VIOLATION"
)

// CodedError is a structured error carrying a stable machine code plus the
// context an ingress layer needs to translate it into its own protocol.
type CodedError struct {
	Code         Code
	Operation    string // e.g. "get_by_id", "list_paginated", "score_artifacts"
	EntityKind   string // e.g. "songs", "sources"
	TablePattern string // e.g. "user_owned" — empty when not applicable
	Message      string
	Cause        error
}

func (e *CodedError) Error() string {
	base := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EntityKind != "" {
		base = fmt.Sprintf("%s (entity=%s", base, e.EntityKind)
		if e.TablePattern != "" {
			base = fmt.Sprintf("%s, pattern=%s", base, e.TablePattern)
		}
		base += ")"
	}
	if e.Cause != nil {
		base = fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *CodedError) Unwrap() error { return e.Cause }

// New builds a CodedError.
func New(code Code, operation, message string) *CodedError {
	return &CodedError{Code: code, Operation: operation, Message: message}
}

// Wrap builds a CodedError wrapping a lower-level cause.
func Wrap(code Code, operation, message string, cause error) *CodedError {
	return &CodedError{Code: code, Operation: operation, Message: message, Cause: cause}
}

// WithEntity annotates the error with the entity kind and table pattern it
// occurred against, for structured logging at the call site.
func (e *CodedError) WithEntity(entityKind, tablePattern string) *CodedError {
	e.EntityKind = entityKind
	e.TablePattern = tablePattern
	return e
}

// SecurityContextError is raised when the caller's identity is missing or
// invalid for the requested operation.
type SecurityContextError struct {
	*CodedError
	ContextType string // "user" | "tenant" | "permission"
}

// NewSecurityContextError builds a SecurityContextError.
func NewSecurityContextError(operation, contextType, message string) *SecurityContextError {
	return &SecurityContextError{
		CodedError:  New(CodeSecurityContextInvalid, operation, message),
		ContextType: contextType,
	}
}

// UnsupportedTableError is raised when an entity kind has no registered
// table pattern classification. Absence of classification is a fatal
// configuration error, never a permissive default.
type UnsupportedTableError struct {
	*CodedError
	TableName string
}

// NewUnsupportedTableError builds an UnsupportedTableError.
func NewUnsupportedTableError(tableName string) *UnsupportedTableError {
	return &UnsupportedTableError{
		CodedError: New(CodeUnsupportedTable, "classify_table",
			fmt.Sprintf("no security pattern registered for table %q", tableName)),
		TableName: tableName,
	}
}

// SecurityFilterError is raised when filter or ownership-assignment
// application fails, e.g. a schema mismatch between a table's declared
// pattern and the columns it actually exposes.
type SecurityFilterError struct {
	*CodedError
	TablePattern string
}

// NewSecurityFilterError builds a SecurityFilterError.
func NewSecurityFilterError(operation, tablePattern, message string) *SecurityFilterError {
	return &SecurityFilterError{
		CodedError:   New(CodeSecurityFilterFailed, operation, message),
		TablePattern: tablePattern,
	}
}

// Is allows errors.Is(err, &errs.CodedError{Code: ...}) style matching by
// code, since CodedError values are normally distinct pointers.
func (e *CodedError) Is(target error) bool {
	other, ok := target.(*CodedError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}
