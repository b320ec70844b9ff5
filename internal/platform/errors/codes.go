// Package errors provides structured error handling for user-correctable rejections.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"

	// E-class creation errors
	CodeEclassOutOfHorizon        Code = "ECLASS_OUT_OF_HORIZON"
	CodeEclassSchoolYearOverlap   Code = "ECLASS_SCHOOL_YEAR_OVERLAP"
	CodeEclassProfessorOverlap    Code = "ECLASS_PROFESSOR_OVERLAP"
	CodeEclassAlreadyExists       Code = "ECLASS_ALREADY_EXISTS"
	CodeEclassUnconfiguredRole    Code = "ECLASS_UNCONFIGURED_ROLE"
	CodeEclassUnconfiguredChannel Code = "ECLASS_UNCONFIGURED_CHANNEL"

	// E-class lifecycle errors
	CodeEclassInvalidStatusTransition Code = "ECLASS_INVALID_STATUS_TRANSITION"
	CodeEclassStatusDisallowsOp       Code = "ECLASS_STATUS_DISALLOWS_OPERATION"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Integrity errors
	CodeIntegrityFault Code = "INTEGRITY_FAULT"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeInvalidInput,
		CodeEclassOutOfHorizon:
		return http.StatusBadRequest

	case CodeUnauthorized:
		return http.StatusUnauthorized

	case CodeForbidden:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	// Conflict - state or uniqueness doesn't allow the operation
	case CodeEclassSchoolYearOverlap,
		CodeEclassProfessorOverlap,
		CodeEclassAlreadyExists,
		CodeEclassInvalidStatusTransition,
		CodeEclassStatusDisallowsOp:
		return http.StatusConflict

	// Unprocessable - the deployment lacks configuration for the request
	case CodeEclassUnconfiguredRole,
		CodeEclassUnconfiguredChannel:
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
