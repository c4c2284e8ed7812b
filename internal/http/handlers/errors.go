// Package handlers defines the HTTP error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror the HTTP status; the
// domain codes name the operation that failed. Every error response carries
// one of them in the envelope written by fail():
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "submission_failed",
//	  "message": "Company report failed after 3 attempts. Last error: ..."
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeAllocationFailed = "allocation_failed"
	ErrCodeSubmissionFailed = "submission_failed"
	ErrCodeUpdateFailed     = "update_failed"
	ErrCodeListFailed       = "list_failed"
)
