package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to dashboard and chat callers.
const (
	CodeValidation              = "VALIDATION_FAILED"
	CodeNotFound                = "NOT_FOUND"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeIneligible              = "INELIGIBLE"
	CodeSupportContainerMissing = "SUPPORT_CONTAINER_MISSING"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeTransitionConflict      = "TRANSITION_CONFLICT"
	CodeAlreadyRated            = "ALREADY_RATED"
	CodeNotOwner                = "NOT_OWNER"
	CodeLimitReached            = "LIMIT_REACHED"
	CodeExternalDelivery        = "EXTERNAL_DELIVERY_FAILURE"
	CodePersistence             = "PERSISTENCE_FAILURE"
	CodeInternal                = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewIneligible reports a requester that holds none of a category's required roles.
func NewIneligible(categoryName string) error {
	return NewDomainError(CodeIneligible,
		fmt.Sprintf("you do not have a role required to open a %q ticket", categoryName),
		http.StatusForbidden,
		map[string]any{"category": categoryName})
}

// NewSupportContainerMissing is an actionable setup error; callers must not retry it.
func NewSupportContainerMissing(guildID string) error {
	return NewDomainError(CodeSupportContainerMissing,
		"no ticket channel container is configured for this server; set one in the ticket settings",
		http.StatusUnprocessableEntity,
		map[string]any{"guild_id": guildID})
}

// NewInvalidTransition names the state the ticket is in and the transition that was refused.
func NewInvalidTransition(current, requested string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot %s a ticket that is %s", requested, current),
		http.StatusConflict,
		map[string]any{"current": current, "requested": requested})
}

// NewTransitionConflict reports that a conditional write lost against a concurrent change.
func NewTransitionConflict(ticketID, requested string) error {
	return NewDomainError(CodeTransitionConflict,
		"ticket was changed by someone else; reload and try again",
		http.StatusConflict,
		map[string]any{"ticket_id": ticketID, "requested": requested})
}

func NewAlreadyRated(ticketID string) error {
	return NewDomainError(CodeAlreadyRated, "you have already rated this ticket", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewNotOwner(ticketID string) error {
	return NewDomainError(CodeNotOwner, "only the ticket requester can rate this ticket", http.StatusForbidden,
		map[string]any{"ticket_id": ticketID})
}

func NewLimitReached(limit int) error {
	return NewDomainError(CodeLimitReached,
		fmt.Sprintf("you already have %d open tickets", limit),
		http.StatusTooManyRequests,
		map[string]any{"limit": limit})
}

// NewExternalDeliveryFailure wraps a failed channel, message or DM operation.
func NewExternalDeliveryFailure(operation string, err error) error {
	return &DomainError{
		Code:       CodeExternalDelivery,
		Message:    fmt.Sprintf("%s failed", operation),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

// NewPersistenceFailure wraps a failed store write.
func NewPersistenceFailure(operation string, err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    fmt.Sprintf("%s failed", operation),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

func MapError(err error) error {
	return ToDomainError(err)
}
