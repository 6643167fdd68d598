package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Attendance verification errors. The geofence and cooldown variants carry
// user-facing message text, so they are built through constructors below.
var (
	ErrLocationPermissionDenied = New("LOCATION_PERMISSION_DENIED", http.StatusBadRequest, "location permission was denied; enable location access and try again")
	ErrLocationTimeout          = New("LOCATION_TIMEOUT", http.StatusBadRequest, "timed out while acquiring location; try again")
	ErrLocationUnsupported      = New("LOCATION_UNSUPPORTED", http.StatusBadRequest, "location services are not supported on this device")
	ErrNoLocationsConfigured    = New("NO_LOCATIONS_CONFIGURED", http.StatusServiceUnavailable, "no institute locations are configured; contact an administrator")
	ErrDayAlreadyMarked         = New("DAY_ALREADY_MARKED", http.StatusConflict, "attendance for today is already marked")
	ErrOutsideGeofence          = New("OUTSIDE_GEOFENCE", http.StatusForbidden, "you are outside the allowed area")
	ErrCooldownActive           = New("COOLDOWN_ACTIVE", http.StatusTooManyRequests, "please wait before adding another subject")
)

// OutsideGeofence builds an OUTSIDE_GEOFENCE error naming the nearest anchor,
// the caller's distance to it and its allowed radius, both in kilometres.
func OutsideGeofence(nearestName string, distanceKm, radiusKm float64) *Error {
	msg := fmt.Sprintf("you are %.2f km away from %s; attendance can only be marked within %.2f km", distanceKm, nearestName, radiusKm)
	return Clone(ErrOutsideGeofence, msg)
}

// CooldownActive builds a COOLDOWN_ACTIVE error reporting the remaining wait.
func CooldownActive(remainingMinutes int) *Error {
	msg := fmt.Sprintf("please wait %d more minute(s) before adding another subject", remainingMinutes)
	return Clone(ErrCooldownActive, msg)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same error code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
