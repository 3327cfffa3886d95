package apperrors

import (
	"errors"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the resource is in a state that does not allow the operation.
var ErrConflict = errors.New("conflict")

// ErrUnsupportedAsset indicates there is no price or deposit address mapping for an asset.
var ErrUnsupportedAsset = errors.New("unsupported asset")

// ErrInvalidAddress indicates a payout address failed the format check for its asset family.
var ErrInvalidAddress = errors.New("invalid address")

// ErrPriceFeedUnavailable indicates the upstream price feed failed and no usable snapshot exists.
var ErrPriceFeedUnavailable = errors.New("price feed unavailable")

// ErrStorage indicates a persistence layer failure.
var ErrStorage = errors.New("storage failure")

// AppError carries an HTTP-ish status code, a message, the error kind and the underlying cause.
type AppError struct {
	Code    int
	Message string
	Kind    error
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewAppError builds an AppError. Codes >= 500 are classified as storage failures.
func NewAppError(code int, message string, err error) *AppError {
	var kind error
	switch {
	case code == http.StatusNotFound:
		kind = ErrNotFound
	case code == http.StatusConflict:
		kind = ErrConflict
	case code >= http.StatusInternalServerError:
		kind = ErrStorage
	case code >= http.StatusBadRequest:
		kind = ErrValidation
	}
	return &AppError{Code: code, Message: message, Kind: kind, Err: err}
}

// NewNotFoundError returns an AppError wrapping ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message, Kind: ErrNotFound}
}

// NewValidationError returns an AppError wrapping ErrValidation.
func NewValidationError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message, Kind: ErrValidation}
}

// NewStorageError returns an AppError wrapping ErrStorage and the driver error.
func NewStorageError(message string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: message, Kind: ErrStorage, Err: err}
}

// NewConflictError returns an AppError wrapping ErrConflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: message, Kind: ErrConflict}
}

// NewUnsupportedAssetError returns an AppError wrapping ErrUnsupportedAsset.
func NewUnsupportedAssetError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message, Kind: ErrUnsupportedAsset}
}

// NewPriceFeedError returns an AppError wrapping ErrPriceFeedUnavailable.
func NewPriceFeedError(message string, err error) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Message: message, Kind: ErrPriceFeedUnavailable, Err: err}
}
