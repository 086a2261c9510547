package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound             ErrorCode = "NOT_FOUND"
	ErrConflict             ErrorCode = "CONFLICT"
	ErrBadRequest           ErrorCode = "BAD_REQUEST"
	ErrInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrConservation         ErrorCode = "CONSERVATION_VIOLATION"
	ErrReferentialIntegrity ErrorCode = "REFERENTIAL_INTEGRITY"
	ErrPersistence          ErrorCode = "PERSISTENCE_ERROR"
	ErrUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrRateLimited          ErrorCode = "RATE_LIMITED"
	ErrInternalServer       ErrorCode = "INTERNAL_SERVER_ERROR"
)

// Reason narrows a code down to the concrete failure so callers can branch on it.
type Reason string

const (
	ReasonAlreadyOpen          Reason = "already_open"
	ReasonAlreadyClosed        Reason = "already_closed"
	ReasonLotSealed            Reason = "lot_sealed"
	ReasonStepFinished         Reason = "step_finished"
	ReasonDuplicateBinding     Reason = "duplicate_binding"
	ReasonBoxUnavailable       Reason = "box_unavailable"
	ReasonDuplicateConsumption Reason = "duplicate_consumption"
	ReasonEmptyOutput          Reason = "empty_output"
	ReasonOutputInUse          Reason = "output_in_use"
	ReasonNoParentStep         Reason = "no_parent_step"
	ReasonWrongParentOutput    Reason = "wrong_parent_output"
	ReasonInsufficientOutput   Reason = "insufficient_output"
	ReasonCycleDetected        Reason = "cycle_detected"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Reason  Reason      `json:"reason,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e APIError) Unwrap() error {
	return e.cause
}

// Is matches on Reason when the target carries one, on Code otherwise, so
// both errors.Is(err, InsufficientOutput) and errors.Is(err, NotFound) work.
func (e APIError) Is(target error) bool {
	t, ok := target.(APIError)
	if !ok {
		return false
	}
	if t.Reason != "" {
		// A consumption from a root step has no parent output at all, so it is
		// also a wrong-parent failure.
		if t.Reason == ReasonWrongParentOutput && e.Reason == ReasonNoParentStep {
			return true
		}
		return e.Reason == t.Reason
	}
	return e.Code == t.Code
}

// NewAPIError builds an error of the given code. When details is an error it
// is logged and kept as the cause; any other value is returned to callers as
// structured detail.
func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	apiErr := APIError{Code: code, Message: message}
	if err, ok := details.(error); ok {
		logrus.Error(err)
		apiErr.cause = err
		return apiErr
	}
	apiErr.Details = details
	return apiErr
}

// New builds a domain failure with a reason and optional structured detail.
func New(code ErrorCode, reason Reason, message string, details interface{}) APIError {
	apiErr := NewAPIError(code, message, details)
	apiErr.Reason = reason
	return apiErr
}

// Sentinels for errors.Is.
var (
	NotFound             = APIError{Code: ErrNotFound}
	Validation           = APIError{Code: ErrInvalidInput}
	Persistence          = APIError{Code: ErrPersistence}
	AlreadyOpen          = APIError{Code: ErrConflict, Reason: ReasonAlreadyOpen}
	AlreadyClosed        = APIError{Code: ErrConflict, Reason: ReasonAlreadyClosed}
	LotSealed            = APIError{Code: ErrConflict, Reason: ReasonLotSealed}
	StepFinished         = APIError{Code: ErrConflict, Reason: ReasonStepFinished}
	DuplicateBinding     = APIError{Code: ErrConflict, Reason: ReasonDuplicateBinding}
	BoxUnavailable       = APIError{Code: ErrConflict, Reason: ReasonBoxUnavailable}
	DuplicateConsumption = APIError{Code: ErrConflict, Reason: ReasonDuplicateConsumption}
	EmptyOutput          = APIError{Code: ErrInvalidInput, Reason: ReasonEmptyOutput}
	OutputInUse          = APIError{Code: ErrReferentialIntegrity, Reason: ReasonOutputInUse}
	NoParentStep         = APIError{Code: ErrReferentialIntegrity, Reason: ReasonNoParentStep}
	WrongParentOutput    = APIError{Code: ErrReferentialIntegrity, Reason: ReasonWrongParentOutput}
	InsufficientOutput   = APIError{Code: ErrConservation, Reason: ReasonInsufficientOutput}
	CycleDetected        = APIError{Code: ErrReferentialIntegrity, Reason: ReasonCycleDetected}
)

// As extracts the APIError from an error chain.
func As(err error) (APIError, bool) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return APIError{}, false
}

func MapErrorToHTTPStatus(err error) int {
	apiErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrInvalidInput, ErrBadRequest:
		return http.StatusBadRequest
	case ErrConservation, ErrReferentialIntegrity:
		return http.StatusUnprocessableEntity
	case ErrPersistence:
		return http.StatusServiceUnavailable
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
