package services

import (
	"errors"
	"fmt"
	"time"

	"holidaysri-engine/internal/metrics"
)

// ErrorKind classifies a business-rule violation returned by the engine
type ErrorKind string

const (
	KindInvalidAmount       ErrorKind = "INVALID_AMOUNT"
	KindInvalidFormat       ErrorKind = "INVALID_FORMAT"
	KindDuplicateCode       ErrorKind = "DUPLICATE_CODE"
	KindAlreadyHasCode      ErrorKind = "ALREADY_HAS_CODE"
	KindNotOwner            ErrorKind = "NOT_OWNER"
	KindAlreadyListed       ErrorKind = "ALREADY_LISTED"
	KindExpired             ErrorKind = "EXPIRED"
	KindNoLongerListed      ErrorKind = "NO_LONGER_LISTED"
	KindInsufficientBalance ErrorKind = "INSUFFICIENT_BALANCE"
	KindInvalidRecord       ErrorKind = "INVALID_RECORD"
	KindBelowMinimum        ErrorKind = "BELOW_MINIMUM"
	KindPayoutMethodMissing ErrorKind = "PAYOUT_METHOD_MISSING"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindInvalidRequest      ErrorKind = "INVALID_REQUEST"
	KindOperationFailed     ErrorKind = "OPERATION_FAILED"
)

// EngineError carries the kind of failure and the code, record or user it concerns
type EngineError struct {
	Kind    ErrorKind
	Subject string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Subject)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches any EngineError of the same kind, so errors.Is(err, ErrExpired) works
// regardless of subject.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrInvalidAmount       = &EngineError{Kind: KindInvalidAmount}
	ErrInvalidFormat       = &EngineError{Kind: KindInvalidFormat}
	ErrDuplicateCode       = &EngineError{Kind: KindDuplicateCode}
	ErrAlreadyHasCode      = &EngineError{Kind: KindAlreadyHasCode}
	ErrNotOwner            = &EngineError{Kind: KindNotOwner}
	ErrAlreadyListed       = &EngineError{Kind: KindAlreadyListed}
	ErrExpired             = &EngineError{Kind: KindExpired}
	ErrNoLongerListed      = &EngineError{Kind: KindNoLongerListed}
	ErrInsufficientBalance = &EngineError{Kind: KindInsufficientBalance}
	ErrInvalidRecord       = &EngineError{Kind: KindInvalidRecord}
	ErrBelowMinimum        = &EngineError{Kind: KindBelowMinimum}
	ErrPayoutMethodMissing = &EngineError{Kind: KindPayoutMethodMissing}
	ErrNotFound            = &EngineError{Kind: KindNotFound}
	ErrInvalidRequest      = &EngineError{Kind: KindInvalidRequest}
	ErrOperationFailed     = &EngineError{Kind: KindOperationFailed}
)

func newError(kind ErrorKind, subject, message string) *EngineError {
	return &EngineError{Kind: kind, Subject: subject, Message: message}
}

// KindOf returns the kind of an engine error, or "" for anything else
func KindOf(err error) ErrorKind {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	return ""
}

// isBusinessError reports whether err is a rule violation that must not be retried
func isBusinessError(err error) bool {
	kind := KindOf(err)
	return kind != "" && kind != KindOperationFailed
}

// errConflict marks a concurrent write that lost a version or status check.
// It is retried like any other transient failure.
var errConflict = errors.New("concurrent update conflict")

// observe records an operation outcome, labelled by error kind
func observe(m *metrics.EngineMetrics, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.Observe(op, outcome, time.Since(start))
}
