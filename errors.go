package opsdiag

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeServiceNotFound
	ErrCodeCircularDependency
	ErrCodeDuplicateService
	ErrCodeResolutionFailed
	ErrCodeProviderFailed
	ErrCodeBindingFailed
	ErrCodeProbePanicked
	ErrCodeReportFaulted
	ErrCodeStartupUnhealthy
	ErrCodeStartupFailed
	ErrCodeShutdownFailed
	ErrCodeDuplicateHealthCheck
	ErrCodeValidationFailed
	ErrCodeEngineAlreadyStarted
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:              "UNKNOWN",
	ErrCodeServiceNotFound:      "SERVICE_NOT_FOUND",
	ErrCodeCircularDependency:   "CIRCULAR_DEPENDENCY",
	ErrCodeDuplicateService:     "DUPLICATE_SERVICE",
	ErrCodeResolutionFailed:     "RESOLUTION_FAILED",
	ErrCodeProviderFailed:       "PROVIDER_FAILED",
	ErrCodeBindingFailed:        "BINDING_FAILED",
	ErrCodeProbePanicked:        "PROBE_PANICKED",
	ErrCodeReportFaulted:        "REPORT_FAULTED",
	ErrCodeStartupUnhealthy:     "STARTUP_UNHEALTHY",
	ErrCodeStartupFailed:        "STARTUP_FAILED",
	ErrCodeShutdownFailed:       "SHUTDOWN_FAILED",
	ErrCodeDuplicateHealthCheck: "DUPLICATE_HEALTH_CHECK",
	ErrCodeValidationFailed:     "VALIDATION_FAILED",
	ErrCodeEngineAlreadyStarted: "ENGINE_ALREADY_STARTED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Message string
	Service string
	Cause   error
	Stack   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Service != "" {
		b.WriteString(fmt.Sprintf(" service=%q:", e.Service))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// MissingDependency reports the missing service name carried by a
// not-found error.
func (e *Error) MissingDependency() string {
	if e.Code != ErrCodeServiceNotFound {
		return ""
	}
	return e.Service
}

func (e *Error) WithService(service string) *Error {
	e.Service = service
	return e
}

func (e *Error) WithStack(stack []string) *Error {
	e.Stack = stack
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errServiceNotFound(serviceType string, cause error) *Error {
	return newError(
		ErrCodeServiceNotFound,
		fmt.Sprintf("no provider registered for type %s", serviceType),
		cause,
	).WithService(serviceType)
}

func errCircularDependency(chain []string, cause error) *Error {
	return newError(
		ErrCodeCircularDependency,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(chain, " -> ")),
		cause,
	).WithStack(chain)
}

func errDuplicateService(serviceType string, cause error) *Error {
	return newError(
		ErrCodeDuplicateService,
		fmt.Sprintf("provider already registered for type %s", serviceType),
		cause,
	).WithService(serviceType)
}

func errResolutionFailed(serviceType string, cause error) *Error {
	return newError(
		ErrCodeResolutionFailed,
		fmt.Sprintf("failed to resolve %s", serviceType),
		cause,
	).WithService(serviceType)
}

func errBindingFailed(shape string, cause error) *Error {
	return newError(
		ErrCodeBindingFailed,
		fmt.Sprintf("failed to bind options %s", shape),
		cause,
	).WithService(shape)
}

func errProbePanicked(target string, value any) *Error {
	var cause error
	if err, ok := value.(error); ok {
		cause = err
	} else {
		cause = fmt.Errorf("%v", value)
	}
	return newError(
		ErrCodeProbePanicked,
		fmt.Sprintf("probe of %s panicked", target),
		cause,
	).WithService(target)
}

func errReportFaulted(report string, cause error) *Error {
	return newError(
		ErrCodeReportFaulted,
		fmt.Sprintf("building %s report faulted", report),
		cause,
	)
}

func errStartupUnhealthy(failing []string) *Error {
	return newError(
		ErrCodeStartupUnhealthy,
		fmt.Sprintf("startup checks unhealthy: %s", strings.Join(failing, ", ")),
		nil,
	).WithStack(failing)
}

func errStartupFailed(cause error) *Error {
	return newError(ErrCodeStartupFailed, "failed to start hosted services", cause)
}

func errShutdownFailed(cause error) *Error {
	return newError(ErrCodeShutdownFailed, "failed to stop hosted services", cause)
}

func errDuplicateHealthCheck(name string) *Error {
	return newError(
		ErrCodeDuplicateHealthCheck,
		fmt.Sprintf("health check %q already registered", name),
		nil,
	)
}

func errValidationFailed(cause error) *Error {
	return newError(ErrCodeValidationFailed, "engine validation failed", cause)
}

func errEngineAlreadyStarted() *Error {
	return newError(ErrCodeEngineAlreadyStarted, "engine already started", nil)
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeServiceNotFound
}

func IsCircularDependency(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCircularDependency
}

func IsDuplicateService(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeDuplicateService
}

func IsResolutionFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeResolutionFailed
}

func IsBindingFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeBindingFailed
}

func IsProbePanicked(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeProbePanicked
}

func IsStartupUnhealthy(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeStartupUnhealthy
}

func IsStartupFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeStartupFailed
}

func IsShutdownFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeShutdownFailed
}
