package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ConnectErrorBadInput            = "CONNECT_BAD_INPUT"
	ConnectErrorUnauthenticated     = "CONNECT_UNAUTHENTICATED"
	ConnectErrorAccessDenied        = "CONNECT_ACCESS_DENIED"
	ConnectErrorNotFound            = "CONNECT_NOT_FOUND"
	ConnectErrorConflict            = "CONNECT_CONFLICT"
	ConnectErrorRateLimited         = "CONNECT_RATE_LIMITED"
	ConnectErrorPlatformUnsupported = "CONNECT_PLATFORM_UNSUPPORTED"
	ConnectErrorUpstreamFailed      = "CONNECT_UPSTREAM_FAILED"
	ConnectErrorInternal            = "CONNECT_INTERNAL_ERROR"
)

// ConnectErrorMapper converts any error escaping a component into the rich
// envelope the transport layer serializes. Raw collaborator payloads never
// survive the mapping.
func ConnectErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return EnsureConnectErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "unknown platform"), strings.Contains(msg, "not registered"):
		return NewConnectError(err.Error(), goerrors.CategoryBadInput, ConnectErrorPlatformUnsupported)
	case strings.Contains(msg, "tenant not found"):
		return NewConnectError(err.Error(), goerrors.CategoryNotFound, ConnectErrorNotFound)
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "throttl"):
		return NewConnectError(err.Error(), goerrors.CategoryRateLimit, ConnectErrorRateLimited)
	case strings.Contains(msg, "upstream"), strings.Contains(msg, "connector"):
		return NewConnectError("upstream connector call failed", goerrors.CategoryExternal, ConnectErrorUpstreamFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "missing"):
		return NewConnectError(err.Error(), goerrors.CategoryBadInput, ConnectErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return EnsureConnectErrorEnvelope(mapped)
}

func NewConnectError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return EnsureConnectErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func EnsureConnectErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = connectHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultConnectTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultConnectTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ConnectErrorBadInput
	case goerrors.CategoryNotFound:
		return ConnectErrorNotFound
	case goerrors.CategoryAuth:
		return ConnectErrorUnauthenticated
	case goerrors.CategoryAuthz:
		return ConnectErrorAccessDenied
	case goerrors.CategoryConflict:
		return ConnectErrorConflict
	case goerrors.CategoryRateLimit:
		return ConnectErrorRateLimited
	case goerrors.CategoryExternal:
		return ConnectErrorUpstreamFailed
	default:
		return ConnectErrorInternal
	}
}

func connectHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
