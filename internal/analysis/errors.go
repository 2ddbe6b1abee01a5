package analysis

import "fmt"

// ErrorCode classifies a service failure for the orchestrator.
type ErrorCode string

const (
	CodeUploadLimit  ErrorCode = "upload-limit"
	CodeChatLimit    ErrorCode = "chat-limit"
	CodeTokenLimit   ErrorCode = "token-limit"
	CodeUnauthorized ErrorCode = "unauthorized"
	CodeForbidden    ErrorCode = "forbidden"
	CodeUnavailable  ErrorCode = "unavailable"
	CodeBadResponse  ErrorCode = "bad-response"
)

type ServiceError struct {
	Status  int
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.Status)
}

// QuotaLimited reports whether the error is a dismissible usage limit
// rather than a fatal failure.
func (e *ServiceError) QuotaLimited() bool {
	switch e.Code {
	case CodeUploadLimit, CodeChatLimit, CodeTokenLimit:
		return true
	}
	return false
}

func serviceError(status int, code ErrorCode, message string) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message}
}

// classify maps an HTTP status and optional server error code onto the
// taxonomy. Unknown 4xx and all 5xx fall through to unavailable.
func classify(status int, serverCode, message string) *ServiceError {
	switch serverCode {
	case "upload_limit", "upload_limit_exceeded":
		return serviceError(status, CodeUploadLimit, message)
	case "chat_limit", "chat_limit_exceeded":
		return serviceError(status, CodeChatLimit, message)
	case "token_limit", "token_limit_exceeded":
		return serviceError(status, CodeTokenLimit, message)
	}
	switch status {
	case 401:
		return serviceError(status, CodeUnauthorized, message)
	case 403:
		return serviceError(status, CodeForbidden, message)
	case 429:
		return serviceError(status, CodeUploadLimit, message)
	}
	return serviceError(status, CodeUnavailable, message)
}
