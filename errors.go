package pms

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Provider error codes. The auth/ prefix follows the identity provider
// convention so codes can be matched without knowing the backend.
const (
	CodeInvalidEmail       = "auth/invalid-email"
	CodeUserNotFound       = "auth/user-not-found"
	CodeWrongPassword      = "auth/wrong-password"
	CodeEmailAlreadyInUse  = "auth/email-already-in-use"
	CodeWeakPassword       = "auth/weak-password"
	CodePopupClosedByUser  = "auth/popup-closed-by-user"
	CodeInteractiveFailure = "auth/interactive-failed"
	CodeTimeout            = "auth/timeout"
	CodeInternal           = "auth/internal-error"
)

const codePrefix = "auth/"

const (
	TextCodeBusy               = "submission_in_progress"
	TextCodeFormValidation     = "form_validation"
	TextCodeEmptyPassword      = "empty_password"
	TextCodeInvalidCreds       = "invalid_credentials"
	TextCodeSessionDecodeError = "session_decode_error"
	TextCodeTokenExpired       = "token_expired"
	TextCodeTokenMalformed     = "token_malformed"
)

// ErrBusy is returned when a submission is attempted while one is in flight.
var ErrBusy = goerrors.New("submission already in progress", goerrors.CategoryConflict).
	WithTextCode(TextCodeBusy).
	WithCode(goerrors.CodeConflict)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for expired session tokens
var ErrTokenExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for session tokens that fail to parse
var ErrTokenMalformed = goerrors.New("session token malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ProviderError is a failure reported by the identity source. It travels
// as the source of a *goerrors.Error built by NewProviderError.
type ProviderError struct {
	Code      string
	Operation string
	Err       error
}

// NewProviderError wraps a provider failure for operation. The code is kept
// as the text code so views can map it without unwrapping.
func NewProviderError(operation, code string, err error) *goerrors.Error {
	perr := &ProviderError{
		Code:      code,
		Operation: operation,
		Err:       err,
	}

	category, status := providerCategory(code)

	// Wrap would collapse into err when it already is a *goerrors.Error.
	rich := goerrors.New(perr.Error(), category).
		WithTextCode(code).
		WithCode(status).
		WithMetadata(perr.Metadata())
	rich.Source = perr
	return rich
}

func providerCategory(code string) (goerrors.Category, int) {
	switch code {
	case CodeInvalidEmail, CodeWeakPassword:
		return goerrors.CategoryBadInput, goerrors.CodeBadRequest
	case CodeUserNotFound:
		return goerrors.CategoryNotFound, goerrors.CodeNotFound
	case CodeEmailAlreadyInUse:
		return goerrors.CategoryConflict, goerrors.CodeConflict
	case CodeWrongPassword, CodePopupClosedByUser, CodeInteractiveFailure:
		return goerrors.CategoryAuth, goerrors.CodeUnauthorized
	case CodeTimeout:
		return goerrors.CategoryOperation, goerrors.CodeRequestTimeout
	default:
		return goerrors.CategoryInternal, goerrors.CodeInternal
	}
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Operation != "" {
		scope = e.Operation
	}

	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", scope, e.Code, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", scope, e.Code)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{"code": e.Code}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Err != nil {
		meta["cause"] = e.Err.Error()
	}
	return meta
}

// ErrorCode extracts the provider code from err, or "" if err does not
// carry one.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && strings.HasPrefix(rich.TextCode, codePrefix) {
		return rich.TextCode
	}

	var perr *ProviderError
	if goerrors.As(err, &perr) && perr != nil {
		return perr.Code
	}
	return ""
}

// ErrorMetadata returns the metadata attached to a *goerrors.Error in err.
func ErrorMetadata(err error) map[string]any {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Metadata
	}
	return nil
}

// NewValidationError is a form error detected before contacting the
// provider. key is the message shown to the user.
func NewValidationError(key MessageKey, fields map[string]string) *goerrors.Error {
	meta := map[string]any{"message_key": string(key)}
	if len(fields) > 0 {
		meta["fields"] = fields
	}

	return goerrors.New("validation failed", goerrors.CategoryValidation).
		WithTextCode(TextCodeFormValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(meta)
}

// IsValidationError reports whether err was raised by form validation
func IsValidationError(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) &&
		rich.Category == goerrors.CategoryValidation &&
		rich.TextCode == TextCodeFormValidation
}

// ValidationMessage returns the message key of a validation error.
func ValidationMessage(err error) MessageKey {
	if !IsValidationError(err) {
		return ""
	}
	key, _ := ErrorMetadata(err)["message_key"].(string)
	return MessageKey(key)
}
