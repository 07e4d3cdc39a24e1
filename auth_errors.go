package auth

import (
	"context"
	"errors"
	"net"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/text/message"
)

// Upstream error signatures emitted by the identity backend.
const (
	SignatureInvalidCredentials = "Invalid login credentials"
	SignatureSessionExpired     = "JWT expired"
	SignatureNetwork            = "NetworkError"
	SignatureRefreshFailed      = "Token refresh failed"
)

// Stable codes produced by AuthErrorTranslator.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeSessionExpired     = "SESSION_EXPIRED"
	TextCodeNetworkError       = "NETWORK_ERROR"
	TextCodeRefreshFailed      = "TOKEN_REFRESH_FAILED"
	TextCodeAuthFailed         = "AUTH_FAILED"
	TextCodeUnknownError       = "UNKNOWN_ERROR"
)

// TranslatedError is the user-safe rendition of an upstream auth failure.
type TranslatedError struct {
	Code    string
	Message string
}

type signature struct {
	match string
	code  string
}

var signatures = []signature{
	{match: SignatureInvalidCredentials, code: TextCodeInvalidCredentials},
	{match: SignatureSessionExpired, code: TextCodeSessionExpired},
	{match: SignatureNetwork, code: TextCodeNetworkError},
	{match: SignatureRefreshFailed, code: TextCodeRefreshFailed},
}

var codeMessages = map[string]string{
	TextCodeInvalidCredentials: msgKeyInvalidCredentials,
	TextCodeSessionExpired:     msgKeySessionExpired,
	TextCodeNetworkError:       msgKeyNetwork,
	TextCodeRefreshFailed:      msgKeyRefreshFailed,
	TextCodeAuthFailed:         msgKeyAuthFailed,
	TextCodeUnknownError:       msgKeyUnknown,
}

// AuthErrorTranslator maps upstream identity failures onto a closed set of
// stable codes with localized messages. It is a pure function of its input.
type AuthErrorTranslator struct {
	printer *message.Printer
}

// NewAuthErrorTranslator returns a translator for the given locale.
// An empty or unsupported locale falls back to DefaultLanguage.
func NewAuthErrorTranslator(locale string) *AuthErrorTranslator {
	return &AuthErrorTranslator{
		printer: newPrinter(newMessageCatalog(), locale),
	}
}

// Translate never fails. Unrecognized errors map to AUTH_FAILED and a nil
// error maps to UNKNOWN_ERROR.
func (t *AuthErrorTranslator) Translate(err error) TranslatedError {
	code := classify(err)
	return TranslatedError{
		Code:    code,
		Message: t.message(code),
	}
}

// AsError returns err translated into an AuthError. nil stays nil.
func (t *AuthErrorTranslator) AsError(err error) error {
	if err == nil {
		return nil
	}
	if t.isTranslated(err) {
		return err
	}
	tr := t.Translate(err)
	out := goerrors.New(tr.Message, goerrors.CategoryAuth).
		WithTextCode(tr.Code).
		WithCode(goerrors.CodeUnauthorized)
	out.Source = err
	return out
}

func (t *AuthErrorTranslator) message(code string) string {
	key, ok := codeMessages[code]
	if !ok {
		key = msgKeyAuthFailed
	}
	if t == nil || t.printer == nil {
		return authMessages[DefaultLanguage][key]
	}
	return t.printer.Sprintf(key)
}

func (t *AuthErrorTranslator) isTranslated(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryAuth {
		return false
	}
	if _, ok := codeMessages[richErr.TextCode]; !ok {
		return false
	}
	return richErr.Message == t.message(richErr.TextCode)
}

func classify(err error) string {
	if err == nil {
		return TextCodeUnknownError
	}

	if code := TextCode(err); code != "" {
		if _, ok := codeMessages[code]; ok {
			return code
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return TextCodeNetworkError
	}

	msg := err.Error()
	for _, sig := range signatures {
		if msg == sig.match || strings.Contains(msg, sig.match) {
			return sig.code
		}
	}

	return TextCodeAuthFailed
}
