package local

import (
	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-store-auth"
)

const TextCodeTokenMalformed = "TOKEN_MALFORMED"

// ErrRefreshFailed is returned when a refresh token is unknown, revoked or expired.
var ErrRefreshFailed = goerrors.New(auth.SignatureRefreshFailed, goerrors.CategoryAuth).
	WithTextCode(auth.TextCodeRefreshFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionExpired is returned when an access token has expired.
var ErrSessionExpired = goerrors.New(auth.SignatureSessionExpired, goerrors.CategoryAuth).
	WithTextCode(auth.TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when an access token cannot be parsed.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

const (
	TextCodeResetTokenInvalid = "RESET_TOKEN_INVALID"
	TextCodeResetTokenUsed    = "TOKEN_ALREADY_USED"
	TextCodeResetTokenExpired = "TOKEN_EXPIRED"
)

// ErrResetTokenInvalid is returned for unknown password reset tokens.
var ErrResetTokenInvalid = goerrors.New("invalid or expired password reset token", goerrors.CategoryNotFound).
	WithTextCode(TextCodeResetTokenInvalid).
	WithCode(goerrors.CodeNotFound)

var ErrResetTokenUsed = goerrors.New("password reset token has already been used", goerrors.CategoryConflict).
	WithTextCode(TextCodeResetTokenUsed).
	WithCode(goerrors.CodeConflict)

var ErrResetTokenExpired = goerrors.New("password reset token has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeResetTokenExpired).
	WithCode(goerrors.CodeBadRequest)
