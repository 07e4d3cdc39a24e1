package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-store-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthErrorTranslator_Translate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{
			name:    "invalid credentials",
			err:     errors.New("Invalid login credentials"),
			code:    auth.TextCodeInvalidCredentials,
			message: "Email ou senha incorretos",
		},
		{
			name:    "session expired",
			err:     fmt.Errorf("refresh: %w", errors.New("JWT expired")),
			code:    auth.TextCodeSessionExpired,
			message: "Sua sessão expirou. Por favor, faça login novamente",
		},
		{
			name:    "network signature",
			err:     errors.New("TypeError: NetworkError when attempting to fetch resource"),
			code:    auth.TextCodeNetworkError,
			message: "Erro de conexão. Verifique sua internet",
		},
		{
			name:    "deadline",
			err:     context.DeadlineExceeded,
			code:    auth.TextCodeNetworkError,
			message: "Erro de conexão. Verifique sua internet",
		},
		{
			name:    "refresh failed",
			err:     errors.New("Token refresh failed"),
			code:    auth.TextCodeRefreshFailed,
			message: "Erro ao renovar sessão. Por favor, faça login novamente",
		},
		{
			name:    "structured code",
			err:     auth.ErrMismatchedHashAndPassword,
			code:    auth.TextCodeInvalidCredentials,
			message: "Email ou senha incorretos",
		},
		{
			name:    "unrecognized",
			err:     errors.New("database is on fire"),
			code:    auth.TextCodeAuthFailed,
			message: "Ocorreu um erro. Por favor, tente novamente",
		},
		{
			name:    "nil",
			code:    auth.TextCodeUnknownError,
			message: "Ocorreu um erro desconhecido",
		},
	}

	translator := auth.NewAuthErrorTranslator("pt-AO")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translator.Translate(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestAuthErrorTranslator_Locales(t *testing.T) {
	err := errors.New("Invalid login credentials")

	assert.Equal(t, "Incorrect email or password", auth.NewAuthErrorTranslator("en").Translate(err).Message)
	assert.Equal(t, "Email ou senha incorretos", auth.NewAuthErrorTranslator("").Translate(err).Message)
	assert.Equal(t, "Email ou senha incorretos", auth.NewAuthErrorTranslator("not a locale").Translate(err).Message)
}

func TestAuthErrorTranslator_AsError(t *testing.T) {
	translator := auth.NewAuthErrorTranslator("")
	cause := errors.New("Invalid login credentials")

	err := translator.AsError(cause)
	require.Error(t, err)
	assert.True(t, auth.IsAuthError(err))
	assert.Equal(t, auth.TextCodeInvalidCredentials, auth.TextCode(err))

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "Email ou senha incorretos", richErr.Message)
	assert.Same(t, cause, richErr.Source)

	assert.Same(t, err, translator.AsError(err))
	assert.Nil(t, translator.AsError(nil))
}

func TestAuthErrorTranslator_AsErrorRetranslatesOtherLocale(t *testing.T) {
	pt := auth.NewAuthErrorTranslator("pt")
	en := auth.NewAuthErrorTranslator("en")

	ptErr := pt.AsError(errors.New("JWT expired"))
	enErr := en.AsError(ptErr)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(enErr, &richErr))
	assert.Equal(t, auth.TextCodeSessionExpired, richErr.TextCode)
	assert.Equal(t, "Your session has expired. Please sign in again", richErr.Message)
}
