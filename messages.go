package auth

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgKeyInvalidCredentials = "auth.invalid_credentials"
	msgKeySessionExpired     = "auth.session_expired"
	msgKeyNetwork            = "auth.network"
	msgKeyRefreshFailed      = "auth.refresh_failed"
	msgKeyAuthFailed         = "auth.failed"
	msgKeyUnknown            = "auth.unknown"
)

// DefaultLanguage is used when no locale is configured.
var DefaultLanguage = language.Portuguese

var authMessages = map[language.Tag]map[string]string{
	language.Portuguese: {
		msgKeyInvalidCredentials: "Email ou senha incorretos",
		msgKeySessionExpired:     "Sua sessão expirou. Por favor, faça login novamente",
		msgKeyNetwork:            "Erro de conexão. Verifique sua internet",
		msgKeyRefreshFailed:      "Erro ao renovar sessão. Por favor, faça login novamente",
		msgKeyAuthFailed:         "Ocorreu um erro. Por favor, tente novamente",
		msgKeyUnknown:            "Ocorreu um erro desconhecido",
	},
	language.English: {
		msgKeyInvalidCredentials: "Incorrect email or password",
		msgKeySessionExpired:     "Your session has expired. Please sign in again",
		msgKeyNetwork:            "Connection error. Check your internet connection",
		msgKeyRefreshFailed:      "Could not renew your session. Please sign in again",
		msgKeyAuthFailed:         "Something went wrong. Please try again",
		msgKeyUnknown:            "An unknown error occurred",
	},
}

func newMessageCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(DefaultLanguage))
	for tag, msgs := range authMessages {
		for key, msg := range msgs {
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

func newPrinter(cat catalog.Catalog, locale string) *message.Printer {
	tag := DefaultLanguage
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			langs := cat.Languages()
			_, idx, conf := language.NewMatcher(langs).Match(parsed)
			if conf != language.No && idx < len(langs) {
				tag = langs[idx]
			}
		}
	}
	return message.NewPrinter(tag, message.Catalog(cat))
}
