package i18n

import "strings"

type Lang string

const (
	ES Lang = "es"
	EN Lang = "en"
)

const Default = ES

// FromLanguageCode maps a Telegram language_code to a supported language.
func FromLanguageCode(code string) Lang {
	code = strings.ToLower(strings.TrimSpace(code))
	if strings.HasPrefix(code, "en") {
		return EN
	}
	return Default
}

func Parse(s string) Lang {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en":
		return EN
	case "es":
		return ES
	default:
		return Default
	}
}

// Supported reports whether s names a language a user can pick explicitly.
func Supported(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "es", "en":
		return true
	}
	return false
}
