package config

import (
	"fmt"
	"strings"
)

const (
	LanguageHebrew = "he"
	LanguageArabic = "ar"
	LanguageMalay  = "ms"
	LanguageGeez   = "gez"
)

// NormalizeLanguage maps a user supplied language name onto one of the
// registered language identifiers.
func NormalizeLanguage(raw string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(raw))
	if lang == "" {
		lang = LanguageHebrew
	}
	switch lang {
	case LanguageHebrew, LanguageArabic, LanguageMalay, LanguageGeez:
		return lang, nil
	case "hebrew":
		return LanguageHebrew, nil
	case "arabic":
		return LanguageArabic, nil
	case "malay":
		return LanguageMalay, nil
	case "geez", "ge'ez", "amharic":
		return LanguageGeez, nil
	default:
		return "", fmt.Errorf(
			"invalid language %q (expected %s|%s|%s|%s)",
			raw,
			LanguageHebrew,
			LanguageArabic,
			LanguageMalay,
			LanguageGeez,
		)
	}
}
