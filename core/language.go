package core

import "fmt"

// LanguageAuto requests automatic language detection, which search does not support.
const LanguageAuto = "auto"

// DefaultTextSearchConfig is used for languages without a dedicated configuration.
const DefaultTextSearchConfig = "simple"

var textSearchConfigs = map[string]string{
	"de": "german",
	"en": "english",
	"fr": "french",
	"es": "spanish",
	"it": "italian",
	"pt": "portuguese",
	"nl": "dutch",
	"da": "danish",
	"fi": "finnish",
	"no": "norwegian",
	"nb": "norwegian",
	"nn": "norwegian",
	"ru": "russian",
	"sv": "swedish",
	"tr": "turkish",
	"ro": "romanian",
	"hu": "hungarian",
	"id": "indonesian",
}

// TextSearchConfig maps a language code to a full-text search configuration name.
// Unknown codes fall back to DefaultTextSearchConfig.
func TextSearchConfig(language string) string {
	if cfg, ok := textSearchConfigs[language]; ok {
		return cfg
	}
	return DefaultTextSearchConfig
}

// ValidateLanguage checks that language is an explicit, supported code.
// The empty string is accepted and means "use the configured default".
func ValidateLanguage(language string) error {
	if language == "" {
		return nil
	}
	if language == LanguageAuto {
		return ErrAutoLanguage
	}
	if _, ok := textSearchConfigs[language]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	return nil
}

// IsTextSearchConfig reports whether name is a configuration this package
// maps to. Configuration names are interpolated into DDL, so only known names pass.
func IsTextSearchConfig(name string) bool {
	if name == DefaultTextSearchConfig {
		return true
	}
	for _, cfg := range textSearchConfigs {
		if cfg == name {
			return true
		}
	}
	return false
}
