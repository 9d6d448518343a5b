package model

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguage is used when a language cannot be resolved.
const DefaultLanguage = "en"

// Language is a selectable agent language.
type Language struct {
	Name string `json:"name" yaml:"name"` // name in the language itself
	Code string `json:"code" yaml:"code"` // ISO 639-1
}

var supportedLanguages = []Language{
	{Name: "Polski", Code: "pl"},
	{Name: "English", Code: "en"},
	{Name: "Deutsch", Code: "de"},
	{Name: "Español", Code: "es"},
	{Name: "Français", Code: "fr"},
}

// SupportedLanguages returns the languages offered by default.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// LanguageCode maps a display name ("Deutsch") or a BCP 47 tag ("de-AT")
// to its base ISO code. Unknown input falls back to DefaultLanguage.
func LanguageCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLanguage
	}
	for _, l := range supportedLanguages {
		if strings.EqualFold(l.Name, s) || strings.EqualFold(l.Code, s) {
			return l.Code
		}
	}

	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLanguage
	}
	base, conf := tag.Base()
	if conf == language.No {
		return DefaultLanguage
	}
	return base.String()
}

// LanguageName returns the English name for an ISO code, e.g. "pl" -> "Polish".
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
