package types

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// LanguageCode is a BCP 47 tag among the languages the optimizer can write in.
type LanguageCode string

const (
	LangEnglish    LanguageCode = "en"
	LangPortuguese LanguageCode = "pt-BR"
	LangSpanish    LanguageCode = "es"
	LangItalian    LanguageCode = "it"
	LangFrench     LanguageCode = "fr"
	LangGerman     LanguageCode = "de"
	LangArabic     LanguageCode = "ar"
)

// DefaultLanguage is the locale used when nothing else was chosen.
const DefaultLanguage = LangPortuguese

var languageNames = map[LanguageCode]string{
	LangEnglish:    "English",
	LangPortuguese: "Portuguese (Brazil)",
	LangSpanish:    "Spanish",
	LangItalian:    "Italian",
	LangFrench:     "French",
	LangGerman:     "German",
	LangArabic:     "Arabic",
}

var supportedTags = []language.Tag{
	language.English,
	language.BrazilianPortuguese,
	language.Spanish,
	language.Italian,
	language.French,
	language.German,
	language.Arabic,
}

// SupportedLanguages lists every accepted code in a stable order.
func SupportedLanguages() []LanguageCode {
	return []LanguageCode{LangPortuguese, LangEnglish, LangSpanish, LangItalian, LangFrench, LangGerman, LangArabic}
}

// ParseLanguageCode canonicalizes s ("pt-br", "PT_BR", "en-US") to a supported code.
// An empty string yields an empty code and no error.
func ParseLanguageCode(s string) (LanguageCode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", s, err)
	}

	// pt alone means the Brazilian variant here
	base, _ := tag.Base()
	region, conf := tag.Region()
	if base.String() == "pt" && (conf == language.No || region.String() == "BR" || conf < language.Exact) {
		return LangPortuguese, nil
	}

	for _, supported := range supportedTags {
		sb, _ := supported.Base()
		if sb == base && sb.String() != "pt" {
			return LanguageCode(supported.String()), nil
		}
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// Valid reports whether l is one of the supported codes.
func (l LanguageCode) Valid() bool {
	_, ok := languageNames[l]
	return ok
}

// DisplayName returns the English name used in prompts.
func (l LanguageCode) DisplayName() string {
	return languageNames[l]
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
