package core

import (
	"strings"
	"unicode"
)

// DetectLanguage classifies text as Chinese if it contains at least one Han
// ideograph and as English otherwise. Mixed-script text containing any Han
// character is Chinese. Empty or whitespace-only text is rejected.
func DetectLanguage(text string) (Language, error) {
	if strings.TrimSpace(text) == "" {
		return "", invalidInput("user_input must not be empty")
	}
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return LanguageChinese, nil
		}
	}
	return LanguageEnglish, nil
}
