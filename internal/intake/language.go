package intake

import (
	"fmt"
	"strings"
)

// Language selects the conversation language for one intake session.
type Language string

const (
	LanguageEnglish Language = "ENGLISH"
	LanguageHindi   Language = "HINDI"
)

// ParseLanguage validates a client-supplied language value.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToUpper(strings.TrimSpace(s))) {
	case LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageHindi:
		return LanguageHindi, nil
	}
	return "", fmt.Errorf("intake: unsupported language %q", s)
}

// Tag returns the BCP 47 tag the browser speech engines expect.
func (l Language) Tag() string {
	if l == LanguageHindi {
		return "hi-IN"
	}
	return "en-US"
}
