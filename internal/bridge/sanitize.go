package bridge

import (
	"strings"
	"unicode"
)

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// SanitizePrompt reduces free-form text to a single line that can be passed
// as one argv element. Quotes, backticks and anything outside the allow-list
// are dropped and whitespace runs collapse to a single space.
func SanitizePrompt(text string) string {
	text = lineBreaks.Replace(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case unicode.IsSpace(r):
		return true
	case r == 'π':
		return true
	}
	return strings.ContainsRune(".,:?+-=/*^|()[]{}<>", r)
}
