package utils

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// SanitizeText HTML-escapes admin-entered free text before storage so it can
// be rendered verbatim by any frontend.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	return htmlEscaper.Replace(text)
}
