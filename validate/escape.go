package validate

import "strings"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// EscapeHTML replaces the five HTML-significant characters with entities.
func EscapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}
