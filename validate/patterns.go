package validate

import "regexp"

type dangerousPattern struct {
	name string
	re   *regexp.Regexp
}

var dangerousPatterns = []dangerousPattern{
	{"$where", regexp.MustCompile(`(?i)\$where`)},
	{"$gt", regexp.MustCompile(`(?i)\$gt`)},
	{"$lt", regexp.MustCompile(`(?i)\$lt`)},
	{"$ne", regexp.MustCompile(`(?i)\$ne`)},
	{"$regex", regexp.MustCompile(`(?i)\$regex`)},
	{"$or", regexp.MustCompile(`(?i)\$or`)},
	{"$and", regexp.MustCompile(`(?i)\$and`)},
	{"operator object", regexp.MustCompile(`(?i)\{\s*['"]\$[a-z]+['"]`)},
	{"<script", regexp.MustCompile(`(?i)<script\b`)},
	{"javascript:", regexp.MustCompile(`(?i)javascript:`)},
	{"event handler", regexp.MustCompile(`(?i)on\w+\s*=`)},
	{"shell metacharacter", regexp.MustCompile("[;&|`$]")},
}

var (
	idCharset       = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	usernameCharset = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	emojiCharset    = regexp.MustCompile(`^:?[a-zA-Z0-9_+-]+:?$`)
)

// ContainsDangerousPattern reports whether s carries an injection token.
func ContainsDangerousPattern(s string) bool {
	_, ok := DangerousPattern(s)
	return ok
}

// DangerousPattern returns the name of the first injection token found in s.
func DangerousPattern(s string) (string, bool) {
	for _, p := range dangerousPatterns {
		if p.re.MatchString(s) {
			return p.name, true
		}
	}
	return "", false
}
