package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	PasswordMinLength     = 8
	PasswordMaxSimilarity = 0.7
)

var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range []string{
		"password", "password1", "password123", "passw0rd", "12345678", "123456789",
		"1234567890", "11111111", "00000000", "87654321", "qwerty123", "qwertyuiop",
		"abc12345", "abcd1234", "iloveyou", "sunshine", "princess", "football",
		"baseball", "superman", "starwars", "trustno1", "letmein1", "welcome1",
		"admin123", "administrator", "changeme", "senha123", "senha1234", "mudar123",
		"brasil123", "flamengo", "corinthians", "palmeiras", "123mudar", "q1w2e3r4",
	} {
		commonPasswords[p] = struct{}{}
	}
}

// Password applies the account password rules: a minimum length, no
// similarity to the user's own attributes (email, username), not a common
// password and not entirely numeric. The first failing rule is recorded.
func Password(field, value string, attrs []string, v Violations) {
	if utf8.RuneCountInString(value) < PasswordMinLength {
		v[field] = "password_too_short"
		return
	}
	lower := strings.ToLower(value)
	for _, attr := range attrs {
		if similarTo(lower, strings.ToLower(attr)) {
			v[field] = "password_too_similar"
			return
		}
	}
	if _, ok := commonPasswords[lower]; ok {
		v[field] = "password_too_common"
		return
	}
	if strings.IndexFunc(value, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		v[field] = "password_entirely_numeric"
	}
}

// similarTo compares the password against the whole attribute and each of
// its word parts ("ana.maria@example.com" → "ana", "maria", "example", "com").
func similarTo(password, attr string) bool {
	if attr == "" {
		return false
	}
	parts := strings.FieldsFunc(attr, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, part := range append([]string{attr}, parts...) {
		if similarity(password, part) >= PasswordMaxSimilarity {
			return true
		}
	}
	return false
}

// similarity is 2*M/T where M is the longest common subsequence of a and b
// and T their combined length.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return 2 * float64(prev[len(rb)]) / float64(len(ra)+len(rb))
}
