// Package isbn normalizes, validates and compares ISBN-10 and ISBN-13 codes.
package isbn

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalid is returned by Validate for malformed codes or bad checksums.
var ErrInvalid = eris.New("isbn: invalid format or checksum")

var (
	isbn10Re  = regexp.MustCompile(`^[0-9]{9}[0-9Xx]$`)
	isbn13Re  = regexp.MustCompile(`^[0-9]{13}$`)
	separator = regexp.MustCompile(`[-\s]`)
)

// Normalize removes hyphens and whitespace. It does not validate.
func Normalize(s string) string {
	return separator.ReplaceAllString(s, "")
}

// IsValid10 reports whether s is a well-formed ISBN-10 with a correct check
// character.
func IsValid10(s string) bool {
	s = Normalize(s)
	if !isbn10Re.MatchString(s) {
		return false
	}
	total := 0
	for i := 0; i < 9; i++ {
		total += (i + 1) * int(s[i]-'0')
	}
	check := 10
	if c := s[9]; c != 'X' && c != 'x' {
		check = int(c - '0')
	}
	return total%11 == check
}

// IsValid13 reports whether s is a well-formed ISBN-13 with a correct check
// digit.
func IsValid13(s string) bool {
	s = Normalize(s)
	if !isbn13Re.MatchString(s) {
		return false
	}
	return checkDigit13(s[:12]) == s[12]
}

// Validate normalizes s and returns it if it is a valid ISBN-10 or ISBN-13.
func Validate(s string) (string, error) {
	n := Normalize(s)
	switch {
	case len(n) == 10 && IsValid10(n):
		return n, nil
	case len(n) == 13 && IsValid13(n):
		return n, nil
	}
	return "", eris.Wrapf(ErrInvalid, "isbn: %q", s)
}

// To13 converts an ISBN-10 to ISBN-13 by prefixing 978 and recomputing the
// check digit. Input that is not ten characters with nine leading digits is
// returned normalized but otherwise unchanged.
func To13(s string) string {
	s = Normalize(s)
	if len(s) != 10 || !allDigits(s[:9]) {
		return s
	}
	body := "978" + s[:9]
	return body + string(checkDigit13(body))
}

// To10 converts a 978-prefixed ISBN-13 back to ISBN-10. It returns "" when no
// ISBN-10 form exists.
func To10(s string) string {
	s = Normalize(s)
	if len(s) != 13 || !strings.HasPrefix(s, "978") || !allDigits(s) {
		return ""
	}
	body := s[3:12]
	total := 0
	for i := 0; i < 9; i++ {
		total += (i + 1) * int(body[i]-'0')
	}
	check := total % 11
	if check == 10 {
		return body + "X"
	}
	return body + string(rune('0'+check))
}

// Match reports whether a and b identify the same book. Codes are compared
// after normalization, and a ten character code is converted to thirteen
// before comparing against a thirteen character one. Empty input never
// matches.
func Match(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return false
	}
	if strings.EqualFold(a, b) {
		return true
	}
	switch {
	case len(a) == 10 && len(b) == 13:
		return To13(a) == b
	case len(a) == 13 && len(b) == 10:
		return a == To13(b)
	}
	return false
}

// checkDigit13 computes the ISBN-13 check digit for a 12 digit body.
func checkDigit13(body string) byte {
	total := 0
	for i := 0; i < 12; i++ {
		w := 1
		if i%2 == 1 {
			w = 3
		}
		total += w * int(body[i]-'0')
	}
	return byte('0' + (10-total%10)%10)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
