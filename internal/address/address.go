package address

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kofuk/homedns/internal/entity"
)

var dottedQuad = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// Validate reports whether s is a dotted-quad IPv4 address with every octet in
// [0,255]. It never panics, whatever the input.
func Validate(s string) error {
	_, err := Canonical(s)
	return err
}

// Canonical validates s like Validate and returns it with leading zeros
// dropped from every octet, the form name servers and resolvers use.
func Canonical(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty value", entity.ErrInvalidAddress)
	}
	if !dottedQuad.MatchString(s) {
		return "", fmt.Errorf("%w: %q is not a dotted quad", entity.ErrInvalidAddress, truncate(s))
	}
	parts := strings.Split(s, ".")
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return "", fmt.Errorf("%w: octet %q of %q out of range", entity.ErrInvalidAddress, part, s)
		}
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "."), nil
}

// Normalize strips every whitespace character from an endpoint response.
func Normalize(body []byte) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(body))
}

func truncate(s string) string {
	const max = 64
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
