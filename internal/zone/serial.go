package zone

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Span is a byte range [Start, End) within zone text.
type Span struct {
	Start int
	End   int
}

type token struct {
	text string
	span Span
	// record is set on the first token of a record, owner when that token is
	// also in the first column and therefore names the owner.
	record bool
	owner  bool
}

// tokenize splits zone text into fields, dropping comments and the parentheses
// used to continue records over several lines.
func tokenize(content string) []token {
	var tokens []token
	depth := 0
	lineStart := true
	add := func(start, end int) {
		t := token{text: content[start:end], span: Span{start, end}}
		if lineStart && depth == 0 {
			t.record = true
			t.owner = start == 0 || content[start-1] == '\n'
		}
		lineStart = false
		tokens = append(tokens, t)
	}
	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case c == ';':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		case c == '\n':
			lineStart = true
			i++
		case c == '(':
			depth++
			i++
		case c == ')':
			depth = max(depth-1, 0)
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '"':
			start := i
			i++
			for i < len(content) && content[i] != '"' {
				if content[i] == '\\' {
					i++
				}
				i++
			}
			if i < len(content) {
				i++
			}
			add(start, min(i, len(content)))
		default:
			start := i
			for i < len(content) && !strings.ContainsRune(" \t\r\n();\"", rune(content[i])) {
				if content[i] == '\\' {
					i++
				}
				i++
			}
			add(start, min(i, len(content)))
		}
	}
	return tokens
}

var ttlField = regexp.MustCompile(`^(\d+[smhdwSMHDW]?)+$`)

func isTTLOrClass(s string) bool {
	switch strings.ToUpper(s) {
	case "IN", "CH", "HS", "CS":
		return true
	}
	return ttlField.MatchString(s)
}

// typePosition reports whether tokens[i] sits where a record keeps its type:
// after the owner, when there is one, and at most a TTL and a class.
func typePosition(tokens []token, i int) bool {
	r := i
	for r > 0 && !tokens[r].record {
		r--
	}
	if !tokens[r].record || strings.HasPrefix(tokens[r].text, "$") {
		return false
	}
	if tokens[r].owner {
		if r == i {
			return false
		}
		r++
	}
	if i-r > 2 {
		return false
	}
	for _, t := range tokens[r:i] {
		if !isTTLOrClass(t.text) {
			return false
		}
	}
	return true
}

// FindSerial locates the serial field of the first SOA record. ok is false when
// the text has no SOA record with a numeric serial.
func FindSerial(content string) (span Span, serial uint32, ok bool) {
	tokens := tokenize(content)
	for i, t := range tokens {
		if !strings.EqualFold(t.text, "SOA") || !typePosition(tokens, i) {
			continue
		}
		// SOA MNAME RNAME SERIAL ...
		if i+3 >= len(tokens) {
			return Span{}, 0, false
		}
		field := tokens[i+3]
		v, err := strconv.ParseUint(field.text, 10, 32)
		if err != nil {
			return Span{}, 0, false
		}
		return field.span, uint32(v), true
	}
	return Span{}, 0, false
}

func SetSerial(content string, span Span, serial uint32) string {
	return content[:span.Start] + strconv.FormatUint(uint64(serial), 10) + content[span.End:]
}

// serialLess compares serials with RFC 1982 sequence space arithmetic.
func serialLess(a, b uint32) bool {
	return int32(a-b) < 0
}

func dateSerial(now time.Time) uint32 {
	y, m, d := now.UTC().Date()
	return uint32(y*1000000 + int(m)*10000 + d*100)
}

// NextSerial returns a serial greater than old, preferring the YYYYMMDDnn
// convention once the date-based value has caught up.
func NextSerial(old uint32, now time.Time) uint32 {
	base := dateSerial(now)
	if serialLess(old, base) {
		return base
	}
	return old + 1
}
