package chartink

import (
	"strconv"
	"strings"
	"unicode"
)

// Sentinel is the value the screener puts in a field it has no data for.
const Sentinel = 1.7e308

// NotAvailableText is how NotAvailable is rendered.
const NotAvailableText = "N/A"

type Kind int

const (
	KindNotAvailable Kind = iota
	KindNumber
	KindText
)

// Value is a single cell of a result row.
type Value struct {
	kind   Kind
	number float64
	text   string
}

// NotAvailable marks a field the screener has no data for.
var NotAvailable = Value{}

func Number(n float64) Value {
	if n == Sentinel {
		return NotAvailable
	}
	return Value{kind: KindNumber, number: n}
}

func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNotAvailable() bool {
	return v.kind == KindNotAvailable
}

func (v Value) Float() (float64, bool) {
	return v.number, v.kind == KindNumber
}

// Any returns a float64 for numbers and a string otherwise.
func (v Value) Any() any {
	if v.kind == KindNumber {
		return v.number
	}
	return v.String()
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindText:
		return v.text
	default:
		return NotAvailableText
	}
}

// TitleCase upper-cases every cased letter that does not follow another
// cased letter and lower-cases the rest, ex. "distance from sma50" ->
// "Distance From Sma50". Uncased runes (digits, CJK) start a new word.
// It is idempotent.
func TitleCase(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	prevCased := false
	for _, r := range s {
		if !isCased(r) {
			out.WriteRune(r)
			prevCased = false
			continue
		}
		if prevCased {
			out.WriteRune(unicode.ToLower(r))
		} else {
			out.WriteRune(unicode.ToTitle(r))
		}
		prevCased = true
	}
	return out.String()
}

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
}
