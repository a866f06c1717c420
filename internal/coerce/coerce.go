// Package coerce converts free-text input into values for a target column.
package coerce

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/clock"
)

type kind int

const (
	kindNull kind = iota
	kindInt
	kindDecimal
	kindText
)

// Value is a coerced column value: null, integer, decimal or text.
type Value struct {
	kind kind
	i    int64
	dec  *apd.Decimal
	s    string
}

// Null returns the null value.
func Null() Value { return Value{kind: kindNull} }

// Int returns an integer value.
func Int(n int64) Value { return Value{kind: kindInt, i: n} }

// TextValue returns a text value without trimming.
func TextValue(s string) Value { return Value{kind: kindText, s: s} }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == kindNull }

// SQLArg returns v as a driver argument: nil, int64, float64 or string.
func (v Value) SQLArg() any {
	switch v.kind {
	case kindInt:
		return v.i
	case kindDecimal:
		f, err := v.dec.Float64()
		if err != nil {
			return v.dec.Text('f')
		}
		return f
	case kindText:
		return v.s
	default:
		return nil
	}
}

// Text renders v the way ledger rows record it; nil for null.
func (v Value) Text() *string {
	var s string
	switch v.kind {
	case kindInt:
		s = strconv.FormatInt(v.i, 10)
	case kindDecimal:
		s = v.dec.Text('f')
	case kindText:
		s = v.s
	default:
		return nil
	}
	return &s
}

// String implements fmt.Stringer; null renders as "".
func (v Value) String() string {
	if t := v.Text(); t != nil {
		return *t
	}
	return ""
}

// numberPattern accepts an optional sign, digits either plain or grouped
// by commas in threes, an optional fraction, and one magnitude suffix.
var numberPattern = regexp.MustCompile(`^([+-]?)((?:\d{1,3}(?:,\d{3})+)|\d*)(?:\.(\d+))?([kKmMbB]?)$`)

var suffixExponent = map[string]int32{
	"":  0,
	"k": 3,
	"m": 6,
	"b": 9,
}

// Coerce converts raw input for a column of category cat. Empty or
// whitespace-only input becomes null; text is trimmed and NFC-normalized.
func Coerce(raw *string, cat catalog.Category) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return Null(), nil
	}
	if cat != catalog.Numeric {
		return TextValue(norm.NFC.String(trimmed)), nil
	}
	return parseNumber(trimmed)
}

// CoerceString is Coerce for a non-nil input.
func CoerceString(raw string, cat catalog.Category) (Value, error) {
	return Coerce(&raw, cat)
}

func parseNumber(input string) (Value, error) {
	m := numberPattern.FindStringSubmatch(input)
	if m == nil {
		return Value{}, apperr.InvalidNumber(input)
	}
	sign, whole, frac, suffix := m[1], strings.ReplaceAll(m[2], ",", ""), m[3], strings.ToLower(m[4])
	if whole == "" && frac == "" {
		return Value{}, apperr.InvalidNumber(input)
	}

	literal := sign + whole
	if whole == "" {
		literal += "0"
	}
	if frac != "" {
		literal += "." + frac
	}
	d, _, err := apd.NewFromString(literal)
	if err != nil {
		return Value{}, apperr.InvalidNumber(input)
	}
	d.Exponent += suffixExponent[suffix]
	return fromDecimal(d, input)
}

func fromDecimal(d *apd.Decimal, input string) (Value, error) {
	d.Reduce(d)
	if d.Exponent < 0 {
		// Fractions are stored as REAL. Keep only the digits a float64
		// holds so ledger text and later comparisons match the stored value.
		f, err := d.Float64()
		if err != nil {
			return Value{}, apperr.InvalidNumber(input)
		}
		if d, _, err = apd.NewFromString(strconv.FormatFloat(f, 'f', -1, 64)); err != nil {
			return Value{}, apperr.InvalidNumber(input)
		}
		d.Reduce(d)
	}
	if d.IsZero() {
		d.Negative = false
	}
	if d.Exponent >= 0 {
		n, err := d.Int64()
		if err != nil {
			return Value{}, apperr.InvalidNumber(input)
		}
		return Int(n), nil
	}
	return Value{kind: kindDecimal, dec: d}, nil
}

// Stringify renders a stored column value as ledger text; nil stays nil.
// Floats use the shortest exact decimal form so 2500.0 renders as "2500".
func Stringify(stored any) *string {
	var s string
	switch v := stored.(type) {
	case nil:
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case int:
		s = strconv.Itoa(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	case time.Time:
		s = clock.Format(v)
	default:
		s = fmt.Sprint(v)
	}
	return &s
}

// Equal reports whether a stored column value already equals v. Numeric
// columns compare by value, so stored 2500.0 equals coerced 2500; text
// compares exactly. Null equals only null.
func Equal(stored any, v Value, cat catalog.Category) bool {
	current := Stringify(stored)
	if current == nil || v.IsNull() {
		return current == nil && v.IsNull()
	}
	if cat != catalog.Numeric || v.kind == kindText {
		return *current == v.String()
	}

	storedDec, _, err := apd.NewFromString(*current)
	if err != nil {
		return false
	}
	want := v.dec
	if v.kind == kindInt {
		want = apd.New(v.i, 0)
	}
	return storedDec.Cmp(want) == 0
}
