package ir

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON. Snapshot payloads and
// their digests are computed from this form only.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping, U+2028/U+2029 emitted literally
//  3. Strings NFC-normalized
//  4. Floats rejected
func MarshalCanonical(v any) ([]byte, error) {
	val, err := FromAny(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range normalizedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k.normalized)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k.original]); err != nil {
				return fmt.Errorf("value for key %q: %w", k.original, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value type: %T", v)
	}
	return nil
}

type objectKey struct {
	original   string
	normalized string
}

// normalizedKeys orders keys by their NFC form, which is what gets written.
func normalizedKeys(obj Object) []objectKey {
	keys := make([]objectKey, 0, len(obj))
	norms := make(Object, len(obj))
	byNorm := make(map[string]string, len(obj))
	for k := range obj {
		n := norm.NFC.String(k)
		norms[n] = Null{}
		byNorm[n] = k
	}
	for _, n := range norms.SortedKeys() {
		keys = append(keys, objectKey{original: byNorm[n], normalized: n})
	}
	return keys
}

const hexDigits = "0123456789abcdef"

// writeCanonicalString escapes only what RFC 8785 requires: quote,
// backslash, and control characters below U+0020.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[r>>4])
			buf.WriteByte(hexDigits[r&0xF])
		case r == utf8.RuneError && size == 1:
			buf.WriteString(`�`)
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}
