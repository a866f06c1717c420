package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"go nil", nil, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"mixed array", Array{Int(1), String("two"), Null{}}, `[1,"two",null]`},
		{"go map", map[string]any{"b": "x", "a": int64(1)}, `{"a":1,"b":"x"}`},
		{"string map", map[string]string{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"alpha": Object{"y": Int(2), "b": Int(3)},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"b":3,"y":2},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before
	// U+E000 in UTF-16 but after it in UTF-8.
	obj := Object{
		"\uE000": Int(1),
		"𐀀":      Int(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"𐀀":2,"`+"\uE000"+`":1}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<b>Fish & Chips</b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<b>Fish & Chips</b>"`, string(result))
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `C:\deals`, `"C:\\deals"`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"control", "a\x01b", `"a\u0001b"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator", "a\u2029b", "\"a\u2029b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"amount": 2.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestMarshalCanonicalNFC(t *testing.T) {
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	a, err := MarshalCanonical(Object{composed: String(composed)})
	require.NoError(t, err)
	b, err := MarshalCanonical(Object{decomposed: String(decomposed)})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	obj := Object{
		"rows":   Array{StringMap(map[string]string{"task.Task_Name": "Diligence", "company.Company_Name": "Acme"})},
		"root":   Object{"id": String("c1"), "Website": Null{}},
		"fields": Array{},
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOptionalString(t *testing.T) {
	s := "x"
	assert.Equal(t, String("x"), OptionalString(&s))
	assert.Equal(t, Null{}, OptionalString(nil))
}
