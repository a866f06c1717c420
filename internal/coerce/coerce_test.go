package coerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
)

func ptr(s string) *string { return &s }

func TestCoerceNumeric(t *testing.T) {
	tests := []struct {
		in   string
		text string
		arg  any
	}{
		{"1000000", "1000000", int64(1000000)},
		{"1,000,000", "1000000", int64(1000000)},
		{"1M", "1000000", int64(1000000)},
		{"1m", "1000000", int64(1000000)},
		{"2.5K", "2500", int64(2500)},
		{"2.5k", "2500", int64(2500)},
		{"1.1M", "1100000", int64(1100000)},
		{"3B", "3000000000", int64(3000000000)},
		{"12,500.75", "12500.75", 12500.75},
		{"0.5", "0.5", 0.5},
		{".5", "0.5", 0.5},
		{"-42", "-42", int64(-42)},
		{"+7", "7", int64(7)},
		{"2.50", "2.5", 2.5},
		{"  15  ", "15", int64(15)},
		{"-0", "0", int64(0)},
		{"1.2345K", "1234.5", 1234.5},
		{"0.12345678901234567891", "0.12345678901234568", 0.12345678901234568},
		{"12345678901234567.5", "12345678901234568", int64(12345678901234568)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := CoerceString(tt.in, catalog.Numeric)
			require.NoError(t, err)
			require.NotNil(t, v.Text())
			assert.Equal(t, tt.text, *v.Text())
			assert.Equal(t, tt.arg, v.SQLArg())
		})
	}
}

func TestCoerceNumericRejects(t *testing.T) {
	inputs := []string{"abc", "1,00", "1,0000", "12,34,567", "1e5", "$100", "2.5KK", "K", ".", "-", "1.", "1 000", "10%", "1.2.3", "9999999999999999999"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := CoerceString(in, catalog.Numeric)
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.CodeInvalidNumber, ae.Code)
			assert.Equal(t, in, ae.Details["input"])
		})
	}
}

func TestCoerceEmptyIsNull(t *testing.T) {
	for _, cat := range []catalog.Category{catalog.Numeric, catalog.Text} {
		for _, raw := range []*string{nil, ptr(""), ptr("   \t")} {
			v, err := Coerce(raw, cat)
			require.NoError(t, err)
			assert.True(t, v.IsNull())
			assert.Nil(t, v.Text())
			assert.Nil(t, v.SQLArg())
		}
	}
}

func TestCoerceText(t *testing.T) {
	v, err := CoerceString("  Series A  ", catalog.Text)
	require.NoError(t, err)
	assert.Equal(t, "Series A", v.String())
	assert.Equal(t, "Series A", v.SQLArg())

	// Text columns keep numeric-looking input verbatim.
	v, err = CoerceString("2.5K", catalog.Text)
	require.NoError(t, err)
	assert.Equal(t, "2.5K", v.String())

	v, err = CoerceString("café", catalog.Text)
	require.NoError(t, err)
	assert.Equal(t, "café", v.String())
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name   string
		stored any
		want   *string
	}{
		{"nil", nil, nil},
		{"int", int64(2500), ptr("2500")},
		{"integral float", float64(2500), ptr("2500")},
		{"fraction", 0.1, ptr("0.1")},
		{"text", "Acme", ptr("Acme")},
		{"bytes", []byte("raw"), ptr("raw")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stringify(tt.stored))
		})
	}
}

func TestEqual(t *testing.T) {
	num := func(s string) Value {
		v, err := CoerceString(s, catalog.Numeric)
		require.NoError(t, err)
		return v
	}
	txt := func(s string) Value {
		v, err := CoerceString(s, catalog.Text)
		require.NoError(t, err)
		return v
	}

	assert.True(t, Equal(float64(2500), num("2.5K"), catalog.Numeric))
	assert.True(t, Equal(int64(1000000), num("1M"), catalog.Numeric))
	assert.True(t, Equal(0.1, num("0.1"), catalog.Numeric))
	assert.True(t, Equal(0.12345678901234568, num("0.12345678901234567891"), catalog.Numeric))
	assert.True(t, Equal("2.50", num("2.5"), catalog.Numeric))
	assert.False(t, Equal(int64(2500), num("2.6K"), catalog.Numeric))
	assert.False(t, Equal("n/a", num("1"), catalog.Numeric))

	assert.True(t, Equal(nil, Null(), catalog.Numeric))
	assert.False(t, Equal(nil, num("0"), catalog.Numeric))
	assert.False(t, Equal(int64(0), Null(), catalog.Numeric))

	assert.True(t, Equal("Seed", txt("Seed"), catalog.Text))
	assert.False(t, Equal("Seed", txt("seed"), catalog.Text))
	assert.False(t, Equal("", Null(), catalog.Text))
}
