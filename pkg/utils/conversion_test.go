package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBool(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want bool
	}{
		{name: "nil", in: nil, want: false},
		{name: "bool true", in: true, want: true},
		{name: "int64 one", in: int64(1), want: true},
		{name: "int zero", in: 0, want: false},
		{name: "tinyint bytes", in: []byte("1"), want: true},
		{name: "string yes", in: "yes", want: true},
		{name: "string false", in: "false", want: false},
		{name: "garbage", in: "maybe", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToBool(tt.in))
		})
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		in     interface{}
		want   float64
		wantOK bool
	}{
		{name: "float64", in: 12.5, want: 12.5, wantOK: true},
		{name: "int", in: 7, want: 7, wantOK: true},
		{name: "int64", in: int64(42), want: 42, wantOK: true},
		{name: "numeric string", in: " 3.14 ", want: 3.14, wantOK: true},
		{name: "db bytes", in: []byte("10"), want: 10, wantOK: true},
		{name: "non-numeric string", in: "abc", wantOK: false},
		{name: "nil", in: nil, wantOK: false},
		{name: "bool", in: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat64(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestToStringSlice(t *testing.T) {
	got, ok := ToStringSlice([]string{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	// JSON decoding yields []interface{}
	got, ok = ToStringSlice([]interface{}{"x", "y"})
	assert.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, got)

	_, ok = ToStringSlice([]interface{}{"x", 1})
	assert.False(t, ok)

	_, ok = ToStringSlice(nil)
	assert.False(t, ok)

	_, ok = ToStringSlice("scalar")
	assert.False(t, ok)
}
