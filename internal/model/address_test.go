package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddress_Equal(t *testing.T) {
	base := Address{
		Street:     "100 Market St",
		City:       "San Francisco",
		State:      "CA",
		PostalCode: "94105",
		Country:    "US",
	}

	tests := []struct {
		name          string
		other         Address
		caseSensitive bool
		expected      bool
	}{
		{
			name:     "identical addresses match",
			other:    base,
			expected: true,
		},
		{
			name: "different casing matches by default",
			other: Address{
				Street:     "100 MARKET ST",
				City:       "san francisco",
				State:      "ca",
				PostalCode: "94105",
				Country:    "us",
			},
			expected: true,
		},
		{
			name: "surrounding whitespace is ignored",
			other: Address{
				Street:     "  100 Market St ",
				City:       "San Francisco",
				State:      "CA",
				PostalCode: " 94105",
				Country:    "US ",
			},
			expected: true,
		},
		{
			name: "different casing fails in case-sensitive mode",
			other: Address{
				Street:     "100 MARKET ST",
				City:       "San Francisco",
				State:      "CA",
				PostalCode: "94105",
				Country:    "US",
			},
			caseSensitive: true,
			expected:      false,
		},
		{
			name: "different street does not match",
			other: Address{
				Street:     "101 Market St",
				City:       "San Francisco",
				State:      "CA",
				PostalCode: "94105",
				Country:    "US",
			},
			expected: false,
		},
		{
			name: "different postal code does not match",
			other: Address{
				Street:     "100 Market St",
				City:       "San Francisco",
				State:      "CA",
				PostalCode: "94110",
				Country:    "US",
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, base.Equal(tt.other, tt.caseSensitive))
		})
	}
}

func TestAddress_IsZero(t *testing.T) {
	assert.True(t, Address{}.IsZero())
	assert.False(t, Address{City: "London"}.IsZero())
}
