package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCardNumber(t *testing.T) {
	assert.Equal(t, "4111111111111111", NormalizeCardNumber("4111 1111 1111 1111"))
	assert.Equal(t, "4111111111111111", NormalizeCardNumber("4111-1111-1111-1111"))
	assert.Equal(t, "4111111111111111", NormalizeCardNumber("4111111111111111"))
}

func TestValidLuhn(t *testing.T) {
	tests := []struct {
		name       string
		cardNumber string
		expected   bool
	}{
		{name: "valid visa", cardNumber: "4111111111111111", expected: true},
		{name: "valid mastercard", cardNumber: "5555555555554444", expected: true},
		{name: "valid amex", cardNumber: "378282246310005", expected: true},
		{name: "wrong check digit", cardNumber: "4111111111111112", expected: false},
		{name: "too short", cardNumber: "411111111111", expected: false},
		{name: "too long", cardNumber: "41111111111111111111", expected: false},
		{name: "empty", cardNumber: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, validLuhn(tt.cardNumber))
		})
	}
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "****1111", MaskCardNumber("4111111111111111"))
	assert.Equal(t, "****1111", MaskCardNumber("4111 1111 1111 1111"))
	assert.Equal(t, "****", MaskCardNumber("123"))
}
