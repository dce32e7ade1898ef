package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.fr"))
	assert.True(t, IsValidEmail("someone@localhost"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("nobody"))
	assert.False(t, IsValidEmail("@example.com"))
	assert.False(t, IsValidEmail("someone@"))
}

func TestIsAdult(t *testing.T) {
	assert.False(t, IsAdult(0))
	assert.False(t, IsAdult(17))
	assert.True(t, IsAdult(18))
	assert.True(t, IsAdult(64))
}

func TestIsDigitKey(t *testing.T) {
	for _, r := range "0123456789" {
		assert.True(t, IsDigitKey(r), "%q", r)
	}
	for _, r := range "aZ -+.\n٣" {
		assert.False(t, IsDigitKey(r), "%q", r)
	}
}
