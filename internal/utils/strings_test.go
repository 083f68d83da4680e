package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail(" Visitor@Example.com "))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("visitor"))
	assert.False(t, IsValidEmail("a@b@c.com"))
	assert.False(t, IsValidEmail("visitor@localhost"))
}

func TestWithinLength(t *testing.T) {
	assert.True(t, WithinLength("Wanjiru", 100))
	assert.False(t, WithinLength("   ", 100))
	assert.False(t, WithinLength("abcdef", 5))
	assert.True(t, WithinLength("ñandú", 5))
}
