package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomString(t *testing.T) {
	s := RandomString(20)
	assert.Len(t, s, 20)
	for _, r := range s {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	}
	assert.Empty(t, RandomString(0))
}
