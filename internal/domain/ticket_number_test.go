package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^T[A-Z0-9]{8}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		number, err := NewTicketNumber()
		require.NoError(t, err)
		assert.Len(t, number, TicketNumberLength)
		assert.Regexp(t, pattern, number)
		assert.True(t, IsTicketNumber(number))
		seen[number] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func TestIsTicketNumber(t *testing.T) {
	assert.False(t, IsTicketNumber("X12345678"))
	assert.False(t, IsTicketNumber("T1234567"))
	assert.False(t, IsTicketNumber("Tabcdefgh"))
	assert.True(t, IsTicketNumber("T0000ZZZZ"))
}
