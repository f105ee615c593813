package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// TicketNumberLength is the total length including the prefix.
	TicketNumberLength = 9
	// TicketNumberPrefix is the fixed first character of every ticket number.
	TicketNumberPrefix = 'T'

	ticketNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewTicketNumber draws a random human-facing ticket code such as "T4K9Q2ZX1".
// Uniqueness is enforced by the store; callers retry on a duplicate.
func NewTicketNumber() (string, error) {
	result := make([]byte, TicketNumberLength)
	result[0] = TicketNumberPrefix
	alphabetLen := big.NewInt(int64(len(ticketNumberAlphabet)))
	for i := 1; i < TicketNumberLength; i++ {
		num, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = ticketNumberAlphabet[num.Int64()]
	}
	return string(result), nil
}

// IsTicketNumber reports whether s has the ticket number shape.
func IsTicketNumber(s string) bool {
	if len(s) != TicketNumberLength || s[0] != TicketNumberPrefix {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
