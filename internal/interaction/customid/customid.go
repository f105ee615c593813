// Package customid encodes and parses the identifiers carried by ticket
// buttons and modals.
package customid

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Claim   = "ticket_claim"
	Close   = "ticket_close"
	Archive = "ticket_archive"
	Delete  = "ticket_delete"

	ratePrefix  = "ticket_rate_"
	openPrefix  = "ticket_open_"
	modalPrefix = "ticket_modal_"

	// General stands for "no category" in panel and modal identifiers.
	General = "general"
)

// Kind classifies a parsed identifier.
type Kind int

const (
	KindUnknown Kind = iota
	KindClaim
	KindClose
	KindArchive
	KindDelete
	KindRate
	KindOpen
	KindModal
)

// ID is a parsed interaction identifier.
type ID struct {
	Kind       Kind
	TicketID   string
	Rating     int
	CategoryID *string
}

// Rate encodes a rating control for ticketID.
func Rate(ticketID string, rating int) string {
	return fmt.Sprintf("%s%s_%d", ratePrefix, ticketID, rating)
}

// Open encodes a panel button for categoryID; nil means general.
func Open(categoryID *string) string {
	return openPrefix + categoryPart(categoryID)
}

// Modal encodes the creation modal for categoryID; nil means general.
func Modal(categoryID *string) string {
	return modalPrefix + categoryPart(categoryID)
}

// Parse decodes raw. Unrecognised identifiers yield KindUnknown.
func Parse(raw string) ID {
	switch raw {
	case Claim:
		return ID{Kind: KindClaim}
	case Close:
		return ID{Kind: KindClose}
	case Archive:
		return ID{Kind: KindArchive}
	case Delete:
		return ID{Kind: KindDelete}
	}
	switch {
	case strings.HasPrefix(raw, ratePrefix):
		rest := strings.TrimPrefix(raw, ratePrefix)
		// ticket ids may contain '_' so the rating is taken from the last one
		idx := strings.LastIndexByte(rest, '_')
		if idx <= 0 {
			return ID{}
		}
		rating, err := strconv.Atoi(rest[idx+1:])
		if err != nil {
			return ID{}
		}
		return ID{Kind: KindRate, TicketID: rest[:idx], Rating: rating}
	case strings.HasPrefix(raw, openPrefix):
		return ID{Kind: KindOpen, CategoryID: parseCategory(strings.TrimPrefix(raw, openPrefix))}
	case strings.HasPrefix(raw, modalPrefix):
		return ID{Kind: KindModal, CategoryID: parseCategory(strings.TrimPrefix(raw, modalPrefix))}
	}
	return ID{}
}

func categoryPart(categoryID *string) string {
	if categoryID == nil || *categoryID == "" {
		return General
	}
	return *categoryID
}

func parseCategory(part string) *string {
	if part == "" || part == General {
		return nil
	}
	return &part
}
