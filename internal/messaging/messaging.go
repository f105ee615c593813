// Package messaging defines the chat platform collaborator used by the
// ticket engine: channel provisioning, permission overwrites, message
// delivery, history fetch and member lookups.
package messaging

//go:generate mockgen -source=messaging.go -destination=mock/messenger.go -package=mock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrChannelNotFound is returned when a channel or container no longer exists.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrMemberNotFound is returned when a user is not a member of the guild.
	ErrMemberNotFound = errors.New("member not found")
)

// Permission is a bit set of channel permissions.
type Permission int64

const (
	PermViewChannel    Permission = 1 << 10
	PermSendMessages   Permission = 1 << 11
	PermManageMessages Permission = 1 << 13
	PermEmbedLinks     Permission = 1 << 14
	PermAttachFiles    Permission = 1 << 15
	PermReadHistory    Permission = 1 << 16
)

// Has reports whether every bit of other is set in p.
func (p Permission) Has(other Permission) bool {
	return p&other == other
}

// OverwriteTarget identifies what an overwrite applies to.
type OverwriteTarget int

const (
	TargetRole OverwriteTarget = iota
	TargetMember
)

// Overwrite is a per-channel permission override for one role or member.
type Overwrite struct {
	ID     string
	Target OverwriteTarget
	Allow  Permission
	Deny   Permission
}

// ChannelSpec describes a text channel to create.
type ChannelSpec struct {
	GuildID    string
	Name       string
	ParentID   string
	Topic      string
	Overwrites []Overwrite
}

// Channel is the subset of channel state the engine reads.
type Channel struct {
	ID          string
	GuildID     string
	Name        string
	ParentID    string
	IsContainer bool
}

// EmbedField is one name/value pair of an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a structured rich message block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
}

// File is an attachment uploaded with a message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ButtonStyle selects the visual style of a button.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is an interactive control carrying an interaction identifier.
type Button struct {
	ID    string
	Label string
	Style ButtonStyle
}

// OutgoingMessage is a message to deliver. Buttons are laid out in rows of five.
type OutgoingMessage struct {
	Content string
	Embeds  []Embed
	Files   []File
	Buttons []Button
}

// Attachment describes a file attached to a history message.
type Attachment struct {
	Name string
	Size int
	URL  string
}

// Reaction summarizes one emoji reaction on a message.
type Reaction struct {
	Emoji string
	Count int
}

// HistoryMessage is a message read back from channel history.
type HistoryMessage struct {
	ID          string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	Content     string
	CreatedAt   time.Time
	Attachments []Attachment
	Embeds      []Embed
	Reactions   []Reaction
}

// Member is a guild member with the roles they hold.
type Member struct {
	GuildID     string
	UserID      string
	DisplayName string
	Roles       []string
	IsBot       bool
}

// HasRole reports whether the member holds roleID.
func (m *Member) HasRole(roleID string) bool {
	for _, role := range m.Roles {
		if role == roleID {
			return true
		}
	}
	return false
}

// Messenger is the channel and messaging collaborator.
type Messenger interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (string, error)
	CreateContainer(ctx context.Context, guildID, name string, overwrites []Overwrite) (string, error)
	Channel(ctx context.Context, channelID string) (*Channel, error)
	SetChannelName(ctx context.Context, channelID, name string) error
	MoveChannel(ctx context.Context, channelID, parentID string) error
	SetPermission(ctx context.Context, channelID string, overwrite Overwrite) error
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (string, error)
	SendDirectMessage(ctx context.Context, userID string, msg OutgoingMessage) (string, error)
	// FetchMessages returns up to limit messages older than before, newest
	// first. An empty before starts from the latest message.
	FetchMessages(ctx context.Context, channelID, before string, limit int) ([]HistoryMessage, error)
	DeleteChannel(ctx context.Context, channelID string) error
	Member(ctx context.Context, guildID, userID string) (*Member, error)
}
