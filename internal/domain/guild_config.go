package domain

import "time"

// GuildConfig is the per-guild ticket configuration edited from the dashboard.
type GuildConfig struct {
	GuildID             string
	ChannelContainerID  string
	SupportRoleID       string
	TranscriptChannelID string
	ArchiveContainerID  string
	AutoCloseHours      int
	MaxOpenTickets      int
	WelcomeMessage      string
	PanelTitle          string
	PanelDescription    string
	PanelColor          int
	UpdatedAt           time.Time
}

// DefaultGuildConfig is used for guilds that never saved a configuration.
func DefaultGuildConfig(guildID string, autoCloseHours, maxOpen int, welcome string) *GuildConfig {
	return &GuildConfig{
		GuildID:          guildID,
		AutoCloseHours:   autoCloseHours,
		MaxOpenTickets:   maxOpen,
		WelcomeMessage:   welcome,
		PanelTitle:       "Support tickets",
		PanelDescription: "Press the button below to open a private ticket with the support team.",
		PanelColor:       0x5865F2,
	}
}
