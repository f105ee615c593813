package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

const (
	transcriptPageSize   = 100
	transcriptTimeLayout = "2006-01-02 15:04:05 UTC"
	transcriptRule       = "=================================================="
)

// Transcript delivery destinations.
const (
	DestinationDirectMessage     = "direct_message"
	DestinationTicketChannel     = "ticket_channel"
	DestinationTranscriptChannel = "transcript_channel"
)

// DeliveryOutcome is the result of one transcript destination.
type DeliveryOutcome struct {
	Destination string `json:"destination"`
	Delivered   bool   `json:"delivered"`
	Skipped     bool   `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
}

// TranscriptResult summarizes a transcript capture and its fan-out.
type TranscriptResult struct {
	MessageCount int               `json:"message_count"`
	GeneratedAt  time.Time         `json:"generated_at"`
	CaptureError string            `json:"capture_error,omitempty"`
	Deliveries   []DeliveryOutcome `json:"deliveries"`
}

// Delivered reports whether destination received the transcript.
func (r *TranscriptResult) Delivered(destination string) bool {
	for _, d := range r.Deliveries {
		if d.Destination == destination {
			return d.Delivered
		}
	}
	return false
}

// TranscriptEngine captures a ticket channel's history and delivers it.
type TranscriptEngine struct {
	messenger  messaging.Messenger
	categories repository.CategoryRepository
	clock      clock.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
	limit      int
}

// NewTranscriptEngine constructs the engine. limit caps the captured messages.
func NewTranscriptEngine(
	messenger messaging.Messenger,
	categories repository.CategoryRepository,
	clk clock.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
	limit int,
) *TranscriptEngine {
	return &TranscriptEngine{
		messenger:  messenger,
		categories: categories,
		clock:      clk,
		metrics:    metrics,
		logger:     logger,
		limit:      limit,
	}
}

// Capture pages backward through the channel until the limit or the start of
// history, and returns the messages oldest first.
func (e *TranscriptEngine) Capture(ctx context.Context, channelID string) ([]messaging.HistoryMessage, error) {
	var (
		all    []messaging.HistoryMessage
		before string
	)
	for len(all) < e.limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		size := transcriptPageSize
		if remaining := e.limit - len(all); remaining < size {
			size = remaining
		}
		page, err := e.messenger.FetchMessages(ctx, channelID, before, size)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < size {
			break
		}
		before = page[len(page)-1].ID
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all, nil
}

// Run captures, formats and fans out the transcript of a just-closed ticket.
// Every destination is attempted independently; failures are logged.
func (e *TranscriptEngine) Run(ctx context.Context, ticket *domain.Ticket, cfg *domain.GuildConfig) *TranscriptResult {
	now := e.clock.Now()
	result := &TranscriptResult{GeneratedAt: now}

	msgs, err := e.Capture(ctx, ticket.ChannelID)
	if err != nil {
		e.logger.Warn("transcript capture failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err))
		result.CaptureError = err.Error()
		return result
	}
	result.MessageCount = len(msgs)

	text := FormatTranscript(ticket, msgs, now)
	file := func() messaging.File {
		return messaging.File{
			Name:        fmt.Sprintf("transcript-%s.txt", ticket.TicketNumber),
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte(text),
		}
	}

	result.Deliveries = append(result.Deliveries,
		e.deliver(ticket, DestinationDirectMessage, func() error {
			_, err := e.messenger.SendDirectMessage(ctx, ticket.RequesterID, messaging.OutgoingMessage{
				Content: fmt.Sprintf("Your ticket %s (%s) was closed. The transcript is attached.", ticket.TicketNumber, ticket.Subject),
				Files:   []messaging.File{file()},
			})
			return err
		}),
		e.deliver(ticket, DestinationTicketChannel, func() error {
			_, err := e.messenger.SendMessage(ctx, ticket.ChannelID, messaging.OutgoingMessage{
				Content: fmt.Sprintf("Transcript saved: %d messages.", len(msgs)),
				Files:   []messaging.File{file()},
			})
			return err
		}),
	)

	if cfg == nil || cfg.TranscriptChannelID == "" {
		result.Deliveries = append(result.Deliveries, DeliveryOutcome{Destination: DestinationTranscriptChannel, Skipped: true})
		return result
	}
	summary := e.summaryEmbed(ctx, ticket, len(msgs))
	result.Deliveries = append(result.Deliveries,
		e.deliver(ticket, DestinationTranscriptChannel, func() error {
			_, err := e.messenger.SendMessage(ctx, cfg.TranscriptChannelID, messaging.OutgoingMessage{
				Embeds: []messaging.Embed{summary},
				Files:  []messaging.File{file()},
			})
			return err
		}),
	)
	return result
}

func (e *TranscriptEngine) deliver(ticket *domain.Ticket, destination string, send func() error) DeliveryOutcome {
	err := send()
	if errors.Is(err, messaging.ErrMemberNotFound) {
		return DeliveryOutcome{Destination: destination, Skipped: true}
	}
	e.metrics.RecordDelivery(destination, err == nil)
	if err != nil {
		e.logger.Warn("transcript delivery failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("destination", destination),
			zap.Error(apperrors.NewExternalDeliveryFailure("deliver transcript", err)))
		return DeliveryOutcome{Destination: destination, Error: err.Error()}
	}
	return DeliveryOutcome{Destination: destination, Delivered: true}
}

func (e *TranscriptEngine) summaryEmbed(ctx context.Context, ticket *domain.Ticket, count int) messaging.Embed {
	category := "General"
	if ticket.CategoryID != nil {
		if c, err := e.categories.GetByID(ctx, *ticket.CategoryID); err == nil {
			category = c.Name
		}
	}
	closer, reason, duration := "unknown", "No reason given", "n/a"
	if ticket.ClosedByID != nil {
		closer = fmt.Sprintf("<@%s>", *ticket.ClosedByID)
	}
	if ticket.CloseReason != nil && *ticket.CloseReason != "" {
		reason = *ticket.CloseReason
	}
	if ticket.ClosedAt != nil {
		duration = ticket.ClosedAt.Sub(ticket.CreatedAt).Round(time.Minute).String()
	}
	return messaging.Embed{
		Title:       fmt.Sprintf("Ticket %s closed", ticket.TicketNumber),
		Description: ticket.Subject,
		Fields: []messaging.EmbedField{
			{Name: "Category", Value: category, Inline: true},
			{Name: "Requester", Value: fmt.Sprintf("<@%s>", ticket.RequesterID), Inline: true},
			{Name: "Closed by", Value: closer, Inline: true},
			{Name: "Reason", Value: reason},
			{Name: "Messages", Value: fmt.Sprintf("%d", count), Inline: true},
			{Name: "Duration", Value: duration, Inline: true},
		},
		Timestamp: e.clock.Now(),
	}
}

// FormatTranscript renders the plain-text transcript document.
func FormatTranscript(ticket *domain.Ticket, msgs []messaging.HistoryMessage, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString(transcriptRule + "\n")
	b.WriteString("TICKET TRANSCRIPT\n")
	b.WriteString(transcriptRule + "\n")
	fmt.Fprintf(&b, "Ticket:     %s\n", ticket.TicketNumber)
	fmt.Fprintf(&b, "Subject:    %s\n", ticket.Subject)
	fmt.Fprintf(&b, "Guild:      %s\n", ticket.GuildID)
	fmt.Fprintf(&b, "Channel:    %s\n", ticket.ChannelID)
	fmt.Fprintf(&b, "Requester:  %s (%s)\n", ticket.RequesterDisplayName, ticket.RequesterID)
	fmt.Fprintf(&b, "Created:    %s\n", formatTime(&ticket.CreatedAt))
	fmt.Fprintf(&b, "Closed:     %s\n", formatTime(ticket.ClosedAt))
	fmt.Fprintf(&b, "Closed by:  %s\n", valueOr(ticket.ClosedByID, "unknown"))
	fmt.Fprintf(&b, "Reason:     %s\n", valueOr(ticket.CloseReason, "No reason given"))
	b.WriteString(transcriptRule + "\n\n")

	for _, msg := range msgs {
		bot := ""
		if msg.AuthorIsBot {
			bot = " [BOT]"
		}
		fmt.Fprintf(&b, "[%s] %s (%s)%s\n", msg.CreatedAt.UTC().Format(transcriptTimeLayout), msg.AuthorName, msg.AuthorID, bot)
		if msg.Content != "" {
			b.WriteString(msg.Content + "\n")
		}
		for _, a := range msg.Attachments {
			fmt.Fprintf(&b, "  Attachment: %s (%d bytes) %s\n", a.Name, a.Size, a.URL)
		}
		for _, embed := range msg.Embeds {
			fmt.Fprintf(&b, "  Embed: %s\n", embed.Title)
			if embed.Description != "" {
				fmt.Fprintf(&b, "    %s\n", embed.Description)
			}
			for _, f := range embed.Fields {
				fmt.Fprintf(&b, "    %s: %s\n", f.Name, f.Value)
			}
		}
		if len(msg.Reactions) > 0 {
			parts := make([]string, 0, len(msg.Reactions))
			for _, r := range msg.Reactions {
				parts = append(parts, fmt.Sprintf("%s x%d", r.Emoji, r.Count))
			}
			fmt.Fprintf(&b, "  Reactions: %s\n", strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString(transcriptRule + "\n")
	fmt.Fprintf(&b, "Total messages: %d\n", len(msgs))
	fmt.Fprintf(&b, "Generated:      %s\n", generatedAt.UTC().Format(transcriptTimeLayout))
	b.WriteString(transcriptRule + "\n")
	return b.String()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "n/a"
	}
	return t.UTC().Format(transcriptTimeLayout)
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
