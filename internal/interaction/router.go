// Package interaction routes chat button and modal interactions to the
// ticket services.
package interaction

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/interaction/customid"
	"github.com/spec-kit/ticket-engine/internal/service"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

// Modal field identifiers used by the ticket creation form.
const (
	FieldSubject     = "subject"
	FieldDescription = "description"
)

// Interaction is a button press or modal submission from a guild member.
// CanManage is set when the member holds a guild-wide moderation permission.
type Interaction struct {
	GuildID   string
	ChannelID string
	UserID    string
	UserName  string
	UserRoles []string
	CanManage bool
	CustomID  string
	Fields    map[string]string
}

// Modal asks the chat client to show the ticket creation form.
type Modal struct {
	ID    string
	Title string
}

// Result is what the user sees: a success flag and a message, or a modal to open.
type Result struct {
	Success bool
	Message string
	Modal   *Modal
}

// TicketMachine is the subset of the ticket service the router drives.
type TicketMachine interface {
	GetByChannel(ctx context.Context, channelID string) (*domain.Ticket, error)
	Claim(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error)
	Close(ctx context.Context, guildID, ticketID, actorID string, reason *string) (*service.CloseResult, error)
	Archive(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error)
	Delete(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error)
}

// Rater records ratings and finalizes rated tickets.
type Rater interface {
	Submit(ctx context.Context, ticketID, raterID string, rating int, feedback *string) (*domain.TicketRating, error)
	Finalize(ctx context.Context, ticketID string) (*domain.Ticket, error)
}

// Opener provisions new tickets.
type Opener interface {
	Provision(ctx context.Context, req service.ProvisionRequest) (*domain.Ticket, error)
}

// SupportRoles names the role that staffs a ticket's category.
type SupportRoles interface {
	SupportRoleID(ctx context.Context, guildID string, categoryID *string) (string, error)
}

// Router maps interaction identifiers onto service calls.
type Router struct {
	tickets TicketMachine
	rater   Rater
	opener  Opener
	roles   SupportRoles
	logger  *zap.Logger
}

// NewRouter constructs the router.
func NewRouter(tickets TicketMachine, rater Rater, opener Opener, roles SupportRoles, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{tickets: tickets, rater: rater, opener: opener, roles: roles, logger: logger}
}

// access says who may press a lifecycle button.
type access int

const (
	staffOnly access = iota
	staffOrRequester
)

// Dispatch handles one interaction. Errors are folded into the Result.
func (r *Router) Dispatch(ctx context.Context, in Interaction) Result {
	id := customid.Parse(in.CustomID)
	switch id.Kind {
	case customid.KindClaim:
		return r.lifecycle(ctx, in, staffOnly, func(t *domain.Ticket) (string, error) {
			_, err := r.tickets.Claim(ctx, in.GuildID, t.ID, in.UserID)
			return "You claimed this ticket.", err
		})
	case customid.KindClose:
		return r.lifecycle(ctx, in, staffOrRequester, func(t *domain.Ticket) (string, error) {
			_, err := r.tickets.Close(ctx, in.GuildID, t.ID, in.UserID, nil)
			return fmt.Sprintf("Ticket %s closed.", t.TicketNumber), err
		})
	case customid.KindArchive:
		return r.lifecycle(ctx, in, staffOnly, func(t *domain.Ticket) (string, error) {
			_, err := r.tickets.Archive(ctx, in.GuildID, t.ID, in.UserID)
			return fmt.Sprintf("Ticket %s archived.", t.TicketNumber), err
		})
	case customid.KindDelete:
		return r.lifecycle(ctx, in, staffOnly, func(t *domain.Ticket) (string, error) {
			_, err := r.tickets.Delete(ctx, in.GuildID, t.ID, in.UserID)
			return fmt.Sprintf("Ticket %s deleted.", t.TicketNumber), err
		})
	case customid.KindRate:
		return r.rate(ctx, in, id)
	case customid.KindOpen:
		return Result{Success: true, Modal: &Modal{ID: customid.Modal(id.CategoryID), Title: "Open a ticket"}}
	case customid.KindModal:
		return r.open(ctx, in, id)
	default:
		return Result{Message: "Unknown action."}
	}
}

func (r *Router) lifecycle(ctx context.Context, in Interaction, who access, run func(*domain.Ticket) (string, error)) Result {
	ticket, err := r.tickets.GetByChannel(ctx, in.ChannelID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return Result{Message: "This channel is not an active ticket."}
		}
		return r.failure(in, err)
	}
	if err := r.authorize(ctx, in, ticket, who); err != nil {
		return r.failure(in, err)
	}
	msg, err := run(ticket)
	if err != nil {
		return r.failure(in, err)
	}
	return Result{Success: true, Message: msg}
}

// authorize lets guild moderators and holders of the ticket's support role
// through. With staffOrRequester the ticket's requester is allowed too. When
// no support role is configured only moderators count as staff.
func (r *Router) authorize(ctx context.Context, in Interaction, ticket *domain.Ticket, who access) error {
	if in.CanManage {
		return nil
	}
	if who == staffOrRequester && in.UserID == ticket.RequesterID {
		return nil
	}
	roleID, err := r.roles.SupportRoleID(ctx, ticket.GuildID, ticket.CategoryID)
	if err != nil {
		return err
	}
	if roleID != "" && slices.Contains(in.UserRoles, roleID) {
		return nil
	}
	return apperrors.NewForbidden("only support staff can do that")
}

func (r *Router) rate(ctx context.Context, in Interaction, id customid.ID) Result {
	if _, err := r.rater.Submit(ctx, id.TicketID, in.UserID, id.Rating, nil); err != nil {
		// A prompt left over from before a reopen still releases the ticket.
		if apperrors.HasCode(err, apperrors.CodeAlreadyRated) {
			r.finalize(ctx, id.TicketID)
		}
		return r.failure(in, err)
	}
	r.finalize(ctx, id.TicketID)
	return Result{Success: true, Message: fmt.Sprintf("Thanks for your feedback! You rated %d/5.", id.Rating)}
}

func (r *Router) finalize(ctx context.Context, ticketID string) {
	if _, err := r.rater.Finalize(ctx, ticketID); err != nil {
		r.logger.Warn("finalize after rating failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (r *Router) open(ctx context.Context, in Interaction, id customid.ID) Result {
	req := service.ProvisionRequest{
		GuildID:        in.GuildID,
		RequesterID:    in.UserID,
		RequesterName:  in.UserName,
		RequesterRoles: in.UserRoles,
		CategoryID:     id.CategoryID,
		Subject:        strings.TrimSpace(in.Fields[FieldSubject]),
	}
	if description := strings.TrimSpace(in.Fields[FieldDescription]); description != "" {
		req.Description = &description
	}
	if req.RequesterRoles == nil {
		req.RequesterRoles = []string{}
	}
	ticket, err := r.opener.Provision(ctx, req)
	if err != nil {
		return r.failure(in, err)
	}
	return Result{Success: true, Message: fmt.Sprintf("Your ticket %s is ready: <#%s>", ticket.TicketNumber, ticket.ChannelID)}
}

func (r *Router) failure(in Interaction, err error) Result {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code == apperrors.CodeInternal || domainErr.Code == apperrors.CodePersistence {
		r.logger.Error("interaction failed",
			zap.String("custom_id", in.CustomID),
			zap.String("channel_id", in.ChannelID),
			zap.Error(err))
		return Result{Message: "Something went wrong. Please try again later."}
	}
	return Result{Message: domainErr.Message}
}
