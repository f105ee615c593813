package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/repository"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

const bulkPageSize = 100

// BulkAction is an operation applied to every ticket of a category.
type BulkAction string

const (
	BulkArchive BulkAction = "archive"
	BulkDelete  BulkAction = "delete"
)

// BulkFailure records a ticket the action could not be applied to.
type BulkFailure struct {
	TicketID     string `json:"ticket_id"`
	TicketNumber string `json:"ticket_number"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

// BulkResult summarizes a bulk run.
type BulkResult struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failures  []BulkFailure `json:"failures"`
}

// BulkOperator applies archive or delete to a whole category.
type BulkOperator struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
	machine    *TicketService
	logger     *zap.Logger
}

// NewBulkOperator constructs the operator.
func NewBulkOperator(tickets repository.TicketRepository, categories repository.CategoryRepository, machine *TicketService, logger *zap.Logger) *BulkOperator {
	return &BulkOperator{tickets: tickets, categories: categories, machine: machine, logger: logger}
}

// Apply runs action on each non-deleted ticket of the category. A failing
// ticket is recorded and the batch continues.
func (b *BulkOperator) Apply(ctx context.Context, guildID, categoryID string, action BulkAction, actorID string) (*BulkResult, error) {
	var run func(ctx context.Context, guildID, ticketID, actorID string) (*domain.Ticket, error)
	switch action {
	case BulkArchive:
		run = b.machine.Archive
	case BulkDelete:
		run = b.machine.Delete
	default:
		return nil, apperrors.NewValidationError("unknown bulk action", map[string]any{"action": action})
	}

	category, err := b.categories.GetByID(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && category.GuildID != guildID) {
		return nil, apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailure("load category", err)
	}

	// collect first: deleting shrinks the filtered set while paging
	targets, err := b.collect(ctx, guildID, categoryID)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Attempted: len(targets), Failures: []BulkFailure{}}
	for _, ticket := range targets {
		if _, err := run(ctx, guildID, ticket.ID, actorID); err != nil {
			domainErr := apperrors.ToDomainError(err)
			result.Failures = append(result.Failures, BulkFailure{
				TicketID:     ticket.ID,
				TicketNumber: ticket.TicketNumber,
				Code:         domainErr.Code,
				Message:      domainErr.Message,
			})
			continue
		}
		result.Succeeded++
	}
	b.logger.Info("bulk ticket operation",
		zap.String("guild_id", guildID),
		zap.String("category_id", categoryID),
		zap.String("action", string(action)),
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded))
	return result, nil
}

func (b *BulkOperator) collect(ctx context.Context, guildID, categoryID string) ([]domain.Ticket, error) {
	var all []domain.Ticket
	for offset := 0; ; offset += bulkPageSize {
		page, err := b.tickets.ListWithFilter(ctx, repository.TicketFilter{
			GuildID:    guildID,
			CategoryID: &categoryID,
			Limit:      bulkPageSize,
			Offset:     offset,
		})
		if err != nil {
			return nil, apperrors.NewPersistenceFailure("list category tickets", err)
		}
		all = append(all, page...)
		if len(page) < bulkPageSize {
			return all, nil
		}
	}
}
