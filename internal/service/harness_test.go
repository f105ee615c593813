package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-engine/internal/clock"
	"github.com/spec-kit/ticket-engine/internal/config"
	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/events"
	"github.com/spec-kit/ticket-engine/internal/messaging"
	"github.com/spec-kit/ticket-engine/internal/messaging/mock"
	"github.com/spec-kit/ticket-engine/internal/observability"
	"github.com/spec-kit/ticket-engine/internal/repository/memory"
)

const (
	testGuild     = "guild-1"
	testContainer = "container-1"
	testRequester = "user-ada"
	testModerator = "mod-1"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store      *memory.Store
	clock      *clock.FakeClock
	messenger  *mock.MockMessenger
	metrics    *observability.Metrics
	configs    *GuildConfigService
	resolver   *CategoryResolver
	categories *CategoryService
	templates  *TemplateService
	provision  *Provisioner
	tickets    *TicketService
	gate       *RatingGate
	bulk       *BulkOperator

	mu       sync.Mutex
	created  []messaging.ChannelSpec
	sent     map[string][]messaging.OutgoingMessage
	perms    map[string][]messaging.Overwrite
	renamed  map[string]string
	channels int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	clk := clock.Fake(testStart)
	store := memory.NewStore().WithClock(clk.Now)
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()
	messenger := mock.NewMockMessenger(ctrl)

	configs := NewGuildConfigService(store.GuildConfigs(), config.TicketConfig{
		DefaultAutoCloseHours:  24,
		DefaultMaxOpen:         3,
		TranscriptMessageLimit: 500,
		WelcomeMessage:         "Thanks for reaching out.",
	})
	resolver := NewCategoryResolver(store.Categories(), configs, NewCategoryCache(clk, time.Minute))
	templates := NewTemplateService(store.Templates(), store.Categories(), clk)
	transcripts := NewTranscriptEngine(messenger, store.Categories(), clk, metrics, logger, 500)
	gate := NewRatingGate(store.Tickets(), store.Ratings(), configs, messenger, dispatcher, clk, logger)
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		Configs:     configs,
		Messenger:   messenger,
		Transcripts: transcripts,
		RatingGate:  gate,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Clock:       clk,
		Logger:      logger,
	})
	NewAuditService(dispatcher, store.History(), logger).RegisterHandlers()

	return &harness{
		store:      store,
		clock:      clk,
		messenger:  messenger,
		metrics:    metrics,
		configs:    configs,
		resolver:   resolver,
		categories: NewCategoryService(store.Categories(), resolver),
		templates:  templates,
		provision:  NewProvisioner(store.Tickets(), resolver, templates, messenger, dispatcher, clk, logger),
		tickets:    tickets,
		gate:       gate,
		bulk:       NewBulkOperator(store.Tickets(), store.Categories(), tickets, logger),
		sent:       map[string][]messaging.OutgoingMessage{},
		perms:      map[string][]messaging.Overwrite{},
		renamed:    map[string]string{},
	}
}

// configure saves a guild config with a ticket container and no open limit.
func (h *harness) configure(t *testing.T) {
	t.Helper()
	container, unlimited := testContainer, 0
	_, err := h.configs.Update(context.Background(), testGuild, GuildConfigPatch{
		ChannelContainerID: &container,
		MaxOpenTickets:     &unlimited,
	})
	require.NoError(t, err)
}

// allowMessaging makes every messenger call succeed and records what was sent.
// memberErr, when set, is returned by member lookups and direct messages.
func (h *harness) allowMessaging(memberErr error) {
	m := h.messenger.EXPECT()
	m.Channel(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id string) (*messaging.Channel, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			name := "ticket-" + id
			if renamed, ok := h.renamed[id]; ok {
				name = renamed
			}
			return &messaging.Channel{ID: id, GuildID: testGuild, Name: name, IsContainer: id == testContainer || id == "archive-1"}, nil
		}).AnyTimes()
	m.CreateChannel(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, spec messaging.ChannelSpec) (string, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.channels++
			h.created = append(h.created, spec)
			return fmt.Sprintf("chan-%d", h.channels), nil
		}).AnyTimes()
	m.CreateContainer(gomock.Any(), testGuild, archiveContainerName, gomock.Any()).Return("archive-1", nil).AnyTimes()
	m.SetChannelName(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id, name string) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.renamed[id] = name
			return nil
		}).AnyTimes()
	m.MoveChannel(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	m.SetPermission(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id string, o messaging.Overwrite) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.perms[id] = append(h.perms[id], o)
			return nil
		}).AnyTimes()
	m.SendMessage(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id string, msg messaging.OutgoingMessage) (string, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.sent[id] = append(h.sent[id], msg)
			return fmt.Sprintf("msg-%d", len(h.sent[id])), nil
		}).AnyTimes()
	m.SendDirectMessage(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, _ messaging.OutgoingMessage) (string, error) {
			if memberErr != nil {
				return "", memberErr
			}
			return "dm-1", nil
		}).AnyTimes()
	m.FetchMessages(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]messaging.HistoryMessage{
		{ID: "m2", AuthorID: testModerator, AuthorName: "Mod", Content: "Refund issued", CreatedAt: testStart.Add(2 * time.Minute)},
		{ID: "m1", AuthorID: testRequester, AuthorName: "Ada", Content: "I was charged twice", CreatedAt: testStart.Add(time.Minute)},
	}, nil).AnyTimes()
	m.DeleteChannel(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	m.Member(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, guildID, userID string) (*messaging.Member, error) {
			if memberErr != nil {
				return nil, memberErr
			}
			return &messaging.Member{GuildID: guildID, UserID: userID, DisplayName: "Ada"}, nil
		}).AnyTimes()
}

func (h *harness) open(t *testing.T, subject string, categoryID *string) *domain.Ticket {
	t.Helper()
	ticket, err := h.provision.Provision(context.Background(), ProvisionRequest{
		GuildID:        testGuild,
		RequesterID:    testRequester,
		RequesterName:  "Ada",
		RequesterRoles: []string{},
		CategoryID:     categoryID,
		Subject:        subject,
	})
	require.NoError(t, err)
	return ticket
}

func (h *harness) sentTo(channelID string) []messaging.OutgoingMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]messaging.OutgoingMessage(nil), h.sent[channelID]...)
}
