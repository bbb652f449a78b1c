package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gagbot/internal/db"
	"github.com/iamwavecut/gagbot/internal/mute"
)

const (
	testChatID   = int64(-100500)
	ownerID      = int64(1)
	adminID      = int64(2)
	memberID     = int64(100)
	victimID     = int64(200)
	botAccountID = int64(900)
)

type dbStub struct {
	settings map[int64]*db.Settings
	events   []*db.GagEvent
}

func (s *dbStub) Close() error { return nil }

func (s *dbStub) GetSettings(_ context.Context, chatID int64) (*db.Settings, error) {
	return s.settings[chatID], nil
}

func (s *dbStub) SetSettings(_ context.Context, settings *db.Settings) error {
	if s.settings == nil {
		s.settings = make(map[int64]*db.Settings)
	}
	s.settings[settings.ID] = settings
	return nil
}

func (s *dbStub) AddGagEvent(_ context.Context, event *db.GagEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *dbStub) ListGagEvents(_ context.Context, chatID int64, limit int) ([]*db.GagEvent, error) {
	var events []*db.GagEvent
	for _, event := range s.events {
		if event.ChatID == chatID && len(events) < limit {
			events = append(events, event)
		}
	}
	return events, nil
}

type serviceStub struct {
	db *dbStub
}

func (s *serviceStub) GetBot() *api.BotAPI { return nil }
func (s *serviceStub) GetDB() db.Client    { return s.db }

func (s *serviceStub) GetSettings(ctx context.Context, chatID int64) (*db.Settings, error) {
	return s.db.GetSettings(ctx, chatID)
}

func (s *serviceStub) SetSettings(ctx context.Context, settings *db.Settings) error {
	return s.db.SetSettings(ctx, settings)
}

func (s *serviceStub) GetLanguage(context.Context, int64, *api.User) string { return "en" }

type messengerStub struct {
	replies   []string
	deleted   []int
	admins    []api.ChatMember
	adminsErr error
}

func (m *messengerStub) SendReply(_ context.Context, _ int64, _ int, text string) error {
	m.replies = append(m.replies, text)
	return nil
}

func (m *messengerStub) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *messengerStub) GetAdministrators(context.Context, int64) ([]api.ChatMember, error) {
	if m.adminsErr != nil {
		return nil, m.adminsErr
	}
	return m.admins, nil
}

func chatAdmins() []api.ChatMember {
	return []api.ChatMember{
		{Status: "creator", User: &api.User{ID: ownerID, UserName: "owner"}},
		{Status: "administrator", User: &api.User{ID: adminID, UserName: "admin"}, CanRestrictMembers: true},
	}
}

func newTestGag(t *testing.T) (*Gag, *messengerStub, *dbStub) {
	t.Helper()
	store := &dbStub{}
	tg := &messengerStub{admins: chatAdmins()}
	g := NewGag(&serviceStub{db: store}, tg, mute.NewStore())
	return g, tg, store
}

func testUser(id int64, name string) *api.User {
	return &api.User{ID: id, UserName: name}
}

func commandMessage(sender *api.User, text string, replyTo *api.User) *api.Message {
	msg := &api.Message{
		MessageID: 10,
		From:      sender,
		Text:      text,
		Date:      int(time.Now().Unix()),
		Entities: []api.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])},
		},
	}
	if replyTo != nil {
		msg.ReplyToMessage = &api.Message{MessageID: 9, From: replyTo}
	}
	return msg
}

func plainMessage(sender *api.User, text string) *api.Message {
	return &api.Message{
		MessageID: 11,
		From:      sender,
		Text:      text,
		Date:      int(time.Now().Unix()),
	}
}

func handle(t *testing.T, g *Gag, msg *api.Message) bool {
	t.Helper()
	proceed, err := g.Handle(context.Background(), &api.Update{Message: msg}, &api.Chat{ID: testChatID}, msg.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	return proceed
}

func lastReply(t *testing.T, tg *messengerStub) string {
	t.Helper()
	if len(tg.replies) == 0 {
		t.Fatalf("expected a reply to be sent")
	}
	return tg.replies[len(tg.replies)-1]
}

func TestOwnerGagsVictim(t *testing.T) {
	t.Parallel()

	g, tg, store := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber 10m", victim))

	if !g.store.IsMuted(victimID) {
		t.Fatalf("expected victim to be gagged")
	}
	reply := lastReply(t, tg)
	if !strings.Contains(reply, "@victim") || !strings.Contains(reply, "10m") {
		t.Fatalf("unexpected confirmation: %q", reply)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(store.events))
	}
	event := store.events[0]
	if event.Action != db.GagActionGag || event.UserID != victimID || event.IssuerID != ownerID || event.DurationSeconds != 600 {
		t.Fatalf("unexpected audit event: %#v", event)
	}
}

func TestPlainMemberIsRefused(t *testing.T) {
	t.Parallel()

	g, tg, store := newTestGag(t)
	member := testUser(memberID, "member")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(member, "/uncumcumber", victim))

	if g.store.IsMuted(victimID) {
		t.Fatalf("refused command must not change state")
	}
	if reply := lastReply(t, tg); reply != refusalText {
		t.Fatalf("expected refusal, got %q", reply)
	}
	if len(store.events) != 0 {
		t.Fatalf("refused command must not be audited")
	}
}

func TestAdminCannotTargetOwner(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	admin := testUser(adminID, "admin")
	owner := testUser(ownerID, "owner")

	handle(t, g, commandMessage(admin, "/cumcumber 10m", owner))

	if g.store.IsMuted(ownerID) {
		t.Fatalf("owner must never end up gagged")
	}
	if reply := lastReply(t, tg); reply != refusalText {
		t.Fatalf("expected refusal, got %q", reply)
	}
}

func TestGagWithoutReplyGetsUsage(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")

	handle(t, g, commandMessage(owner, "/cumcumber 10m", nil))

	if reply := lastReply(t, tg); reply != gagUsageText {
		t.Fatalf("expected gag usage text, got %q", reply)
	}
}

func TestSelfTargetGetsUsage(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")

	handle(t, g, commandMessage(owner, "/cumcumber 10m", owner))

	if g.store.IsMuted(ownerID) {
		t.Fatalf("self-gag must not change state")
	}
	if reply := lastReply(t, tg); reply != gagUsageText {
		t.Fatalf("expected gag usage text, got %q", reply)
	}
}

func TestBotTargetGetsUsageButChannelIsExempt(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")

	bot := testUser(botAccountID, "somebot")
	bot.IsBot = true
	handle(t, g, commandMessage(owner, "/cumcumber 10m", bot))
	if g.store.IsMuted(botAccountID) {
		t.Fatalf("bots must not be gagged")
	}
	if reply := lastReply(t, tg); reply != gagUsageText {
		t.Fatalf("expected gag usage text, got %q", reply)
	}

	channel := testUser(botAccountID+1, "")
	channel.IsBot = true
	channel.FirstName = "Channel"
	handle(t, g, commandMessage(owner, "/cumcumber 10m", channel))
	if !g.store.IsMuted(botAccountID + 1) {
		t.Fatalf("the Channel pseudo-account must stay moderatable")
	}
}

func TestRepeatedGagIsRejectedWithoutRenewal(t *testing.T) {
	t.Parallel()

	g, tg, store := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber 1h", victim))
	handle(t, g, commandMessage(owner, "/cumcumber 10m", victim))

	reply := lastReply(t, tg)
	if !strings.Contains(reply, "already gagged") {
		t.Fatalf("expected already-gagged notice, got %q", reply)
	}
	if len(store.events) != 1 {
		t.Fatalf("renewal must not be audited, got %d events", len(store.events))
	}
}

func TestUnparsableDurationGetsUsage(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber potato", victim))

	if g.store.IsMuted(victimID) {
		t.Fatalf("rejected duration must not change state")
	}
	if reply := lastReply(t, tg); reply != usageText {
		t.Fatalf("expected general usage text, got %q", reply)
	}
}

func TestBareGagAppliesDefaultDuration(t *testing.T) {
	t.Parallel()

	g, tg, store := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber", victim))

	if !g.store.IsMuted(victimID) {
		t.Fatalf("bare command must gag for the default duration")
	}
	if reply := lastReply(t, tg); !strings.Contains(reply, "2m") {
		t.Fatalf("expected default 2m duration in reply, got %q", reply)
	}
	if store.events[0].DurationSeconds != 120 {
		t.Fatalf("expected 120s audit duration, got %d", store.events[0].DurationSeconds)
	}
}

func TestOutOfRangeDurationFallsBackToDefault(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber 10s", victim))

	if reply := lastReply(t, tg); !strings.Contains(reply, "2m") {
		t.Fatalf("expected sub-minute duration to collapse to 2m, got %q", reply)
	}
}

func TestCommandWithBotUsernameSuffix(t *testing.T) {
	t.Parallel()

	g, _, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber@cumcumber_gag_bot 10m", victim))

	if !g.store.IsMuted(victimID) {
		t.Fatalf("expected @botname suffix to be stripped")
	}
}

func TestTabSeparatedDurationArgument(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber\t10m", victim))

	if !g.store.IsMuted(victimID) {
		t.Fatalf("expected tab-separated argument to gag the victim")
	}
	if reply := lastReply(t, tg); !strings.Contains(reply, "10m") {
		t.Fatalf("expected the requested 10m duration, got %q", reply)
	}
}

func TestUnknownCommandGetsGeneralUsage(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")

	handle(t, g, commandMessage(owner, "/frobnicate", nil))

	if reply := lastReply(t, tg); reply != usageText {
		t.Fatalf("expected general usage text, got %q", reply)
	}
}

func TestEnforcementDeletesGaggedSendersMessages(t *testing.T) {
	t.Parallel()

	g, tg, store := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber 1h", victim))

	proceed := handle(t, g, plainMessage(victim, "let me speak"))
	if proceed {
		t.Fatalf("enforced message must stop the handler chain")
	}
	if len(tg.deleted) != 1 || tg.deleted[0] != 11 {
		t.Fatalf("expected message 11 to be deleted, got %v", tg.deleted)
	}

	enforceEvents := 0
	for _, event := range store.events {
		if event.Action == db.GagActionEnforce {
			enforceEvents++
		}
	}
	if enforceEvents != 1 {
		t.Fatalf("expected one enforce audit event, got %d", enforceEvents)
	}
}

func TestOrdinaryMessagesFromUnmutedUsersPassThrough(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	member := testUser(memberID, "member")

	if proceed := handle(t, g, plainMessage(member, "hello")); !proceed {
		t.Fatalf("ordinary messages must proceed")
	}
	if len(tg.deleted) != 0 {
		t.Fatalf("nothing should be deleted for unmuted senders")
	}
}

func TestUngagReleasesVictim(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	handle(t, g, commandMessage(owner, "/cumcumber 1h", victim))
	handle(t, g, commandMessage(owner, "/uncumcumber", victim))

	if g.store.IsMuted(victimID) {
		t.Fatalf("expected victim to be released")
	}
	if reply := lastReply(t, tg); !strings.Contains(reply, "released") {
		t.Fatalf("expected release confirmation, got %q", reply)
	}

	handle(t, g, commandMessage(owner, "/uncumcumber", victim))
	if reply := lastReply(t, tg); !strings.Contains(reply, "not gagged") {
		t.Fatalf("expected not-gagged notice, got %q", reply)
	}
}

func TestDisabledChatIsIgnored(t *testing.T) {
	t.Parallel()

	g, tg, store := newTestGag(t)
	settings := db.DefaultSettings(testChatID)
	settings.Enabled = false
	if err := store.SetSettings(context.Background(), settings); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")
	proceed := handle(t, g, commandMessage(owner, "/cumcumber 10m", victim))

	if !proceed {
		t.Fatalf("disabled chats must pass updates along")
	}
	if g.store.IsMuted(victimID) || len(tg.replies) != 0 {
		t.Fatalf("disabled chats must cause no actions")
	}
}

func TestFirstContactCreatesDefaultSettings(t *testing.T) {
	t.Parallel()

	g, _, store := newTestGag(t)
	member := testUser(memberID, "member")

	handle(t, g, plainMessage(member, "hello"))

	if store.settings[testChatID] == nil || !store.settings[testChatID].Enabled {
		t.Fatalf("expected default settings to be created on first contact")
	}
}

func TestAdministratorFetchFailureSurfacesError(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	tg.adminsErr = errors.New("telegram is down")
	owner := testUser(ownerID, "owner")
	victim := testUser(victimID, "victim")

	_, err := g.Handle(context.Background(), &api.Update{Message: commandMessage(owner, "/cumcumber 10m", victim)}, &api.Chat{ID: testChatID}, owner)
	if err == nil {
		t.Fatalf("expected platform error to surface to the processor")
	}
	if g.store.IsMuted(victimID) {
		t.Fatalf("failed authorization fetch must not change state")
	}
}

func TestNonMessageUpdatesAreIgnored(t *testing.T) {
	t.Parallel()

	g, tg, _ := newTestGag(t)
	proceed, err := g.Handle(context.Background(), &api.Update{}, nil, nil)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !proceed {
		t.Fatalf("non-message updates must proceed")
	}
	if len(tg.replies) != 0 || len(tg.deleted) != 0 {
		t.Fatalf("non-message updates must cause no actions")
	}
}
