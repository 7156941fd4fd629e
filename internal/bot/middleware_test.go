package bot

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"balance-ledger/internal/config"
)

// TestAdminMiddlewareProperty checks that a command runs if and only if the
// sender is listed in admin.ids.
func TestAdminMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000), 1, 10).Draw(t, "adminIDs")
		userID := rapid.Int64Range(1, 1000).Draw(t, "userID")

		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}
		next := &spy{}
		c := groupContext(-1, userID)

		if err := AdminMiddleware(cfg)(next.handle)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		isAdmin := slices.Contains(adminIDs, userID)
		if isAdmin != (next.calls == 1) {
			t.Fatalf("admin=%v but handler calls=%d", isAdmin, next.calls)
		}
		if !isAdmin && len(c.replies) != 1 {
			t.Fatalf("non-admin should get one permission reply, got %v", c.replies)
		}
	})
}

// TestWhitelistMiddlewareProperty checks that group commands are processed if
// and only if the chat is whitelisted, and that an empty whitelist allows all.
func TestWhitelistMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chats := rapid.SliceOfN(rapid.Int64Range(-1000, -1), 0, 10).Draw(t, "chats")
		chatID := rapid.Int64Range(-1000, -1).Draw(t, "chatID")

		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chats}}
		next := &spy{}

		_ = WhitelistMiddleware(cfg, newPrivateUsers())(next.handle)(groupContext(chatID, 7))

		allowed := len(chats) == 0 || slices.Contains(chats, chatID)
		if allowed != (next.calls == 1) {
			t.Fatalf("allowed=%v but handler calls=%d (chats=%v chat=%d)", allowed, next.calls, chats, chatID)
		}
	})
}

func TestWhitelistPrivateChat(t *testing.T) {
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	private := newPrivateUsers()
	next := &spy{}
	mw := WhitelistMiddleware(cfg, private)(next.handle)

	// Unknown user in private chat is ignored.
	assert.NoError(t, mw(privateContext(5)))
	assert.Equal(t, 0, next.calls)

	// After using the bot in a whitelisted group the user may talk privately.
	assert.NoError(t, mw(groupContext(-100, 5)))
	assert.NoError(t, mw(privateContext(5)))
	assert.Equal(t, 2, next.calls)

	// A non-whitelisted group does not unlock private chat.
	assert.NoError(t, mw(groupContext(-200, 6)))
	assert.NoError(t, mw(privateContext(6)))
	assert.Equal(t, 2, next.calls)
}

func TestWhitelistIgnoresAnonymousUpdates(t *testing.T) {
	next := &spy{}
	mw := WhitelistMiddleware(&config.Config{}, newPrivateUsers())(next.handle)

	assert.NoError(t, mw(&fakeContext{chat: &tele.Chat{ID: -1, Type: tele.ChatGroup}}))
	assert.Equal(t, 0, next.calls)
}

func TestRecoveryMiddleware(t *testing.T) {
	c := groupContext(-1, 1)
	err := RecoveryMiddleware()(func(tele.Context) error { panic("boom") })(c)

	assert.NoError(t, err)
	assert.Len(t, c.replies, 1)
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	next := &spy{}
	assert.NoError(t, LoggingMiddleware()(next.handle)(groupContext(-1, 1)))
	assert.Equal(t, 1, next.calls)
}
