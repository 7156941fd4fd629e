package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"balance-ledger/internal/config"
)

// privateUsers tracks users who have used the bot in whitelisted groups.
// Those users may also use it in private chat.
type privateUsers struct {
	mu    sync.RWMutex
	users map[int64]bool
}

func newPrivateUsers() *privateUsers {
	return &privateUsers{users: make(map[int64]bool)}
}

func (p *privateUsers) allow(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = true
}

func (p *privateUsers) allowed(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.users[userID]
}

// WhitelistMiddleware ignores updates from chats outside the whitelist.
func WhitelistMiddleware(cfg *config.Config, private *privateUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if private.allowed(sender.ID) {
					return next(c)
				}

				// If whitelist is empty, allow all private chats
				if len(cfg.Whitelist.Chats) == 0 {
					return next(c)
				}

				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not in whitelist cache")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring command from non-whitelisted chat")
				return nil
			}

			private.allow(sender.ID)

			return next(c)
		}
	}
}

// AdminMiddleware rejects senders not listed in admin.ids.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ 权限不足：需要管理员权限")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware logs every incoming command.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in command handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ 发生内部错误，请稍后重试")
				}
			}()
			return next(c)
		}
	}
}
