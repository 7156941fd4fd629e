// Package bot provides the Telegram admin bot and its command registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"balance-ledger/internal/config"
)

// Bot wraps the telebot instance with the admin commands.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	commands *Commands
	private  *privateUsers
}

// Dependencies holds all the dependencies needed by the bot commands.
type Dependencies struct {
	Config   *config.Config
	Balances BalanceReader
	House    HouseReader
	Reviewer TransactionReviewer
	Ranking  LeaderboardReader
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Bot handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
		commands: NewCommands(
			deps.Balances, deps.House, deps.Reviewer, deps.Ranking,
			deps.Config.Balance.DisplayPrecision,
		),
		private: newPrivateUsers(),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.private))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers the admin commands. Every command is admin only.
func (b *Bot) registerHandlers() {
	admin := b.bot.Group()
	admin.Use(AdminMiddleware(b.cfg))
	admin.Handle("/balance", b.commands.HandleBalance)
	admin.Handle("/house", b.commands.HandleHouse)
	admin.Handle("/approve", b.commands.HandleApprove)
	admin.Handle("/reject", b.commands.HandleReject)
	admin.Handle("/daily_top", b.commands.HandleDailyTop)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
