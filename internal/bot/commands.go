package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"balance-ledger/internal/model"
	"balance-ledger/internal/service"
)

const commandTimeout = 10 * time.Second

// BalanceReader derives player balances.
type BalanceReader interface {
	CalculatePlayerBalance(ctx context.Context, userID int64, currencyID *int64) (*model.BalanceSummary, error)
}

// HouseReader derives the house balance.
type HouseReader interface {
	CalculateHouseBalance(ctx context.Context, currencyID *int64) (*model.HouseSummary, error)
}

// TransactionReviewer approves or rejects pending transactions.
type TransactionReviewer interface {
	TransitionTransaction(ctx context.Context, id int64, next model.TransactionStatus) (*model.Transaction, error)
}

// LeaderboardReader builds daily leaderboards.
type LeaderboardReader interface {
	GetLeaderboard(ctx context.Context, date *time.Time, limit int) (*service.Leaderboard, error)
}

// Commands implements the admin chat commands.
type Commands struct {
	balances  BalanceReader
	house     HouseReader
	reviewer  TransactionReviewer
	ranking   LeaderboardReader
	precision int32
}

// NewCommands creates the admin command set.
func NewCommands(balances BalanceReader, house HouseReader, reviewer TransactionReviewer, ranking LeaderboardReader, precision int32) *Commands {
	return &Commands{
		balances:  balances,
		house:     house,
		reviewer:  reviewer,
		ranking:   ranking,
		precision: precision,
	}
}

// HandleBalance handles /balance <user_id> [currency_id].
func (h *Commands) HandleBalance(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ 用法: /balance <用户ID> [币种ID]\n例如: /balance 42 1")
	}

	userID, err := parseID(args[0])
	if err != nil {
		return c.Reply("❌ 用户ID格式错误，请输入正整数")
	}
	currencyID, err := optionalArgID(args, 1)
	if err != nil {
		return c.Reply("❌ 币种ID格式错误，请输入正整数")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	summary, err := h.balances.CalculatePlayerBalance(ctx, userID, currencyID)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	return c.Reply(h.formatBalance(summary))
}

// HandleHouse handles /house [currency_id].
func (h *Commands) HandleHouse(c tele.Context) error {
	currencyID, err := optionalArgID(c.Args(), 0)
	if err != nil {
		return c.Reply("❌ 币种ID格式错误，请输入正整数")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	summary, err := h.house.CalculateHouseBalance(ctx, currencyID)
	if err != nil {
		return c.Reply(errorReply(err))
	}
	return c.Reply(h.formatHouse(summary))
}

// HandleApprove handles /approve <tx_id>.
func (h *Commands) HandleApprove(c tele.Context) error {
	return h.review(c, "approve", model.StatusApproved)
}

// HandleReject handles /reject <tx_id>.
func (h *Commands) HandleReject(c tele.Context) error {
	return h.review(c, "reject", model.StatusRejected)
}

func (h *Commands) review(c tele.Context, command string, next model.TransactionStatus) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(fmt.Sprintf("❌ 用法: /%s <交易ID>\n例如: /%s 1001", command, command))
	}
	txID, err := parseID(args[0])
	if err != nil {
		return c.Reply("❌ 交易ID格式错误，请输入正整数")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	tx, err := h.reviewer.TransitionTransaction(ctx, txID, next)
	if err != nil {
		return c.Reply(errorReply(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("transaction_id", tx.ID).
		Int64("user_id", tx.UserID).
		Str("status", string(tx.Status)).
		Str("operation", command).
		Msg("Admin operation executed")

	verb := "✅ 已批准"
	if next == model.StatusRejected {
		verb = "🚫 已拒绝"
	}
	return c.Reply(fmt.Sprintf(
		"%s\n\n"+
			"🧾 交易: #%d\n"+
			"👤 用户ID: %d\n"+
			"📄 类型: %s\n"+
			"💵 金额: %s",
		verb, tx.ID, tx.UserID, tx.Type, h.amount(tx.Amount),
	))
}

// HandleDailyTop handles /daily_top.
func (h *Commands) HandleDailyTop(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	board, err := h.ranking.GetLeaderboard(ctx, nil, service.DefaultLeaderboardSize)
	if err != nil {
		return c.Reply("❌ 获取排行榜失败，请稍后重试")
	}
	return c.Reply(h.formatLeaderboard(board))
}

func (h *Commands) amount(d decimal.Decimal) string {
	return model.FormatAmount(d, h.precision)
}

func (h *Commands) formatBalance(s *model.BalanceSummary) string {
	code := s.CurrencyCode
	if code == "" {
		code = "全部币种"
	}
	return fmt.Sprintf(
		"💰 玩家余额\n"+
			"━━━━━━━━━━━━━━━\n"+
			"👤 用户ID: %d\n"+
			"💱 币种: %s\n"+
			"💰 当前余额: %s\n\n"+
			"➕ 充值: %s\n"+
			"➖ 提现: %s\n"+
			"🎉 赢: %s\n"+
			"😢 输: %s\n"+
			"⏳ 待审充值: %s\n"+
			"⏳ 待审提现: %s\n"+
			"🎁 奖励: %s",
		s.UserID, code, h.amount(s.CurrentBalance),
		h.amount(s.TotalDeposits), h.amount(s.TotalWithdrawals),
		h.amount(s.TotalWins), h.amount(s.TotalLosses),
		h.amount(s.PendingDeposits), h.amount(s.PendingWithdrawals),
		h.amount(s.TotalBonuses),
	)
}

func (h *Commands) formatHouse(s *model.HouseSummary) string {
	code := s.CurrencyCode
	if code == "" {
		code = "全部币种"
	}
	return fmt.Sprintf(
		"🏦 平台余额\n"+
			"━━━━━━━━━━━━━━━\n"+
			"💱 币种: %s\n"+
			"💰 当前余额: %s\n\n"+
			"➕ 管理员充值: %s\n"+
			"➕ 玩家充值: %s\n"+
			"🎁 推广支出: %s\n"+
			"➖ 玩家提现: %s\n"+
			"➖ 管理员提现: %s\n"+
			"⏳ 待审流入: %s\n"+
			"⏳ 待审流出: %s",
		code, h.amount(s.CurrentBalance),
		h.amount(s.AdminDeposits), h.amount(s.PlayerDeposits),
		h.amount(s.Promotions), h.amount(s.PlayerWithdraws),
		h.amount(s.AdminWithdraws), h.amount(s.PendingIn), h.amount(s.PendingOut),
	)
}

func (h *Commands) formatLeaderboard(board *service.Leaderboard) string {
	var sb strings.Builder
	sb.WriteString("📊 今日游戏榜 " + board.Date.Format(time.DateOnly) + "\n")
	sb.WriteString("━━━━━━━━━━━━━━━\n")

	sb.WriteString("🏆 赢家榜\n")
	if len(board.Winners) == 0 {
		sb.WriteString("暂无数据\n")
	} else {
		medals := []string{"🥇", "🥈", "🥉"}
		for i, w := range board.Winners {
			rank := fmt.Sprintf("%d.", i+1)
			if i < len(medals) {
				rank = medals[i]
			}
			fmt.Fprintf(&sb, "%s %s: +%s\n", rank, displayName(w), h.amount(w.NetProfit))
		}
	}

	sb.WriteString("\n━━━━━━━━━━━━━━━\n")

	sb.WriteString("😢 输家榜\n")
	if len(board.Losers) == 0 {
		sb.WriteString("暂无数据\n")
	} else {
		for i, l := range board.Losers {
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, displayName(l), h.amount(l.NetProfit))
		}
	}

	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}

func displayName(r *model.DailyRank) string {
	if r.Username != "" {
		return r.Username
	}
	return fmt.Sprintf("User%d", r.UserID)
}

// errorReply turns a service error into a chat reply.
func errorReply(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return "❌ 参数错误: " + strings.TrimPrefix(err.Error(), service.ErrInvalidArgument.Error()+": ")
	case errors.Is(err, service.ErrNotFound):
		return "❌ 记录不存在"
	case errors.Is(err, service.ErrConflict):
		return "❌ 该交易已处理，无法重复操作"
	default:
		log.Error().Err(err).Msg("Admin command failed")
		return "❌ 操作失败，请稍后重试"
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive: %d", id)
	}
	return id, nil
}

// optionalArgID parses args[i] as an id when present.
func optionalArgID(args []string, i int) (*int64, error) {
	if len(args) <= i {
		return nil, nil
	}
	id, err := parseID(args[i])
	if err != nil {
		return nil, err
	}
	return &id, nil
}
