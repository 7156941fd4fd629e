package service

import (
	"context"
	"time"

	"balance-ledger/internal/model"
)

// DailyRanker ranks players by net bet result for one day.
type DailyRanker interface {
	GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error)
	GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error)
}

// Leaderboard limits.
const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

// Leaderboard is the winners and losers of one day.
type Leaderboard struct {
	Date    time.Time
	Winners []*model.DailyRank
	Losers  []*model.DailyRank
}

// RankingService handles the daily bet-result leaderboard.
type RankingService struct {
	ranker   DailyRanker
	timezone *time.Location
	now      func() time.Time
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(ranker DailyRanker, timezone *time.Location) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &RankingService{
		ranker:   ranker,
		timezone: timezone,
		now:      time.Now,
	}
}

// GetDailyWinners retrieves today's top winners (most net profit first).
func (s *RankingService) GetDailyWinners(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.GetDailyWinnersForDate(ctx, s.today(), limit)
}

// GetDailyLosers retrieves today's top losers (most net loss first).
func (s *RankingService) GetDailyLosers(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.GetDailyLosersForDate(ctx, s.today(), limit)
}

// GetDailyWinnersForDate retrieves winners for a specific date.
func (s *RankingService) GetDailyWinnersForDate(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	limit, err := leaderboardLimit(limit)
	if err != nil {
		return nil, err
	}
	ranks, err := s.ranker.GetDailyWinners(ctx, date.In(s.timezone), limit)
	if err != nil {
		return nil, storageError("get daily winners", err)
	}
	return ranks, nil
}

// GetDailyLosersForDate retrieves losers for a specific date.
func (s *RankingService) GetDailyLosersForDate(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	limit, err := leaderboardLimit(limit)
	if err != nil {
		return nil, err
	}
	ranks, err := s.ranker.GetDailyLosers(ctx, date.In(s.timezone), limit)
	if err != nil {
		return nil, storageError("get daily losers", err)
	}
	return ranks, nil
}

// GetLeaderboard returns both sides of the leaderboard for a date, or for
// today in the configured timezone when date is nil.
func (s *RankingService) GetLeaderboard(ctx context.Context, date *time.Time, limit int) (*Leaderboard, error) {
	day := s.today()
	if date != nil {
		day = date.In(s.timezone)
	}

	winners, err := s.GetDailyWinnersForDate(ctx, day, limit)
	if err != nil {
		return nil, err
	}
	losers, err := s.GetDailyLosersForDate(ctx, day, limit)
	if err != nil {
		return nil, err
	}

	return &Leaderboard{
		Date:    time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.timezone),
		Winners: winners,
		Losers:  losers,
	}, nil
}

// Location returns the timezone days are counted in.
func (s *RankingService) Location() *time.Location {
	return s.timezone
}

func (s *RankingService) today() time.Time {
	return s.now().In(s.timezone)
}

func leaderboardLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultLeaderboardSize, nil
	case limit < 0 || limit > MaxLeaderboardSize:
		return 0, invalidArgument("limit must be between 1 and %d", MaxLeaderboardSize)
	}
	return limit, nil
}
