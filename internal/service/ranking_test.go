package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"balance-ledger/internal/model"
)

type fakeRanker struct {
	winners, losers []*model.DailyRank
	err             error
	dates           []time.Time
	limits          []int
}

func (f *fakeRanker) GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	f.dates = append(f.dates, date)
	f.limits = append(f.limits, limit)
	return f.winners, f.err
}

func (f *fakeRanker) GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	f.dates = append(f.dates, date)
	f.limits = append(f.limits, limit)
	return f.losers, f.err
}

func TestRankingService_TodayUsesTimezone(t *testing.T) {
	shanghai := time.FixedZone("UTC+8", 8*60*60)
	ranker := &fakeRanker{}
	svc := NewRankingService(ranker, shanghai)
	// 20:30 UTC is already the next day at UTC+8
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 20, 30, 0, 0, time.UTC) }

	_, err := svc.GetDailyWinners(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, ranker.dates, 1)
	assert.Equal(t, 10, ranker.dates[0].Day())
	assert.Equal(t, shanghai, ranker.dates[0].Location())
	assert.Equal(t, DefaultLeaderboardSize, ranker.limits[0])
}

func TestRankingService_GetLeaderboard(t *testing.T) {
	ranker := &fakeRanker{
		winners: []*model.DailyRank{{UserID: 1, Username: "alice", NetProfit: dec("12.50")}},
		losers:  []*model.DailyRank{{UserID: 2, Username: "bob", NetProfit: dec("-4.00")}},
	}
	svc := NewRankingService(ranker, time.UTC)

	date := time.Date(2024, 5, 1, 17, 45, 0, 0, time.UTC)
	board, err := svc.GetLeaderboard(context.Background(), &date, 5)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), board.Date)
	require.Len(t, board.Winners, 1)
	require.Len(t, board.Losers, 1)
	assert.Equal(t, "alice", board.Winners[0].Username)
	assert.Equal(t, []int{5, 5}, ranker.limits)
}

func TestRankingService_Errors(t *testing.T) {
	ranker := &fakeRanker{err: errors.New("query canceled")}
	svc := NewRankingService(ranker, nil)
	ctx := context.Background()

	_, err := svc.GetDailyLosers(ctx, 3)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = svc.GetLeaderboard(ctx, nil, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.GetDailyWinners(ctx, MaxLeaderboardSize+1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, time.UTC, svc.Location())
}

// TestLeaderboardLimitProperty checks that in-range limits pass through
// unchanged and out-of-range ones are rejected.
func TestLeaderboardLimitProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(-50, MaxLeaderboardSize+50).Draw(t, "limit")

		got, err := leaderboardLimit(limit)
		switch {
		case limit == 0:
			if err != nil || got != DefaultLeaderboardSize {
				t.Fatalf("limit 0: got %d, %v", got, err)
			}
		case limit < 0 || limit > MaxLeaderboardSize:
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("limit %d: expected invalid argument, got %v", limit, err)
			}
		default:
			if err != nil || got != limit {
				t.Fatalf("limit %d: got %d, %v", limit, got, err)
			}
		}
	})
}
