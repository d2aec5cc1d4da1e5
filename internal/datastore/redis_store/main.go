package redis_store

import (
	"context"
	"time"

	"maffix/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const recentWinsLimit = 50

func dbKeyRecentWins(poolSlug string) string {
	return "recent_wins:" + poolSlug
}

// PushRecentWin prepends to the pool's public win feed, trimmed to a fixed
// length. Display fodder only; the pull_record table stays the system of
// record.
func PushRecentWin(ctx context.Context, cmd redis.Cmdable, win *models.RecentWin) error {
	b, err := msgpack.Marshal(win)
	if err != nil {
		return err
	}

	pipe := cmd.TxPipeline()
	pipe.LPush(ctx, dbKeyRecentWins(win.PoolSlug), b)
	pipe.LTrim(ctx, dbKeyRecentWins(win.PoolSlug), 0, recentWinsLimit-1)
	pipe.Expire(ctx, dbKeyRecentWins(win.PoolSlug), 7*24*time.Hour)
	_, err = pipe.Exec(ctx)
	return err
}

func GetRecentWins(ctx context.Context, cmd redis.Cmdable, poolSlug string, limit int) ([]*models.RecentWin, error) {
	if limit <= 0 || limit > recentWinsLimit {
		limit = recentWinsLimit
	}

	raw, err := cmd.LRange(ctx, dbKeyRecentWins(poolSlug), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	wins := make([]*models.RecentWin, 0, len(raw))
	for _, item := range raw {
		var win models.RecentWin
		if err := msgpack.Unmarshal([]byte(item), &win); err != nil {
			continue
		}
		wins = append(wins, &win)
	}

	return wins, nil
}
