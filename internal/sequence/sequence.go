// Package sequence hands out per-key counters for receipt and bill numbers.
package sequence

import (
	"context"
	"fmt"
	"time"

	"deora-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Daily keys only need to outlive the day they number.
const redisKeyTTL = 48 * time.Hour

type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
	// Floor raises the counter for key to at least n. Lower values are kept.
	Floor(ctx context.Context, key string, n int64) error
}

// New prefers Redis and falls back to the counters table.
func New(rdb *redis.Client, db *gorm.DB) Sequencer {
	if rdb != nil {
		return NewRedisSequencer(rdb)
	}
	return NewDBSequencer(db)
}

type RedisSequencer struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSequencer(rdb *redis.Client) *RedisSequencer {
	return &RedisSequencer{rdb: rdb, prefix: "seq:"}
}

// Counters live only in Redis. A flushed key restarts at 1, so callers
// that persist the numbers must Floor the key past what is already stored.
func (s *RedisSequencer) Next(ctx context.Context, key string) (int64, error) {
	k := s.prefix + key
	var incr *redis.IntCmd
	// INCR and EXPIRE go out as one MULTI so a key is never left without a TTL.
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, redisKeyTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", k, err)
	}
	return incr.Val(), nil
}

var floorScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur < tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
end
return 0
`)

func (s *RedisSequencer) Floor(ctx context.Context, key string, n int64) error {
	k := s.prefix + key
	if err := floorScript.Run(ctx, s.rdb, []string{k}, n, int64(redisKeyTTL/time.Second)).Err(); err != nil {
		return fmt.Errorf("floor %s: %w", k, err)
	}
	return nil
}

type DBSequencer struct {
	db *gorm.DB
}

func NewDBSequencer(db *gorm.DB) *DBSequencer {
	return &DBSequencer{db: db}
}

func (s *DBSequencer) Next(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Counter{ID: key}).Error; err != nil {
			return err
		}

		var c models.Counter
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", key).First(&c).Error; err != nil {
			return err
		}

		value = c.Value + 1
		return tx.Model(&models.Counter{}).Where("id = ?", key).Update("value", value).Error
	})
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", key, err)
	}
	return value, nil
}

func (s *DBSequencer) Floor(ctx context.Context, key string, n int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Counter{ID: key}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Counter{}).
			Where("id = ? AND value < ?", key, n).
			Update("value", n).Error
	})
	if err != nil {
		return fmt.Errorf("floor %s: %w", key, err)
	}
	return nil
}

// DayKey builds keys such as "hotel-receipts-2025-01-10".
func DayKey(prefix string, t time.Time) string {
	return prefix + "-" + t.Format("2006-01-02")
}
