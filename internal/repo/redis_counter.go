package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// maxTxRetries bounds optimistic-lock retries per allocation.
const maxTxRetries = 50

// RedisCounterStore keeps the counter and mappings in Redis:
//
//	<prefix>:counter            last issued sequence value
//	<prefix>:mappings           hash submission_id -> message_id
//	<prefix>:mappings:created   hash submission_id -> RFC3339Nano
//	<prefix>:messages           hash message_id -> submission_id
//
// Allocation runs under WATCH on the counter and mapping keys, so a
// concurrent writer aborts the transaction and it is retried.
type RedisCounterStore struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// NewRedisCounterStore returns a store with the default "portal" prefix.
func NewRedisCounterStore(c *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{Client: c, Prefix: "portal", Now: time.Now}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

func (s *RedisCounterStore) counterKey() string  { return s.Prefix + ":counter" }
func (s *RedisCounterStore) mappingsKey() string { return s.Prefix + ":mappings" }
func (s *RedisCounterStore) createdKey() string  { return s.Prefix + ":mappings:created" }
func (s *RedisCounterStore) messagesKey() string { return s.Prefix + ":messages" }

// EnsureCounter seeds the counter with 0 if it is absent.
func (s *RedisCounterStore) EnsureCounter(ctx context.Context) error {
	return s.Client.SetNX(ctx, s.counterKey(), 0, 0).Err()
}

// Allocate returns the identifier mapped to key, creating it when new.
func (s *RedisCounterStore) Allocate(ctx context.Context, key string, format func(seq int) string) (string, bool, error) {
	var (
		issued string
		isNew  bool
	)
	txf := func(tx *redis.Tx) error {
		existing, err := tx.HGet(ctx, s.mappingsKey(), key).Result()
		if err == nil {
			issued, isNew = existing, false
			return nil
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}

		last, err := tx.Get(ctx, s.counterKey()).Int()
		if errors.Is(err, redis.Nil) {
			last = 0
		} else if err != nil {
			return err
		}
		next := NextSequence(last)
		id := format(next)

		taken, err := tx.HExists(ctx, s.messagesKey(), id).Result()
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("message id %s: %w", id, ErrDuplicate)
		}

		now := s.now().Format(time.RFC3339Nano)
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.counterKey(), next, 0)
			p.HSet(ctx, s.mappingsKey(), key, id)
			p.HSet(ctx, s.createdKey(), key, now)
			p.HSet(ctx, s.messagesKey(), id, key)
			return nil
		})
		if err != nil {
			return err
		}
		issued, isNew = id, true
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.Client.Watch(ctx, txf, s.counterKey(), s.mappingsKey())
		if err == nil {
			return issued, isNew, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return "", false, err
	}
	return "", false, fmt.Errorf("allocate %q: too many concurrent writers", key)
}

// Counter returns the current counter state.
func (s *RedisCounterStore) Counter(ctx context.Context) (domain.CounterState, error) {
	v, err := s.Client.Get(ctx, s.counterKey()).Int()
	if errors.Is(err, redis.Nil) {
		return domain.CounterState{}, ErrNotFound
	}
	if err != nil {
		return domain.CounterState{}, err
	}
	return domain.CounterState{ID: domain.CounterRowID, LastVal: v}, nil
}

// SetCounter overwrites the counter value.
func (s *RedisCounterStore) SetCounter(ctx context.Context, v int) error {
	return s.Client.Set(ctx, s.counterKey(), v, 0).Err()
}

// Mappings returns one page of mappings, newest first, plus the total count.
// It loads the whole hash; the admin view is the only caller.
func (s *RedisCounterStore) Mappings(ctx context.Context, offset, limit int) ([]domain.IDMapping, int64, error) {
	ids, err := s.Client.HGetAll(ctx, s.mappingsKey()).Result()
	if err != nil {
		return nil, 0, err
	}
	created, err := s.Client.HGetAll(ctx, s.createdKey()).Result()
	if err != nil {
		return nil, 0, err
	}

	all := make([]domain.IDMapping, 0, len(ids))
	for k, v := range ids {
		ts, _ := time.Parse(time.RFC3339Nano, created[k])
		all = append(all, domain.IDMapping{SubmissionID: k, MessageID: v, CreatedAt: ts})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].SubmissionID < all[j].SubmissionID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []domain.IDMapping{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *RedisCounterStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// String implements fmt.Stringer for log fields.
func (s *RedisCounterStore) String() string {
	return "redis:" + s.Prefix + " db=" + strconv.Itoa(s.Client.Options().DB)
}
