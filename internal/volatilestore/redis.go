package volatilestore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithTTLScript increments key and, only on the increment that created
// it (new value 1), applies the TTL — both inside one Lua execution so the
// read-then-expire is atomic under concurrency.
const incrWithTTLScript = `
local v = redis.call("INCR", KEYS[1])
if v == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return v
`

// RedisStore is the Store implementation backing the volatile store in
// production: a thin adapter over go-redis that names every operation the
// way the core's interface does, rather than exposing raw Redis verbs.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		script: redis.NewScript(incrWithTTLScript),
	}
}

func (s *RedisStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) IncrWithInitialTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	res, err := s.script.Run(ctx, s.client, []string{key}, int64(ttl.Seconds())).Result()
	if err != nil {
		return 0, err
	}
	switch n := res.(type) {
	case int64:
		return n, nil
	default:
		return 0, nil
	}
}

func (s *RedisStore) SetAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SAdd(ctx, key, args...).Err()
}

func (s *RedisStore) SetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SRem(ctx, key, args...).Err()
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *RedisStore) SetIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.client.SIsMember(ctx, key, member).Result()
}

func (s *RedisStore) SetExpire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

// ScanDelete walks the keyspace with cursor-based SCAN rather than KEYS, so
// pattern invalidation never blocks the store on a large keyspace.
func (s *RedisStore) ScanDelete(ctx context.Context, pattern string) (int64, error) {
	var cursor uint64
	var deleted int64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

func (s *RedisStore) Pipeline(ctx context.Context, ops ...Op) ([]any, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.Cmd, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case OpSetEx:
			cmds = append(cmds, nil)
			pipe.Set(ctx, op.Key, op.Value, op.TTL)
		case OpDelete:
			cmds = append(cmds, nil)
			pipe.Del(ctx, op.Key)
		case OpSetAdd:
			cmds = append(cmds, nil)
			args := make([]any, len(op.Members))
			for i, m := range op.Members {
				args[i] = m
			}
			pipe.SAdd(ctx, op.Key, args...)
		case OpSetExpire:
			cmds = append(cmds, nil)
			pipe.Expire(ctx, op.Key, op.TTL)
		}
	}
	results, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, err
	}
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = r
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
