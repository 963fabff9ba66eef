// Package volatilestore defines the abstract key-value interface the core
// consumes (C3) and a Redis-backed implementation. Defining this as an
// interface rather than calling a Redis singleton directly is deliberate:
// it makes failure-injection tests straightforward and lets callers fall
// closed (e.g. the rate limiter) when a store call returns an error.
package volatilestore

import (
	"context"
	"time"
)

// Store is the single abstract interface over the volatile store. All
// methods suspend; none may block a scheduler thread.
type Store interface {
	SetEx(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, key string) error

	// IncrWithInitialTTL atomically increments key and, if the key was
	// absent before the increment (i.e. the returned count is 1), sets its
	// TTL in the same atomic step. This closes the "first-writer sets TTL"
	// race that a separate INCR + conditional EXPIRE is exposed to.
	IncrWithInitialTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetIsMember(ctx context.Context, key string, member string) (bool, error)
	SetExpire(ctx context.Context, key string, ttl time.Duration) error

	// ScanDelete deletes every key matching pattern using cursor-based SCAN,
	// never KEYS, so it never blocks the store on a large keyspace.
	ScanDelete(ctx context.Context, pattern string) (int64, error)

	// Pipeline executes all ops in a single round-trip and returns their
	// results in order.
	Pipeline(ctx context.Context, ops ...Op) ([]any, error)

	Ping(ctx context.Context) error
}

// OpKind distinguishes the operations that Pipeline can batch.
type OpKind int

const (
	OpSetEx OpKind = iota
	OpDelete
	OpSetAdd
	OpSetExpire
)

// Op is one operation inside a Pipeline call.
type Op struct {
	Kind    OpKind
	Key     string
	Value   string
	Members []string
	TTL     time.Duration
}

func SetExOp(key, value string, ttl time.Duration) Op {
	return Op{Kind: OpSetEx, Key: key, Value: value, TTL: ttl}
}

func DeleteOp(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

func SetAddOp(key string, members ...string) Op {
	return Op{Kind: OpSetAdd, Key: key, Members: members}
}

func SetExpireOp(key string, ttl time.Duration) Op {
	return Op{Kind: OpSetExpire, Key: key, TTL: ttl}
}
