package rollout

import "context"

// Store is the key-value collaborator flags are persisted in.
//
// Missing keys are reported through the found/absence results, never as
// errors. Any error returned by a Store is passed through the engine
// unchanged; the engine neither wraps nor retries it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// MGet returns the values of the keys that exist.
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	// LPush prepends value to the list at key.
	LPush(ctx context.Context, key, value string) error
	// LRange returns elements start..stop inclusive; negative indexes count from the tail.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LIndex(ctx context.Context, key string, index int64) (string, bool, error)
}

// DefaultKeyPrefix namespaces every key the engine writes.
const DefaultKeyPrefix = "feature"

// keyspace derives store keys from a prefix and flag names.
type keyspace struct {
	prefix string
}

func (k keyspace) flag(name string) string    { return k.prefix + ":" + name }
func (k keyspace) users(name string) string   { return k.flag(name) + ":users" }
func (k keyspace) groups(name string) string  { return k.flag(name) + ":groups" }
func (k keyspace) history(name string) string { return k.flag(name) + ":history" }
func (k keyspace) directory() string          { return k.prefix + ":__features__" }
