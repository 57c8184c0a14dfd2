package rollout

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// GroupAll is registered on every engine and matches any user.
const GroupAll = "all"

// GroupFunc reports whether a user belongs to a group.
// It receives the raw user value passed to the activation query.
type GroupFunc func(user any) bool

// GroupMatcher answers group membership questions during activation.
type GroupMatcher interface {
	ActiveInGroup(group string, user any) bool
}

// groupRegistry is a copy-on-write map of group predicates.
// Readers never lock; writers swap in a fresh copy.
type groupRegistry struct {
	groups atomic.Pointer[map[string]GroupFunc]
	mu     sync.Mutex
}

func newGroupRegistry() *groupRegistry {
	r := &groupRegistry{}
	initial := map[string]GroupFunc{
		GroupAll: func(any) bool { return true },
	}
	r.groups.Store(&initial)
	return r
}

// define registers fn under name. A nil fn removes the group.
func (r *groupRegistry) define(name string, fn GroupFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(*r.groups.Load())
	if fn == nil {
		delete(next, name)
	} else {
		next[name] = fn
	}
	r.groups.Store(&next)
}

// match reports whether user belongs to group. Unknown groups never match.
func (r *groupRegistry) match(group string, user any) bool {
	fn, ok := (*r.groups.Load())[group]
	return ok && fn(user)
}

func (r *groupRegistry) names() []string {
	return slices.Sorted(maps.Keys(*r.groups.Load()))
}
