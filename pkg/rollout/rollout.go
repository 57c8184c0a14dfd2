package rollout

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/rollout/pkg/logger"
)

// Engine evaluates and mutates feature flags kept in a Store.
//
// The engine caches nothing: every call materializes the flags it touches
// from the store, and mutations write them straight back. Concurrent
// read-mutate-write calls on the same flag race (last writer wins on
// percentage and data); membership changes of sets flags are atomic per call.
type Engine struct {
	store    Store
	keys     keyspace
	forced   Format
	fallback Format
	flagOpts flagOptions
	groups   *groupRegistry
	logger   *slog.Logger
	now      func() time.Time
}

var _ GroupMatcher = (*Engine)(nil)

// New creates an engine backed by store.
func New(store Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	e := &Engine{
		store:    store,
		keys:     keyspace{prefix: DefaultKeyPrefix},
		fallback: FormatSets,
		flagOpts: flagOptions{identity: identity{field: DefaultIDField}},
		groups:   newGroupRegistry(),
		logger:   logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logger.Component("rollout"))

	return e, nil
}

// Factory returns the flag factory bound to this engine's store and settings.
func (e *Engine) Factory() *Factory {
	return &Factory{
		store:    e.store,
		keys:     e.keys,
		forced:   e.forced,
		fallback: e.fallback,
		opts:     e.flagOpts,
	}
}

// DefineGroup registers a group predicate on this engine only.
// Redefining a name replaces the previous predicate; a nil fn removes it.
func (e *Engine) DefineGroup(name string, fn GroupFunc) {
	e.groups.define(name, fn)
}

// Groups lists the registered group names.
func (e *Engine) Groups() []string {
	return e.groups.names()
}

// ActiveInGroup reports whether user matches the named group.
// Unregistered groups never match.
func (e *Engine) ActiveInGroup(group string, user any) bool {
	return e.groups.match(group, user)
}

// Get materializes a flag. Unknown flags come back at 0% with no members.
func (e *Engine) Get(ctx context.Context, name string) (Flag, error) {
	raw, found, err := e.store.Get(ctx, e.keys.flag(name))
	if err != nil {
		return nil, err
	}
	return e.Factory().Materialize(name, raw, found)
}

// MultiGet materializes several flags with a single store round trip.
// The result preserves the order of names.
func (e *Engine) MultiGet(ctx context.Context, names ...string) ([]Flag, error) {
	if len(names) == 0 {
		return []Flag{}, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = e.keys.flag(name)
	}
	records, err := e.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	factory := e.Factory()
	flags := make([]Flag, 0, len(names))
	for i, name := range names {
		raw, found := records[keys[i]]
		f, err := factory.Materialize(name, raw, found)
		if err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, nil
}

// Exists reports whether the flag has a persisted record.
func (e *Engine) Exists(ctx context.Context, name string) (bool, error) {
	_, found, err := e.store.Get(ctx, e.keys.flag(name))
	return found, err
}

// Active reports whether the feature is on for user. Pass a nil user to
// ask whether it is on for everybody.
func (e *Engine) Active(ctx context.Context, name string, user any) (bool, error) {
	f, err := e.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return f.Active(ctx, e, user)
}

// Inactive is the negation of Active.
func (e *Engine) Inactive(ctx context.Context, name string, user any) (bool, error) {
	active, err := e.Active(ctx, name, user)
	return !active, err
}

// UserInActiveUsers reports whether user is on the flag's explicit user list.
func (e *Engine) UserInActiveUsers(ctx context.Context, name string, user any) (bool, error) {
	if user == nil {
		return false, nil
	}
	f, err := e.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return f.HasUser(ctx, e.flagOpts.identity.id(user))
}

// Features lists every flag name in the directory, in insertion order.
func (e *Engine) Features(ctx context.Context) ([]string, error) {
	raw, _, err := e.store.Get(ctx, e.keys.directory())
	if err != nil {
		return nil, err
	}
	return splitList(raw), nil
}

// FeatureStates evaluates every known flag for user.
func (e *Engine) FeatureStates(ctx context.Context, user any) (map[string]bool, error) {
	flags, err := e.allFlags(ctx)
	if err != nil {
		return nil, err
	}
	states := make(map[string]bool, len(flags))
	for _, f := range flags {
		active, err := f.Active(ctx, e, user)
		if err != nil {
			return nil, err
		}
		states[f.Name()] = active
	}
	return states, nil
}

// ActiveFeatures lists the known flags that are on for user.
func (e *Engine) ActiveFeatures(ctx context.Context, user any) ([]string, error) {
	flags, err := e.allFlags(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		active, err := f.Active(ctx, e, user)
		if err != nil {
			return nil, err
		}
		if active {
			names = append(names, f.Name())
		}
	}
	return names, nil
}

func (e *Engine) allFlags(ctx context.Context) ([]Flag, error) {
	names, err := e.Features(ctx)
	if err != nil {
		return nil, err
	}
	return e.MultiGet(ctx, names...)
}

// Activate turns the feature on for everybody.
func (e *Engine) Activate(ctx context.Context, name string, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpActivate, opts, func(f Flag) error {
		f.SetPercentage(100)
		return nil
	})
}

// Deactivate resets the feature: 0%, no users, no groups, no data.
func (e *Engine) Deactivate(ctx context.Context, name string, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpDeactivate, opts, func(f Flag) error {
		return f.Clear(ctx)
	})
}

// Set activates the feature when enabled is true and deactivates it otherwise.
func (e *Engine) Set(ctx context.Context, name string, enabled bool, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpSet, opts, func(f Flag) error {
		if enabled {
			f.SetPercentage(100)
			return nil
		}
		return f.Clear(ctx)
	})
}

// ActivateGroup turns the feature on for members of group.
func (e *Engine) ActivateGroup(ctx context.Context, name, group string, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpActivateGroup, opts, func(f Flag) error {
		return f.AddGroup(ctx, group)
	})
}

// DeactivateGroup removes group from the feature.
func (e *Engine) DeactivateGroup(ctx context.Context, name, group string, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpDeactivateGroup, opts, func(f Flag) error {
		return f.RemoveGroup(ctx, group)
	})
}

// ActivateUser adds user to the feature's explicit user list.
func (e *Engine) ActivateUser(ctx context.Context, name string, user any, opts ...MutationOption) error {
	id := e.flagOpts.identity.id(user)
	return e.withFlag(ctx, name, OpActivateUser, opts, func(f Flag) error {
		return f.AddUser(ctx, id)
	})
}

// DeactivateUser removes user from the feature's explicit user list.
func (e *Engine) DeactivateUser(ctx context.Context, name string, user any, opts ...MutationOption) error {
	id := e.flagOpts.identity.id(user)
	return e.withFlag(ctx, name, OpDeactivateUser, opts, func(f Flag) error {
		return f.RemoveUser(ctx, id)
	})
}

// ActivateUsers adds each user individually. For sets flags every addition
// is atomic on its own; the batch as a whole is not.
func (e *Engine) ActivateUsers(ctx context.Context, name string, users []any, opts ...MutationOption) error {
	ids := e.userIDs(users)
	return e.withFlag(ctx, name, OpActivateUsers, opts, func(f Flag) error {
		for _, id := range ids {
			if err := f.AddUser(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeactivateUsers removes each user individually.
func (e *Engine) DeactivateUsers(ctx context.Context, name string, users []any, opts ...MutationOption) error {
	ids := e.userIDs(users)
	return e.withFlag(ctx, name, OpDeactivateUsers, opts, func(f Flag) error {
		for _, id := range ids {
			if err := f.RemoveUser(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetUsers replaces the feature's user list with users.
func (e *Engine) SetUsers(ctx context.Context, name string, users []any, opts ...MutationOption) error {
	ids := e.userIDs(users)
	return e.withFlag(ctx, name, OpSetUsers, opts, func(f Flag) error {
		return f.SetUsers(ctx, ids)
	})
}

// ActivatePercentage sets the rollout percentage. The value is stored as
// given, without clamping.
func (e *Engine) ActivatePercentage(ctx context.Context, name string, percentage float64, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpActivatePercentage, opts, func(f Flag) error {
		f.SetPercentage(percentage)
		return nil
	})
}

// DeactivatePercentage sets the rollout percentage back to 0.
func (e *Engine) DeactivatePercentage(ctx context.Context, name string, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpDeactivatePercentage, opts, func(f Flag) error {
		f.SetPercentage(0)
		return nil
	})
}

// SetFeatureData merges data into the feature's metadata.
func (e *Engine) SetFeatureData(ctx context.Context, name string, data map[string]any, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpSetFeatureData, opts, func(f Flag) error {
		f.MergeData(data)
		return nil
	})
}

// ClearFeatureData drops the feature's metadata.
func (e *Engine) ClearFeatureData(ctx context.Context, name string, opts ...MutationOption) error {
	return e.withFlag(ctx, name, OpClearFeatureData, opts, func(f Flag) error {
		f.ClearData()
		return nil
	})
}

// Delete removes the flag's record, its membership sets and its directory
// entry. History is kept.
func (e *Engine) Delete(ctx context.Context, name string, opts ...MutationOption) error {
	m := newMutation(opts)
	if m.audited() {
		if err := validateRecord(OpDelete, m.actor); err != nil {
			return err
		}
	}

	names, err := e.Features(ctx)
	if err != nil {
		return err
	}
	names = slices.DeleteFunc(names, func(n string) bool { return n == name })
	if err := e.store.Set(ctx, e.keys.directory(), strings.Join(names, ",")); err != nil {
		return e.storeFailure(ctx, name, OpDelete, err)
	}
	if err := e.store.Del(ctx, e.keys.flag(name), e.keys.users(name), e.keys.groups(name)); err != nil {
		return e.storeFailure(ctx, name, OpDelete, err)
	}

	if m.audited() {
		if err := e.appendHistory(ctx, name, OpDelete, 0, m.actor, m.comment); err != nil {
			return e.storeFailure(ctx, name, OpDelete, err)
		}
	}

	e.logger.DebugContext(ctx, "feature flag deleted", logger.Feature(name), logger.Actor(m.actor))
	return nil
}

// ClearAll wipes every known flag. Each flag is reset, its record and
// membership sets are deleted, and its history is replaced by a single
// "clear" entry. The directory is dropped last.
func (e *Engine) ClearAll(ctx context.Context, opts ...MutationOption) error {
	m := newMutation(opts)
	if err := validateRecord(OpClear, m.actor); err != nil {
		return err
	}

	names, err := e.Features(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		// Malformed records are wiped like any other; their keys are all
		// that is left to clear.
		var percentage float64
		f, err := e.Get(ctx, name)
		switch {
		case errors.Is(err, ErrMalformedRecord):
			e.logger.WarnContext(ctx, "clearing malformed feature flag", logger.Feature(name), logger.Error(err))
		case err != nil:
			return err
		default:
			if err := f.Clear(ctx); err != nil {
				return e.storeFailure(ctx, name, OpClear, err)
			}
			percentage = f.Percentage()
		}
		// Embedded flags hold their members in the record only; delete the
		// set keys anyway so a later sets read starts empty.
		if err := e.store.Del(ctx, e.keys.flag(name), e.keys.users(name), e.keys.groups(name), e.keys.history(name)); err != nil {
			return e.storeFailure(ctx, name, OpClear, err)
		}
		if err := e.appendHistory(ctx, name, OpClear, percentage, m.actor, m.comment); err != nil {
			return e.storeFailure(ctx, name, OpClear, err)
		}
	}

	if err := e.store.Del(ctx, e.keys.directory()); err != nil {
		return e.storeFailure(ctx, "", OpClear, err)
	}

	e.logger.InfoContext(ctx, "all feature flags cleared", logger.Count(len(names)), logger.Actor(m.actor))
	return nil
}

// withFlag runs the read-mutate-write cycle shared by all flag mutations.
// History is written only when the caller supplied an actor or a comment.
func (e *Engine) withFlag(ctx context.Context, name, op string, opts []MutationOption, mutate func(Flag) error) error {
	m := newMutation(opts)
	if m.audited() {
		if err := validateRecord(op, m.actor); err != nil {
			return err
		}
	}

	f, err := e.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := mutate(f); err != nil {
		return e.storeFailure(ctx, name, op, err)
	}
	if err := e.save(ctx, f); err != nil {
		return e.storeFailure(ctx, name, op, err)
	}

	if m.audited() {
		if err := e.appendHistory(ctx, name, op, f.Percentage(), m.actor, m.comment); err != nil {
			return e.storeFailure(ctx, name, op, err)
		}
	}

	e.logger.DebugContext(ctx, "feature flag updated",
		logger.Feature(name),
		logger.Operation(op),
		logger.Percentage(f.Percentage()),
		logger.Actor(m.actor),
	)
	return nil
}

// save writes the record and makes sure the directory lists the flag.
func (e *Engine) save(ctx context.Context, f Flag) error {
	raw, err := f.Serialize()
	if err != nil {
		return err
	}
	if err := e.store.Set(ctx, e.keys.flag(f.Name()), raw); err != nil {
		return err
	}

	names, err := e.Features(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(names, f.Name()) {
		return nil
	}
	return e.store.Set(ctx, e.keys.directory(), strings.Join(append(names, f.Name()), ","))
}

// storeFailure logs err and returns it unchanged.
func (e *Engine) storeFailure(ctx context.Context, name, op string, err error) error {
	e.logger.ErrorContext(ctx, "feature flag operation failed",
		logger.Feature(name),
		logger.Operation(op),
		logger.Error(err),
	)
	return err
}

func (e *Engine) userIDs(users []any) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		ids = append(ids, e.flagOpts.identity.id(u))
	}
	return ids
}
