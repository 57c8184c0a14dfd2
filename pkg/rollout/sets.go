package rollout

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// setsFlag keeps percentage and data in the record and delegates users and
// groups to two store sets. Membership reads always hit the store, and every
// add or remove is a single atomic set operation applied immediately, not on
// Serialize. Bulk setters replace the whole set.
//
//	percentage|||{"json":"data"}|__sets__
type setsFlag struct {
	flagBase
	store     Store
	usersKey  string
	groupsKey string
}

var _ Flag = (*setsFlag)(nil)

func newSetsFlag(name, raw string, found bool, store Store, keys keyspace, opts flagOptions) (*setsFlag, error) {
	f := &setsFlag{
		flagBase:  newFlagBase(name, opts),
		store:     store,
		usersKey:  keys.users(name),
		groupsKey: keys.groups(name),
	}
	if !found {
		return f, nil
	}

	// Membership segments are ignored: the sets are authoritative.
	parts := strings.SplitN(stripFormatToken(raw), "|", 4)
	f.percentage = parsePercentage(parts[0])
	if len(parts) > 3 {
		if err := f.decodeData(parts[3]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *setsFlag) Format() Format { return FormatSets }

func (f *setsFlag) Users(ctx context.Context) ([]string, error) {
	return f.members(ctx, f.usersKey)
}

func (f *setsFlag) SetUsers(ctx context.Context, ids []string) error {
	return f.replace(ctx, f.usersKey, ids)
}

func (f *setsFlag) AddUser(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return f.store.SAdd(ctx, f.usersKey, id)
}

func (f *setsFlag) RemoveUser(ctx context.Context, id string) error {
	return f.store.SRem(ctx, f.usersKey, id)
}

func (f *setsFlag) HasUser(ctx context.Context, id string) (bool, error) {
	return f.store.SIsMember(ctx, f.usersKey, id)
}

func (f *setsFlag) Groups(ctx context.Context) ([]string, error) {
	return f.members(ctx, f.groupsKey)
}

func (f *setsFlag) SetGroups(ctx context.Context, groups []string) error {
	return f.replace(ctx, f.groupsKey, groups)
}

func (f *setsFlag) AddGroup(ctx context.Context, group string) error {
	if group == "" {
		return nil
	}
	return f.store.SAdd(ctx, f.groupsKey, group)
}

func (f *setsFlag) RemoveGroup(ctx context.Context, group string) error {
	return f.store.SRem(ctx, f.groupsKey, group)
}

func (f *setsFlag) Clear(ctx context.Context) error {
	f.reset()
	return f.store.Del(ctx, f.usersKey, f.groupsKey)
}

func (f *setsFlag) Active(ctx context.Context, groups GroupMatcher, user any) (bool, error) {
	return activeFor(ctx, f, &f.flagBase, groups, user)
}

func (f *setsFlag) Serialize() (string, error) {
	data, err := f.encodeData()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|||%s|%s", formatPercentage(f.percentage), data, formatToken), nil
}

// members returns the set sorted, since store sets carry no order.
func (f *setsFlag) members(ctx context.Context, key string) ([]string, error) {
	m, err := f.store.SMembers(ctx, key)
	if err != nil {
		return nil, err
	}
	slices.Sort(m)
	return m, nil
}

func (f *setsFlag) replace(ctx context.Context, key string, members []string) error {
	if err := f.store.Del(ctx, key); err != nil {
		return err
	}
	members = slices.DeleteFunc(slices.Clone(members), func(m string) bool { return m == "" })
	if len(members) == 0 {
		return nil
	}
	return f.store.SAdd(ctx, key, members...)
}
