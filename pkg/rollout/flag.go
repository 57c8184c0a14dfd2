package rollout

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"strings"
)

// Flag is one feature's rollout configuration, materialized from its
// persisted record. Flags are short-lived: the engine reads a fresh one for
// every operation and writes it back with Serialize.
//
// Percentage and data live in memory until the flag is saved. Membership
// methods are variant specific: embedded flags keep users and groups in
// memory as well, while sets flags apply every membership change to the
// store immediately.
type Flag interface {
	// Name returns the feature name.
	Name() string
	// Format reports which persistence encoding backs this flag.
	Format() Format

	Percentage() float64
	SetPercentage(p float64)

	// Data returns a copy of the flag's metadata.
	Data() map[string]any
	// MergeData adds or overwrites metadata keys.
	MergeData(data map[string]any)
	// ClearData drops all metadata.
	ClearData()

	Users(ctx context.Context) ([]string, error)
	SetUsers(ctx context.Context, ids []string) error
	AddUser(ctx context.Context, id string) error
	RemoveUser(ctx context.Context, id string) error
	HasUser(ctx context.Context, id string) (bool, error)

	Groups(ctx context.Context) ([]string, error)
	SetGroups(ctx context.Context, groups []string) error
	AddGroup(ctx context.Context, group string) error
	RemoveGroup(ctx context.Context, group string) error

	// Clear resets the flag to 0%, no users, no groups and no data.
	Clear(ctx context.Context) error

	// UserInPercentage reports whether the user is admitted by percentage bucketing alone.
	UserInPercentage(user any) bool

	// Active reports whether the feature is on for user. A nil user is
	// active only when the percentage is exactly 100.
	Active(ctx context.Context, groups GroupMatcher, user any) (bool, error)

	// Serialize encodes the record stored under the flag's key.
	Serialize() (string, error)
}

// flagOptions carries the engine settings a flag needs to evaluate itself.
type flagOptions struct {
	randomize bool
	identity  identity
}

// flagBase holds the fields both encodings persist in the record itself.
type flagBase struct {
	name       string
	percentage float64
	data       map[string]any
	opts       flagOptions
}

func newFlagBase(name string, opts flagOptions) flagBase {
	return flagBase{
		name: name,
		data: make(map[string]any),
		opts: opts,
	}
}

func (b *flagBase) Name() string            { return b.name }
func (b *flagBase) Percentage() float64     { return b.percentage }
func (b *flagBase) SetPercentage(p float64) { b.percentage = p }
func (b *flagBase) Data() map[string]any    { return maps.Clone(b.data) }
func (b *flagBase) ClearData()              { b.data = make(map[string]any) }

func (b *flagBase) MergeData(data map[string]any) {
	if b.data == nil {
		b.data = make(map[string]any, len(data))
	}
	maps.Copy(b.data, data)
}

func (b *flagBase) reset() {
	b.percentage = 0
	b.data = make(map[string]any)
}

func (b *flagBase) userID(user any) string {
	return b.opts.identity.id(user)
}

func (b *flagBase) UserInPercentage(user any) bool {
	return b.idInPercentage(b.userID(user))
}

func (b *flagBase) idInPercentage(id string) bool {
	if id == "" {
		return false
	}
	return InPercentage(bucketKey(b.name, id, b.opts.randomize), b.percentage)
}

// decodeData parses the data segment. Blank segments decode to an empty map.
func (b *flagBase) decodeData(segment string) error {
	if strings.TrimSpace(segment) == "" {
		b.data = make(map[string]any)
		return nil
	}
	data := make(map[string]any)
	if err := json.Unmarshal([]byte(segment), &data); err != nil {
		return errors.Join(ErrMalformedRecord, err)
	}
	b.data = data
	return nil
}

// encodeData writes empty metadata as an empty segment, not "{}".
func (b *flagBase) encodeData() (string, error) {
	if len(b.data) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(b.data)
	if err != nil {
		return "", errors.Join(ErrInvalidArgument, err)
	}
	return string(raw), nil
}

// activeFor is the activation rule shared by both encodings. Checks run
// from cheapest to most expensive: bucketing, explicit users, then group
// predicates, which may run arbitrary host code.
func activeFor(ctx context.Context, f Flag, base *flagBase, groups GroupMatcher, user any) (bool, error) {
	// No id, whether from a nil user or a typed nil pointer, means no user.
	id := base.userID(user)
	if id == "" {
		return base.percentage == 100, nil
	}

	if base.idInPercentage(id) {
		return true, nil
	}

	ok, err := f.HasUser(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	if groups == nil {
		return false, nil
	}
	names, err := f.Groups(ctx)
	if err != nil {
		return false, err
	}
	for _, g := range names {
		if groups.ActiveInGroup(g, user) {
			return true, nil
		}
	}
	return false, nil
}
