package rollout

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// embeddedFlag keeps every field in the single record:
//
//	percentage|user,user|group,group|{"json":"data"}
type embeddedFlag struct {
	flagBase
	users  []string
	groups []string
}

var _ Flag = (*embeddedFlag)(nil)

func newEmbeddedFlag(name, raw string, found bool, opts flagOptions) (*embeddedFlag, error) {
	f := &embeddedFlag{flagBase: newFlagBase(name, opts)}
	if !found {
		return f, nil
	}

	// A sets record read as embedded keeps its percentage and data.
	parts := strings.SplitN(stripFormatToken(raw), "|", 4)
	f.percentage = parsePercentage(parts[0])
	if len(parts) > 1 {
		f.users = splitList(parts[1])
	}
	if len(parts) > 2 {
		f.groups = splitList(parts[2])
	}
	if len(parts) > 3 {
		if err := f.decodeData(parts[3]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *embeddedFlag) Format() Format { return FormatEmbedded }

func (f *embeddedFlag) Users(context.Context) ([]string, error) {
	return slices.Clone(f.users), nil
}

func (f *embeddedFlag) SetUsers(_ context.Context, ids []string) error {
	if err := checkMembers(ids...); err != nil {
		return err
	}
	f.users = splitList(strings.Join(ids, ","))
	return nil
}

func (f *embeddedFlag) AddUser(_ context.Context, id string) error {
	if err := checkMembers(id); err != nil {
		return err
	}
	f.users = addMember(f.users, id)
	return nil
}

func (f *embeddedFlag) RemoveUser(_ context.Context, id string) error {
	f.users = slices.DeleteFunc(f.users, func(u string) bool { return u == id })
	return nil
}

func (f *embeddedFlag) HasUser(_ context.Context, id string) (bool, error) {
	return slices.Contains(f.users, id), nil
}

func (f *embeddedFlag) Groups(context.Context) ([]string, error) {
	return slices.Clone(f.groups), nil
}

func (f *embeddedFlag) SetGroups(_ context.Context, groups []string) error {
	if err := checkMembers(groups...); err != nil {
		return err
	}
	f.groups = splitList(strings.Join(groups, ","))
	return nil
}

func (f *embeddedFlag) AddGroup(_ context.Context, group string) error {
	if err := checkMembers(group); err != nil {
		return err
	}
	f.groups = addMember(f.groups, group)
	return nil
}

func (f *embeddedFlag) RemoveGroup(_ context.Context, group string) error {
	f.groups = slices.DeleteFunc(f.groups, func(g string) bool { return g == group })
	return nil
}

func (f *embeddedFlag) Clear(context.Context) error {
	f.reset()
	f.users = nil
	f.groups = nil
	return nil
}

func (f *embeddedFlag) Active(ctx context.Context, groups GroupMatcher, user any) (bool, error) {
	return activeFor(ctx, f, &f.flagBase, groups, user)
}

func (f *embeddedFlag) Serialize() (string, error) {
	data, err := f.encodeData()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%s|%s|%s",
		formatPercentage(f.percentage),
		strings.Join(f.users, ","),
		strings.Join(f.groups, ","),
		data,
	), nil
}

func addMember(list []string, member string) []string {
	if member == "" || slices.Contains(list, member) {
		return list
	}
	return append(list, member)
}

// checkMembers rejects ids that would break the record's "|" and ","
// delimiters.
func checkMembers(members ...string) error {
	for _, m := range members {
		if strings.ContainsAny(m, "|,") {
			return fmt.Errorf("%w: member %q contains a record delimiter", ErrInvalidArgument, m)
		}
	}
	return nil
}
