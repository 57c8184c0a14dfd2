package rollout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/rollout"
)

func newFactory(t *testing.T, opts ...rollout.Option) (*rollout.MemoryStore, *rollout.Factory) {
	t.Helper()
	store := rollout.NewMemoryStore()
	engine, err := rollout.New(store, opts...)
	require.NoError(t, err)
	return store, engine.Factory()
}

func TestEmbeddedFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("parses legacy record", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t)
		f, err := factory.Materialize("chat", `12.5|1,2,3|admins,beta|{"owner":"growth"}`, true)
		require.NoError(t, err)

		assert.Equal(t, rollout.FormatEmbedded, f.Format())
		assert.Equal(t, "chat", f.Name())
		assert.InDelta(t, 12.5, f.Percentage(), 0)
		users, err := f.Users(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, users)
		groups, err := f.Groups(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"admins", "beta"}, groups)
		assert.Equal(t, map[string]any{"owner": "growth"}, f.Data())
	})

	t.Run("tolerates short records", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t)
		for _, raw := range []string{"", "40", "40|", "40|7", "40|7|beta", "40|7|beta|", "40|7|beta|  "} {
			f, err := factory.Materialize("chat", raw, true)
			require.NoError(t, err, raw)
			assert.Equal(t, rollout.FormatEmbedded, f.Format(), raw)
			assert.Empty(t, f.Data(), raw)
		}
	})

	t.Run("non-numeric percentage reads as zero", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t)
		f, err := factory.Materialize("chat", "abc|||", true)
		require.NoError(t, err)
		assert.Zero(t, f.Percentage())
	})

	t.Run("invalid json is an error", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t)
		_, err := factory.Materialize("chat", "10|||{not json", true)
		assert.ErrorIs(t, err, rollout.ErrMalformedRecord)
	})

	t.Run("serialize round trip", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t, rollout.WithDefaultFormat(rollout.FormatEmbedded))
		f, err := factory.Materialize("chat", "", false)
		require.NoError(t, err)
		require.Equal(t, rollout.FormatEmbedded, f.Format())

		f.SetPercentage(33.3)
		require.NoError(t, f.AddUser(ctx, "7"))
		require.NoError(t, f.AddUser(ctx, "9"))
		require.NoError(t, f.AddUser(ctx, "7"))
		require.NoError(t, f.AddGroup(ctx, "beta"))
		f.MergeData(map[string]any{"ticket": "OPS-1"})

		raw, err := f.Serialize()
		require.NoError(t, err)
		assert.Equal(t, `33.3|7,9|beta|{"ticket":"OPS-1"}`, raw)

		again, err := factory.Materialize("chat", raw, true)
		require.NoError(t, err)
		assert.InDelta(t, f.Percentage(), again.Percentage(), 0)
		users, _ := again.Users(ctx)
		assert.Equal(t, []string{"7", "9"}, users)
		groups, _ := again.Groups(ctx)
		assert.Equal(t, []string{"beta"}, groups)
		assert.Equal(t, f.Data(), again.Data())
	})

	t.Run("empty flag serializes with empty data segment", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t, rollout.WithDefaultFormat(rollout.FormatEmbedded))
		f, err := factory.Materialize("chat", "", false)
		require.NoError(t, err)
		raw, err := f.Serialize()
		require.NoError(t, err)
		assert.Equal(t, "0.0|||", raw)
	})

	t.Run("membership changes stay in memory", func(t *testing.T) {
		t.Parallel()
		store, factory := newFactory(t)
		f, err := factory.Materialize("chat", "0.0|1||", true)
		require.NoError(t, err)

		require.NoError(t, f.AddUser(ctx, "2"))
		require.NoError(t, f.RemoveUser(ctx, "1"))
		ok, err := f.HasUser(ctx, "2")
		require.NoError(t, err)
		assert.True(t, ok)

		members, err := store.SMembers(ctx, "feature:chat:users")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t)
		f, err := factory.Materialize("chat", `80|1|beta|{"a":1}`, true)
		require.NoError(t, err)
		require.NoError(t, f.Clear(ctx))

		raw, err := f.Serialize()
		require.NoError(t, err)
		assert.Equal(t, "0.0|||", raw)
	})

	t.Run("reads a sets record when forced", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t, rollout.WithFormat(rollout.FormatEmbedded))
		f, err := factory.Materialize("chat", `50.0|||{"a":"b"}|__sets__`, true)
		require.NoError(t, err)
		assert.Equal(t, rollout.FormatEmbedded, f.Format())
		assert.InDelta(t, 50.0, f.Percentage(), 0)
		assert.Equal(t, map[string]any{"a": "b"}, f.Data())
	})
}

func TestSetsFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("membership goes straight to the store", func(t *testing.T) {
		t.Parallel()
		store, factory := newFactory(t)
		f, err := factory.Materialize("search", "", false)
		require.NoError(t, err)
		require.Equal(t, rollout.FormatSets, f.Format())

		require.NoError(t, f.AddUser(ctx, "1"))
		require.NoError(t, f.AddUser(ctx, "2"))
		require.NoError(t, f.AddGroup(ctx, "beta"))

		ok, err := store.SIsMember(ctx, "feature:search:users", "2")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = store.SIsMember(ctx, "feature:search:groups", "beta")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, f.RemoveUser(ctx, "1"))
		users, err := f.Users(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, users)
	})

	t.Run("reads see concurrent writers", func(t *testing.T) {
		t.Parallel()
		store, factory := newFactory(t)
		f, err := factory.Materialize("search", "", false)
		require.NoError(t, err)

		require.NoError(t, store.SAdd(ctx, "feature:search:users", "99"))
		ok, err := f.HasUser(ctx, "99")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("bulk setters replace the set", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t)
		f, err := factory.Materialize("search", "", false)
		require.NoError(t, err)

		require.NoError(t, f.SetUsers(ctx, []string{"1", "2"}))
		require.NoError(t, f.SetUsers(ctx, []string{"3", "", "4"}))
		users, err := f.Users(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "4"}, users)

		require.NoError(t, f.SetGroups(ctx, []string{"beta"}))
		require.NoError(t, f.SetGroups(ctx, nil))
		groups, err := f.Groups(ctx)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("serialize keeps membership out of the record", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t)
		f, err := factory.Materialize("search", "", false)
		require.NoError(t, err)

		f.SetPercentage(10)
		f.MergeData(map[string]any{"owner": "search"})
		require.NoError(t, f.AddUser(ctx, "1"))

		raw, err := f.Serialize()
		require.NoError(t, err)
		assert.Equal(t, `10.0|||{"owner":"search"}|__sets__`, raw)

		again, err := factory.Materialize("search", raw, true)
		require.NoError(t, err)
		assert.Equal(t, rollout.FormatSets, again.Format())
		assert.InDelta(t, 10.0, again.Percentage(), 0)
		assert.Equal(t, map[string]any{"owner": "search"}, again.Data())
		users, err := again.Users(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, users)
	})

	t.Run("forced sets ignores embedded membership segments", func(t *testing.T) {
		t.Parallel()
		_, factory := newFactory(t, rollout.WithFormat(rollout.FormatSets))
		f, err := factory.Materialize("search", "20|1,2|beta|", true)
		require.NoError(t, err)
		assert.Equal(t, rollout.FormatSets, f.Format())
		assert.InDelta(t, 20.0, f.Percentage(), 0)
		users, err := f.Users(ctx)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("clear drops the sets", func(t *testing.T) {
		t.Parallel()
		store, factory := newFactory(t)
		f, err := factory.Materialize("search", "75.0|||__sets__", true)
		require.NoError(t, err)
		require.NoError(t, f.AddUser(ctx, "1"))
		require.NoError(t, f.AddGroup(ctx, "beta"))

		require.NoError(t, f.Clear(ctx))
		assert.Zero(t, f.Percentage())
		users, err := store.SMembers(ctx, "feature:search:users")
		require.NoError(t, err)
		assert.Empty(t, users)
		groups, err := store.SMembers(ctx, "feature:search:groups")
		require.NoError(t, err)
		assert.Empty(t, groups)
	})
}

func TestFlagData(t *testing.T) {
	t.Parallel()
	_, factory := newFactory(t)
	f, err := factory.Materialize("x", `0|||{"a":1}`, true)
	require.NoError(t, err)

	data := f.Data()
	data["b"] = 2
	assert.NotContains(t, f.Data(), "b")

	f.MergeData(map[string]any{"b": "two", "a": "one"})
	assert.Equal(t, map[string]any{"a": "one", "b": "two"}, f.Data())

	f.ClearData()
	assert.Empty(t, f.Data())
}
