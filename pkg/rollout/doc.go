// Package rollout decides whether a feature is active for a user based on a
// flag record kept in a key-value store.
//
// Each flag holds a global percentage, an explicit user list, a list of group
// names and free-form metadata. A user sees the feature when any of these
// admits them:
//
//  1. Percentage: CRC-32 of the user id falls below percentage × (2³²−1)/100.
//     The check is deterministic, so raising the percentage only ever adds users.
//  2. Users: the user id is on the flag's user list.
//  3. Groups: a predicate registered with DefineGroup under one of the flag's
//     group names returns true for the user.
//
// Without a user, a flag is active only at exactly 100%.
//
// # Storage formats
//
// Flags are persisted in one of two encodings that coexist in the same store:
//
//   - Embedded: "percentage|users|groups|data" in a single value. Every
//     membership change rewrites the whole value.
//   - Sets: "percentage|||data|__sets__" in the value, with users and groups
//     kept in native store sets. Adds, removes and membership checks are
//     single O(1) store operations, which matters for flags with tens of
//     thousands of users.
//
// The format is resolved on every read (see ResolveFormat): a pinned format
// wins, a missing record uses the default (sets), and an existing record is
// read as sets only when it ends with the format token. Legacy embedded
// records keep working without migration.
//
// # Usage
//
//	client, err := redis.Connect(ctx, redisCfg)
//	if err != nil {
//		return err
//	}
//	engine, err := rollout.New(redis.NewStore(client),
//		rollout.WithLogger(log),
//		rollout.WithGroup("staff", func(u any) bool { return u.(*User).Staff }),
//	)
//	if err != nil {
//		return err
//	}
//
//	_ = engine.ActivatePercentage(ctx, "checkout_v2", 25,
//		rollout.WithActor("alice"), rollout.WithComment("ramp to 25%"))
//	_ = engine.ActivateGroup(ctx, "checkout_v2", "staff")
//
//	on, err := engine.Active(ctx, "checkout_v2", currentUser)
//
// # Users
//
// Users are passed as any. Strings and integers are used directly, types
// implementing Identifier provide their own id, and other values are read
// through the field (or map key) configured with WithIDField, "ID" by default.
// WithIDExtractor replaces the resolution entirely.
//
// # History
//
// Mutations called with WithActor or WithComment append an entry to the
// flag's history list: "operation actor unix_ts percentage comment".
// Without either option nothing is recorded. FullHistory and
// MostRecentHistory read it back newest first.
//
// # Errors
//
// Store errors are returned unchanged. Unknown flags are not an error: they
// read as a flag at 0% with no members. Invalid history tokens return
// ErrInvalidArgument and undecodable metadata returns ErrMalformedRecord.
package rollout
