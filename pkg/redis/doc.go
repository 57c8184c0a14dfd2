// Package redis connects to a Redis server and exposes it as the key-value
// store behind feature flags.
//
// The package wraps the go-redis client and adds:
//
//   - Connect, which retries the initial ping using the supplied configuration.
//   - Store, a thin adapter implementing rollout.Store on top of plain keys,
//     sets (flag membership) and lists (flag history).
//   - Healthcheck, a probe for liveness / readiness endpoints.
//
// Configuration is described by the Config struct whose fields can be
// populated from environment variables via github.com/caarlos0/env.
//
// # Usage
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	engine, err := rollout.New(redis.NewStore(client))
//
// # Errors
//
// Connection errors are sentinel values (ErrRedisNotReady,
// ErrFailedToParseRedisConnString, ...) joined with the driver error via
// errors.Join. Store methods never wrap driver errors, and a missing key or
// list index is reported as "not found" instead of redis.Nil.
package redis
