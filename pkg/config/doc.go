// Package config loads configuration structs from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing):
//
//	var flags rollout.Config
//	var store redis.Config
//	config.MustLoad(&flags)
//	config.MustLoad(&store, "./deploy/.env")
//
// Errors can be compared with errors.Is against ErrParsingConfig,
// ErrLoadingEnvFile and ErrNilPointer.
package config
