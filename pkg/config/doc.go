// Package config fills typed structs from environment variables.
//
// Parsing is done by github.com/caarlos0/env/v11 and .env files are read with
// github.com/joho/godotenv. On first use Load reads .env from the working
// directory if it exists; LoadEnv reads explicit files and never overrides
// variables already present in the process environment.
//
//	if err := config.LoadEnv(envFile); err != nil {
//		return err
//	}
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Each struct type is parsed once per process and cached by value, so
// packages can call Load for their own config without coordinating.
// LoadPrefixed caches per type and prefix. ResetCache clears the cache for
// tests.
//
// Errors wrap ErrParsingConfig, ErrLoadingEnvFile, ErrConfigNotLoaded or
// ErrNilPointer and can be matched with errors.Is.
package config
