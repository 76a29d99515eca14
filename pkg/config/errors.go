package config

import "errors"

var (
	ErrParsingConfig   = errors.New("config: parse environment")
	ErrConfigNotLoaded = errors.New("config: not loaded")
	ErrLoadingEnvFile  = errors.New("config: load env file")
	ErrNilPointer      = errors.New("config: nil target")
)
