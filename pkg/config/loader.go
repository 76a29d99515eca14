package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// cache holds parsed configs keyed by prefix and type name. Each key parses
// at most once, even under concurrent Load calls.
type cache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

func newCache() *cache {
	return &cache{values: make(map[string]any), onces: make(map[string]*sync.Once)}
}

func (c *cache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *cache) put(key string, v any) {
	c.mu.Lock()
	c.values[key] = v
	c.mu.Unlock()
}

func (c *cache) once(key string) *sync.Once {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.onces[key]
	if !ok {
		o = new(sync.Once)
		c.onces[key] = o
	}
	return o
}

var (
	globalCache      = newCache()
	defaultEnvLoaded sync.Once
)

// Load parses environment variables into v using its env struct tags.
// A .env file in the working directory is read once on first use, if present.
// Each config type is parsed once per process; later calls copy the cached
// value into v.
//
//	var cfg session.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	return load(v, "")
}

// LoadPrefixed works like Load but reads every variable as prefix+name.
// Results are cached per type and prefix, so one struct can back several
// prefixes (for example PRIMARY_ and REPLICA_).
func LoadPrefixed[T any](v *T, prefix string) error {
	return load(v, prefix)
}

func load[T any](v *T, prefix string) error {
	defaultEnvLoaded.Do(func() {
		// A missing .env is normal outside local development.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	key := prefix + typeName[T]()
	if cached, ok := globalCache.get(key); ok {
		*v = cached.(T)
		return nil
	}

	var err error
	globalCache.once(key).Do(func() {
		var parsed T
		if perr := env.ParseWithOptions(&parsed, env.Options{Prefix: prefix}); perr != nil {
			err = errors.Join(ErrParsingConfig, perr)
			return
		}
		globalCache.put(key, parsed)
	})
	if err != nil {
		return err
	}

	cached, ok := globalCache.get(key)
	if !ok {
		// Another goroutine's parse failed; the once will not run again.
		return ErrConfigNotLoaded
	}
	*v = cached.(T)
	return nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// LoadEnv loads the given .env files into the process environment.
// Variables already set are not overridden, and earlier files win over later
// ones. With no paths it loads ".env" from the working directory.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics on failure.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// ResetCache drops every cached config so the next Load parses the
// environment again. Intended for tests.
func ResetCache() {
	fresh := newCache()
	globalCache.mu.Lock()
	globalCache.values, globalCache.onces = fresh.values, fresh.onces
	globalCache.mu.Unlock()
}
