package persist

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/polystore/dialect"
	"github.com/syssam/polystore/resolver"
	"github.com/syssam/polystore/store/kvstore"
)

// Backends supported by Open.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendKV     = "kv"
)

// Config is the file configuration of a Manager:
//
//	units:
//	  - name: sql
//	    backend: sql
//	    dialect: postgres
//	    dsn: postgres://localhost/shop?sslmode=disable
//	    migrate: true
//	  - name: kv
//	    backend: kv
//	    url: nats://localhost:4222
//	    bucket: shop
//	    codec: bson
//	resolver:
//	  max_depth: 32
//	  cycle: short_circuit
//	  concurrency: 4
type Config struct {
	Units    []UnitConfig   `yaml:"units"`
	Resolver ResolverConfig `yaml:"resolver"`
}

// UnitConfig configures the store client of one persistence unit.
type UnitConfig struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`

	// sql
	Dialect string `yaml:"dialect,omitempty"`
	DSN     string `yaml:"dsn,omitempty"`
	Migrate bool   `yaml:"migrate,omitempty"`
	Debug   bool   `yaml:"debug,omitempty"`

	// memory; nil means enabled.
	SecondaryIndex *bool `yaml:"secondary_index,omitempty"`

	// kv; an empty URL keeps the bucket in memory.
	URL    string `yaml:"url,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Codec  string `yaml:"codec,omitempty"`
}

// ResolverConfig configures graph resolution.
type ResolverConfig struct {
	// MaxDepth bounds recursion; nil uses resolver.DefaultMaxDepth and 0
	// disables the bound.
	MaxDepth *int `yaml:"max_depth,omitempty"`
	// Cycle is "short_circuit" (default) or "fail".
	Cycle string `yaml:"cycle,omitempty"`
	// Concurrency bounds the parallel traversals of FindMany.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persist: read config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig decodes and validates a YAML config.
func ParseConfig(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("persist: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem found in c.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Units))
	for i, u := range c.Units {
		if u.Name == "" {
			errs = append(errs, fmt.Errorf("units[%d]: name is required", i))
		} else if seen[u.Name] {
			errs = append(errs, fmt.Errorf("units[%d]: duplicate unit %q", i, u.Name))
		}
		seen[u.Name] = true
		switch u.Backend {
		case BackendMemory:
		case BackendSQL:
			switch dialect.Normalize(u.Dialect) {
			case dialect.Postgres, dialect.MySQL, dialect.SQLite:
			default:
				errs = append(errs, fmt.Errorf("units[%d]: unsupported dialect %q", i, u.Dialect))
			}
			if u.DSN == "" {
				errs = append(errs, fmt.Errorf("units[%d]: dsn is required", i))
			}
		case BackendKV:
			if _, err := kvstore.CodecByName(u.Codec); err != nil {
				errs = append(errs, fmt.Errorf("units[%d]: %w", i, err))
			}
			if u.URL != "" && u.Bucket == "" {
				errs = append(errs, fmt.Errorf("units[%d]: bucket is required with url", i))
			}
		default:
			errs = append(errs, fmt.Errorf("units[%d]: unknown backend %q", i, u.Backend))
		}
	}
	if _, err := c.Resolver.cyclePolicy(); err != nil {
		errs = append(errs, err)
	}
	if d := c.Resolver.MaxDepth; d != nil && *d < 0 {
		errs = append(errs, fmt.Errorf("resolver: negative max_depth %d", *d))
	}
	if c.Resolver.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("resolver: negative concurrency %d", c.Resolver.Concurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("persist: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (rc ResolverConfig) cyclePolicy() (resolver.CyclePolicy, error) {
	switch strings.ToLower(rc.Cycle) {
	case "", resolver.ShortCircuit.String():
		return resolver.ShortCircuit, nil
	case resolver.FailOnCycle.String():
		return resolver.FailOnCycle, nil
	}
	return 0, fmt.Errorf("resolver: unknown cycle policy %q", rc.Cycle)
}

// Options returns the resolver options described by rc.
func (rc ResolverConfig) Options() []resolver.Option {
	policy, _ := rc.cyclePolicy()
	opts := []resolver.Option{resolver.WithCyclePolicy(policy)}
	if rc.MaxDepth != nil {
		opts = append(opts, resolver.WithMaxDepth(*rc.MaxDepth))
	}
	return opts
}
