// Package config loads command configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name declared in config structs.
const EnvPrefix = "CARDGUESS_"

// ParseEnv loads configuration from process environment variables.
//
// Struct tags name variables without the prefix, e.g. `env:"BIAS"` is read
// from CARDGUESS_BIAS.
func ParseEnv(target any) error {
	return parse(target, nil)
}

// ParseEnvFrom loads configuration from the given KEY=VALUE pairs instead of
// the process environment.
func ParseEnvFrom(target any, environ []string) error {
	values := make(map[string]string, len(environ))
	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		values[key] = value
	}
	return parse(target, values)
}

func parse(target any, environment map[string]string) error {
	if target == nil {
		return fmt.Errorf("parse env: config target is required")
	}
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
