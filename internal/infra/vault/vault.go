// Package vault provides a pluggable secret store, used to hold FIX
// session credentials without hardcoding them into config files.
package vault

import "os"

// SecretStore resolves a named secret.
type SecretStore interface {
	Get(key string) (string, error)
}

// EnvStore resolves secrets from environment variables prefixed with
// TRICORE_SECRET_, matching the naming convention config.Load uses for
// its own overrides.
type EnvStore struct{}

func (EnvStore) Get(key string) (string, error) {
	return os.Getenv("TRICORE_SECRET_" + key), nil
}
