// Package secrets resolves named credential references for source adapters.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// EnvResolver looks credentials up in the process environment. A missing or
// empty variable is an error the caller can recover from, never a crash.
type EnvResolver struct {
	prefix string
}

// NewEnvResolver creates a resolver. The optional prefix is prepended to
// every reference before lookup (e.g. prefix "NEWSWIRE_" and reference
// "NEWSAPI_KEY" resolve NEWSWIRE_NEWSAPI_KEY).
func NewEnvResolver(prefix string) *EnvResolver {
	return &EnvResolver{prefix: prefix}
}

// Resolve returns the secret for the given reference name.
func (r *EnvResolver) Resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("credential reference is empty")
	}
	key := r.prefix + name
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("credential %q is not configured", key)
	}
	return value, nil
}

// Static is a fixed map resolver, used in tests and local development.
type Static map[string]string

// Resolve returns the secret for the given reference name.
func (s Static) Resolve(name string) (string, error) {
	value, ok := s[name]
	if !ok || value == "" {
		return "", fmt.Errorf("credential %q is not configured", name)
	}
	return value, nil
}
