// Package source implements the per-provider fetch adapters.
package source

import (
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newswire-hq/newswire/internal/news"
)

// Registry selects the adapter for a source by its (case-insensitive) name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]news.Adapter
}

// NewRegistry builds a registry for the provided adapter implementations.
func NewRegistry(adapters ...news.Adapter) *Registry {
	reg := &Registry{
		adapters: make(map[string]news.Adapter, len(adapters)),
	}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		reg.adapters[strings.ToLower(strings.TrimSpace(a.Name()))] = a
	}
	return reg
}

// AdapterFor returns the adapter registered under the given source name.
func (r *Registry) AdapterFor(name string) (news.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// NewHTTPClient returns a resty client tuned for provider calls. The timeout
// bounds every adapter request so one slow provider cannot stall a job.
func NewHTTPClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

// DefaultRegistry wires up the known provider adapters.
func DefaultRegistry(client *resty.Client, creds news.CredentialResolver) *Registry {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return NewRegistry(
		NewNewsAPI(client, creds),
		NewFinnhub(client, creds),
		NewAlphaVantage(client, creds),
		NewGNews(client, creds),
	)
}
