// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/docent/core"
)

// Registry maps provider keys to constructed providers. It is safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]Provider
	unavailable map[string]error
	defaultKey  string
}

// NewRegistry creates an empty registry whose default is defaultKey.
func NewRegistry(defaultKey string) *Registry {
	return &Registry{
		providers:   make(map[string]Provider),
		unavailable: make(map[string]error),
		defaultKey:  normalizeKey(defaultKey),
	}
}

// Register adds p under p.Name(), replacing any previous provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeKey(p.Name())
	r.providers[key] = p
	delete(r.unavailable, key)
}

// MarkUnavailable records why a known provider was not registered.
func (r *Registry) MarkUnavailable(key string, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unavailable[normalizeKey(key)] = reason
}

// Get returns the provider for key. A blank key selects the default.
// Unknown and unavailable keys fail with core.ErrUnknownProvider.
func (r *Registry) Get(key string) (Provider, error) {
	key = normalizeKey(key)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key == "" {
		key = r.defaultKey
	}
	if p, ok := r.providers[key]; ok {
		return p, nil
	}
	if reason, ok := r.unavailable[key]; ok {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrUnknownProvider, key, reason)
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownProvider, key)
}

// Default returns the default provider key.
func (r *Registry) Default() string {
	return r.defaultKey
}

// Names returns the registered provider keys in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.providers))
}

// Unavailable returns the reasons known providers were not registered.
func (r *Registry) Unavailable() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.unavailable))
	for k, err := range r.unavailable {
		out[k] = err.Error()
	}
	return out
}

// Validate checks that the default provider is registered.
func (r *Registry) Validate() error {
	if _, err := r.Get(""); err != nil {
		return fmt.Errorf("%w: %w: %w", core.ErrConfiguration, ErrNoDefaultProvider, err)
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
