// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"sync"
)

// Standard hardware type names. The registry accepts arbitrary names; these
// are the ones the default backends register under.
const (
	TypeGPU      = "gpu"
	TypeCPU      = "cpu"
	TypePlatform = "platform"
)

// Unavailable errors for the standard hardware types. A component whose
// hardware type resolved no usable handler returns the error its type was
// registered with.
var (
	ErrGPUUnavailable      = errors.New("no GPU(s) available")
	ErrCPUUnavailable      = errors.New("no CPU(s) available")
	ErrPlatformUnavailable = errors.New("no platform power source available")
)

// registration is one registry entry: a hardware type, the error reported
// when none of its backends are usable, and the candidate handlers in
// priority order (first available wins).
type registration struct {
	name        string
	unavailable error
	handlers    []PowerHandler
}

var (
	registry   []registration
	registryMu sync.RWMutex
)

// Register adds a hardware type with its candidate handlers. Handler order
// is the fallback priority. Registering an already known name replaces its
// entry but keeps its position, so "all" expansion order stays stable.
func Register(name string, unavailable error, handlers ...PowerHandler) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for i := range registry {
		if registry[i].name == name {
			registry[i].unavailable = unavailable
			registry[i].handlers = handlers
			return
		}
	}

	registry = append(registry, registration{
		name:        name,
		unavailable: unavailable,
		handlers:    handlers,
	})
}

// ComponentNames returns the registered hardware type names in registration
// order. This order defines how "all" expands.
func ComponentNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for _, r := range registry {
		names = append(names, r.name)
	}
	return names
}

// HandlersFor returns the candidate handlers for a hardware type in
// priority order, or nil if the name is not registered. Validation of
// unknown names is the caller's responsibility.
func HandlersFor(name string) []PowerHandler {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, r := range registry {
		if r.name == name {
			return r.handlers
		}
	}
	return nil
}

// ErrorFor returns the unavailable error registered for a hardware type,
// or nil if the name is not registered.
func ErrorFor(name string) error {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, r := range registry {
		if r.name == name {
			return r.unavailable
		}
	}
	return nil
}

// ClearRegistry removes all registrations. This is primarily useful for
// testing.
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = nil
}
