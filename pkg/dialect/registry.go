package dialect

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Dialect registry
var (
	dialectsMu sync.RWMutex
	byKind     = make(map[Kind]*Dialect)
	byName     = make(map[string]*Dialect)
)

// ErrUnknownDialect is returned when a dialect name or kind is not supported.
var ErrUnknownDialect = errors.New("unknown dialect")

// Register registers a dialect in the global registry under its name and
// aliases. Called by dialect implementations in their init() functions.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	byKind[d.Kind] = d
	byName[strings.ToLower(d.Name)] = d
	for _, alias := range d.Aliases {
		byName[strings.ToLower(alias)] = d
	}
}

// Get returns a dialect by name or alias. The empty name resolves to ANSI.
func Get(name string) (*Dialect, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ForKind(ANSI)
	}
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := byName[name]
	return d, ok
}

// ForKind returns the registered dialect for a kind.
func ForKind(k Kind) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := byKind[k]
	return d, ok
}

// ParseKind resolves a dialect name (or alias) to its Kind.
// The empty string resolves to ANSI.
func ParseKind(name string) (Kind, error) {
	d, ok := Get(name)
	if !ok {
		return ANSI, fmt.Errorf("%w %q (available: %s)", ErrUnknownDialect, name, strings.Join(List(), ", "))
	}
	return d.Kind, nil
}

// List returns all registered dialect names and aliases (sorted).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
