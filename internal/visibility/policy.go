// Package visibility evaluates catalog visibility codes against the
// administrator-configured allow-list of visibilities to index.
package visibility

import (
	"strconv"
	"strings"

	"github.com/Aman-CERP/visindex/internal/catalog"
)

// ConfigPathSyncVisibilities holds the comma-separated allow-list.
const ConfigPathSyncVisibilities = "klevu/indexing_products_exclude_by_visibility/sync_visibilities"

// ScopeType identifies a configuration scope level.
type ScopeType string

const (
	ScopeDefault  ScopeType = "default"
	ScopeWebsites ScopeType = "websites"
	ScopeStores   ScopeType = "stores"
)

// ScopeConfig reads raw configuration values. Falling back from store to
// website to default scope is the implementation's job.
type ScopeConfig interface {
	Value(path string, scope ScopeType, scopeID int64) (string, bool)
}

// Set is a set of valid visibility codes.
type Set struct {
	bits uint8
}

// NewSet builds a set from codes, dropping anything that is not one of the
// four valid visibilities.
func NewSet(codes ...catalog.Visibility) Set {
	var s Set
	for _, v := range codes {
		if v.Valid() {
			s.bits |= 1 << uint(v)
		}
	}
	return s
}

// Contains reports whether v is in the set.
func (s Set) Contains(v catalog.Visibility) bool {
	return v.Valid() && s.bits&(1<<uint(v)) != 0
}

// Len returns the number of codes in the set.
func (s Set) Len() int {
	n := 0
	for _, v := range catalog.Visibilities() {
		if s.Contains(v) {
			n++
		}
	}
	return n
}

// Empty reports whether no visibility is allowed.
func (s Set) Empty() bool {
	return s.bits == 0
}

// Visibilities returns the members in ascending order.
func (s Set) Visibilities() []catalog.Visibility {
	out := make([]catalog.Visibility, 0, 4)
	for _, v := range catalog.Visibilities() {
		if s.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// String renders the set in configuration form, e.g. "2,3,4".
func (s Set) String() string {
	parts := make([]string, 0, 4)
	for _, v := range s.Visibilities() {
		parts = append(parts, strconv.Itoa(int(v)))
	}
	return strings.Join(parts, ",")
}

// IsAllowed reports whether visibility is a member of allowed.
func IsAllowed(v catalog.Visibility, allowed Set) bool {
	return allowed.Contains(v)
}

// ParseAllowed converts a raw configuration value into an allow-set.
// Tokens that are not numbers count as 0 and are dropped along with any
// other code outside 1-4. An empty value allows nothing.
func ParseAllowed(raw string) Set {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Set{}
	}

	var s Set
	for _, token := range strings.Split(raw, ",") {
		s = s.union(NewSet(catalog.Visibility(leadingInt(token))))
	}
	return s
}

func (s Set) union(other Set) Set {
	return Set{bits: s.bits | other.bits}
}

// leadingInt converts the leading integer of token, ignoring surrounding
// whitespace and trailing garbage ("3abc" is 3, "abc" is 0).
func leadingInt(token string) int {
	token = strings.TrimSpace(token)
	end := 0
	if end < len(token) && (token[end] == '+' || token[end] == '-') {
		end++
	}
	digits := end
	for end < len(token) && token[end] >= '0' && token[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(token[:end])
	if err != nil {
		return 0
	}
	return n
}

// Policy resolves the allow-set for a store from scoped configuration.
type Policy struct {
	config ScopeConfig
}

// NewPolicy creates a policy reading from config.
func NewPolicy(config ScopeConfig) *Policy {
	return &Policy{config: config}
}

// AllowedVisibilities returns the allow-set configured for store.
// The value is read on every call; caching belongs to the ScopeConfig.
func (p *Policy) AllowedVisibilities(store catalog.Store) Set {
	raw, _ := p.config.Value(ConfigPathSyncVisibilities, ScopeStores, store.ID)
	return ParseAllowed(raw)
}

// Allows reports whether v is allowed for store.
func (p *Policy) Allows(store catalog.Store, v catalog.Visibility) bool {
	return IsAllowed(v, p.AllowedVisibilities(store))
}
