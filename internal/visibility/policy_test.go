package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/visindex/internal/catalog"
)

// mapConfig is an in-memory ScopeConfig keyed by store id.
type mapConfig struct {
	values map[int64]string
	reads  int
}

func (m *mapConfig) Value(path string, scope ScopeType, scopeID int64) (string, bool) {
	m.reads++
	if path != ConfigPathSyncVisibilities || scope != ScopeStores {
		return "", false
	}
	v, ok := m.values[scopeID]
	return v, ok
}

func TestIsAllowed_MembershipForEverySubset(t *testing.T) {
	// Every subset of {1,2,3,4} against every visibility code.
	for mask := 0; mask < 16; mask++ {
		var members []catalog.Visibility
		for _, v := range catalog.Visibilities() {
			if mask&(1<<(int(v)-1)) != 0 {
				members = append(members, v)
			}
		}
		allowed := NewSet(members...)

		for _, v := range catalog.Visibilities() {
			want := mask&(1<<(int(v)-1)) != 0
			assert.Equal(t, want, IsAllowed(v, allowed), "visibility %d in %s", v, allowed)
		}
	}
}

func TestIsAllowed_InvalidCodesNeverAllowed(t *testing.T) {
	all := NewSet(catalog.Visibilities()...)
	assert.False(t, IsAllowed(0, all))
	assert.False(t, IsAllowed(5, all))
}

func TestParseAllowed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []catalog.Visibility
	}{
		{"all", "1,2,3,4", []catalog.Visibility{1, 2, 3, 4}},
		{"single", "4", []catalog.Visibility{4}},
		{"order independent", "4,1,3", []catalog.Visibility{1, 3, 4}},
		{"duplicates collapse", "2,2,2", []catalog.Visibility{2}},
		{"whitespace", " 1, 3 ,4 ", []catalog.Visibility{1, 3, 4}},
		{"empty", "", []catalog.Visibility{}},
		{"blank", "   ", []catalog.Visibility{}},
		{"non numeric dropped", "abc,2", []catalog.Visibility{2}},
		{"out of range dropped", "0,5,9,-1,3", []catalog.Visibility{3}},
		{"leading digits", "3abc,1.5", []catalog.Visibility{1, 3}},
		{"empty tokens", ",,4,", []catalog.Visibility{4}},
		{"explicit sign", "+2", []catalog.Visibility{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAllowed(tt.raw)
			assert.Equal(t, tt.want, got.Visibilities())
			assert.Equal(t, len(tt.want), got.Len())
		})
	}
}

func TestParseAllowed_EmptyAllowsNothing(t *testing.T) {
	s := ParseAllowed("")
	assert.True(t, s.Empty())
	for _, v := range catalog.Visibilities() {
		assert.False(t, IsAllowed(v, s))
	}
}

func TestSet_String(t *testing.T) {
	assert.Equal(t, "1,3,4", NewSet(4, 3, 1, 3).String())
	assert.Equal(t, "", Set{}.String())
}

func TestPolicy_AllowedVisibilities_ReadsStoreScope(t *testing.T) {
	// Given: different allow-lists for two stores
	cfg := &mapConfig{values: map[int64]string{1: "1,3", 2: "4"}}
	policy := NewPolicy(cfg)

	// Then: each store gets its own set
	assert.Equal(t, "1,3", policy.AllowedVisibilities(catalog.Store{ID: 1}).String())
	assert.Equal(t, "4", policy.AllowedVisibilities(catalog.Store{ID: 2}).String())
	assert.True(t, policy.AllowedVisibilities(catalog.Store{ID: 3}).Empty())
}

func TestPolicy_ReadsConfigOnEveryCall(t *testing.T) {
	cfg := &mapConfig{values: map[int64]string{1: "4"}}
	policy := NewPolicy(cfg)
	store := catalog.Store{ID: 1}

	assert.True(t, policy.Allows(store, catalog.VisibilityBoth))

	// When: configuration changes underneath
	cfg.values[1] = "1"

	// Then: the next call sees it
	assert.False(t, policy.Allows(store, catalog.VisibilityBoth))
	assert.Equal(t, 2, cfg.reads)
}
