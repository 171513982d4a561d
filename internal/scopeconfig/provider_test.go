package scopeconfig

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
	"github.com/Aman-CERP/visindex/internal/logging"
	"github.com/Aman-CERP/visindex/internal/visibility"
)

const path = visibility.ConfigPathSyncVisibilities

type memValues struct {
	mu    sync.Mutex
	data  map[cacheKey]string
	err   error
	reads int
}

func newMemValues() *memValues {
	return &memValues{data: make(map[cacheKey]string)}
}

func (m *memValues) set(scope visibility.ScopeType, id int64, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[cacheKey{path: path, scope: scope, scopeID: id}] = v
}

func (m *memValues) Get(_ context.Context, p string, scope visibility.ScopeType, id int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[cacheKey{path: p, scope: scope, scopeID: id}]
	return v, ok, nil
}

type memStores map[int64]catalog.Store

func (s memStores) StoreByID(_ context.Context, id int64) (catalog.Store, error) {
	st, ok := s[id]
	if !ok {
		return catalog.Store{}, verrors.New(verrors.ErrCodeStoreNotFound, "no store", nil)
	}
	return st, nil
}

var testStores = memStores{
	1: {ID: 1, Code: "default", WebsiteID: 1},
	2: {ID: 2, Code: "fr", WebsiteID: 1},
	3: {ID: 3, Code: "us", WebsiteID: 2},
}

func TestProvider_Value_FallsBackStoreWebsiteDefault(t *testing.T) {
	// Given: a default, a website 1 value and a store 2 value
	values := newMemValues()
	values.set(visibility.ScopeDefault, 0, "1,2,3,4")
	values.set(visibility.ScopeWebsites, 1, "2,4")
	values.set(visibility.ScopeStores, 2, "4")
	p := New(values, testStores, 0, nil)

	tests := []struct {
		name  string
		scope visibility.ScopeType
		id    int64
		want  string
	}{
		{"store override", visibility.ScopeStores, 2, "4"},
		{"store inherits website", visibility.ScopeStores, 1, "2,4"},
		{"store in other website inherits default", visibility.ScopeStores, 3, "1,2,3,4"},
		{"unknown store inherits default", visibility.ScopeStores, 99, "1,2,3,4"},
		{"website", visibility.ScopeWebsites, 1, "2,4"},
		{"website without value", visibility.ScopeWebsites, 2, "1,2,3,4"},
		{"default", visibility.ScopeDefault, 0, "1,2,3,4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Value(path, tt.scope, tt.id)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProvider_Value_UnsetEverywhere(t *testing.T) {
	p := New(newMemValues(), testStores, 0, nil)

	v, ok := p.Value(path, visibility.ScopeStores, 1)

	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestProvider_Value_EmptyStoreValueStopsFallback(t *testing.T) {
	// Given: the store explicitly clears the list
	values := newMemValues()
	values.set(visibility.ScopeDefault, 0, "1,2,3,4")
	values.set(visibility.ScopeStores, 1, "")
	p := New(values, testStores, 0, nil)

	v, ok := p.Value(path, visibility.ScopeStores, 1)

	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestProvider_Value_CachesUntilInvalidated(t *testing.T) {
	// Given: a cached store value
	values := newMemValues()
	values.set(visibility.ScopeStores, 1, "4")
	p := New(values, testStores, 0, nil)
	v, _ := p.Value(path, visibility.ScopeStores, 1)
	require.Equal(t, "4", v)
	reads := values.reads

	// When: the stored value changes without invalidation
	values.set(visibility.ScopeStores, 1, "1")
	v, _ = p.Value(path, visibility.ScopeStores, 1)

	// Then: the cached value is served without reading
	assert.Equal(t, "4", v)
	assert.Equal(t, reads, values.reads)
	assert.Equal(t, 1, p.Len())

	// When: invalidated
	p.Invalidate()
	v, _ = p.Value(path, visibility.ScopeStores, 1)

	// Then: the new value is read
	assert.Equal(t, "1", v)
	assert.Greater(t, values.reads, reads)
}

func TestProvider_Value_ReadErrorResolvesUnsetAndWarns(t *testing.T) {
	// Given: a failing reader
	values := newMemValues()
	values.err = errors.New("disk I/O error")
	rec := logging.NewRecorder()
	p := New(values, testStores, 0, rec.Logger())

	// When
	v, ok := p.Value(path, visibility.ScopeStores, 1)

	// Then: unset, one warning, nothing cached
	assert.False(t, ok)
	assert.Equal(t, "", v)
	warnings := rec.AtLevel(slog.LevelWarn)
	require.Len(t, warnings, 1)
	assert.Equal(t, "config_read_failed", warnings[0].Message)
	assert.Equal(t, path, warnings[0].Attrs["path"])
	assert.Equal(t, int64(1), warnings[0].Attrs["scope_id"])
	assert.Equal(t, 0, p.Len())

	// And: the next read retries once the reader recovers
	values.err = nil
	values.set(visibility.ScopeStores, 1, "3")
	v, ok = p.Value(path, visibility.ScopeStores, 1)
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestProvider_WithoutStoreLookupSkipsWebsite(t *testing.T) {
	values := newMemValues()
	values.set(visibility.ScopeWebsites, 1, "2")
	values.set(visibility.ScopeDefault, 0, "3")
	p := New(values, nil, 0, nil)

	v, ok := p.Value(path, visibility.ScopeStores, 1)

	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestProvider_FeedsVisibilityPolicy(t *testing.T) {
	values := newMemValues()
	values.set(visibility.ScopeDefault, 0, "1,2,3,4")
	values.set(visibility.ScopeStores, 2, "3, 4")
	policy := visibility.NewPolicy(New(values, testStores, 0, nil))

	assert.Equal(t, "3,4", policy.AllowedVisibilities(catalog.Store{ID: 2}).String())
	assert.Equal(t, 4, policy.AllowedVisibilities(catalog.Store{ID: 1}).Len())
}

func TestProvider_ConcurrentReads(t *testing.T) {
	values := newMemValues()
	values.set(visibility.ScopeDefault, 0, "4")
	p := New(values, testStores, 8, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			v, ok := p.Value(path, visibility.ScopeStores, id)
			assert.True(t, ok)
			assert.Equal(t, "4", v)
		}(int64(i%4 + 1))
	}
	wg.Wait()
}
