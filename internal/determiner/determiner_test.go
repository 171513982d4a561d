package determiner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
	"github.com/Aman-CERP/visindex/internal/logging"
	"github.com/Aman-CERP/visindex/internal/visibility"
)

// storeConfig is an in-memory visibility.ScopeConfig with a default value
// and per-store overrides.
type storeConfig struct {
	mu       sync.Mutex
	fallback string
	stores   map[int64]string
}

func (c *storeConfig) Value(_ string, _ visibility.ScopeType, scopeID int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.stores[scopeID]; ok {
		return v, true
	}
	return c.fallback, c.fallback != ""
}

// fakeRepo serves products from a map and counts lookups.
type fakeRepo struct {
	mu       sync.Mutex
	products map[int64]*catalog.Product
	err      error
	calls    int
}

func (r *fakeRepo) GetByID(_ context.Context, id int64, _ bool, _ int64) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.products[id]
	if !ok {
		return nil, verrors.NotFoundError(fmt.Sprintf("product %d not found", id))
	}
	cp := *p
	return &cp, nil
}

func newTestDeterminer(allowList string, repo *fakeRepo) (*Determiner, *logging.Recorder) {
	if repo == nil {
		repo = &fakeRepo{products: map[int64]*catalog.Product{}}
	}
	rec := logging.NewRecorder()
	policy := visibility.NewPolicy(&storeConfig{fallback: allowList})
	return New(policy, repo, rec.Logger()), rec
}

var testStore = catalog.Store{ID: 1, Code: "default", WebsiteID: 1}

func TestExecute_ReturnsTrue_ForConfiguredVisibility(t *testing.T) {
	tests := []struct {
		visibility catalog.Visibility
		config     string
	}{
		{4, "1,2,3,4"}, {4, "2,3,4"}, {4, "1,3,4"}, {4, "1,2,4"}, {4, "3,4"}, {4, "2,4"}, {4, "1,4"}, {4, "4"},
		{3, "1,2,3,4"}, {3, "2,3,4"}, {3, "1,3,4"}, {3, "1,2,3"}, {3, "3,4"}, {3, "2,3"}, {3, "1,3"}, {3, "3"},
		{2, "1,2,3,4"}, {2, "2,3,4"}, {2, "1,2,4"}, {2, "1,2,3"}, {2, "2,4"}, {2, "2,3"}, {2, "1,2"}, {2, "2"},
		{1, "1,2,3,4"}, {1, "1,3,4"}, {1, "1,2,4"}, {1, "1,2,3"}, {1, "1,4"}, {1, "1,3"}, {1, "1,2"}, {1, "1"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_in_%s", tt.visibility, tt.config), func(t *testing.T) {
			d, rec := newTestDeterminer(tt.config, nil)
			product := &catalog.Product{ID: 10, TypeID: catalog.TypeSimple, Visibility: tt.visibility}

			ok, err := d.Execute(context.Background(), product, testStore, "")

			require.NoError(t, err)
			assert.True(t, ok)
			assert.Empty(t, rec.Records(), "indexable products must not log")
		})
	}
}

func TestExecute_ReturnsFalse_ForNotConfiguredVisibility(t *testing.T) {
	tests := []struct {
		visibility catalog.Visibility
		config     string
	}{
		{4, "1,2,3"}, {4, "2,3"}, {4, "1,3"}, {4, "1,2"}, {4, "3"}, {4, "2"}, {4, "1"},
		{3, "1,2,4"}, {3, "2,4"}, {3, "1,4"}, {3, "1,2"}, {3, "4"}, {3, "2"}, {3, "1"},
		{2, "1,3,4"}, {2, "3,4"}, {2, "1,4"}, {2, "1,3"}, {2, "4"}, {2, "3"}, {2, "1"},
		{1, "2,3,4"}, {1, "3,4"}, {1, "2,4"}, {1, "2,3"}, {1, "4"}, {1, "3"}, {1, "2"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_not_in_%s", tt.visibility, tt.config), func(t *testing.T) {
			d, rec := newTestDeterminer(tt.config, nil)
			product := &catalog.Product{ID: 10, TypeID: catalog.TypeSimple, Visibility: tt.visibility}

			ok, err := d.Execute(context.Background(), product, testStore, catalog.TypeSimple)

			require.NoError(t, err)
			assert.False(t, ok)

			// Exactly one debug record and nothing at any other level
			records := rec.Records()
			require.Len(t, records, 1)
			assert.Equal(t, slog.LevelDebug, records[0].Level)
			assert.Equal(t, "product_not_indexable_by_visibility", records[0].Message)
			assert.Equal(t, int64(1), records[0].Attrs["store_id"])
			assert.Equal(t, int64(10), records[0].Attrs["product_id"])
			assert.Equal(t, int64(tt.visibility), records[0].Attrs["visibility"])
			assert.True(t, strings.HasSuffix(records[0].Attrs["method"].(string), "isIndexable"))
		})
	}
}

func TestExecute_EmptyConfiguration_ExcludesEverything(t *testing.T) {
	d, rec := newTestDeterminer("", nil)

	for _, v := range catalog.Visibilities() {
		ok, err := d.Execute(context.Background(), &catalog.Product{ID: 1, Visibility: v}, testStore, "")
		require.NoError(t, err)
		assert.False(t, ok, "visibility %d", v)
	}
	assert.Len(t, rec.AtLevel(slog.LevelDebug), 4)
}

func TestExecute_RejectsNonProductEntity(t *testing.T) {
	d, rec := newTestDeterminer("1,2,3,4", nil)

	tests := []struct {
		name   string
		entity catalog.Entity
	}{
		{"cms page", &catalog.Page{ID: 5, Identifier: "home"}},
		{"nil entity", nil},
		{"nil product", (*catalog.Product)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := d.Execute(context.Background(), tt.entity, testStore, "")

			require.Error(t, err)
			assert.False(t, ok)
			assert.Equal(t, verrors.ErrCodeInvalidEntity, verrors.GetCode(err))
			assert.True(t, verrors.IsFatal(err))
		})
	}
	assert.Empty(t, rec.Records())
}

func TestExecute_Variant_UsesParentVisibility(t *testing.T) {
	// Given: a parent visible in both, variant not visible individually
	repo := &fakeRepo{products: map[int64]*catalog.Product{
		100: {ID: 100, TypeID: catalog.TypeConfigurable, Visibility: catalog.VisibilityBoth},
	}}
	d, rec := newTestDeterminer("1,4", repo)

	for _, own := range catalog.Visibilities() {
		variant := &catalog.Product{ID: 11, TypeID: catalog.TypeSimple, Visibility: own, ParentID: 100}

		// When: evaluated as a configurable variant
		ok, err := d.Execute(context.Background(), variant, testStore, catalog.SubtypeConfigurableVariant)

		// Then: the parent's visibility decides, and the variant is untouched
		require.NoError(t, err)
		assert.True(t, ok, "own visibility %d", own)
		assert.Equal(t, own, variant.Visibility)
		assert.Equal(t, int64(100), variant.ParentID)
	}
	assert.Empty(t, rec.Records())
	assert.Equal(t, 4, repo.calls)
}

func TestExecute_Variant_ExcludedParentLogsParent(t *testing.T) {
	repo := &fakeRepo{products: map[int64]*catalog.Product{
		100: {ID: 100, Visibility: catalog.VisibilityInCatalog},
	}}
	d, rec := newTestDeterminer("3,4", repo)

	variant := &catalog.Product{ID: 11, Visibility: catalog.VisibilityBoth, ParentID: 100}
	ok, err := d.Execute(context.Background(), variant, testStore, catalog.SubtypeConfigurableVariant)

	require.NoError(t, err)
	assert.False(t, ok)
	records := rec.AtLevel(slog.LevelDebug)
	require.Len(t, records, 1)
	assert.Equal(t, int64(100), records[0].Attrs["product_id"])
	assert.Equal(t, int64(catalog.VisibilityInCatalog), records[0].Attrs["visibility"])
}

func TestExecute_Variant_WithoutParentID_FailsOpen(t *testing.T) {
	repo := &fakeRepo{products: map[int64]*catalog.Product{}}
	d, rec := newTestDeterminer("", repo)

	variant := &catalog.Product{ID: 11, Visibility: catalog.VisibilityNotVisible}
	ok, err := d.Execute(context.Background(), variant, testStore, catalog.SubtypeConfigurableVariant)

	require.NoError(t, err)
	assert.True(t, ok)

	records := rec.Records()
	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelWarn, records[0].Level)
	assert.Equal(t, "variant_without_parent_id", records[0].Message)
	assert.Equal(t, 0, repo.calls)
}

func TestExecute_Variant_WithInvalidParentID_FailsOpen(t *testing.T) {
	repo := &fakeRepo{products: map[int64]*catalog.Product{}}
	d, rec := newTestDeterminer("", repo)

	variant := &catalog.Product{ID: 11, Visibility: catalog.VisibilityNotVisible, ParentID: 999}
	ok, err := d.Execute(context.Background(), variant, testStore, catalog.SubtypeConfigurableVariant)

	require.NoError(t, err)
	assert.True(t, ok)

	records := rec.Records()
	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelError, records[0].Level)
	assert.Equal(t, "variant_with_invalid_parent_id", records[0].Message)
	assert.Equal(t, int64(999), records[0].Attrs["parent_id"])
}

func TestExecute_Variant_RepositoryFailure_FailsOpen(t *testing.T) {
	repo := &fakeRepo{err: errors.New("database is locked")}
	d, rec := newTestDeterminer("", repo)

	variant := &catalog.Product{ID: 11, ParentID: 5}
	ok, err := d.Execute(context.Background(), variant, testStore, catalog.SubtypeConfigurableVariant)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, rec.AtLevel(slog.LevelError), 1)
	assert.Len(t, rec.Records(), 1)
}

func TestExecute_StandardSubtype_IgnoresParentID(t *testing.T) {
	// A parent reference only matters for the variant subtype.
	repo := &fakeRepo{products: map[int64]*catalog.Product{
		100: {ID: 100, Visibility: catalog.VisibilityBoth},
	}}
	d, _ := newTestDeterminer("4", repo)

	product := &catalog.Product{ID: 11, Visibility: catalog.VisibilityNotVisible, ParentID: 100}
	ok, err := d.Execute(context.Background(), product, testStore, catalog.TypeSimple)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, repo.calls)
}

func TestExecute_FollowsStoreScopeOverride(t *testing.T) {
	// Given: global allow-list excludes "in catalog", store 2 allows it
	cfg := &storeConfig{fallback: "3,4", stores: map[int64]string{2: "2"}}
	rec := logging.NewRecorder()
	d := New(visibility.NewPolicy(cfg), &fakeRepo{}, rec.Logger())
	product := &catalog.Product{ID: 1, Visibility: catalog.VisibilityInCatalog}

	// Then: store 2 follows its override, store 1 the global value
	ok, err := d.Execute(context.Background(), product, catalog.Store{ID: 2}, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Execute(context.Background(), product, catalog.Store{ID: 1}, "")
	require.NoError(t, err)
	assert.False(t, ok)

	// And the reverse: store 3 overrides to exclude what the default allows
	cfg.stores[3] = "4"
	cfg.fallback = "2"
	ok, err = d.Execute(context.Background(), product, catalog.Store{ID: 3}, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecute_Idempotent(t *testing.T) {
	d, _ := newTestDeterminer("2,3", nil)
	product := &catalog.Product{ID: 1, Visibility: catalog.VisibilityInSearch}

	first, err := d.Execute(context.Background(), product, testStore, "")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := d.Execute(context.Background(), product, testStore, "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestExecute_ConcurrentEvaluations(t *testing.T) {
	repo := &fakeRepo{products: map[int64]*catalog.Product{
		100: {ID: 100, Visibility: catalog.VisibilityBoth},
	}}
	d, rec := newTestDeterminer("2,4", repo)

	var wg sync.WaitGroup
	results := make([]bool, 40)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &catalog.Product{ID: int64(i), Visibility: catalog.Visibility(i%4 + 1)}
			subtype := ""
			if i%2 == 1 {
				p.ParentID = 100
				subtype = catalog.SubtypeConfigurableVariant
			}
			ok, err := d.Execute(context.Background(), p, testStore, subtype)
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	// Odd indexes are variants of a visible parent, even ones alternate 1 and 3
	for i, ok := range results {
		assert.Equal(t, i%2 == 1, ok, "index %d", i)
	}
	assert.Len(t, rec.AtLevel(slog.LevelDebug), 20)
}

func TestNew_NilLoggerUsesDefault(t *testing.T) {
	d := New(visibility.NewPolicy(&storeConfig{}), &fakeRepo{}, nil)
	assert.NotNil(t, d.logger)
}
