// Package scopeconfig resolves scoped configuration values with store to
// website to default fallback, caching resolved values in memory.
package scopeconfig

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
	"github.com/Aman-CERP/visindex/internal/visibility"
)

// DefaultCacheSize is the number of resolved values kept in memory.
const DefaultCacheSize = 1024

// ValueReader reads a value stored at exactly one scope.
type ValueReader interface {
	Get(ctx context.Context, path string, scope visibility.ScopeType, scopeID int64) (string, bool, error)
}

// StoreLookup maps a store view to its website.
type StoreLookup interface {
	StoreByID(ctx context.Context, id int64) (catalog.Store, error)
}

type cacheKey struct {
	path    string
	scope   visibility.ScopeType
	scopeID int64
}

type resolved struct {
	value string
	ok    bool
}

// Provider implements visibility.ScopeConfig.
type Provider struct {
	values ValueReader
	stores StoreLookup
	cache  *lru.Cache[cacheKey, resolved]
	logger *slog.Logger
}

// Verify interface implementation at compile time
var _ visibility.ScopeConfig = (*Provider)(nil)

// New creates a provider. cacheSize <= 0 uses DefaultCacheSize.
func New(values ValueReader, stores StoreLookup, cacheSize int, logger *slog.Logger) *Provider {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[cacheKey, resolved](cacheSize)
	return &Provider{
		values: values,
		stores: stores,
		cache:  cache,
		logger: logger,
	}
}

// Value returns the value of path as seen from (scope, scopeID). A store
// scope falls back to its website, then to default. Read failures are
// logged and resolve as unset; they are not cached.
func (p *Provider) Value(path string, scope visibility.ScopeType, scopeID int64) (string, bool) {
	key := cacheKey{path: path, scope: scope, scopeID: scopeID}
	if r, ok := p.cache.Get(key); ok {
		return r.value, r.ok
	}

	r, err := p.resolve(context.Background(), key)
	if err != nil {
		p.logger.Warn("config_read_failed",
			append([]any{
				slog.String("path", path),
				slog.String("scope", string(scope)),
				slog.Int64("scope_id", scopeID),
			}, verrors.LogAttrs(err)...)...)
		return "", false
	}

	p.cache.Add(key, r)
	return r.value, r.ok
}

func (p *Provider) resolve(ctx context.Context, key cacheKey) (resolved, error) {
	for _, lvl := range p.chain(ctx, key.scope, key.scopeID) {
		v, ok, err := p.values.Get(ctx, key.path, lvl.scope, lvl.scopeID)
		if err != nil {
			return resolved{}, err
		}
		if ok {
			return resolved{value: v, ok: true}, nil
		}
	}
	return resolved{}, nil
}

type level struct {
	scope   visibility.ScopeType
	scopeID int64
}

// chain lists the scopes to consult, most specific first.
func (p *Provider) chain(ctx context.Context, scope visibility.ScopeType, scopeID int64) []level {
	def := level{scope: visibility.ScopeDefault}
	switch scope {
	case visibility.ScopeStores:
		levels := []level{{scope: visibility.ScopeStores, scopeID: scopeID}}
		if p.stores != nil {
			st, err := p.stores.StoreByID(ctx, scopeID)
			switch {
			case err != nil:
				p.logger.Debug("store_website_unresolved",
					slog.Int64("store_id", scopeID),
					slog.String("error", err.Error()))
			case st.WebsiteID > 0:
				levels = append(levels, level{scope: visibility.ScopeWebsites, scopeID: st.WebsiteID})
			}
		}
		return append(levels, def)
	case visibility.ScopeWebsites:
		return []level{{scope: visibility.ScopeWebsites, scopeID: scopeID}, def}
	default:
		return []level{def}
	}
}

// Invalidate drops every cached value.
func (p *Provider) Invalidate() {
	n := p.cache.Len()
	p.cache.Purge()
	p.logger.Debug("config_cache_invalidated", slog.Int("entries", n))
}

// Len returns the number of cached values.
func (p *Provider) Len() int {
	return p.cache.Len()
}

