// Package determiner decides whether a catalog product may be indexed for a
// store, resolving configurable variants through their parent product.
package determiner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
	"github.com/Aman-CERP/visindex/internal/visibility"
)

// evaluateMethod names the method that reports visibility exclusions.
const evaluateMethod = "determiner.(*Determiner).isIndexable"

// AllowPolicy resolves the visibility allow-set for a store.
type AllowPolicy interface {
	AllowedVisibilities(store catalog.Store) visibility.Set
}

// Determiner answers "is this product indexable for this store".
// It holds no per-call state and is safe for concurrent use when its
// policy, repository and logger are.
type Determiner struct {
	policy AllowPolicy
	repo   catalog.Repository
	logger *slog.Logger
}

// New creates a Determiner. A nil logger uses slog.Default().
func New(policy AllowPolicy, repo catalog.Repository, logger *slog.Logger) *Determiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Determiner{
		policy: policy,
		repo:   repo,
		logger: logger,
	}
}

// Execute reports whether entity is indexable for store.
//
// Entities that are not products are rejected with an ERR_407_INVALID_ENTITY
// error. For the configurable-variant subtype the parent's visibility is
// evaluated; a variant with a missing or unresolvable parent is reported as
// indexable.
func (d *Determiner) Execute(ctx context.Context, entity catalog.Entity, store catalog.Store, subtype string) (bool, error) {
	product, ok := entity.(*catalog.Product)
	if !ok || product == nil {
		return false, verrors.New(
			verrors.ErrCodeInvalidEntity,
			fmt.Sprintf("invalid argument provided for entity: expected *catalog.Product, received %T", entity),
			nil,
		)
	}

	if catalog.IsVariantSubtype(subtype) {
		return d.isVariantIndexable(ctx, product, store), nil
	}

	return d.isIndexable(ctx, product, store), nil
}

// isVariantIndexable evaluates a variant through its parent. The variant
// itself is never modified.
func (d *Determiner) isVariantIndexable(ctx context.Context, variant *catalog.Product, store catalog.Store) bool {
	if !variant.HasParent() {
		d.logger.WarnContext(ctx, "variant_without_parent_id",
			slog.Int64("store_id", store.ID),
			slog.Int64("product_id", variant.ID))
		return true
	}

	parent, err := d.repo.GetByID(ctx, variant.ParentID, false, store.ID)
	if err != nil {
		d.logger.ErrorContext(ctx, "variant_with_invalid_parent_id",
			slog.Int64("store_id", store.ID),
			slog.Int64("product_id", variant.ID),
			slog.Int64("parent_id", variant.ParentID),
			slog.String("error", err.Error()))
		return true
	}

	return d.isIndexable(ctx, parent, store)
}

func (d *Determiner) isIndexable(ctx context.Context, product *catalog.Product, store catalog.Store) bool {
	allowed := visibility.IsAllowed(product.Visibility, d.policy.AllowedVisibilities(store))
	if !allowed {
		d.logger.DebugContext(ctx, "product_not_indexable_by_visibility",
			slog.Int64("store_id", store.ID),
			slog.Int64("product_id", product.ID),
			slog.Int("visibility", int(product.Visibility)),
			slog.String("method", evaluateMethod))
	}
	return allowed
}
