package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
)

// ProductRecord is a product as persisted: a default visibility plus
// optional per-store overrides.
type ProductRecord struct {
	ID              int64
	SKU             string
	TypeID          string
	Visibility      catalog.Visibility
	StoreVisibility map[int64]catalog.Visibility
}

// ProductRepository reads catalog products with store-scoped visibility.
type ProductRepository struct {
	db *DB
}

// Verify interface implementation at compile time
var _ catalog.Repository = (*ProductRepository)(nil)

// Products returns the product repository.
func (s *DB) Products() *ProductRepository {
	return &ProductRepository{db: s}
}

// productQuery resolves visibility as store value, then default value.
const productQuery = `
	SELECT p.entity_id, p.sku, p.type_id, COALESCE(sv.value, dv.value, 0)
	FROM catalog_product p
	LEFT JOIN catalog_product_visibility dv ON dv.entity_id = p.entity_id AND dv.store_id = 0
	LEFT JOIN catalog_product_visibility sv ON sv.entity_id = p.entity_id AND sv.store_id = ?
`

// GetByID returns product id as seen from storeID. editMode ignores store
// overrides. A missing id yields an error matching catalog.ErrEntityNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id int64, editMode bool, storeID int64) (*catalog.Product, error) {
	db, err := r.db.conn()
	if err != nil {
		return nil, err
	}
	if editMode {
		storeID = 0
	}

	var p catalog.Product
	var vis int
	err = db.QueryRowContext(ctx, productQuery+` WHERE p.entity_id = ?`, storeID, id).
		Scan(&p.ID, &p.SKU, &p.TypeID, &vis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NotFoundError(fmt.Sprintf("product with id %d does not exist", id)).
			WithDetail("store_id", fmt.Sprint(storeID))
	}
	if err != nil {
		return nil, fmt.Errorf("query product %d: %w", id, err)
	}
	p.Visibility = catalog.Visibility(vis)
	return &p, nil
}

// Variants returns one row per configurable parent that links product id,
// each carrying its ParentID and the variant's own visibility.
func (r *ProductRepository) Variants(ctx context.Context, id int64, storeID int64) ([]*catalog.Product, error) {
	db, err := r.db.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.entity_id, p.sku, p.type_id, COALESCE(sv.value, dv.value, 0), l.parent_id
		FROM catalog_product_super_link l
		JOIN catalog_product p ON p.entity_id = l.product_id
		LEFT JOIN catalog_product_visibility dv ON dv.entity_id = p.entity_id AND dv.store_id = 0
		LEFT JOIN catalog_product_visibility sv ON sv.entity_id = p.entity_id AND sv.store_id = ?
		WHERE l.product_id = ?
		ORDER BY l.parent_id
	`, storeID, id)
	if err != nil {
		return nil, fmt.Errorf("query variants of %d: %w", id, err)
	}
	defer rows.Close()

	return scanVariants(rows)
}

// VariantCollection returns every configurable variant for storeID with the
// parent's store-scoped visibility in place of its own. Links to parents
// that no longer exist are skipped.
func (r *ProductRepository) VariantCollection(ctx context.Context, storeID int64) ([]*catalog.Product, error) {
	db, err := r.db.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.entity_id, p.sku, p.type_id, COALESCE(psv.value, pdv.value, 0), l.parent_id
		FROM catalog_product_super_link l
		JOIN catalog_product p ON p.entity_id = l.product_id
		JOIN catalog_product parent ON parent.entity_id = l.parent_id
		LEFT JOIN catalog_product_visibility pdv ON pdv.entity_id = parent.entity_id AND pdv.store_id = 0
		LEFT JOIN catalog_product_visibility psv ON psv.entity_id = parent.entity_id AND psv.store_id = ?
		ORDER BY l.parent_id, l.product_id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("query variant collection: %w", err)
	}
	defer rows.Close()

	return scanVariants(rows)
}

func scanVariants(rows *sql.Rows) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for rows.Next() {
		var p catalog.Product
		var vis int
		if err := rows.Scan(&p.ID, &p.SKU, &p.TypeID, &vis, &p.ParentID); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		p.Visibility = catalog.Visibility(vis)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// SaveProduct inserts or replaces a product and all of its visibility rows.
func (r *ProductRepository) SaveProduct(ctx context.Context, rec ProductRecord) error {
	if !rec.Visibility.Valid() {
		return verrors.New(verrors.ErrCodeInvalidVisibility,
			fmt.Sprintf("product %d has invalid visibility %d", rec.ID, rec.Visibility), nil)
	}
	for storeID, v := range rec.StoreVisibility {
		if !v.Valid() || storeID <= 0 {
			return verrors.New(verrors.ErrCodeInvalidVisibility,
				fmt.Sprintf("product %d has invalid visibility %d for store %d", rec.ID, v, storeID), nil)
		}
	}
	if rec.TypeID == "" {
		rec.TypeID = catalog.TypeSimple
	}

	db, err := r.db.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_product (entity_id, sku, type_id) VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET sku = excluded.sku, type_id = excluded.type_id
	`, rec.ID, rec.SKU, rec.TypeID); err != nil {
		return fmt.Errorf("upsert product %d: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM catalog_product_visibility WHERE entity_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clear visibility of %d: %w", rec.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_product_visibility (entity_id, store_id, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, rec.ID, 0, int(rec.Visibility)); err != nil {
		return fmt.Errorf("insert default visibility of %d: %w", rec.ID, err)
	}
	for storeID, v := range rec.StoreVisibility {
		if _, err := stmt.ExecContext(ctx, rec.ID, storeID, int(v)); err != nil {
			return fmt.Errorf("insert store visibility of %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteProduct removes a product. Super links pointing at it are kept.
func (r *ProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	db, err := r.db.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM catalog_product WHERE entity_id = ?`, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

// LinkVariant records productID as a variant of parentID.
func (r *ProductRepository) LinkVariant(ctx context.Context, productID, parentID int64) error {
	db, err := r.db.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO catalog_product_super_link (product_id, parent_id) VALUES (?, ?)
	`, productID, parentID); err != nil {
		return fmt.Errorf("link variant %d to %d: %w", productID, parentID, err)
	}
	return nil
}
