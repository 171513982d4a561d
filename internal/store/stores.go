package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
)

// SaveStore inserts or updates a store view.
func (s *DB) SaveStore(ctx context.Context, st catalog.Store) error {
	if st.ID <= 0 {
		return verrors.ValidationError(fmt.Sprintf("store id must be positive, got %d", st.ID), nil)
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO store (store_id, code, website_id) VALUES (?, ?, ?)
		ON CONFLICT(store_id) DO UPDATE SET code = excluded.code, website_id = excluded.website_id
	`, st.ID, st.Code, st.WebsiteID); err != nil {
		return fmt.Errorf("save store %d: %w", st.ID, err)
	}
	return nil
}

// StoreByID returns the store view with id.
func (s *DB) StoreByID(ctx context.Context, id int64) (catalog.Store, error) {
	db, err := s.conn()
	if err != nil {
		return catalog.Store{}, err
	}

	var st catalog.Store
	err = db.QueryRowContext(ctx,
		`SELECT store_id, code, website_id FROM store WHERE store_id = ?`, id).
		Scan(&st.ID, &st.Code, &st.WebsiteID)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Store{}, verrors.New(verrors.ErrCodeStoreNotFound,
			fmt.Sprintf("store with id %d does not exist", id), nil)
	}
	if err != nil {
		return catalog.Store{}, fmt.Errorf("query store %d: %w", id, err)
	}
	return st, nil
}

// Stores returns all store views ordered by id.
func (s *DB) Stores(ctx context.Context) ([]catalog.Store, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT store_id, code, website_id FROM store ORDER BY store_id`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	var stores []catalog.Store
	for rows.Next() {
		var st catalog.Store
		if err := rows.Scan(&st.ID, &st.Code, &st.WebsiteID); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}
