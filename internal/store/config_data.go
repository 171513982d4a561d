package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	verrors "github.com/Aman-CERP/visindex/internal/errors"
	"github.com/Aman-CERP/visindex/internal/visibility"
)

// ConfigValue is one row of scoped configuration.
type ConfigValue struct {
	Scope   visibility.ScopeType
	ScopeID int64
	Path    string
	Value   string
}

// ConfigStore persists scoped configuration values.
type ConfigStore struct {
	db *DB
}

// Config returns the scoped configuration store.
func (s *DB) Config() *ConfigStore {
	return &ConfigStore{db: s}
}

// ValidateScope checks that scope is known and scopeID fits it.
func ValidateScope(scope visibility.ScopeType, scopeID int64) error {
	switch scope {
	case visibility.ScopeDefault:
		if scopeID != 0 {
			return verrors.New(verrors.ErrCodeScopeInvalid,
				fmt.Sprintf("default scope takes scope id 0, got %d", scopeID), nil)
		}
	case visibility.ScopeWebsites, visibility.ScopeStores:
		if scopeID <= 0 {
			return verrors.New(verrors.ErrCodeScopeInvalid,
				fmt.Sprintf("%s scope needs a positive scope id, got %d", scope, scopeID), nil)
		}
	default:
		return verrors.New(verrors.ErrCodeScopeInvalid, fmt.Sprintf("unknown scope %q", scope), nil).
			WithSuggestion("use one of: default, websites, stores")
	}
	return nil
}

// Get returns the value stored at exactly (path, scope, scopeID), without
// any fallback.
func (c *ConfigStore) Get(ctx context.Context, path string, scope visibility.ScopeType, scopeID int64) (string, bool, error) {
	db, err := c.db.conn()
	if err != nil {
		return "", false, err
	}

	var value sql.NullString
	err = db.QueryRowContext(ctx, `
		SELECT value FROM core_config_data WHERE path = ? AND scope = ? AND scope_id = ?
	`, path, string(scope), scopeID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query config %s: %w", path, err)
	}
	return value.String, true, nil
}

// Set stores value at (path, scope, scopeID). It reports whether the stored
// value changed.
func (c *ConfigStore) Set(ctx context.Context, path string, scope visibility.ScopeType, scopeID int64, value string) (bool, error) {
	if err := ValidateScope(scope, scopeID); err != nil {
		return false, err
	}

	current, ok, err := c.Get(ctx, path, scope, scopeID)
	if err != nil {
		return false, err
	}
	if ok && current == value {
		return false, nil
	}

	db, err := c.db.conn()
	if err != nil {
		return false, err
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO core_config_data (scope, scope_id, path, value) VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, scope_id, path) DO UPDATE SET value = excluded.value
	`, string(scope), scopeID, path, value); err != nil {
		return false, fmt.Errorf("set config %s: %w", path, err)
	}
	return true, nil
}

// Delete removes the value at (path, scope, scopeID). It reports whether a
// row existed.
func (c *ConfigStore) Delete(ctx context.Context, path string, scope visibility.ScopeType, scopeID int64) (bool, error) {
	db, err := c.db.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `
		DELETE FROM core_config_data WHERE path = ? AND scope = ? AND scope_id = ?
	`, path, string(scope), scopeID)
	if err != nil {
		return false, fmt.Errorf("delete config %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete config %s: %w", path, err)
	}
	return n > 0, nil
}

// Values returns every stored value for path across all scopes.
func (c *ConfigStore) Values(ctx context.Context, path string) ([]ConfigValue, error) {
	db, err := c.db.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT scope, scope_id, path, COALESCE(value, '') FROM core_config_data
		WHERE path = ?
		ORDER BY CASE scope WHEN 'default' THEN 0 WHEN 'websites' THEN 1 ELSE 2 END, scope_id
	`, path)
	if err != nil {
		return nil, fmt.Errorf("query config values: %w", err)
	}
	defer rows.Close()

	var out []ConfigValue
	for rows.Next() {
		var v ConfigValue
		var scope string
		if err := rows.Scan(&scope, &v.ScopeID, &v.Path, &v.Value); err != nil {
			return nil, fmt.Errorf("scan config value: %w", err)
		}
		v.Scope = visibility.ScopeType(scope)
		out = append(out, v)
	}
	return out, rows.Err()
}

// Sync writes values and returns the sorted, de-duplicated paths whose
// stored value changed.
func (c *ConfigStore) Sync(ctx context.Context, values []ConfigValue) ([]string, error) {
	changed := make(map[string]struct{})
	for _, v := range values {
		ok, err := c.Set(ctx, v.Path, v.Scope, v.ScopeID, v.Value)
		if err != nil {
			return nil, err
		}
		if ok {
			changed[v.Path] = struct{}{}
		}
	}

	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
