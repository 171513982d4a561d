package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/visindex/internal/catalog"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
)

func TestStoreCmd_SetAndList(t *testing.T) {
	env := newTestEnv(t, searchOnly)

	env.mustRun(t, "store", "set", "2", "--code", "fr", "--website", "1")
	env.mustRun(t, "store", "set", "1")

	var stores []catalog.Store
	out := env.mustRun(t, "store", "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &stores))
	require.Len(t, stores, 2)
	assert.Equal(t, catalog.Store{ID: 1, Code: "store_1"}, stores[0])
	assert.Equal(t, catalog.Store{ID: 2, Code: "fr", WebsiteID: 1}, stores[1])
}

func TestStoreCmd_ListEmpty(t *testing.T) {
	env := newTestEnv(t, searchOnly)

	out := env.mustRun(t, "store", "list")

	assert.Contains(t, out, "no stores configured")
}

func TestProductCmd_RejectsInvalidVisibility(t *testing.T) {
	env := newTestEnv(t, searchOnly)

	_, err := env.run(t, "product", "set", "1", "--visibility", "9")

	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeInvalidVisibility, verrors.GetCode(err))
}

func TestParseStoreVisibility(t *testing.T) {
	got, err := parseStoreVisibility([]string{"2=1", " 3 = 4"})
	require.NoError(t, err)
	assert.Equal(t, map[int64]catalog.Visibility{2: catalog.VisibilityNotVisible, 3: catalog.VisibilityBoth}, got)

	for _, bad := range []string{"2", "x=1", "2=y"} {
		_, err := parseStoreVisibility([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestProductCmd_Delete(t *testing.T) {
	env := newTestEnv(t, searchOnly)
	env.mustRun(t, "store", "set", "1")
	env.mustRun(t, "product", "set", "30", "--visibility", "4")

	env.mustRun(t, "product", "delete", "30")

	results := decodeResults(t, env.mustRun(t, "check", "30", "--json"))
	require.Len(t, results, 1)
	assert.Equal(t, "not found", results[0].Error)
}
