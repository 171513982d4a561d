package observer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/visindex/internal/observer"
	"github.com/Aman-CERP/visindex/internal/store"
	"github.com/Aman-CERP/visindex/internal/visibility"
)

func TestSyncSettingsObserver_QueuesCronSchedule(t *testing.T) {
	// Given: the observer wired to the cron_schedule table
	db, err := store.Open("")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	cron := db.CronSchedules("")
	d := observer.NewDispatcher(observer.NewSyncSettingsObserver(cron, nil))
	ctx := context.Background()

	// When: the allow-list changes twice before the runner picks it up
	event := observer.ConfigChanged{
		Section:      observer.SectionKlevuIntegration,
		ChangedPaths: []string{visibility.ConfigPathSyncVisibilities},
	}
	require.NoError(t, d.Dispatch(ctx, event))
	require.NoError(t, d.Dispatch(ctx, event))

	// Then: one pending discovery run
	pending, err := cron.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, store.DefaultDiscoveryJobCode, pending[0].JobCode)
}
