package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensekeeper/internal/config"
	"expensekeeper/internal/stats"
)

func TestStatsCaches(t *testing.T) {
	t.Run("zero size disables caching", func(t *testing.T) {
		manager, reports, trends := StatsCaches(&config.Config{StatsCacheSize: 0})
		require.NotNil(t, manager)
		assert.Nil(t, reports)
		assert.Nil(t, trends)
		assert.Equal(t, 0, manager.CleanAll())
		manager.Stop()
	})

	t.Run("positive size builds both caches", func(t *testing.T) {
		manager, reports, trends := StatsCaches(&config.Config{StatsCacheSize: 2, StatsCacheTTL: time.Minute})
		defer manager.Stop()
		require.NotNil(t, reports)
		require.NotNil(t, trends)

		reports.Set("a", stats.Report{})
		reports.Set("b", stats.Report{})
		reports.Set("c", stats.Report{})
		assert.Equal(t, 2, reports.Size())
	})
}
