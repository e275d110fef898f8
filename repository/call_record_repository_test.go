package repository

import (
	"context"
	"testing"

	"github.com/ea7klk/bm-stats/models"
	testingutil "github.com/ea7klk/bm-stats/testing"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRepoTest creates a throwaway database, skipping when no Postgres
// server is reachable.
func setupRepoTest(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("teardown: %v", err)
		}
	})

	return testDB, testingutil.NewTestFixtures(testDB)
}

func TestCallRecordAggregation(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	repo := NewCallRecordRepository(testDB.DB)
	ctx := context.Background()

	// Recent calls across two talkgroups plus noise that must be excluded
	_, err := fixtures.CreateTestCall("EA7KLK", 214, "Spain", 600, 30)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCall("EA7KLK", 214, "Spain", 300, 20)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCall("DL1ABC", 262, "Germany", 300, 15)
	require.NoError(t, err)
	// Local talkgroup row, never surfaces in statistics
	_, err = fixtures.CreateTestCall("EA7KLK", utils.LocalTalkgroupID, "Local", 300, 40)
	require.NoError(t, err)
	// Old call outside every window used below
	_, err = fixtures.CreateTestCall("G0XYZ", 235, "United Kingdom", 72*3600, 25)
	require.NoError(t, err)

	t.Run("group by talkgroup", func(t *testing.T) {
		rows, err := repo.GroupByTalkgroup(ctx, models.CallStatsFilter{
			Since: utils.UTCNowUnix() - 3600,
			Limit: 25,
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)

		// Ordered by count descending
		assert.Equal(t, int64(214), rows[0].DestinationID)
		assert.Equal(t, "Spain", rows[0].DestinationName)
		assert.Equal(t, int64(2), rows[0].Count)
		assert.Equal(t, int64(50), rows[0].TotalDuration)
		assert.Equal(t, int64(262), rows[1].DestinationID)
	})

	t.Run("group by callsign", func(t *testing.T) {
		rows, err := repo.GroupByCallsign(ctx, models.CallStatsFilter{
			Since: utils.UTCNowUnix() - 3600,
			Limit: 25,
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "EA7KLK", rows[0].Callsign)
		assert.Equal(t, int64(2), rows[0].Count)
	})

	t.Run("talkgroup filter", func(t *testing.T) {
		tg := int64(262)
		rows, err := repo.GroupByTalkgroup(ctx, models.CallStatsFilter{
			Since:       utils.UTCNowUnix() - 3600,
			TalkgroupID: &tg,
			Limit:       25,
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(262), rows[0].DestinationID)
	})

	t.Run("callsign like filter", func(t *testing.T) {
		pattern := "EA7%"
		rows, err := repo.GroupByCallsign(ctx, models.CallStatsFilter{
			Since:        utils.UTCNowUnix() - 3600,
			CallsignLike: &pattern,
			Limit:        25,
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "EA7KLK", rows[0].Callsign)
	})

	t.Run("limit applied", func(t *testing.T) {
		rows, err := repo.GroupByTalkgroup(ctx, models.CallStatsFilter{
			Since: utils.UTCNowUnix() - 3600,
			Limit: 1,
		})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("window excludes old calls", func(t *testing.T) {
		rows, err := repo.GroupByTalkgroup(ctx, models.CallStatsFilter{
			Since: utils.UTCNowUnix() - 7*24*3600,
			Limit: 25,
		})
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})
}

func TestCallRecordContinentFilter(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	repo := NewCallRecordRepository(testDB.DB)
	ctx := context.Background()

	_, err := fixtures.CreateTestTalkgroup(214, "Spain", "ES", "Spain", "Europe")
	require.NoError(t, err)
	_, err = fixtures.CreateTestTalkgroup(262, "Germany", "DE", "Germany", "Europe")
	require.NoError(t, err)
	_, err = fixtures.CreateTestTalkgroup(3100, "USA Nationwide", "US", "United States", "North America")
	require.NoError(t, err)

	_, err = fixtures.CreateTestCall("EA7KLK", 214, "Spain", 300, 30)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCall("DL1ABC", 262, "Germany", 300, 15)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCall("K1AAA", 3100, "USA Nationwide", 300, 20)
	require.NoError(t, err)

	t.Run("continent only", func(t *testing.T) {
		continent := "Europe"
		rows, err := repo.GroupByTalkgroup(ctx, models.CallStatsFilter{
			Since:     utils.UTCNowUnix() - 3600,
			Continent: &continent,
			Limit:     25,
		})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("continent and country", func(t *testing.T) {
		continent := "Europe"
		country := "ES"
		rows, err := repo.GroupByTalkgroup(ctx, models.CallStatsFilter{
			Since:     utils.UTCNowUnix() - 3600,
			Continent: &continent,
			Country:   &country,
			Limit:     25,
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(214), rows[0].DestinationID)
	})
}

func TestCallRecordPruneOlderThan(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)
	repo := NewCallRecordRepository(testDB.DB)
	ctx := context.Background()

	_, err := fixtures.CreateTestCall("EA7KLK", 214, "Spain", 300, 30)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCall("G0XYZ", 235, "United Kingdom", 10*24*3600, 25)
	require.NoError(t, err)

	deleted, err := repo.PruneOlderThan(ctx, utils.UTCNowUnix()-7*24*3600)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := repo.Count(ctx, models.CallRecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTalkgroupUpsertBatch(t *testing.T) {
	testDB, _ := setupRepoTest(t)
	repo := NewTalkgroupRepository(testDB.DB)
	ctx := context.Background()

	europe := "Europe"
	first := []*models.Talkgroup{
		{TalkgroupID: 214, Name: "Spain", CountryCode: "ES", CountryName: "Spain", Continent: &europe},
		{TalkgroupID: 262, Name: "Germany", CountryCode: "DE", CountryName: "Germany", Continent: &europe},
	}
	require.NoError(t, repo.UpsertBatch(ctx, first))

	// Re-upserting with a renamed entry updates in place instead of duplicating
	second := []*models.Talkgroup{
		{TalkgroupID: 214, Name: "Spain National", CountryCode: "ES", CountryName: "Spain", Continent: &europe},
	}
	require.NoError(t, repo.UpsertBatch(ctx, second))

	count, err := repo.Count(ctx, models.TalkgroupFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	tg, err := repo.ByTalkgroupID(ctx, 214)
	require.NoError(t, err)
	require.NotNil(t, tg)
	assert.Equal(t, "Spain National", tg.Name)

	continents, err := repo.ListContinents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Europe"}, continents)
}
