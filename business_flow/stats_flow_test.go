package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCallRepo records the last aggregation filter it was called with.
type fakeCallRepo struct {
	lastFilter    models.CallStatsFilter
	talkgroupRows []models.TalkgroupActivity
	callsignRows  []models.CallsignActivity
	err           error
	retained      int64
}

func (f *fakeCallRepo) ByID(ctx context.Context, id uint) (*models.CallRecord, error) {
	return nil, nil
}

func (f *fakeCallRepo) ByFilter(ctx context.Context, filter models.CallRecordFilter, orderBy string, limit, offset int) ([]*models.CallRecord, error) {
	return nil, nil
}

func (f *fakeCallRepo) Save(ctx context.Context, entity *models.CallRecord) error { return nil }

func (f *fakeCallRepo) SaveBatch(ctx context.Context, entities []*models.CallRecord) error {
	return nil
}

func (f *fakeCallRepo) Count(ctx context.Context, filter models.CallRecordFilter) (int64, error) {
	return f.retained, nil
}

func (f *fakeCallRepo) Exists(ctx context.Context, filter models.CallRecordFilter) (bool, error) {
	return false, nil
}

func (f *fakeCallRepo) PruneOlderThan(ctx context.Context, startBefore int64) (int64, error) {
	return 0, nil
}

func (f *fakeCallRepo) GroupByTalkgroup(ctx context.Context, filter models.CallStatsFilter) ([]models.TalkgroupActivity, error) {
	f.lastFilter = filter
	return f.talkgroupRows, f.err
}

func (f *fakeCallRepo) GroupByCallsign(ctx context.Context, filter models.CallStatsFilter) ([]models.CallsignActivity, error) {
	f.lastFilter = filter
	return f.callsignRows, f.err
}

// fakeTalkgroupRepo serves the directory queries the stats flow needs.
type fakeTalkgroupRepo struct {
	continents []string
	countries  []models.Talkgroup
	count      int64
}

func (f *fakeTalkgroupRepo) ByID(ctx context.Context, id uint) (*models.Talkgroup, error) {
	return nil, nil
}

func (f *fakeTalkgroupRepo) ByFilter(ctx context.Context, filter models.TalkgroupFilter, orderBy string, limit, offset int) ([]*models.Talkgroup, error) {
	return nil, nil
}

func (f *fakeTalkgroupRepo) Save(ctx context.Context, entity *models.Talkgroup) error { return nil }

func (f *fakeTalkgroupRepo) SaveBatch(ctx context.Context, entities []*models.Talkgroup) error {
	return nil
}

func (f *fakeTalkgroupRepo) Count(ctx context.Context, filter models.TalkgroupFilter) (int64, error) {
	return f.count, nil
}

func (f *fakeTalkgroupRepo) Exists(ctx context.Context, filter models.TalkgroupFilter) (bool, error) {
	return false, nil
}

func (f *fakeTalkgroupRepo) ByTalkgroupID(ctx context.Context, talkgroupID int64) (*models.Talkgroup, error) {
	return nil, nil
}

func (f *fakeTalkgroupRepo) UpsertBatch(ctx context.Context, entries []*models.Talkgroup) error {
	return nil
}

func (f *fakeTalkgroupRepo) ListContinents(ctx context.Context) ([]string, error) {
	return f.continents, nil
}

func (f *fakeTalkgroupRepo) ListCountries(ctx context.Context, continent string) ([]models.Talkgroup, error) {
	return f.countries, nil
}

type fakeStatus struct {
	connected bool
	inserted  uint64
}

func (f *fakeStatus) IsConnected() bool { return f.connected }
func (f *fakeStatus) Inserted() uint64  { return f.inserted }

func newTestStatsFlow(callRepo *fakeCallRepo, tgRepo *fakeTalkgroupRepo, status StatusProvider) StatsFlow {
	return NewStatsFlow(callRepo, tgRepo, status, nil, 0, nil)
}

func TestResolveTimeRange(t *testing.T) {
	tests := []struct {
		label        string
		expectLabel  string
		expectWindow time.Duration
	}{
		{"5m", "5m", 5 * time.Minute},
		{"1h", "1h", time.Hour},
		{"2d", "2d", 48 * time.Hour},
		{"1M", "1M", 30 * 24 * time.Hour},
		{"", "24h", 24 * time.Hour},
		{"3w", "24h", 24 * time.Hour},
		{"24H", "24h", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			label, window := ResolveTimeRange(tt.label)
			assert.Equal(t, tt.expectLabel, label)
			assert.Equal(t, tt.expectWindow, window)
		})
	}
}

func TestTimeRangeLabels(t *testing.T) {
	labels := TimeRangeLabels()

	assert.Len(t, labels, 13)
	assert.Equal(t, "5m", labels[0])
	assert.Equal(t, "1M", labels[len(labels)-1])

	// Labels come back sorted by window length
	for i := 1; i < len(labels); i++ {
		_, prev := ResolveTimeRange(labels[i-1])
		_, cur := ResolveTimeRange(labels[i])
		assert.True(t, prev < cur, "labels %s and %s out of order", labels[i-1], labels[i])
	}
}

func TestCallsignPattern(t *testing.T) {
	tests := []struct {
		raw    string
		expect string
	}{
		{"", ""},
		{"  ", ""},
		{"EA7KLK", "%EA7KLK%"},
		{"ea7klk", "%ea7klk%"},
		{"EA7*", "EA7%"},
		{"*KLK", "%KLK"},
		{"E*7*", "E%7%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, CallsignPattern(tt.raw), "raw=%q", tt.raw)
	}
}

func TestTalkgroupStatsFilter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		entries, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{})
		require.NoError(t, err)
		assert.Empty(t, entries)

		assert.Equal(t, utils.DefaultStatsLimit, callRepo.lastFilter.Limit)
		assert.Nil(t, callRepo.lastFilter.Continent)
		assert.Nil(t, callRepo.lastFilter.TalkgroupID)
		assert.Nil(t, callRepo.lastFilter.CallsignLike)

		// Since is 24h back from now, give or take scheduling jitter
		expected := utils.UTCNow().Add(-24 * time.Hour).Unix()
		assert.InDelta(t, expected, callRepo.lastFilter.Since, 5)
	})

	t.Run("limit is capped", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Limit: "9999"})
		require.NoError(t, err)
		assert.Equal(t, utils.MaxStatsLimit, callRepo.lastFilter.Limit)
	})

	t.Run("unparseable limit falls back to default", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		for _, limit := range []string{"0", "-3", "abc"} {
			_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Limit: limit})
			require.NoError(t, err, "limit=%q", limit)
			assert.Equal(t, utils.DefaultStatsLimit, callRepo.lastFilter.Limit, "limit=%q", limit)
		}
	})

	t.Run("unparseable talkgroup leaves filter unset", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		for _, tg := range []string{"0", "-214", "nan"} {
			_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Talkgroup: tg})
			require.NoError(t, err, "talkgroup=%q", tg)
			assert.Nil(t, callRepo.lastFilter.TalkgroupID, "talkgroup=%q", tg)
		}
	})

	t.Run("talkgroup filter applied", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Talkgroup: "214"})
		require.NoError(t, err)
		require.NotNil(t, callRepo.lastFilter.TalkgroupID)
		assert.Equal(t, int64(214), *callRepo.lastFilter.TalkgroupID)
	})

	t.Run("all continent means no filter", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Continent: "all"})
		require.NoError(t, err)
		assert.Nil(t, callRepo.lastFilter.Continent)
	})

	t.Run("continent and country applied", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Continent: "Europe", Country: "es"})
		require.NoError(t, err)
		require.NotNil(t, callRepo.lastFilter.Continent)
		assert.Equal(t, "Europe", *callRepo.lastFilter.Continent)
		require.NotNil(t, callRepo.lastFilter.Country)
		assert.Equal(t, "ES", *callRepo.lastFilter.Country)
	})

	t.Run("country without continent ignored", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Country: "ES"})
		require.NoError(t, err)
		assert.Nil(t, callRepo.lastFilter.Continent)
		assert.Nil(t, callRepo.lastFilter.Country)
	})

	t.Run("country with all continent ignored", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Continent: "all", Country: "ES"})
		require.NoError(t, err)
		assert.Nil(t, callRepo.lastFilter.Continent)
		assert.Nil(t, callRepo.lastFilter.Country)
	})

	t.Run("callsign pattern applied", func(t *testing.T) {
		callRepo := &fakeCallRepo{}
		flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

		_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{Callsign: "EA7*"})
		require.NoError(t, err)
		require.NotNil(t, callRepo.lastFilter.CallsignLike)
		assert.Equal(t, "EA7%", *callRepo.lastFilter.CallsignLike)
	})
}

func TestTalkgroupStatsRows(t *testing.T) {
	callRepo := &fakeCallRepo{
		talkgroupRows: []models.TalkgroupActivity{
			{DestinationID: 214, DestinationName: "Spain", Count: 42, TotalDuration: 900},
			{DestinationID: 91, DestinationName: "Worldwide", Count: 17, TotalDuration: 300},
		},
	}
	flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

	entries, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(214), entries[0].DestinationID)
	assert.Equal(t, "Spain", entries[0].DestinationName)
	assert.Equal(t, int64(42), entries[0].Count)
	assert.Equal(t, int64(900), entries[0].TotalDuration)
}

func TestCallsignStatsRows(t *testing.T) {
	callRepo := &fakeCallRepo{
		callsignRows: []models.CallsignActivity{
			{Callsign: "EA7KLK", Name: "Victor", Count: 10, TotalDuration: 120},
		},
	}
	flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

	entries, err := flow.CallsignStats(context.Background(), &dto.StatsQueryRequest{TimeRange: "1h"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "EA7KLK", entries[0].Callsign)
	assert.Equal(t, "Victor", entries[0].Name)
}

func TestStatsQueryFailure(t *testing.T) {
	callRepo := &fakeCallRepo{err: assert.AnError}
	flow := newTestStatsFlow(callRepo, &fakeTalkgroupRepo{}, nil)

	_, err := flow.TalkgroupStats(context.Background(), &dto.StatsQueryRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStatsFilters(t *testing.T) {
	tgRepo := &fakeTalkgroupRepo{
		continents: []string{"Europe", "North America"},
		countries: []models.Talkgroup{
			{CountryCode: "ES", CountryName: "Spain"},
			{CountryCode: "DE", CountryName: "Germany"},
		},
	}
	flow := newTestStatsFlow(&fakeCallRepo{}, tgRepo, nil)

	resp, err := flow.Filters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TimeRangeLabels(), resp.TimeRanges)
	assert.Equal(t, []string{"Europe", "North America"}, resp.Continents)
	require.Len(t, resp.Countries, 2)
	assert.Equal(t, "ES", resp.Countries[0].Code)
	assert.Equal(t, "Spain", resp.Countries[0].Name)
}

func TestStatsStatus(t *testing.T) {
	callRepo := &fakeCallRepo{retained: 1234}
	tgRepo := &fakeTalkgroupRepo{count: 567}
	status := &fakeStatus{connected: true, inserted: 89}
	flow := newTestStatsFlow(callRepo, tgRepo, status)

	resp, err := flow.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Connected)
	assert.Equal(t, uint64(89), resp.InsertedTotal)
	assert.Equal(t, int64(1234), resp.RetainedCalls)
	assert.Equal(t, int64(567), resp.TalkgroupCount)
}

func TestStatsStatusWithoutProvider(t *testing.T) {
	flow := newTestStatsFlow(&fakeCallRepo{}, &fakeTalkgroupRepo{}, nil)

	resp, err := flow.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.Connected)
	assert.Zero(t, resp.InsertedTotal)
}
