package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ea7klk/bm-stats/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCallRepo is an in-memory CallRecordRepository for normalizer tests.
type memoryCallRepo struct {
	mu    sync.Mutex
	saved []*models.CallRecord
	fail  error
}

func (m *memoryCallRepo) Save(ctx context.Context, rec *models.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saved = append(m.saved, rec)
	return nil
}

func (m *memoryCallRepo) records() []*models.CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.CallRecord, len(m.saved))
	copy(out, m.saved)
	return out
}

func (m *memoryCallRepo) ByID(ctx context.Context, id uint) (*models.CallRecord, error) {
	return nil, nil
}

func (m *memoryCallRepo) ByFilter(ctx context.Context, filter models.CallRecordFilter, orderBy string, limit, offset int) ([]*models.CallRecord, error) {
	return m.records(), nil
}

func (m *memoryCallRepo) SaveBatch(ctx context.Context, entities []*models.CallRecord) error {
	for _, e := range entities {
		if err := m.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryCallRepo) Count(ctx context.Context, filter models.CallRecordFilter) (int64, error) {
	return int64(len(m.records())), nil
}

func (m *memoryCallRepo) Exists(ctx context.Context, filter models.CallRecordFilter) (bool, error) {
	return len(m.records()) > 0, nil
}

func (m *memoryCallRepo) PruneOlderThan(ctx context.Context, startBefore int64) (int64, error) {
	return 0, nil
}

func (m *memoryCallRepo) GroupByTalkgroup(ctx context.Context, filter models.CallStatsFilter) ([]models.TalkgroupActivity, error) {
	return nil, nil
}

func (m *memoryCallRepo) GroupByCallsign(ctx context.Context, filter models.CallStatsFilter) ([]models.CallsignActivity, error) {
	return nil, nil
}

// feedMessage wraps an event the way the last-heard feed does: the event
// is JSON-encoded into the envelope's payload string.
func feedMessage(t *testing.T, event map[string]any) []byte {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	msg, err := json.Marshal(map[string]string{"payload": string(payload)})
	require.NoError(t, err)
	return msg
}

func baseEvent() map[string]any {
	return map[string]any{
		"Event":           "Session-Stop",
		"CallTypes":       []string{"Group", "Voice", "Call"},
		"SourceID":        2070001,
		"SourceCall":      "EA7KLK",
		"SourceName":      "Victor",
		"DestinationID":   214,
		"DestinationName": "Spain",
		"Start":           1700000000,
		"Stop":            1700000010,
	}
}

func TestNormalizerPersistsCompletedCall(t *testing.T) {
	repo := &memoryCallRepo{}
	n := NewNormalizer(repo, nil)

	n.Handle(context.Background(), feedMessage(t, baseEvent()))
	n.Flush()

	records := repo.records()
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, int64(2070001), rec.SourceID)
	assert.Equal(t, "EA7KLK", rec.SourceCall)
	require.NotNil(t, rec.SourceName)
	assert.Equal(t, "Victor", *rec.SourceName)
	assert.Equal(t, int64(214), rec.DestinationID)
	assert.Equal(t, "Spain", rec.DestinationName)
	assert.Equal(t, int64(10), rec.Duration)
	assert.NotZero(t, rec.CreatedAt)
	assert.Equal(t, uint64(1), n.Inserted())
}

func TestNormalizerDiscards(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ev map[string]any)
	}{
		{
			name:   "session start ignored",
			mutate: func(ev map[string]any) { ev["Event"] = "Session-Start" },
		},
		{
			name:   "non group call",
			mutate: func(ev map[string]any) { ev["CallTypes"] = []string{"Voice", "Call"} },
		},
		{
			name:   "missing source call",
			mutate: func(ev map[string]any) { ev["SourceCall"] = "  " },
		},
		{
			name:   "missing destination name",
			mutate: func(ev map[string]any) { ev["DestinationName"] = "" },
		},
		{
			name: "keyup at threshold duration",
			mutate: func(ev map[string]any) {
				ev["Start"] = 1700000000
				ev["Stop"] = 1700000005
			},
		},
		{
			name:   "local talkgroup",
			mutate: func(ev map[string]any) { ev["DestinationID"] = 9 },
		},
		{
			name:   "unparseable start",
			mutate: func(ev map[string]any) { delete(ev, "Start") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryCallRepo{}
			n := NewNormalizer(repo, nil)

			ev := baseEvent()
			tt.mutate(ev)
			n.Handle(context.Background(), feedMessage(t, ev))
			n.Flush()

			assert.Empty(t, repo.records())
			assert.Zero(t, n.Inserted())
		})
	}
}

func TestNormalizerMalformedMessages(t *testing.T) {
	repo := &memoryCallRepo{}
	n := NewNormalizer(repo, nil)

	n.Handle(context.Background(), []byte("not json"))
	n.Handle(context.Background(), []byte(`{"payload":""}`))
	n.Handle(context.Background(), []byte(`{"payload":"not json either"}`))
	n.Flush()

	assert.Empty(t, repo.records())
}

func TestNormalizerFloatTimestamps(t *testing.T) {
	repo := &memoryCallRepo{}
	n := NewNormalizer(repo, nil)

	ev := baseEvent()
	ev["Start"] = 1700000000.0
	ev["Stop"] = 1700000012.7
	n.Handle(context.Background(), feedMessage(t, ev))
	n.Flush()

	records := repo.records()
	require.Len(t, records, 1)
	assert.Equal(t, int64(12), records[0].Duration)
}

func TestNormalizerExtraCallTypes(t *testing.T) {
	repo := &memoryCallRepo{}
	n := NewNormalizer(repo, nil)

	ev := baseEvent()
	ev["CallTypes"] = []string{"Call", "Group", "DMR", "Voice"}
	n.Handle(context.Background(), feedMessage(t, ev))
	n.Flush()

	assert.Len(t, repo.records(), 1)
}

func TestNormalizerSurvivesStoreFailure(t *testing.T) {
	repo := &memoryCallRepo{fail: assert.AnError}
	n := NewNormalizer(repo, nil)

	n.Handle(context.Background(), feedMessage(t, baseEvent()))
	n.Flush()

	assert.Zero(t, n.Inserted())

	// Next event persists normally once the store recovers
	repo.mu.Lock()
	repo.fail = nil
	repo.mu.Unlock()

	n.Handle(context.Background(), feedMessage(t, baseEvent()))
	n.Flush()

	assert.Equal(t, uint64(1), n.Inserted())
}
