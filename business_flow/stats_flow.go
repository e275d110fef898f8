// Package businessflow contains the core business logic for the statistics aggregation API
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/redis/go-redis/v9"
)

// DefaultTimeRange is used when the caller omits or misspells the window
const DefaultTimeRange = "24h"

// timeRanges is the closed set of selectable aggregation windows
var timeRanges = map[string]time.Duration{
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"24h": 24 * time.Hour,
	"2d":  48 * time.Hour,
	"5d":  5 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
	"2w":  14 * 24 * time.Hour,
	"1M":  30 * 24 * time.Hour,
}

// ResolveTimeRange maps a window label to its duration. Unknown labels
// fall back to the default window rather than erroring, so stale links
// keep working.
func ResolveTimeRange(label string) (string, time.Duration) {
	if d, ok := timeRanges[label]; ok {
		return label, d
	}
	return DefaultTimeRange, timeRanges[DefaultTimeRange]
}

// TimeRangeLabels returns the selectable window labels, shortest first
func TimeRangeLabels() []string {
	labels := make([]string, 0, len(timeRanges))
	for label := range timeRanges {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return timeRanges[labels[i]] < timeRanges[labels[j]]
	})
	return labels
}

// StatusProvider reports the live state of the ingestion pipeline
type StatusProvider interface {
	IsConnected() bool
	Inserted() uint64
}

// StatsFlow handles the aggregation queries over retained call records
type StatsFlow interface {
	TalkgroupStats(ctx context.Context, req *dto.StatsQueryRequest) ([]dto.TalkgroupStatsEntry, error)
	CallsignStats(ctx context.Context, req *dto.StatsQueryRequest) ([]dto.CallsignStatsEntry, error)
	Filters(ctx context.Context) (*dto.StatsFiltersResponse, error)
	Status(ctx context.Context) (*dto.IngestStatusResponse, error)
}

// StatsFlowImpl implements the stats business flow
type StatsFlowImpl struct {
	callRepo repository.CallRecordRepository
	tgRepo   repository.TalkgroupRepository
	status   StatusProvider
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *log.Logger
}

// NewStatsFlow creates a new stats flow instance. cache may be nil to
// disable response caching.
func NewStatsFlow(
	callRepo repository.CallRecordRepository,
	tgRepo repository.TalkgroupRepository,
	status StatusProvider,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger *log.Logger,
) StatsFlow {
	return &StatsFlowImpl{
		callRepo: callRepo,
		tgRepo:   tgRepo,
		status:   status,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// TalkgroupStats aggregates retained calls per destination talkgroup
func (s *StatsFlowImpl) TalkgroupStats(ctx context.Context, req *dto.StatsQueryRequest) ([]dto.TalkgroupStatsEntry, error) {
	filter, label := s.buildFilter(req)

	cacheKey := s.cacheKey("tg", label, req)
	if cached, ok := cacheLookup[[]dto.TalkgroupStatsEntry](ctx, s, cacheKey); ok {
		return cached, nil
	}

	rows, err := s.callRepo.GroupByTalkgroup(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("STATS_QUERY_FAILED", "Talkgroup stats query failed", err)
	}

	entries := make([]dto.TalkgroupStatsEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dto.TalkgroupStatsEntry{
			DestinationID:   row.DestinationID,
			DestinationName: row.DestinationName,
			Count:           row.Count,
			TotalDuration:   row.TotalDuration,
		})
	}

	s.cacheStore(ctx, cacheKey, entries)
	return entries, nil
}

// CallsignStats aggregates retained calls per source callsign
func (s *StatsFlowImpl) CallsignStats(ctx context.Context, req *dto.StatsQueryRequest) ([]dto.CallsignStatsEntry, error) {
	filter, label := s.buildFilter(req)

	cacheKey := s.cacheKey("cs", label, req)
	if cached, ok := cacheLookup[[]dto.CallsignStatsEntry](ctx, s, cacheKey); ok {
		return cached, nil
	}

	rows, err := s.callRepo.GroupByCallsign(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("STATS_QUERY_FAILED", "Callsign stats query failed", err)
	}

	entries := make([]dto.CallsignStatsEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dto.CallsignStatsEntry{
			Callsign:      row.Callsign,
			Name:          row.Name,
			Count:         row.Count,
			TotalDuration: row.TotalDuration,
		})
	}

	s.cacheStore(ctx, cacheKey, entries)
	return entries, nil
}

// Filters lists the continents and countries the directory currently knows
func (s *StatsFlowImpl) Filters(ctx context.Context) (*dto.StatsFiltersResponse, error) {
	continents, err := s.tgRepo.ListContinents(ctx)
	if err != nil {
		return nil, NewBusinessError("STATS_FILTERS_FAILED", "Stats filters query failed", err)
	}

	countries, err := s.tgRepo.ListCountries(ctx, "")
	if err != nil {
		return nil, NewBusinessError("STATS_FILTERS_FAILED", "Stats filters query failed", err)
	}

	resp := &dto.StatsFiltersResponse{
		TimeRanges: TimeRangeLabels(),
		Continents: continents,
		Countries:  make([]dto.CountryOption, 0, len(countries)),
	}
	for _, c := range countries {
		resp.Countries = append(resp.Countries, dto.CountryOption{
			Code: c.CountryCode,
			Name: c.CountryName,
		})
	}

	return resp, nil
}

// Status reports the state of the ingestion pipeline
func (s *StatsFlowImpl) Status(ctx context.Context) (*dto.IngestStatusResponse, error) {
	retained, err := s.callRepo.Count(ctx, models.CallRecordFilter{})
	if err != nil {
		return nil, NewBusinessError("STATS_STATUS_FAILED", "Stats status query failed", err)
	}

	tgCount, err := s.tgRepo.Count(ctx, models.TalkgroupFilter{})
	if err != nil {
		return nil, NewBusinessError("STATS_STATUS_FAILED", "Stats status query failed", err)
	}

	resp := &dto.IngestStatusResponse{
		RetainedCalls:  retained,
		TalkgroupCount: tgCount,
	}
	if s.status != nil {
		resp.Connected = s.status.IsConnected()
		resp.InsertedTotal = s.status.Inserted()
	}

	return resp, nil
}

// buildFilter coerces the raw query values into a repository filter.
// The public aggregation endpoints face arbitrary query strings, so every
// value that fails to parse leaves its filter unset instead of erroring:
// a bad talkgroup or limit falls back to no-filter/default, and a country
// without a continent is ignored.
func (s *StatsFlowImpl) buildFilter(req *dto.StatsQueryRequest) (models.CallStatsFilter, string) {
	label, window := ResolveTimeRange(req.TimeRange)

	filter := models.CallStatsFilter{
		Since: utils.UTCNow().Add(-window).Unix(),
		Limit: utils.DefaultStatsLimit,
	}

	if limit, err := strconv.Atoi(req.Limit); err == nil && limit >= 1 {
		if limit > utils.MaxStatsLimit {
			limit = utils.MaxStatsLimit
		}
		filter.Limit = limit
	}

	if tgID, err := strconv.ParseInt(req.Talkgroup, 10, 64); err == nil && tgID >= 1 {
		filter.TalkgroupID = &tgID
	}

	continent := strings.TrimSpace(req.Continent)
	if continent != "" && !strings.EqualFold(continent, utils.AllContinents) {
		filter.Continent = &continent
		country := strings.TrimSpace(req.Country)
		if country != "" {
			upper := strings.ToUpper(country)
			filter.Country = &upper
		}
	}

	if pattern := CallsignPattern(req.Callsign); pattern != "" {
		filter.CallsignLike = &pattern
	}

	return filter, label
}

// CallsignPattern translates a user-supplied callsign filter into a SQL
// LIKE pattern. A bare value matches as a case-sensitive substring; '*'
// acts as a wildcard anywhere in the value.
func CallsignPattern(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "*") {
		return strings.ReplaceAll(raw, "*", "%")
	}
	return "%" + raw + "%"
}

func (s *StatsFlowImpl) cacheKey(kind, label string, req *dto.StatsQueryRequest) string {
	return fmt.Sprintf("stats:%s:%s:%s:%s:%s:%s:%s",
		kind, label,
		strings.ToLower(strings.TrimSpace(req.Continent)),
		strings.ToUpper(strings.TrimSpace(req.Country)),
		strings.TrimSpace(req.Talkgroup),
		CallsignPattern(req.Callsign),
		strings.TrimSpace(req.Limit),
	)
}

// cacheLookup returns the cached value for key, if caching is enabled
// and the entry decodes cleanly.
func cacheLookup[T any](ctx context.Context, s *StatsFlowImpl, key string) (T, bool) {
	var zero T
	if s.cache == nil {
		return zero, false
	}

	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, false
	}
	return value, true
}

func (s *StatsFlowImpl) cacheStore(ctx context.Context, key string, value any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Printf("stats cache store failed: %v", err)
	}
}
