package scheduler

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/utils"
)

// Header aliases accepted for the id, name and country columns. The CSV
// source has changed column names over time, so matching is tolerant.
var (
	idAliases      = []string{"talkgroup", "talkgroup_id", "tgid", "tg", "id"}
	nameAliases    = []string{"name", "description", "label"}
	countryAliases = []string{"country", "country_code", "countrycode"}
)

// TalkgroupCSVClient fetches the talkgroup directory CSV from its fixed
// external URL, falling back to a secondary URL when the primary fails.
type TalkgroupCSVClient struct {
	primaryURL  string
	fallbackURL string
	httpClient  *http.Client
	logger      *log.Logger
}

// NewTalkgroupCSVClient creates a CSV client for the given source URLs.
func NewTalkgroupCSVClient(primaryURL, fallbackURL string, timeout time.Duration, logger *log.Logger) *TalkgroupCSVClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	return &TalkgroupCSVClient{
		primaryURL:  primaryURL,
		fallbackURL: fallbackURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Fetch downloads and parses the directory CSV. The primary URL is tried
// first; on any failure the fallback URL is used. An error from both
// leaves the caller's existing data untouched.
func (c *TalkgroupCSVClient) Fetch(ctx context.Context) ([]*models.Talkgroup, error) {
	entries, err := c.fetchURL(ctx, c.primaryURL)
	if err == nil {
		return entries, nil
	}

	c.logger.Printf("scheduler: talkgroup CSV fetch from %s failed: %v, trying fallback", c.primaryURL, err)

	if c.fallbackURL == "" {
		return nil, err
	}

	entries, fbErr := c.fetchURL(ctx, c.fallbackURL)
	if fbErr != nil {
		return nil, fmt.Errorf("primary: %v, fallback: %w", err, fbErr)
	}

	return entries, nil
}

func (c *TalkgroupCSVClient) fetchURL(ctx context.Context, url string) ([]*models.Talkgroup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return ParseTalkgroupCSV(resp.Body)
}

// ParseTalkgroupCSV parses a directory CSV document with a header row into
// talkgroup entries. Rows with an unparseable id are skipped; only
// successfully parsed rows are returned, so a partially bad document never
// degrades existing directory data beyond its good rows.
func ParseTalkgroupCSV(r io.Reader) ([]*models.Talkgroup, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idCol := findColumn(header, idAliases)
	nameCol := findColumn(header, nameAliases)
	countryCol := findColumn(header, countryAliases)
	if idCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("CSV header missing id/name columns: %v", header)
	}

	now := utils.UTCNow()
	var entries []*models.Talkgroup

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Tolerate ragged rows, skip them
			continue
		}
		if idCol >= len(record) || nameCol >= len(record) {
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSpace(record[idCol]), 10, 64)
		if err != nil || id <= 0 {
			continue
		}

		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			continue
		}

		var rawCountry string
		if countryCol >= 0 && countryCol < len(record) {
			rawCountry = record[countryCol]
		}
		code, countryName, continent := lookupCountry(rawCountry)

		entries = append(entries, &models.Talkgroup{
			TalkgroupID: id,
			Name:        name,
			CountryCode: code,
			CountryName: countryName,
			Continent:   continent,
			UpdatedAt:   now,
		})
	}

	return entries, nil
}

// findColumn returns the index of the first header cell matching one of
// the aliases, case-insensitively, or -1.
func findColumn(header []string, aliases []string) int {
	for i, cell := range header {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for _, alias := range aliases {
			if normalized == alias {
				return i
			}
		}
	}
	return -1
}
