package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTalkgroupCSV(t *testing.T) {
	t.Run("standard document", func(t *testing.T) {
		doc := strings.Join([]string{
			"talkgroup,name,country",
			"214,Spain,ES",
			"262,Germany,DE",
			"91,Worldwide,",
		}, "\n")

		entries, err := ParseTalkgroupCSV(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.Equal(t, int64(214), entries[0].TalkgroupID)
		assert.Equal(t, "Spain", entries[0].Name)
		assert.Equal(t, "ES", entries[0].CountryCode)
		assert.Equal(t, "Spain", entries[0].CountryName)
		require.NotNil(t, entries[0].Continent)
		assert.Equal(t, "Europe", *entries[0].Continent)

		assert.Equal(t, "", entries[2].CountryCode)
		assert.Nil(t, entries[2].Continent)
	})

	t.Run("header aliases", func(t *testing.T) {
		doc := "TGID,Description,Country_Code\n3100,USA Nationwide,US\n"

		entries, err := ParseTalkgroupCSV(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(3100), entries[0].TalkgroupID)
		assert.Equal(t, "USA Nationwide", entries[0].Name)
		assert.Equal(t, "US", entries[0].CountryCode)
	})

	t.Run("bad rows skipped", func(t *testing.T) {
		doc := strings.Join([]string{
			"talkgroup,name,country",
			"not-a-number,Broken,XX",
			"-5,Negative,XX",
			"0,Zero,XX",
			"214,,ES",
			"235,United Kingdom,GB",
			"91",
		}, "\n")

		entries, err := ParseTalkgroupCSV(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(235), entries[0].TalkgroupID)
	})

	t.Run("missing required columns", func(t *testing.T) {
		_, err := ParseTalkgroupCSV(strings.NewReader("foo,bar\n1,2\n"))
		assert.Error(t, err)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := ParseTalkgroupCSV(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestLookupCountry(t *testing.T) {
	tests := []struct {
		raw             string
		expectCode      string
		expectName      string
		expectContinent string
	}{
		{"ES", "ES", "Spain", "Europe"},
		{"es", "ES", "Spain", "Europe"},
		{"Spain", "ES", "Spain", "Europe"},
		{"spain", "ES", "Spain", "Europe"},
		{"US", "US", "United States", "North America"},
		{"", "", "", ""},
		{"Atlantis", "Atlantis", "Atlantis", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			code, name, continent := lookupCountry(tt.raw)
			assert.Equal(t, tt.expectCode, code)
			assert.Equal(t, tt.expectName, name)
			if tt.expectContinent == "" {
				assert.Nil(t, continent)
			} else {
				require.NotNil(t, continent)
				assert.Equal(t, tt.expectContinent, *continent)
			}
		})
	}
}

func TestTalkgroupCSVClientFallback(t *testing.T) {
	const doc = "talkgroup,name,country\n214,Spain,ES\n"

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(doc))
	}))
	defer fallback.Close()

	t.Run("fallback used when primary fails", func(t *testing.T) {
		client := NewTalkgroupCSVClient(primary.URL, fallback.URL, 0, nil)

		entries, err := client.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(214), entries[0].TalkgroupID)
	})

	t.Run("primary preferred when healthy", func(t *testing.T) {
		client := NewTalkgroupCSVClient(fallback.URL, primary.URL, 0, nil)

		entries, err := client.Fetch(context.Background())
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("both failing is an error", func(t *testing.T) {
		client := NewTalkgroupCSVClient(primary.URL, primary.URL, 0, nil)

		_, err := client.Fetch(context.Background())
		assert.Error(t, err)
	})

	t.Run("no fallback configured", func(t *testing.T) {
		client := NewTalkgroupCSVClient(primary.URL, "", 0, nil)

		_, err := client.Fetch(context.Background())
		assert.Error(t, err)
	})
}
