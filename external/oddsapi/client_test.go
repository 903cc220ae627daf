package oddsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
	"github.com/riskibarqy/mlb-betting/internal/platform/resilience"
)

const sampleOdds = `[
  {"id":"g1","sport_key":"baseball_mlb","commence_time":"2026-04-02T23:05:00Z","home_team":"New York Yankees","away_team":"Boston Red Sox",
   "bookmakers":[
     {"key":"draftkings","last_update":"2026-04-02T17:00:00Z","markets":[
        {"key":"h2h","outcomes":[{"name":"New York Yankees","price":-135},{"name":"Boston Red Sox","price":115}]},
        {"key":"totals","outcomes":[{"name":"Over","price":-110,"point":8.5},{"name":"Under","price":-110,"point":8.5},{"name":"","price":100}]}
     ]}
   ]},
  {"id":"g2","commence_time":"2026-04-03T00:10:00Z","home_team":"Chicago Cubs","away_team":"St. Louis Cardinals","bookmakers":[
     {"key":"fanduel","last_update":"bad","markets":[{"key":"spreads","outcomes":[{"name":"Chicago Cubs","price":150,"point":-1.5},{"name":"St. Louis Cardinals"}]}]}
  ]}
]`

func TestClient_FetchOddsFlattens(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/sports/baseball_mlb/odds" || q.Get("apiKey") != "secret" || q.Get("regions") != "us" ||
			q.Get("markets") != "h2h,spreads,totals" || q.Get("oddsFormat") != "american" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		w.Header().Set("x-requests-last", "3")
		w.Header().Set("x-requests-remaining", "497")
		_, _ = w.Write([]byte(sampleOdds))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret", Logger: logging.NewNop()})
	require.NoError(t, err)
	fetched := time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return fetched }

	snapshot, err := client.FetchOdds(context.Background(), "baseball_mlb")
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 5)
	assert.Equal(t, 2, snapshot.Skipped)
	assert.Equal(t, 2, snapshot.Games())
	assert.Equal(t, 3, snapshot.Quota.Used)
	assert.Equal(t, 497, snapshot.Quota.Remaining)

	first := snapshot.Lines[0]
	assert.Equal(t, fetched, first.FetchedAt)
	assert.Equal(t, "g1", first.GameID)
	assert.Equal(t, "draftkings", first.Bookmaker)
	assert.Equal(t, "h2h", first.Market)
	assert.Equal(t, -135.0, first.Price)
	assert.Nil(t, first.Point)
	require.NotNil(t, first.LastUpdate)

	over := snapshot.Lines[2]
	require.NotNil(t, over.Point)
	assert.Equal(t, 8.5, *over.Point)

	cubs := snapshot.Lines[4]
	assert.Equal(t, "spreads", cubs.Market)
	assert.Nil(t, cubs.LastUpdate)
	assert.Equal(t, time.Date(2026, 4, 3, 0, 10, 0, 0, time.UTC), cubs.CommenceTime)
}

func TestClient_FetchOddsStatusErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("regions") {
		case "eu":
			http.Error(w, `{"message":"quota"}`, http.StatusTooManyRequests)
		default:
			http.Error(w, `{"message":"invalid markets"}`, http.StatusUnprocessableEntity)
		}
	}))
	defer server.Close()

	permanent, err := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret", Logger: logging.NewNop()})
	require.NoError(t, err)
	_, err = permanent.FetchOdds(context.Background(), "baseball_mlb")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.NotContains(t, err.Error(), "secret")

	throttled, err := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret", Regions: "eu", Logger: logging.NewNop()})
	require.NoError(t, err)
	_, err = throttled.FetchOdds(context.Background(), "baseball_mlb")
	assert.True(t, resilience.IsTransient(err))
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{})
	require.Error(t, err)
}
