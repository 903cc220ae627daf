package fangraphs

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/riskibarqy/mlb-betting/internal/domain/season"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
	"github.com/riskibarqy/mlb-betting/internal/platform/resilience"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

const (
	defaultBaseURL      = "https://www.fangraphs.com/api/leaders/major-league/data"
	defaultMinQualified = 50
	defaultPageItems    = 100000
	maxResponseBytes    = 64 << 20

	statsBatting  = "bat"
	statsPitching = "pit"
)

// Leaderboard types. Each board carries a different column family, so one
// role table is the merge of several boards.
var (
	defaultBattingBoards  = []string{"8", "1", "24"}
	defaultPitchingBoards = []string{"8", "24"}
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	RatePerMinute  int
	MinQualified   int
	PageItems      int
	BattingBoards  []string
	PitchingBoards []string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads season leaderboards from FanGraphs. It implements season.Source.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	retryBackoff   time.Duration
	minQualified   int
	pageItems      int
	battingBoards  []string
	pitchingBoards []string
	limiter        *rate.Limiter
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	flight         resilience.SingleFlight[[]byte]
}

type leaderboardEnvelope struct {
	Data       []map[string]any `json:"data"`
	TotalCount int              `json:"totalCount"`
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	// The caller's client is copied so the timeout default never leaks into it.
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 60 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(float64(cfg.RatePerMinute) / 60.0)
	}

	c := &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     max(cfg.MaxRetries, 0),
		retryBackoff:   cfg.RetryBackoff,
		minQualified:   cfg.MinQualified,
		pageItems:      cfg.PageItems,
		battingBoards:  cfg.BattingBoards,
		pitchingBoards: cfg.PitchingBoards,
		limiter:        rate.NewLimiter(limit, 1),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(cfg.CircuitBreaker, breakerLogger(logger)),
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = time.Second
	}
	if c.minQualified <= 0 {
		c.minQualified = defaultMinQualified
	}
	if c.pageItems <= 0 {
		c.pageItems = defaultPageItems
	}
	if len(c.battingBoards) == 0 {
		c.battingBoards = defaultBattingBoards
	}
	if len(c.pitchingBoards) == 0 {
		c.pitchingBoards = defaultPitchingBoards
	}
	return c
}

func (c *Client) FetchBatting(ctx context.Context, startYear, endYear int) (season.Table, error) {
	return c.fetchTable(ctx, statsBatting, c.battingBoards, startYear, endYear)
}

func (c *Client) FetchPitching(ctx context.Context, startYear, endYear int) (season.Table, error) {
	return c.fetchTable(ctx, statsPitching, c.pitchingBoards, startYear, endYear)
}

// fetchTable merges every board into rows keyed by player and season. The
// first board decides which player-seasons exist.
func (c *Client) fetchTable(ctx context.Context, stats string, boards []string, startYear, endYear int) (season.Table, error) {
	if startYear <= 0 || endYear < startYear {
		return season.Table{}, fmt.Errorf("invalid season range %d-%d", startYear, endYear)
	}

	var (
		order   []string
		merged  = map[string]map[string]any{}
		skipped int
	)
	for i, board := range boards {
		rows, err := c.fetchBoard(ctx, stats, board, startYear, endYear)
		if err != nil {
			return season.Table{}, fmt.Errorf("fetch %s board=%s %d-%d: %w", stats, board, startYear, endYear, err)
		}

		for _, row := range rows {
			key, ok := rowKey(row)
			if !ok {
				if i == 0 {
					skipped++
				}
				continue
			}
			base, exists := merged[key]
			if !exists {
				if i > 0 {
					continue
				}
				merged[key] = row
				order = append(order, key)
				continue
			}
			for k, v := range row {
				if _, taken := base[k]; !taken {
					base[k] = v
				}
			}
		}
	}

	table := season.Table{Records: make([]season.Record, 0, len(order)), Skipped: skipped}
	for _, key := range order {
		rec, err := season.RecordFromMap(normalizeRow(merged[key]))
		if err != nil || strings.TrimSpace(rec.PlayerName) == "" || rec.Season <= 0 {
			table.Skipped++
			continue
		}
		table.Records = append(table.Records, rec)
	}

	c.logger.InfoContext(ctx, "fetched fangraphs leaderboard",
		"stats", stats,
		"start_year", startYear,
		"end_year", endYear,
		"records", len(table.Records),
		"skipped", table.Skipped,
	)
	return table, nil
}

func (c *Client) fetchBoard(ctx context.Context, stats, board string, startYear, endYear int) ([]map[string]any, error) {
	values := url.Values{}
	values.Set("stats", stats)
	values.Set("type", board)
	values.Set("lg", "all")
	values.Set("pos", "all")
	values.Set("month", "0")
	values.Set("ind", "1")
	values.Set("qual", strconv.Itoa(c.minQualified))
	values.Set("season1", strconv.Itoa(startYear))
	values.Set("season", strconv.Itoa(endYear))
	values.Set("pageitems", strconv.Itoa(c.pageItems))
	values.Set("pagenum", "1")

	var envelope leaderboardEnvelope
	if err := c.doJSON(ctx, values, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (c *Client) doJSON(ctx context.Context, values url.Values, target any) error {
	fullURL := c.baseURL + "?" + values.Encode()

	raw, _, err := c.flight.Do(ctx, fullURL, func() ([]byte, error) {
		var body []byte
		execErr := c.breaker.Execute(func() error {
			return resilience.Retry(ctx, c.maxRetries, resilience.LinearBackoff(c.retryBackoff), func(attempt int) error {
				var reqErr error
				body, reqErr = c.executeRequest(ctx, fullURL)
				if reqErr != nil && resilience.IsTransient(reqErr) && attempt < c.maxRetries {
					c.logger.WarnContext(ctx, "fangraphs request failed, retrying", "attempt", attempt+1, "error", reqErr)
				}
				return reqErr
			})
		}, resilience.IsTransient)
		return body, execErr
	})
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "fangraphs circuit breaker rejected request", "state", c.breaker.State())
		return fmt.Errorf("%w: statistics provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode leaderboard payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, resilience.MarkTransient(crerr.Wrap(err, "send request"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resilience.MarkTransient(crerr.Wrap(err, "read response body"))
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	statusErr := crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	if isRetryableStatus(resp.StatusCode) {
		return nil, resilience.MarkTransient(statusErr)
	}
	return nil, statusErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > 240 {
		return body[:240] + "..."
	}
	return body
}

func breakerLogger(logger *logging.Logger) resilience.StateChangeFunc {
	return func(from, to resilience.CircuitState) {
		logger.Warn("fangraphs circuit breaker state changed", "from", string(from), "to", string(to))
	}
}
