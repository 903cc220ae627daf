package oddsapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/fasthttp"

	"github.com/riskibarqy/mlb-betting/internal/domain/odds"
	"github.com/riskibarqy/mlb-betting/internal/platform/logging"
	"github.com/riskibarqy/mlb-betting/internal/platform/resilience"
	"github.com/riskibarqy/mlb-betting/internal/usecase"
)

const (
	defaultBaseURL = "https://api.the-odds-api.com/v4"
	defaultRegions = "us"
	defaultFormat  = "american"
)

var defaultMarkets = []string{odds.MarketMoneyline, odds.MarketSpreads, odds.MarketTotals}

var apiKeyParamRegex = regexp.MustCompile(`apiKey=[^&\s"']+`)

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Regions        string
	Markets        []string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads current odds from The Odds API. It implements odds.Source.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	apiKey  string
	regions string
	markets []string
	timeout time.Duration
	logger  *logging.Logger
	breaker *resilience.CircuitBreaker
	now     func() time.Time
}

type eventPayload struct {
	ID           string             `json:"id"`
	CommenceTime string             `json:"commence_time"`
	HomeTeam     string             `json:"home_team"`
	AwayTeam     string             `json:"away_team"`
	Bookmakers   []bookmakerPayload `json:"bookmakers"`
}

type bookmakerPayload struct {
	Key        string          `json:"key"`
	LastUpdate string          `json:"last_update"`
	Markets    []marketPayload `json:"markets"`
}

type marketPayload struct {
	Key      string           `json:"key"`
	Outcomes []outcomePayload `json:"outcomes"`
}

type outcomePayload struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
	Point *float64 `json:"point"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("odds api key is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	regions := strings.TrimSpace(cfg.Regions)
	if regions == "" {
		regions = defaultRegions
	}
	markets := cfg.Markets
	if len(markets) == 0 {
		markets = defaultMarkets
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		http: &fasthttp.Client{
			Name:                "mlb-betting",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: 32 << 20,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		regions: regions,
		markets: markets,
		timeout: timeout,
		logger:  logger,
		breaker: resilience.NewCircuitBreaker(cfg.CircuitBreaker, breakerLogger(logger)),
		now:     time.Now,
	}, nil
}

// FetchOdds returns every game x bookmaker x market x outcome as one line.
func (c *Client) FetchOdds(ctx context.Context, sport string) (odds.Snapshot, error) {
	sport = strings.TrimSpace(sport)
	if sport == "" {
		return odds.Snapshot{}, fmt.Errorf("sport key is required")
	}

	values := url.Values{}
	values.Set("apiKey", c.apiKey)
	values.Set("regions", c.regions)
	values.Set("markets", strings.Join(c.markets, ","))
	values.Set("oddsFormat", defaultFormat)
	fullURL := c.baseURL + "/sports/" + url.PathEscape(sport) + "/odds?" + values.Encode()

	var (
		body  []byte
		quota odds.Quota
	)
	err := c.breaker.Execute(func() error {
		var reqErr error
		body, quota, reqErr = c.get(ctx, fullURL)
		return reqErr
	}, resilience.IsTransient)
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "odds api circuit breaker rejected request", "state", c.breaker.State())
		return odds.Snapshot{}, fmt.Errorf("%w: odds provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "odds api request failed", "url", redactAPIURL(fullURL), "error", err)
		return odds.Snapshot{}, err
	}

	var events []eventPayload
	if err := sonic.Unmarshal(body, &events); err != nil {
		return odds.Snapshot{}, fmt.Errorf("decode odds payload: %w", err)
	}

	snapshot := flatten(events, c.now().UTC())
	snapshot.Sport = sport
	snapshot.Quota = quota
	c.logger.InfoContext(ctx, "fetched odds",
		"sport", sport,
		"games", snapshot.Games(),
		"lines", len(snapshot.Lines),
		"requests_last", quota.Used,
		"requests_remaining", quota.Remaining,
	)
	return snapshot, nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, odds.Quota, error) {
	if err := ctx.Err(); err != nil {
		return nil, odds.Quota{}, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, odds.Quota{}, resilience.MarkTransient(crerr.Newf("send request: %s", sanitize(err.Error(), c.apiKey)))
	}

	quota := odds.Quota{
		Used:      headerInt(resp, "x-requests-last"),
		Remaining: headerInt(resp, "x-requests-remaining"),
	}
	body := append([]byte(nil), resp.Body()...)
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return body, quota, nil
	}

	statusErr := crerr.Newf("provider status=%d body=%s", status, abbreviate(sanitize(string(body), c.apiKey)))
	if status == fasthttp.StatusTooManyRequests || status >= 500 {
		return nil, quota, resilience.MarkTransient(statusErr)
	}
	return nil, quota, statusErr
}

func flatten(events []eventPayload, fetchedAt time.Time) odds.Snapshot {
	snapshot := odds.Snapshot{FetchedAt: fetchedAt}
	for _, event := range events {
		commence, _ := time.Parse(time.RFC3339, event.CommenceTime)
		for _, book := range event.Bookmakers {
			var lastUpdate *time.Time
			if t, err := time.Parse(time.RFC3339, book.LastUpdate); err == nil {
				lastUpdate = &t
			}
			for _, market := range book.Markets {
				for _, outcome := range market.Outcomes {
					if strings.TrimSpace(outcome.Name) == "" || outcome.Price == nil || event.ID == "" {
						snapshot.Skipped++
						continue
					}
					snapshot.Lines = append(snapshot.Lines, odds.Line{
						FetchedAt:    fetchedAt,
						GameID:       event.ID,
						CommenceTime: commence,
						HomeTeam:     event.HomeTeam,
						AwayTeam:     event.AwayTeam,
						Bookmaker:    book.Key,
						Market:       market.Key,
						OutcomeName:  outcome.Name,
						Price:        *outcome.Price,
						Point:        outcome.Point,
						LastUpdate:   lastUpdate,
					})
				}
			}
		}
	}
	return snapshot
}

func headerInt(resp *fasthttp.Response, key string) int {
	raw := strings.TrimSpace(string(resp.Header.Peek(key)))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(v)
}

func sanitize(value, apiKey string) string {
	if apiKey != "" {
		value = strings.ReplaceAll(value, apiKey, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "apiKey=REDACTED")
}

func redactAPIURL(raw string) string {
	return apiKeyParamRegex.ReplaceAllString(raw, "apiKey=REDACTED")
}

func abbreviate(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 240 {
		return body[:240] + "..."
	}
	return body
}

func breakerLogger(logger *logging.Logger) resilience.StateChangeFunc {
	return func(from, to resilience.CircuitState) {
		logger.Warn("odds api circuit breaker state changed", "from", string(from), "to", string(to))
	}
}
