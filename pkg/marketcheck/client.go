package marketcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/car-price-checker/internal/resilience"
)

const (
	defaultBaseURL       = "https://api.marketcheck.com"
	defaultLegacyBaseURL = "https://marketcheck-prod.apigee.net"
	defaultRows          = 50
	defaultRadius        = 100

	decodePath = "/v1/vin/"
	searchPath = "/v2/search/car/active"

	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 200

	// defaultMaxBody caps a response body read into memory.
	defaultMaxBody = 8 << 20
)

// ErrResponseTooLarge is returned when a 2xx body exceeds the size cap.
var ErrResponseTooLarge = errors.New("marketcheck: response too large")

// Client talks to the MarketCheck listing API.
type Client interface {
	DecodeVIN(ctx context.Context, vin string) (*VINSpec, error)
	SearchActive(ctx context.Context, params SearchParams) (*SearchResponse, error)
}

// SearchParams selects active listings. Either VIN or Year/Make/Model
// should be set. Zero Rows and Radius take the client defaults.
type SearchParams struct {
	VIN    string
	Year   int
	Make   string
	Model  string
	Zip    string
	Radius int
	Rows   int
}

// StatusError reports that every endpoint in the cascade answered with a
// non-2xx status. StatusCode and Body come from the last attempt.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
	Attempts   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("marketcheck: %s: unexpected status %d after %d attempts: %s", e.Op, e.StatusCode, e.Attempts, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the primary API host.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithLegacyBaseURL overrides the legacy API host tried last. An empty
// value removes the legacy step.
func WithLegacyBaseURL(u string) Option {
	return func(c *httpClient) {
		c.legacyBaseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = newAdaptiveLimiter(rate.Limit(rps), 1)
	}
}

// WithMaxResponseSize caps how many bytes of a response body are read.
// Non-positive values keep the default.
func WithMaxResponseSize(n int64) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithDefaults sets the default search rows and radius.
func WithDefaults(rows, radius int) Option {
	return func(c *httpClient) {
		if rows > 0 {
			c.rows = rows
		}
		if radius > 0 {
			c.radius = radius
		}
	}
}

type httpClient struct {
	apiKey        string
	baseURL       string
	legacyBaseURL string
	rows          int
	radius        int
	http          *http.Client
	limiter       *adaptiveLimiter
	maxBody       int64
}

// NewClient creates a MarketCheck API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		legacyBaseURL: defaultLegacyBaseURL,
		rows:          defaultRows,
		radius:        defaultRadius,
		maxBody:       defaultMaxBody,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) DecodeVIN(ctx context.Context, vin string) (*VINSpec, error) {
	body, err := c.get(ctx, "decode", decodePath+url.PathEscape(vin), nil)
	if err != nil {
		return nil, err
	}

	var spec VINSpec
	if err := json.Unmarshal(body, &spec); err != nil {
		return nil, eris.Wrap(err, "marketcheck: decode: unmarshal response")
	}
	return &spec, nil
}

func (c *httpClient) SearchActive(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	q := url.Values{}
	rows := p.Rows
	if rows <= 0 {
		rows = c.rows
	}
	q.Set("rows", strconv.Itoa(rows))

	if p.VIN != "" {
		q.Set("vin", p.VIN)
	} else {
		if p.Year > 0 {
			q.Set("year", strconv.Itoa(p.Year))
		}
		if p.Make != "" {
			q.Set("make", p.Make)
		}
		if p.Model != "" {
			q.Set("model", p.Model)
		}
		if p.Zip != "" {
			radius := p.Radius
			if radius <= 0 {
				radius = c.radius
			}
			q.Set("zip", p.Zip)
			q.Set("radius", strconv.Itoa(radius))
		}
	}

	body, err := c.get(ctx, "search", searchPath, q)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "marketcheck: search: unmarshal response")
	}
	return &resp, nil
}

type attempt struct {
	name       string
	base       string
	headerAuth bool
}

// cascade lists the endpoints to try in order: header auth on the primary
// host, then the key as a query parameter, then the legacy host.
func (c *httpClient) cascade() []attempt {
	out := []attempt{
		{name: "header", base: c.baseURL, headerAuth: true},
		{name: "query", base: c.baseURL},
	}
	if c.legacyBaseURL != "" && c.legacyBaseURL != c.baseURL {
		out = append(out, attempt{name: "legacy", base: c.legacyBaseURL})
	}
	return out
}

// get walks the endpoint cascade and returns the first 2xx body. Transport
// errors end the cascade immediately.
func (c *httpClient) get(ctx context.Context, op, path string, q url.Values) ([]byte, error) {
	var last *StatusError
	steps := c.cascade()

	for i, a := range steps {
		status, body, err := c.do(ctx, op, a, path, q)
		if err != nil {
			return nil, err
		}
		if status >= 200 && status < 300 {
			return body, nil
		}

		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		last = &StatusError{Op: op, StatusCode: status, Body: string(body), Attempts: i + 1}
		zap.L().Debug("marketcheck: endpoint rejected request",
			zap.String("op", op),
			zap.String("attempt", a.name),
			zap.Int("status", status),
		)
	}

	if resilience.IsTransientHTTPStatus(last.StatusCode) {
		return nil, resilience.NewTransientError(last, last.StatusCode)
	}
	return nil, last
}

func (c *httpClient) do(ctx context.Context, op string, a attempt, path string, q url.Values) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, eris.Wrapf(err, "marketcheck: %s: rate limit wait", op)
		}
	}

	params := url.Values{}
	for k, v := range q {
		params[k] = v
	}
	if !a.headerAuth {
		params.Set("api_key", c.apiKey)
	}

	u := a.base + path
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, eris.Wrapf(err, "marketcheck: %s: create request", op)
	}
	req.Header.Set("Accept", "application/json")
	if a.headerAuth {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, eris.Wrapf(err, "marketcheck: %s: send request", op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return 0, nil, eris.Wrapf(err, "marketcheck: %s: read response", op)
	}
	if int64(len(body)) > c.maxBody {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return 0, nil, eris.Wrapf(ErrResponseTooLarge, "marketcheck: %s: body exceeds %d bytes", op, c.maxBody)
		}
		body = body[:c.maxBody]
	}

	if c.limiter != nil {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.limiter.OnRateLimit()
		} else if resp.StatusCode < 300 {
			c.limiter.OnSuccess()
		}
	}
	return resp.StatusCode, body, nil
}
