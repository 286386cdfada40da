// Package census queries the Census Bureau ACS API and assembles the raw
// county-keyed tables consumed by the transform stage.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/censusview/internal/geostore"
	"github.com/sells-group/censusview/internal/table"
)

// ClientOptions configures the ACS API client.
type ClientOptions struct {
	BaseURL     string
	Key         string
	Source      string // dataset, e.g. "acs5"
	Year        int
	Timeout     time.Duration
	MaxAttempts int
	RatePerSec  float64
}

// Client is a rate-limited, retrying HTTP client for the ACS API.
type Client struct {
	http    *http.Client
	opts    ClientOptions
	limiter *rate.Limiter
}

// NewClient creates an ACS API client with the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.census.gov/data"
	}
	if opts.Source == "" {
		opts.Source = "acs5"
	}
	if opts.Year == 0 {
		opts.Year = 2018
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 2
	}
	if opts.RatePerSec == 0 {
		opts.RatePerSec = 10
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), int(math.Ceil(opts.RatePerSec))),
	}
}

// datasetURL builds the URL for one query against a table type's endpoint.
func (c *Client) datasetURL(typ TableType, params url.Values) string {
	base := strings.TrimRight(c.opts.BaseURL, "/")
	return fmt.Sprintf("%s/%d/acs/%s%s?%s",
		base, c.opts.Year, c.opts.Source, typ.pathSuffix(), params.Encode())
}

// QueryCounties fetches the given variables for every county in one state,
// returning a table keyed by the NAME column ("County Name, State Name").
// Values that fail to parse as numbers are left missing.
func (c *Client) QueryCounties(ctx context.Context, typ TableType, stateFIPS string, codes []string) (*table.Table, error) {
	params := url.Values{}
	params.Set("get", "NAME,"+strings.Join(codes, ","))
	params.Set("for", "county:*")
	params.Set("in", "state:"+geostore.NormalizeStateFIPS(stateFIPS))
	if c.opts.Key != "" {
		params.Set("key", c.opts.Key)
	}

	rows, err := c.query(ctx, c.datasetURL(typ, params))
	if err != nil {
		return nil, err
	}
	return tableFromRows(rows, codes)
}

// ListStates enumerates all states with their FIPS codes.
func (c *Client) ListStates(ctx context.Context) ([]geostore.Area, error) {
	params := url.Values{}
	params.Set("get", "NAME")
	params.Set("for", "state:*")
	if c.opts.Key != "" {
		params.Set("key", c.opts.Key)
	}

	rows, err := c.query(ctx, c.datasetURL(Detail, params))
	if err != nil {
		return nil, err
	}
	return areasFromRows(rows, "state")
}

// ListCounties enumerates all counties in a state with their FIPS codes.
func (c *Client) ListCounties(ctx context.Context, stateFIPS string) ([]geostore.Area, error) {
	params := url.Values{}
	params.Set("get", "NAME")
	params.Set("for", "county:*")
	params.Set("in", "state:"+geostore.NormalizeStateFIPS(stateFIPS))
	if c.opts.Key != "" {
		params.Set("key", c.opts.Key)
	}

	rows, err := c.query(ctx, c.datasetURL(Detail, params))
	if err != nil {
		return nil, err
	}
	return areasFromRows(rows, "county")
}

// query performs one GET with rate limiting and retry, decoding the ACS
// array-of-arrays payload.
func (c *Client) query(ctx context.Context, rawURL string) ([][]*string, error) {
	var lastErr error
	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "census: rate limiter wait")
		}

		rows, retryable, err := c.queryOnce(ctx, rawURL)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		if !retryable {
			break
		}

		zap.L().Warn("census query failed, retrying",
			zap.String("url", redactKey(rawURL)),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		c.backoff(ctx, attempt)
	}
	return nil, lastErr
}

func (c *Client) queryOnce(ctx context.Context, rawURL string) ([][]*string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "census: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, eris.Wrap(err, "census: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, eris.Errorf("census: http %d from %s", resp.StatusCode, redactKey(rawURL))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, eris.Errorf("census: http %d from %s: %s",
			resp.StatusCode, redactKey(rawURL), strings.TrimSpace(string(body)))
	}

	var rows [][]*string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, false, eris.Wrap(err, "census: decode response")
	}
	if len(rows) == 0 {
		return nil, false, eris.New("census: empty response")
	}
	return rows, false, nil
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	d := time.Duration(float64(time.Second) * math.Pow(2, float64(attempt)))
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	d += time.Duration(rand.Int63n(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// tableFromRows converts the header-first ACS payload into a table keyed by
// the NAME column, keeping only the requested variable columns.
func tableFromRows(rows [][]*string, codes []string) (*table.Table, error) {
	header := rows[0]
	nameIdx := -1
	colIdx := make(map[int]string, len(codes))
	wanted := make(map[string]bool, len(codes))
	for _, code := range codes {
		wanted[code] = true
	}
	for i, cell := range header {
		if cell == nil {
			continue
		}
		if *cell == "NAME" {
			nameIdx = i
		} else if wanted[*cell] {
			colIdx[i] = *cell
		}
	}
	if nameIdx < 0 {
		return nil, eris.New("census: response missing NAME column")
	}

	t := table.New(codes...)
	for _, row := range rows[1:] {
		if nameIdx >= len(row) || row[nameIdx] == nil {
			continue
		}
		key := *row[nameIdx]
		for i, code := range colIdx {
			if i >= len(row) || row[i] == nil {
				continue
			}
			v, err := strconv.ParseFloat(*row[i], 64)
			if err != nil {
				continue // non-numeric cell: leave missing
			}
			t.Set(key, code, v)
		}
	}
	return t, nil
}

// areasFromRows extracts (NAME, fips) pairs from a geography listing, where
// fipsCol names the header column holding the area code.
func areasFromRows(rows [][]*string, fipsCol string) ([]geostore.Area, error) {
	header := rows[0]
	nameIdx, fipsIdx := -1, -1
	for i, cell := range header {
		if cell == nil {
			continue
		}
		switch *cell {
		case "NAME":
			nameIdx = i
		case fipsCol:
			fipsIdx = i
		}
	}
	if nameIdx < 0 || fipsIdx < 0 {
		return nil, eris.Errorf("census: geography response missing NAME or %s column", fipsCol)
	}

	var areas []geostore.Area
	for _, row := range rows[1:] {
		if nameIdx >= len(row) || fipsIdx >= len(row) || row[nameIdx] == nil || row[fipsIdx] == nil {
			continue
		}
		areas = append(areas, geostore.Area{Name: *row[nameIdx], FIPS: *row[fipsIdx]})
	}
	return areas, nil
}

// redactKey strips the api key from a URL for logging.
func redactKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
