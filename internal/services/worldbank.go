package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"strategic-forecast/backend-go/internal/config"
	"strategic-forecast/backend-go/internal/forecast"
)

const (
	defaultWorldBankURL       = "https://api.worldbank.org/v2"
	defaultWorldBankUserAgent = "strategic-forecast/1.0"
	defaultWorldBankPerPage   = 100
	countryListPerPage        = 400
	maxWorldBankPages         = 50
)

var ErrNoRecords = errors.New("worldbank: no records found")

// WorldBankClient reads the Indicators API v2. Decoded payloads are cached
// for ttl and identical in-flight requests share one upstream call.
type WorldBankClient struct {
	cfg   config.WorldBankConfig
	hc    *http.Client
	cache Cache
	ttl   time.Duration
	group singleflight.Group
	log   *logrus.Logger
}

type wbMeta struct {
	Page    int         `json:"page"`
	Pages   int         `json:"pages"`
	Message []wbMessage `json:"message"`
}

type wbMessage struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wbRef struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type wbIndicatorRow struct {
	Country         wbRef    `json:"country"`
	CountryISO3Code string   `json:"countryiso3code"`
	Date            string   `json:"date"`
	Value           *float64 `json:"value"`
}

type wbCountry struct {
	ID       string `json:"id"`
	ISO2Code string `json:"iso2Code"`
	Name     string `json:"name"`
	Region   wbRef  `json:"region"`
}

func NewWorldBankClient(cfg config.WorldBankConfig, cache Cache, ttl time.Duration, log *logrus.Logger) *WorldBankClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultWorldBankURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultWorldBankUserAgent
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultWorldBankPerPage
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = logrus.New()
	}
	return &WorldBankClient{
		cfg:   cfg,
		hc:    &http.Client{Timeout: cfg.Timeout},
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func (c *WorldBankClient) FetchIndicator(ctx context.Context, code, indicator string, fromYear, toYear int) (forecast.IndicatorSeries, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	key := fmt.Sprintf("wb:indicator:%s:%s:%d:%d", code, indicator, fromYear, toYear)

	var cached forecast.IndicatorSeries
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		path := "country/" + url.PathEscape(code) + "/indicator/" + url.PathEscape(indicator)
		params := url.Values{"date": {fmt.Sprintf("%d:%d", fromYear, toYear)}}
		rows, err := c.fetchAll(ctx, path, params, c.cfg.PerPage)
		if err != nil {
			return nil, err
		}
		series := forecast.IndicatorSeries{Code: code, Rows: make([]forecast.IndicatorRow, 0, len(rows))}
		for _, raw := range rows {
			var r wbIndicatorRow
			if err := json.Unmarshal(raw, &r); err != nil {
				return nil, fmt.Errorf("worldbank: decode row: %w", err)
			}
			if series.CountryName == "" {
				series.CountryName = strings.TrimSpace(r.Country.Value)
			}
			series.Rows = append(series.Rows, forecast.IndicatorRow{Label: r.Date, Value: r.Value})
		}
		c.store(ctx, key, series)
		return series, nil
	})
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"component": "worldbank",
			"code":      code,
			"indicator": indicator,
		}).WithError(err).Warn("indicator fetch failed")
		return forecast.IndicatorSeries{}, err
	}
	return v.(forecast.IndicatorSeries), nil
}

// SearchCountry matches exact ISO3, ISO2 and name before falling back to a
// fuzzy match over non-aggregate country names.
func (c *WorldBankClient) SearchCountry(ctx context.Context, name string) (string, error) {
	query := forecast.NormalizeName(name)
	if query == "" {
		return "", ErrNoRecords
	}
	countries, err := c.countries(ctx)
	if err != nil {
		return "", err
	}

	upper := strings.ToUpper(query)
	for _, ct := range countries {
		if ct.ID == upper {
			return ct.ID, nil
		}
	}
	for _, ct := range countries {
		if strings.EqualFold(ct.ISO2Code, upper) {
			return ct.ID, nil
		}
	}
	names := make([]string, len(countries))
	for i, ct := range countries {
		names[i] = forecast.NormalizeName(ct.Name)
		if names[i] == query {
			return ct.ID, nil
		}
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no country matches %q", ErrNoRecords, name)
	}
	return countries[matches[0].Index].ID, nil
}

func (c *WorldBankClient) countries(ctx context.Context) ([]wbCountry, error) {
	const key = "wb:countries"
	var cached []wbCountry
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		rows, err := c.fetchAll(ctx, "country", nil, countryListPerPage)
		if err != nil {
			return nil, err
		}
		out := make([]wbCountry, 0, len(rows))
		for _, raw := range rows {
			var ct wbCountry
			if err := json.Unmarshal(raw, &ct); err != nil {
				return nil, fmt.Errorf("worldbank: decode country: %w", err)
			}
			if strings.TrimSpace(ct.Region.Value) == "Aggregates" || len(ct.ID) != 3 {
				continue
			}
			out = append(out, ct)
		}
		if len(out) == 0 {
			return nil, ErrNoRecords
		}
		c.store(ctx, key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]wbCountry), nil
}

// fetchAll walks every page of a [meta, rows] response.
func (c *WorldBankClient) fetchAll(ctx context.Context, path string, params url.Values, perPage int) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 1; page <= maxWorldBankPages; page++ {
		q := url.Values{}
		for k, vs := range params {
			q[k] = vs
		}
		q.Set("format", "json")
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		body, err := c.doRequest(ctx, path, q)
		if err != nil {
			return nil, err
		}
		meta, rows, err := decodePage(body)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if meta.Pages <= page {
			break
		}
	}
	if len(all) == 0 {
		return nil, ErrNoRecords
	}
	return all, nil
}

func decodePage(body []byte) (wbMeta, []json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return wbMeta{}, nil, fmt.Errorf("worldbank: decode envelope: %w", err)
	}
	if len(parts) == 0 {
		return wbMeta{}, nil, errors.New("worldbank: empty envelope")
	}
	var meta wbMeta
	if err := json.Unmarshal(parts[0], &meta); err != nil {
		return wbMeta{}, nil, fmt.Errorf("worldbank: decode meta: %w", err)
	}
	if len(meta.Message) > 0 {
		m := meta.Message[0]
		return meta, nil, fmt.Errorf("worldbank: %s %s: %s", m.ID, m.Key, strings.TrimSpace(m.Value))
	}
	if len(parts) < 2 || string(parts[1]) == "null" {
		return meta, nil, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(parts[1], &rows); err != nil {
		return meta, nil, fmt.Errorf("worldbank: decode rows: %w", err)
	}
	return meta, rows, nil
}

func (c *WorldBankClient) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/") + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(body) > 4096 {
			body = body[:4096]
		}
		return nil, &UpstreamError{Service: "worldbank", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *WorldBankClient) load(ctx context.Context, key string, out any) bool {
	if c.ttl <= 0 {
		return false
	}
	b, ok := c.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := UnmarshalCache(b, out); err != nil {
		return false
	}
	return true
}

func (c *WorldBankClient) store(ctx context.Context, key string, v any) {
	if c.ttl <= 0 {
		return
	}
	b, err := MarshalCache(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
		c.log.WithFields(logrus.Fields{"component": "worldbank", "key": key}).WithError(err).Debug("cache write failed")
	}
}
