package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// HTTP ticker API source (history cached)

var ErrHTTPNoItems = errors.New("http source: no items")

// FieldPaths are JSONPath expressions evaluated against each item.
type FieldPaths struct {
	ID        string
	Name      string
	Symbol    string
	Rank      string
	Price     string
	Change24h string
	MarketCap string
	Volume24h string
}

// DefaultFieldPaths matches items shaped like Asset.
var DefaultFieldPaths = FieldPaths{
	ID:        "$.id",
	Name:      "$.name",
	Symbol:    "$.symbol",
	Rank:      "$.rank",
	Price:     "$.price",
	Change24h: "$.change24h",
	MarketCap: "$.marketCap",
	Volume24h: "$.volume24h",
}

type HTTPConfig struct {
	URL    string
	APIKey string
	// HistoryURL may contain {id}, replaced by the escaped asset id.
	HistoryURL string

	ItemsPath         string
	Fields            FieldPaths
	HistoryLabelsPath string
	HistoryPointsPath string
	HistoryTTL        time.Duration
	Timeout           time.Duration
}

type HTTPSource struct {
	cfg HTTPConfig
	cli *http.Client

	mu    sync.RWMutex
	cache map[string]cachedHistory
}

type cachedHistory struct {
	h       History
	fetched time.Time
}

func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("http source: url is required")
	}
	if cfg.ItemsPath == "" {
		cfg.ItemsPath = "$.data"
	}
	if cfg.Fields == (FieldPaths{}) {
		cfg.Fields = DefaultFieldPaths
	}
	if cfg.HistoryLabelsPath == "" {
		cfg.HistoryLabelsPath = "$.timestamps"
	}
	if cfg.HistoryPointsPath == "" {
		cfg.HistoryPointsPath = "$.prices"
	}
	if cfg.HistoryTTL <= 0 {
		cfg.HistoryTTL = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &HTTPSource{
		cfg:   cfg,
		cli:   &http.Client{Timeout: cfg.Timeout},
		cache: make(map[string]cachedHistory),
	}, nil
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) Assets(ctx context.Context) ([]Asset, error) {
	raw, err := s.get(ctx, s.cfg.URL)
	if err != nil {
		return nil, err
	}
	v, err := jsonpath.Get(s.cfg.ItemsPath, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: items path %q: %v", ErrMalformed, s.cfg.ItemsPath, err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: items path %q is not a list", ErrMalformed, s.cfg.ItemsPath)
	}
	if len(items) == 0 {
		return nil, ErrHTTPNoItems
	}

	out := make([]Asset, 0, len(items))
	for i, item := range items {
		a, err := s.adapt(item, i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *HTTPSource) History(ctx context.Context, id string) (History, error) {
	if s.cfg.HistoryURL == "" {
		return History{}, errors.New("http source: history url not configured")
	}

	// cache hit?
	s.mu.RLock()
	if c, ok := s.cache[id]; ok && time.Since(c.fetched) < s.cfg.HistoryTTL {
		s.mu.RUnlock()
		return c.h, nil
	}
	s.mu.RUnlock()

	raw, err := s.get(ctx, strings.ReplaceAll(s.cfg.HistoryURL, "{id}", url.PathEscape(id)))
	if err != nil {
		return History{}, err
	}
	labels, err := listAt(s.cfg.HistoryLabelsPath, raw)
	if err != nil {
		return History{}, err
	}
	points, err := listAt(s.cfg.HistoryPointsPath, raw)
	if err != nil {
		return History{}, err
	}

	h := History{AssetID: id, Labels: make([]string, 0, len(labels)), Points: make([]float64, 0, len(points))}
	for _, l := range labels {
		h.Labels = append(h.Labels, historyLabel(l))
	}
	for i, p := range points {
		f, err := toFloat(p)
		if err != nil {
			return History{}, fmt.Errorf("%w: history point %d: %v", ErrMalformed, i, err)
		}
		h.Points = append(h.Points, f)
	}
	if err := validateHistory(h); err != nil {
		return History{}, err
	}

	s.mu.Lock()
	s.cache[id] = cachedHistory{h: h, fetched: time.Now()}
	s.mu.Unlock()

	return h, nil
}

func (s *HTTPSource) get(ctx context.Context, addr string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "crypto-dashboard/1.0")
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-KEY", s.cfg.APIKey)
	}

	resp, err := s.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API Error: %d", resp.StatusCode)
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return raw, nil
}

func (s *HTTPSource) adapt(item any, i int) (Asset, error) {
	f := s.cfg.Fields
	var a Asset
	var err error
	if a.ID, err = stringAt(f.ID, item); err != nil {
		return Asset{}, fmt.Errorf("%w: item %d id: %v", ErrMalformed, i, err)
	}
	if a.Name, err = stringAt(f.Name, item); err != nil {
		return Asset{}, fmt.Errorf("%w: item %d name: %v", ErrMalformed, i, err)
	}
	if a.Symbol, err = stringAt(f.Symbol, item); err != nil {
		return Asset{}, fmt.Errorf("%w: item %d symbol: %v", ErrMalformed, i, err)
	}
	nums := []struct {
		path string
		dst  *float64
	}{
		{f.Price, &a.Price},
		{f.Change24h, &a.Change24h},
		{f.MarketCap, &a.MarketCap},
		{f.Volume24h, &a.Volume24h},
	}
	for _, n := range nums {
		v, err := valueAt(n.path, item)
		if err != nil {
			return Asset{}, fmt.Errorf("%w: item %d %s: %v", ErrMalformed, i, n.path, err)
		}
		if *n.dst, err = toFloat(v); err != nil {
			return Asset{}, fmt.Errorf("%w: item %d %s: %v", ErrMalformed, i, n.path, err)
		}
	}

	a.Rank = i + 1
	if f.Rank != "" {
		if v, err := valueAt(f.Rank, item); err == nil {
			if r, err := toFloat(v); err == nil && r > 0 {
				a.Rank = int(r)
			}
		}
	}
	return a, nil
}

/* ======================== small helpers ======================== */

// valueAt evaluates path and unwraps single-element results, since
// jsonpath returns a list for wildcard and filter expressions.
func valueAt(path string, v any) (any, error) {
	got, err := jsonpath.Get(path, v)
	if err != nil {
		return nil, err
	}
	if list, ok := got.([]any); ok && len(list) == 1 {
		got = list[0]
	}
	if got == nil {
		return nil, errors.New("missing value")
	}
	return got, nil
}

func stringAt(path string, v any) (string, error) {
	got, err := valueAt(path, v)
	if err != nil {
		return "", err
	}
	switch x := got.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unexpected %T", got)
	}
}

func listAt(path string, v any) ([]any, error) {
	got, err := jsonpath.Get(path, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformed, path, err)
	}
	list, ok := got.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a list", ErrMalformed, path)
	}
	return list, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// historyLabel renders numeric labels as unix-second dates.
func historyLabel(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return time.Unix(int64(x), 0).UTC().Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
