// Package pricefeed resolves the stable asset's market price for the treasury
// engine. Sources are consulted in priority order on Update; Consult serves
// the freshest recorded observation and ConsultTWAP the rolling average over
// the sample window.
package pricefeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoFreshQuote indicates no source produced a quote within the freshness
// window.
var ErrNoFreshQuote = errors.New("pricefeed: no fresh quote available")

// Quote captures a price observation alongside the timestamp reported by the
// upstream source and the source identifier.
type Quote struct {
	Rate      *big.Rat
	Timestamp time.Time
	Source    string
}

// Clone returns a deep copy of the quote.
func (q Quote) Clone() Quote {
	clone := Quote{Timestamp: q.Timestamp, Source: q.Source}
	if q.Rate != nil {
		clone.Rate = new(big.Rat).Set(q.Rate)
	}
	return clone
}

// Source resolves the stable asset's rate against its reference currency.
type Source interface {
	GetRate(base, quote string) (Quote, error)
}

// Feed aggregates registered sources and adapts their quotes to the treasury
// engine's fixed-point oracle contract.
type Feed struct {
	mu       sync.RWMutex
	base     string
	quote    string
	priority []string
	sources  map[string]Source
	maxAge   time.Duration
	window   time.Duration
	cap      int
	history  []Quote
	now      func() time.Time
}

// FeedOption customises a Feed.
type FeedOption func(*Feed)

// WithMaxAge sets the quote freshness window.
func WithMaxAge(maxAge time.Duration) FeedOption {
	return func(f *Feed) { f.maxAge = maxAge }
}

// WithWindow sets the rolling TWAP observation window.
func WithWindow(window time.Duration) FeedOption {
	return func(f *Feed) {
		if window < 0 {
			window = 0
		}
		f.window = window
	}
}

// WithSampleCap bounds the stored observation count.
func WithSampleCap(cap int) FeedOption {
	return func(f *Feed) {
		if cap > 0 {
			f.cap = cap
		}
	}
}

// WithClock overrides the feed's clock.
func WithClock(now func() time.Time) FeedOption {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFeed constructs a feed for the base/quote pair.
func NewFeed(base, quote string, opts ...FeedOption) *Feed {
	f := &Feed{
		base:    normaliseSymbol(base),
		quote:   normaliseSymbol(quote),
		sources: make(map[string]Source),
		maxAge:  2 * time.Minute,
		window:  time.Hour,
		cap:     128,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register adds or replaces a source under the supplied identifier. Sources
// are consulted in registration order unless re-registered.
func (f *Feed) Register(name string, source Source) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" || source == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.sources[trimmed]; !exists {
		f.priority = append(f.priority, trimmed)
	}
	f.sources[trimmed] = source
}

// Update consults the sources in priority order and records the first fresh
// quote. All sources failing surfaces the last error.
func (f *Feed) Update() error {
	f.mu.RLock()
	priority := append([]string{}, f.priority...)
	maxAge := f.maxAge
	f.mu.RUnlock()

	var lastErr error
	cutoff := time.Time{}
	if maxAge > 0 {
		cutoff = f.now().Add(-maxAge)
	}
	for _, name := range priority {
		f.mu.RLock()
		source := f.sources[name]
		f.mu.RUnlock()
		if source == nil {
			continue
		}
		quote, err := source.GetRate(f.base, f.quote)
		if err != nil {
			lastErr = err
			continue
		}
		if quote.Rate == nil || quote.Rate.Sign() <= 0 {
			lastErr = fmt.Errorf("pricefeed: source %s returned invalid rate", name)
			continue
		}
		if maxAge > 0 && quote.Timestamp.Before(cutoff) {
			lastErr = ErrNoFreshQuote
			continue
		}
		recorded := quote.Clone()
		if strings.TrimSpace(recorded.Source) == "" {
			recorded.Source = name
		}
		f.record(recorded)
		return nil
	}
	if lastErr == nil {
		lastErr = ErrNoFreshQuote
	}
	return lastErr
}

func (f *Feed) record(quote Quote) {
	if quote.Timestamp.IsZero() {
		quote.Timestamp = f.now()
	} else {
		quote.Timestamp = quote.Timestamp.UTC()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket := append(f.history, quote)
	if f.window > 0 {
		cutoff := quote.Timestamp.Add(-f.window)
		filtered := bucket[:0]
		for _, entry := range bucket {
			if entry.Timestamp.Before(cutoff) {
				continue
			}
			filtered = append(filtered, entry)
		}
		bucket = filtered
	}
	if f.cap > 0 && len(bucket) > f.cap {
		bucket = append([]Quote{}, bucket[len(bucket)-f.cap:]...)
	}
	f.history = bucket
}

// Consult returns the most recent fresh observation scaled to 18 decimals for
// the supplied unit. The asset argument is accepted for interface parity; the
// feed tracks a single pair.
func (f *Feed) Consult(asset common.Address, unit *big.Int) (*big.Int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.history) == 0 {
		return nil, ErrNoFreshQuote
	}
	last := f.history[len(f.history)-1]
	if f.maxAge > 0 && last.Timestamp.Before(f.now().Add(-f.maxAge)) {
		return nil, ErrNoFreshQuote
	}
	return scaleRate(last.Rate, unit), nil
}

// ConsultTWAP returns the average of the observations inside the rolling
// window, scaled to 18 decimals for the supplied unit.
func (f *Feed) ConsultTWAP(asset common.Address, unit *big.Int) (*big.Int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.history) == 0 {
		return nil, ErrNoFreshQuote
	}
	cutoff := time.Time{}
	if f.window > 0 {
		cutoff = f.history[len(f.history)-1].Timestamp.Add(-f.window)
	}
	sum := new(big.Rat)
	used := 0
	for _, entry := range f.history {
		if entry.Rate == nil || (f.window > 0 && entry.Timestamp.Before(cutoff)) {
			continue
		}
		sum.Add(sum, entry.Rate)
		used++
	}
	if used == 0 {
		return nil, ErrNoFreshQuote
	}
	avg := new(big.Rat).Quo(sum, big.NewRat(int64(used), 1))
	return scaleRate(avg, unit), nil
}

// scaleRate converts a rational rate into the engine's fixed-point form: the
// price of `unit` base tokens, scaled so a rate of 1.0 with unit 1e18 yields
// 1e18.
func scaleRate(rate *big.Rat, unit *big.Int) *big.Int {
	scaled := new(big.Rat).Mul(rate, new(big.Rat).SetInt(unit))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ManualSource provides an in-memory source used for tests and manual
// overrides during incident response.
type ManualSource struct {
	mu    sync.RWMutex
	quote Quote
	set   bool
}

// NewManualSource constructs an empty manual source.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// SetDecimal records the supplied decimal rate with the provided timestamp.
func (m *ManualSource) SetDecimal(rate string, ts time.Time) error {
	trimmed := strings.TrimSpace(rate)
	if trimmed == "" {
		return fmt.Errorf("pricefeed: rate required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok || rat.Sign() <= 0 {
		return fmt.Errorf("pricefeed: invalid rate %q", rate)
	}
	m.mu.Lock()
	m.quote = Quote{Rate: rat, Timestamp: ts, Source: "manual"}
	m.set = true
	m.mu.Unlock()
	return nil
}

// GetRate retrieves the stored rate.
func (m *ManualSource) GetRate(base, quote string) (Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return Quote{}, fmt.Errorf("pricefeed: manual quote for %s/%s not set", base, quote)
	}
	return m.quote.Clone(), nil
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches quotes from a JSON rate endpoint responding with
// {"rate": "<decimal>", "timestamp": <unix seconds>}.
type HTTPSource struct {
	client   HTTPDoer
	endpoint string
	apiKey   string
}

// NewHTTPSource constructs an HTTP source. When the client is nil
// http.DefaultClient is used; the API key is optional and only attached when
// supplied.
func NewHTTPSource(client HTTPDoer, endpoint, apiKey string) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client, endpoint: strings.TrimSpace(endpoint), apiKey: strings.TrimSpace(apiKey)}
}

// GetRate fetches the current rate for the pair.
func (s *HTTPSource) GetRate(base, quote string) (Quote, error) {
	req, err := http.NewRequest(http.MethodGet, s.endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	values := url.Values{}
	values.Set("base", normaliseSymbol(base))
	values.Set("quote", normaliseSymbol(quote))
	req.URL.RawQuery = values.Encode()
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("pricefeed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Rate      string `json:"rate"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("pricefeed: decode: %w", err)
	}
	rate := strings.TrimSpace(payload.Rate)
	if rate == "" {
		return Quote{}, fmt.Errorf("pricefeed: empty rate")
	}
	rat, ok := new(big.Rat).SetString(rate)
	if !ok || rat.Sign() <= 0 {
		return Quote{}, fmt.Errorf("pricefeed: invalid rate %q", payload.Rate)
	}
	ts := time.Time{}
	if payload.Timestamp > 0 {
		ts = time.Unix(payload.Timestamp, 0)
	}
	return Quote{Rate: rat, Timestamp: ts, Source: "http"}, nil
}
