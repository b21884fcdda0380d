// Package geocode resolves normalized addresses to coordinates via the US
// Census Geocoder. Geocoding is best-effort: an unmatched address is not an
// error, and callers may swap in the no-op client for dry runs.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes a single address.
type Client interface {
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput represents an address to geocode. At minimum a street+city or
// venue+city pair is required for a useful match.
type AddressInput struct {
	Street  string
	Venue   string
	City    string
	State   string
	ZipCode string
}

// Sufficient reports whether the input carries enough signal to be worth a
// metered geocoder call.
func (a AddressInput) Sufficient() bool {
	return a.City != "" && (a.Street != "" || a.Venue != "")
}

// Result holds the geocoding output for an address. City/State/Zip are parsed
// from the matched address so callers can backfill missing fields.
type Result struct {
	Latitude       float64
	Longitude      float64
	MatchedAddress string
	City           string
	State          string
	Zip            string
	Source         string
	Matched        bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for Census API calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithBaseURL overrides the Census endpoint (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(g *geocoder) {
		g.baseURL = baseURL
	}
}

type geocoder struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		baseURL:    censusOneLineURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NoopClient skips all geocoder calls, for batch dry-run mode.
type NoopClient struct{}

// Geocode implements Client by always returning an unmatched result.
func (NoopClient) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	return &Result{Matched: false, Source: "noop"}, nil
}
