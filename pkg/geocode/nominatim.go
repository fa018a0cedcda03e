package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Nominatim geocodes free-form addresses against a Nominatim search
// endpoint. Queries are tried with progressively broader region suffixes
// and a country bias, then once unbiased, mirroring how residents type
// partial addresses.
type Nominatim struct {
	client         *http.Client
	limiter        *rate.Limiter
	baseURL        string
	userAgent      string
	countryCodes   string
	regionSuffixes []string
}

// NominatimOptions configures a Nominatim geocoder. Zero values get
// sensible defaults; MinInterval defaults to 1.2s per Nominatim usage
// etiquette.
type NominatimOptions struct {
	BaseURL        string
	UserAgent      string
	CountryCodes   string
	RegionSuffixes []string
	MinInterval    time.Duration
	Client         *http.Client
}

// NewNominatim creates a Nominatim geocoder.
func NewNominatim(opts NominatimOptions) *Nominatim {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "coverage-cli/1.0"
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 1200 * time.Millisecond
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Nominatim{
		client:         opts.Client,
		limiter:        rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		userAgent:      opts.UserAgent,
		countryCodes:   opts.CountryCodes,
		regionSuffixes: opts.RegionSuffixes,
	}
}

// Geocode implements Client. Candidates are tried in order until one
// resolves; transient failures on one candidate do not abort the rest.
func (n *Nominatim) Geocode(ctx context.Context, address string) (Point, error) {
	q := strings.TrimSpace(address)
	if q == "" {
		return Point{}, eris.New("geocode: empty address")
	}

	var lastErr error
	for _, candidate := range n.candidates(q) {
		pt, ok, err := n.search(ctx, candidate, n.countryCodes)
		if err != nil {
			lastErr = err
			zap.L().Debug("nominatim: candidate query failed",
				zap.String("query", candidate),
				zap.Error(err),
			)
			continue
		}
		if ok {
			return pt, nil
		}
	}

	// Final attempt without the country bias, in case the address really
	// is outside the configured country.
	pt, ok, err := n.search(ctx, q, "")
	if err != nil {
		lastErr = err
	}
	if ok {
		return pt, nil
	}

	if lastErr != nil {
		return Point{}, eris.Wrap(lastErr, "geocode: all candidates failed")
	}
	return Point{}, ErrNoMatch
}

// candidates returns the raw query plus each configured region suffix
// appended.
func (n *Nominatim) candidates(q string) []string {
	out := make([]string, 0, len(n.regionSuffixes)+1)
	out = append(out, q)
	for _, suffix := range n.regionSuffixes {
		out = append(out, fmt.Sprintf("%s, %s", q, suffix))
	}
	return out
}

// search performs one rate-limited query. Returns ok=false with nil error
// when the endpoint answered with no results.
func (n *Nominatim) search(ctx context.Context, q, countryCodes string) (Point, bool, error) {
	body, err := n.get(ctx, q, countryCodes)
	if err != nil {
		return Point{}, false, err
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &hits); err != nil {
		return Point{}, false, eris.Wrap(err, "nominatim: decode response")
	}
	if len(hits) == 0 {
		return Point{}, false, nil
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return Point{}, false, eris.Wrap(err, "nominatim: parse lat")
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return Point{}, false, eris.Wrap(err, "nominatim: parse lon")
	}
	return Point{Lat: lat, Lon: lon}, true, nil
}

// get performs the HTTP round trip, retrying once after a rate-limit or
// transient upstream error.
func (n *Nominatim) get(ctx context.Context, q, countryCodes string) ([]byte, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("limit", "3")
	params.Set("addressdetails", "0")
	params.Set("q", q)
	if countryCodes != "" {
		params.Set("countrycodes", countryCodes)
	}
	endpoint := n.baseURL + "/search?" + params.Encode()

	body, status, err := n.doRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if retryableStatus(status) {
		// One polite retry; the limiter spaces it out.
		body, status, err = n.doRequest(ctx, endpoint)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("nominatim: status %d for %q", status, q)
	}
	return body, nil
}

func (n *Nominatim) doRequest(ctx context.Context, endpoint string) ([]byte, int, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, 0, eris.Wrap(err, "nominatim: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
