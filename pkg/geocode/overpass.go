package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/airscope/coverage-cli/internal/geo"
)

// Overpass fetches addressable buildings (nodes and ways carrying
// addr:housenumber + addr:street tags) from an Overpass API endpoint.
type Overpass struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
	region    string
}

// OverpassOptions configures an Overpass fetcher. Region is the state label
// appended to formatted addresses (e.g. "VIC").
type OverpassOptions struct {
	BaseURL     string
	UserAgent   string
	Region      string
	MinInterval time.Duration
	Client      *http.Client
}

// NewOverpass creates an Overpass address fetcher.
func NewOverpass(opts OverpassOptions) *Overpass {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://overpass-api.de/api/interpreter"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "coverage-cli/1.0"
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 1200 * time.Millisecond
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 150 * time.Second}
	}
	return &Overpass{
		client:    opts.Client,
		limiter:   rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		region:    opts.Region,
	}
}

// overpassElement is one node or way in an Overpass JSON response. Ways
// carry their coordinates in Center when the query uses `out center`.
type overpassElement struct {
	Type   string            `json:"type"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

// AddressesInBBox implements Client. Results are deduplicated
// case-insensitively on the formatted address and capped at limit.
func (o *Overpass) AddressesInBBox(ctx context.Context, bbox geo.BBox, limit int) ([]Address, error) {
	if limit <= 0 {
		return []Address{}, nil
	}

	query := fmt.Sprintf(`[out:json][timeout:120];
(
  node["addr:housenumber"]["addr:street"](%f,%f,%f,%f);
  way["addr:housenumber"]["addr:street"](%f,%f,%f,%f);
);
out center tags;`,
		bbox.South, bbox.West, bbox.North, bbox.East,
		bbox.South, bbox.West, bbox.North, bbox.East,
	)

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit wait")
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: status %d", resp.StatusCode)
	}

	var payload struct {
		Elements []overpassElement `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, eris.Wrap(err, "overpass: decode response")
	}

	seen := make(map[string]bool)
	out := make([]Address, 0, limit)
	for _, el := range payload.Elements {
		addr := formatAddress(el.Tags, o.region)
		if addr == "" {
			continue
		}
		lat, lon, ok := el.coords()
		if !ok {
			continue
		}
		key := strings.ToLower(addr)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Address{Address: addr, Lat: lat, Lon: lon})
		if len(out) >= limit {
			break
		}
	}

	zap.L().Debug("overpass: fetched addresses",
		zap.Int("elements", len(payload.Elements)),
		zap.Int("addresses", len(out)),
	)
	return out, nil
}

// coords returns the element's coordinates: nodes carry them directly, ways
// via the computed center.
func (el overpassElement) coords() (lat, lon float64, ok bool) {
	if el.Type == "node" {
		return el.Lat, el.Lon, true
	}
	if el.Center != nil {
		return el.Center.Lat, el.Center.Lon, true
	}
	return 0, 0, false
}

// formatAddress assembles a display address from OSM addr:* tags:
// "12 Example St Suburb VIC 3000". Returns "" when there is no street.
func formatAddress(tags map[string]string, region string) string {
	hn := strings.TrimSpace(tags["addr:housenumber"])
	st := strings.TrimSpace(tags["addr:street"])
	pc := strings.TrimSpace(tags["addr:postcode"])

	suburb := ""
	for _, key := range []string{"addr:suburb", "addr:city", "addr:town", "addr:locality"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			suburb = v
			break
		}
	}

	var parts []string
	switch {
	case hn != "" && st != "":
		parts = append(parts, hn+" "+st)
	case st != "":
		parts = append(parts, st)
	default:
		return ""
	}
	if suburb != "" {
		parts = append(parts, suburb)
	}
	if region != "" {
		parts = append(parts, region)
	}
	if pc != "" {
		parts = append(parts, pc)
	}
	return strings.Join(parts, " ")
}

// readBody drains a response body with a sanity cap.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read response body")
	}
	return body, nil
}
