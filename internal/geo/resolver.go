package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"sentinel/internal/model"
)

const (
	cacheTTL        = time.Hour
	cacheMaxEntries = 1000
	cacheEvictBatch = 100
)

// privatePrefixes cover RFC1918, loopback and link-local ranges; addresses
// matching any of them resolve to the fixed local record with no network
// call.
var privatePrefixes = []string{
	"10.", "172.16.", "172.17.", "172.18.", "172.19.",
	"172.20.", "172.21.", "172.22.", "172.23.", "172.24.",
	"172.25.", "172.26.", "172.27.", "172.28.", "172.29.",
	"172.30.", "172.31.", "192.168.", "127.", "::1", "fe80:",
}

// Resolver resolves an IP to location metadata through a primary provider
// (ip-api.com, no key) with fallback to ipinfo.io (optional key). Results
// are cached per IP. Resolve never fails; it degrades to an all-Unknown
// record.
type Resolver struct {
	apiKey  string
	timeout time.Duration
	client  *http.Client
	cache   *lookupCache
	logger  *slog.Logger

	ipapiBase  string
	ipinfoBase string

	ipapiBreaker  *gobreaker.CircuitBreaker[model.GeoInfo]
	ipinfoBreaker *gobreaker.CircuitBreaker[model.GeoInfo]
}

func NewResolver(apiKey string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		apiKey:        apiKey,
		timeout:       timeout,
		client:        &http.Client{Timeout: timeout},
		cache:         newLookupCache(cacheTTL, cacheMaxEntries, cacheEvictBatch),
		logger:        logger,
		ipapiBase:     "http://ip-api.com/json",
		ipinfoBase:    "https://ipinfo.io",
		ipapiBreaker:  newProviderBreaker("ip-api"),
		ipinfoBreaker: newProviderBreaker("ipinfo"),
	}
}

// A provider that keeps erroring is short-circuited for a while; an open
// breaker counts as a provider failure and triggers the same fallback path.
func newProviderBreaker(name string) *gobreaker.CircuitBreaker[model.GeoInfo] {
	return gobreaker.NewCircuitBreaker[model.GeoInfo](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// LocalInfo is the fixed record attached to traffic from private ranges.
func LocalInfo() model.GeoInfo {
	return model.GeoInfo{Country: "Local", CountryCode: "LO", City: "Local Network", Org: "Local"}
}

// UnknownInfo is the degraded record returned when every provider fails.
func UnknownInfo() model.GeoInfo {
	return model.GeoInfo{Country: "Unknown", CountryCode: "??", City: "Unknown", Org: "Unknown"}
}

func IsPrivate(ip string) bool {
	if ip == "" {
		return true
	}
	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}

func (r *Resolver) Resolve(ctx context.Context, ip string) model.GeoInfo {
	if IsPrivate(ip) {
		return LocalInfo()
	}

	now := time.Now().UTC()
	if info, ok := r.cache.get(ip, now); ok {
		return info
	}

	info, err := r.ipapiBreaker.Execute(func() (model.GeoInfo, error) {
		return r.fetchIPAPI(ctx, ip)
	})
	if err != nil {
		if r.logger != nil {
			r.logger.Debug("ip-api lookup failed", "ip", ip, "err", err)
		}
		info, err = r.ipinfoBreaker.Execute(func() (model.GeoInfo, error) {
			return r.fetchIPInfo(ctx, ip)
		})
	}
	if err != nil {
		if r.logger != nil {
			r.logger.Debug("ipinfo lookup failed", "ip", ip, "err", err)
		}
		info = UnknownInfo()
	}

	r.cache.put(ip, info, now)
	return info
}

type ipapiResponse struct {
	Status      string  `json:"status"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Org         string  `json:"org"`
	ISP         string  `json:"isp"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

func (r *Resolver) fetchIPAPI(ctx context.Context, ip string) (model.GeoInfo, error) {
	url := fmt.Sprintf("%s/%s?fields=status,country,countryCode,region,city,org,isp,lat,lon,timezone",
		r.ipapiBase, ip)
	body, err := r.fetch(ctx, url)
	if err != nil {
		return model.GeoInfo{}, err
	}
	var resp ipapiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.GeoInfo{}, fmt.Errorf("decode ip-api response: %w", err)
	}
	if resp.Status != "success" {
		return model.GeoInfo{}, fmt.Errorf("ip-api status %q", resp.Status)
	}
	return model.GeoInfo{
		Country:     resp.Country,
		CountryCode: resp.CountryCode,
		Region:      resp.Region,
		City:        resp.City,
		Org:         resp.Org,
		ISP:         resp.ISP,
		Lat:         resp.Lat,
		Lon:         resp.Lon,
		Timezone:    resp.Timezone,
	}, nil
}

type ipinfoResponse struct {
	Country  string `json:"country"`
	Region   string `json:"region"`
	City     string `json:"city"`
	Org      string `json:"org"`
	Loc      string `json:"loc"`
	Timezone string `json:"timezone"`
}

func (r *Resolver) fetchIPInfo(ctx context.Context, ip string) (model.GeoInfo, error) {
	url := fmt.Sprintf("%s/%s/json", r.ipinfoBase, ip)
	if r.apiKey != "" {
		url += "?token=" + r.apiKey
	}
	body, err := r.fetch(ctx, url)
	if err != nil {
		return model.GeoInfo{}, err
	}
	var resp ipinfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.GeoInfo{}, fmt.Errorf("decode ipinfo response: %w", err)
	}
	info := model.GeoInfo{
		Country:     resp.Country,
		CountryCode: resp.Country,
		Region:      resp.Region,
		City:        resp.City,
		Org:         resp.Org,
		ISP:         resp.Org,
		Timezone:    resp.Timezone,
	}
	if lat, lon, ok := parseLoc(resp.Loc); ok {
		info.Lat = lat
		info.Lon = lon
	}
	return info, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status " + strconv.Itoa(resp.StatusCode))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func parseLoc(loc string) (lat, lon float64, ok bool) {
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
