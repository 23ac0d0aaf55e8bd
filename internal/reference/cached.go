package reference

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/opensource-finance/ticpe/internal/domain"
)

// CachedSource memoizes lookups of another source in a domain.Cache.
// Keys carry the dataset version so versions never mix. Cache failures are
// logged and the lookup falls through to the wrapped source.
type CachedSource struct {
	next    domain.ReferenceSource
	cache   domain.Cache
	version string
	ttl     time.Duration
}

// NewCachedSource wraps next. A zero ttl keeps entries until evicted.
func NewCachedSource(next domain.ReferenceSource, cache domain.Cache, version string, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, cache: cache, version: version, ttl: ttl}
}

// Invalidate drops every cached lookup of the version, e.g. after reseeding it.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.cache.DeletePrefix(ctx, domain.GlobalTenantID, c.key())
}

func (c *CachedSource) key(parts ...string) string {
	return "ref:" + c.version + ":" + strings.Join(parts, ":")
}

// cached reads key into out, or calls load and stores its result.
func cached[T any](ctx context.Context, c *CachedSource, key string, load func() (T, error)) (T, error) {
	var out T
	data, err := c.cache.Get(ctx, domain.GlobalTenantID, key)
	if err != nil {
		slog.Warn("reference cache read failed", "key", key, "error", err)
	} else if data != nil {
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		slog.Warn("reference cache entry corrupt", "key", key)
	}

	out, err = load()
	if err != nil {
		return out, err
	}

	data, err = json.Marshal(out)
	if err != nil {
		return out, nil
	}
	if err := c.cache.Set(ctx, domain.GlobalTenantID, key, data, c.ttl); err != nil {
		slog.Warn("reference cache write failed", "key", key, "error", err)
	}
	return out, nil
}

func (c *CachedSource) FuelRate(ctx context.Context, fuelTypes []domain.FuelType, sector domain.Sector) (float64, error) {
	names := make([]string, len(fuelTypes))
	for i, f := range fuelTypes {
		names[i] = string(f)
	}
	sort.Strings(names)
	key := c.key("fuel", strings.Join(names, "|"), string(sector))
	return cached(ctx, c, key, func() (float64, error) {
		return c.next.FuelRate(ctx, fuelTypes, sector)
	})
}

func (c *CachedSource) VehicleCoefficient(ctx context.Context, vehicleTypes []domain.VehicleType) (float64, error) {
	names := make([]string, len(vehicleTypes))
	for i, v := range vehicleTypes {
		names[i] = string(v)
	}
	sort.Strings(names)
	key := c.key("vehicle", strings.Join(names, "|"))
	return cached(ctx, c, key, func() (float64, error) {
		return c.next.VehicleCoefficient(ctx, vehicleTypes)
	})
}

func (c *CachedSource) SectorPerformance(ctx context.Context, sector domain.Sector) (float64, error) {
	return cached(ctx, c, c.key("sector", string(sector)), func() (float64, error) {
		return c.next.SectorPerformance(ctx, sector)
	})
}

func (c *CachedSource) Benchmark(ctx context.Context, sector domain.Sector, vehicleCount int) (*domain.BenchmarkRow, error) {
	key := c.key("benchmark", string(sector), strconv.Itoa(vehicleCount))
	return cached(ctx, c, key, func() (*domain.BenchmarkRow, error) {
		return c.next.Benchmark(ctx, sector, vehicleCount)
	})
}

func (c *CachedSource) MaturityRule(ctx context.Context, indicator string) (*domain.ScoringRule, error) {
	return cached(ctx, c, c.key("maturity", indicator), func() (*domain.ScoringRule, error) {
		return c.next.MaturityRule(ctx, indicator)
	})
}

var _ domain.ReferenceSource = (*CachedSource)(nil)
