// Package chains provides option-chain lookup with a calendar-aware
// cache in front of the upstream expirations endpoint.
package chains

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"ibkr-terminal/internal/broker"
	"ibkr-terminal/internal/config"
	"ibkr-terminal/internal/errors"
	"ibkr-terminal/internal/models"
	"ibkr-terminal/internal/store"
	"ibkr-terminal/pkg/utils"
)

// Service looks up strike/expiration data for underlyings, batching
// upstream requests by month and caching results until a fixed daily
// boundary in the exchange timezone.
type Service struct {
	broker  broker.Broker
	kv      store.KV
	breaker *gobreaker.CircuitBreaker
	cfg     config.ChainsConfig
	cache   config.CacheConfig
	loc     *time.Location
	log     zerolog.Logger
}

// NewService creates a chain lookup service. The circuit breaker guards
// the upstream endpoint, which is known to apply server-side pacing
// under heavy use.
func NewService(b broker.Broker, kv store.KV, cfg config.ChainsConfig, cache config.CacheConfig, loc *time.Location, log zerolog.Logger) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ChainFetch",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 4 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
		},
	})
	return &Service{broker: b, kv: kv, breaker: breaker, cfg: cfg, cache: cache, loc: loc, log: log}
}

// NormalizeSymbol maps request symbols onto the underlying used for
// chain lookups. Weekly index classes quote against the base index.
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "SPXW" {
		return "SPX"
	}
	return symbol
}

func cacheKey(symbol string) string {
	return "chains/" + symbol
}

// Lookup returns the expiration map for a symbol. A cache hit with a
// non-empty stored value short-circuits without any network activity
// unless forceRefresh is set; forced refreshes bypass reads but still
// write. Partial upstream results are returned to the caller but never
// cached.
func (s *Service) Lookup(ctx context.Context, symbol string, forceRefresh bool) (models.ExpirationMap, error) {
	symbol = NormalizeSymbol(symbol)
	log := s.log.With().Str("symbol", symbol).Logger()

	if !forceRefresh {
		if cached, ok := s.readCache(ctx, symbol); ok {
			return cached, nil
		}
	}

	contract, months, err := s.resolveRequest(ctx, symbol)
	if err != nil {
		return nil, err
	}
	log.Info().Strs("months", months).Msg("fetching strikes")

	merged, failed := s.fetchBuckets(ctx, contract, months, log)
	if len(merged) == 0 {
		return nil, errors.NewFetchError(symbol, "", errors.ErrUpstreamFetch)
	}
	for _, strikes := range merged {
		sort.Float64s(strikes)
	}

	// Persist only complete results: a transient upstream failure must
	// not poison the cache. The caller still gets the partial data.
	if failed == 0 && merged.Complete() {
		s.writeCache(ctx, symbol, merged)
	} else {
		log.Warn().Int("failed_buckets", failed).Msg("incomplete chain fetch, not caching")
	}
	return merged, nil
}

// LookupAll resolves chains for several symbols, isolating per-symbol
// failures. The error from the last failing symbol is logged, not
// returned; symbols that produced data appear in the result.
func (s *Service) LookupAll(ctx context.Context, symbols []string, forceRefresh bool) map[string]models.ExpirationMap {
	out := make(map[string]models.ExpirationMap, len(symbols))
	for _, symbol := range symbols {
		chain, err := s.Lookup(ctx, symbol, forceRefresh)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("chain lookup failed")
			continue
		}
		out[NormalizeSymbol(symbol)] = chain
	}
	return out
}

// readCache returns a cached, complete expiration map if one exists.
func (s *Service) readCache(ctx context.Context, symbol string) (models.ExpirationMap, bool) {
	raw, ok, err := s.kv.Get(ctx, cacheKey(symbol))
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var chain models.ExpirationMap
	if err := json.Unmarshal(raw, &chain); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("discarding undecodable cache entry")
		return nil, false
	}
	if !chain.Complete() {
		return nil, false
	}
	return chain, true
}

// writeCache persists a chain until the anchored expiry instant. Cache
// write failures are logged, never raised.
func (s *Service) writeCache(ctx context.Context, symbol string, chain models.ExpirationMap) {
	raw, err := json.Marshal(chain)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache encode failed")
		return
	}
	now := time.Now()
	expireAt := utils.CacheExpiry(now, s.cache.ExpiryDays, s.cache.ExpiryHour, s.loc)
	if err := s.kv.Set(ctx, cacheKey(symbol), raw, expireAt.Sub(now)); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache write failed")
		return
	}
	s.log.Debug().Str("symbol", symbol).Time("expire_at", expireAt).Msg("cached chain")
}

// resolveRequest turns a symbol into the contract shell and YYYYMM month
// buckets to fetch. Exact option symbols pin the request to their own
// expiration; everything else spans the trading days ahead.
func (s *Service) resolveRequest(ctx context.Context, symbol string) (models.Contract, []string, error) {
	contract := models.ParseSymbol(symbol)

	if contract.IsOption() {
		// All strikes for the option's own date.
		contract.Strike = 0
		return contract, []string{BucketForDate(contract.Expiration)}, nil
	}

	// Re-tag the underlying so the upstream resolver searches option
	// classes generally instead of pinning to one instrument id.
	switch contract.SecType {
	case models.SecStock:
		contract.SecType = models.SecOption
		contract.ConID = 0
	case models.SecFuture:
		contract.SecType = models.SecFutureOption
		contract.ConID = 0
	case models.SecIndex:
		qualified, err := s.broker.Qualify(ctx, contract)
		if err != nil {
			return models.Contract{}, nil, errors.Wrapf(err, "qualify index %s", symbol)
		}
		contract = qualified
	}

	days, err := s.broker.TradingDays(ctx, s.cfg.LookaheadDays)
	if err != nil || len(days) == 0 {
		// Degrade to the weekday calendar; it misses holidays but the
		// month buckets still cover the same span.
		s.log.Warn().Err(err).Msg("trading calendar unavailable, using weekday fallback")
		days = utils.WeekdaysAhead(time.Now().In(s.loc), s.cfg.LookaheadDays)
	}
	return contract, MonthBuckets(days), nil
}

// fetchBuckets issues one upstream fetch per month bucket, concurrently,
// each behind the pacing breaker and a bounded retry. Returns the merged
// map and the count of buckets that produced nothing.
func (s *Service) fetchBuckets(ctx context.Context, contract models.Contract, months []string, log zerolog.Logger) (models.ExpirationMap, int) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	retryCfg := utils.DefaultRetryConfig()
	if s.cfg.FetchAttempts > 0 {
		retryCfg.MaxAttempts = s.cfg.FetchAttempts
	}

	merged := make(models.ExpirationMap)
	var mu sync.Mutex
	var failed int

	var g errgroup.Group
	for _, month := range months {
		month := month
		g.Go(func() error {
			part, err := utils.RetryWithResult(ctx, retryCfg, func() (models.ExpirationMap, error) {
				res, err := s.breaker.Execute(func() (interface{}, error) {
					return s.broker.FetchExpirations(ctx, contract, []string{month})
				})
				if err != nil {
					return nil, err
				}
				return res.(models.ExpirationMap), nil
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil || !part.Complete() {
				if err != nil {
					log.Warn().Err(errors.NewFetchError(contract.Symbol, month, err)).Msg("bucket fetch failed")
				}
				failed++
				return nil
			}
			merged.Merge(part)
			return nil
		})
	}
	_ = g.Wait()
	return merged, failed
}

// MonthBuckets derives the sorted set of distinct YYYYMM buckets spanned
// by the given dates, so one fetch per month retrieves every valid
// expiration in that month instead of issuing one request per date.
func MonthBuckets(dates []time.Time) []string {
	seen := make(map[string]bool, len(dates))
	var out []string
	for _, d := range dates {
		k := d.Format("200601")
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// BucketForDate returns the YYYYMM bucket containing a YYYYMMDD date.
func BucketForDate(date string) string {
	if len(date) < 6 {
		return date
	}
	return date[:6]
}
