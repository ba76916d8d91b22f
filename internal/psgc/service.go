package psgc

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/cache"
	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/metrics"
	"github.com/barangay-rbi/registry/internal/shared/types"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

// Store is the storage the service reads from; *Repository implements it.
type Store interface {
	Search(ctx context.Context, params SearchParams) ([]Place, error)
	Get(ctx context.Context, code types.PSGCCode) (*Place, error)
}

// Service answers place searches, consulting the search cache first.
type Service struct {
	store  Store
	cache  *cache.SearchCache
	cfg    config.SearchConfig
	logger *zap.Logger
}

// NewService creates a PSGC service; c may be nil.
func NewService(store Store, c *cache.SearchCache, cfg config.SearchConfig, logger *zap.Logger) *Service {
	return &Service{store: store, cache: c, cfg: cfg, logger: logger}
}

// Search returns matching places as search records. Queries shorter than
// the configured minimum return no results without touching storage.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]typeahead.GeographicRecord, error) {
	start := time.Now()
	params.Query = strings.TrimSpace(params.Query)
	if params.Limit <= 0 {
		params.Limit = s.cfg.DefaultLimit
	}
	if utf8.RuneCountInString(params.Query) < s.cfg.MinQueryLength {
		metrics.RecordSearch(source, "short", time.Since(start))
		return []typeahead.GeographicRecord{}, nil
	}

	key := s.cache.Key(source, params.Query, string(params.Level), string(params.ParentCode), strconv.Itoa(params.Limit))
	var records []typeahead.GeographicRecord
	if s.cache.Get(ctx, source, key, &records) {
		metrics.RecordSearch(source, "cached", time.Since(start))
		return records, nil
	}

	places, err := s.store.Search(ctx, params)
	if err != nil {
		metrics.RecordSearch(source, "error", time.Since(start))
		s.logger.Error("place search failed", zap.String("query", params.Query), zap.Error(err))
		return nil, err
	}

	records = make([]typeahead.GeographicRecord, 0, len(places))
	for _, p := range places {
		records = append(records, p.Record())
	}
	s.cache.Set(ctx, key, records)
	metrics.RecordSearch(source, "ok", time.Since(start))
	return records, nil
}

// Get returns one place by code.
func (s *Service) Get(ctx context.Context, code string) (typeahead.GeographicRecord, error) {
	c, err := types.ParsePSGCCode(code)
	if err != nil {
		return typeahead.GeographicRecord{}, errors.BadRequest(err.Error())
	}
	p, err := s.store.Get(ctx, c)
	if err != nil {
		return typeahead.GeographicRecord{}, err
	}
	return p.Record(), nil
}

// Resolve is a typeahead.ResolveFunc for stored birth place labels.
func (s *Service) Resolve(ctx context.Context, code string) (typeahead.Option, error) {
	rec, err := s.Get(ctx, code)
	if err != nil {
		return typeahead.Option{}, err
	}
	return typeahead.FromGeographicRecord(rec), nil
}

// ParseLevel accepts "" (any level) or one of the four PSGC levels;
// "municipality" is folded into city.
func ParseLevel(s string) (types.GeoLevel, error) {
	switch l := types.GeoLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return "", nil
	case types.GeoLevelRegion, types.GeoLevelProvince, types.GeoLevelCity, types.GeoLevelBarangay:
		return l, nil
	case "municipality":
		return types.GeoLevelCity, nil
	default:
		return "", errors.BadRequest("unknown level " + strconv.Quote(s))
	}
}
