package psoc

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/cache"
	"github.com/barangay-rbi/registry/internal/shared/auth"
	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/errors"
	"github.com/barangay-rbi/registry/internal/shared/events"
	"github.com/barangay-rbi/registry/internal/shared/metrics"
	"github.com/barangay-rbi/registry/internal/shared/types"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

const (
	maxTitleLength = 120
	customGroup    = "Custom occupations"
)

// Store is the storage the service uses; *Repository implements it.
type Store interface {
	Search(ctx context.Context, query string, limit int) ([]Occupation, error)
	Get(ctx context.Context, code string) (*Occupation, error)
	Create(ctx context.Context, o *Occupation) error
}

// Service answers occupation searches and creates custom occupations.
type Service struct {
	store     Store
	cache     *cache.SearchCache
	publisher events.Publisher
	cfg       config.SearchConfig
	logger    *zap.Logger
}

// NewService creates a PSOC service; c may be nil.
func NewService(store Store, c *cache.SearchCache, publisher events.Publisher, cfg config.SearchConfig, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{store: store, cache: c, publisher: publisher, cfg: cfg, logger: logger}
}

// Search returns occupations ranked by match score; ties keep storage order.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]typeahead.OccupationRecord, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if utf8.RuneCountInString(query) < s.cfg.MinQueryLength {
		metrics.RecordSearch(source, "short", time.Since(start))
		return []typeahead.OccupationRecord{}, nil
	}

	key := s.cache.Key(source, query, strconv.Itoa(limit))
	var records []typeahead.OccupationRecord
	if s.cache.Get(ctx, source, key, &records) {
		metrics.RecordSearch(source, "cached", time.Since(start))
		return records, nil
	}

	occupations, err := s.store.Search(ctx, query, limit)
	if err != nil {
		metrics.RecordSearch(source, "error", time.Since(start))
		s.logger.Error("occupation search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	records = make([]typeahead.OccupationRecord, 0, len(occupations))
	for _, o := range occupations {
		records = append(records, o.Record(Score(o.Title, query)))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].MatchScore > records[j].MatchScore
	})

	s.cache.Set(ctx, key, records)
	metrics.RecordSearch(source, "ok", time.Since(start))
	return records, nil
}

// Get returns one occupation by code.
func (s *Service) Get(ctx context.Context, code string) (typeahead.OccupationRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return typeahead.OccupationRecord{}, errors.BadRequest("occupation code is required")
	}
	o, err := s.store.Get(ctx, code)
	if err != nil {
		return typeahead.OccupationRecord{}, err
	}
	return o.Record(0), nil
}

// Resolve is a typeahead.ResolveFunc for stored occupation labels.
func (s *Service) Resolve(ctx context.Context, code string) (typeahead.Option, error) {
	rec, err := s.Get(ctx, code)
	if err != nil {
		return typeahead.Option{}, err
	}
	return typeahead.FromOccupationRecord(rec), nil
}

// CreateCustom stores a free-text occupation entered in the picker and
// returns it as an option ready to select.
func (s *Service) CreateCustom(ctx context.Context, title string, actor *auth.User) (typeahead.Option, error) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return typeahead.Option{}, errors.Validation("validation failed", map[string]string{
			"title": "title is required",
		})
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return typeahead.Option{}, errors.Validation("validation failed", map[string]string{
			"title": "title is too long",
		})
	}

	o := &Occupation{
		Code:      customCode(),
		Title:     title,
		Level:     LevelCustom,
		Hierarchy: customGroup + " > " + title,
		Custom:    true,
	}
	var barangay string
	if actor != nil {
		o.CreatedBy = actor.ID
		barangay = actor.BarangayCode
	}

	if err := s.store.Create(ctx, o); err != nil {
		return typeahead.Option{}, err
	}
	metrics.RecordOccupationCreated()

	if err := s.cache.Invalidate(ctx, source); err != nil {
		s.logger.Warn("failed to invalidate occupation search cache", zap.Error(err))
	}

	event := events.NewEvent(events.TypeOccupationCreated, source, map[string]any{
		"code":  o.Code,
		"title": o.Title,
	}).WithActor(o.CreatedBy, barangay)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}

	s.logger.Info("custom occupation created", zap.String("code", o.Code), zap.String("title", o.Title))
	return typeahead.FromOccupationRecord(o.Record(ScoreExact)), nil
}

// customCode is "CUSTOM-" plus eight hex digits of a fresh UUID.
func customCode() string {
	id := strings.ReplaceAll(types.NewID().String(), "-", "")
	return "CUSTOM-" + strings.ToUpper(id[:8])
}
