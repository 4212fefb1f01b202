// Package advisor serves recommendation, comparison and analytics requests
// over the property catalog.
//
// The advisor owns every side effect around the pure engine packages: it
// loads the catalog from the repository, screens it, ranks it, caches the
// response under the current catalog revision and publishes completed runs
// on the event bus for the history recorder.
package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/propvest/internal/analytics"
	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/financials"
	"github.com/opensource-finance/propvest/internal/observability"
	"github.com/opensource-finance/propvest/internal/repository"
	"github.com/opensource-finance/propvest/internal/scoring"
	"github.com/opensource-finance/propvest/internal/screening"
)

// CatalogRevisionKey is the cache counter bumped on every catalog write.
const CatalogRevisionKey = "catalog:revision"

// FilterRuleID identifies rejections caused by a request's own filter.
const FilterRuleID = "request-filter"

const maxHistoryLimit = 100

// Config bounds requests served by the advisor.
type Config struct {
	DefaultTopN  int
	MaxTopN      int
	HistoryLimit int
	ResultTTL    time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultTopN <= 0 {
		c.DefaultTopN = 5
	}
	if c.MaxTopN <= 0 {
		c.MaxTopN = 50
	}
	if c.DefaultTopN > c.MaxTopN {
		c.DefaultTopN = c.MaxTopN
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 20
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = 5 * time.Minute
	}
	return c
}

// Service orchestrates requests over the repository, cache, bus and engine.
type Service struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	scorer   *scoring.Scorer
	screener *screening.Engine
	cfg      Config
	tracer   trace.Tracer
}

// New creates an advisor. Cache and bus may be nil.
func New(repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer *scoring.Scorer, screener *screening.Engine, cfg Config) *Service {
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.DefaultTuning())
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		scorer:   scorer,
		screener: screener,
		cfg:      cfg.withDefaults(),
		tracer:   otel.Tracer("propvest-advisor"),
	}
}

// RecommendRequest selects a profile and optionally screens and bounds the result.
type RecommendRequest struct {
	domain.ProfileRef

	// Filter is a CEL expression a property must satisfy to be ranked.
	Filter string `json:"filter,omitempty"`

	// TopN bounds the number of recommendations. Zero selects the default.
	TopN int `json:"topN,omitempty"`
}

// RecommendResponse is the ranked result of one recommendation request.
type RecommendResponse struct {
	RunID           string                        `json:"runId"`
	Profile         domain.InvestorProfile        `json:"profile"`
	Recommendations []domain.ScoredRecommendation `json:"recommendations"`
	TotalAnalyzed   int                           `json:"totalAnalyzed"`
	ScreenedOut     int                           `json:"screenedOut"`
	Rejections      []screening.Rejection         `json:"rejections"`
	Filter          string                        `json:"filter,omitempty"`
	CatalogRevision int64                         `json:"catalogRevision"`
	Cached          bool                          `json:"cached"`
}

// ResolveProfile returns the profile a reference selects. A key is tried as
// a preset first, then as the id of a saved profile. Custom profiles are
// validated but never corrected.
func (s *Service) ResolveProfile(ctx context.Context, ref domain.ProfileRef) (domain.InvestorProfile, error) {
	key := strings.TrimSpace(ref.Key)
	switch {
	case key != "" && ref.Custom != nil, key == "" && ref.Custom == nil:
		return domain.InvestorProfile{}, &domain.ValidationError{
			Field:  "profile",
			Reason: "exactly one of profileKey or customProfile is required",
		}

	case ref.Custom != nil:
		p := *ref.Custom
		p.PreferredLocations = append([]string{}, ref.Custom.PreferredLocations...)
		p.Preset = false
		if strings.TrimSpace(p.Name) == "" {
			p.Name = "Custom Profile"
		}
		if err := p.Validate(); err != nil {
			return domain.InvestorProfile{}, err
		}
		return p, nil
	}

	if p, ok := scoring.Preset(key); ok {
		return p, nil
	}

	saved, err := s.repo.GetProfile(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.InvestorProfile{}, fmt.Errorf("profile %q: %w", key, repository.ErrNotFound)
	}
	if err != nil {
		return domain.InvestorProfile{}, eris.Wrapf(err, "load profile %s", key)
	}
	return *saved, nil
}

// Recommend ranks the catalog against the selected profile and returns the
// top results. Identical requests against an unchanged catalog are served
// from cache. Every completed request is published for history.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (resp *RecommendResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "advisor.Recommend")
	defer endSpan(span, &err)
	start := time.Now()

	profile, err := s.ResolveProfile(ctx, req.ProfileRef)
	if err != nil {
		return nil, err
	}

	topN, err := s.topN(req.TopN)
	if err != nil {
		return nil, err
	}

	filterExpr := strings.TrimSpace(req.Filter)
	var filter *screening.Filter
	if filterExpr != "" {
		if s.screener == nil {
			return nil, &domain.ValidationError{Field: "filter", Reason: "screening is not available"}
		}
		if filter, err = s.screener.Compile(filterExpr); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.String("profile", profile.Name),
		attribute.Int("top_n", topN),
		attribute.Bool("filtered", filter != nil),
	)

	revision := s.revision(ctx)
	key := "recommend:" + fingerprint(profile, filterExpr, topN, revision)

	if cached, ok := s.cachedRecommendation(ctx, key); ok {
		cached.RunID = newRunID()
		cached.Cached = true
		span.SetAttributes(attribute.Bool("cached", true))
		observability.ObserveRecommendation(true, 0)
		s.publishRun(ctx, cached)
		return cached, nil
	}

	properties, err := s.repo.ListProperties(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load catalog")
	}

	kept, rejections, err := s.screen(properties, filter)
	if err != nil {
		return nil, err
	}

	ranked, err := s.scorer.Rank(kept, profile)
	if err != nil {
		return nil, err
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	resp = &RecommendResponse{
		RunID:           newRunID(),
		Profile:         profile,
		Recommendations: ranked,
		TotalAnalyzed:   len(properties),
		ScreenedOut:     len(rejections),
		Rejections:      rejections,
		Filter:          filterExpr,
		CatalogRevision: revision,
	}

	s.store(ctx, key, resp)
	observability.ObserveRecommendation(false, len(kept))
	s.publishRun(ctx, resp)

	log.Info().
		Str("run_id", resp.RunID).
		Str("profile", profile.Name).
		Int("total_analyzed", resp.TotalAnalyzed).
		Int("screened_out", resp.ScreenedOut).
		Int("returned", len(ranked)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("recommendations generated")

	return resp, nil
}

func (s *Service) topN(n int) (int, error) {
	switch {
	case n == 0:
		return s.cfg.DefaultTopN, nil
	case n < 0:
		return 0, &domain.ValidationError{Field: "topN", Reason: "must be positive"}
	case n > s.cfg.MaxTopN:
		return 0, &domain.ValidationError{Field: "topN", Reason: fmt.Sprintf("must not exceed %d", s.cfg.MaxTopN)}
	}
	return n, nil
}

// screen applies the standing rules, then the request filter. Rejections
// keep catalog order within each stage.
func (s *Service) screen(properties []domain.Property, filter *screening.Filter) ([]domain.Property, []screening.Rejection, error) {
	kept := properties
	rejections := []screening.Rejection{}

	if s.screener != nil && s.screener.RulesCount() > 0 {
		var standing []screening.Rejection
		var err error
		kept, standing, err = s.screener.Apply(properties)
		if err != nil {
			return nil, nil, err
		}
		rejections = append(rejections, standing...)
	}

	if filter == nil {
		return kept, rejections, nil
	}

	matched := make([]domain.Property, 0, len(kept))
	for _, p := range kept {
		m, err := financials.ComputeMetrics(p)
		if err != nil {
			return nil, nil, err
		}
		ok, err := filter.Match(p, m)
		if err != nil {
			return nil, nil, &domain.ValidationError{Field: "filter", Reason: err.Error()}
		}
		if !ok {
			rejections = append(rejections, screening.Rejection{
				Property: p,
				RuleID:   FilterRuleID,
				Reason:   "does not match filter " + filter.Expression(),
			})
			continue
		}
		matched = append(matched, p)
	}
	return matched, rejections, nil
}

func (s *Service) publishRun(ctx context.Context, resp *RecommendResponse) {
	if s.bus == nil {
		return
	}

	run := domain.RecommendationRun{
		ID:              resp.RunID,
		Profile:         resp.Profile,
		Filter:          resp.Filter,
		TotalAnalyzed:   resp.TotalAnalyzed,
		ScreenedOut:     resp.ScreenedOut,
		Recommendations: resp.Recommendations,
		TraceID:         traceID(ctx),
		CreatedAt:       time.Now().UTC(),
	}
	s.publish(ctx, domain.TopicRecommendationGenerated, run)
}

// Compare builds a side-by-side table of the given catalog properties. The
// profile reference is optional; without it rows carry no score.
func (s *Service) Compare(ctx context.Context, ids []string, ref *domain.ProfileRef) (cmp *domain.Comparison, err error) {
	ctx, span := s.tracer.Start(ctx, "advisor.Compare")
	defer endSpan(span, &err)
	span.SetAttributes(attribute.Int("properties", len(ids)))

	if len(ids) < domain.MinCompareProperties || len(ids) > domain.MaxCompareProperties {
		return nil, &domain.InvalidComparisonError{Count: len(ids)}
	}

	var profile *domain.InvestorProfile
	if ref != nil && !ref.Empty() {
		p, err := s.ResolveProfile(ctx, *ref)
		if err != nil {
			return nil, err
		}
		profile = &p
	}

	properties := make([]domain.Property, 0, len(ids))
	for _, id := range ids {
		p, err := s.repo.GetProperty(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("property %q: %w", id, repository.ErrNotFound)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "load property %s", id)
		}
		properties = append(properties, *p)
	}

	return s.scorer.Compare(properties, profile)
}

// Analytics summarizes the catalog. Summaries are cached per catalog revision.
func (s *Service) Analytics(ctx context.Context) (summary domain.AnalyticsSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "advisor.Analytics")
	defer endSpan(span, &err)

	key := fmt.Sprintf("analytics:%d", s.revision(ctx))
	if s.cache != nil {
		if b, err := s.cache.Get(ctx, key); err == nil && b != nil {
			if err := json.Unmarshal(b, &summary); err == nil {
				return summary, nil
			}
		}
	}

	properties, err := s.repo.ListProperties(ctx)
	if err != nil {
		return domain.AnalyticsSummary{}, eris.Wrap(err, "load catalog")
	}

	summary = analytics.Aggregate(properties)
	s.store(ctx, key, summary)
	return summary, nil
}

// AddProperty validates and stores a new catalog property, then bumps the
// catalog revision so cached results go stale.
func (s *Service) AddProperty(ctx context.Context, p *domain.Property) (err error) {
	ctx, span := s.tracer.Start(ctx, "advisor.AddProperty")
	defer endSpan(span, &err)

	if p == nil {
		return &domain.ValidationError{Field: "property", Reason: "is required"}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	// A property whose metrics overflow would abort every later ranking.
	if _, err := financials.ComputeMetrics(*p); err != nil {
		return err
	}
	if err := s.repo.SaveProperty(ctx, p); err != nil {
		return eris.Wrap(err, "save property")
	}

	revision := s.bumpRevision(ctx)
	s.publish(ctx, domain.TopicPropertyAdded, p)

	log.Info().
		Str("property_id", p.ID).
		Str("location", p.Location).
		Int64("catalog_revision", revision).
		Msg("property added")
	return nil
}

// Property returns one catalog property.
func (s *Service) Property(ctx context.Context, id string) (*domain.Property, error) {
	p, err := s.repo.GetProperty(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("property %q: %w", id, repository.ErrNotFound)
	}
	return p, err
}

// Properties returns the whole catalog in insertion order.
func (s *Service) Properties(ctx context.Context) ([]domain.Property, error) {
	return s.repo.ListProperties(ctx)
}

// Listings returns the catalog with derived metrics, cheapest first. Equal
// prices keep insertion order.
func (s *Service) Listings(ctx context.Context) ([]domain.Listing, error) {
	properties, err := s.repo.ListProperties(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load catalog")
	}

	out := make([]domain.Listing, 0, len(properties))
	for _, p := range properties {
		m, err := financials.ComputeMetrics(p)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Listing{Property: p, Metrics: m})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price < out[j].Price
	})
	return out, nil
}

// SaveProfile validates and stores a named custom profile.
func (s *Service) SaveProfile(ctx context.Context, p *domain.InvestorProfile) (err error) {
	ctx, span := s.tracer.Start(ctx, "advisor.SaveProfile")
	defer endSpan(span, &err)

	if p == nil {
		return &domain.ValidationError{Field: "profile", Reason: "is required"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	if _, ok := scoring.Preset(p.Name); ok {
		return &domain.ValidationError{Field: "name", Reason: "is reserved for a preset"}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p.Preset = false

	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return eris.Wrap(err, "save profile")
	}
	s.publish(ctx, domain.TopicProfileSaved, p)

	log.Info().Str("profile_id", p.ID).Str("profile", p.Name).Msg("profile saved")
	return nil
}

// Profile returns a preset by key or a saved profile by id.
func (s *Service) Profile(ctx context.Context, key string) (domain.InvestorProfile, error) {
	return s.ResolveProfile(ctx, domain.ProfileRef{Key: key})
}

// Profiles lists the presets followed by saved profiles.
func (s *Service) Profiles(ctx context.Context) ([]domain.InvestorProfile, error) {
	saved, err := s.repo.ListProfiles(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "list profiles")
	}
	return append(scoring.Presets(), saved...), nil
}

// History returns the most recent recommendation runs. A limit of zero
// selects the configured default.
func (s *Service) History(ctx context.Context, limit int) ([]domain.RecommendationRun, error) {
	switch {
	case limit == 0:
		limit = s.cfg.HistoryLimit
	case limit < 0:
		return nil, &domain.ValidationError{Field: "limit", Reason: "must be positive"}
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	return s.repo.ListRecommendationRuns(ctx, limit)
}

// Ready checks the repository and, when configured, the cache and bus.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return eris.Wrap(err, "repository")
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return eris.Wrap(err, "cache")
		}
	}
	if s.bus != nil {
		if err := s.bus.Ping(ctx); err != nil {
			return eris.Wrap(err, "event bus")
		}
	}
	return nil
}

func (s *Service) revision(ctx context.Context) int64 {
	if s.cache == nil {
		return 0
	}
	n, err := s.cache.Counter(ctx, CatalogRevisionKey)
	if err != nil {
		log.Warn().Err(err).Msg("catalog revision unavailable")
		return 0
	}
	return n
}

func (s *Service) bumpRevision(ctx context.Context) int64 {
	if s.cache == nil {
		return 0
	}
	n, err := s.cache.IncrementCounter(ctx, CatalogRevisionKey, 0)
	if err != nil {
		log.Warn().Err(err).Msg("failed to bump catalog revision")
	}
	return n
}

func (s *Service) cachedRecommendation(ctx context.Context, key string) (*RecommendResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil, false
	}
	if b == nil {
		return nil, false
	}
	var resp RecommendResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding unreadable cache entry")
		return nil, false
	}
	return &resp, true
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cfg.ResultTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *Service) publish(ctx context.Context, topic string, v any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to encode event")
		return
	}
	if err := s.bus.Publish(ctx, topic, payload); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}

// fingerprint identifies a recommendation request by everything that can
// change its response.
func fingerprint(profile domain.InvestorProfile, filter string, topN int, revision int64) string {
	b, _ := json.Marshal(struct {
		Profile  domain.InvestorProfile `json:"p"`
		Filter   string                 `json:"f"`
		TopN     int                    `json:"n"`
		Revision int64                  `json:"r"`
	}{profile, filter, topN, revision})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func newRunID() string {
	return uuid.NewString()
}

func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
