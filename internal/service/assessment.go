package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/history"
	"github.com/bioage-mcp-server/internal/monitoring"
)

// ErrProfilesUnavailable is returned by profile operations when no profile
// repository is configured.
var ErrProfilesUnavailable = errors.New("profiles are not available in this deployment")

// ErrScoringFailed wraps scoring engine failures that are not caused by the
// request itself.
var ErrScoringFailed = errors.New("scoring engine failed")

// CalculateRequest carries the loosely typed observations of one calculation.
type CalculateRequest struct {
	OwnerID          string         `json:"-"`
	ChronologicalAge *int           `json:"chronological_age,omitempty"`
	Bloodwork        map[string]any `json:"bloodwork,omitempty"`
	Lifestyle        map[string]any `json:"lifestyle,omitempty"`
	Vitals           map[string]any `json:"vitals,omitempty"`
}

// AssessmentService runs calculations and manages each owner's history.
type AssessmentService struct {
	engine   domain.ScoringEngine
	catalog  *domain.Catalog
	store    history.Store
	profiles domain.ProfileRepository
	config   domain.AssessmentConfig
	metrics  *monitoring.Metrics
	logger   *logrus.Logger

	now   func() time.Time
	newID func() string
}

// Option customizes an AssessmentService.
type Option func(*AssessmentService)

// WithProfiles enables profile lookups for age resolution and profile endpoints.
func WithProfiles(repo domain.ProfileRepository) Option {
	return func(s *AssessmentService) { s.profiles = repo }
}

// WithMetrics records completed assessments.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *AssessmentService) { s.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AssessmentService) { s.now = now }
}

// WithIDGenerator replaces the UUID generator used for assessment ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *AssessmentService) { s.newID = newID }
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	engine domain.ScoringEngine,
	catalog *domain.Catalog,
	store history.Store,
	config domain.AssessmentConfig,
	logger *logrus.Logger,
	opts ...Option,
) *AssessmentService {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	if logger == nil {
		logger = logrus.New()
	}
	s := &AssessmentService{
		engine:  engine,
		catalog: catalog,
		store:   store,
		config:  config,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the metric catalog requests are parsed against.
func (s *AssessmentService) Catalog() *domain.Catalog {
	return s.catalog
}

// Calculate scores the request, records the result in the owner's history and
// returns it.
func (s *AssessmentService) Calculate(ctx context.Context, req CalculateRequest) (*domain.AssessmentResult, error) {
	if req.OwnerID == "" {
		return nil, domain.NewInputError("user_id", "owner is required", nil)
	}

	age, err := s.resolveAge(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	input := domain.AssessmentInput{
		ID:               s.newID(),
		OwnerID:          req.OwnerID,
		Now:              now,
		ChronologicalAge: age,
		Bloodwork:        s.parseSet(req.OwnerID, now, domain.CategoryBloodwork, req.Bloodwork),
		Lifestyle:        s.parseSet(req.OwnerID, now, domain.CategoryLifestyle, req.Lifestyle),
		Vitals:           s.parseSet(req.OwnerID, now, domain.CategoryVitals, req.Vitals),
	}

	result, err := s.engine.Score(ctx, input)
	if err != nil {
		if isCallerError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrScoringFailed, err)
	}

	if err := s.store.Append(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save assessment: %w", err)
	}
	s.metrics.ObserveAssessment(result)

	s.logger.WithFields(logrus.Fields{
		"assessment_id":     result.ID,
		"owner_id":          result.OwnerID,
		"engine":            result.Engine,
		"chronological_age": result.ChronologicalAge,
		"biological_age":    result.BiologicalAge,
		"overall_health":    result.OverallHealth,
	}).Info("Assessment completed")

	return result, nil
}

// resolveAge uses the explicit age, then the profile date of birth, then the
// configured missing-age policy.
func (s *AssessmentService) resolveAge(ctx context.Context, req CalculateRequest) (int, error) {
	if req.ChronologicalAge != nil {
		if *req.ChronologicalAge <= 0 {
			return 0, domain.NewInputError("chronological_age", "must be a positive number of years", *req.ChronologicalAge)
		}
		return *req.ChronologicalAge, nil
	}

	if s.profiles != nil {
		profile, err := s.profiles.GetByID(ctx, req.OwnerID)
		switch {
		case err == nil && profile.DateOfBirth != nil:
			age := ChronologicalAge(*profile.DateOfBirth, s.now())
			if age <= 0 {
				return 0, domain.NewInputError("date_of_birth", "does not yield a positive age", profile.DateOfBirth.Format("2006-01-02"))
			}
			return age, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return 0, fmt.Errorf("failed to load profile: %w", err)
		}
	}

	if s.config.MissingAgePolicy == domain.MissingAgeDefault && s.config.DefaultAge > 0 {
		s.logger.WithField("owner_id", req.OwnerID).Debug("No chronological age available, using default")
		return s.config.DefaultAge, nil
	}
	return 0, domain.NewInputError("chronological_age", "is required when the profile has no date of birth", nil)
}

func (s *AssessmentService) parseSet(ownerID string, now time.Time, category domain.Category, raw map[string]any) *domain.ObservationSet {
	if raw == nil {
		return nil
	}
	set, unknown := domain.ParseObservationSet(s.catalog, category, raw)
	set.OwnerID = ownerID
	set.Date = now
	if len(unknown) > 0 {
		s.logger.WithFields(logrus.Fields{
			"category": category,
			"metrics":  unknown,
		}).Debug("Observations reference metrics outside the catalog")
	}
	return set
}

// History returns a page of the owner's assessments, most recent first.
// A non-positive limit uses the configured page size.
func (s *AssessmentService) History(ctx context.Context, ownerID string, limit, offset int) ([]*domain.AssessmentResult, error) {
	if ownerID == "" {
		return nil, domain.NewInputError("user_id", "owner is required", nil)
	}
	if limit <= 0 {
		limit = s.config.HistoryPageSize
	}
	if limit > history.DefaultListLimit {
		limit = history.DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, ownerID, limit, offset)
}

// Count returns how many assessments the owner has.
func (s *AssessmentService) Count(ctx context.Context, ownerID string) (int64, error) {
	return s.store.Count(ctx, ownerID)
}

// Get returns one of the owner's assessments.
func (s *AssessmentService) Get(ctx context.Context, ownerID, id string) (*domain.AssessmentResult, error) {
	return s.store.Get(ctx, ownerID, id)
}

// ClearHistory deletes all of the owner's assessments.
func (s *AssessmentService) ClearHistory(ctx context.Context, ownerID string) (int64, error) {
	if ownerID == "" {
		return 0, domain.NewInputError("user_id", "owner is required", nil)
	}
	n, err := s.store.Clear(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"owner_id": ownerID, "deleted": n}).Info("Assessment history cleared")
	return n, nil
}

// GetProfile returns the owner's profile.
func (s *AssessmentService) GetProfile(ctx context.Context, ownerID string) (*domain.Profile, error) {
	if s.profiles == nil {
		return nil, ErrProfilesUnavailable
	}
	return s.profiles.GetByID(ctx, ownerID)
}

// UpdateProfile stores profile as the owner's profile.
func (s *AssessmentService) UpdateProfile(ctx context.Context, ownerID string, profile *domain.Profile) (*domain.Profile, error) {
	if s.profiles == nil {
		return nil, ErrProfilesUnavailable
	}
	if profile == nil {
		return nil, domain.NewInputError("profile", "is required", nil)
	}
	profile.ID = ownerID
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
