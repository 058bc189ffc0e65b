package scoring

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/domain"
)

// Engine is the deterministic ScoringEngine. It is safe for concurrent use.
type Engine struct {
	catalog *domain.Catalog
	strict  bool
	logger  *logrus.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrictCatalog makes observations of undefined metrics fail the calculation
// with a CatalogError instead of being logged and skipped.
func WithStrictCatalog(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// NewEngine creates a deterministic engine over catalog. A nil catalog means the
// default catalog.
func NewEngine(catalog *domain.Catalog, logger *logrus.Logger, opts ...Option) *Engine {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	if logger == nil {
		logger = logrus.New()
	}
	e := &Engine{
		catalog: catalog,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements domain.ScoringEngine.
func (e *Engine) Name() string {
	return domain.EngineDeterministic
}

// Catalog returns the catalog the engine scores against.
func (e *Engine) Catalog() *domain.Catalog {
	return e.catalog
}

// Score implements domain.ScoringEngine. It either returns a complete result or
// an InputError / CatalogError; it never returns a partial result.
func (e *Engine) Score(_ context.Context, input domain.AssessmentInput) (*domain.AssessmentResult, error) {
	if input.ChronologicalAge <= 0 {
		return nil, domain.NewInputError("chronological_age", "must be a positive number of years", input.ChronologicalAge)
	}

	var scores domain.CategoryScores
	for _, category := range domain.Categories {
		score, err := e.CategoryScore(category, input.Set(category))
		if err != nil {
			return nil, err
		}
		switch category {
		case domain.CategoryBloodwork:
			scores.Bloodwork = score
		case domain.CategoryLifestyle:
			scores.Lifestyle = score
		case domain.CategoryVitals:
			scores.Vitals = score
		}
	}

	overall := Blend(scores)

	result := &domain.AssessmentResult{
		ID:               input.ID,
		OwnerID:          input.OwnerID,
		Date:             input.Now,
		ChronologicalAge: input.ChronologicalAge,
		BiologicalAge:    Project(input.ChronologicalAge, overall),
		Scores: domain.CategoryScores{
			Bloodwork: Round2(scores.Bloodwork),
			Lifestyle: Round2(scores.Lifestyle),
			Vitals:    Round2(scores.Vitals),
		},
		OverallScore:    Round2(overall),
		OverallHealth:   Classify(overall),
		Recommendations: Recommend(input),
		Engine:          e.Name(),
	}
	return result, nil
}

// CategoryScore returns the full-precision weighted score of one category.
func (e *Engine) CategoryScore(category domain.Category, set *domain.ObservationSet) (float64, error) {
	if set == nil {
		return NeutralScore, nil
	}

	subScores := make([]SubScore, 0, set.Len())
	for _, id := range set.IDs() {
		def, ok := e.catalog.Lookup(id)
		if !ok || def.Category != category {
			catErr := &domain.CatalogError{Metric: id, Category: category}
			if e.strict {
				return 0, catErr
			}
			e.logger.WithFields(logrus.Fields{
				"metric":   id,
				"category": category,
			}).Warn("Skipping observation without catalog definition")
			continue
		}

		value, _ := set.Get(id)
		score, ok := Normalize(def, value)
		if !ok {
			e.logger.WithFields(logrus.Fields{
				"metric": id,
				"kind":   value.Kind(),
			}).Debug("Observation value does not fit metric, treated as not observed")
			continue
		}
		subScores = append(subScores, SubScore{Score: score, Weight: def.Weight})
	}
	return Aggregate(subScores), nil
}
