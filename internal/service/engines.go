package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/monitoring"
	"github.com/bioage-mcp-server/internal/scoring"
	"github.com/bioage-mcp-server/pkg/external"
)

// FallbackEngine scores with the primary engine and, when it fails, with the
// fallback. Caller errors are returned as is.
type FallbackEngine struct {
	primary  domain.ScoringEngine
	fallback domain.ScoringEngine
	metrics  *monitoring.Metrics
	logger   *logrus.Logger
}

// NewFallbackEngine creates a new fallback engine
func NewFallbackEngine(primary, fallback domain.ScoringEngine, metrics *monitoring.Metrics, logger *logrus.Logger) *FallbackEngine {
	return &FallbackEngine{primary: primary, fallback: fallback, metrics: metrics, logger: logger}
}

// Name identifies the engine pair.
func (e *FallbackEngine) Name() string {
	return e.primary.Name() + "_with_fallback"
}

// Score implements domain.ScoringEngine.
func (e *FallbackEngine) Score(ctx context.Context, input domain.AssessmentInput) (*domain.AssessmentResult, error) {
	result, err := e.primary.Score(ctx, input)
	if err == nil {
		return result, nil
	}
	if isCallerError(err) || ctx.Err() != nil {
		return nil, err
	}

	e.logger.WithError(err).WithFields(logrus.Fields{
		"assessment_id": input.ID,
		"primary":       e.primary.Name(),
		"fallback":      e.fallback.Name(),
	}).Warn("Primary scoring engine failed, using fallback")
	e.metrics.ObserveFallback()

	return e.fallback.Score(ctx, input)
}

// ShadowEngine returns the primary engine's result and scores the same input
// with a baseline engine to record how far they diverge.
type ShadowEngine struct {
	primary  domain.ScoringEngine
	baseline domain.ScoringEngine
	metrics  *monitoring.Metrics
	logger   *logrus.Logger
}

// NewShadowEngine creates a new shadow engine
func NewShadowEngine(primary, baseline domain.ScoringEngine, metrics *monitoring.Metrics, logger *logrus.Logger) *ShadowEngine {
	return &ShadowEngine{primary: primary, baseline: baseline, metrics: metrics, logger: logger}
}

// Name reports the primary engine's name.
func (e *ShadowEngine) Name() string {
	return e.primary.Name()
}

// Score implements domain.ScoringEngine.
func (e *ShadowEngine) Score(ctx context.Context, input domain.AssessmentInput) (*domain.AssessmentResult, error) {
	result, err := e.primary.Score(ctx, input)
	if err != nil {
		return nil, err
	}

	baseline, err := e.baseline.Score(ctx, input)
	if err != nil {
		e.logger.WithError(err).WithField("assessment_id", input.ID).Debug("Baseline engine failed during shadow comparison")
		return result, nil
	}

	divergence := result.BiologicalAge - baseline.BiologicalAge
	e.metrics.ObserveDivergence(divergence)
	e.logger.WithFields(logrus.Fields{
		"assessment_id":   input.ID,
		"primary":         result.Engine,
		"primary_label":   result.OverallHealth,
		"baseline_label":  baseline.OverallHealth,
		"divergence_year": scoring.Round1(divergence),
	}).Info("Shadow comparison")

	return result, nil
}

func isCallerError(err error) bool {
	var inputErr *domain.InputError
	var catalogErr *domain.CatalogError
	return errors.As(err, &inputErr) || errors.As(err, &catalogErr)
}

// BuildEngine assembles the configured scoring engine. The deterministic engine
// is always built and serves as fallback and shadow baseline.
func BuildEngine(
	config domain.AssessmentConfig,
	aiConfig domain.AIConfig,
	catalog *domain.Catalog,
	metrics *monitoring.Metrics,
	logger *logrus.Logger,
) (domain.ScoringEngine, error) {
	if logger == nil {
		logger = logrus.New()
	}
	deterministic := scoring.NewEngine(catalog, logger, scoring.WithStrictCatalog(config.StrictCatalog))

	var engine domain.ScoringEngine
	switch config.Engine {
	case "", domain.EngineDeterministic:
		return deterministic, nil
	case domain.EngineAI:
		ai, err := external.NewOpenAIEngine(aiConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI engine: %w", err)
		}
		engine = ai
	case domain.EngineAIWithFallback:
		ai, err := external.NewOpenAIEngine(aiConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI engine: %w", err)
		}
		engine = NewFallbackEngine(ai, deterministic, metrics, logger)
	default:
		return nil, fmt.Errorf("unknown assessment engine: %s", config.Engine)
	}

	if config.ShadowCompare {
		engine = NewShadowEngine(engine, deterministic, metrics, logger)
	}
	logger.WithFields(logrus.Fields{
		"engine": engine.Name(),
		"shadow": config.ShadowCompare,
	}).Info("Scoring engine configured")
	return engine, nil
}
