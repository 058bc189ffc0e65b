package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/history"
	"github.com/bioage-mcp-server/internal/scoring"
)

// TrendService summarizes how an owner's biological age moved over time.
type TrendService struct {
	store history.Store
}

// NewTrendService creates a new trend service
func NewTrendService(store history.Store) *TrendService {
	return &TrendService{store: store}
}

// WindowStart returns the earliest date included in rng, by calendar
// subtraction from now.
func WindowStart(rng domain.TrendRange, now time.Time) (time.Time, error) {
	switch rng {
	case domain.TrendRange3M:
		return now.AddDate(0, -3, 0), nil
	case domain.TrendRange6M:
		return now.AddDate(0, -6, 0), nil
	case domain.TrendRange1Y:
		return now.AddDate(-1, 0, 0), nil
	case domain.TrendRangeAll:
		return time.Unix(0, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidTrendRange, rng)
	}
}

// Trend returns the owner's assessments in rng, oldest first, with direction
// and change of biological age between the first and last point.
func (s *TrendService) Trend(ctx context.Context, ownerID string, rng domain.TrendRange, now time.Time) (*domain.Trend, error) {
	if rng == "" {
		rng = domain.TrendRange6M
	}
	since, err := WindowStart(rng, now)
	if err != nil {
		return nil, err
	}

	results, err := s.store.Since(ctx, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return Summarize(rng, results), nil
}

// Summarize builds a trend from results already in chronological order.
func Summarize(rng domain.TrendRange, results []*domain.AssessmentResult) *domain.Trend {
	trend := &domain.Trend{
		Range:     rng,
		Points:    make([]domain.TrendPoint, 0, len(results)),
		Direction: domain.TrendStable,
	}
	if len(results) == 0 {
		trend.Summary = "No assessments in this period"
		return trend
	}

	trend.MinBiologicalAge = math.Inf(1)
	trend.MaxBiologicalAge = math.Inf(-1)
	for _, r := range results {
		trend.Points = append(trend.Points, domain.TrendPoint{
			Date:             r.Date,
			BiologicalAge:    r.BiologicalAge,
			ChronologicalAge: r.ChronologicalAge,
			OverallHealth:    r.OverallHealth,
		})
		trend.MinBiologicalAge = math.Min(trend.MinBiologicalAge, r.BiologicalAge)
		trend.MaxBiologicalAge = math.Max(trend.MaxBiologicalAge, r.BiologicalAge)
	}

	first := results[0].BiologicalAge
	last := results[len(results)-1].BiologicalAge
	if len(results) >= 2 {
		trend.Change = scoring.Round1(last - first)
		switch {
		case last < first:
			trend.Direction = domain.TrendImproving
		case last > first:
			trend.Direction = domain.TrendDeclining
		}
	}

	switch trend.Direction {
	case domain.TrendImproving:
		trend.Summary = fmt.Sprintf("Your biological age has decreased by %.1f years", -trend.Change)
	case domain.TrendDeclining:
		trend.Summary = fmt.Sprintf("Your biological age has increased by %.1f years", trend.Change)
	default:
		trend.Summary = "Your biological age has remained stable"
	}
	return trend
}
