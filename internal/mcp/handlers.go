package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/service"
)

// CalculateParams defines parameters for calculate_biological_age tool
type CalculateParams struct {
	ChronologicalAge *int           `json:"chronological_age,omitempty" jsonschema:"age in whole years; required unless a default age is configured"`
	Bloodwork        map[string]any `json:"bloodwork,omitempty" jsonschema:"bloodwork observations keyed by metric id"`
	Lifestyle        map[string]any `json:"lifestyle,omitempty" jsonschema:"lifestyle observations keyed by metric id"`
	Vitals           map[string]any `json:"vitals,omitempty" jsonschema:"vital sign observations keyed by metric id"`
}

// HistoryParams defines parameters for get_assessment_history tool
type HistoryParams struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of assessments to return"`
	Offset int `json:"offset,omitempty" jsonschema:"number of assessments to skip"`
}

// HistoryResult defines the result structure for get_assessment_history tool
type HistoryResult struct {
	Assessments []*domain.AssessmentResult `json:"assessments"`
	Total       int64                      `json:"total"`
}

// TrendParams defines parameters for get_health_trend tool
type TrendParams struct {
	Range string `json:"range,omitempty" jsonschema:"one of 3m, 6m, 1y, all; defaults to 6m"`
}

// CatalogParams defines parameters for get_metric_catalog tool
type CatalogParams struct {
	Category string `json:"category,omitempty" jsonschema:"bloodwork, lifestyle or vitals; all categories when empty"`
}

// CatalogResult defines the result structure for get_metric_catalog tool
type CatalogResult struct {
	Metrics       map[domain.Category][]domain.MetricDefinition `json:"metrics"`
	OrdinalLevels map[domain.MetricID][]string                  `json:"ordinal_levels"`
}

// handleCalculate handles the calculate_biological_age tool invocation
func (s *Server) handleCalculate(ctx context.Context, _ *mcp.CallToolRequest, params CalculateParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolCalculate).Info("Tool invoked")

	result, err := s.assessments.Calculate(ctx, service.CalculateRequest{
		OwnerID:          s.ownerID,
		ChronologicalAge: params.ChronologicalAge,
		Bloodwork:        params.Bloodwork,
		Lifestyle:        params.Lifestyle,
		Vitals:           params.Vitals,
	})
	if err != nil {
		return s.createErrorResult("Calculation failed", err), nil, nil
	}

	summary := fmt.Sprintf("Biological age %.1f (chronological %d), overall health %s, %d recommendation(s).",
		result.BiologicalAge, result.ChronologicalAge, result.OverallHealth, len(result.Recommendations))
	return s.createJSONResult(summary, result)
}

// handleHistory handles the get_assessment_history tool invocation
func (s *Server) handleHistory(ctx context.Context, _ *mcp.CallToolRequest, params HistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolHistory).Info("Tool invoked")

	if params.Limit < 0 || params.Offset < 0 {
		return s.createErrorResult("Invalid parameters", errors.New("limit and offset must not be negative")), nil, nil
	}

	results, err := s.assessments.History(ctx, s.ownerID, params.Limit, params.Offset)
	if err != nil {
		return s.createErrorResult("Failed to load history", err), nil, nil
	}
	total, err := s.assessments.Count(ctx, s.ownerID)
	if err != nil {
		return s.createErrorResult("Failed to count history", err), nil, nil
	}

	out := HistoryResult{Assessments: results, Total: total}
	return s.createJSONResult(fmt.Sprintf("%d of %d assessment(s).", len(results), total), out)
}

// handleTrend handles the get_health_trend tool invocation
func (s *Server) handleTrend(ctx context.Context, _ *mcp.CallToolRequest, params TrendParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolTrend).Info("Tool invoked")

	rng := domain.TrendRange(strings.ToLower(strings.TrimSpace(params.Range)))
	trend, err := s.trends.Trend(ctx, s.ownerID, rng, s.now())
	if err != nil {
		return s.createErrorResult("Trend analysis failed", err), nil, nil
	}
	return s.createJSONResult(trend.Summary, trend)
}

// handleCatalog handles the get_metric_catalog tool invocation
func (s *Server) handleCatalog(_ context.Context, _ *mcp.CallToolRequest, params CatalogParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolCatalog).Debug("Tool invoked")

	categories := domain.Categories
	if params.Category != "" {
		category := domain.Category(strings.ToLower(params.Category))
		if !category.IsValid() {
			return s.createErrorResult("Invalid parameters", fmt.Errorf("%w: %s", domain.ErrInvalidCategory, params.Category)), nil, nil
		}
		categories = []domain.Category{category}
	}

	catalog := s.assessments.Catalog()
	out := CatalogResult{
		Metrics:       make(map[domain.Category][]domain.MetricDefinition, len(categories)),
		OrdinalLevels: domain.OrdinalLevels,
	}
	count := 0
	for _, category := range categories {
		metrics := catalog.Metrics(category)
		out.Metrics[category] = metrics
		count += len(metrics)
	}
	return s.createJSONResult(fmt.Sprintf("%d metric(s).", count), out)
}

// createJSONResult renders a one-line summary followed by the JSON payload.
func (s *Server) createJSONResult(summary string, payload any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary + "\n\n" + string(data)},
		},
	}, payload, nil
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}
	s.logger.WithError(err).Warn(message)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
