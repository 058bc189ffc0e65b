package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/middleware"
	"github.com/bioage-mcp-server/internal/service"
)

// handleHealth reports each dependency and an overall status.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	components := gin.H{}
	for _, checker := range s.deps.Health {
		if err := checker.Health(ctx); err != nil {
			components[checker.Name()] = gin.H{"status": "unhealthy", "error": err.Error()}
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		components[checker.Name()] = gin.H{"status": "healthy"}
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": components,
		"timestamp":  s.now(),
		"version":    Version,
	})
}

func (s *Server) handleCatalog(c *gin.Context) {
	catalog := s.deps.Assessments.Catalog()
	out := gin.H{}
	for _, category := range domain.Categories {
		out[category.String()] = catalog.Metrics(category)
	}
	c.JSON(http.StatusOK, gin.H{"metrics": out, "ordinal_levels": domain.OrdinalLevels})
}

func (s *Server) handleCalculate(c *gin.Context) {
	var req service.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, domain.NewInputError("body", "invalid JSON: "+err.Error(), nil))
		return
	}
	req.OwnerID = middleware.OwnerID(c)

	result, err := s.deps.Assessments.Calculate(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ownerID := middleware.OwnerID(c)
	results, err := s.deps.Assessments.History(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.deps.Assessments.Count(c.Request.Context(), ownerID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": results,
		"total":       total,
		"offset":      offset,
	})
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	result, err := s.deps.Assessments.Get(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleClearHistory(c *gin.Context) {
	n, err := s.deps.Assessments.ClearHistory(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) handleTrend(c *gin.Context) {
	rng := domain.TrendRange(strings.ToLower(c.DefaultQuery("range", string(domain.TrendRange6M))))
	trend, err := s.deps.Trends.Trend(c.Request.Context(), middleware.OwnerID(c), rng, s.now())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	profile, err := s.deps.Assessments.GetProfile(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// profileRequest accepts the date of birth as a calendar date.
type profileRequest struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	DateOfBirth string   `json:"date_of_birth"`
	Gender      string   `json:"gender"`
	HeightCm    *float64 `json:"height_cm"`
	WeightKg    *float64 `json:"weight_kg"`
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, domain.NewInputError("body", "invalid JSON: "+err.Error(), nil))
		return
	}

	profile := &domain.Profile{
		Email:    req.Email,
		Name:     req.Name,
		Gender:   domain.Gender(strings.ToLower(req.Gender)),
		HeightCm: req.HeightCm,
		WeightKg: req.WeightKg,
	}
	if !profile.Gender.IsValid() {
		s.writeError(c, domain.NewInputError("gender", "must be male, female or other", req.Gender))
		return
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			s.writeError(c, domain.NewInputError("date_of_birth", "must be a date in YYYY-MM-DD format", req.DateOfBirth))
			return
		}
		if dob.After(s.now()) {
			s.writeError(c, domain.NewInputError("date_of_birth", "must not be in the future", req.DateOfBirth))
			return
		}
		profile.DateOfBirth = &dob
	}

	saved, err := s.deps.Assessments.UpdateProfile(c.Request.Context(), middleware.OwnerID(c), profile)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewInputError(name, "must be a non-negative integer", raw)
	}
	return n, nil
}

// writeError maps service errors onto API error codes and status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var (
		inputErr   *domain.InputError
		catalogErr *domain.CatalogError
		status     int
		apiErr     *domain.APIError
	)
	switch {
	case errors.As(err, &inputErr):
		status = http.StatusBadRequest
		apiErr = domain.NewAPIError(domain.ErrCodeInvalidInput, "Invalid input", inputErr.Error(), requestID)
	case errors.As(err, &catalogErr):
		status = http.StatusUnprocessableEntity
		apiErr = domain.NewAPIError(domain.ErrCodeCatalog, "Unknown metric", catalogErr.Error(), requestID)
	case errors.Is(err, domain.ErrInvalidTrendRange):
		status = http.StatusBadRequest
		apiErr = domain.NewAPIError(domain.ErrCodeInvalidInput, "Invalid trend range", err.Error(), requestID)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, service.ErrProfilesUnavailable):
		status = http.StatusNotFound
		apiErr = domain.NewAPIError(domain.ErrCodeNotFound, "Not found", err.Error(), requestID)
	case errors.Is(err, service.ErrScoringFailed):
		status = http.StatusBadGateway
		apiErr = domain.NewAPIError(domain.ErrCodeEngine, "Scoring engine failed", "", requestID)
	default:
		status = http.StatusInternalServerError
		apiErr = domain.NewAPIError(domain.ErrCodeInternalServer, "Internal server error", "", requestID)
	}

	if status >= 500 {
		s.deps.Logger.WithError(err).WithField("correlation_id", requestID).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, apiErr)
}
