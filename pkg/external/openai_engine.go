package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/scoring"
)

// ErrEngineUnavailable is returned when the circuit breaker is open.
var ErrEngineUnavailable = errors.New("AI scoring engine unavailable (circuit breaker open)")

const systemPrompt = "You are a health AI assistant that calculates a user's biological age and provides personalized health recommendations. " +
	"Return a JSON object with: bioAge (number), bloodworkScore (0-1), lifestyleScore (0-1), vitalScore (0-1), " +
	"overallHealth (Poor | Fair | Good | Excellent), and recommendations (array of objects with id, category, title, description, priority, impact)."

// OpenAIEngine scores assessments with a chat-completion model. Responses are
// sanitized into the same shape and bounds as the deterministic engine.
type OpenAIEngine struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	rateLimit   *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *logrus.Logger
}

// NewOpenAIEngine creates an engine from the ai configuration section.
func NewOpenAIEngine(config domain.AIConfig, logger *logrus.Logger) (*OpenAIEngine, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("AI engine requires an API key")
	}
	if logger == nil {
		logger = logrus.New()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "OpenAI",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &OpenAIEngine{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: config.Temperature,
		timeout:     timeout,
		rateLimit:   rate.NewLimiter(limit, 1),
		breaker:     breaker,
		logger:      logger,
	}, nil
}

// Name identifies the engine on results.
func (e *OpenAIEngine) Name() string {
	return domain.EngineAI
}

// BreakerState reports the circuit breaker state for health output.
func (e *OpenAIEngine) BreakerState() gobreaker.State {
	return e.breaker.State()
}

// Score asks the model for an assessment of input.
func (e *OpenAIEngine) Score(ctx context.Context, input domain.AssessmentInput) (*domain.AssessmentResult, error) {
	if input.ChronologicalAge <= 0 {
		return nil, domain.NewInputError("chronological_age", "must be a positive number of years", input.ChronologicalAge)
	}

	if err := e.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	prompt, err := buildPrompt(input)
	if err != nil {
		return nil, err
	}

	out, err := e.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		resp, err := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature:    e.temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("completion returned no choices")
		}

		e.logger.WithFields(logrus.Fields{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
		}).Debug("AI assessment generated")

		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrEngineUnavailable
		}
		return nil, fmt.Errorf("AI assessment failed: %w", err)
	}

	return ParseAIResponse(out.(string), input, e.Name())
}

func buildPrompt(input domain.AssessmentInput) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Calculate biological age and generate recommendations for a person with:\nChronological Age: %d\n", input.ChronologicalAge)
	for _, category := range domain.Categories {
		values := map[domain.MetricID]domain.Value{}
		if set := input.Set(category); set != nil {
			for _, id := range set.IDs() {
				values[id] = set.Values[id]
			}
		}
		data, err := json.Marshal(values)
		if err != nil {
			return "", fmt.Errorf("marshaling %s observations: %w", category, err)
		}
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(category.String()[:1])+category.String()[1:], data)
	}
	b.WriteString("Return JSON with bioAge, bloodworkScore, lifestyleScore, vitalScore, overallHealth, and recommendations.")
	return b.String(), nil
}

type aiResponse struct {
	BioAge          *float64           `json:"bioAge"`
	BloodworkScore  *float64           `json:"bloodworkScore"`
	LifestyleScore  *float64           `json:"lifestyleScore"`
	VitalScore      *float64           `json:"vitalScore"`
	OverallHealth   string             `json:"overallHealth"`
	Recommendations []aiRecommendation `json:"recommendations"`
}

type aiRecommendation struct {
	ID          json.RawMessage `json:"id"`
	Category    string          `json:"category"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Impact      float64         `json:"impact"`
}

// ParseAIResponse converts model output into a result. Missing or zero values
// fall back to chronological age, neutral scores and a Fair label; out-of-range
// values are clamped and an unknown label is derived from the scores.
func ParseAIResponse(content string, input domain.AssessmentInput, engine string) (*domain.AssessmentResult, error) {
	var parsed aiResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &parsed); err != nil {
		return nil, fmt.Errorf("invalid AI response: %w", err)
	}

	scores := domain.CategoryScores{
		Bloodwork: scoreOrNeutral(parsed.BloodworkScore),
		Lifestyle: scoreOrNeutral(parsed.LifestyleScore),
		Vitals:    scoreOrNeutral(parsed.VitalScore),
	}
	overall := scoring.Blend(scores)

	bioAge := float64(input.ChronologicalAge)
	if parsed.BioAge != nil && *parsed.BioAge > 0 && !math.IsInf(*parsed.BioAge, 0) {
		bioAge = *parsed.BioAge
	}
	bioAge = math.Max(scoring.MinBiologicalAge, scoring.Round1(bioAge))

	label := domain.HealthLabel(parsed.OverallHealth)
	switch {
	case parsed.OverallHealth == "":
		label = domain.HealthFair
	case !label.IsValid():
		label = scoring.Classify(overall)
	}

	recs := make([]domain.Recommendation, 0, len(parsed.Recommendations))
	for _, r := range parsed.Recommendations {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		rec := domain.Recommendation{
			ID:          recommendationID(r.ID, len(recs)+1),
			Category:    domain.RecommendationCategory(r.Category),
			Title:       r.Title,
			Description: r.Description,
			Priority:    domain.Priority(r.Priority),
			Impact:      math.Max(0, r.Impact),
		}
		if !rec.Category.IsValid() {
			rec.Category = domain.RecommendationLifestyle
		}
		if !rec.Priority.IsValid() {
			rec.Priority = domain.PriorityMedium
		}
		recs = append(recs, rec)
	}

	return &domain.AssessmentResult{
		ID:               input.ID,
		OwnerID:          input.OwnerID,
		Date:             input.Now,
		ChronologicalAge: input.ChronologicalAge,
		BiologicalAge:    bioAge,
		Scores: domain.CategoryScores{
			Bloodwork: scoring.Round2(scores.Bloodwork),
			Lifestyle: scoring.Round2(scores.Lifestyle),
			Vitals:    scoring.Round2(scores.Vitals),
		},
		OverallScore:    scoring.Round2(overall),
		OverallHealth:   label,
		Recommendations: recs,
		Engine:          engine,
	}, nil
}

func scoreOrNeutral(v *float64) float64 {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return scoring.NeutralScore
	}
	return math.Min(1, math.Max(0, *v))
}

// recommendationID passes string or numeric ids through unchanged and numbers
// the rest sequentially.
func recommendationID(raw json.RawMessage, seq int) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil && n != "" {
		return n.String()
	}
	return strconv.Itoa(seq)
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
