package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"flatshare-scraper/config"
	"flatshare-scraper/filter"
	"flatshare-scraper/models"
)

const systemPrompt = "You are an assistant that evaluates LGBTQ+ flatshare ads in Sydney and outputs only valid JSON."

const promptTemplate = `Analyze this flatshare listing in Sydney and return a JSON object with this structure:
{
  "summary": "2-3 sentences summary in English",
  "lgbtq": true/false,
  "nationalities": ["Australian", "Brazilian"],
  "tags": ["ensuite", "bills included", "furnished"],
  "score": 0-100,
  "reasons": ["why this score"]
}

Ad data:
Title: %s
Description: %s
Price/week: %s
Location: %s
`

// ErrMissingKey is returned when the reply lacks one of the required keys
var ErrMissingKey = errors.New("reply is missing a required key")

// Analyzer asks a chat-completion model to summarise and score a listing. It
// never fails: every error falls back to the local heuristic.
type Analyzer struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	filter      *filter.Filter
}

// NewAnalyzer creates an Analyzer. Without an API key every call uses the
// fallback analysis.
func NewAnalyzer(cfg config.AnalysisConfig, f *filter.Filter) *Analyzer {
	a := &Analyzer{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		filter:      f,
	}
	if cfg.APIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, listings will get the fallback analysis")
		return a
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	a.client = openai.NewClientWithConfig(clientCfg)
	return a
}

// Analyze returns the analysis for listing
func (a *Analyzer) Analyze(ctx context.Context, listing models.Listing) models.Analysis {
	if a.client == nil {
		return a.filter.Fallback(listing)
	}

	analysis, err := a.request(ctx, listing)
	if err != nil {
		log.Printf("Warning: analysis failed for %s, using fallback: %v\n", listing.URL, err)
		return a.filter.Fallback(listing)
	}
	return analysis
}

func (a *Analyzer) request(ctx context.Context, listing models.Listing) (models.Analysis, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(listing)},
		},
		Temperature: a.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Analysis{}, errors.New("chat completion returned no choices")
	}

	return parseReply(resp.Choices[0].Message.Content)
}

func buildPrompt(listing models.Listing) string {
	return fmt.Sprintf(promptTemplate, listing.Title, listing.Description, listing.PriceLabel(), listing.Suburb)
}

// reply mirrors the JSON object requested in the prompt. Pointers tell a
// missing key apart from a zero value.
type reply struct {
	Summary       *string  `json:"summary"`
	LGBTQ         *bool    `json:"lgbtq"`
	Score         *float64 `json:"score"`
	Nationalities []string `json:"nationalities"`
	Tags          []string `json:"tags"`
	Reasons       []string `json:"reasons"`
}

// parseReply validates the model output and maps it onto an Analysis
func parseReply(content string) (models.Analysis, error) {
	var r reply
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return models.Analysis{}, fmt.Errorf("failed to decode reply: %w", err)
	}

	switch {
	case r.Summary == nil:
		return models.Analysis{}, fmt.Errorf("%w: summary", ErrMissingKey)
	case r.LGBTQ == nil:
		return models.Analysis{}, fmt.Errorf("%w: lgbtq", ErrMissingKey)
	case r.Score == nil:
		return models.Analysis{}, fmt.Errorf("%w: score", ErrMissingKey)
	}

	nationalities := []string{}
	seen := make(map[string]bool)
	for _, n := range r.Nationalities {
		label, ok := filter.KnownNationality(n)
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		nationalities = append(nationalities, label)
	}

	tags := []string{}
	for _, t := range r.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	return models.Analysis{
		Summary:       strings.TrimSpace(*r.Summary),
		Relevant:      *r.LGBTQ,
		Nationalities: nationalities,
		Tags:          tags,
		Score:         filter.ClampScore(int(math.Round(*r.Score))),
		Reasons:       reasons,
	}, nil
}
