package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultOpenAITimeout    = 30 * time.Second
	defaultRequestsPerSec   = 5.0
	defaultMaxTokens        = 1200
	maxErrorBodyBytes       = 4 << 10
	chatCompletionsEndpoint = "/chat/completions"
)

// OpenAIConfig configures the chat completions client.
type OpenAIConfig struct {
	APIKey            string        `yaml:"api-key" json:"-"`
	Model             string        `yaml:"model" json:"model"`
	BaseURL           string        `yaml:"base-url" json:"base_url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerSecond float64       `yaml:"requests-per-second" json:"requests_per_second"`
}

// OpenAIGenerator calls the OpenAI chat completions API.
type OpenAIGenerator struct {
	config     OpenAIConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewOpenAIGenerator constructs a generator. An empty API key returns nil.
func NewOpenAIGenerator(config OpenAIConfig) *OpenAIGenerator {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil
	}
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultOpenAIBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = defaultOpenAITimeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaultRequestsPerSec
	}
	burst := int(config.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &OpenAIGenerator{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
	}
}

// Model returns the configured model name.
func (g *OpenAIGenerator) Model() string {
	return g.config.Model
}

// Alternatives asks the model for rewritten versions of the ad.
func (g *OpenAIGenerator) Alternatives(ctx context.Context, req Request) ([]Alternative, error) {
	controls := req.Controls.Normalize()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("generator: rate limit wait: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt(controls)},
			{Role: "user", Content: buildUserPrompt(req, controls)},
		},
		Temperature: controls.Temperature(),
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+chatCompletionsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("generator: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generator: request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("generator: close response body failed")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("generator: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err = json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("generator: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrNoAlternatives
	}

	alternatives, err := ParseAlternatives(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(alternatives) > controls.Variations {
		alternatives = alternatives[:controls.Variations]
	}
	log.WithFields(log.Fields{
		"model":             g.config.Model,
		"alternatives":      len(alternatives),
		"prompt_tokens":     parsed.Usage.PromptTokens,
		"completion_tokens": parsed.Usage.CompletionTokens,
	}).Debug("generator: alternatives generated")
	return alternatives, nil
}

// ParseAlternatives decodes a JSON array of alternatives from model output.
// Markdown code fences and leading prose around the array are ignored.
func ParseAlternatives(content string) ([]Alternative, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, ErrNoAlternatives
	}

	var raw []Alternative
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("generator: parse alternatives: %w", err)
	}

	out := make([]Alternative, 0, len(raw))
	for _, alt := range raw {
		alt.Headline = strings.TrimSpace(alt.Headline)
		alt.BodyText = strings.TrimSpace(alt.BodyText)
		alt.CTA = strings.TrimSpace(alt.CTA)
		alt.Strategy = strings.TrimSpace(alt.Strategy)
		if alt.Headline == "" && alt.BodyText == "" {
			continue
		}
		out = append(out, alt)
	}
	if len(out) == 0 {
		return nil, ErrNoAlternatives
	}
	return out, nil
}

func buildSystemPrompt(c CreativeControls) string {
	var b strings.Builder
	b.WriteString("You are a senior direct-response copywriter. Rewrite ads to be specific, credible and free of hype.\n")
	fmt.Fprintf(&b, "Write in a %s tone.\n", c.Tone)
	switch c.EmojiLevel {
	case EmojiLight:
		b.WriteString("Use at most one emoji per alternative.\n")
	case EmojiModerate:
		b.WriteString("Use up to three emoji per alternative where they fit naturally.\n")
	default:
		b.WriteString("Do not use emoji.\n")
	}
	if c.IncludeNumbers {
		b.WriteString("Include at least one concrete number, percentage or dollar amount in each alternative.\n")
	}
	if c.BrandVoice != "" {
		fmt.Fprintf(&b, "Match this brand voice: %s\n", c.BrandVoice)
	}
	fmt.Fprintf(&b, "Return only a JSON array of exactly %d objects with the keys headline, body_text, cta and strategy.", c.Variations)
	return b.String()
}

func buildUserPrompt(req Request, c CreativeControls) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", req.Platform)
	if req.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", req.Industry)
	}
	if req.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", req.TargetAudience)
	}
	fmt.Fprintf(&b, "Headline: %s\nBody: %s\n", req.Headline, req.BodyText)
	if req.CTA != "" {
		fmt.Fprintf(&b, "Call to action: %s\n", req.CTA)
	}
	fmt.Fprintf(&b, "Write %d alternatives.", c.Variations)
	return b.String()
}
