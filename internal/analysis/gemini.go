package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GeminiSummarizer calls the Gemini generateContent API to condense a
// brainstorm idea list into a structured markdown summary.
type GeminiSummarizer struct {
	client *resty.Client
	model  string
	apiKey string
}

// NewGeminiSummarizer creates a summarizer against the given base URL,
// model name and API key.
func NewGeminiSummarizer(baseURL, model, apiKey string) *GeminiSummarizer {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)
	return &GeminiSummarizer{client: c, model: model, apiKey: apiKey}
}

type generateRequest struct {
	Contents         []content       `json:"contents"`
	GenerationConfig *generateConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Summarize produces the structured summary for a topic's idea list.
func (g *GeminiSummarizer) Summarize(ctx context.Context, topic string, ideas []string) (string, error) {
	if len(ideas) == 0 {
		return "", fmt.Errorf("no ideas to summarize")
	}

	reqBody := generateRequest{
		Contents:         []content{{Parts: []part{{Text: buildPrompt(topic, ideas)}}}},
		GenerationConfig: &generateConfig{Temperature: 0.2},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(&reqBody).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode(), resp.String())
	}

	var gr generateResponse
	if err := json.Unmarshal(resp.Body(), &gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

// buildPrompt asks for a three-section markdown analysis: filtered
// ideas, grouped sub-topics, then an overall summary with follow-up
// questions.
func buildPrompt(topic string, ideas []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a meeting assistant. Analyze the following brainstorm idea list for the topic %q.\n\n", topic)
	b.WriteString("Steps:\n")
	b.WriteString("1. Filter out ideas with no substance (duplicates, \"no idea\", \"pass\"). If nothing substantive remains, say so and stop.\n")
	b.WriteString("2. Group the remaining ideas into at most five sub-topics, titled in order of first appearance.\n")
	b.WriteString("3. Summarize the main points and list questions worth discussing next.\n\n")
	b.WriteString("Output exactly three markdown sections:\n")
	b.WriteString("#### 1. Filtered ideas\n")
	b.WriteString("#### 2. Grouped sub-topics\n")
	b.WriteString("#### 3. Summary and action items\n\n")
	b.WriteString("Idea list:\n- ")
	b.WriteString(strings.Join(ideas, "\n- "))
	b.WriteString("\n")
	return b.String()
}
