package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider talks to an Ollama-compatible /api/generate endpoint.
type OllamaProvider struct {
	baseURL string
	model   string
	http    *http.Client
}

func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

// generateEnvelope is the backend's outer response; Response carries the
// model's answer as a JSON string.
type generateEnvelope struct {
	Response string `json:"response"`
}

func (p *OllamaProvider) Suggest(ctx context.Context, prompt string) (SuggestResponse, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return SuggestResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return SuggestResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return SuggestResponse{}, fmt.Errorf("call categorization backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SuggestResponse{}, fmt.Errorf("categorization backend returned %s", resp.Status)
	}

	var env generateEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return SuggestResponse{}, fmt.Errorf("decode backend envelope: %w", err)
	}

	var out SuggestResponse
	if err := json.Unmarshal([]byte(env.Response), &out); err != nil {
		return SuggestResponse{}, fmt.Errorf("decode model answer: %w", err)
	}
	return out, nil
}
