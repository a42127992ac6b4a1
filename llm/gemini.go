package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiHost = "https://generativelanguage.googleapis.com"

type geminiClient struct {
	host   string
	apiKey string
	model  string
	client *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiGenerateResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

func NewGeminiClient(opts Options) Client {
	host := strings.TrimRight(opts.GeminiBaseURL, "/")
	if host == "" {
		host = defaultGeminiHost
	}

	return &geminiClient{
		host:   host,
		apiKey: opts.GeminiAPIKey,
		model:  opts.Model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *geminiClient) Generate(ctx context.Context, messages []Message) (string, error) {
	payload := geminiGenerateRequest{}

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
		default:
			payload.Contents = append(payload.Contents, geminiContent{
				Role:  toGeminiRole(msg.Role),
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.host, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gemini generate API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("read gemini error body: %w", readErr)
		}
		if len(data) > 0 {
			return "", fmt.Errorf("gemini generate API error: %s", string(data))
		}
		return "", fmt.Errorf("gemini generate API returned status %s", resp.Status)
	}

	var parsed geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini generate returned no candidates")
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// toGeminiRole translates the caller role vocabulary into Gemini's.
// Gemini names the model's own turns "model", not "assistant".
func toGeminiRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}
