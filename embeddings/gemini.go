package embeddings

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

const (
	defaultGeminiHost = "https://generativelanguage.googleapis.com"

	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

type geminiEmbedder struct {
	host      string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"taskType"`
	OutputDimensionality int           `json:"outputDimensionality"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiEmbedding struct {
	Values []float32 `json:"values"`
}

type geminiEmbedResponse struct {
	Embedding geminiEmbedding `json:"embedding"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []geminiEmbedding `json:"embeddings"`
}

func NewGeminiEmbedder(opts Options) Embedder {
	host := strings.TrimRight(opts.GeminiBaseURL, "/")
	if host == "" {
		host = defaultGeminiHost
	}

	return &geminiEmbedder{
		host:      host,
		apiKey:    opts.GeminiAPIKey,
		model:     opts.Model,
		dimension: opts.Dimension,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *geminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(e.embedRequest(text, taskRetrievalQuery))
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent", e.host, e.model)
	var payload geminiEmbedResponse
	if err := e.post(ctx, url, reqBody, &payload); err != nil {
		return nil, err
	}

	if err := e.checkDimension(payload.Embedding.Values); err != nil {
		return nil, err
	}
	return payload.Embedding.Values, nil
}

func (e *geminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	requests := make([]geminiEmbedRequest, len(texts))
	for i, text := range texts {
		requests[i] = e.embedRequest(text, taskRetrievalDocument)
	}

	reqBody, err := json.Marshal(geminiBatchEmbedRequest{Requests: requests})
	if err != nil {
		return nil, fmt.Errorf("marshal gemini batch request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents", e.host, e.model)
	var payload geminiBatchEmbedResponse
	if err := e.post(ctx, url, reqBody, &payload); err != nil {
		return nil, err
	}

	if len(payload.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(payload.Embeddings), len(texts))
	}

	results := make([][]float32, len(payload.Embeddings))
	for i, emb := range payload.Embeddings {
		if err := e.checkDimension(emb.Values); err != nil {
			return nil, err
		}
		results[i] = emb.Values
	}
	return results, nil
}

func (e *geminiEmbedder) embedRequest(text, taskType string) geminiEmbedRequest {
	return geminiEmbedRequest{
		Model:                "models/" + strings.TrimPrefix(e.model, "models/"),
		Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType:             taskType,
		OutputDimensionality: e.dimension,
	}
}

func (e *geminiEmbedder) post(ctx context.Context, url string, body []byte, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("call gemini embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("read gemini error body: %w", readErr)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini embeddings API error: %s", string(data))
		}
		return fmt.Errorf("gemini embeddings API returned status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (e *geminiEmbedder) checkDimension(vec []float32) error {
	if e.dimension > 0 && len(vec) != e.dimension {
		return fmt.Errorf("gemini embedding dimension mismatch: expected %d, got %d", e.dimension, len(vec))
	}
	return nil
}
