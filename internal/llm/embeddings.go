package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// EmbeddingsClient calls an OpenAI-compatible embeddings endpoint. The base
// URL is the API root including the version segment, e.g.
// https://api.openai.com/v1.
type EmbeddingsClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewEmbeddingsClient creates a client for the given endpoint. A zero
// timeout disables the client-side deadline; callers still control
// cancellation through ctx.
func NewEmbeddingsClient(baseURL, token string, timeout time.Duration) *EmbeddingsClient {
	return &EmbeddingsClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds all inputs in a single bulk request. Vectors are
// returned in input order regardless of response ordering.
func (c *EmbeddingsClient) EmbedBatch(ctx context.Context, model string, inputs []string) ([][]float64, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingsRequest{Model: model, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embeddings request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings request returned %d: %s", resp.StatusCode, detail)
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}

	if len(parsed.Data) != len(inputs) {
		return nil, fmt.Errorf("embeddings response carries %d vectors for %d inputs", len(parsed.Data), len(inputs))
	}

	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	vectors := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
