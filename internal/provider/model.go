package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// classificationResult - один элемент ответа text-classification эндпоинта
type classificationResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// InferenceModelClient - клиент внешнего классификатора (HuggingFace Inference API).
// Отсутствие конфигурации (пустой URL) - валидный режим: конвейер работает
// только на локальном fallback-скоринге.
type InferenceModelClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewInferenceModelClient создает клиент модели. Возвращает nil при пустом endpoint.
func NewInferenceModelClient(endpoint, token string, timeout time.Duration) *InferenceModelClient {
	if endpoint == "" {
		return nil
	}
	return &InferenceModelClient{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify отправляет текстовое представление вектора признаков и возвращает
// уверенность классификатора в [0,1]
func (c *InferenceModelClient) Classify(ctx context.Context, input string) (float64, error) {
	payload, err := json.Marshal(map[string]string{"inputs": input})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode model response: %w", err)
	}

	// Эндпоинт может вернуть [[{label,score}]] или [{label,score}]
	var nested [][]classificationResult
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0][0].Score, nil
	}
	var flat []classificationResult
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat[0].Score, nil
	}

	return 0, fmt.Errorf("unexpected model response format")
}
