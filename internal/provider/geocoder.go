package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// reverseGeocodeResponse - ответ BigDataCloud reverse-geocode-client
type reverseGeocodeResponse struct {
	Locality             string `json:"locality"`
	City                 string `json:"city"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	CountryName          string `json:"countryName"`
}

// HTTPGeocoder - клиент обратного геокодирования
type HTTPGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGeocoder создает клиент обратного геокодирования
func NewHTTPGeocoder(baseURL string, timeout time.Duration) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ReverseGeocode возвращает адресную строку для координаты.
// Деградация до "lat, lon" выполняется вызывающей стороной.
func (g *HTTPGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	reqURL := fmt.Sprintf("%s?latitude=%f&longitude=%f&localityLanguage=en", g.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create geocode request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var data reverseGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode geocode response: %w", err)
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{data.Locality, data.City, data.PrincipalSubdivision, data.CountryName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("geocode response contains no address components")
	}

	return strings.Join(parts, ", "), nil
}
