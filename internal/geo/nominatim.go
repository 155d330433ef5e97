package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Nominatim is a reverse geocoder backed by an OpenStreetMap Nominatim server.
type Nominatim struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client
}

// NewNominatim creates a client. Nominatim's usage policy requires a
// descriptive User-Agent.
func NewNominatim(baseURL, userAgent, language string, timeout time.Duration) *Nominatim {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Nominatim{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type nominatimResponse struct {
	Name    string            `json:"name"`
	Error   string            `json:"error"`
	Address map[string]string `json:"address"`
}

// ReverseGeocode implements Provider.
func (n *Nominatim) ReverseGeocode(ctx context.Context, lat, lon float64) (*Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 7, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 7, 64))
	if n.language != "" {
		q.Set("accept-language", n.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // URL built from configured base URL
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	if result.Error != "" || len(result.Address) == 0 {
		return nil, ErrNoResult
	}

	addr := &Address{
		AdminArea:    first(result.Address, "state", "province", "region"),
		SubAdminArea: first(result.Address, "county", "state_district"),
		Locality:     first(result.Address, "city", "town", "village", "municipality"),
		SubLocality:  first(result.Address, "suburb", "city_district", "borough", "quarter", "neighbourhood"),
		Thoroughfare: first(result.Address, "road", "pedestrian", "footway"),
		FeatureName:  first(result.Address, "house_number"),
	}
	if addr.FeatureName == "" && result.Name != "" && result.Name != addr.Thoroughfare {
		addr.FeatureName = result.Name
	}
	return addr, nil
}

func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}
