package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPTimeSource reads the server clock from the /api/v1/time endpoint.
type HTTPTimeSource struct {
	BaseURL string
	Client  *http.Client
}

type timeResponse struct {
	ServerTimeMs int64 `json:"server_time_ms"`
}

func (s *HTTPTimeSource) ServerTime(ctx context.Context) (time.Time, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/api/v1/time", nil)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("time endpoint returned %d", resp.StatusCode)
	}

	var body timeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(body.ServerTimeMs), nil
}
