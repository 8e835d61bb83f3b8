package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Status is the response of the status endpoint.
type Status struct {
	OnlineWorkers      []StatusWorker     `json:"online_workers"`
	OnlineContentApps  []StatusContentApp `json:"online_content_apps"`
	DatabaseConnection struct {
		Connected bool `json:"connected"`
	} `json:"database_connection"`
}

type StatusWorker struct {
	Name string `json:"name"`
}

type StatusContentApp struct {
	Name string `json:"name"`
}

// ReadStatus queries the status endpoint and returns the parsed status along
// with the HTTP status code. The status endpoint is unauthenticated, but
// credentials are harmless and are sent like for any other call.
func (c *PulpClient) ReadStatus(ctx context.Context) (*Status, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AbsoluteURL(StatusPath), nil)
	if err != nil {
		return nil, 0, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(data)}
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, resp.StatusCode, err
	}
	return &status, resp.StatusCode, nil
}
