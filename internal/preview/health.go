package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const HealthPath = "/_preview/health"

type HealthClient struct {
	Timeout time.Duration
}

type healthResponse struct {
	OK         bool   `json:"ok"`
	InstanceID string `json:"instanceId"`
}

// Check confirms the service on port answers health probes with the expected
// instance id, so a stale process on the same port is not mistaken for ours.
func (c HealthClient) Check(ctx context.Context, port int, expectedInstanceID string) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid preview port %d", port)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: nil,
			DialContext: (&net.Dialer{
				Timeout: timeout,
			}).DialContext,
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d%s", port, HealthPath), nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var hr healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return err
	}
	if !hr.OK {
		return errors.New("health check not ok")
	}
	if expectedInstanceID != "" && hr.InstanceID != expectedInstanceID {
		return fmt.Errorf("unexpected instance id %q", hr.InstanceID)
	}
	return nil
}
