package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Status struct {
	ServerReachable bool     `json:"server_reachable"`
	Version         string   `json:"version,omitempty"`
	Environment     string   `json:"environment,omitempty"`
	Healthy         bool     `json:"healthy"`
	Issues          []string `json:"issues,omitempty"`
}

// Check probes the server's health endpoint and reports what it finds.
func Check(serverURL string) *Status {
	status := &Status{
		Healthy: true,
		Issues:  []string{},
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		status.ServerReachable = false
		status.Healthy = false
		status.Issues = append(status.Issues, fmt.Sprintf("cannot reach server: %v", err))
		return status
	}
	defer resp.Body.Close()

	status.ServerReachable = resp.StatusCode == http.StatusOK
	if !status.ServerReachable {
		status.Healthy = false
		status.Issues = append(status.Issues, fmt.Sprintf("server unhealthy: %d", resp.StatusCode))
		return status
	}

	var body struct {
		Status      string `json:"status"`
		Version     string `json:"version"`
		Environment string `json:"environment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		status.Healthy = false
		status.Issues = append(status.Issues, fmt.Sprintf("malformed health response: %v", err))
		return status
	}

	status.Version = body.Version
	status.Environment = body.Environment
	if body.Status != "ok" {
		status.Healthy = false
		status.Issues = append(status.Issues, fmt.Sprintf("server status: %s", body.Status))
	}

	return status
}
