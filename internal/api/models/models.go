package models

import (
	"encoding/json"
	"time"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version       string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit     string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate     string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build date"`
	DriverVersion string `json:"driver_version" example:"2.20" doc:"Bundled chromedriver version"`
	DriverFile    string `json:"driver_file" example:"chromedriver" doc:"Platform driver executable name"`
	GoVersion     string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Platform      string `json:"platform" example:"linux/amd64" doc:"Operating system and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Driver models
type SessionData struct {
	ID           string          `json:"id" example:"abc123" doc:"Session created during readiness negotiation"`
	Capabilities map[string]any  `json:"capabilities,omitempty" doc:"Capabilities the session was created with"`
	Raw          json.RawMessage `json:"raw,omitempty" doc:"Raw session-creation response"`
	CreatedAt    time.Time       `json:"created_at" doc:"When the session was created"`
}

type ProcessData struct {
	RSSBytes   uint64    `json:"rss_bytes" example:"52428800" doc:"Resident memory of the driver process"`
	CPUPercent float64   `json:"cpu_percent" example:"1.5" doc:"CPU usage of the driver process"`
	SampledAt  time.Time `json:"sampled_at" doc:"When the sample was taken"`
}

type DriverData struct {
	State     string         `json:"state" example:"ready" doc:"Supervisor lifecycle state"`
	PID       int            `json:"pid,omitempty" example:"4242" doc:"Driver process ID while a process exists"`
	BinPath   string         `json:"bin_path" example:"/usr/lib/chromedriverd/exec/chromedriver" doc:"Driver executable"`
	Args      []string       `json:"args" doc:"Arguments the driver is spawned with"`
	URL       string         `json:"url" example:"http://localhost:9515/wd/hub" doc:"Base URL commands are proxied to"`
	StartedAt *time.Time     `json:"started_at,omitempty" doc:"When the driver became ready"`
	Session   *SessionData   `json:"session,omitempty" doc:"Session created by the last successful start"`
	LastError string         `json:"last_error,omitempty" doc:"Error that ended the last start or ready period"`
	Extra     map[string]any `json:"extra,omitempty" doc:"Additional driver configuration"`
	Process   *ProcessData   `json:"process,omitempty" doc:"Last resource sample of the driver process"`
}

type DriverResponse struct {
	Body DriverData
}

type DriverStartRequestData struct {
	Capabilities map[string]any `json:"capabilities,omitempty" doc:"Desired capabilities for the readiness session; configured capabilities are used when omitted"`
}

type DriverActionData struct {
	Action  string `json:"action" example:"start" doc:"Action performed"`
	State   string `json:"state" example:"reaping" doc:"State after the action was issued"`
	Message string `json:"message" example:"Driver start accepted" doc:"Status message"`
}

type DriverActionResponse struct {
	Status int
	Body   DriverActionData
}

// Log models
type LogsRequest struct {
	Since uint64 `query:"since" example:"120" doc:"Only return entries with a greater sequence number"`
	Limit int    `query:"limit" minimum:"0" maximum:"2000" example:"100" doc:"Return at most this many of the newest entries, 0 for all"`
}

type LogEntry struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number"`
	Timestamp  time.Time      `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"driver" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Log entries, oldest first"`
	Count   int        `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
