package events

import "time"

// EventType represents the type of event pushed to monitoring clients
type EventType string

const (
	// EventTypeRequestLog represents a completed HTTP request
	EventTypeRequestLog EventType = "request_log"
	// EventTypeComparison represents a completed embedding comparison
	EventTypeComparison EventType = "comparison"
	// EventTypeSystemStatus represents a system status update
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents monitoring client connect/disconnect
	EventTypeConnection EventType = "connection"
)

// Event is a single message sent to connected monitoring clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// RequestLogEvent describes a completed HTTP request
type RequestLogEvent struct {
	RequestID  string        `json:"request_id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code"`
	ClientIP   string        `json:"client_ip"`
	Duration   time.Duration `json:"duration"`
}

// ComparisonEvent describes a completed embedding comparison
type ComparisonEvent struct {
	RequestID  string  `json:"request_id"`
	Operation  string  `json:"operation"`
	Metric     string  `json:"metric"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	Match      bool    `json:"match"`
	References int     `json:"references,omitempty"`
}

// SystemStatusEvent describes service state changes
type SystemStatusEvent struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelName   string `json:"model_name,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ConnectionEvent describes monitoring client lifecycle changes
type ConnectionEvent struct {
	Action   string `json:"action"`
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}
